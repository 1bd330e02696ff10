// Package timeline builds the dense per-day spine of the feed and left-joins
// every normalized source onto it. The spine is authoritative: the result
// always covers exactly the requested range, one row per calendar day, even
// when every source is empty.
package timeline

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/mdrnmngl/marketing-feed-analytics/internal/models"
)

// ErrInvalidRange reports a date range whose start falls after its end.
var ErrInvalidRange = errors.New("timeline: invalid date range (start after end)")

type Builder struct {
	log *slog.Logger
}

func NewBuilder(log *slog.Logger) *Builder {
	return &Builder{log: log}
}

// Sources carries the per-source daily metric sets in their adapter shapes.
// Each source populates only the fields it owns under the merge policy.
type Sources struct {
	Sales          []models.DailyMetric
	GATraffic      []models.DailyMetric
	ShopifyTraffic []models.DailyMetric
	Posts          []models.SocialPostEvent
	Campaigns      []models.CampaignEvent
}

// Build produces one TimelineRow per calendar day in rng, ascending. Daily
// metric sources are joined under the merge policy; absent days keep zero
// defaults, which represent "no activity", not missing data. Event sources
// are grouped into per-day counts and detail strings. Source records dated
// outside rng are skipped. HasMarketingEvent is derived last, from the final
// counts only.
func (b *Builder) Build(rng models.DateRange, src Sources) ([]models.TimelineRow, error) {
	if !rng.Valid() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidRange, rng)
	}
	if err := validatePolicy(); err != nil {
		return nil, fmt.Errorf("timeline: %w", err)
	}

	sales := b.indexDaily(rng, src.Sales, models.CategorySales)
	ga := b.indexDaily(rng, src.GATraffic, models.CategoryTraffic)
	shop := b.indexDaily(rng, src.ShopifyTraffic, models.CategoryTraffic)

	postCount, postDetail := b.groupPosts(rng, src.Posts)
	eventCount, eventDetail := b.groupCampaigns(rng, src.Campaigns)

	rows := make([]models.TimelineRow, 0, rng.Days())
	for d := rng.Start; !d.After(rng.End); d = d.AddDate(0, 0, 1) {
		row := models.TimelineRow{DailyMetric: models.DailyMetric{Date: d}}
		have := map[sourceID]*models.DailyMetric{
			sourceSales:   sales[d],
			sourceGA:      ga[d],
			sourceShopify: shop[d],
		}
		for _, rule := range mergePolicy {
			rule.apply(&row.DailyMetric, have)
		}
		row.InfluencerPosts = postCount[d]
		row.InfluencerDetails = postDetail[d]
		row.CampaignEvents = eventCount[d]
		row.CampaignDetails = eventDetail[d]
		row.HasMarketingEvent = row.InfluencerPosts > 0 || row.CampaignEvents > 0
		rows = append(rows, row)
	}
	return rows, nil
}

// indexDaily keys a source's rows by canonical day. Duplicate dates within
// one source keep the first occurrence; dates outside the range are skipped.
func (b *Builder) indexDaily(rng models.DateRange, set []models.DailyMetric, category string) map[time.Time]*models.DailyMetric {
	idx := make(map[time.Time]*models.DailyMetric, len(set))
	skipped := 0
	for i := range set {
		d := models.Day(set[i].Date)
		if !rng.Contains(d) {
			skipped++
			continue
		}
		if _, ok := idx[d]; ok {
			continue
		}
		m := set[i]
		m.Date = d
		idx[d] = &m
	}
	if skipped > 0 {
		b.log.Debug("skipped out-of-range daily metrics",
			slog.String("category", category), slog.Int("skipped", skipped))
	}
	return idx
}

func (b *Builder) groupPosts(rng models.DateRange, posts []models.SocialPostEvent) (map[time.Time]int, map[time.Time]string) {
	counts := make(map[time.Time]int)
	details := make(map[time.Time][]string)
	for _, p := range posts {
		d := models.Day(p.Date)
		if !rng.Contains(d) {
			continue
		}
		counts[d]++
		details[d] = append(details[d], p.Describe())
	}
	return counts, joinDetails(details)
}

func (b *Builder) groupCampaigns(rng models.DateRange, events []models.CampaignEvent) (map[time.Time]int, map[time.Time]string) {
	counts := make(map[time.Time]int)
	details := make(map[time.Time][]string)
	for _, c := range events {
		d := models.Day(c.Date)
		if !rng.Contains(d) {
			continue
		}
		counts[d]++
		details[d] = append(details[d], c.Describe())
	}
	return counts, joinDetails(details)
}

func joinDetails(in map[time.Time][]string) map[time.Time]string {
	out := make(map[time.Time]string, len(in))
	for d, parts := range in {
		out[d] = strings.Join(parts, "; ")
	}
	return out
}
