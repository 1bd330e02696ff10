// Package feed runs one feed generation end to end: fetch every configured
// source, normalize and dedup, build the dense timeline, annotate it with
// the correlation columns, publish the snapshot and write the report files.
//
// Source failures never abort a run. A platform that is down or not
// connected contributes an empty set and a warning; the feed is rebuilt
// from whatever the remaining sources return.
package feed

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mdrnmngl/marketing-feed-analytics/internal/config"
	"github.com/mdrnmngl/marketing-feed-analytics/internal/correlate"
	"github.com/mdrnmngl/marketing-feed-analytics/internal/ingest"
	"github.com/mdrnmngl/marketing-feed-analytics/internal/models"
	"github.com/mdrnmngl/marketing-feed-analytics/internal/normalize"
	"github.com/mdrnmngl/marketing-feed-analytics/internal/report"
	"github.com/mdrnmngl/marketing-feed-analytics/internal/store"
	"github.com/mdrnmngl/marketing-feed-analytics/internal/timeline"
)

// Sources carries every adapter one Service fetches from. Event source maps
// are keyed by the policy source names; a name the policy lists but the map
// lacks is treated as a disconnected platform.
type Sources struct {
	Sales          ingest.DailySource
	GATraffic      ingest.DailySource
	ShopifyTraffic ingest.DailySource
	Posts          map[string]ingest.PostSource
	Campaigns      map[string]ingest.CampaignSource
}

// Notifier is told when a run lands. Notification failures are logged and
// never fail the run.
type Notifier interface {
	RunCompleted(ctx context.Context, rep models.RunReport, sum report.Summary) error
}

// Service owns the generation pipeline. Safe for concurrent Generate calls;
// the store arbitrates which snapshot readers see.
type Service struct {
	policy  config.Policy
	src     Sources
	store   *store.MemoryStore
	writer  *report.Writer
	notif   Notifier
	norm    *normalize.Normalizer
	builder *timeline.Builder
	log     *slog.Logger
	now     func() time.Time
}

// New assembles a Service. writer and notif may be nil to skip file output
// or notifications.
func New(policy config.Policy, src Sources, st *store.MemoryStore, w *report.Writer, n Notifier, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		policy:  policy,
		src:     src,
		store:   st,
		writer:  w,
		notif:   n,
		norm:    normalize.New(log),
		builder: timeline.NewBuilder(log),
		log:     log,
		now:     time.Now,
	}
}

// Generate rebuilds the feed for the last days calendar days ending today
// and publishes it. The snapshot is published before report files are
// written, so a file-output failure leaves the new feed queryable.
func (s *Service) Generate(ctx context.Context, days int) (snap store.Snapshot, err error) {
	started := s.now()
	defer func() {
		runDuration.Observe(time.Since(started).Seconds())
		if err != nil {
			runsTotal.WithLabelValues("error").Inc()
			return
		}
		runsTotal.WithLabelValues("ok").Inc()
		lastSuccess.Set(float64(s.now().Unix()))
	}()

	if days < 1 {
		return store.Snapshot{}, fmt.Errorf("%w: lookback must cover at least 1 day, got %d", timeline.ErrInvalidRange, days)
	}
	rng := models.LookbackRange(started, days)
	s.log.Info("feed run started", "range", rng.String(), "days", rng.Days())

	f := s.fetchAll(ctx, rng)

	tallies := map[string]models.CategoryTally{
		models.CategorySales: dailyTally(rng, f.sales),
	}
	traffic := dailyTally(rng, f.ga)
	traffic.Add(dailyTally(rng, f.shopify))
	tallies[models.CategoryTraffic] = traffic

	posts, postTally := s.norm.Posts(f.posts...)
	posts, clipped := s.norm.ClipPosts(rng, posts)
	postTally.Kept -= clipped
	postTally.DroppedOutOfRange += clipped
	tallies[models.CategoryPosts] = postTally

	campaigns, campTally := s.norm.Campaigns(f.campaigns...)
	campaigns, clipped = s.norm.ClipCampaigns(rng, campaigns)
	campTally.Kept -= clipped
	campTally.DroppedOutOfRange += clipped
	tallies[models.CategoryCampaigns] = campTally

	rows, err := s.builder.Build(rng, timeline.Sources{
		Sales:          f.sales,
		GATraffic:      f.ga,
		ShopifyTraffic: f.shopify,
		Posts:          posts,
		Campaigns:      campaigns,
	})
	if err != nil {
		return store.Snapshot{}, fmt.Errorf("build timeline: %w", err)
	}
	rows, err = correlate.Annotate(rows, s.policy.WindowDays)
	if err != nil {
		return store.Snapshot{}, fmt.Errorf("annotate timeline: %w", err)
	}

	rep := models.RunReport{
		RunID:       uuid.NewString(),
		Start:       models.FormatDate(rng.Start),
		End:         models.FormatDate(rng.End),
		Days:        len(rows),
		Categories:  tallies,
		GeneratedAt: s.now().UTC(),
		DurationMS:  time.Since(started).Milliseconds(),
	}
	snap = store.Snapshot{
		Range:     rng,
		Timeline:  rows,
		Posts:     correlate.AnnotatePosts(posts, rows),
		Campaigns: campaigns,
		Report:    rep,
	}
	if s.store != nil {
		s.store.Replace(snap)
	}
	exportTallies(rep.Categories)
	s.logRun(rep)

	if s.notif != nil {
		if err := s.notif.RunCompleted(ctx, rep, report.Summarize(rng, rows)); err != nil {
			s.log.Warn("run notification failed", "err", err)
		}
	}
	if s.writer != nil {
		if err := s.writer.WriteAll(rng, rows, snap.Posts); err != nil {
			return snap, fmt.Errorf("write report: %w", err)
		}
	}
	return snap, nil
}

// fetched is everything the adapters returned for one run, raw.
type fetched struct {
	sales     []models.DailyMetric
	ga        []models.DailyMetric
	shopify   []models.DailyMetric
	posts     [][]models.SocialPostEvent
	campaigns [][]models.CampaignEvent
}

// fetchAll queries every source concurrently. Event category sets come back
// in policy priority order so the dedup pass keeps the right record on
// collisions.
func (s *Service) fetchAll(ctx context.Context, rng models.DateRange) fetched {
	f := fetched{
		posts:     make([][]models.SocialPostEvent, len(s.policy.PostSources)),
		campaigns: make([][]models.CampaignEvent, len(s.policy.CampaignSources)),
	}
	var wg sync.WaitGroup

	wg.Add(3)
	go func() {
		defer wg.Done()
		f.sales = s.fetchDaily(ctx, rng, s.src.Sales, models.CategorySales)
	}()
	go func() {
		defer wg.Done()
		f.ga = s.fetchDaily(ctx, rng, s.src.GATraffic, models.CategoryTraffic)
	}()
	go func() {
		defer wg.Done()
		f.shopify = s.fetchDaily(ctx, rng, s.src.ShopifyTraffic, models.CategoryTraffic)
	}()

	for i, name := range s.policy.PostSources {
		src, ok := s.src.Posts[name]
		if !ok {
			s.warnUnavailable(models.CategoryPosts, name, nil)
			continue
		}
		wg.Add(1)
		go func(i int, src ingest.PostSource) {
			defer wg.Done()
			set, err := src.Posts(ctx, rng)
			if err != nil {
				s.warnUnavailable(models.CategoryPosts, src.Name(), err)
				return
			}
			f.posts[i] = set
		}(i, src)
	}
	for i, name := range s.policy.CampaignSources {
		src, ok := s.src.Campaigns[name]
		if !ok {
			s.warnUnavailable(models.CategoryCampaigns, name, nil)
			continue
		}
		wg.Add(1)
		go func(i int, src ingest.CampaignSource) {
			defer wg.Done()
			set, err := src.Campaigns(ctx, rng)
			if err != nil {
				s.warnUnavailable(models.CategoryCampaigns, src.Name(), err)
				return
			}
			f.campaigns[i] = set
		}(i, src)
	}

	wg.Wait()
	return f
}

func (s *Service) fetchDaily(ctx context.Context, rng models.DateRange, src ingest.DailySource, category string) []models.DailyMetric {
	if src == nil {
		s.warnUnavailable(category, "", nil)
		return nil
	}
	set, err := src.Daily(ctx, rng)
	if err != nil {
		s.warnUnavailable(category, src.Name(), err)
		return nil
	}
	return set
}

func (s *Service) warnUnavailable(category, source string, err error) {
	attrs := []any{"category", category, "source", source}
	if err != nil {
		attrs = append(attrs, "err", err)
	}
	s.log.Warn("source unavailable, continuing with empty set", attrs...)
}

func (s *Service) logRun(rep models.RunReport) {
	s.log.Info("feed generated",
		"run_id", rep.RunID, "start", rep.Start, "end", rep.End,
		"days", rep.Days, "duration_ms", rep.DurationMS)
	for _, cat := range []string{
		models.CategorySales, models.CategoryTraffic,
		models.CategoryPosts, models.CategoryCampaigns,
	} {
		t := rep.Categories[cat]
		s.log.Info("category tally", "category", cat,
			"fetched", t.Fetched, "kept", t.Kept,
			"dropped_duplicate", t.DroppedDuplicate,
			"dropped_malformed", t.DroppedMalformed,
			"dropped_out_of_range", t.DroppedOutOfRange)
	}
}

// dailyTally counts one daily-metric set against the run range the same way
// the timeline join treats it: out-of-range days are dropped, repeated days
// keep the first record.
func dailyTally(rng models.DateRange, set []models.DailyMetric) models.CategoryTally {
	t := models.CategoryTally{Fetched: len(set)}
	seen := make(map[time.Time]struct{}, len(set))
	for _, m := range set {
		d := models.Day(m.Date)
		if !rng.Contains(d) {
			t.DroppedOutOfRange++
			continue
		}
		if _, dup := seen[d]; dup {
			t.DroppedDuplicate++
			continue
		}
		seen[d] = struct{}{}
		t.Kept++
	}
	return t
}
