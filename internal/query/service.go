// Package query answers read requests against the latest feed snapshot.
// All queries are bounded by the snapshot's own range when the caller does
// not narrow them, and every result order is deterministic.
package query

import (
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/mdrnmngl/marketing-feed-analytics/internal/models"
	"github.com/mdrnmngl/marketing-feed-analytics/internal/report"
	"github.com/mdrnmngl/marketing-feed-analytics/internal/store"
)

// ErrBadParam reports an unusable query parameter.
var ErrBadParam = errors.New("query: bad parameter")

type Service struct{ st *store.MemoryStore }

func NewService(st *store.MemoryStore) *Service { return &Service{st: st} }

func norm(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

func csvSet(s string) map[string]struct{} {
	out := map[string]struct{}{}
	for _, p := range strings.Split(s, ",") {
		p = norm(p)
		if p != "" {
			out[p] = struct{}{}
		}
	}
	return out
}

// Timeline returns timeline rows. Params: from, to (YYYY-MM-DD, defaulting
// to the snapshot bounds), events_only, limit, offset.
func (s *Service) Timeline(v url.Values) ([]models.TimelineRecord, error) {
	from, to, err := s.bounds(v)
	if err != nil {
		return nil, err
	}
	eventsOnly := boolParam(v.Get("events_only"))
	limit := atoiDef(v.Get("limit"), 100)
	offset := atoiDef(v.Get("offset"), 0)

	rows := s.st.Timeline(from, to, func(r models.TimelineRow) bool {
		return !eventsOnly || r.HasMarketingEvent
	})

	// stored order is already ascending by day
	out := make([]models.TimelineRecord, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.Record())
	}
	limit, offset = clampLimitOffset(limit, offset, len(out))
	return paginate(out, limit, offset), nil
}

// Posts returns annotated posts. Params: from, to, platform (comma list),
// min_engagement, limit, offset.
func (s *Service) Posts(v url.Values) ([]models.PostRecord, error) {
	from, to, err := s.bounds(v)
	if err != nil {
		return nil, err
	}
	platforms := csvSet(v.Get("platform"))
	minEng := atoiDef(v.Get("min_engagement"), 0)
	limit := atoiDef(v.Get("limit"), 100)
	offset := atoiDef(v.Get("offset"), 0)

	posts := s.st.Posts(from, to, func(p models.AnnotatedPost) bool {
		if len(platforms) > 0 {
			if _, ok := platforms[norm(p.Platform)]; !ok {
				return false
			}
		}
		return p.TotalEngagement() >= minEng
	})

	sort.Slice(posts, func(i, j int) bool {
		if !posts[i].Date.Equal(posts[j].Date) {
			return posts[i].Date.Before(posts[j].Date)
		}
		if posts[i].Platform != posts[j].Platform {
			return posts[i].Platform < posts[j].Platform
		}
		return posts[i].PostURL < posts[j].PostURL
	})

	out := make([]models.PostRecord, 0, len(posts))
	for _, p := range posts {
		out = append(out, p.Record())
	}
	limit, offset = clampLimitOffset(limit, offset, len(out))
	return paginate(out, limit, offset), nil
}

// Campaigns returns campaign events. Params: from, to, platform (comma
// list), event_type, limit, offset.
func (s *Service) Campaigns(v url.Values) ([]models.CampaignRecord, error) {
	from, to, err := s.bounds(v)
	if err != nil {
		return nil, err
	}
	platforms := csvSet(v.Get("platform"))
	eventType := norm(v.Get("event_type"))
	limit := atoiDef(v.Get("limit"), 100)
	offset := atoiDef(v.Get("offset"), 0)

	events := s.st.Campaigns(from, to)
	filtered := events[:0:0]
	for _, c := range events {
		if len(platforms) > 0 {
			if _, ok := platforms[norm(c.Platform)]; !ok {
				continue
			}
		}
		if eventType != "" && norm(c.EventType) != eventType {
			continue
		}
		filtered = append(filtered, c)
	}

	sort.Slice(filtered, func(i, j int) bool {
		if !filtered[i].Date.Equal(filtered[j].Date) {
			return filtered[i].Date.Before(filtered[j].Date)
		}
		if filtered[i].CampaignName != filtered[j].CampaignName {
			return filtered[i].CampaignName < filtered[j].CampaignName
		}
		return filtered[i].EventType < filtered[j].EventType
	})

	out := make([]models.CampaignRecord, 0, len(filtered))
	for _, c := range filtered {
		out = append(out, c.Record())
	}
	limit, offset = clampLimitOffset(limit, offset, len(out))
	return paginate(out, limit, offset), nil
}

// Summary folds the whole snapshot into its headline stats. The bool is
// false before the first completed run.
func (s *Service) Summary() (report.Summary, bool) {
	snap, ok := s.st.Latest()
	if !ok {
		return report.Summary{}, false
	}
	return report.Summarize(snap.Range, snap.Timeline), true
}

// Weekly returns the ISO week rollup for the whole snapshot.
func (s *Service) Weekly() ([]report.WeeklyActivity, bool) {
	snap, ok := s.st.Latest()
	if !ok {
		return nil, false
	}
	return report.WeeklyRollup(snap.Timeline), true
}

// Dashboard assembles the site payload from the whole snapshot.
func (s *Service) Dashboard(now time.Time) (report.Dashboard, bool) {
	snap, ok := s.st.Latest()
	if !ok {
		return report.Dashboard{}, false
	}
	return report.BuildDashboard(snap.Range, snap.Timeline, report.NewestFirst(snap.Posts), now), true
}

// bounds resolves the from/to params against the snapshot range. Absent
// params widen to the snapshot's own bounds; unparseable or inverted ones
// are rejected.
func (s *Service) bounds(v url.Values) (time.Time, time.Time, error) {
	snap, ok := s.st.Latest()
	if !ok {
		// No snapshot yet; any range yields the empty result.
		return time.Time{}, time.Time{}, nil
	}
	from, to := snap.Range.Start, snap.Range.End
	var err error
	if q := v.Get("from"); q != "" {
		if from, err = models.ParseDate(q); err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("%w: from=%q", ErrBadParam, q)
		}
	}
	if q := v.Get("to"); q != "" {
		if to, err = models.ParseDate(q); err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("%w: to=%q", ErrBadParam, q)
		}
	}
	if from.After(to) {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: from after to", ErrBadParam)
	}
	return from, to, nil
}

func boolParam(s string) bool {
	switch norm(s) {
	case "1", "true", "yes":
		return true
	}
	return false
}

func paginate[T any](rows []T, limit, offset int) []T {
	if offset >= len(rows) {
		return []T{}
	}
	end := offset + limit
	if end > len(rows) {
		end = len(rows)
	}
	return rows[offset:end]
}

func atoiDef(s string, d int) int {
	v, err := strconv.Atoi(s)
	if err != nil {
		return d
	}
	return v
}

func clampLimitOffset(limit, offset, n int) (int, int) {
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 {
		limit = n
	}
	if limit > 1000 {
		limit = 1000
	}
	if offset > n {
		offset = n
	}
	return limit, offset
}
