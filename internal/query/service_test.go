package query

import (
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mdrnmngl/marketing-feed-analytics/internal/models"
	"github.com/mdrnmngl/marketing-feed-analytics/internal/store"
)

func day(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := models.ParseDate(s)
	require.NoError(t, err)
	return d
}

func seededStore(t *testing.T) *store.MemoryStore {
	t.Helper()
	start := day(t, "2026-03-01")
	rows := make([]models.TimelineRow, 10)
	for i := range rows {
		rows[i].Date = start.AddDate(0, 0, i)
		rows[i].TotalRevenue = float64(10 * (i + 1))
	}
	rows[3].InfluencerPosts = 1
	rows[3].HasMarketingEvent = true
	rows[7].InfluencerPosts = 2
	rows[7].HasMarketingEvent = true

	posts := []models.AnnotatedPost{
		{SocialPostEvent: models.SocialPostEvent{Date: day(t, "2026-03-04"), Platform: "Instagram", PostURL: "https://ig/a", Likes: 50}},
		{SocialPostEvent: models.SocialPostEvent{Date: day(t, "2026-03-08"), Platform: "TikTok", PostURL: "https://tt/b", Likes: 10}},
		{SocialPostEvent: models.SocialPostEvent{Date: day(t, "2026-03-02"), Platform: "Instagram", PostURL: "https://ig/c", Likes: 5}},
	}
	campaigns := []models.CampaignEvent{
		{Date: day(t, "2026-03-04"), Platform: "Meta Ads", CampaignName: "spring", EventType: models.EventLaunch},
		{Date: day(t, "2026-03-05"), Platform: "Google Ads", CampaignName: "brand", EventType: models.EventLaunch},
		{Date: day(t, "2026-03-09"), Platform: "Meta Ads", CampaignName: "spring", EventType: models.EventPause},
	}

	st := store.NewMemoryStore()
	st.Replace(store.Snapshot{
		Range:     models.DateRange{Start: start, End: day(t, "2026-03-10")},
		Timeline:  rows,
		Posts:     posts,
		Campaigns: campaigns,
		Report:    models.RunReport{RunID: "run-1"},
	})
	return st
}

func vals(pairs ...string) url.Values {
	v := url.Values{}
	for i := 0; i+1 < len(pairs); i += 2 {
		v.Set(pairs[i], pairs[i+1])
	}
	return v
}

func TestTimelineDefaultsToSnapshotRange(t *testing.T) {
	svc := NewService(seededStore(t))
	rows, err := svc.Timeline(vals())
	require.NoError(t, err)
	require.Len(t, rows, 10)
	require.Equal(t, "2026-03-01", rows[0].Date)
	require.Equal(t, "2026-03-10", rows[9].Date)
}

func TestTimelineRangeNarrows(t *testing.T) {
	svc := NewService(seededStore(t))
	rows, err := svc.Timeline(vals("from", "2026-03-05", "to", "2026-03-07"))
	require.NoError(t, err)
	require.Len(t, rows, 3)
	require.Equal(t, "2026-03-05", rows[0].Date)
}

func TestTimelineEventsOnly(t *testing.T) {
	svc := NewService(seededStore(t))
	rows, err := svc.Timeline(vals("events_only", "true"))
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.Equal(t, "2026-03-04", rows[0].Date)
	require.Equal(t, "2026-03-08", rows[1].Date)
}

func TestTimelineRejectsBadBounds(t *testing.T) {
	svc := NewService(seededStore(t))
	_, err := svc.Timeline(vals("from", "not-a-date"))
	require.ErrorIs(t, err, ErrBadParam)

	_, err = svc.Timeline(vals("from", "2026-03-09", "to", "2026-03-02"))
	require.ErrorIs(t, err, ErrBadParam)
}

func TestTimelinePagination(t *testing.T) {
	svc := NewService(seededStore(t))
	rows, err := svc.Timeline(vals("limit", "3", "offset", "8"))
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.Equal(t, "2026-03-09", rows[0].Date)

	rows, err = svc.Timeline(vals("offset", "99"))
	require.NoError(t, err)
	require.Empty(t, rows)
}

func TestPostsPlatformFilter(t *testing.T) {
	svc := NewService(seededStore(t))

	posts, err := svc.Posts(vals("platform", "instagram"))
	require.NoError(t, err)
	require.Len(t, posts, 2)

	posts, err = svc.Posts(vals("platform", "Instagram,TIKTOK"))
	require.NoError(t, err)
	require.Len(t, posts, 3)
}

func TestPostsMinEngagement(t *testing.T) {
	svc := NewService(seededStore(t))
	posts, err := svc.Posts(vals("min_engagement", "40"))
	require.NoError(t, err)
	require.Len(t, posts, 1)
	require.Equal(t, "https://ig/a", posts[0].PostURL)
}

func TestPostsDeterministicOrder(t *testing.T) {
	svc := NewService(seededStore(t))
	posts, err := svc.Posts(vals())
	require.NoError(t, err)
	require.Len(t, posts, 3)
	require.Equal(t, "2026-03-02", posts[0].Date)
	require.Equal(t, "2026-03-04", posts[1].Date)
	require.Equal(t, "2026-03-08", posts[2].Date)
}

func TestCampaignsFilters(t *testing.T) {
	svc := NewService(seededStore(t))

	events, err := svc.Campaigns(vals("event_type", "pause"))
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.Equal(t, "spring", events[0].CampaignName)

	events, err = svc.Campaigns(vals("platform", "meta ads"))
	require.NoError(t, err)
	require.Len(t, events, 2)
}

func TestSummaryAndWeekly(t *testing.T) {
	svc := NewService(seededStore(t))

	sum, ok := svc.Summary()
	require.True(t, ok)
	require.Equal(t, 10, sum.TotalDays)
	require.InDelta(t, 550.0, sum.TotalRevenue, 1e-9)
	require.Equal(t, 2, sum.DaysWithActivity)

	weeks, ok := svc.Weekly()
	require.True(t, ok)
	require.NotEmpty(t, weeks)
}

func TestDashboardNewestPostsFirst(t *testing.T) {
	svc := NewService(seededStore(t))
	d, ok := svc.Dashboard(time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC))
	require.True(t, ok)
	require.Len(t, d.Timeline, 10)
	require.Equal(t, "2026-03-08", d.SocialPosts[0].Date)
}

func TestQueriesBeforeFirstRun(t *testing.T) {
	svc := NewService(store.NewMemoryStore())

	rows, err := svc.Timeline(vals())
	require.NoError(t, err)
	require.Empty(t, rows)

	_, ok := svc.Summary()
	require.False(t, ok)

	_, ok = svc.Dashboard(time.Now())
	require.False(t, ok)
}
