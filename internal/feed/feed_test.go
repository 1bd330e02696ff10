package feed

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mdrnmngl/marketing-feed-analytics/internal/config"
	"github.com/mdrnmngl/marketing-feed-analytics/internal/ingest"
	"github.com/mdrnmngl/marketing-feed-analytics/internal/models"
	"github.com/mdrnmngl/marketing-feed-analytics/internal/report"
	"github.com/mdrnmngl/marketing-feed-analytics/internal/store"
	"github.com/mdrnmngl/marketing-feed-analytics/internal/timeline"
)

type fakeDaily struct {
	name   string
	set    []models.DailyMetric
	err    error
	gotRng models.DateRange
}

func (f *fakeDaily) Name() string { return f.name }

func (f *fakeDaily) Daily(ctx context.Context, rng models.DateRange) ([]models.DailyMetric, error) {
	f.gotRng = rng
	return f.set, f.err
}

type fakePosts struct {
	name string
	set  []models.SocialPostEvent
	err  error
}

func (f *fakePosts) Name() string { return f.name }

func (f *fakePosts) Posts(ctx context.Context, rng models.DateRange) ([]models.SocialPostEvent, error) {
	return f.set, f.err
}

type fakeCampaigns struct {
	name string
	set  []models.CampaignEvent
	err  error
}

func (f *fakeCampaigns) Name() string { return f.name }

func (f *fakeCampaigns) Campaigns(ctx context.Context, rng models.DateRange) ([]models.CampaignEvent, error) {
	return f.set, f.err
}

type fakeNotifier struct {
	called bool
	rep    models.RunReport
	sum    report.Summary
	err    error
}

func (f *fakeNotifier) RunCompleted(ctx context.Context, rep models.RunReport, sum report.Summary) error {
	f.called = true
	f.rep = rep
	f.sum = sum
	return f.err
}

func day(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := models.ParseDate(s)
	require.NoError(t, err)
	return d
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testPolicy() config.Policy {
	return config.Policy{
		LookbackDays:    365,
		WindowDays:      7,
		PostSources:     []string{"instagram", "manual"},
		CampaignSources: []string{"meta_ads", "manual"},
	}
}

func emptySources() Sources {
	return Sources{
		Sales:          &fakeDaily{name: "shopify_sales"},
		GATraffic:      &fakeDaily{name: "google_analytics"},
		ShopifyTraffic: &fakeDaily{name: "shopify_traffic"},
		Posts: map[string]ingest.PostSource{
			"instagram": &fakePosts{name: "instagram"},
			"manual":    &fakePosts{name: "manual"},
		},
		Campaigns: map[string]ingest.CampaignSource{
			"meta_ads": &fakeCampaigns{name: "meta_ads"},
			"manual":   &fakeCampaigns{name: "manual"},
		},
	}
}

// newService pins the clock to 2026-03-10 so a 10 day run covers
// 2026-03-01 through 2026-03-10.
func newService(t *testing.T, src Sources, st *store.MemoryStore, w *report.Writer, n Notifier) *Service {
	t.Helper()
	svc := New(testPolicy(), src, st, w, n, testLogger())
	svc.now = func() time.Time { return time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC) }
	return svc
}

func TestGeneratePublishesSnapshot(t *testing.T) {
	src := emptySources()
	src.Sales = &fakeDaily{name: "shopify_sales", set: []models.DailyMetric{
		{Date: day(t, "2026-03-05"), OrderCount: 2, TotalRevenue: 100, AvgOrderValue: 50},
	}}
	src.GATraffic = &fakeDaily{name: "google_analytics", set: []models.DailyMetric{
		{Date: day(t, "2026-03-05"), Sessions: 40, Users: 30, PageViews: 90, AvgSessionDuration: 12.5},
	}}
	src.ShopifyTraffic = &fakeDaily{name: "shopify_traffic", set: []models.DailyMetric{
		{Date: day(t, "2026-03-05"), Sessions: 35, Users: 28, PageViews: 80, TopCountries: "US: 30"},
	}}
	src.Posts["instagram"] = &fakePosts{name: "instagram", set: []models.SocialPostEvent{
		{Date: day(t, "2026-03-05"), Platform: models.PlatformInstagram, Influencer: "ana", PostURL: "https://ig/p1", Views: 500, Likes: 10},
	}}
	src.Campaigns["meta_ads"] = &fakeCampaigns{name: "meta_ads", set: []models.CampaignEvent{
		{Date: day(t, "2026-03-04"), Platform: models.PlatformMetaAds, CampaignName: "spring", EventType: models.EventLaunch, Budget: 25},
	}}

	st := store.NewMemoryStore()
	svc := newService(t, src, st, nil, nil)

	snap, err := svc.Generate(context.Background(), 10)
	require.NoError(t, err)
	require.True(t, st.Ready())
	require.Len(t, snap.Timeline, 10)

	// Adapters are asked for exactly the run range.
	require.Equal(t, "2026-03-01..2026-03-10", src.Sales.(*fakeDaily).gotRng.String())

	row := snap.Timeline[4]
	require.Equal(t, "2026-03-05", models.FormatDate(row.Date))
	require.Equal(t, 2, row.OrderCount)
	require.InDelta(t, 100.0, row.TotalRevenue, 1e-9)
	require.Equal(t, 40, row.Sessions, "GA owns sessions when both traffic sources report")
	require.Equal(t, 35, row.ShopifySessions)
	require.Equal(t, "US: 30", row.TopCountries)
	require.Equal(t, 1, row.InfluencerPosts)
	require.True(t, row.HasMarketingEvent)
	require.True(t, snap.Timeline[3].HasMarketingEvent, "campaign day flagged")

	// Annotations ride along: shrinking trailing mean, forward impact window.
	require.InDelta(t, 20.0, row.RevenueRollingAvg, 1e-9)
	require.InDelta(t, 100.0/6, row.PostEventRevenueAvg, 0.01)

	require.Len(t, snap.Posts, 1)
	require.InDelta(t, row.PostEventRevenueAvg, snap.Posts[0].RevenueImpact, 1e-9)
	require.Len(t, snap.Campaigns, 1)

	rep := snap.Report
	require.NotEmpty(t, rep.RunID)
	require.Equal(t, "2026-03-01", rep.Start)
	require.Equal(t, "2026-03-10", rep.End)
	require.Equal(t, 10, rep.Days)
	require.Equal(t, models.CategoryTally{Fetched: 1, Kept: 1}, rep.Categories[models.CategorySales])
	require.Equal(t, models.CategoryTally{Fetched: 2, Kept: 2}, rep.Categories[models.CategoryTraffic])

	stored, ok := st.Latest()
	require.True(t, ok)
	require.Equal(t, rep.RunID, stored.Report.RunID)
}

func TestGenerateSourceFailuresDegradeToEmpty(t *testing.T) {
	src := emptySources()
	src.Sales = &fakeDaily{name: "shopify_sales", err: errors.New("non-2xx: 503 body=upstream down")}
	src.Posts["instagram"] = &fakePosts{name: "instagram", err: ingest.ErrNotConfigured}
	src.Campaigns["meta_ads"] = &fakeCampaigns{name: "meta_ads", err: errors.New("timeout")}

	st := store.NewMemoryStore()
	svc := newService(t, src, st, nil, nil)

	snap, err := svc.Generate(context.Background(), 10)
	require.NoError(t, err, "source failures never abort a run")
	require.Len(t, snap.Timeline, 10)
	for _, row := range snap.Timeline {
		require.Zero(t, row.TotalRevenue)
		require.False(t, row.HasMarketingEvent)
	}
	require.Equal(t, models.CategoryTally{}, snap.Report.Categories[models.CategorySales])
}

func TestGenerateMissingAdapterIsDisconnected(t *testing.T) {
	src := emptySources()
	delete(src.Posts, "instagram")

	svc := newService(t, src, store.NewMemoryStore(), nil, nil)
	snap, err := svc.Generate(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, snap.Timeline, 5)
}

func TestGenerateDedupHonorsSourcePriority(t *testing.T) {
	src := emptySources()
	src.Posts["instagram"] = &fakePosts{name: "instagram", set: []models.SocialPostEvent{
		{Date: day(t, "2026-03-05"), Platform: models.PlatformInstagram, Influencer: "ana", PostURL: "https://ig/p1", Views: 500},
	}}
	src.Posts["manual"] = &fakePosts{name: "manual", set: []models.SocialPostEvent{
		{Date: day(t, "2026-03-05"), Platform: models.PlatformManual, Influencer: "ana", PostURL: "https://ig/p1", Views: 999},
		{Date: day(t, "2026-03-06"), Platform: models.PlatformManual, Influencer: "leo", PostURL: "https://man/p2"},
	}}

	svc := newService(t, src, store.NewMemoryStore(), nil, nil)
	snap, err := svc.Generate(context.Background(), 10)
	require.NoError(t, err)

	require.Len(t, snap.Posts, 2)
	require.Equal(t, 500, snap.Posts[0].Views, "instagram fetched first, so its record wins the collision")
	tally := snap.Report.Categories[models.CategoryPosts]
	require.Equal(t, models.CategoryTally{Fetched: 3, Kept: 2, DroppedDuplicate: 1}, tally)
}

func TestGenerateClipsOutOfRangeEvents(t *testing.T) {
	src := emptySources()
	src.Campaigns["manual"] = &fakeCampaigns{name: "manual", set: []models.CampaignEvent{
		{Date: day(t, "2026-02-20"), Platform: "Email", CampaignName: "teaser", EventType: models.EventLaunch},
		{Date: day(t, "2026-03-02"), Platform: "Email", CampaignName: "drop", EventType: models.EventLaunch},
	}}

	svc := newService(t, src, store.NewMemoryStore(), nil, nil)
	snap, err := svc.Generate(context.Background(), 10)
	require.NoError(t, err)

	require.Len(t, snap.Campaigns, 1)
	require.Equal(t, "drop", snap.Campaigns[0].CampaignName)
	tally := snap.Report.Categories[models.CategoryCampaigns]
	require.Equal(t, models.CategoryTally{Fetched: 2, Kept: 1, DroppedOutOfRange: 1}, tally)
}

func TestGenerateRejectsNonPositiveDays(t *testing.T) {
	st := store.NewMemoryStore()
	svc := newService(t, emptySources(), st, nil, nil)
	for _, days := range []int{0, -1, -365} {
		_, err := svc.Generate(context.Background(), days)
		require.ErrorIs(t, err, timeline.ErrInvalidRange, "days=%d", days)
	}
	require.False(t, st.Ready())
}

func TestGenerateWritesReportFiles(t *testing.T) {
	dir := t.TempDir()
	svc := newService(t, emptySources(), store.NewMemoryStore(), report.NewWriter(dir, testLogger()), nil)

	_, err := svc.Generate(context.Background(), 5)
	require.NoError(t, err)
	for _, name := range []string{report.FileTimeline, report.FileSummary, report.FileDashboard} {
		_, err := os.Stat(filepath.Join(dir, name))
		require.NoError(t, err, name)
	}
}

func TestGenerateNotifies(t *testing.T) {
	n := &fakeNotifier{}
	svc := newService(t, emptySources(), store.NewMemoryStore(), nil, n)

	snap, err := svc.Generate(context.Background(), 5)
	require.NoError(t, err)
	require.True(t, n.called)
	require.Equal(t, snap.Report.RunID, n.rep.RunID)
	require.Equal(t, 5, n.sum.TotalDays)
}

func TestGenerateNotifierFailureIsNotFatal(t *testing.T) {
	n := &fakeNotifier{err: errors.New("slack unreachable")}
	svc := newService(t, emptySources(), store.NewMemoryStore(), nil, n)

	_, err := svc.Generate(context.Background(), 5)
	require.NoError(t, err)
}

func TestDailyTally(t *testing.T) {
	rng := models.DateRange{Start: day(t, "2026-03-01"), End: day(t, "2026-03-10")}
	set := []models.DailyMetric{
		{Date: day(t, "2026-03-02")},
		{Date: day(t, "2026-03-02")},
		{Date: day(t, "2026-02-01")},
		{Date: day(t, "2026-03-09")},
	}
	got := dailyTally(rng, set)
	require.Equal(t, models.CategoryTally{Fetched: 4, Kept: 2, DroppedDuplicate: 1, DroppedOutOfRange: 1}, got)
}
