package correlate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mdrnmngl/marketing-feed-analytics/internal/models"
)

func day(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := models.ParseDate(s)
	require.NoError(t, err)
	return d
}

func revenueRows(t *testing.T, start string, revenues ...float64) []models.TimelineRow {
	t.Helper()
	first := day(t, start)
	rows := make([]models.TimelineRow, len(revenues))
	for i, rev := range revenues {
		rows[i].Date = first.AddDate(0, 0, i)
		rows[i].TotalRevenue = rev
		rows[i].Sessions = int(rev * 10)
	}
	return rows
}

func TestAnnotateRejectsNonPositiveWindow(t *testing.T) {
	rows := revenueRows(t, "2026-01-01", 10)
	for _, w := range []int{0, -1, -7} {
		_, err := Annotate(rows, w)
		require.ErrorIs(t, err, ErrInvalidWindow, "window %d", w)
	}
}

func TestAnnotateRollingAverageShrinksAtHead(t *testing.T) {
	rows := revenueRows(t, "2026-01-01", 10, 20, 30)

	got, err := Annotate(rows, 7)
	require.NoError(t, err)

	require.Equal(t, []float64{10, 15, 20}, []float64{
		got[0].RevenueRollingAvg,
		got[1].RevenueRollingAvg,
		got[2].RevenueRollingAvg,
	})
	require.Equal(t, []float64{100, 150, 200}, []float64{
		got[0].TrafficRollingAvg,
		got[1].TrafficRollingAvg,
		got[2].TrafficRollingAvg,
	})
}

func TestAnnotateRollingAverageUsesFullWindowOnce(t *testing.T) {
	rows := revenueRows(t, "2026-01-01", 1, 2, 3, 4, 5)

	got, err := Annotate(rows, 3)
	require.NoError(t, err)

	// Row 3 averages days 2..4, row 4 averages days 3..5.
	require.InDelta(t, 3.0, got[3].RevenueRollingAvg, 1e-9)
	require.InDelta(t, 4.0, got[4].RevenueRollingAvg, 1e-9)
}

func TestAnnotateChangePctSentinels(t *testing.T) {
	rows := revenueRows(t, "2026-01-01", 0, 50, 100, 50)

	got, err := Annotate(rows, 7)
	require.NoError(t, err)

	require.Zero(t, got[0].RevenueChangePct, "first row has no baseline")
	require.Zero(t, got[1].RevenueChangePct, "zero baseline stays 0, not Inf")
	require.InDelta(t, 100.0, got[2].RevenueChangePct, 1e-9)
	require.InDelta(t, -50.0, got[3].RevenueChangePct, 1e-9)
}

func TestAnnotateImpactWindowTruncatesAtEnd(t *testing.T) {
	rows := revenueRows(t, "2026-01-01", 10, 20, 30, 40, 50)
	rows[4].HasMarketingEvent = true

	got, err := Annotate(rows, 7)
	require.NoError(t, err)

	// Event on the final day: the window is just that day.
	require.InDelta(t, 50.0, got[4].PostEventRevenueAvg, 1e-9)
	require.InDelta(t, 500.0, got[4].PostEventTrafficAvg, 1e-9)
}

func TestAnnotateImpactWindowForwardLooking(t *testing.T) {
	rows := revenueRows(t, "2026-01-01", 10, 20, 30, 40, 50)
	rows[1].HasMarketingEvent = true

	got, err := Annotate(rows, 3)
	require.NoError(t, err)

	// Days 2..4, not 1..3: the window starts on the event day.
	require.InDelta(t, 30.0, got[1].PostEventRevenueAvg, 1e-9)
	require.Zero(t, got[0].PostEventRevenueAvg)
	require.Zero(t, got[2].PostEventRevenueAvg, "non-event rows keep zero impact")
}

func TestAnnotateDoesNotMutateInput(t *testing.T) {
	rows := revenueRows(t, "2026-01-01", 10, 20, 30)
	rows[0].HasMarketingEvent = true

	_, err := Annotate(rows, 7)
	require.NoError(t, err)

	for i := range rows {
		require.Zero(t, rows[i].RevenueRollingAvg, "row %d", i)
		require.Zero(t, rows[i].PostEventRevenueAvg, "row %d", i)
	}
}

func TestAnnotateIdempotent(t *testing.T) {
	rows := revenueRows(t, "2026-01-01", 10, 0, 30, 25, 80, 5)
	rows[2].HasMarketingEvent = true
	rows[5].HasMarketingEvent = true

	once, err := Annotate(rows, 7)
	require.NoError(t, err)
	twice, err := Annotate(once, 7)
	require.NoError(t, err)

	require.Equal(t, once, twice)
}

func TestAnnotatePostsCopiesEventDayImpact(t *testing.T) {
	rows := revenueRows(t, "2026-01-01", 10, 20, 30)
	rows[1].HasMarketingEvent = true
	annotated, err := Annotate(rows, 7)
	require.NoError(t, err)

	posts := []models.SocialPostEvent{
		{Date: day(t, "2026-01-02"), Platform: models.PlatformInstagram, Influencer: "ana", PostURL: "https://ig/p/1"},
		{Date: day(t, "2025-12-01"), Platform: models.PlatformTikTok, Influencer: "leo", PostURL: "https://tt/p/2"},
	}

	got := AnnotatePosts(posts, annotated)
	require.Len(t, got, 2)
	require.Equal(t, annotated[1].PostEventRevenueAvg, got[0].RevenueImpact)
	require.Equal(t, annotated[1].PostEventTrafficAvg, got[0].TrafficImpact)
	require.Zero(t, got[1].RevenueImpact, "post outside the timeline keeps zero impact")
}
