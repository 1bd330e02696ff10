// Package correlate derives the rolling and event-impact annotations from a
// built timeline. Annotation is a pure function of the base fields, so
// re-annotating an already-annotated timeline with the same window yields
// identical values.
package correlate

import (
	"errors"
	"fmt"
	"math"

	"github.com/mdrnmngl/marketing-feed-analytics/internal/models"
)

// ErrInvalidWindow reports a non-positive correlation window.
var ErrInvalidWindow = errors.New("correlate: window must be positive")

// Annotate computes, for each row: the trailing moving averages of revenue
// and sessions (window shrinks at the series head, no fabricated values),
// the day-over-day percent changes (0 for the first row and for zero
// baselines), and on marketing-event days the forward impact averages over
// [t, min(t+window-1, end)]. Rows without an event keep zero impact fields.
// The input is not mutated.
func Annotate(rows []models.TimelineRow, windowDays int) ([]models.TimelineRow, error) {
	if windowDays <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidWindow, windowDays)
	}

	out := make([]models.TimelineRow, len(rows))
	copy(out, rows)

	for i := range out {
		lo := i - windowDays + 1
		if lo < 0 {
			lo = 0
		}
		var revSum, sesSum float64
		for j := lo; j <= i; j++ {
			revSum += out[j].TotalRevenue
			sesSum += float64(out[j].Sessions)
		}
		n := float64(i - lo + 1)
		out[i].RevenueRollingAvg = round2(revSum / n)
		out[i].TrafficRollingAvg = round2(sesSum / n)

		out[i].RevenueChangePct = changePct(prevRevenue(out, i), out[i].TotalRevenue)
		out[i].TrafficChangePct = changePct(prevSessions(out, i), float64(out[i].Sessions))

		out[i].PostEventRevenueAvg = 0
		out[i].PostEventTrafficAvg = 0
		if out[i].HasMarketingEvent {
			hi := i + windowDays - 1
			if hi > len(out)-1 {
				hi = len(out) - 1
			}
			var rev, ses float64
			for j := i; j <= hi; j++ {
				rev += out[j].TotalRevenue
				ses += float64(out[j].Sessions)
			}
			m := float64(hi - i + 1)
			out[i].PostEventRevenueAvg = round2(rev / m)
			out[i].PostEventTrafficAvg = round2(ses / m)
		}
	}
	return out, nil
}

// AnnotatePosts copies each post's event-day impact averages from the
// annotated timeline onto the flat post list. Posts dated outside the
// timeline keep zero impact.
func AnnotatePosts(posts []models.SocialPostEvent, rows []models.TimelineRow) []models.AnnotatedPost {
	byDay := make(map[string]models.TimelineRow, len(rows))
	for _, r := range rows {
		byDay[models.FormatDate(r.Date)] = r
	}
	out := make([]models.AnnotatedPost, 0, len(posts))
	for _, p := range posts {
		ap := models.AnnotatedPost{SocialPostEvent: p}
		if r, ok := byDay[models.FormatDate(p.Date)]; ok {
			ap.RevenueImpact = r.PostEventRevenueAvg
			ap.TrafficImpact = r.PostEventTrafficAvg
		}
		out = append(out, ap)
	}
	return out
}

// changePct returns (cur-prev)/prev*100, with 0 as the declared sentinel for
// a zero baseline so a quiet day never turns into a division error.
func changePct(prev, cur float64) float64 {
	if prev == 0 {
		return 0
	}
	return round2((cur - prev) / prev * 100)
}

func prevRevenue(rows []models.TimelineRow, i int) float64 {
	if i == 0 {
		return 0
	}
	return rows[i-1].TotalRevenue
}

func prevSessions(rows []models.TimelineRow, i int) float64 {
	if i == 0 {
		return 0
	}
	return float64(rows[i-1].Sessions)
}

func round2(f float64) float64 { return math.Round(f*100) / 100 }
