// Package report renders a generated feed into its operator-facing outputs:
// summary statistics, the weekly activity rollup, CSV sheets, and the JSON
// payload the dashboard site consumes.
package report

import (
	"sort"

	"github.com/mdrnmngl/marketing-feed-analytics/internal/models"
)

// Summary is the headline view over one feed run.
type Summary struct {
	Start              string  `json:"start"`
	End                string  `json:"end"`
	TotalDays          int     `json:"total_days"`
	TotalRevenue       float64 `json:"total_revenue"`
	AvgDailyRevenue    float64 `json:"avg_daily_revenue"`
	TotalOrders        int     `json:"total_orders"`
	TotalSessions      int     `json:"total_sessions"`
	TotalUsers         int     `json:"total_users"`
	InfluencerPosts    int     `json:"influencer_posts"`
	CampaignEvents     int     `json:"campaign_events"`
	DaysWithActivity   int     `json:"days_with_marketing_activity"`
	PostsLast30Days    int     `json:"posts_last_30_days"`
}

// Summarize folds the timeline into its summary. An empty timeline yields a
// zero summary with the range still stamped.
func Summarize(rng models.DateRange, rows []models.TimelineRow) Summary {
	s := Summary{
		Start:     models.FormatDate(rng.Start),
		End:       models.FormatDate(rng.End),
		TotalDays: len(rows),
	}
	for i, row := range rows {
		s.TotalRevenue += row.TotalRevenue
		s.TotalOrders += row.OrderCount
		s.TotalSessions += row.Sessions
		s.TotalUsers += row.Users
		s.InfluencerPosts += row.InfluencerPosts
		s.CampaignEvents += row.CampaignEvents
		if row.HasMarketingEvent {
			s.DaysWithActivity++
		}
		if i >= len(rows)-30 {
			s.PostsLast30Days += row.InfluencerPosts
		}
	}
	if len(rows) > 0 {
		s.AvgDailyRevenue = s.TotalRevenue / float64(len(rows))
	}
	return s
}

// Activity levels for the weekly rollup. Three or more marketing touches in
// a week is a busy week for a shop this size.
const (
	ActivityHigh   = "High"
	ActivityMedium = "Medium"
	ActivityLow    = "Low"
)

// WeeklyActivity is one ISO week's aggregate.
type WeeklyActivity struct {
	Year            int     `json:"year"`
	Week            int     `json:"week"`
	TotalRevenue    float64 `json:"total_revenue"`
	Sessions        int     `json:"sessions"`
	InfluencerPosts int     `json:"influencer_posts"`
	CampaignEvents  int     `json:"campaign_events"`
	ActivityLevel   string  `json:"activity_level"`
}

// WeeklyRollup groups the timeline by ISO week, ascending.
func WeeklyRollup(rows []models.TimelineRow) []WeeklyActivity {
	type key struct{ year, week int }
	byWeek := make(map[key]*WeeklyActivity)
	for _, row := range rows {
		y, w := row.Date.ISOWeek()
		k := key{y, w}
		agg, ok := byWeek[k]
		if !ok {
			agg = &WeeklyActivity{Year: y, Week: w}
			byWeek[k] = agg
		}
		agg.TotalRevenue += row.TotalRevenue
		agg.Sessions += row.Sessions
		agg.InfluencerPosts += row.InfluencerPosts
		agg.CampaignEvents += row.CampaignEvents
	}

	out := make([]WeeklyActivity, 0, len(byWeek))
	for _, agg := range byWeek {
		agg.ActivityLevel = activityLevel(agg.InfluencerPosts + agg.CampaignEvents)
		out = append(out, *agg)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Year != out[j].Year {
			return out[i].Year < out[j].Year
		}
		return out[i].Week < out[j].Week
	})
	return out
}

func activityLevel(touches int) string {
	switch {
	case touches >= 3:
		return ActivityHigh
	case touches >= 1:
		return ActivityMedium
	default:
		return ActivityLow
	}
}

// EventDays filters the timeline down to rows with marketing activity.
func EventDays(rows []models.TimelineRow) []models.TimelineRow {
	out := make([]models.TimelineRow, 0)
	for _, row := range rows {
		if row.HasMarketingEvent {
			out = append(out, row)
		}
	}
	return out
}

// NewestFirst returns posts sorted by date descending, stable within a day.
func NewestFirst(posts []models.AnnotatedPost) []models.AnnotatedPost {
	out := make([]models.AnnotatedPost, len(posts))
	copy(out, posts)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	return out
}
