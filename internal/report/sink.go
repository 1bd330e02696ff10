package report

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/mdrnmngl/marketing-feed-analytics/internal/models"
)

// Output file names under the report directory. Every run rewrites the
// whole set.
const (
	FileTimeline       = "timeline.csv"
	FileSocialPosts    = "social_posts.csv"
	FileEvents         = "marketing_events.csv"
	FileWeekly         = "weekly_summary.csv"
	FileTrafficSources = "traffic_sources.csv"
	FileGeography      = "geography.csv"
	FileSummary        = "summary.csv"
	FileDashboard      = "dashboard.json"
)

// Writer renders feed snapshots to CSV sheets and the dashboard JSON file.
type Writer struct {
	dir string
	log *slog.Logger
	now func() time.Time
}

// NewWriter returns a Writer rooted at dir. The directory is created on the
// first write.
func NewWriter(dir string, log *slog.Logger) *Writer {
	if log == nil {
		log = slog.Default()
	}
	return &Writer{dir: dir, log: log, now: time.Now}
}

// WriteAll renders every output file for one run. Posts are reordered newest
// first for the per-post sheets; rows are expected in timeline order.
func (w *Writer) WriteAll(rng models.DateRange, rows []models.TimelineRow, posts []models.AnnotatedPost) error {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return fmt.Errorf("report dir: %w", err)
	}

	recent := NewestFirst(posts)
	files := []struct {
		name string
		data func() ([]byte, error)
	}{
		{FileTimeline, func() ([]byte, error) { return timelineCSV(rows) }},
		{FileSocialPosts, func() ([]byte, error) { return postsCSV(recent) }},
		{FileEvents, func() ([]byte, error) { return timelineCSV(EventDays(rows)) }},
		{FileWeekly, func() ([]byte, error) { return weeklyCSV(WeeklyRollup(rows)) }},
		{FileTrafficSources, func() ([]byte, error) { return trafficSourcesCSV(rows) }},
		{FileGeography, func() ([]byte, error) { return geographyCSV(rows) }},
		{FileSummary, func() ([]byte, error) { return summaryCSV(Summarize(rng, rows)) }},
		{FileDashboard, func() ([]byte, error) { return dashboardJSON(rng, rows, recent, w.now().UTC()) }},
	}
	for _, f := range files {
		data, err := f.data()
		if err != nil {
			return fmt.Errorf("render %s: %w", f.name, err)
		}
		path := filepath.Join(w.dir, f.name)
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", f.name, err)
		}
		w.log.Debug("report file written", "file", f.name, "bytes", len(data))
	}
	w.log.Info("report written", "dir", w.dir, "files", len(files), "days", len(rows), "posts", len(posts))
	return nil
}

func timelineCSV(rows []models.TimelineRow) ([]byte, error) {
	header := []string{
		"date", "order_count", "total_revenue", "avg_order_value",
		"sessions", "users", "page_views", "avg_session_duration",
		"shopify_sessions", "source_breakdown", "top_countries",
		"influencer_posts", "influencer_details",
		"campaign_events", "campaign_details", "has_marketing_event",
		"revenue_7day_avg", "traffic_7day_avg",
		"revenue_change_pct", "traffic_change_pct",
		"post_event_revenue_avg", "post_event_traffic_avg",
	}
	return writeCSV(header, len(rows), func(i int) []string {
		rec := rows[i].Record()
		return []string{
			rec.Date,
			strconv.Itoa(rec.OrderCount),
			money(rec.TotalRevenue),
			money(rec.AvgOrderValue),
			strconv.Itoa(rec.Sessions),
			strconv.Itoa(rec.Users),
			strconv.Itoa(rec.PageViews),
			money(rec.AvgSessionDuration),
			strconv.Itoa(rec.ShopifySessions),
			rec.SourceBreakdown,
			rec.TopCountries,
			strconv.Itoa(rec.InfluencerPosts),
			rec.InfluencerDetails,
			strconv.Itoa(rec.CampaignEvents),
			rec.CampaignDetails,
			strconv.FormatBool(rec.HasMarketingEvent),
			money(rec.Revenue7DayAvg),
			money(rec.Traffic7DayAvg),
			money(rec.RevenueChangePct),
			money(rec.TrafficChangePct),
			money(rec.PostEventRevenueAvg),
			money(rec.PostEventTrafficAvg),
		}
	})
}

func postsCSV(posts []models.AnnotatedPost) ([]byte, error) {
	header := []string{
		"date", "platform", "influencer", "post_url",
		"views", "reach", "impressions",
		"likes", "comments", "shares", "saves", "engagement",
		"revenue_impact_7day", "traffic_impact_7day", "notes",
	}
	return writeCSV(header, len(posts), func(i int) []string {
		rec := posts[i].Record()
		return []string{
			rec.Date,
			rec.Platform,
			rec.Influencer,
			rec.PostURL,
			strconv.Itoa(rec.Views),
			strconv.Itoa(rec.Reach),
			strconv.Itoa(rec.Impressions),
			strconv.Itoa(rec.Likes),
			strconv.Itoa(rec.Comments),
			strconv.Itoa(rec.Shares),
			strconv.Itoa(rec.Saves),
			strconv.Itoa(rec.Engagement),
			money(rec.RevenueImpact),
			money(rec.TrafficImpact),
			rec.Notes,
		}
	})
}

func weeklyCSV(weeks []WeeklyActivity) ([]byte, error) {
	header := []string{
		"year", "week", "total_revenue", "sessions",
		"influencer_posts", "campaign_events", "activity_level",
	}
	return writeCSV(header, len(weeks), func(i int) []string {
		wk := weeks[i]
		return []string{
			strconv.Itoa(wk.Year),
			strconv.Itoa(wk.Week),
			money(wk.TotalRevenue),
			strconv.Itoa(wk.Sessions),
			strconv.Itoa(wk.InfluencerPosts),
			strconv.Itoa(wk.CampaignEvents),
			wk.ActivityLevel,
		}
	})
}

func trafficSourcesCSV(rows []models.TimelineRow) ([]byte, error) {
	header := []string{"date", "sessions", "source_breakdown"}
	return writeCSV(header, len(rows), func(i int) []string {
		row := rows[i]
		return []string{
			models.FormatDate(row.Date),
			strconv.Itoa(row.Sessions),
			row.SourceBreakdown,
		}
	})
}

func geographyCSV(rows []models.TimelineRow) ([]byte, error) {
	header := []string{"date", "shopify_sessions", "top_countries"}
	return writeCSV(header, len(rows), func(i int) []string {
		row := rows[i]
		return []string{
			models.FormatDate(row.Date),
			strconv.Itoa(row.ShopifySessions),
			row.TopCountries,
		}
	})
}

func summaryCSV(s Summary) ([]byte, error) {
	rows := [][2]string{
		{"Date Range", s.Start + " to " + s.End},
		{"Total Days", strconv.Itoa(s.TotalDays)},
		{"Total Revenue", money(s.TotalRevenue)},
		{"Average Daily Revenue", money(s.AvgDailyRevenue)},
		{"Total Orders", strconv.Itoa(s.TotalOrders)},
		{"Total Sessions", strconv.Itoa(s.TotalSessions)},
		{"Influencer Posts", strconv.Itoa(s.InfluencerPosts)},
		{"Campaign Events", strconv.Itoa(s.CampaignEvents)},
		{"Days with Marketing Activity", strconv.Itoa(s.DaysWithActivity)},
	}
	return writeCSV([]string{"metric", "value"}, len(rows), func(i int) []string {
		return []string{rows[i][0], rows[i][1]}
	})
}

func writeCSV(header []string, n int, row func(i int) []string) ([]byte, error) {
	var buf bytes.Buffer
	cw := csv.NewWriter(&buf)
	if err := cw.Write(header); err != nil {
		return nil, err
	}
	for i := 0; i < n; i++ {
		if err := cw.Write(row(i)); err != nil {
			return nil, err
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// money renders a float with two decimals, the format every monetary and
// rate column uses.
func money(v float64) string { return strconv.FormatFloat(v, 'f', 2, 64) }

// Dashboard is the JSON payload the static dashboard site loads. Field
// names are camelCase because the consumer is JavaScript.
type Dashboard struct {
	DateRange   DashboardRange   `json:"dateRange"`
	Summary     DashboardSummary `json:"summary"`
	Timeline    []DashboardDay   `json:"timeline"`
	SocialPosts []DashboardPost  `json:"socialPosts"`
	WeeklyData  []DashboardWeek  `json:"weeklyData"`
}

type DashboardRange struct {
	Start       string `json:"start"`
	End         string `json:"end"`
	LastUpdated string `json:"lastUpdated"`
}

type DashboardSummary struct {
	TotalRevenue    float64 `json:"totalRevenue"`
	TotalOrders     int     `json:"totalOrders"`
	TotalVisitors   int     `json:"totalVisitors"`
	TotalPosts      int     `json:"totalPosts"`
	TotalCampaigns  int     `json:"totalCampaigns"`
	RevenueChange   float64 `json:"revenueChange"`
	OrdersChange    float64 `json:"ordersChange"`
	VisitorsChange  float64 `json:"visitorsChange"`
	PostsLast30Days int     `json:"postsLast30Days"`
}

type DashboardDay struct {
	Date      string  `json:"date"`
	Revenue   float64 `json:"revenue"`
	Orders    int     `json:"orders"`
	Sessions  int     `json:"sessions"`
	Visitors  int     `json:"visitors"`
	PageViews int     `json:"pageViews"`
	Posts     int     `json:"posts"`
	Campaigns int     `json:"campaigns"`
	HasEvent  bool    `json:"hasEvent"`
}

type DashboardPost struct {
	Date          string  `json:"date"`
	Platform      string  `json:"platform"`
	Influencer    string  `json:"influencer"`
	PostURL       string  `json:"postUrl"`
	Views         int     `json:"views"`
	Reach         int     `json:"reach"`
	Impressions   int     `json:"impressions"`
	Likes         int     `json:"likes"`
	Comments      int     `json:"comments"`
	Shares        int     `json:"shares"`
	Saves         int     `json:"saves"`
	Engagement    int     `json:"engagement"`
	RevenueImpact float64 `json:"revenueImpact"`
	TrafficImpact int     `json:"trafficImpact"`
}

type DashboardWeek struct {
	Year          int     `json:"year"`
	Week          int     `json:"week"`
	Revenue       float64 `json:"revenue"`
	Sessions      int     `json:"sessions"`
	Posts         int     `json:"posts"`
	Campaigns     int     `json:"campaigns"`
	ActivityLevel string  `json:"activityLevel"`
}

// dashboardPostLimit caps the per-post list in the dashboard payload; the
// site only renders the most recent posts.
const dashboardPostLimit = 50

// BuildDashboard assembles the dashboard payload from one run. posts must
// already be newest first.
func BuildDashboard(rng models.DateRange, rows []models.TimelineRow, posts []models.AnnotatedPost, now time.Time) Dashboard {
	s := Summarize(rng, rows)
	d := Dashboard{
		DateRange: DashboardRange{
			Start:       s.Start,
			End:         s.End,
			LastUpdated: now.Format(time.RFC3339),
		},
		Summary: DashboardSummary{
			TotalRevenue:    round2(s.TotalRevenue),
			TotalOrders:     s.TotalOrders,
			TotalVisitors:   s.TotalUsers,
			TotalPosts:      s.InfluencerPosts,
			TotalCampaigns:  s.CampaignEvents,
			RevenueChange:   periodChange(rows, func(r models.TimelineRow) float64 { return r.TotalRevenue }),
			OrdersChange:    periodChange(rows, func(r models.TimelineRow) float64 { return float64(r.OrderCount) }),
			VisitorsChange:  periodChange(rows, func(r models.TimelineRow) float64 { return float64(r.Users) }),
			PostsLast30Days: s.PostsLast30Days,
		},
		Timeline:    make([]DashboardDay, 0, len(rows)),
		SocialPosts: make([]DashboardPost, 0, min(len(posts), dashboardPostLimit)),
		WeeklyData:  make([]DashboardWeek, 0),
	}
	for _, row := range rows {
		d.Timeline = append(d.Timeline, DashboardDay{
			Date:      models.FormatDate(row.Date),
			Revenue:   row.TotalRevenue,
			Orders:    row.OrderCount,
			Sessions:  row.Sessions,
			Visitors:  row.Users,
			PageViews: row.PageViews,
			Posts:     row.InfluencerPosts,
			Campaigns: row.CampaignEvents,
			HasEvent:  row.HasMarketingEvent,
		})
	}
	for _, p := range posts {
		if len(d.SocialPosts) == dashboardPostLimit {
			break
		}
		d.SocialPosts = append(d.SocialPosts, DashboardPost{
			Date:          models.FormatDate(p.Date),
			Platform:      p.Platform,
			Influencer:    p.Influencer,
			PostURL:       p.PostURL,
			Views:         p.Views,
			Reach:         p.Reach,
			Impressions:   p.Impressions,
			Likes:         p.Likes,
			Comments:      p.Comments,
			Shares:        p.Shares,
			Saves:         p.Saves,
			Engagement:    p.TotalEngagement(),
			RevenueImpact: p.RevenueImpact,
			TrafficImpact: int(math.Round(p.TrafficImpact)),
		})
	}
	for _, wk := range WeeklyRollup(rows) {
		d.WeeklyData = append(d.WeeklyData, DashboardWeek{
			Year:          wk.Year,
			Week:          wk.Week,
			Revenue:       round2(wk.TotalRevenue),
			Sessions:      wk.Sessions,
			Posts:         wk.InfluencerPosts,
			Campaigns:     wk.CampaignEvents,
			ActivityLevel: wk.ActivityLevel,
		})
	}
	return d
}

func dashboardJSON(rng models.DateRange, rows []models.TimelineRow, posts []models.AnnotatedPost, now time.Time) ([]byte, error) {
	return json.MarshalIndent(BuildDashboard(rng, rows, posts, now), "", "  ")
}

// periodChange compares the last 30 days against the 30 before them and
// returns the percent change, 0 when the baseline is empty or zero.
func periodChange(rows []models.TimelineRow, metric func(models.TimelineRow) float64) float64 {
	const period = 30
	if len(rows) < 2*period {
		return 0
	}
	var cur, prev float64
	for _, row := range rows[len(rows)-period:] {
		cur += metric(row)
	}
	for _, row := range rows[len(rows)-2*period : len(rows)-period] {
		prev += metric(row)
	}
	if prev == 0 {
		return 0
	}
	return round2((cur - prev) / prev * 100)
}

func round2(f float64) float64 { return math.Round(f*100) / 100 }
