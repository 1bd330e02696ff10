package models

import (
	"fmt"
	"time"
)

// Platform names as they appear in reports. Manual entries keep whatever
// platform string the operator typed, so these are defaults, not a closed set.
const (
	PlatformInstagram = "Instagram"
	PlatformTikTok    = "TikTok"
	PlatformPinterest = "Pinterest"
	PlatformMetaAds   = "Meta Ads"
	PlatformGoogleAds = "Google Ads"
	PlatformManual    = "Manual"
)

// Record categories used for run tallies and log attrs.
const (
	CategorySales     = "sales"
	CategoryTraffic   = "traffic"
	CategoryPosts     = "social_posts"
	CategoryCampaigns = "campaign_events"
)

// Campaign event types.
const (
	EventLaunch         = "launch"
	EventUpdate         = "update"
	EventCreativeChange = "creative_change"
	EventBudgetChange   = "budget_change"
	EventPause          = "pause"
	EventResume         = "resume"
)

var campaignEventTypes = map[string]struct{}{
	EventLaunch:         {},
	EventUpdate:         {},
	EventCreativeChange: {},
	EventBudgetChange:   {},
	EventPause:          {},
	EventResume:         {},
}

// ValidEventType reports whether s is one of the known campaign event types.
func ValidEventType(s string) bool {
	_, ok := campaignEventTypes[s]
	return ok
}

// Day truncates t to midnight UTC. All dates in the pipeline are canonical
// calendar days; time-of-day and zone information never survives ingestion.
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD wire date into a canonical day.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, err
	}
	return Day(t), nil
}

// FormatDate renders a canonical day back to its wire form.
func FormatDate(t time.Time) string { return t.UTC().Format("2006-01-02") }

// DateRange is an inclusive calendar-day span.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// NewDateRange normalizes both bounds to canonical days.
func NewDateRange(start, end time.Time) DateRange {
	return DateRange{Start: Day(start), End: Day(end)}
}

// LookbackRange returns the range ending today (UTC) covering days calendar days.
func LookbackRange(now time.Time, days int) DateRange {
	end := Day(now)
	return DateRange{Start: end.AddDate(0, 0, -(days - 1)), End: end}
}

// Valid reports whether the range is well formed (start <= end).
func (r DateRange) Valid() bool { return !r.Start.After(r.End) }

// Days returns the number of calendar days in the inclusive range.
func (r DateRange) Days() int {
	return int(r.End.Sub(r.Start).Hours()/24) + 1
}

// Contains reports whether day t falls inside the range.
func (r DateRange) Contains(t time.Time) bool {
	d := Day(t)
	return !d.Before(r.Start) && !d.After(r.End)
}

func (r DateRange) String() string {
	return FormatDate(r.Start) + ".." + FormatDate(r.End)
}

// DailyMetric is one day of merged sales and traffic numbers. Adapters
// populate only the fields their source owns; the timeline builder joins
// them under the per-field merge policy. Zero values mean "no activity
// reported", which is a valid observation, not an error.
type DailyMetric struct {
	Date               time.Time
	OrderCount         int
	TotalRevenue       float64
	AvgOrderValue      float64
	Sessions           int
	Users              int
	PageViews          int
	AvgSessionDuration float64

	// Secondary traffic source fields. Shopify session counts are kept
	// under their own name and never folded into Sessions (GA is the
	// primary session source when both report).
	ShopifySessions int
	SourceBreakdown string
	TopCountries    string
}

// SocialPostEvent is one influencer or owned social post. Identity for
// deduplication is (Date, PostURL).
type SocialPostEvent struct {
	Date        time.Time
	Platform    string
	Influencer  string
	PostURL     string
	Views       int
	Reach       int
	Impressions int
	Likes       int
	Comments    int
	Shares      int
	Saves       int
	Engagement  int
	Notes       string
}

// Describe renders the short detail-string form used in timeline rows.
func (p SocialPostEvent) Describe() string {
	return fmt.Sprintf("%s (%s)", p.Influencer, p.Platform)
}

// TotalEngagement returns the explicit engagement count when the platform
// supplied one, otherwise the sum of the interaction counters.
func (p SocialPostEvent) TotalEngagement() int {
	if p.Engagement > 0 {
		return p.Engagement
	}
	return p.Likes + p.Comments + p.Shares + p.Saves
}

// CampaignEvent is one ad-campaign lifecycle event. Identity for
// deduplication is (Date, CampaignName, EventType).
type CampaignEvent struct {
	Date         time.Time
	Platform     string
	CampaignName string
	EventType    string
	Budget       float64
	Notes        string
}

// Describe renders the short detail-string form used in timeline rows.
func (c CampaignEvent) Describe() string {
	return fmt.Sprintf("%s - %s", c.CampaignName, c.EventType)
}
