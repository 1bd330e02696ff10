package models

import "time"

// TimelineRow is one day of the merged feed: the joined daily metrics plus
// event aggregates and the correlation annotations. The full set is a dense,
// ascending, gap-free cover of the requested range and is rebuilt from
// scratch on every run.
type TimelineRow struct {
	DailyMetric

	InfluencerPosts   int
	InfluencerDetails string
	CampaignEvents    int
	CampaignDetails   string
	HasMarketingEvent bool

	// Annotations; pure functions of the base fields above.
	RevenueRollingAvg   float64
	TrafficRollingAvg   float64
	RevenueChangePct    float64
	TrafficChangePct    float64
	PostEventRevenueAvg float64
	PostEventTrafficAvg float64
}

// TimelineRecord is the wire form of a TimelineRow.
type TimelineRecord struct {
	Date                string  `json:"date"`
	OrderCount          int     `json:"order_count"`
	TotalRevenue        float64 `json:"total_revenue"`
	AvgOrderValue       float64 `json:"avg_order_value"`
	Sessions            int     `json:"sessions"`
	Users               int     `json:"users"`
	PageViews           int     `json:"page_views"`
	AvgSessionDuration  float64 `json:"avg_session_duration"`
	ShopifySessions     int     `json:"shopify_sessions"`
	SourceBreakdown     string  `json:"source_breakdown,omitempty"`
	TopCountries        string  `json:"top_countries,omitempty"`
	InfluencerPosts     int     `json:"influencer_posts"`
	InfluencerDetails   string  `json:"influencer_details"`
	CampaignEvents      int     `json:"campaign_events"`
	CampaignDetails     string  `json:"campaign_details"`
	HasMarketingEvent   bool    `json:"has_marketing_event"`
	Revenue7DayAvg      float64 `json:"revenue_7day_avg"`
	Traffic7DayAvg      float64 `json:"traffic_7day_avg"`
	RevenueChangePct    float64 `json:"revenue_change_pct"`
	TrafficChangePct    float64 `json:"traffic_change_pct"`
	PostEventRevenueAvg float64 `json:"post_event_revenue_avg"`
	PostEventTrafficAvg float64 `json:"post_event_traffic_avg"`
}

// Record converts the row to its wire form.
func (r TimelineRow) Record() TimelineRecord {
	return TimelineRecord{
		Date:                FormatDate(r.Date),
		OrderCount:          r.OrderCount,
		TotalRevenue:        r.TotalRevenue,
		AvgOrderValue:       r.AvgOrderValue,
		Sessions:            r.Sessions,
		Users:               r.Users,
		PageViews:           r.PageViews,
		AvgSessionDuration:  r.AvgSessionDuration,
		ShopifySessions:     r.ShopifySessions,
		SourceBreakdown:     r.SourceBreakdown,
		TopCountries:        r.TopCountries,
		InfluencerPosts:     r.InfluencerPosts,
		InfluencerDetails:   r.InfluencerDetails,
		CampaignEvents:      r.CampaignEvents,
		CampaignDetails:     r.CampaignDetails,
		HasMarketingEvent:   r.HasMarketingEvent,
		Revenue7DayAvg:      r.RevenueRollingAvg,
		Traffic7DayAvg:      r.TrafficRollingAvg,
		RevenueChangePct:    r.RevenueChangePct,
		TrafficChangePct:    r.TrafficChangePct,
		PostEventRevenueAvg: r.PostEventRevenueAvg,
		PostEventTrafficAvg: r.PostEventTrafficAvg,
	}
}

// AnnotatedPost is a social post with the impact annotations copied from its
// event day's timeline row, for the flat per-post report view.
type AnnotatedPost struct {
	SocialPostEvent

	RevenueImpact float64
	TrafficImpact float64
}

// PostRecord is the wire form of an AnnotatedPost.
type PostRecord struct {
	Date          string  `json:"date"`
	Platform      string  `json:"platform"`
	Influencer    string  `json:"influencer"`
	PostURL       string  `json:"post_url"`
	Views         int     `json:"views"`
	Reach         int     `json:"reach"`
	Impressions   int     `json:"impressions"`
	Likes         int     `json:"likes"`
	Comments      int     `json:"comments"`
	Shares        int     `json:"shares"`
	Saves         int     `json:"saves"`
	Engagement    int     `json:"engagement"`
	Notes         string  `json:"notes,omitempty"`
	RevenueImpact float64 `json:"revenue_impact_7day"`
	TrafficImpact float64 `json:"traffic_impact_7day"`
}

// Record converts the post to its wire form.
func (p AnnotatedPost) Record() PostRecord {
	return PostRecord{
		Date:          FormatDate(p.Date),
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
		Notes:         p.Notes,
		RevenueImpact: p.RevenueImpact,
		TrafficImpact: p.TrafficImpact,
	}
}

// CampaignRecord is the wire form of a CampaignEvent.
type CampaignRecord struct {
	Date         string  `json:"date"`
	Platform     string  `json:"platform"`
	CampaignName string  `json:"campaign_name"`
	EventType    string  `json:"event_type"`
	Budget       float64 `json:"budget"`
	Notes        string  `json:"notes,omitempty"`
}

// Record converts the event to its wire form.
func (c CampaignEvent) Record() CampaignRecord {
	return CampaignRecord{
		Date:         FormatDate(c.Date),
		Platform:     c.Platform,
		CampaignName: c.CampaignName,
		EventType:    c.EventType,
		Budget:       c.Budget,
		Notes:        c.Notes,
	}
}

// CategoryTally counts records through one category's normalize pass so an
// operator can tell "zero because disconnected" from "zero because quiet".
type CategoryTally struct {
	Fetched           int `json:"fetched"`
	Kept              int `json:"kept"`
	DroppedDuplicate  int `json:"dropped_duplicate"`
	DroppedMalformed  int `json:"dropped_malformed"`
	DroppedOutOfRange int `json:"dropped_out_of_range"`
}

// Add folds another tally into t.
func (t *CategoryTally) Add(o CategoryTally) {
	t.Fetched += o.Fetched
	t.Kept += o.Kept
	t.DroppedDuplicate += o.DroppedDuplicate
	t.DroppedMalformed += o.DroppedMalformed
	t.DroppedOutOfRange += o.DroppedOutOfRange
}

// RunReport describes one feed generation end to end.
type RunReport struct {
	RunID       string                   `json:"run_id"`
	Start       string                   `json:"start"`
	End         string                   `json:"end"`
	Days        int                      `json:"days"`
	Categories  map[string]CategoryTally `json:"categories"`
	GeneratedAt time.Time                `json:"generated_at"`
	DurationMS  int64                    `json:"duration_ms"`
}
