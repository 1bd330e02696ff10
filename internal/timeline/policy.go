package timeline

import (
	"fmt"
	"strings"

	"github.com/mdrnmngl/marketing-feed-analytics/internal/models"
)

// sourceID names a daily-metric source for the merge policy.
type sourceID string

const (
	sourceSales   sourceID = "shopify_sales"
	sourceGA      sourceID = "google_analytics"
	sourceShopify sourceID = "shopify_traffic"
)

var knownSources = map[sourceID]struct{}{
	sourceSales:   {},
	sourceGA:      {},
	sourceShopify: {},
}

// fieldRule declares, for one DailyMetric field, which sources may write it
// and in what precedence order. apply consults the per-day source rows (nil
// when a source has no row for that day) and writes exactly its own field;
// a missing source leaves the zero default in place.
type fieldRule struct {
	field   string
	sources []sourceID
	apply   func(dst *models.DailyMetric, have map[sourceID]*models.DailyMetric)
}

func first(have map[sourceID]*models.DailyMetric, order ...sourceID) *models.DailyMetric {
	for _, s := range order {
		if have[s] != nil {
			return have[s]
		}
	}
	return nil
}

// mergePolicy is the single place that decides which source owns which
// timeline field. Sales numbers come from Shopify orders alone. Session
// counts use Google Analytics as the primary source; the Shopify storefront
// count survives under its own shopify_sessions field rather than being
// overwritten or summed. Users and page views fall back to Shopify only when
// GA reported nothing that day. The source breakdown string is the one field
// with a combinator: when both traffic sources report, both are named.
var mergePolicy = []fieldRule{
	{"order_count", []sourceID{sourceSales}, func(dst *models.DailyMetric, have map[sourceID]*models.DailyMetric) {
		if s := have[sourceSales]; s != nil {
			dst.OrderCount = s.OrderCount
		}
	}},
	{"total_revenue", []sourceID{sourceSales}, func(dst *models.DailyMetric, have map[sourceID]*models.DailyMetric) {
		if s := have[sourceSales]; s != nil {
			dst.TotalRevenue = s.TotalRevenue
		}
	}},
	{"avg_order_value", []sourceID{sourceSales}, func(dst *models.DailyMetric, have map[sourceID]*models.DailyMetric) {
		if s := have[sourceSales]; s != nil {
			dst.AvgOrderValue = s.AvgOrderValue
		}
	}},
	{"sessions", []sourceID{sourceGA}, func(dst *models.DailyMetric, have map[sourceID]*models.DailyMetric) {
		if s := have[sourceGA]; s != nil {
			dst.Sessions = s.Sessions
		}
	}},
	{"users", []sourceID{sourceGA, sourceShopify}, func(dst *models.DailyMetric, have map[sourceID]*models.DailyMetric) {
		if s := first(have, sourceGA, sourceShopify); s != nil {
			dst.Users = s.Users
		}
	}},
	{"page_views", []sourceID{sourceGA, sourceShopify}, func(dst *models.DailyMetric, have map[sourceID]*models.DailyMetric) {
		if s := first(have, sourceGA, sourceShopify); s != nil {
			dst.PageViews = s.PageViews
		}
	}},
	{"avg_session_duration", []sourceID{sourceGA}, func(dst *models.DailyMetric, have map[sourceID]*models.DailyMetric) {
		if s := have[sourceGA]; s != nil {
			dst.AvgSessionDuration = s.AvgSessionDuration
		}
	}},
	{"shopify_sessions", []sourceID{sourceShopify}, func(dst *models.DailyMetric, have map[sourceID]*models.DailyMetric) {
		if s := have[sourceShopify]; s != nil {
			dst.ShopifySessions = s.Sessions
		}
	}},
	{"source_breakdown", []sourceID{sourceGA, sourceShopify}, func(dst *models.DailyMetric, have map[sourceID]*models.DailyMetric) {
		ga, shop := have[sourceGA], have[sourceShopify]
		switch {
		case ga != nil && shop != nil && shop.SourceBreakdown != "":
			dst.SourceBreakdown = fmt.Sprintf("GA: %s; Shopify: %s", ga.SourceBreakdown, shop.SourceBreakdown)
		case ga != nil:
			dst.SourceBreakdown = ga.SourceBreakdown
		case shop != nil:
			dst.SourceBreakdown = shop.SourceBreakdown
		}
	}},
	{"top_countries", []sourceID{sourceShopify}, func(dst *models.DailyMetric, have map[sourceID]*models.DailyMetric) {
		if s := have[sourceShopify]; s != nil {
			dst.TopCountries = s.TopCountries
		}
	}},
}

// validatePolicy rejects a policy table with duplicate field owners or
// unknown sources. Failing here means a programming error in the table, and
// Build refuses to produce output from an ambiguous policy.
func validatePolicy() error {
	seen := make(map[string]struct{}, len(mergePolicy))
	for _, rule := range mergePolicy {
		name := strings.TrimSpace(rule.field)
		if name == "" {
			return fmt.Errorf("merge policy: rule with empty field name")
		}
		if _, dup := seen[name]; dup {
			return fmt.Errorf("merge policy: field %q has more than one rule", name)
		}
		seen[name] = struct{}{}
		if len(rule.sources) == 0 {
			return fmt.Errorf("merge policy: field %q declares no sources", name)
		}
		for _, s := range rule.sources {
			if _, ok := knownSources[s]; !ok {
				return fmt.Errorf("merge policy: field %q references unknown source %q", name, s)
			}
		}
		if rule.apply == nil {
			return fmt.Errorf("merge policy: field %q has no apply func", name)
		}
	}
	return nil
}
