package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mdrnmngl/marketing-feed-analytics/internal/models"
)

const (
	shopifyOrdersAPIVersion    = "2024-10"
	shopifyAnalyticsAPIVersion = "2024-01"
	shopifyPageSize            = 250
)

// ShopifySales aggregates the store's orders into per-day sales metrics.
// Revenue is summed as decimals; float drift across a year of orders is
// visible money.
type ShopifySales struct {
	c       *Client
	log     *slog.Logger
	baseURL string
	token   string
}

func NewShopifySales(c *Client, creds Credentials, log *slog.Logger) *ShopifySales {
	s := &ShopifySales{c: c, log: log, token: creds["ADMIN_API_TOKEN"]}
	if domain := creds["SHOP_DOMAIN"]; domain != "" {
		s.baseURL = fmt.Sprintf("https://%s/admin/api/%s", domain, shopifyOrdersAPIVersion)
	}
	return s
}

func (s *ShopifySales) Name() string { return "shopify_sales" }

type shopifyOrdersPage struct {
	Orders []struct {
		ID         int64  `json:"id"`
		CreatedAt  string `json:"created_at"`
		TotalPrice string `json:"total_price"`
	} `json:"orders"`
}

func (s *ShopifySales) Daily(ctx context.Context, rng models.DateRange) ([]models.DailyMetric, error) {
	if s.baseURL == "" || s.token == "" {
		return nil, ErrNotConfigured
	}
	hdr := map[string]string{"X-Shopify-Access-Token": s.token}

	counts := make(map[time.Time]int)
	revenue := make(map[time.Time]decimal.Decimal)

	sinceID := int64(0)
	for {
		q := url.Values{
			"status":         {"any"},
			"limit":          {fmt.Sprint(shopifyPageSize)},
			"fields":         {"id,created_at,total_price"},
			"created_at_min": {rng.Start.Format(time.RFC3339)},
			"created_at_max": {rng.End.AddDate(0, 0, 1).Format(time.RFC3339)},
		}
		if sinceID > 0 {
			q.Set("since_id", fmt.Sprint(sinceID))
		}
		var page shopifyOrdersPage
		if err := s.c.getJSON(ctx, s.baseURL+"/orders.json?"+q.Encode(), hdr, &page); err != nil {
			return nil, err
		}
		for _, o := range page.Orders {
			if o.ID > sinceID {
				sinceID = o.ID
			}
			ts, err := time.Parse(time.RFC3339, o.CreatedAt)
			if err != nil {
				continue
			}
			d := models.Day(ts)
			if !rng.Contains(d) {
				continue
			}
			counts[d]++
			price, err := decimal.NewFromString(o.TotalPrice)
			if err != nil {
				s.log.Warn("shopify order with bad total_price",
					slog.Int64("order_id", o.ID), slog.String("total_price", o.TotalPrice))
				continue
			}
			revenue[d] = revenue[d].Add(price)
		}
		if len(page.Orders) < shopifyPageSize {
			break
		}
	}

	days := make([]time.Time, 0, len(counts))
	for d := range counts {
		days = append(days, d)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })

	out := make([]models.DailyMetric, 0, len(days))
	for _, d := range days {
		rev := revenue[d]
		total, _ := rev.Round(2).Float64()
		aov, _ := rev.Div(decimal.NewFromInt(int64(counts[d]))).Round(2).Float64()
		out = append(out, models.DailyMetric{
			Date:          d,
			OrderCount:    counts[d],
			TotalRevenue:  total,
			AvgOrderValue: aov,
		})
	}
	return out, nil
}

// ShopifyTraffic pulls storefront session analytics through the Admin
// GraphQL ShopifyQL surface: per-day sessions plus referrer-source and
// country breakdowns rendered as top-5 strings.
type ShopifyTraffic struct {
	c       *Client
	log     *slog.Logger
	baseURL string
	token   string
}

func NewShopifyTraffic(c *Client, creds Credentials, log *slog.Logger) *ShopifyTraffic {
	s := &ShopifyTraffic{c: c, log: log, token: creds["ADMIN_API_TOKEN"]}
	if domain := creds["SHOP_DOMAIN"]; domain != "" {
		s.baseURL = fmt.Sprintf("https://%s/admin/api/%s", domain, shopifyAnalyticsAPIVersion)
	}
	return s
}

func (s *ShopifyTraffic) Name() string { return "shopify_traffic" }

type shopifyQLResp struct {
	Data struct {
		ShopifyqlQuery struct {
			TableData struct {
				Columns []struct {
					Name string `json:"name"`
				} `json:"columns"`
				RowData [][]string `json:"rowData"`
			} `json:"tableData"`
		} `json:"shopifyqlQuery"`
	} `json:"data"`
}

func (s *ShopifyTraffic) Daily(ctx context.Context, rng models.DateRange) ([]models.DailyMetric, error) {
	if s.baseURL == "" || s.token == "" {
		return nil, ErrNotConfigured
	}

	rows, err := s.query(ctx, fmt.Sprintf(
		"FROM sessions SHOW sessions, online_store_visitors, page_views BY day SINCE %s UNTIL %s ORDER BY day",
		models.FormatDate(rng.Start), models.FormatDate(rng.End)))
	if err != nil {
		return nil, err
	}

	byDay := make(map[time.Time]*models.DailyMetric)
	var order []time.Time
	for _, row := range rows {
		d, err := models.ParseDate(row.key)
		if err != nil {
			continue
		}
		if len(row.values) < 3 {
			continue
		}
		byDay[d] = &models.DailyMetric{
			Date:      d,
			Sessions:  atoi(row.values[0]),
			Users:     atoi(row.values[1]),
			PageViews: atoi(row.values[2]),
		}
		order = append(order, d)
	}

	sources, err := s.breakdown(ctx, rng, "referrer_source")
	if err != nil {
		s.log.Warn("shopify referrer breakdown unavailable", slog.String("error", err.Error()))
	}
	countries, err := s.breakdown(ctx, rng, "country")
	if err != nil {
		s.log.Warn("shopify country breakdown unavailable", slog.String("error", err.Error()))
	}
	for d, m := range byDay {
		m.SourceBreakdown = sources[d]
		m.TopCountries = countries[d]
	}

	sort.Slice(order, func(i, j int) bool { return order[i].Before(order[j]) })
	out := make([]models.DailyMetric, 0, len(order))
	for _, d := range order {
		out = append(out, *byDay[d])
	}
	return out, nil
}

type qlRow struct {
	key    string
	values []string
}

func (s *ShopifyTraffic) query(ctx context.Context, ql string) ([]qlRow, error) {
	gql := fmt.Sprintf(`{ shopifyqlQuery(query: %q) { ... on TableResponse { tableData { columns { name } rowData } } } }`, ql)
	var resp shopifyQLResp
	err := s.c.postJSON(ctx, s.baseURL+"/graphql.json",
		map[string]string{"X-Shopify-Access-Token": s.token},
		map[string]string{"query": gql},
		&resp)
	if err != nil {
		return nil, err
	}
	rows := make([]qlRow, 0, len(resp.Data.ShopifyqlQuery.TableData.RowData))
	for _, raw := range resp.Data.ShopifyqlQuery.TableData.RowData {
		if len(raw) == 0 {
			continue
		}
		rows = append(rows, qlRow{key: raw[0], values: raw[1:]})
	}
	return rows, nil
}

// breakdown renders per-day "name: sessions" pairs for one dimension,
// descending by sessions, capped at five.
func (s *ShopifyTraffic) breakdown(ctx context.Context, rng models.DateRange, dimension string) (map[time.Time]string, error) {
	rows, err := s.query(ctx, fmt.Sprintf(
		"FROM sessions SHOW sessions BY day, %s SINCE %s UNTIL %s",
		dimension, models.FormatDate(rng.Start), models.FormatDate(rng.End)))
	if err != nil {
		return nil, err
	}

	type entry struct {
		name     string
		sessions int
	}
	byDay := make(map[time.Time][]entry)
	for _, row := range rows {
		d, err := models.ParseDate(row.key)
		if err != nil || len(row.values) < 2 {
			continue
		}
		byDay[d] = append(byDay[d], entry{name: row.values[0], sessions: atoi(row.values[1])})
	}

	out := make(map[time.Time]string, len(byDay))
	for d, entries := range byDay {
		sort.SliceStable(entries, func(i, j int) bool { return entries[i].sessions > entries[j].sessions })
		if len(entries) > 5 {
			entries = entries[:5]
		}
		parts := make([]string, 0, len(entries))
		for _, e := range entries {
			parts = append(parts, fmt.Sprintf("%s: %d", e.name, e.sessions))
		}
		out[d] = strings.Join(parts, ", ")
	}
	return out, nil
}
