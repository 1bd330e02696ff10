package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/shopspring/decimal"

	"github.com/mdrnmngl/marketing-feed-analytics/internal/models"
)

// MetaAds derives campaign lifecycle events from the ad account: a launch
// per campaign created in range, an update when a campaign changed on a
// later day, and a creative_change per ad added in range.
type MetaAds struct {
	c         *Client
	log       *slog.Logger
	baseURL   string
	token     string
	accountID string
}

func NewMetaAds(c *Client, creds Credentials, log *slog.Logger) *MetaAds {
	return &MetaAds{
		c:         c,
		log:       log,
		baseURL:   graphBaseURL,
		token:     creds["META_ACCESS_TOKEN"],
		accountID: creds["META_AD_ACCOUNT_ID"],
	}
}

func (m *MetaAds) Name() string { return "meta_ads" }

type metaCampaignPage struct {
	Data []struct {
		Name           string `json:"name"`
		Status         string `json:"status"`
		CreatedTime    string `json:"created_time"`
		UpdatedTime    string `json:"updated_time"`
		DailyBudget    string `json:"daily_budget"`
		LifetimeBudget string `json:"lifetime_budget"`
		Objective      string `json:"objective"`
	} `json:"data"`
}

type metaAdPage struct {
	Data []struct {
		Name        string `json:"name"`
		CreatedTime string `json:"created_time"`
		Creative    struct {
			Name string `json:"name"`
		} `json:"creative"`
	} `json:"data"`
}

func (m *MetaAds) Campaigns(ctx context.Context, rng models.DateRange) ([]models.CampaignEvent, error) {
	if m.token == "" || m.accountID == "" {
		return nil, ErrNotConfigured
	}

	events, err := m.campaignEvents(ctx, rng)
	if err != nil {
		return nil, err
	}
	creatives, err := m.creativeEvents(ctx, rng)
	if err != nil {
		m.log.Warn("meta ads creatives unavailable", slog.String("error", err.Error()))
		return events, nil
	}
	return append(events, creatives...), nil
}

func (m *MetaAds) campaignEvents(ctx context.Context, rng models.DateRange) ([]models.CampaignEvent, error) {
	timeRange, _ := json.Marshal(map[string]string{
		"since": models.FormatDate(rng.Start),
		"until": models.FormatDate(rng.End),
	})
	u := fmt.Sprintf("%s/%s/campaigns?%s", m.baseURL, m.accountID, url.Values{
		"fields":       {"id,name,status,created_time,updated_time,daily_budget,lifetime_budget,objective"},
		"access_token": {m.token},
		"time_range":   {string(timeRange)},
	}.Encode())

	var page metaCampaignPage
	if err := m.c.getJSON(ctx, u, nil, &page); err != nil {
		return nil, err
	}

	var out []models.CampaignEvent
	for _, c := range page.Data {
		created, errC := parseGraphTime(c.CreatedTime)
		updated, errU := parseGraphTime(c.UpdatedTime)

		if errC == nil && rng.Contains(created) {
			budget := c.DailyBudget
			if budget == "" {
				budget = c.LifetimeBudget
			}
			out = append(out, models.CampaignEvent{
				Date:         models.Day(created),
				Platform:     models.PlatformMetaAds,
				CampaignName: c.Name,
				EventType:    models.EventLaunch,
				Budget:       centsToAmount(budget),
				Notes:        "Objective: " + orNA(c.Objective),
			})
		}
		if errC == nil && errU == nil && rng.Contains(updated) && !models.Day(updated).Equal(models.Day(created)) {
			out = append(out, models.CampaignEvent{
				Date:         models.Day(updated),
				Platform:     models.PlatformMetaAds,
				CampaignName: c.Name,
				EventType:    models.EventUpdate,
				Notes:        "Status: " + orNA(c.Status),
			})
		}
	}
	return out, nil
}

func (m *MetaAds) creativeEvents(ctx context.Context, rng models.DateRange) ([]models.CampaignEvent, error) {
	u := fmt.Sprintf("%s/%s/ads?%s", m.baseURL, m.accountID, url.Values{
		"fields":       {"id,name,created_time,creative{name,title,body}"},
		"access_token": {m.token},
		"limit":        {"100"},
	}.Encode())

	var page metaAdPage
	if err := m.c.getJSON(ctx, u, nil, &page); err != nil {
		return nil, err
	}

	var out []models.CampaignEvent
	for _, ad := range page.Data {
		created, err := parseGraphTime(ad.CreatedTime)
		if err != nil || !rng.Contains(created) {
			continue
		}
		name := ad.Creative.Name
		if name == "" {
			name = "Unnamed"
		}
		out = append(out, models.CampaignEvent{
			Date:         models.Day(created),
			Platform:     models.PlatformMetaAds,
			CampaignName: ad.Name,
			EventType:    models.EventCreativeChange,
			Notes:        "New creative: " + name,
		})
	}
	return out, nil
}

// centsToAmount converts a Graph API budget (a string of cents) to currency
// units. Malformed or absent budgets read as zero.
func centsToAmount(cents string) float64 {
	if cents == "" {
		return 0
	}
	d, err := decimal.NewFromString(cents)
	if err != nil {
		return 0
	}
	f, _ := d.Div(decimal.NewFromInt(100)).Round(2).Float64()
	return f
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}
