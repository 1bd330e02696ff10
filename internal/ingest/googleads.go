package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/mdrnmngl/marketing-feed-analytics/internal/models"
)

const googleAdsBaseURL = "https://googleads.googleapis.com/v16"

// GoogleAds reports a launch event per campaign whose start date falls in
// range. Budgets arrive as micros and are converted to currency units.
type GoogleAds struct {
	c          *Client
	log        *slog.Logger
	baseURL    string
	customerID string
	devToken   string
	token      string
}

func NewGoogleAds(c *Client, creds Credentials, log *slog.Logger) *GoogleAds {
	return &GoogleAds{
		c:          c,
		log:        log,
		baseURL:    googleAdsBaseURL,
		customerID: strings.ReplaceAll(creds["GOOGLE_ADS_CUSTOMER_ID"], "-", ""),
		devToken:   creds["GOOGLE_ADS_DEVELOPER_TOKEN"],
		token:      creds["GOOGLE_ADS_ACCESS_TOKEN"],
	}
}

func (g *GoogleAds) Name() string { return "google_ads" }

type googleAdsSearchResp struct {
	Results []struct {
		Campaign struct {
			Name      string `json:"name"`
			Status    string `json:"status"`
			StartDate string `json:"startDate"`
		} `json:"campaign"`
		CampaignBudget struct {
			AmountMicros string `json:"amountMicros"`
		} `json:"campaignBudget"`
	} `json:"results"`
}

func (g *GoogleAds) Campaigns(ctx context.Context, rng models.DateRange) ([]models.CampaignEvent, error) {
	if g.customerID == "" || g.devToken == "" || g.token == "" {
		return nil, ErrNotConfigured
	}

	query := fmt.Sprintf(`SELECT campaign.id, campaign.name, campaign.status, campaign.start_date, campaign_budget.amount_micros
FROM campaign
WHERE campaign.start_date >= '%s' AND campaign.start_date <= '%s'
ORDER BY campaign.start_date DESC`,
		models.FormatDate(rng.Start), models.FormatDate(rng.End))

	var resp googleAdsSearchResp
	err := g.c.postJSON(ctx,
		fmt.Sprintf("%s/customers/%s/googleAds:search", g.baseURL, g.customerID),
		map[string]string{
			"Authorization":   "Bearer " + g.token,
			"developer-token": g.devToken,
		},
		map[string]string{"query": query},
		&resp)
	if err != nil {
		return nil, err
	}

	var out []models.CampaignEvent
	for _, r := range resp.Results {
		d, err := models.ParseDate(r.Campaign.StartDate)
		if err != nil {
			continue
		}
		out = append(out, models.CampaignEvent{
			Date:         d,
			Platform:     models.PlatformGoogleAds,
			CampaignName: r.Campaign.Name,
			EventType:    models.EventLaunch,
			Budget:       microsToAmount(r.CampaignBudget.AmountMicros),
			Notes:        "Status: " + orNA(r.Campaign.Status),
		})
	}
	return out, nil
}

// microsToAmount converts a micros string to currency units.
func microsToAmount(micros string) float64 {
	if micros == "" {
		return 0
	}
	d, err := decimal.NewFromString(micros)
	if err != nil {
		return 0
	}
	f, _ := d.Div(decimal.NewFromInt(1_000_000)).Round(2).Float64()
	return f
}
