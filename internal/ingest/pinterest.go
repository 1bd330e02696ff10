package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/mdrnmngl/marketing-feed-analytics/internal/models"
)

const pinterestBaseURL = "https://api.pinterest.com/v5"

// Pinterest pulls the account's pins and, per pin, the analytics for the
// requested range. Pins without an outbound link use their canonical pin URL
// as identity so they still deduplicate cleanly.
type Pinterest struct {
	c        *Client
	log      *slog.Logger
	baseURL  string
	token    string
	username string
}

func NewPinterest(c *Client, creds Credentials, log *slog.Logger) *Pinterest {
	return &Pinterest{
		c:        c,
		log:      log,
		baseURL:  pinterestBaseURL,
		token:    creds["PINTEREST_ACCESS_TOKEN"],
		username: creds.Get("PINTEREST_USERNAME", defaultUsername),
	}
}

func (p *Pinterest) Name() string { return "pinterest" }

type pinPage struct {
	Items []struct {
		ID          string `json:"id"`
		CreatedAt   string `json:"created_at"`
		Link        string `json:"link"`
		Title       string `json:"title"`
		Description string `json:"description"`
	} `json:"items"`
	Bookmark string `json:"bookmark"`
}

type pinAnalyticsResp struct {
	All struct {
		DailyMetrics []struct {
			DataStatus map[string]string  `json:"data_status"`
			Metrics    map[string]float64 `json:"metrics"`
		} `json:"daily_metrics"`
	} `json:"all"`
}

func (p *Pinterest) Posts(ctx context.Context, rng models.DateRange) ([]models.SocialPostEvent, error) {
	if p.token == "" {
		return nil, ErrNotConfigured
	}
	hdr := map[string]string{"Authorization": "Bearer " + p.token}

	var out []models.SocialPostEvent
	bookmark := ""
	for {
		q := url.Values{"page_size": {"250"}}
		if bookmark != "" {
			q.Set("bookmark", bookmark)
		}
		var page pinPage
		if err := p.c.getJSON(ctx, p.baseURL+"/pins?"+q.Encode(), hdr, &page); err != nil {
			return nil, err
		}
		for _, pin := range page.Items {
			ts, err := time.Parse(time.RFC3339, pin.CreatedAt)
			if err != nil {
				continue
			}
			if !rng.Contains(ts) {
				continue
			}
			postURL := pin.Link
			if postURL == "" {
				postURL = fmt.Sprintf("https://www.pinterest.com/pin/%s/", pin.ID)
			}
			notes := pin.Title
			if notes == "" {
				notes = pin.Description
			}
			metrics := p.pinAnalytics(ctx, hdr, pin.ID, rng)
			out = append(out, models.SocialPostEvent{
				Date:        models.Day(ts),
				Platform:    models.PlatformPinterest,
				Influencer:  p.username,
				PostURL:     postURL,
				Impressions: metrics["IMPRESSION"],
				Saves:       metrics["SAVE"],
				Engagement:  metrics["ENGAGEMENT"],
				Notes:       truncate(notes, 100),
			})
		}
		if page.Bookmark == "" {
			break
		}
		bookmark = page.Bookmark
	}
	return out, nil
}

// pinAnalytics sums the READY daily metric values for one pin over the
// range. Analytics failures cost only that pin's numbers, never the pin.
func (p *Pinterest) pinAnalytics(ctx context.Context, hdr map[string]string, pinID string, rng models.DateRange) map[string]int {
	out := map[string]int{}
	q := url.Values{
		"start_date":   {models.FormatDate(rng.Start)},
		"end_date":     {models.FormatDate(rng.End)},
		"metric_types": {"IMPRESSION,OUTBOUND_CLICK,SAVE,ENGAGEMENT"},
	}
	var resp pinAnalyticsResp
	u := fmt.Sprintf("%s/pins/%s/analytics?%s", p.baseURL, pinID, q.Encode())
	if err := p.c.getJSON(ctx, u, hdr, &resp); err != nil {
		p.log.Debug("pinterest pin analytics unavailable",
			slog.String("pin_id", pinID), slog.String("error", err.Error()))
		return out
	}
	for _, day := range resp.All.DailyMetrics {
		for metric, status := range day.DataStatus {
			if status != "READY" {
				continue
			}
			out[metric] += int(day.Metrics[metric])
		}
	}
	return out
}
