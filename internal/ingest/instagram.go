package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/mdrnmngl/marketing-feed-analytics/internal/models"
)

const (
	graphBaseURL    = "https://graph.facebook.com/v18.0"
	defaultUsername = "modernmangal"

	igMediaFields  = "id,caption,media_type,media_url,permalink,timestamp,like_count,comments_count,insights.metric(reach,impressions,engagement,saved,video_views,shares)"
	igTaggedFields = "id,caption,media_type,permalink,timestamp,like_count,comments_count,username"
)

// Instagram pulls the brand account's own posts plus posts the account was
// tagged in. Owned posts come first in the returned set, so they win
// dedup ties against tagged duplicates of the same URL.
type Instagram struct {
	c         *Client
	log       *slog.Logger
	baseURL   string
	token     string
	accountID string
	username  string
}

func NewInstagram(c *Client, creds Credentials, log *slog.Logger) *Instagram {
	return &Instagram{
		c:         c,
		log:       log,
		baseURL:   graphBaseURL,
		token:     creds["INSTAGRAM_ACCESS_TOKEN"],
		accountID: creds["INSTAGRAM_ACCOUNT_ID"],
		username:  creds.Get("INSTAGRAM_USERNAME", defaultUsername),
	}
}

func (ig *Instagram) Name() string { return "instagram" }

type igInsight struct {
	Name   string `json:"name"`
	Values []struct {
		Value int `json:"value"`
	} `json:"values"`
}

type igMedia struct {
	ID            string `json:"id"`
	Caption       string `json:"caption"`
	MediaType     string `json:"media_type"`
	Permalink     string `json:"permalink"`
	Timestamp     string `json:"timestamp"`
	LikeCount     int    `json:"like_count"`
	CommentsCount int    `json:"comments_count"`
	Username      string `json:"username"`
	Insights      struct {
		Data []igInsight `json:"data"`
	} `json:"insights"`
}

type igPage struct {
	Data   []igMedia `json:"data"`
	Paging struct {
		Next string `json:"next"`
	} `json:"paging"`
}

func (ig *Instagram) Posts(ctx context.Context, rng models.DateRange) ([]models.SocialPostEvent, error) {
	if ig.token == "" || ig.accountID == "" {
		return nil, ErrNotConfigured
	}

	owned, err := ig.ownedPosts(ctx, rng)
	if err != nil {
		return nil, err
	}
	tagged, err := ig.taggedPosts(ctx, rng)
	if err != nil {
		// Tagged posts are best effort; the owned set is still worth keeping.
		ig.log.Warn("instagram tagged posts unavailable", slog.String("error", err.Error()))
		return owned, nil
	}
	return append(owned, tagged...), nil
}

func (ig *Instagram) ownedPosts(ctx context.Context, rng models.DateRange) ([]models.SocialPostEvent, error) {
	next := fmt.Sprintf("%s/%s/media?%s", ig.baseURL, ig.accountID, url.Values{
		"fields":       {igMediaFields},
		"access_token": {ig.token},
	}.Encode())

	var out []models.SocialPostEvent
	for next != "" {
		var page igPage
		if err := ig.c.getJSON(ctx, next, nil, &page); err != nil {
			return nil, err
		}
		for _, m := range page.Data {
			ts, err := parseGraphTime(m.Timestamp)
			if err != nil {
				continue
			}
			if !rng.Contains(ts) {
				continue
			}
			ins := collectInsights(m.Insights.Data)
			views := ins["impressions"]
			if m.MediaType == "VIDEO" {
				views = ins["video_views"]
			}
			engagement := ins["engagement"]
			if engagement == 0 {
				engagement = m.LikeCount + m.CommentsCount + ins["saved"] + ins["shares"]
			}
			out = append(out, models.SocialPostEvent{
				Date:        models.Day(ts),
				Platform:    models.PlatformInstagram,
				Influencer:  ig.username,
				PostURL:     m.Permalink,
				Views:       views,
				Reach:       ins["reach"],
				Impressions: ins["impressions"],
				Likes:       m.LikeCount,
				Comments:    m.CommentsCount,
				Shares:      ins["shares"],
				Saves:       ins["saved"],
				Engagement:  engagement,
				Notes:       truncate(m.Caption, 100),
			})
		}
		if page.Paging.Next == next {
			break
		}
		next = page.Paging.Next
	}
	return out, nil
}

func (ig *Instagram) taggedPosts(ctx context.Context, rng models.DateRange) ([]models.SocialPostEvent, error) {
	u := fmt.Sprintf("%s/%s/tags?%s", ig.baseURL, ig.accountID, url.Values{
		"fields":       {igTaggedFields},
		"access_token": {ig.token},
	}.Encode())

	var page igPage
	if err := ig.c.getJSON(ctx, u, nil, &page); err != nil {
		return nil, err
	}
	var out []models.SocialPostEvent
	for _, m := range page.Data {
		ts, err := parseGraphTime(m.Timestamp)
		if err != nil {
			continue
		}
		if !rng.Contains(ts) {
			continue
		}
		influencer := m.Username
		if influencer == "" {
			influencer = "Unknown"
		}
		out = append(out, models.SocialPostEvent{
			Date:       models.Day(ts),
			Platform:   models.PlatformInstagram,
			Influencer: influencer,
			PostURL:    m.Permalink,
			Likes:      m.LikeCount,
			Comments:   m.CommentsCount,
			Engagement: m.LikeCount + m.CommentsCount,
			Notes:      "Tagged post: " + truncate(m.Caption, 80),
		})
	}
	return out, nil
}

func collectInsights(in []igInsight) map[string]int {
	out := make(map[string]int, len(in))
	for _, ins := range in {
		if len(ins.Values) > 0 {
			out[ins.Name] = ins.Values[0].Value
		}
	}
	return out
}

// parseGraphTime parses Graph API timestamps ("2026-03-01T18:04:05+0000").
func parseGraphTime(s string) (time.Time, error) {
	return time.Parse("2006-01-02T15:04:05-0700", s)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
