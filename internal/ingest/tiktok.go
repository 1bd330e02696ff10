package ingest

import (
	"context"
	"log/slog"
	"time"

	"github.com/mdrnmngl/marketing-feed-analytics/internal/models"
)

const tiktokBaseURL = "https://business-api.tiktok.com/open_api/v1.3"

// TikTok pulls the brand account's videos through the Business API. TikTok
// reports no distinct reach metric, so reach mirrors play count.
type TikTok struct {
	c         *Client
	log       *slog.Logger
	baseURL   string
	token     string
	accountID string
	username  string
}

func NewTikTok(c *Client, creds Credentials, log *slog.Logger) *TikTok {
	return &TikTok{
		c:         c,
		log:       log,
		baseURL:   tiktokBaseURL,
		token:     creds["TIKTOK_ACCESS_TOKEN"],
		accountID: creds["TIKTOK_ACCOUNT_ID"],
		username:  creds.Get("TIKTOK_USERNAME", defaultUsername),
	}
}

func (t *TikTok) Name() string { return "tiktok" }

type tiktokVideoList struct {
	Data struct {
		Videos []struct {
			CreateTime   int64  `json:"create_time"`
			ShareURL     string `json:"share_url"`
			Title        string `json:"title"`
			PlayCount    int    `json:"play_count"`
			LikeCount    int    `json:"like_count"`
			CommentCount int    `json:"comment_count"`
			ShareCount   int    `json:"share_count"`
		} `json:"videos"`
	} `json:"data"`
}

func (t *TikTok) Posts(ctx context.Context, rng models.DateRange) ([]models.SocialPostEvent, error) {
	if t.token == "" || t.accountID == "" {
		return nil, ErrNotConfigured
	}

	var resp tiktokVideoList
	err := t.c.postJSON(ctx, t.baseURL+"/video/list/", map[string]string{
		"Access-Token": t.token,
	}, map[string]string{
		"advertiser_id": t.accountID,
		"start_date":    models.FormatDate(rng.Start),
		"end_date":      models.FormatDate(rng.End),
	}, &resp)
	if err != nil {
		return nil, err
	}

	var out []models.SocialPostEvent
	for _, v := range resp.Data.Videos {
		d := models.Day(time.Unix(v.CreateTime, 0).UTC())
		if !rng.Contains(d) {
			continue
		}
		out = append(out, models.SocialPostEvent{
			Date:       d,
			Platform:   models.PlatformTikTok,
			Influencer: t.username,
			PostURL:    v.ShareURL,
			Views:      v.PlayCount,
			Reach:      v.PlayCount,
			Likes:      v.LikeCount,
			Comments:   v.CommentCount,
			Shares:     v.ShareCount,
			Engagement: v.LikeCount + v.CommentCount + v.ShareCount,
			Notes:      truncate(v.Title, 100),
		})
	}
	return out, nil
}
