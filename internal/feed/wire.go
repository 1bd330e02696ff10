package feed

import (
	"context"
	"log/slog"

	"github.com/mdrnmngl/marketing-feed-analytics/internal/config"
	"github.com/mdrnmngl/marketing-feed-analytics/internal/ingest"
	"github.com/mdrnmngl/marketing-feed-analytics/internal/manuallog"
	"github.com/mdrnmngl/marketing-feed-analytics/internal/models"
)

// Credential file names under the secrets directory, one .env per platform.
// A missing file just leaves that platform disconnected.
const (
	credsShopifyOrders   = "shopify_orders_credentials.env"
	credsShopifyTraffic  = "shopify_credentials.env"
	credsGoogleAnalytics = "google_analytics_credentials.env"
	credsInstagram       = "instagram_credentials.env"
	credsTikTok          = "tiktok_credentials.env"
	credsPinterest       = "pinterest_credentials.env"
	credsMetaAds         = "meta_ads_credentials.env"
	credsGoogleAds       = "google_ads_credentials.env"
)

// BuildSources wires every platform adapter from the secrets directory plus
// the manual entry log. Unreadable credential files are logged and treated
// as disconnected platforms.
func BuildSources(cfg config.Config, httpc ingest.HTTPClient, ml *manuallog.Log, log *slog.Logger) Sources {
	client := ingest.NewClient(httpc, cfg.APIRate, log)
	creds := func(name string) ingest.Credentials {
		c, err := ingest.LoadCredentials(cfg.SecretsDir, name)
		if err != nil {
			log.Warn("credentials unreadable, platform disconnected", "file", name, "err", err)
			return ingest.Credentials{}
		}
		return c
	}

	return Sources{
		Sales:          ingest.NewShopifySales(client, creds(credsShopifyOrders), log),
		GATraffic:      ingest.NewGoogleAnalytics(client, creds(credsGoogleAnalytics), log),
		ShopifyTraffic: ingest.NewShopifyTraffic(client, creds(credsShopifyTraffic), log),
		Posts: map[string]ingest.PostSource{
			"instagram": ingest.NewInstagram(client, creds(credsInstagram), log),
			"tiktok":    ingest.NewTikTok(client, creds(credsTikTok), log),
			"pinterest": ingest.NewPinterest(client, creds(credsPinterest), log),
			"manual":    manualPosts{ml},
		},
		Campaigns: map[string]ingest.CampaignSource{
			"meta_ads":   ingest.NewMetaAds(client, creds(credsMetaAds), log),
			"google_ads": ingest.NewGoogleAds(client, creds(credsGoogleAds), log),
			"manual":     manualCampaigns{ml},
		},
	}
}

// manualPosts adapts the manual entry log to the post source interface.
// The log is small and local, so the range is left to the normalize clip.
type manualPosts struct {
	log *manuallog.Log
}

func (m manualPosts) Name() string { return "manual" }

func (m manualPosts) Posts(ctx context.Context, rng models.DateRange) ([]models.SocialPostEvent, error) {
	return m.log.Posts()
}

type manualCampaigns struct {
	log *manuallog.Log
}

func (m manualCampaigns) Name() string { return "manual" }

func (m manualCampaigns) Campaigns(ctx context.Context, rng models.DateRange) ([]models.CampaignEvent, error) {
	return m.log.Campaigns()
}
