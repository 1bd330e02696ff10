package ingest

import (
	"context"
	"errors"

	"github.com/mdrnmngl/marketing-feed-analytics/internal/models"
)

// ErrNotConfigured marks an adapter whose credentials are missing. Callers
// treat it as "platform disconnected": log a warning, carry on with an
// empty record set.
var ErrNotConfigured = errors.New("ingest: credentials not configured")

// PostSource yields social post events for a date range.
type PostSource interface {
	Name() string
	Posts(ctx context.Context, rng models.DateRange) ([]models.SocialPostEvent, error)
}

// CampaignSource yields ad-campaign lifecycle events for a date range.
type CampaignSource interface {
	Name() string
	Campaigns(ctx context.Context, rng models.DateRange) ([]models.CampaignEvent, error)
}

// DailySource yields per-day metrics (sales or traffic) for a date range.
type DailySource interface {
	Name() string
	Daily(ctx context.Context, rng models.DateRange) ([]models.DailyMetric, error)
}
