// Package normalize reconciles per-adapter record sets for one category into
// a single canonical set: concatenate in adapter-priority order, drop records
// missing identity fields, deduplicate first-seen-wins on the category key.
package normalize

import (
	"log/slog"

	"github.com/mdrnmngl/marketing-feed-analytics/internal/models"
)

type Normalizer struct {
	log *slog.Logger
}

func New(log *slog.Logger) *Normalizer {
	return &Normalizer{log: log}
}

// Posts merges social post sets. Set order is the caller's declared adapter
// priority: when two records share (date, post_url), the earlier set wins.
func (n *Normalizer) Posts(sets ...[]models.SocialPostEvent) ([]models.SocialPostEvent, models.CategoryTally) {
	var tally models.CategoryTally
	seen := make(map[string]struct{})
	out := make([]models.SocialPostEvent, 0)

	for _, set := range sets {
		for _, p := range set {
			tally.Fetched++
			if p.Date.IsZero() || p.PostURL == "" {
				tally.DroppedMalformed++
				n.log.Warn("dropping malformed social post",
					slog.String("category", models.CategoryPosts),
					slog.String("platform", p.Platform),
					slog.String("post_url", p.PostURL))
				continue
			}
			key := models.FormatDate(p.Date) + "|" + p.PostURL
			if _, dup := seen[key]; dup {
				tally.DroppedDuplicate++
				continue
			}
			seen[key] = struct{}{}
			out = append(out, clampPost(p))
			tally.Kept++
		}
	}
	return out, tally
}

// Campaigns merges campaign event sets, first-seen-wins on
// (date, campaign_name, event_type).
func (n *Normalizer) Campaigns(sets ...[]models.CampaignEvent) ([]models.CampaignEvent, models.CategoryTally) {
	var tally models.CategoryTally
	seen := make(map[string]struct{})
	out := make([]models.CampaignEvent, 0)

	for _, set := range sets {
		for _, c := range set {
			tally.Fetched++
			if c.Date.IsZero() || c.CampaignName == "" || c.EventType == "" {
				tally.DroppedMalformed++
				n.log.Warn("dropping malformed campaign event",
					slog.String("category", models.CategoryCampaigns),
					slog.String("platform", c.Platform),
					slog.String("campaign", c.CampaignName))
				continue
			}
			key := models.FormatDate(c.Date) + "|" + c.CampaignName + "|" + c.EventType
			if _, dup := seen[key]; dup {
				tally.DroppedDuplicate++
				continue
			}
			seen[key] = struct{}{}
			out = append(out, clampCampaign(c))
			tally.Kept++
		}
	}
	return out, tally
}

// ClipPosts drops posts dated outside rng, returning the kept set and the
// drop count. Out-of-range records are expected when a platform returns its
// full history, so this logs rather than errors.
func (n *Normalizer) ClipPosts(rng models.DateRange, posts []models.SocialPostEvent) ([]models.SocialPostEvent, int) {
	out := make([]models.SocialPostEvent, 0, len(posts))
	dropped := 0
	for _, p := range posts {
		if !rng.Contains(p.Date) {
			dropped++
			continue
		}
		out = append(out, p)
	}
	if dropped > 0 {
		n.log.Debug("clipped out-of-range social posts",
			slog.Int("dropped", dropped), slog.String("range", rng.String()))
	}
	return out, dropped
}

// ClipCampaigns is ClipPosts for campaign events.
func (n *Normalizer) ClipCampaigns(rng models.DateRange, events []models.CampaignEvent) ([]models.CampaignEvent, int) {
	out := make([]models.CampaignEvent, 0, len(events))
	dropped := 0
	for _, c := range events {
		if !rng.Contains(c.Date) {
			dropped++
			continue
		}
		out = append(out, c)
	}
	if dropped > 0 {
		n.log.Debug("clipped out-of-range campaign events",
			slog.Int("dropped", dropped), slog.String("range", rng.String()))
	}
	return out, dropped
}

// Counts are observations, never negative; a platform reporting -1 means
// "unavailable" and is treated as zero.
func clampPost(p models.SocialPostEvent) models.SocialPostEvent {
	p.Date = models.Day(p.Date)
	p.Views = max0(p.Views)
	p.Reach = max0(p.Reach)
	p.Impressions = max0(p.Impressions)
	p.Likes = max0(p.Likes)
	p.Comments = max0(p.Comments)
	p.Shares = max0(p.Shares)
	p.Saves = max0(p.Saves)
	p.Engagement = max0(p.Engagement)
	return p
}

func clampCampaign(c models.CampaignEvent) models.CampaignEvent {
	c.Date = models.Day(c.Date)
	if c.Budget < 0 {
		c.Budget = 0
	}
	return c
}

func max0(i int) int {
	if i < 0 {
		return 0
	}
	return i
}
