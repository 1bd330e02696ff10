package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"github.com/mdrnmngl/marketing-feed-analytics/internal/config"
	"github.com/mdrnmngl/marketing-feed-analytics/internal/feed"
	"github.com/mdrnmngl/marketing-feed-analytics/internal/ingest"
	"github.com/mdrnmngl/marketing-feed-analytics/internal/manuallog"
	"github.com/mdrnmngl/marketing-feed-analytics/internal/models"
	"github.com/mdrnmngl/marketing-feed-analytics/internal/notify"
	"github.com/mdrnmngl/marketing-feed-analytics/internal/report"
	"github.com/mdrnmngl/marketing-feed-analytics/internal/store"
)

// feedctl runs one feed rebuild and writes the report files, without the
// HTTP server. It also covers the two operator chores that should not need
// a running service: logging an influencer post or a campaign event.
func main() {
	var (
		days        = flag.Int("days", 0, "days to look back (0 uses the policy lookback)")
		addPost     = flag.Bool("add-influencer", false, "log an influencer post and exit")
		addCampaign = flag.Bool("add-campaign", false, "log a campaign event and exit")

		date       = flag.String("date", "", "event date, YYYY-MM-DD")
		platform   = flag.String("platform", "", "platform name")
		influencer = flag.String("influencer", "", "influencer name")
		postURL    = flag.String("url", "", "post URL")
		views      = flag.Int("views", 0, "view count, 0 if unknown")
		reach      = flag.Int("reach", 0, "reach, 0 if unknown")
		likes      = flag.Int("likes", 0, "like count")
		comments   = flag.Int("comments", 0, "comment count")
		engagement = flag.Int("engagement", 0, "engagement, 0 if unknown")
		campaign   = flag.String("campaign", "", "campaign name")
		event      = flag.String("event", "launch", "event type: launch, creative_change, budget_change, pause or resume")
		budget     = flag.Float64("budget", 0, "budget, 0 if not applicable")
		notes      = flag.String("notes", "", "free-form notes")
	)
	flag.Parse()

	// .env is a dev convenience; deployments set the real environment.
	_ = godotenv.Load()

	cfg, err := config.FromEnv()
	if err != nil {
		fatal(err)
	}

	// Logs go to stderr so stdout stays a clean result line for scripts.
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	slog.SetDefault(logger)

	ml := manuallog.New(cfg.DataDir, logger)

	switch {
	case *addPost:
		d, err := models.ParseDate(*date)
		if err != nil {
			fatal(fmt.Errorf("-date must be YYYY-MM-DD: %w", err))
		}
		entry, err := ml.AppendPost(models.SocialPostEvent{
			Date:       d,
			Platform:   *platform,
			Influencer: *influencer,
			PostURL:    *postURL,
			Views:      *views,
			Reach:      *reach,
			Likes:      *likes,
			Comments:   *comments,
			Engagement: *engagement,
			Notes:      *notes,
		})
		if err != nil {
			fatal(err)
		}
		fmt.Printf("logged influencer post %s (%s on %s)\n", entry.ID, entry.Influencer, entry.Date)

	case *addCampaign:
		d, err := models.ParseDate(*date)
		if err != nil {
			fatal(fmt.Errorf("-date must be YYYY-MM-DD: %w", err))
		}
		entry, err := ml.AppendCampaign(models.CampaignEvent{
			Date:         d,
			Platform:     *platform,
			CampaignName: *campaign,
			EventType:    *event,
			Budget:       *budget,
			Notes:        *notes,
		})
		if err != nil {
			fatal(err)
		}
		fmt.Printf("logged campaign event %s (%s %s on %s)\n", entry.ID, entry.CampaignName, entry.EventType, entry.Date)

	default:
		policy, err := config.LoadPolicy(cfg.PolicyFile)
		if err != nil {
			fatal(err)
		}
		lookback := *days
		if lookback == 0 {
			lookback = policy.LookbackDays
		}

		httpc := ingest.NewHTTPClient(cfg.HTTPTimeout)
		st := store.NewMemoryStore()
		src := feed.BuildSources(cfg, httpc, ml, logger)
		wr := report.NewWriter(cfg.OutputDir, logger)

		var notifier feed.Notifier
		if sl := notify.NewSlack(cfg.SlackToken, cfg.SlackChannel, logger); sl != nil {
			notifier = sl
		}

		fd := feed.New(policy, src, st, wr, notifier, logger)
		snap, err := fd.Generate(context.Background(), lookback)
		if err != nil {
			fatal(err)
		}
		fmt.Printf("feed %s: %d days (%s), reports in %s\n",
			snap.Report.RunID, snap.Report.Days, snap.Range, cfg.OutputDir)
	}
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, "feedctl:", err)
	os.Exit(1)
}
