// Package notify posts feed run summaries to Slack. Notification is best
// effort; the feed service logs failures and moves on.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/slack-go/slack"

	"github.com/mdrnmngl/marketing-feed-analytics/internal/models"
	"github.com/mdrnmngl/marketing-feed-analytics/internal/report"
)

// slackAPI is the slice of the Slack client the notifier needs.
type slackAPI interface {
	PostMessageContext(ctx context.Context, channelID string, options ...slack.MsgOption) (string, string, error)
}

// Slack posts a short run summary to one channel after every feed rebuild.
type Slack struct {
	api     slackAPI
	channel string
	log     *slog.Logger
}

// NewSlack returns a notifier for channel, or nil when token is empty.
// Callers must treat a nil notifier as notifications disabled and not wrap
// it in an interface.
func NewSlack(token, channel string, log *slog.Logger) *Slack {
	if token == "" {
		return nil
	}
	if log == nil {
		log = slog.Default()
	}
	return &Slack{api: slack.New(token), channel: channel, log: log}
}

// RunCompleted posts the summary for one finished run.
func (s *Slack) RunCompleted(ctx context.Context, rep models.RunReport, sum report.Summary) error {
	_, _, err := s.api.PostMessageContext(ctx, s.channel, slack.MsgOptionText(formatRun(rep, sum), false))
	if err != nil {
		return fmt.Errorf("notify: post to %s: %w", s.channel, err)
	}
	s.log.Debug("run summary posted", "channel", s.channel, "run_id", rep.RunID)
	return nil
}

func formatRun(rep models.RunReport, sum report.Summary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Marketing feed rebuilt for %s to %s (%d days, %d ms).\n", rep.Start, rep.End, rep.Days, rep.DurationMS)
	fmt.Fprintf(&b, "Revenue $%.2f across %d orders, %d sessions.\n", sum.TotalRevenue, sum.TotalOrders, sum.TotalSessions)
	fmt.Fprintf(&b, "%d influencer posts and %d campaign events on %d active days.", sum.InfluencerPosts, sum.CampaignEvents, sum.DaysWithActivity)
	if quiet := quietCategories(rep); len(quiet) > 0 {
		fmt.Fprintf(&b, "\nNo records kept for: %s.", strings.Join(quiet, ", "))
	}
	return b.String()
}

// quietCategories names categories that contributed nothing this run, the
// usual sign of a disconnected platform.
func quietCategories(rep models.RunReport) []string {
	var quiet []string
	for cat, t := range rep.Categories {
		if t.Kept == 0 {
			quiet = append(quiet, cat)
		}
	}
	sort.Strings(quiet)
	return quiet
}
