// Package manuallog keeps the operator-maintained record logs: influencer
// posts and campaign events with no API behind them. Each log is a JSON
// array on disk, append-only from the tool's point of view, and hand-edits
// between runs are expected.
package manuallog

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mdrnmngl/marketing-feed-analytics/internal/models"
)

const (
	postsFile     = "manual_influencer_posts.json"
	campaignsFile = "manual_campaign_events.json"
)

// ErrInvalidEntry reports an append rejected before touching the log.
var ErrInvalidEntry = errors.New("manuallog: invalid entry")

// PostEntry is the on-disk form of a manually logged post.
type PostEntry struct {
	ID          string `json:"id"`
	Date        string `json:"date"`
	Platform    string `json:"platform"`
	Influencer  string `json:"influencer"`
	PostURL     string `json:"post_url"`
	Views       int    `json:"views"`
	Reach       int    `json:"reach"`
	Impressions int    `json:"impressions"`
	Likes       int    `json:"likes"`
	Comments    int    `json:"comments"`
	Shares      int    `json:"shares"`
	Saves       int    `json:"saves"`
	Engagement  int    `json:"engagement"`
	Notes       string `json:"notes,omitempty"`
	AddedAt     string `json:"added_at"`
}

// CampaignEntry is the on-disk form of a manually logged campaign event.
type CampaignEntry struct {
	ID           string  `json:"id"`
	Date         string  `json:"date"`
	Platform     string  `json:"platform"`
	CampaignName string  `json:"campaign_name"`
	EventType    string  `json:"event_type"`
	Budget       float64 `json:"budget"`
	Notes        string  `json:"notes,omitempty"`
	AddedAt      string  `json:"added_at"`
}

// Log reads and appends the two manual record files under dir. Appends are
// read-modify-write cycles guarded by a mutex, so concurrent appends from
// the HTTP surface serialize instead of clobbering each other.
type Log struct {
	dir string
	log *slog.Logger
	now func() time.Time

	mu sync.Mutex
}

func New(dir string, log *slog.Logger) *Log {
	return &Log{dir: dir, log: log, now: time.Now}
}

// AppendPost validates p, stamps it with an id and added_at, and appends it
// to the post log. The stored entry is returned.
func (l *Log) AppendPost(p models.SocialPostEvent) (PostEntry, error) {
	if p.Date.IsZero() {
		return PostEntry{}, fmt.Errorf("%w: post date is required", ErrInvalidEntry)
	}
	if p.PostURL == "" {
		return PostEntry{}, fmt.Errorf("%w: post_url is required", ErrInvalidEntry)
	}
	if p.Platform == "" {
		p.Platform = models.PlatformManual
	}

	entry := PostEntry{
		ID:          uuid.NewString(),
		Date:        models.FormatDate(p.Date),
		Platform:    p.Platform,
		Influencer:  p.Influencer,
		PostURL:     p.PostURL,
		Views:       p.Views,
		Reach:       p.Reach,
		Impressions: p.Impressions,
		Likes:       p.Likes,
		Comments:    p.Comments,
		Shares:      p.Shares,
		Saves:       p.Saves,
		Engagement:  p.Engagement,
		Notes:       p.Notes,
		AddedAt:     l.now().UTC().Format(time.RFC3339),
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	var entries []PostEntry
	if err := l.read(postsFile, &entries); err != nil {
		return PostEntry{}, err
	}
	entries = append(entries, entry)
	if err := l.write(postsFile, entries); err != nil {
		return PostEntry{}, err
	}
	l.log.Info("logged influencer post",
		slog.String("date", entry.Date),
		slog.String("platform", entry.Platform),
		slog.String("influencer", entry.Influencer))
	return entry, nil
}

// AppendCampaign validates c, stamps it, and appends it to the campaign log.
func (l *Log) AppendCampaign(c models.CampaignEvent) (CampaignEntry, error) {
	if c.Date.IsZero() {
		return CampaignEntry{}, fmt.Errorf("%w: event date is required", ErrInvalidEntry)
	}
	if c.CampaignName == "" {
		return CampaignEntry{}, fmt.Errorf("%w: campaign_name is required", ErrInvalidEntry)
	}
	if !models.ValidEventType(c.EventType) {
		return CampaignEntry{}, fmt.Errorf("%w: unknown event_type %q", ErrInvalidEntry, c.EventType)
	}
	if c.Platform == "" {
		c.Platform = models.PlatformManual
	}

	entry := CampaignEntry{
		ID:           uuid.NewString(),
		Date:         models.FormatDate(c.Date),
		Platform:     c.Platform,
		CampaignName: c.CampaignName,
		EventType:    c.EventType,
		Budget:       c.Budget,
		Notes:        c.Notes,
		AddedAt:      l.now().UTC().Format(time.RFC3339),
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	var entries []CampaignEntry
	if err := l.read(campaignsFile, &entries); err != nil {
		return CampaignEntry{}, err
	}
	entries = append(entries, entry)
	if err := l.write(campaignsFile, entries); err != nil {
		return CampaignEntry{}, err
	}
	l.log.Info("logged campaign event",
		slog.String("date", entry.Date),
		slog.String("campaign", entry.CampaignName),
		slog.String("event_type", entry.EventType))
	return entry, nil
}

// Posts loads the post log. Entries with unparseable dates are dropped with
// a warning rather than failing the whole read; hand-edited files earn that
// much tolerance.
func (l *Log) Posts() ([]models.SocialPostEvent, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var entries []PostEntry
	if err := l.read(postsFile, &entries); err != nil {
		return nil, err
	}
	out := make([]models.SocialPostEvent, 0, len(entries))
	for _, e := range entries {
		d, err := models.ParseDate(e.Date)
		if err != nil {
			l.log.Warn("skipping manual post with bad date",
				slog.String("id", e.ID), slog.String("date", e.Date))
			continue
		}
		out = append(out, models.SocialPostEvent{
			Date:        d,
			Platform:    e.Platform,
			Influencer:  e.Influencer,
			PostURL:     e.PostURL,
			Views:       e.Views,
			Reach:       e.Reach,
			Impressions: e.Impressions,
			Likes:       e.Likes,
			Comments:    e.Comments,
			Shares:      e.Shares,
			Saves:       e.Saves,
			Engagement:  e.Engagement,
			Notes:       e.Notes,
		})
	}
	return out, nil
}

// Campaigns loads the campaign log.
func (l *Log) Campaigns() ([]models.CampaignEvent, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var entries []CampaignEntry
	if err := l.read(campaignsFile, &entries); err != nil {
		return nil, err
	}
	out := make([]models.CampaignEvent, 0, len(entries))
	for _, e := range entries {
		d, err := models.ParseDate(e.Date)
		if err != nil {
			l.log.Warn("skipping manual campaign event with bad date",
				slog.String("id", e.ID), slog.String("date", e.Date))
			continue
		}
		out = append(out, models.CampaignEvent{
			Date:         d,
			Platform:     e.Platform,
			CampaignName: e.CampaignName,
			EventType:    e.EventType,
			Budget:       e.Budget,
			Notes:        e.Notes,
		})
	}
	return out, nil
}

// read decodes one log file into dst. A missing file is an empty log.
func (l *Log) read(name string, dst any) error {
	raw, err := os.ReadFile(filepath.Join(l.dir, name))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("manuallog: read %s: %w", name, err)
	}
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("manuallog: parse %s: %w", name, err)
	}
	return nil
}

// write replaces one log file atomically: encode to a temp file in the same
// directory, then rename over the original.
func (l *Log) write(name string, entries any) error {
	if err := os.MkdirAll(l.dir, 0o755); err != nil {
		return fmt.Errorf("manuallog: ensure dir: %w", err)
	}
	raw, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("manuallog: encode %s: %w", name, err)
	}
	tmp, err := os.CreateTemp(l.dir, name+".tmp-*")
	if err != nil {
		return fmt.Errorf("manuallog: temp file: %w", err)
	}
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("manuallog: write %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("manuallog: close %s: %w", name, err)
	}
	if err := os.Rename(tmp.Name(), filepath.Join(l.dir, name)); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("manuallog: replace %s: %w", name, err)
	}
	return nil
}
