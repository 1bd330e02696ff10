// Package store holds the latest generated feed in memory. The feed is
// rebuilt from scratch each run, so the store is a whole-snapshot swap:
// readers always see one coherent run, never a half-replaced mix of two.
package store

import (
	"sync"
	"time"

	"github.com/mdrnmngl/marketing-feed-analytics/internal/models"
)

// Snapshot is everything one feed run produced.
type Snapshot struct {
	Range     models.DateRange
	Timeline  []models.TimelineRow
	Posts     []models.AnnotatedPost
	Campaigns []models.CampaignEvent
	Report    models.RunReport
}

type MemoryStore struct {
	mu   sync.RWMutex
	snap *Snapshot
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Replace swaps in a new snapshot wholesale.
func (s *MemoryStore) Replace(snap Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap = &snap
}

// Ready reports whether a feed run has completed since startup.
func (s *MemoryStore) Ready() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap != nil
}

// Latest returns the current snapshot. The bool is false before the first
// completed run.
func (s *MemoryStore) Latest() (Snapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.snap == nil {
		return Snapshot{}, false
	}
	return *s.snap, true
}

// Timeline returns rows between from and to inclusive, in stored (ascending)
// order, optionally filtered.
func (s *MemoryStore) Timeline(from, to time.Time, f func(models.TimelineRow) bool) []models.TimelineRow {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.snap == nil {
		return nil
	}
	out := make([]models.TimelineRow, 0)
	for _, row := range s.snap.Timeline {
		if row.Date.Before(from) || row.Date.After(to) {
			continue
		}
		if f == nil || f(row) {
			out = append(out, row)
		}
	}
	return out
}

// Posts returns annotated posts between from and to inclusive, optionally
// filtered.
func (s *MemoryStore) Posts(from, to time.Time, f func(models.AnnotatedPost) bool) []models.AnnotatedPost {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.snap == nil {
		return nil
	}
	out := make([]models.AnnotatedPost, 0)
	for _, p := range s.snap.Posts {
		if p.Date.Before(from) || p.Date.After(to) {
			continue
		}
		if f == nil || f(p) {
			out = append(out, p)
		}
	}
	return out
}

// Campaigns returns campaign events between from and to inclusive.
func (s *MemoryStore) Campaigns(from, to time.Time) []models.CampaignEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.snap == nil {
		return nil
	}
	out := make([]models.CampaignEvent, 0)
	for _, c := range s.snap.Campaigns {
		if c.Date.Before(from) || c.Date.After(to) {
			continue
		}
		out = append(out, c)
	}
	return out
}

// Report returns the latest run report. The bool is false before the first
// completed run.
func (s *MemoryStore) Report() (models.RunReport, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.snap == nil {
		return models.RunReport{}, false
	}
	return s.snap.Report, true
}
