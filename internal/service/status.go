package service

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// HistoryEntry is an immutable snapshot of one finished pass.
type HistoryEntry struct {
	ID          string        `json:"id"`
	StartedAt   time.Time     `json:"started_at"`
	FinishedAt  time.Time     `json:"finished_at"`
	Duration    time.Duration `json:"duration"`
	Success     bool          `json:"success"`
	Message     string        `json:"message,omitempty"`
	Persons     CategoryCount `json:"persons"`
	Vehicles    CategoryCount `json:"vehicles"`
	Blacklists  CategoryCount `json:"blacklists"`
	FailedCount int           `json:"failed_count"`
}

// Tracker retains the latest sync result and a bounded history, persisted as
// a JSON file so restarts keep the operator's view.
type Tracker struct {
	logger     *zap.Logger
	path       string
	maxHistory int

	mu      sync.RWMutex
	last    *SyncResult
	history []HistoryEntry
}

func NewTracker(path string, maxHistory int, logger *zap.Logger) *Tracker {
	t := &Tracker{
		logger:     logger,
		path:       path,
		maxHistory: maxHistory,
	}
	t.load()
	return t
}

func (t *Tracker) load() {
	data, err := os.ReadFile(t.path)
	if err != nil {
		return
	}
	var history []HistoryEntry
	if err := json.Unmarshal(data, &history); err != nil {
		t.logger.Warn("discarding unreadable sync history file",
			zap.String("path", t.path), zap.Error(err))
		return
	}
	t.history = history
}

// Record appends one finished pass. Skipped triggers are not recorded. The
// oldest entries are evicted once the bound is reached.
func (t *Tracker) Record(result *SyncResult) {
	if result == nil || result.Skipped {
		return
	}

	entry := HistoryEntry{
		ID:          uuid.NewString(),
		StartedAt:   result.StartedAt,
		FinishedAt:  result.FinishedAt,
		Duration:    result.FinishedAt.Sub(result.StartedAt),
		Success:     result.Success,
		Message:     result.Message,
		Persons:     result.Persons,
		Vehicles:    result.Vehicles,
		Blacklists:  result.Blacklists,
		FailedCount: len(result.Failed),
	}

	t.mu.Lock()
	t.last = result
	t.history = append(t.history, entry)
	if t.maxHistory > 0 && len(t.history) > t.maxHistory {
		t.history = t.history[len(t.history)-t.maxHistory:]
	}
	snapshot := make([]HistoryEntry, len(t.history))
	copy(snapshot, t.history)
	t.mu.Unlock()

	if err := t.persist(snapshot); err != nil {
		t.logger.Warn("failed to persist sync history", zap.Error(err))
	}
}

func (t *Tracker) persist(history []HistoryEntry) error {
	if err := os.MkdirAll(filepath.Dir(t.path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(history, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(t.path, data, 0o644)
}

// CleanupBefore drops history entries that finished before the cutoff and
// returns how many were removed.
func (t *Tracker) CleanupBefore(cutoff time.Time) int {
	t.mu.Lock()
	kept := t.history[:0]
	for _, entry := range t.history {
		if !entry.FinishedAt.Before(cutoff) {
			kept = append(kept, entry)
		}
	}
	removed := len(t.history) - len(kept)
	t.history = kept
	snapshot := make([]HistoryEntry, len(t.history))
	copy(snapshot, t.history)
	t.mu.Unlock()

	if removed > 0 {
		if err := t.persist(snapshot); err != nil {
			t.logger.Warn("failed to persist sync history", zap.Error(err))
		}
	}
	return removed
}

// Last returns the most recent result, nil when no pass has run yet.
func (t *Tracker) Last() *SyncResult {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.last
}

// History returns the retained entries, newest last.
func (t *Tracker) History() []HistoryEntry {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]HistoryEntry, len(t.history))
	copy(out, t.history)
	return out
}

// FailedRecords returns the failure records of the latest pass.
func (t *Tracker) FailedRecords() []FailedRecord {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.last == nil {
		return nil
	}
	out := make([]FailedRecord, len(t.last.Failed))
	copy(out, t.last.Failed)
	return out
}
