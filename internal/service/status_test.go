package service

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func sampleResult(success bool) *SyncResult {
	now := time.Now()
	return &SyncResult{
		Success:    success,
		StartedAt:  now.Add(-time.Minute),
		FinishedAt: now,
		Persons:    CategoryCount{Total: 3, Success: 2, Failed: 1},
		Failed:     []FailedRecord{{Key: "E001", Op: "grant_upsert", Reason: "boom"}},
	}
}

func TestTracker_RecordAndQuery(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.json")
	tracker := NewTracker(path, 10, zap.NewNop())

	assert.Nil(t, tracker.Last())
	assert.Empty(t, tracker.History())
	assert.Empty(t, tracker.FailedRecords())

	result := sampleResult(true)
	tracker.Record(result)

	assert.Equal(t, result, tracker.Last())
	history := tracker.History()
	require.Len(t, history, 1)
	assert.NotEmpty(t, history[0].ID)
	assert.Equal(t, 1, history[0].FailedCount)
	require.Len(t, tracker.FailedRecords(), 1)
	assert.Equal(t, "E001", tracker.FailedRecords()[0].Key)
}

func TestTracker_SkippedResultsNotRecorded(t *testing.T) {
	tracker := NewTracker(filepath.Join(t.TempDir(), "history.json"), 10, zap.NewNop())

	tracker.Record(nil)
	tracker.Record(&SyncResult{Skipped: true, Message: "sync already running"})

	assert.Nil(t, tracker.Last())
	assert.Empty(t, tracker.History())
}

func TestTracker_EvictsOldestBeyondBound(t *testing.T) {
	tracker := NewTracker(filepath.Join(t.TempDir(), "history.json"), 3, zap.NewNop())

	for i := 0; i < 5; i++ {
		r := sampleResult(true)
		r.Message = fmt.Sprintf("pass %d", i)
		tracker.Record(r)
	}

	history := tracker.History()
	require.Len(t, history, 3)
	assert.Equal(t, "pass 2", history[0].Message)
	assert.Equal(t, "pass 4", history[2].Message)
}

func TestTracker_PersistsAcrossRestart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.json")

	tracker := NewTracker(path, 10, zap.NewNop())
	tracker.Record(sampleResult(true))
	tracker.Record(sampleResult(false))

	reloaded := NewTracker(path, 10, zap.NewNop())
	history := reloaded.History()
	require.Len(t, history, 2)
	assert.True(t, history[0].Success)
	assert.False(t, history[1].Success)
	// the in-memory last result does not survive a restart, only the history
	assert.Nil(t, reloaded.Last())
}

func TestTracker_CleanupBefore(t *testing.T) {
	tracker := NewTracker(filepath.Join(t.TempDir(), "history.json"), 10, zap.NewNop())

	old := sampleResult(true)
	old.FinishedAt = time.Now().AddDate(0, 0, -10)
	tracker.Record(old)
	tracker.Record(sampleResult(true))

	removed := tracker.CleanupBefore(time.Now().AddDate(0, 0, -7))
	assert.Equal(t, 1, removed)
	assert.Len(t, tracker.History(), 1)

	assert.Equal(t, 0, tracker.CleanupBefore(time.Now().AddDate(0, 0, -7)))
}

func TestTracker_DiscardsCorruptHistoryFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.json")
	require.NoError(t, os.WriteFile(path, []byte("not json"), 0o644))

	tracker := NewTracker(path, 10, zap.NewNop())
	assert.Empty(t, tracker.History())
}
