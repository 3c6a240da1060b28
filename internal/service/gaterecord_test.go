package service

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"parksync/internal/checkpoint"
	"parksync/internal/client/well"
)

type fakeGateRecords struct {
	records []well.GateRecord
	err     error

	lastBegin int64
	lastEnd   int64
}

func (f *fakeGateRecords) ListGateRecords(_ context.Context, _, _ int, beginMs, endMs int64) ([]well.GateRecord, error) {
	f.lastBegin = beginMs
	f.lastEnd = endMs
	if f.err != nil {
		return nil, f.err
	}
	return f.records, nil
}

func newTestPoller(t *testing.T, client *fakeGateRecords, repo *fakeRepo) (*GateRecordPoller, *checkpoint.MillisFile) {
	t.Helper()
	cp := checkpoint.NewMillisFile(filepath.Join(t.TempDir(), "checkpoint.txt"), 5*time.Minute, zap.NewNop())
	return NewGateRecordPoller(client, repo, cp, 10000, zap.NewNop()), cp
}

func TestPoll_WritesValidRecordsAndAdvancesCheckpoint(t *testing.T) {
	client := &fakeGateRecords{records: []well.GateRecord{
		{FlowNo: "F1", UserNo: "E001", RecDic: "0", RecStatus: "1", RecTime: "2024-05-01 08:30:00"},
		{FlowNo: "F2", UserNo: "E002", RecDic: "1", RecStatus: "2", RecTime: "2024-05-01 08:31:00"},
		{FlowNo: "F3", UserNo: "E003", RecDic: "1", RecStatus: "1", RecTime: "2024-05-01 08:32:00"},
	}}
	repo := &fakeRepo{}
	poller, cp := newTestPoller(t, client, repo)

	written, err := poller.Poll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, written)

	// the alarm record is filtered out
	require.Len(t, repo.personEvents, 2)
	assert.Equal(t, "F1", repo.personEvents[0].FlowNo)
	assert.Equal(t, "进门", repo.personEvents[0].Direction)
	assert.Equal(t, "有效", repo.personEvents[0].StatusName)
	require.NotNil(t, repo.personEvents[0].RecTime)
	assert.Equal(t, "F3", repo.personEvents[1].FlowNo)
	assert.Equal(t, "出门", repo.personEvents[1].Direction)

	// the checkpoint moved to this poll's end timestamp
	assert.Equal(t, client.lastEnd, cp.Load())
}

func TestPoll_FetchFailureLeavesCheckpoint(t *testing.T) {
	client := &fakeGateRecords{err: assert.AnError}
	poller, cp := newTestPoller(t, client, &fakeRepo{})

	before := cp.Load()
	_, err := poller.Poll(context.Background())
	assert.Error(t, err)

	after := cp.Load()
	// still the lookback fallback, nothing was persisted
	assert.InDelta(t, before, after, 1000)
	assert.Equal(t, before/60000, client.lastBegin/60000)
}

func TestPoll_WriteFailureDoesNotBlockOthers(t *testing.T) {
	client := &fakeGateRecords{records: []well.GateRecord{
		{FlowNo: "F1", RecStatus: "1"},
	}}
	repo := &fakeRepo{insertErr: assert.AnError}
	poller, _ := newTestPoller(t, client, repo)

	written, err := poller.Poll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, written)
}

func TestPoll_ConcurrentPollSkips(t *testing.T) {
	client := &fakeGateRecords{records: []well.GateRecord{{FlowNo: "F1", RecStatus: "1"}}}
	repo := &fakeRepo{}
	poller, _ := newTestPoller(t, client, repo)

	poller.running.Store(true)
	written, err := poller.Poll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, written)
	assert.Empty(t, repo.personEvents)
}

func TestPoll_UnparseableRecTimeStillWritten(t *testing.T) {
	client := &fakeGateRecords{records: []well.GateRecord{
		{FlowNo: "F1", RecStatus: "1", RecTime: "yesterday"},
	}}
	repo := &fakeRepo{}
	poller, _ := newTestPoller(t, client, repo)

	written, err := poller.Poll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, written)
	assert.Nil(t, repo.personEvents[0].RecTime)
}
