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
	"parksync/internal/models"
)

type fakeRepo struct {
	persons  []models.PersonRow
	vehicles []models.VehicleRow

	personsErr  error
	vehiclesErr error

	personEvents  []*models.PersonGateEvent
	vehicleEvents []*models.VehicleGateEvent
	insertErr     error
	hasVehicle    bool
}

func (r *fakeRepo) ListPersonRowsSince(_ context.Context, _ time.Time) ([]models.PersonRow, error) {
	if r.personsErr != nil {
		return nil, r.personsErr
	}
	return r.persons, nil
}

func (r *fakeRepo) ListVehicleRowsSince(_ context.Context, _ time.Time) ([]models.VehicleRow, error) {
	if r.vehiclesErr != nil {
		return nil, r.vehiclesErr
	}
	return r.vehicles, nil
}

func (r *fakeRepo) InsertPersonGateEvent(_ context.Context, event *models.PersonGateEvent) error {
	if r.insertErr != nil {
		return r.insertErr
	}
	r.personEvents = append(r.personEvents, event)
	return nil
}

func (r *fakeRepo) InsertVehicleGateEvent(_ context.Context, event *models.VehicleGateEvent) error {
	if r.insertErr != nil {
		return r.insertErr
	}
	r.vehicleEvents = append(r.vehicleEvents, event)
	return nil
}

func (r *fakeRepo) HasVehicleGateEvent(context.Context, string, time.Time) (bool, error) {
	return r.hasVehicle, nil
}

func (r *fakeRepo) Ping(context.Context) error { return nil }

func newTestOrchestrator(t *testing.T, repo *fakeRepo, access *fakeAccess, parking *fakeParking) *Orchestrator {
	t.Helper()
	logger := zap.NewNop()
	pusher := NewPusher(access, parking, &fakeRules{id: 1}, []int{1}, logger)
	tracker := NewTracker(filepath.Join(t.TempDir(), "history.json"), 10, logger)
	lastSync := checkpoint.NewTimeFile(filepath.Join(t.TempDir(), "last-sync.txt"))
	return NewOrchestrator(repo, NewGrouper(logger), pusher, access, tracker, lastSync, logger)
}

func TestRunFullSync_CountsPerCategory(t *testing.T) {
	repo := &fakeRepo{
		persons: []models.PersonRow{
			{EmployeeNo: "E001", PersonType: "正式员工", StatusCode: "A"},
			{EmployeeNo: "E002", StatusCode: "D"},
		},
		vehicles: []models.VehicleRow{
			{PlateNumber: "京A12345", StatusCode: "A"},
			{PlateNumber: "京B67890", NeedCheck: true, StatusCode: "A"},
			{PlateNumber: "京A12345", ZoneCode: "Z2", StatusCode: "A"},
		},
	}
	access := &fakeAccess{}
	parking := &fakeParking{}
	o := newTestOrchestrator(t, repo, access, parking)

	result := o.RunFullSync(context.Background())

	assert.True(t, result.Success)
	assert.False(t, result.Skipped)
	assert.Equal(t, CategoryCount{Total: 2, Success: 2}, result.Persons)
	// two distinct plates
	assert.Equal(t, CategoryCount{Total: 2, Success: 2}, result.Vehicles)
	// only the flagged plate lands in the blacklist category
	assert.Equal(t, CategoryCount{Total: 1, Success: 1}, result.Blacklists)
	assert.Empty(t, result.Failed)
}

func TestRunFullSync_FailedEntitiesAreRecorded(t *testing.T) {
	repo := &fakeRepo{
		persons: []models.PersonRow{
			{EmployeeNo: "E001", PersonType: "正式员工", StatusCode: "A"},
			{EmployeeNo: "E002", PersonType: "正式员工", StatusCode: "A"},
		},
	}
	access := &fakeAccess{grantErr: assert.AnError}
	o := newTestOrchestrator(t, repo, access, &fakeParking{})

	result := o.RunFullSync(context.Background())

	assert.True(t, result.Success)
	assert.Equal(t, 2, result.Persons.Total)
	assert.Equal(t, 0, result.Persons.Success)
	assert.Equal(t, 2, result.Persons.Failed)
	require.Len(t, result.Failed, 2)
	assert.Equal(t, "E001", result.Failed[0].Key)
	assert.Equal(t, "grant_upsert", result.Failed[0].Op)
	assert.NotEmpty(t, result.Failed[0].Reason)
}

func TestRunFullSync_PartialFailureJoinsReasons(t *testing.T) {
	repo := &fakeRepo{
		persons: []models.PersonRow{
			{EmployeeNo: "E001", PersonType: "正式员工", PhotoBase64: "aGVsbG8=", StatusCode: "A"},
		},
	}
	access := &fakeAccess{faceErr: assert.AnError, grantErr: assert.AnError}
	o := newTestOrchestrator(t, repo, access, &fakeParking{})

	result := o.RunFullSync(context.Background())

	// one entity, one failure record covering both failed sub-operations
	assert.Equal(t, CategoryCount{Total: 1, Failed: 1}, result.Persons)
	require.Len(t, result.Failed, 1)
	assert.Equal(t, "face_upsert,grant_upsert", result.Failed[0].Op)
}

func TestRunFullSync_FetchFailureAborts(t *testing.T) {
	repo := &fakeRepo{personsErr: assert.AnError}
	o := newTestOrchestrator(t, repo, &fakeAccess{}, &fakeParking{})

	result := o.RunFullSync(context.Background())

	assert.False(t, result.Success)
	assert.False(t, result.Skipped)
	assert.Contains(t, result.Message, "person rows")
	assert.Equal(t, 0, result.Persons.Total)
}

func TestRunFullSync_ConcurrentTriggerSkips(t *testing.T) {
	o := newTestOrchestrator(t, &fakeRepo{}, &fakeAccess{}, &fakeParking{})

	o.running.Store(true)
	result := o.RunFullSync(context.Background())
	assert.True(t, result.Skipped)
	assert.Equal(t, "sync already running", result.Message)

	o.running.Store(false)
	result = o.RunFullSync(context.Background())
	assert.False(t, result.Skipped)
	assert.True(t, result.Success)
}

func TestRunFullSync_AdvancesWatermark(t *testing.T) {
	lastSync := checkpoint.NewTimeFile(filepath.Join(t.TempDir(), "last-sync.txt"))
	logger := zap.NewNop()
	access := &fakeAccess{}
	pusher := NewPusher(access, &fakeParking{}, &fakeRules{id: 1}, []int{1}, logger)
	o := NewOrchestrator(&fakeRepo{}, NewGrouper(logger), pusher, access, nil, lastSync, logger)

	_, ok := lastSync.Load()
	assert.False(t, ok)

	result := o.RunFullSync(context.Background())
	require.True(t, result.Success)

	stored, ok := lastSync.Load()
	require.True(t, ok)
	assert.WithinDuration(t, result.StartedAt, stored, time.Second)
}

func TestRunFullSync_FetchFailureKeepsWatermark(t *testing.T) {
	lastSync := checkpoint.NewTimeFile(filepath.Join(t.TempDir(), "last-sync.txt"))
	logger := zap.NewNop()
	access := &fakeAccess{}
	pusher := NewPusher(access, &fakeParking{}, &fakeRules{id: 1}, []int{1}, logger)
	repo := &fakeRepo{vehiclesErr: assert.AnError}
	o := NewOrchestrator(repo, NewGrouper(logger), pusher, access, nil, lastSync, logger)

	result := o.RunFullSync(context.Background())
	assert.False(t, result.Success)

	_, ok := lastSync.Load()
	assert.False(t, ok)
}
