package service

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/hashicorp/go-multierror"
	"go.uber.org/zap"

	"parksync/internal/checkpoint"
	"parksync/internal/client/well"
	"parksync/internal/repository"
)

// CategoryCount tallies one entity category within a pass.
type CategoryCount struct {
	Total   int `json:"total"`
	Success int `json:"success"`
	Failed  int `json:"failed"`
}

// FailedRecord identifies one entity that could not be fully synchronized.
type FailedRecord struct {
	Key    string `json:"key"`
	Op     string `json:"op"`
	Reason string `json:"reason"`
}

// SyncResult is the outcome of one full synchronization pass.
type SyncResult struct {
	Success    bool           `json:"success"`
	Skipped    bool           `json:"skipped"`
	Message    string         `json:"message,omitempty"`
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt time.Time      `json:"finished_at"`
	Persons    CategoryCount  `json:"persons"`
	Vehicles   CategoryCount  `json:"vehicles"`
	Blacklists CategoryCount  `json:"blacklists"`
	Failed     []FailedRecord `json:"failed,omitempty"`
}

// DoorSource lists doors for grant matching.
type DoorSource interface {
	ListDoors(ctx context.Context) ([]well.DoorInfo, error)
}

// Orchestrator drives full synchronization passes: fetch, group, resolve,
// push, aggregate. At most one pass runs at a time; a trigger while one is in
// flight returns a skipped result without touching the running pass.
type Orchestrator struct {
	repo     repository.Repository
	grouper  *Grouper
	pusher   *Pusher
	doors    DoorSource
	tracker  *Tracker
	lastSync *checkpoint.TimeFile
	logger   *zap.Logger

	running atomic.Bool
	now     func() time.Time
}

func NewOrchestrator(
	repo repository.Repository,
	grouper *Grouper,
	pusher *Pusher,
	doors DoorSource,
	tracker *Tracker,
	lastSync *checkpoint.TimeFile,
	logger *zap.Logger,
) *Orchestrator {
	return &Orchestrator{
		repo:     repo,
		grouper:  grouper,
		pusher:   pusher,
		doors:    doors,
		tracker:  tracker,
		lastSync: lastSync,
		logger:   logger,
		now:      time.Now,
	}
}

// Running reports whether a pass is currently in flight.
func (o *Orchestrator) Running() bool {
	return o.running.Load()
}

// RunFullSync executes one pass and returns its result. The check-then-set on
// the running flag is atomic, so concurrent triggers cannot start a second
// pass.
func (o *Orchestrator) RunFullSync(ctx context.Context) *SyncResult {
	if !o.running.CompareAndSwap(false, true) {
		o.logger.Info("sync already running, skipping trigger")
		return &SyncResult{Skipped: true, Message: "sync already running"}
	}
	defer o.running.Store(false)

	start := o.now()
	result := &SyncResult{StartedAt: start}

	since, _ := o.lastSync.Load()
	o.logger.Info("full sync started", zap.Time("since", since))

	personRows, err := o.repo.ListPersonRowsSince(ctx, since)
	if err != nil {
		return o.finish(result, "failed to fetch person rows: "+err.Error())
	}
	vehicleRows, err := o.repo.ListVehicleRowsSince(ctx, since)
	if err != nil {
		return o.finish(result, "failed to fetch vehicle rows: "+err.Error())
	}
	doors, err := o.doors.ListDoors(ctx)
	if err != nil {
		return o.finish(result, "failed to fetch door list: "+err.Error())
	}

	for _, row := range personRows {
		outcomes := o.pusher.PushPerson(ctx, doors, row)
		o.tally(&result.Persons, result, outcomes)
	}

	vehicles := o.grouper.GroupVehiclesByPlate(vehicleRows)
	for _, vehicle := range vehicles {
		outcomes := o.pusher.PushVehicle(ctx, vehicle)
		var vehicleOutcomes, blacklistOutcomes []PushOutcome
		for _, outcome := range outcomes {
			if outcome.Op == "blacklist_add" || outcome.Op == "blacklist_remove" {
				blacklistOutcomes = append(blacklistOutcomes, outcome)
			} else {
				vehicleOutcomes = append(vehicleOutcomes, outcome)
			}
		}
		o.tally(&result.Vehicles, result, vehicleOutcomes)
		if len(blacklistOutcomes) > 0 {
			o.tally(&result.Blacklists, result, blacklistOutcomes)
		}
	}

	result.Success = true
	result.FinishedAt = o.now()

	// The watermark advances once the bulk fetch succeeded. Entities that
	// failed to push are retried through their failure records, not by
	// re-reading an ever-growing window.
	if err := o.lastSync.Store(start); err != nil {
		o.logger.Warn("failed to persist sync watermark", zap.Error(err))
	}

	o.logger.Info("full sync finished",
		zap.Duration("took", result.FinishedAt.Sub(result.StartedAt)),
		zap.Int("persons", result.Persons.Total),
		zap.Int("vehicles", result.Vehicles.Total),
		zap.Int("failed", len(result.Failed)))

	if o.tracker != nil {
		o.tracker.Record(result)
	}
	return result
}

// tally counts one entity into a category. The entity fails when any of its
// sub-operations failed; the combined reasons become a single failure record.
func (o *Orchestrator) tally(category *CategoryCount, result *SyncResult, outcomes []PushOutcome) {
	if len(outcomes) == 0 {
		return
	}
	category.Total++

	var errs *multierror.Error
	key, op := outcomes[0].Key, ""
	for _, outcome := range outcomes {
		if outcome.Failed() {
			errs = multierror.Append(errs, outcome.Err)
			if op == "" {
				op = outcome.Op
			} else {
				op += "," + outcome.Op
			}
		}
	}
	if err := errs.ErrorOrNil(); err != nil {
		category.Failed++
		result.Failed = append(result.Failed, FailedRecord{Key: key, Op: op, Reason: err.Error()})
		o.logger.Warn("entity sync failed",
			zap.String("key", key),
			zap.String("op", op),
			zap.Error(err))
		return
	}
	category.Success++
}

func (o *Orchestrator) finish(result *SyncResult, message string) *SyncResult {
	result.Success = false
	result.Message = message
	result.FinishedAt = o.now()
	o.logger.Error("full sync aborted", zap.String("reason", message))
	if o.tracker != nil {
		o.tracker.Record(result)
	}
	return result
}
