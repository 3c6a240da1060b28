package service

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"parksync/internal/checkpoint"
	"parksync/internal/client/well"
	"parksync/internal/codes"
	"parksync/internal/models"
	"parksync/internal/repository"
)

// GateRecordSource queries pass events from the access control platform.
type GateRecordSource interface {
	ListGateRecords(ctx context.Context, pageIndex, pageSize int, beginMs, endMs int64) ([]well.GateRecord, error)
}

// GateRecordPoller incrementally pulls door pass events back into the source
// store, driven by a persisted millisecond checkpoint.
type GateRecordPoller struct {
	client GateRecordSource
	repo   repository.Repository
	cp     *checkpoint.MillisFile
	logger *zap.Logger

	pageSize int
	running  atomic.Bool
	now      func() time.Time
}

func NewGateRecordPoller(
	client GateRecordSource,
	repo repository.Repository,
	cp *checkpoint.MillisFile,
	pageSize int,
	logger *zap.Logger,
) *GateRecordPoller {
	return &GateRecordPoller{
		client:   client,
		repo:     repo,
		cp:       cp,
		logger:   logger,
		pageSize: pageSize,
		now:      time.Now,
	}
}

// Poll fetches events in [checkpoint, now], writes the valid ones back and
// returns the count written. The checkpoint advances to now only when the
// fetch itself succeeded; per record write failures are logged and retried
// implicitly on the next pass since inserts are keyed by flow number.
func (p *GateRecordPoller) Poll(ctx context.Context) (int, error) {
	if !p.running.CompareAndSwap(false, true) {
		p.logger.Info("gate record poll already running, skipping")
		return 0, nil
	}
	defer p.running.Store(false)

	begin := p.cp.Load()
	end := p.now().UnixMilli()

	records, err := p.client.ListGateRecords(ctx, 1, p.pageSize, begin, end)
	if err != nil {
		// Checkpoint untouched so the same window is retried next cycle.
		return 0, err
	}

	written := 0
	skipped := 0
	for _, record := range records {
		if record.RecStatus != "1" {
			skipped++
			continue
		}
		event := p.toEvent(record)
		if err := p.repo.InsertPersonGateEvent(ctx, event); err != nil {
			p.logger.Warn("failed to write gate event",
				zap.String("flow_no", record.FlowNo),
				zap.Error(err))
			continue
		}
		written++
	}

	if err := p.cp.Store(end); err != nil {
		p.logger.Warn("failed to persist gate poll checkpoint", zap.Error(err))
	}

	p.logger.Info("gate record poll finished",
		zap.Int("fetched", len(records)),
		zap.Int("written", written),
		zap.Int("filtered", skipped))
	return written, nil
}

func (p *GateRecordPoller) toEvent(record well.GateRecord) *models.PersonGateEvent {
	event := &models.PersonGateEvent{
		FlowNo:     record.FlowNo,
		DoorNo:     record.DoorNo,
		DoorName:   record.DoorName,
		DeviceName: record.DeviceName,
		UserNo:     record.UserNo,
		UserName:   record.UserName,
		DeptName:   record.DeptName,
		CardNo:     record.CardNo,
		RecPhoto:   record.RecPhoto,
		AuthMode:   record.AuthMode,
		Direction:  codes.Direction(record.RecDic),
		StatusName: codes.RecStatus(record.RecStatus),
		RecType:    record.RecType,
		SourceNo:   record.SourceNo,
	}
	if record.RecTime != "" {
		if t, err := time.ParseInLocation(wireTimeLayout, record.RecTime, time.Local); err == nil {
			event.RecTime = &t
		} else {
			p.logger.Warn("unparseable gate record time",
				zap.String("flow_no", record.FlowNo),
				zap.String("rec_time", record.RecTime))
		}
	}
	return event
}
