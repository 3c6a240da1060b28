package gormrepository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"parksync/internal/models"
)

type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) ListPersonRowsSince(ctx context.Context, since time.Time) ([]models.PersonRow, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := s.db.WithContext(ctx).Model(&models.PersonRow{})
	if !since.IsZero() {
		query = query.Where("modified_at >= ?", since)
	}
	var rows []models.PersonRow
	if err := query.Order("modified_at ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *Store) ListVehicleRowsSince(ctx context.Context, since time.Time) ([]models.VehicleRow, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := s.db.WithContext(ctx).Model(&models.VehicleRow{})
	if !since.IsZero() {
		query = query.Where("modified_at >= ?", since)
	}
	var rows []models.VehicleRow
	if err := query.Order("modified_at ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *Store) InsertPersonGateEvent(ctx context.Context, event *models.PersonGateEvent) error {
	if s == nil || s.db == nil || event == nil {
		return nil
	}
	// Replays of the same poll window must not duplicate rows.
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "flow_no"}},
		DoNothing: true,
	}).Create(event).Error
}

func (s *Store) InsertVehicleGateEvent(ctx context.Context, event *models.VehicleGateEvent) error {
	if s == nil || s.db == nil || event == nil {
		return nil
	}
	return s.db.WithContext(ctx).Create(event).Error
}

func (s *Store) HasVehicleGateEvent(ctx context.Context, orderNo string, passTime time.Time) (bool, error) {
	if s == nil || s.db == nil || orderNo == "" {
		return false, nil
	}
	query := s.db.WithContext(ctx).Model(&models.VehicleGateEvent{}).
		Where("order_no = ?", orderNo)
	if !passTime.IsZero() {
		query = query.Where("pass_time = ?", passTime)
	}
	var count int64
	err := query.Count(&count).Error
	return count > 0, err
}

func (s *Store) Ping(ctx context.Context) error {
	if s == nil || s.db == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
