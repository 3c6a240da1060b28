package repository

import (
	"context"
	"time"

	"parksync/internal/models"
)

// Repository reads the personnel and vehicle authorization views and stores
// pulled-back gate events.
type Repository interface {
	// ListPersonRowsSince returns person view rows modified at or after since,
	// ordered by modification time ascending. A zero since returns everything.
	ListPersonRowsSince(ctx context.Context, since time.Time) ([]models.PersonRow, error)

	// ListVehicleRowsSince returns vehicle view rows modified at or after
	// since, ordered by modification time ascending so repeated plates keep
	// their source order for grouping.
	ListVehicleRowsSince(ctx context.Context, since time.Time) ([]models.VehicleRow, error)

	InsertPersonGateEvent(ctx context.Context, event *models.PersonGateEvent) error

	InsertVehicleGateEvent(ctx context.Context, event *models.VehicleGateEvent) error
	HasVehicleGateEvent(ctx context.Context, orderNo string, passTime time.Time) (bool, error)

	Ping(ctx context.Context) error
}
