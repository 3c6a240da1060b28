package db

import (
	"parksync/internal/models"
)

// AutoMigrate creates the locally owned gate event tables. The personnel and
// vehicle authorization views are managed outside this service and are never
// migrated here.
func AutoMigrate(db *DB) error {
	return db.Gorm.AutoMigrate(
		&models.PersonGateEvent{},
		&models.VehicleGateEvent{},
	)
}
