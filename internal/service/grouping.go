package service

import (
	"time"

	"go.uber.org/zap"

	"parksync/internal/models"
)

// GroupedVehicle is the canonical view of one plate, merged from every source
// row that mentions it. Scalars come from the first row seen, zone lists are
// the deduplicated union in arrival order, and the status fields always track
// the last row seen.
type GroupedVehicle struct {
	PlateNumber     string
	CardNo          string
	OwnerName       string
	OwnerPhone      string
	Company         string
	Department      string
	VehicleType     string
	VehicleCategory string
	PlateColor      string
	BrandModel      string
	VIPTypeName     string
	ValidFrom       *time.Time
	ValidTo         *time.Time
	NeedCheck       bool
	CheckReason     string
	CardType        string

	ZoneCodes []string
	ZoneNames []string

	StatusCode string
	StatusName string

	// Rows keeps every contributing source row for traceability.
	Rows []models.VehicleRow
}

// Deregistered reports whether the plate's most recent row carries the
// deregistered status.
func (v *GroupedVehicle) Deregistered() bool {
	return v.StatusCode == "D"
}

// TemporaryCard reports whether the plate holds a temporary card; those pass
// through the visitor flow instead of getting a monthly ticket.
func (v *GroupedVehicle) TemporaryCard() bool {
	return v.CardType == "D"
}

// Grouper merges raw vehicle rows into canonical per-plate entities.
type Grouper struct {
	logger *zap.Logger
}

func NewGrouper(logger *zap.Logger) *Grouper {
	return &Grouper{logger: logger}
}

// GroupVehiclesByPlate merges rows into one entity per distinct plate,
// returned in first-seen order. Rows must already be sorted by modification
// time ascending so that the last row per plate is the most recent one; the
// grouper does not verify this. Rows without a plate are skipped.
func (g *Grouper) GroupVehiclesByPlate(rows []models.VehicleRow) []*GroupedVehicle {
	byPlate := make(map[string]*GroupedVehicle, len(rows))
	var ordered []*GroupedVehicle

	for _, row := range rows {
		if row.PlateNumber == "" {
			g.logger.Warn("skipping vehicle row without plate number",
				zap.String("owner", row.OwnerName),
				zap.String("zone_code", row.ZoneCode))
			continue
		}

		entity, ok := byPlate[row.PlateNumber]
		if !ok {
			entity = &GroupedVehicle{
				PlateNumber:     row.PlateNumber,
				CardNo:          row.CardNo,
				OwnerName:       row.OwnerName,
				OwnerPhone:      row.OwnerPhone,
				Company:         row.Company,
				Department:      row.Department,
				VehicleType:     row.VehicleType,
				VehicleCategory: row.VehicleCategory,
				PlateColor:      row.PlateColor,
				BrandModel:      row.BrandModel,
				VIPTypeName:     row.VIPTypeName,
				ValidFrom:       row.ValidFrom,
				ValidTo:         row.ValidTo,
				NeedCheck:       row.NeedCheck,
				CheckReason:     row.CheckReason,
				CardType:        row.CardType,
			}
			byPlate[row.PlateNumber] = entity
			ordered = append(ordered, entity)
		}

		if row.ZoneCode != "" && !contains(entity.ZoneCodes, row.ZoneCode) {
			entity.ZoneCodes = append(entity.ZoneCodes, row.ZoneCode)
		}
		if row.ZoneName != "" && !contains(entity.ZoneNames, row.ZoneName) {
			entity.ZoneNames = append(entity.ZoneNames, row.ZoneName)
		}

		// Rows arrive oldest first, so the last write wins.
		entity.StatusCode = row.StatusCode
		entity.StatusName = row.StatusName

		entity.Rows = append(entity.Rows, row)
	}

	g.logger.Info("vehicle rows grouped",
		zap.Int("rows", len(rows)),
		zap.Int("plates", len(ordered)))
	return ordered
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
