package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"parksync/internal/client/ake"
	"parksync/internal/client/well"
	"parksync/internal/models"
)

const wireTimeLayout = "2006-01-02 15:04:05"

// PushOutcome is the result of one vendor sub-operation for one entity.
type PushOutcome struct {
	Key string
	Op  string
	Err error
}

func (o PushOutcome) Failed() bool {
	return o.Err != nil
}

// AccessClient is the slice of the access control API the pusher needs.
type AccessClient interface {
	BatchUpsertPersons(ctx context.Context, persons []well.PersonUpsert) error
	BatchDeletePersons(ctx context.Context, sourceNos []string) error
	BatchInsertFaces(ctx context.Context, faces []well.FaceUpsert) error
	BatchUpsertGrants(ctx context.Context, grants []well.Grant) error
	BatchUpsertSingleGrants(ctx context.Context, grants []well.SingleGrant) error
	ListDoors(ctx context.Context) ([]well.DoorInfo, error)
}

// ParkingClient is the slice of the parking API the pusher needs.
type ParkingClient interface {
	GetVIPTickets(ctx context.Context, plateNumber, carOwner, vipTypeName string) ([]ake.VIPTicket, error)
	GetBlacklist(ctx context.Context, plateNumber string, pageNumber, pageSize int) ([]ake.BlacklistEntry, error)
	OpenVIPTicket(ctx context.Context, req ake.OpenVIPTicketRequest) error
	RenewVIPTicket(ctx context.Context, ticketSeq, startTime, endTime string) error
	RefundVIPTicket(ctx context.Context, ticketSeq string) error
	AddBlacklist(ctx context.Context, req ake.AddBlacklistRequest) error
	RemoveBlacklist(ctx context.Context, carCode string) error
	AddVisitor(ctx context.Context, req ake.AddVisitorRequest) error
}

// RuleSource resolves a person's time rule id; 0 means unavailable.
type RuleSource interface {
	Resolve(ctx context.Context, personType string, validFrom, validTo *time.Time) int
}

// Pusher maps canonical entities to vendor calls. Sub-operations are
// independent: a failed face upload never blocks the demographic upsert, and
// every call is an idempotent upsert keyed by the entity's natural id, so
// the next scheduled pass is the retry path.
type Pusher struct {
	access  AccessClient
	parking ParkingClient
	rules   RuleSource
	logger  *zap.Logger

	defaultDoorIDs []int
	now            func() time.Time
}

func NewPusher(access AccessClient, parking ParkingClient, rules RuleSource, defaultDoorIDs []int, logger *zap.Logger) *Pusher {
	return &Pusher{
		access:         access,
		parking:        parking,
		rules:          rules,
		logger:         logger,
		defaultDoorIDs: defaultDoorIDs,
		now:            time.Now,
	}
}

// PushPerson synchronizes one person row. Deregistered persons are deleted;
// active persons get a demographic upsert, a face upload when a photo is
// present, and door grants under their resolved rule.
func (p *Pusher) PushPerson(ctx context.Context, doors []well.DoorInfo, row models.PersonRow) []PushOutcome {
	key := row.EmployeeNo

	if row.Deregistered() {
		err := p.access.BatchDeletePersons(ctx, []string{row.EmployeeNo})
		return []PushOutcome{{Key: key, Op: "person_delete", Err: err}}
	}

	var outcomes []PushOutcome

	person := well.PersonUpsert{
		PtSourceNo:   row.ZoneCode,
		UserName:     row.Name,
		SourceNo:     row.EmployeeNo,
		UserType:     1,
		UserState:    1,
		UserSex:      parseSex(row.Sex),
		UserIdentity: row.IDCard,
		PhoneNo:      row.Phone,
		Remark:       row.Department,
	}
	outcomes = append(outcomes, PushOutcome{
		Key: key,
		Op:  "person_upsert",
		Err: p.access.BatchUpsertPersons(ctx, []well.PersonUpsert{person}),
	})

	if row.PhotoBase64 != "" {
		outcomes = append(outcomes, PushOutcome{
			Key: key,
			Op:  "face_upsert",
			Err: p.access.BatchInsertFaces(ctx, []well.FaceUpsert{{
				UserNo:       row.EmployeeNo,
				PhotoCodeStr: row.PhotoBase64,
			}}),
		})
	}

	outcomes = append(outcomes, p.pushGrants(ctx, doors, row))
	return outcomes
}

// pushGrants authorizes the person on their doors. Temporary persons with a
// known validity window get standalone window grants; everyone else gets a
// rule based grant.
func (p *Pusher) pushGrants(ctx context.Context, doors []well.DoorInfo, row models.PersonRow) PushOutcome {
	key := row.EmployeeNo
	doorIDs := p.doorIDsFor(doors, row)
	if len(doorIDs) == 0 {
		return PushOutcome{Key: key, Op: "grant_upsert",
			Err: fmt.Errorf("no doors matched for gate %q", row.GateName)}
	}

	temporary := contains(temporaryPersonTypes, row.PersonType) &&
		row.ValidFrom != nil && row.ValidTo != nil

	if temporary {
		grants := make([]well.SingleGrant, 0, len(doorIDs))
		for _, doorID := range doorIDs {
			grants = append(grants, well.SingleGrant{
				UserNo:    row.EmployeeNo,
				DoorID:    doorID,
				EffectWay: 1,
				TimeModel: 1,
				BeginTime: row.ValidFrom.Format(wireTimeLayout),
				EndTime:   row.ValidTo.Format(wireTimeLayout),
				SourceNo:  row.EmployeeNo,
			})
		}
		return PushOutcome{Key: key, Op: "single_grant_upsert",
			Err: p.access.BatchUpsertSingleGrants(ctx, grants)}
	}

	ruleID := p.rules.Resolve(ctx, row.PersonType, row.ValidFrom, row.ValidTo)
	if ruleID == 0 {
		return PushOutcome{Key: key, Op: "grant_upsert",
			Err: fmt.Errorf("no time rule available for person type %q", row.PersonType)}
	}
	grants := make([]well.Grant, 0, len(doorIDs))
	for _, doorID := range doorIDs {
		grants = append(grants, well.Grant{
			UserNo:    row.EmployeeNo,
			DoorID:    doorID,
			RuleID:    ruleID,
			OutRuleID: ruleID,
			EffectWay: 1,
			SourceNo:  row.EmployeeNo,
		})
	}
	return PushOutcome{Key: key, Op: "grant_upsert",
		Err: p.access.BatchUpsertGrants(ctx, grants)}
}

// doorIDsFor picks the doors a row authorizes: explicit codes first, then a
// gate name match against the door list, then the configured defaults.
func (p *Pusher) doorIDsFor(doors []well.DoorInfo, row models.PersonRow) []int {
	if row.DoorCodes != "" {
		var ids []int
		for _, part := range strings.Split(row.DoorCodes, ",") {
			id, err := strconv.Atoi(strings.TrimSpace(part))
			if err != nil {
				p.logger.Warn("ignoring malformed door code",
					zap.String("employee_no", row.EmployeeNo),
					zap.String("door_code", part))
				continue
			}
			ids = append(ids, id)
		}
		if len(ids) > 0 {
			return ids
		}
	}
	if ids := well.FindDoorIDsByGateName(row.GateName, doors); len(ids) > 0 {
		return ids
	}
	return p.defaultDoorIDs
}

// PushVehicle synchronizes one canonical vehicle. Deregistered plates have
// their active tickets refunded and any inspection flag cleared; visitor
// vehicles are registered as visitors; everything else gets a monthly ticket
// renewed or opened, plus an inspection blacklist entry when flagged.
func (p *Pusher) PushVehicle(ctx context.Context, v *GroupedVehicle) []PushOutcome {
	key := v.PlateNumber

	if v.Deregistered() {
		outcomes := []PushOutcome{{Key: key, Op: "vip_refund", Err: p.refundActiveTickets(ctx, v.PlateNumber)}}
		if v.NeedCheck {
			outcomes = append(outcomes, PushOutcome{
				Key: key, Op: "blacklist_remove",
				Err: p.removeBlacklist(ctx, v.PlateNumber),
			})
		}
		return outcomes
	}

	var outcomes []PushOutcome
	if p.isVisitor(v) {
		outcomes = append(outcomes, PushOutcome{Key: key, Op: "visitor_add", Err: p.addVisitor(ctx, v)})
	} else {
		outcomes = append(outcomes, PushOutcome{Key: key, Op: "vip_open", Err: p.openOrRenewTicket(ctx, v)})
	}

	if v.NeedCheck {
		outcomes = append(outcomes, PushOutcome{Key: key, Op: "blacklist_add", Err: p.addBlacklist(ctx, v)})
	}
	return outcomes
}

func (p *Pusher) isVisitor(v *GroupedVehicle) bool {
	return strings.Contains(v.VIPTypeName, "访客") ||
		strings.Contains(v.VehicleCategory, "访客") ||
		v.TemporaryCard()
}

// refundActiveTickets voids every in-force ticket for a plate. A plate with
// no tickets is not an error.
func (p *Pusher) refundActiveTickets(ctx context.Context, plate string) error {
	tickets, err := p.parking.GetVIPTickets(ctx, plate, "", "")
	if err != nil {
		return fmt.Errorf("failed to query tickets: %w", err)
	}
	for _, ticket := range tickets {
		if !ticket.Active() {
			continue
		}
		if err := p.parking.RefundVIPTicket(ctx, ticket.VIPTicketSeq); err != nil {
			return fmt.Errorf("failed to refund ticket %s: %w", ticket.VIPTicketSeq, err)
		}
	}
	return nil
}

// openOrRenewTicket renews the plate's active ticket to the new validity
// window, or opens a fresh one when none is in force.
func (p *Pusher) openOrRenewTicket(ctx context.Context, v *GroupedVehicle) error {
	start, end := p.validityWindow(v)

	tickets, err := p.parking.GetVIPTickets(ctx, v.PlateNumber, "", "")
	if err != nil {
		return fmt.Errorf("failed to query tickets: %w", err)
	}
	for _, ticket := range tickets {
		if ticket.Active() {
			return p.parking.RenewVIPTicket(ctx, ticket.VIPTicketSeq, start, end)
		}
	}

	owner := v.OwnerName
	if owner == "" {
		owner = v.PlateNumber
	}
	phone := v.OwnerPhone
	if phone == "" {
		// The platform requires a unique phone per owner.
		phone = "13" + strconv.FormatInt(p.now().UnixMilli(), 10)[4:]
	}
	return p.parking.OpenVIPTicket(ctx, ake.OpenVIPTicketRequest{
		VIPTypeName:  vipTypeNameFor(v),
		TicketNo:     v.PlateNumber + "_" + strconv.FormatInt(p.now().UnixMilli(), 10),
		CarOwner:     owner,
		Telphone:     phone,
		Company:      v.Company,
		Department:   v.Company,
		PlateNumbers: []string{v.PlateNumber},
		TimePeriods:  []ake.TimePeriod{{StartTime: start, EndTime: end}},
	})
}

func (p *Pusher) addVisitor(ctx context.Context, v *GroupedVehicle) error {
	start, end := p.validityWindow(v)
	return p.parking.AddVisitor(ctx, ake.AddVisitorRequest{
		CarCode:   v.PlateNumber,
		Owner:     v.OwnerName,
		VisitName: v.OwnerName,
		PhoneNum:  v.OwnerPhone,
		VisitTime: &ake.TimePeriod{StartTime: start, EndTime: end},
	})
}

// addBlacklist flags a plate for inspection. The platform rejects duplicate
// entries, so an already listed plate is left alone.
func (p *Pusher) addBlacklist(ctx context.Context, v *GroupedVehicle) error {
	listed, err := p.blacklisted(ctx, v.PlateNumber)
	if err != nil {
		return fmt.Errorf("failed to query blacklist: %w", err)
	}
	if listed {
		p.logger.Debug("plate already blacklisted, skipping add",
			zap.String("plate", v.PlateNumber))
		return nil
	}

	req := ake.AddBlacklistRequest{
		CarCode:  v.PlateNumber,
		CarOwner: v.OwnerName,
		Reason:   "请停车检查",
		Remark1:  v.CheckReason,
		Remark2:  strings.Join(v.ZoneNames, ","),
	}
	if v.ValidTo != nil {
		start := p.now().Format(wireTimeLayout)
		if v.ValidFrom != nil {
			start = v.ValidFrom.Format(wireTimeLayout)
		}
		req.TimePeriod = &ake.TimePeriod{
			StartTime: start,
			EndTime:   v.ValidTo.Format(wireTimeLayout),
		}
	} else {
		req.Permanent = true
	}
	return p.parking.AddBlacklist(ctx, req)
}

// removeBlacklist clears a plate's inspection flag. Removing a plate that was
// never listed is treated as done, not sent to the vendor.
func (p *Pusher) removeBlacklist(ctx context.Context, plate string) error {
	listed, err := p.blacklisted(ctx, plate)
	if err != nil {
		return fmt.Errorf("failed to query blacklist: %w", err)
	}
	if !listed {
		return nil
	}
	return p.parking.RemoveBlacklist(ctx, plate)
}

func (p *Pusher) blacklisted(ctx context.Context, plate string) (bool, error) {
	entries, err := p.parking.GetBlacklist(ctx, plate, 1, 10)
	if err != nil {
		return false, err
	}
	for _, entry := range entries {
		if entry.CarLicenseNumber == plate {
			return true, nil
		}
	}
	return false, nil
}

// validityWindow returns the plate's window in wire form, defaulting to now
// and one year out when bounds are missing.
func (p *Pusher) validityWindow(v *GroupedVehicle) (string, string) {
	start := p.now()
	if v.ValidFrom != nil {
		start = *v.ValidFrom
	}
	end := p.now().AddDate(1, 0, 0)
	if v.ValidTo != nil {
		end = *v.ValidTo
	}
	return start.Format(wireTimeLayout), end.Format(wireTimeLayout)
}

// vipTypeNameFor derives a parking privilege type from the zone names,
// falling back to the source's own label.
func vipTypeNameFor(v *GroupedVehicle) string {
	if v.VIPTypeName != "" {
		return v.VIPTypeName
	}
	if len(v.ZoneNames) > 0 {
		return v.ZoneNames[0] + "VIP"
	}
	return "VIP"
}

func parseSex(code int) int {
	if code == 2 {
		return 2
	}
	return 1
}
