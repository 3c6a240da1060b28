package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"parksync/internal/codes"
	"parksync/internal/models"
	"parksync/internal/repository"
)

// CarInNotice is the typed business payload of a vehicle-enter notification.
type CarInNotice struct {
	OrderNo             string `json:"order_no"`
	CarLicenseNumber    string `json:"car_license_number"`
	EnterCarLicense     string `json:"enter_car_license_number"`
	EnterTime           string `json:"enter_time"`
	EnterChannelName    string `json:"enter_channel_name"`
	EnterType           string `json:"enter_type"`
	EnterVIPType        string `json:"enter_vip_type"`
	EnterCustomVIPName  string `json:"enter_custom_vip_name"`
	EnterCarColor       string `json:"enter_car_license_color"`
	EnterCarType        string `json:"enter_car_type"`
	EnterCarFullPicture string `json:"enter_car_full_picture"`
	ParkName            string `json:"park_name"`
	Operator            string `json:"operator"`
}

// Plate returns whichever plate field the platform filled in.
func (n CarInNotice) Plate() string {
	if n.CarLicenseNumber != "" {
		return n.CarLicenseNumber
	}
	return n.EnterCarLicense
}

// CarOutNotice is the typed business payload of a vehicle-leave notification.
type CarOutNotice struct {
	OrderNo             string `json:"order_no"`
	CarLicenseNumber    string `json:"car_license_number"`
	LeaveCarLicense     string `json:"leave_car_license_number"`
	EnterTime           string `json:"enter_time"`
	LeaveTime           string `json:"leave_time"`
	EnterChannelName    string `json:"enter_channel_name"`
	LeaveChannelName    string `json:"leave_channel_name"`
	EnterType           string `json:"enter_type"`
	LeaveType           string `json:"leave_type"`
	EnterVIPType        string `json:"enter_vip_type"`
	LeaveVIPType        string `json:"leave_vip_type"`
	LeaveCustomVIPName  string `json:"leave_custom_vip_name"`
	AmountReceivable    string `json:"amount_receivable"`
	LeaveCarColor       string `json:"leave_car_license_color"`
	LeaveCarType        string `json:"leave_car_type"`
	RecordType          string `json:"record_type"`
	StoppingTime        string `json:"stopping_time"`
	Remark              string `json:"remark"`
	LeaveCarFullPicture string `json:"leave_car_full_picture"`
	ParkName            string `json:"park_name"`
	Operator            string `json:"operator"`
}

// Plate returns whichever plate field the platform filled in.
func (n CarOutNotice) Plate() string {
	if n.CarLicenseNumber != "" {
		return n.CarLicenseNumber
	}
	return n.LeaveCarLicense
}

// AkeRecordService translates inbound parking notifications into stored gate
// events. Malformed notices are rejected to the caller; they never feed the
// sync pass.
type AkeRecordService struct {
	repo         repository.Repository
	logger       *zap.Logger
	imageBaseURL string
}

func NewAkeRecordService(repo repository.Repository, imageBaseURL string, logger *zap.Logger) *AkeRecordService {
	return &AkeRecordService{
		repo:         repo,
		logger:       logger,
		imageBaseURL: imageBaseURL,
	}
}

// HandleCarIn stores one vehicle-enter notification.
func (s *AkeRecordService) HandleCarIn(ctx context.Context, notice CarInNotice) error {
	plate := notice.Plate()
	if plate == "" {
		return fmt.Errorf("enter notice missing plate number")
	}

	event := &models.VehicleGateEvent{
		OrderNo:      notice.OrderNo,
		PlateNumber:  plate,
		PlateColor:   s.label(plate, "plate_color", notice.EnterCarColor, codes.PlateColor),
		CarType:      s.label(plate, "car_type", notice.EnterCarType, codes.CarType),
		VIPType:      s.vipType(plate, notice.EnterVIPType, notice.EnterCustomVIPName),
		ParkName:     notice.ParkName,
		GateName:     notice.EnterChannelName,
		Direction:    "进场",
		PassType:     s.label(plate, "pass_type", notice.EnterType, codes.PassType),
		RecType:      "正常记录",
		PassTime:     s.parseTime(notice.EnterTime, plate),
		ImageURL:     codes.PrefixImageURL(s.imageBaseURL, notice.EnterCarFullPicture),
		OperatorName: notice.Operator,
	}

	if notice.EnterVIPType == strconv.Itoa(codes.BlacklistVIPType) {
		s.logger.Warn("blacklisted vehicle entered",
			zap.String("plate", plate),
			zap.String("channel", notice.EnterChannelName))
	}

	if dup, err := s.duplicate(ctx, event); err != nil {
		return err
	} else if dup {
		s.logger.Debug("duplicate enter notice dropped", zap.String("plate", plate))
		return nil
	}

	if err := s.repo.InsertVehicleGateEvent(ctx, event); err != nil {
		return fmt.Errorf("failed to store enter event: %w", err)
	}
	s.logger.Info("vehicle enter recorded",
		zap.String("plate", plate),
		zap.String("channel", notice.EnterChannelName))
	return nil
}

// HandleCarOut stores one vehicle-leave notification, including the fee and
// the formatted parking duration.
func (s *AkeRecordService) HandleCarOut(ctx context.Context, notice CarOutNotice) error {
	plate := notice.Plate()
	if plate == "" {
		return fmt.Errorf("leave notice missing plate number")
	}

	fee := decimal.Zero
	if notice.AmountReceivable != "" {
		parsed, err := decimal.NewFromString(notice.AmountReceivable)
		if err != nil {
			s.logger.Warn("unparseable fee amount on leave notice",
				zap.String("plate", plate),
				zap.String("amount", notice.AmountReceivable))
		} else {
			fee = parsed
		}
	}

	duration := "0秒"
	if notice.StoppingTime != "" {
		seconds, err := strconv.Atoi(notice.StoppingTime)
		if err != nil {
			s.logger.Warn("unparseable parking duration on leave notice",
				zap.String("plate", plate),
				zap.String("stopping_time", notice.StoppingTime))
		} else {
			duration = codes.FormatParkingDuration(seconds)
		}
	}

	event := &models.VehicleGateEvent{
		OrderNo:      notice.OrderNo,
		PlateNumber:  plate,
		PlateColor:   s.label(plate, "plate_color", notice.LeaveCarColor, codes.PlateColor),
		CarType:      s.label(plate, "car_type", notice.LeaveCarType, codes.CarType),
		VIPType:      s.vipType(plate, notice.LeaveVIPType, notice.LeaveCustomVIPName),
		ParkName:     notice.ParkName,
		GateName:     notice.LeaveChannelName,
		Direction:    "离场",
		PassType:     s.label(plate, "pass_type", notice.LeaveType, codes.PassType),
		RecType:      s.label(plate, "record_type", notice.RecordType, codes.RecordType),
		PassTime:     s.parseTime(notice.LeaveTime, plate),
		ParkDuration: duration,
		FeeAmount:    fee.String(),
		ImageURL:     codes.PrefixImageURL(s.imageBaseURL, notice.LeaveCarFullPicture),
		OperatorName: notice.Operator,
		Remark:       notice.Remark,
	}

	if dup, err := s.duplicate(ctx, event); err != nil {
		return err
	} else if dup {
		s.logger.Debug("duplicate leave notice dropped", zap.String("plate", plate))
		return nil
	}

	if err := s.repo.InsertVehicleGateEvent(ctx, event); err != nil {
		return fmt.Errorf("failed to store leave event: %w", err)
	}
	s.logger.Info("vehicle leave recorded",
		zap.String("plate", plate),
		zap.String("channel", notice.LeaveChannelName),
		zap.String("fee", fee.String()))
	return nil
}

func (s *AkeRecordService) vipType(plate, code, customName string) string {
	if customName != "" {
		return customName
	}
	return s.label(plate, "vip_type", code, codes.VIPType)
}

// label translates a dictionary code. Non-numeric input passes through the
// code tables unchanged, so flag it here; the platform contract promises
// numeric codes on these fields.
func (s *AkeRecordService) label(plate, field, raw string, translate func(string) string) string {
	if raw != "" {
		if _, err := strconv.Atoi(raw); err != nil {
			s.logger.Warn("non-numeric dictionary code on notice",
				zap.String("plate", plate),
				zap.String("field", field),
				zap.String("code", raw))
		}
	}
	return translate(raw)
}

func (s *AkeRecordService) parseTime(value, plate string) *time.Time {
	if value == "" {
		return nil
	}
	t, err := time.ParseInLocation(wireTimeLayout, value, time.Local)
	if err != nil {
		s.logger.Warn("unparseable pass time on notice",
			zap.String("plate", plate),
			zap.String("time", value))
		return nil
	}
	return &t
}

func (s *AkeRecordService) duplicate(ctx context.Context, event *models.VehicleGateEvent) (bool, error) {
	if event.OrderNo == "" {
		return false, nil
	}
	passTime := time.Time{}
	if event.PassTime != nil {
		passTime = *event.PassTime
	}
	dup, err := s.repo.HasVehicleGateEvent(ctx, event.OrderNo, passTime)
	if err != nil {
		return false, fmt.Errorf("failed to check for duplicate event: %w", err)
	}
	return dup, nil
}
