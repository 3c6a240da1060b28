package models

import "time"

// PersonGateEvent is a door access record pulled back from the access control
// side and written locally.
type PersonGateEvent struct {
	ID         uint       `gorm:"column:id;primaryKey;autoIncrement"`
	FlowNo     string     `gorm:"column:flow_no;size:64;uniqueIndex;comment:流水号"`
	DoorNo     string     `gorm:"column:door_no;size:32;comment:门编号"`
	DoorName   string     `gorm:"column:door_name;size:128;comment:门名称"`
	DeviceName string     `gorm:"column:device_name;size:128;comment:设备名称"`
	UserNo     string     `gorm:"column:user_no;size:64;index;comment:人员编号"`
	UserName   string     `gorm:"column:user_name;size:64;comment:人员姓名"`
	DeptName   string     `gorm:"column:dept_name;size:128;comment:部门名称"`
	CardNo     string     `gorm:"column:card_no;size:64;comment:卡号"`
	RecPhoto   string     `gorm:"column:rec_photo;type:text;comment:抓拍照片"`
	AuthMode   string     `gorm:"column:auth_mode;size:32;comment:认证方式"`
	Direction  string     `gorm:"column:direction;size:16;comment:进出方向"`
	StatusName string     `gorm:"column:status_name;size:32;comment:记录状态名称"`
	RecType    string     `gorm:"column:rec_type;size:32;comment:记录类型"`
	RecTime    *time.Time `gorm:"column:rec_time;index;comment:记录时间"`
	SourceNo   string     `gorm:"column:source_no;size:64;comment:来源编号"`
	CreatedAt  time.Time  `gorm:"column:created_at"`
}

func (PersonGateEvent) TableName() string {
	return "person_gate_event"
}

// VehicleGateEvent is a parking lot entry or exit notification received from
// the parking side, stored after code translation.
type VehicleGateEvent struct {
	ID            uint       `gorm:"column:id;primaryKey;autoIncrement"`
	OrderNo       string     `gorm:"column:order_no;size:64;index;comment:订单号"`
	PlateNumber   string     `gorm:"column:plate_number;size:32;index;comment:车牌号码"`
	PlateColor    string     `gorm:"column:plate_color;size:32;comment:号牌颜色"`
	CarType       string     `gorm:"column:car_type;size:32;comment:车辆类型"`
	VIPType       string     `gorm:"column:vip_type;size:32;comment:固定车类型"`
	ParkName      string     `gorm:"column:park_name;size:128;comment:车场名称"`
	GateName      string     `gorm:"column:gate_name;size:128;comment:通道名称"`
	Direction     string     `gorm:"column:direction;size:16;comment:进出方向"`
	PassType      string     `gorm:"column:pass_type;size:32;comment:通行类型"`
	RecType       string     `gorm:"column:rec_type;size:32;comment:记录类型"`
	PassTime      *time.Time `gorm:"column:pass_time;index;comment:通行时间"`
	ParkDuration  string     `gorm:"column:park_duration;size:64;comment:停车时长"`
	FeeAmount     string     `gorm:"column:fee_amount;size:32;comment:收费金额"`
	ImageURL      string     `gorm:"column:image_url;size:512;comment:抓拍图片地址"`
	OperatorName  string     `gorm:"column:operator_name;size:64;comment:操作员"`
	Remark        string     `gorm:"column:remark;size:256;comment:备注"`
	CreatedAt     time.Time  `gorm:"column:created_at"`
}

func (VehicleGateEvent) TableName() string {
	return "vehicle_gate_event"
}
