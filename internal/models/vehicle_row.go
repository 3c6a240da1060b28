package models

import "time"

// VehicleRow is one raw row of the vehicle authorization view. One plate may
// appear on several rows, one per zone the vehicle is authorized for; the
// grouping step merges them into a single entity.
type VehicleRow struct {
	PlateNumber     string     `gorm:"column:plate_number;comment:车牌号码"`
	CardNo          string     `gorm:"column:card_no;comment:卡号"`
	OwnerName       string     `gorm:"column:owner_name;comment:驾驶员姓名"`
	OwnerPhone      string     `gorm:"column:owner_phone"`
	Company         string     `gorm:"column:company;comment:单位名称"`
	Department      string     `gorm:"column:department"`
	ZoneCode        string     `gorm:"column:zone_code;comment:厂区代码"`
	ZoneName        string     `gorm:"column:zone_name;comment:厂区名称"`
	VehicleType     string     `gorm:"column:vehicle_type;comment:车辆类型名称"`
	VehicleCategory string     `gorm:"column:vehicle_category;comment:车辆类别名称"`
	PlateColor      string     `gorm:"column:plate_color;comment:号牌颜色名称"`
	BrandModel      string     `gorm:"column:brand_model;comment:品牌型号"`
	VIPTypeName     string     `gorm:"column:vip_type_name"`
	ValidFrom       *time.Time `gorm:"column:valid_from;comment:有效期开始"`
	ValidTo         *time.Time `gorm:"column:valid_to;comment:有效期结束"`
	NeedCheck       bool       `gorm:"column:need_check;comment:是否停车检查"`
	CheckReason     string     `gorm:"column:check_reason;comment:检查原因"`
	StatusCode      string     `gorm:"column:status_code;comment:当前状态 A正常 D注销"`
	StatusName      string     `gorm:"column:status_name;comment:当前状态名称"`
	CardType        string     `gorm:"column:card_type;comment:卡类型 A长期 D临时"`
	ModifiedAt      *time.Time `gorm:"column:modified_at;comment:操作时间"`
}

func (VehicleRow) TableName() string {
	return "view_vehicle_valid_info"
}

func (r VehicleRow) Deregistered() bool {
	return r.StatusCode == "D"
}
