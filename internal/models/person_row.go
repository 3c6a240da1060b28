package models

import "time"

// PersonRow is one raw row of the personnel authorization view. The view is
// denormalized: the same employee can appear on multiple rows, one per zone.
// Rows are immutable once read; only the grouping/sync path consumes them.
type PersonRow struct {
	EmployeeNo     string     `gorm:"column:employee_no;comment:员工编号"`
	Name           string     `gorm:"column:name;comment:姓名"`
	IDCard         string     `gorm:"column:id_card;comment:身份证号"`
	Phone          string     `gorm:"column:phone"`
	Department     string     `gorm:"column:department;comment:单位名称"`
	ZoneCode       string     `gorm:"column:zone_code;comment:厂区代码"`
	PersonType     string     `gorm:"column:person_type;comment:人员类型名称"`
	PersonTypeCode string     `gorm:"column:person_type_code;comment:人员类型编码"`
	Sex            int        `gorm:"column:sex;comment:性别 0未知 1男 2女"`
	PhotoBase64    string     `gorm:"column:photo_base64"`
	ValidFrom      *time.Time `gorm:"column:valid_from;comment:有效期开始"`
	ValidTo        *time.Time `gorm:"column:valid_to;comment:有效期结束"`
	DoorCodes      string     `gorm:"column:door_codes;comment:大门编码,逗号分隔"`
	GateName       string     `gorm:"column:gate_name;comment:大门名称"`
	StatusCode     string     `gorm:"column:status_code;comment:当前状态 A正常 D注销"`
	StatusName     string     `gorm:"column:status_name;comment:当前状态名称"`
	ModifiedAt     *time.Time `gorm:"column:modified_at;comment:操作时间"`
}

func (PersonRow) TableName() string {
	return "view_person_valid_info"
}

// Deregistered reports whether the row carries the deregistered status code.
func (r PersonRow) Deregistered() bool {
	return r.StatusCode == "D"
}
