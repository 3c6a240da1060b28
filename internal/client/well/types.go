package well

// PersonUpsert creates or updates a person keyed by SourceNo.
type PersonUpsert struct {
	PtSourceNo   string `json:"ptSourceNo"`
	UserName     string `json:"userName"`
	SourceNo     string `json:"sourceNo"`
	UserType     int    `json:"userType"`
	UserState    int    `json:"userState"`
	UserSex      int    `json:"userSex"`
	UserIdentity string `json:"userIdentity"`
	PhoneNo      string `json:"phoneNo"`
	Remark       string `json:"remark"`
}

// FaceUpsert binds a face photo to a person. Either a URL or a base64 payload
// is accepted by the device platform.
type FaceUpsert struct {
	UserNo       string `json:"userNo"`
	PhotoURL     string `json:"photoUrl"`
	PhotoCodeStr string `json:"photoCodeStr"`
}

// Grant authorizes a person on a door under a time rule.
type Grant struct {
	UserID    int    `json:"userId,omitempty"`
	UserNo    string `json:"userNo"`
	DoorID    int    `json:"doorId"`
	RuleID    int    `json:"ruleId"`
	OutRuleID int    `json:"outRuleId"`
	EffectWay int    `json:"effectWay"`
	SourceNo  string `json:"sourceNo"`
}

// SingleGrant authorizes a person on a door for a standalone time window,
// without a shared time rule.
type SingleGrant struct {
	UserID    int    `json:"userId,omitempty"`
	UserNo    string `json:"userNo"`
	DoorID    int    `json:"doorId"`
	EffectWay int    `json:"effectWay"`
	TimeModel int    `json:"timeModel"`
	BeginTime string `json:"beginTime"`
	EndTime   string `json:"endTime"`
	SourceNo  string `json:"sourceNo"`
}

type TimeRuleItem struct {
	RuleItemName string `json:"ruleItemName"`
	BeginDate    string `json:"beginDate"`
	EndDate      string `json:"endDate"`
	MonthBegin   int    `json:"monthBegin"`
	MonthEnd     int    `json:"monthEnd"`
	WeekBegin    int    `json:"weekBegin"`
	WeekEnd      int    `json:"weekEnd"`
	DayBegin     int    `json:"dayBegin"`
	DayEnd       int    `json:"dayEnd"`
	TimeBegin1   string `json:"timeBegin1"`
	TimeEnd1     string `json:"timeEnd1"`
	TimeBegin2   string `json:"timeBegin2"`
	TimeEnd2     string `json:"timeEnd2"`
	TimeBegin3   string `json:"timeBegin3"`
	TimeEnd3     string `json:"timeEnd3"`
	TimeBegin4   string `json:"timeBegin4"`
	TimeEnd4     string `json:"timeEnd4"`
}

// TimeRuleUpsert creates or updates a named passage time rule.
type TimeRuleUpsert struct {
	RuleName string         `json:"ruleName"`
	SourceNo string         `json:"sourceNo"`
	ItemList []TimeRuleItem `json:"itemList"`
}

// TimeRuleInfo is a rule as reported by the device platform.
type TimeRuleInfo struct {
	RuleID   int    `json:"ruleId"`
	RuleName string `json:"ruleName"`
	SourceNo string `json:"sourceNo"`
}

// DoorInfo describes one access controlled door.
type DoorInfo struct {
	DoorID     int    `json:"doorId"`
	DoorName   string `json:"doorName"`
	PlaceName  string `json:"placeName"`
	DeviceID   int    `json:"deviceId"`
	DeviceName string `json:"deviceName"`
	DoorType   int    `json:"doorType"`
	DoorState  int    `json:"doorState"`
}

// GateRecord is one pass event returned by the record query endpoint.
// RecDic holds the direction code, RecStatus the validity code.
type GateRecord struct {
	FlowNo     string `json:"flowNo"`
	PlaceName  string `json:"placeName"`
	DoorNo     string `json:"doorNo"`
	DoorName   string `json:"doorName"`
	DeviceName string `json:"deviceName"`
	UserNo     string `json:"userNo"`
	UserName   string `json:"userName"`
	DeptName   string `json:"deptName"`
	CardNo     string `json:"cardNo"`
	RecPhoto   string `json:"recPhoto"`
	AuthMode   string `json:"authMode"`
	RecDic     string `json:"recDic"`
	RecStatus  string `json:"recStatus"`
	RecType    string `json:"recType"`
	RecTime    string `json:"recTime"`
	SourceNo   string `json:"sourceNo"`
}
