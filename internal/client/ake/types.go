package ake

// VIPTicket is one monthly ticket as reported by the parking platform.
// TicketStatus "1" (or the label "生效中") marks an active ticket.
type VIPTicket struct {
	TicketNo     string `json:"ticket_no"`
	VIPTicketSeq string `json:"vip_ticket_seq"`
	VIPTypeName  string `json:"vip_type_name"`
	CarOwner     string `json:"car_owner"`
	Telphone     string `json:"telphone"`
	CarNo        string `json:"car_no"`
	TicketStatus string `json:"ticket_status"`
	StartTime    string `json:"start_time"`
	EndTime      string `json:"end_time"`
}

// Active reports whether the ticket is currently in force.
func (t VIPTicket) Active() bool {
	return t.TicketStatus == "1" || t.TicketStatus == "生效中"
}

// TimePeriod is a validity window in "2006-01-02 15:04:05" form.
type TimePeriod struct {
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

// OpenVIPTicketRequest opens a monthly ticket for one or more plates.
type OpenVIPTicketRequest struct {
	VIPTypeName   string
	TicketNo      string
	CarOwner      string
	Telphone      string
	Company       string
	Department    string
	Sex           string
	Operator      string
	OperateTime   string
	OriginalPrice string
	DiscountPrice string
	OpenValue     string
	OpenCarCount  string
	PlateNumbers  []string
	TimePeriods   []TimePeriod
}

// AddBlacklistRequest flags a plate for mandatory stop and inspection.
type AddBlacklistRequest struct {
	VIPTypeCode string
	VIPTypeName string
	CarCode     string
	CarOwner    string
	Reason      string
	Permanent   bool
	TimePeriod  *TimePeriod
	Remark1     string
	Remark2     string
	Operator    string
	OperateTime string
}

// AddVisitorRequest registers a temporary visitor vehicle.
type AddVisitorRequest struct {
	CarCode     string
	Owner       string
	VisitName   string
	PhoneNum    string
	Reason      string
	Operator    string
	OperateTime string
	VisitTime   *TimePeriod
}

// BlacklistEntry is one blacklist record as reported by the platform.
type BlacklistEntry struct {
	BlacklistSeq         string `json:"blacklist_seq"`
	CarLicenseNumber     string `json:"car_license_number"`
	VIPName              string `json:"vip_name"`
	Owner                string `json:"owner"`
	Reason               string `json:"reason"`
	TimePeriodList       string `json:"timeperiod_list"`
	BlacklistForeverFlag string `json:"blacklist_forever_flag"`
	AddBy                string `json:"add_by"`
	AddTime              string `json:"add_time"`
	OperateBy            string `json:"operate_by"`
	OperateTime          string `json:"operate_time"`
}
