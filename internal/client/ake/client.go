// Package ake is a client for the parking platform's external command API.
// Every call posts a command envelope to a single endpoint; the business
// payload travels in biz_content, and biz_content.code "0" means success.
package ake

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const apiPath = "/cxfService/external/extReq"

const timeLayout = "2006-01-02 15:04:05"

type Client struct {
	host       string
	httpClient *http.Client
	appKey     string
	operator   string
	now        func() time.Time
}

type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error (%d): %s", e.Status, e.Body)
}

// NewClient builds a parking platform client. operator is the fallback name
// recorded on writes when the caller supplies none.
func NewClient(httpClient *http.Client, host, appKey, operator string) *Client {
	host = strings.TrimRight(host, "/")
	return &Client{
		host:       host,
		httpClient: httpClient,
		appKey:     appKey,
		operator:   operator,
		now:        time.Now,
	}
}

type bizEnvelope struct {
	BizContent json.RawMessage `json:"biz_content"`
}

type bizResult struct {
	Code       string          `json:"code"`
	Msg        string          `json:"msg"`
	TicketList json.RawMessage `json:"ticket_list"`
	BlackList  json.RawMessage `json:"black_list"`
}

func (c *Client) callCommand(ctx context.Context, command string, bizContent map[string]any) (*bizResult, error) {
	envelope := map[string]any{
		"command":     command,
		"message_id":  strconv.FormatInt(c.now().UnixMilli(), 10),
		"device_id":   "",
		"sign_type":   "MD5",
		"charset":     "UTF-8",
		"timestamp":   c.now().Format("20060102150405"),
		"biz_content": bizContent,
		"sign":        c.appKey,
	}
	raw, err := json.Marshal(envelope)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.host+apiPath, bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{Status: resp.StatusCode, Body: string(body)}
	}

	var outer bizEnvelope
	if err := json.Unmarshal(body, &outer); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if len(outer.BizContent) == 0 {
		return nil, fmt.Errorf("ake %s: response missing biz_content", command)
	}
	var result bizResult
	if err := json.Unmarshal(outer.BizContent, &result); err != nil {
		return nil, fmt.Errorf("failed to decode biz_content: %w", err)
	}
	if result.Code != "0" {
		return &result, fmt.Errorf("ake %s: code %s msg %q", command, result.Code, result.Msg)
	}
	return &result, nil
}

func (c *Client) operatorOr(operator string) string {
	if operator != "" {
		return operator
	}
	return c.operator
}

func (c *Client) nowString() string {
	return c.now().Format(timeLayout)
}

// GetVIPTickets queries monthly tickets by plate, owner and type. Empty
// filters match everything.
func (c *Client) GetVIPTickets(ctx context.Context, plateNumber, carOwner, vipTypeName string) ([]VIPTicket, error) {
	result, err := c.callCommand(ctx, "GET_VIP_TICKET", map[string]any{
		"vip_type_name": vipTypeName,
		"car_owner":     carOwner,
		"car_no":        plateNumber,
		"page_num":      "1",
		"page_size":     "100",
	})
	if err != nil {
		return nil, err
	}
	if len(result.TicketList) == 0 {
		return nil, nil
	}
	var tickets []VIPTicket
	if err := json.Unmarshal(result.TicketList, &tickets); err != nil {
		return nil, fmt.Errorf("failed to decode ticket list: %w", err)
	}
	return tickets, nil
}

// OpenVIPTicket opens a monthly ticket.
func (c *Client) OpenVIPTicket(ctx context.Context, req OpenVIPTicketRequest) error {
	carList := make([]map[string]string, 0, len(req.PlateNumbers))
	for _, plate := range req.PlateNumbers {
		carList = append(carList, map[string]string{"car_no": plate})
	}
	periodList := make([]map[string]string, 0, len(req.TimePeriods))
	for _, p := range req.TimePeriods {
		periodList = append(periodList, map[string]string{
			"start_time": p.StartTime,
			"end_time":   p.EndTime,
		})
	}
	_, err := c.callCommand(ctx, "OPEN_VIP_TICKET", map[string]any{
		"vip_type_name":    req.VIPTypeName,
		"ticket_no":        req.TicketNo,
		"car_owner":        req.CarOwner,
		"telphone":         req.Telphone,
		"company":          req.Company,
		"department":       req.Department,
		"sex":              defaultString(req.Sex, "0"),
		"operator":         c.operatorOr(req.Operator),
		"operate_time":     defaultString(req.OperateTime, c.nowString()),
		"original_price":   defaultString(req.OriginalPrice, "0"),
		"discount_price":   defaultString(req.DiscountPrice, "0"),
		"open_value":       defaultString(req.OpenValue, "1"),
		"open_car_count":   defaultString(req.OpenCarCount, "1"),
		"car_list":         carList,
		"time_period_list": periodList,
	})
	return err
}

// RenewVIPTicket moves an existing ticket to a new validity window at no
// charge.
func (c *Client) RenewVIPTicket(ctx context.Context, ticketSeq, startTime, endTime string) error {
	_, err := c.callCommand(ctx, "RENEW_VIP_TICKET", map[string]any{
		"vip_ticket_seq": ticketSeq,
		"start_time":     startTime,
		"end_time":       endTime,
		"operator":       c.operator,
		"operate_time":   c.nowString(),
		"renew_price":    "0",
	})
	return err
}

// RefundVIPTicket voids a ticket with a zero refund.
func (c *Client) RefundVIPTicket(ctx context.Context, ticketSeq string) error {
	_, err := c.callCommand(ctx, "REFUND_VIP_TICKET", map[string]any{
		"vip_ticket_seq": ticketSeq,
		"operator":       c.operator,
		"operate_time":   c.nowString(),
		"refund_price":   "0",
	})
	return err
}

// GetBlacklist queries blacklist entries, optionally filtered by plate.
func (c *Client) GetBlacklist(ctx context.Context, plateNumber string, pageNumber, pageSize int) ([]BlacklistEntry, error) {
	bizContent := map[string]any{
		"page_number": pageNumber,
		"page_size":   pageSize,
	}
	if plateNumber != "" {
		bizContent["car_license_number"] = plateNumber
	}
	result, err := c.callCommand(ctx, "GET_BLACK_LIST", bizContent)
	if err != nil {
		return nil, err
	}
	if len(result.BlackList) == 0 {
		return nil, nil
	}
	var entries []BlacklistEntry
	if err := json.Unmarshal(result.BlackList, &entries); err != nil {
		return nil, fmt.Errorf("failed to decode black list: %w", err)
	}
	return entries, nil
}

// AddBlacklist flags a plate for inspection on every passage.
func (c *Client) AddBlacklist(ctx context.Context, req AddBlacklistRequest) error {
	permanent := 0
	if req.Permanent {
		permanent = 1
	}
	bizContent := map[string]any{
		"vip_type_code": req.VIPTypeCode,
		"vip_type_name": defaultString(req.VIPTypeName, "黑名单"),
		"car_code":      req.CarCode,
		"car_owner":     req.CarOwner,
		"reason":        defaultString(req.Reason, "请停车检查"),
		"is_permament":  permanent,
		"remark1":       req.Remark1,
		"remark2":       req.Remark2,
		"operator":      c.operatorOr(req.Operator),
		"operate_time":  defaultString(req.OperateTime, c.nowString()),
	}
	if req.TimePeriod != nil {
		bizContent["time_period"] = map[string]string{
			"start_time": req.TimePeriod.StartTime,
			"end_time":   req.TimePeriod.EndTime,
		}
	}
	_, err := c.callCommand(ctx, "ADD_BLACK_LIST_CAR", bizContent)
	return err
}

// RemoveBlacklist clears the inspection flag for a plate.
func (c *Client) RemoveBlacklist(ctx context.Context, carCode string) error {
	_, err := c.callCommand(ctx, "REMOVE_BLACK_LIST_CAR", map[string]any{
		"car_code":     carCode,
		"operator":     c.operator,
		"operate_time": c.nowString(),
	})
	return err
}

// AddVisitor registers a temporary visitor vehicle.
func (c *Client) AddVisitor(ctx context.Context, req AddVisitorRequest) error {
	bizContent := map[string]any{
		"car_code":     req.CarCode,
		"owner":        req.Owner,
		"visit_name":   req.VisitName,
		"phonenum":     req.PhoneNum,
		"reason":       defaultString(req.Reason, "来访"),
		"operator":     c.operatorOr(req.Operator),
		"operate_time": defaultString(req.OperateTime, c.nowString()),
	}
	if req.VisitTime != nil {
		bizContent["visit_time"] = map[string]string{
			"start_time": req.VisitTime.StartTime,
			"end_time":   req.VisitTime.EndTime,
		}
	}
	_, err := c.callCommand(ctx, "ADD_VISITOR_CAR", bizContent)
	return err
}

func defaultString(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
