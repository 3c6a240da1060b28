package ake

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturedCall struct {
	envelope map[string]any
	biz      map[string]any
}

func commandServer(t *testing.T, calls *[]capturedCall, response string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/cxfService/external/extReq", r.URL.Path)
		var envelope map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&envelope))
		biz, _ := envelope["biz_content"].(map[string]any)
		*calls = append(*calls, capturedCall{envelope: envelope, biz: biz})
		w.Write([]byte(response))
	}))
}

func fixedClock() time.Time {
	return time.Date(2024, 5, 1, 9, 30, 0, 0, time.Local)
}

func TestCallCommand_EnvelopeShape(t *testing.T) {
	var calls []capturedCall
	srv := commandServer(t, &calls, `{"biz_content":{"code":"0","msg":"success"}}`)
	defer srv.Close()

	c := NewClient(srv.Client(), srv.URL, "secret", "系统同步")
	c.now = fixedClock

	require.NoError(t, c.RemoveBlacklist(context.Background(), "京A12345"))

	require.Len(t, calls, 1)
	env := calls[0].envelope
	assert.Equal(t, "REMOVE_BLACK_LIST_CAR", env["command"])
	assert.Equal(t, "MD5", env["sign_type"])
	assert.Equal(t, "UTF-8", env["charset"])
	assert.Equal(t, "", env["device_id"])
	assert.Equal(t, "20240501093000", env["timestamp"])
	assert.Equal(t, "secret", env["sign"])
	assert.NotEmpty(t, env["message_id"])

	biz := calls[0].biz
	assert.Equal(t, "京A12345", biz["car_code"])
	assert.Equal(t, "系统同步", biz["operator"])
	assert.Equal(t, "2024-05-01 09:30:00", biz["operate_time"])
}

func TestCallCommand_ErrorCode(t *testing.T) {
	var calls []capturedCall
	srv := commandServer(t, &calls, `{"biz_content":{"code":"1001","msg":"车牌不存在"}}`)
	defer srv.Close()

	c := NewClient(srv.Client(), srv.URL, "secret", "系统同步")
	err := c.RefundVIPTicket(context.Background(), "T1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1001")
	assert.Contains(t, err.Error(), "车牌不存在")
}

func TestGetVIPTickets_DecodesList(t *testing.T) {
	var calls []capturedCall
	srv := commandServer(t, &calls,
		`{"biz_content":{"code":"0","ticket_list":[{"vip_ticket_seq":"T1","car_no":"京A12345","ticket_status":"生效中"}]}}`)
	defer srv.Close()

	c := NewClient(srv.Client(), srv.URL, "secret", "系统同步")
	tickets, err := c.GetVIPTickets(context.Background(), "京A12345", "", "")
	require.NoError(t, err)
	require.Len(t, tickets, 1)
	assert.Equal(t, "T1", tickets[0].VIPTicketSeq)
	assert.True(t, tickets[0].Active())

	require.Len(t, calls, 1)
	assert.Equal(t, "GET_VIP_TICKET", calls[0].envelope["command"])
	assert.Equal(t, "京A12345", calls[0].biz["car_no"])
	assert.Equal(t, "1", calls[0].biz["page_num"])
}

func TestOpenVIPTicket_DefaultsAndLists(t *testing.T) {
	var calls []capturedCall
	srv := commandServer(t, &calls, `{"biz_content":{"code":"0"}}`)
	defer srv.Close()

	c := NewClient(srv.Client(), srv.URL, "secret", "系统同步")
	c.now = fixedClock

	err := c.OpenVIPTicket(context.Background(), OpenVIPTicketRequest{
		VIPTypeName:  "一厂区VIP",
		TicketNo:     "京A12345_1714500000000",
		CarOwner:     "张三",
		Telphone:     "13800000000",
		PlateNumbers: []string{"京A12345"},
		TimePeriods:  []TimePeriod{{StartTime: "2024-05-01 00:00:00", EndTime: "2025-05-01 00:00:00"}},
	})
	require.NoError(t, err)

	biz := calls[0].biz
	assert.Equal(t, "0", biz["original_price"])
	assert.Equal(t, "1", biz["open_value"])
	cars, ok := biz["car_list"].([]any)
	require.True(t, ok)
	require.Len(t, cars, 1)
	assert.Equal(t, "京A12345", cars[0].(map[string]any)["car_no"])
	periods := biz["time_period_list"].([]any)
	require.Len(t, periods, 1)
}

func TestAddBlacklist_PermanentFlagAndDefaults(t *testing.T) {
	var calls []capturedCall
	srv := commandServer(t, &calls, `{"biz_content":{"code":"0"}}`)
	defer srv.Close()

	c := NewClient(srv.Client(), srv.URL, "secret", "系统同步")

	require.NoError(t, c.AddBlacklist(context.Background(), AddBlacklistRequest{
		CarCode:   "京A12345",
		Permanent: true,
	}))

	biz := calls[0].biz
	assert.Equal(t, float64(1), biz["is_permament"])
	assert.Equal(t, "黑名单", biz["vip_type_name"])
	assert.Equal(t, "请停车检查", biz["reason"])
	_, hasPeriod := biz["time_period"]
	assert.False(t, hasPeriod)

	require.NoError(t, c.AddBlacklist(context.Background(), AddBlacklistRequest{
		CarCode:    "京B67890",
		TimePeriod: &TimePeriod{StartTime: "2024-05-01 00:00:00", EndTime: "2024-06-01 00:00:00"},
	}))
	biz = calls[1].biz
	assert.Equal(t, float64(0), biz["is_permament"])
	period := biz["time_period"].(map[string]any)
	assert.Equal(t, "2024-05-01 00:00:00", period["start_time"])
}

func TestCallCommand_MissingBizContent(t *testing.T) {
	var calls []capturedCall
	srv := commandServer(t, &calls, `{"status":"ok"}`)
	defer srv.Close()

	c := NewClient(srv.Client(), srv.URL, "secret", "系统同步")
	err := c.RemoveBlacklist(context.Background(), "京A12345")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "biz_content")
}
