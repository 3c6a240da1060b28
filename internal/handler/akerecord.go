package handler

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"parksync/internal/service"
)

// AkeRecordHandler receives the parking platform's asynchronous enter and
// leave notifications. The platform expects its own envelope echoed back with
// a success code regardless of how we fared; failures are logged and the
// event is dropped rather than bounced.
type AkeRecordHandler struct {
	Service *service.AkeRecordService
	Logger  *zap.Logger
}

func (h *AkeRecordHandler) Register(r *gin.Engine) {
	group := r.Group("/api/ake/record")
	group.POST("/reportCarIn", h.reportCarIn)
	group.POST("/reportCarOut", h.reportCarOut)
}

type akeNotification struct {
	Command    string          `json:"command"`
	MessageID  string          `json:"message_id"`
	DeviceID   string          `json:"device_id"`
	BizContent json.RawMessage `json:"biz_content"`
}

func (h *AkeRecordHandler) reportCarIn(c *gin.Context) {
	var envelope akeNotification
	if err := c.ShouldBindJSON(&envelope); err != nil {
		h.Logger.Warn("unreadable enter notification", zap.Error(err))
		h.ack(c, envelope)
		return
	}

	var notice service.CarInNotice
	if err := json.Unmarshal(envelope.BizContent, &notice); err != nil {
		h.Logger.Warn("malformed enter notification payload", zap.Error(err))
		h.ack(c, envelope)
		return
	}
	decodeCarInFields(&notice)

	if err := h.Service.HandleCarIn(c.Request.Context(), notice); err != nil {
		h.Logger.Error("failed to handle enter notification",
			zap.String("plate", notice.Plate()),
			zap.Error(err))
	}
	h.ack(c, envelope)
}

func (h *AkeRecordHandler) reportCarOut(c *gin.Context) {
	var envelope akeNotification
	if err := c.ShouldBindJSON(&envelope); err != nil {
		h.Logger.Warn("unreadable leave notification", zap.Error(err))
		h.ack(c, envelope)
		return
	}

	var notice service.CarOutNotice
	if err := json.Unmarshal(envelope.BizContent, &notice); err != nil {
		h.Logger.Warn("malformed leave notification payload", zap.Error(err))
		h.ack(c, envelope)
		return
	}
	decodeCarOutFields(&notice)

	if err := h.Service.HandleCarOut(c.Request.Context(), notice); err != nil {
		h.Logger.Error("failed to handle leave notification",
			zap.String("plate", notice.Plate()),
			zap.Error(err))
	}
	h.ack(c, envelope)
}

// ack echoes the platform's command envelope with a success payload.
func (h *AkeRecordHandler) ack(c *gin.Context, envelope akeNotification) {
	c.JSON(http.StatusOK, gin.H{
		"command":    envelope.Command,
		"message_id": envelope.MessageID,
		"device_id":  envelope.DeviceID,
		"sign_type":  "MD5",
		"charset":    "UTF-8",
		"biz_content": gin.H{
			"code": "0",
			"msg":  "success",
		},
	})
}

// Some platform deployments URL-encode Chinese text and image paths.
func decodeCarInFields(n *service.CarInNotice) {
	n.CarLicenseNumber = maybeURLDecode(n.CarLicenseNumber)
	n.EnterCarLicense = maybeURLDecode(n.EnterCarLicense)
	n.EnterChannelName = maybeURLDecode(n.EnterChannelName)
	n.EnterCustomVIPName = maybeURLDecode(n.EnterCustomVIPName)
	n.EnterCarFullPicture = maybeURLDecode(n.EnterCarFullPicture)
	n.ParkName = maybeURLDecode(n.ParkName)
}

func decodeCarOutFields(n *service.CarOutNotice) {
	n.CarLicenseNumber = maybeURLDecode(n.CarLicenseNumber)
	n.LeaveCarLicense = maybeURLDecode(n.LeaveCarLicense)
	n.EnterChannelName = maybeURLDecode(n.EnterChannelName)
	n.LeaveChannelName = maybeURLDecode(n.LeaveChannelName)
	n.LeaveCustomVIPName = maybeURLDecode(n.LeaveCustomVIPName)
	n.LeaveCarFullPicture = maybeURLDecode(n.LeaveCarFullPicture)
	n.ParkName = maybeURLDecode(n.ParkName)
	n.Remark = maybeURLDecode(n.Remark)
}

func maybeURLDecode(s string) string {
	if !strings.Contains(s, "%") {
		return s
	}
	decoded, err := url.QueryUnescape(s)
	if err != nil {
		return s
	}
	return decoded
}
