package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"parksync/internal/service"
)

type SyncHandler struct {
	Orchestrator *service.Orchestrator
	Tracker      *service.Tracker
}

func (h *SyncHandler) Register(r *gin.Engine) {
	group := r.Group("/api/sync")
	group.GET("/status", h.status)
	group.GET("/history", h.history)
	group.GET("/failed-records", h.failedRecords)
	group.GET("/running", h.running)
	group.POST("/trigger", h.trigger)
}

func (h *SyncHandler) status(c *gin.Context) {
	if h.Tracker == nil {
		Error(c, http.StatusInternalServerError, "tracker unavailable", nil)
		return
	}
	Ok(c, gin.H{
		"running":     h.Orchestrator != nil && h.Orchestrator.Running(),
		"last_result": h.Tracker.Last(),
	}, nil)
}

func (h *SyncHandler) history(c *gin.Context) {
	if h.Tracker == nil {
		Error(c, http.StatusInternalServerError, "tracker unavailable", nil)
		return
	}
	history := h.Tracker.History()
	Ok(c, history, map[string]any{"count": len(history)})
}

func (h *SyncHandler) failedRecords(c *gin.Context) {
	if h.Tracker == nil {
		Error(c, http.StatusInternalServerError, "tracker unavailable", nil)
		return
	}
	failed := h.Tracker.FailedRecords()
	Ok(c, failed, map[string]any{"count": len(failed)})
}

func (h *SyncHandler) running(c *gin.Context) {
	Ok(c, gin.H{"running": h.Orchestrator != nil && h.Orchestrator.Running()}, nil)
}

// trigger starts a pass in the background and acknowledges immediately; the
// caller follows progress through the status endpoints. A pass already in
// flight is reported as skipped, not as an error.
func (h *SyncHandler) trigger(c *gin.Context) {
	if h.Orchestrator == nil {
		Error(c, http.StatusInternalServerError, "orchestrator unavailable", nil)
		return
	}
	if h.Orchestrator.Running() {
		Ok(c, gin.H{"started": false, "message": "sync already running"}, nil)
		return
	}
	go h.Orchestrator.RunFullSync(context.Background())
	Ok(c, gin.H{"started": true}, nil)
}
