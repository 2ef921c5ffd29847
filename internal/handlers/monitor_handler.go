// internal/handlers/monitor_handler.go

package handlers

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"backend/internal/monitor"
)

// MonitorHandler 只读监控视图
type MonitorHandler struct {
	monitor *monitor.Service
}

func NewMonitorHandler(mon *monitor.Service) *MonitorHandler {
	return &MonitorHandler{monitor: mon}
}

// Rooms GET /monitor/rooms 全部房间快照
func (h *MonitorHandler) Rooms(c *gin.Context) {
	snapshots, err := h.monitor.Snapshots(time.Now())
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, snapshots)
}

// Room GET /monitor/rooms/:roomId 单房间快照
func (h *MonitorHandler) Room(c *gin.Context) {
	roomID, err := strconv.Atoi(c.Param("roomId"))
	if err != nil {
		badRequest(c, err)
		return
	}
	snap, err := h.monitor.Snapshot(roomID, time.Now())
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, snap)
}
