// internal/handlers/ac_handler.go

package handlers

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"

	"backend/internal/monitor"
	"backend/internal/scheduler"
	"backend/internal/types"
	"backend/internal/workflow"
)

// ACHandler 顾客空调控制面板
type ACHandler struct {
	sched   *scheduler.Scheduler
	monitor *monitor.Service
	guard   *workflow.RoomGuard
}

func NewACHandler(sched *scheduler.Scheduler, mon *monitor.Service, guard *workflow.RoomGuard) *ACHandler {
	return &ACHandler{sched: sched, monitor: mon, guard: guard}
}

type PowerOnRequest struct {
	RoomID     int     `json:"room_id" binding:"required"`
	Mode       string  `json:"mode" binding:"required"`
	TargetTemp float64 `json:"target_temp" binding:"required"`
	Speed      string  `json:"speed" binding:"required"`
}

type PowerOffRequest struct {
	RoomID int `json:"room_id" binding:"required"`
}

type ChangeTempRequest struct {
	RoomID     int     `json:"room_id" binding:"required"`
	TargetTemp float64 `json:"target_temp" binding:"required"`
}

type ChangeSpeedRequest struct {
	RoomID int    `json:"room_id" binding:"required"`
	Speed  string `json:"speed" binding:"required"`
}

// PowerOn 开机
func (h *ACHandler) PowerOn(c *gin.Context) {
	var req PowerOnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	h.command(c, req.RoomID, func() error {
		return h.sched.PowerOn(req.RoomID, types.Mode(req.Mode), req.TargetTemp, types.Speed(req.Speed))
	})
}

// PowerOff 关机
func (h *ACHandler) PowerOff(c *gin.Context) {
	var req PowerOffRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	h.command(c, req.RoomID, func() error {
		return h.sched.PowerOff(req.RoomID)
	})
}

// ChangeTemp 调节目标温度
func (h *ACHandler) ChangeTemp(c *gin.Context) {
	var req ChangeTempRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	h.command(c, req.RoomID, func() error {
		return h.sched.SetTarget(req.RoomID, req.TargetTemp)
	})
}

// ChangeSpeed 调节风速
func (h *ACHandler) ChangeSpeed(c *gin.Context) {
	var req ChangeSpeedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	h.command(c, req.RoomID, func() error {
		return h.sched.SetSpeed(req.RoomID, types.Speed(req.Speed))
	})
}

// command 统一的命令执行路径:每房间互斥+执行+回快照
func (h *ACHandler) command(c *gin.Context, roomID int, fn func() error) {
	if !h.guard.TryAcquire(roomID) {
		respondError(c, fmt.Errorf("room %d has a command in flight: %w", roomID, types.ErrBusy))
		return
	}
	defer h.guard.Release(roomID)

	if err := fn(); err != nil {
		respondError(c, err)
		return
	}
	snap, err := h.monitor.Snapshot(roomID, time.Now())
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, snap)
}
