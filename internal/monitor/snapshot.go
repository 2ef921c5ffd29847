// internal/monitor/snapshot.go

// Package monitor 对外只读投影:房间快照与调度事件观察
// 快照字段名与单位(°C/元/秒)是对外契约,消费方靠相邻快照
// 的差分发现状态变迁,不可随意改名
package monitor

import (
	"math"
	"time"

	"backend/internal/db"
	"backend/internal/scheduler"
	"backend/internal/types"
)

// RoomSnapshot 单个房间的时点快照
type RoomSnapshot struct {
	RoomID        int     `json:"roomId"`
	Status        string  `json:"status"`
	Mode          string  `json:"mode"`
	CurrentTemp   float64 `json:"currentTemp"`
	TargetTemp    float64 `json:"targetTemp"`
	Speed         string  `json:"speed"`
	CurrentFee    float64 `json:"currentFee"`
	TotalFee      float64 `json:"totalFee"`
	ServedSeconds int64   `json:"servedSeconds"`
	WaitedSeconds int64   `json:"waitedSeconds"`
	IsServing     bool    `json:"isServing"`
	IsWaiting     bool    `json:"isWaiting"`
}

// FeeSource 实时费用来源(已落库费用+未关闭段折算)
type FeeSource interface {
	CurrentFee(roomID int, now time.Time) (float64, error)
}

// Service 快照服务,只读,不修改任何核心状态
type Service struct {
	roomRepo *db.RoomRepository
	sched    *scheduler.Scheduler
	fees     FeeSource
}

func NewService(roomRepo *db.RoomRepository, sched *scheduler.Scheduler, fees FeeSource) *Service {
	return &Service{roomRepo: roomRepo, sched: sched, fees: fees}
}

// Snapshots 全部房间的快照
func (s *Service) Snapshots(now time.Time) ([]RoomSnapshot, error) {
	rooms, err := s.roomRepo.GetAllRooms()
	if err != nil {
		return nil, err
	}

	serving, waiting := s.sched.Queues()
	servingSet := make(map[int]struct{}, len(serving))
	for _, svc := range serving {
		servingSet[svc.RoomID] = struct{}{}
	}
	waitingSet := make(map[int]struct{}, len(waiting))
	for _, w := range waiting {
		waitingSet[w.RoomID] = struct{}{}
	}

	snapshots := make([]RoomSnapshot, 0, len(rooms))
	for _, room := range rooms {
		_, isServing := servingSet[room.RoomID]
		_, isWaiting := waitingSet[room.RoomID]
		snap, err := s.build(&room, isServing, isWaiting, now)
		if err != nil {
			return nil, err
		}
		snapshots = append(snapshots, snap)
	}
	return snapshots, nil
}

// Snapshot 单个房间的快照
func (s *Service) Snapshot(roomID int, now time.Time) (*RoomSnapshot, error) {
	room, err := s.roomRepo.GetRoomByID(roomID)
	if err != nil {
		return nil, err
	}
	isServing, isWaiting := s.sched.RoomState(roomID)
	snap, err := s.build(room, isServing, isWaiting, now)
	if err != nil {
		return nil, err
	}
	return &snap, nil
}

func (s *Service) build(room *db.RoomInfo, isServing, isWaiting bool, now time.Time) (RoomSnapshot, error) {
	fee, err := s.fees.CurrentFee(room.RoomID, now)
	if err != nil {
		return RoomSnapshot{}, err
	}

	// 费用全精度计算,只在快照(展示边界)舍入到分
	return RoomSnapshot{
		RoomID:        room.RoomID,
		Status:        string(deriveStatus(room, isServing, isWaiting)),
		Mode:          room.Mode,
		CurrentTemp:   room.CurrentTemp,
		TargetTemp:    room.TargetTemp,
		Speed:         room.CurrentSpeed,
		CurrentFee:    Round2(fee),
		TotalFee:      Round2(room.TotalFee + fee - room.CurrentFee),
		ServedSeconds: int64(math.Round(room.ServedSeconds)),
		WaitedSeconds: int64(math.Round(room.WaitedSeconds)),
		IsServing:     isServing,
		IsWaiting:     isWaiting,
	}, nil
}

// deriveStatus 快照状态由注册态+调度成员关系推导,不单独存储
func deriveStatus(room *db.RoomInfo, isServing, isWaiting bool) types.RoomStatus {
	switch {
	case isServing:
		return types.StatusServing
	case isWaiting:
		return types.StatusWaiting
	case room.State == db.RoomOccupied:
		return types.StatusOccupied
	default:
		return types.StatusIdle
	}
}

// Round2 金额舍入到分,仅用于展示边界
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
