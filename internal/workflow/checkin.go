// internal/workflow/checkin.go

// Package workflow 实现入住/退房的分阶段向导
// 每个流程实例持久化当前阶段,客户端断线重连后续办,
// 已完成的阶段只回显不重做
package workflow

import (
	"fmt"
	"strings"
	"time"

	"backend/internal/db"
	"backend/internal/events"
	"backend/internal/logger"
	"backend/internal/types"
)

// 入住日期接受的格式
var checkinDateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// CheckinService 入住向导
// 阶段严格有序: 登记→查房态→选房→下单→押金(可跳过)→发卡(可跳过)
type CheckinService struct {
	flowRepo    *db.FlowRepository
	roomRepo    *db.RoomRepository
	orderRepo   *db.OrderRepository
	guard       *RoomGuard
	bus         *events.EventBus
	defaultTemp float64
}

func NewCheckinService(flowRepo *db.FlowRepository, roomRepo *db.RoomRepository,
	orderRepo *db.OrderRepository, guard *RoomGuard, bus *events.EventBus, defaultTemp float64) *CheckinService {
	return &CheckinService{
		flowRepo:    flowRepo,
		roomRepo:    roomRepo,
		orderRepo:   orderRepo,
		guard:       guard,
		bus:         bus,
		defaultTemp: defaultTemp,
	}
}

// RegisterCustomer 登记客户信息,创建流程实例
func (s *CheckinService) RegisterCustomer(clientID, clientName string, guests int, dateStr string) (*db.CheckinFlow, error) {
	if strings.TrimSpace(clientID) == "" || strings.TrimSpace(clientName) == "" {
		return nil, fmt.Errorf("client id and name required: %w", types.ErrValidation)
	}
	if guests < 1 {
		return nil, fmt.Errorf("guest count must be >= 1: %w", types.ErrValidation)
	}
	date, err := parseCheckinDate(dateStr)
	if err != nil {
		return nil, err
	}

	flow := &db.CheckinFlow{
		Stage:       db.StageCheckRoom,
		ClientID:    strings.TrimSpace(clientID),
		ClientName:  strings.TrimSpace(clientName),
		GuestCount:  guests,
		CheckinDate: date,
	}
	if err := s.flowRepo.CreateCheckinFlow(flow); err != nil {
		return nil, err
	}
	logger.Info("入住登记 - 流程 %d, 客户 %s", flow.ID, flow.ClientName)
	return flow, nil
}

// CheckRoomState 查询当前可入住房间
// 幂等可重复调用;首次调用推进阶段,之后只重新出快照
func (s *CheckinService) CheckRoomState(flowID uint) (*db.CheckinFlow, []db.RoomInfo, error) {
	flow, err := s.flowRepo.GetCheckinFlow(flowID)
	if err != nil {
		return nil, nil, err
	}
	rooms, err := s.roomRepo.GetAvailableRooms()
	if err != nil {
		return nil, nil, err
	}
	if flow.Stage == db.StageCheckRoom {
		flow.Stage = db.StageSelectRoom
		if err := s.flowRepo.SaveCheckinFlow(flow); err != nil {
			return nil, nil, err
		}
	}
	return flow, rooms, nil
}

// SelectRoom 选定目标房间
// 下单冲突后允许重新选房,所以create_order阶段也可再进
func (s *CheckinService) SelectRoom(flowID uint, roomID int) (*db.CheckinFlow, error) {
	flow, err := s.flowRepo.GetCheckinFlow(flowID)
	if err != nil {
		return nil, err
	}
	if flow.Stage != db.StageSelectRoom && flow.Stage != db.StageCreateOrder {
		return nil, fmt.Errorf("flow %d at stage %s, cannot select room: %w", flowID, flow.Stage, types.ErrConflict)
	}
	room, err := s.roomRepo.GetRoomByID(roomID)
	if err != nil {
		return nil, err
	}
	if room.State != db.RoomVacant {
		return nil, fmt.Errorf("room %d not vacant: %w", roomID, types.ErrConflict)
	}

	flow.RoomID = roomID
	flow.Stage = db.StageCreateOrder
	if err := s.flowRepo.SaveCheckinFlow(flow); err != nil {
		return nil, err
	}
	return flow, nil
}

// CreateOrder 创建住宿订单,提交点
// 房间空闲状态在此处原子复核,选房快照之后被别人占用则返回Conflict
func (s *CheckinService) CreateOrder(flowID uint) (*db.CheckinFlow, *db.Order, error) {
	flow, err := s.flowRepo.GetCheckinFlow(flowID)
	if err != nil {
		return nil, nil, err
	}
	if flow.Stage != db.StageCreateOrder {
		return nil, nil, fmt.Errorf("flow %d at stage %s, cannot create order: %w", flowID, flow.Stage, types.ErrConflict)
	}

	if !s.guard.TryAcquire(flow.RoomID) {
		return nil, nil, fmt.Errorf("room %d has a command in flight: %w", flow.RoomID, types.ErrBusy)
	}
	defer s.guard.Release(flow.RoomID)

	occupied, err := s.roomRepo.OccupyIfVacant(flow.RoomID, flow.ClientID, flow.ClientName,
		flow.GuestCount, flow.CheckinDate, s.defaultTemp)
	if err != nil {
		return nil, nil, err
	}
	if !occupied {
		return nil, nil, fmt.Errorf("room %d occupied since snapshot: %w", flow.RoomID, types.ErrConflict)
	}

	order := &db.Order{
		RoomID:      flow.RoomID,
		ClientID:    flow.ClientID,
		ClientName:  flow.ClientName,
		GuestCount:  flow.GuestCount,
		CheckinTime: flow.CheckinDate,
	}
	if err := s.orderRepo.CreateOrder(order); err != nil {
		return nil, nil, err
	}

	flow.OrderID = order.ID
	flow.Stage = db.StageDeposit
	if err := s.flowRepo.SaveCheckinFlow(flow); err != nil {
		return nil, nil, err
	}

	if s.bus != nil {
		s.bus.Publish(events.Event{Type: events.EventRoomCheckIn, RoomID: flow.RoomID, Timestamp: time.Now()})
	}
	logger.Info("入住完成 - 房间 %d, 订单 %d, 客户 %s", flow.RoomID, order.ID, flow.ClientName)
	return flow, order, nil
}

// Deposit 记录押金(可选阶段)
func (s *CheckinService) Deposit(flowID uint, amount float64) (*db.CheckinFlow, error) {
	if amount < 0 {
		return nil, fmt.Errorf("deposit must be >= 0: %w", types.ErrValidation)
	}
	flow, err := s.requireStage(flowID, db.StageDeposit)
	if err != nil {
		return nil, err
	}
	if err := s.orderRepo.UpdateDeposit(flow.OrderID, amount); err != nil {
		return nil, err
	}
	flow.Deposit = amount
	flow.Stage = db.StageIssueKey
	if err := s.flowRepo.SaveCheckinFlow(flow); err != nil {
		return nil, err
	}
	return flow, nil
}

// SkipDeposit 跳过押金,与正常完成汇入同一后继阶段
func (s *CheckinService) SkipDeposit(flowID uint) (*db.CheckinFlow, error) {
	flow, err := s.requireStage(flowID, db.StageDeposit)
	if err != nil {
		return nil, err
	}
	flow.Stage = db.StageIssueKey
	if err := s.flowRepo.SaveCheckinFlow(flow); err != nil {
		return nil, err
	}
	return flow, nil
}

// IssueKey 发放房卡(可选阶段),完成后流程结束
func (s *CheckinService) IssueKey(flowID uint) (*db.CheckinFlow, error) {
	flow, err := s.requireStage(flowID, db.StageIssueKey)
	if err != nil {
		return nil, err
	}
	flow.KeyIssued = true
	flow.Stage = db.StageDone
	if err := s.flowRepo.SaveCheckinFlow(flow); err != nil {
		return nil, err
	}
	return flow, nil
}

// SkipIssueKey 跳过发卡
func (s *CheckinService) SkipIssueKey(flowID uint) (*db.CheckinFlow, error) {
	flow, err := s.requireStage(flowID, db.StageIssueKey)
	if err != nil {
		return nil, err
	}
	flow.Stage = db.StageDone
	if err := s.flowRepo.SaveCheckinFlow(flow); err != nil {
		return nil, err
	}
	return flow, nil
}

// GetFlow 查询流程现状,断点续办的入口
func (s *CheckinService) GetFlow(flowID uint) (*db.CheckinFlow, error) {
	return s.flowRepo.GetCheckinFlow(flowID)
}

func (s *CheckinService) requireStage(flowID uint, stage string) (*db.CheckinFlow, error) {
	flow, err := s.flowRepo.GetCheckinFlow(flowID)
	if err != nil {
		return nil, err
	}
	if flow.Stage != stage {
		return nil, fmt.Errorf("flow %d at stage %s, expected %s: %w", flowID, flow.Stage, stage, types.ErrConflict)
	}
	return flow, nil
}

func parseCheckinDate(dateStr string) (time.Time, error) {
	for _, layout := range checkinDateLayouts {
		if t, err := time.Parse(layout, dateStr); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid check-in date %q: %w", dateStr, types.ErrValidation)
}
