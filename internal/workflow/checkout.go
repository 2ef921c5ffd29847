// internal/workflow/checkout.go

package workflow

import (
	"fmt"
	"math"
	"time"

	"backend/internal/billing"
	"backend/internal/db"
	"backend/internal/events"
	"backend/internal/logger"
	"backend/internal/types"
)

// Dispatcher 退房时需要调度器做的事:撤出队列并关闭未结算段
type Dispatcher interface {
	ReleaseRoom(roomID int, at time.Time) error
}

// SegmentSource 账单所需的详单汇总
type SegmentSource interface {
	CheckoutTotals(roomID int, from, to time.Time) (float64, []db.Detail, error)
}

// CheckoutResult 退房账单对:住宿账单+空调账单+完整详单
type CheckoutResult struct {
	Flow              *db.CheckoutFlow
	AccommodationBill *db.Bill
	ACBill            *db.Bill
	Details           []db.Detail
	TotalDue          float64
}

// CheckoutService 退房向导: 选房→出账→支付
// 账单对生成后不可变,支付可幂等重试
type CheckoutService struct {
	roomRepo  *db.RoomRepository
	orderRepo *db.OrderRepository
	billRepo  *db.BillRepository
	flowRepo  *db.FlowRepository
	segments  SegmentSource
	dispatch  Dispatcher
	rates     *billing.RateTable
	guard     *RoomGuard
	bus       *events.EventBus
}

func NewCheckoutService(roomRepo *db.RoomRepository, orderRepo *db.OrderRepository,
	billRepo *db.BillRepository, flowRepo *db.FlowRepository, segments SegmentSource,
	dispatch Dispatcher, rates *billing.RateTable, guard *RoomGuard, bus *events.EventBus) *CheckoutService {
	return &CheckoutService{
		roomRepo:  roomRepo,
		orderRepo: orderRepo,
		billRepo:  billRepo,
		flowRepo:  flowRepo,
		segments:  segments,
		dispatch:  dispatch,
		rates:     rates,
		guard:     guard,
		bus:       bus,
	}
}

// ProcessCheckout 出账:截停服务、关闭未结算段、生成账单对
// 房间未入住返回Conflict,不产生任何账单
func (s *CheckoutService) ProcessCheckout(roomID int) (*CheckoutResult, error) {
	if !s.guard.TryAcquire(roomID) {
		return nil, fmt.Errorf("room %d has a command in flight: %w", roomID, types.ErrBusy)
	}
	defer s.guard.Release(roomID)

	room, err := s.roomRepo.GetRoomByID(roomID)
	if err != nil {
		return nil, err
	}
	if room.State != db.RoomOccupied {
		return nil, fmt.Errorf("room %d not occupied: %w", roomID, types.ErrConflict)
	}

	// 已有待支付的账单对时直接回显,不重复出账
	if flow, err := s.flowRepo.GetOpenCheckoutFlowByRoom(roomID); err == nil {
		return s.resultFromFlow(flow)
	}

	now := time.Now()
	// 先关空调再撤出调度:否则下一个tick会因温漂
	// 自动重新请求服务,在账单窗口之后产生无法计费的服务段
	if err := s.roomRepo.UpdateACConfig(roomID, db.ACOff, types.Mode(room.Mode), room.TargetTemp, ""); err != nil {
		return nil, err
	}
	if err := s.dispatch.ReleaseRoom(roomID, now); err != nil {
		return nil, err
	}

	order, err := s.orderRepo.GetOpenOrderByRoom(roomID)
	if err != nil {
		return nil, fmt.Errorf("room %d occupied without open order: %w", roomID, types.ErrConflict)
	}

	nights := stayNights(order.CheckinTime, now)
	roomFee := float64(nights) * s.rates.Nightly()
	accommodation := &db.Bill{
		RoomID:      roomID,
		OrderID:     order.ID,
		Kind:        db.BillKindAccommodation,
		Amount:      roomFee - order.Deposit,
		Nights:      nights,
		NightlyRate: s.rates.Nightly(),
		Deposit:     order.Deposit,
		PeriodStart: order.CheckinTime,
		PeriodEnd:   now,
	}
	if err := s.billRepo.CreateBill(accommodation); err != nil {
		return nil, err
	}

	acFee, details, err := s.segments.CheckoutTotals(roomID, order.CheckinTime, now)
	if err != nil {
		return nil, err
	}
	acBill := &db.Bill{
		RoomID:      roomID,
		OrderID:     order.ID,
		Kind:        db.BillKindAC,
		Amount:      acFee,
		PeriodStart: order.CheckinTime,
		PeriodEnd:   now,
	}
	if err := s.billRepo.CreateBill(acBill); err != nil {
		return nil, err
	}

	flow := &db.CheckoutFlow{
		RoomID:              roomID,
		Stage:               db.StagePayment,
		OrderID:             order.ID,
		AccommodationBillID: accommodation.ID,
		ACBillID:            acBill.ID,
		TotalDue:            accommodation.Amount + acBill.Amount,
	}
	if err := s.flowRepo.CreateCheckoutFlow(flow); err != nil {
		return nil, err
	}

	logger.Info("退房出账 - 房间 %d, 住宿 %.2f元(%d晚,押金%.2f), 空调 %.2f元, 应收 %.2f元",
		roomID, accommodation.Amount, nights, order.Deposit, acFee, flow.TotalDue)
	return &CheckoutResult{
		Flow:              flow,
		AccommodationBill: accommodation,
		ACBill:            acBill,
		Details:           details,
		TotalDue:          flow.TotalDue,
	}, nil
}

// ProcessPayment 支付结算并释放房间
// 对同一账单对幂等:重复支付返回相同结果,不二次扣款
func (s *CheckoutService) ProcessPayment(roomID int) (*CheckoutResult, error) {
	if !s.guard.TryAcquire(roomID) {
		return nil, fmt.Errorf("room %d has a command in flight: %w", roomID, types.ErrBusy)
	}
	defer s.guard.Release(roomID)

	flow, err := s.flowRepo.GetLatestCheckoutFlowByRoom(roomID)
	if err != nil {
		return nil, err
	}
	if flow.Stage == db.StageDone {
		// 已支付,回显同一结果
		return s.resultFromFlow(flow)
	}

	now := time.Now()
	if err := s.billRepo.MarkPaid(flow.AccommodationBillID, flow.ACBillID); err != nil {
		return nil, err
	}
	if err := s.orderRepo.CloseOrder(flow.OrderID, now); err != nil {
		return nil, err
	}
	if err := s.roomRepo.Release(roomID, now); err != nil {
		return nil, err
	}

	flow.Stage = db.StageDone
	flow.PaidAt = &now
	if err := s.flowRepo.SaveCheckoutFlow(flow); err != nil {
		return nil, err
	}

	if s.bus != nil {
		s.bus.Publish(events.Event{Type: events.EventRoomCheckOut, RoomID: roomID, Timestamp: now})
	}
	logger.Info("退房结算完成 - 房间 %d, 实收 %.2f元", roomID, flow.TotalDue)
	return s.resultFromFlow(flow)
}

// BillsByRoom 账单复查:返回房间最近一次退房的账单对与详单
func (s *CheckoutService) BillsByRoom(roomID int) (*CheckoutResult, error) {
	flow, err := s.flowRepo.GetLatestCheckoutFlowByRoom(roomID)
	if err != nil {
		return nil, err
	}
	return s.resultFromFlow(flow)
}

// resultFromFlow 从已持久化的流程重建结果,保证重试看到同一账单对
func (s *CheckoutService) resultFromFlow(flow *db.CheckoutFlow) (*CheckoutResult, error) {
	accommodation, err := s.billRepo.GetBillByID(flow.AccommodationBillID)
	if err != nil {
		return nil, err
	}
	acBill, err := s.billRepo.GetBillByID(flow.ACBillID)
	if err != nil {
		return nil, err
	}
	_, details, err := s.segments.CheckoutTotals(flow.RoomID, acBill.PeriodStart, acBill.PeriodEnd)
	if err != nil {
		return nil, err
	}
	return &CheckoutResult{
		Flow:              flow,
		AccommodationBill: accommodation,
		ACBill:            acBill,
		Details:           details,
		TotalDue:          flow.TotalDue,
	}, nil
}

// stayNights 住宿夜数:不足一晚按一晚,超出部分向上取整
func stayNights(checkin, checkout time.Time) int {
	hours := checkout.Sub(checkin).Hours()
	nights := int(math.Ceil(hours / 24))
	if nights < 1 {
		nights = 1
	}
	return nights
}
