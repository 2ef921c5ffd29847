// internal/workflow/checkout_test.go

package workflow

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"backend/internal/billing"
	"backend/internal/db"
	"backend/internal/scheduler"
	"backend/internal/types"
)

// stubDispatcher 记录退房时的调度释放调用
type stubDispatcher struct {
	released []int
}

func (d *stubDispatcher) ReleaseRoom(roomID int, at time.Time) error {
	d.released = append(d.released, roomID)
	return nil
}

type checkoutEnv struct {
	svc       *CheckoutService
	meter     *billing.Meter
	roomRepo  *db.RoomRepository
	orderRepo *db.OrderRepository
	dispatch  *stubDispatcher
}

func newCheckoutEnv(t *testing.T) *checkoutEnv {
	t.Helper()

	gdb, err := db.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, db.SeedRooms(gdb, 8, 25.0))

	roomRepo := db.NewRoomRepository(gdb)
	detailRepo := db.NewDetailRepository(gdb)
	orderRepo := db.NewOrderRepository(gdb)
	billRepo := db.NewBillRepository(gdb)
	flowRepo := db.NewFlowRepository(gdb)

	rates, err := billing.NewRateTable(map[types.Speed]float64{
		types.SpeedLow:    0.5,
		types.SpeedMedium: 1.0,
		types.SpeedHigh:   2.0,
	}, 300)
	require.NoError(t, err)
	meter := billing.NewMeter(rates, roomRepo, detailRepo)

	dispatch := &stubDispatcher{}
	svc := NewCheckoutService(roomRepo, orderRepo, billRepo, flowRepo, meter,
		dispatch, rates, NewRoomGuard(), nil)

	return &checkoutEnv{
		svc:       svc,
		meter:     meter,
		roomRepo:  roomRepo,
		orderRepo: orderRepo,
		dispatch:  dispatch,
	}
}

// occupyWithOrder 建立一个已入住26小时的房间及其订单
func (e *checkoutEnv) occupyWithOrder(t *testing.T, roomID int, deposit float64) *db.Order {
	t.Helper()

	checkin := time.Now().Add(-26 * time.Hour)
	ok, err := e.roomRepo.OccupyIfVacant(roomID, "110101", "李伟", 2, checkin, 25.0)
	require.NoError(t, err)
	require.True(t, ok)

	order := &db.Order{
		RoomID:      roomID,
		ClientID:    "110101",
		ClientName:  "李伟",
		GuestCount:  2,
		CheckinTime: checkin,
	}
	require.NoError(t, e.orderRepo.CreateOrder(order))
	if deposit > 0 {
		require.NoError(t, e.orderRepo.UpdateDeposit(order.ID, deposit))
		order.Deposit = deposit
	}
	return order
}

func TestCheckoutBillPair(t *testing.T) {
	env := newCheckoutEnv(t)
	order := env.occupyWithOrder(t, 5, 200)

	// 中风速90分钟空调服务,费用90元
	start := order.CheckinTime.Add(2 * time.Hour)
	require.NoError(t, env.meter.StartSegment(5, types.SpeedMedium, start))
	require.NoError(t, env.meter.CloseSegment(5, start.Add(90*time.Minute)))

	result, err := env.svc.ProcessCheckout(5)
	require.NoError(t, err)

	// 26小时折2晚: 600 - 押金200 = 400
	assert.Equal(t, 2, result.AccommodationBill.Nights)
	assert.InDelta(t, 400.0, result.AccommodationBill.Amount, 1e-9)
	assert.InDelta(t, 200.0, result.AccommodationBill.Deposit, 1e-9)
	assert.InDelta(t, 90.0, result.ACBill.Amount, 1e-9)
	assert.InDelta(t, 490.0, result.TotalDue, 1e-9)
	require.Len(t, result.Details, 1)
	assert.Equal(t, string(types.SpeedMedium), result.Details[0].Speed)

	assert.Equal(t, []int{5}, env.dispatch.released)
}

func TestCheckoutIdempotentRedisplay(t *testing.T) {
	env := newCheckoutEnv(t)
	env.occupyWithOrder(t, 5, 200)

	first, err := env.svc.ProcessCheckout(5)
	require.NoError(t, err)
	second, err := env.svc.ProcessCheckout(5)
	require.NoError(t, err)

	// 重复出账回显同一账单对,不重复截停服务
	assert.Equal(t, first.AccommodationBill.ID, second.AccommodationBill.ID)
	assert.Equal(t, first.ACBill.ID, second.ACBill.ID)
	assert.InDelta(t, first.TotalDue, second.TotalDue, 1e-9)
	assert.Equal(t, []int{5}, env.dispatch.released)
}

func TestCheckoutVacantRoomConflict(t *testing.T) {
	env := newCheckoutEnv(t)

	_, err := env.svc.ProcessCheckout(7)
	assert.ErrorIs(t, err, types.ErrConflict)

	// 未出账,也无可支付的流程
	_, err = env.svc.BillsByRoom(7)
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestPaymentReleasesRoom(t *testing.T) {
	env := newCheckoutEnv(t)
	env.occupyWithOrder(t, 5, 200)

	_, err := env.svc.ProcessCheckout(5)
	require.NoError(t, err)

	result, err := env.svc.ProcessPayment(5)
	require.NoError(t, err)
	assert.Equal(t, db.StageDone, result.Flow.Stage)
	require.NotNil(t, result.Flow.PaidAt)
	assert.True(t, result.AccommodationBill.Paid)
	assert.True(t, result.ACBill.Paid)

	room, err := env.roomRepo.GetRoomByID(5)
	require.NoError(t, err)
	assert.Equal(t, db.RoomVacant, room.State)
	assert.Empty(t, room.ClientName)
	assert.Zero(t, room.CurrentFee)
}

func TestPaymentIdempotent(t *testing.T) {
	env := newCheckoutEnv(t)
	env.occupyWithOrder(t, 5, 200)

	_, err := env.svc.ProcessCheckout(5)
	require.NoError(t, err)

	first, err := env.svc.ProcessPayment(5)
	require.NoError(t, err)
	second, err := env.svc.ProcessPayment(5)
	require.NoError(t, err)

	// 重复支付回显同一结果,不二次扣款
	assert.Equal(t, first.Flow.ID, second.Flow.ID)
	assert.Equal(t, first.Flow.PaidAt.Unix(), second.Flow.PaidAt.Unix())
	assert.InDelta(t, first.TotalDue, second.TotalDue, 1e-9)
}

func TestBillsByRoomAfterPayment(t *testing.T) {
	env := newCheckoutEnv(t)
	env.occupyWithOrder(t, 5, 200)

	checkedOut, err := env.svc.ProcessCheckout(5)
	require.NoError(t, err)
	_, err = env.svc.ProcessPayment(5)
	require.NoError(t, err)

	// 支付后账单仍可复查
	bills, err := env.svc.BillsByRoom(5)
	require.NoError(t, err)
	assert.Equal(t, checkedOut.AccommodationBill.ID, bills.AccommodationBill.ID)
	assert.Equal(t, checkedOut.ACBill.ID, bills.ACBill.ID)
	assert.Equal(t, db.StageDone, bills.Flow.Stage)
}

func TestCheckoutStopsMetering(t *testing.T) {
	gdb, err := db.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, db.SeedRooms(gdb, 8, 25.0))

	roomRepo := db.NewRoomRepository(gdb)
	detailRepo := db.NewDetailRepository(gdb)
	orderRepo := db.NewOrderRepository(gdb)
	billRepo := db.NewBillRepository(gdb)
	flowRepo := db.NewFlowRepository(gdb)

	rates, err := billing.NewRateTable(map[types.Speed]float64{
		types.SpeedLow:    0.5,
		types.SpeedMedium: 1.0,
		types.SpeedHigh:   2.0,
	}, 300)
	require.NoError(t, err)
	meter := billing.NewMeter(rates, roomRepo, detailRepo)

	// 真实调度器作为退房时的调度释放方
	sched := scheduler.NewScheduler(scheduler.Config{
		SlotCount:    3,
		TickInterval: time.Second,
		DefaultSpeed: types.SpeedMedium,
	}, meter, roomRepo, nil)
	svc := NewCheckoutService(roomRepo, orderRepo, billRepo, flowRepo, meter,
		sched, rates, NewRoomGuard(), nil)

	checkin := time.Now().Add(-26 * time.Hour)
	ok, err := roomRepo.OccupyIfVacant(5, "110101", "李伟", 2, checkin, 25.0)
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, orderRepo.CreateOrder(&db.Order{
		RoomID: 5, ClientID: "110101", ClientName: "李伟", GuestCount: 2, CheckinTime: checkin,
	}))

	// 服务中退房;tick时间取过去,保证出账时段长为正
	now := time.Now().Add(-time.Minute)
	require.NoError(t, sched.PowerOn(5, types.ModeCooling, 20, types.SpeedHigh))
	sched.Tick(now.Add(time.Second))
	serving, _ := sched.RoomState(5)
	require.True(t, serving)

	_, err = svc.ProcessCheckout(5)
	require.NoError(t, err)

	// 出账即关机,撤出调度,结清服务段
	room, err := roomRepo.GetRoomByID(5)
	require.NoError(t, err)
	assert.Equal(t, db.ACOff, room.ACState)
	serving, waiting := sched.RoomState(5)
	assert.False(t, serving)
	assert.False(t, waiting)

	details, err := detailRepo.ListByRoom(5)
	require.NoError(t, err)
	countAfterCheckout := len(details)

	// 后续tick不得因温漂重新排队,也不得再产生详单段
	for i := 2; i <= 30; i++ {
		sched.Tick(now.Add(time.Duration(i) * time.Second))
	}
	serving, waiting = sched.RoomState(5)
	assert.False(t, serving, "checked-out room must not re-enter service")
	assert.False(t, waiting, "checked-out room must not re-enqueue")

	details, err = detailRepo.ListByRoom(5)
	require.NoError(t, err)
	assert.Equal(t, countAfterCheckout, len(details), "no metering after the bill window closes")
}

func TestStayNights(t *testing.T) {
	base := time.Date(2025, 1, 10, 14, 0, 0, 0, time.UTC)

	cases := []struct {
		name   string
		hours  float64
		nights int
	}{
		{"不足一晚按一晚", 2, 1},
		{"整24小时为一晚", 24, 1},
		{"超出部分向上取整", 26, 2},
		{"两天两小时为三晚", 50, 3},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := stayNights(base, base.Add(time.Duration(tc.hours*float64(time.Hour))))
			assert.Equal(t, tc.nights, got)
		})
	}
}
