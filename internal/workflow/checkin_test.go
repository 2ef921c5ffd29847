// internal/workflow/checkin_test.go

package workflow

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"backend/internal/db"
	"backend/internal/types"
)

func newCheckinEnv(t *testing.T) (*CheckinService, *db.RoomRepository) {
	t.Helper()

	gdb, err := db.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, db.SeedRooms(gdb, 8, 25.0))

	roomRepo := db.NewRoomRepository(gdb)
	orderRepo := db.NewOrderRepository(gdb)
	flowRepo := db.NewFlowRepository(gdb)
	guard := NewRoomGuard()

	return NewCheckinService(flowRepo, roomRepo, orderRepo, guard, nil, 25.0), roomRepo
}

func TestCheckinWizard(t *testing.T) {
	svc, roomRepo := newCheckinEnv(t)

	flow, err := svc.RegisterCustomer("110101", "李伟", 2, "2025-01-10T14:00")
	require.NoError(t, err)
	assert.Equal(t, db.StageCheckRoom, flow.Stage)

	t.Run("查房态推进阶段且幂等", func(t *testing.T) {
		flow2, rooms, err := svc.CheckRoomState(flow.ID)
		require.NoError(t, err)
		assert.Equal(t, db.StageSelectRoom, flow2.Stage)
		assert.Len(t, rooms, 8)

		// 重复查询只回显,阶段不回退
		flow3, _, err := svc.CheckRoomState(flow.ID)
		require.NoError(t, err)
		assert.Equal(t, db.StageSelectRoom, flow3.Stage)
	})

	t.Run("选房下单", func(t *testing.T) {
		flow2, err := svc.SelectRoom(flow.ID, 5)
		require.NoError(t, err)
		assert.Equal(t, db.StageCreateOrder, flow2.Stage)
		assert.Equal(t, 5, flow2.RoomID)

		flow3, order, err := svc.CreateOrder(flow.ID)
		require.NoError(t, err)
		assert.Equal(t, db.StageDeposit, flow3.Stage)
		assert.NotZero(t, order.ID)

		room, err := roomRepo.GetRoomByID(5)
		require.NoError(t, err)
		assert.Equal(t, db.RoomOccupied, room.State)
		assert.Equal(t, "李伟", room.ClientName)
	})

	t.Run("押金与发卡", func(t *testing.T) {
		flow2, err := svc.Deposit(flow.ID, 200)
		require.NoError(t, err)
		assert.Equal(t, db.StageIssueKey, flow2.Stage)
		assert.Equal(t, 200.0, flow2.Deposit)

		flow3, err := svc.IssueKey(flow.ID)
		require.NoError(t, err)
		assert.Equal(t, db.StageDone, flow3.Stage)
		assert.True(t, flow3.KeyIssued)
	})
}

func TestCheckinSkipOptionalStages(t *testing.T) {
	svc, _ := newCheckinEnv(t)

	flow, err := svc.RegisterCustomer("110102", "王芳", 1, "2025-01-10")
	require.NoError(t, err)
	_, _, err = svc.CheckRoomState(flow.ID)
	require.NoError(t, err)
	_, err = svc.SelectRoom(flow.ID, 1)
	require.NoError(t, err)
	_, _, err = svc.CreateOrder(flow.ID)
	require.NoError(t, err)

	flow2, err := svc.SkipDeposit(flow.ID)
	require.NoError(t, err)
	assert.Equal(t, db.StageIssueKey, flow2.Stage)

	flow3, err := svc.SkipIssueKey(flow.ID)
	require.NoError(t, err)
	assert.Equal(t, db.StageDone, flow3.Stage)
	assert.False(t, flow3.KeyIssued)
	assert.Zero(t, flow3.Deposit)
}

func TestRegisterValidation(t *testing.T) {
	svc, _ := newCheckinEnv(t)

	_, err := svc.RegisterCustomer("", "李伟", 1, "2025-01-10")
	assert.ErrorIs(t, err, types.ErrValidation)

	_, err = svc.RegisterCustomer("110101", "  ", 1, "2025-01-10")
	assert.ErrorIs(t, err, types.ErrValidation)

	_, err = svc.RegisterCustomer("110101", "李伟", 0, "2025-01-10")
	assert.ErrorIs(t, err, types.ErrValidation)

	_, err = svc.RegisterCustomer("110101", "李伟", 1, "not-a-date")
	assert.ErrorIs(t, err, types.ErrValidation)
}

func TestStageOrderEnforced(t *testing.T) {
	svc, _ := newCheckinEnv(t)

	flow, err := svc.RegisterCustomer("110103", "张敏", 1, "2025-01-10")
	require.NoError(t, err)

	// 未查房态不能选房,未下单不能收押金
	_, err = svc.SelectRoom(flow.ID, 1)
	assert.ErrorIs(t, err, types.ErrConflict)
	_, err = svc.Deposit(flow.ID, 100)
	assert.ErrorIs(t, err, types.ErrConflict)
	_, err = svc.IssueKey(flow.ID)
	assert.ErrorIs(t, err, types.ErrConflict)
}

func TestConcurrentSelectionConflict(t *testing.T) {
	svc, _ := newCheckinEnv(t)

	flowA, err := svc.RegisterCustomer("110104", "赵磊", 1, "2025-01-10")
	require.NoError(t, err)
	flowB, err := svc.RegisterCustomer("110105", "刘洋", 1, "2025-01-10")
	require.NoError(t, err)

	// 两个流程先后对同一空闲房间做出选择
	_, _, err = svc.CheckRoomState(flowA.ID)
	require.NoError(t, err)
	_, _, err = svc.CheckRoomState(flowB.ID)
	require.NoError(t, err)
	_, err = svc.SelectRoom(flowA.ID, 3)
	require.NoError(t, err)
	_, err = svc.SelectRoom(flowB.ID, 3)
	require.NoError(t, err)

	// 先提交者得房,后提交者在提交点被原子复核拦下
	_, _, err = svc.CreateOrder(flowA.ID)
	require.NoError(t, err)
	_, _, err = svc.CreateOrder(flowB.ID)
	assert.ErrorIs(t, err, types.ErrConflict)

	// 冲突后可重新选房并完成下单
	_, err = svc.SelectRoom(flowB.ID, 4)
	require.NoError(t, err)
	_, _, err = svc.CreateOrder(flowB.ID)
	require.NoError(t, err)
}

func TestFlowResumable(t *testing.T) {
	svc, _ := newCheckinEnv(t)

	flow, err := svc.RegisterCustomer("110106", "陈静", 1, "2025-01-10")
	require.NoError(t, err)
	_, _, err = svc.CheckRoomState(flow.ID)
	require.NoError(t, err)

	// 断线重连后按流程号取回当前阶段续办
	resumed, err := svc.GetFlow(flow.ID)
	require.NoError(t, err)
	assert.Equal(t, db.StageSelectRoom, resumed.Stage)
	assert.Equal(t, "陈静", resumed.ClientName)

	_, err = svc.GetFlow(9999)
	assert.ErrorIs(t, err, types.ErrNotFound)
}
