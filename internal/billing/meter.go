// internal/billing/meter.go

package billing

import (
	"fmt"
	"sync"
	"time"

	"backend/internal/db"
	"backend/internal/types"
)

// openSegment 尚未关闭的服务段,只存在于内存中
type openSegment struct {
	speed types.Speed
	start time.Time
}

// Meter 计费引擎
// 服务段在进入服务槽时打开,离开时关闭;关闭即落库,不再修改
// 费用全程float64,不做中途舍入,避免大量短段累积舍入误差
type Meter struct {
	mu         sync.Mutex
	rates      *RateTable
	roomRepo   *db.RoomRepository
	detailRepo *db.DetailRepository
	open       map[int]*openSegment
}

func NewMeter(rates *RateTable, roomRepo *db.RoomRepository, detailRepo *db.DetailRepository) *Meter {
	return &Meter{
		rates:      rates,
		roomRepo:   roomRepo,
		detailRepo: detailRepo,
		open:       make(map[int]*openSegment),
	}
}

// StartSegment 打开服务段
// 同一房间已有未关闭段属于调度不变量被破坏,直接报错而非覆盖
func (m *Meter) StartSegment(roomID int, speed types.Speed, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.open[roomID]; exists {
		return fmt.Errorf("room %d already has an open segment", roomID)
	}
	m.open[roomID] = &openSegment{speed: speed, start: at}
	return nil
}

// CloseSegment 关闭服务段并结算费用,无未关闭段时为空操作
// (关机命令无论当前状态都会调用一次)
func (m *Meter) CloseSegment(roomID int, at time.Time) error {
	m.mu.Lock()
	seg, exists := m.open[roomID]
	if !exists {
		m.mu.Unlock()
		return nil
	}
	delete(m.open, roomID)
	m.mu.Unlock()

	return m.settle(roomID, seg, at)
}

// ChangeSpeed 服务中途调速:关旧段开新段,保证每段详单只含一种风速
func (m *Meter) ChangeSpeed(roomID int, newSpeed types.Speed, at time.Time) error {
	m.mu.Lock()
	seg, exists := m.open[roomID]
	if !exists {
		m.mu.Unlock()
		return fmt.Errorf("room %d has no open segment to change speed", roomID)
	}
	if seg.speed == newSpeed {
		m.mu.Unlock()
		return nil
	}
	delete(m.open, roomID)
	m.open[roomID] = &openSegment{speed: newSpeed, start: at}
	m.mu.Unlock()

	return m.settle(roomID, seg, at)
}

// HasOpen 查询房间是否存在未关闭段
func (m *Meter) HasOpen(roomID int) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, exists := m.open[roomID]
	return exists
}

// settle 结算一段:fee = 费率(元/分钟) × 分钟数(含小数)
func (m *Meter) settle(roomID int, seg *openSegment, at time.Time) error {
	seconds := at.Sub(seg.start).Seconds()
	if seconds < 0 {
		return fmt.Errorf("room %d segment ends before it starts", roomID)
	}
	rate := m.rates.PerMinute(seg.speed)
	fee := rate * seconds / 60

	detail := &db.Detail{
		RoomID:       roomID,
		Speed:        string(seg.speed),
		StartTime:    seg.start,
		EndTime:      at,
		ServeSeconds: seconds,
		Rate:         rate,
		Fee:          fee,
	}
	if err := m.detailRepo.CreateDetail(detail); err != nil {
		return err
	}
	return m.roomRepo.AddFee(roomID, fee)
}

// CurrentFee 当前累计费用 = 已落库费用 + 未关闭段的实时折算
// 仅供监控快照使用,不产生任何写入
func (m *Meter) CurrentFee(roomID int, now time.Time) (float64, error) {
	room, err := m.roomRepo.GetRoomByID(roomID)
	if err != nil {
		return 0, err
	}

	m.mu.Lock()
	seg, exists := m.open[roomID]
	m.mu.Unlock()

	fee := room.CurrentFee
	if exists {
		fee += m.rates.PerMinute(seg.speed) * now.Sub(seg.start).Seconds() / 60
	}
	return fee, nil
}

// CheckoutTotals 返回与住宿时间窗相交的所有详单段及其合计
// 详单只读,查询不会修改任何段
func (m *Meter) CheckoutTotals(roomID int, from, to time.Time) (float64, []db.Detail, error) {
	details, err := m.detailRepo.ListByRoomAndRange(roomID, from, to)
	if err != nil {
		return 0, nil, err
	}
	var total float64
	for _, d := range details {
		total += d.Fee
	}
	return total, details, nil
}
