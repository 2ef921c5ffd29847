// internal/scheduler/scheduler.go

// Package scheduler 实现中央空调的服务槽调度
// 一个周期性tick循环是服务/等待成员关系的唯一写者;
// 外部命令只修改期望配置或等待集合,从不直接占用服务槽
package scheduler

import (
	"fmt"
	"math"
	"sync"
	"time"

	"backend/internal/db"
	"backend/internal/events"
	"backend/internal/logger"
	"backend/internal/types"
)

// Scheduler 空调调度器
type Scheduler struct {
	mu       sync.Mutex
	slots    int
	tickStep float64 // 每个周期折算的秒数

	serving map[int]*ServiceObject
	waiting map[int]*WaitObject

	meter    Meter
	roomRepo *db.RoomRepository
	bus      *events.EventBus

	defaultSpeed types.Speed
	halted       bool // 容量不变量被破坏后停止一切派发
	stopChan     chan struct{}
	interval     time.Duration
}

// Config 调度器配置
type Config struct {
	SlotCount    int
	TickInterval time.Duration
	DefaultSpeed types.Speed
}

func NewScheduler(cfg Config, meter Meter, roomRepo *db.RoomRepository, bus *events.EventBus) *Scheduler {
	return &Scheduler{
		slots:        cfg.SlotCount,
		tickStep:     cfg.TickInterval.Seconds(),
		interval:     cfg.TickInterval,
		serving:      make(map[int]*ServiceObject),
		waiting:      make(map[int]*WaitObject),
		meter:        meter,
		roomRepo:     roomRepo,
		bus:          bus,
		defaultSpeed: cfg.DefaultSpeed,
		stopChan:     make(chan struct{}),
	}
}

// Run 启动tick循环,阻塞直到Stop被调用
func (s *Scheduler) Run() {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.Tick(time.Now())
		case <-s.stopChan:
			return
		}
	}
}

// Stop 停止调度循环
func (s *Scheduler) Stop() {
	close(s.stopChan)
}

// PowerOn 开机请求:写入期望配置,温度已在容差内则不进入等待
// 调用方从不为服务槽同步等待,拿不到槽位就排队
func (s *Scheduler) PowerOn(roomID int, mode types.Mode, targetTemp float64, speed types.Speed) error {
	if err := validateRequest(mode, targetTemp, speed); err != nil {
		return err
	}
	room, err := s.roomRepo.GetRoomByID(roomID)
	if err != nil {
		return err
	}
	if room.State != db.RoomOccupied {
		return fmt.Errorf("room %d not occupied: %w", roomID, types.ErrConflict)
	}
	if err := s.roomRepo.UpdateACConfig(roomID, db.ACOn, mode, targetTemp, speed); err != nil {
		return err
	}

	now := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()

	if svc, ok := s.serving[roomID]; ok {
		svc.TargetTemp = targetTemp
		if svc.Speed != speed {
			if err := s.meter.ChangeSpeed(roomID, speed, now); err != nil {
				return err
			}
			svc.Speed = speed
		}
		return nil
	}
	if w, ok := s.waiting[roomID]; ok {
		w.Speed = speed
		w.TargetTemp = targetTemp
		return nil
	}
	// 已在容差内,无谓服务,不发生任何状态迁移
	if math.Abs(room.CurrentTemp-targetTemp) <= TempTolerance {
		return nil
	}
	s.enqueueLocked(roomID, speed, targetTemp, now)
	return nil
}

// PowerOff 关机:任何状态下立即接受,返回前关闭未结算的服务段
func (s *Scheduler) PowerOff(roomID int) error {
	room, err := s.roomRepo.GetRoomByID(roomID)
	if err != nil {
		return err
	}
	if err := s.roomRepo.UpdateACConfig(roomID, db.ACOff, types.Mode(room.Mode), room.TargetTemp, ""); err != nil {
		return err
	}

	now := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.removeLocked(roomID, now)
}

// SetTarget 调节目标温度
func (s *Scheduler) SetTarget(roomID int, targetTemp float64) error {
	if targetTemp < types.MinTargetTemp || targetTemp > types.MaxTargetTemp {
		return fmt.Errorf("target temperature %.1f out of range: %w", targetTemp, types.ErrValidation)
	}
	room, err := s.roomRepo.GetRoomByID(roomID)
	if err != nil {
		return err
	}
	if room.State != db.RoomOccupied || room.ACState != db.ACOn {
		return fmt.Errorf("room %d ac not powered on: %w", roomID, types.ErrConflict)
	}
	if err := s.roomRepo.UpdateTargetTemp(roomID, targetTemp); err != nil {
		return err
	}

	now := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()

	if svc, ok := s.serving[roomID]; ok {
		svc.TargetTemp = targetTemp
		return nil
	}
	if w, ok := s.waiting[roomID]; ok {
		w.TargetTemp = targetTemp
		return nil
	}
	if math.Abs(room.CurrentTemp-targetTemp) > TempTolerance {
		speed := types.Speed(room.CurrentSpeed)
		if !speed.Valid() {
			speed = s.defaultSpeed
		}
		s.enqueueLocked(roomID, speed, targetTemp, now)
	}
	return nil
}

// SetSpeed 调节风速,服务中的调速产生详单段边界
func (s *Scheduler) SetSpeed(roomID int, speed types.Speed) error {
	if !speed.Valid() {
		return fmt.Errorf("invalid speed %q: %w", speed, types.ErrValidation)
	}
	room, err := s.roomRepo.GetRoomByID(roomID)
	if err != nil {
		return err
	}
	if room.State != db.RoomOccupied || room.ACState != db.ACOn {
		return fmt.Errorf("room %d ac not powered on: %w", roomID, types.ErrConflict)
	}
	if err := s.roomRepo.UpdateSpeed(roomID, speed); err != nil {
		return err
	}

	now := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()

	if svc, ok := s.serving[roomID]; ok {
		if svc.Speed != speed {
			if err := s.meter.ChangeSpeed(roomID, speed, now); err != nil {
				return err
			}
			svc.Speed = speed
		}
		return nil
	}
	if w, ok := s.waiting[roomID]; ok {
		w.Speed = speed
	}
	return nil
}

// ReleaseRoom 退房释放:清除调度痕迹并关闭未结算段
func (s *Scheduler) ReleaseRoom(roomID int, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.removeLocked(roomID, at)
}

// Queues 返回服务/等待集合的副本,供监控快照使用
func (s *Scheduler) Queues() ([]ServiceObject, []WaitObject) {
	s.mu.Lock()
	defer s.mu.Unlock()

	servingCopy := make([]ServiceObject, 0, len(s.serving))
	for _, svc := range s.serving {
		servingCopy = append(servingCopy, *svc)
	}
	waitingCopy := make([]WaitObject, 0, len(s.waiting))
	for _, w := range s.waiting {
		waitingCopy = append(waitingCopy, *w)
	}
	return servingCopy, waitingCopy
}

// RoomState 查询房间的调度成员关系
func (s *Scheduler) RoomState(roomID int) (serving, waiting bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, serving = s.serving[roomID]
	_, waiting = s.waiting[roomID]
	return serving, waiting
}

// Halted 容量不变量是否已被破坏
func (s *Scheduler) Halted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.halted
}

// Tick 调度周期入口:推进温度、判定完成、回温、派发与抢占
// 所有服务槽的授予/回收只发生在这里
func (s *Scheduler) Tick(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.advanceServingLocked(now)
	s.reboundIdleLocked(now)
	s.dispatchLocked(now)
	s.checkInvariantLocked()
}

// advanceServingLocked 推进服务中房间的温度并判定到温完成
func (s *Scheduler) advanceServingLocked(now time.Time) {
	for roomID, svc := range s.serving {
		step := tempRatePerSecond[svc.Speed] * s.tickStep
		diff := svc.TargetTemp - svc.CurrentTemp
		if math.Abs(diff) <= step {
			svc.CurrentTemp = svc.TargetTemp
		} else if diff > 0 {
			svc.CurrentTemp += step
		} else {
			svc.CurrentTemp -= step
		}

		if err := s.roomRepo.UpdateTemperature(roomID, svc.CurrentTemp); err != nil {
			logger.Error("更新房间温度失败 - 房间 %d: %v", roomID, err)
		}
		if err := s.roomRepo.AddUsage(roomID, s.tickStep, 0); err != nil {
			logger.Error("累计服务时长失败 - 房间 %d: %v", roomID, err)
		}

		// 到温完成,释放服务槽
		if math.Abs(svc.TargetTemp-svc.CurrentTemp) <= TempTolerance {
			if err := s.meter.CloseSegment(roomID, now); err != nil {
				logger.Error("关闭服务段失败 - 房间 %d: %v", roomID, err)
			}
			delete(s.serving, roomID)
			s.publish(events.EventServiceComplete, roomID, now)
			logger.Info("房间 %d 到温完成,温度 %.1f°C", roomID, svc.CurrentTemp)
		}
	}
}

// reboundIdleLocked 无服务房间向初始温度回归
// 开机房间温漂超过阈值时自动重新请求服务
func (s *Scheduler) reboundIdleLocked(now time.Time) {
	rooms, err := s.roomRepo.GetOccupiedRooms()
	if err != nil {
		logger.Error("获取已入住房间失败: %v", err)
		return
	}

	for _, room := range rooms {
		if _, inService := s.serving[room.RoomID]; inService {
			continue
		}
		_, isWaiting := s.waiting[room.RoomID]
		if isWaiting {
			if err := s.roomRepo.AddUsage(room.RoomID, 0, s.tickStep); err != nil {
				logger.Error("累计等待时长失败 - 房间 %d: %v", room.RoomID, err)
			}
		}

		newTemp := reboundStep(room.CurrentTemp, room.InitialTemp, reboundPerSecond*s.tickStep)
		if newTemp != room.CurrentTemp {
			if err := s.roomRepo.UpdateTemperature(room.RoomID, newTemp); err != nil {
				logger.Error("更新房间温度失败 - 房间 %d: %v", room.RoomID, err)
				continue
			}
		}

		if room.ACState == db.ACOn && !isWaiting &&
			math.Abs(newTemp-room.TargetTemp) >= ReRequestDrift {
			speed := types.Speed(room.CurrentSpeed)
			if !speed.Valid() {
				speed = s.defaultSpeed
			}
			s.enqueueLocked(room.RoomID, speed, room.TargetTemp, now)
			logger.Info("房间 %d 温漂 %.1f°C,自动重新请求服务", room.RoomID, math.Abs(newTemp-room.TargetTemp))
		}
	}
}

// dispatchLocked 派发:先填空槽,再按优先级抢占
func (s *Scheduler) dispatchLocked(now time.Time) {
	if s.halted {
		return
	}

	// 1. 空槽直接提升最高优先级的等待者
	for len(s.serving) < s.slots {
		next := s.bestWaitingLocked()
		if next == nil {
			break
		}
		s.promoteLocked(next, now)
	}

	// 2. 严格更高优先级的等待者抢占最低优先级的服务对象
	for {
		next := s.bestWaitingLocked()
		if next == nil {
			break
		}
		victim := s.victimLocked()
		if victim == nil || next.Speed.Priority() <= victim.Speed.Priority() {
			break
		}

		if err := s.meter.CloseSegment(victim.RoomID, now); err != nil {
			logger.Error("抢占关段失败 - 房间 %d: %v", victim.RoomID, err)
		}
		delete(s.serving, victim.RoomID)
		// 保留原请求时间:被抢占者回到本级队首,不因抢占丢失相对位置
		s.waiting[victim.RoomID] = &WaitObject{
			RoomID:      victim.RoomID,
			Speed:       victim.Speed,
			TargetTemp:  victim.TargetTemp,
			RequestTime: victim.RequestTime,
		}
		s.publish(events.EventServicePreempted, victim.RoomID, now)
		logger.Info("房间 %d 被房间 %d 抢占", victim.RoomID, next.RoomID)

		s.promoteLocked(next, now)
	}
}

// checkInvariantLocked 服务数 ≤ 槽数是硬性不变量
// 被破坏说明调度有bug,停止派发并报警,不做静默修复
func (s *Scheduler) checkInvariantLocked() {
	if !s.halted && len(s.serving) > s.slots {
		s.halted = true
		logger.Error("调度不变量被破坏: 服务数 %d 超过槽数 %d,停止派发", len(s.serving), s.slots)
		s.publish(events.EventDispatchHalted, 0, time.Now())
	}
}

// enqueueLocked 加入等待集合
func (s *Scheduler) enqueueLocked(roomID int, speed types.Speed, targetTemp float64, now time.Time) {
	s.waiting[roomID] = &WaitObject{
		RoomID:      roomID,
		Speed:       speed,
		TargetTemp:  targetTemp,
		RequestTime: now,
	}
	s.publish(events.EventEnqueued, roomID, now)
}

// removeLocked 从服务/等待集合移除并关闭未结算段
func (s *Scheduler) removeLocked(roomID int, at time.Time) error {
	if _, ok := s.serving[roomID]; ok {
		if err := s.meter.CloseSegment(roomID, at); err != nil {
			return err
		}
		delete(s.serving, roomID)
		s.publish(events.EventDequeued, roomID, at)
		return nil
	}
	if _, ok := s.waiting[roomID]; ok {
		delete(s.waiting, roomID)
		s.publish(events.EventDequeued, roomID, at)
	}
	return nil
}

// promoteLocked 等待者进入服务槽并打开服务段
func (s *Scheduler) promoteLocked(w *WaitObject, now time.Time) {
	room, err := s.roomRepo.GetRoomByID(w.RoomID)
	if err != nil {
		logger.Error("提升等待房间失败 - 房间 %d: %v", w.RoomID, err)
		delete(s.waiting, w.RoomID)
		return
	}

	delete(s.waiting, w.RoomID)
	s.serving[w.RoomID] = &ServiceObject{
		RoomID:      w.RoomID,
		Speed:       w.Speed,
		TargetTemp:  w.TargetTemp,
		CurrentTemp: room.CurrentTemp,
		StartTime:   now,
		RequestTime: w.RequestTime,
	}
	if err := s.meter.StartSegment(w.RoomID, w.Speed, now); err != nil {
		logger.Error("打开服务段失败 - 房间 %d: %v", w.RoomID, err)
	}
	if err := s.roomRepo.UpdateSpeed(w.RoomID, w.Speed); err != nil {
		logger.Error("更新房间风速失败 - 房间 %d: %v", w.RoomID, err)
	}
	s.publish(events.EventServiceStart, w.RoomID, now)
	logger.Info("房间 %d 进入服务,风速 %s", w.RoomID, w.Speed)
}

// bestWaitingLocked 等待顺序是注册态的纯函数:
// 优先级降序,同级按请求时间FIFO,不维护独立队列结构
func (s *Scheduler) bestWaitingLocked() *WaitObject {
	var best *WaitObject
	for _, w := range s.waiting {
		if best == nil || waitBefore(w, best) {
			best = w
		}
	}
	return best
}

// victimLocked 选择牺牲者:优先级最低,同级中服务最久的先被换出
func (s *Scheduler) victimLocked() *ServiceObject {
	var victim *ServiceObject
	for _, svc := range s.serving {
		if victim == nil || serveBefore(svc, victim) {
			victim = svc
		}
	}
	return victim
}

// waitBefore 等待序:a是否应排在b之前
func waitBefore(a, b *WaitObject) bool {
	if a.Speed.Priority() != b.Speed.Priority() {
		return a.Speed.Priority() > b.Speed.Priority()
	}
	if !a.RequestTime.Equal(b.RequestTime) {
		return a.RequestTime.Before(b.RequestTime)
	}
	return a.RoomID < b.RoomID
}

// serveBefore 牺牲序:a是否比b更该被换出
func serveBefore(a, b *ServiceObject) bool {
	if a.Speed.Priority() != b.Speed.Priority() {
		return a.Speed.Priority() < b.Speed.Priority()
	}
	if !a.StartTime.Equal(b.StartTime) {
		return a.StartTime.Before(b.StartTime)
	}
	return a.RoomID < b.RoomID
}

// reboundStep 向基准温度回归一步,不越过基准
func reboundStep(current, base, step float64) float64 {
	diff := current - base
	switch {
	case diff > step:
		return current - step
	case diff < -step:
		return current + step
	default:
		return base
	}
}

func (s *Scheduler) publish(t events.EventType, roomID int, at time.Time) {
	if s.bus != nil {
		s.bus.Publish(events.Event{Type: t, RoomID: roomID, Timestamp: at})
	}
}

func validateRequest(mode types.Mode, targetTemp float64, speed types.Speed) error {
	if !mode.Valid() {
		return fmt.Errorf("invalid mode %q: %w", mode, types.ErrValidation)
	}
	if targetTemp < types.MinTargetTemp || targetTemp > types.MaxTargetTemp {
		return fmt.Errorf("target temperature %.1f out of range: %w", targetTemp, types.ErrValidation)
	}
	if !speed.Valid() {
		return fmt.Errorf("invalid speed %q: %w", speed, types.ErrValidation)
	}
	return nil
}
