// internal/workflow/guard.go

package workflow

import "sync"

// RoomGuard 每房间互斥:同一房间同一时刻至多一条在途变更命令
// 第二条命令立即得到Busy,绝不排队等待。入住/退房的有效性
// 必须在提交时原子复核,排队会使早先的快照校验失去意义
type RoomGuard struct {
	mu    sync.Mutex
	locks map[int]*sync.Mutex
}

func NewRoomGuard() *RoomGuard {
	return &RoomGuard{locks: make(map[int]*sync.Mutex)}
}

// TryAcquire 尝试占用房间命令锁,占用失败立即返回false
func (g *RoomGuard) TryAcquire(roomID int) bool {
	g.mu.Lock()
	lock, ok := g.locks[roomID]
	if !ok {
		lock = &sync.Mutex{}
		g.locks[roomID] = lock
	}
	g.mu.Unlock()

	return lock.TryLock()
}

// Release 释放房间命令锁
func (g *RoomGuard) Release(roomID int) {
	g.mu.Lock()
	lock, ok := g.locks[roomID]
	g.mu.Unlock()

	if ok {
		lock.Unlock()
	}
}
