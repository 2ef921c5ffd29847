// internal/events/types.go

package events

import "time"

// EventType 事件类型定义
type EventType int

const (
	// 调度事件
	EventServiceStart EventType = iota
	EventServiceComplete
	EventServicePreempted
	EventEnqueued
	EventDequeued
	EventDispatchHalted

	// 房态事件
	EventRoomCheckIn
	EventRoomCheckOut
)

// Event 事件结构
type Event struct {
	Type      EventType   `json:"type"`
	RoomID    int         `json:"room_id"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data,omitempty"`
}

// Handler 事件处理函数类型
type Handler func(Event)
