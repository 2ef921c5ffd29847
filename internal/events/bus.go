// internal/events/bus.go

// Package events 提供进程内事件总线,调度器发布状态变迁,监控侧订阅
package events

import "sync"

type subscription struct {
	id      int
	handler Handler
}

// EventBus 事件总线
type EventBus struct {
	mu       sync.RWMutex
	nextID   int
	handlers map[EventType][]subscription
}

// NewEventBus 创建事件总线
func NewEventBus() *EventBus {
	return &EventBus{
		handlers: make(map[EventType][]subscription),
	}
}

// Publish 发布事件,处理函数异步执行,不阻塞调度循环
func (eb *EventBus) Publish(event Event) {
	eb.mu.RLock()
	subs := eb.handlers[event.Type]
	eb.mu.RUnlock()

	for _, sub := range subs {
		go sub.handler(event)
	}
}

// Subscribe 订阅事件,返回用于退订的句柄
func (eb *EventBus) Subscribe(eventType EventType, handler Handler) int {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	eb.nextID++
	eb.handlers[eventType] = append(eb.handlers[eventType], subscription{
		id:      eb.nextID,
		handler: handler,
	})
	return eb.nextID
}

// Unsubscribe 取消订阅
// Publish在锁外遍历已取出的切片,移除必须写入新底层数组,
// 不可原地压缩
func (eb *EventBus) Unsubscribe(eventType EventType, id int) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	subs := eb.handlers[eventType]
	for i, sub := range subs {
		if sub.id == id {
			remaining := make([]subscription, 0, len(subs)-1)
			remaining = append(remaining, subs[:i]...)
			remaining = append(remaining, subs[i+1:]...)
			eb.handlers[eventType] = remaining
			return
		}
	}
}
