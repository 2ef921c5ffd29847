// internal/monitor/observer.go

package monitor

import (
	"backend/internal/events"
	"backend/internal/logger"
)

// Observer 订阅调度事件并记录,是事件总线的消费端
type Observer struct {
	bus  *events.EventBus
	subs map[events.EventType]int
}

func NewObserver(bus *events.EventBus) *Observer {
	return &Observer{bus: bus, subs: make(map[events.EventType]int)}
}

var eventNames = map[events.EventType]string{
	events.EventServiceStart:     "进入服务",
	events.EventServiceComplete:  "到温完成",
	events.EventServicePreempted: "被抢占",
	events.EventEnqueued:         "进入等待",
	events.EventDequeued:         "撤出调度",
	events.EventDispatchHalted:   "派发停止",
	events.EventRoomCheckIn:      "入住",
	events.EventRoomCheckOut:     "退房",
}

// Start 订阅全部关心的事件
func (o *Observer) Start() {
	for eventType, name := range eventNames {
		o.subs[eventType] = o.bus.Subscribe(eventType, func(e events.Event) {
			logger.Debug("事件: 房间 %d %s", e.RoomID, name)
		})
	}
}

// Stop 退订
func (o *Observer) Stop() {
	for eventType, id := range o.subs {
		o.bus.Unsubscribe(eventType, id)
	}
}
