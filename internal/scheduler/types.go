// internal/scheduler/types.go

package scheduler

import (
	"time"

	"backend/internal/types"
)

// 温度模型参数
const (
	TempTolerance  = 0.2 // 到温判定阈值(°C)
	ReRequestDrift = 1.0 // 开机房间温漂超过该值自动重新请求服务(°C)
)

// tempRatePerSecond 各风速的温度变化速率(°C/秒)
var tempRatePerSecond = map[types.Speed]float64{
	types.SpeedLow:    1.0 / 30, // 低速 30秒1度
	types.SpeedMedium: 0.05,     // 中速 20秒1度
	types.SpeedHigh:   0.1,      // 高速 10秒1度
}

// reboundPerSecond 无服务时向初始温度回归的速率(°C/秒)
const reboundPerSecond = 0.05

// ServiceObject 占用服务槽的房间
type ServiceObject struct {
	RoomID      int
	Speed       types.Speed
	TargetTemp  float64
	CurrentTemp float64
	StartTime   time.Time // 本段服务开始时间
	RequestTime time.Time // 首次请求时间,抢占后保留,用于同级FIFO排序
}

// WaitObject 等待服务的房间
// 等待队列不单独维护顺序:每个调度周期按(优先级,请求时间)现算
type WaitObject struct {
	RoomID      int
	Speed       types.Speed
	TargetTemp  float64
	RequestTime time.Time
}

// Meter 调度器向计费引擎声明的依赖
// 服务段的开/关边界全部由调度器驱动
type Meter interface {
	StartSegment(roomID int, speed types.Speed, at time.Time) error
	CloseSegment(roomID int, at time.Time) error
	ChangeSpeed(roomID int, newSpeed types.Speed, at time.Time) error
}
