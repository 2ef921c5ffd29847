// internal/types/types.go

// Package types 定义空调系统共享的基础类型
package types

// Mode 空调工作模式
type Mode string

const (
	ModeCooling Mode = "cooling"
	ModeHeating Mode = "heating"
)

// Speed 风速,同时充当调度优先级与计费费率档位
type Speed string

const (
	SpeedLow    Speed = "low"
	SpeedMedium Speed = "medium"
	SpeedHigh   Speed = "high"
)

// speedPriority 风速优先级映射
var speedPriority = map[Speed]int{
	SpeedLow:    1,
	SpeedMedium: 2,
	SpeedHigh:   3,
}

// Priority 返回风速对应的调度优先级,未知风速返回0
func (s Speed) Priority() int {
	return speedPriority[s]
}

// Valid 检查风速是否合法
func (s Speed) Valid() bool {
	_, ok := speedPriority[s]
	return ok
}

// Valid 检查工作模式是否合法
func (m Mode) Valid() bool {
	return m == ModeCooling || m == ModeHeating
}

// 温度范围限制
const (
	MinTargetTemp = 16.0
	MaxTargetTemp = 32.0
)

// RoomStatus 房间对外快照状态
type RoomStatus string

const (
	StatusIdle     RoomStatus = "idle"     // 空闲未入住
	StatusOccupied RoomStatus = "occupied" // 已入住,空调无服务请求
	StatusWaiting  RoomStatus = "waiting"  // 等待服务
	StatusServing  RoomStatus = "serving"  // 正在服务
)
