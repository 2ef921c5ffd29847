// internal/db/model.go

package db

import "time"

// 房间状态
const (
	RoomVacant   = 0 // 空闲
	RoomOccupied = 1 // 已入住
)

// 空调开关状态
const (
	ACOff = 0
	ACOn  = 1
)

// RoomInfo 房间信息表,房间登记与计费计数的唯一权威存储
type RoomInfo struct {
	RoomID       int       `gorm:"primaryKey"`
	State        int       // 0: 空闲 1: 已入住
	ClientID     string    `gorm:"type:varchar(255)"`
	ClientName   string    `gorm:"type:varchar(255)"`
	GuestCount   int       // 入住人数
	CheckinTime  time.Time `gorm:"type:datetime"`
	CheckoutTime time.Time `gorm:"type:datetime"`

	ACState      int     // 0: 关闭 1: 开启
	Mode         string  `gorm:"type:varchar(20)"` // cooling/heating
	TargetTemp   float64 `gorm:"type:float"`
	CurrentSpeed string  `gorm:"type:varchar(16)"`
	CurrentTemp  float64 `gorm:"type:float"`
	InitialTemp  float64 `gorm:"type:float"` // 未服务时温度回归的基准

	CurrentFee    float64 // 本次入住累计空调费
	TotalFee      float64 // 历史累计空调费,退房不清零
	ServedSeconds float64 // 累计被服务时长(秒,调度周期可小于1秒,含小数)
	WaitedSeconds float64 // 累计等待时长(秒,含小数)
}

// Order 住宿订单表,一个房间同一时刻至多一个未结算订单
type Order struct {
	ID          uint   `gorm:"primaryKey"`
	RoomID      int    `gorm:"index"`
	ClientID    string `gorm:"type:varchar(255)"`
	ClientName  string `gorm:"type:varchar(255)"`
	GuestCount  int
	CheckinTime time.Time  `gorm:"type:datetime"`
	Deposit     float64    // 押金
	ClosedAt    *time.Time `gorm:"type:datetime"` // 结算归档时间
	CreatedAt   time.Time  `gorm:"type:datetime"`
}

// Detail 服务详单表,每段只含一种风速,落库后不可变
type Detail struct {
	ID           uint      `gorm:"primaryKey"`
	RoomID       int       `gorm:"index"`
	Speed        string    `gorm:"type:varchar(16)"`
	StartTime    time.Time `gorm:"type:datetime"`
	EndTime      time.Time `gorm:"type:datetime"`
	ServeSeconds float64   // 服务时长(秒)
	Rate         float64   // 费率(元/分钟)
	Fee          float64   // 本段费用,全精度存储,展示时才舍入
	CreatedAt    time.Time `gorm:"type:datetime"`
}

// 账单类型
const (
	BillKindAccommodation = "accommodation"
	BillKindAC            = "ac"
)

// Bill 账单表,退房时生成,生成后不可变,仅Paid标记可置位
type Bill struct {
	ID          uint    `gorm:"primaryKey"`
	RoomID      int     `gorm:"index"`
	OrderID     uint
	Kind        string  `gorm:"type:varchar(20)"`
	Amount      float64 // 应收金额
	Nights      int     // 住宿账单: 夜数
	NightlyRate float64 // 住宿账单: 房费单价
	Deposit     float64 // 住宿账单: 已抵扣押金
	PeriodStart time.Time `gorm:"type:datetime"`
	PeriodEnd   time.Time `gorm:"type:datetime"`
	Paid        bool
	CreatedAt   time.Time `gorm:"type:datetime"`
}

// 流程阶段,取值为尚未完成的下一阶段
const (
	// 入住向导
	StageCheckRoom   = "check_room"
	StageSelectRoom  = "select_room"
	StageCreateOrder = "create_order"
	StageDeposit     = "deposit"
	StageIssueKey    = "issue_key"
	// 退房向导
	StageCheckout = "checkout"
	StagePayment  = "payment"
	// 两类向导共用的终态
	StageDone = "done"
)

// CheckinFlow 入住流程表,记录向导当前所处阶段以支持断点续办
type CheckinFlow struct {
	ID          uint   `gorm:"primaryKey"`
	Stage       string `gorm:"type:varchar(20)"`
	ClientID    string `gorm:"type:varchar(255)"`
	ClientName  string `gorm:"type:varchar(255)"`
	GuestCount  int
	CheckinDate time.Time `gorm:"type:datetime"`
	RoomID      int       // 选房后填入
	OrderID     uint      // 下单后填入
	Deposit     float64
	KeyIssued   bool
	CreatedAt   time.Time `gorm:"type:datetime"`
	UpdatedAt   time.Time `gorm:"type:datetime"`
}

// CheckoutFlow 退房流程表,账单对生成后支付可幂等重试
type CheckoutFlow struct {
	ID                  uint   `gorm:"primaryKey"`
	RoomID              int    `gorm:"index"`
	Stage               string `gorm:"type:varchar(20)"`
	OrderID             uint
	AccommodationBillID uint
	ACBillID            uint
	TotalDue            float64
	PaidAt              *time.Time `gorm:"type:datetime"`
	CreatedAt           time.Time  `gorm:"type:datetime"`
	UpdatedAt           time.Time  `gorm:"type:datetime"`
}
