// internal/types/errors.go

package types

import "errors"

// 对外命令的错误类别,handler层据此映射HTTP状态码
var (
	// ErrValidation 输入不合法,调用方修正后重试,状态未改变
	ErrValidation = errors.New("validation error")
	// ErrConflict 房间状态在请求期间发生变化,调用方需重新获取状态
	ErrConflict = errors.New("state conflict")
	// ErrBusy 同一房间已有命令在处理中
	ErrBusy = errors.New("room busy")
	// ErrNotFound 房间/订单/账单不存在
	ErrNotFound = errors.New("not found")
)
