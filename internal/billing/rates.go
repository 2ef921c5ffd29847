// internal/billing/rates.go

// Package billing 实现费率表与计费引擎
// 服务时间按风速档位折算为费用,详单段是计费的原子单位
package billing

import (
	"fmt"

	"backend/internal/types"
)

// RateTable 静态费率表:风速档位→元/分钟,外加每晚房费
// 构造时完成校验,之后的查询不再有失败路径
type RateTable struct {
	perMinute map[types.Speed]float64
	nightly   float64
}

// NewRateTable 构建费率表,配置缺档或非正费率视为启动期致命错误
func NewRateTable(perMinute map[types.Speed]float64, nightly float64) (*RateTable, error) {
	for _, speed := range []types.Speed{types.SpeedLow, types.SpeedMedium, types.SpeedHigh} {
		rate, ok := perMinute[speed]
		if !ok || rate <= 0 {
			return nil, fmt.Errorf("rate table missing speed %q", speed)
		}
	}
	if nightly <= 0 {
		return nil, fmt.Errorf("invalid nightly rate %.2f", nightly)
	}
	copied := make(map[types.Speed]float64, len(perMinute))
	for k, v := range perMinute {
		copied[k] = v
	}
	return &RateTable{perMinute: copied, nightly: nightly}, nil
}

// PerMinute 风速费率(元/分钟)
func (t *RateTable) PerMinute(speed types.Speed) float64 {
	return t.perMinute[speed]
}

// Nightly 房费(元/晚)
func (t *RateTable) Nightly() float64 {
	return t.nightly
}
