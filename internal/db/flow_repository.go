// internal/db/flow_repository.go

package db

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"backend/internal/types"
)

// FlowRepository 入住/退房向导流程的持久化
// 流程实例记录当前阶段,客户端重连后据此续办而非从头再来
type FlowRepository struct {
	db *gorm.DB
}

func NewFlowRepository(db *gorm.DB) *FlowRepository {
	return &FlowRepository{db: db}
}

func (r *FlowRepository) CreateCheckinFlow(flow *CheckinFlow) error {
	return r.db.Create(flow).Error
}

func (r *FlowRepository) GetCheckinFlow(flowID uint) (*CheckinFlow, error) {
	var flow CheckinFlow
	err := r.db.First(&flow, flowID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("checkin flow %d: %w", flowID, types.ErrNotFound)
		}
		return nil, err
	}
	return &flow, nil
}

func (r *FlowRepository) SaveCheckinFlow(flow *CheckinFlow) error {
	return r.db.Save(flow).Error
}

func (r *FlowRepository) CreateCheckoutFlow(flow *CheckoutFlow) error {
	return r.db.Create(flow).Error
}

// GetOpenCheckoutFlowByRoom 获取房间最近一次未完成支付的退房流程
func (r *FlowRepository) GetOpenCheckoutFlowByRoom(roomID int) (*CheckoutFlow, error) {
	var flow CheckoutFlow
	err := r.db.Where("room_id = ? AND stage != ?", roomID, StageDone).
		Order("created_at DESC").
		First(&flow).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("checkout flow for room %d: %w", roomID, types.ErrNotFound)
		}
		return nil, err
	}
	return &flow, nil
}

// GetLatestCheckoutFlowByRoom 获取房间最近一次退房流程(含已完成)
func (r *FlowRepository) GetLatestCheckoutFlowByRoom(roomID int) (*CheckoutFlow, error) {
	var flow CheckoutFlow
	err := r.db.Where("room_id = ?", roomID).
		Order("created_at DESC").
		First(&flow).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("checkout flow for room %d: %w", roomID, types.ErrNotFound)
		}
		return nil, err
	}
	return &flow, nil
}

func (r *FlowRepository) SaveCheckoutFlow(flow *CheckoutFlow) error {
	return r.db.Save(flow).Error
}
