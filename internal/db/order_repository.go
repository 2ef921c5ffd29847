// internal/db/order_repository.go

package db

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"backend/internal/types"
)

type OrderRepository struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

// CreateOrder 创建住宿订单
func (r *OrderRepository) CreateOrder(order *Order) error {
	return r.db.Create(order).Error
}

// GetOrderByID 按订单号查询
func (r *OrderRepository) GetOrderByID(orderID uint) (*Order, error) {
	var order Order
	err := r.db.First(&order, orderID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("order %d: %w", orderID, types.ErrNotFound)
		}
		return nil, err
	}
	return &order, nil
}

// GetOpenOrderByRoom 获取房间当前未结算的订单
func (r *OrderRepository) GetOpenOrderByRoom(roomID int) (*Order, error) {
	var order Order
	err := r.db.Where("room_id = ? AND closed_at IS NULL", roomID).
		Order("created_at DESC").
		First(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("open order for room %d: %w", roomID, types.ErrNotFound)
		}
		return nil, err
	}
	return &order, nil
}

// UpdateDeposit 记录押金
func (r *OrderRepository) UpdateDeposit(orderID uint, amount float64) error {
	return r.db.Model(&Order{}).
		Where("id = ?", orderID).
		Update("deposit", amount).Error
}

// CloseOrder 结算归档订单
func (r *OrderRepository) CloseOrder(orderID uint, at time.Time) error {
	return r.db.Model(&Order{}).
		Where("id = ?", orderID).
		Update("closed_at", at).Error
}
