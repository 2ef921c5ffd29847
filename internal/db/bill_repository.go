// internal/db/bill_repository.go

package db

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"backend/internal/types"
)

type BillRepository struct {
	db *gorm.DB
}

func NewBillRepository(db *gorm.DB) *BillRepository {
	return &BillRepository{db: db}
}

// CreateBill 生成账单,生成后除支付标记外不再修改
func (r *BillRepository) CreateBill(bill *Bill) error {
	return r.db.Create(bill).Error
}

// GetBillByID 按账单号查询
func (r *BillRepository) GetBillByID(billID uint) (*Bill, error) {
	var bill Bill
	err := r.db.First(&bill, billID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("bill %d: %w", billID, types.ErrNotFound)
		}
		return nil, err
	}
	return &bill, nil
}

// MarkPaid 置位支付标记,重复支付不报错(幂等)
func (r *BillRepository) MarkPaid(billIDs ...uint) error {
	return r.db.Model(&Bill{}).
		Where("id IN ?", billIDs).
		Update("paid", true).Error
}
