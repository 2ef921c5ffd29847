// internal/db/detail_repository.go

package db

import (
	"fmt"
	"time"

	"gorm.io/gorm"

	"backend/internal/logger"
)

type DetailRepository struct {
	db *gorm.DB
}

func NewDetailRepository(db *gorm.DB) *DetailRepository {
	return &DetailRepository{db: db}
}

// CreateDetail 追加详单记录,落库即不可变
func (r *DetailRepository) CreateDetail(detail *Detail) error {
	if err := r.db.Create(detail).Error; err != nil {
		logger.Error("创建详单记录失败 - 房间ID: %d, 错误: %v", detail.RoomID, err)
		return fmt.Errorf("create detail: %w", err)
	}
	logger.Debug("详单落库 - 房间 %d, 风速 %s, 时长 %.1fs, 费用 %.4f元",
		detail.RoomID, detail.Speed, detail.ServeSeconds, detail.Fee)
	return nil
}

// ListByRoomAndRange 获取与给定时间窗相交的详单段,按开始时间排序
func (r *DetailRepository) ListByRoomAndRange(roomID int, from, to time.Time) ([]Detail, error) {
	var details []Detail
	err := r.db.Where("room_id = ? AND start_time < ? AND end_time > ?", roomID, to, from).
		Order("start_time ASC").
		Find(&details).Error
	if err != nil {
		return nil, fmt.Errorf("list details: %w", err)
	}
	return details, nil
}

// ListByRoom 获取房间的全部详单
func (r *DetailRepository) ListByRoom(roomID int) ([]Detail, error) {
	var details []Detail
	err := r.db.Where("room_id = ?", roomID).
		Order("start_time ASC").
		Find(&details).Error
	if err != nil {
		return nil, fmt.Errorf("list details: %w", err)
	}
	return details, nil
}
