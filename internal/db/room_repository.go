// internal/db/room_repository.go

package db

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"backend/internal/types"
)

type RoomRepository struct {
	db *gorm.DB
}

func NewRoomRepository(db *gorm.DB) *RoomRepository {
	return &RoomRepository{db: db}
}

// GetRoomByID 通过房间号获取房间信息
func (r *RoomRepository) GetRoomByID(roomID int) (*RoomInfo, error) {
	var room RoomInfo
	err := r.db.Where("room_id = ?", roomID).First(&room).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("room %d: %w", roomID, types.ErrNotFound)
		}
		return nil, err
	}
	return &room, nil
}

// GetAllRooms 获取所有房间
func (r *RoomRepository) GetAllRooms() ([]RoomInfo, error) {
	var rooms []RoomInfo
	err := r.db.Order("room_id ASC").Find(&rooms).Error
	return rooms, err
}

// GetOccupiedRooms 获取所有已入住房间
func (r *RoomRepository) GetOccupiedRooms() ([]RoomInfo, error) {
	var rooms []RoomInfo
	err := r.db.Where("state = ?", RoomOccupied).Order("room_id ASC").Find(&rooms).Error
	return rooms, err
}

// GetAvailableRooms 获取所有可入住房间
func (r *RoomRepository) GetAvailableRooms() ([]RoomInfo, error) {
	var rooms []RoomInfo
	err := r.db.Where("state = ?", RoomVacant).Order("room_id ASC").Find(&rooms).Error
	return rooms, err
}

// OccupyIfVacant 原子占用房间:只有仍处于空闲状态才会成功
// 入住有效性在提交时重验,而不是依赖之前的快照
func (r *RoomRepository) OccupyIfVacant(roomID int, clientID, clientName string, guests int, checkin time.Time, defaultTemp float64) (bool, error) {
	result := r.db.Model(&RoomInfo{}).
		Where("room_id = ? AND state = ?", roomID, RoomVacant).
		Updates(map[string]interface{}{
			"state":         RoomOccupied,
			"client_id":     clientID,
			"client_name":   clientName,
			"guest_count":   guests,
			"checkin_time":  checkin,
			"ac_state":      ACOff,
			"mode":          string(types.ModeCooling),
			"current_speed": "",
			"target_temp":   defaultTemp,
			"current_fee":   0,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// Release 退房释放:清除客人信息,本次费用清零,历史累计保留
func (r *RoomRepository) Release(roomID int, at time.Time) error {
	return r.db.Model(&RoomInfo{}).
		Where("room_id = ? AND state = ?", roomID, RoomOccupied).
		Updates(map[string]interface{}{
			"state":         RoomVacant,
			"client_id":     "",
			"client_name":   "",
			"guest_count":   0,
			"checkout_time": at,
			"ac_state":      ACOff,
			"current_speed": "",
			"current_fee":   0,
		}).Error
}

// UpdateTemperature 更新房间当前温度
func (r *RoomRepository) UpdateTemperature(roomID int, temp float64) error {
	result := r.db.Model(&RoomInfo{}).
		Where("room_id = ?", roomID).
		Update("current_temp", temp)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("room %d: %w", roomID, types.ErrNotFound)
	}
	return nil
}

// UpdateACConfig 更新空调的期望配置(开关/模式/目标温度/风速)
func (r *RoomRepository) UpdateACConfig(roomID, acState int, mode types.Mode, targetTemp float64, speed types.Speed) error {
	return r.db.Model(&RoomInfo{}).
		Where("room_id = ?", roomID).
		Updates(map[string]interface{}{
			"ac_state":      acState,
			"mode":          string(mode),
			"target_temp":   targetTemp,
			"current_speed": string(speed),
		}).Error
}

// UpdateTargetTemp 更新目标温度
func (r *RoomRepository) UpdateTargetTemp(roomID int, targetTemp float64) error {
	return r.db.Model(&RoomInfo{}).
		Where("room_id = ?", roomID).
		Update("target_temp", targetTemp).Error
}

// UpdateSpeed 更新期望风速
func (r *RoomRepository) UpdateSpeed(roomID int, speed types.Speed) error {
	return r.db.Model(&RoomInfo{}).
		Where("room_id = ?", roomID).
		Update("current_speed", string(speed)).Error
}

// AddFee 费用累加,同时计入本次入住与历史累计
func (r *RoomRepository) AddFee(roomID int, fee float64) error {
	return r.db.Model(&RoomInfo{}).
		Where("room_id = ?", roomID).
		Updates(map[string]interface{}{
			"current_fee": gorm.Expr("current_fee + ?", fee),
			"total_fee":   gorm.Expr("total_fee + ?", fee),
		}).Error
}

// AddUsage 累加服务/等待秒数,按调度周期的真实长度累计
func (r *RoomRepository) AddUsage(roomID int, servedDelta, waitedDelta float64) error {
	return r.db.Model(&RoomInfo{}).
		Where("room_id = ?", roomID).
		Updates(map[string]interface{}{
			"served_seconds": gorm.Expr("served_seconds + ?", servedDelta),
			"waited_seconds": gorm.Expr("waited_seconds + ?", waitedDelta),
		}).Error
}
