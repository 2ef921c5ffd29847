// internal/db/init.go

// Package db 基于gorm+sqlite的数据访问层
package db

import (
	"fmt"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	glogger "gorm.io/gorm/logger"
)

// Open 打开数据库并完成建表迁移
func Open(path string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: glogger.Default.LogMode(glogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql db: %w", err)
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(10)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := db.AutoMigrate(
		&RoomInfo{},
		&Order{},
		&Detail{},
		&Bill{},
		&CheckinFlow{},
		&CheckoutFlow{},
	); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return db, nil
}

// 初始房温按固定序列循环,便于演示不同的制冷需求
var seedTemps = []float64{32, 28, 30, 29, 35}

// SeedRooms 首次启动时建立房间底账,已有数据则跳过
func SeedRooms(db *gorm.DB, count int, defaultTemp float64) error {
	var existing int64
	if err := db.Model(&RoomInfo{}).Count(&existing).Error; err != nil {
		return err
	}
	if existing > 0 {
		return nil
	}

	rooms := make([]RoomInfo, 0, count)
	for i := 1; i <= count; i++ {
		temp := seedTemps[(i-1)%len(seedTemps)]
		rooms = append(rooms, RoomInfo{
			RoomID:      i,
			State:       RoomVacant,
			ACState:     ACOff,
			CurrentTemp: temp,
			InitialTemp: temp,
			TargetTemp:  defaultTemp,
		})
	}
	return db.CreateInBatches(rooms, 50).Error
}
