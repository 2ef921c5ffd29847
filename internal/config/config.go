// internal/config/config.go

// Package config 从环境变量加载系统配置
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"backend/internal/types"
)

// Config 系统运行配置
type Config struct {
	HTTPPort int    // HTTP监听端口
	DBPath   string // SQLite数据库文件路径

	SlotCount    int           // 中央空调同时服务的最大房间数
	TickInterval time.Duration // 调度周期
	RoomCount    int           // 房间总数

	Rates       map[types.Speed]float64 // 风速费率(元/分钟)
	NightlyRate float64                 // 房费(元/晚)

	DefaultTemp  float64     // 入住时的默认目标温度
	DefaultSpeed types.Speed // 开机默认风速
}

// Load 读取.env(若存在)和环境变量,填充默认值并校验
func Load() (*Config, error) {
	// .env不存在不算错误,容器里通常直接注入环境变量
	_ = godotenv.Load()

	cfg := &Config{
		HTTPPort:     envInt("HTTP_PORT", 8080),
		DBPath:       envString("DB_PATH", "hotel.db"),
		SlotCount:    envInt("SLOT_COUNT", 3),
		TickInterval: time.Duration(envInt("TICK_INTERVAL_MS", 1000)) * time.Millisecond,
		RoomCount:    envInt("ROOM_COUNT", 100),
		Rates: map[types.Speed]float64{
			types.SpeedLow:    envFloat("RATE_LOW", 0.5),
			types.SpeedMedium: envFloat("RATE_MEDIUM", 1.0),
			types.SpeedHigh:   envFloat("RATE_HIGH", 2.0),
		},
		NightlyRate:  envFloat("NIGHTLY_RATE", 300.0),
		DefaultTemp:  envFloat("DEFAULT_TEMP", 25.0),
		DefaultSpeed: types.Speed(envString("DEFAULT_SPEED", string(types.SpeedMedium))),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validate 配置错误在启动时直接失败,不留到请求期
func (c *Config) validate() error {
	if c.SlotCount <= 0 {
		return fmt.Errorf("invalid SLOT_COUNT: %d", c.SlotCount)
	}
	if c.RoomCount <= 0 {
		return fmt.Errorf("invalid ROOM_COUNT: %d", c.RoomCount)
	}
	if c.TickInterval <= 0 {
		return fmt.Errorf("invalid TICK_INTERVAL_MS")
	}
	for _, speed := range []types.Speed{types.SpeedLow, types.SpeedMedium, types.SpeedHigh} {
		rate, ok := c.Rates[speed]
		if !ok || rate <= 0 {
			return fmt.Errorf("invalid rate for speed %q", speed)
		}
	}
	if c.NightlyRate <= 0 {
		return fmt.Errorf("invalid NIGHTLY_RATE: %.2f", c.NightlyRate)
	}
	if !c.DefaultSpeed.Valid() {
		return fmt.Errorf("invalid DEFAULT_SPEED: %q", c.DefaultSpeed)
	}
	return nil
}

func envString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}
