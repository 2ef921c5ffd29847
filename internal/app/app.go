// internal/app/app.go

// Package app 负责组件装配与生命周期
package app

import (
	"context"
	"fmt"
	"net/http"

	"gorm.io/gorm"

	"backend/api"
	"backend/internal/billing"
	"backend/internal/config"
	"backend/internal/db"
	"backend/internal/events"
	"backend/internal/handlers"
	"backend/internal/logger"
	"backend/internal/monitor"
	"backend/internal/scheduler"
	"backend/internal/workflow"
)

// App 聚合全部组件,Start/Stop管理生命周期
type App struct {
	cfg   *config.Config
	gorm  *gorm.DB
	sched *scheduler.Scheduler
	obs   *monitor.Observer
	srv   *http.Server
}

// Initialize 按依赖顺序装配:存储→计费→调度→工作流→监控→HTTP
func Initialize(cfg *config.Config) (*App, error) {
	gormDB, err := db.Open(cfg.DBPath)
	if err != nil {
		return nil, err
	}
	if err := db.SeedRooms(gormDB, cfg.RoomCount, cfg.DefaultTemp); err != nil {
		return nil, fmt.Errorf("seed rooms: %w", err)
	}

	roomRepo := db.NewRoomRepository(gormDB)
	detailRepo := db.NewDetailRepository(gormDB)
	orderRepo := db.NewOrderRepository(gormDB)
	billRepo := db.NewBillRepository(gormDB)
	flowRepo := db.NewFlowRepository(gormDB)

	bus := events.NewEventBus()

	rates, err := billing.NewRateTable(cfg.Rates, cfg.NightlyRate)
	if err != nil {
		return nil, err
	}
	meter := billing.NewMeter(rates, roomRepo, detailRepo)

	sched := scheduler.NewScheduler(scheduler.Config{
		SlotCount:    cfg.SlotCount,
		TickInterval: cfg.TickInterval,
		DefaultSpeed: cfg.DefaultSpeed,
	}, meter, roomRepo, bus)

	guard := workflow.NewRoomGuard()
	checkin := workflow.NewCheckinService(flowRepo, roomRepo, orderRepo, guard, bus, cfg.DefaultTemp)
	checkout := workflow.NewCheckoutService(roomRepo, orderRepo, billRepo, flowRepo, meter, sched, rates, guard, bus)

	mon := monitor.NewService(roomRepo, sched, meter)
	obs := monitor.NewObserver(bus)

	acHandler := handlers.NewACHandler(sched, mon, guard)
	frontdeskHandler := handlers.NewFrontdeskHandler(checkin, checkout)
	monitorHandler := handlers.NewMonitorHandler(mon)

	router := api.SetupRouter(acHandler, frontdeskHandler, monitorHandler)
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler: router,
	}

	return &App{
		cfg:   cfg,
		gorm:  gormDB,
		sched: sched,
		obs:   obs,
		srv:   srv,
	}, nil
}

// Start 启动调度循环和HTTP服务,阻塞直到服务退出
func (a *App) Start() error {
	a.obs.Start()
	go a.sched.Run()

	logger.Info("服务启动, 监听 %s, 服务槽 %d, 调度周期 %v",
		a.srv.Addr, a.cfg.SlotCount, a.cfg.TickInterval)
	if err := a.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Stop 优雅停机:先停HTTP入口,再停调度循环
func (a *App) Stop(ctx context.Context) error {
	err := a.srv.Shutdown(ctx)
	a.sched.Stop()
	a.obs.Stop()

	if sqlDB, dbErr := a.gorm.DB(); dbErr == nil {
		_ = sqlDB.Close()
	}
	return err
}
