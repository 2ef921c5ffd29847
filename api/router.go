// api/router.go

package api

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"backend/internal/handlers"
	"backend/internal/logger"
)

// SetupRouter 组装全部路由
func SetupRouter(
	acHandler *handlers.ACHandler,
	frontdeskHandler *handlers.FrontdeskHandler,
	monitorHandler *handlers.MonitorHandler,
) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	// 配置CORS
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// 访问日志中间件
	router.Use(func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		latency := time.Since(start)
		logger.Info("[%s] %s %s %v", c.Request.Method, path, c.ClientIP(), latency)
	})

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// 顾客空调控制面板
	panel := router.Group("/panel")
	{
		// 开机
		panel.POST("/poweron", acHandler.PowerOn)
		// 关机
		panel.POST("/poweroff", acHandler.PowerOff)
		// 调节温度
		panel.POST("/changetemp", acHandler.ChangeTemp)
		// 调节风速
		panel.POST("/changespeed", acHandler.ChangeSpeed)
	}

	// 前台入住/退房向导
	frontdesk := router.Group("/frontdesk")
	{
		frontdesk.POST("/checkin/register", frontdeskHandler.Register)
		frontdesk.GET("/checkin/:flowId", frontdeskHandler.GetFlow)
		frontdesk.POST("/checkin/:flowId/check-room-state", frontdeskHandler.CheckRoomState)
		frontdesk.POST("/checkin/:flowId/select-room", frontdeskHandler.SelectRoom)
		frontdesk.POST("/checkin/:flowId/create-order", frontdeskHandler.CreateOrder)
		frontdesk.POST("/checkin/:flowId/deposit", frontdeskHandler.Deposit)
		frontdesk.POST("/checkin/:flowId/deposit/skip", frontdeskHandler.SkipDeposit)
		frontdesk.POST("/checkin/:flowId/issue-key", frontdeskHandler.IssueKey)
		frontdesk.POST("/checkin/:flowId/issue-key/skip", frontdeskHandler.SkipIssueKey)

		frontdesk.POST("/checkout", frontdeskHandler.Checkout)
		frontdesk.POST("/payment", frontdeskHandler.Payment)
		frontdesk.GET("/rooms/:roomId/bills", frontdeskHandler.BillsByRoom)
	}

	// 只读监控
	mon := router.Group("/monitor")
	{
		mon.GET("/rooms", monitorHandler.Rooms)
		mon.GET("/rooms/:roomId", monitorHandler.Room)
	}

	return router
}
