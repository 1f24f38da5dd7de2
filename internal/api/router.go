package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jengzang/fog-backend-go/internal/config"
	"github.com/jengzang/fog-backend-go/internal/handler"
	"github.com/jengzang/fog-backend-go/internal/middleware"
)

// Handlers 路由使用的全部处理器
type Handlers struct {
	Discovery  *handler.DiscoveryHandler
	Statistics *handler.StatisticsHandler
	Fog        *handler.FogHandler
	Task       *handler.TaskHandler
}

// SetupRouter 设置路由
func SetupRouter(cfg *config.Config, h *Handlers) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.Logger())
	r.MaxMultipartMemory = 32 << 20

	// CORS 中间件
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"message": "Fog Backend API is running",
		})
	})

	auth := middleware.Auth(cfg.JWTSecret)

	// API 路由组
	api := r.Group("/api/v1")
	{
		// 已探索单元
		discoveries := api.Group("/discoveries")
		{
			discoveries.GET("/cells", h.Discovery.Cells)
			discoveries.POST("", auth, h.Discovery.Insert)
			discoveries.DELETE("", auth, h.Discovery.Clear)
		}
		api.GET("/export", h.Discovery.Export)
		api.GET("/history", h.Statistics.History)

		// 迷雾轮廓
		fog := api.Group("/fog")
		{
			fog.GET("/rings", h.Fog.Rings)
			fog.GET("/overlay", h.Fog.Overlay)
		}

		// 区域统计
		statistics := api.Group("/statistics")
		{
			statistics.GET("", h.Statistics.List)
			statistics.GET("/:code", h.Statistics.Get)
			statistics.PATCH("/:code/visibility", auth, h.Statistics.SetVisibility)
			statistics.POST("/refresh", auth, h.Task.Refresh)
		}

		// 导入与后台任务
		imports := api.Group("/imports")
		{
			imports.GET("/formats", h.Task.Formats)
			imports.POST("", auth, middleware.RateLimit(cfg.RateLimit, time.Minute), uploadLimit(cfg.MaxUploadSize), h.Task.Import)
		}
		tasks := api.Group("/tasks")
		{
			tasks.GET("", h.Task.ListTasks)
			tasks.GET("/:id", h.Task.GetTask)
		}
	}

	return r
}

// uploadLimit 限制请求体大小
func uploadLimit(limit int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limit > 0 {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
		}
		c.Next()
	}
}
