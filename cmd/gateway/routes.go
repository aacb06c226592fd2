package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"

	"navo-system/config"
	"navo-system/internal/database"
	"navo-system/internal/gateway/handlers"
	"navo-system/internal/gateway/middleware"
	"navo-system/internal/realtime"
	auditsvc "navo-system/internal/services/audit/handler"
	commissionsvc "navo-system/internal/services/commission/handler"
	lifecyclesvc "navo-system/internal/services/lifecycle/handler"
	notifysvc "navo-system/internal/services/notify/handler"
	rulessvc "navo-system/internal/services/rules/handler"
	"navo-system/internal/utils"
)

func main() {
	cfg := config.LoadConfig()
	utils.SetJWTSecret(cfg.Auth.JWTSecret)

	db, err := database.NewConnection(cfg.DB.DSN())
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	redisClient := config.NewRedisClient(cfg.Redis)
	publisher := realtime.NewPublisher(redisClient)

	auditHandler := auditsvc.NewAuditHandler(db)
	notifyHandler := notifysvc.NewNotifyHandler(db, redisClient)
	lifecycleHandler := lifecyclesvc.NewLifecycleHandler(db, auditHandler, notifyHandler, publisher)
	commissionHandler := commissionsvc.NewCommissionHandler(db, redisClient, auditHandler)
	rulesHandler := rulessvc.NewRulesHandler(db, redisClient, auditHandler, publisher)

	authHTTP := handlers.NewAuthHTTPHandler(db, time.Duration(cfg.Auth.TokenTTLHours)*time.Hour)
	driverHTTP := handlers.NewDriverHTTPHandler(lifecycleHandler)
	settingsHTTP := handlers.NewSettingsHTTPHandler(rulesHandler)
	commissionHTTP := handlers.NewCommissionHTTPHandler(commissionHandler)
	auditHTTP := handlers.NewAuditHTTPHandler(auditHandler)
	securityHTTP := handlers.NewSecurityHTTPHandler(lifecycleHandler)

	r := gin.Default()
	r.Use(middleware.CORS())
	r.Use(middleware.RateLimit())

	// --- Public API Group ---
	public := r.Group("/api/v1")
	{
		auth := public.Group("/auth")
		auth.Use(securityHTTP.IPGuard())
		{
			auth.POST("/login", authHTTP.Login)
		}
	}

	// --- Protected API Group ---
	protected := r.Group("/api/v1")
	protected.Use(middleware.JWTAuth())
	{
		drivers := protected.Group("/drivers")
		{
			drivers.GET("", driverHTTP.ListDrivers)
			drivers.GET("/:id", driverHTTP.GetDriver)
			drivers.POST("/:id/transition", driverHTTP.Transition)
			drivers.POST("/bulk-transition", driverHTTP.BulkTransition)
			drivers.PUT("/:id/rating", driverHTTP.UpdateRating)
			drivers.POST("/:id/complaints", driverHTTP.RegisterComplaint)
			drivers.GET("/:id/commission-override", settingsHTTP.GetOverride)
			drivers.PUT("/:id/commission-override", settingsHTTP.SetOverride)
			drivers.DELETE("/:id/commission-override", settingsHTTP.ResetOverride)
		}

		devices := protected.Group("/devices")
		{
			devices.GET("/:device_id/blacklist", driverHTTP.CheckDevice)
		}

		settings := protected.Group("/settings")
		{
			settings.GET("/driver-rules", settingsHTTP.GetDriverRules)
			settings.PUT("/driver-rules", settingsHTTP.UpdateDriverRules)
			settings.GET("/commission", settingsHTTP.GetCommissionSettings)
			settings.PUT("/commission", settingsHTTP.UpdateCommissionSettings)
		}

		commissionRules := protected.Group("/commission-rules")
		{
			commissionRules.GET("", settingsHTTP.ListCommissionRules)
			commissionRules.POST("", settingsHTTP.CreateCommissionRule)
			commissionRules.PUT("/:id", settingsHTTP.UpdateCommissionRule)
			commissionRules.PATCH("/:id/active", settingsHTTP.ToggleCommissionRule)
			commissionRules.DELETE("/:id", settingsHTTP.DeleteCommissionRule)
		}

		automationRules := protected.Group("/automation-rules")
		{
			automationRules.GET("", settingsHTTP.ListAutomationRules)
			automationRules.POST("", settingsHTTP.CreateAutomationRule)
			automationRules.PUT("/:id", settingsHTTP.UpdateAutomationRule)
			automationRules.DELETE("/:id", settingsHTTP.DeleteAutomationRule)
		}

		commission := protected.Group("/commission")
		{
			commission.GET("/resolve", commissionHTTP.ResolveRate)
			commission.POST("/breakdown", commissionHTTP.CalculateBreakdown)
		}

		rides := protected.Group("/rides")
		{
			rides.POST("/process", commissionHTTP.ProcessRide)
		}

		security := protected.Group("/security")
		{
			security.GET("/blocked-ips", securityHTTP.ListBlockedIPs)
			security.POST("/blocked-ips", securityHTTP.BlockIP)
			security.DELETE("/blocked-ips/:ip", securityHTTP.UnblockIP)
		}

		auditGroup := protected.Group("/audit")
		{
			auditGroup.GET("", auditHTTP.ListLogs)
			auditGroup.GET("/statistics", auditHTTP.Statistics)
			auditGroup.GET("/export", auditHTTP.Export)
		}
	}

	r.GET("/health", healthCheckHandler(db, redisClient))

	port := ":" + cfg.HTTP.Port
	log.Printf("Starting server on port %s", port)
	if err := r.Run(port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

func healthCheckHandler(db *gorm.DB, redisClient *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		status := "healthy"
		httpStatus := http.StatusOK
		checks := gin.H{"database": "up", "redis": "up"}

		if sqlDB, err := db.DB(); err != nil || sqlDB.PingContext(ctx) != nil {
			checks["database"] = "down"
			status = "degraded"
			httpStatus = http.StatusServiceUnavailable
		}
		if err := redisClient.Ping(ctx).Err(); err != nil {
			checks["redis"] = "down"
			status = "degraded"
			httpStatus = http.StatusServiceUnavailable
		}

		c.JSON(httpStatus, gin.H{
			"status":    status,
			"checks":    checks,
			"timestamp": time.Now(),
		})
	}
}
