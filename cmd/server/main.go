package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/BrandonCHaha/DriveTimeAnalysis/internal/api"
	"github.com/BrandonCHaha/DriveTimeAnalysis/internal/config"
	"github.com/BrandonCHaha/DriveTimeAnalysis/internal/database"
	"github.com/BrandonCHaha/DriveTimeAnalysis/internal/model"
	"github.com/BrandonCHaha/DriveTimeAnalysis/internal/service"
	"github.com/gin-gonic/gin"
)

func main() {
	// 加载配置
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 连接数据库（仅分析记录使用，可关闭）
	var db *database.DB
	if cfg.Database.Enabled {
		db, err = database.Connect(cfg.Database)
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		defer db.Close()
	} else {
		log.Println("Database disabled, run history will not be recorded")
	}

	// 初始化服务层
	breakpoints := model.NewBreakpointSet()
	overlayService := service.NewOverlayService()
	historyService := service.NewHistoryService(db)
	tokenService := service.NewArcGISTokenService(cfg.ArcGIS)
	serviceAreaService := service.NewArcGISServiceAreaService(cfg.ArcGIS)
	analysisService := service.NewAnalysisService(
		breakpoints,
		tokenService,
		serviceAreaService,
		service.NewRenderPolicy(),
		overlayService,
		historyService,
		cfg.ArcGIS,
	)

	// 设置 Gin 路由
	router := gin.Default()

	// API 路由
	apiGroup := router.Group("/api/v1")
	{
		handler := api.NewHandler(analysisService, overlayService, historyService, breakpoints)
		apiGroup.POST("/analyze", handler.Analyze)
		apiGroup.GET("/breakpoints", handler.GetBreakpoints)
		apiGroup.PUT("/breakpoints/:index", handler.SetBreakpoint)
		apiGroup.GET("/overlay", handler.GetOverlay)
		apiGroup.DELETE("/overlay", handler.ClearOverlay)
		apiGroup.GET("/status", handler.GetStatus)
		apiGroup.GET("/runs", handler.GetRuns)
	}

	// 启动服务器
	srv := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: router,
	}

	// 优雅关闭
	go func() {
		log.Printf("Server starting on %s", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}
