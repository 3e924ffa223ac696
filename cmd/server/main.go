package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/vitalog/internal/config"
	"github.com/vitalog/internal/db"
	"github.com/vitalog/internal/handler"
	"github.com/vitalog/internal/router"
	"github.com/vitalog/internal/service"
)

func main() {
	cfg := config.Load()
	gin.SetMode(cfg.GinMode)

	// 初始化数据库
	if err := db.Init(cfg.DatabaseDriver, cfg.DatabaseSource()); err != nil {
		log.Fatalf("failed to initialize database: %v", err)
	}
	if err := db.EnsureUser(db.DB, cfg.SuperRootUserName, cfg.SuperRootPassword); err != nil {
		log.Fatalf("failed to ensure super root user: %v", err)
	}

	api := handler.NewAPI(db.DB, handler.Options{
		Location:     cfg.Location,
		MaxRangeDays: cfg.RollupMaxRangeDays,
		Recompute: service.RecomputeOptions{
			Workers:      cfg.RollupWorkers,
			PollInterval: cfg.RollupJobPollInterval,
			MaxRangeDays: cfg.RollupMaxRangeDays,
		},
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 后台消费异步重算任务
	go func() {
		if err := api.Recompute().Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("[recompute] worker stopped: %v", err)
		}
	}()

	// 设置并运行 Gin 服务器
	srv := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: router.SetupRouter(api, cfg.SessionSecret),
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("failed to run server: %v", err)
		}
	}()
	log.Printf("[server] listening on %s", cfg.ListenAddr)

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("[server] shutdown: %v", err)
	}
}
