package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/notes-bin/imageshare/internal/api"
	"github.com/notes-bin/imageshare/internal/cache"
	"github.com/notes-bin/imageshare/internal/config"
	"github.com/notes-bin/imageshare/internal/database"
	"github.com/notes-bin/imageshare/internal/redis"
	"github.com/notes-bin/imageshare/internal/repository"
)

func main() {
	// 初始化日志
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// 加载配置文件
	cfg, err := config.Load("config/config.json")
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	// 初始化 Redis
	redisClient, err := redis.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.PoolSize)
	if err != nil {
		slog.Error("Failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	defer redisClient.Close()

	// 初始化 PostgreSQL，先迁移再建连接池
	if err := database.Migrate(cfg.Postgres); err != nil {
		slog.Error("Failed to apply migrations", "error", err)
		os.Exit(1)
	}
	pool, err := database.Connect(context.Background(), cfg.Postgres)
	if err != nil {
		slog.Error("Failed to connect to PostgreSQL", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	// 后台清理排行榜里已删除图片的计数
	reconcileCtx, stopReconcile := context.WithCancel(context.Background())
	defer stopReconcile()
	go cache.StartRankingReconcile(reconcileCtx, redisClient,
		repository.NewImageRepository(pool), cfg.ReconcileInterval)

	// 设置路由
	router := api.SetupRouter(cfg, redisClient, pool)

	// 启动服务器
	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}
	go func() {
		slog.Info("Server starting on port", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	// 优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		slog.Error("Server shutdown failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Server stopped")
}
