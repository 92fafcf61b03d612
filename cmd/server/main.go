package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ecommerce/internal/auth"
	"ecommerce/internal/cart"
	"ecommerce/internal/catalog"
	"ecommerce/internal/clock"
	"ecommerce/internal/config"
	"ecommerce/internal/logging"
	"ecommerce/internal/middleware"
	"ecommerce/internal/notify"
	"ecommerce/internal/observability"
	"ecommerce/internal/order"
	"ecommerce/internal/queue"
	"ecommerce/internal/reaper"
	"ecommerce/internal/router"
	"ecommerce/internal/storage"

	"github.com/gin-gonic/gin"
	rd "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	log, err := logging.New(cfg.Env)
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	if err := run(cfg, log); err != nil {
		log.Fatal("server exited", zap.Error(err))
	}
}

func run(cfg config.AppConfig, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := observability.SetupTracing(ctx, cfg.OtelEndpoint)
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			log.Warn("tracing shutdown", zap.Error(err))
		}
	}()

	// 1. 连接 SQLite，自动建表
	db, err := storage.Open(cfg.DBPath, log)
	if err != nil {
		return err
	}

	// 2. Redis 用于限流与清理锁；连不上时降级为单机模式
	var rdb *rd.Client
	client := rd.NewClient(&rd.Options{Addr: cfg.RedisAddr, DB: cfg.RedisDB})
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	if err := client.Ping(pingCtx).Err(); err != nil {
		log.Warn("redis unavailable, rate limiting and reaper lock disabled", zap.String("addr", cfg.RedisAddr), zap.Error(err))
		_ = client.Close()
	} else {
		rdb = client
		defer func() { _ = rdb.Close() }()
	}
	cancel()

	// 3. 通知队列
	var mailer notify.Handler = notify.LogMailer{Log: log}
	if cfg.NotifySink == "kafka" {
		producer := queue.NewProducer(cfg.KafkaBrokers, cfg.NotifyTopic)
		defer func() { _ = producer.Close() }()
		mailer = notify.KafkaMailer{Producer: producer}
	}
	sink := notify.NewSink(cfg.NotifyQueueSize, log,
		notify.WithHandler(notify.JobSendEmail, mailer),
		notify.WithJobTimeout(cfg.NotifyJobTimeout),
	)
	sink.Start(ctx)

	clk := clock.NewSystem()
	tokens := auth.NewTokens(cfg.JWTSecret, cfg.JWTTTL, clk)
	authSvc := auth.NewService(db, tokens, log)
	if cfg.AdminEmail != "" {
		if err := authSvc.EnsureAdmin(ctx, cfg.AdminEmail, cfg.AdminPassword); err != nil {
			return err
		}
	}
	orders := order.NewService(db, clk, sink, log, order.WithPaymentWindow(cfg.PaymentWindow))

	// 4. 超时清理
	reaperOpts := []reaper.Option{
		reaper.WithInterval(cfg.ReaperInterval),
		reaper.WithWindow(cfg.PaymentWindow),
		reaper.WithBatchSize(cfg.ReaperBatchSize),
	}
	if rdb != nil {
		reaperOpts = append(reaperOpts, reaper.WithLocker(reaper.NewRedisLocker(rdb, cfg.ReaperInterval, log)))
	}
	rp := reaper.New(db, clk, log, reaperOpts...)
	reaperDone := make(chan struct{})
	go func() {
		defer close(reaperDone)
		rp.Run(ctx)
	}()

	// 5. HTTP
	if cfg.Env != "development" && cfg.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(middleware.ZapLogger(log), middleware.ZapRecovery(log))
	router.Setup(r, router.Deps{
		Auth:    authSvc,
		Catalog: catalog.NewService(db, log),
		Cart:    cart.NewService(db),
		Orders:  orders,
		Redis:   rdb,
		Config:  cfg,
		Log:     log,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	var serveErr error
	select {
	case <-ctx.Done():
	case serveErr = <-errCh:
		stop()
	}
	log.Info("shutting down")

	// 先停 HTTP，不再产生新任务；再等清理退出；最后排空通知队列。
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancelShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("http shutdown", zap.Error(err))
	}
	<-reaperDone
	if err := sink.Shutdown(shutdownCtx); err != nil {
		log.Warn("notification drain incomplete", zap.Error(err))
	}

	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	return serveErr
}
