package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/hackgods/doctor-booking/internal/booking"
	"github.com/hackgods/doctor-booking/internal/config"
	"github.com/hackgods/doctor-booking/internal/db"
	"github.com/hackgods/doctor-booking/internal/logger"
	"github.com/hackgods/doctor-booking/internal/notify"
	redisclient "github.com/hackgods/doctor-booking/internal/redis"
	"github.com/hackgods/doctor-booking/internal/vnpay"
	"github.com/hackgods/doctor-booking/internal/wallet"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}

	zl, err := logger.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	defer zl.Sync()

	zl.Info("expiry-worker starting up",
		zap.String("env", cfg.Env),
		zap.Duration("interval", cfg.WorkerInterval),
		zap.Duration("gateway_expiry", cfg.GatewayExpiry))

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Connect Postgres
	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN)
	cancelPg()
	if err != nil {
		zl.Fatal("postgres connection error", zap.Error(err))
	}
	defer pgPool.Close()
	zl.Info("connected to Postgres")

	rdb, err := redisclient.NewRedisClient(cfg.RedisAddr, cfg.RedisUsername, cfg.RedisPassword)
	if err != nil {
		zl.Fatal("redis connection error", zap.Error(err))
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			zl.Warn("error closing redis", zap.Error(err))
		}
	}()
	zl.Info("connected to Redis")

	loc, err := time.LoadLocation(cfg.VNPay.Timezone)
	if err != nil {
		zl.Fatal("invalid VNPAY_TZ", zap.String("tz", cfg.VNPay.Timezone), zap.Error(err))
	}

	gateway := vnpay.New(vnpay.Config{
		TmnCode:          cfg.VNPay.TmnCode,
		HashSecret:       cfg.VNPay.HashSecret,
		BaseURL:          cfg.VNPay.BaseURL,
		ReturnURL:        cfg.VNPay.ReturnURL,
		DepositReturnURL: cfg.VNPay.DepositReturnURL,
		Location:         loc,
	}, zl)

	walletRepo := wallet.NewPgRepository(pgPool)
	wallets := wallet.NewService(walletRepo, zl)

	bookingRepo := booking.NewPgRepository(pgPool)
	locker := redisclient.NewRedisSlotLocker(rdb, cfg.LockTTL)
	svc := booking.NewService(bookingRepo, wallets, gateway, locker,
		notify.NewLogSender(zl), booking.DefaultGrid(), cfg.GatewayExpiry, zl)

	// Run once at startup
	runOnce(rootCtx, svc, zl)

	ticker := time.NewTicker(cfg.WorkerInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rootCtx.Done():
			zl.Info("shutdown signal received, stopping expiry worker")
			return
		case <-ticker.C:
			runOnce(rootCtx, svc, zl)
		}
	}
}

func runOnce(ctx context.Context, svc *booking.Service, zl *zap.Logger) {
	runCtx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()

	start := time.Now()
	expired, err := svc.ExpireAbandonedPayments(runCtx)
	if err != nil {
		zl.Error("expiry run error", zap.Error(err))
		return
	}
	zl.Info("expiry run complete",
		zap.Int("expired", expired),
		zap.Duration("took", time.Since(start)))
}
