package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/hackgods/doctor-booking/internal/api"
	"github.com/hackgods/doctor-booking/internal/booking"
	"github.com/hackgods/doctor-booking/internal/config"
	"github.com/hackgods/doctor-booking/internal/db"
	"github.com/hackgods/doctor-booking/internal/logger"
	"github.com/hackgods/doctor-booking/internal/notify"
	redisclient "github.com/hackgods/doctor-booking/internal/redis"
	"github.com/hackgods/doctor-booking/internal/vnpay"
	"github.com/hackgods/doctor-booking/internal/wallet"
)

const version = "1.0.0"

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

	zl.Info("api-server starting up",
		zap.String("env", cfg.Env),
		zap.String("http_port", cfg.HTTPPort))

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

	if cfg.MigrationsDir != "" {
		if err := db.RunMigrations(rootCtx, pgPool, cfg.MigrationsDir, zl); err != nil {
			zl.Fatal("migrations failed", zap.Error(err))
		}
	}

	// Connect Redis
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
	notifier := notify.NewLogSender(zl)
	bookings := booking.NewService(bookingRepo, wallets, gateway, locker, notifier,
		booking.DefaultGrid(), cfg.GatewayExpiry, zl)

	router := api.NewRouter(api.RouterConfig{
		Bookings: bookings,
		Wallets:  wallets,
		Gateway:  gateway,
		PgPool:   pgPool,
		Redis:    rdb,
		Logger:   zl,
		Env:      cfg.Env,
		Version:  version,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		zl.Info("http server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zl.Fatal("http server error", zap.Error(err))
		}
	}()

	<-rootCtx.Done()
	zl.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		zl.Error("http shutdown error", zap.Error(err))
	}

	zl.Info("api-server stopped")
}
