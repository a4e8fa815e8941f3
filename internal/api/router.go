package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/hackgods/doctor-booking/internal/booking"
	"github.com/hackgods/doctor-booking/internal/vnpay"
	"github.com/hackgods/doctor-booking/internal/wallet"
)

type RouterConfig struct {
	Bookings *booking.Service
	Wallets  *wallet.Service
	Gateway  *vnpay.Client
	PgPool   *pgxpool.Pool
	Redis    *redis.Client
	Logger   *zap.Logger
	Env      string
	Version  string
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Apply middleware
	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(cfg.Logger))

	// Health endpoints
	health := NewHealthHandler(cfg.PgPool, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)

	// Appointment endpoints
	r.Post("/appointments", createAppointmentHandler(cfg.Bookings))
	r.Get("/appointments/{id}", getAppointmentHandler(cfg.Bookings))
	r.Post("/appointments/{id}/confirm", confirmAppointmentHandler(cfg.Bookings))
	r.Post("/appointments/{id}/complete", completeAppointmentHandler(cfg.Bookings))
	r.Post("/appointments/{id}/cancel", cancelAppointmentHandler(cfg.Bookings))

	// Doctor endpoints
	r.Get("/doctors/{id}/slots", doctorSlotsHandler(cfg.Bookings))

	// Patient endpoints
	r.Get("/patients/{id}/appointments", listPatientAppointmentsHandler(cfg.Bookings))
	r.Get("/patients/{id}/wallet", getWalletHandler(cfg.Wallets))
	r.Get("/patients/{id}/wallet/transactions", listTransactionsHandler(cfg.Wallets))
	r.Post("/patients/{id}/wallet/deposit", depositHandler(cfg.Wallets, cfg.Gateway))

	// Gateway return endpoints; VNPay redirects the browser here.
	r.Get("/payments/vnpay/return", vnpayReturnHandler(cfg.Bookings))
	r.Get("/payments/vnpay/deposit/return", vnpayDepositReturnHandler(cfg.Wallets, cfg.Gateway, cfg.Logger))

	return r
}
