package main

import (
	"log/slog"
	"time"
)

type apiConfig struct {
	Port            uint16        `env:"APP_PORT" default:"8080"`
	LogLevel        slog.Level    `env:"APP_LOG_LEVEL" default:"INFO"`
	ShutdownTimeout time.Duration `env:"APP_SHUTDOWN_TIMEOUT" default:"10s"`

	PGDSN string `env:"PG_DSN"`

	// Identity provider (GoTrue-compatible) base URL and the service-role
	// key, also accepted as an admin bearer token.
	SupabaseURL    string `env:"SUPABASE_URL"`
	ServiceRoleKey string `env:"SERVICE_ROLE_KEY"`

	// Vendor credentials and the fixed price-to-credits conversion rate
	// (credits per one unit of vendor currency), locked for the process
	// lifetime.
	FiveSimAPIKey     string  `env:"FIVE_SIM_API_KEY"`
	FiveSimBaseURL    string  `env:"FIVE_SIM_BASE_URL" default:"https://5sim.net/v1"`
	PriceToCreditRate float64 `env:"PRICE_TO_CREDIT_RATE" default:"1"`
}
