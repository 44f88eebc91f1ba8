package config

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application level configuration loaded from environment and flags.
type Config struct {
	RunAddress      string
	DatabaseURI     string
	JWTSecret       string
	ShutdownTimeout time.Duration

	GatewayBaseURL      string
	GatewayClientID     string
	GatewayClientSecret string
	GatewayAPIVersion   string
	GatewayTimeout      time.Duration
	GatewayRPS          float64
	ReturnURL           string
	OrderNote           string

	RedisAddr       string
	RedisPassword   string
	RedisDB         int
	CheckoutLockTTL time.Duration
	VerifyTokenTTL  time.Duration

	ReconcileInterval time.Duration
	ReconcileBatch    int
	ReconcileWorkers  int
	ReconcileMinAge   time.Duration
}

const (
	defaultRunAddress        = ":5000"
	defaultJWTSecret         = "change-me-in-production"
	defaultShutdownTimeout   = 10 * time.Second
	defaultGatewayBaseURL    = "https://sandbox.cashfree.com"
	defaultGatewayAPIVersion = "2022-09-01"
	defaultGatewayTimeout    = 5 * time.Second
	defaultReturnURL         = "http://localhost:3000/payment/success?order_id={order_id}"
	defaultOrderNote         = "Order created from storefront"
	defaultCheckoutLockTTL   = 30 * time.Second
	defaultVerifyTokenTTL    = 24 * time.Hour
	defaultReconcileBatch    = 32
	defaultReconcileWorkers  = 2
	defaultReconcileMinAge   = 15 * time.Minute
)

// Load parses configuration from flags and environment variables.
func Load() (*Config, error) {
	return load(os.Args[1:], os.LookupEnv)
}

type envLookup func(string) (string, bool)

func load(args []string, lookup envLookup) (*Config, error) {
	cfg := &Config{
		RunAddress:          getString(lookup, "RUN_ADDRESS", defaultRunAddress),
		DatabaseURI:         getString(lookup, "DATABASE_URI", ""),
		JWTSecret:           getString(lookup, "JWT_SECRET", defaultJWTSecret),
		ShutdownTimeout:     getDuration(lookup, "SHUTDOWN_TIMEOUT", defaultShutdownTimeout),
		GatewayBaseURL:      getString(lookup, "GATEWAY_BASE_URL", defaultGatewayBaseURL),
		GatewayClientID:     getString(lookup, "GATEWAY_CLIENT_ID", ""),
		GatewayClientSecret: getString(lookup, "GATEWAY_CLIENT_SECRET", ""),
		GatewayAPIVersion:   getString(lookup, "GATEWAY_API_VERSION", defaultGatewayAPIVersion),
		GatewayTimeout:      getDuration(lookup, "GATEWAY_TIMEOUT", defaultGatewayTimeout),
		GatewayRPS:          getFloat(lookup, "GATEWAY_RPS", 0),
		ReturnURL:           getString(lookup, "RETURN_URL", defaultReturnURL),
		OrderNote:           getString(lookup, "ORDER_NOTE", defaultOrderNote),
		RedisAddr:           getString(lookup, "REDIS_ADDR", ""),
		RedisPassword:       getString(lookup, "REDIS_PASSWORD", ""),
		RedisDB:             getInt(lookup, "REDIS_DB", 0),
		CheckoutLockTTL:     getDuration(lookup, "CHECKOUT_LOCK_TTL", defaultCheckoutLockTTL),
		VerifyTokenTTL:      getDuration(lookup, "VERIFY_TOKEN_TTL", defaultVerifyTokenTTL),
		ReconcileInterval:   getDuration(lookup, "RECONCILE_INTERVAL", 0),
		ReconcileBatch:      getInt(lookup, "RECONCILE_BATCH", defaultReconcileBatch),
		ReconcileWorkers:    getInt(lookup, "RECONCILE_WORKERS", defaultReconcileWorkers),
		ReconcileMinAge:     getDuration(lookup, "RECONCILE_MIN_AGE", defaultReconcileMinAge),
	}

	fs := flag.NewFlagSet("storefront", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	var (
		shutdownTimeoutStr   = cfg.ShutdownTimeout.String()
		gatewayTimeoutStr    = cfg.GatewayTimeout.String()
		reconcileIntervalStr = cfg.ReconcileInterval.String()
	)

	fs.StringVar(&cfg.RunAddress, "a", cfg.RunAddress, "HTTP server listen address")
	fs.StringVar(&cfg.DatabaseURI, "d", cfg.DatabaseURI, "PostgreSQL DSN")
	fs.StringVar(&cfg.GatewayBaseURL, "g", cfg.GatewayBaseURL, "Payment gateway base URL")
	fs.StringVar(&cfg.JWTSecret, "jwt-secret", cfg.JWTSecret, "Secret for signing auth tokens")
	fs.StringVar(&cfg.RedisAddr, "redis", cfg.RedisAddr, "Redis address for checkout locks")
	fs.StringVar(&cfg.ReturnURL, "return-url", cfg.ReturnURL, "Hosted checkout return URL template")
	fs.StringVar(&shutdownTimeoutStr, "shutdown-timeout", shutdownTimeoutStr, "Graceful shutdown timeout")
	fs.StringVar(&gatewayTimeoutStr, "gateway-timeout", gatewayTimeoutStr, "Timeout for a single gateway call")
	fs.StringVar(&reconcileIntervalStr, "reconcile-interval", reconcileIntervalStr, "Interval between pending order reconciliation runs, 0 disables")
	fs.IntVar(&cfg.ReconcileWorkers, "reconcile-workers", cfg.ReconcileWorkers, "Number of concurrent reconciliation workers")

	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("parse flags: %w", err)
	}

	var err error

	if cfg.ShutdownTimeout, err = time.ParseDuration(shutdownTimeoutStr); err != nil {
		return nil, fmt.Errorf("invalid shutdown timeout: %w", err)
	}

	if cfg.GatewayTimeout, err = time.ParseDuration(gatewayTimeoutStr); err != nil {
		return nil, fmt.Errorf("invalid gateway timeout: %w", err)
	}

	if cfg.ReconcileInterval, err = time.ParseDuration(reconcileIntervalStr); err != nil {
		return nil, fmt.Errorf("invalid reconcile interval: %w", err)
	}

	if cfg.JWTSecret, err = readSecretFile(lookup, "JWT_SECRET_FILE", cfg.JWTSecret); err != nil {
		return nil, fmt.Errorf("read jwt secret file: %w", err)
	}

	if cfg.GatewayClientSecret, err = readSecretFile(lookup, "GATEWAY_CLIENT_SECRET_FILE", cfg.GatewayClientSecret); err != nil {
		return nil, fmt.Errorf("read gateway secret file: %w", err)
	}

	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = defaultShutdownTimeout
	}

	if cfg.GatewayTimeout <= 0 {
		cfg.GatewayTimeout = defaultGatewayTimeout
	}

	if cfg.GatewayRPS < 0 {
		cfg.GatewayRPS = 0
	}

	if cfg.CheckoutLockTTL <= 0 {
		cfg.CheckoutLockTTL = defaultCheckoutLockTTL
	}

	if cfg.VerifyTokenTTL <= 0 {
		cfg.VerifyTokenTTL = defaultVerifyTokenTTL
	}

	if cfg.ReconcileInterval < 0 {
		cfg.ReconcileInterval = 0
	}

	if cfg.ReconcileBatch <= 0 {
		cfg.ReconcileBatch = defaultReconcileBatch
	}

	if cfg.ReconcileWorkers <= 0 {
		cfg.ReconcileWorkers = defaultReconcileWorkers
	}

	if cfg.ReconcileMinAge <= 0 {
		cfg.ReconcileMinAge = defaultReconcileMinAge
	}

	if cfg.DatabaseURI == "" {
		return nil, fmt.Errorf("database URI must be provided")
	}

	if cfg.GatewayClientID == "" || cfg.GatewayClientSecret == "" {
		return nil, fmt.Errorf("gateway client credentials must be provided")
	}

	if !strings.Contains(cfg.ReturnURL, "{order_id}") {
		return nil, fmt.Errorf("return URL must contain {order_id} placeholder")
	}

	return cfg, nil
}

func readSecretFile(lookup envLookup, key, current string) (string, error) {
	path, ok := lookup(key)
	if !ok || path == "" {
		return current, nil
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(content)), nil
}

func getString(lookup envLookup, key, def string) string {
	if v, ok := lookup(key); ok && v != "" {
		return v
	}
	return def
}

func getInt(lookup envLookup, key string, def int) int {
	if v, ok := lookup(key); ok && v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getFloat(lookup envLookup, key string, def float64) float64 {
	if v, ok := lookup(key); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getDuration(lookup envLookup, key string, def time.Duration) time.Duration {
	if v, ok := lookup(key); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
