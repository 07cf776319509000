package config

import (
	"log/slog"
	"os"
	"strconv"
	"time"
)

func Load() App {
	cfg := App{
		Port:        getenv("APP_PORT", "8080"),
		DatabaseURL: must("DATABASE_URL"),
		RedisAddr:   getenv("REDIS_ADDR", "localhost:6379"),
		JWTSecret:   getenv("JWT_SECRET", "local_dev_secret"),
		Env:         getenv("APP_ENV", "dev"),

		PickupWindow:        getdur("PICKUP_WINDOW", 2*time.Minute),
		LoanPeriod:          getdur("LOAN_PERIOD", 14*24*time.Hour),
		RenewalPeriod:       getdur("RENEWAL_PERIOD", 14*24*time.Hour),
		ExpirySweepEvery:    getdur("EXPIRY_SWEEP_INTERVAL", 30*time.Second),
		AccrualSweepEvery:   getdur("ACCRUAL_SWEEP_INTERVAL", 30*time.Second),
		OverdueRatePerMin:   getfloat("OVERDUE_RATE_PER_MIN", 10),
		DamageFee:           getfloat("DAMAGE_FEE", 500),
		LostFee:             getfloat("LOST_FEE", 1500),
		SuspiciousWindow:    getdur("SUSPICIOUS_WINDOW", 10*time.Second),
		SuspiciousThreshold: getint("SUSPICIOUS_THRESHOLD", 3),
	}
	return cfg
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getdur(k string, def time.Duration) time.Duration {
	if v := os.Getenv(k); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
		slog.Warn("bad duration env, using default", "key", k, "value", v)
	}
	return def
}

func getint(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
		slog.Warn("bad int env, using default", "key", k, "value", v)
	}
	return def
}

func getfloat(k string, def float64) float64 {
	if v := os.Getenv(k); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
		slog.Warn("bad float env, using default", "key", k, "value", v)
	}
	return def
}

func must(k string) string {
	v := os.Getenv(k)
	if v == "" {
		slog.Error("required env missing", "key", k)
		panic("missing env " + k)
	}
	return v
}
