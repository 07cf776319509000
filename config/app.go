package config

import "time"

type App struct {
	Port        string `env:"APP_PORT" default:"8080"`
	DatabaseURL string `env:"DATABASE_URL,required"`
	RedisAddr   string `env:"REDIS_ADDR" default:"localhost:6379"`
	JWTSecret   string `env:"JWT_SECRET" default:"local_dev_secret"`
	Env         string `env:"APP_ENV" default:"dev"`

	// Lifecycle tunables. Defaults are sized for local testing;
	// production sets its own.
	PickupWindow        time.Duration `env:"PICKUP_WINDOW" default:"2m"`
	LoanPeriod          time.Duration `env:"LOAN_PERIOD" default:"336h"`
	RenewalPeriod       time.Duration `env:"RENEWAL_PERIOD" default:"336h"`
	ExpirySweepEvery    time.Duration `env:"EXPIRY_SWEEP_INTERVAL" default:"30s"`
	AccrualSweepEvery   time.Duration `env:"ACCRUAL_SWEEP_INTERVAL" default:"30s"`
	OverdueRatePerMin   float64       `env:"OVERDUE_RATE_PER_MIN" default:"10"`
	DamageFee           float64       `env:"DAMAGE_FEE" default:"500"`
	LostFee             float64       `env:"LOST_FEE" default:"1500"`
	SuspiciousWindow    time.Duration `env:"SUSPICIOUS_WINDOW" default:"10s"`
	SuspiciousThreshold int           `env:"SUSPICIOUS_THRESHOLD" default:"3"`
}
