package config

import (
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// envConfig mirrors Config for OTPVAULT_* variables. Pointer fields stay
// nil when the variable is unset.
type envConfig struct {
	DatabasePath    *string        `env:"OTPVAULT_DB"`
	PersistDelay    *time.Duration `env:"OTPVAULT_PERSIST_DELAY"`
	Iterations      *int           `env:"OTPVAULT_ITERATIONS"`
	Calibrate       *bool          `env:"OTPVAULT_CALIBRATE"`
	CalibrateTarget *time.Duration `env:"OTPVAULT_CALIBRATE_TARGET"`
	MaxIterations   *int           `env:"OTPVAULT_MAX_ITERATIONS"`
	LogLevel        *string        `env:"OTPVAULT_LOG_LEVEL"`
	LogFormat       *string        `env:"OTPVAULT_LOG_FORMAT"`
	BackupDir       *string        `env:"OTPVAULT_BACKUP_DIR"`
	S3Bucket        *string        `env:"OTPVAULT_S3_BUCKET"`
	S3Prefix        *string        `env:"OTPVAULT_S3_PREFIX"`
	S3Region        *string        `env:"OTPVAULT_S3_REGION"`
	S3Endpoint      *string        `env:"OTPVAULT_S3_ENDPOINT"`
}

// loadDotEnv is swapped in tests.
var loadDotEnv = func() {
	// A missing .env file is fine.
	_ = godotenv.Load()
}

// parseEnv overlays cfg with OTPVAULT_* variables, reading .env from the
// working directory first. Malformed values panic.
func parseEnv(cfg *Config) {
	loadDotEnv()

	var ec envConfig
	if err := env.Parse(&ec); err != nil {
		panic(err)
	}

	setIf(&cfg.DatabasePath, ec.DatabasePath)
	setIf(&cfg.PersistDelay, ec.PersistDelay)
	setIf(&cfg.Iterations, ec.Iterations)
	setIf(&cfg.Calibrate, ec.Calibrate)
	setIf(&cfg.CalibrateTarget, ec.CalibrateTarget)
	setIf(&cfg.MaxIterations, ec.MaxIterations)
	setIf(&cfg.LogLevel, ec.LogLevel)
	setIf(&cfg.LogFormat, ec.LogFormat)
	setIf(&cfg.BackupDir, ec.BackupDir)
	setIf(&cfg.S3Bucket, ec.S3Bucket)
	setIf(&cfg.S3Prefix, ec.S3Prefix)
	setIf(&cfg.S3Region, ec.S3Region)
	setIf(&cfg.S3Endpoint, ec.S3Endpoint)
}
