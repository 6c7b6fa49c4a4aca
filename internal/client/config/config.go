package config

import (
	"os"
	"time"
)

// Config holds runtime settings for the otpvault CLI.
//
// Durations are time.Duration values; file and env sources accept strings
// like "250ms".
type Config struct {
	DatabasePath    string
	PersistDelay    time.Duration
	Iterations      int
	Calibrate       bool
	CalibrateTarget time.Duration
	MaxIterations   int
	LogLevel        string
	LogFormat       string
	BackupDir       string
	S3Bucket        string
	S3Prefix        string
	S3Region        string
	S3Endpoint      string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.DatabasePath = "vault.db"
	c.PersistDelay = 250 * time.Millisecond
	c.Iterations = 600_000
	c.Calibrate = false
	c.CalibrateTarget = 250 * time.Millisecond
	c.MaxIterations = 1_200_000
	c.LogLevel = "info"
	c.LogFormat = "text"
	c.BackupDir = "backups"
}

// S3Enabled reports whether a bucket is configured for remote backups.
func (c *Config) S3Enabled() bool {
	return c.S3Bucket != ""
}

// Load builds a Config from defaults, then the config file, then the
// environment, then flags. Later sources take precedence. args excludes
// the program name.
func Load(args []string) *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseFile(cfg, args)
	parseEnv(cfg)
	parseFlags(cfg, args)
	return cfg
}

// LoadConfig is Load over os.Args.
func LoadConfig() *Config {
	return Load(os.Args[1:])
}
