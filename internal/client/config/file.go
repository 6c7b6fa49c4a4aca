package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/dmitrijs2005/otpvault/internal/flagx"
	"github.com/dmitrijs2005/otpvault/internal/timex"
	"gopkg.in/yaml.v3"
)

// FileConfig is the on-disk shape of a config file. Pointer fields tell an
// absent key apart from a zero value, so a partial file only overrides what
// it names.
type FileConfig struct {
	DatabasePath    *string         `json:"database_path" yaml:"database_path"`
	PersistDelay    *timex.Duration `json:"persist_delay" yaml:"persist_delay"`
	Iterations      *int            `json:"iterations" yaml:"iterations"`
	Calibrate       *bool           `json:"calibrate" yaml:"calibrate"`
	CalibrateTarget *timex.Duration `json:"calibrate_target" yaml:"calibrate_target"`
	MaxIterations   *int            `json:"max_iterations" yaml:"max_iterations"`
	LogLevel        *string         `json:"log_level" yaml:"log_level"`
	LogFormat       *string         `json:"log_format" yaml:"log_format"`
	BackupDir       *string         `json:"backup_dir" yaml:"backup_dir"`
	S3Bucket        *string         `json:"s3_bucket" yaml:"s3_bucket"`
	S3Prefix        *string         `json:"s3_prefix" yaml:"s3_prefix"`
	S3Region        *string         `json:"s3_region" yaml:"s3_region"`
	S3Endpoint      *string         `json:"s3_endpoint" yaml:"s3_endpoint"`
}

// parseFile overlays cfg with the file named by -c/-config. Files ending in
// .yaml or .yml are decoded as YAML, everything else as JSON. Read and
// decode errors panic.
func parseFile(cfg *Config, args []string) {
	path := flagx.ConfigFileFlag(args)
	if path == "" {
		return
	}

	data, err := os.ReadFile(path)
	if err != nil {
		panic(err)
	}

	var fc FileConfig
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &fc)
	default:
		err = json.Unmarshal(data, &fc)
	}
	if err != nil {
		panic(err)
	}

	fc.apply(cfg)
}

func (fc *FileConfig) apply(cfg *Config) {
	setIf(&cfg.DatabasePath, fc.DatabasePath)
	setIf(&cfg.Iterations, fc.Iterations)
	setIf(&cfg.Calibrate, fc.Calibrate)
	setIf(&cfg.MaxIterations, fc.MaxIterations)
	setIf(&cfg.LogLevel, fc.LogLevel)
	setIf(&cfg.LogFormat, fc.LogFormat)
	setIf(&cfg.BackupDir, fc.BackupDir)
	setIf(&cfg.S3Bucket, fc.S3Bucket)
	setIf(&cfg.S3Prefix, fc.S3Prefix)
	setIf(&cfg.S3Region, fc.S3Region)
	setIf(&cfg.S3Endpoint, fc.S3Endpoint)
	if fc.PersistDelay != nil {
		cfg.PersistDelay = fc.PersistDelay.Duration
	}
	if fc.CalibrateTarget != nil {
		cfg.CalibrateTarget = fc.CalibrateTarget.Duration
	}
}

func setIf[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}
