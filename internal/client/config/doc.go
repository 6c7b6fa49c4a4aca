// Package config loads runtime configuration for the otpvault CLI.
//
// # Sources and precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON or YAML file selected with -c or -config.
//  3. OTPVAULT_* environment variables, after loading .env if present.
//  4. Command-line flags.
//
// # Config file
//
// Durations use timex.Duration, so "250ms" and integer nanoseconds both work:
//
//	database_path: vault.db
//	persist_delay: 250ms
//	iterations: 600000
//	calibrate: true
//	calibrate_target: 250ms
//	s3_bucket: my-backups
//
// Absent keys leave the previous value alone.
//
// # Flags
//
//	-d string     database path
//	-p duration   persist debounce delay
//	-n int        PBKDF2 iterations
//	-calibrate    calibrate iterations at startup
//	-l string     log level
//
// Malformed input from any source panics.
package config
