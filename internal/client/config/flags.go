package config

import (
	"flag"
	"io"

	"github.com/dmitrijs2005/otpvault/internal/flagx"
)

// parseFlags populates Config fields from command-line flags.
//
//	-d string     path to the SQLite database
//	-p duration   persist debounce delay
//	-n int        PBKDF2 iterations for new envelopes
//	-calibrate    benchmark PBKDF2 at startup and raise -n if the host is fast
//	-l string     log level
//
// Only these flags are parsed; args are filtered with flagx.FilterArgs so
// the config-file flag does not trip the parser.
func parseFlags(cfg *Config, args []string) {
	args = flagx.FilterArgs(args, []string{"-d", "-p", "-n", "-calibrate", "-l"}, "-calibrate")

	fs := flag.NewFlagSet("main", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&cfg.DatabasePath, "d", cfg.DatabasePath, "path to the vault database")
	fs.DurationVar(&cfg.PersistDelay, "p", cfg.PersistDelay, "persist debounce delay")
	fs.IntVar(&cfg.Iterations, "n", cfg.Iterations, "PBKDF2 iterations")
	fs.BoolVar(&cfg.Calibrate, "calibrate", cfg.Calibrate, "calibrate PBKDF2 iterations at startup")
	fs.StringVar(&cfg.LogLevel, "l", cfg.LogLevel, "log level (debug, info, warn, error)")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}
}
