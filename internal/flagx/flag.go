// Package flagx lets several components each parse their own subset of the
// command line without tripping over flags they do not define.
package flagx

import (
	"flag"
	"io"
	"slices"
	"strings"
)

// FilterArgs keeps only the allowed flags from args, together with their
// values. A value is either joined with '=' (-c=conf.yaml) or the next
// argument when that does not start with '-'. Flags listed in boolFlags
// never consume the next argument.
func FilterArgs(args []string, allowedFlags []string, boolFlags ...string) []string {
	filtered := make([]string, 0, len(args))

	for i := 0; i < len(args); i++ {
		arg := args[i]

		if name, _, ok := strings.Cut(arg, "="); ok && strings.HasPrefix(arg, "-") {
			if slices.Contains(allowedFlags, name) {
				filtered = append(filtered, arg)
			}
			continue
		}

		if !slices.Contains(allowedFlags, arg) {
			continue
		}
		filtered = append(filtered, arg)
		if slices.Contains(boolFlags, arg) {
			continue
		}
		if i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") {
			filtered = append(filtered, args[i+1])
			i++
		}
	}

	return filtered
}

// ConfigFileFlag returns the path given with -c or -config, or "" when
// neither is present. The last occurrence wins.
func ConfigFileFlag(args []string) string {
	var config string

	filtered := FilterArgs(args, []string{"-c", "-config", "--config"})

	fs := flag.NewFlagSet("config", flag.ContinueOnError)
	fs.StringVar(&config, "config", "", "path to config file (JSON or YAML)")
	fs.StringVar(&config, "c", "", "path to config file (short)")
	fs.SetOutput(io.Discard)
	_ = fs.Parse(filtered)

	return config
}
