package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// errQuit ends the REPL.
var errQuit = errors.New("quit")

type command struct {
	names []string
	usage string
	// whileLocked marks commands usable before unlock.
	whileLocked bool
	run         func(ctx context.Context, args []string) error
}

func (c command) name() string { return c.names[0] }

// runREPL reads one command per line from reader and dispatches it. The
// loop ends on EOF or when a command returns errQuit. Command errors are
// printed and the loop continues.
//
// The prompt shows statusFn's result, e.g. "otp (3 entries, queued)> ".
func runREPL(ctx context.Context, cmds []command, isUnlocked func() bool, statusFn func() string,
	reader *bufio.Reader, out io.Writer) {

	index := make(map[string]command)
	for _, c := range cmds {
		for _, n := range c.names {
			index[n] = c
		}
	}

	for {
		fmt.Fprintf(out, "otp (%s)> ", statusFn())
		line, err := reader.ReadString('\n')
		if err != nil && line == "" {
			fmt.Fprintln(out)
			return
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		name, args := parts[0], parts[1:]

		if name == "help" {
			printHelp(out, cmds, isUnlocked())
			continue
		}

		c, ok := index[name]
		if !ok {
			fmt.Fprintln(out, "Unknown command:", name)
			continue
		}
		if !c.whileLocked && !isUnlocked() {
			fmt.Fprintln(out, "Vault is locked, run 'unlock' first")
			continue
		}

		if err := c.run(ctx, args); err != nil {
			if errors.Is(err, errQuit) {
				return
			}
			fmt.Fprintln(out, "error:", err)
		}
	}
}

func printHelp(out io.Writer, cmds []command, unlocked bool) {
	fmt.Fprintln(out, "Available commands:")
	for _, c := range cmds {
		if !unlocked && !c.whileLocked {
			continue
		}
		fmt.Fprintf(out, "  %-32s", c.usage)
		if len(c.names) > 1 {
			fmt.Fprintf(out, " (alias: %s)", strings.Join(c.names[1:], ", "))
		}
		fmt.Fprintln(out)
	}
	fmt.Fprintf(out, "  %-32s\n", "help")
}

type usageError struct{ usage string }

func (e usageError) Error() string { return "usage: " + e.usage }
