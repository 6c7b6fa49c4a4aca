package cli

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

type recorder struct {
	calls []string
	args  [][]string
}

func (r *recorder) cmd(name string, whileLocked bool, err error) command {
	return command{
		names:       []string{name, name[:1]},
		usage:       name + " <x>",
		whileLocked: whileLocked,
		run: func(_ context.Context, args []string) error {
			r.calls = append(r.calls, name)
			r.args = append(r.args, args)
			return err
		},
	}
}

func TestRunREPL_DispatchAndLockGate(t *testing.T) {
	rec := &recorder{}
	unlocked := false
	cmds := []command{
		rec.cmd("open", true, nil),
		rec.cmd("list", false, nil),
		rec.cmd("fail", true, errors.New("boom")),
		{names: []string{"quit"}, usage: "quit", whileLocked: true, run: func(context.Context, []string) error { return errQuit }},
	}
	cmds[0].run = func(_ context.Context, args []string) error {
		rec.calls = append(rec.calls, "open")
		unlocked = true
		return nil
	}

	var out bytes.Buffer
	input := script("list", "", "open", "l a b", "fail", "bogus", "quit", "list")
	runREPL(context.Background(), cmds, func() bool { return unlocked }, func() string { return "st" }, rdr(input), &out)

	assert.Equal(t, []string{"open", "list", "fail"}, rec.calls)
	assert.Equal(t, []string{"a", "b"}, rec.args[0])
	assert.Contains(t, out.String(), "otp (st)> ")
	assert.Contains(t, out.String(), "Vault is locked, run 'unlock' first")
	assert.Contains(t, out.String(), "error: boom")
	assert.Contains(t, out.String(), "Unknown command: bogus")
}

func TestRunREPL_EOFWithoutNewline(t *testing.T) {
	rec := &recorder{}
	cmds := []command{rec.cmd("open", true, nil)}

	var out bytes.Buffer
	runREPL(context.Background(), cmds, func() bool { return true }, func() string { return "" }, rdr("open"), &out)

	assert.Equal(t, []string{"open"}, rec.calls)
}

func TestRunREPL_Help(t *testing.T) {
	rec := &recorder{}
	cmds := []command{rec.cmd("open", true, nil), rec.cmd("list", false, nil)}

	var locked, unlocked bytes.Buffer
	runREPL(context.Background(), cmds, func() bool { return false }, func() string { return "" }, rdr("help\n"), &locked)
	runREPL(context.Background(), cmds, func() bool { return true }, func() string { return "" }, rdr("help\n"), &unlocked)

	assert.Contains(t, locked.String(), "open <x>")
	assert.NotContains(t, locked.String(), "list <x>")
	assert.Contains(t, unlocked.String(), "list <x>")
	assert.Contains(t, unlocked.String(), "(alias: l)")
	assert.Empty(t, rec.calls)
}

func TestCommands_NamesAreUnique(t *testing.T) {
	a := &App{}
	seen := map[string]bool{"help": true}
	for _, c := range a.commands() {
		for _, n := range c.names {
			assert.False(t, seen[n], "duplicate command name %q", n)
			seen[n] = true
		}
	}
}
