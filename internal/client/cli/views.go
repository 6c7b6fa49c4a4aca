package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/dmitrijs2005/otpvault/internal/client/models"
)

// list prints a live code for every entry matching query.
func (a *App) list(ctx context.Context, args []string) error {
	entries := a.vault.Search(strings.Join(args, " "))
	if len(entries) == 0 {
		a.println("No entries")
		return nil
	}

	tokens, err := a.tokens.Current(ctx, entries)
	if err != nil {
		return err
	}
	byID := make(map[string]models.VaultEntry, len(entries))
	for _, e := range entries {
		byID[e.ID] = e
	}

	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	for _, t := range tokens {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%2ds\t%s\n",
			shortID(t.ID), t.Issuer, t.Label, groupDigits(t.Code), t.ExpiresIn, flags(byID[t.ID]))
	}
	return tw.Flush()
}

// code prints one entry's current code and counts it as used.
func (a *App) code(ctx context.Context, args []string) error {
	e, err := a.resolveArg(args, 1, "code <id>")
	if err != nil {
		return err
	}
	tokens, err := a.tokens.Current(ctx, []models.VaultEntry{e})
	if err != nil {
		return err
	}
	if _, err := a.vault.IncrementUseCount(ctx, e.ID); err != nil {
		return err
	}
	t := tokens[0]
	a.printf("%s  (%s / %s, %ds left)\n", t.Code, t.Issuer, t.Label, t.ExpiresIn)
	return nil
}

// groupDigits splits a code in two halves for reading, e.g. "123 456".
func groupDigits(code string) string {
	if len(code) < 6 {
		return code
	}
	mid := len(code) / 2
	return code[:mid] + " " + code[mid:]
}

func (a *App) tags(_ context.Context, args []string) error {
	if len(args) > 0 {
		a.printEntries(a.vault.EntriesByTag(args[0]))
		return nil
	}
	all := a.vault.AllTags()
	if len(all) == 0 {
		a.println("No tags")
		return nil
	}
	a.println(strings.Join(all, ", "))
	return nil
}

func (a *App) groups(_ context.Context, args []string) error {
	if len(args) > 0 {
		a.printEntries(a.vault.EntriesByGroup(strings.Join(args, " ")))
		return nil
	}
	all := a.vault.AllGroups()
	if len(all) == 0 {
		a.println("No groups")
		return nil
	}
	for _, g := range all {
		a.printf("%s (%d)\n", g, len(a.vault.EntriesByGroup(g)))
	}
	if n := len(a.vault.EntriesByGroup("")); n > 0 {
		a.printf("(ungrouped) (%d)\n", n)
	}
	return nil
}

func (a *App) favorites(_ context.Context, _ []string) error {
	a.printEntries(a.vault.Favorites())
	return nil
}

func (a *App) recent(_ context.Context, args []string) error {
	n, err := limitArg(args)
	if err != nil {
		return err
	}
	a.printEntries(a.vault.RecentlyUsed(n))
	return nil
}

func (a *App) top(_ context.Context, args []string) error {
	n, err := limitArg(args)
	if err != nil {
		return err
	}
	a.printEntries(a.vault.MostUsed(n))
	return nil
}

// limitArg returns 0, meaning the vault default, when no limit is given.
func limitArg(args []string) (int, error) {
	if len(args) == 0 {
		return 0, nil
	}
	n, err := strconv.Atoi(args[0])
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("limit must be a positive number: %q", args[0])
	}
	return n, nil
}
