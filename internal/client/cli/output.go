package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/dmitrijs2005/otpvault/internal/client/models"
)

const shortIDLen = 8

func (a *App) println(args ...any) {
	fmt.Fprintln(a.out, args...)
}

func (a *App) printf(format string, args ...any) {
	fmt.Fprintf(a.out, format, args...)
}

func shortID(id string) string {
	if len(id) <= shortIDLen {
		return id
	}
	return id[:shortIDLen]
}

func ago(t *time.Time) string {
	if t == nil {
		return "never"
	}
	return humanize.Time(*t)
}

func flags(e models.VaultEntry) string {
	var parts []string
	if e.Favorite {
		parts = append(parts, "*")
	}
	if g := e.GroupName(); g != "" {
		parts = append(parts, "@"+g)
	}
	for _, t := range e.Tags {
		parts = append(parts, "#"+t)
	}
	return strings.Join(parts, " ")
}

// printEntries writes entries as an aligned table without codes.
func (a *App) printEntries(entries []models.VaultEntry) {
	if len(entries) == 0 {
		a.println("No entries")
		return
	}
	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d uses\t%s\t%s\n",
			shortID(e.ID), e.Issuer, e.Label, e.UseCount, ago(e.LastUsed), flags(e))
	}
	_ = tw.Flush()
}

func (a *App) printEntry(e models.VaultEntry) {
	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "ID:\t%s\n", e.ID)
	fmt.Fprintf(tw, "Issuer:\t%s\n", e.Issuer)
	fmt.Fprintf(tw, "Label:\t%s\n", e.Label)
	fmt.Fprintf(tw, "Algorithm:\t%s, %d digits, %ds\n", e.Algorithm, e.Digits, e.Period)
	fmt.Fprintf(tw, "Group:\t%s\n", e.GroupName())
	fmt.Fprintf(tw, "Tags:\t%s\n", strings.Join(e.Tags, ", "))
	fmt.Fprintf(tw, "Favorite:\t%t\n", e.Favorite)
	fmt.Fprintf(tw, "Used:\t%d times, last %s\n", e.UseCount, ago(e.LastUsed))
	fmt.Fprintf(tw, "Created:\t%s\n", e.CreatedAt.Format(time.RFC3339))
	if e.Notes != "" {
		fmt.Fprintf(tw, "Notes:\t%s\n", strings.ReplaceAll(e.Notes, "\n", "\n\t"))
	}
	_ = tw.Flush()
}
