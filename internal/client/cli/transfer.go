package cli

import (
	"bytes"
	"context"
	"fmt"
	"os"

	"github.com/dmitrijs2005/otpvault/internal/client/models"
	"github.com/dmitrijs2005/otpvault/internal/client/services"
	"github.com/dmitrijs2005/otpvault/internal/filex"
)

const defaultTarget = "file"

func targetArg(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return defaultTarget
}

// export writes the encrypted vault, exactly as stored, to a backup target.
func (a *App) export(ctx context.Context, args []string) error {
	location, err := a.backups.Export(ctx, targetArg(args))
	if err != nil {
		return err
	}
	a.log.Info(ctx, "backup exported", "location", location)
	a.printf("Backup written to %s\n", location)
	return nil
}

func (a *App) listBackups(ctx context.Context, args []string) error {
	names, err := a.backups.List(ctx, targetArg(args))
	if err != nil {
		return err
	}
	if len(names) == 0 {
		a.println("No backups")
		return nil
	}
	for _, n := range names {
		a.println(n)
	}
	return nil
}

// restore replaces every entry with the backup's. The backup must have been
// sealed with the current master password.
func (a *App) restore(ctx context.Context, args []string) error {
	target := targetArg(args)
	name := ""
	if len(args) > 1 {
		name = args[1]
	}
	if !Confirm(a.reader, "Replace all current entries with the backup?", a.out) {
		a.println("Cancelled")
		return nil
	}
	entries, err := a.backups.Restore(ctx, target, name)
	if err != nil {
		return err
	}
	a.printf("Restored %d entries\n", len(entries))
	return nil
}

// importFile adds every otpauth URI in a text file, one per line.
func (a *App) importFile(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return usageError{"import <file>"}
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read import file: %w", err)
	}
	results, err := services.ImportURIs(ctx, a.vault, bytes.NewReader(data))
	if err != nil {
		return err
	}

	ok := 0
	for _, r := range results {
		if r.Status == models.ImportOK {
			ok++
			continue
		}
		a.printf("skipped: %s\n", r.Reason)
	}
	a.printf("Imported %d of %d\n", ok, len(results))
	return nil
}

// exportURIs writes plaintext otpauth URIs; the file is readable by other
// authenticator apps and holds every secret unencrypted.
func (a *App) exportURIs(_ context.Context, args []string) error {
	if len(args) != 1 {
		return usageError{"uris <file>"}
	}
	if !Confirm(a.reader, "This writes every secret unencrypted. Continue?", a.out) {
		a.println("Cancelled")
		return nil
	}
	var buf bytes.Buffer
	entries := a.vault.Entries()
	if err := services.ExportURIs(&buf, entries); err != nil {
		return err
	}
	if err := filex.WriteFileAtomic(args[0], buf.Bytes(), 0o600); err != nil {
		return fmt.Errorf("write uris: %w", err)
	}
	a.printf("Wrote %d URIs to %s\n", len(entries), args[0])
	return nil
}
