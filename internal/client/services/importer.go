package services

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/dmitrijs2005/otpvault/internal/client/models"
	"github.com/dmitrijs2005/otpvault/internal/otpauth"
)

// Importer is the part of the vault an import needs. *vault.Vault
// implements it.
type Importer interface {
	ImportEntries(ctx context.Context, batch []models.VaultEntry) ([]models.ImportResult, error)
}

// KeyFor returns the otpauth key describing e.
func KeyFor(e models.VaultEntry) otpauth.Key {
	return otpauth.Key{
		Issuer:    e.Issuer,
		Label:     e.Label,
		Secret:    e.Secret,
		Digits:    e.Digits,
		Period:    e.Period,
		Algorithm: e.Algorithm,
	}
}

// EntryFromKey returns a partial entry for k; the vault fills defaults.
func EntryFromKey(k otpauth.Key) models.VaultEntry {
	return models.VaultEntry{
		Issuer:    k.Issuer,
		Label:     k.Label,
		Secret:    k.Secret,
		Digits:    k.Digits,
		Period:    k.Period,
		Algorithm: k.Algorithm,
	}
}

// ImportURIs reads one otpauth URI per line and imports them in a single
// batch. Blank lines and lines starting with '#' are skipped. Lines that do
// not parse are reported as failed results in their input position; the
// rest go through the vault's own validation.
func ImportURIs(ctx context.Context, dst Importer, r io.Reader) ([]models.ImportResult, error) {
	var (
		results []models.ImportResult
		batch   []models.VaultEntry
		slots   []int
	)

	sc := bufio.NewScanner(r)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		k, err := otpauth.Parse(line)
		if err != nil {
			results = append(results, models.ImportResult{
				Status: models.ImportFailed,
				Reason: fmt.Sprintf("line %d: %v", lineNo, err),
			})
			continue
		}
		slots = append(slots, len(results))
		results = append(results, models.ImportResult{})
		batch = append(batch, EntryFromKey(k))
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read import: %w", err)
	}

	if len(batch) == 0 {
		return results, nil
	}

	imported, err := dst.ImportEntries(ctx, batch)
	if err != nil {
		return nil, err
	}
	for i, res := range imported {
		results[slots[i]] = res
	}
	return results, nil
}

// ExportURIs writes one otpauth URI per entry.
func ExportURIs(w io.Writer, entries []models.VaultEntry) error {
	for _, e := range entries {
		uri, err := otpauth.Format(KeyFor(e))
		if err != nil {
			return fmt.Errorf("entry %s: %w", e.ID, err)
		}
		if _, err := fmt.Fprintln(w, uri); err != nil {
			return err
		}
	}
	return nil
}
