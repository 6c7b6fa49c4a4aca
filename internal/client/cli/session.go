package cli

import (
	"bytes"
	"context"
	"errors"

	"github.com/dmitrijs2005/otpvault/internal/client/models"
	"github.com/dmitrijs2005/otpvault/internal/common"
	"github.com/dmitrijs2005/otpvault/internal/cryptox"
)

var errPasswordMismatch = errors.New("passwords do not match")

// unlock opens the vault. When nothing is stored yet the password is asked
// twice and a new vault is created with it.
func (a *App) unlock(ctx context.Context, _ []string) error {
	if a.vault.IsUnlocked() {
		a.println("Vault is already unlocked")
		return nil
	}

	has, err := a.vault.HasData(ctx)
	if err != nil {
		return err
	}
	if !has {
		a.println("No vault found, a new one will be created.")
	}

	password, err := getPassword("Master password", a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	if !has {
		repeat, err := getPassword("Repeat password", a.out)
		if err != nil {
			return err
		}
		defer common.WipeByteArray(repeat)
		if !bytes.Equal(password, repeat) {
			return errPasswordMismatch
		}
	}

	entries, err := a.vault.Unlock(ctx, string(password))
	if err != nil {
		a.log.Warn(ctx, "unlock failed", "error", err)
		return err
	}
	a.log.Info(ctx, "vault unlocked", "entries", len(entries))
	a.printf("Unlocked, %d entries\n", len(entries))
	return nil
}

// lock saves pending changes first; Lock itself drops anything unsaved.
func (a *App) lock(ctx context.Context, _ []string) error {
	if err := a.vault.FlushPersist(ctx); err != nil {
		return err
	}
	a.vault.Lock(ctx)
	a.println("Locked")
	return nil
}

func (a *App) calibrate(ctx context.Context, _ []string) error {
	before := a.cipher.Iterations()
	cal, err := a.cipher.CalibrateIterations(ctx, cryptox.CalibrateOptions{
		Target:        a.config.CalibrateTarget,
		MaxIterations: a.config.MaxIterations,
	})
	if err != nil {
		return err
	}
	a.printf("PBKDF2 iterations: %d -> %d (last trial %s)\n", before, cal.Iterations, cal.Duration)
	if cal.Iterations != before && a.vault.IsUnlocked() {
		// Re-seal the current entries with the new cost.
		if _, err := a.vault.Persist(); err != nil {
			return err
		}
	}
	return nil
}

// clear wipes the stored vault after confirmation. It works while locked
// so a vault with a forgotten password can be reset.
func (a *App) clear(ctx context.Context, _ []string) error {
	if !Confirm(a.reader, "Delete every entry and the stored vault?", a.out) {
		a.println("Cancelled")
		return nil
	}
	if err := a.vault.ClearAll(ctx); err != nil {
		return err
	}
	a.println("Vault cleared")
	return nil
}

func (a *App) stats(ctx context.Context, _ []string) error {
	s, err := a.vault.Stats(ctx)
	if err != nil {
		return err
	}
	st := a.vault.PersistState()

	a.printf("Entries:        %d\n", s.Count)
	a.printf("Stored size:    %s\n", models.FormatSize(s.Size))
	a.printf("Last saved:     %s\n", ago(s.LastPersistedAt))
	a.printf("Save status:    %s (%d pending)\n", st.Status, st.PendingWrites)
	if st.LastError != "" {
		a.printf("Last error:     %s\n", st.LastError)
	}
	a.printf("Iterations:     %d\n", a.cipher.Iterations())
	return nil
}
