package vault

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/otpvault/internal/client/models"
	"github.com/dmitrijs2005/otpvault/internal/common"
	"github.com/dmitrijs2005/otpvault/internal/cryptox"
)

// ExportEncrypted flushes pending writes and returns the stored envelope
// bytes unchanged. A backup is always exactly what is on disk.
func (v *Vault) ExportEncrypted(ctx context.Context) ([]byte, error) {
	if err := v.requireStorage(); err != nil {
		return nil, err
	}
	if !v.IsUnlocked() {
		return nil, common.ErrVaultLocked
	}
	if err := v.FlushPersist(ctx); err != nil {
		return nil, err
	}

	v.writeMu.Lock()
	raw, err := v.storage.Get(ctx, v.key)
	v.writeMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("read vault: %w", err)
	}
	if len(raw) == 0 {
		return nil, common.ErrNoBackupData
	}
	return raw, nil
}

// RestoreFromBackup parses serialized backup bytes and restores them.
func (v *Vault) RestoreFromBackup(ctx context.Context, data []byte) ([]models.VaultEntry, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty backup", common.ErrBackupCorrupted)
	}
	var env cryptox.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, common.ErrBackupCorrupted
	}
	return v.RestoreFromEnvelope(ctx, &env)
}

// RestoreFromEnvelope decrypts env with the current password, replaces the
// whole entry list with its normalized entries and writes immediately.
// A backup sealed under another password fails with
// common.ErrInvalidPassword; a malformed one with common.ErrBackupCorrupted.
func (v *Vault) RestoreFromEnvelope(ctx context.Context, env *cryptox.Envelope) ([]models.VaultEntry, error) {
	if err := v.requireStorage(); err != nil {
		return nil, err
	}
	v.mu.Lock()
	if err := v.requireUnlockedLocked(); err != nil {
		v.mu.Unlock()
		return nil, err
	}
	password := v.password
	v.mu.Unlock()

	if env == nil {
		return nil, fmt.Errorf("%w: empty backup", common.ErrBackupCorrupted)
	}
	if v.cipher == nil {
		return nil, common.ErrCryptoUnavailable
	}

	var payload models.Payload
	if err := v.cipher.Decrypt(ctx, password, env, &payload); err != nil {
		switch {
		case errors.Is(err, common.ErrDecryptionFailed):
			return nil, common.ErrInvalidPassword
		case errors.Is(err, common.ErrInvalidEnvelope):
			return nil, fmt.Errorf("%w: %w", common.ErrBackupCorrupted, err)
		}
		return nil, err
	}
	if payload.Entries == nil {
		return nil, fmt.Errorf("%w: backup payload missing entries", common.ErrBackupCorrupted)
	}

	now := v.now()
	entries := make([]models.VaultEntry, 0, len(payload.Entries))
	for _, e := range payload.Entries {
		n, err := models.NormalizeEntry(e, now)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", common.ErrBackupCorrupted, err)
		}
		entries = append(entries, n)
	}

	v.mu.Lock()
	if err := v.requireUnlockedLocked(); err != nil {
		v.mu.Unlock()
		return nil, err
	}
	v.entries = entries
	out := cloneEntries(entries)
	v.mu.Unlock()

	if err := v.persistNow(ctx); err != nil {
		return nil, err
	}
	v.log.Info(ctx, "vault restored from backup", "entries", len(out))
	return out, nil
}

// ClearAll writes an empty vault first when unlocked, so a stale envelope
// is never left behind, then deletes the stored data and locks.
func (v *Vault) ClearAll(ctx context.Context) error {
	if err := v.requireStorage(); err != nil {
		return err
	}

	v.mu.Lock()
	unlocked := v.unlocked
	if unlocked {
		v.entries = []models.VaultEntry{}
	}
	v.mu.Unlock()

	if unlocked {
		if err := v.persistNow(ctx); err != nil {
			return err
		}
	}

	v.writeMu.Lock()
	defer v.writeMu.Unlock()

	if err := v.storage.Delete(ctx, v.key); err != nil {
		return fmt.Errorf("delete vault: %w", err)
	}

	v.mu.Lock()
	v.unlocked = false
	v.password = ""
	v.entries = nil
	v.lastPersistedAt = nil
	v.cancelScheduledLocked()
	st := v.stateLocked()
	v.mu.Unlock()
	v.emit(ctx, st)

	v.log.Info(ctx, "vault cleared")
	return nil
}
