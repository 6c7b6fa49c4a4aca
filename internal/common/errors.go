// Package common defines shared constants and sentinel errors used across
// the vault engine and its client layers. Callers should use errors.Is to
// match these values.
package common

import "errors"

var (
	// Codec / engine errors.
	ErrInvalidEncoding   = errors.New("invalid base32 encoding")
	ErrInvalidSecret     = errors.New("invalid secret")
	ErrCryptoUnavailable = errors.New("crypto provider unavailable")

	// Envelope errors. Wrong password and corrupted ciphertext both surface
	// as ErrDecryptionFailed.
	ErrInvalidEnvelope  = errors.New("invalid encrypted payload")
	ErrDecryptionFailed = errors.New("decryption failed")

	// Vault errors.
	ErrWeakPassword       = errors.New("password must be at least 8 characters")
	ErrInvalidPassword    = errors.New("invalid password")
	ErrVaultLocked        = errors.New("vault locked")
	ErrEntryNotFound      = errors.New("entry not found")
	ErrStorageUnavailable = errors.New("secure storage is not available")

	// Backup errors.
	ErrBackupCorrupted = errors.New("backup file is corrupted")
	ErrNoBackupData    = errors.New("no data available for export")
)
