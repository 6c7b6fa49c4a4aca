// Package cryptox seals JSON payloads into password-protected envelopes.
//
// A key is stretched from the password with PBKDF2 and used for AES-256-GCM.
// The Envelope records salt, IV, iteration count and hash so it can be
// decrypted later even after the service's defaults change:
//
//	{ "salt": "...", "iv": "...", "cipher": "...",
//	  "version": 1, "iterations": 600000, "hash": "SHA-256",
//	  "persistedAt": "2026-01-02T15:04:05Z" }
//
// Decrypt reports a wrong password and a corrupted ciphertext with the same
// error, common.ErrDecryptionFailed.
package cryptox
