// Package cli provides the interactive otpvault command-line client.
//
// NewApp wires configuration, the SQLite key-value store, the envelope
// cipher, the vault and the backup sinks. App.Run starts a REPL that blocks
// until the user exits; the vault is flushed and locked on the way out.
//
// While locked only unlock, calibrate, backups, clear, help and exit work.
// Entry ids may be abbreviated to any unique prefix.
package cli
