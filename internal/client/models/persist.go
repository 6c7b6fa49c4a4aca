package models

import "time"

// PersistStatus is the coarse state of the write pipeline.
type PersistStatus string

const (
	PersistIdle   PersistStatus = "idle"
	PersistQueued PersistStatus = "queued"
	PersistSaving PersistStatus = "saving"
	PersistError  PersistStatus = "error"
)

// PersistStats is the bookkeeping the vault keeps about writes.
type PersistStats struct {
	Status              PersistStatus `json:"status"`
	PendingWrites       int           `json:"pendingWrites"`
	LastPersistDuration time.Duration `json:"lastPersistDuration"`
	LastPersistedAt     *time.Time    `json:"lastPersistedAt"`
	LastError           string        `json:"lastError,omitempty"`
	QueuedAt            *time.Time    `json:"queuedAt"`
}

// PersistState is PersistStats plus the live scheduler flags.
type PersistState struct {
	PersistStats
	Scheduled bool `json:"scheduled"`
	InFlight  bool `json:"inFlight"`
}

// Stats summarizes the vault for display.
type Stats struct {
	Count           int
	LastPersistedAt *time.Time
	// Size is the byte length of the stored envelope.
	Size int
}

// ImportStatus tells whether one element of an import batch was accepted.
type ImportStatus string

const (
	ImportOK     ImportStatus = "ok"
	ImportFailed ImportStatus = "failed"
)

// ImportResult reports the outcome for one element of an import batch.
// Entry is set on success; Reason and Input on failure.
type ImportResult struct {
	Status ImportStatus
	Entry  VaultEntry
	Reason string
	Input  VaultEntry
}
