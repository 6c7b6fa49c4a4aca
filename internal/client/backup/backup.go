// Package backup stores exported vault envelopes outside the local
// database: as files on disk or as objects in an S3 bucket.
package backup

import (
	"context"
	"errors"
	"time"
)

var ErrBackupNotFound = errors.New("backup not found")

// Sink stores and retrieves backup blobs by name.
type Sink interface {
	// Save stores data under name and returns where it was written.
	Save(ctx context.Context, name string, data []byte) (string, error)
	Load(ctx context.Context, name string) ([]byte, error)
	// List returns stored backup names in ascending order.
	List(ctx context.Context) ([]string, error)
}

// FileName returns the conventional backup name for day t.
func FileName(t time.Time) string {
	return "2fa-backup-" + t.Format(time.DateOnly) + ".json"
}
