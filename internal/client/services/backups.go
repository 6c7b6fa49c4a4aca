package services

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/dmitrijs2005/otpvault/internal/client/backup"
	"github.com/dmitrijs2005/otpvault/internal/client/models"
)

var ErrUnknownTarget = errors.New("unknown backup target")

// Exporter is the part of the vault a backup needs. *vault.Vault
// implements it.
type Exporter interface {
	ExportEncrypted(ctx context.Context) ([]byte, error)
	RestoreFromBackup(ctx context.Context, data []byte) ([]models.VaultEntry, error)
}

// BackupService moves encrypted exports between the vault and named sinks
// such as "file" or "s3".
type BackupService interface {
	Targets() []string
	Export(ctx context.Context, target string) (string, error)
	List(ctx context.Context, target string) ([]string, error)
	// Restore loads name from target, or the newest backup when name is empty.
	Restore(ctx context.Context, target, name string) ([]models.VaultEntry, error)
}

type backupService struct {
	vault Exporter
	sinks map[string]backup.Sink
	now   func() time.Time
}

func NewBackupService(vault Exporter, sinks map[string]backup.Sink, now func() time.Time) BackupService {
	if now == nil {
		now = time.Now
	}
	return &backupService{vault: vault, sinks: sinks, now: now}
}

func (s *backupService) Targets() []string {
	names := make([]string, 0, len(s.sinks))
	for name := range s.sinks {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

func (s *backupService) sink(target string) (backup.Sink, error) {
	sink, ok := s.sinks[target]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTarget, target)
	}
	return sink, nil
}

func (s *backupService) Export(ctx context.Context, target string) (string, error) {
	sink, err := s.sink(target)
	if err != nil {
		return "", err
	}
	data, err := s.vault.ExportEncrypted(ctx)
	if err != nil {
		return "", err
	}
	location, err := sink.Save(ctx, backup.FileName(s.now()), data)
	if err != nil {
		return "", fmt.Errorf("save backup: %w", err)
	}
	return location, nil
}

func (s *backupService) List(ctx context.Context, target string) ([]string, error) {
	sink, err := s.sink(target)
	if err != nil {
		return nil, err
	}
	return sink.List(ctx)
}

func (s *backupService) Restore(ctx context.Context, target, name string) ([]models.VaultEntry, error) {
	sink, err := s.sink(target)
	if err != nil {
		return nil, err
	}
	if name == "" {
		names, err := sink.List(ctx)
		if err != nil {
			return nil, err
		}
		if len(names) == 0 {
			return nil, backup.ErrBackupNotFound
		}
		name = names[len(names)-1]
	}
	data, err := sink.Load(ctx, name)
	if err != nil {
		return nil, err
	}
	return s.vault.RestoreFromBackup(ctx, data)
}
