package vault

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/dmitrijs2005/otpvault/internal/client/models"
	"github.com/dmitrijs2005/otpvault/internal/common"
	"github.com/dmitrijs2005/otpvault/internal/cryptox"
	"github.com/dmitrijs2005/otpvault/internal/logging"
)

const DefaultPersistDelay = 250 * time.Millisecond

// errCanceled finishes scheduled writes dropped by Lock or ClearAll.
var errCanceled = fmt.Errorf("%w: scheduled write canceled", common.ErrVaultLocked)

// Storage is the durable key-value store the envelope is written to.
// Get returns (nil, nil) when the key is absent.
type Storage interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// Cipher seals and opens the entry payload. *cryptox.Service implements it.
type Cipher interface {
	Encrypt(ctx context.Context, password string, payload any, meta cryptox.Meta) (*cryptox.Envelope, error)
	Decrypt(ctx context.Context, password string, env *cryptox.Envelope, out any) error
}

type Vault struct {
	storage Storage
	cipher  Cipher
	log     logging.Logger
	now     func() time.Time
	key     string
	delay   time.Duration

	onPersistError func(error)
	onPersistState func(models.PersistState)

	// writeMu serializes envelope writes and the salt read that precedes
	// each one. Acquire it before mu, never while holding mu.
	writeMu sync.Mutex

	mu              sync.Mutex
	unlocked        bool
	password        string
	entries         []models.VaultEntry
	lastPersistedAt *time.Time
	stats           models.PersistStats
	timer           *time.Timer
	timerGen        uint64
	pending         *Pending
	active          *Pending
}

type Option func(*Vault)

func WithPersistDelay(d time.Duration) Option {
	return func(v *Vault) {
		if d >= 0 {
			v.delay = d
		}
	}
}

func WithLogger(l logging.Logger) Option {
	return func(v *Vault) {
		if l != nil {
			v.log = l
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(v *Vault) { v.now = now }
}

func WithStorageKey(key string) Option {
	return func(v *Vault) {
		if key != "" {
			v.key = key
		}
	}
}

// WithPersistErrorHandler is called for every failed write, including
// debounced writes nobody is waiting on. Without a handler the failure is
// logged.
func WithPersistErrorHandler(fn func(error)) Option {
	return func(v *Vault) { v.onPersistError = fn }
}

// WithPersistStateHandler observes every change of the write pipeline state.
func WithPersistStateHandler(fn func(models.PersistState)) Option {
	return func(v *Vault) { v.onPersistState = fn }
}

// New returns a locked vault. A nil storage is accepted; operations that
// need it fail with common.ErrStorageUnavailable.
func New(storage Storage, cipher Cipher, opts ...Option) *Vault {
	v := &Vault{
		storage: storage,
		cipher:  cipher,
		log:     logging.Nop(),
		now:     time.Now,
		key:     common.StorageKey,
		delay:   DefaultPersistDelay,
		stats:   models.PersistStats{Status: models.PersistIdle},
	}
	for _, o := range opts {
		o(v)
	}
	return v
}

func (v *Vault) requireStorage() error {
	if v.storage == nil {
		return common.ErrStorageUnavailable
	}
	return nil
}

func (v *Vault) requireUnlockedLocked() error {
	if !v.unlocked {
		return common.ErrVaultLocked
	}
	return nil
}

func (v *Vault) IsUnlocked() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.unlocked
}

// HasData reports whether an envelope is stored.
func (v *Vault) HasData(ctx context.Context) (bool, error) {
	if err := v.requireStorage(); err != nil {
		return false, err
	}
	raw, err := v.storage.Get(ctx, v.key)
	if err != nil {
		return false, err
	}
	return len(raw) > 0, nil
}

// Unlock opens the vault with password. Without a stored envelope it
// creates an empty vault and writes its first envelope immediately.
// A password that fails to decrypt the stored envelope leaves the vault
// locked and returns common.ErrInvalidPassword. On a vault that was already
// unlocked the failure goes through Lock, so the old password and entries
// are dropped.
func (v *Vault) Unlock(ctx context.Context, password string) ([]models.VaultEntry, error) {
	if err := v.requireStorage(); err != nil {
		return nil, err
	}
	if utf8.RuneCountInString(password) < common.MinPasswordLength {
		return nil, common.ErrWeakPassword
	}
	if v.cipher == nil {
		return nil, common.ErrCryptoUnavailable
	}

	v.writeMu.Lock()
	raw, err := v.storage.Get(ctx, v.key)
	v.writeMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("read vault: %w", err)
	}

	if len(raw) == 0 {
		return v.create(ctx, password)
	}

	env, err := cryptox.ParseEnvelope(raw)
	if err != nil {
		v.log.Warn(ctx, "stored vault envelope is malformed", "error", err)
		v.Lock(ctx)
		return nil, common.ErrInvalidPassword
	}

	var payload models.Payload
	if err := v.cipher.Decrypt(ctx, password, env, &payload); err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		v.log.Info(ctx, "vault unlock failed")
		v.Lock(ctx)
		return nil, common.ErrInvalidPassword
	}

	entries := make([]models.VaultEntry, 0, len(payload.Entries))
	for _, e := range payload.Entries {
		entries = append(entries, e.Clone())
	}

	v.mu.Lock()
	v.unlocked = true
	v.password = password
	v.entries = entries
	if env.PersistedAt != nil {
		at := *env.PersistedAt
		v.lastPersistedAt = &at
	} else {
		v.lastPersistedAt = nil
	}
	out := cloneEntries(v.entries)
	v.mu.Unlock()

	v.log.Info(ctx, "vault unlocked", "entries", len(out))
	return out, nil
}

func (v *Vault) create(ctx context.Context, password string) ([]models.VaultEntry, error) {
	v.mu.Lock()
	v.unlocked = true
	v.password = password
	v.entries = []models.VaultEntry{}
	v.lastPersistedAt = nil
	v.mu.Unlock()

	if err := v.persistNow(ctx); err != nil {
		v.mu.Lock()
		v.unlocked = false
		v.password = ""
		v.entries = nil
		v.mu.Unlock()
		return nil, err
	}

	v.log.Info(ctx, "vault created")
	return []models.VaultEntry{}, nil
}

// Lock cancels a scheduled write, waits for an in-flight one, then forgets
// the password and entries. Call FlushPersist first to keep changes that
// are still waiting for the debounce delay.
func (v *Vault) Lock(ctx context.Context) {
	v.mu.Lock()
	v.cancelScheduledLocked()
	st := v.stateLocked()
	v.mu.Unlock()
	v.emit(ctx, st)

	v.writeMu.Lock()
	v.mu.Lock()
	wasUnlocked := v.unlocked
	v.unlocked = false
	v.password = ""
	v.entries = nil
	v.cancelScheduledLocked()
	v.mu.Unlock()
	v.writeMu.Unlock()

	if wasUnlocked {
		v.log.Info(ctx, "vault locked")
	}
}

// Stats reports the entry count, the last write time and the stored
// envelope size in bytes.
func (v *Vault) Stats(ctx context.Context) (models.Stats, error) {
	var size int
	if v.storage != nil {
		raw, err := v.storage.Get(ctx, v.key)
		if err != nil {
			return models.Stats{}, err
		}
		size = len(raw)
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	s := models.Stats{Count: len(v.entries), Size: size}
	if v.lastPersistedAt != nil {
		at := *v.lastPersistedAt
		s.LastPersistedAt = &at
	}
	return s, nil
}
