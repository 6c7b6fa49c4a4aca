package vault

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/otpvault/internal/client/models"
	"github.com/dmitrijs2005/otpvault/internal/client/repositories/kvstore"
	"github.com/dmitrijs2005/otpvault/internal/common"
	"github.com/dmitrijs2005/otpvault/internal/cryptox"
)

const testPassword = "correct horse battery"

// fakeStorage counts writes, can fail them, and can hold them open to
// observe overlap.
type fakeStorage struct {
	*kvstore.MemoryRepository

	mu      sync.Mutex
	sets    int
	setErr  error
	gate    chan struct{}
	started chan struct{}

	inflight    atomic.Int32
	maxInflight atomic.Int32
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{MemoryRepository: kvstore.NewMemoryRepository()}
}

func (s *fakeStorage) Set(ctx context.Context, key string, value []byte) error {
	n := s.inflight.Add(1)
	defer s.inflight.Add(-1)
	for {
		m := s.maxInflight.Load()
		if n <= m || s.maxInflight.CompareAndSwap(m, n) {
			break
		}
	}

	s.mu.Lock()
	gate, started := s.gate, s.started
	s.mu.Unlock()
	if started != nil {
		started <- struct{}{}
	}
	if gate != nil {
		<-gate
	}

	s.mu.Lock()
	s.sets++
	err := s.setErr
	s.mu.Unlock()
	if err != nil {
		return err
	}
	return s.MemoryRepository.Set(ctx, key, value)
}

func (s *fakeStorage) Sets() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sets
}

func (s *fakeStorage) SetErr(err error) {
	s.mu.Lock()
	s.setErr = err
	s.mu.Unlock()
}

func (s *fakeStorage) Hold() (gate chan struct{}, started chan struct{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gate = make(chan struct{})
	s.started = make(chan struct{}, 8)
	return s.gate, s.started
}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 5, 6, 7, 8, 9, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type fixture struct {
	v       *Vault
	storage *fakeStorage
	cipher  *cryptox.Service
	clock   *fakeClock
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	f := &fixture{
		storage: newFakeStorage(),
		cipher:  cryptox.NewService(cryptox.WithIterations(1000)),
		clock:   newFakeClock(),
	}
	base := []Option{WithClock(f.clock.Now), WithPersistDelay(time.Hour)}
	f.v = New(f.storage, f.cipher, append(base, opts...)...)
	t.Cleanup(func() { f.v.Lock(context.Background()) })
	return f
}

func (f *fixture) unlock(t *testing.T) {
	t.Helper()
	_, err := f.v.Unlock(context.Background(), testPassword)
	require.NoError(t, err)
}

func (f *fixture) storedEnvelope(t *testing.T) *cryptox.Envelope {
	t.Helper()
	raw, err := f.storage.Get(context.Background(), common.StorageKey)
	require.NoError(t, err)
	require.NotEmpty(t, raw)
	env, err := cryptox.ParseEnvelope(raw)
	require.NoError(t, err)
	return env
}

func (f *fixture) storedEntries(t *testing.T) []models.VaultEntry {
	t.Helper()
	var p models.Payload
	require.NoError(t, f.cipher.Decrypt(context.Background(), testPassword, f.storedEnvelope(t), &p))
	return p.Entries
}

func mustJSON(t *testing.T, v any) []byte {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return b
}
