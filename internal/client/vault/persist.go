package vault

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dmitrijs2005/otpvault/internal/client/models"
	"github.com/dmitrijs2005/otpvault/internal/common"
	"github.com/dmitrijs2005/otpvault/internal/cryptox"
)

// Pending is a batch of mutations waiting for one envelope write. Every
// caller in the batch observes the same result.
type Pending struct {
	done  chan struct{}
	err   error
	count int
}

func newPending() *Pending {
	return &Pending{done: make(chan struct{})}
}

func (p *Pending) finish(err error) {
	p.err = err
	close(p.done)
}

// Done is closed once the write has finished or been canceled.
func (p *Pending) Done() <-chan struct{} { return p.done }

// Err returns the write result after Done is closed, nil before.
func (p *Pending) Err() error {
	select {
	case <-p.done:
		return p.err
	default:
		return nil
	}
}

// Wait blocks until the write finishes or ctx is done.
func (p *Pending) Wait(ctx context.Context) error {
	select {
	case <-p.done:
		return p.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Persist schedules a debounced write and returns the batch it joined.
func (v *Vault) Persist() (*Pending, error) {
	if err := v.requireStorage(); err != nil {
		return nil, err
	}
	v.mu.Lock()
	if err := v.requireUnlockedLocked(); err != nil {
		v.mu.Unlock()
		return nil, err
	}
	p := v.scheduleLocked()
	st := v.stateLocked()
	v.mu.Unlock()
	v.emit(context.Background(), st)
	return p, nil
}

// FlushPersist forces a scheduled write to run now and waits for it. With
// nothing scheduled it waits for the in-flight write, if any. On a locked
// vault it only cancels what is scheduled.
func (v *Vault) FlushPersist(ctx context.Context) error {
	v.mu.Lock()
	if !v.unlocked {
		v.cancelScheduledLocked()
		st := v.stateLocked()
		v.mu.Unlock()
		v.emit(ctx, st)
		return nil
	}
	if v.pending != nil || v.timer != nil {
		req := v.takeLocked()
		v.mu.Unlock()
		return v.write(ctx, req)
	}
	active := v.active
	v.mu.Unlock()

	if active != nil {
		return active.Wait(ctx)
	}
	return nil
}

// PersistState returns a snapshot of the write pipeline.
func (v *Vault) PersistState() models.PersistState {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.stateLocked()
}

func (v *Vault) stateLocked() models.PersistState {
	st := models.PersistState{
		PersistStats: v.stats,
		Scheduled:    v.timer != nil,
		InFlight:     v.active != nil,
	}
	if v.stats.LastPersistedAt != nil {
		at := *v.stats.LastPersistedAt
		st.LastPersistedAt = &at
	}
	if v.stats.QueuedAt != nil {
		at := *v.stats.QueuedAt
		st.QueuedAt = &at
	}
	return st
}

func (v *Vault) scheduleLocked() *Pending {
	if v.pending == nil {
		v.pending = newPending()
	}
	v.pending.count++

	v.stats.PendingWrites++
	if v.stats.QueuedAt == nil {
		at := v.now()
		v.stats.QueuedAt = &at
	}
	if v.active != nil {
		v.stats.Status = models.PersistSaving
	} else {
		v.stats.Status = models.PersistQueued
	}
	v.stats.LastError = ""

	if v.timer == nil {
		v.timerGen++
		gen := v.timerGen
		v.timer = time.AfterFunc(v.delay, func() { v.fire(gen) })
	}
	return v.pending
}

// takeLocked stops the timer and detaches the pending batch.
func (v *Vault) takeLocked() *Pending {
	if v.timer != nil {
		v.timer.Stop()
		v.timer = nil
		v.timerGen++
	}
	req := v.pending
	v.pending = nil
	if req == nil {
		req = newPending()
	}
	return req
}

func (v *Vault) cancelScheduledLocked() {
	if v.timer != nil {
		v.timer.Stop()
		v.timer = nil
		v.timerGen++
	}
	if v.pending != nil {
		v.pending.finish(errCanceled)
		v.pending = nil
	}
	v.stats.QueuedAt = nil
	v.stats.PendingWrites = 0
	if v.active == nil {
		v.stats.Status = models.PersistIdle
	}
}

func (v *Vault) fire(gen uint64) {
	v.mu.Lock()
	if gen != v.timerGen || v.pending == nil {
		v.mu.Unlock()
		return
	}
	req := v.takeLocked()
	v.mu.Unlock()

	_ = v.write(context.Background(), req)
}

// persistNow writes immediately, joining any scheduled batch.
func (v *Vault) persistNow(ctx context.Context) error {
	v.mu.Lock()
	req := v.takeLocked()
	v.mu.Unlock()
	return v.write(ctx, req)
}

// write runs one envelope write for req. It waits for any write already in
// flight and snapshots the entries only once it holds the write lock, so
// the envelope reflects every mutation made before it started.
func (v *Vault) write(ctx context.Context, req *Pending) error {
	v.writeMu.Lock()
	defer v.writeMu.Unlock()

	v.mu.Lock()
	if !v.unlocked {
		v.mu.Unlock()
		req.finish(errCanceled)
		return errCanceled
	}
	password := v.password
	snapshot := cloneEntries(v.entries)
	v.active = req
	v.stats.Status = models.PersistSaving
	st := v.stateLocked()
	v.mu.Unlock()
	v.emit(ctx, st)

	start := time.Now()
	persistedAt, err := v.store(ctx, password, snapshot)
	elapsed := time.Since(start)

	v.mu.Lock()
	v.active = nil
	if err != nil {
		v.stats.Status = models.PersistError
		v.stats.LastError = err.Error()
	} else {
		v.lastPersistedAt = &persistedAt
		at := persistedAt
		v.stats.LastPersistedAt = &at
		v.stats.LastPersistDuration = elapsed
		v.stats.LastError = ""
		if v.pending != nil {
			v.stats.Status = models.PersistQueued
			v.stats.PendingWrites = v.pending.count
		} else {
			v.stats.Status = models.PersistIdle
			v.stats.PendingWrites = 0
			v.stats.QueuedAt = nil
		}
	}
	st = v.stateLocked()
	v.mu.Unlock()
	v.emit(ctx, st)

	if err != nil {
		v.reportPersistError(ctx, err)
	} else {
		v.log.Debug(ctx, "vault persisted", "entries", len(snapshot), "duration", elapsed)
	}
	req.finish(err)
	return err
}

func (v *Vault) store(ctx context.Context, password string, entries []models.VaultEntry) (time.Time, error) {
	if err := v.requireStorage(); err != nil {
		return time.Time{}, err
	}

	env, err := v.encrypt(ctx, password, entries, v.envelopeMeta(ctx))
	if err != nil {
		return time.Time{}, err
	}
	data, err := json.Marshal(env)
	if err != nil {
		return time.Time{}, fmt.Errorf("marshal envelope: %w", err)
	}
	if err := v.storage.Set(ctx, v.key, data); err != nil {
		return time.Time{}, fmt.Errorf("store vault: %w", err)
	}
	return *env.PersistedAt, nil
}

func (v *Vault) encrypt(ctx context.Context, password string, entries []models.VaultEntry, meta cryptox.Meta) (*cryptox.Envelope, error) {
	if v.cipher == nil {
		return nil, fmt.Errorf("encrypt vault: %w", common.ErrCryptoUnavailable)
	}
	env, err := v.cipher.Encrypt(ctx, password, models.Payload{Entries: entries}, meta)
	if err != nil {
		return nil, fmt.Errorf("encrypt vault: %w", err)
	}
	at := v.now().UTC()
	env.PersistedAt = &at
	return env, nil
}

// envelopeMeta recovers salt and version from the stored envelope so that
// successive writes in one session reuse the salt.
func (v *Vault) envelopeMeta(ctx context.Context) cryptox.Meta {
	raw, err := v.storage.Get(ctx, v.key)
	if err != nil || len(raw) == 0 {
		return cryptox.Meta{}
	}
	var stored struct {
		Salt    string `json:"salt"`
		Version int    `json:"version"`
	}
	if err := json.Unmarshal(raw, &stored); err != nil {
		return cryptox.Meta{}
	}
	return cryptox.Meta{Salt: stored.Salt, Version: stored.Version}
}

func (v *Vault) reportPersistError(ctx context.Context, err error) {
	if v.onPersistError == nil {
		v.log.Warn(ctx, "failed to persist encrypted vault", "error", err)
		return
	}
	defer func() {
		if r := recover(); r != nil {
			v.log.Error(ctx, "vault persistence listener failed", "panic", r)
		}
	}()
	v.onPersistError(err)
}

func (v *Vault) emit(ctx context.Context, st models.PersistState) {
	if v.onPersistState == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			v.log.Error(ctx, "vault persist state listener failed", "panic", r)
		}
	}()
	v.onPersistState(st)
}
