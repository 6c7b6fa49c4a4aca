package services

import (
	"context"
	"time"

	"github.com/dmitrijs2005/otpvault/internal/client/models"
	"github.com/dmitrijs2005/otpvault/internal/otp"
)

// TokenService turns vault entries into live codes.
type TokenService interface {
	Current(ctx context.Context, entries []models.VaultEntry) ([]otp.GeneratedToken, error)
	Verify(entry models.VaultEntry, code string, window int) (bool, error)
}

type tokenService struct {
	engine *otp.Engine
	now    func() time.Time
}

// NewTokenService uses engine for code generation and now as the shared
// timestamp for every batch. A nil engine gets a fresh one; a nil clock
// means time.Now.
func NewTokenService(engine *otp.Engine, now func() time.Time) TokenService {
	if now == nil {
		now = time.Now
	}
	if engine == nil {
		engine = otp.NewEngine(otp.WithClock(now))
	}
	return &tokenService{engine: engine, now: now}
}

// Current returns one code per entry, all computed at the same instant and
// sorted by issuer then label.
func (s *tokenService) Current(ctx context.Context, entries []models.VaultEntry) ([]otp.GeneratedToken, error) {
	list := make([]otp.Entry, len(entries))
	for i, e := range entries {
		list[i] = e.OTP()
	}
	return s.engine.GenerateBatch(ctx, list, otp.BatchOptions{Timestamp: s.now()})
}

// Verify checks code against entry, accepting window periods of drift on
// either side.
func (s *tokenService) Verify(entry models.VaultEntry, code string, window int) (bool, error) {
	e := entry.OTP()
	return s.engine.Verify(e.Secret, code, otp.VerifyOptions{
		Options: otp.Options{
			Digits:      e.Digits,
			Period:      e.Period,
			Algorithm:   e.Algorithm,
			Timestamp:   s.now(),
			EpochOffset: e.EpochOffset,
		},
		Window: window,
	})
}
