// Package models defines the vault's persisted entry type and the
// operational state reported by the write pipeline.
package models

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/otpvault/internal/base32x"
	"github.com/dmitrijs2005/otpvault/internal/common"
	"github.com/dmitrijs2005/otpvault/internal/otp"
)

const (
	DefaultIssuer    = "Unknown"
	labelPrefix      = "Account-"
	labelSuffixChars = 6

	MinDigits = 6
	MaxDigits = 10
	MinPeriod = 15
	MaxPeriod = 60
)

var ErrSecretRequired = errors.New("secret is required")

// VaultEntry is one protected secret. JSON field names match the
// persisted payload {"entries": [...]}.
type VaultEntry struct {
	ID        string        `json:"id"`
	Issuer    string        `json:"issuer"`
	Label     string        `json:"label"`
	Secret    string        `json:"secret"`
	Digits    int           `json:"digits"`
	Period    int           `json:"period"`
	Algorithm otp.Algorithm `json:"algorithm"`
	Tags      []string      `json:"tags"`
	Group     *string       `json:"group"`
	Favorite  bool          `json:"favorite"`
	Notes     string        `json:"notes"`
	LastUsed  *time.Time    `json:"lastUsed"`
	UseCount  int           `json:"useCount"`
	CreatedAt time.Time     `json:"createdAt"`
	UpdatedAt time.Time     `json:"updatedAt"`
	Epoch     *int64        `json:"epoch,omitempty"`
}

// Payload is the plaintext sealed inside a vault envelope.
type Payload struct {
	Entries []VaultEntry `json:"entries"`
}

// Clone returns a deep copy so callers never share slices or pointers with
// the store.
func (e VaultEntry) Clone() VaultEntry {
	c := e
	c.Tags = slices.Clone(e.Tags)
	if c.Tags == nil {
		c.Tags = []string{}
	}
	if e.Group != nil {
		g := *e.Group
		c.Group = &g
	}
	if e.LastUsed != nil {
		t := *e.LastUsed
		c.LastUsed = &t
	}
	if e.Epoch != nil {
		ep := *e.Epoch
		c.Epoch = &ep
	}
	return c
}

// HasTag reports whether the entry carries tag.
func (e VaultEntry) HasTag(tag string) bool {
	return slices.Contains(e.Tags, tag)
}

// GroupName returns the group or "" when unset.
func (e VaultEntry) GroupName() string {
	if e.Group == nil {
		return ""
	}
	return *e.Group
}

// OTP converts the entry to the code engine's read-only view.
func (e VaultEntry) OTP() otp.Entry {
	var epoch int64
	if e.Epoch != nil {
		epoch = *e.Epoch
	}
	return otp.Entry{
		ID:          e.ID,
		Issuer:      e.Issuer,
		Label:       e.Label,
		Secret:      e.Secret,
		Digits:      e.Digits,
		Period:      e.Period,
		Algorithm:   e.Algorithm,
		EpochOffset: epoch,
	}
}

func clamp(v, lo, hi, def int) int {
	if v == 0 {
		v = def
	}
	return min(hi, max(lo, v))
}

// NormalizeEntry turns partial input into a complete entry:
//   - id defaults to a random UUID
//   - issuer defaults to "Unknown"; label to "Account-" plus six Base32 chars
//   - secret is upper-cased and stripped of everything outside the Base32
//     alphabet (whitespace, separators, padding); it must decode as Base32
//   - digits are clamped to 6..10 (0 means 6), period to 15..60 (0 means 30)
//   - algorithm defaults to SHA-1
//   - createdAt is kept when set; updatedAt is always now
func NormalizeEntry(partial VaultEntry, now time.Time) (VaultEntry, error) {
	secret := base32x.Sanitize(partial.Secret)
	if secret == "" {
		return VaultEntry{}, fmt.Errorf("%w: %w", common.ErrInvalidSecret, ErrSecretRequired)
	}
	if _, err := base32x.Decode(secret); err != nil {
		return VaultEntry{}, fmt.Errorf("%w: %w", common.ErrInvalidSecret, err)
	}

	alg, err := otp.ParseAlgorithm(string(partial.Algorithm))
	if err != nil {
		return VaultEntry{}, err
	}

	e := partial.Clone()
	e.Secret = secret
	e.Algorithm = alg
	e.Digits = clamp(partial.Digits, MinDigits, MaxDigits, otp.DefaultDigits)
	e.Period = clamp(partial.Period, MinPeriod, MaxPeriod, otp.DefaultPeriod)

	if e.ID == "" {
		e.ID = uuid.NewString()
	}

	e.Issuer = strings.TrimSpace(e.Issuer)
	if e.Issuer == "" {
		e.Issuer = DefaultIssuer
	}

	e.Label = strings.TrimSpace(e.Label)
	if e.Label == "" {
		suffix, err := base32x.RandomSecret(labelSuffixChars)
		if err != nil {
			return VaultEntry{}, fmt.Errorf("generate label: %w", err)
		}
		e.Label = labelPrefix + suffix
	}

	if e.UseCount < 0 {
		e.UseCount = 0
	}

	now = now.UTC()
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now
	}
	e.UpdatedAt = now

	return e, nil
}
