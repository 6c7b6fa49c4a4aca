package cryptox

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/otpvault/internal/common"
)

const (
	DefaultIterations    = 600_000
	DefaultHash          = "SHA-256"
	DefaultKeyLength     = 32
	DefaultVersion       = 1
	DefaultMaxIterations = 1_200_000
	DefaultTarget        = 250 * time.Millisecond

	// MaxEnvelopeIterations caps the count a stored envelope may ask for.
	MaxEnvelopeIterations = 10 * DefaultMaxIterations

	SaltSize = 16
	IVSize   = 12

	minCalibrationIterations = 150_000
	calibrationPassword      = "2fa2fa-calibrate"
)

// Envelope is the serialized, self-describing form of an encrypted payload.
// Binary fields are standard base64.
type Envelope struct {
	Salt        string     `json:"salt"`
	IV          string     `json:"iv"`
	Cipher      string     `json:"cipher"`
	Version     int        `json:"version"`
	Iterations  int        `json:"iterations,omitempty"`
	Hash        string     `json:"hash,omitempty"`
	PersistedAt *time.Time `json:"persistedAt,omitempty"`
}

// ParseEnvelope decodes raw JSON into an Envelope and checks that the
// mandatory fields are present.
func ParseEnvelope(data []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrInvalidEnvelope, err)
	}
	if err := env.validate(); err != nil {
		return nil, err
	}
	return &env, nil
}

func (e *Envelope) validate() error {
	if e == nil || e.Salt == "" || e.IV == "" || e.Cipher == "" {
		return common.ErrInvalidEnvelope
	}
	if e.Iterations > MaxEnvelopeIterations {
		return fmt.Errorf("%w: iterations %d above %d", common.ErrInvalidEnvelope, e.Iterations, MaxEnvelopeIterations)
	}
	return nil
}

// Meta carries envelope fields the caller wants preserved across writes.
// An empty Salt makes Encrypt draw a fresh one.
type Meta struct {
	Salt    string
	Version int
}

// Service derives keys and seals payloads. Iterations can be raised at
// runtime by CalibrateIterations; every other setting is fixed at
// construction.
type Service struct {
	provider  Provider
	hash      string
	keyLength int
	now       func() time.Time

	mu         sync.RWMutex
	iterations int
}

type Option func(*Service)

func WithProvider(p Provider) Option {
	return func(s *Service) { s.provider = p }
}

func WithIterations(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.iterations = n
		}
	}
}

func WithHash(h string) Option {
	return func(s *Service) {
		if h != "" {
			s.hash = h
		}
	}
}

func WithKeyLength(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.keyLength = n
		}
	}
}

// WithClock sets the time source used for PersistedAt and calibration
// timing.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(opts ...Option) *Service {
	s := &Service{
		provider:   StdProvider{},
		hash:       DefaultHash,
		keyLength:  DefaultKeyLength,
		iterations: DefaultIterations,
		now:        time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Service) Iterations() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.iterations
}

func (s *Service) Hash() string { return s.hash }

// DeriveKey stretches password with PBKDF2. Zero iterations means the
// service's current setting.
func (s *Service) DeriveKey(ctx context.Context, password string, salt []byte, iterations int) ([]byte, error) {
	if s.provider == nil {
		return nil, common.ErrCryptoUnavailable
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if iterations <= 0 {
		iterations = s.Iterations()
	}
	return s.provider.DeriveKey([]byte(password), salt, iterations, s.keyLength, s.hash)
}

// Encrypt marshals payload to JSON and seals it under a key derived from
// password. The IV is always fresh; the salt comes from meta when given.
func (s *Service) Encrypt(ctx context.Context, password string, payload any, meta Meta) (*Envelope, error) {
	if s.provider == nil {
		return nil, common.ErrCryptoUnavailable
	}

	plaintext, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	defer common.WipeByteArray(plaintext)

	var salt []byte
	if meta.Salt != "" {
		salt, err = base64.StdEncoding.DecodeString(meta.Salt)
		if err != nil {
			return nil, fmt.Errorf("%w: salt: %v", common.ErrInvalidEnvelope, err)
		}
	} else {
		salt, err = s.provider.RandomBytes(SaltSize)
		if err != nil {
			return nil, fmt.Errorf("generate salt: %w", err)
		}
	}

	iv, err := s.provider.RandomBytes(IVSize)
	if err != nil {
		return nil, fmt.Errorf("generate iv: %w", err)
	}

	iterations := s.Iterations()
	key, err := s.DeriveKey(ctx, password, salt, iterations)
	if err != nil {
		return nil, fmt.Errorf("derive key: %w", err)
	}
	defer common.WipeByteArray(key)

	ciphertext, err := s.provider.Seal(key, iv, plaintext)
	if err != nil {
		return nil, fmt.Errorf("seal: %w", err)
	}

	version := meta.Version
	if version == 0 {
		version = DefaultVersion
	}
	persistedAt := s.now().UTC()

	return &Envelope{
		Salt:        base64.StdEncoding.EncodeToString(salt),
		IV:          base64.StdEncoding.EncodeToString(iv),
		Cipher:      base64.StdEncoding.EncodeToString(ciphertext),
		Version:     version,
		Iterations:  iterations,
		Hash:        s.hash,
		PersistedAt: &persistedAt,
	}, nil
}

// Decrypt opens env with password and unmarshals the plaintext into out.
// A wrong password, a tampered ciphertext and a non-JSON plaintext are
// indistinguishable to the caller: all return common.ErrDecryptionFailed.
func (s *Service) Decrypt(ctx context.Context, password string, env *Envelope, out any) error {
	if s.provider == nil {
		return common.ErrCryptoUnavailable
	}
	if err := env.validate(); err != nil {
		return err
	}

	salt, err := base64.StdEncoding.DecodeString(env.Salt)
	if err != nil {
		return fmt.Errorf("%w: salt", common.ErrInvalidEnvelope)
	}
	iv, err := base64.StdEncoding.DecodeString(env.IV)
	if err != nil {
		return fmt.Errorf("%w: iv", common.ErrInvalidEnvelope)
	}
	ciphertext, err := base64.StdEncoding.DecodeString(env.Cipher)
	if err != nil {
		return fmt.Errorf("%w: cipher", common.ErrInvalidEnvelope)
	}

	iterations := env.Iterations
	if iterations <= 0 {
		iterations = s.Iterations()
	}

	hash := s.hash
	if env.Hash != "" {
		hash = env.Hash
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	key, err := s.provider.DeriveKey([]byte(password), salt, iterations, s.keyLength, hash)
	if err != nil {
		return fmt.Errorf("derive key: %w", err)
	}
	defer common.WipeByteArray(key)

	plaintext, err := s.provider.Open(key, iv, ciphertext)
	if err != nil {
		return common.ErrDecryptionFailed
	}
	defer common.WipeByteArray(plaintext)

	if err := json.Unmarshal(plaintext, out); err != nil {
		return common.ErrDecryptionFailed
	}
	return nil
}
