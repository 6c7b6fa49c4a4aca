package otp

import (
	"crypto/hmac"
	"crypto/subtle"
	"encoding/binary"
	"errors"
	"fmt"
	"hash"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/dmitrijs2005/otpvault/internal/base32x"
	"github.com/dmitrijs2005/otpvault/internal/common"
)

const (
	DefaultDigits = 6
	DefaultPeriod = 30
	MaxDigits     = 10

	// CacheLimit bounds both engine caches.
	CacheLimit = 256
)

var (
	ErrUnsupportedAlgorithm = errors.New("unsupported hash algorithm")
	ErrUnsupportedDigits    = errors.New("unsupported digit count")
)

var pow10 = [...]uint32{1, 10, 100, 1000, 10000, 100000, 1000000, 10000000, 100000000, 1000000000}

// Options controls a single code generation. Zero values mean defaults:
// 6 digits, 30 second period, SHA-1, the current time and no epoch offset.
type Options struct {
	Digits      int
	Period      int
	Algorithm   Algorithm
	Timestamp   time.Time
	EpochOffset int64 // seconds
}

func (o Options) withDefaults(now func() time.Time) Options {
	if o.Digits <= 0 {
		o.Digits = DefaultDigits
	}
	if o.Period <= 0 {
		o.Period = DefaultPeriod
	}
	if o.Algorithm == "" {
		o.Algorithm = SHA1
	}
	if o.Timestamp.IsZero() {
		o.Timestamp = now()
	}
	return o
}

// VerifyOptions extends Options with the number of periods accepted on each
// side of the current one.
type VerifyOptions struct {
	Options
	Window int
}

// keyedHash is a prepared HMAC key. HMAC instances are not safe for
// concurrent use, so each key keeps a pool of them.
type keyedHash struct {
	pool sync.Pool
}

func newKeyedHash(h func() hash.Hash, key []byte) *keyedHash {
	k := append([]byte(nil), key...)
	return &keyedHash{pool: sync.Pool{New: func() any { return hmac.New(h, k) }}}
}

func (k *keyedHash) sum(msg []byte) []byte {
	m := k.pool.Get().(hash.Hash)
	defer k.pool.Put(m)
	m.Reset()
	m.Write(msg)
	return m.Sum(nil)
}

// Engine generates codes. It is safe for concurrent use.
//
// Both caches are read with Peek and filled with PeekOrAdd, neither of which
// touches recency, so eviction drops the least recently inserted item.
type Engine struct {
	hashes  map[Algorithm]func() hash.Hash
	now     func() time.Time
	secrets *lru.Cache[string, []byte]
	keys    *lru.Cache[string, *keyedHash]
}

type EngineOption func(*Engine)

// WithHashes replaces the hash table. A nil table makes every generation
// fail with common.ErrCryptoUnavailable.
func WithHashes(h map[Algorithm]func() hash.Hash) EngineOption {
	return func(e *Engine) { e.hashes = h }
}

// WithClock sets the time source used when Options.Timestamp is zero.
func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) { e.now = now }
}

func NewEngine(opts ...EngineOption) *Engine {
	e := &Engine{
		hashes:  DefaultHashes,
		now:     time.Now,
		secrets: newCache[[]byte](),
		keys:    newCache[*keyedHash](),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func newCache[V any]() *lru.Cache[string, V] {
	c, err := lru.New[string, V](CacheLimit)
	if err != nil {
		panic(err)
	}
	return c
}

// cached returns the value stored under key, building and inserting it on a
// miss. When two callers race, the first inserted value wins.
func cached[V any](c *lru.Cache[string, V], key string, build func() (V, error)) (V, error) {
	if v, ok := c.Peek(key); ok {
		return v, nil
	}
	v, err := build()
	if err != nil {
		return v, err
	}
	if prev, ok, _ := c.PeekOrAdd(key, v); ok {
		return prev, nil
	}
	return v, nil
}

func (e *Engine) secretBytes(normalized string) ([]byte, error) {
	return cached(e.secrets, normalized, func() ([]byte, error) {
		b, err := base32x.Decode(normalized)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", common.ErrInvalidSecret, err)
		}
		return b, nil
	})
}

func (e *Engine) keyFor(alg Algorithm, normalized string, secret []byte) (*keyedHash, error) {
	if e.hashes == nil {
		return nil, common.ErrCryptoUnavailable
	}
	h, ok := e.hashes[alg]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedAlgorithm, alg)
	}
	return cached(e.keys, string(alg)+":"+normalized, func() (*keyedHash, error) {
		return newKeyedHash(h, secret), nil
	})
}

// HOTP computes the RFC 4226 code for key and counter.
func (e *Engine) HOTP(key []byte, counter uint64, digits int, alg Algorithm) (string, error) {
	if len(key) == 0 {
		return "", common.ErrInvalidSecret
	}
	if alg == "" {
		alg = SHA1
	}
	if e.hashes == nil {
		return "", common.ErrCryptoUnavailable
	}
	h, ok := e.hashes[alg]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedAlgorithm, alg)
	}
	return hotp(newKeyedHash(h, key), counter, digits)
}

func hotp(k *keyedHash, counter uint64, digits int) (string, error) {
	if digits <= 0 || digits > MaxDigits {
		return "", fmt.Errorf("%w: %d", ErrUnsupportedDigits, digits)
	}

	var msg [8]byte
	binary.BigEndian.PutUint64(msg[:], counter)
	sum := k.sum(msg[:])

	offset := sum[len(sum)-1] & 0x0f
	bin := uint32(sum[offset]&0x7f)<<24 |
		uint32(sum[offset+1])<<16 |
		uint32(sum[offset+2])<<8 |
		uint32(sum[offset+3])

	code := uint64(bin)
	if digits < len(pow10) {
		code %= uint64(pow10[digits])
	}
	return fmt.Sprintf("%0*d", digits, code), nil
}

// Generate returns the TOTP code for secret at opts.Timestamp.
func (e *Engine) Generate(secret string, opts Options) (string, error) {
	normalized := base32x.Sanitize(secret)
	if normalized == "" {
		return "", common.ErrInvalidSecret
	}
	opts = opts.withDefaults(e.now)

	key, err := e.secretBytes(normalized)
	if err != nil {
		return "", err
	}
	kh, err := e.keyFor(opts.Algorithm, normalized, key)
	if err != nil {
		return "", err
	}

	w := TimeWindowAt(opts.Period, opts.Timestamp.UnixMilli(), opts.EpochOffset)
	return hotp(kh, uint64(w.Counter), opts.Digits)
}

// Verify reports whether candidate matches a code within Window periods of
// opts.Timestamp. A candidate of the wrong length is rejected without
// computing any digest.
func (e *Engine) Verify(secret, candidate string, opts VerifyOptions) (bool, error) {
	o := opts.Options.withDefaults(e.now)
	candidate = strings.TrimSpace(candidate)
	if len(candidate) != o.Digits {
		return false, nil
	}
	window := opts.Window
	if window < 0 {
		window = 0
	}

	step := time.Duration(o.Period) * time.Second
	for i := -window; i <= window; i++ {
		at := o
		at.Timestamp = o.Timestamp.Add(time.Duration(i) * step)
		code, err := e.Generate(secret, at)
		if err != nil {
			return false, err
		}
		if subtle.ConstantTimeCompare([]byte(code), []byte(candidate)) == 1 {
			return true, nil
		}
	}
	return false, nil
}

var defaultEngine = NewEngine()

// Generate uses the shared default Engine.
func Generate(secret string, opts Options) (string, error) {
	return defaultEngine.Generate(secret, opts)
}

// Verify uses the shared default Engine.
func Verify(secret, candidate string, opts VerifyOptions) (bool, error) {
	return defaultEngine.Verify(secret, candidate, opts)
}
