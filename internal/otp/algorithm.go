package otp

import (
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"fmt"
	"hash"
	"strings"
)

// Algorithm names the keyed-hash function used for code generation.
type Algorithm string

const (
	SHA1   Algorithm = "SHA-1"
	SHA256 Algorithm = "SHA-256"
	SHA512 Algorithm = "SHA-512"
)

// DefaultHashes is the hash table an Engine uses unless told otherwise.
var DefaultHashes = map[Algorithm]func() hash.Hash{
	SHA1:   sha1.New,
	SHA256: sha256.New,
	SHA512: sha512.New,
}

// ParseAlgorithm accepts "SHA-1", "sha1", "SHA256" and similar spellings.
// An empty string yields SHA1.
func ParseAlgorithm(s string) (Algorithm, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return SHA1, nil
	}
	if !strings.HasPrefix(s, "SHA-") {
		s = "SHA-" + strings.TrimPrefix(s, "SHA")
	}
	switch a := Algorithm(s); a {
	case SHA1, SHA256, SHA512:
		return a, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedAlgorithm, s)
}

func (a Algorithm) String() string { return string(a) }
