package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"errors"
	"fmt"
	"hash"

	"golang.org/x/crypto/pbkdf2"
)

var ErrUnsupportedHash = errors.New("unsupported key derivation hash")

// Provider supplies the primitives the envelope service is built on:
// randomness, PBKDF2 key stretching and AES-GCM sealing.
type Provider interface {
	RandomBytes(n int) ([]byte, error)
	DeriveKey(password, salt []byte, iterations, keyLen int, hash string) ([]byte, error)
	Seal(key, iv, plaintext []byte) ([]byte, error)
	Open(key, iv, ciphertext []byte) ([]byte, error)
}

// StdProvider implements Provider with crypto/rand, x/crypto/pbkdf2 and
// AES-GCM from the standard library.
type StdProvider struct{}

func hashFunc(name string) (func() hash.Hash, error) {
	switch name {
	case "SHA-256":
		return sha256.New, nil
	case "SHA-512":
		return sha512.New, nil
	case "SHA-1":
		return sha1.New, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupportedHash, name)
}

func (StdProvider) RandomBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return nil, err
	}
	return b, nil
}

func (StdProvider) DeriveKey(password, salt []byte, iterations, keyLen int, hash string) ([]byte, error) {
	h, err := hashFunc(hash)
	if err != nil {
		return nil, err
	}
	return pbkdf2.Key(password, salt, iterations, keyLen, h), nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

func (StdProvider) Seal(key, iv, plaintext []byte) ([]byte, error) {
	aesgcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	if len(iv) != aesgcm.NonceSize() {
		return nil, fmt.Errorf("iv must be %d bytes, got %d", aesgcm.NonceSize(), len(iv))
	}
	return aesgcm.Seal(nil, iv, plaintext, nil), nil
}

func (StdProvider) Open(key, iv, ciphertext []byte) ([]byte, error) {
	aesgcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	if len(iv) != aesgcm.NonceSize() {
		return nil, fmt.Errorf("iv must be %d bytes, got %d", aesgcm.NonceSize(), len(iv))
	}
	return aesgcm.Open(nil, iv, ciphertext, nil)
}
