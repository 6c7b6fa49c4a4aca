// Package base32x implements the RFC 4648 Base32 alphabet the way
// authenticator apps use it: case-insensitive, tolerant of spaces and
// separators on input, and never padded on output.
package base32x

import (
	"crypto/rand"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/otpvault/internal/common"
)

const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ234567"

// Sanitize upper-cases s and drops every character outside the alphabet.
func Sanitize(s string) string {
	s = strings.ToUpper(s)
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c >= 'A' && c <= 'Z') || (c >= '2' && c <= '7') {
			b.WriteByte(c)
		}
	}
	return b.String()
}

func index(c byte) int {
	switch {
	case c >= 'A' && c <= 'Z':
		return int(c - 'A')
	case c >= '2' && c <= '7':
		return int(c-'2') + 26
	}
	return -1
}

// Decode converts Base32 text to bytes. Incomplete trailing bits are
// discarded. Text with no alphabet characters left after sanitizing is an
// ErrInvalidEncoding.
func Decode(s string) ([]byte, error) {
	clean := Sanitize(s)
	if clean == "" {
		return nil, common.ErrInvalidEncoding
	}

	out := make([]byte, 0, len(clean)*5/8)
	var value uint32
	bits := 0
	for i := 0; i < len(clean); i++ {
		idx := index(clean[i])
		if idx < 0 {
			return nil, fmt.Errorf("%w: character %q", common.ErrInvalidEncoding, clean[i])
		}
		value = value<<5 | uint32(idx)
		bits += 5
		if bits >= 8 {
			out = append(out, byte(value>>(bits-8)))
			bits -= 8
		}
		value &= 1<<bits - 1
	}
	return out, nil
}

// Encode converts bytes to unpadded Base32 text.
func Encode(b []byte) string {
	if len(b) == 0 {
		return ""
	}

	var sb strings.Builder
	sb.Grow((len(b)*8 + 4) / 5)
	var value uint32
	bits := 0
	for _, c := range b {
		value = value<<8 | uint32(c)
		bits += 8
		for bits >= 5 {
			sb.WriteByte(alphabet[(value>>(bits-5))&31])
			bits -= 5
		}
		value &= 1<<bits - 1
	}
	if bits > 0 {
		sb.WriteByte(alphabet[(value<<(5-bits))&31])
	}
	return sb.String()
}

// RandomSecret returns length characters of random Base32 text.
func RandomSecret(length int) (string, error) {
	if length <= 0 {
		return "", nil
	}
	b := make([]byte, length)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("%w: %v", common.ErrCryptoUnavailable, err)
	}
	s := Encode(b)
	return s[:length], nil
}
