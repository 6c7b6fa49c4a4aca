// Package otpauth converts between vault entries and otpauth:// key URIs
// and renders them as QR codes for authenticator apps.
//
// URIs follow the Key Uri Format used by Google Authenticator:
//
//	otpauth://totp/GitHub:alice?secret=JBSWY3DP&issuer=GitHub&algorithm=SHA1&digits=6&period=30
package otpauth

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	potp "github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
	skipqrcode "github.com/skip2/go-qrcode"

	"github.com/dmitrijs2005/otpvault/internal/base32x"
	"github.com/dmitrijs2005/otpvault/internal/otp"
)

var (
	ErrInvalidURI      = errors.New("invalid otpauth:// URI")
	ErrUnsupportedType = errors.New("only totp keys are supported")
	ErrMissingSecret   = errors.New("no secret found in URI")
	ErrQRCode          = errors.New("failed to generate QR code")
)

const (
	scheme        = "otpauth"
	keyType       = "totp"
	defaultQRSize = 256
)

// Key is the content of one otpauth URI.
type Key struct {
	Issuer    string
	Label     string
	Secret    string
	Digits    int
	Period    int
	Algorithm otp.Algorithm
}

var uriAlgorithms = map[otp.Algorithm]potp.Algorithm{
	otp.SHA1:   potp.AlgorithmSHA1,
	otp.SHA256: potp.AlgorithmSHA256,
	otp.SHA512: potp.AlgorithmSHA512,
}

// Format builds the otpauth URI for k. Zero digits, period and algorithm
// are written as their defaults. Issuer, label and a decodable Base32
// secret are required.
func Format(k Key) (string, error) {
	alg := k.Algorithm
	if alg == "" {
		alg = otp.SHA1
	}
	uriAlg, ok := uriAlgorithms[alg]
	if !ok {
		return "", fmt.Errorf("%w: %q", otp.ErrUnsupportedAlgorithm, alg)
	}
	secret, err := base32x.Decode(base32x.Sanitize(k.Secret))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrMissingSecret, err)
	}
	if len(secret) == 0 {
		// an empty secret would make the library generate a random one
		return "", ErrMissingSecret
	}

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      k.Issuer,
		AccountName: k.Label,
		Period:      uint(max(k.Period, 0)),
		Digits:      potp.Digits(max(k.Digits, 0)),
		Algorithm:   uriAlg,
		Secret:      secret,
	})
	if err != nil {
		return "", fmt.Errorf("build otpauth URI: %w", err)
	}
	return key.URL(), nil
}

// Parse reads an otpauth://totp URI. The issuer query parameter wins over
// an "Issuer:" label prefix. Absent digits, period and algorithm come back
// as 6, 30 and SHA-1.
func Parse(raw string) (Key, error) {
	key, err := potp.NewKeyFromURL(raw)
	if err != nil {
		return Key{}, fmt.Errorf("%w: %v", ErrInvalidURI, err)
	}
	u, err := url.Parse(key.URL())
	if err != nil || !strings.EqualFold(u.Scheme, scheme) {
		return Key{}, ErrInvalidURI
	}
	if !strings.EqualFold(key.Type(), keyType) {
		return Key{}, fmt.Errorf("%w: %q", ErrUnsupportedType, key.Type())
	}

	k := Key{
		Issuer: strings.TrimSpace(key.Issuer()),
		Label:  strings.TrimSpace(key.AccountName()),
		Secret: key.Secret(),
		Period: int(key.Period()),
		Digits: key.Digits().Length(),
	}
	if k.Secret == "" {
		return Key{}, ErrMissingSecret
	}

	// The library folds unknown digit counts to 6 and unknown algorithms to
	// SHA-1, so both are read from the query directly.
	q := u.Query()
	if _, err := intParam(q, "period"); err != nil {
		return Key{}, err
	}
	digits, err := intParam(q, "digits")
	if err != nil {
		return Key{}, err
	}
	if digits > 0 {
		k.Digits = digits
	}
	if k.Algorithm, err = otp.ParseAlgorithm(q.Get("algorithm")); err != nil {
		return Key{}, err
	}
	return k, nil
}

func intParam(q url.Values, name string) (int, error) {
	s := q.Get(name)
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: bad %s %q", ErrInvalidURI, name, s)
	}
	return n, nil
}

// QRCode renders Format(k) as a PNG. A non-positive size means 256 pixels.
func QRCode(k Key, size int) ([]byte, error) {
	if size <= 0 {
		size = defaultQRSize
	}
	uri, err := Format(k)
	if err != nil {
		return nil, errors.Join(ErrQRCode, err)
	}
	png, err := skipqrcode.Encode(uri, skipqrcode.Medium, size)
	if err != nil {
		return nil, errors.Join(ErrQRCode, err)
	}
	return png, nil
}
