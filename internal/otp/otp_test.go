package otp

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/dmitrijs2005/otpvault/internal/base32x"
	"github.com/dmitrijs2005/otpvault/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	rfcSHA1Key   = []byte("12345678901234567890")
	rfcSHA256Key = []byte("12345678901234567890123456789012")
	rfcSHA512Key = []byte("1234567890123456789012345678901234567890123456789012345678901234")
)

func TestHOTP_RFC4226Vectors(t *testing.T) {
	want := []string{
		"755224", "287082", "359152", "969429", "338314",
		"254676", "287922", "162583", "399871", "520489",
	}
	e := NewEngine()
	for counter, code := range want {
		got, err := e.HOTP(rfcSHA1Key, uint64(counter), 6, SHA1)
		require.NoError(t, err)
		assert.Equal(t, code, got, "counter=%d", counter)
	}
}

func TestGenerate_RFC6238Vectors(t *testing.T) {
	tests := []struct {
		unix int64
		alg  Algorithm
		key  []byte
		want string
	}{
		{59, SHA1, rfcSHA1Key, "94287082"},
		{59, SHA256, rfcSHA256Key, "46119246"},
		{59, SHA512, rfcSHA512Key, "90693936"},
		{1111111109, SHA1, rfcSHA1Key, "07081804"},
		{1111111111, SHA1, rfcSHA1Key, "14050471"},
		{1234567890, SHA1, rfcSHA1Key, "89005924"},
		{2000000000, SHA1, rfcSHA1Key, "69279037"},
		{1111111109, SHA256, rfcSHA256Key, "68084774"},
		{1111111109, SHA512, rfcSHA512Key, "25091201"},
	}
	e := NewEngine()
	for _, tt := range tests {
		t.Run(string(tt.alg)+"@"+time.Unix(tt.unix, 0).UTC().Format(time.RFC3339), func(t *testing.T) {
			got, err := e.Generate(base32x.Encode(tt.key), Options{
				Digits:    8,
				Period:    30,
				Algorithm: tt.alg,
				Timestamp: time.Unix(tt.unix, 0),
			})
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestGenerate_DefaultsAndNormalization(t *testing.T) {
	secret := base32x.Encode(rfcSHA1Key)
	at := time.UnixMilli(59000)

	canonical, err := Generate(secret, Options{Timestamp: at})
	require.NoError(t, err)
	assert.Len(t, canonical, 6)
	assert.Equal(t, "287082", canonical)

	// lower case with spaces is the same secret
	spaced := strings.ToLower(secret[:8]) + " " + secret[8:]
	got, err := Generate(spaced, Options{Timestamp: at})
	require.NoError(t, err)
	assert.Equal(t, canonical, got)
}

func TestGenerate_UsesClockWhenTimestampZero(t *testing.T) {
	e := NewEngine(WithClock(func() time.Time { return time.Unix(59, 0) }))
	got, err := e.Generate(base32x.Encode(rfcSHA1Key), Options{Digits: 8})
	require.NoError(t, err)
	assert.Equal(t, "94287082", got)
}

func TestGenerate_EpochOffsetShiftsCounter(t *testing.T) {
	secret := base32x.Encode(rfcSHA1Key)
	shifted, err := Generate(secret, Options{Digits: 8, Timestamp: time.Unix(89, 0), EpochOffset: 30})
	require.NoError(t, err)
	assert.Equal(t, "94287082", shifted)
}

func TestGenerate_Errors(t *testing.T) {
	_, err := Generate("", Options{})
	require.ErrorIs(t, err, common.ErrInvalidSecret)

	_, err = Generate("0189 !!", Options{})
	require.ErrorIs(t, err, common.ErrInvalidSecret)

	_, err = Generate("JBSWY3DPEHPK3PXP", Options{Algorithm: "MD5"})
	require.ErrorIs(t, err, ErrUnsupportedAlgorithm)

	_, err = Generate("JBSWY3DPEHPK3PXP", Options{Digits: 11})
	require.ErrorIs(t, err, ErrUnsupportedDigits)

	_, err = NewEngine(WithHashes(nil)).Generate("JBSWY3DPEHPK3PXP", Options{})
	require.ErrorIs(t, err, common.ErrCryptoUnavailable)
}

func TestGenerate_CachesAreBounded(t *testing.T) {
	e := NewEngine()
	for i := 0; i < CacheLimit+20; i++ {
		s, err := base32x.RandomSecret(16)
		require.NoError(t, err)
		_, err = e.Generate(s, Options{Timestamp: time.Unix(0, 0)})
		require.NoError(t, err)
	}
	assert.Equal(t, CacheLimit, e.secrets.Len())
	assert.Equal(t, CacheLimit, e.keys.Len())
}

func TestGenerate_CacheEvictsOldestInserted(t *testing.T) {
	e := NewEngine()
	at := Options{Timestamp: time.Unix(0, 0)}

	first, err := base32x.RandomSecret(16)
	require.NoError(t, err)
	_, err = e.Generate(first, at)
	require.NoError(t, err)

	for i := 0; i < CacheLimit-1; i++ {
		s, err := base32x.RandomSecret(16)
		require.NoError(t, err)
		_, err = e.Generate(s, at)
		require.NoError(t, err)
		// reading the first secret again must not keep it alive
		_, err = e.Generate(first, at)
		require.NoError(t, err)
	}
	require.True(t, e.secrets.Contains(first))

	next, err := base32x.RandomSecret(16)
	require.NoError(t, err)
	_, err = e.Generate(next, at)
	require.NoError(t, err)

	assert.False(t, e.secrets.Contains(first))
	assert.True(t, e.secrets.Contains(next))
	assert.False(t, e.keys.Contains(string(SHA1)+":"+first))
}

func TestVerify(t *testing.T) {
	secret := base32x.Encode(rfcSHA1Key)
	at := time.Unix(59, 0)

	ok, err := Verify(secret, "94287082", VerifyOptions{Options: Options{Digits: 8, Timestamp: at}})
	require.NoError(t, err)
	assert.True(t, ok)

	// previous step accepted with window 1, rejected with window 0
	later := at.Add(30 * time.Second)
	ok, err = Verify(secret, "94287082", VerifyOptions{Options: Options{Digits: 8, Timestamp: later}, Window: 1})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = Verify(secret, "94287082", VerifyOptions{Options: Options{Digits: 8, Timestamp: later}, Window: 0})
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = Verify(secret, " 94287082 ", VerifyOptions{Options: Options{Digits: 8, Timestamp: at}})
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestVerify_LengthMismatchSkipsGeneration(t *testing.T) {
	// a broken engine would fail if any digest were computed
	e := NewEngine(WithHashes(nil))
	ok, err := e.Verify("JBSWY3DPEHPK3PXP", "12345", VerifyOptions{})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestTimeWindowAt(t *testing.T) {
	tests := []struct {
		name   string
		period int
		ts     int64
		epoch  int64
		want   TimeWindow
	}{
		{"rfc 59s", 30, 59000, 0, TimeWindow{Counter: 1, SecondsIntoWindow: 29, ExpiresIn: 1, Period: 30}},
		{"window start", 30, 60000, 0, TimeWindow{Counter: 2, SecondsIntoWindow: 0, ExpiresIn: 30, Period: 30}},
		{"sub-second floors", 30, 60999, 0, TimeWindow{Counter: 2, SecondsIntoWindow: 0, ExpiresIn: 30, Period: 30}},
		{"epoch offset", 60, 130000, 10, TimeWindow{Counter: 2, SecondsIntoWindow: 0, ExpiresIn: 60, Period: 60}},
		{"before epoch", 30, -1000, 0, TimeWindow{Counter: -1, SecondsIntoWindow: 29, ExpiresIn: 1, Period: 30}},
		{"default period", 0, 15000, 0, TimeWindow{Counter: 0, SecondsIntoWindow: 15, ExpiresIn: 15, Period: 30}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, TimeWindowAt(tt.period, tt.ts, tt.epoch))
		})
	}
}

func TestParseAlgorithm(t *testing.T) {
	tests := map[string]Algorithm{
		"":        SHA1,
		"sha1":    SHA1,
		"SHA-1":   SHA1,
		"SHA256":  SHA256,
		"sha-512": SHA512,
	}
	for in, want := range tests {
		got, err := ParseAlgorithm(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseAlgorithm("md5")
	require.ErrorIs(t, err, ErrUnsupportedAlgorithm)
}

func TestGenerateBatch_DefaultSortByIssuerThenLabel(t *testing.T) {
	secret := base32x.Encode(rfcSHA1Key)
	entries := []Entry{
		{ID: "b", Issuer: "B", Label: "x", Secret: secret},
		{ID: "a2", Issuer: "A", Label: "z", Secret: secret},
		{ID: "a1", Issuer: "A", Label: "y", Secret: secret},
	}

	tokens, err := GenerateBatch(context.Background(), entries, BatchOptions{Timestamp: time.Unix(59, 0)})
	require.NoError(t, err)
	require.Len(t, tokens, 3)
	assert.Equal(t, []string{"a1", "a2", "b"}, []string{tokens[0].ID, tokens[1].ID, tokens[2].ID})

	for _, tok := range tokens {
		assert.Equal(t, "287082", tok.Code)
		assert.Equal(t, 1, tok.ExpiresIn)
		assert.Equal(t, 6, tok.Digits)
	}
	// input untouched
	assert.Equal(t, "b", entries[0].ID)
}

func TestGenerateBatch_UnsortedKeepsInputOrder(t *testing.T) {
	secret := base32x.Encode(rfcSHA1Key)
	entries := []Entry{
		{ID: "1", Issuer: "B", Secret: secret, Digits: 8},
		{ID: "2", Issuer: "A", Secret: secret, Period: 60},
	}
	noSort := false

	tokens, err := GenerateBatch(context.Background(), entries, BatchOptions{Timestamp: time.Unix(59, 0), Sort: &noSort})
	require.NoError(t, err)
	require.Len(t, tokens, 2)
	assert.Equal(t, "1", tokens[0].ID)
	assert.Equal(t, "94287082", tokens[0].Code)
	assert.Equal(t, 8, tokens[0].Digits)
	assert.Equal(t, "2", tokens[1].ID)
	assert.Equal(t, 1, tokens[1].ExpiresIn)
}

func TestGenerateBatch_CustomComparator(t *testing.T) {
	secret := base32x.Encode(rfcSHA1Key)
	entries := []Entry{
		{ID: "1", Issuer: "A", Secret: secret},
		{ID: "2", Issuer: "B", Secret: secret},
	}
	desc := func(a, b Entry) int { return strings.Compare(b.Issuer, a.Issuer) }

	tokens, err := GenerateBatch(context.Background(), entries, BatchOptions{Comparator: desc})
	require.NoError(t, err)
	assert.Equal(t, "2", tokens[0].ID)
	assert.Equal(t, "1", tokens[1].ID)
}

func TestGenerateBatch_InvalidSecretFailsBatch(t *testing.T) {
	entries := []Entry{
		{ID: "ok", Issuer: "A", Secret: "JBSWY3DPEHPK3PXP"},
		{ID: "bad", Issuer: "B", Secret: "!!!"},
	}
	_, err := GenerateBatch(context.Background(), entries, BatchOptions{})
	require.ErrorIs(t, err, common.ErrInvalidSecret)
}

func TestGenerateBatch_Empty(t *testing.T) {
	tokens, err := GenerateBatch(context.Background(), nil, BatchOptions{})
	require.NoError(t, err)
	assert.Empty(t, tokens)
}
