// Package otp generates and verifies HOTP (RFC 4226) and TOTP (RFC 6238)
// codes for vault entries.
//
// An Engine keeps two bounded caches so that refreshing every code once a
// second does not re-decode secrets or re-key HMACs:
//
//   - normalized secret -> decoded key bytes
//   - algorithm + secret -> pool of keyed HMAC instances
//
// Both caches evict the least recently inserted item once they hold
// CacheLimit items. The package-level Generate, Verify and GenerateBatch use
// a shared default Engine.
//
// Usage:
//
//	code, err := otp.Generate("JBSWY3DPEHPK3PXP", otp.Options{})
//	ok, err := otp.Verify(secret, "123456", otp.VerifyOptions{Window: 1})
//	tokens, err := otp.GenerateBatch(ctx, entries, otp.BatchOptions{})
package otp
