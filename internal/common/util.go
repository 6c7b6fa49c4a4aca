package common

// WipeByteArray zeroes b. It drops master passwords and secrets read from
// the terminal once they have been handed over. A nil slice is fine.
func WipeByteArray(b []byte) {
	clear(b)
}
