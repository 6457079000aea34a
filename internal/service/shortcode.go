package service

import "math/rand/v2"

// Alphabet for short code generation: 62 characters, case-sensitive.
const codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// DefaultCodeLength is used when no length is configured.
const DefaultCodeLength = 6

// GenerateCode produces a random short code of the given length, each
// character drawn independently and uniformly from the 62-char alphabet.
// Codes are not guaranteed unique; the registry detects collisions through
// the store's uniqueness constraint. Codes are identifiers, not secrets,
// so math/rand/v2 is sufficient.
func GenerateCode(length int) string {
	if length <= 0 {
		length = DefaultCodeLength
	}
	code := make([]byte, length)
	for i := range code {
		code[i] = codeAlphabet[rand.IntN(len(codeAlphabet))]
	}
	return string(code)
}
