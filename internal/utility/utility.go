package utility

import (
	"crypto/rand"
	"math/big"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	MinUsernameLen = 2
	MaxUsernameLen = 32
)

// CodeAlphabet excludes characters that are easy to misread: 0, O, 1, I, L.
const CodeAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

// SanitizeUsername trims raw and reports whether the result is usable as a
// display name.
func SanitizeUsername(raw string) (string, bool) {
	name := strings.TrimSpace(raw)
	n := utf8.RuneCountInString(name)
	if n < MinUsernameLen || n > MaxUsernameLen {
		return "", false
	}
	for _, r := range name {
		if !unicode.IsPrint(r) {
			return "", false
		}
	}
	return name, true
}

// RandomCode returns n characters drawn uniformly from CodeAlphabet.
func RandomCode(n int) (string, error) {
	code := make([]byte, n)
	for i := range code {
		idx, err := rand.Int(rand.Reader, big.NewInt(int64(len(CodeAlphabet))))
		if err != nil {
			return "", err
		}
		code[i] = CodeAlphabet[idx.Int64()]
	}
	return string(code), nil
}

// GuestName returns a random fallback name such as "Guest-7KQ2".
func GuestName() string {
	suffix, err := RandomCode(4)
	if err != nil {
		return "Guest"
	}
	return "Guest-" + suffix
}
