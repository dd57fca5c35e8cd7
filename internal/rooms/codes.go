package rooms

import (
	"strings"

	"quickdraw/internal/utility"
)

const codeLength = 4

// GenerateCode returns a fresh room code. Uniqueness is checked by the Store.
func GenerateCode() (string, error) {
	return utility.RandomCode(codeLength)
}

// NormalizeCode upper-cases a user-supplied code and reports whether it could
// name a room at all.
func NormalizeCode(raw string) (string, bool) {
	code := strings.ToUpper(strings.TrimSpace(raw))
	if len(code) != codeLength {
		return "", false
	}
	for _, ch := range code {
		if !strings.ContainsRune(utility.CodeAlphabet, ch) {
			return "", false
		}
	}
	return code, true
}
