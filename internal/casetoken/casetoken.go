// Package casetoken issues and checks the opaque tokens that identify
// a report for status lookup. Possession of a token is the only
// credential a reporter needs; nothing else about them is asked again.
package casetoken

import (
	"crypto/rand"
	"fmt"
	"strings"
)

// Tokens look like SR-7C3K9M2P4Q8R5T6V0W1X: a fixed prefix plus 20
// symbols from a 32-character alphabet (digits and uppercase letters
// without I, L, O and U, so a token survives being read out loud).
const (
	prefix   = "SR-"
	codeLen  = 20
	alphabet = "0123456789ABCDEFGHJKMNPQRSTVWXYZ"
)

// Generate returns a fresh case token. 20 symbols over 32 characters
// give 100 bits of randomness; a collision therefore indicates a
// broken RNG, and the report store's unique index is what turns one
// into a hard error rather than a silent overwrite.
func Generate() (string, error) {
	buf := make([]byte, codeLen)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}

	code := make([]byte, codeLen)
	for i, b := range buf {
		code[i] = alphabet[int(b)%len(alphabet)]
	}

	return prefix + string(code), nil
}

// IsValid reports whether token matches the case-token format. It is a
// pure check and says nothing about whether a report exists; callers
// use it to reject malformed lookups before touching storage.
func IsValid(token string) bool {
	if len(token) != len(prefix)+codeLen {
		return false
	}
	if !strings.HasPrefix(token, prefix) {
		return false
	}
	for i := len(prefix); i < len(token); i++ {
		if strings.IndexByte(alphabet, token[i]) < 0 {
			return false
		}
	}
	return true
}
