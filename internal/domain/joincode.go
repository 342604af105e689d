package domain

import (
	"crypto/rand"
	"fmt"
	"io"
	"strings"
)

// JoinCodeAlphabet is the 36-symbol alphabet join codes are drawn from.
const JoinCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// JoinCodeLength is the fixed length of every join code.
const JoinCodeLength = 6

// joinCodeRandLimit is the largest multiple of the alphabet size that fits in
// a byte. Bytes at or above it are rejected: reducing them modulo the
// alphabet would over-represent the first 256%36 symbols.
const joinCodeRandLimit = 256 - 256%len(JoinCodeAlphabet)

// GenerateJoinCode returns a uniformly random join code. Randomness alone is
// not a uniqueness guarantee — the store enforces uniqueness with a
// constraint, and the registry regenerates on collision.
func GenerateJoinCode() (string, error) {
	code, err := joinCodeFrom(rand.Reader)
	if err != nil {
		return "", fmt.Errorf("domain.GenerateJoinCode: %w", err)
	}
	return code, nil
}

// joinCodeFrom draws code symbols from r with rejection sampling so every
// alphabet symbol is equally likely.
func joinCodeFrom(r io.Reader) (string, error) {
	code := make([]byte, 0, JoinCodeLength)
	buf := make([]byte, JoinCodeLength)
	for len(code) < JoinCodeLength {
		need := JoinCodeLength - len(code)
		if _, err := io.ReadFull(r, buf[:need]); err != nil {
			return "", err
		}
		for _, b := range buf[:need] {
			if int(b) >= joinCodeRandLimit {
				continue
			}
			code = append(code, JoinCodeAlphabet[int(b)%len(JoinCodeAlphabet)])
		}
	}
	return string(code), nil
}

// NormalizeJoinCode canonicalizes user-supplied codes before lookup:
// surrounding whitespace is stripped and letters are uppercased, so
// " ab12cd " matches the stored "AB12CD".
func NormalizeJoinCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// ValidJoinCode reports whether code has the canonical length and alphabet.
// Useful for rejecting obviously malformed codes before hitting the store.
func ValidJoinCode(code string) bool {
	if len(code) != JoinCodeLength {
		return false
	}
	for _, r := range code {
		if !strings.ContainsRune(JoinCodeAlphabet, r) {
			return false
		}
	}
	return true
}
