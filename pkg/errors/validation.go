package errors

import (
	"strings"
	"unicode"
)

// Limits shared by the CLI and the HTTP API.
const (
	MinSeedCircles = 3
	MaxSeedCircles = 4

	// maxNumberLength bounds a single curvature string so that hostile
	// input cannot force arbitrarily large big.Int parses.
	maxNumberLength = 256
)

// ValidateSeedCount checks that a gasket is seeded with three or four circles.
func ValidateSeedCount(n int) error {
	if n < MinSeedCircles || n > MaxSeedCircles {
		return New(ErrCodeInvalidConfiguration, "expected %d or %d seed curvatures, got %d",
			MinSeedCircles, MaxSeedCircles, n)
	}
	return nil
}

// ValidateMaxDepth checks that depth lies in [1, limit].
func ValidateMaxDepth(depth, limit int) error {
	if depth < 1 {
		return New(ErrCodeInvalidInput, "max depth must be at least 1, got %d", depth)
	}
	if depth > limit {
		return New(ErrCodeInvalidInput, "max depth %d exceeds limit %d", depth, limit)
	}
	return nil
}

// ValidateNumberString performs a cheap lexical check on a serialized
// exact number before it reaches the parser.
//
// The rules are conservative:
//   - No empty strings
//   - Maximum length of 256 characters
//   - No control characters
//   - Only digits, signs, '/', '*', parentheses, spaces, ':' and the
//     letters needed by the "int:", "frac:", "sym:" prefixes and sqrt
func ValidateNumberString(s string) error {
	if strings.TrimSpace(s) == "" {
		return New(ErrCodeInvalidInput, "curvature cannot be empty")
	}
	if len(s) > maxNumberLength {
		return New(ErrCodeInvalidInput, "curvature too long (max %d characters)", maxNumberLength)
	}
	for _, r := range s {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidInput, "curvature contains control characters")
		}
		if !allowedNumberRune(r) {
			return New(ErrCodeInvalidInput, "curvature contains invalid character %q", r)
		}
	}
	return nil
}

func allowedNumberRune(r rune) bool {
	switch {
	case r >= '0' && r <= '9':
		return true
	case strings.ContainsRune("+-*/(): ", r):
		return true
	case strings.ContainsRune("intfracsymqr", r):
		return true
	}
	return false
}
