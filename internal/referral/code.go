// Package referral validates and issues affiliate referral codes.
package referral

import (
	"errors"
	"regexp"
	"strings"

	"github.com/oklog/ulid/v2"
)

// ErrInvalidCode carries the message shown to the admin editing a code.
var ErrInvalidCode = errors.New("referral code must be 8-50 characters of A-Z and 0-9")

var codePattern = regexp.MustCompile(`^[A-Z0-9]{8,50}$`)

// Validate reports whether code is acceptable once uppercased.
func Validate(code string) bool {
	return codePattern.MatchString(strings.ToUpper(code))
}

// Normalize trims and uppercases code, returning ErrInvalidCode when the
// result does not match the accepted format.
func Normalize(code string) (string, error) {
	normalized := strings.ToUpper(strings.TrimSpace(code))
	if !codePattern.MatchString(normalized) {
		return "", ErrInvalidCode
	}
	return normalized, nil
}

// Generate issues a fresh code. ULIDs use Crockford base32, which is a subset
// of the accepted alphabet.
func Generate() string {
	return ulid.Make().String()
}
