// Package hashing normalizes and hashes personally identifying fields the way the
// Graph API expects them: trimmed, lower-cased, SHA-256, lowercase hex.
//
// Every function returns nil when there is nothing left to hash, so an empty value is
// never sent as the digest of the empty string.
package hashing

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
	"unicode"
)

const dateOfBirthLayout = "20060102"

// SHA256 trims and lower-cases value and returns its hex encoded SHA-256 digest.
func SHA256(value string) *string {
	normalized := strings.ToLower(strings.TrimSpace(value))
	if normalized == "" {
		return nil
	}

	sum := sha256.Sum256([]byte(normalized))
	digest := hex.EncodeToString(sum[:])

	return &digest
}

// Email hashes an email address.
func Email(email string) *string {
	return SHA256(strings.ToLower(strings.TrimSpace(email)))
}

// Phone hashes a phone number after dropping everything but digits. The country code
// is expected to be part of the number.
func Phone(phone string) *string {
	return SHA256(keep(phone, unicode.IsDigit))
}

// Gender hashes the first character of the value (m, f, ...).
func Gender(gender string) *string {
	normalized := strings.ToLower(strings.TrimSpace(gender))
	for _, r := range normalized {
		return SHA256(string(r))
	}

	return nil
}

// DateOfBirth hashes t formatted as YYYYMMDD.
func DateOfBirth(t time.Time) *string {
	if t.IsZero() {
		return nil
	}

	return SHA256(t.Format(dateOfBirthLayout))
}

// City hashes a city name with spaces and punctuation removed.
func City(city string) *string {
	return SHA256(strings.ToLower(keep(city, isAlphanumeric)))
}

// State hashes a state or province code.
func State(state string) *string {
	return SHA256(strings.ToLower(strings.TrimSpace(state)))
}

// Zip hashes a zip or postal code with everything but letters and digits removed.
func Zip(zip string) *string {
	return SHA256(strings.ToLower(keep(zip, isAlphanumeric)))
}

// Country hashes an ISO 3166-1 alpha-2 country code.
func Country(country string) *string {
	return SHA256(strings.ToLower(strings.TrimSpace(country)))
}

func isAlphanumeric(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

func keep(value string, allowed func(rune) bool) string {
	var b strings.Builder
	b.Grow(len(value))

	for _, r := range value {
		if allowed(r) {
			b.WriteRune(r)
		}
	}

	return b.String()
}
