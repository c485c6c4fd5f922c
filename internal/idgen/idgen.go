// Package idgen provides short, URL-safe unique IDs backed by nanoid. The
// terminal uses them to correlate requests and log lines with one operator
// session.
package idgen

import (
	"fmt"

	nanoid "github.com/matoous/go-nanoid/v2"
)

// Well-known prefixes.
const (
	RequestPrefix = "rq-"
	SessionPrefix = "ss-"
)

// DefaultPrefix is prepended to every ID generated by Generate.
var DefaultPrefix = "pk-"

// Alphabet defines the character set used for the random portion of the ID.
var Alphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// Length is the number of random characters generated (excluding the prefix).
var Length = 10

// Generate returns a new unique ID using the default prefix.
func Generate() (string, error) {
	return GenerateWithPrefix(DefaultPrefix)
}

// GenerateWithPrefix returns a new unique ID with the given prefix.
func GenerateWithPrefix(prefix string) (string, error) {
	id, err := nanoid.Generate(Alphabet, Length)
	if err != nil {
		return "", fmt.Errorf("idgen: %w", err)
	}
	return prefix + id, nil
}

// SessionID returns an ID for one terminal run. It never fails: if the
// random source errors, a fixed placeholder is returned so logging can go on.
func SessionID() string {
	id, err := GenerateWithPrefix(SessionPrefix)
	if err != nil {
		return SessionPrefix + "unknown"
	}
	return id
}
