// Package idgen generates short, URL-safe identifiers for outgoing requests.
package idgen

import (
	"fmt"

	nanoid "github.com/matoous/go-nanoid/v2"
)

// RequestPrefix is prepended to every request identifier.
var RequestPrefix = "req-"

// Alphabet defines the character set used for the random portion of the ID.
var Alphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// Length is the number of random characters generated (excluding the prefix).
var Length = 12

// RequestID returns a new identifier for the X-Request-ID header.
func RequestID() (string, error) {
	return WithPrefix(RequestPrefix)
}

// WithPrefix returns a new unique ID with the given prefix.
func WithPrefix(prefix string) (string, error) {
	id, err := nanoid.Generate(Alphabet, Length)
	if err != nil {
		return "", fmt.Errorf("idgen: %w", err)
	}
	return prefix + id, nil
}

// MustRequestID is RequestID for callers that cannot handle an error; it
// falls back to a fixed marker when the random source fails.
func MustRequestID() string {
	id, err := RequestID()
	if err != nil {
		return RequestPrefix + "unknown"
	}
	return id
}
