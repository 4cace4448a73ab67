// Package random provides cryptographically random byte generation for
// temporary-file naming and other non-deterministic identifiers.
package random

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// New returns a byte slice of the specified length with cryptographically
// random contents.
func New(length int) ([]byte, error) {
	result := make([]byte, length)
	if _, err := rand.Read(result); err != nil {
		return nil, fmt.Errorf("unable to read random data: %w", err)
	}
	return result, nil
}

// Hex returns a lowercase hexadecimal string of the specified byte length
// (i.e. the returned string has length*2 characters), suitable for use as a
// temporary-file name suffix.
func Hex(length int) (string, error) {
	data, err := New(length)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(data), nil
}
