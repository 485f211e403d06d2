// Package id generates URL-safe record identifiers.
//
// Identifiers are UUIDv4 bytes encoded as unpadded base32 (RFC 4648),
// lowercased. The result is 26 characters, safe for URLs and file paths,
// and free of the dashes a canonical UUID string carries.
package id

import (
	"encoding/base32"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

var encoding = base32.StdEncoding.WithPadding(base32.NoPadding)

// NewID returns a new 26-character identifier.
func NewID() (string, error) {
	u, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("generate uuid: %w", err)
	}
	return strings.ToLower(encoding.EncodeToString(u[:])), nil
}

// MustNewID returns a new identifier and panics when entropy is unavailable.
func MustNewID() string {
	generated, err := NewID()
	if err != nil {
		panic(err)
	}
	return generated
}
