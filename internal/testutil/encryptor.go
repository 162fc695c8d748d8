package testutil

import (
	"gb-go/internal/encryption"
	"gb-go/internal/gb"
)

// NewTestEncryptor creates a new test encryptor for testing.
func NewTestEncryptor() gb.Encryptor {
	return encryption.NewTestEncryptor()
}
