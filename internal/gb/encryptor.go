package gb

import "io"

// Encryptor encrypts pushed files with a public key and unlocks the
// matching private key for pulls.
type Encryptor interface {
	// Setup generates a key pair, storing the private key encrypted with passphrase.
	Setup(passphrase string) error

	// Encrypt reads plaintext from r and writes ciphertext to w.
	Encrypt(r io.Reader, w io.Writer) error

	// Unlock decrypts the private key. It fails on a wrong passphrase.
	Unlock(passphrase string) (DecryptionContext, error)

	// IsConfigured reports whether both key files exist.
	IsConfigured() bool
}

// DecryptionContext holds an unlocked private key for one pull.
type DecryptionContext interface {
	Decrypt(r io.Reader, w io.Writer) error
}
