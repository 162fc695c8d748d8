package encryption

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gb-go/internal/config"
)

func newKeyedEncryptor(t *testing.T, passphrase string) *AgeEncryptor {
	t.Helper()
	dir := t.TempDir()
	e := NewAgeEncryptor(config.EncryptionConfig{
		PublicKeyPath:  filepath.Join(dir, "keys", "gb.pub"),
		PrivateKeyPath: filepath.Join(dir, "keys", "gb.key"),
	})
	if passphrase != "" {
		if err := e.Setup(passphrase); err != nil {
			t.Fatalf("Setup() error = %v", err)
		}
	}
	return e
}

func TestAgeEncryptor_RoundTrip(t *testing.T) {
	t.Parallel()

	e := newKeyedEncryptor(t, "river stone")
	if !e.IsConfigured() {
		t.Fatal("IsConfigured() = false after Setup")
	}

	files := map[string][]byte{
		"empty":  {},
		"text":   []byte("Backup Name: Family\n"),
		"binary": {0x00, 0xff, 0x01, 0xfe},
		"large":  bytes.Repeat([]byte("group file "), 20000),
	}

	key, err := e.Unlock("river stone")
	if err != nil {
		t.Fatalf("Unlock() error = %v", err)
	}

	for name, plain := range files {
		t.Run(name, func(t *testing.T) {
			var sealed bytes.Buffer
			if err := e.Encrypt(bytes.NewReader(plain), &sealed); err != nil {
				t.Fatalf("Encrypt() error = %v", err)
			}
			if len(plain) > 0 && bytes.Contains(sealed.Bytes(), plain) {
				t.Error("ciphertext contains the plaintext")
			}

			var opened bytes.Buffer
			if err := key.Decrypt(&sealed, &opened); err != nil {
				t.Fatalf("Decrypt() error = %v", err)
			}
			if !bytes.Equal(opened.Bytes(), plain) {
				t.Errorf("round trip: got %d bytes, want %d", opened.Len(), len(plain))
			}
		})
	}
}

func TestAgeEncryptor_KeyFiles(t *testing.T) {
	t.Parallel()

	e := newKeyedEncryptor(t, "river stone")

	pub, err := os.ReadFile(e.publicKeyPath)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(pub), "age1") {
		t.Errorf("public key = %q, want an age1 recipient", pub)
	}

	priv, err := os.ReadFile(e.privateKeyPath)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(priv), "-----BEGIN AGE ENCRYPTED FILE-----") {
		t.Errorf("private key is not armored: %q", priv[:min(len(priv), 40)])
	}
	if strings.Contains(string(priv), "AGE-SECRET-KEY") {
		t.Error("private key file holds the secret key in the clear")
	}

	info, err := os.Stat(e.privateKeyPath)
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("private key mode = %o, want 600", perm)
	}

	entries, err := os.ReadDir(filepath.Dir(e.privateKeyPath))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Errorf("key directory has %d entries, want 2 (no temp files left)", len(entries))
	}
}

func TestAgeEncryptor_Unlock(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		setup      string
		passphrase string
		wantErr    error
	}{
		{name: "correct passphrase", setup: "river stone", passphrase: "river stone"},
		{name: "wrong passphrase", setup: "river stone", passphrase: "river  stone", wantErr: ErrWrongPassphrase},
		{name: "no keys", passphrase: "anything", wantErr: os.ErrNotExist},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			e := newKeyedEncryptor(t, tt.setup)

			_, err := e.Unlock(tt.passphrase)
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("Unlock() error = %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Unlock() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestAgeEncryptor_Setup(t *testing.T) {
	t.Parallel()

	t.Run("refuses to replace keys", func(t *testing.T) {
		t.Parallel()
		e := newKeyedEncryptor(t, "first")

		if err := e.Setup("second"); !errors.Is(err, ErrKeysExist) {
			t.Fatalf("second Setup() error = %v, want ErrKeysExist", err)
		}
		if _, err := e.Unlock("first"); err != nil {
			t.Errorf("original key no longer unlocks: %v", err)
		}
	})

	t.Run("refuses when only the public key exists", func(t *testing.T) {
		t.Parallel()
		e := newKeyedEncryptor(t, "")
		if err := os.MkdirAll(filepath.Dir(e.publicKeyPath), 0o700); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(e.publicKeyPath, []byte("age1stale\n"), 0o644); err != nil {
			t.Fatal(err)
		}

		if err := e.Setup("pass"); !errors.Is(err, ErrKeysExist) {
			t.Fatalf("Setup() error = %v, want ErrKeysExist", err)
		}
		if _, err := os.Stat(e.privateKeyPath); !os.IsNotExist(err) {
			t.Error("a private key was written next to a foreign public key")
		}
	})

	t.Run("rejects a blank passphrase", func(t *testing.T) {
		t.Parallel()
		e := newKeyedEncryptor(t, "")
		if err := e.Setup("   "); err == nil {
			t.Error("Setup() with a blank passphrase should fail")
		}
		if e.IsConfigured() {
			t.Error("IsConfigured() = true after a rejected Setup")
		}
	})
}

func TestAgeEncryptor_EncryptWithoutKeys(t *testing.T) {
	t.Parallel()

	e := newKeyedEncryptor(t, "")
	var out bytes.Buffer
	if err := e.Encrypt(strings.NewReader("data"), &out); err == nil {
		t.Error("Encrypt() before Setup should fail")
	}
}

func TestAgeEncryptor_RecipientIsReused(t *testing.T) {
	t.Parallel()

	e := newKeyedEncryptor(t, "river stone")
	var first bytes.Buffer
	if err := e.Encrypt(strings.NewReader("a.txt"), &first); err != nil {
		t.Fatalf("Encrypt() error = %v", err)
	}

	// Later files of the same push do not reread the key file.
	if err := os.Remove(e.publicKeyPath); err != nil {
		t.Fatal(err)
	}
	var second bytes.Buffer
	if err := e.Encrypt(strings.NewReader("b.txt"), &second); err != nil {
		t.Fatalf("second Encrypt() error = %v", err)
	}

	key, err := e.Unlock("river stone")
	if err != nil {
		t.Fatal(err)
	}
	var plain bytes.Buffer
	if err := key.Decrypt(&second, &plain); err != nil {
		t.Fatalf("Decrypt() error = %v", err)
	}
	if plain.String() != "b.txt" {
		t.Errorf("Decrypt() = %q, want b.txt", plain.String())
	}
}
