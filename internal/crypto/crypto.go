// Copyright (c) 2026 Keymaster Team
// Keyfob - RFID key check-out logger
// This source code is licensed under the MIT license found in the LICENSE file.

// Package crypto encrypts employee names and key labels at rest with
// AES-256-GCM. Blobs are laid out as nonce(12) || ciphertext || tag(16).
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/toeirei/keyfob/internal/security"
	"golang.org/x/crypto/argon2"
)

const (
	// KeySize is the AES-256 key length.
	KeySize = 32
	// NonceSize is the standard GCM nonce length.
	NonceSize = 12
	saltSize  = 16
)

var (
	// ErrDecrypt is returned when authentication fails: wrong key or tampered blob.
	ErrDecrypt = errors.New("crypto: decryption failed")
	// ErrMalformed is returned for blobs too short to hold a nonce and tag.
	ErrMalformed = errors.New("crypto: malformed ciphertext")
	// ErrKeySize is returned for keys that are not KeySize bytes.
	ErrKeySize = errors.New("crypto: key must be 32 bytes")
)

// Cipher encrypts and decrypts short strings with a fixed key.
type Cipher struct {
	aead cipher.AEAD
}

// New builds a Cipher from a 32-byte key.
func New(key security.Secret) (*Cipher, error) {
	if key.Len() != KeySize {
		return nil, ErrKeySize
	}
	var aead cipher.AEAD
	err := key.Use(func(k []byte) error {
		block, err := aes.NewCipher(k)
		if err != nil {
			return err
		}
		aead, err = cipher.NewGCM(block)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("init aes-gcm: %w", err)
	}
	return &Cipher{aead: aead}, nil
}

// Load reads the key file at path, creating it with a fresh random key on
// first use, and returns a Cipher for it.
func Load(path string) (*Cipher, error) {
	key, err := LoadOrCreateKey(path)
	if err != nil {
		return nil, err
	}
	defer key.Zero()
	return New(key)
}

// LoadOrCreateKey returns the raw key stored at path. A missing file is
// created with mode 0600.
func LoadOrCreateKey(path string) (security.Secret, error) {
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if len(data) != KeySize {
			return nil, fmt.Errorf("key file %s: %w", path, ErrKeySize)
		}
		return security.Secret(data), nil
	case !errors.Is(err, fs.ErrNotExist):
		return nil, fmt.Errorf("read key file: %w", err)
	}

	key := make([]byte, KeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("generate key: %w", err)
	}
	if err := writePrivate(path, key); err != nil {
		return nil, err
	}
	return security.Secret(key), nil
}

// FromPassphrase derives the key with Argon2id instead of reading a key
// file. The salt is kept in saltPath and created on first use.
func FromPassphrase(passphrase security.Secret, saltPath string) (*Cipher, error) {
	salt, err := os.ReadFile(saltPath)
	if errors.Is(err, fs.ErrNotExist) {
		salt = make([]byte, saltSize)
		if _, err := rand.Read(salt); err != nil {
			return nil, fmt.Errorf("generate salt: %w", err)
		}
		if err := writePrivate(saltPath, salt); err != nil {
			return nil, err
		}
	} else if err != nil {
		return nil, fmt.Errorf("read salt: %w", err)
	}
	key := DeriveKey(passphrase, salt)
	defer key.Zero()
	return New(key)
}

// DeriveKey stretches a passphrase into a 32-byte key.
func DeriveKey(passphrase security.Secret, salt []byte) security.Secret {
	var out []byte
	_ = passphrase.Use(func(p []byte) error {
		out = argon2.IDKey(p, salt, 1, 64*1024, 4, KeySize)
		return nil
	})
	return security.Secret(out)
}

// EncryptName seals s under a fresh random nonce.
func (c *Cipher) EncryptName(s string) ([]byte, error) {
	nonce := make([]byte, NonceSize, NonceSize+len(s)+c.aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}
	return c.aead.Seal(nonce, nonce, []byte(s), nil), nil
}

// DecryptName opens a blob produced by EncryptName.
func (c *Cipher) DecryptName(blob []byte) (string, error) {
	if len(blob) < NonceSize+c.aead.Overhead() {
		return "", ErrMalformed
	}
	plain, err := c.aead.Open(nil, blob[:NonceSize], blob[NonceSize:], nil)
	if err != nil {
		return "", ErrDecrypt
	}
	return string(plain), nil
}

func writePrivate(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("create key directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
