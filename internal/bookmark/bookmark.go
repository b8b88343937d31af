// Package bookmark stores and restores "resume where I left off" markers:
// which file and byte offset playback reached, encrypted at rest the way
// internal/sync's passphrase-protected payloads are (Argon2id key
// derivation, then an AEAD seal) so a bookmark file dropped next to a
// recording doesn't leak the session's file layout to anyone who finds it.
package bookmark

import (
	"crypto/rand"
	"encoding/json"
	"fmt"
	"os"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"

	"github.com/ehrlich-b/ttyplay/internal/ttime"
)

const (
	argonTime    = 1
	argonMemory  = 64 * 1024
	argonThreads = 4
	argonKeyLen  = 32
	saltLen      = 16
)

// Mark is the resume point persisted for one recording session.
type Mark struct {
	RecordingKey string    `json:"recording_key"` // spec §4.M: identifies the recording, not a filesystem path
	FileIdx      int       `json:"file_idx"`
	StreamOffset int64     `json:"stream_offset"`
	Elapsed      ttime.Time `json:"elapsed"`
}

// deriveKey derives a 32-byte AEAD key from passphrase + salt using
// Argon2id, matching internal/sync's parameters.
func deriveKey(passphrase string, salt []byte) []byte {
	return argon2.IDKey([]byte(passphrase), salt, argonTime, argonMemory, argonThreads, argonKeyLen)
}

// Save encrypts m under passphrase and writes it to path, generating a
// fresh random salt and nonce each call.
func Save(path string, passphrase string, m Mark) error {
	plaintext, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("bookmark: encode: %w", err)
	}

	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return fmt.Errorf("bookmark: generate salt: %w", err)
	}
	key := deriveKey(passphrase, salt)

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return fmt.Errorf("bookmark: create cipher: %w", err)
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return fmt.Errorf("bookmark: generate nonce: %w", err)
	}

	// On-disk layout: salt || nonce || ciphertext+tag.
	sealed := aead.Seal(nil, nonce, plaintext, nil)
	out := make([]byte, 0, len(salt)+len(nonce)+len(sealed))
	out = append(out, salt...)
	out = append(out, nonce...)
	out = append(out, sealed...)

	return os.WriteFile(path, out, 0o600)
}

// Load reads and decrypts the bookmark at path under passphrase. A wrong
// passphrase or corrupted file surfaces as an error from the AEAD open, not
// a silent garbage Mark.
func Load(path string, passphrase string) (Mark, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Mark{}, fmt.Errorf("bookmark: read: %w", err)
	}
	if len(data) < saltLen+chacha20poly1305.NonceSizeX {
		return Mark{}, fmt.Errorf("bookmark: file too short to be valid")
	}

	salt := data[:saltLen]
	rest := data[saltLen:]
	nonce := rest[:chacha20poly1305.NonceSizeX]
	ciphertext := rest[chacha20poly1305.NonceSizeX:]

	key := deriveKey(passphrase, salt)
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return Mark{}, fmt.Errorf("bookmark: create cipher: %w", err)
	}
	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return Mark{}, fmt.Errorf("bookmark: decrypt (wrong passphrase or corrupt file): %w", err)
	}

	var m Mark
	if err := json.Unmarshal(plaintext, &m); err != nil {
		return Mark{}, fmt.Errorf("bookmark: decode: %w", err)
	}
	return m, nil
}

// Exists reports whether a bookmark file is present at path, without
// attempting to decrypt it.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
