// file: internal/database/settings.go
// version: 2.1.0
// guid: 8a7b6c5d-4e3f-2a1b-0c9d-8e7f6a5b4c3d

package database

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	json "github.com/goccy/go-json"
	"golang.org/x/crypto/chacha20poly1305"
)

// Sealer encrypts provider settings blobs at rest. The provider id is bound
// as additional data so a sealed blob cannot be moved to another provider.
type Sealer struct {
	key []byte
}

// NewSealer creates a sealer from a 32 byte key.
func NewSealer(key []byte) (*Sealer, error) {
	if len(key) != chacha20poly1305.KeySize {
		return nil, fmt.Errorf("invalid encryption key length: %d", len(key))
	}
	k := make([]byte, len(key))
	copy(k, key)
	return &Sealer{key: k}, nil
}

// LoadOrCreateSealer loads the key at keyPath, generating and saving a new
// one with restrictive permissions when the file does not exist.
func LoadOrCreateSealer(keyPath string) (*Sealer, error) {
	if data, err := os.ReadFile(keyPath); err == nil {
		return NewSealer(data)
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to read encryption key: %w", err)
	}

	key := make([]byte, chacha20poly1305.KeySize)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return nil, fmt.Errorf("failed to generate encryption key: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(keyPath), 0o700); err != nil {
		return nil, fmt.Errorf("failed to create key directory: %w", err)
	}
	if err := os.WriteFile(keyPath, key, 0o600); err != nil {
		return nil, fmt.Errorf("failed to save encryption key: %w", err)
	}
	return NewSealer(key)
}

// Seal encrypts plaintext for providerID.
func (s *Sealer) Seal(providerID string, plaintext []byte) ([]byte, error) {
	aead, err := chacha20poly1305.NewX(s.key)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, aead.NonceSize(), aead.NonceSize()+len(plaintext)+aead.Overhead())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}
	return aead.Seal(nonce, nonce, plaintext, []byte(providerID)), nil
}

// Open decrypts a blob produced by Seal for the same providerID.
func (s *Sealer) Open(providerID string, sealed []byte) ([]byte, error) {
	aead, err := chacha20poly1305.NewX(s.key)
	if err != nil {
		return nil, err
	}
	if len(sealed) < aead.NonceSize() {
		return nil, fmt.Errorf("ciphertext too short")
	}
	nonce, ciphertext := sealed[:aead.NonceSize()], sealed[aead.NonceSize():]
	return aead.Open(nil, nonce, ciphertext, []byte(providerID))
}

// secretSettingKeys are settings fields masked in read models.
var secretSettingKeys = map[string]bool{
	"token":   true,
	"api_key": true,
	"apiKey":  true,
	"secret":  true,
}

// MaskSecret returns a masked version of a secret (for display)
func MaskSecret(secret string) string {
	if len(secret) < 8 {
		return "****"
	}
	return secret[:3] + "****" + secret[len(secret)-4:]
}

// MaskSettings returns settings with secret-looking string fields masked.
// Blobs that are not JSON objects are returned unchanged.
func MaskSettings(settings []byte) []byte {
	if len(settings) == 0 {
		return settings
	}
	var fields map[string]any
	if err := json.Unmarshal(settings, &fields); err != nil {
		return settings
	}
	changed := false
	for k, v := range fields {
		if s, ok := v.(string); ok && secretSettingKeys[k] && s != "" {
			fields[k] = MaskSecret(s)
			changed = true
		}
	}
	if !changed {
		return settings
	}
	out, err := json.Marshal(fields)
	if err != nil {
		return settings
	}
	return out
}

// UnmaskSettings restores secrets in incoming that a client echoed back in
// masked form, taking the value from current. Other fields are kept as sent.
func UnmaskSettings(incoming, current []byte) []byte {
	if len(incoming) == 0 || len(current) == 0 {
		return incoming
	}
	var in, cur map[string]any
	if json.Unmarshal(incoming, &in) != nil || json.Unmarshal(current, &cur) != nil {
		return incoming
	}
	changed := false
	for k, v := range in {
		s, ok := v.(string)
		if !ok || !secretSettingKeys[k] {
			continue
		}
		old, ok := cur[k].(string)
		if ok && old != "" && s == MaskSecret(old) {
			in[k] = old
			changed = true
		}
	}
	if !changed {
		return incoming
	}
	out, err := json.Marshal(in)
	if err != nil {
		return incoming
	}
	return out
}
