package protected

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/nacl/secretbox"
)

const nonceSize = 24

// ErrSealedCorrupt is returned when a sealed value cannot be opened.
var ErrSealedCorrupt = errors.New("sealed value is corrupt")

// Secretbox seals with NaCl secretbox under a static 32 byte key.
// Output is base64(nonce || box).
type Secretbox struct {
	key [32]byte
}

// NewSecretbox takes the key as standard base64.
func NewSecretbox(encodedKey string) (*Secretbox, error) {
	raw, err := base64.StdEncoding.DecodeString(encodedKey)
	if err != nil {
		return nil, fmt.Errorf("decode secretbox key: %w", err)
	}
	if len(raw) != 32 {
		return nil, fmt.Errorf("secretbox key must be 32 bytes, got %d", len(raw))
	}
	s := &Secretbox{}
	copy(s.key[:], raw)
	return s, nil
}

func (s *Secretbox) Seal(_ context.Context, plaintext string) (string, error) {
	var nonce [nonceSize]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return "", fmt.Errorf("secretbox nonce: %w", err)
	}
	box := secretbox.Seal(nonce[:], []byte(plaintext), &nonce, &s.key)
	return base64.StdEncoding.EncodeToString(box), nil
}

func (s *Secretbox) Open(_ context.Context, sealed string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(sealed)
	if err != nil || len(raw) < nonceSize+secretbox.Overhead {
		return "", ErrSealedCorrupt
	}
	var nonce [nonceSize]byte
	copy(nonce[:], raw[:nonceSize])
	plain, ok := secretbox.Open(nil, raw[nonceSize:], &nonce, &s.key)
	if !ok {
		return "", ErrSealedCorrupt
	}
	return string(plain), nil
}
