package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/nacl/secretbox"
)

const nonceSize = 24

// Sealer encrypts small values before they are written to the session store.
// It is used for the upstream API cookie, which grants access to the
// visitor's account and must not sit in the database in plain text.
//
// Output format: base64(nonce || secretbox(plaintext)).
type Sealer struct {
	key [32]byte
}

// NewSealer derives a 32-byte key from secret.
func NewSealer(secret string) (*Sealer, error) {
	if len(secret) < 16 {
		return nil, errors.New("auth: sealing secret must be at least 16 characters")
	}
	return &Sealer{key: sha256.Sum256([]byte("sealer:" + secret))}, nil
}

func (s *Sealer) Seal(plaintext []byte) (string, error) {
	var nonce [nonceSize]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return "", fmt.Errorf("auth: reading nonce: %w", err)
	}

	box := secretbox.Seal(nonce[:], plaintext, &nonce, &s.key)
	return base64.RawURLEncoding.EncodeToString(box), nil
}

func (s *Sealer) Open(sealed string) ([]byte, error) {
	box, err := base64.RawURLEncoding.DecodeString(sealed)
	if err != nil {
		return nil, fmt.Errorf("auth: decoding sealed value: %w", err)
	}
	if len(box) < nonceSize+secretbox.Overhead {
		return nil, errors.New("auth: sealed value too short")
	}

	var nonce [nonceSize]byte
	copy(nonce[:], box[:nonceSize])

	plaintext, ok := secretbox.Open(nil, box[nonceSize:], &nonce, &s.key)
	if !ok {
		return nil, errors.New("auth: sealed value failed authentication")
	}
	return plaintext, nil
}
