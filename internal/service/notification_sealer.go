package service

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"io"

	"golang.org/x/crypto/nacl/secretbox"
)

const sealNonceSize = 24

// secretSealer 用 NaCl secretbox 加密发件箱中的敏感字段
type secretSealer struct {
	key [32]byte
}

func newSecretSealer(secret string) *secretSealer {
	return &secretSealer{key: sha256.Sum256([]byte(secret))}
}

func (s *secretSealer) Seal(plaintext string) (string, error) {
	var nonce [sealNonceSize]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return "", err
	}
	box := secretbox.Seal(nonce[:], []byte(plaintext), &nonce, &s.key)
	return base64.StdEncoding.EncodeToString(box), nil
}

func (s *secretSealer) Open(sealed string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(sealed)
	if err != nil {
		return "", ErrNotificationSecretInvalid
	}
	if len(raw) < sealNonceSize+secretbox.Overhead {
		return "", ErrNotificationSecretInvalid
	}
	var nonce [sealNonceSize]byte
	copy(nonce[:], raw[:sealNonceSize])
	plain, ok := secretbox.Open(nil, raw[sealNonceSize:], &nonce, &s.key)
	if !ok {
		return "", ErrNotificationSecretInvalid
	}
	return string(plain), nil
}
