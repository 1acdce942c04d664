package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
)

// sealVersion prefixes every sealed value so the format can change later.
const sealVersion byte = 1

var errMalformedSeal = errors.New("sealed value is malformed")

func newAEAD(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

// Encrypt seals plaintext with AES-GCM under key and returns unpadded URL-safe
// base64, so the result can be used as a cookie value as-is.
func Encrypt(plaintext, key []byte) (string, error) {
	aead, err := newAEAD(key)
	if err != nil {
		return "", err
	}

	out := make([]byte, 1+aead.NonceSize(), 1+aead.NonceSize()+len(plaintext)+aead.Overhead())
	out[0] = sealVersion
	if _, err := rand.Read(out[1:]); err != nil {
		return "", err
	}
	out = aead.Seal(out, out[1:], plaintext, out[:1])
	return base64.RawURLEncoding.EncodeToString(out), nil
}

// Decrypt opens a value produced by Encrypt. Tampering or a different key fails.
func Decrypt(sealed string, key []byte) ([]byte, error) {
	raw, err := base64.RawURLEncoding.DecodeString(sealed)
	if err != nil {
		return nil, errMalformedSeal
	}

	aead, err := newAEAD(key)
	if err != nil {
		return nil, err
	}
	header := 1 + aead.NonceSize()
	if len(raw) < header+aead.Overhead() || raw[0] != sealVersion {
		return nil, errMalformedSeal
	}
	return aead.Open(nil, raw[1:header], raw[header:], raw[:1])
}
