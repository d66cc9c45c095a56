package cookie

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"io"
	"strings"
)

// Sign returns "base64(value).base64(hmac)" using the current secret.
func (m *Manager) Sign(value []byte) (string, error) {
	if !m.HasSecret() {
		return "", ErrNoSecret
	}
	return base64.RawURLEncoding.EncodeToString(value) + "." +
		base64.RawURLEncoding.EncodeToString(mac(m.secrets[0], value)), nil
}

// Verify checks a string produced by Sign against every known secret and
// returns the original value.
func (m *Manager) Verify(signed string) ([]byte, error) {
	if !m.HasSecret() {
		return nil, ErrNoSecret
	}

	encValue, encSig, ok := strings.Cut(signed, ".")
	if !ok {
		return nil, ErrBadSig
	}
	value, err := base64.RawURLEncoding.DecodeString(encValue)
	if err != nil {
		return nil, ErrBadSig
	}
	sig, err := base64.RawURLEncoding.DecodeString(encSig)
	if err != nil {
		return nil, ErrBadSig
	}

	for _, secret := range m.secrets {
		if hmac.Equal(sig, mac(secret, value)) {
			return value, nil
		}
	}
	return nil, ErrBadSig
}

// Encrypt seals plaintext with AES-GCM under the current secret and returns
// it URL-safe base64 encoded. The session cookie store keeps whole sessions
// in such tokens.
func (m *Manager) Encrypt(plaintext []byte) (string, error) {
	if !m.HasSecret() {
		return "", ErrNoSecret
	}
	aead, err := newAEAD(m.secrets[0])
	if err != nil {
		return "", err
	}

	nonce := make([]byte, aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(aead.Seal(nonce, nonce, plaintext, nil)), nil
}

// Decrypt opens a token produced by Encrypt, trying every known secret.
func (m *Manager) Decrypt(token string) ([]byte, error) {
	if !m.HasSecret() {
		return nil, ErrNoSecret
	}
	data, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return nil, ErrDecrypt
	}

	for _, secret := range m.secrets {
		if plaintext, err := open(secret, data); err == nil {
			return plaintext, nil
		}
	}
	return nil, ErrDecrypt
}

func mac(secret, value []byte) []byte {
	h := hmac.New(sha256.New, secret)
	h.Write(value)
	return h.Sum(nil)
}

// newAEAD derives a 32-byte AES key from secret.
func newAEAD(secret []byte) (cipher.AEAD, error) {
	key := sha256.Sum256(secret)
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

func open(secret, data []byte) ([]byte, error) {
	aead, err := newAEAD(secret)
	if err != nil {
		return nil, err
	}
	if len(data) < aead.NonceSize() {
		return nil, errors.New("cookie: ciphertext too short")
	}
	nonce, ciphertext := data[:aead.NonceSize()], data[aead.NonceSize():]
	return aead.Open(nil, nonce, ciphertext, nil)
}
