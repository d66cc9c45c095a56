package session

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// MaxCookieSize is the largest token CookieStore produces.
const MaxCookieSize = 4000

// Cipher encrypts session payloads. *cookie.Manager implements it.
type Cipher interface {
	Encrypt(plaintext []byte) (string, error)
	Decrypt(token string) ([]byte, error)
}

// CookieStore keeps no server state: the encrypted session is the token.
// Every Update yields a new token, so the session cookie must be re-issued
// whenever Token changes. DeleteByUserID is unsupported; Delete and Touch
// are no-ops.
type CookieStore struct {
	cipher Cipher
}

// NewCookieStore creates a CookieStore encrypting with c.
func NewCookieStore(c Cipher) *CookieStore {
	return &CookieStore{cipher: c}
}

func (cs *CookieStore) Create(_ context.Context, s *Session) error {
	return cs.seal(s)
}

func (cs *CookieStore) Get(_ context.Context, token string) (*Session, error) {
	if token == "" {
		return nil, ErrNotFound
	}
	data, err := cs.cipher.Decrypt(token)
	if err != nil {
		return nil, errors.Join(ErrInvalidToken, err)
	}
	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, errors.Join(ErrInvalidToken, err)
	}
	if s.IsExpired() {
		return nil, ErrExpired
	}
	if s.Values == nil {
		s.Values = make(map[string]any)
	}
	s.Token = token
	return &s, nil
}

func (cs *CookieStore) Update(_ context.Context, s *Session) error {
	return cs.seal(s)
}

func (cs *CookieStore) Delete(context.Context, string) error { return nil }

func (cs *CookieStore) DeleteByUserID(context.Context, string) error { return ErrUnsupported }

func (cs *CookieStore) Touch(context.Context, string, time.Time) error { return nil }

// seal encrypts s, minus its previous token, into s.Token.
func (cs *CookieStore) seal(s *Session) error {
	cp := *s
	cp.Token = ""
	data, err := json.Marshal(&cp)
	if err != nil {
		return errors.Join(ErrStoreFailed, err)
	}
	token, err := cs.cipher.Encrypt(data)
	if err != nil {
		return errors.Join(ErrStoreFailed, err)
	}
	if len(token) > MaxCookieSize {
		return ErrTooLarge
	}
	s.Token = token
	return nil
}

var _ Store = (*CookieStore)(nil)
