package cookie

import (
	"encoding/json"
	"errors"
	"net/http"
)

// MinSecretLength is the shortest secret accepted for signing and encryption.
const MinSecretLength = 32

// Config holds cookie defaults loaded from the application config.
type Config struct {
	Secret          string   `yaml:"secret" toml:"secret" env:"APP_KEY"`
	PreviousSecrets []string `yaml:"previous_secrets" toml:"previous_secrets" env:"APP_PREVIOUS_KEYS" envSeparator:","`
	Domain          string   `yaml:"domain" toml:"domain" env:"COOKIE_DOMAIN"`
	Secure          bool     `yaml:"secure" toml:"secure" env:"COOKIE_SECURE"`
}

// Options converts the config into Manager options.
func (c Config) Options() []Option {
	return []Option{
		WithSecret(c.Secret),
		WithPreviousSecrets(c.PreviousSecrets...),
		WithDomain(c.Domain),
		WithSecure(c.Secure),
	}
}

// Manager reads and writes plain, signed and encrypted cookies.
//
// The first secret signs and encrypts; every secret (current first, then
// previous ones) is tried when verifying or decrypting, so keys can be
// rotated without invalidating cookies already issued.
type Manager struct {
	secrets  [][]byte
	domain   string
	path     string
	secure   bool
	httpOnly bool
	sameSite http.SameSite
}

// Option configures the Manager.
type Option func(*Manager)

// New creates a cookie Manager with the given options.
func New(opts ...Option) *Manager {
	m := &Manager{
		path:     "/",
		httpOnly: true,
		sameSite: http.SameSiteLaxMode,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// WithSecret sets the current secret. Secrets shorter than
// MinSecretLength are ignored.
func WithSecret(secret string) Option {
	return func(m *Manager) {
		if len(secret) < MinSecretLength {
			return
		}
		m.secrets = append([][]byte{[]byte(secret)}, m.secrets...)
	}
}

// WithPreviousSecrets adds retired secrets still accepted for reading.
// Short secrets are ignored.
func WithPreviousSecrets(secrets ...string) Option {
	return func(m *Manager) {
		for _, s := range secrets {
			if len(s) >= MinSecretLength {
				m.secrets = append(m.secrets, []byte(s))
			}
		}
	}
}

// WithDomain sets the cookie domain.
func WithDomain(domain string) Option {
	return func(m *Manager) { m.domain = domain }
}

// WithPath sets the cookie path.
func WithPath(path string) Option {
	return func(m *Manager) { m.path = path }
}

// WithSecure sets the Secure flag.
func WithSecure(secure bool) Option {
	return func(m *Manager) { m.secure = secure }
}

// WithHTTPOnly sets the HttpOnly flag.
func WithHTTPOnly(httpOnly bool) Option {
	return func(m *Manager) { m.httpOnly = httpOnly }
}

// WithSameSite sets the SameSite attribute.
func WithSameSite(ss http.SameSite) Option {
	return func(m *Manager) { m.sameSite = ss }
}

// HasSecret reports whether signing and encryption are available.
func (m *Manager) HasSecret() bool {
	return len(m.secrets) > 0
}

// Get returns a plain cookie value.
func (m *Manager) Get(r *http.Request, name string) (string, error) {
	c, err := r.Cookie(name)
	if err != nil {
		if errors.Is(err, http.ErrNoCookie) {
			return "", ErrNotFound
		}
		return "", err
	}
	return c.Value, nil
}

// Set sets a plain cookie.
func (m *Manager) Set(w http.ResponseWriter, name, value string, maxAge int) {
	http.SetCookie(w, m.cookie(name, value, maxAge))
}

// Delete removes a cookie.
func (m *Manager) Delete(w http.ResponseWriter, name string) {
	http.SetCookie(w, m.cookie(name, "", -1))
}

// GetSigned returns the value of a signed cookie.
func (m *Manager) GetSigned(r *http.Request, name string) (string, error) {
	if !m.HasSecret() {
		return "", ErrNoSecret
	}
	raw, err := m.Get(r, name)
	if err != nil {
		return "", err
	}
	value, err := m.Verify(raw)
	if err != nil {
		return "", err
	}
	return string(value), nil
}

// SetSigned sets a cookie carrying value and its HMAC signature.
func (m *Manager) SetSigned(w http.ResponseWriter, name, value string, maxAge int) error {
	signed, err := m.Sign([]byte(value))
	if err != nil {
		return err
	}
	http.SetCookie(w, m.cookie(name, signed, maxAge))
	return nil
}

// GetEncrypted returns the decrypted value of an encrypted cookie.
func (m *Manager) GetEncrypted(r *http.Request, name string) (string, error) {
	if !m.HasSecret() {
		return "", ErrNoSecret
	}
	raw, err := m.Get(r, name)
	if err != nil {
		return "", err
	}
	plaintext, err := m.Decrypt(raw)
	if err != nil {
		return "", err
	}
	return string(plaintext), nil
}

// SetEncrypted sets an AES-GCM encrypted cookie.
func (m *Manager) SetEncrypted(w http.ResponseWriter, name, value string, maxAge int) error {
	token, err := m.Encrypt([]byte(value))
	if err != nil {
		return err
	}
	http.SetCookie(w, m.cookie(name, token, maxAge))
	return nil
}

// Flash reads a flash message into dest and deletes it.
func (m *Manager) Flash(w http.ResponseWriter, r *http.Request, key string, dest any) error {
	name := "flash_" + key
	raw, err := m.GetEncrypted(r, name)
	if err != nil {
		return err
	}
	m.Delete(w, name)
	return json.Unmarshal([]byte(raw), dest)
}

// SetFlash stores a flash message for the next request.
func (m *Manager) SetFlash(w http.ResponseWriter, key string, value any) error {
	if !m.HasSecret() {
		return ErrNoSecret
	}
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return m.SetEncrypted(w, "flash_"+key, string(data), 0)
}

func (m *Manager) cookie(name, value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     m.path,
		Domain:   m.domain,
		MaxAge:   maxAge,
		Secure:   m.secure,
		HttpOnly: m.httpOnly,
		SameSite: m.sameSite,
	}
}
