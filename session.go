package valkyrja

import (
	"net/http"
	"time"

	"github.com/valkyrjaio/valkyrja/internal"
	"github.com/valkyrjaio/valkyrja/pkg/cookie"
	"github.com/valkyrjaio/valkyrja/pkg/session"
)

// WithCookieSecret sets the secret used for signed and encrypted cookies.
// The secret must be at least 32 bytes.
func WithCookieSecret(secret string) CookieOption { return cookie.WithSecret(secret) }

// WithCookiePreviousSecrets accepts cookies signed with rotated-out secrets.
func WithCookiePreviousSecrets(secrets ...string) CookieOption {
	return cookie.WithPreviousSecrets(secrets...)
}

// WithCookieDomain sets the default cookie domain.
func WithCookieDomain(domain string) CookieOption { return cookie.WithDomain(domain) }

// WithCookiePath sets the default cookie path.
func WithCookiePath(path string) CookieOption { return cookie.WithPath(path) }

// WithCookieSecure sets the default Secure flag.
func WithCookieSecure(secure bool) CookieOption { return cookie.WithSecure(secure) }

// WithCookieHTTPOnly sets the default HttpOnly flag.
func WithCookieHTTPOnly(httpOnly bool) CookieOption { return cookie.WithHTTPOnly(httpOnly) }

// WithCookieSameSite sets the default SameSite mode.
func WithCookieSameSite(ss http.SameSite) CookieOption { return cookie.WithSameSite(ss) }

// SessionConfigOptions converts a SessionConfig into session options.
func SessionConfigOptions(cfg SessionConfig) []SessionOption {
	return internal.SessionConfigOptions(cfg)
}

// WithSessionCookieName sets the session cookie name. Default is "__sid".
func WithSessionCookieName(name string) SessionOption {
	return internal.WithSessionCookieName(name)
}

// WithSessionMaxAge sets the session lifetime in seconds.
func WithSessionMaxAge(seconds int) SessionOption {
	return internal.WithSessionMaxAge(seconds)
}

// WithSessionDomain sets the session cookie domain.
func WithSessionDomain(domain string) SessionOption {
	return internal.WithSessionDomain(domain)
}

// WithSessionPath sets the session cookie path.
func WithSessionPath(path string) SessionOption {
	return internal.WithSessionPath(path)
}

// WithSessionSecure sets the session cookie Secure flag.
func WithSessionSecure(secure bool) SessionOption {
	return internal.WithSessionSecure(secure)
}

// WithSessionHTTPOnly sets the session cookie HttpOnly flag.
func WithSessionHTTPOnly(httpOnly bool) SessionOption {
	return internal.WithSessionHTTPOnly(httpOnly)
}

// WithSessionSameSite sets the session cookie SameSite attribute.
func WithSessionSameSite(sameSite http.SameSite) SessionOption {
	return internal.WithSessionSameSite(sameSite)
}

// WithSessionTouchInterval records session activity at most once per d.
func WithSessionTouchInterval(d time.Duration) SessionOption {
	return internal.WithSessionTouchInterval(d)
}

// SessionValue returns a typed session value.
// Returns an error if the key doesn't exist or the type doesn't match.
//
// Example:
//
//	theme, err := valkyrja.SessionValue[string](sess, "theme")
func SessionValue[T any](sess *Session, key string) (T, error) {
	return session.Value[T](sess, key)
}

// SessionValueOr returns a typed session value or defaultVal.
//
// Example:
//
//	theme := valkyrja.SessionValueOr(sess, "theme", "light")
func SessionValueOr[T any](sess *Session, key string, defaultVal T) T {
	return session.ValueOr(sess, key, defaultVal)
}
