package internal

import (
	"strings"

	"github.com/valkyrjaio/valkyrja/pkg/model"
)

// ExtractorSource reads one candidate value from a request.
type ExtractorSource = func(Context) (string, bool)

// Extractor tries its sources in order and returns the first non-empty value.
// Middleware uses it to find request ids, API keys or locale hints wherever
// the client put them.
type Extractor struct {
	sources []ExtractorSource
}

// NewExtractor creates an Extractor that tries the given sources in order.
func NewExtractor(sources ...ExtractorSource) Extractor {
	return Extractor{sources: sources}
}

// Extract returns the first value found, or ("", false).
func (e Extractor) Extract(c Context) (string, bool) {
	for _, src := range e.sources {
		if v, ok := src(c); ok && v != "" {
			return v, true
		}
	}
	return "", false
}

// nonEmpty turns a plain getter into a source.
func nonEmpty(get func(Context) string) ExtractorSource {
	return func(c Context) (string, bool) {
		v := get(c)
		return v, v != ""
	}
}

// noError turns a getter that may fail into a source.
func noError(get func(Context) (string, error)) ExtractorSource {
	return func(c Context) (string, bool) {
		v, err := get(c)
		return v, err == nil && v != ""
	}
}

// FromHeader reads a request header.
func FromHeader(name string) ExtractorSource {
	return nonEmpty(func(c Context) string { return c.Header(name) })
}

// FromQuery reads a query parameter.
func FromQuery(name string) ExtractorSource {
	return nonEmpty(func(c Context) string { return c.Query(name) })
}

// FromParam reads a path parameter.
func FromParam(name string) ExtractorSource {
	return nonEmpty(func(c Context) string { return c.Param(name) })
}

// FromForm reads a form field.
func FromForm(name string) ExtractorSource {
	return nonEmpty(func(c Context) string { return c.Form(name) })
}

// FromCookie reads a plain cookie.
func FromCookie(name string) ExtractorSource {
	return noError(func(c Context) (string, error) { return c.Cookie(name) })
}

// FromCookieSigned reads a signed cookie.
func FromCookieSigned(name string) ExtractorSource {
	return noError(func(c Context) (string, error) { return c.CookieSigned(name) })
}

// FromCookieEncrypted reads an encrypted cookie.
func FromCookieEncrypted(name string) ExtractorSource {
	return noError(func(c Context) (string, error) { return c.CookieEncrypted(name) })
}

// FromSession reads a session value, converting non-strings with model.Cast.
// A request without a session yields nothing; no session is created.
func FromSession(key string) ExtractorSource {
	return func(c Context) (string, bool) {
		val, err := c.SessionValue(key)
		if err != nil || val == nil {
			return "", false
		}
		s, err := model.Cast[string](val)
		return s, err == nil && s != ""
	}
}

// FromBearerToken reads the token of an "Authorization: Bearer" header.
// The scheme is matched case-insensitively.
func FromBearerToken() ExtractorSource {
	return func(c Context) (string, bool) {
		scheme, token, ok := strings.Cut(c.Header("Authorization"), " ")
		if !ok || !strings.EqualFold(scheme, "bearer") {
			return "", false
		}
		token = strings.TrimSpace(token)
		return token, token != ""
	}
}
