package middlewares

import (
	"fmt"
	"time"

	"github.com/valkyrjaio/valkyrja/internal"
)

// SecureHeadersConfig configures the SecureHeaders middleware.
// Empty values omit the header.
type SecureHeadersConfig struct {
	ContentTypeOptions    string
	FrameOptions          string
	ReferrerPolicy        string
	ContentSecurityPolicy string
	HSTSMaxAge            time.Duration
	HSTSIncludeSubdomains bool
}

// SecureHeadersOption configures SecureHeadersConfig.
type SecureHeadersOption func(*SecureHeadersConfig)

// WithFrameOptions sets X-Frame-Options ("DENY", "SAMEORIGIN" or "").
func WithFrameOptions(v string) SecureHeadersOption {
	return func(cfg *SecureHeadersConfig) {
		cfg.FrameOptions = v
	}
}

// WithReferrerPolicy sets Referrer-Policy.
func WithReferrerPolicy(v string) SecureHeadersOption {
	return func(cfg *SecureHeadersConfig) {
		cfg.ReferrerPolicy = v
	}
}

// WithContentSecurityPolicy sets Content-Security-Policy.
func WithContentSecurityPolicy(v string) SecureHeadersOption {
	return func(cfg *SecureHeadersConfig) {
		cfg.ContentSecurityPolicy = v
	}
}

// WithHSTS sets Strict-Transport-Security. A zero maxAge disables it.
func WithHSTS(maxAge time.Duration, includeSubdomains bool) SecureHeadersOption {
	return func(cfg *SecureHeadersConfig) {
		cfg.HSTSMaxAge = maxAge
		cfg.HSTSIncludeSubdomains = includeSubdomains
	}
}

// SecureHeaders returns middleware setting common security headers.
// HSTS is only sent on secure requests, as browsers ignore it on plain HTTP.
func SecureHeaders(opts ...SecureHeadersOption) internal.Middleware {
	cfg := &SecureHeadersConfig{
		ContentTypeOptions: "nosniff",
		FrameOptions:       "SAMEORIGIN",
		ReferrerPolicy:     "strict-origin-when-cross-origin",
		HSTSMaxAge:         365 * 24 * time.Hour,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	hsts := ""
	if cfg.HSTSMaxAge > 0 {
		hsts = fmt.Sprintf("max-age=%d", int(cfg.HSTSMaxAge.Seconds()))
		if cfg.HSTSIncludeSubdomains {
			hsts += "; includeSubDomains"
		}
	}

	return func(next internal.HandlerFunc) internal.HandlerFunc {
		return func(c internal.Context) error {
			h := c.Response().Header()
			set := func(name, v string) {
				if v != "" {
					h.Set(name, v)
				}
			}
			set("X-Content-Type-Options", cfg.ContentTypeOptions)
			set("X-Frame-Options", cfg.FrameOptions)
			set("Referrer-Policy", cfg.ReferrerPolicy)
			set("Content-Security-Policy", cfg.ContentSecurityPolicy)
			if hsts != "" && c.IsSecure() {
				h.Set("Strict-Transport-Security", hsts)
			}
			return next(c)
		}
	}
}
