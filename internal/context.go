package internal

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/valkyrjaio/valkyrja/pkg/container"
	"github.com/valkyrjaio/valkyrja/pkg/model"
	"github.com/valkyrjaio/valkyrja/pkg/session"
)

// Component is the interface for renderable templates.
// This is compatible with templ.Component.
type Component interface {
	Render(ctx context.Context, w io.Writer) error
}

// Context provides request/response access and helper methods.
// It also implements context.Context by delegating to the underlying request context.
type Context interface {
	context.Context

	// Request returns the underlying *http.Request.
	Request() *http.Request

	// Response returns the underlying http.ResponseWriter.
	Response() http.ResponseWriter

	// Context returns the request's context.Context.
	Context() context.Context

	// Param returns the URL parameter value by name.
	Param(name string) string

	// Query returns the query parameter value by name.
	Query(name string) string

	// QueryDefault returns the query parameter value or a default.
	QueryDefault(name, defaultValue string) string

	// Form returns the form value by name.
	Form(name string) string

	// FormFile returns the first file for the given form key.
	FormFile(name string) (multipart.File, *multipart.FileHeader, error)

	// Header returns the request header value by name.
	Header(name string) string

	// SetHeader sets a response header.
	SetHeader(name, value string)

	// Scheme returns "https" for TLS requests or requests forwarded as
	// https by a proxy, "http" otherwise.
	Scheme() string

	// IsSecure reports whether Scheme is "https".
	IsSecure() bool

	// Accepts returns the offered media type the client prefers according
	// to its Accept header, or "" if none is acceptable. Without an Accept
	// header the first offer wins.
	Accepts(offers ...string) string

	// BindJSON decodes the JSON body into v.
	// Malformed input is returned as a 400 HTTPError.
	BindJSON(v any) error

	// BindForm fills the struct v from the form through model.Fill.
	BindForm(v any) error

	// BindQuery fills the struct v from the query string through model.Fill.
	BindQuery(v any) error

	// JSON writes a JSON response with the given status code.
	JSON(code int, v any) error

	// String writes a plain text response with the given status code.
	String(code int, s string) error

	// HTML writes an HTML response with the given status code.
	HTML(code int, html string) error

	// Blob writes raw bytes with the given content type.
	Blob(code int, contentType string, b []byte) error

	// NoContent writes a response with no body.
	NoContent(code int) error

	// Redirect redirects to the given URL with the given status code.
	Redirect(code int, url string) error

	// RedirectRoute redirects to the path of a named route.
	RedirectRoute(code int, name string, params map[string]string) error

	// URL builds the path of a named route.
	URL(name string, params map[string]string) (string, error)

	// Render renders a component with the given status code.
	// Compatible with templ.Component.
	Render(code int, component Component) error

	// Error creates and returns an HTTPError without writing a response.
	// The error should be returned from the handler to trigger the error handler.
	Error(code int, message string, opts ...HTTPErrorOption) *HTTPError

	// Written returns true if a response has already been written.
	Written() bool

	// Route returns the metadata of the matched route.
	Route() (Route, bool)

	// Container returns the application's service container.
	Container() *container.Container

	// Logger returns the logger for advanced usage.
	Logger() *slog.Logger

	// LogDebug logs a debug message with optional attributes.
	LogDebug(msg string, attrs ...any)

	// LogInfo logs an info message with optional attributes.
	LogInfo(msg string, attrs ...any)

	// LogWarn logs a warning message with optional attributes.
	LogWarn(msg string, attrs ...any)

	// LogError logs an error message with optional attributes.
	LogError(msg string, attrs ...any)

	// Set stores a value in the request context.
	// The value can be retrieved using Get or from c.Context().Value(key).
	Set(key any, value any)

	// Get retrieves a value from the request context.
	// Returns nil if the key is not found.
	Get(key any) any

	// Cookie returns a plain cookie value.
	Cookie(name string) (string, error)

	// SetCookie sets a plain cookie.
	SetCookie(name, value string, maxAge int)

	// DeleteCookie removes a cookie.
	DeleteCookie(name string)

	// CookieSigned returns a signed cookie value.
	// Returns cookie.ErrNoSecret if no secret is configured.
	CookieSigned(name string) (string, error)

	// SetCookieSigned sets a signed cookie.
	SetCookieSigned(name, value string, maxAge int) error

	// CookieEncrypted returns an encrypted cookie value.
	// Returns cookie.ErrNoSecret if no secret is configured.
	CookieEncrypted(name string) (string, error)

	// SetCookieEncrypted sets an encrypted cookie.
	SetCookieEncrypted(name, value string, maxAge int) error

	// Flash reads and deletes a flash message.
	Flash(key string, dest any) error

	// SetFlash sets a flash message.
	SetFlash(key string, value any) error

	// UserID returns the authenticated user's ID from the session, or "".
	UserID() string

	// IsAuthenticated returns true if a user is associated with the session.
	IsAuthenticated() bool

	// IsCurrentUser returns true if the authenticated user's ID matches id.
	IsCurrentUser(id string) bool

	// Session returns the current session, loading it on first call.
	// Returns nil, nil when the request carries no usable session.
	// Returns session.ErrNotConfigured if WithSession was not called.
	Session() (*session.Session, error)

	// InitSession creates a new session for this request.
	InitSession() error

	// AuthenticateSession associates a user with the session and rotates
	// the token. Creates a session if there is none.
	AuthenticateSession(userID string) error

	// SessionValue returns a session value, nil if unset.
	// Returns session.ErrNotFound if no session exists.
	SessionValue(key string) (any, error)

	// SetSessionValue stores a value in the session, creating one if needed.
	SetSessionValue(key string, val any) error

	// DeleteSessionValue removes a value from the session.
	// Returns session.ErrNotFound if no session exists.
	DeleteSessionValue(key string) error

	// DestroySession removes the session and clears the cookie.
	DestroySession() error

	// ResponseWriter returns the wrapped ResponseWriter.
	ResponseWriter() *ResponseWriter
}

// requestContext implements the Context interface.
type requestContext struct {
	app            *App
	request        *http.Request
	response       http.ResponseWriter
	responseWriter *ResponseWriter
	route          *Route
	routeErr       error

	session               *session.Session
	sessionToken          string
	sessionLoaded         bool
	sessionHookRegistered bool
}

// newContext creates a new context with the response wrapper.
func newContext(w http.ResponseWriter, r *http.Request, app *App) *requestContext {
	rw, ok := w.(*ResponseWriter)
	if !ok {
		rw = NewResponseWriter(w)
	}
	return &requestContext{
		app:            app,
		request:        r,
		response:       rw,
		responseWriter: rw,
	}
}

// Fork returns a copy of c that reads r and writes to w. The copy does not
// share request values or response tracking with c, so it may be handed to
// a goroutine that outlives c. It reports false for contexts the kernel did
// not create.
func Fork(c Context, w http.ResponseWriter, r *http.Request) (Context, bool) {
	rc, ok := c.(*requestContext)
	if !ok {
		return nil, false
	}
	fork := *rc
	rw := NewResponseWriter(w)
	fork.request = r.WithContext(context.WithValue(r.Context(), ctxKey{}, &fork))
	fork.response = rw
	fork.responseWriter = rw
	fork.sessionHookRegistered = false
	return &fork, true
}

func (c *requestContext) Request() *http.Request {
	return c.request
}

func (c *requestContext) Response() http.ResponseWriter {
	return c.response
}

func (c *requestContext) Context() context.Context {
	return c.request.Context()
}

func (c *requestContext) Deadline() (time.Time, bool) {
	return c.request.Context().Deadline()
}

func (c *requestContext) Done() <-chan struct{} {
	return c.request.Context().Done()
}

func (c *requestContext) Err() error {
	return c.request.Context().Err()
}

func (c *requestContext) Value(key any) any {
	return c.request.Context().Value(key)
}

func (c *requestContext) Param(name string) string {
	return chi.URLParam(c.request, name)
}

func (c *requestContext) Query(name string) string {
	return c.request.URL.Query().Get(name)
}

func (c *requestContext) QueryDefault(name, defaultValue string) string {
	if v := c.Query(name); v != "" {
		return v
	}
	return defaultValue
}

func (c *requestContext) Form(name string) string {
	return c.request.FormValue(name)
}

func (c *requestContext) FormFile(name string) (multipart.File, *multipart.FileHeader, error) {
	return c.request.FormFile(name)
}

func (c *requestContext) Header(name string) string {
	return c.request.Header.Get(name)
}

func (c *requestContext) SetHeader(name, value string) {
	c.response.Header().Set(name, value)
}

func (c *requestContext) Scheme() string {
	if c.request.TLS != nil {
		return "https"
	}
	proto, _, _ := strings.Cut(c.request.Header.Get("X-Forwarded-Proto"), ",")
	if strings.EqualFold(strings.TrimSpace(proto), "https") {
		return "https"
	}
	return "http"
}

func (c *requestContext) IsSecure() bool {
	return c.Scheme() == "https"
}

func (c *requestContext) Accepts(offers ...string) string {
	return negotiate(c.request.Header.Get("Accept"), offers)
}

func (c *requestContext) BindJSON(v any) error {
	if c.request.Body == nil {
		return ErrBadRequest("empty request body")
	}
	if err := json.NewDecoder(c.request.Body).Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return ErrBadRequest("empty request body", WithError(err))
		}
		return ErrBadRequest("malformed JSON body", WithError(err))
	}
	return nil
}

func (c *requestContext) BindForm(v any) error {
	if err := c.request.ParseForm(); err != nil {
		return ErrBadRequest("malformed form body", WithError(err))
	}
	return fill(v, c.request.Form)
}

func (c *requestContext) BindQuery(v any) error {
	return fill(v, c.request.URL.Query())
}

// fill decodes url values through model.Fill. Single values are passed as
// strings, repeated keys as string slices.
func fill(v any, values url.Values) error {
	data := make(map[string]any, len(values))
	for k, vs := range values {
		if len(vs) == 1 {
			data[k] = vs[0]
			continue
		}
		data[k] = vs
	}
	if err := model.Fill(v, data); err != nil {
		if errors.Is(err, model.ErrInvalidTarget) {
			return err
		}
		return ErrBadRequest("invalid input", WithError(err))
	}
	return nil
}

func (c *requestContext) JSON(code int, v any) error {
	c.response.Header().Set("Content-Type", "application/json; charset=utf-8")
	c.response.WriteHeader(code)
	return json.NewEncoder(c.response).Encode(v)
}

func (c *requestContext) String(code int, s string) error {
	return c.Blob(code, "text/plain; charset=utf-8", []byte(s))
}

func (c *requestContext) HTML(code int, html string) error {
	return c.Blob(code, "text/html; charset=utf-8", []byte(html))
}

func (c *requestContext) Blob(code int, contentType string, b []byte) error {
	if contentType != "" {
		c.response.Header().Set("Content-Type", contentType)
	}
	c.response.Header().Set("Content-Length", strconv.Itoa(len(b)))
	c.response.WriteHeader(code)
	_, err := c.response.Write(b)
	return err
}

func (c *requestContext) NoContent(code int) error {
	c.response.WriteHeader(code)
	return nil
}

func (c *requestContext) Redirect(code int, url string) error {
	http.Redirect(c.response, c.request, url, code)
	return nil
}

func (c *requestContext) RedirectRoute(code int, name string, params map[string]string) error {
	u, err := c.URL(name, params)
	if err != nil {
		return err
	}
	return c.Redirect(code, u)
}

func (c *requestContext) URL(name string, params map[string]string) (string, error) {
	return c.app.routes.URL(name, params)
}

func (c *requestContext) Render(code int, component Component) error {
	c.response.Header().Set("Content-Type", "text/html; charset=utf-8")
	c.response.WriteHeader(code)
	return component.Render(c.request.Context(), c.response)
}

func (c *requestContext) Error(code int, message string, opts ...HTTPErrorOption) *HTTPError {
	return NewHTTPError(code, message, opts...)
}

func (c *requestContext) Written() bool {
	return c.responseWriter.Written()
}

func (c *requestContext) Route() (Route, bool) {
	if c.route == nil {
		return Route{}, false
	}
	return c.route.clone(), true
}

func (c *requestContext) Container() *container.Container {
	return c.app.container
}

func (c *requestContext) Logger() *slog.Logger {
	return c.app.logger
}

func (c *requestContext) LogDebug(msg string, attrs ...any) {
	c.app.logger.DebugContext(c.request.Context(), msg, attrs...)
}

func (c *requestContext) LogInfo(msg string, attrs ...any) {
	c.app.logger.InfoContext(c.request.Context(), msg, attrs...)
}

func (c *requestContext) LogWarn(msg string, attrs ...any) {
	c.app.logger.WarnContext(c.request.Context(), msg, attrs...)
}

func (c *requestContext) LogError(msg string, attrs ...any) {
	c.app.logger.ErrorContext(c.request.Context(), msg, attrs...)
}

func (c *requestContext) Set(key, value any) {
	ctx := context.WithValue(c.request.Context(), key, value)
	c.request = c.request.WithContext(ctx)
}

func (c *requestContext) Get(key any) any {
	return c.request.Context().Value(key)
}

func (c *requestContext) Cookie(name string) (string, error) {
	return c.app.cookieManager.Get(c.request, name)
}

func (c *requestContext) SetCookie(name, value string, maxAge int) {
	c.app.cookieManager.Set(c.response, name, value, maxAge)
}

func (c *requestContext) DeleteCookie(name string) {
	c.app.cookieManager.Delete(c.response, name)
}

func (c *requestContext) CookieSigned(name string) (string, error) {
	return c.app.cookieManager.GetSigned(c.request, name)
}

func (c *requestContext) SetCookieSigned(name, value string, maxAge int) error {
	return c.app.cookieManager.SetSigned(c.response, name, value, maxAge)
}

func (c *requestContext) CookieEncrypted(name string) (string, error) {
	return c.app.cookieManager.GetEncrypted(c.request, name)
}

func (c *requestContext) SetCookieEncrypted(name, value string, maxAge int) error {
	return c.app.cookieManager.SetEncrypted(c.response, name, value, maxAge)
}

func (c *requestContext) Flash(key string, dest any) error {
	return c.app.cookieManager.Flash(c.response, c.request, key, dest)
}

func (c *requestContext) SetFlash(key string, value any) error {
	return c.app.cookieManager.SetFlash(c.response, key, value)
}

func (c *requestContext) UserID() string {
	sess, err := c.Session()
	if err != nil || sess == nil || sess.UserID == nil {
		return ""
	}
	return *sess.UserID
}

func (c *requestContext) IsAuthenticated() bool {
	return c.UserID() != ""
}

func (c *requestContext) IsCurrentUser(id string) bool {
	uid := c.UserID()
	return uid != "" && uid == id
}

// registerSessionHook ensures the session flush hook is registered once.
// It runs before the response is written to persist any session changes.
func (c *requestContext) registerSessionHook() {
	if c.sessionHookRegistered {
		return
	}
	c.sessionHookRegistered = true
	c.responseWriter.OnBeforeWrite(func() {
		sess := c.session
		if sess == nil || !sess.IsDirty() {
			return
		}
		sm := c.app.sessionManager
		// Best-effort save; the response is already on its way.
		if err := sm.Store().Update(c.Context(), sess); err != nil {
			c.LogError("failed to save session", "error", err)
			return
		}
		sess.ClearDirty()
		// Stores keeping state in the token issue a new one on update.
		if sess.Token != c.sessionToken {
			sm.SaveSession(c.response, sess)
			c.sessionToken = sess.Token
		}
	})
}

// Session returns the current session, loading it from the store if needed.
func (c *requestContext) Session() (*session.Session, error) {
	sm := c.app.sessionManager
	if sm == nil {
		return nil, session.ErrNotConfigured
	}
	c.registerSessionHook()

	if c.sessionLoaded {
		return c.session, nil
	}

	sess, err := sm.LoadSession(c.Context(), c.request)
	switch {
	case errors.Is(err, session.ErrNotFound),
		errors.Is(err, session.ErrExpired),
		errors.Is(err, session.ErrInvalidToken):
		c.LogDebug("discarding stale session cookie", "error", err)
		sm.DeleteSession(c.response)
		sess = nil
	case err != nil:
		return nil, err
	}

	c.setSession(sess)
	return sess, nil
}

func (c *requestContext) setSession(sess *session.Session) {
	c.session = sess
	c.sessionLoaded = true
	c.sessionToken = ""
	if sess != nil {
		c.sessionToken = sess.Token
	}
}

func (c *requestContext) InitSession() error {
	sm := c.app.sessionManager
	if sm == nil {
		return session.ErrNotConfigured
	}
	c.registerSessionHook()

	sess, err := sm.CreateSession(c.Context(), c.request)
	if err != nil {
		return err
	}

	c.setSession(sess)
	sm.SaveSession(c.response, sess)
	return nil
}

func (c *requestContext) AuthenticateSession(userID string) error {
	sm := c.app.sessionManager
	if sm == nil {
		return session.ErrNotConfigured
	}

	sess, err := c.Session()
	if err != nil {
		c.LogWarn("failed to load session", "error", err)
	}
	if sess == nil {
		if err := c.InitSession(); err != nil {
			return err
		}
		sess = c.session
	}

	sess.SetUser(userID)

	// Rotate the token so a token planted before login is useless after it.
	if err := sm.RotateToken(c.Context(), sess); err != nil {
		return err
	}

	sm.SaveSession(c.response, sess)
	c.sessionToken = sess.Token
	return nil
}

func (c *requestContext) SessionValue(key string) (any, error) {
	sess, err := c.Session()
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, session.ErrNotFound
	}
	val, _ := sess.GetValue(key)
	return val, nil
}

func (c *requestContext) SetSessionValue(key string, val any) error {
	sess, err := c.Session()
	if err != nil {
		return err
	}
	if sess == nil {
		if err := c.InitSession(); err != nil {
			return err
		}
		sess = c.session
	}
	sess.SetValue(key, val)
	return nil
}

func (c *requestContext) DeleteSessionValue(key string) error {
	sess, err := c.Session()
	if err != nil {
		return err
	}
	if sess == nil {
		return session.ErrNotFound
	}
	sess.DeleteValue(key)
	return nil
}

func (c *requestContext) DestroySession() error {
	sm := c.app.sessionManager
	if sm == nil {
		return session.ErrNotConfigured
	}

	if c.session != nil {
		if err := sm.Store().Delete(c.Context(), c.session.ID); err != nil {
			return err
		}
	}

	sm.DeleteSession(c.response)

	// Loaded with nil so the session is not read again from the cookie.
	c.setSession(nil)
	return nil
}

func (c *requestContext) ResponseWriter() *ResponseWriter {
	return c.responseWriter
}

// negotiate picks the offer with the highest quality in the Accept header.
// More specific ranges override wildcards; ties keep offer order.
func negotiate(accept string, offers []string) string {
	if len(offers) == 0 {
		return ""
	}
	if strings.TrimSpace(accept) == "" {
		return offers[0]
	}

	type acceptRange struct {
		typ, sub string
		q        float64
	}
	var ranges []acceptRange
	for _, part := range strings.Split(accept, ",") {
		mt, params, err := mime.ParseMediaType(strings.TrimSpace(part))
		if err != nil {
			continue
		}
		typ, sub, _ := strings.Cut(mt, "/")
		q := 1.0
		if v, ok := params["q"]; ok {
			if f, err := strconv.ParseFloat(v, 64); err == nil {
				q = f
			}
		}
		ranges = append(ranges, acceptRange{typ: typ, sub: sub, q: q})
	}

	best, bestQ := "", 0.0
	for _, offer := range offers {
		typ, sub, _ := strings.Cut(strings.ToLower(offer), "/")
		q, specificity := 0.0, -1
		for _, r := range ranges {
			s := -1
			switch {
			case r.typ == typ && r.sub == sub:
				s = 2
			case r.typ == typ && r.sub == "*":
				s = 1
			case r.typ == "*" && r.sub == "*":
				s = 0
			}
			if s > specificity {
				q, specificity = r.q, s
			}
		}
		if q > bestQ {
			best, bestQ = offer, q
		}
	}
	return best
}

var _ Context = (*requestContext)(nil)
