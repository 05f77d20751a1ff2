package model

import (
	"context"
	"strconv"
)

// UserInfo is the identity persisted next to the API token.
type UserInfo struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	IsAdmin  bool   `json:"is_admin"`
}

// Session is the authenticated identity and token held for a browser.
// A nil or token-less session is anonymous.
type Session struct {
	Token string
	User  UserInfo
}

// Authenticated reports whether the session carries a token.
func (s *Session) Authenticated() bool {
	return s != nil && s.Token != ""
}

// IsAdmin reports whether the session belongs to an administrator.
func (s *Session) IsAdmin() bool {
	return s.Authenticated() && s.User.IsAdmin
}

// Credentials is the body of both login endpoints.
type Credentials struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// Registration is the body of the register endpoint.
type Registration struct {
	Username        string `json:"username" validate:"required"`
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required,min=6"`
	ConfirmPassword string `json:"-" form:"confirm_password" validate:"eqfield=Password"`
}

// AuthResponse is returned by the login and register endpoints.
type AuthResponse struct {
	AccessToken string `json:"access_token"`
	UserID      int64  `json:"user_id"`
	Username    string `json:"username"`
	IsAdmin     bool   `json:"is_admin"`
	Message     string `json:"message,omitempty"`
}

// Session converts the response into a session value.
func (a AuthResponse) Session() Session {
	return Session{
		Token: a.AccessToken,
		User: UserInfo{
			ID:       a.UserID,
			Username: a.Username,
			IsAdmin:  a.IsAdmin,
		},
	}
}

// FrontendConfig holds runtime parameters set via CLI flags.
type FrontendConfig struct {
	APIURL         string
	BasePath       string // URL prefix for sub-path deployments (e.g. "/quiz")
	SecureCookies  bool   // Set Secure flag on cookies (disable for local dev)
	PageSize       int
	AllowedOrigins []string // websocket origins; empty allows all
}

type sessionCtxKey struct{}

// ContextWithSession stores the browser's session in the request context.
func ContextWithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, sessionCtxKey{}, s)
}

// SessionFromContext retrieves the session from context, or nil.
func SessionFromContext(ctx context.Context) *Session {
	s, _ := ctx.Value(sessionCtxKey{}).(*Session)
	return s
}

type browserCtxKey struct{}

// ContextWithBrowserID stores the browser id (session cookie value) in context.
func ContextWithBrowserID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, browserCtxKey{}, id)
}

// BrowserIDFromContext retrieves the browser id from context.
func BrowserIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(browserCtxKey{}).(string)
	return id
}

type basePathCtxKey struct{}

// ContextWithBasePath stores the base path prefix in context.
func ContextWithBasePath(ctx context.Context, basePath string) context.Context {
	return context.WithValue(ctx, basePathCtxKey{}, basePath)
}

// BasePathFromContext retrieves the base path from context (empty string if not set).
func BasePathFromContext(ctx context.Context) string {
	bp, _ := ctx.Value(basePathCtxKey{}).(string)
	return bp
}

type csrfCtxKey struct{}

// ContextWithCSRFToken stores the CSRF token in context.
func ContextWithCSRFToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, csrfCtxKey{}, token)
}

// CSRFTokenFromContext retrieves the CSRF token from context.
func CSRFTokenFromContext(ctx context.Context) string {
	t, _ := ctx.Value(csrfCtxKey{}).(string)
	return t
}

// FormatID renders an entity id for URLs and form values.
func FormatID(id int64) string {
	return strconv.FormatInt(id, 10)
}
