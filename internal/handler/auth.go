package handler

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/quizmasterpro/quizmaster/internal/apiclient"
	"github.com/quizmasterpro/quizmaster/internal/handler/views"
	appI18n "github.com/quizmasterpro/quizmaster/internal/i18n"
	"github.com/quizmasterpro/quizmaster/internal/model"
	"github.com/quizmasterpro/quizmaster/internal/shell"
	"github.com/quizmasterpro/quizmaster/internal/validate"
)

const (
	browserCookieName = "qm_browser"
	csrfCookieName    = "csrf_token"

	browserCookieMaxAge = 365 * 24 * 3600
)

func generateCSRFToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}

func (h *Handler) setCSRFCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     csrfCookieName,
		Value:    token,
		Path:     h.cookiePath(),
		HttpOnly: false,
		Secure:   h.config.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

// csrfMiddleware implements the double-submit cookie check. GET requests
// keep the browser's token so that asset requests do not invalidate open
// forms; every accepted POST rotates it.
func (h *Handler) csrfMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet || r.Method == http.MethodHead {
			token := ""
			if c, err := r.Cookie(csrfCookieName); err == nil {
				token = c.Value
			}
			if token == "" {
				var err error
				if token, err = generateCSRFToken(); err != nil {
					slog.Error("failed to generate CSRF token", "error", err)
					http.Error(w, "internal error", http.StatusInternalServerError)
					return
				}
				h.setCSRFCookie(w, token)
			}
			ctx := model.ContextWithCSRFToken(r.Context(), token)
			next.ServeHTTP(w, r.WithContext(ctx))
			return
		}

		cookie, err := r.Cookie(csrfCookieName)
		if err != nil || cookie.Value == "" {
			slog.Warn("CSRF cookie missing")
			http.Error(w, "csrf token missing", http.StatusForbidden)
			return
		}

		formToken := r.FormValue("csrf_token")
		if formToken == "" {
			slog.Warn("CSRF form token missing")
			http.Error(w, "csrf token missing", http.StatusForbidden)
			return
		}

		if len(formToken) != len(cookie.Value) || subtle.ConstantTimeCompare([]byte(formToken), []byte(cookie.Value)) != 1 {
			slog.Warn("CSRF token mismatch")
			http.Error(w, "invalid csrf token", http.StatusForbidden)
			return
		}

		token, err := generateCSRFToken()
		if err != nil {
			slog.Error("failed to generate CSRF token", "error", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		h.setCSRFCookie(w, token)

		ctx := model.ContextWithCSRFToken(r.Context(), token)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// browserMiddleware identifies the browser by a random id cookie and loads
// its persisted session. The first request of a visit with a restored
// session pings the API's last-active endpoint.
func (h *Handler) browserMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := ""
		if c, err := r.Cookie(browserCookieName); err == nil {
			if _, err := uuid.Parse(c.Value); err == nil {
				id = c.Value
			}
		}
		if id == "" {
			id = uuid.NewString()
			http.SetCookie(w, &http.Cookie{
				Name:     browserCookieName,
				Value:    id,
				Path:     h.cookiePath(),
				MaxAge:   browserCookieMaxAge,
				HttpOnly: true,
				Secure:   h.config.SecureCookies,
				SameSite: http.SameSiteLaxMode,
			})
		}

		sess, err := h.sessions.GetUserData(r.Context(), id)
		if err != nil {
			slog.Error("failed to load session", "error", err)
		}

		if _, seen := h.workspaces.Peek(id); !seen && sess.Authenticated() {
			go h.markActive(sess.Token)
		}
		h.workspaces.Get(id)

		ctx := model.ContextWithBrowserID(r.Context(), id)
		ctx = model.ContextWithSession(ctx, sess)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireSession rejects anonymous requests.
func (h *Handler) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !model.SessionFromContext(r.Context()).Authenticated() {
			h.redirectToLogin(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// requireAdmin rejects anonymous requests and non-admin sessions.
func (h *Handler) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess := model.SessionFromContext(r.Context())
		if !sess.Authenticated() {
			h.redirectToLogin(w, r)
			return
		}
		if !sess.IsAdmin() {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (h *Handler) redirectToLogin(w http.ResponseWriter, r *http.Request) {
	loginPath := h.path("/login")
	if r.Header.Get("HX-Request") == "true" {
		w.Header().Set("HX-Redirect", loginPath)
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	http.Redirect(w, r, loginPath, http.StatusSeeOther)
}

func (h *Handler) renderLogin(w http.ResponseWriter, r *http.Request, v *visit) {
	admin := v.query().Get("admin") == "1"
	h.renderLoginForm(w, r, v, views.LoginData{Admin: admin}, http.StatusOK)
}

func (h *Handler) renderLoginForm(w http.ResponseWriter, r *http.Request, v *visit, d views.LoginData, status int) {
	title := "UserLogin"
	if d.Admin {
		title = "AdminLogin"
	}
	alert := d.Alert
	d.Layout = h.layout(r, v, title)
	d.Alert = alert
	if status != http.StatusOK {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(status)
	}
	h.render(w, r, views.LoginPage(d))
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	v := h.begin(r)
	admin := r.FormValue("admin") == "1"
	cred := model.Credentials{
		Username: strings.TrimSpace(r.FormValue("username")),
		Password: r.FormValue("password"),
	}
	form := views.LoginData{Admin: admin, Username: cred.Username}

	if fields, ok := validate.Fields(validate.Struct(cred)); ok {
		form.Errors = fields
		h.renderLoginForm(w, r, v, form, http.StatusUnprocessableEntity)
		return
	}

	login := h.api.Login
	if admin {
		login = h.api.AdminLogin
	}
	resp, err := login(ctx, cred)
	if err == nil && resp.AccessToken == "" {
		err = shell.ErrNoToken
	}
	if err != nil {
		slog.Warn("login failed", "username", cred.Username, "admin", admin, "error", err)
		form.Layout.Alert = loginAlert(r, err)
		h.renderLoginForm(w, r, v, form, http.StatusUnauthorized)
		return
	}

	v.ws.Reset()
	if err := v.ctl.Login(ctx, resp); err != nil {
		slog.Error("failed to persist session", "error", err)
		form.Layout.Alert = views.ErrorText(ctx, err)
		h.renderLoginForm(w, r, v, form, http.StatusInternalServerError)
		return
	}
	h.finish(w, r, v, v.hist.Location())
}

func loginAlert(r *http.Request, err error) string {
	if errors.Is(err, apiclient.ErrUnauthorized) || errors.Is(err, shell.ErrNoToken) {
		return appI18n.T(r.Context(), "LoginFailed")
	}
	return views.ErrorText(r.Context(), err)
}

func (h *Handler) renderRegister(w http.ResponseWriter, r *http.Request, v *visit) {
	h.renderRegisterForm(w, r, v, views.RegisterData{}, http.StatusOK)
}

func (h *Handler) renderRegisterForm(w http.ResponseWriter, r *http.Request, v *visit, d views.RegisterData, status int) {
	alert := d.Alert
	d.Layout = h.layout(r, v, "Register")
	d.Alert = alert
	// Never echo passwords back.
	d.Form.Password, d.Form.ConfirmPassword = "", ""
	if status != http.StatusOK {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(status)
	}
	h.render(w, r, views.RegisterPage(d))
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	v := h.begin(r)
	reg := model.Registration{
		Username:        strings.TrimSpace(r.FormValue("username")),
		Email:           strings.TrimSpace(r.FormValue("email")),
		Password:        r.FormValue("password"),
		ConfirmPassword: r.FormValue("confirm_password"),
	}
	form := views.RegisterData{Form: reg}

	if fields, ok := validate.Fields(validate.Struct(reg)); ok {
		form.Errors = fields
		h.renderRegisterForm(w, r, v, form, http.StatusUnprocessableEntity)
		return
	}

	resp, err := h.api.Register(ctx, reg)
	if err != nil {
		slog.Warn("registration failed", "username", reg.Username, "error", err)
		form.Layout.Alert = views.ErrorText(ctx, err)
		h.renderRegisterForm(w, r, v, form, http.StatusUnprocessableEntity)
		return
	}
	if resp.AccessToken == "" {
		// Some deployments answer register without a token.
		resp, err = h.api.Login(ctx, model.Credentials{Username: reg.Username, Password: reg.Password})
		if err != nil {
			slog.Warn("login after registration failed", "username", reg.Username, "error", err)
			http.Redirect(w, r, h.path("/login"), http.StatusSeeOther)
			return
		}
	}

	v.ws.Reset()
	if err := v.ctl.Register(ctx, resp); err != nil {
		slog.Warn("registration did not yield a session", "error", err)
		http.Redirect(w, r, h.path("/login"), http.StatusSeeOther)
		return
	}
	h.finish(w, r, v, v.hist.Location())
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	v := h.begin(r)
	v.ws.Reset()
	if err := v.ctl.Logout(r.Context()); err != nil {
		slog.Error("failed to clear session", "error", err)
	}
	http.Redirect(w, r, h.path(v.hist.Location()), http.StatusSeeOther)
}
