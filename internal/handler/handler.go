package handler

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/a-h/templ"
	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/quizmasterpro/quizmaster/internal/apiclient"
	"github.com/quizmasterpro/quizmaster/internal/attempt"
	"github.com/quizmasterpro/quizmaster/internal/auth"
	"github.com/quizmasterpro/quizmaster/internal/handler/views"
	"github.com/quizmasterpro/quizmaster/internal/model"
	"github.com/quizmasterpro/quizmaster/internal/router"
	"github.com/quizmasterpro/quizmaster/internal/shell"
	"github.com/quizmasterpro/quizmaster/internal/workspace"
)

const defaultPageSize = 10

// Handler holds shared dependencies for HTTP handlers.
type Handler struct {
	config     model.FrontendConfig
	api        *apiclient.Client
	sessions   *auth.Store
	workspaces *workspace.Registry
	clock      attempt.Clock
	upgrader   websocket.Upgrader
	pages      map[router.Page]pageFunc
}

type pageFunc func(w http.ResponseWriter, r *http.Request, v *visit)

// New creates a new Handler. A nil clock uses the wall clock.
func New(cfg model.FrontendConfig, api *apiclient.Client, sessions *auth.Store, ws *workspace.Registry, clock attempt.Clock) (*Handler, error) {
	if clock == nil {
		clock = attempt.SystemClock{}
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = defaultPageSize
	}
	h := &Handler{
		config:     cfg,
		api:        api,
		sessions:   sessions,
		workspaces: ws,
		clock:      clock,
		upgrader:   buildUpgrader(cfg.AllowedOrigins),
	}
	h.pages = map[router.Page]pageFunc{
		router.PageLogin:           h.renderLogin,
		router.PageRegister:        h.renderRegister,
		router.PageUserDashboard:   h.renderUserDashboard,
		router.PageAdminDashboard:  h.renderAdminDashboard,
		router.PageViewScores:      h.renderScores,
		router.PageManageUsers:     h.renderUsers,
		router.PageManageSubjects:  h.renderSubjects,
		router.PageManageChapters:  h.renderChapters,
		router.PageManageQuizzes:   h.renderQuizzes,
		router.PageManageQuestions: h.renderQuestions,
		router.PageStartQuiz:       h.renderQuiz,
	}
	return h, nil
}

// Routes registers all HTTP routes.
func (h *Handler) Routes(r chi.Router) {
	r.Handle("/static/*", http.StripPrefix(h.path("/static/"), http.FileServerFS(views.Static())))
	r.Get("/favicon.ico", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	r.Group(func(r chi.Router) {
		r.Use(h.browserMiddleware)
		r.With(h.requireSession).Get("/quiz/ws", h.handleQuizSocket)
	})

	r.Group(func(r chi.Router) {
		r.Use(h.browserMiddleware)
		r.Use(h.csrfMiddleware)

		r.Get("/", h.handlePage)
		for _, p := range router.StaticPaths() {
			r.Get(p, h.handlePage)
		}
		r.Get("/subjects/{id}/chapters", h.handlePage)
		r.Get("/chapters/{id}/quizzes", h.handlePage)
		r.Get("/quizzes/{id}/questions", h.handlePage)
		r.Get("/admin/questions/{id}", h.handlePage)
		r.NotFound(h.handleNotFound)

		r.Post("/login", h.handleLogin)
		r.Post("/register", h.handleRegister)
		r.Post("/logout", h.handleLogout)

		r.Group(func(r chi.Router) {
			r.Use(h.requireSession)
			r.Post("/quiz/answer", h.handleQuizAnswer)
			r.Post("/quiz/next", h.handleQuizNext)
			r.Post("/quiz/prev", h.handleQuizPrev)
			r.Post("/quiz/goto", h.handleQuizGoto)
			r.Post("/quiz/finish", h.handleQuizFinish)
		})

		r.Group(func(r chi.Router) {
			r.Use(h.requireAdmin)
			r.Post("/admin/subjects/save", h.handleSaveSubject)
			r.Post("/admin/subjects/{id}/delete", h.handleDeleteSubject)
			r.Post("/admin/chapters/save", h.handleSaveChapter)
			r.Post("/admin/chapters/{id}/delete", h.handleDeleteChapter)
			r.Post("/admin/quizzes/save", h.handleSaveQuiz)
			r.Post("/admin/quizzes/{id}/delete", h.handleDeleteQuiz)
			r.Post("/admin/questions/save", h.handleSaveQuestion)
			r.Post("/admin/questions/{id}/delete", h.handleDeleteQuestion)
			r.Post("/admin/scores/export", h.handleExportScores)
		})
	})
}

// BasePathMiddleware stores the configured base path in every request context
// so views can build links.
func BasePathMiddleware(basePath string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := model.ContextWithBasePath(r.Context(), basePath)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// path prefixes p with the base path.
func (h *Handler) path(p string) string {
	return h.config.BasePath + p
}

func (h *Handler) cookiePath() string {
	if h.config.BasePath != "" {
		return h.config.BasePath + "/"
	}
	return "/"
}

// visit is the per-request view of a browser: its workspace and a root
// controller positioned at the requested URL.
type visit struct {
	browserID string
	self      string
	ws        *workspace.Workspace
	hist      *shell.RequestHistory
	ctl       *shell.Controller
}

func (h *Handler) begin(r *http.Request) *visit {
	ctx := r.Context()
	id := model.BrowserIDFromContext(ctx)
	self := strings.TrimPrefix(r.URL.Path, h.config.BasePath)
	if self == "" {
		self = "/"
	}
	loc := self
	if r.URL.RawQuery != "" {
		loc += "?" + r.URL.RawQuery
	}

	v := &visit{
		browserID: id,
		self:      self,
		ws:        h.workspaces.Get(id),
		hist:      shell.NewRequestHistory(loc),
	}
	v.ctl = shell.New(shell.Config{
		BrowserID: id,
		Sessions:  h.sessions,
		API:       h.api,
		History:   v.hist,
		Session:   model.SessionFromContext(ctx),
	})
	v.ctl.OnPageCommitted(v.ws.PageCommitted)
	return v
}

// query returns the committed params as url.Values. Pages read their
// parameters only through the controller.
func (v *visit) query() url.Values {
	q := url.Values{}
	for k, val := range v.ctl.Params() {
		q.Set(k, val)
	}
	return q
}

// handlePage derives the page from the URL through the root controller and
// renders it. Gating decisions come back as 303 redirects.
func (h *Handler) handlePage(w http.ResponseWriter, r *http.Request) {
	v := h.begin(r)
	v.ctl.HandleURLChange()
	if target, ok := v.hist.Redirect(); ok {
		http.Redirect(w, r, h.path(target), http.StatusSeeOther)
		return
	}
	render, ok := h.pages[v.ctl.Page()]
	if !ok {
		render = h.renderLogin
	}
	render(w, r, v)
}

// handleNotFound sends unknown HTML navigations through the router, which
// falls back to the login page. Other requests get a plain 404.
func (h *Handler) handleNotFound(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet || !strings.Contains(r.Header.Get("Accept"), "text/html") {
		http.NotFound(w, r)
		return
	}
	h.handlePage(w, r)
}

func (h *Handler) layout(r *http.Request, v *visit, title string) views.Layout {
	return views.Layout{
		Title:   title,
		Self:    v.self,
		Session: v.ctl.Session(),
		Active:  v.ctl.Page(),
	}
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, c templ.Component) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := c.Render(r.Context(), w); err != nil {
		slog.Error("render error", "error", err)
	}
}

// expired finishes the request with a login redirect when an API call
// rejected the session during it.
func (h *Handler) expired(w http.ResponseWriter, r *http.Request, v *visit) bool {
	if !v.ctl.Unauthorized() {
		return false
	}
	v.ws.Reset()
	h.redirectToLogin(w, r)
	return true
}

// finish ends a form action with a redirect to target, or to the login
// page when the session expired meanwhile.
func (h *Handler) finish(w http.ResponseWriter, r *http.Request, v *visit, target string) {
	if h.expired(w, r, v) {
		return
	}
	http.Redirect(w, r, h.path(target), http.StatusSeeOther)
}

func (h *Handler) markActive(token string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := h.api.WithToken(token).MarkActive(ctx); err != nil {
		slog.Warn("last-active update failed", "error", err)
	}
}

func parseID(s string) (int64, bool) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
