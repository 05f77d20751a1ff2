// Package shell is the root controller: it owns the session and the
// current page and mediates every navigation.
package shell

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"sort"

	"github.com/quizmasterpro/quizmaster/internal/apiclient"
	"github.com/quizmasterpro/quizmaster/internal/model"
	"github.com/quizmasterpro/quizmaster/internal/router"
)

// Sessions persists the browser's session. auth.Store implements it.
type Sessions interface {
	SaveUserData(ctx context.Context, browserID string, sess model.Session) error
	Logout(ctx context.Context, browserID string) error
}

// ErrNoToken is returned by Login and Register when the reply carries no token.
var ErrNoToken = errors.New("login response carries no access token")

// Config wires a Controller.
type Config struct {
	BrowserID string
	Sessions  Sessions
	API       *apiclient.Client
	History   History
	Session   *model.Session // restored session; nil when anonymous
}

// Controller is the single source of truth for session, page and params.
type Controller struct {
	browserID string
	sessions  Sessions
	api       *apiclient.Client
	history   History

	session *model.Session
	page    router.Page
	params  router.Params

	onParams []func(router.Params)
	onPage   []func(router.Page, router.Params)

	unauthorized bool
}

// New creates a controller. Call HandleURLChange to derive the first page.
func New(cfg Config) *Controller {
	return &Controller{
		browserID: cfg.BrowserID,
		sessions:  cfg.Sessions,
		api:       cfg.API,
		history:   cfg.History,
		session:   cfg.Session,
		page:      router.PageLogin,
		params:    router.Params{},
	}
}

// OnParamsCommitted registers fn to run whenever params are committed.
// Params are always committed before the page that reads them.
func (c *Controller) OnParamsCommitted(fn func(router.Params)) {
	c.onParams = append(c.onParams, fn)
}

// OnPageCommitted registers fn to run whenever the page is committed.
func (c *Controller) OnPageCommitted(fn func(router.Page, router.Params)) {
	c.onPage = append(c.onPage, fn)
}

// Page returns the committed page.
func (c *Controller) Page() router.Page { return c.page }

// Params returns a copy of the committed params.
func (c *Controller) Params() router.Params {
	cp := make(router.Params, len(c.params))
	for k, v := range c.params {
		cp[k] = v
	}
	return cp
}

// Session returns the current session, or nil when anonymous.
func (c *Controller) Session() *model.Session { return c.session }

// Unauthorized reports whether an API call answered 401 during this controller's life.
func (c *Controller) Unauthorized() bool { return c.unauthorized }

// Client returns an API client carrying the session token. A 401 on any
// call clears the session.
func (c *Controller) Client() *apiclient.Client {
	token := ""
	if c.session.Authenticated() {
		token = c.session.Token
	}
	return c.api.WithToken(token).OnUnauthorized(c.expire)
}

func (c *Controller) expire() {
	slog.Warn("api rejected session token, logging out")
	c.unauthorized = true
	c.session = nil
	if err := c.sessions.Logout(context.Background(), c.browserID); err != nil {
		slog.Error("failed to clear session", "error", err)
	}
}

// Navigate serializes query onto path, records it in the history and
// re-derives page state.
func (c *Controller) Navigate(path string, query url.Values, addToHistory bool) {
	target := path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	if addToHistory {
		c.history.Push(target)
	} else {
		c.history.Replace(target)
	}
	c.HandleURLChange()
}

// ChangePage navigates to page. Params not carried by the page's path are
// sent as query parameters.
func (c *Controller) ChangePage(page router.Page, params router.Params) {
	path := router.BuildPath(page, params)
	inPath := router.Resolve(path).Params
	query := url.Values{}
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if _, ok := inPath[k]; ok || params[k] == "" {
			continue
		}
		query.Set(k, params[k])
	}
	c.Navigate(path, query, true)
}

// Back re-derives page state after the browser moved through its history.
func (c *Controller) Back() {
	c.HandleURLChange()
}

// HandleURLChange resolves the current location, enforces auth gating and
// commits params then page.
func (c *Controller) HandleURLChange() {
	u, err := url.Parse(c.history.Location())
	if err != nil {
		slog.Warn("unparseable location, using login", "location", c.history.Location(), "error", err)
		u = &url.URL{Path: "/login"}
	}
	m := router.Resolve(u.Path)

	params := router.Params{}
	for k, v := range m.Params {
		params[k] = v
	}
	for k, vs := range u.Query() {
		if len(vs) > 0 {
			params[k] = vs[0]
		}
	}

	authed := c.session.Authenticated()
	switch {
	case !m.Page.Public() && !authed:
		slog.Debug("anonymous access, redirecting to login", "page", m.Page)
		c.history.Replace("/login")
		c.HandleURLChange()
		return
	case m.Page == router.PageLogin && authed:
		c.history.Replace(router.DashboardPath(c.session.IsAdmin()))
		c.HandleURLChange()
		return
	case m.Page.AdminOnly() && !c.session.IsAdmin():
		slog.Debug("non-admin access to admin page", "page", m.Page)
		c.history.Replace(router.DashboardPath(false))
		c.HandleURLChange()
		return
	}

	c.params = params
	for _, fn := range c.onParams {
		fn(c.Params())
	}
	c.page = m.Page
	for _, fn := range c.onPage {
		fn(c.page, c.Params())
	}
}

// Login establishes the session from an auth response, persists it and
// goes to the role's dashboard.
func (c *Controller) Login(ctx context.Context, data model.AuthResponse) error {
	sess := data.Session()
	if sess.Token == "" {
		return ErrNoToken
	}
	if err := c.sessions.SaveUserData(ctx, c.browserID, sess); err != nil {
		return err
	}
	c.session = &sess
	c.unauthorized = false
	slog.Info("user logged in", "user_id", sess.User.ID, "admin", sess.User.IsAdmin)
	c.Navigate(router.DashboardPath(sess.User.IsAdmin), nil, true)
	return nil
}

// Register behaves like Login.
func (c *Controller) Register(ctx context.Context, data model.AuthResponse) error {
	return c.Login(ctx, data)
}

// Logout clears the session and returns to the login page.
func (c *Controller) Logout(ctx context.Context) error {
	c.session = nil
	err := c.sessions.Logout(ctx, c.browserID)
	c.Navigate("/login", nil, true)
	return err
}
