package shell

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/quizmasterpro/quizmaster/internal/apiclient"
	"github.com/quizmasterpro/quizmaster/internal/model"
	"github.com/quizmasterpro/quizmaster/internal/router"
)

type fakeSessions struct {
	saved   map[string]model.Session
	cleared []string
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{saved: map[string]model.Session{}}
}

func (f *fakeSessions) SaveUserData(_ context.Context, id string, s model.Session) error {
	f.saved[id] = s
	return nil
}

func (f *fakeSessions) Logout(_ context.Context, id string) error {
	delete(f.saved, id)
	f.cleared = append(f.cleared, id)
	return nil
}

func newTestController(t *testing.T, start string, sess *model.Session) (*Controller, *MemoryHistory, *fakeSessions) {
	t.Helper()
	h := NewMemoryHistory(start)
	fs := newFakeSessions()
	c := New(Config{
		BrowserID: "b1",
		Sessions:  fs,
		API:       apiclient.New("http://api.invalid"),
		History:   h,
		Session:   sess,
	})
	c.HandleURLChange()
	return c, h, fs
}

var (
	userSession  = &model.Session{Token: "t", User: model.UserInfo{ID: 2, Username: "u"}}
	adminSession = &model.Session{Token: "t", User: model.UserInfo{ID: 1, Username: "admin", IsAdmin: true}}
)

func TestAnonymousRedirectsToLogin(t *testing.T) {
	for _, path := range router.StaticPaths() {
		if router.Resolve(path).Page.Public() {
			continue
		}
		t.Run(path, func(t *testing.T) {
			c, h, _ := newTestController(t, path, nil)
			if c.Page() != router.PageLogin {
				t.Errorf("expected login page, got %s", c.Page())
			}
			if h.Location() != "/login" {
				t.Errorf("expected location /login, got %s", h.Location())
			}
			if h.Len() != 1 {
				t.Errorf("redirect must not add a history entry, got %d entries", h.Len())
			}
		})
	}
}

func TestAuthenticatedLeavesLogin(t *testing.T) {
	tests := []struct {
		name string
		sess *model.Session
		want router.Page
	}{
		{"user", userSession, router.PageUserDashboard},
		{"admin", adminSession, router.PageAdminDashboard},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, h, _ := newTestController(t, "/login", tt.sess)
			if c.Page() != tt.want {
				t.Errorf("expected %s, got %s", tt.want, c.Page())
			}
			if h.Len() != 1 {
				t.Errorf("redirect must not add a history entry, got %d entries", h.Len())
			}
		})
	}
}

func TestNonAdminKeptOutOfAdminPages(t *testing.T) {
	c, _, _ := newTestController(t, "/admin/subjects", userSession)
	if c.Page() != router.PageUserDashboard {
		t.Errorf("expected user dashboard, got %s", c.Page())
	}
}

func TestQueryParamsTakePrecedence(t *testing.T) {
	c, _, _ := newTestController(t, "/quizzes/9/questions?quizId=11&tab=x", adminSession)
	p := c.Params()
	if p[router.ParamQuizID] != "11" {
		t.Errorf("expected query quizId to win, got %q", p[router.ParamQuizID])
	}
	if p["tab"] != "x" {
		t.Errorf("expected tab=x, got %q", p["tab"])
	}
}

func TestParamsCommittedBeforePage(t *testing.T) {
	c, _, _ := newTestController(t, "/dashboard", userSession)

	var order []string
	var seenParams router.Params
	c.OnParamsCommitted(func(p router.Params) {
		order = append(order, "params")
		seenParams = p
	})
	c.OnPageCommitted(func(page router.Page, p router.Params) {
		order = append(order, "page")
		if seenParams[router.ParamQuizID] != "5" {
			t.Errorf("page committed before its params: %v", seenParams)
		}
	})

	c.Navigate("/quiz/start", url.Values{router.ParamQuizID: {"5"}}, true)
	if len(order) != 2 || order[0] != "params" || order[1] != "page" {
		t.Errorf("unexpected commit order %v", order)
	}
	if c.Page() != router.PageStartQuiz {
		t.Errorf("expected start quiz page, got %s", c.Page())
	}
}

func TestChangePageBuildsPathAndQuery(t *testing.T) {
	c, h, _ := newTestController(t, "/admin/dashboard", adminSession)

	c.ChangePage(router.PageManageChapters, router.Params{router.ParamSubjectID: "42", "q": "alg"})
	if h.Location() != "/admin/chapters?q=alg&subjectId=42" {
		t.Errorf("unexpected location %s", h.Location())
	}
	if c.Params()[router.ParamSubjectID] != "42" {
		t.Errorf("expected subjectId 42, got %v", c.Params())
	}
	if h.Len() != 2 {
		t.Errorf("expected a pushed entry, got %d entries", h.Len())
	}

	c.ChangePage(router.PageManageQuestions, router.Params{router.ParamQuizID: "9"})
	if h.Location() != "/quizzes/9/questions" {
		t.Errorf("unexpected location %s", h.Location())
	}
	if c.Page() != router.PageManageQuestions || c.Params()[router.ParamQuizID] != "9" {
		t.Errorf("expected questions page for quiz 9, got %s %v", c.Page(), c.Params())
	}
}

func TestBackReplaysHistory(t *testing.T) {
	c, h, _ := newTestController(t, "/admin/dashboard", adminSession)
	c.Navigate("/admin/users", nil, true)
	if c.Page() != router.PageManageUsers {
		t.Fatalf("expected users page, got %s", c.Page())
	}
	if !h.Back() {
		t.Fatal("expected to move back")
	}
	c.Back()
	if c.Page() != router.PageAdminDashboard {
		t.Errorf("expected admin dashboard after back, got %s", c.Page())
	}
	if h.Len() != 2 {
		t.Errorf("back must not push, got %d entries", h.Len())
	}
}

func TestLoginAndLogout(t *testing.T) {
	c, h, fs := newTestController(t, "/login", nil)
	ctx := context.Background()

	err := c.Login(ctx, model.AuthResponse{AccessToken: "tok", UserID: 3, Username: "carol", IsAdmin: true})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if c.Page() != router.PageAdminDashboard {
		t.Errorf("expected admin dashboard, got %s", c.Page())
	}
	if fs.saved["b1"].Token != "tok" {
		t.Errorf("session not persisted: %+v", fs.saved)
	}
	if c.Client().Token() != "tok" {
		t.Error("client does not carry the token")
	}

	if err := c.Logout(ctx); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if c.Page() != router.PageLogin || h.Location() != "/login" {
		t.Errorf("expected login after logout, got %s at %s", c.Page(), h.Location())
	}
	if c.Client().Token() != "" {
		t.Error("client still carries a token after logout")
	}
	if _, ok := fs.saved["b1"]; ok {
		t.Error("session still persisted after logout")
	}
}

func TestLoginWithoutToken(t *testing.T) {
	c, _, _ := newTestController(t, "/login", nil)
	if err := c.Login(context.Background(), model.AuthResponse{Username: "x"}); err != ErrNoToken {
		t.Errorf("expected ErrNoToken, got %v", err)
	}
}

func TestUnauthorizedClearsSession(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	h := NewMemoryHistory("/dashboard")
	fs := newFakeSessions()
	fs.saved["b1"] = *userSession
	c := New(Config{BrowserID: "b1", Sessions: fs, API: apiclient.New(srv.URL), History: h, Session: userSession})
	c.HandleURLChange()

	if _, err := c.Client().ListSubjects(context.Background()); err != apiclient.ErrUnauthorized {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if !c.Unauthorized() || c.Session() != nil {
		t.Error("expected session cleared after 401")
	}
	if len(fs.cleared) != 1 {
		t.Errorf("expected persisted session cleared once, got %v", fs.cleared)
	}
}

func TestRequestHistoryRedirect(t *testing.T) {
	h := NewRequestHistory("/admin/users")
	c := New(Config{BrowserID: "b1", Sessions: newFakeSessions(), API: apiclient.New("http://api.invalid"), History: h})
	c.HandleURLChange()
	target, ok := h.Redirect()
	if !ok || target != "/login" {
		t.Errorf("expected redirect to /login, got %q, %v", target, ok)
	}

	h = NewRequestHistory("/register")
	c = New(Config{BrowserID: "b1", Sessions: newFakeSessions(), API: apiclient.New("http://api.invalid"), History: h})
	c.HandleURLChange()
	if _, ok := h.Redirect(); ok {
		t.Error("public page must not redirect")
	}
}
