package handler

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/quizmasterpro/quizmaster/internal/apiclient"
	"github.com/quizmasterpro/quizmaster/internal/auth"
	appI18n "github.com/quizmasterpro/quizmaster/internal/i18n"
	"github.com/quizmasterpro/quizmaster/internal/model"
	"github.com/quizmasterpro/quizmaster/internal/store"
	"github.com/quizmasterpro/quizmaster/internal/workspace"
)

func TestMain(m *testing.M) {
	if err := appI18n.Init("en"); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

// fakeAPI is a minimal backend that records what the front end sends.
type fakeAPI struct {
	mu          sync.Mutex
	subjects    []model.Subject
	nextID      int64
	submissions []model.Submission
	staleToken  string
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		subjects: []model.Subject{{ID: 1, Name: "Mathematics", Description: "Numbers"}},
		nextID:   2,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (f *fakeAPI) handler() http.Handler {
	mux := http.NewServeMux()
	login := func(admin bool) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			var cred model.Credentials
			json.NewDecoder(r.Body).Decode(&cred)
			if cred.Password != "secret" {
				writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid credentials"})
				return
			}
			token := "user-token"
			if admin {
				token = "admin-token"
			}
			writeJSON(w, http.StatusOK, model.AuthResponse{AccessToken: token, UserID: 7, Username: cred.Username, IsAdmin: admin})
		}
	}
	mux.HandleFunc("POST /api/users/login", login(false))
	mux.HandleFunc("POST /api/admin/login", login(true))

	authed := func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			f.mu.Lock()
			stale := f.staleToken
			f.mu.Unlock()
			tok := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
			if tok == "" || tok == stale {
				writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "token expired"})
				return
			}
			next(w, r)
		}
	}

	mux.HandleFunc("GET /api/subjects", authed(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		writeJSON(w, http.StatusOK, f.subjects)
	}))
	mux.HandleFunc("POST /api/subjects", authed(func(w http.ResponseWriter, r *http.Request) {
		var s model.Subject
		json.NewDecoder(r.Body).Decode(&s)
		if s.Name == "Mathematics" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Subject already exists"})
			return
		}
		f.mu.Lock()
		s.ID = f.nextID
		f.nextID++
		f.subjects = append(f.subjects, s)
		f.mu.Unlock()
		writeJSON(w, http.StatusCreated, s)
	}))
	mux.HandleFunc("GET /api/users/scores", authed(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, []model.Score{})
	}))
	mux.HandleFunc("GET /api/admin/stats", authed(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, model.AdminStats{TotalUsers: 3})
	}))
	mux.HandleFunc("GET /api/quizzes/3/take", authed(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, model.TakeQuiz{
			Quiz: model.QuizInfo{ID: 3, Title: "Fractions", TimeDuration: 10},
			Questions: []model.QuizQuestion{
				{ID: 11, Statement: "What is half of ten?", Option1: "1/6", Option2: "3/4", Option3: "2/6", Option4: "1"},
			},
		})
	}))
	mux.HandleFunc("GET /api/quizzes/4/take", authed(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error": "You have already taken this quiz",
			"score": model.ScoreSummary{TotalQuestions: 5, TotalCorrect: 4, PercentageScore: 80, TimeTaken: 120},
		})
	}))
	mux.HandleFunc("POST /api/quizzes/3/submit", authed(func(w http.ResponseWriter, r *http.Request) {
		var sub model.Submission
		json.NewDecoder(r.Body).Decode(&sub)
		f.mu.Lock()
		f.submissions = append(f.submissions, sub)
		f.mu.Unlock()
		writeJSON(w, http.StatusOK, model.SubmitResult{
			Message: "Quiz submitted",
			Score:   model.ScoreSummary{TotalQuestions: 1, TotalCorrect: 1, PercentageScore: 100, TimeTaken: sub.TimeTaken},
		})
	}))
	return mux
}

type testEnv struct {
	api    *fakeAPI
	server *httptest.Server
	client *http.Client
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	fake := newFakeAPI()
	apiSrv := httptest.NewServer(fake.handler())
	t.Cleanup(apiSrv.Close)

	ls, err := store.New(":memory:", time.Hour)
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	t.Cleanup(func() { ls.Close() })

	reg := workspace.NewRegistry(time.Hour)
	t.Cleanup(reg.CloseAll)

	cfg := model.FrontendConfig{APIURL: apiSrv.URL, PageSize: 10}
	h, err := New(cfg, apiclient.New(apiSrv.URL), auth.New(ls), reg, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	r := chi.NewRouter()
	r.Use(appI18n.Middleware("en"))
	r.Use(BasePathMiddleware(""))
	h.Routes(r)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookiejar: %v", err)
	}
	client := &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	return &testEnv{api: fake, server: srv, client: client}
}

func (e *testEnv) get(t *testing.T, path string) (*http.Response, string) {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, e.server.URL+path, nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Accept", "text/html")
	return e.do(t, req)
}

// post submits a form carrying the CSRF token from the cookie jar.
func (e *testEnv) post(t *testing.T, path string, form url.Values) (*http.Response, string) {
	t.Helper()
	if form == nil {
		form = url.Values{}
	}
	if form.Get("csrf_token") == "" {
		form.Set("csrf_token", e.cookie(csrfCookieName))
	}
	req, err := http.NewRequest(http.MethodPost, e.server.URL+path, strings.NewReader(form.Encode()))
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return e.do(t, req)
}

func (e *testEnv) do(t *testing.T, req *http.Request) (*http.Response, string) {
	t.Helper()
	resp, err := e.client.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp, string(body)
}

func (e *testEnv) cookie(name string) string {
	u, _ := url.Parse(e.server.URL)
	for _, c := range e.client.Jar.Cookies(u) {
		if c.Name == name {
			return c.Value
		}
	}
	return ""
}

func (e *testEnv) login(t *testing.T, admin bool) {
	t.Helper()
	e.get(t, "/login")
	form := url.Values{"username": {"alice"}, "password": {"secret"}}
	want := "/dashboard"
	if admin {
		form.Set("admin", "1")
		want = "/admin/dashboard"
	}
	resp, _ := e.post(t, "/login", form)
	if resp.StatusCode != http.StatusSeeOther {
		t.Fatalf("login status = %d, want 303", resp.StatusCode)
	}
	if loc := resp.Header.Get("Location"); loc != want {
		t.Fatalf("login redirect = %q, want %q", loc, want)
	}
}

func assertRedirect(t *testing.T, resp *http.Response, want string) {
	t.Helper()
	if resp.StatusCode != http.StatusSeeOther {
		t.Fatalf("status = %d, want 303", resp.StatusCode)
	}
	if loc := resp.Header.Get("Location"); loc != want {
		t.Fatalf("Location = %q, want %q", loc, want)
	}
}

func TestAnonymousPagesRedirectToLogin(t *testing.T) {
	e := newTestEnv(t)
	tests := []string{"/dashboard", "/admin/subjects", "/quiz/start?quizId=3", "/subjects/1/chapters"}
	for _, path := range tests {
		t.Run(path, func(t *testing.T) {
			resp, _ := e.get(t, path)
			assertRedirect(t, resp, "/login")
		})
	}
}

func TestLoginPageSetsCookies(t *testing.T) {
	e := newTestEnv(t)
	resp, body := e.get(t, "/login")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if e.cookie(browserCookieName) == "" {
		t.Error("browser cookie not set")
	}
	token := e.cookie(csrfCookieName)
	if token == "" {
		t.Fatal("csrf cookie not set")
	}
	if !strings.Contains(body, token) {
		t.Error("login form does not carry the csrf token")
	}

	// A second GET keeps the same token.
	e.get(t, "/login")
	if got := e.cookie(csrfCookieName); got != token {
		t.Errorf("csrf token rotated on GET: %q -> %q", token, got)
	}
}

func TestPostWithoutCSRFTokenIsRejected(t *testing.T) {
	e := newTestEnv(t)
	e.get(t, "/login")

	tests := []struct {
		name  string
		token string
	}{
		{"wrong", "not-the-token"},
		{"missing", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			form := url.Values{"username": {"alice"}, "password": {"secret"}}
			req, _ := http.NewRequest(http.MethodPost, e.server.URL+"/login", strings.NewReader(form.Encode()+"&csrf_token="+tt.token))
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
			resp, _ := e.do(t, req)
			if resp.StatusCode != http.StatusForbidden {
				t.Errorf("status = %d, want 403", resp.StatusCode)
			}
		})
	}
}

func TestLoginFlow(t *testing.T) {
	e := newTestEnv(t)
	e.login(t, false)

	resp, body := e.get(t, "/dashboard")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("dashboard status = %d, want 200", resp.StatusCode)
	}
	if !strings.Contains(body, "Mathematics") {
		t.Error("dashboard does not list subjects")
	}

	// Logged-in users skip the login page.
	resp, _ = e.get(t, "/login")
	assertRedirect(t, resp, "/dashboard")

	// Admin pages bounce back to the user dashboard.
	resp, _ = e.get(t, "/admin/subjects")
	assertRedirect(t, resp, "/dashboard")

	resp, _ = e.post(t, "/logout", nil)
	assertRedirect(t, resp, "/login")

	resp, _ = e.get(t, "/dashboard")
	assertRedirect(t, resp, "/login")
}

func TestLoginFailure(t *testing.T) {
	e := newTestEnv(t)
	e.get(t, "/login")

	resp, body := e.post(t, "/login", url.Values{"username": {"alice"}, "password": {"wrong"}})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", resp.StatusCode)
	}
	if !strings.Contains(body, "alice") {
		t.Error("username not kept in the form")
	}

	resp, _ = e.post(t, "/login", url.Values{"username": {"alice"}})
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("missing password status = %d, want 422", resp.StatusCode)
	}
}

func TestAdminSavesSubject(t *testing.T) {
	e := newTestEnv(t)
	e.login(t, true)

	resp, body := e.get(t, "/admin/subjects?new=1")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if !strings.Contains(body, `name="name"`) {
		t.Fatal("add form not shown")
	}

	resp, _ = e.post(t, "/admin/subjects/save", url.Values{"name": {"Physics"}, "description": {"Forces"}})
	assertRedirect(t, resp, "/admin/subjects")

	_, body = e.get(t, "/admin/subjects")
	if !strings.Contains(body, "Physics") {
		t.Error("saved subject missing from list")
	}

	e.api.mu.Lock()
	n := len(e.api.subjects)
	e.api.mu.Unlock()
	if n != 2 {
		t.Errorf("api has %d subjects, want 2", n)
	}
}

func TestScopedChaptersKeepScopeInLinks(t *testing.T) {
	e := newTestEnv(t)
	e.login(t, true)

	for _, path := range []string{"/admin/chapters?subjectId=1", "/subjects/1/chapters"} {
		resp, body := e.get(t, path)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("GET %s status = %d, want 200", path, resp.StatusCode)
		}
		if !strings.Contains(body, `href="/subjects/1/chapters?new=1"`) {
			t.Errorf("GET %s: add link lost the subject scope", path)
		}
	}
}

func TestAdminSaveShowsServerError(t *testing.T) {
	e := newTestEnv(t)
	e.login(t, true)
	e.get(t, "/admin/subjects?new=1")

	resp, _ := e.post(t, "/admin/subjects/save", url.Values{"name": {"Mathematics"}})
	assertRedirect(t, resp, "/admin/subjects")

	_, body := e.get(t, "/admin/subjects")
	if !strings.Contains(body, "Subject already exists") {
		t.Error("server message not shown in the form")
	}
}

func TestNonAdminCannotPostAdminActions(t *testing.T) {
	e := newTestEnv(t)
	e.login(t, false)

	resp, _ := e.post(t, "/admin/subjects/save", url.Values{"name": {"Physics"}})
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("status = %d, want 403", resp.StatusCode)
	}
}

func TestQuizFlow(t *testing.T) {
	e := newTestEnv(t)
	e.login(t, false)

	resp, body := e.get(t, "/quiz/start?quizId=3")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("quiz status = %d, want 200", resp.StatusCode)
	}
	if !strings.Contains(body, "What is half of ten?") {
		t.Fatal("question not rendered")
	}

	resp, _ = e.post(t, "/quiz/answer", url.Values{"quiz_id": {"3"}, "question_id": {"11"}, "option": {"2"}})
	assertRedirect(t, resp, "/quiz/start?quizId=3")

	resp, _ = e.post(t, "/quiz/finish", url.Values{"quiz_id": {"3"}})
	assertRedirect(t, resp, "/quiz/start?quizId=3")

	e.api.mu.Lock()
	subs := append([]model.Submission(nil), e.api.submissions...)
	e.api.mu.Unlock()
	if len(subs) != 1 {
		t.Fatalf("got %d submissions, want 1", len(subs))
	}
	if subs[0].Answers["11"] != 2 {
		t.Errorf("answers = %v, want question 11 -> 2", subs[0].Answers)
	}

	_, body = e.get(t, "/quiz/start?quizId=3")
	if !strings.Contains(body, "100.0%") {
		t.Error("result not shown after submission")
	}
}

func TestQuizFinishRequiresAllAnswers(t *testing.T) {
	e := newTestEnv(t)
	e.login(t, false)
	e.get(t, "/quiz/start?quizId=3")

	resp, _ := e.post(t, "/quiz/finish", url.Values{"quiz_id": {"3"}})
	assertRedirect(t, resp, "/quiz/start?quizId=3")

	e.api.mu.Lock()
	n := len(e.api.submissions)
	e.api.mu.Unlock()
	if n != 0 {
		t.Errorf("incomplete quiz was submitted %d times", n)
	}
}

func TestQuizAlreadyTaken(t *testing.T) {
	e := newTestEnv(t)
	e.login(t, false)

	resp, body := e.get(t, "/quiz/start?quizId=4")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if !strings.Contains(body, "You have already taken this quiz") {
		t.Error("already-taken message not shown")
	}
}

func TestQuizActionWithoutAttempt(t *testing.T) {
	e := newTestEnv(t)
	e.login(t, false)

	resp, _ := e.post(t, "/quiz/next", url.Values{"quiz_id": {"3"}})
	assertRedirect(t, resp, "/quiz/start?quizId=3")

	resp, _ = e.post(t, "/quiz/next", url.Values{"quiz_id": {"abc"}})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestExpiredTokenLogsOut(t *testing.T) {
	e := newTestEnv(t)
	e.login(t, false)

	e.api.mu.Lock()
	e.api.staleToken = "user-token"
	e.api.mu.Unlock()

	resp, _ := e.get(t, "/dashboard")
	assertRedirect(t, resp, "/login")

	e.api.mu.Lock()
	e.api.staleToken = ""
	e.api.mu.Unlock()

	// The persisted session was cleared too.
	resp, _ = e.get(t, "/dashboard")
	assertRedirect(t, resp, "/login")
}

func TestUnknownPaths(t *testing.T) {
	e := newTestEnv(t)

	for _, path := range []string{"/nonsense", "/no/such/page"} {
		resp, body := e.get(t, path)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("GET %s status = %d, want 200", path, resp.StatusCode)
		}
		if !strings.Contains(body, `name="password"`) {
			t.Errorf("GET %s did not fall back to the login page", path)
		}
	}

	req, _ := http.NewRequest(http.MethodGet, e.server.URL+"/no/such/asset.png", nil)
	resp, _ := e.do(t, req)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("asset status = %d, want 404", resp.StatusCode)
	}

	// A signed-in browser resolves to login and is sent on to its dashboard.
	e.login(t, false)
	resp, _ = e.get(t, "/nonsense")
	assertRedirect(t, resp, "/dashboard")
}

func TestScopedPaths(t *testing.T) {
	tests := []struct {
		got, want string
	}{
		{chaptersPath(0), "/admin/chapters"},
		{chaptersPath(42), "/admin/chapters?subjectId=42"},
		{quizzesPath(7), "/admin/quizzes?chapterId=7"},
		{questionsPath(9), "/quizzes/9/questions"},
		{quizPath(3), "/quiz/start?quizId=3"},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("path = %q, want %q", tt.got, tt.want)
		}
	}
}

func TestBuildUpgraderOrigins(t *testing.T) {
	tests := []struct {
		name    string
		allowed []string
		origin  string
		want    bool
	}{
		{"empty list allows all", nil, "https://evil.example", true},
		{"listed origin", []string{"https://quiz.example"}, "https://quiz.example", true},
		{"case-insensitive", []string{"https://Quiz.Example"}, "https://quiz.example", true},
		{"unlisted origin", []string{"https://quiz.example"}, "https://evil.example", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u := buildUpgrader(tt.allowed)
			r := httptest.NewRequest(http.MethodGet, "/quiz/ws", nil)
			r.Header.Set("Origin", tt.origin)
			if got := u.CheckOrigin(r); got != tt.want {
				t.Errorf("CheckOrigin = %v, want %v", got, tt.want)
			}
		})
	}
}
