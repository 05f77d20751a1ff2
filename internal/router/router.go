// Package router maps client-side URL paths to pages and back.
package router

import (
	"log/slog"
	"regexp"
)

// Page identifies a full-screen view independent of its URL.
type Page string

const (
	PageLogin           Page = "login-page"
	PageRegister        Page = "register-page"
	PageUserDashboard   Page = "user-dashboard-page"
	PageAdminDashboard  Page = "admin-dashboard-page"
	PageViewScores      Page = "view-scores-page"
	PageManageSubjects  Page = "manage-subjects-page"
	PageManageChapters  Page = "manage-chapters-page"
	PageManageQuizzes   Page = "manage-quizzes-page"
	PageManageUsers     Page = "manage-users-page"
	PageStartQuiz       Page = "start-quiz-page"
	PageManageQuestions Page = "manage-questions-page"
)

// Route parameter names.
const (
	ParamSubjectID = "subjectId"
	ParamChapterID = "chapterId"
	ParamQuizID    = "quizId"
)

// Params are the named values extracted from a path and its query string.
type Params map[string]string

// Match is the result of resolving a path.
type Match struct {
	Page   Page
	Params Params
}

// Order matters for BuildPath: the first path registered for a page wins.
var staticRoutes = []struct {
	path string
	page Page
}{
	{"/login", PageLogin},
	{"/register", PageRegister},
	{"/dashboard", PageUserDashboard},
	{"/admin/dashboard", PageAdminDashboard},
	{"/scores", PageViewScores},
	{"/admin/subjects", PageManageSubjects},
	{"/admin/chapters", PageManageChapters},
	{"/admin/quizzes", PageManageQuizzes},
	{"/admin/users", PageManageUsers},
	{"/quiz/start", PageStartQuiz},
}

var patternRoutes = []struct {
	re    *regexp.Regexp
	page  Page
	param string
}{
	{regexp.MustCompile(`^/subjects/(\d+)/chapters$`), PageManageChapters, ParamSubjectID},
	{regexp.MustCompile(`^/chapters/(\d+)/quizzes$`), PageManageQuizzes, ParamChapterID},
	{regexp.MustCompile(`^/quizzes/(\d+)/questions$`), PageManageQuestions, ParamQuizID},
	// Legacy alias kept for old bookmarks.
	{regexp.MustCompile(`^/admin/questions/(\d+)$`), PageManageQuestions, ParamQuizID},
}

// Resolve maps a URL path to a page. Unknown paths resolve to the login page
// with empty params; this never fails.
func Resolve(path string) Match {
	for _, r := range staticRoutes {
		if r.path == path {
			return Match{Page: r.page, Params: Params{}}
		}
	}
	for _, r := range patternRoutes {
		if m := r.re.FindStringSubmatch(path); m != nil {
			slog.Debug("matched parameterized route", "path", path, "page", r.page, r.param, m[1])
			return Match{Page: r.page, Params: Params{r.param: m[1]}}
		}
	}
	slog.Debug("no route match, defaulting to login", "path", path)
	return Match{Page: PageLogin, Params: Params{}}
}

// BuildPath is the inverse of Resolve. The static table wins; a page with
// no static path is synthesized from its parameter. Scope ids for pages
// that have a static path travel as query parameters instead.
func BuildPath(page Page, params Params) string {
	for _, r := range staticRoutes {
		if r.page == page {
			return r.path
		}
	}
	if p, ok := PatternPath(page, params); ok {
		return p
	}
	return "/login"
}

// PatternPath builds the parameterized path of page from the id in params.
func PatternPath(page Page, params Params) (string, bool) {
	switch page {
	case PageManageChapters:
		if id := params[ParamSubjectID]; id != "" {
			return "/subjects/" + id + "/chapters", true
		}
	case PageManageQuizzes:
		if id := params[ParamChapterID]; id != "" {
			return "/chapters/" + id + "/quizzes", true
		}
	case PageManageQuestions:
		if id := params[ParamQuizID]; id != "" {
			return "/quizzes/" + id + "/questions", true
		}
	}
	return "", false
}

// Public reports whether the page is reachable without a session.
func (p Page) Public() bool {
	return p == PageLogin || p == PageRegister
}

// AdminOnly reports whether the page is part of the admin area.
func (p Page) AdminOnly() bool {
	switch p {
	case PageAdminDashboard, PageManageSubjects, PageManageChapters,
		PageManageQuizzes, PageManageUsers, PageManageQuestions:
		return true
	}
	return false
}

// Known reports whether p is a registered page.
func Known(p Page) bool {
	for _, r := range staticRoutes {
		if r.page == p {
			return true
		}
	}
	return p == PageManageQuestions
}

// DashboardPath returns the role-appropriate landing path.
func DashboardPath(isAdmin bool) string {
	if isAdmin {
		return "/admin/dashboard"
	}
	return "/dashboard"
}

// StaticPaths lists every exact-match path, in table order.
func StaticPaths() []string {
	paths := make([]string, 0, len(staticRoutes))
	for _, r := range staticRoutes {
		paths = append(paths, r.path)
	}
	return paths
}
