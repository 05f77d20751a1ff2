// Package views renders the pages. Each page is a templ component backed by
// an embedded html/template.
package views

import (
	"context"
	"embed"
	"errors"
	"html/template"
	"io"
	"io/fs"
	"net"
	"sync"

	"github.com/a-h/templ"

	"github.com/quizmasterpro/quizmaster/internal/apiclient"
	appI18n "github.com/quizmasterpro/quizmaster/internal/i18n"
	"github.com/quizmasterpro/quizmaster/internal/model"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

// Static returns the embedded static assets.
func Static() fs.FS {
	sub, _ := fs.Sub(staticFS, "static")
	return sub
}

var baseFuncs = template.FuncMap{
	"countdown": Countdown,
	"duration":  Duration,
	"badge":     BadgeClass,
	"truncate":  Truncate,
	"date":      Date,
	"datetime":  DateTime,
	"percent":   Percent,
	"listURL":   ListURL,
	"sortURL":   SortURL,
	"sortMark":  SortIndicator,
	"id":        model.FormatID,
	"inc":       func(i int) int { return i + 1 },
	"dec":       func(i int) int { return i - 1 },
	"dict":      dict,
	"list":      func(n ...int) []int { return n },
	"optionText": func(q model.Question, n int) string {
		return questionOption(q, n).Text
	},
	"optionImage": func(q model.Question, n int) string {
		return questionOption(q, n).Image
	},
	// Replaced per render.
	"t":       func(string) string { return "" },
	"td":      func(string, ...any) string { return "" },
	"tp":      func(string, int) string { return "" },
	"path":    func(string) string { return "" },
	"csrf":    func() string { return "" },
	"lang":    func() string { return "en" },
	"errText": func(error) string { return "" },
}

var pages = template.Must(template.New("").Funcs(baseFuncs).ParseFS(templateFS, "templates/*.html"))

// renderSets holds clones of pages. A set serves one render at a time, so
// its context funcs are rebound without racing another request.
var renderSets = sync.Pool{
	New: func() any { return template.Must(pages.Clone()) },
}

func questionOption(q model.Question, n int) model.Option {
	opts := []model.Option{
		{Number: 1, Text: q.Option1, Image: q.Option1Image},
		{Number: 2, Text: q.Option2, Image: q.Option2Image},
		{Number: 3, Text: q.Option3, Image: q.Option3Image},
		{Number: 4, Text: q.Option4, Image: q.Option4Image},
	}
	if n < 1 || n > 4 {
		return model.Option{}
	}
	return opts[n-1]
}

func dict(kv ...any) map[string]any {
	m := make(map[string]any, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		if k, ok := kv[i].(string); ok {
			m[k] = kv[i+1]
		}
	}
	return m
}

// contextFuncs binds translation, base path and CSRF helpers to ctx.
func contextFuncs(ctx context.Context) template.FuncMap {
	bp := model.BasePathFromContext(ctx)
	return template.FuncMap{
		"t":       func(id string) string { return appI18n.T(ctx, id) },
		"td":      func(id string, kv ...any) string { return appI18n.Td(ctx, id, dict(kv...)) },
		"tp":      func(id string, n int) string { return appI18n.Tp(ctx, id, n) },
		"path":    func(p string) string { return bp + p },
		"csrf":    func() string { return model.CSRFTokenFromContext(ctx) },
		"lang":    func() string { return appI18n.Lang(ctx) },
		"errText": func(err error) string { return ErrorText(ctx, err) },
	}
}

// ErrorText turns an API or transport error into the alert shown to the
// user. Server-supplied messages are shown verbatim.
func ErrorText(ctx context.Context, err error) string {
	if err == nil {
		return ""
	}
	if msg, ok := apiclient.ServerMessage(err); ok {
		return msg
	}
	var netErr net.Error
	switch {
	case errors.Is(err, apiclient.ErrUnauthorized):
		return appI18n.T(ctx, "SessionExpired")
	case apiclient.IsNotFound(err):
		return appI18n.T(ctx, "ErrNotFound")
	case errors.As(err, &netErr):
		return appI18n.T(ctx, "ErrNetwork")
	}
	return appI18n.T(ctx, "ErrGeneric")
}

func page(name string, data any) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		t := renderSets.Get().(*template.Template)
		defer renderSets.Put(t)
		return t.Funcs(contextFuncs(ctx)).ExecuteTemplate(w, name, data)
	})
}

func LoginPage(d LoginData) templ.Component                   { return page("login", d) }
func RegisterPage(d RegisterData) templ.Component             { return page("register", d) }
func UserDashboardPage(d UserDashboardData) templ.Component   { return page("user_dashboard", d) }
func AdminDashboardPage(d AdminDashboardData) templ.Component { return page("admin_dashboard", d) }
func ScoresPage(d ScoresData) templ.Component                 { return page("scores", d) }
func UsersPage(d UsersData) templ.Component                   { return page("users", d) }
func SubjectsPage(d SubjectsData) templ.Component             { return page("subjects", d) }
func ChaptersPage(d ChaptersData) templ.Component             { return page("chapters", d) }
func QuizzesPage(d QuizzesData) templ.Component               { return page("quizzes", d) }
func QuestionsPage(d QuestionsData) templ.Component           { return page("questions", d) }
func QuizPage(d QuizData) templ.Component                     { return page("quiz", d) }
