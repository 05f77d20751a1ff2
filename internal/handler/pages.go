package handler

import (
	"net/http"
	"net/url"
	"strconv"

	"github.com/quizmasterpro/quizmaster/internal/crud"
	"github.com/quizmasterpro/quizmaster/internal/handler/views"
	"github.com/quizmasterpro/quizmaster/internal/listview"
	"github.com/quizmasterpro/quizmaster/internal/model"
	"github.com/quizmasterpro/quizmaster/internal/workspace"
)

const recentScores = 5

var scoreKeys = map[string]listview.Key[model.Score]{
	"quiz":         listview.ByText(func(s model.Score) string { return s.QuizTitle }),
	"percentage":   listview.ByNumber(func(s model.Score) float64 { return s.PercentageScore }),
	"time_taken":   listview.ByNumber(func(s model.Score) float64 { return float64(s.TimeTaken) }),
	"attempt_date": listview.ByNumber(func(s model.Score) float64 { return float64(s.AttemptDate.Unix()) }),
}

var userKeys = map[string]listview.Key[model.User]{
	"username":    listview.ByText(func(u model.User) string { return u.Username }),
	"email":       listview.ByText(func(u model.User) string { return u.Email }),
	"created_at":  listview.ByNumber(func(u model.User) float64 { return float64(u.CreatedAt.Unix()) }),
	"last_active": listview.ByNumber(func(u model.User) float64 { return float64(u.LastActive.Unix()) }),
}

// listState merges the list query parameters over the state saved for
// name. A new search term starts again at page one.
func listState(q url.Values, ws *workspace.Workspace, name string, def listview.State) listview.State {
	s := ws.ListState(name, def)
	if q.Has("q") && q.Get("q") != s.Search {
		s.Search = q.Get("q")
		s.Page = 1
	}
	if q.Has("sort") {
		s.SortBy = q.Get("sort")
		s.Dir = listview.ParseDirection(q.Get("dir"))
	}
	if q.Has("page") {
		if n, err := strconv.Atoi(q.Get("page")); err == nil {
			s.Page = n
		}
	}
	return s
}

func (h *Handler) renderUserDashboard(w http.ResponseWriter, r *http.Request, v *visit) {
	ctx := r.Context()
	api := v.ctl.Client()
	params := v.ctl.Params()
	d := views.UserDashboardData{Layout: h.layout(r, v, "NavDashboard")}

	subjects := v.ws.Subjects()
	if err := subjects.Fetch(ctx, crud.Subjects{API: api}); err != nil {
		d.Alert = views.ErrorText(ctx, err)
	}
	d.Subjects = subjects.Items()

	if sid, ok := parseID(params["subject"]); ok {
		if s, found := subjects.Find(sid); found {
			d.Subject = &s
			chapters := v.ws.Chapters(sid)
			if err := chapters.Fetch(ctx, crud.Chapters{API: api, SubjectID: sid}); err != nil {
				d.Alert = views.ErrorText(ctx, err)
			}
			d.Chapters = chapters.Items()

			if cid, ok := parseID(params["chapter"]); ok {
				if c, found := chapters.Find(cid); found {
					d.Chapter = &c
					quizzes := v.ws.Quizzes(cid)
					if err := quizzes.Fetch(ctx, crud.Quizzes{API: api, ChapterID: cid}); err != nil {
						d.Alert = views.ErrorText(ctx, err)
					}
					d.Quizzes = quizzes.Items()
				}
			}
		}
	}

	scores, err := api.UserScores(ctx)
	if err != nil {
		d.Alert = views.ErrorText(ctx, err)
	}
	latest := listview.SortStable(scores, scoreKeys["attempt_date"], listview.Desc)
	if len(latest) > recentScores {
		latest = latest[:recentScores]
	}
	d.RecentScores = latest

	if h.expired(w, r, v) {
		return
	}
	h.render(w, r, views.UserDashboardPage(d))
}

func (h *Handler) renderAdminDashboard(w http.ResponseWriter, r *http.Request, v *visit) {
	ctx := r.Context()
	d := views.AdminDashboardData{Layout: h.layout(r, v, "AdminDashboard")}

	stats, err := v.ctl.Client().AdminStats(ctx)
	if err != nil {
		d.Alert = views.ErrorText(ctx, err)
	}
	d.Stats = stats

	job, err := v.ws.TakeExport()
	if err != nil {
		d.Alert = views.ErrorText(ctx, err)
	}
	d.Export = job

	if h.expired(w, r, v) {
		return
	}
	h.render(w, r, views.AdminDashboardPage(d))
}

func (h *Handler) renderScores(w http.ResponseWriter, r *http.Request, v *visit) {
	ctx := r.Context()
	api := v.ctl.Client()
	all := v.ctl.Session().IsAdmin()
	d := views.ScoresData{AllUsers: all}
	if all {
		d.Layout = h.layout(r, v, "AllScores")
	} else {
		d.Layout = h.layout(r, v, "MyScores")
	}

	var scores []model.Score
	var err error
	if all {
		scores, err = api.AllScores(ctx)
	} else {
		scores, err = api.UserScores(ctx)
	}
	if err != nil {
		d.Alert = views.ErrorText(ctx, err)
	}

	def := listview.State{SortBy: "attempt_date", Dir: listview.Desc, Page: 1}
	state := listState(v.query(), v.ws, "scores", def)
	d.Page = listview.Apply(scores, state, h.config.PageSize, crud.ScoreFields, scoreKeys)
	state.Page = d.Page.Current
	v.ws.SetListState("scores", state)
	d.State = state
	d.Summary = model.SummarizeScores(scores)

	if h.expired(w, r, v) {
		return
	}
	h.render(w, r, views.ScoresPage(d))
}

func (h *Handler) renderUsers(w http.ResponseWriter, r *http.Request, v *visit) {
	ctx := r.Context()
	d := views.UsersData{Layout: h.layout(r, v, "ManageUsers")}

	users := v.ws.Users()
	if err := users.Fetch(ctx, crud.Users{API: v.ctl.Client()}); err != nil {
		d.Alert = views.ErrorText(ctx, err)
	}

	def := listview.State{SortBy: "created_at", Dir: listview.Desc, Page: 1}
	state := listState(v.query(), v.ws, "users", def)
	d.Page = listview.Apply(users.Items(), state, h.config.PageSize, crud.UserFields, userKeys)
	state.Page = d.Page.Current
	v.ws.SetListState("users", state)
	d.State = state

	if h.expired(w, r, v) {
		return
	}
	h.render(w, r, views.UsersPage(d))
}
