package handler

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/quizmasterpro/quizmaster/internal/crud"
	"github.com/quizmasterpro/quizmaster/internal/handler/views"
	"github.com/quizmasterpro/quizmaster/internal/model"
	"github.com/quizmasterpro/quizmaster/internal/router"
)

// applyFormQuery opens or closes the add/edit dialog from the ?new, ?edit
// and ?cancel links.
func applyFormQuery[T crud.Entity](q url.Values, col *crud.Collection[T], draft T) {
	switch {
	case q.Has("cancel"):
		col.Cancel()
	case q.Has("new"):
		col.BeginCreate(draft)
	case q.Get("edit") != "":
		id, ok := parseID(q.Get("edit"))
		if !ok || !col.BeginEdit(id) {
			slog.Debug("edit target not in list", "id", q.Get("edit"))
		}
	}
}

// saveForm submits draft through the open dialog. A POST that arrives with
// no dialog open (the workspace was evicted meanwhile) reopens it from the
// posted id first. Failures stay in the dialog for the next render.
func saveForm[T crud.Entity](ctx context.Context, col *crud.Collection[T], res crud.Resource[T], draft T, id int64, withID func(T, int64) T) {
	if !col.Form().Open() {
		if id > 0 {
			if err := col.Fetch(ctx, res); err != nil || !col.BeginEdit(id) {
				slog.Warn("cannot reopen edit form", "id", id, "error", err)
				return
			}
		} else {
			col.BeginCreate(draft)
		}
	}
	if err := col.SubmitForm(ctx, res, draft, withID); err != nil {
		slog.Debug("form submission rejected", "error", err)
	}
}

func formID(r *http.Request, key string) int64 {
	id, _ := parseID(r.FormValue(key))
	return id
}

func formInt(r *http.Request, key string) int {
	n, _ := strconv.Atoi(strings.TrimSpace(r.FormValue(key)))
	return n
}

// scopedPath builds the path of page and carries the scope id as a query
// parameter when the path does not hold it.
func scopedPath(page router.Page, param string, id int64) string {
	params := router.Params{param: model.FormatID(id)}
	p := router.BuildPath(page, params)
	if _, ok := router.Resolve(p).Params[param]; ok {
		return p
	}
	return p + "?" + url.Values{param: {params[param]}}.Encode()
}

func chaptersPath(subjectID int64) string {
	if subjectID == 0 {
		return router.BuildPath(router.PageManageChapters, nil)
	}
	return scopedPath(router.PageManageChapters, router.ParamSubjectID, subjectID)
}

func quizzesPath(chapterID int64) string {
	if chapterID == 0 {
		return router.BuildPath(router.PageManageQuizzes, nil)
	}
	return scopedPath(router.PageManageQuizzes, router.ParamChapterID, chapterID)
}

func questionsPath(quizID int64) string {
	return scopedPath(router.PageManageQuestions, router.ParamQuizID, quizID)
}

// Subjects

func (h *Handler) renderSubjects(w http.ResponseWriter, r *http.Request, v *visit) {
	ctx := r.Context()
	q := v.query()
	d := views.SubjectsData{Layout: h.layout(r, v, "ManageSubjects"), Search: q.Get("q")}

	col := v.ws.Subjects()
	if err := col.Fetch(ctx, crud.Subjects{API: v.ctl.Client()}); err != nil {
		d.Alert = views.ErrorText(ctx, err)
	}
	applyFormQuery(q, col, model.Subject{})
	d.Items = col.Search(d.Search, crud.SubjectFields)
	d.Form = col.Form()
	d.Flash = col.TakeFlash()

	if h.expired(w, r, v) {
		return
	}
	h.render(w, r, views.SubjectsPage(d))
}

func (h *Handler) handleSaveSubject(w http.ResponseWriter, r *http.Request) {
	v := h.begin(r)
	draft := model.Subject{
		Name:        strings.TrimSpace(r.FormValue("name")),
		Description: strings.TrimSpace(r.FormValue("description")),
	}
	saveForm(r.Context(), v.ws.Subjects(), crud.Subjects{API: v.ctl.Client()}, draft, formID(r, "id"),
		func(s model.Subject, id int64) model.Subject { s.ID = id; return s })
	h.finish(w, r, v, "/admin/subjects")
}

func (h *Handler) handleDeleteSubject(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(chi.URLParam(r, "id"))
	if !ok {
		http.Error(w, "invalid subject ID", http.StatusBadRequest)
		return
	}
	v := h.begin(r)
	if err := v.ws.Subjects().Delete(r.Context(), crud.Subjects{API: v.ctl.Client()}, id); err != nil {
		slog.Warn("failed to delete subject", "id", id, "error", err)
	}
	h.finish(w, r, v, "/admin/subjects")
}

// Chapters

func (h *Handler) renderChapters(w http.ResponseWriter, r *http.Request, v *visit) {
	ctx := r.Context()
	api := v.ctl.Client()
	q := v.query()
	scope, _ := parseID(v.ctl.Params()[router.ParamSubjectID])
	d := views.ChaptersData{Layout: h.layout(r, v, "ManageChapters"), SubjectID: scope, Search: q.Get("q")}
	if p, ok := router.PatternPath(router.PageManageChapters, v.ctl.Params()); ok && scope > 0 {
		d.Self = p
	}

	subjects := v.ws.Subjects()
	if err := subjects.Fetch(ctx, crud.Subjects{API: api}); err != nil {
		d.Alert = views.ErrorText(ctx, err)
	}
	d.Subjects = subjects.Items()
	if s, ok := subjects.Find(scope); ok {
		d.Subject = &s
	}

	col := v.ws.Chapters(scope)
	if err := col.Fetch(ctx, crud.Chapters{API: api, SubjectID: scope}); err != nil {
		d.Alert = views.ErrorText(ctx, err)
	}
	applyFormQuery(q, col, model.Chapter{SubjectID: scope})
	d.Items = col.Search(d.Search, crud.ChapterFields)
	d.Form = col.Form()
	d.Flash = col.TakeFlash()

	if h.expired(w, r, v) {
		return
	}
	h.render(w, r, views.ChaptersPage(d))
}

func (h *Handler) handleSaveChapter(w http.ResponseWriter, r *http.Request) {
	v := h.begin(r)
	scope := formID(r, "scope")
	draft := model.Chapter{
		Name:        strings.TrimSpace(r.FormValue("name")),
		Description: strings.TrimSpace(r.FormValue("description")),
		SubjectID:   formID(r, "subject_id"),
	}
	saveForm(r.Context(), v.ws.Chapters(scope), crud.Chapters{API: v.ctl.Client(), SubjectID: scope}, draft, formID(r, "id"),
		func(c model.Chapter, id int64) model.Chapter { c.ID = id; return c })
	h.finish(w, r, v, chaptersPath(scope))
}

func (h *Handler) handleDeleteChapter(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(chi.URLParam(r, "id"))
	if !ok {
		http.Error(w, "invalid chapter ID", http.StatusBadRequest)
		return
	}
	v := h.begin(r)
	scope := formID(r, "scope")
	if err := v.ws.Chapters(scope).Delete(r.Context(), crud.Chapters{API: v.ctl.Client(), SubjectID: scope}, id); err != nil {
		slog.Warn("failed to delete chapter", "id", id, "error", err)
	}
	h.finish(w, r, v, chaptersPath(scope))
}

// Quizzes

func (h *Handler) renderQuizzes(w http.ResponseWriter, r *http.Request, v *visit) {
	ctx := r.Context()
	api := v.ctl.Client()
	q := v.query()
	scope, _ := parseID(v.ctl.Params()[router.ParamChapterID])
	d := views.QuizzesData{Layout: h.layout(r, v, "ManageQuizzes"), ChapterID: scope, Search: q.Get("q")}
	if p, ok := router.PatternPath(router.PageManageQuizzes, v.ctl.Params()); ok && scope > 0 {
		d.Self = p
	}

	chapters := v.ws.Chapters(0)
	if err := chapters.Fetch(ctx, crud.Chapters{API: api}); err != nil {
		d.Alert = views.ErrorText(ctx, err)
	}
	d.Chapters = chapters.Items()
	if c, ok := chapters.Find(scope); ok {
		d.Chapter = &c
	}

	col := v.ws.Quizzes(scope)
	if err := col.Fetch(ctx, crud.Quizzes{API: api, ChapterID: scope}); err != nil {
		d.Alert = views.ErrorText(ctx, err)
	}
	applyFormQuery(q, col, model.Quiz{ChapterID: scope, TimeDuration: 10})
	d.Items = col.Search(d.Search, crud.QuizFields)
	d.Form = col.Form()
	d.Flash = col.TakeFlash()

	if h.expired(w, r, v) {
		return
	}
	h.render(w, r, views.QuizzesPage(d))
}

func (h *Handler) handleSaveQuiz(w http.ResponseWriter, r *http.Request) {
	v := h.begin(r)
	scope := formID(r, "scope")
	draft := model.Quiz{
		Title:        strings.TrimSpace(r.FormValue("title")),
		Description:  strings.TrimSpace(r.FormValue("description")),
		ChapterID:    formID(r, "chapter_id"),
		DateOfQuiz:   strings.TrimSpace(r.FormValue("date_of_quiz")),
		TimeDuration: formInt(r, "time_duration"),
	}
	saveForm(r.Context(), v.ws.Quizzes(scope), crud.Quizzes{API: v.ctl.Client(), ChapterID: scope}, draft, formID(r, "id"),
		func(q model.Quiz, id int64) model.Quiz { q.ID = id; return q })
	h.finish(w, r, v, quizzesPath(scope))
}

func (h *Handler) handleDeleteQuiz(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(chi.URLParam(r, "id"))
	if !ok {
		http.Error(w, "invalid quiz ID", http.StatusBadRequest)
		return
	}
	v := h.begin(r)
	scope := formID(r, "scope")
	if err := v.ws.Quizzes(scope).Delete(r.Context(), crud.Quizzes{API: v.ctl.Client(), ChapterID: scope}, id); err != nil {
		slog.Warn("failed to delete quiz", "id", id, "error", err)
	}
	h.finish(w, r, v, quizzesPath(scope))
}

// Questions

func (h *Handler) renderQuestions(w http.ResponseWriter, r *http.Request, v *visit) {
	ctx := r.Context()
	q := v.query()
	d := views.QuestionsData{Layout: h.layout(r, v, "ManageQuestions"), Search: q.Get("q")}

	quizID, ok := parseID(v.ctl.Params()[router.ParamQuizID])
	if !ok {
		d.InvalidID = true
		h.render(w, r, views.QuestionsPage(d))
		return
	}
	d.QuizID = quizID

	col := v.ws.Questions(quizID)
	if err := col.Fetch(ctx, crud.Questions{API: v.ctl.Client(), QuizID: quizID}); err != nil {
		d.Alert = views.ErrorText(ctx, err)
	}
	applyFormQuery(q, col, model.Question{QuizID: quizID})
	d.Items = col.Search(d.Search, crud.QuestionFields)
	d.Form = col.Form()
	d.Flash = col.TakeFlash()

	if h.expired(w, r, v) {
		return
	}
	h.render(w, r, views.QuestionsPage(d))
}

func questionFromForm(r *http.Request, quizID int64) model.Question {
	field := func(k string) string { return strings.TrimSpace(r.FormValue(k)) }
	return model.Question{
		QuizID:        quizID,
		Statement:     field("question_statement"),
		StatementImg:  field("question_image"),
		Option1:       field("option1"),
		Option1Image:  field("option1_image"),
		Option2:       field("option2"),
		Option2Image:  field("option2_image"),
		Option3:       field("option3"),
		Option3Image:  field("option3_image"),
		Option4:       field("option4"),
		Option4Image:  field("option4_image"),
		CorrectOption: formInt(r, "correct_option"),
	}
}

func (h *Handler) handleSaveQuestion(w http.ResponseWriter, r *http.Request) {
	quizID, ok := parseID(r.FormValue("quiz_id"))
	if !ok {
		http.Error(w, "invalid quiz ID", http.StatusBadRequest)
		return
	}
	v := h.begin(r)
	saveForm(r.Context(), v.ws.Questions(quizID), crud.Questions{API: v.ctl.Client(), QuizID: quizID},
		questionFromForm(r, quizID), formID(r, "id"),
		func(q model.Question, id int64) model.Question { q.ID = id; return q })
	h.finish(w, r, v, questionsPath(quizID))
}

func (h *Handler) handleDeleteQuestion(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(chi.URLParam(r, "id"))
	if !ok {
		http.Error(w, "invalid question ID", http.StatusBadRequest)
		return
	}
	quizID, ok := parseID(r.FormValue("quiz_id"))
	if !ok {
		http.Error(w, "invalid quiz ID", http.StatusBadRequest)
		return
	}
	v := h.begin(r)
	if err := v.ws.Questions(quizID).Delete(r.Context(), crud.Questions{API: v.ctl.Client(), QuizID: quizID}, id); err != nil {
		slog.Warn("failed to delete question", "id", id, "error", err)
	}
	h.finish(w, r, v, questionsPath(quizID))
}

// Scores export

func (h *Handler) handleExportScores(w http.ResponseWriter, r *http.Request) {
	v := h.begin(r)
	job, err := v.ctl.Client().ExportScores(r.Context())
	if err != nil {
		slog.Warn("scores export failed", "error", err)
		v.ws.SetExport(nil, err)
	} else {
		slog.Info("scores export started", "task_id", job.TaskID)
		v.ws.SetExport(&job, nil)
	}
	h.finish(w, r, v, router.DashboardPath(true))
}
