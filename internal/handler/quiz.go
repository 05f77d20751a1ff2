package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/quizmasterpro/quizmaster/internal/apiclient"
	"github.com/quizmasterpro/quizmaster/internal/attempt"
	"github.com/quizmasterpro/quizmaster/internal/handler/views"
	"github.com/quizmasterpro/quizmaster/internal/router"
)

func quizPath(quizID int64) string {
	return scopedPath(router.PageStartQuiz, router.ParamQuizID, quizID)
}

// renderQuiz shows the active attempt of the requested quiz, fetching the
// quiz and starting a fresh attempt when there is none.
func (h *Handler) renderQuiz(w http.ResponseWriter, r *http.Request, v *visit) {
	ctx := r.Context()
	d := views.QuizData{Layout: h.layout(r, v, "TakeQuiz")}

	quizID, ok := parseID(v.ctl.Params()[router.ParamQuizID])
	if !ok {
		d.InvalidID = true
		h.render(w, r, views.QuizPage(d))
		return
	}
	d.QuizID = quizID

	e := v.ws.Attempt()
	if e == nil || e.QuizID() != quizID || e.Closed() {
		e = nil
		api := v.ctl.Client()
		data, err := api.TakeQuiz(ctx, quizID)
		var taken *apiclient.AlreadyTakenError
		switch {
		case errors.As(err, &taken):
			d.AlreadyTaken = taken
		case err != nil:
			slog.Warn("failed to load quiz", "quiz_id", quizID, "error", err)
			d.Alert = views.ErrorText(ctx, err)
		default:
			e = attempt.New(data, api, h.clock)
			v.ws.StartAttempt(e)
		}
	}

	if e != nil {
		snap := e.Snapshot()
		d.Attempt = &snap
	}

	if h.expired(w, r, v) {
		return
	}
	h.render(w, r, views.QuizPage(d))
}

// activeAttempt returns the attempt a quiz action targets. When it is gone
// the browser is sent back to the quiz page.
func (h *Handler) activeAttempt(w http.ResponseWriter, r *http.Request) (*visit, *attempt.Engine, bool) {
	quizID, ok := parseID(r.FormValue("quiz_id"))
	if !ok {
		http.Error(w, "invalid quiz ID", http.StatusBadRequest)
		return nil, nil, false
	}
	v := h.begin(r)
	e := v.ws.Attempt()
	if e == nil || e.QuizID() != quizID || e.Closed() {
		slog.Debug("no active attempt for quiz", "quiz_id", quizID)
		http.Redirect(w, r, h.path(quizPath(quizID)), http.StatusSeeOther)
		return nil, nil, false
	}
	return v, e, true
}

func (h *Handler) handleQuizAnswer(w http.ResponseWriter, r *http.Request) {
	v, e, ok := h.activeAttempt(w, r)
	if !ok {
		return
	}
	questionID, _ := strconv.ParseInt(r.FormValue("question_id"), 10, 64)
	option, _ := strconv.Atoi(r.FormValue("option"))
	if err := e.Select(questionID, option); err != nil {
		slog.Warn("answer rejected", "quiz_id", e.QuizID(), "question_id", questionID, "error", err)
	}
	h.finish(w, r, v, quizPath(e.QuizID()))
}

func (h *Handler) handleQuizNext(w http.ResponseWriter, r *http.Request) {
	v, e, ok := h.activeAttempt(w, r)
	if !ok {
		return
	}
	e.Next()
	h.finish(w, r, v, quizPath(e.QuizID()))
}

func (h *Handler) handleQuizPrev(w http.ResponseWriter, r *http.Request) {
	v, e, ok := h.activeAttempt(w, r)
	if !ok {
		return
	}
	e.Previous()
	h.finish(w, r, v, quizPath(e.QuizID()))
}

func (h *Handler) handleQuizGoto(w http.ResponseWriter, r *http.Request) {
	v, e, ok := h.activeAttempt(w, r)
	if !ok {
		return
	}
	if i, err := strconv.Atoi(r.FormValue("index")); err == nil {
		e.Goto(i)
	}
	h.finish(w, r, v, quizPath(e.QuizID()))
}

// handleQuizFinish submits the attempt. While in progress it requires every
// question answered and the last question shown; after a failed submission
// it retries.
func (h *Handler) handleQuizFinish(w http.ResponseWriter, r *http.Request) {
	v, e, ok := h.activeAttempt(w, r)
	if !ok {
		return
	}
	snap := e.Snapshot()
	if snap.Phase == attempt.InProgress && !snap.CanFinish() {
		slog.Debug("finish refused, quiz incomplete", "quiz_id", e.QuizID())
		h.finish(w, r, v, quizPath(e.QuizID()))
		return
	}
	// The submission outlives a browser that gives up waiting.
	ctx := context.WithoutCancel(r.Context())
	if err := e.Submit(ctx); err != nil {
		slog.Warn("quiz submission failed", "quiz_id", e.QuizID(), "error", err)
		// The attempt's client belongs to the request that started it, so
		// a rejected token is not seen by this request's controller.
		if errors.Is(err, apiclient.ErrUnauthorized) {
			v.ws.Reset()
			if err := h.sessions.Logout(r.Context(), v.browserID); err != nil {
				slog.Error("failed to clear session", "error", err)
			}
			h.redirectToLogin(w, r)
			return
		}
	}
	h.finish(w, r, v, quizPath(e.QuizID()))
}
