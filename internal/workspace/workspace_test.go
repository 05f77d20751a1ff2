package workspace

import (
	"context"
	"testing"
	"time"

	"github.com/quizmasterpro/quizmaster/internal/attempt"
	"github.com/quizmasterpro/quizmaster/internal/listview"
	"github.com/quizmasterpro/quizmaster/internal/model"
	"github.com/quizmasterpro/quizmaster/internal/router"
)

type stillClock struct{}

func (stillClock) NewTicker(time.Duration) attempt.Ticker { return stillTicker{} }

type stillTicker struct{}

func (stillTicker) C() <-chan time.Time { return nil }
func (stillTicker) Stop()               {}

type nopSubmitter struct{}

func (nopSubmitter) SubmitQuiz(context.Context, int64, model.Submission) (model.SubmitResult, error) {
	return model.SubmitResult{}, nil
}

func newEngine(quizID int64) *attempt.Engine {
	return attempt.New(model.TakeQuiz{
		Quiz:      model.QuizInfo{ID: quizID, TimeDuration: 5},
		Questions: []model.QuizQuestion{{ID: 1}},
	}, nopSubmitter{}, stillClock{})
}

func TestNewAttemptClosesPrevious(t *testing.T) {
	w := NewRegistry(time.Hour).Get("b1")

	first := newEngine(1)
	w.StartAttempt(first)
	second := newEngine(2)
	w.StartAttempt(second)

	if !first.Closed() {
		t.Error("previous attempt still open")
	}
	if second.Closed() || w.Attempt() != second {
		t.Error("new attempt should be active")
	}
}

func TestLeavingQuizPageClosesAttempt(t *testing.T) {
	w := NewRegistry(time.Hour).Get("b1")
	e := newEngine(1)

	w.PageCommitted(router.PageStartQuiz, nil)
	w.StartAttempt(e)
	w.PageCommitted(router.PageStartQuiz, nil)
	if e.Closed() {
		t.Fatal("staying on the quiz page closed the attempt")
	}
	w.PageCommitted(router.PageUserDashboard, nil)
	if !e.Closed() || w.Attempt() != nil {
		t.Error("leaving the quiz page must close the attempt")
	}
}

func TestScopedCollections(t *testing.T) {
	w := NewRegistry(time.Hour).Get("b1")
	if w.Chapters(1) != w.Chapters(1) {
		t.Error("same scope should return the same collection")
	}
	if w.Chapters(1) == w.Chapters(2) {
		t.Error("different scopes should not share a collection")
	}
	if w.Questions(3) == nil || w.Quizzes(0) == nil {
		t.Error("nil collection")
	}
}

func TestListStateAndReset(t *testing.T) {
	w := NewRegistry(time.Hour).Get("b1")
	def := listview.State{SortBy: "attempt_date", Dir: listview.Desc, Page: 1}

	if got := w.ListState("scores", def); got != def {
		t.Errorf("expected default, got %+v", got)
	}
	w.SetListState("scores", listview.State{Search: "alg", Page: 2})
	if got := w.ListState("scores", def); got.Search != "alg" || got.Page != 2 {
		t.Errorf("state not saved: %+v", got)
	}

	subjects := w.Subjects()
	w.Reset()
	if w.Subjects() == subjects {
		t.Error("reset kept the cached collection")
	}
	if got := w.ListState("scores", def); got != def {
		t.Error("reset kept list state")
	}
}

func TestEvictIdle(t *testing.T) {
	r := NewRegistry(time.Minute)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return now }

	r.Get("idle")
	busy := r.Get("busy")
	e := newEngine(1)
	busy.StartAttempt(e)

	now = now.Add(2 * time.Minute)
	r.Get("fresh")

	if n := r.Evict(); n != 1 {
		t.Errorf("expected 1 eviction, got %d", n)
	}
	if _, ok := r.Peek("idle"); ok {
		t.Error("idle workspace not evicted")
	}
	if _, ok := r.Peek("busy"); !ok {
		t.Error("workspace with a running attempt was evicted")
	}
	if r.Len() != 2 {
		t.Errorf("expected 2 workspaces, got %d", r.Len())
	}

	r.CloseAll()
	if !e.Closed() || r.Len() != 0 {
		t.Error("CloseAll left state behind")
	}
}
