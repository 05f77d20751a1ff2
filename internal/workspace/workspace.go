// Package workspace holds the per-browser component state that lives
// between requests: cached collections, list selections and the active
// quiz attempt.
package workspace

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/quizmasterpro/quizmaster/internal/attempt"
	"github.com/quizmasterpro/quizmaster/internal/crud"
	"github.com/quizmasterpro/quizmaster/internal/listview"
	"github.com/quizmasterpro/quizmaster/internal/model"
	"github.com/quizmasterpro/quizmaster/internal/router"
)

// Workspace is the state of one browser.
type Workspace struct {
	mu       sync.Mutex
	lastSeen time.Time
	page     router.Page

	subjects  *crud.Collection[model.Subject]
	chapters  map[int64]*crud.Collection[model.Chapter]
	quizzes   map[int64]*crud.Collection[model.Quiz]
	questions map[int64]*crud.Collection[model.Question]
	users     *crud.Collection[model.User]
	lists     map[string]listview.State

	export    *model.ExportJob
	exportErr error

	attempt *attempt.Engine
}

func newWorkspace() *Workspace {
	return &Workspace{
		subjects:  crud.NewCollection[model.Subject]("name"),
		chapters:  make(map[int64]*crud.Collection[model.Chapter]),
		quizzes:   make(map[int64]*crud.Collection[model.Quiz]),
		questions: make(map[int64]*crud.Collection[model.Question]),
		users:     crud.NewCollection[model.User](""),
		lists:     make(map[string]listview.State),
	}
}

// Subjects returns the subjects collection.
func (w *Workspace) Subjects() *crud.Collection[model.Subject] {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.subjects
}

// Chapters returns the chapters collection scoped to subjectID (0 for all).
func (w *Workspace) Chapters(subjectID int64) *crud.Collection[model.Chapter] {
	w.mu.Lock()
	defer w.mu.Unlock()
	c, ok := w.chapters[subjectID]
	if !ok {
		c = crud.NewCollection[model.Chapter]("name")
		w.chapters[subjectID] = c
	}
	return c
}

// Quizzes returns the quizzes collection scoped to chapterID (0 for all).
func (w *Workspace) Quizzes(chapterID int64) *crud.Collection[model.Quiz] {
	w.mu.Lock()
	defer w.mu.Unlock()
	c, ok := w.quizzes[chapterID]
	if !ok {
		c = crud.NewCollection[model.Quiz]("title")
		w.quizzes[chapterID] = c
	}
	return c
}

// Questions returns the question collection of quizID.
func (w *Workspace) Questions(quizID int64) *crud.Collection[model.Question] {
	w.mu.Lock()
	defer w.mu.Unlock()
	c, ok := w.questions[quizID]
	if !ok {
		c = crud.NewCollection[model.Question]("question_statement")
		w.questions[quizID] = c
	}
	return c
}

// Users returns the users collection.
func (w *Workspace) Users() *crud.Collection[model.User] {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.users
}

// ListState returns the saved search/sort/page of a list view.
func (w *Workspace) ListState(name string, def listview.State) listview.State {
	w.mu.Lock()
	defer w.mu.Unlock()
	if s, ok := w.lists[name]; ok {
		return s
	}
	return def
}

// SetListState saves the search/sort/page of a list view.
func (w *Workspace) SetListState(name string, s listview.State) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.lists[name] = s
}

// SetExport records the outcome of a CSV export request for the next
// dashboard render.
func (w *Workspace) SetExport(job *model.ExportJob, err error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.export, w.exportErr = job, err
}

// TakeExport returns the pending export outcome once.
func (w *Workspace) TakeExport() (*model.ExportJob, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	job, err := w.export, w.exportErr
	w.export, w.exportErr = nil, nil
	return job, err
}

// Attempt returns the active attempt, or nil.
func (w *Workspace) Attempt() *attempt.Engine {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.attempt
}

// StartAttempt makes e the active attempt, closing any previous one so no
// two countdowns run for the same browser.
func (w *Workspace) StartAttempt(e *attempt.Engine) {
	w.mu.Lock()
	prev := w.attempt
	w.attempt = e
	w.mu.Unlock()
	if prev != nil && prev != e {
		prev.Close()
	}
	e.Start()
}

// EndAttempt closes and forgets the active attempt.
func (w *Workspace) EndAttempt() {
	w.mu.Lock()
	prev := w.attempt
	w.attempt = nil
	w.mu.Unlock()
	if prev != nil {
		prev.Close()
	}
}

// PageCommitted tracks navigation. Leaving the quiz page tears the
// attempt down.
func (w *Workspace) PageCommitted(page router.Page, _ router.Params) {
	w.mu.Lock()
	prev := w.page
	w.page = page
	w.mu.Unlock()
	if prev == router.PageStartQuiz && page != router.PageStartQuiz {
		slog.Debug("left quiz page, closing attempt")
		w.EndAttempt()
	}
}

// Reset drops everything cached, e.g. on logout.
func (w *Workspace) Reset() {
	w.EndAttempt()
	fresh := newWorkspace()
	w.mu.Lock()
	defer w.mu.Unlock()
	w.subjects = fresh.subjects
	w.chapters = fresh.chapters
	w.quizzes = fresh.quizzes
	w.questions = fresh.questions
	w.users = fresh.users
	w.lists = fresh.lists
	w.export, w.exportErr = nil, nil
	w.page = ""
}

func (w *Workspace) close() {
	w.EndAttempt()
}

// Registry maps browser ids to workspaces.
type Registry struct {
	mu      sync.Mutex
	items   map[string]*Workspace
	idleTTL time.Duration
	now     func() time.Time
}

// NewRegistry creates a registry that evicts workspaces idle for idleTTL.
func NewRegistry(idleTTL time.Duration) *Registry {
	return &Registry{
		items:   make(map[string]*Workspace),
		idleTTL: idleTTL,
		now:     time.Now,
	}
}

// Get returns the browser's workspace, creating it on first use.
func (r *Registry) Get(browserID string) *Workspace {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.items[browserID]
	if !ok {
		w = newWorkspace()
		r.items[browserID] = w
	}
	w.mu.Lock()
	w.lastSeen = r.now()
	w.mu.Unlock()
	return w
}

// Peek returns the browser's workspace without creating or touching it.
func (r *Registry) Peek(browserID string) (*Workspace, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.items[browserID]
	return w, ok
}

// Len returns the number of live workspaces.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.items)
}

// Evict closes and removes workspaces idle longer than the TTL. Workspaces
// with a running attempt are kept.
func (r *Registry) Evict() int {
	cutoff := r.now().Add(-r.idleTTL)
	r.mu.Lock()
	var stale []*Workspace
	for id, w := range r.items {
		w.mu.Lock()
		idle := w.lastSeen.Before(cutoff)
		running := w.attempt != nil && w.attempt.Snapshot().Phase == attempt.InProgress
		w.mu.Unlock()
		if idle && !running {
			stale = append(stale, w)
			delete(r.items, id)
		}
	}
	r.mu.Unlock()

	for _, w := range stale {
		w.close()
	}
	if len(stale) > 0 {
		slog.Info("evicted idle workspaces", "count", len(stale))
	}
	return len(stale)
}

// Run evicts idle workspaces every interval until ctx is done.
func (r *Registry) Run(ctx context.Context, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			r.Evict()
		}
	}
}

// CloseAll tears down every workspace.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	items := r.items
	r.items = make(map[string]*Workspace)
	r.mu.Unlock()
	for _, w := range items {
		w.close()
	}
}
