// Package attempt runs a timed quiz attempt: countdown, answers,
// question navigation and a single submission.
package attempt

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/quizmasterpro/quizmaster/internal/model"
)

// Phase is the state of an attempt. Completed is terminal and there is no
// way back to InProgress once submission has begun.
type Phase string

const (
	InProgress Phase = "in_progress"
	Submitting Phase = "submitting"
	Completed  Phase = "completed"
)

var (
	ErrNotInProgress   = errors.New("attempt is not in progress")
	ErrClosed          = errors.New("attempt is closed")
	ErrUnknownQuestion = errors.New("question is not part of this quiz")
	ErrInvalidOption   = errors.New("option must be between 1 and 4")
	ErrSubmitPending   = errors.New("submission already in flight")
)

// Submitter posts answers for scoring. *apiclient.Client implements it.
type Submitter interface {
	SubmitQuiz(ctx context.Context, quizID int64, sub model.Submission) (model.SubmitResult, error)
}

// EventKind names an attempt notification.
type EventKind string

const (
	EventTick       EventKind = "tick"
	EventExpired    EventKind = "expired"
	EventSubmitting EventKind = "submitting"
	EventCompleted  EventKind = "completed"
	EventError      EventKind = "error"
)

// Event is sent to subscribers on every state change.
type Event struct {
	Kind     EventKind `json:"kind"`
	TimeLeft int       `json:"time_left"`
	Phase    Phase     `json:"phase"`
	Error    string    `json:"error,omitempty"`
}

// Snapshot is a consistent copy of the attempt state.
type Snapshot struct {
	Quiz      model.QuizInfo
	Questions []model.QuizQuestion
	Current   int
	Selected  map[int64]int
	TimeLeft  int
	Phase     Phase
	Expired   bool
	Result    *model.SubmitResult
	Err       error
}

// Question returns the question at the current index, or nil.
func (s Snapshot) Question() *model.QuizQuestion {
	if s.Current < 0 || s.Current >= len(s.Questions) {
		return nil
	}
	q := s.Questions[s.Current]
	return &q
}

// AllAnswered reports whether every question has a selected option.
func (s Snapshot) AllAnswered() bool {
	for _, q := range s.Questions {
		if _, ok := s.Selected[q.ID]; !ok {
			return false
		}
	}
	return true
}

// IsLast reports whether the current question is the last one.
func (s Snapshot) IsLast() bool {
	return len(s.Questions) > 0 && s.Current == len(s.Questions)-1
}

// CanFinish reports whether manual submission is allowed.
func (s Snapshot) CanFinish() bool {
	return s.Phase == InProgress && s.IsLast() && s.AllAnswered()
}

// Engine owns one attempt and its countdown.
type Engine struct {
	submitter Submitter
	clock     Clock

	ctx    context.Context
	cancel context.CancelFunc

	mu        sync.Mutex
	quiz      model.QuizInfo
	questions []model.QuizQuestion
	current   int
	selected  map[int64]int
	timeLeft  int
	phase     Phase
	expired   bool
	result    *model.SubmitResult
	err       error
	inflight  bool
	started   bool
	closed    bool
	ticker    Ticker
	done      chan struct{}
	subs      map[int]chan Event
	nextSub   int
}

// New prepares an attempt for the fetched quiz. The countdown starts with Start.
func New(data model.TakeQuiz, submitter Submitter, clock Clock) *Engine {
	if clock == nil {
		clock = SystemClock{}
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Engine{
		submitter: submitter,
		clock:     clock,
		ctx:       ctx,
		cancel:    cancel,
		quiz:      data.Quiz,
		questions: data.Questions,
		selected:  make(map[int64]int),
		timeLeft:  data.Quiz.DurationSeconds(),
		phase:     InProgress,
		done:      make(chan struct{}),
		subs:      make(map[int]chan Event),
	}
}

// QuizID returns the id of the quiz being attempted.
func (e *Engine) QuizID() int64 { return e.quiz.ID }

// Start begins the one-second countdown. Calling it again is a no-op.
func (e *Engine) Start() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.started || e.closed || e.phase != InProgress {
		return
	}
	e.started = true
	e.ticker = e.clock.NewTicker(time.Second)
	go e.run(e.ticker, e.done)
	slog.Debug("quiz attempt started", "quiz_id", e.quiz.ID, "time_left", e.timeLeft)
}

func (e *Engine) run(t Ticker, done <-chan struct{}) {
	for {
		select {
		case <-done:
			return
		case <-t.C():
			if e.tick() {
				return
			}
		}
	}
}

// tick decrements the countdown and reports whether the loop should end.
func (e *Engine) tick() bool {
	e.mu.Lock()
	if e.closed || e.phase != InProgress {
		e.stopTickerLocked()
		e.mu.Unlock()
		return true
	}
	e.timeLeft--
	if e.timeLeft > 0 {
		e.broadcastLocked(Event{Kind: EventTick})
		e.mu.Unlock()
		return false
	}
	e.timeLeft = 0
	e.expired = true
	e.broadcastLocked(Event{Kind: EventExpired})
	e.mu.Unlock()

	slog.Info("quiz time expired, submitting", "quiz_id", e.quiz.ID)
	if err := e.Submit(e.ctx); err != nil && !errors.Is(err, ErrNotInProgress) {
		slog.Warn("automatic submission failed", "quiz_id", e.quiz.ID, "error", err)
	}
	return true
}

// Select records option (1..4) for a question. Only that question's
// answer changes.
func (e *Engine) Select(questionID int64, option int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrClosed
	}
	if e.phase != InProgress {
		return ErrNotInProgress
	}
	if option < 1 || option > 4 {
		return ErrInvalidOption
	}
	if !e.hasQuestionLocked(questionID) {
		return ErrUnknownQuestion
	}
	e.selected[questionID] = option
	return nil
}

func (e *Engine) hasQuestionLocked(id int64) bool {
	for _, q := range e.questions {
		if q.ID == id {
			return true
		}
	}
	return false
}

// Next moves to the following question. It reports false on the last one.
func (e *Engine) Next() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.current >= len(e.questions)-1 {
		return false
	}
	e.current++
	return true
}

// Previous moves to the preceding question. It reports false on the first one.
func (e *Engine) Previous() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.current <= 0 {
		return false
	}
	e.current--
	return true
}

// Goto jumps to index i when it is in range.
func (e *Engine) Goto(i int) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if i < 0 || i >= len(e.questions) {
		return false
	}
	e.current = i
	return true
}

// CanFinish reports whether the finish control is enabled.
func (e *Engine) CanFinish() bool {
	return e.Snapshot().CanFinish()
}

// Submit sends the recorded answers, possibly a partial set. It is allowed
// while in progress and, after a failed submission, again as a manual
// retry. Answers are frozen from the first call on.
func (e *Engine) Submit(ctx context.Context) error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return ErrClosed
	}
	switch {
	case e.inflight:
		e.mu.Unlock()
		return ErrSubmitPending
	case e.phase == InProgress:
		e.phase = Submitting
		e.stopTickerLocked()
	case e.phase == Submitting && e.err != nil:
	default:
		e.mu.Unlock()
		return ErrNotInProgress
	}
	e.inflight = true
	e.err = nil
	sub := model.Submission{
		Answers:   make(map[string]int, len(e.selected)),
		TimeTaken: e.quiz.DurationSeconds() - e.timeLeft,
	}
	for id, opt := range e.selected {
		sub.Answers[strconv.FormatInt(id, 10)] = opt
	}
	e.broadcastLocked(Event{Kind: EventSubmitting})
	e.mu.Unlock()

	res, err := e.submitter.SubmitQuiz(ctx, e.quiz.ID, sub)

	e.mu.Lock()
	defer e.mu.Unlock()
	e.inflight = false
	if e.closed {
		return ErrClosed
	}
	if err != nil {
		e.err = err
		e.broadcastLocked(Event{Kind: EventError, Error: err.Error()})
		return fmt.Errorf("submit quiz %d: %w", e.quiz.ID, err)
	}
	e.phase = Completed
	e.result = &res
	e.broadcastLocked(Event{Kind: EventCompleted})
	slog.Info("quiz submitted", "quiz_id", e.quiz.ID, "time_taken", sub.TimeTaken, "answered", len(sub.Answers))
	return nil
}

// Snapshot returns a copy of the current state.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	sel := make(map[int64]int, len(e.selected))
	for k, v := range e.selected {
		sel[k] = v
	}
	s := Snapshot{
		Quiz:      e.quiz,
		Questions: e.questions,
		Current:   e.current,
		Selected:  sel,
		TimeLeft:  e.timeLeft,
		Phase:     e.phase,
		Expired:   e.expired,
		Err:       e.err,
	}
	if e.result != nil {
		r := *e.result
		s.Result = &r
	}
	return s
}

// Subscribe returns a channel of events and a function that cancels the
// subscription. Slow subscribers miss events rather than block the timer.
func (e *Engine) Subscribe() (<-chan Event, func()) {
	e.mu.Lock()
	defer e.mu.Unlock()
	ch := make(chan Event, 16)
	if e.closed {
		close(ch)
		return ch, func() {}
	}
	id := e.nextSub
	e.nextSub++
	e.subs[id] = ch
	return ch, func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		if c, ok := e.subs[id]; ok {
			delete(e.subs, id)
			close(c)
		}
	}
}

func (e *Engine) broadcastLocked(ev Event) {
	ev.TimeLeft = e.timeLeft
	ev.Phase = e.phase
	for _, ch := range e.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

func (e *Engine) stopTickerLocked() {
	if e.ticker != nil {
		e.ticker.Stop()
		e.ticker = nil
	}
}

// Close tears the attempt down: the countdown stops, in-flight submission
// results are discarded and subscribers are released. Safe to call twice.
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	e.closed = true
	e.stopTickerLocked()
	close(e.done)
	e.cancel()
	for id, ch := range e.subs {
		delete(e.subs, id)
		close(ch)
	}
	slog.Debug("quiz attempt closed", "quiz_id", e.quiz.ID, "phase", e.phase)
}

// Closed reports whether Close has been called.
func (e *Engine) Closed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.closed
}
