package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/quizmasterpro/quizmaster/internal/model"
)

// Login authenticates a regular user.
func (c *Client) Login(ctx context.Context, cred model.Credentials) (model.AuthResponse, error) {
	var resp model.AuthResponse
	err := c.Post(ctx, "/api/users/login", cred, &resp)
	return resp, err
}

// AdminLogin authenticates an administrator.
func (c *Client) AdminLogin(ctx context.Context, cred model.Credentials) (model.AuthResponse, error) {
	var resp model.AuthResponse
	err := c.Post(ctx, "/api/admin/login", cred, &resp)
	return resp, err
}

// Register creates an account. The reply may or may not carry a token.
func (c *Client) Register(ctx context.Context, reg model.Registration) (model.AuthResponse, error) {
	var resp model.AuthResponse
	err := c.Post(ctx, "/api/users/register", reg, &resp)
	return resp, err
}

// MarkActive updates the user's last-active timestamp.
func (c *Client) MarkActive(ctx context.Context) error {
	return c.Post(ctx, "/api/users/active", nil, nil)
}

// ListSubjects returns all subjects.
func (c *Client) ListSubjects(ctx context.Context) ([]model.Subject, error) {
	var out []model.Subject
	err := c.Get(ctx, "/api/subjects", nil, &out)
	return out, err
}

// GetSubject returns one subject.
func (c *Client) GetSubject(ctx context.Context, id int64) (model.Subject, error) {
	var out model.Subject
	err := c.Get(ctx, fmt.Sprintf("/api/subjects/%d", id), nil, &out)
	return out, err
}

// CreateSubject creates a subject and returns the server copy.
func (c *Client) CreateSubject(ctx context.Context, s model.Subject) (model.Subject, error) {
	var out model.Subject
	err := c.Post(ctx, "/api/subjects", s, &out)
	return out, err
}

// UpdateSubject replaces a subject and returns the server copy.
func (c *Client) UpdateSubject(ctx context.Context, s model.Subject) (model.Subject, error) {
	var out model.Subject
	err := c.Put(ctx, fmt.Sprintf("/api/subjects/%d", s.ID), s, &out)
	return out, err
}

// DeleteSubject deletes a subject with its chapters, quizzes and questions.
func (c *Client) DeleteSubject(ctx context.Context, id int64) error {
	return c.Delete(ctx, fmt.Sprintf("/api/subjects/%d", id))
}

// ListChapters returns all chapters, or those of one subject when subjectID > 0.
func (c *Client) ListChapters(ctx context.Context, subjectID int64) ([]model.Chapter, error) {
	path := "/api/chapters"
	if subjectID > 0 {
		path = fmt.Sprintf("/api/subjects/%d/chapters", subjectID)
	}
	var out []model.Chapter
	err := c.Get(ctx, path, nil, &out)
	return out, err
}

// CreateChapter creates a chapter.
func (c *Client) CreateChapter(ctx context.Context, ch model.Chapter) (model.Chapter, error) {
	var out model.Chapter
	err := c.Post(ctx, "/api/chapters", ch, &out)
	return out, err
}

// UpdateChapter replaces a chapter.
func (c *Client) UpdateChapter(ctx context.Context, ch model.Chapter) (model.Chapter, error) {
	var out model.Chapter
	err := c.Put(ctx, fmt.Sprintf("/api/chapters/%d", ch.ID), ch, &out)
	return out, err
}

// DeleteChapter deletes a chapter.
func (c *Client) DeleteChapter(ctx context.Context, id int64) error {
	return c.Delete(ctx, fmt.Sprintf("/api/chapters/%d", id))
}

// ListQuizzes returns all quizzes, or those of one chapter when chapterID > 0.
func (c *Client) ListQuizzes(ctx context.Context, chapterID int64) ([]model.Quiz, error) {
	path := "/api/quizzes"
	if chapterID > 0 {
		path = fmt.Sprintf("/api/chapters/%d/quizzes", chapterID)
	}
	var out []model.Quiz
	err := c.Get(ctx, path, nil, &out)
	return out, err
}

// CreateQuiz creates a quiz.
func (c *Client) CreateQuiz(ctx context.Context, q model.Quiz) (model.Quiz, error) {
	var out model.Quiz
	err := c.Post(ctx, "/api/quizzes", q, &out)
	return out, err
}

// UpdateQuiz replaces a quiz.
func (c *Client) UpdateQuiz(ctx context.Context, q model.Quiz) (model.Quiz, error) {
	var out model.Quiz
	err := c.Put(ctx, fmt.Sprintf("/api/quizzes/%d", q.ID), q, &out)
	return out, err
}

// DeleteQuiz deletes a quiz.
func (c *Client) DeleteQuiz(ctx context.Context, id int64) error {
	return c.Delete(ctx, fmt.Sprintf("/api/quizzes/%d", id))
}

// ListQuestions returns the questions of a quiz, correct options included.
func (c *Client) ListQuestions(ctx context.Context, quizID int64) ([]model.Question, error) {
	var out []model.Question
	err := c.Get(ctx, fmt.Sprintf("/api/quizzes/%d/questions", quizID), nil, &out)
	return out, err
}

// CreateQuestion adds a question to its quiz.
func (c *Client) CreateQuestion(ctx context.Context, q model.Question) (model.Question, error) {
	var out model.Question
	err := c.Post(ctx, fmt.Sprintf("/api/quizzes/%d/questions", q.QuizID), q, &out)
	return out, err
}

// UpdateQuestion replaces a question.
func (c *Client) UpdateQuestion(ctx context.Context, q model.Question) (model.Question, error) {
	var out model.Question
	err := c.Put(ctx, fmt.Sprintf("/api/questions/%d", q.ID), q, &out)
	return out, err
}

// DeleteQuestion deletes a question.
func (c *Client) DeleteQuestion(ctx context.Context, id int64) error {
	return c.Delete(ctx, fmt.Sprintf("/api/questions/%d", id))
}

// AlreadyTakenError is returned by TakeQuiz when the user has a score for the quiz.
type AlreadyTakenError struct {
	Message string
	Score   model.ScoreSummary
}

func (e *AlreadyTakenError) Error() string {
	return e.Message
}

// TakeQuiz fetches a quiz with its questions for an attempt.
func (c *Client) TakeQuiz(ctx context.Context, quizID int64) (model.TakeQuiz, error) {
	var out model.TakeQuiz
	err := c.Get(ctx, fmt.Sprintf("/api/quizzes/%d/take", quizID), nil, &out)
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Status == http.StatusBadRequest {
		var taken struct {
			Error string              `json:"error"`
			Score *model.ScoreSummary `json:"score"`
		}
		if json.Unmarshal(apiErr.Body, &taken) == nil && taken.Score != nil {
			return out, &AlreadyTakenError{Message: taken.Error, Score: *taken.Score}
		}
	}
	return out, err
}

// SubmitQuiz posts the answers of an attempt and returns the score.
func (c *Client) SubmitQuiz(ctx context.Context, quizID int64, sub model.Submission) (model.SubmitResult, error) {
	var out model.SubmitResult
	err := c.Post(ctx, fmt.Sprintf("/api/quizzes/%d/submit", quizID), sub, &out)
	return out, err
}

// ListUsers returns all accounts (admin).
func (c *Client) ListUsers(ctx context.Context) ([]model.User, error) {
	var out []model.User
	err := c.Get(ctx, "/api/admin/users", nil, &out)
	return out, err
}

// AdminStats returns the admin dashboard counters.
func (c *Client) AdminStats(ctx context.Context) (model.AdminStats, error) {
	var out model.AdminStats
	err := c.Get(ctx, "/api/admin/stats", nil, &out)
	return out, err
}

// AllScores returns every recorded attempt (admin).
func (c *Client) AllScores(ctx context.Context) ([]model.Score, error) {
	var out []model.Score
	err := c.Get(ctx, "/api/admin/scores", nil, &out)
	return out, err
}

// UserScores returns the caller's own attempts.
func (c *Client) UserScores(ctx context.Context) ([]model.Score, error) {
	var out []model.Score
	err := c.Get(ctx, "/api/users/scores", nil, &out)
	return out, err
}

// ExportScores starts the server-side CSV export job.
func (c *Client) ExportScores(ctx context.Context) (model.ExportJob, error) {
	var out model.ExportJob
	err := c.Post(ctx, "/api/admin/scores/export", nil, &out)
	return out, err
}
