package crud

import (
	"context"

	"github.com/quizmasterpro/quizmaster/internal/apiclient"
	"github.com/quizmasterpro/quizmaster/internal/model"
)

// Subjects is the subjects resource.
type Subjects struct{ API *apiclient.Client }

func (r Subjects) List(ctx context.Context) ([]model.Subject, error) {
	return r.API.ListSubjects(ctx)
}

func (r Subjects) Create(ctx context.Context, s model.Subject) (model.Subject, error) {
	return r.API.CreateSubject(ctx, s)
}

func (r Subjects) Update(ctx context.Context, s model.Subject) (model.Subject, error) {
	return r.API.UpdateSubject(ctx, s)
}

func (r Subjects) Delete(ctx context.Context, id int64) error {
	return r.API.DeleteSubject(ctx, id)
}

// Chapters lists all chapters, or those of SubjectID when it is set.
type Chapters struct {
	API       *apiclient.Client
	SubjectID int64
}

func (r Chapters) List(ctx context.Context) ([]model.Chapter, error) {
	return r.API.ListChapters(ctx, r.SubjectID)
}

func (r Chapters) Create(ctx context.Context, ch model.Chapter) (model.Chapter, error) {
	if ch.SubjectID == 0 {
		ch.SubjectID = r.SubjectID
	}
	return r.API.CreateChapter(ctx, ch)
}

func (r Chapters) Update(ctx context.Context, ch model.Chapter) (model.Chapter, error) {
	return r.API.UpdateChapter(ctx, ch)
}

func (r Chapters) Delete(ctx context.Context, id int64) error {
	return r.API.DeleteChapter(ctx, id)
}

// Quizzes lists all quizzes, or those of ChapterID when it is set.
type Quizzes struct {
	API       *apiclient.Client
	ChapterID int64
}

func (r Quizzes) List(ctx context.Context) ([]model.Quiz, error) {
	return r.API.ListQuizzes(ctx, r.ChapterID)
}

func (r Quizzes) Create(ctx context.Context, q model.Quiz) (model.Quiz, error) {
	if q.ChapterID == 0 {
		q.ChapterID = r.ChapterID
	}
	return r.API.CreateQuiz(ctx, q)
}

func (r Quizzes) Update(ctx context.Context, q model.Quiz) (model.Quiz, error) {
	return r.API.UpdateQuiz(ctx, q)
}

func (r Quizzes) Delete(ctx context.Context, id int64) error {
	return r.API.DeleteQuiz(ctx, id)
}

// Questions is the question set of one quiz.
type Questions struct {
	API    *apiclient.Client
	QuizID int64
}

func (r Questions) List(ctx context.Context) ([]model.Question, error) {
	return r.API.ListQuestions(ctx, r.QuizID)
}

func (r Questions) Create(ctx context.Context, q model.Question) (model.Question, error) {
	q.QuizID = r.QuizID
	return r.API.CreateQuestion(ctx, q)
}

func (r Questions) Update(ctx context.Context, q model.Question) (model.Question, error) {
	return r.API.UpdateQuestion(ctx, q)
}

func (r Questions) Delete(ctx context.Context, id int64) error {
	return r.API.DeleteQuestion(ctx, id)
}

// Users is the read-only account list.
type Users struct{ API *apiclient.Client }

func (r Users) List(ctx context.Context) ([]model.User, error) {
	return r.API.ListUsers(ctx)
}

func (Users) Create(context.Context, model.User) (model.User, error) {
	return model.User{}, ErrReadOnly
}

func (Users) Update(context.Context, model.User) (model.User, error) {
	return model.User{}, ErrReadOnly
}

func (Users) Delete(context.Context, int64) error {
	return ErrReadOnly
}

// Fields used by the list search boxes.

func SubjectFields(s model.Subject) []string { return []string{s.Name, s.Description} }

func ChapterFields(c model.Chapter) []string {
	return []string{c.Name, c.Description, c.SubjectName}
}

func QuizFields(q model.Quiz) []string {
	return []string{q.Title, q.Description, q.ChapterName, q.SubjectName}
}

func QuestionFields(q model.Question) []string {
	return []string{q.Statement, q.Option1, q.Option2, q.Option3, q.Option4}
}

func UserFields(u model.User) []string { return []string{u.Username, u.Email} }

func ScoreFields(s model.Score) []string {
	return []string{s.QuizTitle, s.SubjectName, s.ChapterName, s.Username}
}
