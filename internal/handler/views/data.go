package views

import (
	"github.com/quizmasterpro/quizmaster/internal/apiclient"
	"github.com/quizmasterpro/quizmaster/internal/attempt"
	"github.com/quizmasterpro/quizmaster/internal/crud"
	"github.com/quizmasterpro/quizmaster/internal/listview"
	"github.com/quizmasterpro/quizmaster/internal/model"
	"github.com/quizmasterpro/quizmaster/internal/router"
	"github.com/quizmasterpro/quizmaster/internal/validate"
)

// Layout is the data every page shares: title, nav state and alerts.
type Layout struct {
	Title   string // i18n message id
	Self    string // path of the current page, without base path
	Session *model.Session
	Active  router.Page
	Flash   *crud.Flash
	Alert   string
}

// DashboardPath is the role-appropriate dashboard link for the nav bar.
func (l Layout) DashboardPath() string {
	return router.DashboardPath(l.Session.IsAdmin())
}

// LoginData feeds the login page.
type LoginData struct {
	Layout
	Admin    bool
	Username string
	Errors   validate.Errors
}

// RegisterData feeds the register page.
type RegisterData struct {
	Layout
	Form   model.Registration
	Errors validate.Errors
}

// UserDashboardData feeds the subject → chapter → quiz drill-down.
type UserDashboardData struct {
	Layout
	Subjects     []model.Subject
	Subject      *model.Subject
	Chapters     []model.Chapter
	Chapter      *model.Chapter
	Quizzes      []model.Quiz
	RecentScores []model.Score
}

// AdminDashboardData feeds the admin dashboard.
type AdminDashboardData struct {
	Layout
	Stats  model.AdminStats
	Export *model.ExportJob
}

// ScoresData feeds the scores page.
type ScoresData struct {
	Layout
	AllUsers bool
	State    listview.State
	Page     listview.Page[model.Score]
	Summary  []model.SubjectSummary
}

// UsersData feeds the admin users page.
type UsersData struct {
	Layout
	State listview.State
	Page  listview.Page[model.User]
}

// SubjectsData feeds the subjects management page.
type SubjectsData struct {
	Layout
	Search string
	Items  []model.Subject
	Form   crud.Form[model.Subject]
}

// ChaptersData feeds the chapters management page, optionally scoped to a subject.
type ChaptersData struct {
	Layout
	SubjectID int64
	Subject   *model.Subject
	Subjects  []model.Subject
	Search    string
	Items     []model.Chapter
	Form      crud.Form[model.Chapter]
}

// QuizzesData feeds the quizzes management page, optionally scoped to a chapter.
type QuizzesData struct {
	Layout
	ChapterID int64
	Chapter   *model.Chapter
	Chapters  []model.Chapter
	Search    string
	Items     []model.Quiz
	Form      crud.Form[model.Quiz]
}

// QuestionsData feeds the questions page of one quiz.
type QuestionsData struct {
	Layout
	InvalidID bool
	QuizID    int64
	Search    string
	Items     []model.Question
	Form      crud.Form[model.Question]
}

// QuizData feeds the quiz-taking page.
type QuizData struct {
	Layout
	InvalidID    bool
	QuizID       int64
	Attempt      *attempt.Snapshot
	AlreadyTaken *apiclient.AlreadyTakenError
}
