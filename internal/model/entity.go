package model

// Subject is the top of the subject → chapter → quiz → question hierarchy.
type Subject struct {
	ID            int64     `json:"id,omitempty"`
	Name          string    `json:"name" validate:"required"`
	Description   string    `json:"description"`
	ChaptersCount int       `json:"chapters_count,omitempty"`
	CreatedAt     Timestamp `json:"created_at,omitzero"`
}

// GetID returns the subject id.
func (s Subject) GetID() int64 { return s.ID }

// Chapter belongs to a subject.
type Chapter struct {
	ID           int64     `json:"id,omitempty"`
	Name         string    `json:"name" validate:"required"`
	Description  string    `json:"description"`
	SubjectID    int64     `json:"subject_id" validate:"required"`
	SubjectName  string    `json:"subject_name,omitempty"`
	QuizzesCount int       `json:"quizzes_count,omitempty"`
	CreatedAt    Timestamp `json:"created_at,omitzero"`
}

// GetID returns the chapter id.
func (c Chapter) GetID() int64 { return c.ID }

// Quiz belongs to a chapter. TimeDuration is in minutes.
type Quiz struct {
	ID             int64     `json:"id,omitempty"`
	Title          string    `json:"title" validate:"required"`
	Description    string    `json:"description"`
	ChapterID      int64     `json:"chapter_id" validate:"required"`
	ChapterName    string    `json:"chapter_name,omitempty"`
	SubjectName    string    `json:"subject_name,omitempty"`
	DateOfQuiz     string    `json:"date_of_quiz" validate:"required,datetime=2006-01-02"`
	TimeDuration   int       `json:"time_duration" validate:"required,min=1"`
	QuestionsCount int       `json:"questions_count,omitempty"`
	CreatedAt      Timestamp `json:"created_at,omitzero"`
}

// GetID returns the quiz id.
func (q Quiz) GetID() int64 { return q.ID }

// Question is a four-option multiple choice question as the admin sees it.
type Question struct {
	ID            int64  `json:"id,omitempty"`
	QuizID        int64  `json:"quiz_id,omitempty"`
	Statement     string `json:"question_statement" validate:"required"`
	StatementImg  string `json:"question_image,omitempty"`
	Option1       string `json:"option1" validate:"required"`
	Option1Image  string `json:"option1_image,omitempty"`
	Option2       string `json:"option2" validate:"required"`
	Option2Image  string `json:"option2_image,omitempty"`
	Option3       string `json:"option3" validate:"required"`
	Option3Image  string `json:"option3_image,omitempty"`
	Option4       string `json:"option4" validate:"required"`
	Option4Image  string `json:"option4_image,omitempty"`
	CorrectOption int    `json:"correct_option" validate:"required,min=1,max=4"`
}

// GetID returns the question id.
func (q Question) GetID() int64 { return q.ID }

// User is an account as listed on the admin users page.
type User struct {
	ID         int64     `json:"id"`
	Username   string    `json:"username"`
	Email      string    `json:"email"`
	IsAdmin    bool      `json:"is_admin"`
	LastActive Timestamp `json:"last_active,omitzero"`
	CreatedAt  Timestamp `json:"created_at,omitzero"`
}

// GetID returns the user id.
func (u User) GetID() int64 { return u.ID }

// Score is one recorded quiz attempt.
type Score struct {
	ID              int64     `json:"id"`
	UserID          int64     `json:"user_id,omitempty"`
	Username        string    `json:"username,omitempty"`
	QuizID          int64     `json:"quiz_id"`
	QuizTitle       string    `json:"quiz_title"`
	ChapterName     string    `json:"chapter_name"`
	SubjectName     string    `json:"subject_name"`
	TotalQuestions  int       `json:"total_questions"`
	TotalCorrect    int       `json:"total_correct"`
	PercentageScore float64   `json:"percentage_score"`
	TimeTaken       int       `json:"time_taken"`
	AttemptDate     Timestamp `json:"attempt_date"`
}

// GetID returns the score id.
func (s Score) GetID() int64 { return s.ID }

// AdminStats feeds the admin dashboard.
type AdminStats struct {
	TotalUsers     int     `json:"total_users"`
	TotalSubjects  int     `json:"total_subjects"`
	TotalChapters  int     `json:"total_chapters"`
	TotalQuizzes   int     `json:"total_quizzes"`
	TotalQuestions int     `json:"total_questions"`
	TotalAttempts  int     `json:"total_attempts"`
	RecentUsers    []User  `json:"recent_users"`
	RecentScores   []Score `json:"recent_scores"`
}

// ExportJob is the reply to a CSV export request.
type ExportJob struct {
	Message string `json:"message"`
	TaskID  string `json:"task_id"`
}
