package model

// QuizInfo is the quiz header returned by the take endpoint.
type QuizInfo struct {
	ID           int64  `json:"id"`
	Title        string `json:"title"`
	Description  string `json:"description"`
	TimeDuration int    `json:"time_duration"` // minutes
}

// DurationSeconds converts the quiz duration to seconds.
func (q QuizInfo) DurationSeconds() int {
	return q.TimeDuration * 60
}

// QuizQuestion is a question as served to a quiz taker. The correct option
// is never part of it.
type QuizQuestion struct {
	ID           int64  `json:"id"`
	Statement    string `json:"question_statement"`
	StatementImg string `json:"question_image,omitempty"`
	Option1      string `json:"option1"`
	Option1Image string `json:"option1_image,omitempty"`
	Option2      string `json:"option2"`
	Option2Image string `json:"option2_image,omitempty"`
	Option3      string `json:"option3"`
	Option3Image string `json:"option3_image,omitempty"`
	Option4      string `json:"option4"`
	Option4Image string `json:"option4_image,omitempty"`
}

// Option is one answer choice, numbered 1..4.
type Option struct {
	Number int
	Text   string
	Image  string
}

// Options lists the four choices in order.
func (q QuizQuestion) Options() []Option {
	return []Option{
		{1, q.Option1, q.Option1Image},
		{2, q.Option2, q.Option2Image},
		{3, q.Option3, q.Option3Image},
		{4, q.Option4, q.Option4Image},
	}
}

// TakeQuiz is the payload of GET /api/quizzes/{id}/take.
type TakeQuiz struct {
	Quiz      QuizInfo       `json:"quiz"`
	Questions []QuizQuestion `json:"questions"`
}

// Submission is the body of POST /api/quizzes/{id}/submit. Answers are keyed
// by question id.
type Submission struct {
	Answers   map[string]int `json:"answers"`
	TimeTaken int            `json:"time_taken"`
}

// ScoreSummary is the score embedded in submit replies and in the
// "already taken" error of the take endpoint.
type ScoreSummary struct {
	ID              int64     `json:"id,omitempty"`
	TotalQuestions  int       `json:"total_questions"`
	TotalCorrect    int       `json:"total_correct"`
	PercentageScore float64   `json:"percentage_score"`
	TimeTaken       int       `json:"time_taken"`
	AttemptDate     Timestamp `json:"attempt_date"`
}

// SubmitResult is the reply to a quiz submission.
type SubmitResult struct {
	Message string       `json:"message"`
	Score   ScoreSummary `json:"score"`
}
