package model

import (
	"sort"
	"time"
)

// ScoresExport is the top-level JSON structure written by the export-scores command.
type ScoresExport struct {
	ExportedAt time.Time        `json:"exported_at"`
	APIURL     string           `json:"api_url"`
	TaskID     string           `json:"csv_task_id,omitempty"`
	Count      int              `json:"count"`
	Subjects   []SubjectSummary `json:"subjects"`
	Scores     []Score          `json:"scores"`
}

// SubjectSummary aggregates attempts per subject.
type SubjectSummary struct {
	Subject        string  `json:"subject"`
	Attempts       int     `json:"attempts"`
	AveragePercent float64 `json:"average_percent"`
}

// QuestionImport is one entry of a YAML question bank.
type QuestionImport struct {
	Statement     string   `yaml:"statement" validate:"required"`
	Options       []string `yaml:"options" validate:"len=4,dive,required"`
	CorrectOption int      `yaml:"correct" validate:"required,min=1,max=4"`
}

// Question converts the import entry into the API shape.
func (qi QuestionImport) Question(quizID int64) Question {
	q := Question{QuizID: quizID, Statement: qi.Statement, CorrectOption: qi.CorrectOption}
	opts := make([]string, 4)
	copy(opts, qi.Options)
	q.Option1, q.Option2, q.Option3, q.Option4 = opts[0], opts[1], opts[2], opts[3]
	return q
}

// SummarizeScores groups scores by subject, ordered by subject name.
func SummarizeScores(scores []Score) []SubjectSummary {
	idx := make(map[string]int)
	var out []SubjectSummary
	var totals []float64
	for _, s := range scores {
		i, ok := idx[s.SubjectName]
		if !ok {
			i = len(out)
			idx[s.SubjectName] = i
			out = append(out, SubjectSummary{Subject: s.SubjectName})
			totals = append(totals, 0)
		}
		out[i].Attempts++
		totals[i] += s.PercentageScore
	}
	for i := range out {
		out[i].AveragePercent = totals[i] / float64(out[i].Attempts)
	}
	sort.SliceStable(out, func(a, b int) bool { return out[a].Subject < out[b].Subject })
	return out
}
