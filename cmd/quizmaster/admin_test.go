package main

import (
	"strings"
	"testing"
)

func TestLoadQuestionBank(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		want    int
		wantErr string
	}{
		{
			name: "valid",
			yaml: `
- statement: What is 2 x 3?
  options: ["5", "6", "8", "9"]
  correct: 2
- statement: Largest planet?
  options: [Mars, Venus, Jupiter, Earth]
  correct: 3
`,
			want: 2,
		},
		{
			name: "three options",
			yaml: `
- statement: Pick one
  options: [a, b, c]
  correct: 1
`,
			wantErr: "question 1",
		},
		{
			name: "correct out of range",
			yaml: `
- statement: Fine
  options: [a, b, c, d]
  correct: 1
- statement: Broken
  options: [a, b, c, d]
  correct: 5
`,
			wantErr: "question 2",
		},
		{
			name:    "empty",
			yaml:    "[]",
			wantErr: "empty",
		},
		{
			name:    "not yaml list",
			yaml:    "statement: lonely",
			wantErr: "parse YAML",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bank, err := loadQuestionBank([]byte(tt.yaml))
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("err = %v, want containing %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("loadQuestionBank: %v", err)
			}
			if len(bank) != tt.want {
				t.Fatalf("got %d questions, want %d", len(bank), tt.want)
			}
			q := bank[0].Question(9)
			if q.QuizID != 9 || q.Option2 != "6" || q.CorrectOption != 2 {
				t.Errorf("converted question = %+v", q)
			}
		})
	}
}

func TestNormalizeBasePath(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", ""},
		{"/", ""},
		{"quiz", "/quiz"},
		{"/quiz/", "/quiz"},
	}
	for _, tt := range tests {
		if got := normalizeBasePath(tt.in); got != tt.want {
			t.Errorf("normalizeBasePath(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
