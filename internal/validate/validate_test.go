package validate

import (
	"testing"

	"github.com/quizmasterpro/quizmaster/internal/model"
)

func TestStructFieldNames(t *testing.T) {
	tests := []struct {
		name       string
		in         any
		wantFields []string
	}{
		{"valid subject", model.Subject{Name: "Algebra"}, nil},
		{"empty subject", model.Subject{}, []string{"name"}},
		{"question missing option", model.Question{Statement: "2+2?", Option1: "1", Option2: "2", Option3: "3", CorrectOption: 4}, []string{"option4"}},
		{"question bad correct", model.Question{Statement: "s", Option1: "1", Option2: "2", Option3: "3", Option4: "4", CorrectOption: 5}, []string{"correct_option"}},
		{"quiz bad date", model.Quiz{Title: "T", ChapterID: 1, DateOfQuiz: "01/02/2024", TimeDuration: 10}, []string{"date_of_quiz"}},
		{"register mismatch", model.Registration{Username: "u", Email: "u@example.com", Password: "secret1", ConfirmPassword: "secret2"}, []string{"confirm_password"}},
		{"register short password", model.Registration{Username: "u", Email: "bad", Password: "123", ConfirmPassword: "123"}, []string{"email", "password"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Struct(tt.in)
			if tt.wantFields == nil {
				if err != nil {
					t.Fatalf("expected valid, got %v", err)
				}
				return
			}
			fields, ok := Fields(err)
			if !ok {
				t.Fatalf("expected validation errors, got %v", err)
			}
			if len(fields) != len(tt.wantFields) {
				t.Errorf("expected fields %v, got %v", tt.wantFields, fields)
			}
			for _, f := range tt.wantFields {
				if fields[f] == "" {
					t.Errorf("missing message for %s in %v", f, fields)
				}
			}
		})
	}
}
