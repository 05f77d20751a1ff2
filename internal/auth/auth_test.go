package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/quizmasterpro/quizmaster/internal/model"
	"github.com/quizmasterpro/quizmaster/internal/store"
)

func newTestAuth(t *testing.T) *Store {
	t.Helper()
	ls, err := store.New(":memory:", time.Hour)
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	t.Cleanup(func() { ls.Close() })
	return New(ls)
}

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "42",
		"exp": exp.Unix(),
	})
	s, err := tok.SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return s
}

func TestSaveAndLoad(t *testing.T) {
	a := newTestAuth(t)
	ctx := context.Background()

	sess, err := a.GetUserData(ctx, "b1")
	if err != nil {
		t.Fatalf("GetUserData: %v", err)
	}
	if sess != nil {
		t.Fatal("expected anonymous browser")
	}
	if a.IsLoggedIn(ctx, "b1") {
		t.Error("anonymous browser reported as logged in")
	}

	in := model.Session{Token: "opaque-token", User: model.UserInfo{ID: 7, Username: "alice", IsAdmin: true}}
	if err := a.SaveUserData(ctx, "b1", in); err != nil {
		t.Fatalf("SaveUserData: %v", err)
	}

	got, err := a.GetUserData(ctx, "b1")
	if err != nil {
		t.Fatalf("GetUserData: %v", err)
	}
	if got == nil || *got != in {
		t.Errorf("expected %+v, got %+v", in, got)
	}
	if !a.IsLoggedIn(ctx, "b1") || !a.IsAdmin(ctx, "b1") {
		t.Error("expected logged-in admin")
	}

	if err := a.Logout(ctx, "b1"); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if a.IsLoggedIn(ctx, "b1") {
		t.Error("expected logged out")
	}
}

func TestSaveRejectsEmptyToken(t *testing.T) {
	a := newTestAuth(t)
	if err := a.SaveUserData(context.Background(), "b1", model.Session{}); err == nil {
		t.Error("expected error for empty token")
	}
}

func TestExpiredTokenClearsSession(t *testing.T) {
	a := newTestAuth(t)
	ctx := context.Background()

	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	a.now = func() time.Time { return now }

	tok := signedToken(t, now.Add(-time.Minute))
	if err := a.SaveUserData(ctx, "b1", model.Session{Token: tok, User: model.UserInfo{ID: 1, Username: "bob"}}); err != nil {
		t.Fatalf("SaveUserData: %v", err)
	}
	sess, err := a.GetUserData(ctx, "b1")
	if err != nil {
		t.Fatalf("GetUserData: %v", err)
	}
	if sess != nil {
		t.Errorf("expected expired session to read as nil, got %+v", sess)
	}
}

func TestTokenExpired(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		name  string
		token string
		want  bool
	}{
		{"opaque", "not-a-jwt", false},
		{"future", signedToken(t, now.Add(time.Hour)), false},
		{"past", signedToken(t, now.Add(-time.Hour)), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := TokenExpired(tt.token, now); got != tt.want {
				t.Errorf("TokenExpired = %v, want %v", got, tt.want)
			}
		})
	}
}
