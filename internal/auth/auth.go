// Package auth persists the API session of a browser in local storage.
package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/quizmasterpro/quizmaster/internal/model"
	"github.com/quizmasterpro/quizmaster/internal/store"
)

// Local storage keys.
const (
	KeyToken    = "token"
	KeyUserInfo = "userInfo"
)

// Store reads and writes {token, userInfo} for a browser.
type Store struct {
	ls  store.LocalStorage
	now func() time.Time
}

// New wraps a LocalStorage backend.
func New(ls store.LocalStorage) *Store {
	return &Store{ls: ls, now: time.Now}
}

// SaveUserData persists the session's token and user info.
func (s *Store) SaveUserData(ctx context.Context, browserID string, sess model.Session) error {
	if sess.Token == "" {
		return fmt.Errorf("save session: empty token")
	}
	info, err := json.Marshal(sess.User)
	if err != nil {
		return fmt.Errorf("encode user info: %w", err)
	}
	if err := s.ls.SetItem(ctx, browserID, KeyToken, sess.Token); err != nil {
		return fmt.Errorf("save token: %w", err)
	}
	if err := s.ls.SetItem(ctx, browserID, KeyUserInfo, string(info)); err != nil {
		return fmt.Errorf("save user info: %w", err)
	}
	return nil
}

// GetUserData returns the persisted session, or nil when the browser is
// anonymous. An expired or unreadable session is cleared and reads as nil.
func (s *Store) GetUserData(ctx context.Context, browserID string) (*model.Session, error) {
	token, ok, err := s.ls.GetItem(ctx, browserID, KeyToken)
	if err != nil {
		return nil, fmt.Errorf("load token: %w", err)
	}
	if !ok || token == "" {
		return nil, nil
	}
	if TokenExpired(token, s.now()) {
		slog.Info("persisted token expired, clearing session")
		return nil, s.Logout(ctx, browserID)
	}

	sess := &model.Session{Token: token}
	raw, ok, err := s.ls.GetItem(ctx, browserID, KeyUserInfo)
	if err != nil {
		return nil, fmt.Errorf("load user info: %w", err)
	}
	if ok {
		if err := json.Unmarshal([]byte(raw), &sess.User); err != nil {
			slog.Warn("corrupt user info, clearing session", "error", err)
			return nil, s.Logout(ctx, browserID)
		}
	}
	return sess, nil
}

// IsLoggedIn reports whether the browser holds a usable token.
func (s *Store) IsLoggedIn(ctx context.Context, browserID string) bool {
	sess, err := s.GetUserData(ctx, browserID)
	return err == nil && sess.Authenticated()
}

// IsAdmin reports whether the browser's session belongs to an administrator.
func (s *Store) IsAdmin(ctx context.Context, browserID string) bool {
	sess, err := s.GetUserData(ctx, browserID)
	return err == nil && sess.IsAdmin()
}

// Logout removes the token and user info.
func (s *Store) Logout(ctx context.Context, browserID string) error {
	if err := s.ls.RemoveItem(ctx, browserID, KeyToken); err != nil {
		return fmt.Errorf("remove token: %w", err)
	}
	if err := s.ls.RemoveItem(ctx, browserID, KeyUserInfo); err != nil {
		return fmt.Errorf("remove user info: %w", err)
	}
	return nil
}

// TokenExpired reports whether token is a JWT whose exp claim lies before
// now. The signature is not checked; the API remains the judge of validity.
// Opaque (non-JWT) tokens and tokens without exp never expire here.
func TokenExpired(token string, now time.Time) bool {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return exp.Before(now)
}
