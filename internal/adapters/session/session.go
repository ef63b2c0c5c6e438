// Package session keeps per-browser login state for the HTTP front end.
package session

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
)

// ErrNotFound is returned when a session does not exist or has expired
var ErrNotFound = errors.New("session not found")

// Session is one browser's login state
type Session struct {
	ID        string        `json:"id"`
	State     string        `json:"state"`
	Token     *oauth2.Token `json:"token,omitempty"`
	CreatedAt time.Time     `json:"created_at"`
}

// New creates an unauthorized session with fresh random id and OAuth state
func New(now time.Time) *Session {
	return &Session{
		ID:        uuid.NewString(),
		State:     uuid.NewString(),
		CreatedAt: now,
	}
}

// Authorized reports whether the session holds a token
func (s *Session) Authorized() bool {
	return s != nil && s.Token != nil && s.Token.AccessToken != ""
}

// Store persists sessions
type Store interface {
	Save(ctx context.Context, s *Session) error
	Get(ctx context.Context, id string) (*Session, error)
	Delete(ctx context.Context, id string) error
}
