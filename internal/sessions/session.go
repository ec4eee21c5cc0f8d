package sessions

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrNotOwner        = errors.New("session not owned by user")
	ErrAlreadyDone     = errors.New("session already completed")
)

// ActiveSessionError is returned when a user tries to start a session
// while another one is still running.
type ActiveSessionError struct {
	ActiveSessionID string
}

func (e ActiveSessionError) Error() string {
	return fmt.Sprintf("active session already exists [%s]", e.ActiveSessionID)
}

// Session is one timed workout run of a routine. It is active from
// StartedAt until CompletedAt is set, and a user has at most one
// active session at a time.
type Session struct {
	ID          string     `json:"id"`
	UserID      string     `json:"userId"`
	RoutineID   string     `json:"routineId"`
	StartedAt   time.Time  `json:"startedAt"`
	CompletedAt *time.Time `json:"completedAt"`
	Notes       *string    `json:"notes"`
}

func (s *Session) IsActive() bool {
	return s.CompletedAt == nil
}

type Page struct {
	Sessions []Session `json:"sessions"`
	Total    int       `json:"total"`
	HasMore  bool      `json:"hasMore"`
	Page     int       `json:"page"`
	Limit    int       `json:"limit"`
}
