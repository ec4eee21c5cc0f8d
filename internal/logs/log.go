package logs

import (
	"errors"
	"time"
)

var (
	ErrLogNotFound     = errors.New("exercise log not found")
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionGone     = errors.New("session or exercise no longer exists")
)

// SessionInfo is the slice of the parent session the log handlers need
// for ownership and state checks. The sessions repo implements the
// lookup.
type SessionInfo struct {
	ID        string
	UserID    string
	RoutineID string
	Active    bool
}

// Log is one performed set inside a workout session.
type Log struct {
	ID         string    `json:"id"`
	SessionID  string    `json:"sessionId"`
	ExerciseID string    `json:"exerciseId"`
	SetNumber  int       `json:"setNumber"`
	Weight     float64   `json:"weight"`
	Reps       int       `json:"reps"`
	Completed  bool      `json:"completed"`
	CreatedAt  time.Time `json:"createdAt"`
}
