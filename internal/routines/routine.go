package routines

import (
	"errors"
	"time"
)

var (
	ErrRoutineNotFound = errors.New("routine not found")
	ErrNotOwner        = errors.New("routine not owned by user")
)

// Routine is a named, user-owned template of exercises.
type Routine struct {
	ID          string    `json:"id"`
	UserID      string    `json:"userId"`
	Name        string    `json:"name"`
	Description *string   `json:"description"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"-"`
}
