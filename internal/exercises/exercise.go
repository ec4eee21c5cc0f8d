package exercises

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrExerciseNotFound = errors.New("exercise not found")
	ErrNotInRoutine     = errors.New("exercise does not belong to routine")
	ErrRoutineNotFound  = errors.New("routine not found")
)

// RoutineInfo is the slice of the owning routine the handlers need for
// ownership checks. The routines repo implements the lookup.
type RoutineInfo struct {
	ID     string
	UserID string
}

// Exercise is one entry of a routine: target weight, sets (series),
// reps and rest time, kept in a dense order_index sequence per routine.
type Exercise struct {
	ID          string    `json:"id"`
	RoutineID   string    `json:"routineId"`
	Name        string    `json:"name"`
	Description *string   `json:"description"`
	Weight      float64   `json:"weight"`
	Series      int       `json:"series"`
	Reps        int       `json:"reps"`
	RestTime    int       `json:"restTime"`
	OrderIndex  int       `json:"orderIndex"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"-"`
}

type MoveDirection string

const (
	MoveUp   MoveDirection = "up"
	MoveDown MoveDirection = "down"
)

func ParseMoveDirection(s string) (MoveDirection, error) {
	switch MoveDirection(s) {
	case MoveUp, MoveDown:
		return MoveDirection(s), nil
	default:
		return "", fmt.Errorf("invalid move direction [%s]", s)
	}
}
