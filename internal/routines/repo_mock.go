package routines

import (
	"context"
	"time"

	"github.com/dynalog-app/backend/internal/exercises"

	"github.com/google/uuid"
)

type repoMock struct {
	routines map[string]*Routine
}

func NewMockRoutinesRepo() *repoMock {
	return &repoMock{
		routines: make(map[string]*Routine),
	}
}

func (r *repoMock) Add(_ context.Context, routine Routine) (*Routine, error) {
	routine.ID = uuid.NewString()
	routine.CreatedAt = time.Now()
	routine.UpdatedAt = routine.CreatedAt
	r.routines[routine.ID] = &routine
	return &routine, nil
}

func (r *repoMock) Get(_ context.Context, id string) (*Routine, error) {
	routine, ok := r.routines[id]
	if !ok {
		return nil, ErrRoutineNotFound
	}
	return routine, nil
}

func (r *repoMock) ListForUser(_ context.Context, userID string) ([]Routine, error) {
	var userRoutines []Routine
	for _, routine := range r.routines {
		if routine.UserID == userID {
			userRoutines = append(userRoutines, *routine)
		}
	}
	return userRoutines, nil
}

func (r *repoMock) Update(ctx context.Context, id string, name, description *string) (*Routine, error) {
	routine, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if name != nil {
		routine.Name = *name
	}
	if description != nil {
		routine.Description = description
	}
	routine.UpdatedAt = time.Now()
	return routine, nil
}

func (r *repoMock) Delete(_ context.Context, id string) error {
	if _, ok := r.routines[id]; !ok {
		return ErrRoutineNotFound
	}
	delete(r.routines, id)
	return nil
}

type exercisesRepoMock struct {
	perRoutine map[string][]exercises.Exercise
}

func NewMockExercisesRepo() *exercisesRepoMock {
	return &exercisesRepoMock{
		perRoutine: make(map[string][]exercises.Exercise),
	}
}

func (r *exercisesRepoMock) ListForRoutine(_ context.Context, routineID string) ([]exercises.Exercise, error) {
	routineExercises := r.perRoutine[routineID]
	if routineExercises == nil {
		routineExercises = []exercises.Exercise{}
	}
	return routineExercises, nil
}
