package exercises

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
)

type repoMock struct {
	exercises map[string]*Exercise
}

func NewMockExercisesRepo() *repoMock {
	return &repoMock{
		exercises: make(map[string]*Exercise),
	}
}

func (r *repoMock) Add(_ context.Context, exercise Exercise) (*Exercise, error) {
	exercise.ID = uuid.NewString()
	exercise.OrderIndex = len(r.routineExercises(exercise.RoutineID))
	exercise.CreatedAt = time.Now()
	r.exercises[exercise.ID] = &exercise
	return &exercise, nil
}

func (r *repoMock) Get(_ context.Context, id string) (*Exercise, error) {
	exercise, ok := r.exercises[id]
	if !ok {
		return nil, ErrExerciseNotFound
	}
	return exercise, nil
}

func (r *repoMock) ListForRoutine(_ context.Context, routineID string) ([]Exercise, error) {
	ordered := r.routineExercises(routineID)
	listed := make([]Exercise, 0, len(ordered))
	for _, e := range ordered {
		listed = append(listed, *e)
	}
	return listed, nil
}

func (r *repoMock) Update(ctx context.Context, id string, params UpdateParams) (*Exercise, error) {
	exercise, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if params.Name != nil {
		exercise.Name = *params.Name
	}
	if params.Description != nil {
		exercise.Description = params.Description
	}
	if params.Weight != nil {
		exercise.Weight = *params.Weight
	}
	if params.Series != nil {
		exercise.Series = *params.Series
	}
	if params.Reps != nil {
		exercise.Reps = *params.Reps
	}
	if params.RestTime != nil {
		exercise.RestTime = *params.RestTime
	}
	return exercise, nil
}

func (r *repoMock) Delete(_ context.Context, id string) error {
	exercise, ok := r.exercises[id]
	if !ok {
		return ErrExerciseNotFound
	}
	delete(r.exercises, id)
	for _, e := range r.routineExercises(exercise.RoutineID) {
		if e.OrderIndex > exercise.OrderIndex {
			e.OrderIndex--
		}
	}
	return nil
}

func (r *repoMock) Reorder(_ context.Context, routineID string, ids []string) error {
	current := r.routineExercises(routineID)
	if len(ids) != len(current) {
		return ErrNotInRoutine
	}
	currentIDs := make(map[string]bool, len(current))
	for _, e := range current {
		currentIDs[e.ID] = true
	}
	for _, id := range ids {
		if !currentIDs[id] {
			return ErrNotInRoutine
		}
	}
	for i, id := range ids {
		r.exercises[id].OrderIndex = i
	}
	return nil
}

func (r *repoMock) Move(ctx context.Context, id string, direction MoveDirection) error {
	exercise, err := r.Get(ctx, id)
	if err != nil {
		return err
	}
	neighbourIndex := exercise.OrderIndex + 1
	if direction == MoveUp {
		neighbourIndex = exercise.OrderIndex - 1
	}
	for _, e := range r.routineExercises(exercise.RoutineID) {
		if e.OrderIndex == neighbourIndex {
			e.OrderIndex, exercise.OrderIndex = exercise.OrderIndex, e.OrderIndex
			return nil
		}
	}
	// already at the edge
	return nil
}

func (r *repoMock) routineExercises(routineID string) []*Exercise {
	var ordered []*Exercise
	for _, e := range r.exercises {
		if e.RoutineID == routineID {
			ordered = append(ordered, e)
		}
	}
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].OrderIndex < ordered[j].OrderIndex
	})
	return ordered
}

type routinesRepoMock struct {
	routines map[string]*RoutineInfo
}

func NewMockRoutinesRepo() *routinesRepoMock {
	return &routinesRepoMock{
		routines: make(map[string]*RoutineInfo),
	}
}

func (r *routinesRepoMock) RoutineInfo(_ context.Context, id string) (*RoutineInfo, error) {
	routine, ok := r.routines[id]
	if !ok {
		return nil, ErrRoutineNotFound
	}
	return routine, nil
}
