package logs

import (
	"context"
	"sort"
	"time"

	"github.com/dynalog-app/backend/internal/exercises"

	"github.com/google/uuid"
)

type repoMock struct {
	logs map[string]*Log
}

func NewMockLogsRepo() *repoMock {
	return &repoMock{
		logs: make(map[string]*Log),
	}
}

func (r *repoMock) Add(_ context.Context, exerciseLog Log) (*Log, error) {
	exerciseLog.ID = uuid.NewString()
	exerciseLog.CreatedAt = time.Now()
	r.logs[exerciseLog.ID] = &exerciseLog
	return &exerciseLog, nil
}

func (r *repoMock) Get(_ context.Context, id string) (*Log, error) {
	exerciseLog, ok := r.logs[id]
	if !ok {
		return nil, ErrLogNotFound
	}
	return exerciseLog, nil
}

func (r *repoMock) ListForSession(_ context.Context, sessionID string) ([]Log, error) {
	var sessionLogs []Log
	for _, l := range r.logs {
		if l.SessionID == sessionID {
			sessionLogs = append(sessionLogs, *l)
		}
	}
	sort.Slice(sessionLogs, func(i, j int) bool {
		return sessionLogs[i].CreatedAt.Before(sessionLogs[j].CreatedAt)
	})
	return sessionLogs, nil
}

func (r *repoMock) Update(ctx context.Context, id string, params UpdateParams) (*Log, error) {
	exerciseLog, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if params.SetNumber != nil {
		exerciseLog.SetNumber = *params.SetNumber
	}
	if params.Weight != nil {
		exerciseLog.Weight = *params.Weight
	}
	if params.Reps != nil {
		exerciseLog.Reps = *params.Reps
	}
	if params.Completed != nil {
		exerciseLog.Completed = *params.Completed
	}
	return exerciseLog, nil
}

func (r *repoMock) Delete(_ context.Context, id string) error {
	if _, ok := r.logs[id]; !ok {
		return ErrLogNotFound
	}
	delete(r.logs, id)
	return nil
}

type sessionsRepoMock struct {
	sessions map[string]*SessionInfo
}

func NewMockSessionsRepo() *sessionsRepoMock {
	return &sessionsRepoMock{
		sessions: make(map[string]*SessionInfo),
	}
}

func (r *sessionsRepoMock) SessionInfo(_ context.Context, id string) (*SessionInfo, error) {
	session, ok := r.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return session, nil
}

type exercisesRepoMock struct {
	exercises map[string]*exercises.Exercise
}

func NewMockExercisesRepo() *exercisesRepoMock {
	return &exercisesRepoMock{
		exercises: make(map[string]*exercises.Exercise),
	}
}

func (r *exercisesRepoMock) Get(_ context.Context, id string) (*exercises.Exercise, error) {
	exercise, ok := r.exercises[id]
	if !ok {
		return nil, exercises.ErrExerciseNotFound
	}
	return exercise, nil
}
