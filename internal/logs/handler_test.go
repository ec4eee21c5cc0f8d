package logs

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dynalog-app/backend/internal/auth"
	"github.com/dynalog-app/backend/internal/exercises"
	"github.com/dynalog-app/backend/internal/telemetry/metrics"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

const (
	testUserID     = "user-1"
	testRoutineID  = "routine-1"
	testSessionID  = "session-1"
	testExerciseID = "exercise-1"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		// INFO: https://github.com/go-redis/redis/issues/1029
		goleak.IgnoreTopFunction(
			"github.com/go-redis/redis/v8/internal/pool.(*ConnPool).reaper",
		),
	)
}

type logsTestEnv struct {
	router        *mux.Router
	repo          *repoMock
	sessionsRepo  *sessionsRepoMock
	exercisesRepo *exercisesRepoMock
}

func logsTestSetup() logsTestEnv {
	repo := NewMockLogsRepo()
	sessionsRepo := NewMockSessionsRepo()
	exercisesRepo := NewMockExercisesRepo()

	sessionsRepo.sessions[testSessionID] = &SessionInfo{
		ID:        testSessionID,
		UserID:    testUserID,
		RoutineID: testRoutineID,
		Active:    true,
	}
	exercisesRepo.exercises[testExerciseID] = &exercises.Exercise{
		ID:        testExerciseID,
		RoutineID: testRoutineID,
		Name:      "Bench Press",
		Weight:    60,
		Series:    4,
		Reps:      8,
		RestTime:  120,
	}

	handler := NewHandler(repo, sessionsRepo, exercisesRepo, metrics.NewTestManager())

	r := mux.NewRouter()
	r.HandleFunc("/sessions/{id}/logs", handler.HandleAdd).Methods("POST")
	r.HandleFunc("/logs/{id}", handler.HandleUpdate).Methods("PATCH")
	r.HandleFunc("/logs/{id}", handler.HandleDelete).Methods("DELETE")
	return logsTestEnv{
		router:        r,
		repo:          repo,
		sessionsRepo:  sessionsRepo,
		exercisesRepo: exercisesRepo,
	}
}

func logRequest(t *testing.T, userID, method, url string, body any) *http.Request {
	t.Helper()
	bodyJson, err := json.Marshal(body)
	require.NoError(t, err)
	req, err := http.NewRequest(method, url, bytes.NewReader(bodyJson))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	return req.WithContext(auth.ContextWithUserID(context.Background(), userID))
}

func TestHandler_HandleAdd(t *testing.T) {
	env := logsTestSetup()

	rr := httptest.NewRecorder()
	env.router.ServeHTTP(rr, logRequest(t, testUserID, "POST", "/sessions/"+testSessionID+"/logs", map[string]any{
		"exerciseId": testExerciseID,
		"setNumber":  1,
	}))
	require.Equal(t, http.StatusCreated, rr.Code)

	var added Log
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &added))
	assert.NotEmpty(t, added.ID)
	assert.Equal(t, testSessionID, added.SessionID)
	assert.Equal(t, 1, added.SetNumber)
	// weight and reps default to the exercise targets
	assert.Equal(t, float64(60), added.Weight)
	assert.Equal(t, 8, added.Reps)
	assert.True(t, added.Completed)

	// explicit values win over the targets
	rr = httptest.NewRecorder()
	env.router.ServeHTTP(rr, logRequest(t, testUserID, "POST", "/sessions/"+testSessionID+"/logs", map[string]any{
		"exerciseId": testExerciseID,
		"setNumber":  2,
		"weight":     55,
		"reps":       6,
		"completed":  false,
	}))
	require.Equal(t, http.StatusCreated, rr.Code)
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &added))
	assert.Equal(t, float64(55), added.Weight)
	assert.Equal(t, 6, added.Reps)
	assert.False(t, added.Completed)
}

func TestHandler_HandleAdd_completedSession(t *testing.T) {
	env := logsTestSetup()

	env.sessionsRepo.sessions[testSessionID].Active = false

	rr := httptest.NewRecorder()
	env.router.ServeHTTP(rr, logRequest(t, testUserID, "POST", "/sessions/"+testSessionID+"/logs", map[string]any{
		"exerciseId": testExerciseID,
		"setNumber":  1,
	}))
	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Contains(t, rr.Body.String(), "cannot log to a completed session")
}

func TestHandler_HandleAdd_checks(t *testing.T) {
	env := logsTestSetup()

	// exercise from another routine
	env.exercisesRepo.exercises["stranger"] = &exercises.Exercise{
		ID:        "stranger",
		RoutineID: "routine-2",
		Name:      "Squat",
	}
	rr := httptest.NewRecorder()
	env.router.ServeHTTP(rr, logRequest(t, testUserID, "POST", "/sessions/"+testSessionID+"/logs", map[string]any{
		"exerciseId": "stranger",
		"setNumber":  1,
	}))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "exercise does not belong to session routine")

	// unknown session
	rr = httptest.NewRecorder()
	env.router.ServeHTTP(rr, logRequest(t, testUserID, "POST", "/sessions/unknown/logs", map[string]any{
		"exerciseId": testExerciseID,
		"setNumber":  1,
	}))
	assert.Equal(t, http.StatusNotFound, rr.Code)

	// someone else's session
	rr = httptest.NewRecorder()
	env.router.ServeHTTP(rr, logRequest(t, "intruder", "POST", "/sessions/"+testSessionID+"/logs", map[string]any{
		"exerciseId": testExerciseID,
		"setNumber":  1,
	}))
	assert.Equal(t, http.StatusForbidden, rr.Code)

	// set number missing
	rr = httptest.NewRecorder()
	env.router.ServeHTTP(rr, logRequest(t, testUserID, "POST", "/sessions/"+testSessionID+"/logs", map[string]any{
		"exerciseId": testExerciseID,
	}))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestHandler_HandleUpdate(t *testing.T) {
	env := logsTestSetup()

	added, err := env.repo.Add(context.Background(), Log{
		SessionID:  testSessionID,
		ExerciseID: testExerciseID,
		SetNumber:  1,
		Weight:     60,
		Reps:       8,
		Completed:  true,
	})
	require.NoError(t, err)

	rr := httptest.NewRecorder()
	env.router.ServeHTTP(rr, logRequest(t, testUserID, "PATCH", "/logs/"+added.ID, map[string]any{
		"reps": 7,
	}))
	require.Equal(t, http.StatusOK, rr.Code)

	var updated Log
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &updated))
	assert.Equal(t, 7, updated.Reps)
	assert.Equal(t, float64(60), updated.Weight)

	// corrections stay possible after the session completes
	env.sessionsRepo.sessions[testSessionID].Active = false
	rr = httptest.NewRecorder()
	env.router.ServeHTTP(rr, logRequest(t, testUserID, "PATCH", "/logs/"+added.ID, map[string]any{
		"reps": 10,
	}))
	require.Equal(t, http.StatusOK, rr.Code)
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &updated))
	assert.Equal(t, 10, updated.Reps)
}

func TestHandler_HandleDelete(t *testing.T) {
	env := logsTestSetup()

	added, err := env.repo.Add(context.Background(), Log{
		SessionID:  testSessionID,
		ExerciseID: testExerciseID,
		SetNumber:  1,
	})
	require.NoError(t, err)

	// intruder first
	rr := httptest.NewRecorder()
	env.router.ServeHTTP(rr, logRequest(t, "intruder", "DELETE", "/logs/"+added.ID, nil))
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = httptest.NewRecorder()
	env.router.ServeHTTP(rr, logRequest(t, testUserID, "DELETE", "/logs/"+added.ID, nil))
	require.Equal(t, http.StatusOK, rr.Code)

	_, err = env.repo.Get(context.Background(), added.ID)
	assert.ErrorIs(t, err, ErrLogNotFound)

	// deleting it again is a 404
	rr = httptest.NewRecorder()
	env.router.ServeHTTP(rr, logRequest(t, testUserID, "DELETE", "/logs/"+added.ID, nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}
