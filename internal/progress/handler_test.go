package progress_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dynalog-app/backend/internal/auth"
	"github.com/dynalog-app/backend/internal/progress"
	"github.com/dynalog-app/backend/internal/routines"
	"github.com/dynalog-app/backend/internal/telemetry/metrics"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testUserID = "user-1"

type analyzerStub struct {
	gotRoutineID string
	gotUserID    string
	gotWindow    progress.Window

	result *progress.RoutineProgress
	err    error
}

func (a *analyzerStub) Compute(
	_ context.Context,
	routineID, userID string,
	window progress.Window,
) (*progress.RoutineProgress, error) {
	a.gotRoutineID = routineID
	a.gotUserID = userID
	a.gotWindow = window
	if a.err != nil {
		return nil, a.err
	}
	return a.result, nil
}

func progressTestSetup(t *testing.T, stub *analyzerStub) *mux.Router {
	t.Helper()

	handler := progress.NewHandler(stub, metrics.NewTestManager())

	r := mux.NewRouter()
	r.HandleFunc("/routines/{id}/progress", handler.HandleGet).Methods("GET")
	return r
}

func progressRequest(t *testing.T, url string) *http.Request {
	t.Helper()
	req, err := http.NewRequest("GET", url, nil)
	require.NoError(t, err)
	return req.WithContext(auth.ContextWithUserID(req.Context(), testUserID))
}

func TestHandler_HandleGet(t *testing.T) {
	stub := &analyzerStub{
		result: &progress.RoutineProgress{
			Routine: progress.ProgressRoutine{
				ID:   "routine-1",
				Name: "Push Day",
			},
			ExerciseProgress: []progress.ExerciseProgress{
				{
					ExerciseID:   "ex-bench",
					ExerciseName: "Bench Press",
					DataPoints: []progress.DataPoint{
						{
							Date:          time.Date(2025, 2, 1, 18, 0, 0, 0, time.UTC),
							Dynascore:     8,
							TotalVolume:   960,
							MaxWeight:     60,
							TotalReps:     16,
							SetsCompleted: 2,
						},
					},
				},
			},
		},
	}
	router := progressTestSetup(t, stub)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, progressRequest(t, "/routines/routine-1/progress"))

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "routine-1", stub.gotRoutineID)
	assert.Equal(t, testUserID, stub.gotUserID)
	// no query params means no windowing at all
	assert.Equal(t, progress.Window{}, stub.gotWindow)

	// the routine rides nested, next to the per-exercise series
	var raw map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &raw))
	require.Contains(t, raw, "routine")
	require.Contains(t, raw, "exerciseProgress")

	var routineProgress progress.RoutineProgress
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &routineProgress))
	assert.Equal(t, "Push Day", routineProgress.Routine.Name)
	require.Len(t, routineProgress.ExerciseProgress, 1)
	require.Len(t, routineProgress.ExerciseProgress[0].DataPoints, 1)
	assert.InDelta(t, 8, routineProgress.ExerciseProgress[0].DataPoints[0].Dynascore, 0.001)
}

func TestHandler_HandleGet_windowParams(t *testing.T) {
	stub := &analyzerStub{result: &progress.RoutineProgress{
		Routine: progress.ProgressRoutine{ID: "routine-1"},
	}}
	router := progressTestSetup(t, stub)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, progressRequest(t, "/routines/routine-1/progress?timeframe=3m"))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, progress.Window{
		Timeframe: progress.TimeframeQuarter,
		MaxPoints: progress.DefaultMaxPoints,
	}, stub.gotWindow)

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, progressRequest(t, "/routines/routine-1/progress?timeframe=1y&maxPoints=12"))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, progress.Window{
		Timeframe: progress.TimeframeYear,
		MaxPoints: 12,
	}, stub.gotWindow)
}

func TestHandler_HandleGet_badParams(t *testing.T) {
	stub := &analyzerStub{result: &progress.RoutineProgress{}}
	router := progressTestSetup(t, stub)

	for name, url := range map[string]string{
		"unknown timeframe":   "/routines/routine-1/progress?timeframe=2w",
		"maxPoints not a num": "/routines/routine-1/progress?maxPoints=lots",
		"maxPoints zero":      "/routines/routine-1/progress?maxPoints=0",
		"maxPoints negative":  "/routines/routine-1/progress?maxPoints=-3",
	} {
		t.Run(name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, progressRequest(t, url))
			assert.Equal(t, http.StatusBadRequest, rr.Code)
		})
	}
}

func TestHandler_HandleGet_errors(t *testing.T) {
	for name, tc := range map[string]struct {
		err        error
		wantStatus int
	}{
		"routine not found": {err: routines.ErrRoutineNotFound, wantStatus: http.StatusNotFound},
		"not the owner":     {err: routines.ErrNotOwner, wantStatus: http.StatusForbidden},
		"repo blew up":      {err: assert.AnError, wantStatus: http.StatusInternalServerError},
	} {
		t.Run(name, func(t *testing.T) {
			router := progressTestSetup(t, &analyzerStub{err: tc.err})
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, progressRequest(t, "/routines/routine-1/progress"))
			assert.Equal(t, tc.wantStatus, rr.Code)
		})
	}
}
