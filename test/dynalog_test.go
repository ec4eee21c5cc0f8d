package test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/dynalog-app/backend/internal/exercises"
	"github.com/dynalog-app/backend/internal/logs"
	"github.com/dynalog-app/backend/internal/progress"
	"github.com/dynalog-app/backend/internal/routines"
	"github.com/dynalog-app/backend/internal/sessions"
	"github.com/dynalog-app/backend/internal/users"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (s *IntegrationTestSuite) doJSON(
	ctx context.Context,
	method, path, token string,
	body any,
	expectedStatus int,
	out any,
) {
	t := s.T()
	t.Helper()

	var reqBody io.Reader
	if body != nil {
		bodyJson, err := json.Marshal(body)
		require.NoError(t, err)
		reqBody = bytes.NewReader(bodyJson)
	}

	req, err := http.NewRequestWithContext(ctx, method, serverEndpoint+path, reqBody)
	require.NoError(t, err)
	req.Header.Set("User-Agent", "test-agent")
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("X-DYNALOG-TOKEN", token)
	}

	resp, err := s.httpClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Equal(t, expectedStatus, resp.StatusCode, "response: %s", respBytes)

	if out != nil {
		require.NoError(t, json.Unmarshal(respBytes, out))
	}
}

func (s *IntegrationTestSuite) signUp(ctx context.Context, email, name string) users.AuthResponse {
	var authResp users.AuthResponse
	s.doJSON(ctx, "POST", "/auth/sign-up", "", map[string]string{
		"email":    email,
		"password": "super-secret-pw",
		"name":     name,
	}, http.StatusCreated, &authResp)
	return authResp
}

func (s *IntegrationTestSuite) TestWorkoutFlow() {
	t := s.T()
	ctx := context.Background()

	authResp := s.signUp(ctx, "repdaddy@dynalog.app", "Rep Daddy")
	require.NotEmpty(t, authResp.Token)
	require.NotNil(t, authResp.User)
	token := authResp.Token

	// duplicate email is rejected
	s.doJSON(ctx, "POST", "/auth/sign-up", "", map[string]string{
		"email":    "repdaddy@dynalog.app",
		"password": "super-secret-pw",
		"name":     "Copycat",
	}, http.StatusConflict, nil)

	var routine routines.Routine
	s.doJSON(ctx, "POST", "/routines", token, map[string]string{
		"name": "Push Day",
	}, http.StatusCreated, &routine)

	var benchPress exercises.Exercise
	s.doJSON(ctx, "POST", fmt.Sprintf("/routines/%s/exercises", routine.ID), token, map[string]any{
		"name":     "Bench Press",
		"weight":   60,
		"series":   4,
		"reps":     8,
		"restTime": 120,
	}, http.StatusCreated, &benchPress)
	assert.Equal(t, 0, benchPress.OrderIndex)

	var ohp exercises.Exercise
	s.doJSON(ctx, "POST", fmt.Sprintf("/routines/%s/exercises", routine.ID), token, map[string]any{
		"name": "Overhead Press",
	}, http.StatusCreated, &ohp)
	assert.Equal(t, 1, ohp.OrderIndex)
	// defaults applied
	assert.Equal(t, 3, ohp.Series)
	assert.Equal(t, 10, ohp.Reps)
	assert.Equal(t, 60, ohp.RestTime)

	var session sessions.Session
	s.doJSON(ctx, "POST", "/sessions", token, map[string]string{
		"routineId": routine.ID,
	}, http.StatusCreated, &session)
	require.True(t, session.IsActive())

	// second start conflicts and points back at the running session
	var conflict sessions.ActiveSessionConflictResponse
	s.doJSON(ctx, "POST", "/sessions", token, map[string]string{
		"routineId": routine.ID,
	}, http.StatusConflict, &conflict)
	assert.Equal(t, session.ID, conflict.ActiveSessionID)

	for set := 1; set <= 2; set++ {
		var setLog logs.Log
		s.doJSON(ctx, "POST", fmt.Sprintf("/sessions/%s/logs", session.ID), token, map[string]any{
			"exerciseId": benchPress.ID,
			"setNumber":  set,
			"weight":     60,
			"reps":       8,
		}, http.StatusCreated, &setLog)
		assert.True(t, setLog.Completed)
	}

	var completed sessions.Session
	s.doJSON(ctx, "POST", fmt.Sprintf("/sessions/%s/complete", session.ID), token, map[string]string{
		"notes": "solid pump",
	}, http.StatusOK, &completed)
	require.False(t, completed.IsActive())

	// logging into a completed session is rejected
	s.doJSON(ctx, "POST", fmt.Sprintf("/sessions/%s/logs", session.ID), token, map[string]any{
		"exerciseId": benchPress.ID,
		"setNumber":  3,
	}, http.StatusConflict, nil)

	var routineProgress progress.RoutineProgress
	s.doJSON(ctx, "GET", fmt.Sprintf("/routines/%s/progress", routine.ID), token,
		nil, http.StatusOK, &routineProgress)
	assert.Equal(t, routine.ID, routineProgress.Routine.ID)
	require.Len(t, routineProgress.ExerciseProgress, 2)

	benchProgress := routineProgress.ExerciseProgress[0]
	assert.Equal(t, benchPress.ID, benchProgress.ExerciseID)
	require.Len(t, benchProgress.DataPoints, 1)
	point := benchProgress.DataPoints[0]
	assert.InDelta(t, 960, point.TotalVolume, 0.001)
	assert.InDelta(t, 60, point.MaxWeight, 0.001)
	assert.Equal(t, 16, point.TotalReps)
	assert.Equal(t, 2, point.SetsCompleted)
	assert.InDelta(t, 8.00, point.Dynascore, 0.001)

	// never-logged exercise still shows up, with an empty series
	assert.Equal(t, ohp.ID, routineProgress.ExerciseProgress[1].ExerciseID)
	assert.Empty(t, routineProgress.ExerciseProgress[1].DataPoints)
}

func (s *IntegrationTestSuite) TestOwnership() {
	t := s.T()
	ctx := context.Background()

	owner := s.signUp(ctx, "owner@dynalog.app", "Owner")
	intruder := s.signUp(ctx, "intruder@dynalog.app", "Intruder")

	var routine routines.Routine
	s.doJSON(ctx, "POST", "/routines", owner.Token, map[string]string{
		"name": "Leg Day",
	}, http.StatusCreated, &routine)

	// someone else's routine is forbidden, a missing one is not found
	s.doJSON(ctx, "GET", "/routines/"+routine.ID, intruder.Token, nil, http.StatusForbidden, nil)
	s.doJSON(ctx, "GET", "/routines/no-such-routine", intruder.Token, nil, http.StatusNotFound, nil)

	// no token at all
	s.doJSON(ctx, "GET", "/routines", "", nil, http.StatusUnauthorized, nil)

	require.NotEmpty(t, routine.UserID)
}
