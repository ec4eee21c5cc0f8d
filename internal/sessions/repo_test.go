//go:build integration_test || all_tests

package sessions

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/dynalog-app/backend/internal/db"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRepoSetup(t *testing.T) (*Repo, func()) {
	t.Helper()

	timeoutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	host := os.Getenv("POSTGRES_HOST")
	if host == "" {
		host = "localhost"
	}
	t.Logf("using postgres host: %s", host)

	dbPool, err := db.NewDBPool(timeoutCtx, db.NewDBPoolParams{
		DBHost:         host,
		DBPort:         "5432",
		DBName:         "dynalog",
		TracingEnabled: false,
	})
	require.NoError(t, err)

	return NewRepo(dbPool), func() {
		dbPool.Close()
	}
}

// seedUserAndRoutine creates the rows the session FKs point at.
func seedUserAndRoutine(ctx context.Context, t *testing.T, repo *Repo) (userID, routineID string) {
	t.Helper()

	userID, routineID = uuid.NewString(), uuid.NewString()
	now := time.Now()

	_, err := repo.db.Exec(
		ctx,
		`INSERT INTO users (id, email, password_hash, name, created_at, updated_at)
			VALUES ($1, $2, 'hash', $3, $4, $4);`,
		userID, userID+"@dynalog.app", gofakeit.Name(), now,
	)
	require.NoError(t, err)

	_, err = repo.db.Exec(
		ctx,
		`INSERT INTO routines (id, user_id, name, created_at, updated_at)
			VALUES ($1, $2, 'Push Day', $3, $3);`,
		routineID, userID, now,
	)
	require.NoError(t, err)

	return userID, routineID
}

func TestRepo_SessionLifecycle(t *testing.T) {
	repo, shutdown := testRepoSetup(t)
	defer shutdown()

	ctx := context.Background()
	userID, routineID := seedUserAndRoutine(ctx, t, repo)

	_, err := repo.GetActive(ctx, userID)
	require.ErrorIs(t, err, ErrSessionNotFound)

	started, err := repo.Add(ctx, userID, routineID)
	require.NoError(t, err)
	require.NotNil(t, started)
	assert.True(t, started.IsActive())

	active, err := repo.GetActive(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, started.ID, active.ID)

	// the partial unique index rejects a second active session
	_, err = repo.Add(ctx, userID, routineID)
	var activeSessionErr ActiveSessionError
	require.True(t, errors.As(err, &activeSessionErr))
	assert.Equal(t, started.ID, activeSessionErr.ActiveSessionID)

	notes := "felt strong today"
	completed, err := repo.Complete(ctx, started.ID, &notes)
	require.NoError(t, err)
	assert.False(t, completed.IsActive())
	require.NotNil(t, completed.Notes)
	assert.Equal(t, notes, *completed.Notes)

	_, err = repo.Complete(ctx, started.ID, nil)
	assert.ErrorIs(t, err, ErrAlreadyDone)

	// completing frees the slot for a new session
	second, err := repo.Add(ctx, userID, routineID)
	require.NoError(t, err)
	assert.NotEqual(t, started.ID, second.ID)

	require.NoError(t, repo.Delete(ctx, second.ID))
	assert.ErrorIs(t, repo.Delete(ctx, second.ID), ErrSessionNotFound)
}

func TestRepo_List_pagination(t *testing.T) {
	repo, shutdown := testRepoSetup(t)
	defer shutdown()

	ctx := context.Background()
	userID, routineID := seedUserAndRoutine(ctx, t, repo)

	sessionIDs := make([]string, 0, 3)
	for i := 0; i < 3; i++ {
		session, err := repo.Add(ctx, userID, routineID)
		require.NoError(t, err)
		_, err = repo.Complete(ctx, session.ID, nil)
		require.NoError(t, err)
		sessionIDs = append(sessionIDs, session.ID)
		time.Sleep(10 * time.Millisecond)
	}

	page1, err := repo.List(ctx, userID, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, 3, page1.Total)
	assert.True(t, page1.HasMore)
	require.Len(t, page1.Sessions, 2)
	assert.Equal(t, sessionIDs[2], page1.Sessions[0].ID)
	assert.Equal(t, sessionIDs[1], page1.Sessions[1].ID)

	page2, err := repo.List(ctx, userID, 2, 2)
	require.NoError(t, err)
	assert.False(t, page2.HasMore)
	require.Len(t, page2.Sessions, 1)
	assert.Equal(t, sessionIDs[0], page2.Sessions[0].ID)

	forRoutine, err := repo.ListForRoutine(ctx, routineID)
	require.NoError(t, err)
	require.Len(t, forRoutine, 3)
	// oldest first for the progress timeline
	assert.Equal(t, sessionIDs[0], forRoutine[0].ID)
}
