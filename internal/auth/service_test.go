package auth

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/go-redis/redismock/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

const testUserID = "user-id-1"

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		// INFO: https://github.com/go-redis/redis/issues/1029
		goleak.IgnoreTopFunction(
			"github.com/go-redis/redis/v8/internal/pool.(*ConnPool).reaper",
		),
	)
}

func TestService_Login(t *testing.T) {
	db, mock := redismock.NewClientMock()
	defer db.Close()

	authService := NewService(time.Hour, db)
	require.NotNil(t, authService)
	assert.NotNil(t, authService.redisClient)
	assert.Equal(t, time.Hour, authService.ttl)

	testToken := "test_token"
	randStringFunc := func(s int) (string, error) {
		return testToken, nil
	}
	authService.RandStringFunc = randStringFunc

	now := time.Now()
	sessionKey := sessionKeyPrefix + testToken
	sessionVal := fmt.Sprintf("%s|%d", testUserID, now.Unix())
	mock.ExpectSet(sessionKey, sessionVal, 0).SetVal(sessionVal)
	mock.ExpectSAdd(tokensSetKey, testToken).SetVal(1)

	token, err := authService.Login(context.Background(), testUserID, now)
	require.NoError(t, err)
	assert.Equal(t, testToken, token)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestService_Logout(t *testing.T) {
	db, mock := redismock.NewClientMock()
	defer db.Close()

	authService := NewService(time.Hour, db)
	require.NotNil(t, authService)

	ctx := context.Background()

	testToken := "test_token"
	sessionKey := sessionKeyPrefix + testToken
	sessionVal := fmt.Sprintf("%s|%d", testUserID, time.Now().Unix())

	mock.ExpectGet(sessionKey).SetVal(sessionVal)
	mock.ExpectDel(sessionKey).SetVal(1)
	mock.ExpectSRem(tokensSetKey, testToken).SetVal(1)
	require.NoError(t, authService.Logout(ctx, testToken))

	// unknown token
	mock.ExpectGet(sessionKeyPrefix + "unknown").RedisNil()
	err := authService.Logout(ctx, "unknown")
	assert.ErrorIs(t, err, ErrTokenNotFound)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestService_ScanAndClean(t *testing.T) {
	ttl := time.Hour
	now := time.Now()
	then := now.Add(-2 * time.Hour)

	rdb, mock := redismock.NewClientMock()
	defer rdb.Close()

	authService := NewService(ttl, rdb)
	require.NotNil(t, authService)

	// expected calls
	t1, t2 := "token1", "token2"
	mock.ExpectSMembers(tokensSetKey).SetVal([]string{t1, t2})
	mock.ExpectGet(sessionKeyPrefix + t1).SetVal(fmt.Sprintf("%s|%d", testUserID, then.Unix()))
	mock.ExpectGet(sessionKeyPrefix + t2).SetVal(fmt.Sprintf("%s|%d", testUserID, now.Unix()))
	// expect deleted only t1, old session
	mock.ExpectDel(sessionKeyPrefix + t1).SetVal(1)
	mock.ExpectSRem(tokensSetKey, t1).SetVal(1)

	authService.ScanAndClean(context.Background())

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestParseSessionValue(t *testing.T) {
	now := time.Now()
	userID, createdAt, err := parseSessionValue(fmt.Sprintf("%s|%d", testUserID, now.Unix()))
	require.NoError(t, err)
	assert.Equal(t, testUserID, userID)
	assert.Equal(t, now.Unix(), createdAt.Unix())

	_, _, err = parseSessionValue("garbage")
	require.Error(t, err)

	_, _, err = parseSessionValue("user|not-a-number")
	require.Error(t, err)
}
