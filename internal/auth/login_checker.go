package auth

import (
	"context"
	"errors"
	"time"

	"github.com/coocood/freecache"
	"github.com/go-redis/redis/v8"
)

const (
	checkerCacheSize = 10 * 1024 * 1024
	// short expiry, so that logout and session cleanup are not
	// delayed by stale cache entries for too long
	checkerCacheExpireSeconds = 60
)

var ErrNotLoggedIn = errors.New("not logged in")

// LoginChecker checks auth tokens against the redis session store,
// with a small in-process cache in front to save a round trip on the
// hot path (every authenticated request goes through here).
type LoginChecker struct {
	ttl         time.Duration
	redisClient *redis.Client
	cache       *freecache.Cache
}

func NewLoginChecker(ttl time.Duration, redisClient *redis.Client) *LoginChecker {
	return &LoginChecker{
		ttl:         ttl,
		redisClient: redisClient,
		cache:       freecache.NewCache(checkerCacheSize),
	}
}

func (c *LoginChecker) UserIDForToken(ctx context.Context, token string) (string, error) {
	if userID, err := c.cache.Get([]byte(token)); err == nil {
		return string(userID), nil
	}

	sessionKey := sessionKeyPrefix + token
	cmd := c.redisClient.Get(ctx, sessionKey)
	if err := cmd.Err(); err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrNotLoggedIn
		}
		return "", err
	}

	userID, createdAt, err := parseSessionValue(cmd.Val())
	if err != nil {
		return "", err
	}

	if time.Since(createdAt) > c.ttl {
		return "", ErrNotLoggedIn
	}

	_ = c.cache.Set([]byte(token), []byte(userID), checkerCacheExpireSeconds)

	return userID, nil
}
