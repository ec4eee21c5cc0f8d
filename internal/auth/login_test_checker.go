package auth

import "context"

// LoginTestChecker is used in place of LoginChecker in unit tests.
type LoginTestChecker struct {
	LoggedSessions map[string]string // token -> user id
}

func NewLoginTestChecker() *LoginTestChecker {
	return &LoginTestChecker{
		LoggedSessions: map[string]string{},
	}
}

func (c *LoginTestChecker) UserIDForToken(_ context.Context, token string) (string, error) {
	userID, ok := c.LoggedSessions[token]
	if !ok {
		return "", ErrNotLoggedIn
	}
	return userID, nil
}
