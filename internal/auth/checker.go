package auth

import "context"

var _ Checker = (*LoginChecker)(nil)
var _ Checker = (*LoginTestChecker)(nil)

// Checker resolves an auth token to the id of the logged-in user.
type Checker interface {
	UserIDForToken(ctx context.Context, token string) (string, error)
}
