package middleware

import (
	"io"
	"net/http"
)

// DrainAndCloseRequest empties and closes the request body once the
// handler is done. Handlers that bail out early (bad content type,
// failed ownership check) leave bytes behind, which would otherwise
// block connection reuse.
func DrainAndCloseRequest() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r)
			if r.Body != nil {
				_, _ = io.Copy(io.Discard, r.Body)
				_ = r.Body.Close()
			}
		})
	}
}
