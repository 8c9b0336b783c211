// Package authmw provides static bearer-token middleware for the run API.
package authmw

import (
	"crypto/subtle"
	"fmt"
	"net/http"
	"strings"
)

const scheme = "Bearer "

// BearerToken returns middleware that rejects requests whose Authorization
// header does not carry the expected token. The token comparison is
// constant-time so response latency does not leak how much of it matched.
func BearerToken(token string) func(http.Handler) http.Handler {
	expected := []byte(token)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got, ok := strings.CutPrefix(r.Header.Get("Authorization"), scheme)
			if !ok {
				unauthorized(w, "missing or malformed authorization header")
				return
			}

			if subtle.ConstantTimeCompare([]byte(got), expected) != 1 {
				unauthorized(w, "invalid token")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func unauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", "Bearer")
	w.WriteHeader(http.StatusUnauthorized)
	fmt.Fprintf(w, "{\"error\":%q}\n", msg)
}
