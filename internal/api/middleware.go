package api

import (
	"crypto/sha256"
	"crypto/subtle"
	"net/http"
)

// basicAuthMiddleware returns a middleware enforcing HTTP Basic Auth.
// Credentials are compared in constant time over SHA-256 digests so
// mismatched lengths leak nothing.
func basicAuthMiddleware(username, password string) func(http.Handler) http.Handler {
	wantUser := sha256.Sum256([]byte(username))
	wantPass := sha256.Sum256([]byte(password))

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, pass, ok := r.BasicAuth()
			if !ok {
				unauthorized(w)
				return
			}

			gotUser := sha256.Sum256([]byte(user))
			gotPass := sha256.Sum256([]byte(pass))
			userMatch := subtle.ConstantTimeCompare(wantUser[:], gotUser[:]) == 1
			passMatch := subtle.ConstantTimeCompare(wantPass[:], gotPass[:]) == 1
			if !userMatch || !passMatch {
				unauthorized(w)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", `Basic realm="vrcphoto"`)
	writeError(w, http.StatusUnauthorized, "unauthorized", nil)
}
