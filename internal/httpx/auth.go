package httpx

import "net/http"

// Identity is issued upstream (session service or API gateway) and arrives
// as a trusted header. This layer only consumes it; which orders the caller
// may see is still decided per handler.
const userIDHeader = "X-User-Id"

func callerID(r *http.Request) string {
	return r.Header.Get(userIDHeader)
}

// RequireUser rejects requests that carry no identity.
func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if callerID(r) == "" {
			writeMessage(w, http.StatusUnauthorized, "Authentication required")
			return
		}
		next.ServeHTTP(w, r)
	})
}
