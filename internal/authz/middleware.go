package authz

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
)

// RequireSelf ensures the path variable named param matches the caller's identity.
func RequireSelf(param string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := IdentityFromRequest(r)
			if !ok {
				deny(w, http.StatusUnauthorized, "Not authenticated")
				return
			}
			if mux.Vars(r)[param] != id {
				deny(w, http.StatusForbidden, "You can only modify your own profile")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireSelfHandler applies RequireSelf inline when registering routes.
func RequireSelfHandler(param string, next http.Handler) http.Handler {
	return RequireSelf(param)(next)
}

func deny(w http.ResponseWriter, status int, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"detail": detail})
}
