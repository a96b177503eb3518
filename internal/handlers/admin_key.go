package handlers

import (
	"net/http"

	"golang.org/x/crypto/bcrypt"

	"github.com/velvethub/backend/internal/logging"
)

// AdminKey returns middleware comparing the X-Admin-Key header against the
// configured bcrypt hash. An empty hash disables the check for local
// development.
func AdminKey(keyHash string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if keyHash == "" {
				next.ServeHTTP(w, r)
				return
			}

			key := r.Header.Get("X-Admin-Key")
			if key == "" || bcrypt.CompareHashAndPassword([]byte(keyHash), []byte(key)) != nil {
				logging.FromContext(r.Context()).Warn("admin key rejected", "path", r.URL.Path)
				respondError(r.Context(), w, http.StatusUnauthorized, "invalid admin key")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
