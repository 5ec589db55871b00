package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/shepherdcrm/authcore"
)

const requestIDHeader = "X-Request-ID"

// RequestID assigns every request a correlation id, honoring one the
// client already sent, and echoes it on the response.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(authcore.WithRequestID(r.Context(), id)))
	})
}
