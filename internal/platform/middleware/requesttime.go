package middleware

import (
	"net/http"
	"time"

	"github.com/okatech-org/consulat-sub002/pkg/requestcontext"
)

// RequestTime pins a single observation time for the whole request, so every
// timestamp written while handling it agrees.
func RequestTime(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := requestcontext.WithTime(r.Context(), time.Now().UTC())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
