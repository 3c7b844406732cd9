package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"gitlab.com/timkado/web/storefront-state/pkg/contextkeys"
)

const XRequestIDHeader = "X-Request-ID"

const maxRequestIDLength = 128

// RequestIDMiddleware puts a request ID on the context and echoes it in the response.
// A caller-supplied X-Request-ID is kept when it is short printable ASCII; anything else is
// replaced with a fresh UUID so it can be logged and forwarded as-is.
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(XRequestIDHeader)
		if !validRequestID(requestID) {
			requestID = uuid.NewString()
		}

		ctx := context.WithValue(r.Context(), contextkeys.RequestIDKey, requestID)
		w.Header().Set(XRequestIDHeader, requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func validRequestID(id string) bool {
	if id == "" || len(id) > maxRequestIDLength {
		return false
	}
	for i := 0; i < len(id); i++ {
		if id[i] < 0x21 || id[i] > 0x7e {
			return false
		}
	}
	return true
}
