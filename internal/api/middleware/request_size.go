package middleware

import (
	"net/http"
)

// DefaultMaxBodySize bounds event payloads. Real ones are well under 4KB.
const DefaultMaxBodySize int64 = 64 << 10

// RequestSize wraps the body in http.MaxBytesReader. Decoders surface the
// overflow as *http.MaxBytesError, which handlers answer with 413.
func RequestSize(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Body != nil {
				r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			}
			next.ServeHTTP(w, r)
		})
	}
}
