package middleware

import (
	"net/http"
	"strconv"
)

const (
	// DefaultMaxRequestSize is the default maximum request body size (10MB)
	DefaultMaxRequestSize = 10 * 1024 * 1024

	// MaxRequestSizeHeader advertises the enforced limit
	MaxRequestSizeHeader = "X-Max-Request-Size"
)

// RequestSizeLimiter limits the size of request bodies
type RequestSizeLimiter struct {
	maxSize int64
}

// NewRequestSizeLimiter creates a new request size limiter.
// maxSize is in bytes; 0 or less means DefaultMaxRequestSize.
func NewRequestSizeLimiter(maxSize int64) *RequestSizeLimiter {
	if maxSize <= 0 {
		maxSize = DefaultMaxRequestSize
	}
	return &RequestSizeLimiter{maxSize: maxSize}
}

// Middleware rejects bodies declared larger than the limit up front and caps
// the rest with http.MaxBytesReader, whose read error handlers report as a
// validation failure
func (rsl *RequestSizeLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(MaxRequestSizeHeader, strconv.FormatInt(rsl.maxSize, 10))

		if r.ContentLength > rsl.maxSize {
			writeError(w, http.StatusRequestEntityTooLarge, "RequestTooLarge",
				"request body exceeds "+strconv.FormatInt(rsl.maxSize, 10)+" bytes")
			return
		}

		r.Body = http.MaxBytesReader(w, r.Body, rsl.maxSize)
		next.ServeHTTP(w, r)
	})
}
