package middleware

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// NewMaxBodySizeHandler caps request bodies at limit bytes. A request that
// announces a larger Content-Length gets 413 straight away, in the API's
// error shape; any other body is wrapped in http.MaxBytesReader and the
// decoding handler reports the overflow.
func NewMaxBodySizeHandler(limit int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > limit {
				tooLarge(w, limit)
				return
			}
			r.Body = http.MaxBytesReader(w, r.Body, limit)
			next.ServeHTTP(w, r)
		})
	}
}

func tooLarge(w http.ResponseWriter, limit int64) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusRequestEntityTooLarge)
	//nolint:errcheck
	json.NewEncoder(w).Encode(map[string]map[string]string{
		"error": {
			"code":    "body_too_large",
			"message": fmt.Sprintf("request body exceeds %d bytes", limit),
		},
	})
}
