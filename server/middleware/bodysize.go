package middleware

import (
	"net/http"

	"github.com/skillsenselab/voicenotes/util"
)

const defaultMaxBodySize = 200 * 1024 * 1024 // 200MB, sized for audio uploads

// BodySizeLimit returns middleware that restricts the request body to the given
// size string (e.g. "200MB", "512KB", "1GB").
func BodySizeLimit(maxSize string) Middleware {
	size := util.ParseSize(maxSize, defaultMaxBodySize)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r.Body = http.MaxBytesReader(w, r.Body, size)
			next.ServeHTTP(w, r)
		})
	}
}
