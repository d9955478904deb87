// Package memo scopes the use case read memo to a single HTTP request.
package memo

import (
	"net/http"

	"github.com/KarpovAlexandrGo/taskmaster/internal/usecase"
)

// Middleware gives each request its own read memo, so repeated view reads
// while handling it hit the store once. Writes made through the same
// request evict what they touch.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r.WithContext(usecase.WithReadMemo(r.Context())))
	})
}
