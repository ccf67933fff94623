package middleware

import (
	"net/http"

	"golang.org/x/time/rate"

	apperrors "github.com/jabez4jc/openalgo-control/internal/errors"
)

// Throttle applies a process-wide token bucket to the wrapped handler.
// Used on job-creating endpoints so a misbehaving dashboard cannot flood
// the registry with maintenance jobs.
func Throttle(perMinute int) func(http.Handler) http.Handler {
	limiter := rate.NewLimiter(rate.Limit(float64(perMinute)/60.0), perMinute)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow() {
				apperrors.Write(w, http.StatusTooManyRequests,
					apperrors.CodeTooManyRequests, "too many maintenance requests; retry later")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
