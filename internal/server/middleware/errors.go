package middleware

import (
	"encoding/json"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	apperrors "github.com/jabez4jc/openalgo-control/internal/errors"
	"github.com/jabez4jc/openalgo-control/internal/observability"
)

// ErrorResponse is the JSON envelope recovered panics are reported with.
type ErrorResponse = apperrors.HTTPErrorResponse

// Recovery converts a panicking handler into a JSON 500 response instead of
// letting the connection drop.
func Recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				observability.ServerLogger.Error("handler panicked",
					zap.String("path", r.URL.Path),
					zap.Any("panic", rec))

				envelope := apperrors.HTTPErrorResponse{
					Error: apperrors.HTTPError{
						Code:      apperrors.CodeInternal,
						Message:   fmt.Sprintf("panic: %v", rec),
						RequestID: GetRequestID(r.Context()),
					},
				}
				writeErrorResponse(w, envelope, http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// ErrorHandler is an alias of Recovery kept for route-table readability.
func ErrorHandler(next http.Handler) http.Handler {
	return Recovery(next)
}

func writeErrorResponse(w http.ResponseWriter, envelope apperrors.HTTPErrorResponse, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(envelope)
}
