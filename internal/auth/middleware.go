package auth

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"bazaar/internal/dto"
)

// Middleware rejects requests without a valid token and stores the caller
// identity in the request context.
func Middleware(v *Verifier, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, err := v.Parse(r.Header.Get("Authorization"))
			if err != nil {
				traceID := uuid.New().String()
				logger.Info("unauthorized request",
					zap.String("traceId", traceID),
					zap.String("path", r.URL.Path),
					zap.Error(err),
				)

				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				_ = json.NewEncoder(w).Encode(dto.ErrorResponse{
					TraceID:   traceID,
					Status:    http.StatusUnauthorized,
					Message:   err.Error(),
					Code:      "UNAUTHORIZED",
					Timestamp: time.Now().UTC(),
				})
				return
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		})
	}
}
