package handlers

import (
	"net/http"
	"strings"

	"github.com/podwave/backend/internal/logging"
)

// RequireAuth wraps a handler and rejects requests without a valid bearer token.
// The verified user id is attached to the request context for downstream handlers.
func RequireAuth(tokens TokenManager, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		logger := logging.FromContext(ctx)

		if tokens == nil {
			logger.Error("token manager unavailable")
			respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "authentication services unavailable"})
			return
		}

		header := strings.TrimSpace(r.Header.Get("Authorization"))
		if header == "" || !strings.HasPrefix(header, "Bearer ") {
			respondJSON(ctx, w, http.StatusUnauthorized, map[string]string{"error": "authorization token missing"})
			return
		}

		token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
		userID, err := tokens.Verify(token)
		if err != nil {
			logger.Warn("token verification failed", "error", err)
			respondJSON(ctx, w, http.StatusUnauthorized, map[string]string{"error": "token is not valid"})
			return
		}

		ctx = logging.WithUserID(ctx, userID)
		ctx = logging.WithLogger(ctx, logger.With("userId", userID))
		next(w, r.WithContext(ctx))
	}
}
