package http

import (
	"context"
	"net/http"
	"strconv"
	"strings"
)

type contextKey string

const usernameKey contextKey = "username"

// usernameFrom returns the authenticated player stored by the auth middleware.
func usernameFrom(ctx context.Context) string {
	username, _ := ctx.Value(usernameKey).(string)
	return username
}

// requireAuth validates the bearer token and injects the username it names.
func (h *Handler) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" {
			h.writeError(w, http.StatusUnauthorized, "Could not validate credentials")
			return
		}
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			h.writeError(w, http.StatusUnauthorized, "Could not validate credentials")
			return
		}
		username, err := h.service.Authenticate(parts[1])
		if err != nil {
			h.writeError(w, http.StatusUnauthorized, "Could not validate credentials")
			return
		}
		next(w, r.WithContext(context.WithValue(r.Context(), usernameKey, username)))
	}
}

// statusRecorder captures the response code for request metrics.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// counted wraps a handler with the per-route request counter.
func (h *Handler) counted(route string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next(rec, r)
		if h.metrics != nil {
			h.metrics.HTTPRequests.WithLabelValues(route, strconv.Itoa(rec.status)).Inc()
		}
	}
}
