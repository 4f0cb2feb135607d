package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"blurt-quest/internal/app"
	"blurt-quest/internal/domain"
	"blurt-quest/internal/metrics"
)

// Handler serves the quest REST API.
type Handler struct {
	service  *app.QuestService
	metrics  *metrics.Metrics
	log      *logrus.Entry
	validate *validator.Validate
}

func NewHandler(service *app.QuestService, m *metrics.Metrics, log *logrus.Entry) *Handler {
	return &Handler{
		service:  service,
		metrics:  m,
		log:      log,
		validate: validator.New(),
	}
}

// Routes registers every API route on the mux.
func (h *Handler) Routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/", h.counted("root", h.handleRoot))
	mux.HandleFunc("GET /api/health", h.counted("health", h.handleHealth))
	mux.HandleFunc("POST /api/auth/login", h.counted("login", h.handleLogin))
	mux.HandleFunc("GET /api/user/profile", h.counted("profile", h.requireAuth(h.handleProfile)))
	mux.HandleFunc("GET /api/game/leaderboard", h.counted("leaderboard", h.handleLeaderboard))
	mux.HandleFunc("GET /api/game/leaderboard/ws", h.handleLeaderboardWS)
	mux.HandleFunc("GET /api/game/level/{level}", h.counted("level", h.requireAuth(h.handleLevel)))
	mux.HandleFunc("POST /api/game/level/{level}/submit", h.counted("submit", h.requireAuth(h.handleSubmit)))
	mux.HandleFunc("GET /api/admin/users", h.counted("admin_users", h.handleAdminUsers))
	mux.HandleFunc("GET /api/admin/rewards", h.counted("admin_rewards", h.handleAdminRewards))
	mux.HandleFunc("GET /api/admin/export/rewards", h.counted("admin_export", h.handleAdminExport))
}

func (h *Handler) handleRoot(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"message": "Blurt Quest: Puzzle for Tokens API"})
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
	})
}

type loginRequest struct {
	Username   string `json:"username" validate:"required"`
	PostingKey string `json:"posting_key" validate:"required"`
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.writeError(w, http.StatusBadRequest, "username and posting_key are required")
		return
	}

	sess, err := h.service.Login(r.Context(), req.Username, req.PostingKey)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidCredentials) {
			if h.metrics != nil {
				h.metrics.Logins.WithLabelValues("rejected").Inc()
			}
			h.writeError(w, http.StatusUnauthorized, "Invalid Blurt username or posting key")
			return
		}
		h.log.WithError(err).Error("login failed")
		h.writeError(w, http.StatusInternalServerError, "Authentication failed")
		return
	}

	if h.metrics != nil {
		h.metrics.Logins.WithLabelValues("success").Inc()
	}
	h.writeJSON(w, http.StatusOK, map[string]string{
		"access_token": sess.Token,
		"token_type":   "bearer",
		"username":     sess.Username,
	})
}

func (h *Handler) handleProfile(w http.ResponseWriter, r *http.Request) {
	profile, err := h.service.Profile(r.Context(), usernameFrom(r.Context()))
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, profile)
}

func (h *Handler) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	entries, err := h.service.Leaderboard(r.Context())
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"leaderboard": entries})
}

func (h *Handler) handleLevel(w http.ResponseWriter, r *http.Request) {
	level, err := strconv.Atoi(r.PathValue("level"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid level")
		return
	}
	questions, err := h.service.LevelQuestions(r.Context(), usernameFrom(r.Context()), level)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"level":           level,
		"questions":       questions,
		"total_questions": len(questions),
	})
}

type submitRequest struct {
	Answers   []int `json:"answers" validate:"required"`
	TimeTaken int   `json:"time_taken" validate:"gte=0"`
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	level, err := strconv.Atoi(r.PathValue("level"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid level")
		return
	}
	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.writeError(w, http.StatusBadRequest, "answers and time_taken are required")
		return
	}

	result, err := h.service.Submit(r.Context(), usernameFrom(r.Context()), level, req.Answers, req.TimeTaken)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	if h.metrics != nil {
		outcome := "failed"
		if result.LevelCompleted {
			outcome = "passed"
		}
		h.metrics.Submissions.WithLabelValues(outcome).Inc()
		if result.RewardEarned > 0 {
			h.metrics.RewardsClaimed.Inc()
		}
	}
	h.writeJSON(w, http.StatusOK, result)
}

func (h *Handler) handleAdminUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.Users(r.Context())
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"users": users})
}

func (h *Handler) handleAdminRewards(w http.ResponseWriter, r *http.Request) {
	rewards, err := h.service.Rewards(r.Context())
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"rewards": rewards})
}

func (h *Handler) handleAdminExport(w http.ResponseWriter, r *http.Request) {
	export, err := h.service.ExportPendingRewards(r.Context())
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, export)
}

func (h *Handler) writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrUnauthorized):
		h.writeError(w, http.StatusUnauthorized, "Could not validate credentials")
	case errors.Is(err, domain.ErrUserNotFound):
		h.writeError(w, http.StatusNotFound, "User not found")
	case errors.Is(err, domain.ErrInvalidLevel):
		h.writeError(w, http.StatusBadRequest, "Invalid level")
	case errors.Is(err, domain.ErrLevelLocked):
		h.writeError(w, http.StatusForbidden, "Level not unlocked yet")
	case errors.Is(err, domain.ErrAnswerCount):
		h.writeError(w, http.StatusBadRequest, "Invalid number of answers")
	default:
		h.log.WithError(err).Error("request failed")
		h.writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, detail string) {
	h.writeJSON(w, status, map[string]string{"detail": detail})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.log.WithError(err).Warn("failed to encode response")
	}
}
