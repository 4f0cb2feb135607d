package http

import (
	"net/http"

	"github.com/gorilla/websocket"

	"blurt-quest/internal/domain"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

type leaderboardFrame struct {
	Leaderboard []domain.LeaderboardEntry `json:"leaderboard"`
}

// handleLeaderboardWS streams scoreboard snapshots: one on connect, then one
// after every score-changing submission. The stream is one-way; client
// messages are ignored apart from closing the connection.
func (h *Handler) handleLeaderboardWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.WithError(err).Warn("ws upgrade failed")
		return
	}
	defer conn.Close()

	updates, cancel, err := h.service.SubscribeLeaderboard(r.Context())
	if err != nil {
		h.log.WithError(err).Warn("leaderboard subscribe failed")
		return
	}
	defer cancel()

	if h.metrics != nil {
		h.metrics.ActiveWatchers.Inc()
		defer h.metrics.ActiveWatchers.Dec()
	}

	// Reader goroutine exists only to notice the peer going away.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case entries, ok := <-updates:
			if !ok {
				return
			}
			if err := conn.WriteJSON(leaderboardFrame{Leaderboard: entries}); err != nil {
				return
			}
		case <-done:
			return
		case <-r.Context().Done():
			return
		}
	}
}
