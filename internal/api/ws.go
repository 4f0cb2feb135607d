package api

import (
	"context"
	"strings"

	"github.com/gorilla/websocket"

	"blurt-quest/internal/domain"
)

type leaderboardFrame struct {
	Leaderboard []domain.LeaderboardEntry `json:"leaderboard"`
}

// WatchLeaderboard subscribes to the live leaderboard stream. Snapshots
// arrive on the returned channel until the context is canceled or the
// connection drops, at which point the channel closes.
func (c *Client) WatchLeaderboard(ctx context.Context) (<-chan []domain.LeaderboardEntry, error) {
	url := httpToWS(c.base) + "/game/leaderboard/ws"
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, err
	}

	updates := make(chan []domain.LeaderboardEntry, 8)

	go func() {
		<-ctx.Done()
		_ = conn.Close()
	}()

	go func() {
		defer close(updates)
		defer conn.Close()
		for {
			var frame leaderboardFrame
			if err := conn.ReadJSON(&frame); err != nil {
				return
			}
			select {
			case updates <- frame.Leaderboard:
			case <-ctx.Done():
				return
			}
		}
	}()

	return updates, nil
}

func httpToWS(base string) string {
	switch {
	case strings.HasPrefix(base, "https://"):
		return "wss://" + strings.TrimPrefix(base, "https://")
	case strings.HasPrefix(base, "http://"):
		return "ws://" + strings.TrimPrefix(base, "http://")
	}
	return base
}
