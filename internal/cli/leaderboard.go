package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"blurt-quest/internal/domain"
)

// NewLeaderboardCmd prints the global leaderboard, optionally streaming
// live updates over the websocket feed.
func NewLeaderboardCmd(apiBase *string) *cobra.Command {
	var watch bool

	cmd := &cobra.Command{
		Use:   "leaderboard",
		Short: "Show the top Blurt Quest players",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, client, err := buildClient(*apiBase)
			if err != nil {
				return err
			}

			if !watch {
				board, err := client.FetchLeaderboard(cmd.Context())
				if err != nil {
					return err
				}
				printLeaderboard(cmd.OutOrStdout(), board)
				return nil
			}

			boards, err := client.WatchLeaderboard(cmd.Context())
			if err != nil {
				return err
			}
			for board := range boards {
				printLeaderboard(cmd.OutOrStdout(), board)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&watch, "watch", false, "stream live leaderboard updates")
	return cmd
}

func printLeaderboard(out io.Writer, board []domain.LeaderboardEntry) {
	fmt.Fprintf(out, "%-4s %-20s %8s %8s %6s\n", "Rank", "Player", "Score", "Cleared", "Level")
	for _, entry := range board {
		fmt.Fprintf(out, "%-4d %-20s %8d %8d %6d\n",
			entry.Rank, entry.Username, entry.TotalScore, entry.LevelsCompleted, entry.CurrentLevel)
	}
}
