package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"blurt-quest/internal/domain"
	"blurt-quest/internal/game"
	"blurt-quest/internal/logging"
)

// NewPlayCmd runs the interactive quest loop against a stored session.
func NewPlayCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "play",
		Short: "Play Blurt Quest from the terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			gate, client, err := buildClient(*apiBase)
			if err != nil {
				return err
			}
			if _, ok := gate.Restore(); !ok {
				return fmt.Errorf("%w, run `blurt-quest login <username>` first", domain.ErrNoSession)
			}

			machine := game.NewMachine(client, logging.New("play"),
				game.WithUnauthorizedHandler(gate.HandleUnauthorized))
			if err := machine.Refresh(cmd.Context()); err != nil {
				return fmt.Errorf("loading profile: %w", err)
			}

			return runPlayLoop(cmd.Context(), cmd.OutOrStdout(), cmd.InOrStdin(), gate, machine)
		},
	}
}

type sessionGate interface {
	Current() (domain.Session, bool)
	Subscribe() (<-chan struct{}, func())
}

func runPlayLoop(ctx context.Context, out io.Writer, in io.Reader, gate sessionGate, machine *game.Machine) error {
	updates, cancelUpdates := machine.Subscribe()
	defer cancelUpdates()
	gateUpdates, cancelGate := gate.Subscribe()
	defer cancelGate()
	lines := readLines(bufio.NewReader(in))

	renderDashboard(out, machine)
	state := machine.State()
	lastQuestion := -1

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case <-gateUpdates:
			if _, ok := gate.Current(); !ok {
				fmt.Fprintln(out, "\nSession expired, run `blurt-quest login` to sign in again.")
				return nil
			}

		case s, ok := <-updates:
			if !ok {
				return nil
			}
			state = s
			switch st := s.(type) {
			case game.Dashboard:
				lastQuestion = -1
				if st.Message != "" {
					fmt.Fprintf(out, "\n! %s\n", st.Message)
				}
				renderDashboard(out, machine)
			case game.Loading:
				fmt.Fprintf(out, "\nLoading level %d...\n", st.Level)
			case game.Playing:
				if st.QuestionIndex != lastQuestion {
					lastQuestion = st.QuestionIndex
					renderQuestion(out, st)
				} else if st.TimeRemaining <= 10 || st.TimeRemaining%30 == 0 {
					fmt.Fprintf(out, "  [%s left]\n", formatClock(st.TimeRemaining))
				}
			case game.Submitting:
				fmt.Fprintln(out, "\nTime's up or all answered, submitting...")
			case game.Results:
				lastQuestion = -1
				renderResults(out, st.Result)
			}

		case line, ok := <-lines:
			if !ok {
				return nil
			}
			if line == "q" || line == "quit" {
				fmt.Fprintln(out, "Thanks for playing!")
				return nil
			}
			if err := handleInput(ctx, out, machine, state, line); err != nil {
				fmt.Fprintf(out, "! %s\n", err)
			}
		}
	}
}

func handleInput(ctx context.Context, out io.Writer, machine *game.Machine, state game.State, line string) error {
	switch st := state.(type) {
	case game.Dashboard:
		level, err := strconv.Atoi(line)
		if err != nil {
			return fmt.Errorf("enter a level number 1-%d or q to quit", domain.MaxLevel)
		}
		if profile, ok := machine.Profile(); ok && !profile.Unlocked(level) {
			return fmt.Errorf("level %d is locked, clear level %d first", level, profile.CurrentLevel)
		}
		return machine.StartLevel(ctx, level)

	case game.Playing:
		choice, err := strconv.Atoi(line)
		if err != nil || choice < 1 || choice > len(st.Questions[st.QuestionIndex].Options) {
			return fmt.Errorf("pick an option 1-%d", len(st.Questions[st.QuestionIndex].Options))
		}
		return machine.Answer(choice - 1)

	case game.Results:
		switch line {
		case "n", "next":
			return machine.NextLevel(ctx)
		case "d", "dashboard", "":
			machine.ReturnToDashboard()
			return nil
		default:
			return errors.New("n for next level, d for dashboard, q to quit")
		}

	default:
		fmt.Fprintln(out, "Hang on...")
		return nil
	}
}

func renderDashboard(out io.Writer, machine *game.Machine) {
	profile, ok := machine.Profile()
	if !ok {
		fmt.Fprintln(out, "\n=== Blurt Quest ===")
		return
	}

	fmt.Fprintf(out, "\n=== Blurt Quest: @%s ===\n", profile.Username)
	fmt.Fprintf(out, "Score %d | Level %d | %d levels cleared\n\n",
		profile.TotalScore, profile.CurrentLevel, profile.LevelsCompleted)

	for level := 1; level <= domain.MaxLevel; level++ {
		mark := " "
		switch {
		case profile.Completed(level):
			mark = "*"
		case !profile.Unlocked(level):
			mark = "x"
		}
		fmt.Fprintf(out, "  [%s] Level %2d  %-12s %5.1f BLURT  %s\n",
			mark, level, domain.Tier(level), domain.RewardForLevel(level), formatClock(domain.TimeBudget(level)))
	}

	if board := machine.Leaderboard(); len(board) > 0 {
		fmt.Fprintln(out, "\nTop players:")
		for _, entry := range board {
			if entry.Rank > 5 {
				break
			}
			fmt.Fprintf(out, "  %2d. %-16s %d pts\n", entry.Rank, entry.Username, entry.TotalScore)
		}
	}
	fmt.Fprintf(out, "\nPick a level (1-%d), q to quit: ", domain.MaxLevel)
}

func renderQuestion(out io.Writer, st game.Playing) {
	q := st.Questions[st.QuestionIndex]
	fmt.Fprintf(out, "\nLevel %d, question %d of %d [%s] (%d pts, %s left)\n",
		st.Level, st.QuestionIndex+1, len(st.Questions), q.Category, q.Points, formatClock(st.TimeRemaining))
	fmt.Fprintf(out, "%s\n", q.Prompt)
	for i, opt := range q.Options {
		fmt.Fprintf(out, "  %d) %s\n", i+1, opt)
	}
	fmt.Fprint(out, "Answer: ")
}

func renderResults(out io.Writer, res domain.LevelResult) {
	fmt.Fprintf(out, "\n=== Level %d results ===\n", res.Level)
	fmt.Fprintf(out, "Correct: %d/%d  Score: %d\n", res.CorrectAnswers, res.TotalQuestions, res.Score)
	if res.LevelCompleted {
		fmt.Fprintln(out, "Level completed!")
		if res.RewardEarned > 0 {
			fmt.Fprintf(out, "Reward earned: %.1f BLURT (pending payout)\n", res.RewardEarned)
		}
	} else {
		fmt.Fprintf(out, "Not quite, you need %.0f correct to pass.\n", res.PassingScoreNeeded)
	}
	if res.NextLevelUnlocked {
		fmt.Fprint(out, "n for next level, d for dashboard, q to quit: ")
	} else {
		fmt.Fprint(out, "d for dashboard, q to quit: ")
	}
}

func formatClock(seconds int) string {
	return fmt.Sprintf("%d:%02d", seconds/60, seconds%60)
}
