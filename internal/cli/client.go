package cli

import (
	"bufio"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"blurt-quest/internal/api"
	"blurt-quest/internal/logging"
	"blurt-quest/internal/session"
)

// gateTokens breaks the construction cycle between the API client (which
// needs a token source) and the gate (which needs the client to log in).
type gateTokens struct {
	gate *session.Gate
}

func (t *gateTokens) Token() string {
	if t.gate == nil {
		return ""
	}
	return t.gate.Token()
}

func buildClient(apiBase string) (*session.Gate, *api.Client, error) {
	path, err := session.DefaultCredentialsPath()
	if err != nil {
		return nil, nil, err
	}
	tokens := &gateTokens{}
	client := api.NewClient(apiBase, tokens, 10*time.Second)
	gate := session.NewGate(session.NewFileStore(path), client, logging.New("client"))
	tokens.gate = gate
	return gate, client, nil
}

// NewLoginCmd authenticates and stores the session credentials.
func NewLoginCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "login <username>",
		Short: "Sign in with your Blurt username and posting key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			gate, _, err := buildClient(*apiBase)
			if err != nil {
				return err
			}

			fmt.Fprint(cmd.OutOrStdout(), "Posting key: ")
			reader := bufio.NewReader(cmd.InOrStdin())
			key, err := reader.ReadString('\n')
			if err != nil {
				return err
			}

			sess, err := gate.Login(cmd.Context(), args[0], strings.TrimSpace(key))
			if err != nil {
				return fmt.Errorf("login failed: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s\n", sess.Username)
			return nil
		},
	}
}

// NewLogoutCmd clears the stored session credentials.
func NewLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Clear stored session credentials",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := session.DefaultCredentialsPath()
			if err != nil {
				return err
			}
			gate := session.NewGate(session.NewFileStore(path), nil, logging.New("client"))
			gate.Logout()
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
			return nil
		},
	}
}

// readLines pumps stdin lines into a channel so the play loop can select
// between player input and machine transitions.
func readLines(r *bufio.Reader) <-chan string {
	lines := make(chan string)
	go func() {
		defer close(lines)
		for {
			line, err := r.ReadString('\n')
			if err != nil {
				return
			}
			lines <- strings.TrimSpace(line)
		}
	}()
	return lines
}
