package cli

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	port       string
	configPath string
	apiBase    string
)

// Execute runs the CLI.
func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	envPort := os.Getenv("PORT")
	if envPort == "" {
		envPort = "8080"
	}
	envConfig := os.Getenv("CONFIG_PATH")
	if envConfig == "" {
		envConfig = "config/config.yaml"
	}
	envAPI := os.Getenv("BLURT_QUEST_API")
	if envAPI == "" {
		envAPI = "http://localhost:8080/api"
	}

	cmd := &cobra.Command{
		Use:   "blurt-quest",
		Short: "Blurt Quest: timed quiz levels for BLURT token rewards",
	}

	cmd.PersistentFlags().StringVar(&port, "port", envPort, "port to listen on")
	cmd.PersistentFlags().StringVar(&configPath, "config", envConfig, "path to YAML config")
	cmd.PersistentFlags().StringVar(&apiBase, "api", envAPI, "quest API base URL")
	cmd.AddCommand(NewServerCmd(&configPath, &port))
	cmd.AddCommand(NewMigrateCmd(&configPath))
	cmd.AddCommand(NewLoginCmd(&apiBase))
	cmd.AddCommand(NewLogoutCmd())
	cmd.AddCommand(NewPlayCmd(&apiBase))
	cmd.AddCommand(NewLeaderboardCmd(&apiBase))
	return cmd
}
