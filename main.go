package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"taskboard/config"
	"taskboard/utilities"
)

var version = "dev"

var rootCmd = &cobra.Command{
	Use:   "taskboard",
	Short: "Personal task board",
	Long: `Taskboard serves a small task board web app and doubles as a command
line client for it. "serve" starts the server; the other commands sign in
against the identity provider and talk to a running server.`,
	Version:       version,
	SilenceErrors: true,
	SilenceUsage:  true,
}

func init() {
	rootCmd.AddCommand(serveCmd, loginCmd, signupCmd, logoutCmd, listCmd, deleteCmd)
}

// loadConfig reads the configuration and sets up logging for the
// environment it names.
func loadConfig() (config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, err
	}
	if err := utilities.InitLogger(cfg.Env); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
