// ABOUTME: Entry point for relay-bot, a Telegram bot relaying chats to a language model
// ABOUTME: Cobra root command with serve and allow-list administration subcommands

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/2389/relay-bot/internal/config"
)

// Version is set at build time.
var version = "dev"

const banner = `
          _                 _           _
 _ __ ___| | __ _ _   _    | |__   ___ | |_
| '__/ _ \ |/ _' | | | |___| '_ \ / _ \| __|
| | |  __/ | (_| | |_| |___| |_) | (_) | |_
|_|  \___|_|\__,_|\__, |   |_.__/ \___/ \__|
                  |___/
`

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "relay-bot",
		Short:         "Telegram bot relaying conversations to a language model",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "config file (YAML or TOML)")

	load := func() (*config.Config, string, error) {
		path := getConfigPath(configPath)
		cfg, err := config.Load(path)
		if err != nil {
			return nil, path, fmt.Errorf("loading config: %w", err)
		}
		return cfg, path, nil
	}

	root.AddCommand(
		newServeCmd(load),
		newInviteCmd(load),
		newGrantCmd(load),
		newUsersCmd(load),
		newMigrateCmd(load),
	)
	return root
}

// configLoader loads the configuration and reports which file was used.
type configLoader func() (*config.Config, string, error)

// getConfigPath returns the config file to read, or "" to use the environment only.
// Priority: --config flag > RELAY_BOT_CONFIG env var > XDG_CONFIG_HOME/relay-bot/config.yaml if present
func getConfigPath(flag string) string {
	if flag != "" {
		return flag
	}
	if envPath := os.Getenv("RELAY_BOT_CONFIG"); envPath != "" {
		return envPath
	}

	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		configDir = filepath.Join(homeDir, ".config")
	}

	path := filepath.Join(configDir, "relay-bot", "config.yaml")
	if _, err := os.Stat(path); err != nil {
		return ""
	}
	return path
}
