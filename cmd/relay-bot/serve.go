// ABOUTME: serve subcommand wiring store, model client, Telegram transport and dispatcher
// ABOUTME: Runs until SIGINT/SIGTERM, then drains in-flight handlers

package main

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/2389/relay-bot/internal/access"
	"github.com/2389/relay-bot/internal/bot"
	"github.com/2389/relay-bot/internal/config"
	"github.com/2389/relay-bot/internal/health"
	"github.com/2389/relay-bot/internal/history"
	"github.com/2389/relay-bot/internal/llm"
	"github.com/2389/relay-bot/internal/store"
	"github.com/2389/relay-bot/internal/telegram"
)

func newServeCmd(load configLoader) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the bot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), load)
		},
	}
}

func runServe(ctx context.Context, load configLoader) error {
	// Print banner
	cyan := color.New(color.FgCyan)
	cyan.Print(banner)

	gray := color.New(color.FgHiBlack)
	gray.Printf("    version: %s\n\n", version)

	cfg, configPath, err := load()
	if err != nil {
		return err
	}

	logger := setupLogger(cfg.Logging)

	green := color.New(color.FgGreen)
	source := configPath
	if source == "" {
		source = "(environment)"
	}
	green.Print("    ▶ ")
	fmt.Printf("Config:    %s\n", source)
	green.Print("    ▶ ")
	fmt.Printf("Database:  %s\n", cfg.Database.Driver)
	green.Print("    ▶ ")
	fmt.Printf("Model:     %s\n", cfg.LLM.Provider)
	if cfg.Server.HTTPAddr != "" {
		green.Print("    ▶ ")
		fmt.Printf("Health:    %s\n", cfg.Server.HTTPAddr)
	}
	fmt.Println()

	st, err := store.Open(ctx, storeOptions(cfg.Database))
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer st.Close()

	model, err := llm.New(ctx, llmConfig(cfg.LLM))
	if err != nil {
		return fmt.Errorf("creating llm client: %w", err)
	}

	tg, err := telegram.New(ctx, telegram.Options{
		Token:       cfg.Telegram.Token,
		PollTimeout: cfg.Telegram.PollTimeout,
		DropPending: cfg.Telegram.DropPending,
		APIServer:   cfg.Telegram.APIServer,
		Logger:      logger,
	})
	if err != nil {
		return err
	}

	if len(cfg.Bot.AdminIDs) == 0 {
		logger.Warn("no admin_ids configured; admin commands are disabled")
	}

	window := history.Window{MaxTurns: cfg.Bot.TurnLimit(), MaxChars: cfg.Bot.MaxChars}
	dispatcher := bot.New(bot.Options{
		Access:          access.New(st, cfg.Bot.InviteLength, logger),
		History:         history.New(st, window, logger),
		LLM:             model,
		Messenger:       tg,
		Admins:          access.NewAdmins(cfg.Bot.AdminIDs...),
		Username:        tg.Username(),
		MentionRequired: cfg.Bot.MentionRequired(),
		AppID:           cfg.LLM.AppID,
		Logger:          logger,
	})

	logger.Info("starting relay-bot",
		"config", source,
		"username", tg.Username(),
		"provider", cfg.LLM.Provider,
		"driver", cfg.Database.Driver,
	)

	g, gctx := errgroup.WithContext(ctx)
	gctx, stop := context.WithCancel(gctx)
	defer stop()

	updates, err := tg.Updates(gctx)
	if err != nil {
		return err
	}

	g.Go(func() error {
		// Polling ending for any reason takes the health server down with it
		defer stop()
		return dispatcher.Run(gctx, updates)
	})
	if cfg.Server.HTTPAddr != "" {
		srv := health.New(cfg.Server.HTTPAddr, st, logger)
		g.Go(func() error {
			return srv.Run(gctx)
		})
	}

	err = g.Wait()
	logger.Info("relay-bot stopped")
	return err
}

func storeOptions(db config.DatabaseConfig) store.Options {
	return store.Options{
		Driver:       db.Driver,
		Path:         db.Path,
		Host:         db.Host,
		Port:         db.Port,
		User:         db.User,
		Password:     db.Password,
		Name:         db.Name,
		Params:       db.Params,
		MaxIdleConns: db.MaxIdleConns,
	}
}

func llmConfig(c config.LLMConfig) llm.Config {
	return llm.Config{
		Provider:     c.Provider,
		AppID:        c.AppID,
		APIKey:       c.APIKey,
		Model:        c.Model,
		BaseURL:      c.BaseURL,
		SystemPrompt: c.SystemPrompt,
		MaxTokens:    c.MaxTokens,
		Timeout:      c.Timeout,
	}
}
