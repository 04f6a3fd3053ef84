// ABOUTME: Allow-list administration from the command line
// ABOUTME: invite, grant, users and migrate talk to the database directly, no Telegram needed

package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/2389/relay-bot/internal/access"
	"github.com/2389/relay-bot/internal/config"
	"github.com/2389/relay-bot/internal/store"
)

// withAccess opens the store and hands an access service to fn.
func withAccess(ctx context.Context, load configLoader, fn func(*config.Config, *access.Service) error) error {
	cfg, _, err := load()
	if err != nil {
		return err
	}
	logger := setupLogger(config.LoggingConfig{Level: "warn", Format: cfg.Logging.Format})

	st, err := store.Open(ctx, storeOptions(cfg.Database))
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer st.Close()

	return fn(cfg, access.New(st, cfg.Bot.InviteLength, logger))
}

func newInviteCmd(load configLoader) *cobra.Command {
	return &cobra.Command{
		Use:   "invite",
		Short: "Create a single-use invite code",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withAccess(cmd.Context(), load, func(_ *config.Config, svc *access.Service) error {
				code, err := svc.CreateInvite(cmd.Context(), nil)
				if err != nil {
					return fmt.Errorf("creating invite: %w", err)
				}

				green := color.New(color.FgGreen)
				green.Print("✓ ")
				fmt.Print("Invite code: ")
				color.New(color.FgCyan, color.Bold).Println(code)
				fmt.Printf("  Redeem with: /request_access %s\n", code)
				return nil
			})
		},
	}
}

func newGrantCmd(load configLoader) *cobra.Command {
	return &cobra.Command{
		Use:   "grant <user-id>",
		Short: "Add a Telegram user ID to the allow-list",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid user id %q: %w", args[0], err)
			}

			return withAccess(cmd.Context(), load, func(_ *config.Config, svc *access.Service) error {
				if err := svc.GrantAccess(cmd.Context(), userID); err != nil {
					return err
				}
				color.New(color.FgGreen).Print("✓ ")
				fmt.Printf("User %d is on the allow-list\n", userID)
				return nil
			})
		},
	}
}

func newUsersCmd(load configLoader) *cobra.Command {
	return &cobra.Command{
		Use:   "users",
		Short: "List allow-listed user IDs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withAccess(cmd.Context(), load, func(cfg *config.Config, svc *access.Service) error {
				ids, err := svc.ListAllowedUsers(cmd.Context())
				if err != nil {
					return err
				}
				if len(ids) == 0 {
					fmt.Println("No allowed users.")
					return nil
				}

				admins := access.NewAdmins(cfg.Bot.AdminIDs...)
				gray := color.New(color.FgHiBlack)
				for _, id := range ids {
					fmt.Print(id)
					if admins.IsAdmin(id) {
						gray.Print(" (admin)")
					}
					fmt.Println()
				}
				return nil
			})
		},
	}
}

func newMigrateCmd(load configLoader) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the database schema and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withAccess(cmd.Context(), load, func(cfg *config.Config, _ *access.Service) error {
				color.New(color.FgGreen).Print("✓ ")
				fmt.Printf("Schema ready (%s)\n", cfg.Database.Driver)
				return nil
			})
		},
	}
}
