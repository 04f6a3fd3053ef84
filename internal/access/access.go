// ABOUTME: Access control over the allow-list: checks, grants and invite redemption
// ABOUTME: Storage failures fail closed; every decision is logged with the user ID

package access

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/2389/relay-bot/internal/store"
)

// State is a user's authentication state.
type State int

const (
	// Unauthenticated users may only redeem an invite or ask for help.
	Unauthenticated State = iota
	// Authenticated users are on the allow-list. There is no way back.
	Authenticated
)

func (s State) String() string {
	switch s {
	case Authenticated:
		return "authenticated"
	default:
		return "unauthenticated"
	}
}

// Service gates users on the allow-list.
type Service struct {
	store        store.AccessStore
	inviteLength int
	logger       *slog.Logger
}

// New creates an access Service. inviteLength <= 0 means DefaultInviteLength.
func New(s store.AccessStore, inviteLength int, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if inviteLength <= 0 {
		inviteLength = DefaultInviteLength
	}
	return &Service{
		store:        s,
		inviteLength: inviteLength,
		logger:       logger.With("component", "access"),
	}
}

// IsAllowed reports whether userID may use the bot.
// A storage error denies access.
func (s *Service) IsAllowed(ctx context.Context, userID int64) bool {
	ok, err := s.store.IsAllowed(ctx, userID)
	if err != nil {
		s.logger.Error("checking allow-list", "user_id", userID, "error", err)
		return false
	}
	return ok
}

// StateOf returns the authentication state of userID.
func (s *Service) StateOf(ctx context.Context, userID int64) State {
	if s.IsAllowed(ctx, userID) {
		return Authenticated
	}
	return Unauthenticated
}

// GrantAccess puts userID on the allow-list. Granting twice is not an error.
func (s *Service) GrantAccess(ctx context.Context, userID int64) error {
	err := s.store.AddAllowedUser(ctx, userID)
	if errors.Is(err, store.ErrAlreadyAllowed) {
		s.logger.Info("user already allowed", "user_id", userID)
		return nil
	}
	if err != nil {
		s.logger.Error("granting access", "user_id", userID, "error", err)
		return fmt.Errorf("granting access to %d: %w", userID, err)
	}

	s.logger.Info("access granted", "user_id", userID)
	return nil
}

// RedeemInviteCode consumes code for userID and allow-lists them.
// Returns true only when an unused code was consumed by this call.
func (s *Service) RedeemInviteCode(ctx context.Context, code string, userID int64) bool {
	err := s.store.RedeemInvite(ctx, code, userID)
	switch {
	case err == nil:
		s.logger.Info("invite redeemed", "user_id", userID)
		return true
	case errors.Is(err, store.ErrInviteNotFound), errors.Is(err, store.ErrInviteUsed):
		s.logger.Warn("invite rejected", "user_id", userID, "reason", err)
		return false
	default:
		s.logger.Error("redeeming invite", "user_id", userID, "error", err)
		return false
	}
}

// ListAllowedUsers returns the IDs on the allow-list, oldest grant first.
func (s *Service) ListAllowedUsers(ctx context.Context) ([]int64, error) {
	users, err := s.store.ListAllowedUsers(ctx)
	if err != nil {
		s.logger.Error("listing allowed users", "error", err)
		return nil, fmt.Errorf("listing allowed users: %w", err)
	}

	ids := make([]int64, 0, len(users))
	for _, u := range users {
		ids = append(ids, u.UserID)
	}
	return ids, nil
}
