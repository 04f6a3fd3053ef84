// ABOUTME: Store interface and data types for relay-bot persistence
// ABOUTME: Defines allow-list, invite code and conversation context records

package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested entity does not exist
var ErrNotFound = errors.New("not found")

// ErrAlreadyAllowed is returned when granting access to a user already on the allow-list
var ErrAlreadyAllowed = errors.New("user already allowed")

// ErrInviteExists is returned when an invite code with the same value is already stored
var ErrInviteExists = errors.New("invite code already exists")

// ErrInviteNotFound is returned when redeeming a code that was never issued
var ErrInviteNotFound = errors.New("invite code not found")

// ErrInviteUsed is returned when redeeming a code that has already been consumed
var ErrInviteUsed = errors.New("invite code already used")

// AllowedUser is a Telegram user permitted to talk to the model
type AllowedUser struct {
	UserID    int64
	CreatedAt time.Time
}

// InviteCode is a single-use credential that puts its redeemer on the allow-list
type InviteCode struct {
	Code      string
	Used      bool
	CreatedBy *int64 // nil when issued from the CLI
	CreatedAt time.Time
	UsedBy    *int64
	UsedAt    *time.Time
}

// AccessStore persists the allow-list and invite codes.
type AccessStore interface {
	IsAllowed(ctx context.Context, userID int64) (bool, error)
	// AddAllowedUser returns ErrAlreadyAllowed when the user is already present.
	AddAllowedUser(ctx context.Context, userID int64) error
	ListAllowedUsers(ctx context.Context) ([]*AllowedUser, error)

	// CreateInvite inserts the code unless one with the same value exists,
	// in which case it returns ErrInviteExists and leaves the stored row alone.
	CreateInvite(ctx context.Context, invite *InviteCode) error
	GetInvite(ctx context.Context, code string) (*InviteCode, error)
	// RedeemInvite marks the code used and allow-lists the user atomically.
	RedeemInvite(ctx context.Context, code string, userID int64) error
}

// ContextStore persists the serialized conversation context of each user.
// Payloads are opaque to the store.
type ContextStore interface {
	GetContext(ctx context.Context, userID int64) (string, error)
	SaveContext(ctx context.Context, userID int64, payload string) error
	DeleteContext(ctx context.Context, userID int64) error
}

// Store is everything the bot persists plus lifecycle hooks.
type Store interface {
	AccessStore
	ContextStore

	Ping(ctx context.Context) error
	Close() error
}
