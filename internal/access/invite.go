// ABOUTME: Invite code generation and persistence
// ABOUTME: Codes are uniform draws from [a-zA-Z0-9] using crypto/rand

package access

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"

	"github.com/2389/relay-bot/internal/store"
)

// DefaultInviteLength is the length of generated invite codes.
const DefaultInviteLength = 8

const inviteAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// maxInviteAttempts bounds regeneration when a fresh code collides with a stored one.
const maxInviteAttempts = 5

// ErrInviteCollision is returned when every generated code was already taken.
var ErrInviteCollision = errors.New("could not generate an unused invite code")

// GenerateInviteCode returns a random code of the given length.
// length <= 0 means DefaultInviteLength.
func GenerateInviteCode(length int) string {
	if length <= 0 {
		length = DefaultInviteLength
	}

	// Reject bytes past the largest multiple of the alphabet size so every character is equally likely.
	const limit = 256 - 256%len(inviteAlphabet)

	code := make([]byte, 0, length)
	buf := make([]byte, length*2)
	for len(code) < length {
		rand.Read(buf) // never returns an error since Go 1.24
		for _, b := range buf {
			if int(b) >= limit {
				continue
			}
			code = append(code, inviteAlphabet[int(b)%len(inviteAlphabet)])
			if len(code) == length {
				break
			}
		}
	}
	return string(code)
}

// SaveInviteCode persists code as unused.
// Returns store.ErrInviteExists, leaving the stored code untouched, if the value is taken.
func (s *Service) SaveInviteCode(ctx context.Context, code string, createdBy *int64) error {
	err := s.store.CreateInvite(ctx, &store.InviteCode{Code: code, CreatedBy: createdBy})
	if errors.Is(err, store.ErrInviteExists) {
		return err
	}
	if err != nil {
		s.logger.Error("saving invite code", "error", err)
		return fmt.Errorf("saving invite code: %w", err)
	}
	return nil
}

// CreateInvite generates and saves a new code, regenerating on collision.
func (s *Service) CreateInvite(ctx context.Context, createdBy *int64) (string, error) {
	for range maxInviteAttempts {
		code := GenerateInviteCode(s.inviteLength)
		err := s.SaveInviteCode(ctx, code, createdBy)
		if errors.Is(err, store.ErrInviteExists) {
			s.logger.Warn("invite code collision, regenerating")
			continue
		}
		if err != nil {
			return "", err
		}

		if createdBy != nil {
			s.logger.Info("invite code created", "created_by", *createdBy)
		} else {
			s.logger.Info("invite code created", "created_by", "cli")
		}
		return code, nil
	}
	return "", ErrInviteCollision
}
