package store

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestStore creates a temporary SQLite store for testing.
func setupTestStore(t *testing.T) *SQLStore {
	t.Helper()
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")

	store, err := NewSQLiteStore(dbPath)
	require.NoError(t, err)

	t.Cleanup(func() {
		store.Close()
	})

	return store
}

func TestStore_AllowedUsers(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	allowed, err := store.IsAllowed(ctx, 42)
	require.NoError(t, err)
	assert.False(t, allowed)

	require.NoError(t, store.AddAllowedUser(ctx, 42))

	// Verify it was added
	allowed, err = store.IsAllowed(ctx, 42)
	require.NoError(t, err)
	assert.True(t, allowed)

	// Second grant hits the primary key
	err = store.AddAllowedUser(ctx, 42)
	assert.ErrorIs(t, err, ErrAlreadyAllowed)
}

func TestStore_ListAllowedUsers(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	users, err := store.ListAllowedUsers(ctx)
	require.NoError(t, err)
	assert.Empty(t, users)

	require.NoError(t, store.AddAllowedUser(ctx, 7))
	require.NoError(t, store.AddAllowedUser(ctx, 3))

	users, err = store.ListAllowedUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.ElementsMatch(t, []int64{3, 7}, []int64{users[0].UserID, users[1].UserID})
	assert.False(t, users[0].CreatedAt.IsZero())
}

func TestStore_CreateInvite(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	admin := int64(1)
	err := store.CreateInvite(ctx, &InviteCode{Code: "Ab3dEf9h", CreatedBy: &admin})
	require.NoError(t, err)

	inv, err := store.GetInvite(ctx, "Ab3dEf9h")
	require.NoError(t, err)
	assert.Equal(t, "Ab3dEf9h", inv.Code)
	assert.False(t, inv.Used)
	require.NotNil(t, inv.CreatedBy)
	assert.Equal(t, int64(1), *inv.CreatedBy)
	assert.Nil(t, inv.UsedBy)
	assert.Nil(t, inv.UsedAt)
}

func TestStore_CreateInvite_ExistingIsNoop(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.CreateInvite(ctx, &InviteCode{Code: "SAMECODE"}))
	require.NoError(t, store.RedeemInvite(ctx, "SAMECODE", 5))

	// Re-inserting must not reset the used flag
	err := store.CreateInvite(ctx, &InviteCode{Code: "SAMECODE"})
	assert.ErrorIs(t, err, ErrInviteExists)

	inv, err := store.GetInvite(ctx, "SAMECODE")
	require.NoError(t, err)
	assert.True(t, inv.Used)
}

func TestStore_GetInvite_NotFound(t *testing.T) {
	store := setupTestStore(t)

	_, err := store.GetInvite(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_RedeemInvite(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.CreateInvite(ctx, &InviteCode{Code: "ONETIME1"}))

	err := store.RedeemInvite(ctx, "ONETIME1", 99)
	require.NoError(t, err)

	// Verify the user was allow-listed and the code consumed
	allowed, err := store.IsAllowed(ctx, 99)
	require.NoError(t, err)
	assert.True(t, allowed)

	inv, err := store.GetInvite(ctx, "ONETIME1")
	require.NoError(t, err)
	assert.True(t, inv.Used)
	require.NotNil(t, inv.UsedBy)
	assert.Equal(t, int64(99), *inv.UsedBy)
	assert.NotNil(t, inv.UsedAt)

	// Second redemption fails for anyone
	err = store.RedeemInvite(ctx, "ONETIME1", 100)
	assert.ErrorIs(t, err, ErrInviteUsed)

	allowed, err = store.IsAllowed(ctx, 100)
	require.NoError(t, err)
	assert.False(t, allowed)
}

func TestStore_RedeemInvite_Unknown(t *testing.T) {
	store := setupTestStore(t)

	err := store.RedeemInvite(context.Background(), "NOPE", 1)
	assert.ErrorIs(t, err, ErrInviteNotFound)
}

func TestStore_RedeemInvite_AlreadyAllowedUser(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.AddAllowedUser(ctx, 8))
	require.NoError(t, store.CreateInvite(ctx, &InviteCode{Code: "EXTRA123"}))

	// Redeeming while already allowed still consumes the code
	require.NoError(t, store.RedeemInvite(ctx, "EXTRA123", 8))

	inv, err := store.GetInvite(ctx, "EXTRA123")
	require.NoError(t, err)
	assert.True(t, inv.Used)
}

func TestStore_RedeemInvite_Concurrent(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.CreateInvite(ctx, &InviteCode{Code: "RACECODE"}))

	const redeemers = 8
	var wg sync.WaitGroup
	errs := make([]error, redeemers)
	for i := range redeemers {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = store.RedeemInvite(ctx, "RACECODE", int64(1000+i))
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.True(t, errors.Is(err, ErrInviteUsed), "unexpected error: %v", err)
	}
	assert.Equal(t, 1, succeeded, "exactly one redemption should win")

	users, err := store.ListAllowedUsers(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 1)
}

func TestStore_Context(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	_, err := store.GetContext(ctx, 5)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.SaveContext(ctx, 5, `[{"role":"user","content":"hi"}]`))

	payload, err := store.GetContext(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, `[{"role":"user","content":"hi"}]`, payload)

	// Save replaces wholesale
	require.NoError(t, store.SaveContext(ctx, 5, `[]`))
	payload, err = store.GetContext(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, `[]`, payload)

	require.NoError(t, store.DeleteContext(ctx, 5))
	_, err = store.GetContext(ctx, 5)
	assert.ErrorIs(t, err, ErrNotFound)

	// Deleting again is fine
	assert.NoError(t, store.DeleteContext(ctx, 5))
}

func TestStore_Ping(t *testing.T) {
	store := setupTestStore(t)
	assert.NoError(t, store.Ping(context.Background()))
}

func TestStore_ClosedDatabaseErrors(t *testing.T) {
	store := setupTestStore(t)
	require.NoError(t, store.Close())

	_, err := store.IsAllowed(context.Background(), 1)
	assert.Error(t, err)
}
