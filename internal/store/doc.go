// Package store provides persistent storage for the bot on a relational database.
//
// # Architecture
//
// Two narrow interfaces cover everything the bot persists:
//
//   - AccessStore: allow-list membership and single-use invite codes
//   - ContextStore: serialized per-user conversation context
//
// SQLStore implements both on top of database/sql for SQLite
// (modernc.org/sqlite), PostgreSQL (pgx) and MySQL (go-sql-driver). Every
// operation checks out its own *sql.Conn and returns it before the method
// returns, including on error paths. Statements are written once with ?
// placeholders and rebound for PostgreSQL; the few statements that differ
// per dialect (insert-or-ignore, upsert, DDL) live in dialect.go.
//
// # Schema
//
//	allowed_users(user_id PK, created_at)
//	invite_codes(code PK, used, created_by, created_at, used_by, used_at)
//	user_context(chat_id PK, context, updated_at)
//
// Timestamps are stored as fixed-width UTC text so they sort and scan the
// same way on every driver.
//
// # Error Handling
//
// Common errors:
//
//   - ErrNotFound: Requested entity does not exist
//   - ErrAlreadyAllowed: Allow-list insert hit the primary key
//   - ErrInviteExists: Invite code value already issued
//   - ErrInviteNotFound / ErrInviteUsed: Redemption consumed nothing
//
// Unique violations are recognised per driver: PostgreSQL SQLSTATE 23505,
// MySQL error 1062 and the SQLite constraint message.
//
// # Testing
//
// Use NewMockStore() for unit tests:
//
//	s := store.NewMockStore()
//	s.FailWith(store.ErrMockUnavailable) // simulate an outage
//
// Use NewSQLiteStore(filepath.Join(t.TempDir(), "test.db")) for integration
// tests with real SQLite.
package store
