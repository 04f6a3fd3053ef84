// ABOUTME: database/sql implementation of the Store interface for SQLite, PostgreSQL and MySQL
// ABOUTME: Every operation checks out its own connection and returns it on all exit paths

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// Options selects and addresses the backing database.
type Options struct {
	Driver   string // sqlite, postgres or mysql
	Path     string // sqlite only
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	Params   map[string]string

	// MaxIdleConns caps pooled idle connections. Zero keeps none,
	// so every operation opens a fresh connection.
	MaxIdleConns int
}

// SQLStore implements Store on top of database/sql
type SQLStore struct {
	db      *sql.DB
	dialect dialect
	logger  *slog.Logger
}

var _ Store = (*SQLStore)(nil)

// Open connects to the database described by opts and creates the schema if needed.
func Open(ctx context.Context, opts Options) (*SQLStore, error) {
	logger := slog.Default().With("component", "store")

	d, err := dialectFor(opts.Driver)
	if err != nil {
		return nil, err
	}

	dsn, err := opts.DSN()
	if err != nil {
		return nil, err
	}

	if d.name == sqliteDialect.name {
		if err := ensureDir(opts.Path); err != nil {
			return nil, err
		}
	}

	db, err := sql.Open(d.name, dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	db.SetMaxIdleConns(max(opts.MaxIdleConns, 0))

	s := &SQLStore{
		db:      db,
		dialect: d,
		logger:  logger,
	}

	if err := s.Migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	logger.Info("store initialized", "driver", d.name)
	return s, nil
}

// Migrate creates the tables if they don't exist. Idempotent.
func (s *SQLStore) Migrate(ctx context.Context) error {
	return s.withConn(ctx, func(conn *sql.Conn) error {
		for _, stmt := range s.dialect.schema {
			if _, err := conn.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("executing schema statement: %w", err)
			}
		}
		return nil
	})
}

// withConn checks out a dedicated connection for fn and always returns it.
func (s *SQLStore) withConn(ctx context.Context, fn func(conn *sql.Conn) error) error {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("acquiring connection: %w", err)
	}
	defer conn.Close()

	return fn(conn)
}

// Ping verifies the database is reachable
func (s *SQLStore) Ping(ctx context.Context) error {
	return s.withConn(ctx, func(conn *sql.Conn) error {
		return conn.PingContext(ctx)
	})
}

// Close closes the database handle
func (s *SQLStore) Close() error {
	s.logger.Info("closing store")
	return s.db.Close()
}

// IsAllowed reports whether userID is on the allow-list.
func (s *SQLStore) IsAllowed(ctx context.Context, userID int64) (bool, error) {
	var allowed bool
	err := s.withConn(ctx, func(conn *sql.Conn) error {
		var one int
		err := conn.QueryRowContext(ctx,
			s.dialect.rebind(`SELECT 1 FROM allowed_users WHERE user_id = ?`), userID,
		).Scan(&one)
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("querying allowed user: %w", err)
		}
		allowed = true
		return nil
	})
	return allowed, err
}

// AddAllowedUser inserts userID into the allow-list.
// Returns ErrAlreadyAllowed if the user is already present.
func (s *SQLStore) AddAllowedUser(ctx context.Context, userID int64) error {
	return s.withConn(ctx, func(conn *sql.Conn) error {
		_, err := conn.ExecContext(ctx,
			s.dialect.rebind(`INSERT INTO allowed_users (user_id, created_at) VALUES (?, ?)`),
			userID, formatTime(time.Now()),
		)
		if err != nil {
			if isUniqueViolation(err) {
				return ErrAlreadyAllowed
			}
			return fmt.Errorf("inserting allowed user: %w", err)
		}

		s.logger.Info("added allowed user", "user_id", userID)
		return nil
	})
}

// ListAllowedUsers returns the allow-list, oldest grant first.
func (s *SQLStore) ListAllowedUsers(ctx context.Context) ([]*AllowedUser, error) {
	var users []*AllowedUser
	err := s.withConn(ctx, func(conn *sql.Conn) error {
		rows, err := conn.QueryContext(ctx,
			`SELECT user_id, created_at FROM allowed_users ORDER BY created_at, user_id`)
		if err != nil {
			return fmt.Errorf("querying allowed users: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			var u AllowedUser
			var createdAt string
			if err := rows.Scan(&u.UserID, &createdAt); err != nil {
				return fmt.Errorf("scanning allowed user: %w", err)
			}
			if u.CreatedAt, err = parseTime(createdAt); err != nil {
				return fmt.Errorf("parsing created_at: %w", err)
			}
			users = append(users, &u)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return users, nil
}

// CreateInvite stores a fresh invite code.
// Returns ErrInviteExists, without touching the stored row, when the value is taken.
func (s *SQLStore) CreateInvite(ctx context.Context, invite *InviteCode) error {
	if invite.CreatedAt.IsZero() {
		invite.CreatedAt = time.Now()
	}

	return s.withConn(ctx, func(conn *sql.Conn) error {
		res, err := conn.ExecContext(ctx, s.dialect.rebind(s.dialect.insertInviteIgnore),
			invite.Code, nullInt64(invite.CreatedBy), formatTime(invite.CreatedAt),
		)
		if err != nil {
			return fmt.Errorf("inserting invite code: %w", err)
		}

		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("checking rows affected: %w", err)
		}
		if n == 0 {
			return ErrInviteExists
		}

		s.logger.Info("created invite code", "created_by", nullInt64(invite.CreatedBy))
		return nil
	})
}

// GetInvite retrieves an invite code by value.
// Returns ErrNotFound if it was never issued.
func (s *SQLStore) GetInvite(ctx context.Context, code string) (*InviteCode, error) {
	var invite *InviteCode
	err := s.withConn(ctx, func(conn *sql.Conn) error {
		var err error
		invite, err = s.getInvite(ctx, conn, code)
		return err
	})
	return invite, err
}

type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *SQLStore) getInvite(ctx context.Context, q queryRower, code string) (*InviteCode, error) {
	var (
		invite            InviteCode
		createdBy, usedBy sql.NullInt64
		createdAt         string
		usedAt            sql.NullString
	)

	err := q.QueryRowContext(ctx, s.dialect.rebind(`
		SELECT code, used, created_by, created_at, used_by, used_at
		FROM invite_codes
		WHERE code = ?
	`), code).Scan(&invite.Code, &invite.Used, &createdBy, &createdAt, &usedBy, &usedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying invite code: %w", err)
	}

	if invite.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	if createdBy.Valid {
		invite.CreatedBy = &createdBy.Int64
	}
	if usedBy.Valid {
		invite.UsedBy = &usedBy.Int64
	}
	if usedAt.Valid {
		t, err := parseTime(usedAt.String)
		if err != nil {
			return nil, fmt.Errorf("parsing used_at: %w", err)
		}
		invite.UsedAt = &t
	}

	return &invite, nil
}

// RedeemInvite consumes code on behalf of userID and allow-lists the user in the same
// transaction. The conditional update guarantees at most one redeemer per code.
// Returns ErrInviteNotFound or ErrInviteUsed when nothing was consumed.
func (s *SQLStore) RedeemInvite(ctx context.Context, code string, userID int64) error {
	return s.withConn(ctx, func(conn *sql.Conn) error {
		tx, err := conn.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("beginning transaction: %w", err)
		}
		defer tx.Rollback() //nolint:errcheck // no-op after commit

		now := formatTime(time.Now())
		res, err := tx.ExecContext(ctx, s.dialect.rebind(`
			UPDATE invite_codes
			SET used = TRUE, used_by = ?, used_at = ?
			WHERE code = ? AND used = FALSE
		`), userID, now, code)
		if err != nil {
			return fmt.Errorf("consuming invite code: %w", err)
		}

		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("checking rows affected: %w", err)
		}
		if n == 0 {
			// Nothing consumed - find out why for a better error
			if _, err := s.getInvite(ctx, tx, code); errors.Is(err, ErrNotFound) {
				return ErrInviteNotFound
			} else if err != nil {
				return err
			}
			return ErrInviteUsed
		}

		if _, err := tx.ExecContext(ctx, s.dialect.rebind(s.dialect.insertAllowedIgnore), userID, now); err != nil {
			return fmt.Errorf("inserting allowed user: %w", err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing redemption: %w", err)
		}

		s.logger.Info("redeemed invite code", "user_id", userID)
		return nil
	})
}

// GetContext returns the stored context payload for userID.
// Returns ErrNotFound if the user has no saved context.
func (s *SQLStore) GetContext(ctx context.Context, userID int64) (string, error) {
	var payload string
	err := s.withConn(ctx, func(conn *sql.Conn) error {
		err := conn.QueryRowContext(ctx,
			s.dialect.rebind(`SELECT context FROM user_context WHERE chat_id = ?`), userID,
		).Scan(&payload)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("querying context: %w", err)
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	s.logger.Debug("loaded context", "user_id", userID, "bytes", len(payload))
	return payload, nil
}

// SaveContext replaces the stored context payload for userID.
func (s *SQLStore) SaveContext(ctx context.Context, userID int64, payload string) error {
	return s.withConn(ctx, func(conn *sql.Conn) error {
		if _, err := conn.ExecContext(ctx, s.dialect.rebind(s.dialect.upsertContext),
			userID, payload, formatTime(time.Now()),
		); err != nil {
			return fmt.Errorf("upserting context: %w", err)
		}

		s.logger.Debug("saved context", "user_id", userID, "bytes", len(payload))
		return nil
	})
}

// DeleteContext removes the stored context for userID. Missing rows are not an error.
func (s *SQLStore) DeleteContext(ctx context.Context, userID int64) error {
	return s.withConn(ctx, func(conn *sql.Conn) error {
		if _, err := conn.ExecContext(ctx,
			s.dialect.rebind(`DELETE FROM user_context WHERE chat_id = ?`), userID,
		); err != nil {
			return fmt.Errorf("deleting context: %w", err)
		}

		s.logger.Info("cleared context", "user_id", userID)
		return nil
	})
}

// timeLayout is fixed width so timestamps sort lexically
const timeLayout = "2006-01-02T15:04:05.000000Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(timeLayout, s)
}

// nullInt64 returns nil for a missing value so the driver stores NULL.
func nullInt64(v *int64) any {
	if v == nil {
		return nil
	}
	return *v
}
