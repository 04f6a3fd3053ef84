// ABOUTME: Per-driver SQL differences for the relational store
// ABOUTME: Schema DDL, upsert/insert-ignore statements, DSN building and constraint detection

package store

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
)

// Supported drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
)

// dialect holds the statements that cannot be written portably.
type dialect struct {
	name       string // driver name passed to sql.Open
	schema     []string
	postgresql bool // placeholders are $n

	insertInviteIgnore  string
	insertAllowedIgnore string
	upsertContext       string
}

var sqliteDialect = dialect{
	name: "sqlite",
	schema: []string{
		`CREATE TABLE IF NOT EXISTS allowed_users (
			user_id INTEGER PRIMARY KEY,
			created_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS invite_codes (
			code TEXT PRIMARY KEY,
			used BOOLEAN NOT NULL DEFAULT FALSE,
			created_by INTEGER,
			created_at TEXT NOT NULL,
			used_by INTEGER,
			used_at TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS user_context (
			chat_id INTEGER PRIMARY KEY,
			context TEXT NOT NULL,
			updated_at TEXT NOT NULL
		)`,
	},
	insertInviteIgnore: `INSERT INTO invite_codes (code, used, created_by, created_at)
		VALUES (?, FALSE, ?, ?) ON CONFLICT (code) DO NOTHING`,
	insertAllowedIgnore: `INSERT INTO allowed_users (user_id, created_at)
		VALUES (?, ?) ON CONFLICT (user_id) DO NOTHING`,
	upsertContext: `INSERT INTO user_context (chat_id, context, updated_at) VALUES (?, ?, ?)
		ON CONFLICT (chat_id) DO UPDATE SET context = excluded.context, updated_at = excluded.updated_at`,
}

var postgresDialect = dialect{
	name:       "pgx",
	postgresql: true,
	schema: []string{
		`CREATE TABLE IF NOT EXISTS allowed_users (
			user_id BIGINT PRIMARY KEY,
			created_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS invite_codes (
			code VARCHAR(64) PRIMARY KEY,
			used BOOLEAN NOT NULL DEFAULT FALSE,
			created_by BIGINT,
			created_at TEXT NOT NULL,
			used_by BIGINT,
			used_at TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS user_context (
			chat_id BIGINT PRIMARY KEY,
			context TEXT NOT NULL,
			updated_at TEXT NOT NULL
		)`,
	},
	insertInviteIgnore:  sqliteDialect.insertInviteIgnore,
	insertAllowedIgnore: sqliteDialect.insertAllowedIgnore,
	upsertContext: `INSERT INTO user_context (chat_id, context, updated_at) VALUES (?, ?, ?)
		ON CONFLICT (chat_id) DO UPDATE SET context = EXCLUDED.context, updated_at = EXCLUDED.updated_at`,
}

var mysqlDialect = dialect{
	name: "mysql",
	schema: []string{
		`CREATE TABLE IF NOT EXISTS allowed_users (
			user_id BIGINT PRIMARY KEY,
			created_at VARCHAR(40) NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS invite_codes (
			code VARCHAR(64) PRIMARY KEY,
			used BOOLEAN NOT NULL DEFAULT FALSE,
			created_by BIGINT NULL,
			created_at VARCHAR(40) NOT NULL,
			used_by BIGINT NULL,
			used_at VARCHAR(40) NULL
		)`,
		`CREATE TABLE IF NOT EXISTS user_context (
			chat_id BIGINT PRIMARY KEY,
			context LONGTEXT NOT NULL,
			updated_at VARCHAR(40) NOT NULL
		)`,
	},
	insertInviteIgnore: `INSERT IGNORE INTO invite_codes (code, used, created_by, created_at)
		VALUES (?, FALSE, ?, ?)`,
	insertAllowedIgnore: `INSERT IGNORE INTO allowed_users (user_id, created_at) VALUES (?, ?)`,
	upsertContext: `INSERT INTO user_context (chat_id, context, updated_at) VALUES (?, ?, ?)
		ON DUPLICATE KEY UPDATE context = VALUES(context), updated_at = VALUES(updated_at)`,
}

func dialectFor(driver string) (dialect, error) {
	switch driver {
	case DriverSQLite, "":
		return sqliteDialect, nil
	case DriverPostgres:
		return postgresDialect, nil
	case DriverMySQL:
		return mysqlDialect, nil
	default:
		return dialect{}, fmt.Errorf("unsupported database driver %q", driver)
	}
}

// rebind rewrites ? placeholders for drivers that use numbered parameters.
// Statements never contain literal question marks.
func (d dialect) rebind(query string) string {
	if !d.postgresql {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// DSN builds the driver-specific data source name for opts.
func (opts Options) DSN() (string, error) {
	switch opts.Driver {
	case DriverSQLite, "":
		if opts.Path == "" {
			return "", errors.New("sqlite path is required")
		}
		// Pragmas are per connection, so they ride on the DSN rather than a one-off Exec.
		// Immediate transactions take the write lock up front so redemptions queue on busy_timeout.
		return "file:" + opts.Path +
			"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_txlock=immediate", nil

	case DriverPostgres:
		u := url.URL{
			Scheme: "postgres",
			User:   url.UserPassword(opts.User, opts.Password),
			Host:   net.JoinHostPort(opts.Host, strconv.Itoa(opts.Port)),
			Path:   "/" + opts.Name,
		}
		q := url.Values{}
		for k, v := range opts.Params {
			q.Set(k, v)
		}
		u.RawQuery = q.Encode()
		return u.String(), nil

	case DriverMySQL:
		cfg := mysql.NewConfig()
		cfg.User = opts.User
		cfg.Passwd = opts.Password
		cfg.Net = "tcp"
		cfg.Addr = net.JoinHostPort(opts.Host, strconv.Itoa(opts.Port))
		cfg.DBName = opts.Name
		if len(opts.Params) > 0 {
			cfg.Params = make(map[string]string, len(opts.Params))
			for k, v := range opts.Params {
				cfg.Params[k] = v
			}
		}
		return cfg.FormatDSN(), nil

	default:
		return "", fmt.Errorf("unsupported database driver %q", opts.Driver)
	}
}

// isUniqueViolation reports whether err is a primary key or unique constraint failure
// on any of the supported drivers.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}

	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == 1062
	}

	errStr := err.Error()
	return strings.Contains(errStr, "UNIQUE constraint failed") ||
		strings.Contains(errStr, "PRIMARY KEY constraint failed")
}
