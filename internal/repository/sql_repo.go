package repository

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/darkodi/link-shortener/internal/model"
)

type dialect struct {
	driver  string
	schema  []string
	dollars bool // postgres style $1 placeholders
}

var sqliteDialect = dialect{
	driver: "sqlite3",
	schema: []string{
		`CREATE TABLE IF NOT EXISTS users (
            id TEXT PRIMARY KEY,
            name TEXT UNIQUE NOT NULL,
            created_at DATETIME NOT NULL
        )`,
		`CREATE TABLE IF NOT EXISTS links (
            token TEXT PRIMARY KEY,
            owner_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
            destination TEXT NOT NULL,
            created_at DATETIME NOT NULL,
            expires_at DATETIME NOT NULL,
            remaining_visits INTEGER,
            visit_count INTEGER NOT NULL DEFAULT 0
        )`,
		`CREATE INDEX IF NOT EXISTS idx_links_owner ON links(owner_id)`,
	},
}

var postgresDialect = dialect{
	driver:  "postgres",
	dollars: true,
	schema: []string{
		`CREATE TABLE IF NOT EXISTS users (
            id UUID PRIMARY KEY,
            name TEXT UNIQUE NOT NULL,
            created_at TIMESTAMPTZ NOT NULL
        )`,
		`CREATE TABLE IF NOT EXISTS links (
            token VARCHAR(16) PRIMARY KEY,
            owner_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
            destination TEXT NOT NULL,
            created_at TIMESTAMPTZ NOT NULL,
            expires_at TIMESTAMPTZ NOT NULL,
            remaining_visits INTEGER,
            visit_count BIGINT NOT NULL DEFAULT 0
        )`,
		`CREATE INDEX IF NOT EXISTS idx_links_owner ON links(owner_id)`,
	},
}

// SQLRepository stores the snapshot as users and links tables
type SQLRepository struct {
	db      *sql.DB
	dialect dialect
}

// NewSQLiteRepository opens (or creates) a sqlite database at path
func NewSQLiteRepository(ctx context.Context, path string) (*SQLRepository, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite: empty database path")
	}
	if path != ":memory:" && !strings.HasPrefix(path, "file:") {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("sqlite: create directory: %w", err)
		}
	}

	dsn := path
	if !strings.Contains(dsn, "?") {
		dsn += "?_foreign_keys=on"
	}
	return openSQL(ctx, sqliteDialect, dsn)
}

// NewPostgresRepository connects to postgres using dsn
func NewPostgresRepository(ctx context.Context, dsn string) (*SQLRepository, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres: empty DSN")
	}
	return openSQL(ctx, postgresDialect, dsn)
}

func openSQL(ctx context.Context, d dialect, dsn string) (*SQLRepository, error) {
	db, err := sql.Open(d.driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("%s: open: %w", d.driver, err)
	}

	// sqlite allows a single writer; ":memory:" is also per connection
	if d.driver == sqliteDialect.driver {
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("%s: ping: %w", d.driver, err)
	}

	for _, stmt := range d.schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("%s: create schema: %w", d.driver, err)
		}
	}

	return &SQLRepository{db: db, dialect: d}, nil
}

// Load reads every user and link
func (r *SQLRepository) Load(ctx context.Context) (model.Snapshot, error) {
	snap := model.NewSnapshot()
	names := make(map[string]string) // id -> name

	rows, err := r.db.QueryContext(ctx, r.q("SELECT id, name, created_at FROM users"))
	if err != nil {
		return model.Snapshot{}, fmt.Errorf("load users: %w", err)
	}
	for rows.Next() {
		var id, name string
		var created time.Time
		if err := rows.Scan(&id, &name, &created); err != nil {
			rows.Close()
			return model.Snapshot{}, fmt.Errorf("scan user: %w", err)
		}
		snap.Users[name] = model.UserRecord{UUID: id, CreatedAt: created.UTC(), Links: make(map[string]model.Link)}
		names[id] = name
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return model.Snapshot{}, fmt.Errorf("load users: %w", err)
	}

	rows, err = r.db.QueryContext(ctx, r.q(
		"SELECT token, owner_id, destination, created_at, expires_at, remaining_visits, visit_count FROM links",
	))
	if err != nil {
		return model.Snapshot{}, fmt.Errorf("load links: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var l model.Link
		var owner string
		var remaining sql.NullInt64
		if err := rows.Scan(&l.Token, &owner, &l.Destination, &l.CreatedAt, &l.ExpiresAt, &remaining, &l.VisitCount); err != nil {
			return model.Snapshot{}, fmt.Errorf("scan link: %w", err)
		}
		if remaining.Valid {
			l.RemainingVisits = model.IntPtr(int(remaining.Int64))
		}
		l.CreatedAt = l.CreatedAt.UTC()
		l.ExpiresAt = l.ExpiresAt.UTC()

		name, ok := names[owner]
		if !ok {
			continue
		}
		snap.Users[name].Links[l.Token] = l
	}
	if err := rows.Err(); err != nil {
		return model.Snapshot{}, fmt.Errorf("load links: %w", err)
	}

	return snap, nil
}

// Save replaces the table contents with snap in a single transaction
func (r *SQLRepository) Save(ctx context.Context, snap model.Snapshot) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM links"); err != nil {
		return fmt.Errorf("clear links: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM users"); err != nil {
		return fmt.Errorf("clear users: %w", err)
	}

	insertUser, err := tx.PrepareContext(ctx, r.q("INSERT INTO users (id, name, created_at) VALUES (?, ?, ?)"))
	if err != nil {
		return fmt.Errorf("prepare users: %w", err)
	}
	defer insertUser.Close()

	insertLink, err := tx.PrepareContext(ctx, r.q(
		"INSERT INTO links (token, owner_id, destination, created_at, expires_at, remaining_visits, visit_count) VALUES (?, ?, ?, ?, ?, ?, ?)",
	))
	if err != nil {
		return fmt.Errorf("prepare links: %w", err)
	}
	defer insertLink.Close()

	for name, u := range snap.Users {
		if _, err := insertUser.ExecContext(ctx, u.UUID, name, u.CreatedAt.UTC()); err != nil {
			return fmt.Errorf("insert user %s: %w", name, err)
		}
		for tok, l := range u.Links {
			var remaining sql.NullInt64
			if l.RemainingVisits != nil {
				remaining = sql.NullInt64{Int64: int64(*l.RemainingVisits), Valid: true}
			}
			if _, err := insertLink.ExecContext(ctx,
				tok, u.UUID, l.Destination, l.CreatedAt.UTC(), l.ExpiresAt.UTC(), remaining, int64(l.VisitCount),
			); err != nil {
				return fmt.Errorf("insert link %s: %w", tok, err)
			}
		}
	}

	return tx.Commit()
}

// Close closes the database connection
func (r *SQLRepository) Close() error {
	return r.db.Close()
}

// q rewrites ? placeholders for dialects that number them
func (r *SQLRepository) q(query string) string {
	if !r.dialect.dollars {
		return query
	}

	var b strings.Builder
	n := 0
	for _, c := range query {
		if c == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(c)
	}
	return b.String()
}
