// Package sqlite implements the repository interfaces using SQLite as the
// storage backend.
//
// modernc.org/sqlite is a pure Go translation of the SQLite C code — no C
// compiler needed, works everywhere Go works. The blank import below registers
// it with database/sql as the driver named "sqlite".
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/sakif/snippet-vault/internal/repository"
)

// queryer is the subset of database/sql shared by *sql.DB and *sql.Tx. Every
// repository method runs through it, so the same code serves both the
// auto-commit path and the import transaction.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// DB wraps a sql.DB connection pool and implements repository.Store.
//
// The zero value is not usable; construct with New. A DB returned by New owns
// the pool and must be Closed; the transaction-bound copies handed to InTx
// callbacks borrow it and must not be.
type DB struct {
	conn *sql.DB
	q    queryer
}

var _ repository.Store = (*DB)(nil)

// New opens (or creates) the SQLite database at dbPath and runs migrations.
// For an in-memory database in tests use "file:<name>?mode=memory&cache=shared";
// a plain ":memory:" would give every pooled connection its own empty database.
func New(dbPath string) (*DB, error) {
	// foreign_keys is OFF by default and, like journal_mode, is a
	// per-connection setting. Passing both as DSN parameters makes the
	// driver apply them to every connection the database/sql pool opens —
	// a PRAGMA Exec would only reach the one connection it happens to run
	// on, and the cascades on snippet_versions, snippet_tags and favorites
	// depend on foreign keys being on everywhere.
	sep := "?"
	if strings.Contains(dbPath, "?") {
		sep = "&"
	}
	dsn := dbPath + sep + "_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)"

	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	// Force an immediate connection so a bad path surfaces here, not on the
	// first query.
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	db := &DB{conn: conn, q: conn}

	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// Close closes the database connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

// InTx runs fn against a copy of this DB bound to a single transaction.
// fn returning an error (or panicking) rolls back; otherwise the transaction
// commits. This is the explicit begin/commit/rollback bracket the bulk import
// runs inside.
func (db *DB) InTx(ctx context.Context, fn func(repository.Store) error) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning transaction: %w", err)
	}

	txdb := &DB{conn: db.conn, q: tx}
	if err := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				tx.Rollback()
				panic(r)
			}
		}()
		return fn(txdb)
	}(); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("sqlite: rolling back after %v: %w", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing transaction: %w", err)
	}
	return nil
}

// migrate creates the schema. CREATE TABLE IF NOT EXISTS keeps it safe to run
// on every startup; for anything fancier you'd reach for golang-migrate.
func (db *DB) migrate() error {
	stmts := []struct {
		name string
		sql  string
	}{
		{"snippets", `
			CREATE TABLE IF NOT EXISTS snippets (
				id         INTEGER PRIMARY KEY AUTOINCREMENT,
				title      TEXT NOT NULL,
				content    TEXT NOT NULL,
				language   TEXT NOT NULL DEFAULT 'plaintext',
				source     TEXT NOT NULL DEFAULT '',
				version    INTEGER NOT NULL DEFAULT 1,
				created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
				updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
			);
			CREATE INDEX IF NOT EXISTS idx_snippets_created_at ON snippets(created_at);
			CREATE INDEX IF NOT EXISTS idx_snippets_language ON snippets(language);
		`},
		{"snippet_versions", `
			CREATE TABLE IF NOT EXISTS snippet_versions (
				id             INTEGER PRIMARY KEY AUTOINCREMENT,
				snippet_id     INTEGER NOT NULL REFERENCES snippets(id) ON DELETE CASCADE,
				title          TEXT NOT NULL,
				content        TEXT NOT NULL,
				language       TEXT NOT NULL DEFAULT 'plaintext',
				source         TEXT NOT NULL DEFAULT '',
				version_number INTEGER NOT NULL,
				created_at     DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
				UNIQUE (snippet_id, version_number)
			);
			CREATE INDEX IF NOT EXISTS idx_versions_snippet_id ON snippet_versions(snippet_id);
		`},
		{"tags", `
			CREATE TABLE IF NOT EXISTS tags (
				id         INTEGER PRIMARY KEY AUTOINCREMENT,
				name       TEXT NOT NULL UNIQUE,
				color      TEXT NOT NULL DEFAULT '#6b7280',
				created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
			);
		`},
		{"snippet_tags", `
			CREATE TABLE IF NOT EXISTS snippet_tags (
				snippet_id INTEGER NOT NULL REFERENCES snippets(id) ON DELETE CASCADE,
				tag_id     INTEGER NOT NULL REFERENCES tags(id) ON DELETE CASCADE,
				UNIQUE (snippet_id, tag_id)
			);
			CREATE INDEX IF NOT EXISTS idx_snippet_tags_tag_id ON snippet_tags(tag_id);
		`},
		{"favorites", `
			CREATE TABLE IF NOT EXISTS favorites (
				snippet_id INTEGER PRIMARY KEY REFERENCES snippets(id) ON DELETE CASCADE,
				created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
			);
		`},
	}

	for _, s := range stmts {
		if _, err := db.conn.Exec(s.sql); err != nil {
			return fmt.Errorf("creating %s table: %w", s.name, err)
		}
	}
	return nil
}
