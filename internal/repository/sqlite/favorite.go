package sqlite

import (
	"context"
	"fmt"
	"time"
)

// SetFavorite makes the favorites row for snippetID exist (fav=true) or not
// (fav=false). Both directions are idempotent: marking a favorite twice or
// unmarking a non-favorite is a no-op, never an error.
//
// Row existence is the entire favorite state — there is no boolean column.
// IsFavorite below is the single accessor for reading it.
func (db *DB) SetFavorite(ctx context.Context, snippetID int64, fav bool) error {
	if fav {
		_, err := db.q.ExecContext(ctx,
			`INSERT OR IGNORE INTO favorites (snippet_id, created_at) VALUES (?, ?)`,
			snippetID, time.Now(),
		)
		if err != nil {
			return fmt.Errorf("sqlite: marking snippet %d favorite: %w", snippetID, err)
		}
		return nil
	}

	_, err := db.q.ExecContext(ctx,
		`DELETE FROM favorites WHERE snippet_id = ?`, snippetID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: unmarking snippet %d favorite: %w", snippetID, err)
	}
	return nil
}

// IsFavorite reports whether a favorites row exists for snippetID.
func (db *DB) IsFavorite(ctx context.Context, snippetID int64) (bool, error) {
	var exists int
	err := db.q.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM favorites WHERE snippet_id = ?)`, snippetID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("sqlite: checking favorite for snippet %d: %w", snippetID, err)
	}
	return exists == 1, nil
}
