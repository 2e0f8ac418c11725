package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/sakif/snippet-vault/internal/apperror"
	"github.com/sakif/snippet-vault/internal/model"
)

const versionColumns = "id, snippet_id, title, content, language, source, version_number, created_at"

func scanVersion(row interface{ Scan(...any) error }, v *model.SnippetVersion) error {
	return row.Scan(
		&v.ID,
		&v.SnippetID,
		&v.Title,
		&v.Content,
		&v.Language,
		&v.Source,
		&v.VersionNumber,
		&v.CreatedAt,
	)
}

// CreateVersion inserts a version snapshot. Snapshots are append-only: there
// is no corresponding update or single-row delete anywhere in this package.
func (db *DB) CreateVersion(ctx context.Context, v *model.SnippetVersion) error {
	v.CreatedAt = time.Now()

	res, err := db.q.ExecContext(ctx,
		`INSERT INTO snippet_versions (snippet_id, title, content, language, source, version_number, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		v.SnippetID,
		v.Title,
		v.Content,
		v.Language,
		v.Source,
		v.VersionNumber,
		v.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating version snapshot for snippet %d: %w", v.SnippetID, err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("sqlite: reading version id: %w", err)
	}
	v.ID = id
	return nil
}

// ListVersions returns all snapshots for a snippet, newest first. A snippet
// that has never been edited yields an empty slice, not an error.
func (db *DB) ListVersions(ctx context.Context, snippetID int64) ([]model.SnippetVersion, error) {
	rows, err := db.q.QueryContext(ctx,
		`SELECT `+versionColumns+`
		 FROM snippet_versions
		 WHERE snippet_id = ?
		 ORDER BY version_number DESC`,
		snippetID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing versions for snippet %d: %w", snippetID, err)
	}
	defer rows.Close()

	versions := make([]model.SnippetVersion, 0)
	for rows.Next() {
		var v model.SnippetVersion
		if err := scanVersion(rows, &v); err != nil {
			return nil, fmt.Errorf("sqlite: scanning version row: %w", err)
		}
		versions = append(versions, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating versions: %w", err)
	}
	return versions, nil
}

// GetVersion fetches the snapshot a snippet had at a specific version number.
func (db *DB) GetVersion(ctx context.Context, snippetID int64, versionNumber int) (*model.SnippetVersion, error) {
	var v model.SnippetVersion
	err := scanVersion(db.q.QueryRowContext(ctx,
		`SELECT `+versionColumns+`
		 FROM snippet_versions
		 WHERE snippet_id = ? AND version_number = ?`,
		snippetID, versionNumber), &v)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFoundf("version %d not found for snippet %d", versionNumber, snippetID)
		}
		return nil, fmt.Errorf("sqlite: getting version %d of snippet %d: %w", versionNumber, snippetID, err)
	}
	return &v, nil
}
