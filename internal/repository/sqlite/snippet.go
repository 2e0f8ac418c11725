package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/sakif/snippet-vault/internal/apperror"
	"github.com/sakif/snippet-vault/internal/model"
	"github.com/sakif/snippet-vault/internal/repository"
)

// snippetColumns is the SELECT column list every snippet scan matches.
const snippetColumns = "id, title, content, language, source, version, created_at, updated_at"

func scanSnippet(row interface{ Scan(...any) error }, s *model.Snippet) error {
	return row.Scan(
		&s.ID,
		&s.Title,
		&s.Content,
		&s.Language,
		&s.Source,
		&s.Version,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
}

// Create inserts a new snippet. The generated id and both timestamps are
// written back onto the passed struct (pointer receiver semantics — the caller
// sees the stored row).
func (db *DB) Create(ctx context.Context, snippet *model.Snippet) error {
	now := time.Now()
	snippet.CreatedAt = now
	snippet.UpdatedAt = now
	if snippet.Language == "" {
		snippet.Language = model.DefaultLanguage
	}
	if snippet.Version == 0 {
		snippet.Version = 1
	}

	res, err := db.q.ExecContext(ctx,
		`INSERT INTO snippets (title, content, language, source, version, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		snippet.Title,
		snippet.Content,
		snippet.Language,
		snippet.Source,
		snippet.Version,
		snippet.CreatedAt,
		snippet.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating snippet: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("sqlite: reading snippet id: %w", err)
	}
	snippet.ID = id
	return nil
}

// GetByID retrieves a single snippet by its id. Tags and the favorite flag are
// resolved in the same call so callers get a complete model.
func (db *DB) GetByID(ctx context.Context, id int64) (*model.Snippet, error) {
	var s model.Snippet
	err := scanSnippet(db.q.QueryRowContext(ctx,
		`SELECT `+snippetColumns+` FROM snippets WHERE id = ?`, id), &s)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("snippet", id)
		}
		return nil, fmt.Errorf("sqlite: getting snippet %d: %w", id, err)
	}

	if err := db.attachRelations(ctx, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// attachRelations fills Tags and IsFavorite on a loaded snippet.
func (db *DB) attachRelations(ctx context.Context, s *model.Snippet) error {
	tags, err := db.ListSnippetTags(ctx, s.ID)
	if err != nil {
		return err
	}
	s.Tags = tags

	fav, err := db.IsFavorite(ctx, s.ID)
	if err != nil {
		return err
	}
	s.IsFavorite = fav
	return nil
}

// List retrieves snippets matching the filter options. The WHERE clause is
// assembled from parameterized fragments — user input only ever travels
// through placeholders.
func (db *DB) List(ctx context.Context, opts repository.SnippetListOptions) ([]model.Snippet, error) {
	// Limit 0 means the default page size; a negative limit means "no limit"
	// (the export path fetches the whole corpus).
	limit := opts.Limit
	if limit == 0 {
		limit = 50
	}
	if limit > 200 {
		limit = 200
	}
	offset := opts.Offset
	if offset < 0 {
		offset = 0
	}

	var (
		where []string
		args  []any
	)
	if opts.Search != "" {
		where = append(where, "(title LIKE ? OR content LIKE ?)")
		pattern := "%" + opts.Search + "%"
		args = append(args, pattern, pattern)
	}
	if opts.Language != "" {
		where = append(where, "language = ?")
		args = append(args, opts.Language)
	}
	if opts.TagID != 0 {
		where = append(where, "id IN (SELECT snippet_id FROM snippet_tags WHERE tag_id = ?)")
		args = append(args, opts.TagID)
	}
	if opts.FavoritesOnly {
		where = append(where, "id IN (SELECT snippet_id FROM favorites)")
	}

	query := `SELECT ` + snippetColumns + ` FROM snippets`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}

	// Sort keys are a fixed vocabulary, never raw user input.
	switch opts.SortBy {
	case "created":
		query += " ORDER BY created_at DESC"
	case "title":
		query += " ORDER BY title COLLATE NOCASE ASC"
	default:
		query += " ORDER BY updated_at DESC"
	}
	if limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, limit, offset)
	}

	rows, err := db.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing snippets: %w", err)
	}
	defer rows.Close()

	snippets := make([]model.Snippet, 0, max(limit, 0))
	for rows.Next() {
		var s model.Snippet
		if err := scanSnippet(rows, &s); err != nil {
			return nil, fmt.Errorf("sqlite: scanning snippet row: %w", err)
		}
		snippets = append(snippets, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating snippets: %w", err)
	}

	// Second pass for relations — rows must be fully consumed before new
	// queries run on the same connection.
	for i := range snippets {
		if err := db.attachRelations(ctx, &snippets[i]); err != nil {
			return nil, err
		}
	}
	return snippets, nil
}

// Update writes all editable fields plus version. Version snapshots are the
// service layer's responsibility; this is a plain row write.
func (db *DB) Update(ctx context.Context, snippet *model.Snippet) error {
	snippet.UpdatedAt = time.Now()

	res, err := db.q.ExecContext(ctx,
		`UPDATE snippets
		 SET title = ?, content = ?, language = ?, source = ?, version = ?, updated_at = ?
		 WHERE id = ?`,
		snippet.Title,
		snippet.Content,
		snippet.Language,
		snippet.Source,
		snippet.Version,
		snippet.UpdatedAt,
		snippet.ID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating snippet %d: %w", snippet.ID, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if affected == 0 {
		return apperror.NotFound("snippet", snippet.ID)
	}
	return nil
}

// Delete removes a snippet. Versions, tag links and the favorite marker go
// with it via ON DELETE CASCADE.
func (db *DB) Delete(ctx context.Context, id int64) error {
	res, err := db.q.ExecContext(ctx, `DELETE FROM snippets WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting snippet %d: %w", id, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if affected == 0 {
		return apperror.NotFound("snippet", id)
	}
	return nil
}

// FindDuplicate looks up a snippet by exact (title, content) match — the
// duplicate key used during import. Returns nil, nil when nothing matches.
func (db *DB) FindDuplicate(ctx context.Context, title, content string) (*model.Snippet, error) {
	var s model.Snippet
	err := scanSnippet(db.q.QueryRowContext(ctx,
		`SELECT `+snippetColumns+` FROM snippets WHERE title = ? AND content = ? LIMIT 1`,
		title, content), &s)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("sqlite: finding duplicate snippet: %w", err)
	}
	return &s, nil
}
