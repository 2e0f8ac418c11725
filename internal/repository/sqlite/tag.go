package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/sakif/snippet-vault/internal/apperror"
	"github.com/sakif/snippet-vault/internal/model"
)

// CreateTag inserts a new tag. Tag names are unique; a duplicate name
// surfaces as a Conflict so the handler can answer 409.
func (db *DB) CreateTag(ctx context.Context, tag *model.Tag) error {
	tag.CreatedAt = time.Now()
	if tag.Color == "" {
		tag.Color = model.DefaultTagColor
	}

	res, err := db.q.ExecContext(ctx,
		`INSERT INTO tags (name, color, created_at) VALUES (?, ?, ?)`,
		tag.Name, tag.Color, tag.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict(fmt.Sprintf("tag %q already exists", tag.Name))
		}
		return fmt.Errorf("sqlite: creating tag: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("sqlite: reading tag id: %w", err)
	}
	tag.ID = id
	return nil
}

// isUniqueViolation detects SQLite's UNIQUE constraint error. modernc.org/sqlite
// returns it as a plain error whose message carries the SQLITE_CONSTRAINT_UNIQUE
// text, so string matching is the portable check.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func (db *DB) GetTagByID(ctx context.Context, id int64) (*model.Tag, error) {
	var t model.Tag
	err := db.q.QueryRowContext(ctx,
		`SELECT id, name, color, created_at FROM tags WHERE id = ?`, id,
	).Scan(&t.ID, &t.Name, &t.Color, &t.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("tag", id)
		}
		return nil, fmt.Errorf("sqlite: getting tag %d: %w", id, err)
	}
	return &t, nil
}

// GetTagByName returns nil, nil when no tag has that name — callers use it to
// decide between linking an existing tag and creating a new one.
func (db *DB) GetTagByName(ctx context.Context, name string) (*model.Tag, error) {
	var t model.Tag
	err := db.q.QueryRowContext(ctx,
		`SELECT id, name, color, created_at FROM tags WHERE name = ?`, name,
	).Scan(&t.ID, &t.Name, &t.Color, &t.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("sqlite: getting tag %q: %w", name, err)
	}
	return &t, nil
}

// ListTags returns all tags with their usage counts, most used first.
func (db *DB) ListTags(ctx context.Context) ([]model.Tag, error) {
	rows, err := db.q.QueryContext(ctx,
		`SELECT t.id, t.name, t.color, t.created_at, COUNT(st.snippet_id)
		 FROM tags t
		 LEFT JOIN snippet_tags st ON st.tag_id = t.id
		 GROUP BY t.id
		 ORDER BY COUNT(st.snippet_id) DESC, t.name ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing tags: %w", err)
	}
	defer rows.Close()

	tags := make([]model.Tag, 0)
	for rows.Next() {
		var t model.Tag
		if err := rows.Scan(&t.ID, &t.Name, &t.Color, &t.CreatedAt, &t.SnippetCount); err != nil {
			return nil, fmt.Errorf("sqlite: scanning tag row: %w", err)
		}
		tags = append(tags, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating tags: %w", err)
	}
	return tags, nil
}

func (db *DB) UpdateTag(ctx context.Context, tag *model.Tag) error {
	res, err := db.q.ExecContext(ctx,
		`UPDATE tags SET name = ?, color = ? WHERE id = ?`,
		tag.Name, tag.Color, tag.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict(fmt.Sprintf("tag %q already exists", tag.Name))
		}
		return fmt.Errorf("sqlite: updating tag %d: %w", tag.ID, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if affected == 0 {
		return apperror.NotFound("tag", tag.ID)
	}
	return nil
}

// DeleteTag removes a tag row. The usage guard (refusing to delete a tag that
// is still linked) lives in the service layer so it can report the count.
func (db *DB) DeleteTag(ctx context.Context, id int64) error {
	res, err := db.q.ExecContext(ctx, `DELETE FROM tags WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting tag %d: %w", id, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if affected == 0 {
		return apperror.NotFound("tag", id)
	}
	return nil
}

// TagUsageCount reports how many snippets currently link this tag.
func (db *DB) TagUsageCount(ctx context.Context, id int64) (int, error) {
	var count int
	err := db.q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM snippet_tags WHERE tag_id = ?`, id,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("sqlite: counting usage of tag %d: %w", id, err)
	}
	return count, nil
}

// LinkTag associates a tag with a snippet. INSERT OR IGNORE makes it
// idempotent against the UNIQUE (snippet_id, tag_id) constraint.
func (db *DB) LinkTag(ctx context.Context, snippetID, tagID int64) error {
	_, err := db.q.ExecContext(ctx,
		`INSERT OR IGNORE INTO snippet_tags (snippet_id, tag_id) VALUES (?, ?)`,
		snippetID, tagID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: linking tag %d to snippet %d: %w", tagID, snippetID, err)
	}
	return nil
}

// ClearSnippetTags removes every tag link for a snippet. Clearing a snippet
// with no links is not an error.
func (db *DB) ClearSnippetTags(ctx context.Context, snippetID int64) error {
	_, err := db.q.ExecContext(ctx,
		`DELETE FROM snippet_tags WHERE snippet_id = ?`, snippetID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: clearing tags of snippet %d: %w", snippetID, err)
	}
	return nil
}

// ListSnippetTags returns the tags linked to one snippet, name-sorted.
func (db *DB) ListSnippetTags(ctx context.Context, snippetID int64) ([]model.Tag, error) {
	rows, err := db.q.QueryContext(ctx,
		`SELECT t.id, t.name, t.color, t.created_at
		 FROM tags t
		 JOIN snippet_tags st ON st.tag_id = t.id
		 WHERE st.snippet_id = ?
		 ORDER BY t.name ASC`,
		snippetID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing tags of snippet %d: %w", snippetID, err)
	}
	defer rows.Close()

	tags := make([]model.Tag, 0)
	for rows.Next() {
		var t model.Tag
		if err := rows.Scan(&t.ID, &t.Name, &t.Color, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("sqlite: scanning snippet tag row: %w", err)
		}
		tags = append(tags, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating snippet tags: %w", err)
	}
	return tags, nil
}
