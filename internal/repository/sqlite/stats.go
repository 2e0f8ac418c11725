package sqlite

import (
	"context"
	"fmt"

	"github.com/sakif/snippet-vault/internal/model"
	"github.com/sakif/snippet-vault/internal/repository"
)

// Stats gathers the analytics payload in a handful of aggregate queries.
// Counts can drift between statements under concurrent writes; the dashboard
// tolerates that.
func (db *DB) Stats(ctx context.Context) (*model.Stats, error) {
	stats := &model.Stats{}

	counts := []struct {
		query string
		dest  *int
	}{
		{`SELECT COUNT(*) FROM snippets`, &stats.TotalSnippets},
		{`SELECT COUNT(*) FROM tags`, &stats.TotalTags},
		{`SELECT COUNT(*) FROM snippet_versions`, &stats.TotalVersions},
		{`SELECT COUNT(*) FROM favorites`, &stats.FavoriteCount},
	}
	for _, c := range counts {
		if err := db.q.QueryRowContext(ctx, c.query).Scan(c.dest); err != nil {
			return nil, fmt.Errorf("sqlite: counting for stats: %w", err)
		}
	}

	rows, err := db.q.QueryContext(ctx,
		`SELECT language, COUNT(*) FROM snippets GROUP BY language ORDER BY COUNT(*) DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: language breakdown: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var lc model.LanguageCount
		if err := rows.Scan(&lc.Language, &lc.Count); err != nil {
			return nil, fmt.Errorf("sqlite: scanning language count: %w", err)
		}
		stats.Languages = append(stats.Languages, lc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating language counts: %w", err)
	}

	tags, err := db.ListTags(ctx)
	if err != nil {
		return nil, err
	}
	if len(tags) > 5 {
		tags = tags[:5]
	}
	stats.TopTags = tags

	recent, err := db.List(ctx, repository.SnippetListOptions{Limit: 5})
	if err != nil {
		return nil, err
	}
	stats.RecentSnippets = recent

	return stats, nil
}
