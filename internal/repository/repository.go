// Package repository defines the storage interfaces the service layer depends
// on. Services receive these interfaces (not the concrete sqlite types), so
// tests can inject in-memory fakes and the backend can be swapped without
// touching business logic.
package repository

import (
	"context"

	"github.com/sakif/snippet-vault/internal/model"
)

// SnippetListOptions filters and paginates snippet listings.
type SnippetListOptions struct {
	Search        string // matches title or content, case-insensitive
	Language      string
	TagID         int64 // 0 = no tag filter
	FavoritesOnly bool
	SortBy        string // "updated" (default), "created", "title"
	Limit         int    // 0 = default page size, negative = no limit
	Offset        int
}

type SnippetRepository interface {
	Create(ctx context.Context, snippet *model.Snippet) error
	GetByID(ctx context.Context, id int64) (*model.Snippet, error)
	List(ctx context.Context, opts SnippetListOptions) ([]model.Snippet, error)
	// Update writes all editable fields plus version and updated_at.
	// It does not touch version snapshots — that is the caller's job.
	Update(ctx context.Context, snippet *model.Snippet) error
	Delete(ctx context.Context, id int64) error
	// FindDuplicate looks up a snippet by the (title, content) duplicate key
	// used during import. Returns nil, nil when no duplicate exists.
	FindDuplicate(ctx context.Context, title, content string) (*model.Snippet, error)
}

type VersionRepository interface {
	CreateVersion(ctx context.Context, v *model.SnippetVersion) error
	// ListVersions returns snapshots newest-first (version_number DESC).
	ListVersions(ctx context.Context, snippetID int64) ([]model.SnippetVersion, error)
	GetVersion(ctx context.Context, snippetID int64, versionNumber int) (*model.SnippetVersion, error)
}

type TagRepository interface {
	CreateTag(ctx context.Context, tag *model.Tag) error
	GetTagByID(ctx context.Context, id int64) (*model.Tag, error)
	// GetTagByName returns nil, nil when no tag has that name.
	GetTagByName(ctx context.Context, name string) (*model.Tag, error)
	ListTags(ctx context.Context) ([]model.Tag, error)
	UpdateTag(ctx context.Context, tag *model.Tag) error
	DeleteTag(ctx context.Context, id int64) error
	TagUsageCount(ctx context.Context, id int64) (int, error)
	LinkTag(ctx context.Context, snippetID, tagID int64) error
	ClearSnippetTags(ctx context.Context, snippetID int64) error
	ListSnippetTags(ctx context.Context, snippetID int64) ([]model.Tag, error)
}

type FavoriteRepository interface {
	// SetFavorite makes row existence match fav. Both directions are
	// idempotent.
	SetFavorite(ctx context.Context, snippetID int64, fav bool) error
	IsFavorite(ctx context.Context, snippetID int64) (bool, error)
}

type StatsRepository interface {
	Stats(ctx context.Context) (*model.Stats, error)
}

// Store is the full storage surface plus the transaction bracket.
type Store interface {
	SnippetRepository
	VersionRepository
	TagRepository
	FavoriteRepository
	StatsRepository

	// InTx runs fn against a Store bound to one database transaction.
	// fn returning an error rolls everything back; otherwise the
	// transaction commits. Import is the only caller — every other
	// operation is a single statement or an independently-committed
	// sequence.
	InTx(ctx context.Context, fn func(Store) error) error
}
