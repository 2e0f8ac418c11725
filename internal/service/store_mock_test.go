package service

import (
	"context"
	"log/slog"
	"os"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/sakif/snippet-vault/internal/apperror"
	"github.com/sakif/snippet-vault/internal/model"
	"github.com/sakif/snippet-vault/internal/repository"
)

// mockStore is an in-memory repository.Store. Instead of talking to SQLite it
// keeps everything in maps, so service tests exercise business logic alone,
// in microseconds, and can inject failures the real store won't produce.
type mockStore struct {
	snippets  map[int64]*model.Snippet
	versions  []model.SnippetVersion
	tags      map[int64]*model.Tag
	links     map[int64]map[int64]bool // snippetID → set of tagIDs
	favorites map[int64]bool
	nextID    int64

	// failCreate makes Create return this error, to test failure isolation.
	failCreate error
}

var _ repository.Store = (*mockStore)(nil)

func newMockStore() *mockStore {
	return &mockStore{
		snippets:  make(map[int64]*model.Snippet),
		tags:      make(map[int64]*model.Tag),
		links:     make(map[int64]map[int64]bool),
		favorites: make(map[int64]bool),
	}
}

func (m *mockStore) id() int64 {
	m.nextID++
	return m.nextID
}

func (m *mockStore) Create(_ context.Context, s *model.Snippet) error {
	if m.failCreate != nil {
		return m.failCreate
	}
	s.ID = m.id()
	if s.Language == "" {
		s.Language = model.DefaultLanguage
	}
	if s.Version == 0 {
		s.Version = 1
	}
	now := time.Now()
	s.CreatedAt = now
	s.UpdatedAt = now
	stored := *s
	m.snippets[s.ID] = &stored
	return nil
}

func (m *mockStore) GetByID(_ context.Context, id int64) (*model.Snippet, error) {
	s, ok := m.snippets[id]
	if !ok {
		return nil, apperror.NotFound("snippet", id)
	}
	result := *s
	result.Tags = m.snippetTags(id)
	result.IsFavorite = m.favorites[id]
	return &result, nil
}

func (m *mockStore) List(_ context.Context, opts repository.SnippetListOptions) ([]model.Snippet, error) {
	result := make([]model.Snippet, 0, len(m.snippets))
	for id, s := range m.snippets {
		if opts.Search != "" && !strings.Contains(s.Title, opts.Search) && !strings.Contains(s.Content, opts.Search) {
			continue
		}
		if opts.Language != "" && s.Language != opts.Language {
			continue
		}
		if opts.FavoritesOnly && !m.favorites[id] {
			continue
		}
		if opts.TagID != 0 && !m.links[id][opts.TagID] {
			continue
		}
		copied := *s
		copied.Tags = m.snippetTags(id)
		copied.IsFavorite = m.favorites[id]
		result = append(result, copied)
	}
	// Newest-created first, matching the export ordering.
	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID > result[j].ID
		}
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	if opts.Limit > 0 && opts.Limit < len(result) {
		result = result[:opts.Limit]
	}
	return result, nil
}

func (m *mockStore) Update(_ context.Context, s *model.Snippet) error {
	if _, ok := m.snippets[s.ID]; !ok {
		return apperror.NotFound("snippet", s.ID)
	}
	s.UpdatedAt = time.Now()
	stored := *s
	stored.Tags = nil
	m.snippets[s.ID] = &stored
	return nil
}

func (m *mockStore) Delete(_ context.Context, id int64) error {
	if _, ok := m.snippets[id]; !ok {
		return apperror.NotFound("snippet", id)
	}
	delete(m.snippets, id)
	delete(m.links, id)
	delete(m.favorites, id)
	kept := m.versions[:0]
	for _, v := range m.versions {
		if v.SnippetID != id {
			kept = append(kept, v)
		}
	}
	m.versions = kept
	return nil
}

func (m *mockStore) FindDuplicate(_ context.Context, title, content string) (*model.Snippet, error) {
	for id, s := range m.snippets {
		if s.Title == title && s.Content == content {
			result := *s
			result.IsFavorite = m.favorites[id]
			return &result, nil
		}
	}
	return nil, nil
}

func (m *mockStore) CreateVersion(_ context.Context, v *model.SnippetVersion) error {
	v.ID = m.id()
	v.CreatedAt = time.Now()
	m.versions = append(m.versions, *v)
	return nil
}

func (m *mockStore) ListVersions(_ context.Context, snippetID int64) ([]model.SnippetVersion, error) {
	result := make([]model.SnippetVersion, 0)
	for _, v := range m.versions {
		if v.SnippetID == snippetID {
			result = append(result, v)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].VersionNumber > result[j].VersionNumber
	})
	return result, nil
}

func (m *mockStore) GetVersion(_ context.Context, snippetID int64, versionNumber int) (*model.SnippetVersion, error) {
	for _, v := range m.versions {
		if v.SnippetID == snippetID && v.VersionNumber == versionNumber {
			result := v
			return &result, nil
		}
	}
	return nil, apperror.NotFoundf("version %d not found for snippet %d", versionNumber, snippetID)
}

func (m *mockStore) CreateTag(_ context.Context, tag *model.Tag) error {
	for _, t := range m.tags {
		if t.Name == tag.Name {
			return apperror.Conflict("tag already exists")
		}
	}
	tag.ID = m.id()
	if tag.Color == "" {
		tag.Color = model.DefaultTagColor
	}
	tag.CreatedAt = time.Now()
	stored := *tag
	m.tags[tag.ID] = &stored
	return nil
}

func (m *mockStore) GetTagByID(_ context.Context, id int64) (*model.Tag, error) {
	t, ok := m.tags[id]
	if !ok {
		return nil, apperror.NotFound("tag", id)
	}
	result := *t
	return &result, nil
}

func (m *mockStore) GetTagByName(_ context.Context, name string) (*model.Tag, error) {
	for _, t := range m.tags {
		if t.Name == name {
			result := *t
			return &result, nil
		}
	}
	return nil, nil
}

func (m *mockStore) ListTags(_ context.Context) ([]model.Tag, error) {
	result := make([]model.Tag, 0, len(m.tags))
	for id, t := range m.tags {
		copied := *t
		for _, set := range m.links {
			if set[id] {
				copied.SnippetCount++
			}
		}
		result = append(result, copied)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].SnippetCount == result[j].SnippetCount {
			return result[i].Name < result[j].Name
		}
		return result[i].SnippetCount > result[j].SnippetCount
	})
	return result, nil
}

func (m *mockStore) UpdateTag(_ context.Context, tag *model.Tag) error {
	if _, ok := m.tags[tag.ID]; !ok {
		return apperror.NotFound("tag", tag.ID)
	}
	stored := *tag
	m.tags[tag.ID] = &stored
	return nil
}

func (m *mockStore) DeleteTag(_ context.Context, id int64) error {
	if _, ok := m.tags[id]; !ok {
		return apperror.NotFound("tag", id)
	}
	delete(m.tags, id)
	return nil
}

func (m *mockStore) TagUsageCount(_ context.Context, id int64) (int, error) {
	count := 0
	for _, set := range m.links {
		if set[id] {
			count++
		}
	}
	return count, nil
}

func (m *mockStore) LinkTag(_ context.Context, snippetID, tagID int64) error {
	if m.links[snippetID] == nil {
		m.links[snippetID] = make(map[int64]bool)
	}
	m.links[snippetID][tagID] = true
	return nil
}

func (m *mockStore) ClearSnippetTags(_ context.Context, snippetID int64) error {
	delete(m.links, snippetID)
	return nil
}

func (m *mockStore) ListSnippetTags(_ context.Context, snippetID int64) ([]model.Tag, error) {
	return m.snippetTags(snippetID), nil
}

func (m *mockStore) snippetTags(snippetID int64) []model.Tag {
	result := make([]model.Tag, 0)
	for tagID := range m.links[snippetID] {
		if t, ok := m.tags[tagID]; ok {
			result = append(result, *t)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result
}

func (m *mockStore) SetFavorite(_ context.Context, snippetID int64, fav bool) error {
	if fav {
		m.favorites[snippetID] = true
	} else {
		delete(m.favorites, snippetID)
	}
	return nil
}

func (m *mockStore) IsFavorite(_ context.Context, snippetID int64) (bool, error) {
	return m.favorites[snippetID], nil
}

func (m *mockStore) Stats(_ context.Context) (*model.Stats, error) {
	return &model.Stats{
		TotalSnippets: len(m.snippets),
		TotalTags:     len(m.tags),
		TotalVersions: len(m.versions),
		FavoriteCount: len(m.favorites),
	}, nil
}

// InTx just runs fn against the same store — the mock has no transactions,
// which is fine for logic tests (rollback behavior is covered by the sqlite
// package's own tests).
func (m *mockStore) InTx(_ context.Context, fn func(repository.Store) error) error {
	return fn(m)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestSnippetService(t *testing.T) (*SnippetService, *mockStore) {
	t.Helper()
	store := newMockStore()
	return NewSnippetService(store, testLogger()), store
}
