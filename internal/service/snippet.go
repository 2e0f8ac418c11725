// Package service contains the business logic layer of the application.
//
// The layering follows the usual three-layer split:
//
//	Handler (HTTP layer)     → parses requests, writes responses
//	Service (Business layer) → validates, enforces rules, orchestrates
//	Repository (Data layer)  → reads/writes to the database
//
// Services receive repository interfaces, not concrete sqlite types, so tests
// inject in-memory fakes and the storage backend stays swappable.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/snippet-vault/internal/apperror"
	"github.com/sakif/snippet-vault/internal/diff"
	"github.com/sakif/snippet-vault/internal/model"
	"github.com/sakif/snippet-vault/internal/repository"
)

// Validation constants.
const (
	MaxTitleLength   = 200
	MaxContentLength = 100000 // ~100KB of code
)

// SnippetInput carries the editable fields of a snippet plus the tag names to
// link. Services accept plain values like this, never *http.Request.
type SnippetInput struct {
	Title    string
	Content  string
	Language string
	Source   string
	Tags     []string
}

// SnippetService handles snippet CRUD, the version history, rollback and
// diffing. Every historical state of a snippet's editable text is recoverable:
// each update that changes title or content first snapshots the state it
// replaces.
type SnippetService struct {
	store  repository.Store
	logger *slog.Logger
}

func NewSnippetService(store repository.Store, logger *slog.Logger) *SnippetService {
	return &SnippetService{store: store, logger: logger}
}

func validateInput(in *SnippetInput) error {
	in.Title = strings.TrimSpace(in.Title)
	if in.Title == "" {
		return apperror.ValidationFailed("title", "snippet title is required")
	}
	if len(in.Title) > MaxTitleLength {
		return apperror.ValidationFailed("title",
			fmt.Sprintf("snippet title must be %d characters or less", MaxTitleLength))
	}
	if in.Content == "" {
		return apperror.ValidationFailed("content", "snippet content is required")
	}
	if len(in.Content) > MaxContentLength {
		return apperror.ValidationFailed("content",
			fmt.Sprintf("snippet content must be %d characters or less", MaxContentLength))
	}
	if in.Language = strings.TrimSpace(in.Language); in.Language == "" {
		in.Language = model.DefaultLanguage
	}
	in.Source = strings.TrimSpace(in.Source)
	return nil
}

// Create validates and saves a new snippet, resolving and linking any tag
// names. The snippet starts at version 1 with an empty history.
func (s *SnippetService) Create(ctx context.Context, in SnippetInput) (*model.Snippet, error) {
	if err := validateInput(&in); err != nil {
		return nil, err
	}

	snippet := &model.Snippet{
		Title:    in.Title,
		Content:  in.Content,
		Language: in.Language,
		Source:   in.Source,
	}
	if err := s.store.Create(ctx, snippet); err != nil {
		s.logger.Error("failed to create snippet",
			slog.String("title", in.Title),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("creating snippet: %w", err)
	}

	// Tag links are independent statements; if one fails the snippet row
	// stays. Accepted risk — import is the only bracketed transaction.
	if len(in.Tags) > 0 {
		tags, err := s.linkTagNames(ctx, snippet.ID, in.Tags)
		if err != nil {
			return nil, err
		}
		snippet.Tags = tags
	} else {
		snippet.Tags = []model.Tag{}
	}

	s.logger.Info("snippet created",
		slog.Int64("id", snippet.ID),
		slog.String("title", snippet.Title),
	)
	return snippet, nil
}

// GetByID retrieves a snippet with its tags and favorite flag resolved.
func (s *SnippetService) GetByID(ctx context.Context, id int64) (*model.Snippet, error) {
	return s.store.GetByID(ctx, id)
}

// List retrieves snippets matching the filter options.
func (s *SnippetService) List(ctx context.Context, opts repository.SnippetListOptions) ([]model.Snippet, error) {
	snippets, err := s.store.List(ctx, opts)
	if err != nil {
		s.logger.Error("failed to list snippets", slog.String("error", err.Error()))
		return nil, fmt.Errorf("listing snippets: %w", err)
	}
	return snippets, nil
}

// Update applies new field values to a snippet. If the title or content
// differs from what is stored, the old state is snapshotted under the old
// version number and the live version is bumped by exactly 1. Metadata-only
// changes (language, source) write through without a snapshot or bump.
// Submitting identical values is not an error — the write still happens, just
// without history growth.
func (s *SnippetService) Update(ctx context.Context, id int64, in SnippetInput) (*model.Snippet, error) {
	if err := validateInput(&in); err != nil {
		return nil, err
	}

	current, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	snapshotted, err := s.applyUpdate(ctx, current, in)
	if err != nil {
		return nil, err
	}

	if in.Tags != nil {
		tags, err := s.setTagNames(ctx, current.ID, in.Tags)
		if err != nil {
			return nil, err
		}
		current.Tags = tags
	}

	s.logger.Info("snippet updated",
		slog.Int64("id", current.ID),
		slog.Int("version", current.Version),
		slog.Bool("snapshotted", snapshotted),
	)
	return current, nil
}

// applyUpdate is the single write path for snippet text. It mutates current
// in place and reports whether a snapshot was taken. Rollback reuses it, which
// is why restoring an old version grows the history instead of truncating it.
func (s *SnippetService) applyUpdate(ctx context.Context, current *model.Snippet, in SnippetInput) (bool, error) {
	changed := current.Title != in.Title || current.Content != in.Content

	if changed {
		snapshot := &model.SnippetVersion{
			SnippetID:     current.ID,
			Title:         current.Title,
			Content:       current.Content,
			Language:      current.Language,
			Source:        current.Source,
			VersionNumber: current.Version,
		}
		if err := s.store.CreateVersion(ctx, snapshot); err != nil {
			return false, fmt.Errorf("snapshotting snippet %d: %w", current.ID, err)
		}
		current.Version++
	}

	current.Title = in.Title
	current.Content = in.Content
	current.Language = in.Language
	current.Source = in.Source

	if err := s.store.Update(ctx, current); err != nil {
		return false, fmt.Errorf("updating snippet %d: %w", current.ID, err)
	}
	return changed, nil
}

// Delete removes a snippet together with its history, tag links and favorite
// marker (cascade in the store).
func (s *SnippetService) Delete(ctx context.Context, id int64) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("snippet deleted", slog.Int64("id", id))
	return nil
}

// ListVersions returns the snapshot history, newest first. Empty history is
// fine — the snippet has simply never been edited.
func (s *SnippetService) ListVersions(ctx context.Context, snippetID int64) ([]model.SnippetVersion, error) {
	if _, err := s.store.GetByID(ctx, snippetID); err != nil {
		return nil, err
	}
	return s.store.ListVersions(ctx, snippetID)
}

// Rollback restores the state captured at versionNumber. It runs through
// applyUpdate, so the pre-rollback state gets its own snapshot first —
// rollback never destroys history.
func (s *SnippetService) Rollback(ctx context.Context, snippetID int64, versionNumber int) (*model.Snippet, error) {
	current, err := s.store.GetByID(ctx, snippetID)
	if err != nil {
		return nil, err
	}

	v, err := s.store.GetVersion(ctx, snippetID, versionNumber)
	if err != nil {
		return nil, err
	}

	if _, err := s.applyUpdate(ctx, current, SnippetInput{
		Title:    v.Title,
		Content:  v.Content,
		Language: v.Language,
		Source:   v.Source,
	}); err != nil {
		return nil, err
	}

	s.logger.Info("snippet rolled back",
		slog.Int64("id", snippetID),
		slog.Int("restored_version", versionNumber),
		slog.Int("new_version", current.Version),
	)
	return current, nil
}

// Diff compares the snapshot at versionNumber (old side) against the live
// snippet (new side) and returns the unified diff plus both bodies.
func (s *SnippetService) Diff(ctx context.Context, snippetID int64, versionNumber int) (*model.DiffResult, error) {
	current, err := s.store.GetByID(ctx, snippetID)
	if err != nil {
		return nil, err
	}

	v, err := s.store.GetVersion(ctx, snippetID, versionNumber)
	if err != nil {
		return nil, err
	}

	text, err := diff.Unified(
		fmt.Sprintf("snippet/%d/v%d", snippetID, v.VersionNumber),
		fmt.Sprintf("snippet/%d/current", snippetID),
		v.Content,
		current.Content,
	)
	if err != nil {
		return nil, err
	}

	return &model.DiffResult{
		Current: model.DiffSide{Title: current.Title, Content: current.Content, Version: current.Version},
		Version: model.DiffSide{Title: v.Title, Content: v.Content, Version: v.VersionNumber},
		Diff:    text,
	}, nil
}

// ToggleFavorite flips the favorite marker and returns the new state.
func (s *SnippetService) ToggleFavorite(ctx context.Context, snippetID int64) (bool, error) {
	if _, err := s.store.GetByID(ctx, snippetID); err != nil {
		return false, err
	}

	fav, err := s.store.IsFavorite(ctx, snippetID)
	if err != nil {
		return false, err
	}
	if err := s.store.SetFavorite(ctx, snippetID, !fav); err != nil {
		return false, err
	}
	return !fav, nil
}

// SetTags replaces a snippet's tag set with the given names, creating tags
// that don't exist yet.
func (s *SnippetService) SetTags(ctx context.Context, snippetID int64, names []string) ([]model.Tag, error) {
	if _, err := s.store.GetByID(ctx, snippetID); err != nil {
		return nil, err
	}
	return s.setTagNames(ctx, snippetID, names)
}

func (s *SnippetService) setTagNames(ctx context.Context, snippetID int64, names []string) ([]model.Tag, error) {
	if err := s.store.ClearSnippetTags(ctx, snippetID); err != nil {
		return nil, err
	}
	return s.linkTagNames(ctx, snippetID, names)
}

// linkTagNames resolves each name to a tag — creating it with the default
// color when missing — and links it to the snippet.
func (s *SnippetService) linkTagNames(ctx context.Context, snippetID int64, names []string) ([]model.Tag, error) {
	linked := make([]model.Tag, 0, len(names))
	seen := make(map[string]bool, len(names))

	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true

		tag, err := s.store.GetTagByName(ctx, name)
		if err != nil {
			return nil, err
		}
		if tag == nil {
			tag = &model.Tag{Name: name}
			if err := s.store.CreateTag(ctx, tag); err != nil {
				return nil, err
			}
		}
		if err := s.store.LinkTag(ctx, snippetID, tag.ID); err != nil {
			return nil, err
		}
		linked = append(linked, *tag)
	}
	return linked, nil
}
