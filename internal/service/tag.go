package service

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/sakif/snippet-vault/internal/apperror"
	"github.com/sakif/snippet-vault/internal/model"
	"github.com/sakif/snippet-vault/internal/repository"
)

const MaxTagNameLength = 50

// hexColorRe matches #rgb and #rrggbb.
var hexColorRe = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)

// TagService manages the independent tag lifecycle. Tags outlive snippets;
// the only restriction is that a tag still linked to snippets cannot be
// deleted.
type TagService struct {
	store  repository.Store
	logger *slog.Logger
}

func NewTagService(store repository.Store, logger *slog.Logger) *TagService {
	return &TagService{store: store, logger: logger}
}

func validateTag(name, color string) (string, string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", "", apperror.ValidationFailed("name", "tag name is required")
	}
	if len(name) > MaxTagNameLength {
		return "", "", apperror.ValidationFailed("name",
			fmt.Sprintf("tag name must be %d characters or less", MaxTagNameLength))
	}
	color = strings.TrimSpace(color)
	if color == "" {
		color = model.DefaultTagColor
	} else if !hexColorRe.MatchString(color) {
		return "", "", apperror.ValidationFailed("color", "tag color must be a hex string like #ff8800")
	}
	return name, color, nil
}

func (s *TagService) Create(ctx context.Context, name, color string) (*model.Tag, error) {
	name, color, err := validateTag(name, color)
	if err != nil {
		return nil, err
	}

	tag := &model.Tag{Name: name, Color: color}
	if err := s.store.CreateTag(ctx, tag); err != nil {
		return nil, err
	}

	s.logger.Info("tag created", slog.Int64("id", tag.ID), slog.String("name", tag.Name))
	return tag, nil
}

// List returns all tags with usage counts, most used first.
func (s *TagService) List(ctx context.Context) ([]model.Tag, error) {
	return s.store.ListTags(ctx)
}

func (s *TagService) Update(ctx context.Context, id int64, name, color string) (*model.Tag, error) {
	tag, err := s.store.GetTagByID(ctx, id)
	if err != nil {
		return nil, err
	}

	name, color, err = validateTag(name, color)
	if err != nil {
		return nil, err
	}
	tag.Name = name
	tag.Color = color

	if err := s.store.UpdateTag(ctx, tag); err != nil {
		return nil, err
	}
	return tag, nil
}

// Delete removes a tag, but only if no snippet references it. A tag in use
// yields a conflict reporting the current usage count — never a silent detach.
func (s *TagService) Delete(ctx context.Context, id int64) error {
	tag, err := s.store.GetTagByID(ctx, id)
	if err != nil {
		return err
	}

	count, err := s.store.TagUsageCount(ctx, id)
	if err != nil {
		return err
	}
	if count > 0 {
		return apperror.Conflict(
			fmt.Sprintf("tag %q is used by %d snippet(s) and cannot be deleted", tag.Name, count))
	}

	if err := s.store.DeleteTag(ctx, id); err != nil {
		return err
	}
	s.logger.Info("tag deleted", slog.Int64("id", id), slog.String("name", tag.Name))
	return nil
}
