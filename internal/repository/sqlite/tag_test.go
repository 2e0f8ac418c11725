package sqlite

import (
	"context"
	"errors"
	"testing"

	"github.com/sakif/snippet-vault/internal/apperror"
	"github.com/sakif/snippet-vault/internal/model"
	"github.com/sakif/snippet-vault/internal/repository"
)

func TestCreateTag(t *testing.T) {
	db := newTestDB(t)

	tag := &model.Tag{Name: "go"}
	if err := db.CreateTag(context.Background(), tag); err != nil {
		t.Fatalf("CreateTag() error = %v", err)
	}
	if tag.ID == 0 {
		t.Error("CreateTag() did not set id")
	}
	if tag.Color != model.DefaultTagColor {
		t.Errorf("Color = %q, want default %q", tag.Color, model.DefaultTagColor)
	}
}

func TestCreateTag_DuplicateNameConflicts(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	if err := db.CreateTag(ctx, &model.Tag{Name: "go"}); err != nil {
		t.Fatalf("CreateTag: %v", err)
	}

	err := db.CreateTag(ctx, &model.Tag{Name: "go"})
	if !errors.Is(err, apperror.ErrConflict) {
		t.Errorf("CreateTag(dup) error = %v, want ErrConflict", err)
	}
}

func TestGetTagByName_MissingIsNilNil(t *testing.T) {
	db := newTestDB(t)

	tag, err := db.GetTagByName(context.Background(), "ghost")
	if err != nil {
		t.Fatalf("GetTagByName() error = %v", err)
	}
	if tag != nil {
		t.Errorf("GetTagByName() = %+v, want nil", tag)
	}
}

func TestListTags_UsageCounts(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	popular := &model.Tag{Name: "popular"}
	lonely := &model.Tag{Name: "lonely"}
	for _, tag := range []*model.Tag{popular, lonely} {
		if err := db.CreateTag(ctx, tag); err != nil {
			t.Fatalf("CreateTag: %v", err)
		}
	}

	for i := 0; i < 2; i++ {
		s := createTestSnippet(t, db, "s", "c")
		if err := db.LinkTag(ctx, s.ID, popular.ID); err != nil {
			t.Fatalf("LinkTag: %v", err)
		}
	}

	tags, err := db.ListTags(ctx)
	if err != nil {
		t.Fatalf("ListTags() error = %v", err)
	}
	if len(tags) != 2 {
		t.Fatalf("ListTags() returned %d, want 2", len(tags))
	}
	if tags[0].Name != "popular" || tags[0].SnippetCount != 2 {
		t.Errorf("tags[0] = %q (count %d), want popular with 2", tags[0].Name, tags[0].SnippetCount)
	}
	if tags[1].SnippetCount != 0 {
		t.Errorf("lonely tag count = %d, want 0", tags[1].SnippetCount)
	}
}

func TestLinkTag_Idempotent(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	snippet := createTestSnippet(t, db, "s", "c")
	tag := &model.Tag{Name: "twice"}
	if err := db.CreateTag(ctx, tag); err != nil {
		t.Fatalf("CreateTag: %v", err)
	}

	for i := 0; i < 2; i++ {
		if err := db.LinkTag(ctx, snippet.ID, tag.ID); err != nil {
			t.Fatalf("LinkTag attempt %d: %v", i+1, err)
		}
	}

	count, err := db.TagUsageCount(ctx, tag.ID)
	if err != nil {
		t.Fatalf("TagUsageCount: %v", err)
	}
	if count != 1 {
		t.Errorf("usage count after double link = %d, want 1", count)
	}
}

func TestClearSnippetTags(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	snippet := createTestSnippet(t, db, "s", "c")
	tag := &model.Tag{Name: "temp"}
	if err := db.CreateTag(ctx, tag); err != nil {
		t.Fatalf("CreateTag: %v", err)
	}
	if err := db.LinkTag(ctx, snippet.ID, tag.ID); err != nil {
		t.Fatalf("LinkTag: %v", err)
	}

	if err := db.ClearSnippetTags(ctx, snippet.ID); err != nil {
		t.Fatalf("ClearSnippetTags() error = %v", err)
	}

	tags, err := db.ListSnippetTags(ctx, snippet.ID)
	if err != nil {
		t.Fatalf("ListSnippetTags: %v", err)
	}
	if len(tags) != 0 {
		t.Errorf("tags after clear = %d, want 0", len(tags))
	}
}

func TestSetFavorite_Idempotent(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	snippet := createTestSnippet(t, db, "fav", "c")

	// Double-set and double-unset must both be no-ops, not errors.
	for i := 0; i < 2; i++ {
		if err := db.SetFavorite(ctx, snippet.ID, true); err != nil {
			t.Fatalf("SetFavorite(true) attempt %d: %v", i+1, err)
		}
	}
	fav, err := db.IsFavorite(ctx, snippet.ID)
	if err != nil {
		t.Fatalf("IsFavorite: %v", err)
	}
	if !fav {
		t.Error("IsFavorite = false after set")
	}

	for i := 0; i < 2; i++ {
		if err := db.SetFavorite(ctx, snippet.ID, false); err != nil {
			t.Fatalf("SetFavorite(false) attempt %d: %v", i+1, err)
		}
	}
	fav, err = db.IsFavorite(ctx, snippet.ID)
	if err != nil {
		t.Fatalf("IsFavorite: %v", err)
	}
	if fav {
		t.Error("IsFavorite = true after unset")
	}
}

func TestInTx_RollsBackOnError(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	sentinel := errors.New("abort")
	err := db.InTx(ctx, func(tx repository.Store) error {
		if err := tx.Create(ctx, &model.Snippet{Title: "inside tx", Content: "c"}); err != nil {
			t.Fatalf("Create in tx: %v", err)
		}
		return sentinel
	})
	if !errors.Is(err, sentinel) {
		t.Fatalf("InTx() error = %v, want sentinel", err)
	}

	dup, err := db.FindDuplicate(ctx, "inside tx", "c")
	if err != nil {
		t.Fatalf("FindDuplicate: %v", err)
	}
	if dup != nil {
		t.Error("write survived a rolled-back transaction")
	}
}
