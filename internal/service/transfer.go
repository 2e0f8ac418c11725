package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/snippet-vault/internal/apperror"
	"github.com/sakif/snippet-vault/internal/model"
	"github.com/sakif/snippet-vault/internal/repository"
)

// knownFormatVersions is the allow-list of export document versions this
// build imports without a warning.
var knownFormatVersions = map[string]bool{
	model.ExportFormatVersion: true,
	model.LegacyFormatVersion: true,
}

// TransferService round-trips the snippet corpus through the portable export
// document: export (JSON and markdown), structural validation, and the
// transactional bulk import with per-record conflict handling.
type TransferService struct {
	store  repository.Store
	logger *slog.Logger
}

func NewTransferService(store repository.Store, logger *slog.Logger) *TransferService {
	return &TransferService{store: store, logger: logger}
}

// Export builds the portable document for the given snippet ids; an empty
// filter exports everything. Snippets are ordered by creation time, newest
// first.
func (s *TransferService) Export(ctx context.Context, ids []int64) (*model.ExportDocument, error) {
	snippets, err := s.store.List(ctx, repository.SnippetListOptions{SortBy: "created", Limit: -1})
	if err != nil {
		return nil, fmt.Errorf("exporting snippets: %w", err)
	}

	var filter map[int64]bool
	if len(ids) > 0 {
		filter = make(map[int64]bool, len(ids))
		for _, id := range ids {
			filter[id] = true
		}
	}

	exported := make([]model.ExportedSnippet, 0, len(snippets))
	for _, sn := range snippets {
		if filter != nil && !filter[sn.ID] {
			continue
		}
		tags := make([]model.ExportedTag, 0, len(sn.Tags))
		for _, t := range sn.Tags {
			tags = append(tags, model.ExportedTag{Name: t.Name, Color: t.Color})
		}
		exported = append(exported, model.ExportedSnippet{
			ID:         sn.ID,
			Title:      sn.Title,
			Content:    sn.Content,
			Language:   sn.Language,
			Source:     sn.Source,
			Version:    sn.Version,
			IsFavorite: sn.IsFavorite,
			Tags:       tags,
			CreatedAt:  sn.CreatedAt,
			UpdatedAt:  sn.UpdatedAt,
		})
	}

	doc := &model.ExportDocument{
		Version:       model.ExportFormatVersion,
		ExportDate:    time.Now(),
		TotalSnippets: len(exported),
		Snippets:      exported,
		Metadata: map[string]string{
			"export_id": xid.New().String(),
			"generator": "snippet-vault",
		},
	}

	s.logger.Info("export produced",
		slog.String("export_id", doc.Metadata["export_id"]),
		slog.Int("snippets", doc.TotalSnippets),
	)
	return doc, nil
}

// ExportMarkdown renders the export document as a readable text document:
// one ##-titled section per snippet with metadata lines and a fenced code
// block tagged by language.
func (s *TransferService) ExportMarkdown(ctx context.Context, ids []int64) (string, error) {
	doc, err := s.Export(ctx, ids)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# Snippet Export\n\n")
	fmt.Fprintf(&b, "Exported %s — %d snippet(s)\n", doc.ExportDate.Format("2006-01-02 15:04"), doc.TotalSnippets)

	for _, sn := range doc.Snippets {
		fmt.Fprintf(&b, "\n## %s\n\n", sn.Title)
		fmt.Fprintf(&b, "- Language: %s\n", sn.Language)
		if sn.Source != "" {
			fmt.Fprintf(&b, "- Source: %s\n", sn.Source)
		}
		fmt.Fprintf(&b, "- Created: %s\n", sn.CreatedAt.Format("2006-01-02"))
		if sn.IsFavorite {
			fmt.Fprintf(&b, "- Favorite: ★\n")
		}
		if len(sn.Tags) > 0 {
			names := make([]string, 0, len(sn.Tags))
			for _, t := range sn.Tags {
				names = append(names, t.Name)
			}
			fmt.Fprintf(&b, "- Tags: %s\n", strings.Join(names, ", "))
		}
		fmt.Fprintf(&b, "\n```%s\n%s\n```\n", sn.Language, strings.TrimRight(sn.Content, "\n"))
	}
	return b.String(), nil
}

// Validate structurally checks a raw import document before any write is
// attempted. It returns a report, never an error: a malformed document is a
// result, not a fault. Checks run against the raw JSON so that a numeric
// title, say, is reported instead of being silently coerced.
func (s *TransferService) Validate(raw []byte) *model.ValidationReport {
	report := &model.ValidationReport{
		Errors:   []string{},
		Warnings: []string{},
	}

	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil || doc == nil {
		report.Errors = append(report.Errors, "document is not a well-formed JSON object")
		return report
	}

	if v, ok := doc["version"]; !ok {
		report.Warnings = append(report.Warnings, "document carries no format version")
	} else if vs, ok := v.(string); !ok || !knownFormatVersions[vs] {
		report.Warnings = append(report.Warnings,
			fmt.Sprintf("unrecognized format version %v — import may not be fully compatible", v))
	}

	rawSnippets, ok := doc["snippets"]
	if !ok {
		report.Errors = append(report.Errors, `document is missing the "snippets" array`)
		return report
	}
	snippets, ok := rawSnippets.([]any)
	if !ok {
		report.Errors = append(report.Errors, `"snippets" must be an array`)
		return report
	}

	for i, item := range snippets {
		errs := validateRawSnippet(i, item)
		if len(errs) == 0 {
			report.ValidCount++
		} else {
			report.InvalidCount++
			report.Errors = append(report.Errors, errs...)
		}
	}

	report.Valid = len(report.Errors) == 0
	return report
}

func validateRawSnippet(index int, item any) []string {
	obj, ok := item.(map[string]any)
	if !ok {
		return []string{fmt.Sprintf("snippet %d: not an object", index)}
	}

	var errs []string
	if title, ok := obj["title"]; !ok {
		errs = append(errs, fmt.Sprintf("snippet %d: missing title", index))
	} else if _, ok := title.(string); !ok {
		errs = append(errs, fmt.Sprintf("snippet %d: title must be text", index))
	}
	if content, ok := obj["content"]; !ok {
		errs = append(errs, fmt.Sprintf("snippet %d: missing content", index))
	} else if _, ok := content.(string); !ok {
		errs = append(errs, fmt.Sprintf("snippet %d: content must be text", index))
	}
	if lang, ok := obj["language"]; ok {
		if _, isStr := lang.(string); !isStr {
			errs = append(errs, fmt.Sprintf("snippet %d: language must be text", index))
		}
	}
	if tags, ok := obj["tags"]; ok {
		if _, isList := tags.([]any); !isList {
			errs = append(errs, fmt.Sprintf("snippet %d: tags must be an array", index))
		}
	}
	return errs
}

// Import merges an export document into the store. The whole batch runs in
// one transaction, but record-level failures are isolated: each record's
// outcome lands in the ledger and processing continues. Only a document-shape
// failure (caught before the loop) or a database fault on the transaction
// bracket itself aborts the run and rolls back every write.
func (s *TransferService) Import(ctx context.Context, doc *model.ExportDocument, opts model.ImportOptions) (*model.ImportSummary, error) {
	if doc == nil || doc.Snippets == nil {
		return nil, apperror.ValidationFailed("snippets", `import document must contain a "snippets" array`)
	}

	summary := &model.ImportSummary{
		RunID:   xid.New().String(),
		Records: []model.ImportRecord{},
	}

	err := s.store.InTx(ctx, func(tx repository.Store) error {
		for i, rec := range doc.Snippets {
			entry := s.importRecord(ctx, tx, i, rec, opts)
			switch entry.Status {
			case model.ImportStatusImported:
				summary.Imported++
			case model.ImportStatusSkipped:
				summary.Skipped++
			default:
				summary.Failed++
			}
			summary.Records = append(summary.Records, entry)
		}
		return nil
	})
	if err != nil {
		s.logger.Error("import transaction failed",
			slog.String("run_id", summary.RunID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("import transaction: %w", err)
	}

	s.logger.Info("import finished",
		slog.String("run_id", summary.RunID),
		slog.Int("imported", summary.Imported),
		slog.Int("skipped", summary.Skipped),
		slog.Int("failed", summary.Failed),
	)
	return summary, nil
}

// importRecord processes one incoming snippet and reports its ledger entry.
// Errors stay inside the entry — they never propagate to the batch.
func (s *TransferService) importRecord(ctx context.Context, tx repository.Store, index int, rec model.ExportedSnippet, opts model.ImportOptions) model.ImportRecord {
	entry := model.ImportRecord{Index: index, Title: rec.Title}

	fail := func(msg string, err error) model.ImportRecord {
		entry.Status = model.ImportStatusFailed
		entry.Message = msg
		s.logger.Warn("import record failed",
			slog.Int("index", index),
			slog.String("title", rec.Title),
			slog.String("error", err.Error()),
		)
		return entry
	}

	if strings.TrimSpace(rec.Title) == "" {
		entry.Status = model.ImportStatusFailed
		entry.Message = "missing title"
		return entry
	}
	if rec.Content == "" {
		entry.Status = model.ImportStatusFailed
		entry.Message = "missing content"
		return entry
	}

	existing, err := tx.FindDuplicate(ctx, rec.Title, rec.Content)
	if err != nil {
		return fail("duplicate lookup failed", err)
	}

	var targetID int64
	switch {
	case existing != nil && opts.OverwriteExisting:
		// Direct overwrite: no version snapshot is taken on this path.
		// A bulk re-import of a full export would otherwise mint a
		// snapshot per snippet per run.
		existing.Title = rec.Title
		existing.Content = rec.Content
		if rec.Language != "" {
			existing.Language = rec.Language
		}
		existing.Source = rec.Source
		if err := tx.Update(ctx, existing); err != nil {
			return fail("overwrite failed", err)
		}
		targetID = existing.ID

	case existing != nil && opts.SkipDuplicates:
		entry.Status = model.ImportStatusSkipped
		entry.Message = "already exists"
		return entry

	default:
		// No duplicate, or duplicates are explicitly allowed.
		snippet := &model.Snippet{
			Title:    rec.Title,
			Content:  rec.Content,
			Language: rec.Language,
			Source:   rec.Source,
		}
		if err := tx.Create(ctx, snippet); err != nil {
			return fail("create failed", err)
		}
		targetID = snippet.ID
	}

	if err := s.importTags(ctx, tx, targetID, rec.Tags); err != nil {
		return fail("tag processing failed", err)
	}

	if err := tx.SetFavorite(ctx, targetID, rec.IsFavorite); err != nil {
		return fail("favorite processing failed", err)
	}

	entry.Status = model.ImportStatusImported
	return entry
}

// importTags replaces the target snippet's tag links with the incoming set,
// creating missing tags (with their carried color, if any).
func (s *TransferService) importTags(ctx context.Context, tx repository.Store, snippetID int64, tags []model.ExportedTag) error {
	if err := tx.ClearSnippetTags(ctx, snippetID); err != nil {
		return err
	}
	for _, in := range tags {
		name := strings.TrimSpace(in.Name)
		if name == "" {
			continue
		}
		tag, err := tx.GetTagByName(ctx, name)
		if err != nil {
			return err
		}
		if tag == nil {
			tag = &model.Tag{Name: name, Color: in.Color}
			if err := tx.CreateTag(ctx, tag); err != nil {
				return err
			}
		}
		if err := tx.LinkTag(ctx, snippetID, tag.ID); err != nil {
			return err
		}
	}
	return nil
}
