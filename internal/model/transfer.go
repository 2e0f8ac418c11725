package model

import "time"

// Export document format versions this build can produce and import.
// Documents carrying any other version import with a warning, not an error.
const (
	ExportFormatVersion = "1.1"
	LegacyFormatVersion = "1.0"
)

// ExportDocument is the portable representation of the snippet corpus (or a
// filtered subset). It is what GET /api/export returns and what POST /api/import
// consumes.
type ExportDocument struct {
	Version       string            `json:"version"`
	ExportDate    time.Time         `json:"export_date"`
	TotalSnippets int               `json:"total_snippets"`
	Snippets      []ExportedSnippet `json:"snippets"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

// ExportedSnippet is a snippet flattened for transport: tags are carried as
// name+color pairs and the favorite flag is materialized.
type ExportedSnippet struct {
	ID         int64         `json:"id,omitempty"`
	Title      string        `json:"title"`
	Content    string        `json:"content"`
	Language   string        `json:"language,omitempty"`
	Source     string        `json:"source,omitempty"`
	Version    int           `json:"version,omitempty"`
	IsFavorite bool          `json:"is_favorite,omitempty"`
	Tags       []ExportedTag `json:"tags,omitempty"`
	CreatedAt  time.Time     `json:"created_at,omitempty"`
	UpdatedAt  time.Time     `json:"updated_at,omitempty"`
}

// ExportedTag is a tag reference inside an export document. Color may be empty
// on import, in which case the default is applied when the tag is created.
type ExportedTag struct {
	Name  string `json:"name"`
	Color string `json:"color,omitempty"`
}

// ImportOptions controls duplicate handling during import.
//
// PreserveIDs is accepted for compatibility with existing export documents but
// has no effect: imported snippets always receive fresh ids so they can never
// collide with live rows.
type ImportOptions struct {
	OverwriteExisting bool `json:"overwrite_existing"`
	SkipDuplicates    bool `json:"skip_duplicates"`
	PreserveIDs       bool `json:"preserve_ids"`
}

// DefaultImportOptions matches the documented defaults: skip duplicates,
// never overwrite.
func DefaultImportOptions() ImportOptions {
	return ImportOptions{SkipDuplicates: true}
}

// Import record statuses.
const (
	ImportStatusImported = "imported"
	ImportStatusSkipped  = "skipped"
	ImportStatusFailed   = "failed"
)

// ImportRecord is one ledger entry: the outcome of processing a single snippet
// from an import document.
type ImportRecord struct {
	Index   int    `json:"index"`
	Title   string `json:"title"`
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// ImportSummary is the full result of an import run.
type ImportSummary struct {
	RunID    string         `json:"run_id"`
	Imported int            `json:"imported"`
	Skipped  int            `json:"skipped"`
	Failed   int            `json:"failed"`
	Records  []ImportRecord `json:"records"`
}

// ValidationReport is the structural check result for an import document.
// It is a value, not an error: a malformed document yields Valid=false with
// messages, and the HTTP layer still returns it with a 2xx/4xx body the client
// can render.
type ValidationReport struct {
	Valid        bool     `json:"valid"`
	ValidCount   int      `json:"valid_count"`
	InvalidCount int      `json:"invalid_count"`
	Errors       []string `json:"errors"`
	Warnings     []string `json:"warnings"`
}

// Stats is the analytics payload for the dashboard.
type Stats struct {
	TotalSnippets  int             `json:"total_snippets"`
	TotalTags      int             `json:"total_tags"`
	TotalVersions  int             `json:"total_versions"`
	FavoriteCount  int             `json:"favorite_count"`
	Languages      []LanguageCount `json:"languages"`
	TopTags        []Tag           `json:"top_tags"`
	RecentSnippets []Snippet       `json:"recent_snippets"`
}

// LanguageCount is one bar of the per-language breakdown.
type LanguageCount struct {
	Language string `json:"language"`
	Count    int    `json:"count"`
}
