// Package model defines the data structures used throughout the application.
// In Go, we use structs to represent our data — similar to classes in other languages,
// but without inheritance. Go favours composition over inheritance.
package model

import "time"

// DefaultLanguage is used when a snippet is created without a language.
const DefaultLanguage = "plaintext"

// Snippet represents a saved code snippet.
// The `json:"..."` tags tell Go's encoding/json package how to serialize/deserialize
// this struct to/from JSON.
//
// Version starts at 1 and increases by exactly 1 on every update that changes
// the title or content. Tags and IsFavorite are resolved from their own tables
// when a snippet is loaded; they are not columns on the snippets table.
type Snippet struct {
	ID         int64     `json:"id"`
	Title      string    `json:"title"`
	Content    string    `json:"content"`
	Language   string    `json:"language"`
	Source     string    `json:"source,omitempty"`
	Version    int       `json:"version"`
	IsFavorite bool      `json:"is_favorite"`
	Tags       []Tag     `json:"tags"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// SnippetVersion is a frozen copy of a snippet's editable fields, taken
// immediately before an update replaced them. VersionNumber is the version the
// snapshot superseded, not the version it became.
//
// Snapshots are never mutated after creation and are deleted only by cascade
// when the parent snippet is deleted.
type SnippetVersion struct {
	ID            int64     `json:"id"`
	SnippetID     int64     `json:"snippet_id"`
	Title         string    `json:"title"`
	Content       string    `json:"content"`
	Language      string    `json:"language"`
	Source        string    `json:"source,omitempty"`
	VersionNumber int       `json:"version_number"`
	CreatedAt     time.Time `json:"created_at"`
}

// DiffResult is the response shape for comparing a snippet against one of its
// snapshots. Both full bodies ride along so the caller need not re-fetch.
type DiffResult struct {
	Current DiffSide `json:"current"`
	Version DiffSide `json:"version"`
	Diff    string   `json:"diff"`
}

// DiffSide is one side of a version comparison.
type DiffSide struct {
	Title   string `json:"title"`
	Content string `json:"content"`
	Version int    `json:"version"`
}
