package model

import "time"

// DefaultTagColor is the hex color assigned when a tag is created without one.
const DefaultTagColor = "#6b7280"

// Tag labels snippets for filtering. Names are unique; Color is a hex string
// for the UI. SnippetCount is populated by list queries (a JOIN aggregate, not
// a column) and by the delete guard.
type Tag struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Color        string    `json:"color"`
	SnippetCount int       `json:"snippet_count,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}
