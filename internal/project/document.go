package project

import "time"

// Document holds metadata and cached content for a reference document.
type Document struct {
	ID          string         `json:"id"`
	Path        string         `json:"path"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Content     string         `json:"content"`
	Tokens      int            `json:"tokens"`
	Source      string         `json:"source"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	AddedAt     time.Time      `json:"added_at"`
}

// DatasetRef points at a dataset file and records its shape when added.
type DatasetRef struct {
	ID      string    `json:"id"`
	Path    string    `json:"path"`
	Name    string    `json:"name"`
	Sheet   string    `json:"sheet,omitempty"`
	Columns []string  `json:"columns"`
	Rows    int       `json:"rows"`
	AddedAt time.Time `json:"added_at"`
}
