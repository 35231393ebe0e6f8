package storage

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a record is not found.
var ErrNotFound = errors.New("record not found")

// ArticleRecord is one row of the metadata table. Position is the row's index in the
// paired vector index and never changes once written.
type ArticleRecord struct {
	Position    int
	ArticleID   string
	Title       string
	Body        string
	URL         string
	PublishedAt *time.Time
}

// Backends a manifest can record.
const (
	BackendFlat   = "flat"
	BackendQdrant = "qdrant"
)

// Manifest describes the artifact a metadata file belongs to.
type Manifest struct {
	BuildID        string
	VectorCount    int
	Dimension      int
	EmbeddingModel string
	Backend        string // BackendFlat or BackendQdrant
	CreatedAt      time.Time
}
