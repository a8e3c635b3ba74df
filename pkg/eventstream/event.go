package eventstream

import (
	"time"

	"github.com/google/uuid"
)

const (
	// SchemaVersionV1 is the first version of the event payload schema.
	SchemaVersionV1 = 1

	// EventTypeIndexBuilt is emitted after a staging collection is promoted.
	EventTypeIndexBuilt = "wcag.index.built"
)

// IndexBuiltEvent is a transport-neutral event payload for a completed
// index build.
type IndexBuiltEvent struct {
	SchemaVersion int         `json:"schema_version"`
	EventType     string      `json:"event_type"`
	EventID       string      `json:"event_id"`
	EmittedAt     time.Time   `json:"emitted_at"`
	Source        EventSource `json:"source"`
	Index         IndexMeta   `json:"index"`
}

// EventSource identifies the process that built the index.
type EventSource struct {
	Hostname string `json:"hostname,omitempty"`
	Version  string `json:"version,omitempty"`
}

// IndexMeta describes the collection that was built.
type IndexMeta struct {
	Collection     string `json:"collection"`
	Guidelines     int    `json:"guidelines"`
	Chunks         int    `json:"chunks"`
	Dimensions     int    `json:"dimensions"`
	CorpusPath     string `json:"corpus_path,omitempty"`
	VectorStore    string `json:"vector_store,omitempty"`
	EmbeddingModel string `json:"embedding_model,omitempty"`
	DurationMs     int64  `json:"duration_ms"`
}

// NewIndexBuiltEvent stamps meta with a fresh event ID and the current time.
func NewIndexBuiltEvent(source EventSource, meta IndexMeta) *IndexBuiltEvent {
	return &IndexBuiltEvent{
		SchemaVersion: SchemaVersionV1,
		EventType:     EventTypeIndexBuilt,
		EventID:       "evt_" + uuid.NewString(),
		EmittedAt:     time.Now().UTC(),
		Source:        source,
		Index:         meta,
	}
}
