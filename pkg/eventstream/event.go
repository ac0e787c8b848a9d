package eventstream

import (
	"time"

	"github.com/google/uuid"

	"github.com/papercomputeco/designlog/pkg/history"
)

const (
	// SchemaVersionV1 is the first version of the event payload schema.
	SchemaVersionV1 = 1

	// EventTypeEntryRecorded is emitted after a history entry is persisted.
	EventTypeEntryRecorded = "designlog.entry.recorded"
)

// EntryRecordedEvent is a transport-neutral event payload for a recorded entry.
type EntryRecordedEvent struct {
	SchemaVersion int           `json:"schema_version"`
	EventType     string        `json:"event_type"`
	EventID       string        `json:"event_id"`
	EmittedAt     time.Time     `json:"emitted_at"`
	Source        EventSource   `json:"source"`
	RunMeta       RunMeta       `json:"run_meta"`
	Entry         history.Entry `json:"entry"`
}

// EventSource identifies where the entry originated.
type EventSource struct {
	Host     string `json:"host,omitempty"`
	Provider string `json:"provider"`
	Model    string `json:"model"`
}

// RunMeta captures metadata about the model run that produced the entry.
type RunMeta struct {
	StartedAt   time.Time `json:"started_at"`
	CompletedAt time.Time `json:"completed_at"`
	DurationMs  int64     `json:"duration_ms"`
	Streaming   bool      `json:"streaming"`
	HasImage    bool      `json:"has_image"`
}

// NewEntryRecordedEvent wraps entry with a fresh event id.
func NewEntryRecordedEvent(entry *history.Entry, host string, meta RunMeta) *EntryRecordedEvent {
	if meta.DurationMs == 0 && !meta.StartedAt.IsZero() && !meta.CompletedAt.IsZero() {
		meta.DurationMs = meta.CompletedAt.Sub(meta.StartedAt).Milliseconds()
	}
	return &EntryRecordedEvent{
		SchemaVersion: SchemaVersionV1,
		EventType:     EventTypeEntryRecorded,
		EventID:       "evt_" + uuid.NewString(),
		EmittedAt:     time.Now().UTC(),
		Source: EventSource{
			Host:     host,
			Provider: entry.Provider,
			Model:    entry.Model,
		},
		RunMeta: meta,
		Entry:   *entry,
	}
}
