package models

import "encoding/json"

// JobVariant identifies the work a scheduled job performs.
type JobVariant string

const (
	JobAttachmentDownload   JobVariant = "attachmentDownload"
	JobDisappearingMessages JobVariant = "disappearingMessages"
)

// Job is a persisted unit of deferred work. DedupeKey collapses repeated
// scheduling of the same work into one row.
type Job struct {
	ID            string          `json:"id"`
	Variant       JobVariant      `json:"variant"`
	DedupeKey     string          `json:"dedupe_key"`
	ThreadID      string          `json:"thread_id,omitempty"`
	InteractionID int64           `json:"interaction_id,omitempty"`
	Details       json.RawMessage `json:"details,omitempty"`
	NextRunMs     int64           `json:"next_run_ms"`
	CreatedAtMs   int64           `json:"created_at_ms"`
}
