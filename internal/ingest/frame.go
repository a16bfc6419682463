package ingest

import (
	"encoding/json"
	"fmt"

	"swarmsync/internal/models"
)

// Frame is one raw delivery as it arrives from a feed or poll. Data is base64
// in JSON.
type Frame struct {
	Origin models.Origin `json:"origin"`
	Data   []byte        `json:"data"`
}

// Batch is the payload of one feed message or poll response.
type Batch struct {
	Frames []Frame `json:"frames"`
	// Cursor lets a poller resume after the last delivery it saw.
	Cursor string `json:"cursor,omitempty"`
}

func DecodeBatch(b []byte) (*Batch, error) {
	var batch Batch
	if err := json.Unmarshal(b, &batch); err != nil {
		return nil, fmt.Errorf("failed to decode batch: %w", err)
	}
	return &batch, nil
}
