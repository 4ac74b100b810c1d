package model

import (
	"time"

	"github.com/google/uuid"
)

// Avatar statuses.
const (
	StatusPending   = "pending"
	StatusProcessed = "processed"
	StatusFailed    = "failed"
)

// Avatar represents an uploaded profile picture and the state of its
// compression pipeline.
type Avatar struct {
	ID             uuid.UUID `json:"id"`
	OwnerID        uuid.UUID `json:"owner_id"`
	Filename       string    `json:"filename"`
	Path           string    `json:"path"`            // original object path
	CompressedPath string    `json:"compressed_path"` // empty until processed
	ThumbnailPath  string    `json:"thumbnail_path"`  // empty until processed
	OriginalSize   int64     `json:"original_size"`
	CompressedSize int64     `json:"compressed_size"`
	TargetKB       int       `json:"target_kb"` // 0 means compression was skipped
	Status         string    `json:"status"`    // pending / processed / failed
	CreatedAt      time.Time `json:"created_at"`
}
