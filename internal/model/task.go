package model

import "github.com/google/uuid"

// Task represents a compression job that will be sent to the queue.
// TargetKB carries the size preference captured at upload time, so a
// preference change never affects jobs already in flight.
type Task struct {
	ID          uuid.UUID `json:"id"`
	OwnerID     uuid.UUID `json:"owner_id"`
	Filename    string    `json:"filename"`
	ContentType string    `json:"content_type"`
	Path        string    `json:"file_path"`
	TargetKB    int       `json:"target_kb"`
}
