package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Submission is the proof of completion for a (task, worker) pair. A newer
// valid submission replaces the previous row.
type Submission struct {
	ID          uuid.UUID         `gorm:"type:uuid;primaryKey" json:"id"`
	TaskID      int64             `gorm:"uniqueIndex:idx_submission_pair;not null" json:"task_id"`
	WorkerID    string            `gorm:"type:text;uniqueIndex:idx_submission_pair;not null" json:"worker_id"`
	FileRef     string            `gorm:"type:text;not null" json:"file_ref"`
	FileMeta    datatypes.JSONMap `gorm:"type:json" json:"file_meta,omitempty"`
	SubmittedAt time.Time         `gorm:"not null" json:"submitted_at"`
	CreatedAt   time.Time         `gorm:"not null" json:"created_at"`
	UpdatedAt   time.Time         `gorm:"not null" json:"updated_at"`
}
