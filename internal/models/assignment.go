package models

import "time"

type AssignmentStatus string

const (
	AssignmentStatusPending  AssignmentStatus = "pending"
	AssignmentStatusAccepted AssignmentStatus = "accepted"
	AssignmentStatusRejected AssignmentStatus = "rejected"
)

// Terminal reports whether s is a final decision.
func (s AssignmentStatus) Terminal() bool {
	return s == AssignmentStatusAccepted || s == AssignmentStatusRejected
}

// Valid reports whether s is one of the known statuses.
func (s AssignmentStatus) Valid() bool {
	return s == AssignmentStatusPending || s.Terminal()
}

// Assignment links one task to one worker. The composite primary key
// enforces at most one row per (task, worker).
type Assignment struct {
	TaskID    int64            `gorm:"primaryKey;autoIncrement:false" json:"task_id"`
	WorkerID  string           `gorm:"primaryKey;type:text" json:"worker_id"`
	Status    AssignmentStatus `gorm:"type:text;index;not null;default:'pending'" json:"status"`
	DecidedAt *time.Time       `json:"decided_at,omitempty"`
	Channel   string           `gorm:"type:text;not null;default:''" json:"channel,omitempty"`
	MessageTS string           `gorm:"type:text;not null;default:''" json:"message_ts,omitempty"`
	CreatedAt time.Time        `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time        `gorm:"not null" json:"updated_at"`
}

// Offered reports whether the offer message has been sent.
func (a *Assignment) Offered() bool {
	return a.MessageTS != ""
}

type Assignments []*Assignment
