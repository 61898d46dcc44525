package models

import "time"

// Task is a unit of field work. Rows are written once by the intake path
// and never mutated afterwards.
type Task struct {
	ID           int64         `gorm:"primaryKey" json:"id"`
	Location     string        `gorm:"type:text;not null" json:"location"`
	Description  string        `gorm:"type:text" json:"description"`
	StartTime    time.Time     `gorm:"not null" json:"start_time"`
	Window       time.Duration `gorm:"not null" json:"window"`
	Compensation int64         `gorm:"not null" json:"compensation"`
	CreatedAt    time.Time     `gorm:"not null" json:"created_at"`
}

// Deadline is the last instant at which proof for the task is accepted.
func (t *Task) Deadline() time.Time {
	return t.StartTime.Add(t.Window)
}

// Open reports whether at falls inside [StartTime, Deadline()].
func (t *Task) Open(at time.Time) bool {
	return !at.Before(t.StartTime) && !at.After(t.Deadline())
}

type Tasks []*Task
