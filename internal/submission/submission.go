package submission

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/snapngo/snapngo/internal/chat"
	"github.com/snapngo/snapngo/internal/models"
)

// ErrWindowExpired is returned when proof arrives outside the task window.
var ErrWindowExpired = errors.New("task window expired")

// NotAssignedError is returned when a worker submits proof for a task they
// were never given. Assigned lists the tasks they do hold.
type NotAssignedError struct {
	TaskID   int64
	Assigned []int64
}

func (e *NotAssignedError) Error() string {
	return fmt.Sprintf("not assigned to task %d (assigned: %v)", e.TaskID, e.Assigned)
}

// Store is the part of the ledger the validator reads.
type Store interface {
	AssignedTasks(ctx context.Context, workerID string) ([]int64, error)
	GetTask(ctx context.Context, taskID int64) (*models.Task, error)
}

// Validator decides whether a submission may be recorded. A nil error
// means the submission is accepted.
type Validator struct {
	store Store
}

func NewValidator(store Store) *Validator {
	if store == nil {
		panic("submission validator requires a ledger store")
	}
	return &Validator{store: store}
}

// Validate checks that taskID is assigned to workerID and that submittedAt
// lies within [start, start+window]. Decision status is not consulted.
func (v *Validator) Validate(ctx context.Context, workerID string, taskID int64, submittedAt time.Time) error {
	assigned, err := v.store.AssignedTasks(ctx, workerID)
	if err != nil {
		return fmt.Errorf("load assigned tasks: %w", err)
	}

	if !contains(assigned, taskID) {
		return &NotAssignedError{TaskID: taskID, Assigned: assigned}
	}

	task, err := v.store.GetTask(ctx, taskID)
	if err != nil {
		return fmt.Errorf("load task: %w", err)
	}

	if !task.Open(submittedAt) {
		return fmt.Errorf("task %d closed at %s: %w", taskID, task.Deadline().Format(time.RFC3339), ErrWindowExpired)
	}

	return nil
}

func contains(ids []int64, id int64) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

type Reason string

const (
	ReasonNone     Reason = "no file attached"
	ReasonMultiple Reason = "more than one file attached"
	ReasonNotImage Reason = "attached file is not an image"
)

// AttachmentError rejects a message before the ledger is consulted.
type AttachmentError struct {
	Reason Reason
}

func (e *AttachmentError) Error() string {
	return string(e.Reason)
}

// CheckAttachments requires exactly one image attachment.
func CheckAttachments(files []chat.Attachment) error {
	switch {
	case len(files) == 0:
		return &AttachmentError{Reason: ReasonNone}
	case len(files) > 1:
		return &AttachmentError{Reason: ReasonMultiple}
	case !IsImage(files[0].MimeType):
		return &AttachmentError{Reason: ReasonNotImage}
	}
	return nil
}

// IsImage reports whether mimeType names an image media type.
func IsImage(mimeType string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(mimeType)), "image/")
}
