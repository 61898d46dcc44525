package offer

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/snapngo/snapngo/internal/models"
)

const (
	ActionAccept = "accepted"
	ActionReject = "rejected"
)

// Emphasis marks the visual state of a choice.
type Emphasis string

const (
	EmphasisNone    Emphasis = ""
	EmphasisPrimary Emphasis = "primary"
	EmphasisDanger  Emphasis = "danger"
)

// Choice is one button of an offer. Value is the status the worker asks
// for and TaskTag routes the press back to the task.
type Choice struct {
	ActionID string
	Label    string
	Value    models.AssignmentStatus
	TaskTag  string
	Emphasis Emphasis
}

// View is the transport independent rendering of an offer.
type View struct {
	TaskID  int64
	Text    string
	Choices []Choice
}

// Render builds the offer for task as seen in status. It has no side
// effects, so the same call serves the first send and later updates.
func Render(task *models.Task, status models.AssignmentStatus) View {
	tag := Tag(task.ID)

	accept := Choice{
		ActionID: ActionAccept,
		Label:    "Accept",
		Value:    models.AssignmentStatusAccepted,
		TaskTag:  tag,
	}
	reject := Choice{
		ActionID: ActionReject,
		Label:    "Reject",
		Value:    models.AssignmentStatusRejected,
		TaskTag:  tag,
	}

	switch status {
	case models.AssignmentStatusAccepted:
		accept.Emphasis = EmphasisPrimary
	case models.AssignmentStatusRejected:
		reject.Emphasis = EmphasisDanger
	}

	return View{
		TaskID:  task.ID,
		Text:    describe(task),
		Choices: []Choice{accept, reject},
	}
}

// Tag encodes a task id for a choice.
func Tag(taskID int64) string {
	return strconv.FormatInt(taskID, 10)
}

// ParseTag is the inverse of Tag.
func ParseTag(tag string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(tag), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid task tag %q: %w", tag, err)
	}
	return id, nil
}

func describe(task *models.Task) string {
	var b strings.Builder
	fmt.Fprintf(&b, "*Task # %d*, Location: %s\n", task.ID, task.Location)
	fmt.Fprintf(&b, "Description: %s\n", task.Description)
	fmt.Fprintf(&b, "Start Time: %s\n", task.StartTime.Format("Mon Jan 2 15:04 MST"))
	fmt.Fprintf(&b, "Window: %s\n", window(task.Window))
	fmt.Fprintf(&b, "Compensation: %s", compensation(task.Compensation))
	return b.String()
}

func window(d time.Duration) string {
	if d%time.Minute == 0 {
		return fmt.Sprintf("%d min", int64(d/time.Minute))
	}
	return d.String()
}

// compensation formats an amount held in cents.
func compensation(cents int64) string {
	sign := ""
	if cents < 0 {
		sign, cents = "-", -cents
	}
	return fmt.Sprintf("%s$%d.%02d", sign, cents/100, cents%100)
}
