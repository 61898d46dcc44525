package dispatch

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/snapngo/snapngo/internal/chat"
	"github.com/snapngo/snapngo/internal/metrics"
	"github.com/snapngo/snapngo/internal/models"
	"github.com/snapngo/snapngo/internal/submission"
	"github.com/snapngo/snapngo/pkg/log"
	"github.com/snapngo/snapngo/pkg/storage"
	"gorm.io/datatypes"
)

func (d *Dispatcher) handleFiles(ctx context.Context, ev chat.Event) {
	if err := submission.CheckAttachments(ev.Attachments); err != nil {
		var ae *submission.AttachmentError
		if errors.As(err, &ae) {
			d.replyText(ctx, ev, "%s", attachmentReply(ae.Reason))
		}
		d.reply(ctx, ev, chat.InfoPayload(d.messages.Help))
		metrics.SubmissionsTotal.WithLabelValues("bad_attachment").Inc()
		return
	}

	taskID, err := parseTaskID(ev.Text)
	if err != nil {
		d.replyText(ctx, ev, "Please type only the task number together with your photo, for example: 12")
		d.reply(ctx, ev, chat.InfoPayload(d.messages.Help))
		metrics.SubmissionsTotal.WithLabelValues("bad_format").Inc()
		return
	}

	d.replyText(ctx, ev, "%s is trying to finish task %d", mention(ev.Sender), taskID)

	submittedAt := ev.At
	if submittedAt.IsZero() {
		submittedAt = d.now()
	}

	err = d.validator.Validate(ctx, ev.Sender, taskID, submittedAt)

	var notAssigned *submission.NotAssignedError
	switch {
	case errors.As(err, &notAssigned):
		d.replyText(ctx, ev, "You were not assigned to task %d", taskID)
		d.replyText(ctx, ev, "Your assigned tasks are %s", formatIDs(notAssigned.Assigned))
		metrics.SubmissionsTotal.WithLabelValues("not_assigned").Inc()
		return
	case errors.Is(err, submission.ErrWindowExpired):
		d.replyText(ctx, ev, "Task %d has already expired. Please pick another assigned task to finish.", taskID)
		metrics.SubmissionsTotal.WithLabelValues("expired").Inc()
		return
	case err != nil:
		log.Error("submission validation failure", "worker_id", ev.Sender, "task_id", taskID, "error", err)
		d.replyText(ctx, ev, "Something went wrong while recording task %d. Please try again.", taskID)
		metrics.SubmissionsTotal.WithLabelValues("error").Inc()
		return
	}

	if err := d.record(ctx, ev.Sender, taskID, ev.Attachments[0], submittedAt); err != nil {
		log.Error("submission record failure", "worker_id", ev.Sender, "task_id", taskID, "error", err)
		d.replyText(ctx, ev, "Something went wrong while recording task %d. Please try again.", taskID)
		metrics.SubmissionsTotal.WithLabelValues("storage_error").Inc()
		return
	}

	log.Info("submission recorded", "worker_id", ev.Sender, "task_id", taskID)
	d.replyText(ctx, ev, "%s finished task %d", mention(ev.Sender), taskID)
	metrics.SubmissionsTotal.WithLabelValues("accepted").Inc()
}

// record downloads the proof, stores it and writes the Submission row. No
// row is written unless the file is durably stored.
func (d *Dispatcher) record(ctx context.Context, workerID string, taskID int64, file chat.Attachment, at time.Time) error {
	data, err := d.transport.Download(ctx, file.DownloadRef)
	if err != nil {
		return fmt.Errorf("%w: download %s: %v", storage.ErrStorage, file.ID, err)
	}

	key := storage.SubmissionKey(workerID, taskID, at, file.MimeType)
	if err := d.storage.Write(ctx, key, data); err != nil {
		return fmt.Errorf("%w: write %s: %v", storage.ErrStorage, key, err)
	}

	return d.ledger.RecordSubmission(ctx, &models.Submission{
		TaskID:      taskID,
		WorkerID:    workerID,
		FileRef:     key,
		SubmittedAt: at.UTC(),
		FileMeta: datatypes.JSONMap{
			"file_id":   file.ID,
			"name":      file.Name,
			"mime_type": file.MimeType,
			"size":      len(data),
		},
	})
}

func attachmentReply(reason submission.Reason) string {
	switch reason {
	case submission.ReasonMultiple:
		return "You are attaching more than one file."
	case submission.ReasonNotImage:
		return "The file you attached is not an image."
	default:
		return "Please attach a photo of the finished task."
	}
}

// parseTaskID reads the task number typed alongside a photo. A leading
// '#' is tolerated.
func parseTaskID(text string) (int64, error) {
	s := strings.TrimPrefix(strings.TrimSpace(text), "#")
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid task number %q: %w", text, err)
	}
	if id <= 0 {
		return 0, fmt.Errorf("invalid task number %q", text)
	}
	return id, nil
}

func formatIDs(ids []int64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
