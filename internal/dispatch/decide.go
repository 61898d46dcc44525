package dispatch

import (
	"context"
	"errors"

	"github.com/snapngo/snapngo/internal/chat"
	"github.com/snapngo/snapngo/internal/metrics"
	"github.com/snapngo/snapngo/internal/models"
	"github.com/snapngo/snapngo/internal/offer"
	"github.com/snapngo/snapngo/internal/status"
	"github.com/snapngo/snapngo/pkg/log"
)

func (d *Dispatcher) handleDecision(ctx context.Context, ev chat.Event) {
	decision := ev.Decision
	if decision == nil {
		log.Warn("decision event without payload", "worker_id", ev.Sender)
		return
	}

	taskID, err := offer.ParseTag(decision.TaskTag)
	if err != nil {
		log.Warn("decision with bad task tag", "worker_id", ev.Sender, "error", err)
		return
	}

	out, err := d.engine.Decide(ctx, taskID, ev.Sender, decision.Value)
	switch {
	case errors.Is(err, status.ErrUnknownAssignment):
		d.replyText(ctx, ev, "You were not assigned to task %d", taskID)
		return
	case err != nil:
		log.Error("decision failure", "worker_id", ev.Sender, "task_id", taskID, "error", err)
		return
	}

	if out.Kind == status.AlreadyDecided {
		d.replyText(ctx, ev, "%s already %s task %d", mention(ev.Sender), out.Status, taskID)
		return
	}

	log.Info("decision applied", "worker_id", ev.Sender, "task_id", taskID, "status", out.Status)
	d.refresh(ctx, taskID, ev.Sender, out.Status, decision.Message)
	d.replyText(ctx, ev, "%s %s task %d", mention(ev.Sender), out.Status, taskID)
}

// refresh re-renders the offer for the new status and edits the original
// message in place. The stored reference is used when the event carried
// none.
func (d *Dispatcher) refresh(ctx context.Context, taskID int64, workerID string, st models.AssignmentStatus, ref chat.MessageRef) {
	task, err := d.ledger.GetTask(ctx, taskID)
	if err != nil {
		log.Error("offer refresh failure", "task_id", taskID, "error", err)
		return
	}

	if ref.IsZero() {
		a, err := d.ledger.GetAssignment(ctx, taskID, workerID)
		if err != nil {
			log.Error("offer refresh failure", "task_id", taskID, "worker_id", workerID, "error", err)
			return
		}
		ref = chat.MessageRef{Channel: a.Channel, Timestamp: a.MessageTS}
	}
	if ref.IsZero() {
		log.Warn("no offer message to refresh", "task_id", taskID, "worker_id", workerID)
		return
	}

	view := offer.Render(task, st)
	if err := d.transport.Update(ctx, ref, chat.OfferPayload(view, fallback(st))); err != nil {
		metrics.MessagesTotal.WithLabelValues("update", "error").Inc()
		log.Error("offer update failure", "task_id", taskID, "worker_id", workerID, "error", err)
		return
	}
	metrics.MessagesTotal.WithLabelValues("update", "ok").Inc()
}

func fallback(st models.AssignmentStatus) string {
	switch st {
	case models.AssignmentStatusAccepted:
		return "Accepted!"
	case models.AssignmentStatusRejected:
		return "Rejected!"
	default:
		return "Sending tasks!"
	}
}
