package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/snapngo/snapngo/internal/chat"
	"github.com/snapngo/snapngo/internal/metrics"
	"github.com/snapngo/snapngo/internal/models"
	"github.com/snapngo/snapngo/internal/offer"
	"github.com/snapngo/snapngo/pkg/log"
	"github.com/sourcegraph/conc/panics"
	"github.com/sourcegraph/conc/pool"
)

// Batch maps a worker id to the tasks to offer them, in order.
type Batch map[string][]*models.Task

// BatchReport summarises a batch send.
type BatchReport struct {
	Sent     int                    `json:"sent"`
	Skipped  []string               `json:"skipped,omitempty"`
	Failures []*chat.TransportError `json:"-"`
}

// Errors renders failures for API responses.
func (r *BatchReport) Errors() []string {
	out := make([]string, 0, len(r.Failures))
	for _, f := range r.Failures {
		out = append(out, f.Error())
	}
	return out
}

// Err joins every failure, or returns nil when all offers went out.
func (r *BatchReport) Err() error {
	errs := make([]error, 0, len(r.Failures))
	for _, f := range r.Failures {
		errs = append(errs, f)
	}
	return errors.Join(errs...)
}

type recipientResult struct {
	recipient string
	sent      int
	failures  []*chat.TransportError
}

// SendBatch offers every task in batch to its worker, one message per
// task, rendered with the worker's current status. Recipients are sent to
// concurrently and a failure for one never affects another.
func (d *Dispatcher) SendBatch(ctx context.Context, batch Batch) *BatchReport {
	report := &BatchReport{}

	recipients := make([]string, 0, len(batch))
	for recipient := range batch {
		if recipient == d.botID {
			report.Skipped = append(report.Skipped, recipient)
			continue
		}
		recipients = append(recipients, recipient)
	}
	sort.Strings(recipients)

	p := pool.NewWithResults[recipientResult]().WithMaxGoroutines(d.pool.Size())
	for _, recipient := range recipients {
		tasks := batch[recipient]
		p.Go(func() recipientResult {
			var res recipientResult
			recovered := panics.Try(func() {
				res = d.sendRecipient(ctx, recipient, tasks)
			})
			if recovered != nil {
				res = recipientResult{
					recipient: recipient,
					failures: []*chat.TransportError{{
						Recipient: recipient,
						Err:       recovered.AsError(),
					}},
				}
			}
			return res
		})
	}

	for _, res := range p.Wait() {
		report.Sent += res.sent
		report.Failures = append(report.Failures, res.failures...)
	}

	log.Info(
		"batch sent",
		"recipients", len(recipients),
		"messages", report.Sent,
		"failures", len(report.Failures),
	)

	return report
}

func (d *Dispatcher) sendRecipient(ctx context.Context, recipient string, tasks []*models.Task) recipientResult {
	res := recipientResult{recipient: recipient}

	for _, task := range tasks {
		if err := d.sendOffer(ctx, recipient, task); err != nil {
			metrics.MessagesTotal.WithLabelValues("offer", "error").Inc()
			log.Error("offer send failure", "worker_id", recipient, "task_id", task.ID, "error", err)
			res.failures = append(res.failures, &chat.TransportError{
				Recipient: recipient,
				TaskID:    task.ID,
				Err:       err,
			})
			continue
		}
		metrics.MessagesTotal.WithLabelValues("offer", "ok").Inc()
		res.sent++
	}

	return res
}

func (d *Dispatcher) sendOffer(ctx context.Context, recipient string, task *models.Task) error {
	st, err := d.ledger.GetStatus(ctx, task.ID, recipient)
	if err != nil {
		return fmt.Errorf("read status: %w", err)
	}

	ref, err := d.transport.Send(ctx, recipient, chat.OfferPayload(offer.Render(task, st), fallback(models.AssignmentStatusPending)))
	if err != nil {
		return err
	}

	if err := d.ledger.SetMessageRef(ctx, task.ID, recipient, ref.Channel, ref.Timestamp); err != nil {
		// the offer is out; only the re-offer bookkeeping is lost
		log.Warn("message ref save failure", "worker_id", recipient, "task_id", task.ID, "error", err)
	}
	return nil
}

// OfferPending sends every assignment whose offer was never delivered and
// whose task is still open.
func (d *Dispatcher) OfferPending(ctx context.Context) (*BatchReport, error) {
	pending, err := d.ledger.Unoffered(ctx)
	if err != nil {
		return nil, fmt.Errorf("list unoffered assignments: %w", err)
	}

	batch := Batch{}
	for _, p := range pending {
		batch[p.Assignment.WorkerID] = append(batch[p.Assignment.WorkerID], p.Task)
	}

	if len(batch) == 0 {
		log.Debug("no unoffered assignments")
		return &BatchReport{}, nil
	}

	return d.SendBatch(ctx, batch), nil
}
