// Package dispatch routes inbound chat events to the status engine and the
// submission validator, and sends task offers out to workers.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/snapngo/snapngo/internal/chat"
	"github.com/snapngo/snapngo/internal/ledger"
	"github.com/snapngo/snapngo/internal/metrics"
	"github.com/snapngo/snapngo/internal/offer"
	"github.com/snapngo/snapngo/internal/status"
	"github.com/snapngo/snapngo/internal/submission"
	"github.com/snapngo/snapngo/internal/worker"
	"github.com/snapngo/snapngo/pkg/env"
	"github.com/snapngo/snapngo/pkg/log"
	"github.com/snapngo/snapngo/pkg/storage"
)

const (
	defaultAckTimeout = 2 * time.Second
	defaultWorkers    = 16
)

// Config wires a Dispatcher. Transport, Ledger and Storage are required;
// everything else has a default.
type Config struct {
	Transport    chat.Transport
	Ledger       *ledger.Store
	Storage      storage.Storage
	Engine       *status.Engine
	Validator    *submission.Validator
	Messages     *offer.Messages
	HelpKeywords env.Keywords
	// BotID is the bot's own user id. Events from it are dropped and batch
	// entries addressed to it are skipped.
	BotID      string
	Workers    int
	AckTimeout time.Duration
	Now        func() time.Time
}

type Dispatcher struct {
	transport  chat.Transport
	ledger     *ledger.Store
	storage    storage.Storage
	engine     *status.Engine
	validator  *submission.Validator
	messages   *offer.Messages
	keywords   env.Keywords
	botID      string
	pool       *worker.Pool
	ackTimeout time.Duration
	now        func() time.Time
}

func New(cfg Config) (*Dispatcher, error) {
	switch {
	case cfg.Transport == nil:
		return nil, errors.New("dispatcher requires a chat transport")
	case cfg.Ledger == nil:
		return nil, errors.New("dispatcher requires a ledger store")
	case cfg.Storage == nil:
		return nil, errors.New("dispatcher requires file storage")
	}

	d := &Dispatcher{
		transport:  cfg.Transport,
		ledger:     cfg.Ledger,
		storage:    cfg.Storage,
		engine:     cfg.Engine,
		validator:  cfg.Validator,
		messages:   cfg.Messages,
		keywords:   cfg.HelpKeywords,
		botID:      cfg.BotID,
		ackTimeout: cfg.AckTimeout,
		now:        cfg.Now,
	}

	if d.engine == nil {
		d.engine = status.NewEngine(cfg.Ledger)
	}
	if d.validator == nil {
		d.validator = submission.NewValidator(cfg.Ledger)
	}
	if d.messages == nil {
		d.messages = offer.DefaultMessages()
	}
	if len(d.keywords) == 0 {
		d.keywords = env.Keywords{"?", "help"}
	}
	if d.ackTimeout <= 0 {
		d.ackTimeout = defaultAckTimeout
	}
	if d.now == nil {
		d.now = func() time.Time { return time.Now().UTC() }
	}

	workers := cfg.Workers
	if workers <= 0 {
		workers = defaultWorkers
	}
	d.pool = worker.NewPool(workers)

	return d, nil
}

// Run consumes events until ctx is done or events is closed. Every event
// is taken off the channel at once: decisions are acknowledged on their own
// goroutine and only then wait for a pool slot, so a full pool never holds
// up an acknowledgement. Run waits for queued and in-flight handlers before
// returning.
func (d *Dispatcher) Run(ctx context.Context, events <-chan chat.Event) error {
	log.Info("dispatcher running", "workers", d.pool.Size(), "bot_id", d.botID)

	var queued sync.WaitGroup
	defer func() {
		queued.Wait()
		d.pool.Wait()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}

			queued.Add(1)
			go func() {
				defer queued.Done()
				d.enqueue(ctx, ev)
			}()
		}
	}
}

func (d *Dispatcher) enqueue(ctx context.Context, ev chat.Event) {
	if ev.Kind == chat.KindDecision {
		if err := d.acknowledge(ctx, ev); err != nil {
			return
		}
	}

	if err := d.pool.Submit(ctx, ev.Kind.String(), func(ctx context.Context) {
		d.process(ctx, ev)
	}); err != nil {
		log.Warn("event dropped", "kind", ev.Kind.String(), "sender", ev.Sender, "error", err)
	}
}

// Handle acknowledges and processes a single event synchronously.
func (d *Dispatcher) Handle(ctx context.Context, ev chat.Event) error {
	if ev.Kind == chat.KindDecision {
		if err := d.acknowledge(ctx, ev); err != nil {
			return err
		}
	}
	d.process(ctx, ev)
	return nil
}

func (d *Dispatcher) acknowledge(ctx context.Context, ev chat.Event) error {
	if ev.Decision == nil || ev.Decision.Ack == nil {
		return nil
	}

	ackCtx, cancel := context.WithTimeout(ctx, d.ackTimeout)
	defer cancel()

	if err := ev.Decision.Ack(ackCtx); err != nil {
		metrics.AckFailuresTotal.Inc()
		log.Error("decision ack failure", "worker_id", ev.Sender, "task_tag", ev.Decision.TaskTag, "error", err)
		return fmt.Errorf("ack decision from %s: %w", ev.Sender, err)
	}
	return nil
}

func (d *Dispatcher) process(ctx context.Context, ev chat.Event) {
	kind := ev.Kind.String()
	metrics.EventsTotal.WithLabelValues(kind).Inc()

	start := time.Now()
	defer func() {
		metrics.EventDurationSeconds.WithLabelValues(kind).Observe(time.Since(start).Seconds())
	}()

	if ev.Sender == "" || ev.Sender == d.botID {
		log.Debug("ignoring event", "kind", kind, "sender", ev.Sender)
		return
	}

	switch ev.Kind {
	case chat.KindText:
		d.handleText(ctx, ev)
	case chat.KindFiles:
		d.handleFiles(ctx, ev)
	case chat.KindDecision:
		d.handleDecision(ctx, ev)
	default:
		log.Warn("unhandled event", "kind", kind, "sender", ev.Sender)
	}
}

func (d *Dispatcher) handleText(ctx context.Context, ev chat.Event) {
	if d.keywords.Contains(ev.Text) {
		d.reply(ctx, ev, chat.InfoPayload(d.messages.Help))
		return
	}
	d.reply(ctx, ev, chat.InfoPayload(d.messages.Sample))
}

// reply answers in the conversation the event came from, falling back to
// a direct message to the sender.
func (d *Dispatcher) reply(ctx context.Context, ev chat.Event, p chat.Payload) {
	recipient := ev.Channel
	if recipient == "" {
		recipient = ev.Sender
	}

	if _, err := d.transport.Send(ctx, recipient, p); err != nil {
		metrics.MessagesTotal.WithLabelValues("reply", "error").Inc()
		log.Error("reply failure", "recipient", recipient, "error", err)
		return
	}
	metrics.MessagesTotal.WithLabelValues("reply", "ok").Inc()
}

func (d *Dispatcher) replyText(ctx context.Context, ev chat.Event, format string, args ...interface{}) {
	d.reply(ctx, ev, chat.TextPayload(fmt.Sprintf(format, args...)))
}

func mention(workerID string) string {
	return "<@" + workerID + ">"
}
