package status

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/snapngo/snapngo/internal/ledger"
	"github.com/snapngo/snapngo/internal/metrics"
	"github.com/snapngo/snapngo/internal/models"
	"github.com/snapngo/snapngo/pkg/log"
)

var (
	ErrUnknownAssignment = errors.New("unknown assignment")
	ErrInvalidDecision   = errors.New("requested status is not a decision")
)

// Store is the part of the ledger the engine reads and writes.
type Store interface {
	GetStatus(ctx context.Context, taskID int64, workerID string) (models.AssignmentStatus, error)
	SetStatusIfPending(ctx context.Context, taskID int64, workerID string, status models.AssignmentStatus, at time.Time) (bool, error)
}

type Kind int

const (
	// Applied means the requested status was written.
	Applied Kind = iota + 1
	// AlreadyDecided means the assignment was terminal and nothing was written.
	AlreadyDecided
)

func (k Kind) String() string {
	switch k {
	case Applied:
		return "applied"
	case AlreadyDecided:
		return "already_decided"
	default:
		return "unknown"
	}
}

// Outcome is the result of a decision. Status is the new status when Kind
// is Applied and the existing one when Kind is AlreadyDecided.
type Outcome struct {
	Kind   Kind
	Status models.AssignmentStatus
}

// Engine applies accept/reject decisions to the ledger.
type Engine struct {
	store Store
	locks *keyedMutex
	now   func() time.Time
}

func NewEngine(store Store) *Engine {
	if store == nil {
		panic("status engine requires a ledger store")
	}
	return &Engine{
		store: store,
		locks: newKeyedMutex(),
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// Decide moves the (taskID, workerID) assignment from pending to
// requested. Decisions on the same pair are serialised; decisions on
// different pairs run independently.
func (e *Engine) Decide(ctx context.Context, taskID int64, workerID string, requested models.AssignmentStatus) (Outcome, error) {
	if !requested.Terminal() {
		return Outcome{}, fmt.Errorf("%w: %q", ErrInvalidDecision, requested)
	}

	unlock := e.locks.Lock(key(taskID, workerID))
	defer unlock()

	outcome, err := e.decide(ctx, taskID, workerID, requested)
	switch {
	case errors.Is(err, ErrUnknownAssignment):
		metrics.DecisionsTotal.WithLabelValues(string(requested), "unknown_assignment").Inc()
	case err != nil:
		metrics.DecisionsTotal.WithLabelValues(string(requested), "error").Inc()
	default:
		metrics.DecisionsTotal.WithLabelValues(string(requested), outcome.Kind.String()).Inc()
	}
	return outcome, err
}

func (e *Engine) decide(ctx context.Context, taskID int64, workerID string, requested models.AssignmentStatus) (Outcome, error) {
	current, err := e.store.GetStatus(ctx, taskID, workerID)
	if errors.Is(err, ledger.ErrAssignmentNotFound) {
		return Outcome{}, fmt.Errorf("task %d, worker %s: %w", taskID, workerID, ErrUnknownAssignment)
	}
	if err != nil {
		return Outcome{}, fmt.Errorf("read status: %w", err)
	}

	if current.Terminal() {
		return Outcome{Kind: AlreadyDecided, Status: current}, nil
	}

	applied, err := e.store.SetStatusIfPending(ctx, taskID, workerID, requested, e.now())
	if err != nil {
		return Outcome{}, fmt.Errorf("write status: %w", err)
	}

	if !applied {
		// another process decided between our read and write
		current, err = e.store.GetStatus(ctx, taskID, workerID)
		if err != nil {
			return Outcome{}, fmt.Errorf("re-read status: %w", err)
		}
		log.Info("decision lost race", "task_id", taskID, "worker_id", workerID, "status", current)
		return Outcome{Kind: AlreadyDecided, Status: current}, nil
	}

	log.Debug("decision applied", "task_id", taskID, "worker_id", workerID, "status", requested)
	return Outcome{Kind: Applied, Status: requested}, nil
}

func key(taskID int64, workerID string) string {
	return strconv.FormatInt(taskID, 10) + "/" + workerID
}
