package assignment

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/snapngo/snapngo/internal/dispatch"
	"github.com/snapngo/snapngo/internal/ledger"
	"github.com/snapngo/snapngo/internal/models"
	"github.com/snapngo/snapngo/pkg/db"
	"gorm.io/gorm"
)

var ErrInvalid = errors.New("invalid batch")

type Assignment interface {
	WithDatabase(*gorm.DB) Assignment
	Assign(*BatchRequest) (dispatch.Batch, error)
	List(workerID string) (models.Assignments, error)
}

type assignmentService struct {
	ctx context.Context
	db  *gorm.DB
}

func Service(ctx context.Context) Assignment {
	return &assignmentService{ctx: ctx}
}

func (a *assignmentService) WithDatabase(conn *gorm.DB) Assignment {
	a.db = conn
	return a
}

func (a *assignmentService) store() *ledger.Store {
	if a.db == nil {
		a.db = db.Connection()
	}
	return ledger.NewStore(a.db)
}

// BatchRequest maps worker ids to the task ids offered to them, in order.
type BatchRequest struct {
	Assignments map[string][]int64 `json:"assignments"`
}

func (r *BatchRequest) Validate() error {
	if len(r.Assignments) == 0 {
		return fmt.Errorf("%w: no assignments", ErrInvalid)
	}
	for worker, ids := range r.Assignments {
		if strings.TrimSpace(worker) == "" {
			return fmt.Errorf("%w: empty worker id", ErrInvalid)
		}
		if len(ids) == 0 {
			return fmt.Errorf("%w: no tasks for %s", ErrInvalid, worker)
		}
		for _, id := range ids {
			if id <= 0 {
				return fmt.Errorf("%w: task id %d for %s", ErrInvalid, id, worker)
			}
		}
	}
	return nil
}

// Assign records every assignment in the request and returns the batch to
// offer. Existing assignments keep their status.
func (a *assignmentService) Assign(req *BatchRequest) (dispatch.Batch, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	workers := make([]string, 0, len(req.Assignments))
	for worker := range req.Assignments {
		workers = append(workers, worker)
	}
	sort.Strings(workers)

	batch := dispatch.Batch{}
	err := a.store().Transaction(a.ctx, func(tx *ledger.Store) error {
		// resolve every task first so an unknown id fails before any write
		tasks := map[int64]*models.Task{}
		for _, worker := range workers {
			for _, id := range req.Assignments[worker] {
				if _, ok := tasks[id]; ok {
					continue
				}
				task, err := tx.GetTask(a.ctx, id)
				if err != nil {
					return err
				}
				tasks[id] = task
			}
		}

		for _, worker := range workers {
			ids := req.Assignments[worker]
			if err := tx.Assign(a.ctx, worker, ids...); err != nil {
				return err
			}

			seen := map[int64]bool{}
			for _, id := range ids {
				if !seen[id] {
					seen[id] = true
					batch[worker] = append(batch[worker], tasks[id])
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return batch, nil
}

func (a *assignmentService) List(workerID string) (models.Assignments, error) {
	return a.store().ListAssignments(a.ctx, workerID)
}
