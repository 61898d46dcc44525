package task

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/snapngo/snapngo/internal/ledger"
	"github.com/snapngo/snapngo/internal/models"
	"github.com/snapngo/snapngo/pkg/db"
	"gorm.io/gorm"
)

var (
	ErrInvalid = errors.New("invalid task")
	ErrExists  = errors.New("task already exists")
)

type Task interface {
	WithDatabase(*gorm.DB) Task
	Get(int64) (*models.Task, error)
	Create(*CreateRequest) (*models.Task, error)
}

type taskService struct {
	ctx context.Context
	db  *gorm.DB
}

func Service(ctx context.Context) Task {
	return &taskService{ctx: ctx}
}

func (t *taskService) WithDatabase(conn *gorm.DB) Task {
	t.db = conn
	return t
}

func (t *taskService) store() *ledger.Store {
	if t.db == nil {
		t.db = db.Connection()
	}
	return ledger.NewStore(t.db)
}

func (t *taskService) Get(id int64) (*models.Task, error) {
	return t.store().GetTask(t.ctx, id)
}

type CreateRequest struct {
	ID            int64     `json:"id"`
	Location      string    `json:"location"`
	Description   string    `json:"description"`
	StartTime     time.Time `json:"start_time"`
	WindowMinutes int64     `json:"window_minutes"`
	Compensation  int64     `json:"compensation_cents"`
}

func (r *CreateRequest) Validate() error {
	switch {
	case r.ID <= 0:
		return fmt.Errorf("%w: id must be positive", ErrInvalid)
	case strings.TrimSpace(r.Location) == "":
		return fmt.Errorf("%w: location is required", ErrInvalid)
	case r.StartTime.IsZero():
		return fmt.Errorf("%w: start_time is required", ErrInvalid)
	case r.WindowMinutes <= 0:
		return fmt.Errorf("%w: window_minutes must be positive", ErrInvalid)
	case r.Compensation < 0:
		return fmt.Errorf("%w: compensation_cents must not be negative", ErrInvalid)
	}
	return nil
}

func (t *taskService) Create(req *CreateRequest) (*models.Task, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	store := t.store()

	_, err := store.GetTask(t.ctx, req.ID)
	switch {
	case err == nil:
		return nil, fmt.Errorf("task %d: %w", req.ID, ErrExists)
	case !errors.Is(err, ledger.ErrTaskNotFound):
		return nil, err
	}

	task := &models.Task{
		ID:           req.ID,
		Location:     strings.TrimSpace(req.Location),
		Description:  strings.TrimSpace(req.Description),
		StartTime:    req.StartTime.UTC(),
		Window:       time.Duration(req.WindowMinutes) * time.Minute,
		Compensation: req.Compensation,
	}

	return task, store.CreateTask(t.ctx, task)
}
