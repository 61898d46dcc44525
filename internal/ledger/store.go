package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"
	"github.com/snapngo/snapngo/internal/metrics"
	"github.com/snapngo/snapngo/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrTaskNotFound       = errors.New("task not found")
	ErrAssignmentNotFound = errors.New("assignment not found")
	ErrSubmissionNotFound = errors.New("submission not found")
)

// Store is the durable (task, worker) ledger. All status changes go
// through SetStatusIfPending, which is a conditional update evaluated by
// the database.
type Store struct {
	db  *gorm.DB
	now func() time.Time
}

func NewStore(db *gorm.DB) *Store {
	if db == nil {
		panic("ledger store requires a database connection")
	}
	return &Store{db: db, now: func() time.Time { return time.Now().UTC() }}
}

func (s *Store) DB() *gorm.DB {
	return s.db
}

// Transaction runs fn against a store bound to one database transaction.
// Any error from fn rolls back every write made through that store.
func (s *Store) Transaction(ctx context.Context, fn func(tx *Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Store{db: tx, now: s.now})
	})
}

func (s *Store) CreateTask(ctx context.Context, task *models.Task) error {
	if task == nil {
		return errors.New("nil task")
	}
	if task.Window <= 0 {
		return fmt.Errorf("task window must be positive, got %s", task.Window)
	}
	return s.db.WithContext(ctx).Create(task).Error
}

func (s *Store) GetTask(ctx context.Context, taskID int64) (*models.Task, error) {
	task := new(models.Task)
	err := s.db.WithContext(ctx).First(task, "id = ?", taskID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("task %d: %w", taskID, ErrTaskNotFound)
	}
	if err != nil {
		return nil, err
	}
	return task, nil
}

// Assign creates pending assignments for workerID. Existing assignments
// are left untouched so re-running a batch never resets a decision.
func (s *Store) Assign(ctx context.Context, workerID string, taskIDs ...int64) error {
	if workerID == "" {
		return errors.New("assign requires a worker id")
	}
	if len(taskIDs) == 0 {
		return nil
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var found int64
		if err := tx.Model(&models.Task{}).Where("id IN ?", taskIDs).Count(&found).Error; err != nil {
			return err
		}
		ids := uniq(taskIDs)
		if found != int64(len(ids)) {
			return fmt.Errorf("assign %v to %s: %w", taskIDs, workerID, ErrTaskNotFound)
		}

		rows := make([]models.Assignment, 0, len(ids))
		for _, id := range ids {
			rows = append(rows, models.Assignment{
				TaskID:   id,
				WorkerID: workerID,
				Status:   models.AssignmentStatusPending,
			})
		}

		return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&rows).Error
	})
}

func (s *Store) GetAssignment(ctx context.Context, taskID int64, workerID string) (*models.Assignment, error) {
	a := new(models.Assignment)
	err := s.db.WithContext(ctx).
		Where("task_id = ? AND worker_id = ?", taskID, workerID).
		First(a).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("assignment (%d, %s): %w", taskID, workerID, ErrAssignmentNotFound)
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}

func (s *Store) GetStatus(ctx context.Context, taskID int64, workerID string) (models.AssignmentStatus, error) {
	a, err := s.GetAssignment(ctx, taskID, workerID)
	if err != nil {
		return "", err
	}
	return a.Status, nil
}

// SetStatusIfPending writes status only while the row is still pending.
// It reports false when the row was already decided, including when a
// concurrent writer got there first.
func (s *Store) SetStatusIfPending(ctx context.Context, taskID int64, workerID string, status models.AssignmentStatus, at time.Time) (bool, error) {
	if !status.Terminal() {
		return false, fmt.Errorf("status %q is not a decision", status)
	}

	result := s.db.WithContext(ctx).
		Model(&models.Assignment{}).
		Where(
			"task_id = ? AND worker_id = ? AND status = ?",
			taskID,
			workerID,
			models.AssignmentStatusPending,
		).
		Updates(map[string]interface{}{
			"status":     status,
			"decided_at": at.UTC(),
			"updated_at": s.now(),
		})
	if result.Error != nil {
		if isContentionErr(result.Error) {
			metrics.LedgerContentionTotal.WithLabelValues("set_status").Inc()
		}
		return false, result.Error
	}
	if result.RowsAffected == 0 {
		metrics.LedgerContentionTotal.WithLabelValues("set_status").Inc()
		return false, nil
	}
	return true, nil
}

// AssignedTasks returns the ids of every task assigned to workerID in
// ascending order.
func (s *Store) AssignedTasks(ctx context.Context, workerID string) ([]int64, error) {
	ids := make([]int64, 0)
	err := s.db.WithContext(ctx).
		Model(&models.Assignment{}).
		Where("worker_id = ?", workerID).
		Order("task_id ASC").
		Pluck("task_id", &ids).Error
	return ids, err
}

func (s *Store) ListAssignments(ctx context.Context, workerID string) (models.Assignments, error) {
	out := make(models.Assignments, 0)
	err := s.db.WithContext(ctx).
		Where("worker_id = ?", workerID).
		Order("task_id ASC").
		Find(&out).Error
	return out, err
}

// PendingOffer is an assignment whose offer was never sent, with its task.
type PendingOffer struct {
	Assignment *models.Assignment
	Task       *models.Task
}

// Unoffered returns assignments whose offer message was never sent and
// whose task window has not closed yet, ordered by worker then task.
func (s *Store) Unoffered(ctx context.Context) ([]PendingOffer, error) {
	var rows models.Assignments
	err := s.db.WithContext(ctx).
		Where("message_ts = ''").
		Order("worker_id ASC, task_id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}

	ids := make([]int64, 0, len(rows))
	for _, a := range rows {
		ids = append(ids, a.TaskID)
	}

	var tasks []*models.Task
	if err := s.db.WithContext(ctx).Where("id IN ?", uniq(ids)).Find(&tasks).Error; err != nil {
		return nil, err
	}
	byID := make(map[int64]*models.Task, len(tasks))
	for _, t := range tasks {
		byID[t.ID] = t
	}

	now := s.now()
	open := make([]PendingOffer, 0, len(rows))
	for _, a := range rows {
		task, ok := byID[a.TaskID]
		if !ok {
			return nil, fmt.Errorf("task %d: %w", a.TaskID, ErrTaskNotFound)
		}
		if !now.After(task.Deadline()) {
			open = append(open, PendingOffer{Assignment: a, Task: task})
		}
	}
	return open, nil
}

// SetMessageRef remembers where the offer for (taskID, workerID) was posted.
func (s *Store) SetMessageRef(ctx context.Context, taskID int64, workerID, channel, ts string) error {
	result := s.db.WithContext(ctx).
		Model(&models.Assignment{}).
		Where("task_id = ? AND worker_id = ?", taskID, workerID).
		Updates(map[string]interface{}{
			"channel":    channel,
			"message_ts": ts,
			"updated_at": s.now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("assignment (%d, %s): %w", taskID, workerID, ErrAssignmentNotFound)
	}
	return nil
}

// RecordSubmission stores sub, replacing any earlier submission for the
// same (task, worker). The row keeps its original id; sub is refreshed with
// the stored id and creation time.
func (s *Store) RecordSubmission(ctx context.Context, sub *models.Submission) error {
	if sub == nil {
		return errors.New("nil submission")
	}
	if sub.ID == uuid.Nil {
		sub.ID = uuid.New()
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "task_id"}, {Name: "worker_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"file_ref", "file_meta", "submitted_at", "updated_at"}),
		}).Create(sub).Error
		if err != nil {
			return err
		}

		var stored models.Submission
		if err := tx.Select("id", "created_at").
			Where("task_id = ? AND worker_id = ?", sub.TaskID, sub.WorkerID).
			First(&stored).Error; err != nil {
			return err
		}
		sub.ID = stored.ID
		sub.CreatedAt = stored.CreatedAt
		return nil
	})
}

func (s *Store) GetSubmission(ctx context.Context, taskID int64, workerID string) (*models.Submission, error) {
	sub := new(models.Submission)
	err := s.db.WithContext(ctx).
		Where("task_id = ? AND worker_id = ?", taskID, workerID).
		First(sub).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("submission (%d, %s): %w", taskID, workerID, ErrSubmissionNotFound)
	}
	if err != nil {
		return nil, err
	}
	return sub, nil
}

func isContentionErr(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code == sqlite3.ErrBusy || sqliteErr.Code == sqlite3.ErrLocked
	}
	return false
}

func uniq(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
