package ledger

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/snapngo/snapngo/internal/models"
	"github.com/snapngo/snapngo/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

func TestAssignCreatesPendingRowsAndKeepsDecisions(t *testing.T) {
	db := testutil.OpenTestDB(t)
	store := NewStore(db)
	ctx := context.Background()

	start := time.Now().UTC()
	testutil.SeedTask(t, db, 3, start, time.Hour)
	testutil.SeedTask(t, db, 7, start, time.Hour)

	require.NoError(t, store.Assign(ctx, "W1", 7, 3, 3))
	ids, err := store.AssignedTasks(ctx, "W1")
	require.NoError(t, err)
	require.Equal(t, []int64{3, 7}, ids)

	applied, err := store.SetStatusIfPending(ctx, 3, "W1", models.AssignmentStatusAccepted, start)
	require.NoError(t, err)
	require.True(t, applied)

	// re-assigning must not reset the decision
	require.NoError(t, store.Assign(ctx, "W1", 3))
	status, err := store.GetStatus(ctx, 3, "W1")
	require.NoError(t, err)
	require.Equal(t, models.AssignmentStatusAccepted, status)
}

func TestAssignUnknownTask(t *testing.T) {
	db := testutil.OpenTestDB(t)
	store := NewStore(db)

	err := store.Assign(context.Background(), "W1", 42)
	require.ErrorIs(t, err, ErrTaskNotFound)
	testutil.AssertCount(t, db, &models.Assignment{}, 0)
}

func TestTransactionRollsBackAssignments(t *testing.T) {
	db := testutil.OpenTestDB(t)
	store := NewStore(db)
	ctx := context.Background()

	now := time.Now().UTC()
	testutil.SeedTask(t, db, 1, now, time.Hour)

	err := store.Transaction(ctx, func(tx *Store) error {
		require.NoError(t, tx.Assign(ctx, "W1", 1))
		return tx.Assign(ctx, "W2", 1, 99)
	})
	require.ErrorIs(t, err, ErrTaskNotFound)

	testutil.AssertCount(t, db, &models.Assignment{}, 0)

	require.NoError(t, store.Transaction(ctx, func(tx *Store) error {
		return tx.Assign(ctx, "W1", 1)
	}))
	testutil.AssertCount(t, db, &models.Assignment{}, 1)
}

func TestGetStatusMissingAssignment(t *testing.T) {
	store := NewStore(testutil.OpenTestDB(t))

	_, err := store.GetStatus(context.Background(), 1, "nobody")
	require.ErrorIs(t, err, ErrAssignmentNotFound)

	_, err = store.GetTask(context.Background(), 1)
	require.ErrorIs(t, err, ErrTaskNotFound)
}

func TestSetStatusIfPendingOnlyOnce(t *testing.T) {
	db := testutil.OpenTestDB(t)
	store := NewStore(db)
	ctx := context.Background()

	decidedAt := time.Date(2026, 10, 15, 10, 0, 0, 0, time.UTC)
	testutil.SeedTask(t, db, 1, decidedAt, time.Hour)
	testutil.SeedAssignment(t, db, 1, "W1")

	applied, err := store.SetStatusIfPending(ctx, 1, "W1", models.AssignmentStatusRejected, decidedAt)
	require.NoError(t, err)
	require.True(t, applied)

	applied, err = store.SetStatusIfPending(ctx, 1, "W1", models.AssignmentStatusAccepted, decidedAt.Add(time.Minute))
	require.NoError(t, err)
	require.False(t, applied)

	a, err := store.GetAssignment(ctx, 1, "W1")
	require.NoError(t, err)
	require.Equal(t, models.AssignmentStatusRejected, a.Status)
	require.NotNil(t, a.DecidedAt)
	require.True(t, a.DecidedAt.Equal(decidedAt))
}

func TestSetStatusIfPendingRejectsPending(t *testing.T) {
	store := NewStore(testutil.OpenTestDB(t))

	_, err := store.SetStatusIfPending(context.Background(), 1, "W1", models.AssignmentStatusPending, time.Now())
	require.Error(t, err)
}

func TestSetStatusIfPendingConcurrentWriters(t *testing.T) {
	db := testutil.OpenTestDB(t)
	store := NewStore(db)
	ctx := context.Background()

	testutil.SeedTask(t, db, 1, time.Now().UTC(), time.Hour)
	testutil.SeedAssignment(t, db, 1, "W1")

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		winners int
	)
	for i := 0; i < 16; i++ {
		status := models.AssignmentStatusAccepted
		if i%2 == 1 {
			status = models.AssignmentStatusRejected
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			applied, err := store.SetStatusIfPending(ctx, 1, "W1", status, time.Now())
			assert.NoError(t, err)
			if applied {
				mu.Lock()
				winners++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	require.Equal(t, 1, winners)
}

func TestRecordSubmissionLastWriteWins(t *testing.T) {
	db := testutil.OpenTestDB(t)
	store := NewStore(db)
	ctx := context.Background()

	first := time.Date(2026, 10, 15, 9, 10, 0, 0, time.UTC)
	original := &models.Submission{
		TaskID:      1,
		WorkerID:    "W1",
		FileRef:     "W1/1/first.jpeg",
		FileMeta:    datatypes.JSONMap{"mimetype": "image/jpeg"},
		SubmittedAt: first,
	}
	require.NoError(t, store.RecordSubmission(ctx, original))

	replacement := &models.Submission{
		TaskID:      1,
		WorkerID:    "W1",
		FileRef:     "W1/1/second.png",
		FileMeta:    datatypes.JSONMap{"mimetype": "image/png"},
		SubmittedAt: first.Add(5 * time.Minute),
	}
	require.NoError(t, store.RecordSubmission(ctx, replacement))
	require.Equal(t, original.ID, replacement.ID)

	testutil.AssertCount(t, db, &models.Submission{}, 1)

	sub, err := store.GetSubmission(ctx, 1, "W1")
	require.NoError(t, err)
	require.Equal(t, "W1/1/second.png", sub.FileRef)
	require.Equal(t, "image/png", sub.FileMeta["mimetype"])
	require.True(t, sub.SubmittedAt.Equal(first.Add(5*time.Minute)))
	require.Equal(t, replacement.ID, sub.ID)
}

func TestMessageRefAndUnoffered(t *testing.T) {
	db := testutil.OpenTestDB(t)
	store := NewStore(db)
	ctx := context.Background()

	now := time.Now().UTC()
	testutil.SeedTask(t, db, 1, now.Add(-time.Minute), time.Hour)
	testutil.SeedTask(t, db, 2, now.Add(-2*time.Hour), time.Hour)
	testutil.SeedTask(t, db, 3, now, time.Hour)
	require.NoError(t, store.Assign(ctx, "W1", 1, 2, 3))

	require.NoError(t, store.SetMessageRef(ctx, 3, "W1", "D1", "1700000000.000100"))
	require.ErrorIs(t, store.SetMessageRef(ctx, 9, "W1", "D1", "1"), ErrAssignmentNotFound)

	var queries int
	require.NoError(t, db.Callback().Query().After("gorm:query").Register("test:count_queries", func(*gorm.DB) {
		queries++
	}))

	rows, err := store.Unoffered(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, queries)
	require.Len(t, rows, 1)
	require.Equal(t, int64(1), rows[0].Assignment.TaskID)
	require.Equal(t, int64(1), rows[0].Task.ID)

	a, err := store.GetAssignment(ctx, 3, "W1")
	require.NoError(t, err)
	require.True(t, a.Offered())
	require.Equal(t, "D1", a.Channel)
}
