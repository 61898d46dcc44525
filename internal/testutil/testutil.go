package testutil

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/snapngo/snapngo/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// OpenTestDB returns an in-memory sqlite DB with migrations applied. The
// handle is closed when the test finishes.
func OpenTestDB(tb testing.TB) *gorm.DB {
	tb.Helper()

	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared&_busy_timeout=5000"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		tb.Fatalf("open sqlite: %v", err)
	}

	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(1)
	}

	if err := db.AutoMigrate(models.All...); err != nil {
		tb.Fatalf("migrate: %v", err)
	}

	tb.Cleanup(func() { CloseDB(db) })

	return db
}

// CloseDB closes the underlying sql.DB if available.
func CloseDB(db *gorm.DB) {
	if db == nil {
		return
	}
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.Close()
	}
}

// AssertCount asserts a count for the provided model using the supplied DB.
func AssertCount(tb testing.TB, db *gorm.DB, model any, expected int64) {
	tb.Helper()

	var count int64
	if err := db.Model(model).Count(&count).Error; err != nil {
		tb.Fatalf("count: %v", err)
	}
	if count != expected {
		tb.Fatalf("expected %d records, got %d", expected, count)
	}
}

// SeedTask inserts a task that opened at start and stays open for window.
func SeedTask(tb testing.TB, db *gorm.DB, id int64, start time.Time, window time.Duration) *models.Task {
	tb.Helper()

	task := &models.Task{
		ID:           id,
		Location:     "Science Center lobby",
		Description:  "Photograph the recycling bins",
		StartTime:    start,
		Window:       window,
		Compensation: 45,
	}
	if err := db.Create(task).Error; err != nil {
		tb.Fatalf("seed task %d: %v", id, err)
	}
	return task
}

// SeedAssignment inserts a pending assignment for (taskID, workerID).
func SeedAssignment(tb testing.TB, db *gorm.DB, taskID int64, workerID string) *models.Assignment {
	tb.Helper()

	a := &models.Assignment{
		TaskID:   taskID,
		WorkerID: workerID,
		Status:   models.AssignmentStatusPending,
	}
	if err := db.Create(a).Error; err != nil {
		tb.Fatalf("seed assignment (%d, %s): %v", taskID, workerID, err)
	}
	return a
}
