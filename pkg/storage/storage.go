package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrNotFound is returned when a stored object does not exist.
	ErrNotFound = errors.New("not found")
	// ErrStorage wraps any failure to persist a submitted file.
	ErrStorage = errors.New("storage failure")
)

// Storage persists submitted proof files.
type Storage interface {
	Write(ctx context.Context, key string, data []byte) error
	Read(ctx context.Context, key string) ([]byte, error)
	Exists(ctx context.Context, key string) (bool, error)
}

// SubmissionKey derives a collision free object key for one submission:
// <worker>/<task>/<utc timestamp>-<uuid><ext>.
func SubmissionKey(workerID string, taskID int64, at time.Time, mimeType string) string {
	return fmt.Sprintf(
		"%s/%d/%s-%s%s",
		sanitize(workerID),
		taskID,
		at.UTC().Format("20060102T150405.000000000Z"),
		uuid.NewString(),
		extension(mimeType),
	)
}

func extension(mimeType string) string {
	sub := strings.TrimPrefix(strings.ToLower(strings.TrimSpace(mimeType)), "image/")
	if sub == "" || strings.ContainsAny(sub, "/;+ ") {
		return ""
	}
	if sub == "jpg" {
		sub = "jpeg"
	}
	return "." + sub
}

func sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, s)
}
