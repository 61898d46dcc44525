package submission

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/snapngo/snapngo/internal/chat"
	"github.com/snapngo/snapngo/internal/ledger"
	"github.com/snapngo/snapngo/internal/models"
	"github.com/snapngo/snapngo/internal/testutil"
	"github.com/stretchr/testify/require"
)

var start = time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)

func newValidator(t *testing.T) *Validator {
	t.Helper()

	db := testutil.OpenTestDB(t)
	testutil.SeedTask(t, db, 3, start, 30*time.Minute)
	testutil.SeedTask(t, db, 5, start, 30*time.Minute)
	testutil.SeedTask(t, db, 7, start, 30*time.Minute)
	testutil.SeedAssignment(t, db, 3, "W1")
	testutil.SeedAssignment(t, db, 7, "W1")

	return NewValidator(ledger.NewStore(db))
}

func TestValidateWindowBoundaries(t *testing.T) {
	v := newValidator(t)
	ctx := context.Background()

	require.NoError(t, v.Validate(ctx, "W1", 3, start))
	require.NoError(t, v.Validate(ctx, "W1", 3, start.Add(30*time.Minute)))
	require.NoError(t, v.Validate(ctx, "W1", 3, start.Add(10*time.Minute)))

	require.ErrorIs(t, v.Validate(ctx, "W1", 3, start.Add(30*time.Minute+time.Nanosecond)), ErrWindowExpired)
	require.ErrorIs(t, v.Validate(ctx, "W1", 3, start.Add(-time.Second)), ErrWindowExpired)
}

func TestValidateNotAssignedListsAssignedTasks(t *testing.T) {
	v := newValidator(t)

	err := v.Validate(context.Background(), "W1", 5, start)

	var notAssigned *NotAssignedError
	require.True(t, errors.As(err, &notAssigned))
	require.Equal(t, int64(5), notAssigned.TaskID)
	require.Equal(t, []int64{3, 7}, notAssigned.Assigned)
}

func TestValidateUnknownWorker(t *testing.T) {
	v := newValidator(t)

	err := v.Validate(context.Background(), "W9", 3, start)

	var notAssigned *NotAssignedError
	require.True(t, errors.As(err, &notAssigned))
	require.Empty(t, notAssigned.Assigned)
}

func TestValidateIgnoresDecisionStatus(t *testing.T) {
	db := testutil.OpenTestDB(t)
	testutil.SeedTask(t, db, 3, start, time.Hour)
	testutil.SeedAssignment(t, db, 3, "W1")
	store := ledger.NewStore(db)

	applied, err := store.SetStatusIfPending(context.Background(), 3, "W1", models.AssignmentStatusRejected, start)
	require.NoError(t, err)
	require.True(t, applied)

	require.NoError(t, NewValidator(store).Validate(context.Background(), "W1", 3, start.Add(time.Minute)))
}

func TestCheckAttachments(t *testing.T) {
	jpeg := chat.Attachment{Name: "proof.jpg", MimeType: "image/jpeg"}
	pdf := chat.Attachment{Name: "proof.pdf", MimeType: "application/pdf"}

	require.NoError(t, CheckAttachments([]chat.Attachment{jpeg}))

	for _, tc := range []struct {
		files []chat.Attachment
		want  Reason
	}{
		{files: nil, want: ReasonNone},
		{files: []chat.Attachment{jpeg, jpeg}, want: ReasonMultiple},
		{files: []chat.Attachment{pdf}, want: ReasonNotImage},
	} {
		var attErr *AttachmentError
		require.True(t, errors.As(CheckAttachments(tc.files), &attErr))
		require.Equal(t, tc.want, attErr.Reason)
	}
}

func TestIsImage(t *testing.T) {
	require.True(t, IsImage("IMAGE/PNG"))
	require.True(t, IsImage(" image/heic"))
	require.False(t, IsImage("video/mp4"))
	require.False(t, IsImage(""))
}
