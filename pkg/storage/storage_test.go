package storage

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLocalStorageRoundTrip(t *testing.T) {
	s, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	ok, err := s.Exists(ctx, "U1/3/a.jpeg")
	require.NoError(t, err)
	require.False(t, ok)

	_, err = s.Read(ctx, "U1/3/a.jpeg")
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Write(ctx, "U1/3/a.jpeg", []byte("jpeg-bytes")))

	ok, err = s.Exists(ctx, "U1/3/a.jpeg")
	require.NoError(t, err)
	require.True(t, ok)

	data, err := s.Read(ctx, "U1/3/a.jpeg")
	require.NoError(t, err)
	require.Equal(t, []byte("jpeg-bytes"), data)
}

func TestLocalStorageStaysInsideRoot(t *testing.T) {
	s, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, s.Write(context.Background(), "../../escape.jpeg", []byte("x")))
	ok, err := s.Exists(context.Background(), "escape.jpeg")
	require.NoError(t, err)
	require.True(t, ok)
}

func TestSubmissionKeyIsUnique(t *testing.T) {
	at := time.Date(2026, 10, 15, 9, 5, 0, 0, time.UTC)

	a := SubmissionKey("U1", 3, at, "image/jpeg")
	b := SubmissionKey("U1", 3, at, "image/jpeg")

	require.NotEqual(t, a, b)
	require.True(t, strings.HasPrefix(a, "U1/3/20261015T090500.000000000Z-"))
	require.True(t, strings.HasSuffix(a, ".jpeg"))
}

func TestSubmissionKeySanitises(t *testing.T) {
	key := SubmissionKey("../U1", 3, time.Unix(0, 0), "image/svg+xml")
	require.True(t, strings.HasPrefix(key, "___U1/3/"))
	require.False(t, strings.Contains(key, ".svg"))
}
