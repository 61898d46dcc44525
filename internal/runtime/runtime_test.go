package runtime

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/snapngo/snapngo/internal/chat/chattest"
	"github.com/snapngo/snapngo/internal/testutil"
	"github.com/snapngo/snapngo/pkg/env"
	"github.com/snapngo/snapngo/pkg/storage"
	"github.com/stretchr/testify/require"
)

func TestBuildStorageLocal(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "pics")

	s, err := BuildStorage(context.Background(), env.Environment{StorageType: "local", StoragePath: dir})
	require.NoError(t, err)
	require.IsType(t, &storage.LocalStorage{}, s)

	info, err := os.Stat(dir)
	require.NoError(t, err)
	require.True(t, info.IsDir())
}

func TestBuildStorageRejectsUnknown(t *testing.T) {
	_, err := BuildStorage(context.Background(), env.Environment{StorageType: "ftp"})
	require.Error(t, err)

	_, err = BuildStorage(context.Background(), env.Environment{StorageType: "s3"})
	require.Error(t, err)
}

func TestBuildDispatcher(t *testing.T) {
	vars := env.Environment{
		StorageType:  "local",
		StoragePath:  t.TempDir(),
		EventWorkers: 2,
		HelpKeywords: env.Keywords{"help"},
	}

	d, err := BuildDispatcher(context.Background(), vars, testutil.OpenTestDB(t), chattest.New(), "UBOT")
	require.NoError(t, err)
	require.NotNil(t, d)
}

func TestBuildDispatcherMessagesOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "messages.yaml")
	require.NoError(t, os.WriteFile(path, []byte("help:\n  text: Custom help\n"), 0o644))

	vars := env.Environment{StorageType: "local", StoragePath: t.TempDir(), MessagesPath: path}
	_, err := BuildDispatcher(context.Background(), vars, testutil.OpenTestDB(t), chattest.New(), "UBOT")
	require.NoError(t, err)

	vars.MessagesPath = filepath.Join(t.TempDir(), "missing.yaml")
	_, err = BuildDispatcher(context.Background(), vars, testutil.OpenTestDB(t), chattest.New(), "UBOT")
	require.Error(t, err)
}
