package runtime

import (
	"context"
	"fmt"

	"github.com/snapngo/snapngo/internal/chat"
	"github.com/snapngo/snapngo/internal/dispatch"
	"github.com/snapngo/snapngo/internal/ledger"
	"github.com/snapngo/snapngo/internal/offer"
	"github.com/snapngo/snapngo/pkg/env"
	"github.com/snapngo/snapngo/pkg/storage"
	"gorm.io/gorm"
)

// BuildStorage constructs the submission file store selected by
// SNAPNGO_STORAGE_TYPE.
func BuildStorage(ctx context.Context, vars env.Environment) (storage.Storage, error) {
	switch vars.StorageType {
	case "local", "":
		return storage.NewLocalStorage(vars.StoragePath)
	case "s3":
		if vars.S3Bucket == "" {
			return nil, fmt.Errorf("s3 storage requires a bucket")
		}
		return storage.NewS3Storage(ctx, vars.S3Bucket, vars.S3Prefix, vars.S3Region)
	default:
		return nil, fmt.Errorf("unsupported storage type %q", vars.StorageType)
	}
}

// BuildDispatcher wires a dispatcher over conn and transport. botID is the
// bot's own user id as reported by the chat platform.
func BuildDispatcher(ctx context.Context, vars env.Environment, conn *gorm.DB, transport chat.Transport, botID string) (*dispatch.Dispatcher, error) {
	files, err := BuildStorage(ctx, vars)
	if err != nil {
		return nil, fmt.Errorf("storage: %w", err)
	}

	messages, err := offer.LoadMessages(vars.MessagesPath)
	if err != nil {
		return nil, fmt.Errorf("messages: %w", err)
	}

	return dispatch.New(dispatch.Config{
		Transport:    transport,
		Ledger:       ledger.NewStore(conn),
		Storage:      files,
		Messages:     messages,
		HelpKeywords: vars.HelpKeywords,
		BotID:        botID,
		Workers:      vars.EventWorkers,
		AckTimeout:   vars.AckTimeout,
	})
}
