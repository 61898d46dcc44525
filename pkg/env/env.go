package env

import (
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/pkg/errors"
	"github.com/snapngo/snapngo/pkg/log"
)

var variables = new(Environment)

// Process the environment variables set for snapngo.
func Process() error {
	if err := envconfig.Process("snapngo", variables); err != nil {
		return errors.Wrap(err, "failed to process environment variables")
	}

	// set the log level
	if err := log.SetLevel(variables.LogLevel); err != nil {
		return errors.Wrap(err, "failed to set log level")
	}

	switch variables.StorageType {
	case "local", "s3":
	default:
		return errors.Errorf("unsupported storage type %q", variables.StorageType)
	}

	if variables.StorageType == "s3" && variables.S3Bucket == "" {
		return errors.New("s3 storage requires SNAPNGO_S3_BUCKET")
	}

	return nil
}

// Variables returns the processed environment variables.
func Variables() Environment {
	return *variables
}

// Environment defines the environment variables used
// by snapngo.
type Environment struct {
	LogLevel         string        `default:"info" split_words:"true"`
	Port             int           `default:"8080" split_words:"true"`
	DatabaseType     string        `default:"sqlite" split_words:"true"`
	DatabaseDSN      string        `default:"snapngo.db" split_words:"true"`
	SlackBotToken    string        `default:"" split_words:"true"`
	SlackAppToken    string        `default:"" split_words:"true"`
	EventWorkers     int           `default:"16" split_words:"true"`
	AckTimeout       time.Duration `default:"2s" split_words:"true"`
	HelpKeywords     Keywords      `default:"?,help" split_words:"true"`
	StorageType      string        `default:"local" split_words:"true"`
	StoragePath      string        `default:"snapngo_pics" split_words:"true"`
	S3Bucket         string        `default:"" split_words:"true"`
	S3Prefix         string        `default:"submissions" split_words:"true"`
	S3Region         string        `default:"us-east-1" split_words:"true"`
	MessagesPath     string        `default:"" split_words:"true"`
	DispatchSchedule string        `default:"" split_words:"true"`
}
