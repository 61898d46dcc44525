package start

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"runtime/pprof"
	"syscall"
	"time"

	"github.com/snapngo/snapngo/api"
	"github.com/snapngo/snapngo/internal/chat"
	"github.com/snapngo/snapngo/internal/chat/slack"
	"github.com/snapngo/snapngo/internal/dispatch"
	"github.com/snapngo/snapngo/internal/metrics"
	"github.com/snapngo/snapngo/internal/runtime"
	"github.com/snapngo/snapngo/pkg/db"
	"github.com/snapngo/snapngo/pkg/env"
	"github.com/snapngo/snapngo/pkg/log"
	"github.com/spf13/cobra"
)

const (
	usage   = "start"
	short   = "Start the snapngo bot"
	long    = "This command connects to Slack over socket mode, serves the HTTP API and handles worker events until interrupted"
	example = "snapngo start"
)

var (
	// Cmd is the start command.
	Cmd = &cobra.Command{
		Use:        usage,
		Short:      short,
		Long:       long,
		Aliases:    []string{"s"},
		SuggestFor: []string{"launch", "boot", "up", "run", "serve"},
		Example:    example,
		RunE:       start,
	}
)

func start(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, syscall.SIGUSR1, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(signalChan)

	go func() {
		for s := range signalChan {
			switch s {
			case syscall.SIGUSR1:
				log.Info("dumping stack traces due to SIGUSR1 signal")
				if profile := pprof.Lookup("goroutine"); profile != nil {
					if err := profile.WriteTo(os.Stdout, 1); err != nil {
						log.Error("write goroutine profile", "error", err)
					}
				}
			default:
				log.Info("gracefully shutting down", "signal", s.String())
				cancel()
				return
			}
		}
	}()

	vars := env.Variables()
	metrics.Register()

	log.Info("migrating database")
	if err := db.Migrate(); err != nil {
		log.Fatal("database migration failure", "error", err)
	}

	client, err := slack.New(vars.SlackBotToken, vars.SlackAppToken)
	if err != nil {
		return err
	}

	botID, err := client.Identify(ctx)
	if err != nil {
		return err
	}
	log.Info("slack identity resolved", "bot_id", botID)

	dispatcher, err := runtime.BuildDispatcher(ctx, vars, db.Connection(), client, botID)
	if err != nil {
		return err
	}

	var schedule *dispatch.Schedule
	if vars.DispatchSchedule != "" {
		if schedule, err = dispatch.NewSchedule(dispatcher, vars.DispatchSchedule); err != nil {
			return err
		}
	}

	var (
		errs   = make(chan error, 4)
		events = make(chan chat.Event, vars.EventWorkers)
		server = api.New(db.Connection(), dispatcher)
	)

	go func() {
		log.Info("listening for slack events")
		errs <- client.Listen(ctx, events)
	}()

	go func() {
		log.Info("launching dispatcher")
		errs <- dispatcher.Run(ctx, events)
	}()

	go func() {
		log.Info("spinning up api", "port", vars.Port)
		errs <- server.Start(vars.Port)
	}()

	if schedule != nil {
		go schedule.Listen(ctx)
	}

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-errs:
	}

	cancel()
	shutdown(server)

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		log.Error("component failure", "error", runErr)
		return runErr
	}
	return nil
}

func shutdown(server *api.Server) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error("api shutdown failure", "error", err)
	}
}
