package dispatch

import (
	"github.com/snapngo/snapngo/internal/chat/slack"
	"github.com/snapngo/snapngo/internal/runtime"
	"github.com/snapngo/snapngo/pkg/db"
	"github.com/snapngo/snapngo/pkg/env"
	"github.com/snapngo/snapngo/pkg/log"
	"github.com/spf13/cobra"
)

const (
	usage   = "dispatch"
	short   = "Offer every assignment that has not been sent yet"
	long    = "This command sends an offer message for each open assignment without a recorded message, then exits"
	example = "snapngo dispatch"
)

var (
	// Cmd is the dispatch command.
	Cmd = &cobra.Command{
		Use:     usage,
		Short:   short,
		Long:    long,
		Aliases: []string{"d"},
		Example: example,
		RunE:    run,
	}
)

func run(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	vars := env.Variables()

	log.Info("migrating database")
	if err := db.Migrate(); err != nil {
		return err
	}

	client, err := slack.New(vars.SlackBotToken, vars.SlackAppToken)
	if err != nil {
		return err
	}

	botID, err := client.Identify(ctx)
	if err != nil {
		return err
	}

	dispatcher, err := runtime.BuildDispatcher(ctx, vars, db.Connection(), client, botID)
	if err != nil {
		return err
	}

	report, err := dispatcher.OfferPending(ctx)
	if err != nil {
		return err
	}

	if err := report.Err(); err != nil {
		log.Warn("some offers were not delivered", "failures", len(report.Failures), "error", err)
	}
	log.Info("dispatch complete", "sent", report.Sent)

	return nil
}
