package dispatch

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron"
	"github.com/snapngo/snapngo/pkg/log"
)

// Schedule re-offers unsent assignments on a cron expression.
type Schedule struct {
	dispatcher *Dispatcher
	expr       string
	schedule   cron.Schedule
	location   *time.Location
}

// NewSchedule parses a five field cron expression. An optional
// "TZ=<zone> " prefix selects the time zone.
func NewSchedule(d *Dispatcher, expr string) (*Schedule, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return nil, fmt.Errorf("dispatch schedule missing expression")
	}

	loc, rest, err := extractLocation(expr)
	if err != nil {
		return nil, err
	}

	parser := cron.NewParser(
		cron.Minute |
			cron.Hour |
			cron.Dom |
			cron.Month |
			cron.Dow,
	)

	sched, err := parser.Parse(rest)
	if err != nil {
		return nil, fmt.Errorf("invalid dispatch schedule %q: %w", expr, err)
	}

	return &Schedule{dispatcher: d, expr: expr, schedule: sched, location: loc}, nil
}

// Listen fires on every tick until ctx is done.
func (s *Schedule) Listen(ctx context.Context) {
	log.Info("dispatch schedule listening", "expression", s.expr)

	for {
		select {
		case <-time.After(time.Until(s.nextTick(time.Now()))):
			s.Fire(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (s *Schedule) Fire(ctx context.Context) {
	log.Info("dispatch schedule firing", "expression", s.expr)

	report, err := s.dispatcher.OfferPending(ctx)
	if err != nil {
		log.Error("dispatch schedule failure", "error", err)
		return
	}
	log.Info("dispatch schedule done", "sent", report.Sent, "failures", len(report.Failures))
}

func (s *Schedule) nextTick(base time.Time) time.Time {
	if s.location != nil {
		base = base.In(s.location)
	}
	return s.schedule.Next(base)
}

func extractLocation(expr string) (*time.Location, string, error) {
	if !strings.HasPrefix(expr, "TZ=") {
		return nil, expr, nil
	}

	zone, rest, ok := strings.Cut(strings.TrimPrefix(expr, "TZ="), " ")
	if !ok {
		return nil, "", fmt.Errorf("dispatch schedule %q has a time zone but no expression", expr)
	}

	loc, err := time.LoadLocation(zone)
	if err != nil {
		return nil, "", fmt.Errorf("invalid timezone %q: %w", zone, err)
	}
	return loc, strings.TrimSpace(rest), nil
}
