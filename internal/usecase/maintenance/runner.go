package maintenance

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/simaogato/wealthflow-recurring/internal/domain"
	"github.com/simaogato/wealthflow-recurring/internal/usecase/engine"
)

// Processor is the part of the engine the runner drives
type Processor interface {
	Process(ctx context.Context, ownerID uuid.UUID, now domain.Date) (*engine.ProcessResult, error)
}

// Summary aggregates the results of one maintenance pass over every owner
type Summary struct {
	Owners       int
	FailedOwners int
	Executed     int
	Expired      int
	Failed       int
	Recovered    int
}

// Runner is the maintenance gate: it runs the engine for every owner with active rules,
// once on demand or on a cron schedule. Passes never overlap.
type Runner struct {
	Engine   Processor
	Owners   domain.OwnerLister
	Clock    domain.Clock
	Logger   zerolog.Logger
	Location *time.Location // Cron location; time.Local when nil

	run    sync.Mutex
	mu     sync.Mutex
	parser cron.Parser
	c      *cron.Cron
}

// NewRunner creates a new Runner instance
func NewRunner(processor Processor, owners domain.OwnerLister, clock domain.Clock, logger zerolog.Logger) *Runner {
	return &Runner{
		Engine: processor,
		Owners: owners,
		Clock:  clock,
		Logger: logger,
		parser: cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor),
	}
}

// RunOnce processes every owner for the clock's current day.
// Failing to list owners is returned; a single owner's failure is logged and the pass continues.
func (r *Runner) RunOnce(ctx context.Context) (*Summary, error) {
	r.run.Lock()
	defer r.run.Unlock()

	owners, err := r.Owners.ListOwners(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list owners: %w", err)
	}

	today := r.Clock.Today()
	summary := &Summary{Owners: len(owners)}
	for _, owner := range owners {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		result, err := r.Engine.Process(ctx, owner, today)
		if err != nil {
			r.Logger.Error().Err(err).Str("owner_id", owner.String()).Msg("maintenance pass failed for owner")
			summary.FailedOwners++
			continue
		}
		summary.Executed += result.Executed
		summary.Expired += result.Expired
		summary.Failed += result.Failed
		summary.Recovered += result.Recovered
	}

	r.Logger.Info().
		Str("today", today.String()).
		Int("owners", summary.Owners).
		Int("failed_owners", summary.FailedOwners).
		Int("executed", summary.Executed).
		Msg("maintenance pass finished")

	return summary, nil
}

// Start schedules RunOnce on the given cron expression ("@daily", "0 6 * * *", ...) until ctx is
// cancelled or Stop is called
func (r *Runner) Start(ctx context.Context, schedule string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.c != nil {
		return errors.New("maintenance runner already started")
	}

	loc := r.Location
	if loc == nil {
		loc = time.Local
	}

	c := cron.New(
		cron.WithParser(r.parser),
		cron.WithLocation(loc),
		cron.WithChain(cron.SkipIfStillRunning(cronLogger{r.Logger})),
	)
	if _, err := c.AddFunc(schedule, func() {
		if _, err := r.RunOnce(ctx); err != nil {
			r.Logger.Error().Err(err).Msg("scheduled maintenance pass failed")
		}
	}); err != nil {
		return fmt.Errorf("invalid maintenance schedule %q: %w", schedule, err)
	}

	r.c = c
	c.Start()
	r.Logger.Info().Str("schedule", schedule).Str("tz", loc.String()).Msg("maintenance runner started")

	go func() {
		<-ctx.Done()
		r.Stop()
	}()
	return nil
}

// Stop halts the schedule and waits for a running pass to finish
func (r *Runner) Stop() {
	r.mu.Lock()
	c := r.c
	r.c = nil
	r.mu.Unlock()

	if c == nil {
		return
	}
	<-c.Stop().Done()
	r.Logger.Info().Msg("maintenance runner stopped")
}

// cronLogger adapts zerolog to cron.Logger
type cronLogger struct {
	log zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug().Fields(keysAndValues).Msg("cron: " + msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error().Err(err).Fields(keysAndValues).Msg("cron: " + msg)
}
