// Package cli implements the recurctl subcommands on top of the rule services.
package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/subcommands"
	"github.com/google/uuid"

	"github.com/simaogato/wealthflow-recurring/internal/domain"
	"github.com/simaogato/wealthflow-recurring/internal/usecase/engine"
	"github.com/simaogato/wealthflow-recurring/internal/usecase/forecast"
	"github.com/simaogato/wealthflow-recurring/internal/usecase/importer"
	"github.com/simaogato/wealthflow-recurring/internal/usecase/maintenance"
	"github.com/simaogato/wealthflow-recurring/internal/usecase/recurring"
)

// App is what a command needs once the store is open
type App struct {
	Rules        *recurring.RecurringService
	Engine       *engine.Engine
	Runner       *maintenance.Runner
	Transactions domain.TransactionRepository
	Forecast     *forecast.ForecastService
	Importer     *importer.Importer
	Clock        domain.Clock

	Out   io.Writer
	Close func() error
}

// Opener opens the configured store and builds the App. Commands call it lazily so that
// help and flag errors never touch the database.
type Opener func(ctx context.Context) (*App, error)

// Register the subcommands.
func Register(c *subcommands.Commander, open Opener) {
	c.Register(&addCmd{open: open}, "rules")
	c.Register(&listCmd{open: open}, "rules")
	c.Register(&showCmd{open: open}, "rules")
	c.Register(&deleteCmd{open: open}, "rules")
	c.Register(&previewCmd{open: open}, "rules")
	c.Register(&importCmd{open: open}, "rules")

	c.Register(&processCmd{open: open}, "ledger")
	c.Register(&transactionsCmd{open: open}, "ledger")
	c.Register(&forecastCmd{open: open}, "ledger")
}

// errUsage marks errors that should exit with subcommands.ExitUsageError
var errUsage = errors.New("usage")

func usageErrorf(format string, a ...any) error {
	return fmt.Errorf("%w: %s", errUsage, fmt.Sprintf(format, a...))
}

// run opens the App, runs fn and maps its error to an exit status
func run(ctx context.Context, open Opener, fn func(app *App) error) subcommands.ExitStatus {
	app, err := open(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	defer func() {
		if app.Close != nil {
			if err := app.Close(); err != nil {
				fmt.Fprintln(os.Stderr, err)
			}
		}
	}()
	if app.Out == nil {
		app.Out = os.Stdout
	}

	if err := fn(app); err != nil {
		fmt.Fprintln(os.Stderr, err)
		if errors.Is(err, errUsage) {
			return subcommands.ExitUsageError
		}
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

// idArg reads the single positional rule ID of show, delete and preview
func idArg(f *flag.FlagSet) (uuid.UUID, error) {
	if f.NArg() != 1 {
		return uuid.Nil, usageErrorf("expected exactly one rule ID")
	}
	id, err := uuid.Parse(f.Arg(0))
	if err != nil {
		return uuid.Nil, usageErrorf("invalid rule ID %q: %v", f.Arg(0), err)
	}
	return id, nil
}

func parseOwner(s string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, usageErrorf("-owner is required")
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, usageErrorf("invalid -owner %q: %v", s, err)
	}
	return id, nil
}

func parseOptionalUUID(flagName, s string) (*uuid.UUID, error) {
	if s == "" {
		return nil, nil
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return nil, usageErrorf("invalid -%s %q: %v", flagName, s, err)
	}
	return &id, nil
}

func parseOptionalDate(flagName, s string) (*domain.Date, error) {
	if s == "" {
		return nil, nil
	}
	d, err := domain.ParseDate(s)
	if err != nil {
		return nil, usageErrorf("invalid -%s: %v", flagName, err)
	}
	return &d, nil
}

// splitList splits a comma separated flag value, dropping blanks
func splitList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
