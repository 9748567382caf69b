package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"path"

	"github.com/google/subcommands"

	"github.com/simaogato/wealthflow-recurring/internal/adapter/repository"
	"github.com/simaogato/wealthflow-recurring/internal/cli"
	"github.com/simaogato/wealthflow-recurring/internal/config"
	"github.com/simaogato/wealthflow-recurring/internal/domain"
	"github.com/simaogato/wealthflow-recurring/internal/logging"
	"github.com/simaogato/wealthflow-recurring/internal/usecase/engine"
	"github.com/simaogato/wealthflow-recurring/internal/usecase/forecast"
	"github.com/simaogato/wealthflow-recurring/internal/usecase/importer"
	"github.com/simaogato/wealthflow-recurring/internal/usecase/maintenance"
	"github.com/simaogato/wealthflow-recurring/internal/usecase/recurring"
)

var envFile = flag.String("env", ".env", "Optional dotenv file read before the environment")

func main() {
	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")
	commander.Register(commander.CommandsCommand(), "")
	cli.Register(commander, open)

	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	os.Exit(int(commander.Execute(ctx)))
}

// open builds the services on the store selected by STORE_DRIVER
func open(ctx context.Context) (*cli.App, error) {
	cfg, err := config.Load(*envFile)
	if err != nil {
		return nil, err
	}
	// Logs go to stderr so command output stays pipeable
	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat, os.Stderr)
	if err != nil {
		return nil, err
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	stores, err := repository.Open(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	clock := domain.SystemClock{Location: loc}
	eng := engine.NewEngine(stores.Rules, stores.Transactions, logger)
	rules := recurring.NewRecurringService(stores.Rules, stores.Rules)

	return &cli.App{
		Rules:        rules,
		Engine:       eng,
		Runner:       maintenance.NewRunner(eng, stores.Rules, clock, logger),
		Transactions: stores.Transactions,
		Forecast:     forecast.NewForecastService(stores.Rules),
		Importer:     importer.NewImporter(rules, logger),
		Clock:        clock,
		Out:          os.Stdout,
		Close:        stores.Close,
	}, nil
}
