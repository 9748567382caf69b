package cli

import (
	"context"
	"flag"
	"fmt"
	"text/tabwriter"

	"github.com/google/subcommands"

	"github.com/simaogato/wealthflow-recurring/internal/domain"
)

type processCmd struct {
	open  Opener
	owner string
	date  string
}

func (*processCmd) Name() string     { return "process" }
func (*processCmd) Synopsis() string { return "materialize due recurring rules into transactions" }
func (*processCmd) Usage() string {
	return `recurctl process [-owner <id>] [-d <date>]

  Runs the recurring engine once. With -owner only that owner's rules are processed,
  otherwise every owner with active rules is. Each due rule produces at most one
  transaction per run.
`
}

func (c *processCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.owner, "owner", "", "Owner ID. Defaults to every owner.")
	f.StringVar(&c.date, "d", "", "Processing date (YYYY-MM-DD). Defaults to today.")
}

func (c *processCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return run(ctx, c.open, func(app *App) error {
		now := app.Clock.Today()
		date, err := parseOptionalDate("d", c.date)
		if err != nil {
			return err
		}
		if date != nil {
			now = *date
		}

		if c.owner == "" {
			if date != nil {
				app.Runner.Clock = domain.FixedClock(now)
			}
			summary, err := app.Runner.RunOnce(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(app.Out, "%s: %d owners, %d executed, %d expired, %d failed, %d recovered\n",
				now, summary.Owners, summary.Executed, summary.Expired, summary.Failed, summary.Recovered)
			if summary.FailedOwners > 0 {
				return fmt.Errorf("%d owners could not be processed", summary.FailedOwners)
			}
			return nil
		}

		owner, err := parseOwner(c.owner)
		if err != nil {
			return err
		}
		result, err := app.Engine.Process(ctx, owner, now)
		if err != nil {
			return err
		}
		fmt.Fprintf(app.Out, "%s: %d executed, %d expired, %d failed, %d recovered\n",
			now, result.Executed, result.Expired, result.Failed, result.Recovered)
		return nil
	})
}

type transactionsCmd struct {
	open          Opener
	owner         string
	limit, offset int
}

func (*transactionsCmd) Name() string     { return "transactions" }
func (*transactionsCmd) Synopsis() string { return "list an owner's ledger transactions" }
func (*transactionsCmd) Usage() string {
	return `recurctl transactions -owner <id> [-limit <n>] [-offset <n>]

  Lists transactions newest first. Entries generated by a rule show the occurrence they materialize.
`
}

func (c *transactionsCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.owner, "owner", "", "Owner ID.")
	f.IntVar(&c.limit, "limit", 50, "Maximum number of transactions (0 for all).")
	f.IntVar(&c.offset, "offset", 0, "Number of transactions to skip.")
}

func (c *transactionsCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return run(ctx, c.open, func(app *App) error {
		owner, err := parseOwner(c.owner)
		if err != nil {
			return err
		}
		if c.limit < 0 || c.offset < 0 {
			return usageErrorf("-limit and -offset must not be negative")
		}

		txs, err := app.Transactions.List(ctx, owner, c.limit, c.offset)
		if err != nil {
			return err
		}
		total, err := app.Transactions.Count(ctx, owner)
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(app.Out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "DATE\tKIND\tAMOUNT\tDESCRIPTION\tOCCURRENCE")
		for _, tx := range txs {
			occurrence := "-"
			if tx.OccurrenceDate != nil {
				occurrence = tx.OccurrenceDate.String()
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
				tx.Date, tx.Kind, domain.FormatAmount(tx.Amount, tx.Currency), tx.Description, occurrence)
		}
		if err := w.Flush(); err != nil {
			return err
		}
		fmt.Fprintf(app.Out, "%d of %d transactions\n", len(txs), total)
		return nil
	})
}

type forecastCmd struct {
	open     Opener
	owner    string
	from, to string
	days     int
}

func (*forecastCmd) Name() string     { return "forecast" }
func (*forecastCmd) Synopsis() string { return "project recurring cash flow over a date window" }
func (*forecastCmd) Usage() string {
	return `recurctl forecast -owner <id> [-from <date>] [-to <date> | -days <n>]

  Walks every active rule through the window and prints the expected
  occurrences and per-currency totals. Nothing is written to the ledger.
`
}

func (c *forecastCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.owner, "owner", "", "Owner ID.")
	f.StringVar(&c.from, "from", "", "First day of the window (YYYY-MM-DD). Defaults to today.")
	f.StringVar(&c.to, "to", "", "Last day of the window (YYYY-MM-DD). Overrides -days.")
	f.IntVar(&c.days, "days", 90, "Window length in days when -to is not set.")
}

func (c *forecastCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return run(ctx, c.open, func(app *App) error {
		owner, err := parseOwner(c.owner)
		if err != nil {
			return err
		}
		from := app.Clock.Today()
		if d, err := parseOptionalDate("from", c.from); err != nil {
			return err
		} else if d != nil {
			from = *d
		}
		to := from.AddDays(c.days)
		if d, err := parseOptionalDate("to", c.to); err != nil {
			return err
		} else if d != nil {
			to = *d
		}

		result, err := app.Forecast.Project(ctx, owner, from, to)
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(app.Out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "DATE\tKIND\tAMOUNT\tDESCRIPTION")
		for _, o := range result.Occurrences {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", o.Date, o.Kind, domain.FormatAmount(o.Amount, o.Currency), o.Description)
		}
		fmt.Fprintln(w)
		fmt.Fprintln(w, "CURRENCY\tINCOME\tEXPENSE\tTRANSFER\tNET")
		for _, t := range result.Totals {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", t.Currency,
				domain.FormatAmount(t.Income, t.Currency),
				domain.FormatAmount(t.Expense, t.Currency),
				domain.FormatAmount(t.Transfer, t.Currency),
				domain.FormatAmount(t.Net, t.Currency))
		}
		return w.Flush()
	})
}
