package cli

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/google/subcommands"
	"github.com/shopspring/decimal"

	"github.com/simaogato/wealthflow-recurring/internal/domain"
	"github.com/simaogato/wealthflow-recurring/internal/usecase/recurring"
)

type addCmd struct {
	open Opener

	owner, account, destination, category string
	kind, amount, currency, description   string
	tags, attachments                     string
	frequency                             string
	interval                              int
	start, end                            string
	dayOfWeek, dayOfMonth, monthOfYear    int
}

func (*addCmd) Name() string     { return "add" }
func (*addCmd) Synopsis() string { return "create a recurring rule" }
func (*addCmd) Usage() string {
	return `recurctl add -owner <id> -account <id> -kind <kind> -amount <decimal> -currency <code> -desc <text> -freq <frequency> -start <date> [options]

  Creates an active recurring rule. Its first execution is the first date on or
  after -start that matches the alignment options (-dow, -dom, -month).
`
}

func (c *addCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.owner, "owner", "", "Owner ID.")
	f.StringVar(&c.account, "account", "", "Source account ID.")
	f.StringVar(&c.destination, "to", "", "Destination account ID (TRANSFER only).")
	f.StringVar(&c.category, "category", "", "Category ID.")
	f.StringVar(&c.kind, "kind", "expense", "Transaction kind (income, expense, transfer).")
	f.StringVar(&c.amount, "amount", "", "Amount, sign included (e.g. -1200.00).")
	f.StringVar(&c.currency, "currency", "", "ISO 4217 currency code.")
	f.StringVar(&c.description, "desc", "", "Description copied to every transaction.")
	f.StringVar(&c.tags, "tags", "", "Comma separated tags.")
	f.StringVar(&c.attachments, "attach", "", "Comma separated attachment references, in order.")
	f.StringVar(&c.frequency, "freq", "monthly", "Frequency (daily, weekly, monthly, yearly).")
	f.IntVar(&c.interval, "interval", 1, "Repeat every N periods.")
	f.StringVar(&c.start, "start", "", "Start date (YYYY-MM-DD). Defaults to today.")
	f.StringVar(&c.end, "end", "", "Optional end date (YYYY-MM-DD).")
	f.IntVar(&c.dayOfWeek, "dow", -1, "Day of week 0-6, Sunday = 0 (weekly only).")
	f.IntVar(&c.dayOfMonth, "dom", 0, "Day of month 1-31 (monthly or yearly).")
	f.IntVar(&c.monthOfYear, "month", 0, "Month 1-12 (yearly only).")
}

func (c *addCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return run(ctx, c.open, func(app *App) error {
		input, err := c.input(app.Clock)
		if err != nil {
			return err
		}
		rule, err := app.Rules.CreateRule(ctx, input)
		if err != nil {
			return err
		}
		printRule(app.Out, rule)
		return nil
	})
}

func (c *addCmd) input(clock domain.Clock) (recurring.CreateRuleInput, error) {
	var in recurring.CreateRuleInput

	owner, err := parseOwner(c.owner)
	if err != nil {
		return in, err
	}
	account, err := parseOptionalUUID("account", c.account)
	if err != nil {
		return in, err
	}
	if account == nil {
		return in, usageErrorf("-account is required")
	}
	destination, err := parseOptionalUUID("to", c.destination)
	if err != nil {
		return in, err
	}
	category, err := parseOptionalUUID("category", c.category)
	if err != nil {
		return in, err
	}
	kind, err := domain.ParseRuleKind(c.kind)
	if err != nil {
		return in, err
	}
	amount, err := decimal.NewFromString(c.amount)
	if err != nil {
		return in, usageErrorf("invalid -amount %q: %v", c.amount, err)
	}

	freq, err := domain.ParseFrequency(c.frequency)
	if err != nil {
		return in, err
	}
	start := clock.Today()
	if c.start != "" {
		if start, err = domain.ParseDate(c.start); err != nil {
			return in, usageErrorf("invalid -start: %v", err)
		}
	}
	var opts []domain.PatternOption
	end, err := parseOptionalDate("end", c.end)
	if err != nil {
		return in, err
	}
	if end != nil {
		opts = append(opts, domain.Until(*end))
	}
	if c.dayOfWeek >= 0 {
		opts = append(opts, domain.OnWeekday(c.dayOfWeek))
	}
	if c.dayOfMonth != 0 {
		opts = append(opts, domain.OnDayOfMonth(c.dayOfMonth))
	}
	if c.monthOfYear != 0 {
		opts = append(opts, domain.InMonth(c.monthOfYear))
	}
	pattern, err := domain.NewRecurrencePattern(freq, c.interval, start, opts...)
	if err != nil {
		return in, err
	}

	var attachments []domain.AttachmentRef
	for _, a := range splitList(c.attachments) {
		attachments = append(attachments, domain.AttachmentRef(a))
	}

	return recurring.CreateRuleInput{
		OwnerID:              owner,
		AccountID:            *account,
		DestinationAccountID: destination,
		CategoryID:           category,
		Kind:                 kind,
		Amount:               amount,
		Currency:             c.currency,
		Description:          c.description,
		Tags:                 splitList(c.tags),
		Attachments:          attachments,
		Pattern:              pattern,
	}, nil
}

type listCmd struct {
	open  Opener
	owner string
}

func (*listCmd) Name() string     { return "list" }
func (*listCmd) Synopsis() string { return "list an owner's recurring rules" }
func (*listCmd) Usage() string {
	return `recurctl list -owner <id>

  Lists every rule of the owner, active or paused, by next execution date.
`
}

func (c *listCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.owner, "owner", "", "Owner ID.")
}

func (c *listCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return run(ctx, c.open, func(app *App) error {
		owner, err := parseOwner(c.owner)
		if err != nil {
			return err
		}
		rules, err := app.Rules.ListRules(ctx, owner)
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(app.Out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNEXT\tSCHEDULE\tAMOUNT\tDESCRIPTION\tSTATUS")
		for _, r := range rules {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
				r.ID, r.NextExecution, r.Pattern, domain.FormatAmount(r.Amount, r.Currency), r.Description, ruleStatus(r))
		}
		return w.Flush()
	})
}

type showCmd struct{ open Opener }

func (*showCmd) Name() string             { return "show" }
func (*showCmd) Synopsis() string         { return "show one recurring rule" }
func (*showCmd) Usage() string            { return "recurctl show <rule-id>\n" }
func (c *showCmd) SetFlags(*flag.FlagSet) {}

func (c *showCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return run(ctx, c.open, func(app *App) error {
		id, err := idArg(f)
		if err != nil {
			return err
		}
		rule, err := app.Rules.GetRule(ctx, id)
		if err != nil {
			return err
		}
		printRule(app.Out, rule)
		return nil
	})
}

type deleteCmd struct{ open Opener }

func (*deleteCmd) Name() string             { return "delete" }
func (*deleteCmd) Synopsis() string         { return "delete a recurring rule" }
func (*deleteCmd) Usage() string            { return "recurctl delete <rule-id>\n" }
func (c *deleteCmd) SetFlags(*flag.FlagSet) {}

func (c *deleteCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return run(ctx, c.open, func(app *App) error {
		id, err := idArg(f)
		if err != nil {
			return err
		}
		if err := app.Rules.DeleteRule(ctx, id); err != nil {
			return err
		}
		fmt.Fprintf(app.Out, "deleted %s\n", id)
		return nil
	})
}

type previewCmd struct {
	open  Opener
	count int
}

func (*previewCmd) Name() string     { return "preview" }
func (*previewCmd) Synopsis() string { return "list the next dates a rule will fire on" }
func (*previewCmd) Usage() string {
	return `recurctl preview [-n <count>] <rule-id>

  Prints the next occurrences starting with the rule's next execution, stopping at its end date.
`
}

func (c *previewCmd) SetFlags(f *flag.FlagSet) {
	f.IntVar(&c.count, "n", 12, "Number of occurrences to list.")
}

func (c *previewCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return run(ctx, c.open, func(app *App) error {
		id, err := idArg(f)
		if err != nil {
			return err
		}
		dates, err := app.Rules.PreviewOccurrences(ctx, id, c.count)
		if err != nil {
			return err
		}
		for _, d := range dates {
			fmt.Fprintf(app.Out, "%s  %s\n", d, d.Weekday().String()[:3])
		}
		return nil
	})
}

type importCmd struct {
	open  Opener
	owner string
}

func (*importCmd) Name() string     { return "import" }
func (*importCmd) Synopsis() string { return "create rules from a YAML file" }
func (*importCmd) Usage() string {
	return `recurctl import -owner <id> <file.yaml | ->

  Creates every rule listed in the file. Invalid entries are reported and skipped.
`
}

func (c *importCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.owner, "owner", "", "Owner ID.")
}

func (c *importCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return run(ctx, c.open, func(app *App) error {
		owner, err := parseOwner(c.owner)
		if err != nil {
			return err
		}
		if f.NArg() != 1 {
			return usageErrorf("expected exactly one file (or - for stdin)")
		}

		var r io.Reader = os.Stdin
		if name := f.Arg(0); name != "-" {
			file, err := os.Open(name)
			if err != nil {
				return err
			}
			defer file.Close()
			r = file
		}

		result, err := app.Importer.Import(ctx, owner, r)
		if err != nil {
			return err
		}
		for _, rule := range result.Created {
			fmt.Fprintf(app.Out, "created %s  %s  next %s\n", rule.ID, rule.Description, rule.NextExecution)
		}
		for _, e := range result.Errors {
			fmt.Fprintf(app.Out, "skipped %v\n", e)
		}
		if len(result.Errors) > 0 {
			return fmt.Errorf("%d of %d rules skipped", len(result.Errors), len(result.Errors)+len(result.Created))
		}
		return nil
	})
}

func printRule(w io.Writer, r *domain.RecurringRule) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "ID:\t%s\n", r.ID)
	fmt.Fprintf(tw, "Owner:\t%s\n", r.OwnerID)
	fmt.Fprintf(tw, "Account:\t%s\n", r.AccountID)
	if r.DestinationAccountID != nil {
		fmt.Fprintf(tw, "Destination:\t%s\n", r.DestinationAccountID)
	}
	if r.CategoryID != nil {
		fmt.Fprintf(tw, "Category:\t%s\n", r.CategoryID)
	}
	fmt.Fprintf(tw, "Kind:\t%s\n", r.Kind)
	fmt.Fprintf(tw, "Amount:\t%s\n", domain.FormatAmount(r.Amount, r.Currency))
	fmt.Fprintf(tw, "Description:\t%s\n", r.Description)
	if len(r.Tags) > 0 {
		fmt.Fprintf(tw, "Tags:\t%s\n", strings.Join(r.Tags.Sorted(), ", "))
	}
	if len(r.Attachments) > 0 {
		refs := make([]string, len(r.Attachments))
		for i, a := range r.Attachments {
			refs[i] = string(a)
		}
		fmt.Fprintf(tw, "Attachments:\t%s\n", strings.Join(refs, ", "))
	}
	fmt.Fprintf(tw, "Schedule:\t%s\n", r.Pattern)
	if r.LastExecuted != nil {
		fmt.Fprintf(tw, "Last executed:\t%s\n", r.LastExecuted)
	}
	fmt.Fprintf(tw, "Next execution:\t%s\n", r.NextExecution)
	fmt.Fprintf(tw, "Status:\t%s\n", ruleStatus(r))
	fmt.Fprintf(tw, "Version:\t%d\n", r.Version)
	tw.Flush()
}

func ruleStatus(r *domain.RecurringRule) string {
	if r.IsActive {
		return "active"
	}
	return "inactive"
}
