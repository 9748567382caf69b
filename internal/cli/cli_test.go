package cli

import (
	"bytes"
	"context"
	"flag"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/subcommands"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simaogato/wealthflow-recurring/internal/adapter/repository/memory"
	"github.com/simaogato/wealthflow-recurring/internal/domain"
	"github.com/simaogato/wealthflow-recurring/internal/usecase/engine"
	"github.com/simaogato/wealthflow-recurring/internal/usecase/forecast"
	"github.com/simaogato/wealthflow-recurring/internal/usecase/importer"
	"github.com/simaogato/wealthflow-recurring/internal/usecase/maintenance"
	"github.com/simaogato/wealthflow-recurring/internal/usecase/recurring"
)

type harness struct {
	store *memory.Store
	out   bytes.Buffer
	opens int
}

func newHarness() *harness {
	return &harness{store: memory.NewStore()}
}

func (h *harness) open(ctx context.Context) (*App, error) {
	h.opens++
	clock := domain.FixedClock(domain.MustParseDate("2024-01-20"))
	eng := engine.NewEngine(h.store, h.store, zerolog.Nop())
	rules := recurring.NewRecurringService(h.store, h.store)
	return &App{
		Rules:        rules,
		Engine:       eng,
		Runner:       maintenance.NewRunner(eng, h.store, clock, zerolog.Nop()),
		Transactions: h.store,
		Forecast:     forecast.NewForecastService(h.store),
		Importer:     importer.NewImporter(rules, zerolog.Nop()),
		Clock:        clock,
		Out:          &h.out,
		Close:        h.store.Close,
	}, nil
}

func (h *harness) execute(t *testing.T, args ...string) subcommands.ExitStatus {
	t.Helper()
	h.out.Reset()
	fs := flag.NewFlagSet("recurctl", flag.ContinueOnError)
	c := subcommands.NewCommander(fs, "recurctl")
	Register(c, h.open)
	require.NoError(t, fs.Parse(args))
	return c.Execute(context.Background())
}

func (h *harness) onlyRule(t *testing.T, owner uuid.UUID) *domain.RecurringRule {
	t.Helper()
	rules, err := h.store.ListByOwner(context.Background(), owner)
	require.NoError(t, err)
	require.Len(t, rules, 1)
	return rules[0]
}

func TestCommands_RuleLifecycle(t *testing.T) {
	h := newHarness()
	owner := uuid.New()

	status := h.execute(t, "add",
		"-owner", owner.String(),
		"-account", uuid.NewString(),
		"-kind", "expense",
		"-amount", "-1200",
		"-currency", "usd",
		"-desc", "Rent",
		"-tags", "housing, fixed",
		"-freq", "monthly",
		"-dom", "15",
		"-start", "2024-01-01",
	)
	require.Equal(t, subcommands.ExitSuccess, status)
	assert.Contains(t, h.out.String(), "Next execution:  2024-01-15")
	assert.Contains(t, h.out.String(), "Tags:            fixed, housing")

	rule := h.onlyRule(t, owner)
	id := rule.ID.String()

	require.Equal(t, subcommands.ExitSuccess, h.execute(t, "list", "-owner", owner.String()))
	assert.Contains(t, h.out.String(), "-$1,200.00")
	assert.Contains(t, h.out.String(), "Rent")
	assert.Contains(t, h.out.String(), "active")

	require.Equal(t, subcommands.ExitSuccess, h.execute(t, "preview", "-n", "2", id))
	assert.Equal(t, "2024-01-15  Mon\n2024-02-15  Thu\n", h.out.String())

	require.Equal(t, subcommands.ExitSuccess, h.execute(t, "process", "-owner", owner.String()))
	assert.Equal(t, "2024-01-20: 1 executed, 0 expired, 0 failed, 0 recovered\n", h.out.String())

	// Same day again: nothing is due any more
	require.Equal(t, subcommands.ExitSuccess, h.execute(t, "process"))
	assert.Equal(t, "2024-01-20: 1 owners, 0 executed, 0 expired, 0 failed, 0 recovered\n", h.out.String())

	require.Equal(t, subcommands.ExitSuccess, h.execute(t, "transactions", "-owner", owner.String()))
	assert.Contains(t, h.out.String(), "2024-01-20")
	assert.Contains(t, h.out.String(), "2024-01-15")
	assert.Contains(t, h.out.String(), "1 of 1 transactions")

	require.Equal(t, subcommands.ExitSuccess, h.execute(t, "show", id))
	assert.Contains(t, h.out.String(), "Last executed:   2024-01-20")
	assert.Contains(t, h.out.String(), "Next execution:  2024-02-15")

	require.Equal(t, subcommands.ExitSuccess, h.execute(t, "forecast", "-owner", owner.String(), "-from", "2024-02-01", "-to", "2024-04-30"))
	assert.Contains(t, h.out.String(), "2024-04-15")
	assert.Contains(t, h.out.String(), "-$3,600.00")

	require.Equal(t, subcommands.ExitSuccess, h.execute(t, "delete", id))
	assert.Equal(t, "deleted "+id+"\n", h.out.String())
	assert.Equal(t, subcommands.ExitFailure, h.execute(t, "show", id))
}

func TestCommands_ProcessAllOwnersOnDate(t *testing.T) {
	h := newHarness()
	for i := 0; i < 2; i++ {
		owner := uuid.New()
		require.Equal(t, subcommands.ExitSuccess, h.execute(t, "add",
			"-owner", owner.String(), "-account", uuid.NewString(),
			"-kind", "income", "-amount", "10", "-currency", "EUR", "-desc", "Allowance",
			"-freq", "weekly", "-dow", "1", "-start", "2024-01-01",
		))
	}

	require.Equal(t, subcommands.ExitSuccess, h.execute(t, "process", "-d", "2024-01-01"))
	assert.Equal(t, "2024-01-01: 2 owners, 2 executed, 0 expired, 0 failed, 0 recovered\n", h.out.String())
}

func TestCommands_UsageErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want subcommands.ExitStatus
	}{
		{name: "add without owner", args: []string{"add", "-account", uuid.NewString(), "-amount", "1"}, want: subcommands.ExitUsageError},
		{name: "add with bad amount", args: []string{"add", "-owner", uuid.NewString(), "-account", uuid.NewString(), "-amount", "ten"}, want: subcommands.ExitUsageError},
		{name: "show without id", args: []string{"show"}, want: subcommands.ExitUsageError},
		{name: "delete with bad id", args: []string{"delete", "nope"}, want: subcommands.ExitUsageError},
		{name: "list without owner", args: []string{"list"}, want: subcommands.ExitUsageError},
		{name: "negative offset", args: []string{"transactions", "-owner", uuid.NewString(), "-offset", "-2"}, want: subcommands.ExitUsageError},
		{name: "unknown flag", args: []string{"list", "-colour"}, want: subcommands.ExitUsageError},
		{name: "yearly interval past its limit", args: []string{"add", "-owner", uuid.NewString(), "-account", uuid.NewString(), "-amount", "-5", "-currency", "EUR", "-desc", "Tax", "-freq", "yearly", "-interval", "8000"}, want: subcommands.ExitFailure},
		{name: "preview too long", args: []string{"preview", "-n", "1000", uuid.NewString()}, want: subcommands.ExitFailure},
		{name: "inverted forecast", args: []string{"forecast", "-owner", uuid.NewString(), "-to", "2023-01-01"}, want: subcommands.ExitFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness()
			assert.Equal(t, tt.want, h.execute(t, tt.args...))
		})
	}
}

func TestCommands_Import(t *testing.T) {
	h := newHarness()
	owner := uuid.New()

	path := filepath.Join(t.TempDir(), "rules.yaml")
	doc := `rules:
  - account: ` + uuid.NewString() + `
    kind: expense
    amount: "-9.99"
    currency: EUR
    description: Music
    frequency: monthly
    start: "2024-01-05"
  - account: ` + uuid.NewString() + `
    kind: expense
    amount: "-5"
    currency: EUR
    description: Bad
    frequency: fortnightly
    start: "2024-01-05"
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))

	status := h.execute(t, "import", "-owner", owner.String(), path)
	assert.Equal(t, subcommands.ExitFailure, status, "skipped entries fail the command")
	assert.Contains(t, h.out.String(), "Music")
	assert.Contains(t, h.out.String(), "skipped rule #2 (Bad)")

	rule := h.onlyRule(t, owner)
	assert.Equal(t, "2024-01-05", rule.NextExecution.String())
}

func TestCommands_HelpDoesNotOpenStore(t *testing.T) {
	h := newHarness()
	fs := flag.NewFlagSet("recurctl", flag.ContinueOnError)
	c := subcommands.NewCommander(fs, "recurctl")
	c.Output = &bytes.Buffer{}
	c.Register(c.HelpCommand(), "")
	Register(c, h.open)
	require.NoError(t, fs.Parse([]string{"help", "add"}))
	assert.Equal(t, subcommands.ExitSuccess, c.Execute(context.Background()))
	assert.Zero(t, h.opens)
}
