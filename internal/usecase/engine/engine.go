package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/simaogato/wealthflow-recurring/internal/domain"
	"github.com/simaogato/wealthflow-recurring/internal/usecase/calculator"
	"github.com/simaogato/wealthflow-recurring/internal/usecase/expiry"
)

// ProcessResult summarizes one Process call
type ProcessResult struct {
	Executed  int // Rules that produced a transaction and advanced
	Expired   int // Rules found past their end date and deactivated
	Failed    int // Rules left unchanged because of a ledger or registry error
	Recovered int // Rules advanced without a new transaction because the ledger already had the occurrence
}

// Engine materializes due recurring rules into ledger transactions
type Engine struct {
	Registry domain.RuleRegistry
	Ledger   domain.Ledger
	Logger   zerolog.Logger
}

// NewEngine creates a new Engine instance
func NewEngine(registry domain.RuleRegistry, ledger domain.Ledger, logger zerolog.Logger) *Engine {
	return &Engine{
		Registry: registry,
		Ledger:   ledger,
		Logger:   logger,
	}
}

// Process executes every active rule of ownerID that is due on now.
// Logic:
//  1. Fetch the owner's active rules with NextExecution <= now (a failure here is fatal)
//  2. For each rule, independently:
//     - Past its end date: deactivate and save, no transaction
//     - Otherwise: create a transaction dated now, then set LastExecuted = now and
//     NextExecution = NextOccurrence(pattern, now), deactivating if that is past the end date
//     (or past domain.LatestDate, which becomes the stored NextExecution)
//     - Ledger or save failure: log, leave the rule unchanged, continue with the next rule
//  3. Return the per-outcome counts
//
// Each call advances a due rule by exactly one occurrence; missed periods are not replayed.
func (e *Engine) Process(ctx context.Context, ownerID uuid.UUID, now domain.Date) (*ProcessResult, error) {
	rules, err := e.Registry.ListActiveDue(ctx, ownerID, now)
	if err != nil {
		return nil, fmt.Errorf("failed to list due rules for owner %s: %w", ownerID, err)
	}

	result := &ProcessResult{}
	for _, rule := range rules {
		// Registries filter already; a stale entry must still never fire early
		if !rule.IsDue(now) {
			continue
		}
		e.processRule(ctx, rule, now, result)
	}

	e.Logger.Info().
		Str("owner_id", ownerID.String()).
		Str("now", now.String()).
		Int("due", len(rules)).
		Int("executed", result.Executed).
		Int("expired", result.Expired).
		Int("failed", result.Failed).
		Int("recovered", result.Recovered).
		Msg("processed recurring rules")

	return result, nil
}

func (e *Engine) processRule(ctx context.Context, rule *domain.RecurringRule, now domain.Date, result *ProcessResult) {
	log := e.Logger.With().
		Str("rule_id", rule.ID.String()).
		Str("owner_id", rule.OwnerID.String()).
		Str("next_execution", rule.NextExecution.String()).
		Logger()

	if expiry.IsExpired(rule.Pattern, rule.NextExecution) {
		updated := rule.Clone()
		updated.IsActive = false
		if err := e.Registry.Save(ctx, updated); err != nil {
			e.logSaveFailure(log, err, "failed to deactivate expired rule")
			result.Failed++
			return
		}
		log.Info().Msg("rule reached its end date, deactivated")
		result.Expired++
		return
	}

	txID, err := e.Ledger.CreateTransaction(ctx, rule.Materialize(now))
	if err != nil {
		if !errors.Is(err, domain.ErrDuplicateOccurrence) {
			log.Error().Err(err).Msg("failed to create transaction, rule stays due")
			result.Failed++
			return
		}

		// An earlier pass wrote the transaction but never saved the advanced rule
		if _, err := e.advance(ctx, rule, now); err != nil {
			e.logSaveFailure(log, err, "failed to advance already materialized rule")
			result.Failed++
			return
		}
		log.Warn().Msg("occurrence already in ledger, rule advanced without a new transaction")
		result.Recovered++
		return
	}

	updated, err := e.advance(ctx, rule, now)
	if err != nil {
		// The next pass sees ErrDuplicateOccurrence for this occurrence and recovers
		e.logSaveFailure(log.With().Str("transaction_id", txID.String()).Logger(), err, "transaction created but rule could not be advanced")
		result.Failed++
		return
	}

	event := log.Info().Str("transaction_id", txID.String()).Str("new_next_execution", updated.NextExecution.String())
	if !updated.IsActive {
		event = event.Bool("deactivated", true)
	}
	event.Msg("rule executed")
	result.Executed++
}

// advance saves a copy of rule moved past the occurrence executed on now
func (e *Engine) advance(ctx context.Context, rule *domain.RecurringRule, now domain.Date) (*domain.RecurringRule, error) {
	updated := rule.Clone()
	executed := now
	updated.LastExecuted = &executed
	updated.NextExecution = calculator.NextOccurrence(updated.Pattern, now)
	if expiry.IsExpired(updated.Pattern, updated.NextExecution) {
		updated.IsActive = false
	}
	if updated.NextExecution.After(domain.LatestDate) {
		// The schedule ran off the calendar; park the rule on its last storable day
		updated.NextExecution = domain.LatestDate
		updated.IsActive = false
	}

	if err := e.Registry.Save(ctx, updated); err != nil {
		return nil, err
	}
	return updated, nil
}

func (e *Engine) logSaveFailure(log zerolog.Logger, err error, msg string) {
	if errors.Is(err, domain.ErrVersionConflict) {
		log.Warn().Err(err).Msg(msg + ": modified concurrently, retrying next pass")
		return
	}
	log.Error().Err(err).Msg(msg)
}
