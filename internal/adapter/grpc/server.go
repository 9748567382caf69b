package grpc

import (
	"context"
	"errors"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/simaogato/wealthflow-recurring/internal/domain"
	"github.com/simaogato/wealthflow-recurring/internal/usecase/engine"
	"github.com/simaogato/wealthflow-recurring/internal/usecase/forecast"
	"github.com/simaogato/wealthflow-recurring/internal/usecase/importer"
	"github.com/simaogato/wealthflow-recurring/internal/usecase/recurring"
)

const (
	defaultPreviewCount = 12
	defaultPageSize     = 50
	defaultForecastDays = 90
)

// Server implements the RecurringService gRPC server
type Server struct {
	Engine       *engine.Engine
	Rules        *recurring.RecurringService
	Transactions domain.TransactionRepository
	Forecaster   *forecast.ForecastService
	Importer     *importer.Importer
	Clock        domain.Clock
}

// NewServer creates a new gRPC server instance
func NewServer(
	eng *engine.Engine,
	rules *recurring.RecurringService,
	transactions domain.TransactionRepository,
	forecastService *forecast.ForecastService,
	imp *importer.Importer,
	clock domain.Clock,
) *Server {
	return &Server{
		Engine:       eng,
		Rules:        rules,
		Transactions: transactions,
		Forecaster:   forecastService,
		Importer:     imp,
		Clock:        clock,
	}
}

// ProcessDue handles the ProcessDue RPC.
// Request: {owner_id, date?}; date defaults to today.
func (s *Server) ProcessDue(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	a := argsOf(req)
	ownerID, err := a.requiredUUID("owner_id")
	if err != nil {
		return nil, err
	}
	now := s.Clock.Today()
	if a.has("date") {
		if now, err = a.requiredDate("date"); err != nil {
			return nil, err
		}
	}

	result, err := s.Engine.Process(ctx, ownerID, now)
	if err != nil {
		return nil, mapError(err)
	}

	return toStruct(map[string]any{
		"date":      now.String(),
		"executed":  result.Executed,
		"expired":   result.Expired,
		"failed":    result.Failed,
		"recovered": result.Recovered,
	})
}

// CreateRule handles the CreateRule RPC
func (s *Server) CreateRule(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	input, err := createInput(argsOf(req))
	if err != nil {
		return nil, err
	}

	rule, err := s.Rules.CreateRule(ctx, input)
	if err != nil {
		return nil, mapError(err)
	}

	return toStruct(map[string]any{"rule": ruleToMap(rule)})
}

// GetRule handles the GetRule RPC
func (s *Server) GetRule(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id, err := argsOf(req).requiredUUID("id")
	if err != nil {
		return nil, err
	}

	rule, err := s.Rules.GetRule(ctx, id)
	if err != nil {
		return nil, mapError(err)
	}

	return toStruct(map[string]any{"rule": ruleToMap(rule)})
}

// UpdateRule handles the UpdateRule RPC.
// Only the fields present in the request change.
func (s *Server) UpdateRule(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	a := argsOf(req)
	id, err := a.requiredUUID("id")
	if err != nil {
		return nil, err
	}
	input, err := updateInput(a)
	if err != nil {
		return nil, err
	}

	rule, err := s.Rules.UpdateRule(ctx, id, input)
	if err != nil {
		return nil, mapError(err)
	}

	return toStruct(map[string]any{"rule": ruleToMap(rule)})
}

// DeleteRule handles the DeleteRule RPC
func (s *Server) DeleteRule(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id, err := argsOf(req).requiredUUID("id")
	if err != nil {
		return nil, err
	}

	if err := s.Rules.DeleteRule(ctx, id); err != nil {
		return nil, mapError(err)
	}

	return toStruct(map[string]any{"deleted": true})
}

// ListRules handles the ListRules RPC
func (s *Server) ListRules(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	ownerID, err := argsOf(req).requiredUUID("owner_id")
	if err != nil {
		return nil, err
	}

	rules, err := s.Rules.ListRules(ctx, ownerID)
	if err != nil {
		return nil, mapError(err)
	}

	out := make([]any, 0, len(rules))
	for _, r := range rules {
		out = append(out, ruleToMap(r))
	}
	return toStruct(map[string]any{"rules": out})
}

// PreviewOccurrences handles the PreviewOccurrences RPC.
// Request: {id, count?}; count defaults to 12.
func (s *Server) PreviewOccurrences(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	a := argsOf(req)
	id, err := a.requiredUUID("id")
	if err != nil {
		return nil, err
	}
	count := defaultPreviewCount
	if a.has("count") {
		if count, err = a.integer("count"); err != nil {
			return nil, err
		}
	}

	dates, err := s.Rules.PreviewOccurrences(ctx, id, count)
	if err != nil {
		return nil, mapError(err)
	}

	out := make([]any, len(dates))
	for i, d := range dates {
		out[i] = d.String()
	}
	return toStruct(map[string]any{"dates": out})
}

// ListTransactions handles the ListTransactions RPC.
// Request: {owner_id, limit?, offset?}; limit defaults to 50.
func (s *Server) ListTransactions(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	a := argsOf(req)
	ownerID, err := a.requiredUUID("owner_id")
	if err != nil {
		return nil, err
	}
	limit := defaultPageSize
	if a.has("limit") {
		if limit, err = a.integer("limit"); err != nil {
			return nil, err
		}
	}
	offset, err := a.integer("offset")
	if err != nil {
		return nil, err
	}
	if limit < 0 || offset < 0 {
		return nil, invalid("limit and offset must not be negative")
	}

	transactions, err := s.Transactions.List(ctx, ownerID, limit, offset)
	if err != nil {
		return nil, mapError(err)
	}
	total, err := s.Transactions.Count(ctx, ownerID)
	if err != nil {
		return nil, mapError(err)
	}

	out := make([]any, 0, len(transactions))
	for _, tx := range transactions {
		out = append(out, transactionToMap(tx))
	}
	return toStruct(map[string]any{"transactions": out, "total": total})
}

// Forecast handles the Forecast RPC.
// Request: {owner_id, from?, to?}; the window defaults to the next 90 days.
func (s *Server) Forecast(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	a := argsOf(req)
	ownerID, err := a.requiredUUID("owner_id")
	if err != nil {
		return nil, err
	}
	from := s.Clock.Today()
	if a.has("from") {
		if from, err = a.requiredDate("from"); err != nil {
			return nil, err
		}
	}
	to := from.AddDays(defaultForecastDays)
	if a.has("to") {
		if to, err = a.requiredDate("to"); err != nil {
			return nil, err
		}
	}

	result, err := s.Forecaster.Project(ctx, ownerID, from, to)
	if err != nil {
		return nil, mapError(err)
	}

	return toStruct(forecastToMap(result))
}

// ImportRules handles the ImportRules RPC.
// Request: {owner_id, document} where document is the YAML import file.
func (s *Server) ImportRules(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	a := argsOf(req)
	ownerID, err := a.requiredUUID("owner_id")
	if err != nil {
		return nil, err
	}
	document, err := a.str("document")
	if err != nil {
		return nil, err
	}

	result, err := s.Importer.Import(ctx, ownerID, strings.NewReader(document))
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	created := make([]any, 0, len(result.Created))
	for _, r := range result.Created {
		created = append(created, ruleToMap(r))
	}
	failures := make([]any, 0, len(result.Errors))
	for _, e := range result.Errors {
		failures = append(failures, map[string]any{
			"index":       e.Index,
			"description": e.Description,
			"error":       e.Err.Error(),
		})
	}
	return toStruct(map[string]any{"created": created, "errors": failures})
}

// mapError converts domain errors to gRPC status errors
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}

	errorMsg := err.Error()

	switch {
	case errors.Is(err, domain.ErrRuleNotFound):
		return status.Errorf(codes.NotFound, "%s", errorMsg)
	case errors.Is(err, domain.ErrVersionConflict):
		return status.Errorf(codes.Aborted, "%s", errorMsg)
	case errors.Is(err, domain.ErrDuplicateOccurrence):
		return status.Errorf(codes.AlreadyExists, "%s", errorMsg)
	case errors.Is(err, domain.ErrInvalidRule), errors.Is(err, domain.ErrInvalidPattern):
		return status.Errorf(codes.InvalidArgument, "%s", errorMsg)
	case errors.Is(err, context.Canceled):
		return status.Errorf(codes.Canceled, "%s", errorMsg)
	case errors.Is(err, context.DeadlineExceeded):
		return status.Errorf(codes.DeadlineExceeded, "%s", errorMsg)
	}

	// Validation messages from collaborators that carry no sentinel
	if strings.Contains(errorMsg, "must be") ||
		strings.Contains(errorMsg, "invalid") ||
		strings.Contains(errorMsg, "is required") ||
		strings.Contains(errorMsg, "must have") {
		return status.Errorf(codes.InvalidArgument, "%s", errorMsg)
	}

	if strings.Contains(errorMsg, "not found") {
		return status.Errorf(codes.NotFound, "%s", errorMsg)
	}

	return status.Errorf(codes.Internal, "%s", errorMsg)
}

// Register attaches srv to a grpc.Server
func Register(s grpc.ServiceRegistrar, srv RecurringServiceServer) {
	s.RegisterService(&ServiceDesc, srv)
}
