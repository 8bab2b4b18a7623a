package submitter

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"hourgrid/weboffice"
	"hourgrid/worklog"
)

type Strategy string

const (
	// StrategySequential upserts one cell per backend call and waits for each
	// call before sending the next one.
	StrategySequential Strategy = "sequential"
	// StrategyBatch sends all cells in one call and maps the rows back by key.
	StrategyBatch Strategy = "batch"
)

const transportFailureMessage = "Check your internet or your auth session"

// Upserter is the subset of the backend client the submitter needs.
type Upserter interface {
	BulkUpsert(ctx context.Context, entries []worklog.Entry) ([]weboffice.UpsertResult, error)
}

// FailureError describes why one cell could not be saved. Description is
// user-facing; Err carries the underlying transport error when there is one.
type FailureError struct {
	Description string
	Err         error
}

func (e *FailureError) Error() string {
	return e.Description
}

func (e *FailureError) Unwrap() error {
	return e.Err
}

// Outcome is the result for one submitted cell.
type Outcome struct {
	Entry worklog.Entry
	Saved worklog.Entry
	Err   error
}

func (o Outcome) Succeeded() bool {
	return o.Err == nil
}

type Service struct {
	client   Upserter
	strategy Strategy
	logger   *slog.Logger
}

func ParseStrategy(value string) (Strategy, error) {
	switch Strategy(strings.ToLower(strings.TrimSpace(value))) {
	case "", StrategySequential:
		return StrategySequential, nil
	case StrategyBatch:
		return StrategyBatch, nil
	default:
		return "", fmt.Errorf("unsupported sync strategy: %s (supported: sequential, batch)", value)
	}
}

func NewService(client Upserter, strategy Strategy, logger *slog.Logger) *Service {
	if strategy == "" {
		strategy = StrategySequential
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Service{client: client, strategy: strategy, logger: logger}
}

func (s *Service) Strategy() Strategy {
	return s.strategy
}

// Submit persists entries and reports every cell's outcome through onResult
// as soon as it is known. The outcomes are also returned in input order.
func (s *Service) Submit(ctx context.Context, entries []worklog.Entry, onResult func(Outcome)) []Outcome {
	if len(entries) == 0 {
		return nil
	}
	if onResult == nil {
		onResult = func(Outcome) {}
	}

	switch s.strategy {
	case StrategyBatch:
		return s.submitBatch(ctx, entries, onResult)
	default:
		return s.submitSequential(ctx, entries, onResult)
	}
}

func (s *Service) submitSequential(ctx context.Context, entries []worklog.Entry, onResult func(Outcome)) []Outcome {
	outcomes := make([]Outcome, 0, len(entries))
	for _, entry := range entries {
		outcome := s.upsertOne(ctx, entry)
		outcomes = append(outcomes, outcome)
		onResult(outcome)
	}
	return outcomes
}

func (s *Service) upsertOne(ctx context.Context, entry worklog.Entry) Outcome {
	if err := ctx.Err(); err != nil {
		return Outcome{Entry: entry, Err: &FailureError{Description: transportFailureMessage, Err: err}}
	}

	results, err := s.client.BulkUpsert(ctx, []worklog.Entry{entry})
	if err != nil {
		s.logger.Warn("upsert failed", "task_id", entry.TaskID, "date", worklog.DayKey(entry.Date), "error", err)
		return Outcome{Entry: entry, Err: &FailureError{Description: transportFailureMessage, Err: err}}
	}
	if len(results) == 0 {
		return Outcome{Entry: entry, Err: &FailureError{Description: "empty response from server"}}
	}
	return outcomeFromResult(entry, results[0])
}

func (s *Service) submitBatch(ctx context.Context, entries []worklog.Entry, onResult func(Outcome)) []Outcome {
	outcomes := make([]Outcome, 0, len(entries))

	results, err := s.client.BulkUpsert(ctx, entries)
	if err != nil {
		s.logger.Warn("batch upsert failed", "entries", len(entries), "error", err)
		for _, entry := range entries {
			outcome := Outcome{Entry: entry, Err: &FailureError{Description: transportFailureMessage, Err: err}}
			outcomes = append(outcomes, outcome)
			onResult(outcome)
		}
		return outcomes
	}

	byKey := make(map[worklog.Key]weboffice.UpsertResult, len(results))
	for _, result := range results {
		byKey[worklog.KeyOf(result.TaskID, result.Date)] = result
	}

	for _, entry := range entries {
		result, ok := byKey[entry.Key()]
		var outcome Outcome
		if !ok {
			outcome = Outcome{Entry: entry, Err: &FailureError{Description: "no result returned for entry"}}
		} else {
			outcome = outcomeFromResult(entry, result)
		}
		outcomes = append(outcomes, outcome)
		onResult(outcome)
	}
	return outcomes
}

func outcomeFromResult(entry worklog.Entry, result weboffice.UpsertResult) Outcome {
	if result.Failed() {
		return Outcome{Entry: entry, Err: &FailureError{Description: result.ErrorDescription}}
	}
	return Outcome{Entry: entry, Saved: result.Entry}
}

// IsTransportFailure reports whether err was caused by the request itself
// rather than by the backend rejecting the entry.
func IsTransportFailure(err error) bool {
	var failure *FailureError
	return errors.As(err, &failure) && failure.Err != nil
}
