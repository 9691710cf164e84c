package session

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/dyike/CortexAdvisor/consts"
	"github.com/dyike/CortexAdvisor/internal/advisor"
	"github.com/dyike/CortexAdvisor/models"
)

// EvaluationFetcher requests a validated backtest for a symbol.
type EvaluationFetcher interface {
	Evaluate(ctx context.Context, symbol string) (*models.EvaluationResult, error)
}

// DateFormat renders a raw equity date for display, returning fallback when
// the value cannot be read.
type DateFormat interface {
	Format(raw json.RawMessage, fallback string) string
}

// EvaluationSession runs backtest requests for the analysis panel. It holds
// either a validated result or an error message, never both.
type EvaluationSession struct {
	mu      sync.Mutex
	fetcher EvaluationFetcher
	dates   DateFormat
	logger  zerolog.Logger

	symbol string
	state  models.RequestState
	result *models.EvaluationResult
	errMsg string
	closed bool

	inflight sync.WaitGroup
}

// NewEvaluationSession creates an idle session with no target symbol.
func NewEvaluationSession(fetcher EvaluationFetcher, dates DateFormat, logger zerolog.Logger) *EvaluationSession {
	return &EvaluationSession{
		fetcher: fetcher,
		dates:   dates,
		logger:  logger.With().Str("session", "evaluation").Logger(),
	}
}

// SetSymbol replaces the target symbol.
func (s *EvaluationSession) SetSymbol(symbol string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.symbol = symbol
}

// Symbol returns the target symbol as it was set.
func (s *EvaluationSession) Symbol() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.symbol
}

// Evaluate requests a backtest. A non-blank override becomes the new target
// symbol. It returns false, changing nothing, when the effective symbol is
// blank, a request is pending, or the session is closed.
func (s *EvaluationSession) Evaluate(ctx context.Context, override string) bool {
	s.mu.Lock()
	if s.closed || s.state.IsPending() {
		s.mu.Unlock()
		return false
	}

	target := s.symbol
	if strings.TrimSpace(override) != "" {
		target = override
	}
	symbol := strings.ToUpper(strings.TrimSpace(target))
	if symbol == "" {
		s.mu.Unlock()
		return false
	}

	s.symbol = target
	s.result = nil
	s.errMsg = ""
	s.state = models.StatePending
	s.inflight.Add(1)
	s.mu.Unlock()

	s.logger.Info().Str("symbol", symbol).Msg("evaluation requested")
	go s.fetch(context.WithoutCancel(ctx), symbol)
	return true
}

func (s *EvaluationSession) fetch(ctx context.Context, symbol string) {
	defer s.inflight.Done()

	result, err := s.call(ctx, symbol)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		s.logger.Debug().Str("symbol", symbol).Msg("discarding evaluation for closed session")
		return
	}

	if err != nil {
		s.state = models.StateFailed
		s.errMsg = evaluationError(err)
		s.logger.Error().Err(err).Str("symbol", symbol).Msg("evaluation failed")
		return
	}

	s.result = s.normalize(result)
	s.state = models.StateSucceeded
	s.logger.Info().
		Str("symbol", symbol).
		Int("trades", len(result.Trades)).
		Int("points", len(result.Equity)).
		Msg("evaluation ready")
}

func (s *EvaluationSession) call(ctx context.Context, symbol string) (result *models.EvaluationResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("evaluation request panicked: %v", r)
		}
	}()
	result, err = s.fetcher.Evaluate(ctx, symbol)
	if err == nil && result == nil {
		err = &advisor.PayloadError{Endpoint: advisor.EndpointEvaluate, Err: models.ErrInvalidEvaluation}
	}
	return result, err
}

// normalize rewrites every equity date for display and copies everything
// else through untouched.
func (s *EvaluationSession) normalize(in *models.EvaluationResult) *models.EvaluationResult {
	out := in.Clone()
	for i, p := range in.Equity {
		out.Equity[i] = p.WithDate(s.dates.Format(p.RawDate(), p.Date))
	}
	return out
}

// State returns the state of the latest request.
func (s *EvaluationSession) State() models.RequestState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Result returns a copy of the latest validated result, or nil.
func (s *EvaluationSession) Result() *models.EvaluationResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.result.Clone()
}

// Error returns the message of the latest failure, or "".
func (s *EvaluationSession) Error() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.errMsg
}

// Wait blocks until no evaluation request is outstanding.
func (s *EvaluationSession) Wait() {
	s.inflight.Wait()
}

// Close tears the session down; a late result is dropped.
func (s *EvaluationSession) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
}

func evaluationError(err error) string {
	if msg := advisor.ServerMessage(err); msg != "" {
		return msg
	}
	if advisor.IsTransport(err) {
		return fmt.Sprintf("%s: %s", consts.Msg_SomethingWrong, describeError(err))
	}
	return consts.Msg_InvalidResponse
}
