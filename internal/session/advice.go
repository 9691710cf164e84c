// Package session holds the state of one chat conversation and one
// evaluation panel, each with at most one remote call in flight.
package session

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/dyike/CortexAdvisor/consts"
	"github.com/dyike/CortexAdvisor/internal/advisor"
	"github.com/dyike/CortexAdvisor/models"
)

// AdviceFetcher asks the remote service for advice on a symbol.
type AdviceFetcher interface {
	Advice(ctx context.Context, symbol string) (advisor.AdviceReply, error)
}

// SymbolExtractor guesses the symbol mentioned in free text.
type SymbolExtractor interface {
	Extract(text string) (string, bool)
}

// AdviceSession is one conversation. Its log starts with a greeting and
// only ever grows; every accepted user message is answered by exactly one
// bot message.
type AdviceSession struct {
	mu        sync.Mutex
	fetcher   AdviceFetcher
	extractor SymbolExtractor
	logger    zerolog.Logger

	messages   []models.Message
	seq        int64
	state      models.RequestState
	lastSymbol string
	observers  []func(symbol string)
	closed     bool

	inflight sync.WaitGroup
}

// NewAdviceSession creates a conversation seeded with the greeting.
func NewAdviceSession(fetcher AdviceFetcher, extractor SymbolExtractor, logger zerolog.Logger) *AdviceSession {
	s := &AdviceSession{
		fetcher:   fetcher,
		extractor: extractor,
		logger:    logger.With().Str("session", "advice").Logger(),
	}
	s.appendLocked(models.OriginBot, consts.Msg_Greeting)
	return s
}

// OnSymbolRecognized registers fn to be called with every recognized symbol.
// fn runs on the submitting goroutine before the advice request is sent.
func (s *AdviceSession) OnSymbolRecognized(fn func(symbol string)) {
	if fn == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, fn)
}

// Submit records text as a user message and answers it. It returns false,
// changing nothing, when text is blank, a request is already pending, or
// the session is closed.
func (s *AdviceSession) Submit(ctx context.Context, text string) bool {
	text = strings.TrimSpace(text)
	if text == "" {
		return false
	}

	s.mu.Lock()
	if s.closed || s.state.IsPending() {
		s.mu.Unlock()
		return false
	}

	s.appendLocked(models.OriginUser, text)
	s.state = models.StatePending

	symbol, ok := s.extractor.Extract(text)
	if !ok {
		s.appendLocked(models.OriginBot, consts.Msg_NoSymbol)
		s.state = models.StateSucceeded
		s.mu.Unlock()
		s.logger.Debug().Str("text", text).Msg("no symbol detected")
		return true
	}

	s.lastSymbol = symbol
	observers := append([]func(string){}, s.observers...)
	s.inflight.Add(1)
	s.mu.Unlock()

	s.logger.Info().Str("symbol", symbol).Msg("symbol recognized")
	for _, fn := range observers {
		fn(symbol)
	}

	go s.fetch(context.WithoutCancel(ctx), symbol)
	return true
}

func (s *AdviceSession) fetch(ctx context.Context, symbol string) {
	defer s.inflight.Done()

	reply, err := s.call(ctx, symbol)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		s.logger.Debug().Str("symbol", symbol).Msg("discarding advice for closed session")
		return
	}

	switch {
	case err != nil:
		s.appendLocked(models.OriginBot, fmt.Sprintf(consts.Msg_ServerError, describeError(err)))
		s.state = models.StateFailed
		s.logger.Error().Err(err).Str("symbol", symbol).Msg("advice request failed")
	case strings.TrimSpace(reply.Message) == "":
		s.appendLocked(models.OriginBot, consts.Msg_NoAdvice)
		s.state = models.StateSucceeded
	default:
		s.appendLocked(models.OriginBot, reply.Message)
		s.state = models.StateSucceeded
	}
}

func (s *AdviceSession) call(ctx context.Context, symbol string) (reply advisor.AdviceReply, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("advice request panicked: %v", r)
		}
	}()
	return s.fetcher.Advice(ctx, symbol)
}

func (s *AdviceSession) appendLocked(origin models.Origin, text string) {
	s.seq++
	s.messages = append(s.messages, models.Message{
		Seq:       s.seq,
		Origin:    origin,
		Text:      text,
		Timestamp: time.Now(),
	})
}

// Messages returns a copy of the log.
func (s *AdviceSession) Messages() []models.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Message(nil), s.messages...)
}

// MessagesSince returns the messages with a sequence number above seq.
func (s *AdviceSession) MessagesSince(seq int64) []models.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Message
	for _, m := range s.messages {
		if m.Seq > seq {
			out = append(out, m)
		}
	}
	return out
}

// State returns the state of the latest request.
func (s *AdviceSession) State() models.RequestState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// LastSymbol returns the most recently recognized symbol.
func (s *AdviceSession) LastSymbol() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSymbol, s.lastSymbol != ""
}

// Wait blocks until no advice request is outstanding.
func (s *AdviceSession) Wait() {
	s.inflight.Wait()
}

// Close tears the session down. Requests still in flight are not cancelled
// but their replies are dropped.
func (s *AdviceSession) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
}

func describeError(err error) string {
	msg := strings.TrimSpace(err.Error())
	if msg == "" {
		return consts.Msg_UnexpectedErr
	}
	return msg
}
