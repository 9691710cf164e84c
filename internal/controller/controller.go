// Package controller coordinates the chat and evaluation sessions of one
// front-end: it owns the selected symbol and the analysis panel visibility.
package controller

import (
	"context"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/dyike/CortexAdvisor/internal/session"
)

// AppController forwards symbols recognized by the chat to the evaluation
// session and tracks whether the analysis panel is shown.
type AppController struct {
	mu        sync.RWMutex
	selected  string
	panelOpen bool

	advice     *session.AdviceSession
	evaluation *session.EvaluationSession
	logger     zerolog.Logger
}

// New wires advice to evaluation. Every symbol advice recognizes becomes the
// selected symbol and the evaluation target.
func New(advice *session.AdviceSession, evaluation *session.EvaluationSession, logger zerolog.Logger) *AppController {
	c := &AppController{
		advice:     advice,
		evaluation: evaluation,
		logger:     logger.With().Str("component", "controller").Logger(),
	}
	advice.OnSymbolRecognized(c.OnSymbolRecognized)
	return c
}

// OnSymbolRecognized overwrites the selected symbol. The last write wins.
func (c *AppController) OnSymbolRecognized(symbol string) {
	c.mu.Lock()
	c.selected = symbol
	c.mu.Unlock()

	c.evaluation.SetSymbol(symbol)
	c.logger.Debug().Str("symbol", symbol).Msg("symbol selected")
}

// Submit sends text to the chat session.
func (c *AppController) Submit(ctx context.Context, text string) bool {
	return c.advice.Submit(ctx, text)
}

// Analyze opens the panel and starts an evaluation. Without an override it
// needs a selected symbol; it returns false when nothing was started.
func (c *AppController) Analyze(ctx context.Context, override string) bool {
	if strings.TrimSpace(override) == "" && !c.CanAnalyze() {
		return false
	}
	if !c.evaluation.Evaluate(ctx, override) {
		return false
	}
	c.OpenPanel()
	return true
}

// TogglePanel flips the panel visibility.
func (c *AppController) TogglePanel() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.panelOpen = !c.panelOpen
	return c.panelOpen
}

// OpenPanel shows the panel when a symbol is selected.
func (c *AppController) OpenPanel() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.selected != "" || c.evaluation.Symbol() != "" {
		c.panelOpen = true
	}
	return c.panelOpen
}

// ClosePanel hides the panel.
func (c *AppController) ClosePanel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.panelOpen = false
}

// PanelOpen reports whether the evaluation panel is visible.
func (c *AppController) PanelOpen() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.panelOpen
}

// SelectedSymbol returns the last symbol recognized in the chat.
func (c *AppController) SelectedSymbol() (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.selected, c.selected != ""
}

// CanAnalyze reports whether the analyze action should be enabled.
func (c *AppController) CanAnalyze() bool {
	_, ok := c.SelectedSymbol()
	return ok
}

// Advice returns the chat session.
func (c *AppController) Advice() *session.AdviceSession {
	return c.advice
}

// Evaluation returns the backtest session.
func (c *AppController) Evaluation() *session.EvaluationSession {
	return c.evaluation
}

// Wait blocks until neither session has a request in flight.
func (c *AppController) Wait() {
	c.advice.Wait()
	c.evaluation.Wait()
}

// Close tears both sessions down.
func (c *AppController) Close() {
	c.advice.Close()
	c.evaluation.Close()
}
