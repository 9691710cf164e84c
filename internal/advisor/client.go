// Package advisor talks to the remote advice and evaluation service.
package advisor

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"

	"github.com/dyike/CortexAdvisor/models"
)

const (
	EndpointAdvice   = "advice"
	EndpointEvaluate = "evaluate"
)

// Request outcomes reported to a Recorder.
const (
	OutcomeOK        = "ok"
	OutcomeEmpty     = "empty"
	OutcomeStatus    = "status"
	OutcomeInvalid   = "invalid"
	OutcomeTransport = "transport"
)

// Recorder observes finished requests.
type Recorder interface {
	ObserveRequest(endpoint, outcome string, elapsed time.Duration)
}

type nopRecorder struct{}

func (nopRecorder) ObserveRequest(string, string, time.Duration) {}

// Options configures a Client.
type Options struct {
	BaseURL      string
	AdvicePath   string
	EvaluatePath string
	// Timeout bounds each request. Zero leaves requests unbounded.
	Timeout  time.Duration
	Logger   zerolog.Logger
	Recorder Recorder
}

// Client issues POST requests carrying {"symbol": ...} to the service.
type Client struct {
	client       *resty.Client
	advicePath   string
	evaluatePath string
	logger       zerolog.Logger
	recorder     Recorder
}

// AdviceReply is a decoded advice response. An empty Message means the
// service answered but had nothing to say.
type AdviceReply struct {
	Message string `json:"message"`
}

type symbolRequest struct {
	Symbol string `json:"symbol"`
}

// NewClient creates a client for the service at opts.BaseURL.
func NewClient(opts Options) *Client {
	client := resty.New()
	client.SetBaseURL(strings.TrimRight(opts.BaseURL, "/"))
	client.SetHeader("Accept", "application/json")
	if opts.Timeout > 0 {
		client.SetTimeout(opts.Timeout)
	}

	advicePath := opts.AdvicePath
	if advicePath == "" {
		advicePath = "/advice"
	}
	evaluatePath := opts.EvaluatePath
	if evaluatePath == "" {
		evaluatePath = "/evaluate"
	}
	recorder := opts.Recorder
	if recorder == nil {
		recorder = nopRecorder{}
	}

	return &Client{
		client:       client,
		advicePath:   advicePath,
		evaluatePath: evaluatePath,
		logger:       opts.Logger,
		recorder:     recorder,
	}
}

// BaseURL returns the service root the client talks to.
func (c *Client) BaseURL() string {
	return c.client.BaseURL
}

// Advice asks the service for a recommendation on symbol.
func (c *Client) Advice(ctx context.Context, symbol string) (AdviceReply, error) {
	start := time.Now()
	resp, err := c.post(ctx, c.advicePath, symbol)
	if err != nil {
		c.observe(EndpointAdvice, OutcomeTransport, symbol, 0, start)
		return AdviceReply{}, fmt.Errorf("request advice for %s: %w", symbol, err)
	}

	if !resp.IsSuccess() {
		c.observe(EndpointAdvice, OutcomeStatus, symbol, resp.StatusCode(), start)
		return AdviceReply{}, &StatusError{
			Endpoint:   EndpointAdvice,
			StatusCode: resp.StatusCode(),
			Message:    messageField(resp.Body()),
		}
	}

	if !strings.Contains(resp.Header().Get("Content-Type"), "application/json") {
		c.observe(EndpointAdvice, OutcomeInvalid, symbol, resp.StatusCode(), start)
		return AdviceReply{}, ErrNotJSON
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(resp.Body(), &fields); err != nil || fields == nil {
		c.observe(EndpointAdvice, OutcomeInvalid, symbol, resp.StatusCode(), start)
		return AdviceReply{}, fmt.Errorf("%w: expected a JSON object", ErrMalformed)
	}

	var reply AdviceReply
	if raw, ok := fields["message"]; ok {
		var msg *string
		if err := json.Unmarshal(raw, &msg); err != nil {
			c.observe(EndpointAdvice, OutcomeInvalid, symbol, resp.StatusCode(), start)
			return AdviceReply{}, fmt.Errorf("%w: message is not a string", ErrMalformed)
		}
		if msg != nil {
			reply.Message = *msg
		}
	}

	outcome := OutcomeOK
	if strings.TrimSpace(reply.Message) == "" {
		outcome = OutcomeEmpty
	}
	c.observe(EndpointAdvice, outcome, symbol, resp.StatusCode(), start)
	return reply, nil
}

// Evaluate requests a backtest for symbol and validates the payload shape.
func (c *Client) Evaluate(ctx context.Context, symbol string) (*models.EvaluationResult, error) {
	start := time.Now()
	resp, err := c.post(ctx, c.evaluatePath, symbol)
	if err != nil {
		c.observe(EndpointEvaluate, OutcomeTransport, symbol, 0, start)
		return nil, fmt.Errorf("request evaluation for %s: %w", symbol, err)
	}

	if !resp.IsSuccess() {
		c.observe(EndpointEvaluate, OutcomeStatus, symbol, resp.StatusCode(), start)
		return nil, &StatusError{
			Endpoint:   EndpointEvaluate,
			StatusCode: resp.StatusCode(),
			Message:    messageField(resp.Body()),
		}
	}

	result, err := models.DecodeEvaluation(resp.Body())
	if err != nil {
		c.observe(EndpointEvaluate, OutcomeInvalid, symbol, resp.StatusCode(), start)
		return nil, &PayloadError{
			Endpoint: EndpointEvaluate,
			Message:  messageField(resp.Body()),
			Err:      err,
		}
	}
	result.Symbol = symbol

	c.observe(EndpointEvaluate, OutcomeOK, symbol, resp.StatusCode(), start)
	return result, nil
}

func (c *Client) post(ctx context.Context, path, symbol string) (*resty.Response, error) {
	return c.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(symbolRequest{Symbol: symbol}).
		Post(path)
}

func (c *Client) observe(endpoint, outcome, symbol string, status int, start time.Time) {
	elapsed := time.Since(start)
	c.recorder.ObserveRequest(endpoint, outcome, elapsed)

	event := c.logger.Debug()
	if outcome == OutcomeTransport || outcome == OutcomeStatus || outcome == OutcomeInvalid {
		event = c.logger.Warn()
	}
	event.
		Str("endpoint", endpoint).
		Str("symbol", symbol).
		Str("outcome", outcome).
		Int("status", status).
		Dur("elapsed", elapsed).
		Msg("advisor request finished")
}

// messageField pulls a string "message" out of a JSON object body.
func messageField(body []byte) string {
	var payload struct {
		Message *string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err != nil || payload.Message == nil {
		return ""
	}
	return strings.TrimSpace(*payload.Message)
}
