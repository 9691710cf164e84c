package app

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/dyike/CortexAdvisor/config"
	"github.com/dyike/CortexAdvisor/internal/advisor"
	"github.com/dyike/CortexAdvisor/internal/symbol"
	"github.com/dyike/CortexAdvisor/models"
)

type EngineBuilder func(config.Config) (*Engine, error)

type Option func(*Runtime)

func WithBuilder(builder EngineBuilder) Option {
	return func(r *Runtime) {
		if builder != nil {
			r.builder = builder
		}
	}
}

func WithNotifier(fn func(topic, payload string)) Option {
	return func(r *Runtime) {
		r.notify = fn
	}
}

// WithOverride edits every config snapshot before an engine is built from
// it. Command line flags and environment variables go through here.
func WithOverride(fn func(*config.Config)) Option {
	return func(r *Runtime) {
		if fn != nil {
			r.overrides = append(r.overrides, fn)
		}
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(r *Runtime) {
		r.logger = logger
	}
}

// Runtime serves advice and evaluation requests through the current engine
// and swaps engines when the config file changes. Requests already in
// flight finish on the engine they started with.
type Runtime struct {
	cfgMgr    *config.Manager
	engine    atomic.Pointer[Engine]
	extractor *symbol.Extractor

	builder   EngineBuilder
	overrides []func(*config.Config)
	notify    func(string, string)
	logger    zerolog.Logger
	cancel    context.CancelFunc
}

func NewRuntime(cfgMgr *config.Manager, opts ...Option) (*Runtime, error) {
	if cfgMgr == nil {
		return nil, fmt.Errorf("config manager is required")
	}

	rt := &Runtime{
		cfgMgr:    cfgMgr,
		extractor: symbol.NewExtractor(),
		builder:   BuildEngine,
		logger:    zerolog.Nop(),
	}

	for _, opt := range opts {
		opt(rt)
	}

	if err := rt.reload(cfgMgr.Get()); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	rt.cancel = cancel
	if err := cfgMgr.Watch(ctx, func(cfg config.Config) {
		if err := rt.reload(cfg); err != nil {
			rt.logger.Error().Err(err).Msg("engine reload failed, keeping previous engine")
		}
	}); err != nil {
		cancel()
		return nil, err
	}

	return rt, nil
}

func (r *Runtime) Engine() *Engine {
	return r.engine.Load()
}

// Extractor is kept in step with the engine's known symbols.
func (r *Runtime) Extractor() *symbol.Extractor {
	return r.extractor
}

func (r *Runtime) Advice(ctx context.Context, sym string) (advisor.AdviceReply, error) {
	return r.Engine().Client.Advice(ctx, sym)
}

func (r *Runtime) Evaluate(ctx context.Context, sym string) (*models.EvaluationResult, error) {
	return r.Engine().Client.Evaluate(ctx, sym)
}

// Format renders equity dates with the current engine's layout and zone.
func (r *Runtime) Format(raw json.RawMessage, fallback string) string {
	return r.Engine().Dates.Format(raw, fallback)
}

func (r *Runtime) Close() {
	if r.cancel != nil {
		r.cancel()
	}
}

func (r *Runtime) UpdateConfigJSON(jsonStr string) error {
	return r.cfgMgr.UpdateFromJSON(jsonStr)
}

func (r *Runtime) reload(cfg config.Config) error {
	for _, fn := range r.overrides {
		fn(&cfg)
	}
	engine, err := r.builder(cfg)
	if err != nil {
		r.notifyFailure(err)
		return err
	}
	r.engine.Store(engine)
	if len(engine.KnownSymbols) > 0 {
		r.extractor.SetKnown(engine.KnownSymbols)
	}
	r.logger.Info().
		Uint64("version", engine.Version).
		Str("backend", engine.Config.BackendURL).
		Int("known_symbols", r.extractor.Known()).
		Msg("engine ready")
	r.notifySuccess(engine)
	return nil
}

func (r *Runtime) notifySuccess(engine *Engine) {
	if r.notify == nil {
		return
	}
	payload, _ := json.Marshal(map[string]any{
		"version":  engine.Version,
		"backend":  engine.Config.BackendURL,
		"built_at": engine.BuiltAt.UTC().Format(time.RFC3339),
	})
	r.notify("engine.reloaded", string(payload))
}

func (r *Runtime) notifyFailure(err error) {
	if r.notify == nil {
		return
	}
	payload, _ := json.Marshal(map[string]string{
		"error": err.Error(),
	})
	r.notify("engine.reload_failed", string(payload))
}
