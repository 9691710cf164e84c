package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/dyike/CortexAdvisor/config"
	"github.com/dyike/CortexAdvisor/internal/controller"
	"github.com/dyike/CortexAdvisor/internal/logger"
	"github.com/dyike/CortexAdvisor/internal/metrics"
	"github.com/dyike/CortexAdvisor/internal/session"
	"github.com/dyike/CortexAdvisor/pkg/app"
)

// rootOptions holds the global flags.
type rootOptions struct {
	configPath string
	backendURL string
	debug      bool
}

// override applies environment variables and flags on top of a config
// snapshot. It runs on every reload so the file never shadows them.
func (o *rootOptions) override(cfg *config.Config) {
	_ = cfg.ApplyEnv()
	if o.backendURL != "" {
		cfg.BackendURL = o.backendURL
	}
	if o.debug {
		cfg.Debug = true
		cfg.LogLevel = "debug"
	}
}

func (o *rootOptions) manager() (*config.Manager, error) {
	_ = godotenv.Load()
	return config.NewManager(config.WithConfigPath(o.configPath))
}

// effectiveConfig loads the config file and applies environment and flags.
func (o *rootOptions) effectiveConfig() (*config.Manager, config.Config, error) {
	mgr, err := o.manager()
	if err != nil {
		return nil, config.Config{}, err
	}
	cfg := mgr.Get()
	if err := cfg.ApplyEnv(); err != nil {
		return nil, config.Config{}, err
	}
	o.override(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, config.Config{}, err
	}
	return mgr, cfg, nil
}

// appEnv is one wired front-end: runtime, sessions and controller.
type appEnv struct {
	cfg     config.Config
	logger  zerolog.Logger
	runtime *app.Runtime
	ctrl    *controller.AppController

	closers []func()
}

func newAppEnv(opts *rootOptions, stderr io.Writer) (*appEnv, error) {
	mgr, cfg, err := opts.effectiveConfig()
	if err != nil {
		return nil, err
	}

	var console io.Writer
	if cfg.Debug {
		console = stderr
	}
	log, logCloser, err := logger.New(logger.Options{
		Level:   cfg.LogLevel,
		Format:  cfg.LogFormat,
		File:    cfg.LogFile,
		Console: console,
	})
	if err != nil {
		return nil, err
	}
	mgr.SetLogger(log)

	env := &appEnv{cfg: cfg, logger: log}
	env.closers = append(env.closers, func() { _ = logCloser.Close() })

	rec := metrics.New()
	rt, err := app.NewRuntime(mgr,
		app.WithBuilder(app.NewEngineBuilder(log, rec)),
		app.WithOverride(opts.override),
		app.WithLogger(log),
	)
	if err != nil {
		env.Close()
		return nil, fmt.Errorf("start runtime: %w", err)
	}
	env.runtime = rt
	env.closers = append(env.closers, rt.Close)

	if cfg.MetricsAddr != "" {
		ctx, cancel := context.WithCancel(context.Background())
		env.closers = append(env.closers, cancel)
		go func() {
			if err := rec.Serve(ctx, cfg.MetricsAddr, log); err != nil {
				log.Error().Err(err).Str("addr", cfg.MetricsAddr).Msg("metrics server stopped")
			}
		}()
	}

	advice := session.NewAdviceSession(rt, rt.Extractor(), log)
	evaluation := session.NewEvaluationSession(rt, rt, log)
	env.ctrl = controller.New(advice, evaluation, log)
	env.closers = append(env.closers, env.ctrl.Close)

	log.Debug().
		Str("backend", cfg.BackendURL).
		Str("config", mgr.Path()).
		Msg("front-end ready")
	return env, nil
}

// Close releases everything in reverse order of creation.
func (e *appEnv) Close() {
	for i := len(e.closers) - 1; i >= 0; i-- {
		e.closers[i]()
	}
	e.closers = nil
}
