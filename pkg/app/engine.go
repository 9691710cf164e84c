// Package app keeps the advisor engine in step with the config file.
package app

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/dyike/CortexAdvisor/config"
	"github.com/dyike/CortexAdvisor/consts"
	"github.com/dyike/CortexAdvisor/internal/advisor"
	"github.com/dyike/CortexAdvisor/internal/session"
)

// Engine is everything built from one config snapshot.
type Engine struct {
	Config       config.Config
	Client       *advisor.Client
	Dates        session.DateFormatter
	KnownSymbols []string
	BuiltAt      time.Time
	Version      uint64
}

var engineSeq atomic.Uint64

// NewEngineBuilder returns a builder whose clients log to logger and report
// to recorder, which may be nil.
func NewEngineBuilder(logger zerolog.Logger, recorder advisor.Recorder) EngineBuilder {
	return func(cfg config.Config) (*Engine, error) {
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
		loc, err := cfg.Location()
		if err != nil {
			return nil, err
		}

		known := cfg.KnownSymbols
		if len(known) == 0 {
			known = consts.KnownSymbols
		}

		client := advisor.NewClient(advisor.Options{
			BaseURL:      cfg.BackendURL,
			AdvicePath:   cfg.AdvicePath,
			EvaluatePath: cfg.EvaluatePath,
			Timeout:      cfg.Timeout(),
			Logger:       logger,
			Recorder:     recorder,
		})
		return &Engine{
			Config:       cfg,
			Client:       client,
			Dates:        session.NewDateFormatter(cfg.DateLayout, loc),
			KnownSymbols: append([]string(nil), known...),
			BuiltAt:      time.Now(),
			Version:      engineSeq.Add(1),
		}, nil
	}
}

// BuildEngine builds an engine that logs nowhere and records nothing.
func BuildEngine(cfg config.Config) (*Engine, error) {
	engine, err := NewEngineBuilder(zerolog.Nop(), nil)(cfg)
	if err != nil {
		return nil, fmt.Errorf("build engine: %w", err)
	}
	return engine, nil
}
