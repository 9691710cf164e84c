package config

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestManagerCreatesAndUpdates(t *testing.T) {
	dir := t.TempDir()
	mgr, err := NewManager(WithConfigDir(dir))
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	path := filepath.Join(dir, "config.json")
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("config file not created: %v", err)
	}
	if got := mgr.Get().BackendURL; got != "http://localhost:5050" {
		t.Fatalf("default backend = %q", got)
	}

	if err := mgr.UpdateFromJSON(`{"backend_url":"http://advisor.internal:8080","known_symbols":["AAPL","SHOP"]}`); err != nil {
		t.Fatalf("UpdateFromJSON: %v", err)
	}

	updated := mgr.Get()
	if updated.BackendURL != "http://advisor.internal:8080" {
		t.Fatalf("backend = %s", updated.BackendURL)
	}
	if updated.AdvicePath != "/advice" || updated.DateLayout != "1/2/2006" {
		t.Fatalf("patch reset untouched fields: %+v", updated)
	}
	if len(updated.KnownSymbols) != 2 {
		t.Fatalf("known symbols = %v", updated.KnownSymbols)
	}

	reopened, err := NewManager(WithConfigPath(path))
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if reopened.Get().BackendURL != updated.BackendURL {
		t.Fatalf("update not persisted")
	}
}

func TestManagerRejectsInvalidUpdate(t *testing.T) {
	mgr, err := NewManager(WithConfigDir(t.TempDir()))
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	before := mgr.Get()

	for _, patch := range []string{
		`{"backend_url":"not a url"}`,
		`{"log_level":"loud"}`,
		`{"request_timeout":-1}`,
		`{"known_symbols":["TOOLONG"]}`,
		`{"advice_path":"advice"}`,
		`{`,
	} {
		if err := mgr.UpdateFromJSON(patch); err == nil {
			t.Errorf("UpdateFromJSON(%s) accepted", patch)
		}
	}
	if mgr.Get().BackendURL != before.BackendURL {
		t.Fatal("rejected update changed the config")
	}
}

func TestManagerFillsMissingFieldsWithDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	if err := os.WriteFile(path, []byte(`{"backend_url":"http://example.com","request_timeout":15}`), 0o644); err != nil {
		t.Fatal(err)
	}

	mgr, err := NewManager(WithConfigPath(path))
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	cfg := mgr.Get()
	if cfg.EvaluatePath != "/evaluate" || cfg.LogLevel != "info" {
		t.Fatalf("defaults missing: %+v", cfg)
	}
	if cfg.Timeout() != 15*time.Second {
		t.Fatalf("Timeout = %v", cfg.Timeout())
	}
}

func TestManagerRefusesInvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(`{"log_format":"xml"}`), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := NewManager(WithConfigPath(path))
	if err == nil || !strings.Contains(err.Error(), "LogFormat") {
		t.Fatalf("err = %v", err)
	}
}

func TestManagerWatchReloads(t *testing.T) {
	dir := t.TempDir()
	mgr, err := NewManager(WithConfigDir(dir), WithDebounce(50*time.Millisecond))
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reloaded := make(chan Config, 1)
	if err := mgr.Watch(ctx, func(cfg Config) {
		reloaded <- cfg
	}); err != nil {
		t.Fatalf("Watch: %v", err)
	}

	cfg := mgr.Get()
	cfg.BackendURL = "http://changed.example:9000"

	if err := writeConfig(mgr.Path(), cfg); err != nil {
		t.Fatalf("writeConfig: %v", err)
	}

	select {
	case got := <-reloaded:
		if got.BackendURL != cfg.BackendURL {
			t.Fatalf("reloaded backend = %s", got.BackendURL)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("watcher did not fire on config change")
	}
}

func TestManagerWatchKeepsPreviousOnInvalidEdit(t *testing.T) {
	dir := t.TempDir()
	mgr, err := NewManager(WithConfigDir(dir), WithDebounce(50*time.Millisecond))
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	before := mgr.Get()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reloaded := make(chan Config, 4)
	if err := mgr.Watch(ctx, func(cfg Config) {
		reloaded <- cfg
	}); err != nil {
		t.Fatalf("Watch: %v", err)
	}

	if err := os.WriteFile(mgr.Path(), []byte(`{"log_format":"xml"}`), 0o644); err != nil {
		t.Fatal(err)
	}
	select {
	case got := <-reloaded:
		t.Fatalf("invalid edit reloaded: %+v", got)
	case <-time.After(300 * time.Millisecond):
	}
	if mgr.Get().LogFormat != before.LogFormat {
		t.Fatalf("LogFormat = %q", mgr.Get().LogFormat)
	}

	fixed := before
	fixed.LogFormat = "json"
	if err := writeConfig(mgr.Path(), fixed); err != nil {
		t.Fatalf("writeConfig: %v", err)
	}
	select {
	case got := <-reloaded:
		if got.LogFormat != "json" {
			t.Fatalf("reloaded LogFormat = %q", got.LogFormat)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not pick up the fixed file")
	}
}

func TestManagerUpdateNotifiesOnce(t *testing.T) {
	mgr, err := NewManager(WithConfigDir(t.TempDir()), WithDebounce(20*time.Millisecond))
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changes := make(chan Config, 4)
	if err := mgr.Watch(ctx, func(cfg Config) { changes <- cfg }); err != nil {
		t.Fatalf("Watch: %v", err)
	}
	if err := mgr.UpdateFromJSON(`{"debug":true}`); err != nil {
		t.Fatalf("UpdateFromJSON: %v", err)
	}

	if got := <-changes; !got.Debug {
		t.Fatalf("update not delivered: %+v", got)
	}
	// The watcher sees the write but the file matches what is loaded.
	select {
	case got := <-changes:
		t.Fatalf("update delivered twice: %+v", got)
	case <-time.After(200 * time.Millisecond):
	}
}
