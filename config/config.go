package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix prefixes every environment override, e.g. ADVISOR_BACKEND_URL.
const EnvPrefix = "ADVISOR"

type Config struct {
	BackendURL     string `json:"backend_url" default:"http://localhost:5050" validate:"required,url"`
	AdvicePath     string `json:"advice_path" default:"/advice" validate:"required,startswith=/"`
	EvaluatePath   string `json:"evaluate_path" default:"/evaluate" validate:"required,startswith=/"`
	RequestTimeout int    `json:"request_timeout" validate:"gte=0"` // seconds, 0 waits forever

	// Preferred symbols for extraction; empty means the built-in list.
	KnownSymbols []string `json:"known_symbols" validate:"dive,alpha,min=2,max=5"`

	DateLayout string `json:"date_layout" default:"1/2/2006" validate:"required"`
	TimeZone   string `json:"time_zone" validate:"omitempty,timezone"`

	LogLevel  string `json:"log_level" default:"info" validate:"oneof=trace debug info warn error disabled"`
	LogFormat string `json:"log_format" default:"console" validate:"oneof=console json"`
	LogFile   string `json:"log_file"`

	MetricsAddr string `json:"metrics_addr" validate:"omitempty,hostname_port"`
	Debug       bool   `json:"debug"`
}

// envOverrides mirrors Config with pointers so unset variables leave the
// loaded value alone.
type envOverrides struct {
	BackendURL     *string  `envconfig:"BACKEND_URL"`
	AdvicePath     *string  `envconfig:"ADVICE_PATH"`
	EvaluatePath   *string  `envconfig:"EVALUATE_PATH"`
	RequestTimeout *int     `envconfig:"REQUEST_TIMEOUT"`
	KnownSymbols   []string `envconfig:"KNOWN_SYMBOLS"`
	DateLayout     *string  `envconfig:"DATE_LAYOUT"`
	TimeZone       *string  `envconfig:"TIME_ZONE"`
	LogLevel       *string  `envconfig:"LOG_LEVEL"`
	LogFormat      *string  `envconfig:"LOG_FORMAT"`
	LogFile        *string  `envconfig:"LOG_FILE"`
	MetricsAddr    *string  `envconfig:"METRICS_ADDR"`
	Debug          *bool    `envconfig:"DEBUG"`
}

var validate = validator.New()

// DefaultConfig returns the defaults with .env and ADVISOR_* overrides applied.
func DefaultConfig() *Config {
	currentDir, _ := os.Getwd()
	cfg := DefaultConfigWithRoot(currentDir)

	_ = godotenv.Load()
	_ = cfg.ApplyEnv()
	return cfg
}

// DefaultConfigWithRoot returns the defaults, logging into root/logs.
func DefaultConfigWithRoot(root string) *Config {
	cfg := &Config{}
	_ = defaults.Set(cfg)
	if root != "" {
		cfg.LogFile = filepath.Join(root, "logs", "advisor.log")
	}
	return cfg
}

// ApplyEnv overlays ADVISOR_* environment variables onto c.
func (c *Config) ApplyEnv() error {
	var env envOverrides
	if err := envconfig.Process(EnvPrefix, &env); err != nil {
		return fmt.Errorf("read environment: %w", err)
	}

	setString(&c.BackendURL, env.BackendURL)
	setString(&c.AdvicePath, env.AdvicePath)
	setString(&c.EvaluatePath, env.EvaluatePath)
	setString(&c.DateLayout, env.DateLayout)
	setString(&c.TimeZone, env.TimeZone)
	setString(&c.LogLevel, env.LogLevel)
	setString(&c.LogFormat, env.LogFormat)
	setString(&c.LogFile, env.LogFile)
	setString(&c.MetricsAddr, env.MetricsAddr)
	if env.RequestTimeout != nil {
		c.RequestTimeout = *env.RequestTimeout
	}
	if env.Debug != nil {
		c.Debug = *env.Debug
	}
	if len(env.KnownSymbols) > 0 {
		c.KnownSymbols = env.KnownSymbols
	}
	return nil
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

// Validate checks every field against its validate tag.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, e := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q", e.Namespace(), e.Tag()))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Location resolves TimeZone; empty means the local zone.
func (c Config) Location() (*time.Location, error) {
	if c.TimeZone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.TimeZone)
	if err != nil {
		return nil, fmt.Errorf("load time zone %s: %w", c.TimeZone, err)
	}
	return loc, nil
}

func (c Config) Timeout() time.Duration {
	return time.Duration(c.RequestTimeout) * time.Second
}

func (c Config) EnsureDirectories() error {
	path := strings.TrimSpace(c.LogFile)
	if path == "" {
		return nil
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory %s: %w", dir, err)
	}
	return nil
}

// loadConfigFromFile reads path over the defaults, so fields missing from
// the file keep their default values.
func loadConfigFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var loaded Config
	if err := defaults.Set(&loaded); err != nil {
		return fmt.Errorf("apply defaults: %w", err)
	}
	if err := json.Unmarshal(data, &loaded); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	*cfg = loaded
	return nil
}
