// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults and Load(ctx) to layer
//   a file and the environment on top.
// - External errors are wrapped with this package's sentinel errors.
package config

import (
	"fmt"
	"strings"

	"github.com/okian/funnel/internal/domain/model"
)

// Default configuration values.
const (
	defaultAddr           = ":9080"
	defaultMaxUploadBytes = 32 << 20
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// Engine selects the default table engine: memory or sqlite.
	Engine string `koanf:"engine"`

	// DropPrefix prefixes synthetic drop-off labels.
	DropPrefix string `koanf:"drop_prefix"`

	// MaxPathNum caps the number of distinct routes; 0 means no cap.
	MaxPathNum int `koanf:"max_path_num"`

	// MaxVisibleAnswers is the answer top-K; 0 disables bucketing.
	MaxVisibleAnswers int `koanf:"max_visible_answers"`

	// MaxUploadBytes bounds the multipart body of POST /funnel.
	MaxUploadBytes int64 `koanf:"max_upload_bytes"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:          "info",
		Addr:              defaultAddr,
		Engine:            model.EngineMemory,
		DropPrefix:        model.DefaultDropPrefix,
		MaxPathNum:        0,
		MaxVisibleAnswers: model.DefaultMaxVisibleAnswers,
		MaxUploadBytes:    defaultMaxUploadBytes,
	}
}

// Validate reports the first invalid field.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.Engine != model.EngineMemory && c.Engine != model.EngineSQLite:
		return fmt.Errorf("%w: engine must be %q or %q, got %q", ErrInvalidConfig, model.EngineMemory, model.EngineSQLite, c.Engine)
	case c.DropPrefix == "":
		return fmt.Errorf("%w: drop_prefix must not be empty", ErrInvalidConfig)
	case c.MaxPathNum < 0:
		return fmt.Errorf("%w: max_path_num must not be negative", ErrInvalidConfig)
	case c.MaxVisibleAnswers < 0:
		return fmt.Errorf("%w: max_visible_answers must not be negative", ErrInvalidConfig)
	case c.MaxUploadBytes <= 0:
		return fmt.Errorf("%w: max_upload_bytes must be positive", ErrInvalidConfig)
	}
	return nil
}

// Options returns the render options configured as defaults.
func (c *Config) Options() model.Options {
	return model.Options{
		MaxPathNum:        c.MaxPathNum,
		MaxVisibleAnswers: c.MaxVisibleAnswers,
		DropPrefix:        c.DropPrefix,
		Engine:            strings.ToLower(c.Engine),
	}
}
