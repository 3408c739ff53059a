package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/CTAG07/quotegen/pkg/corpus"
	"github.com/CTAG07/quotegen/pkg/markov"
	"github.com/CTAG07/quotegen/pkg/store"
	"github.com/natefinch/atomic"
	"gopkg.in/yaml.v3"
)

const defaultConfigPath = "./quotegen.yaml"

// ServerConfig holds the configuration for the HTTP quote API.
type ServerConfig struct {
	Addr     string `json:"addr" yaml:"addr"`
	LogLevel string `json:"log_level" yaml:"log_level"`
}

// ModelConfig holds the settings used to build and sample the default model.
type ModelConfig struct {
	Name             string `json:"name" yaml:"name"`
	Order            int    `json:"order" yaml:"order"`
	MaxChars         int    `json:"max_chars" yaml:"max_chars"`
	MaxAttempts      int    `json:"max_attempts" yaml:"max_attempts"`
	MaxAttemptsLimit int    `json:"max_attempts_limit" yaml:"max_attempts_limit"` // ceiling for API requests
	MinChars         int    `json:"min_chars" yaml:"min_chars"`
	WellFormed       bool   `json:"well_formed" yaml:"well_formed"`
}

// CorpusConfig describes where training text comes from.
type CorpusConfig struct {
	Paths      []string `json:"paths" yaml:"paths"`
	MaxBytes   int64    `json:"max_bytes" yaml:"max_bytes"`
	LineBreaks bool     `json:"line_breaks" yaml:"line_breaks"`
}

// QuoteConfig controls how a sampled sentence is laid out as a quote.
type QuoteConfig struct {
	WrapWidth     int    `json:"wrap_width" yaml:"wrap_width"`
	AuthorsPath   string `json:"authors_path" yaml:"authors_path"`
	DefaultAuthor string `json:"default_author" yaml:"default_author"`
	MaxAuthorLen  int    `json:"max_author_len" yaml:"max_author_len"`
}

// Config is the top-level configuration struct that aggregates all other configs.
type Config struct {
	Server ServerConfig `json:"server" yaml:"server"`
	Model  ModelConfig  `json:"model" yaml:"model"`
	Corpus CorpusConfig `json:"corpus" yaml:"corpus"`
	Store  store.Config `json:"store" yaml:"store"`
	Quote  QuoteConfig  `json:"quote" yaml:"quote"`
}

// DefaultConfig creates a configuration with default values.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:     ":7280",
			LogLevel: "info",
		},
		Model: ModelConfig{
			Name:             "quotes",
			Order:            3,
			MaxChars:         100,
			MaxAttempts:      markov.DefaultMaxAttempts,
			MaxAttemptsLimit: 1000,
			WellFormed:       true,
		},
		Corpus: CorpusConfig{
			Paths:    []string{"quotes.txt"},
			MaxBytes: corpus.DefaultMaxBytes,
		},
		Store: *store.DefaultConfig(),
		Quote: QuoteConfig{
			WrapWidth:     35,
			DefaultAuthor: "Michael Scott",
			MaxAuthorLen:  12,
		},
	}
}

// LoadConfig reads the configuration from the file at path. Files ending in
// .json are parsed as JSON, everything else as YAML. Keys missing from the
// file keep their default values. If the file doesn't exist, it is created
// with the defaults.
func LoadConfig(path string) (*Config, error) {
	config := DefaultConfig()
	isJSON := strings.EqualFold(filepath.Ext(path), ".json")

	file, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			var data []byte
			if isJSON {
				data, err = json.MarshalIndent(config, "", "  ")
			} else {
				data, err = yaml.Marshal(config)
			}
			if err != nil {
				return nil, fmt.Errorf("failed to marshal default config: %w", err)
			}
			if err = atomic.WriteFile(path, bytes.NewReader(data)); err != nil {
				// The defaults are still usable without a file on disk.
				fmt.Fprintf(os.Stderr, "warning: failed to write default config file: %v\n", err)
			}
			return config, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if isJSON {
		err = json.Unmarshal(file, config)
	} else {
		err = yaml.Unmarshal(file, config)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err = config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", path, err)
	}
	return config, nil
}

// Validate reports the first setting that cannot work.
func (c *Config) Validate() error {
	switch {
	case c.Model.Order < 1:
		return fmt.Errorf("model.order must be at least 1, got %d", c.Model.Order)
	case c.Model.MaxAttemptsLimit < 1:
		return fmt.Errorf("model.max_attempts_limit must be at least 1, got %d", c.Model.MaxAttemptsLimit)
	case c.Model.Name == "":
		return errors.New("model.name must not be empty")
	case c.Corpus.MaxBytes < 0:
		return fmt.Errorf("corpus.max_bytes must not be negative, got %d", c.Corpus.MaxBytes)
	case c.Quote.WrapWidth < 0:
		return fmt.Errorf("quote.wrap_width must not be negative, got %d", c.Quote.WrapWidth)
	}
	switch c.Store.Driver {
	case "", store.DriverFile, store.DriverSQLite, store.DriverBolt:
	default:
		return fmt.Errorf("unknown store.driver %q", c.Store.Driver)
	}
	return nil
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func newLogger(w io.Writer, level string) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: parseLogLevel(level)}))
}
