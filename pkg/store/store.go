// Package store persists trained models. Every implementation writes the same
// records the markov package serializes and validates them again on load, so a
// damaged store surfaces as markov.ErrCorruptModel rather than a bad model.
package store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"regexp"

	"github.com/CTAG07/quotegen/pkg/markov"
)

var (
	// ErrNotFound is returned when no model is stored under a name.
	ErrNotFound = errors.New("store: model not found")
	// ErrInvalidName is returned for names that are not safe as file or key names.
	ErrInvalidName = errors.New("store: invalid model name")
)

var nameRegex = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]{0,63}$`)

// Store is a named collection of models.
type Store interface {
	// Save stores m under name, replacing any previous model of that name.
	Save(ctx context.Context, name string, m *markov.Model) error
	// Load returns the model stored under name, or ErrNotFound.
	Load(ctx context.Context, name string) (*markov.Model, error)
	// List returns the names of all stored models in lexical order.
	List(ctx context.Context) ([]string, error)
	// Delete removes the model stored under name, or returns ErrNotFound.
	Delete(ctx context.Context, name string) error
	// Close releases the resources held by the store.
	Close() error
}

const (
	DriverFile   = "file"
	DriverSQLite = "sqlite"
	DriverBolt   = "bolt"
)

// Config selects and configures a Store implementation.
type Config struct {
	Driver     string `json:"driver" yaml:"driver"`
	Dir        string `json:"dir" yaml:"dir"`
	SQLitePath string `json:"sqlite_path" yaml:"sqlite_path"`
	BoltPath   string `json:"bolt_path" yaml:"bolt_path"`
}

// DefaultConfig returns a file store under ./data/models.
func DefaultConfig() *Config {
	return &Config{
		Driver:     DriverFile,
		Dir:        "./data/models",
		SQLitePath: "./data/quotegen.db?_journal_mode=WAL&_busy_timeout=5000",
		BoltPath:   "./data/quotegen.bolt",
	}
}

// Open creates the Store selected by cfg.Driver.
func Open(cfg *Config, logger *slog.Logger) (Store, error) {
	switch cfg.Driver {
	case DriverFile, "":
		return NewFileStore(cfg.Dir, logger)
	case DriverSQLite:
		return OpenSQLiteStore(cfg.SQLitePath, logger)
	case DriverBolt:
		return OpenBoltStore(cfg.BoltPath, logger)
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}

func validateName(name string) error {
	if !nameRegex.MatchString(name) {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}

func loggerOrDiscard(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return logger
}
