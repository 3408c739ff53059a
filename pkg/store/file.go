package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/CTAG07/quotegen/pkg/markov"
	"github.com/natefinch/atomic"
)

// FileStore keeps each model as <dir>/<name>.json. Writes are atomic, so a
// reader never sees a half-written model.
type FileStore struct {
	dir    string
	logger *slog.Logger
}

// NewFileStore returns a FileStore rooted at dir, creating it if needed.
func NewFileStore(dir string, logger *slog.Logger) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("could not create model directory: %w", err)
	}
	return &FileStore{dir: dir, logger: loggerOrDiscard(logger)}, nil
}

func (s *FileStore) path(name string) string {
	return filepath.Join(s.dir, name+".json")
}

func (s *FileStore) Save(ctx context.Context, name string, m *markov.Model) error {
	if err := validateName(name); err != nil {
		return err
	}
	data, err := markov.Marshal(m)
	if err != nil {
		return fmt.Errorf("could not encode model %q: %w", name, err)
	}
	if err = atomic.WriteFile(s.path(name), bytes.NewReader(data)); err != nil {
		return fmt.Errorf("could not write model %q: %w", name, err)
	}
	s.logger.InfoContext(ctx, "Model saved",
		slog.String("model_name", name),
		slog.String("path", s.path(name)),
		slog.Int("bytes", len(data)),
	)
	return nil
}

func (s *FileStore) Load(ctx context.Context, name string) (*markov.Model, error) {
	if err := validateName(name); err != nil {
		return nil, err
	}
	f, err := os.Open(s.path(name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %q", ErrNotFound, name)
		}
		return nil, fmt.Errorf("could not open model %q: %w", name, err)
	}
	defer func(f *os.File) {
		_ = f.Close()
	}(f)

	m, err := markov.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("could not load model %q: %w", name, err)
	}
	s.logger.DebugContext(ctx, "Model loaded", slog.String("model_name", name))
	return m, nil
}

func (s *FileStore) List(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("could not list models: %w", err)
	}
	var names []string
	for _, e := range entries {
		name, ok := strings.CutSuffix(e.Name(), ".json")
		if !ok || e.IsDir() || !nameRegex.MatchString(name) {
			continue
		}
		names = append(names, name)
	}
	slices.Sort(names)
	return names, nil
}

func (s *FileStore) Delete(ctx context.Context, name string) error {
	if err := validateName(name); err != nil {
		return err
	}
	if err := os.Remove(s.path(name)); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %q", ErrNotFound, name)
		}
		return fmt.Errorf("could not delete model %q: %w", name, err)
	}
	s.logger.InfoContext(ctx, "Model removed", slog.String("model_name", name))
	return nil
}

func (s *FileStore) Close() error {
	return nil
}
