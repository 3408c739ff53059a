package store

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/CTAG07/quotegen/pkg/markov"
	"go.etcd.io/bbolt"
)

var bucketModels = []byte("models")

// BoltStore keeps each model as a JSON value in a single bbolt bucket.
type BoltStore struct {
	db     *bbolt.DB
	logger *slog.Logger
}

// OpenBoltStore opens (and creates if necessary) the bbolt file at path.
// It fails after one second if another process holds the file lock.
func OpenBoltStore(path string, logger *slog.Logger) (*BoltStore, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(bucketModels); err != nil {
			return fmt.Errorf("failed to create bucket %s: %w", bucketModels, err)
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	return &BoltStore{db: db, logger: loggerOrDiscard(logger)}, nil
}

func (s *BoltStore) Save(ctx context.Context, name string, m *markov.Model) error {
	if err := validateName(name); err != nil {
		return err
	}
	data, err := markov.Marshal(m)
	if err != nil {
		return fmt.Errorf("could not encode model %q: %w", name, err)
	}
	err = s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketModels).Put([]byte(name), data)
	})
	if err != nil {
		return fmt.Errorf("could not save model %q: %w", name, err)
	}
	s.logger.InfoContext(ctx, "Model saved",
		slog.String("model_name", name),
		slog.Int("bytes", len(data)),
	)
	return nil
}

func (s *BoltStore) Load(ctx context.Context, name string) (*markov.Model, error) {
	if err := validateName(name); err != nil {
		return nil, err
	}
	var m *markov.Model
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketModels).Get([]byte(name))
		if data == nil {
			return fmt.Errorf("%w: %q", ErrNotFound, name)
		}
		// data is only valid inside the transaction; Unmarshal copies what it keeps.
		var err error
		m, err = markov.Unmarshal(data)
		if err != nil {
			return fmt.Errorf("could not load model %q: %w", name, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.DebugContext(ctx, "Model loaded", slog.String("model_name", name))
	return m, nil
}

func (s *BoltStore) List(_ context.Context) ([]string, error) {
	var names []string
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketModels).ForEach(func(k, _ []byte) error {
			names = append(names, string(k))
			return nil
		})
	})
	return names, err
}

func (s *BoltStore) Delete(ctx context.Context, name string) error {
	if err := validateName(name); err != nil {
		return err
	}
	err := s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketModels)
		if b.Get([]byte(name)) == nil {
			return fmt.Errorf("%w: %q", ErrNotFound, name)
		}
		return b.Delete([]byte(name))
	})
	if err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "Model removed", slog.String("model_name", name))
	return nil
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}
