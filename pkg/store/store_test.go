package store

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	"github.com/CTAG07/quotegen/pkg/markov"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.etcd.io/bbolt"
)

func testModel(t *testing.T, order int) *markov.Model {
	t.Helper()
	m, err := markov.Build([][]string{
		{"Would", "I", "rather", "be", "feared", "or", "loved?"},
		{"Easy,", "both."},
		{"I", "want", "people", "to", "be", "afraid", "of", "how", "much", "they", "love", "me."},
	}, order)
	require.NoError(t, err)
	return m
}

type storeFactory func(t *testing.T) Store

func factories() map[string]storeFactory {
	return map[string]storeFactory{
		DriverFile: func(t *testing.T) Store {
			s, err := NewFileStore(filepath.Join(t.TempDir(), "models"), nil)
			require.NoError(t, err)
			return s
		},
		DriverSQLite: func(t *testing.T) Store {
			s, err := OpenSQLiteStore(filepath.Join(t.TempDir(), "quotegen.db"), nil)
			require.NoError(t, err)
			return s
		},
		DriverBolt: func(t *testing.T) Store {
			s, err := OpenBoltStore(filepath.Join(t.TempDir(), "quotegen.bolt"), nil)
			require.NoError(t, err)
			return s
		},
	}
}

func TestStoreConformance(t *testing.T) {
	for driver, open := range factories() {
		t.Run(driver, func(t *testing.T) {
			ctx := context.Background()
			s := open(t)
			defer s.Close()

			names, err := s.List(ctx)
			require.NoError(t, err)
			assert.Empty(t, names)

			_, err = s.Load(ctx, "missing")
			assert.ErrorIs(t, err, ErrNotFound)
			assert.ErrorIs(t, s.Delete(ctx, "missing"), ErrNotFound)

			m2 := testModel(t, 2)
			m3 := testModel(t, 3)
			require.NoError(t, s.Save(ctx, "scott", m2))
			require.NoError(t, s.Save(ctx, "dwight", m3))

			loaded, err := s.Load(ctx, "scott")
			require.NoError(t, err)
			assert.Equal(t, 2, loaded.Order())
			if diff := cmp.Diff(m2.Records(), loaded.Records()); diff != "" {
				t.Errorf("Load(scott) records mismatch (-want +got):\n%s", diff)
			}

			// Saving again replaces the model.
			require.NoError(t, s.Save(ctx, "scott", m3))
			loaded, err = s.Load(ctx, "scott")
			require.NoError(t, err)
			assert.Equal(t, 3, loaded.Order())
			if diff := cmp.Diff(m3.Records(), loaded.Records()); diff != "" {
				t.Errorf("Load(scott) after overwrite mismatch (-want +got):\n%s", diff)
			}

			names, err = s.List(ctx)
			require.NoError(t, err)
			assert.Equal(t, []string{"dwight", "scott"}, names)

			require.NoError(t, s.Delete(ctx, "dwight"))
			_, err = s.Load(ctx, "dwight")
			assert.ErrorIs(t, err, ErrNotFound)

			names, err = s.List(ctx)
			require.NoError(t, err)
			assert.Equal(t, []string{"scott"}, names)
		})
	}
}

func TestStoreRejectsInvalidNames(t *testing.T) {
	for driver, open := range factories() {
		t.Run(driver, func(t *testing.T) {
			ctx := context.Background()
			s := open(t)
			defer s.Close()

			for _, name := range []string{"", "../escape", ".hidden", "a/b", "white space"} {
				assert.ErrorIs(t, s.Save(ctx, name, testModel(t, 1)), ErrInvalidName, "Save(%q)", name)
				_, err := s.Load(ctx, name)
				assert.ErrorIs(t, err, ErrInvalidName, "Load(%q)", name)
				assert.ErrorIs(t, s.Delete(ctx, name), ErrInvalidName, "Delete(%q)", name)
			}
		})
	}
}

func TestFileStoreCorruptModel(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	s, err := NewFileStore(dir, nil)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.json"), []byte(`{"order":2,"chain":[`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.txt"), []byte("not a model"), 0o644))

	_, err = s.Load(ctx, "broken")
	assert.ErrorIs(t, err, markov.ErrCorruptModel)

	names, err := s.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"broken"}, names)
}

func TestSQLiteStoreCorruptModel(t *testing.T) {
	ctx := context.Background()
	s, err := OpenSQLiteStore(filepath.Join(t.TempDir(), "quotegen.db"), nil)
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Save(ctx, "scott", testModel(t, 2)))

	_, err = s.db.Exec(`UPDATE quote_chains SET state_text = 'x y' WHERE rowid = (SELECT MIN(rowid) FROM quote_chains)`)
	require.NoError(t, err)
	_, err = s.Load(ctx, "scott")
	assert.ErrorIs(t, err, markov.ErrCorruptModel)

	_, err = s.db.Exec(`UPDATE quote_chains SET state_text = '0 999999' WHERE rowid = (SELECT MIN(rowid) FROM quote_chains)`)
	require.NoError(t, err)
	_, err = s.Load(ctx, "scott")
	assert.ErrorIs(t, err, markov.ErrCorruptModel)
}

func TestSQLiteStoreUnknownNextToken(t *testing.T) {
	ctx := context.Background()
	s, err := OpenSQLiteStore(filepath.Join(t.TempDir(), "quotegen.db"), nil)
	require.NoError(t, err)
	defer s.Close()

	m, err := markov.Build([][]string{{"a", "b"}}, 1)
	require.NoError(t, err)
	require.NoError(t, s.Save(ctx, "ab", m))

	// Point the a -> b link at a token that is not in the vocabulary.
	res, err := s.db.Exec(`UPDATE quote_chains SET next_token_id = 9999
		WHERE next_token_id = (SELECT token_id FROM quote_vocabulary WHERE token_text = 'b')`)
	require.NoError(t, err)
	n, err := res.RowsAffected()
	require.NoError(t, err)
	require.EqualValues(t, 1, n)

	loaded, err := s.Load(ctx, "ab")
	assert.ErrorIs(t, err, markov.ErrCorruptModel)
	assert.Nil(t, loaded)
}

func TestNewSQLiteStoreFailedPrepare(t *testing.T) {
	db, err := sql.Open(sqliteDriver, filepath.Join(t.TempDir(), "legacy.db"))
	require.NoError(t, err)
	defer db.Close()

	// Without a unique token_text the vocabulary upsert cannot be prepared,
	// after the model statements already were.
	_, err = db.Exec(`CREATE TABLE quote_vocabulary (token_id INTEGER PRIMARY KEY, token_text TEXT NOT NULL)`)
	require.NoError(t, err)

	s, err := NewSQLiteStore(db, nil)
	assert.Error(t, err)
	assert.Nil(t, s)
	require.NoError(t, db.Ping())
}

func TestSQLiteStoreSharesVocabulary(t *testing.T) {
	ctx := context.Background()
	db, err := sql.Open(sqliteDriver, filepath.Join(t.TempDir(), "shared.db"))
	require.NoError(t, err)
	defer db.Close()

	s, err := NewSQLiteStore(db, nil)
	require.NoError(t, err)

	m := testModel(t, 2)
	require.NoError(t, s.Save(ctx, "a", m))
	var vocabAfterFirst int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM quote_vocabulary`).Scan(&vocabAfterFirst))

	require.NoError(t, s.Save(ctx, "b", m))
	var vocabAfterSecond int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM quote_vocabulary`).Scan(&vocabAfterSecond))
	assert.Equal(t, vocabAfterFirst, vocabAfterSecond)

	require.NoError(t, s.Delete(ctx, "a"))
	var chains int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM quote_chains`).Scan(&chains))
	assert.Equal(t, len(m.Records()), chains)

	// The store does not own db.
	require.NoError(t, s.Close())
	require.NoError(t, db.Ping())
}

func TestBoltStoreCorruptModel(t *testing.T) {
	ctx := context.Background()
	s, err := OpenBoltStore(filepath.Join(t.TempDir(), "quotegen.bolt"), nil)
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketModels).Put([]byte("broken"), []byte(`{"order":0,"chain":[]}`))
	}))
	_, err = s.Load(ctx, "broken")
	assert.ErrorIs(t, err, markov.ErrCorruptModel)
}

func TestOpenSelectsDriver(t *testing.T) {
	dir := t.TempDir()
	cfg := &Config{
		Dir:        filepath.Join(dir, "models"),
		SQLitePath: filepath.Join(dir, "quotegen.db"),
		BoltPath:   filepath.Join(dir, "quotegen.bolt"),
	}

	for driver, want := range map[string]any{
		"":           &FileStore{},
		DriverFile:   &FileStore{},
		DriverSQLite: &SQLiteStore{},
		DriverBolt:   &BoltStore{},
	} {
		cfg.Driver = driver
		s, err := Open(cfg, nil)
		require.NoError(t, err, "Open(%q)", driver)
		assert.IsType(t, want, s)
		require.NoError(t, s.Close())
	}

	cfg.Driver = "redis"
	_, err := Open(cfg, nil)
	assert.Error(t, err)
}
