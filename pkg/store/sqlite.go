package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/CTAG07/quotegen/pkg/markov"
)

const (
	// beginTokenID is the reserved vocabulary ID of markov.Begin.
	beginTokenID = 0
	// endTokenID is the reserved vocabulary ID of markov.End.
	endTokenID = 1
)

// SetupSchema initializes the necessary tables and special vocabulary entries
// in the provided database. It is idempotent and safe to call on an
// already-initialized database.
func SetupSchema(db *sql.DB) error {

	const (
		schemaVocab = `
CREATE TABLE IF NOT EXISTS quote_vocabulary (
    token_id INTEGER PRIMARY KEY,
    token_text TEXT NOT NULL UNIQUE
);
`
		schemaModels = `
CREATE TABLE IF NOT EXISTS quote_models (
    model_id INTEGER PRIMARY KEY,
    model_name TEXT NOT NULL UNIQUE,
    model_order INTEGER NOT NULL
);
`
		schemaChains = `
CREATE TABLE IF NOT EXISTS quote_chains (
    model_id INTEGER NOT NULL,
    state_text TEXT NOT NULL,
    next_token_id INTEGER NOT NULL,
    frequency INTEGER NOT NULL,
    PRIMARY KEY (model_id, state_text, next_token_id)
);
`
	)

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("could not begin transaction: %w", err)
	}
	// If the transaction succeeds, tx.Commit() will be called first, and the rollback will do nothing.
	defer func(tx *sql.Tx) {
		_ = tx.Rollback()
	}(tx)

	for _, schema := range []string{schemaVocab, schemaModels, schemaChains} {
		if _, err = tx.Exec(schema); err != nil {
			return fmt.Errorf("could not create schema: %w", err)
		}
	}

	const insertSpecial = `INSERT OR IGNORE INTO quote_vocabulary (token_id, token_text) VALUES (?, ?);`
	if _, err = tx.Exec(insertSpecial, beginTokenID, markov.Begin); err != nil {
		return fmt.Errorf("could not insert special tokens: %w", err)
	}
	if _, err = tx.Exec(insertSpecial, endTokenID, markov.End); err != nil {
		return fmt.Errorf("could not insert special tokens: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("could not commit transaction: %w", err)
	}
	return nil
}

// SQLiteStore keeps models in a SQLite database. Tokens are interned in a
// shared vocabulary table and each state is stored as the space-separated IDs
// of its tokens.
type SQLiteStore struct {
	db              *sql.DB
	ownsDB          bool
	stmtGetModel    *sql.Stmt
	stmtListModels  *sql.Stmt
	stmtInsertVocab *sql.Stmt
	logger          *slog.Logger
}

// OpenSQLiteStore opens (and creates if necessary) the database at dataSource.
// The returned store closes the database on Close.
func OpenSQLiteStore(dataSource string, logger *slog.Logger) (*SQLiteStore, error) {
	db, err := sql.Open(sqliteDriver, dataSource)
	if err != nil {
		return nil, fmt.Errorf("could not open sqlite database: %w", err)
	}
	s, err := NewSQLiteStore(db, logger)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	s.ownsDB = true
	return s, nil
}

// NewSQLiteStore sets up the schema in db and prepares the statements used by
// the store. The caller keeps ownership of db.
func NewSQLiteStore(db *sql.DB, logger *slog.Logger) (*SQLiteStore, error) {
	if err := SetupSchema(db); err != nil {
		return nil, err
	}

	stmtGetModel, err := db.Prepare(`SELECT model_id, model_order FROM quote_models WHERE model_name = ?;`)
	if err != nil {
		return nil, err
	}

	stmtListModels, err := db.Prepare(`SELECT model_name FROM quote_models ORDER BY model_name;`)
	if err != nil {
		_ = stmtGetModel.Close()
		return nil, err
	}

	stmtInsertVocab, err := db.Prepare(`INSERT INTO quote_vocabulary (token_text) VALUES (?) ON CONFLICT(token_text) DO UPDATE SET token_text=excluded.token_text RETURNING token_id;`)
	if err != nil {
		_ = stmtGetModel.Close()
		_ = stmtListModels.Close()
		return nil, err
	}

	return &SQLiteStore{
		db:              db,
		stmtGetModel:    stmtGetModel,
		stmtListModels:  stmtListModels,
		stmtInsertVocab: stmtInsertVocab,
		logger:          loggerOrDiscard(logger),
	}, nil
}

// Save replaces the model stored under name within a single transaction.
func (s *SQLiteStore) Save(ctx context.Context, name string, m *markov.Model) error {
	if err := validateName(name); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("could not begin transaction for save: %w", err)
	}
	defer func(tx *sql.Tx) {
		_ = tx.Rollback()
	}(tx)

	if err = deleteModel(ctx, tx, name); err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}

	res, err := tx.ExecContext(ctx, "INSERT INTO quote_models (model_name, model_order) VALUES (?, ?)", name, m.Order())
	if err != nil {
		return fmt.Errorf("failed to insert model %q: %w", name, err)
	}
	modelID, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read id of model %q: %w", name, err)
	}

	stmtInsertVocab := tx.StmtContext(ctx, s.stmtInsertVocab)
	stmtInsertChain, err := tx.PrepareContext(ctx, `INSERT INTO quote_chains (model_id, state_text, next_token_id, frequency) VALUES (?, ?, ?, ?);`)
	if err != nil {
		return fmt.Errorf("failed to prepare chain insert statement: %w", err)
	}
	defer func(stmt *sql.Stmt) {
		_ = stmt.Close()
	}(stmtInsertChain)

	vocabCache := map[string]int64{markov.Begin: beginTokenID, markov.End: endTokenID}
	tokenID := func(text string) (int64, error) {
		if id, ok := vocabCache[text]; ok {
			return id, nil
		}
		var id int64
		if err := stmtInsertVocab.QueryRowContext(ctx, text).Scan(&id); err != nil {
			return 0, fmt.Errorf("sql insert vocabulary error for token %q: %w", text, err)
		}
		vocabCache[text] = id
		return id, nil
	}

	records := m.Records()
	var keyBuf []byte
	for _, rec := range records {
		keyBuf = keyBuf[:0]
		for j, tok := range rec.State {
			id, err := tokenID(tok)
			if err != nil {
				return err
			}
			if j > 0 {
				keyBuf = append(keyBuf, ' ')
			}
			keyBuf = strconv.AppendInt(keyBuf, id, 10)
		}
		nextID, err := tokenID(rec.Next)
		if err != nil {
			return err
		}
		if _, err = stmtInsertChain.ExecContext(ctx, modelID, string(keyBuf), nextID, rec.Count); err != nil {
			return fmt.Errorf("failed to insert chain link (%s -> %d): %w", keyBuf, nextID, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("could not commit model %q: %w", name, err)
	}

	s.logger.InfoContext(ctx, "Model saved",
		slog.String("model_name", name),
		slog.Int64("model_id", modelID),
		slog.Int("chains_saved", len(records)),
	)
	return nil
}

// Load reads the model stored under name. Rows that reference unknown tokens
// or do not parse are reported as markov.ErrCorruptModel.
func (s *SQLiteStore) Load(ctx context.Context, name string) (*markov.Model, error) {
	if err := validateName(name); err != nil {
		return nil, err
	}

	var modelID, order int
	err := s.stmtGetModel.QueryRowContext(ctx, name).Scan(&modelID, &order)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %q", ErrNotFound, name)
		}
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `SELECT state_text, next_token_id, frequency FROM quote_chains WHERE model_id = ?`, modelID)
	if err != nil {
		return nil, fmt.Errorf("could not query chains for model %q: %w", name, err)
	}
	defer func(rows *sql.Rows) {
		_ = rows.Close()
	}(rows)

	type row struct {
		stateIDs []int64
		nextID   int64
		count    int
	}
	var chainRows []row
	tokenIDs := make(map[int64]struct{})
	for rows.Next() {
		var stateText string
		var r row
		if err = rows.Scan(&stateText, &r.nextID, &r.count); err != nil {
			return nil, err
		}
		tokenIDs[r.nextID] = struct{}{}
		for _, idStr := range strings.Fields(stateText) {
			id, err := strconv.ParseInt(idStr, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("%w: state %q of model %q", markov.ErrCorruptModel, stateText, name)
			}
			r.stateIDs = append(r.stateIDs, id)
			tokenIDs[id] = struct{}{}
		}
		chainRows = append(chainRows, r)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}

	vocab, err := s.lookupTokens(ctx, tokenIDs)
	if err != nil {
		return nil, err
	}

	records := make([]markov.Record, 0, len(chainRows))
	for _, r := range chainRows {
		state := make([]string, len(r.stateIDs))
		for i, id := range r.stateIDs {
			text, ok := vocab[id]
			if !ok {
				return nil, fmt.Errorf("%w: token id %d of model %q not in vocabulary", markov.ErrCorruptModel, id, name)
			}
			state[i] = text
		}
		next, ok := vocab[r.nextID]
		if !ok {
			return nil, fmt.Errorf("%w: token id %d of model %q not in vocabulary", markov.ErrCorruptModel, r.nextID, name)
		}
		records = append(records, markov.Record{State: state, Next: next, Count: r.count})
	}

	m, err := markov.NewModel(order, records)
	if err != nil {
		return nil, fmt.Errorf("could not load model %q: %w", name, err)
	}
	s.logger.DebugContext(ctx, "Model loaded",
		slog.String("model_name", name),
		slog.Int("model_id", modelID),
		slog.Int("chains_loaded", len(records)),
	)
	return m, nil
}

// lookupTokens resolves vocabulary IDs to their text in batches, to stay under
// SQLite's variable limit.
func (s *SQLiteStore) lookupTokens(ctx context.Context, ids map[int64]struct{}) (map[int64]string, error) {
	const batchSize = 500

	all := make([]any, 0, len(ids))
	for id := range ids {
		all = append(all, id)
	}

	vocab := make(map[int64]string, len(ids))
	for i := 0; i < len(all); i += batchSize {
		batch := all[i:min(i+batchSize, len(all))]
		query := fmt.Sprintf(`SELECT token_id, token_text FROM quote_vocabulary WHERE token_id IN (?%s)`, strings.Repeat(",?", len(batch)-1))
		rows, err := s.db.QueryContext(ctx, query, batch...)
		if err != nil {
			return nil, fmt.Errorf("could not query vocabulary: %w", err)
		}
		for rows.Next() {
			var id int64
			var text string
			if err = rows.Scan(&id, &text); err != nil {
				_ = rows.Close()
				return nil, err
			}
			vocab[id] = text
		}
		_ = rows.Close()
		if err = rows.Err(); err != nil {
			return nil, err
		}
	}
	return vocab, nil
}

func (s *SQLiteStore) List(ctx context.Context) ([]string, error) {
	rows, err := s.stmtListModels.QueryContext(ctx)
	if err != nil {
		return nil, err
	}
	defer func(rows *sql.Rows) {
		_ = rows.Close()
	}(rows)

	var names []string
	for rows.Next() {
		var name string
		if err = rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// Delete removes a model and all of its chain data within a transaction.
// Vocabulary entries are shared between models and are kept.
func (s *SQLiteStore) Delete(ctx context.Context, name string) error {
	if err := validateName(name); err != nil {
		return err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func(tx *sql.Tx) {
		_ = tx.Rollback()
	}(tx)

	if err = deleteModel(ctx, tx, name); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "Model removed", slog.String("model_name", name))
	return tx.Commit()
}

func deleteModel(ctx context.Context, tx *sql.Tx, name string) error {
	var modelID int
	err := tx.QueryRowContext(ctx, "SELECT model_id FROM quote_models WHERE model_name = ?", name).Scan(&modelID)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	if err != nil {
		return fmt.Errorf("failed to query for model %q: %w", name, err)
	}
	if _, err = tx.ExecContext(ctx, "DELETE FROM quote_chains WHERE model_id = ?", modelID); err != nil {
		return fmt.Errorf("failed to remove chains for model %d: %w", modelID, err)
	}
	if _, err = tx.ExecContext(ctx, "DELETE FROM quote_models WHERE model_id = ?", modelID); err != nil {
		return fmt.Errorf("failed to remove model %d: %w", modelID, err)
	}
	return nil
}

// Close releases the prepared statements, and the database if the store opened it.
func (s *SQLiteStore) Close() error {
	_ = s.stmtGetModel.Close()
	_ = s.stmtListModels.Close()
	_ = s.stmtInsertVocab.Close()
	if s.ownsDB {
		return s.db.Close()
	}
	return nil
}
