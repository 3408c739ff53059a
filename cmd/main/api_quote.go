package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"sync"

	"github.com/CTAG07/quotegen/pkg/markov"
	"github.com/CTAG07/quotegen/pkg/store"
)

// QuoteAPI holds the dependencies for the quote and model API handlers.
// Models are loaded from the store on first use and shared read-only
// between requests afterwards.
type QuoteAPI struct {
	gen     *markov.Generator
	store   store.Store
	authors *AuthorPicker
	config  *Config
	logger  *slog.Logger

	mu     sync.RWMutex
	models map[string]*markov.Model
}

// NewQuoteAPI creates a new instance of the QuoteAPI.
func NewQuoteAPI(gen *markov.Generator, st store.Store, authors *AuthorPicker, config *Config, logger *slog.Logger) *QuoteAPI {
	return &QuoteAPI{
		gen:     gen,
		store:   st,
		authors: authors,
		config:  config,
		logger:  logger,
		models:  make(map[string]*markov.Model),
	}
}

// RegisterRoutes sets up the routing for all /api endpoints.
func (q *QuoteAPI) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/quote", q.handleQuote)
	mux.HandleFunc("GET /api/models", q.handleListModels)
	mux.HandleFunc("GET /api/models/{name}/stats", q.handleModelStats)
	mux.HandleFunc("GET /api/models/{name}/export", q.handleModelExport)
	mux.HandleFunc("GET /api/version", handleVersion)
}

// model returns the cached model for name, loading it from the store on a miss.
func (q *QuoteAPI) model(ctx context.Context, name string) (*markov.Model, error) {
	q.mu.RLock()
	m, ok := q.models[name]
	q.mu.RUnlock()
	if ok {
		return m, nil
	}

	m, err := q.store.Load(ctx, name)
	if err != nil {
		return nil, err
	}

	q.mu.Lock()
	// Another request may have loaded it meanwhile; keep the first one.
	if cached, ok := q.models[name]; ok {
		m = cached
	} else {
		q.models[name] = m
	}
	q.mu.Unlock()
	return m, nil
}

// queryInt reads an integer query parameter, falling back to def when absent.
func queryInt(r *http.Request, key string, def int) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("query parameter %q must be an integer", key)
	}
	return v, nil
}

// respondWithModelError maps store and model errors to HTTP status codes.
func (q *QuoteAPI) respondWithModelError(w http.ResponseWriter, r *http.Request, name string, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		respondWithError(w, http.StatusNotFound, fmt.Sprintf("Model %q not found", name))
	case errors.Is(err, store.ErrInvalidName):
		respondWithError(w, http.StatusBadRequest, fmt.Sprintf("Invalid model name %q", name))
	case errors.Is(err, markov.ErrUnknownStart):
		respondWithError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, markov.ErrNoSentenceFound):
		respondWithError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		q.logger.ErrorContext(r.Context(), "Model request failed",
			slog.String("request_id", requestID(r.Context())),
			slog.String("model_name", name),
			slog.Any("error", err),
		)
		respondWithError(w, http.StatusInternalServerError, "Internal Server Error")
	}
}

// handleQuote samples a sentence and returns it as a wrapped, attributed quote.
func (q *QuoteAPI) handleQuote(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("model")
	if name == "" {
		name = q.config.Model.Name
	}
	maxChars, err := queryInt(r, "max_chars", q.config.Model.MaxChars)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	maxAttempts, err := queryInt(r, "max_attempts", q.config.Model.MaxAttempts)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	maxAttempts = min(maxAttempts, q.config.Model.MaxAttemptsLimit)
	minChars, err := queryInt(r, "min_chars", q.config.Model.MinChars)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	m, err := q.model(r.Context(), name)
	if err != nil {
		q.respondWithModelError(w, r, name, err)
		return
	}

	sentence, err := q.gen.Sample(r.Context(), m, maxChars,
		markov.WithMaxAttempts(maxAttempts),
		markov.WithMinChars(minChars),
		markov.WithStart(r.URL.Query().Get("start")),
	)
	if err != nil {
		q.respondWithModelError(w, r, name, err)
		return
	}

	respondWithJSON(w, http.StatusOK, Quote{
		Model:  name,
		Quote:  sentence,
		Lines:  WrapLines(sentence, q.config.Quote.WrapWidth),
		Author: q.authors.Pick(),
	})
}

// handleListModels returns the names of all stored models.
func (q *QuoteAPI) handleListModels(w http.ResponseWriter, r *http.Request) {
	names, err := q.store.List(r.Context())
	if err != nil {
		q.respondWithModelError(w, r, "", err)
		return
	}
	if names == nil {
		names = []string{}
	}
	respondWithJSON(w, http.StatusOK, names)
}

// handleModelStats returns the statistics of a single model.
func (q *QuoteAPI) handleModelStats(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	m, err := q.model(r.Context(), name)
	if err != nil {
		q.respondWithModelError(w, r, name, err)
		return
	}
	respondWithJSON(w, http.StatusOK, m.Stats())
}

// handleModelExport streams the model in its persisted JSON form.
func (q *QuoteAPI) handleModelExport(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	m, err := q.model(r.Context(), name)
	if err != nil {
		q.respondWithModelError(w, r, name, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s.json\"", name))
	if err = markov.Encode(w, m); err != nil {
		q.logger.ErrorContext(r.Context(), "Failed to export model",
			slog.String("request_id", requestID(r.Context())),
			slog.String("model_name", name),
			slog.Any("error", err),
		)
	}
}
