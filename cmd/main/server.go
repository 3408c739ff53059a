package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/CTAG07/quotegen/pkg/markov"
	"github.com/CTAG07/quotegen/pkg/store"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 10 * time.Second

// Server is the HTTP quote API.
type Server struct {
	config  *Config
	logger  *slog.Logger
	handler http.Handler
}

// NewServer wires the API handlers around st.
func NewServer(config *Config, logger *slog.Logger, gen *markov.Generator, st store.Store, authors *AuthorPicker) *Server {
	quoteAPI := NewQuoteAPI(gen, st, authors, config, logger)

	mux := http.NewServeMux()
	quoteAPI.RegisterRoutes(mux)

	return &Server{
		config:  config,
		logger:  logger,
		handler: withRequestLogging(mux, logger),
	}
}

// Run serves HTTP until ctx is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:              s.config.Server.Addr,
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		s.logger.Info("Starting quote API server", "address", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
		close(errChan)
	}()

	select {
	case err := <-errChan:
		if err != nil {
			return fmt.Errorf("quote API server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("Stopping server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("Server shutdown failed", "error", err)
		return err
	}
	s.logger.Info("HTTP server stopped.")
	return nil
}

func (a *app) newServeCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve generated quotes over HTTP",
		Long: `Serve the quote API until interrupted.

Endpoints:
  GET /api/quote?model=&max_chars=&max_attempts=&min_chars=&start=
  GET /api/models
  GET /api/models/{name}/stats
  GET /api/models/{name}/export
  GET /api/version`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if addr != "" {
				a.config.Server.Addr = addr
			}
			authors, err := NewAuthorPicker(a.config.Quote.AuthorsPath, a.config.Quote.MaxAuthorLen, a.config.Quote.DefaultAuthor)
			if err != nil {
				return err
			}
			a.logger.Debug("Authors loaded", "count", authors.Len())
			return a.withStore(func(st store.Store) error {
				return NewServer(a.config, a.logger, a.newGenerator(), st, authors).Run(cmd.Context())
			})
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default: server.addr from the config)")
	return cmd
}
