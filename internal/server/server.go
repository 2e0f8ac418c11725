// Package server wires the application together: it owns the database
// connection, builds the service and handler graph, defines the route table
// and runs the HTTP server with graceful shutdown.
//
// This is the composition root — every dependency is assembled here, in one
// place, and each layer receives only what it needs: services get the store
// interface, handlers get services, nothing reaches around its neighbour.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/sakif/snippet-vault/internal/handler"
	"github.com/sakif/snippet-vault/internal/middleware"
	sqliteRepo "github.com/sakif/snippet-vault/internal/repository/sqlite"
	"github.com/sakif/snippet-vault/internal/service"
)

// Config holds server configuration.
type Config struct {
	Port   int
	DBPath string
}

// Server owns the router and the database connection. The connection is
// opened in New and closed after the HTTP listener has drained.
type Server struct {
	router *chi.Mux
	config Config
	logger *slog.Logger
	db     *sqliteRepo.DB
}

// New opens the store and assembles the full dependency chain:
// sqlite.DB → services → handlers → routes.
func New(cfg Config, logger *slog.Logger) (*Server, error) {
	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		db:     db,
	}
	s.setupRoutes()
	return s, nil
}

func (s *Server) setupRoutes() {
	// Global middleware, in order: request id, real client IP, panic
	// recovery, then our slog request logger.
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.Logger(s.logger))

	snippetService := service.NewSnippetService(s.db, s.logger)
	tagService := service.NewTagService(s.db, s.logger)
	transferService := service.NewTransferService(s.db, s.logger)
	statsService := service.NewStatsService(s.db, s.logger)

	snippetHandler := handler.NewSnippetHandler(snippetService, s.logger)
	tagHandler := handler.NewTagHandler(tagService, s.logger)
	transferHandler := handler.NewTransferHandler(transferService, s.logger)
	statsHandler := handler.NewStatsHandler(statsService, s.logger)

	s.router.Route("/api", func(r chi.Router) {
		r.Get("/snippets", snippetHandler.HandleList)
		r.Post("/snippets", snippetHandler.HandleCreate)
		r.Get("/snippets/{id}", snippetHandler.HandleGetByID)
		r.Put("/snippets/{id}", snippetHandler.HandleUpdate)
		r.Delete("/snippets/{id}", snippetHandler.HandleDelete)
		r.Post("/snippets/{id}/favorite", snippetHandler.HandleToggleFavorite)
		r.Put("/snippets/{id}/tags", snippetHandler.HandleSetTags)
		r.Get("/snippets/{id}/versions", snippetHandler.HandleListVersions)
		r.Get("/snippets/{id}/versions/{version}/diff", snippetHandler.HandleDiff)
		r.Post("/snippets/{id}/versions/{version}/rollback", snippetHandler.HandleRollback)

		r.Get("/tags", tagHandler.HandleList)
		r.Post("/tags", tagHandler.HandleCreate)
		r.Put("/tags/{id}", tagHandler.HandleUpdate)
		r.Delete("/tags/{id}", tagHandler.HandleDelete)

		r.Get("/export", transferHandler.HandleExport)
		r.Get("/export/markdown", transferHandler.HandleExportMarkdown)
		r.Post("/import", transferHandler.HandleImport)
		r.Post("/import/validate", transferHandler.HandleValidate)

		r.Get("/stats", statsHandler.HandleStats)
	})
}

// Start runs the HTTP server until SIGINT/SIGTERM, then drains in-flight
// requests for up to 30 seconds and closes the database — in that order, so
// no request sees a closed store.
func (s *Server) Start() error {
	defer s.db.Close()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("database", s.config.DBPath),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
