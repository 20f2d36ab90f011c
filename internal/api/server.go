// Package api provides the HTTP API server for the relocation platform.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/relohub/platform/internal/api/handlers"
	"github.com/relohub/platform/internal/api/health"
	"github.com/relohub/platform/internal/api/middleware"
	"github.com/relohub/platform/internal/auth"
	"github.com/relohub/platform/internal/chat"
	"github.com/relohub/platform/internal/identity"
	"github.com/relohub/platform/internal/invite"
	"github.com/relohub/platform/internal/listings"
	"github.com/relohub/platform/internal/models"
	"github.com/relohub/platform/internal/storage"
	"github.com/relohub/platform/internal/store"
	"github.com/relohub/platform/pkg/config"
)

// Version is the current version of the API server.
// This should be set at build time using ldflags.
var Version = "dev"

// Server represents the HTTP API server.
type Server struct {
	router        chi.Router
	httpServer    *http.Server
	store         store.Store
	auth          *auth.Service
	identity      identity.Provider
	blobs         storage.BlobStore
	config        *config.Config
	logger        *slog.Logger
	healthChecker *health.Checker
}

// NewServer creates a new API server with the given dependencies. The
// pinger is the database handle used for health checks; pass the concrete
// store.
func NewServer(cfg *config.Config, st store.Store, pinger health.Pinger, authSvc *auth.Service, provider identity.Provider, blobs storage.BlobStore, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		store:    st,
		auth:     authSvc,
		identity: provider,
		blobs:    blobs,
		config:   cfg,
		logger:   logger,
	}

	s.healthChecker = health.NewChecker(pinger, Version)

	s.setupRouter()
	return s
}

// setupRouter configures the router with middleware and routes.
func (s *Server) setupRouter() {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger(s.logger))
	r.Use(middleware.Recovery(s.logger))
	r.Use(chimiddleware.Timeout(60 * time.Second))

	// Health check endpoint (no auth required)
	r.Get("/health", s.healthChecker.Handler())

	inviteService := invite.NewService(s.store, s.logger)
	chatService := chat.NewService(s.store, s.config.Chat.PageSize, s.logger)
	searcher := listings.NewClaudeSearcher(listings.Config{
		BaseURL: s.config.Listings.BaseURL,
		APIKey:  s.config.Listings.APIKey,
		Model:   s.config.Listings.Model,
		Timeout: s.config.Listings.Timeout,
	}, s.logger)
	listingsService := listings.NewService(s.store, searcher, s.logger)

	authHandler := handlers.NewAuthHandler(s.store, s.auth, s.identity, s.config.Admin, s.logger)
	invitationsHandler := handlers.NewInvitationsHandler(s.store, inviteService, s.logger)

	// Auth routes (no auth required)
	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", authHandler.Register)
		r.Post("/login", authHandler.Login)
		// Code preview for the redemption form (public)
		r.Get("/invite/{code}", invitationsHandler.Check)
	})

	clientsHandler := handlers.NewClientsHandler(s.store, s.logger)
	agentsHandler := handlers.NewAgentsHandler(s.store, s.logger)
	tasksHandler := handlers.NewTasksHandler(s.store, s.logger)
	housingHandler := handlers.NewHousingHandler(s.store, s.logger)
	chatHandler := handlers.NewChatHandler(chatService, s.logger)
	listingsHandler := handlers.NewListingsHandler(listingsService, s.logger)
	documentsHandler := handlers.NewDocumentsHandler(s.store, s.blobs, s.config.Storage.MaxUploadSize, s.logger)
	adminHandler := handlers.NewAdminHandler(s.store, s.identity, s.logger)

	pollLimiter := middleware.NewRateLimiter(s.config.Chat.PollRate, s.config.Chat.PollBurst)

	requireClient := middleware.RequireRole(models.RoleClient)
	requireAgent := middleware.RequireRole(models.RoleAgent)
	requireAdmin := middleware.RequireRole(models.RoleAdmin)

	// API v1 routes
	r.Route("/v1", func(r chi.Router) {
		authMiddleware := middleware.NewAuthMiddleware(s.auth, s.logger)
		r.Use(authMiddleware.Authenticate)

		// Invitation lifecycle. Agents mint and manage codes; clients
		// redeem them.
		r.Route("/invitations", func(r chi.Router) {
			r.With(requireAgent).Post("/", invitationsHandler.Create)
			r.With(requireAgent).Get("/", invitationsHandler.List)
			r.With(requireAgent).Delete("/{invitationID}", invitationsHandler.Revoke)
			r.With(requireClient).Post("/redeem", invitationsHandler.Redeem)
		})

		// Calling client's own record
		r.Route("/clients", func(r chi.Router) {
			r.With(requireClient).Get("/me", clientsHandler.GetMe)
			r.With(requireClient).Patch("/me", clientsHandler.UpdateMe)

			// Per-client workspaces. Handlers authorize the caller as
			// the client themselves, their assigned agent, or an admin.
			r.Route("/{clientID}", func(r chi.Router) {
				r.Route("/tasks", func(r chi.Router) {
					r.Post("/", tasksHandler.Create)
					r.Get("/", tasksHandler.List)
				})
				r.Route("/housing", func(r chi.Router) {
					r.Get("/", housingHandler.Get)
					r.Put("/", housingHandler.Put)
				})
				r.Route("/messages", func(r chi.Router) {
					r.Post("/", chatHandler.Send)
					r.With(pollLimiter.Limit).Get("/", chatHandler.Poll)
				})
				r.Route("/listings", func(r chi.Router) {
					r.Post("/", listingsHandler.Save)
					r.Get("/", listingsHandler.List)
				})
				r.Route("/documents", func(r chi.Router) {
					r.Post("/", documentsHandler.Upload)
					r.Get("/", documentsHandler.List)
				})
			})
		})

		// Task item routes
		r.Route("/tasks/{taskID}", func(r chi.Router) {
			r.Patch("/", tasksHandler.Update)
			r.Delete("/", tasksHandler.Delete)
			r.Post("/complete", tasksHandler.Complete)
			r.Post("/reopen", tasksHandler.Reopen)
		})

		// Listing search and item routes
		r.Post("/listings/search", listingsHandler.Search)
		r.Route("/listings/{listingID}", func(r chi.Router) {
			r.Patch("/", listingsHandler.Annotate)
			r.Delete("/", listingsHandler.Delete)
		})

		// Document download
		r.Get("/documents/{documentID}/download", documentsHandler.Download)

		// Calling agent's own record and roster
		r.Route("/agents", func(r chi.Router) {
			r.With(requireAgent).Get("/me", agentsHandler.GetMe)
			r.With(requireAgent).Get("/me/clients", agentsHandler.ListClients)
		})

		// Admin routes
		r.Route("/admin", func(r chi.Router) {
			r.Use(requireAdmin)
			r.Get("/agents", adminHandler.ListAgents)
			r.Post("/agents/{agentID}/approve", adminHandler.ApproveAgent)
			r.Get("/stats", adminHandler.Stats)
		})
	})

	s.router = r
}

// Start starts the HTTP server.
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.config.APIHost, s.config.APIPort)
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	s.logger.Info("starting API server", "addr", addr)

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		return s.Shutdown(context.Background())
	}
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down API server")
	shutdownCtx, cancel := context.WithTimeout(ctx, s.config.ShutdownTimeout)
	defer cancel()
	return s.httpServer.Shutdown(shutdownCtx)
}

// Router returns the chi router for testing purposes.
func (s *Server) Router() chi.Router {
	return s.router
}
