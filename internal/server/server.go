// Package server exposes the credential, connection, upload and
// registration operations as a local HTTP API for the marketplace front-end.
package server

import (
	"context"
	"errors"
	nethttp "net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"golang.org/x/sync/errgroup"

	"github.com/ipdata/ipdata/internal/cloud/connection"
	"github.com/ipdata/ipdata/internal/cloud/upload"
	"github.com/ipdata/ipdata/internal/config"
	"github.com/ipdata/ipdata/internal/constants"
	"github.com/ipdata/ipdata/internal/logging"
	"github.com/ipdata/ipdata/internal/models"
)

// CredentialStore is the credential resolver as seen by the API.
type CredentialStore interface {
	ResolveWithSource() (models.StorageCredentials, models.CredentialSource)
	Environment() config.StorageEnv
	Save(creds models.StorageCredentials) error
}

// ConnectionTester probes a credential set.
type ConnectionTester interface {
	TestConnection(ctx context.Context, creds models.StorageCredentials) (*connection.Report, error)
}

// SessionRunner runs upload sessions.
type SessionRunner interface {
	UploadAll(ctx context.Context, files []upload.FileRef, target upload.Target, destinationPath string, onProgress upload.ProgressFunc) (*upload.SessionResult, error)
}

// Registrar submits IP assets.
type Registrar interface {
	Register(ctx context.Context, asset models.IPAsset) (string, error)
}

// Options wires a Server. Registry may be nil when no registry URL is set.
type Options struct {
	Config      *config.Config
	Credentials CredentialStore
	Connection  ConnectionTester
	Uploads     SessionRunner
	Registry    Registrar
	Logger      *logging.Logger
}

// Server is the local HTTP API.
type Server struct {
	cfg      *config.Config
	creds    CredentialStore
	conn     ConnectionTester
	uploads  SessionRunner
	registry Registrar
	logger   *logging.Logger
	router   chi.Router
}

// New builds the server and its routes.
func New(opts Options) *Server {
	s := &Server{
		cfg:      opts.Config,
		creds:    opts.Credentials,
		conn:     opts.Connection,
		uploads:  opts.Uploads,
		registry: opts.Registry,
		logger:   opts.Logger,
	}
	if s.logger == nil {
		s.logger = logging.NewNopLogger()
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(s.logger))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins(s.cfg),
		AllowedMethods: []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         constants.CorsMaxAgeSeconds,
	}))

	r.Get("/healthz", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Get("/credentials", s.handleGetCredentials)
		r.Put("/credentials", s.handleSaveCredentials)
		r.Post("/connection/test", s.handleTestConnection)
		r.Post("/uploads", s.handleUpload)
		r.Post("/register", s.handleRegister)
	})

	return r
}

// Handler returns the root handler.
func (s *Server) Handler() nethttp.Handler {
	return s.router
}

// Run serves on the configured address until ctx is cancelled, then shuts
// down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &nethttp.Server{
		Addr:              s.cfg.ListenAddr,
		Handler:           s.router,
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.logger.Info().Str("addr", srv.Addr).Str("env", s.cfg.AppEnv).Msg("API server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, nethttp.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		s.logger.Info().Msg("Shutting down API server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), constants.ServerShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func allowedOrigins(cfg *config.Config) []string {
	if cfg == nil {
		return []string{constants.CorsWildcardOrigin}
	}
	return cfg.AllowedOrigins()
}
