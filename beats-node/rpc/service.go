// Package rpc serves the public Beats HTTP API.
package rpc

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	"github.com/provenonce/beats/beats-node/rpc/beats"
	"github.com/provenonce/beats/runtime"
	"github.com/rs/cors"
	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("prefix", "rpc")

var _ runtime.Service = (*Service)(nil)

// Config parameters for the HTTP service.
type Config struct {
	HTTPAddr string
	Handler  *beats.Server
}

// Service serves the JSON API over HTTP.
type Service struct {
	cfg          *Config
	server       *http.Server
	ctx          context.Context
	cancel       context.CancelFunc
	startFailure error
}

// NewService wires the routes and CORS policy around the handler set. The
// cron route is mounted outside the CORS middleware: it is called by a
// scheduler, never a browser, and must not advertise cross-origin access.
func NewService(ctx context.Context, cfg *Config) (*Service, error) {
	if cfg.Handler == nil {
		return nil, errors.New("handler is required")
	}
	ctx, cancel := context.WithCancel(ctx)

	router := mux.NewRouter()
	h := cfg.Handler
	router.HandleFunc("/api/health", h.GetHealth).Methods(http.MethodGet)
	router.HandleFunc("/api/v1/beat/anchor", h.GetAnchor).Methods(http.MethodGet)
	router.HandleFunc("/api/v1/beat/key", h.GetKeys).Methods(http.MethodGet)
	router.HandleFunc("/api/v1/beat/verify", h.GetVerify).Methods(http.MethodGet)
	router.HandleFunc("/api/v1/beat/verify", h.PostVerify).Methods(http.MethodPost)
	router.HandleFunc("/api/v1/beat/timestamp", h.PostTimestamp).Methods(http.MethodPost)
	router.HandleFunc("/api/v1/beat/work-proof", h.PostWorkProof).Methods(http.MethodPost)

	corsHandler := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Authorization", beats.TierHeader},
	}).Handler(router)

	root := http.NewServeMux()
	root.HandleFunc("/api/cron/anchor", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.GetCronAnchor(w, r)
	})
	root.Handle("/", corsHandler)

	return &Service{
		cfg: cfg,
		server: &http.Server{
			Addr:              cfg.HTTPAddr,
			Handler:           root,
			ReadHeaderTimeout: time.Second,
		},
		ctx:    ctx,
		cancel: cancel,
	}, nil
}

// Start the HTTP service.
func (s *Service) Start() {
	go func() {
		log.WithField("address", s.cfg.HTTPAddr).Info("Starting HTTP server")
		if err := s.server.ListenAndServe(); err != http.ErrServerClosed {
			log.WithError(err).Error("Failed to start HTTP server")
			s.startFailure = err
		}
	}()
}

// Status returns an error when the server failed to start.
func (s *Service) Status() error {
	return s.startFailure
}

// Stop the HTTP server with a graceful shutdown.
func (s *Service) Stop() error {
	if s.server != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(s.ctx, 2*time.Second)
		defer shutdownCancel()
		if err := s.server.Shutdown(shutdownCtx); err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				log.Warn("Existing connections terminated")
			} else {
				log.WithError(err).Error("Failed to gracefully shut down server")
			}
		}
	}
	s.cancel()
	return nil
}
