package service

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"postboard/app/events"
	"postboard/app/metrics"
	"postboard/app/middleware"
	"postboard/app/repositories"
	"postboard/app/routes"
	"postboard/config"
	"postboard/logger"
)

// Server owns the HTTP listener and everything the routes depend on
type Server struct {
	http            *http.Server
	store           repositories.PostStore
	hub             *events.Hub
	logger          *logger.Logger
	shutdownTimeout time.Duration
	errs            chan error
}

// NewServer opens the configured store and builds the router. The server
// does not listen until Start is called.
func NewServer(cfg *config.Config, log *logger.Logger) (*Server, error) {
	if log == nil {
		log = logger.Nop()
	}

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
	}

	store, err := OpenStore(cfg.Store, log, m)
	if err != nil {
		return nil, err
	}
	if err := store.Init(); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to initialize store: %w", err)
	}

	hub := events.NewHub(log)
	router := routes.SetupRoutes(routes.Dependencies{
		Store:       store,
		Logger:      log,
		Metrics:     m,
		Hub:         hub,
		RateLimiter: middleware.NewRateLimiter(cfg.Security.RateLimitRPS, cfg.Security.RateLimitBurst),
		StaticDir:   cfg.Static.Dir,
	})

	return &Server{
		http: &http.Server{
			Addr:         cfg.Server.Addr(),
			Handler:      router,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
			IdleTimeout:  cfg.Server.IdleTimeout,
		},
		store:           store,
		hub:             hub,
		logger:          log.WithComponent("server"),
		shutdownTimeout: cfg.Server.ShutdownTimeout,
		errs:            make(chan error, 1),
	}, nil
}

// Handler exposes the router, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}

// Start binds the listen address and serves in a background goroutine.
// It returns the bound address, which differs from the configured one when
// port 0 was requested.
func (s *Server) Start() (string, error) {
	ln, err := net.Listen("tcp", s.http.Addr)
	if err != nil {
		return "", fmt.Errorf("failed to listen on %s: %w", s.http.Addr, err)
	}

	addr := ln.Addr().String()
	s.logger.Infow("Listening", "addr", addr)
	go func() {
		if err := s.http.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
			s.logger.Errorw("HTTP server stopped", "error", err.Error())
			s.errs <- err
		}
	}()
	return addr, nil
}

// Errors reports a listener that died on its own
func (s *Server) Errors() <-chan error {
	return s.errs
}

// Stop gracefully shuts down the server, waiting up to the shutdown timeout,
// then disconnects live feed subscribers and closes the store.
func (s *Server) Stop(ctx context.Context) error {
	if s.shutdownTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.shutdownTimeout)
		defer cancel()
	}

	// Hijacked websocket connections are not tracked by Shutdown.
	s.hub.Close()

	err := s.http.Shutdown(ctx)
	if cerr := s.store.Close(); cerr != nil && err == nil {
		err = fmt.Errorf("failed to close store: %w", cerr)
	}
	return err
}
