package myhttp

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"ride-sim/internal/config"
	"ride-sim/internal/emulator/adapters/driver/myhttp/handlers"
	"ride-sim/internal/emulator/adapters/driver/myhttp/middleware"
	"ride-sim/internal/emulator/adapters/driver/myhttp/ws"
	"ride-sim/internal/emulator/core/ports/driver"
	"ride-sim/internal/mylogger"
)

const WaitTime = 10

type Server struct {
	cfg        *config.Config
	srv        *http.Server
	mylog      mylogger.Logger
	fleet      driver.IFleetService
	dispatcher *ws.Dispatcher
	ctx        context.Context
	cancel     context.CancelFunc
	mu         sync.Mutex
	wg         sync.WaitGroup
}

func NewServer(ctx context.Context, mylog mylogger.Logger, cfg *config.Config, fleet driver.IFleetService) *Server {
	return &Server{
		ctx:   ctx,
		cfg:   cfg,
		mylog: mylog,
		fleet: fleet,
	}
}

// Run configures the routes, starts the feed broadcaster and listens. It
// returns when ctx is done or the listener fails.
func (s *Server) Run() error {
	mylog := s.mylog.Action("server_started")

	handler := s.Configure()

	feedCtx, cancel := context.WithCancel(s.ctx)

	s.mu.Lock()
	s.cancel = cancel
	s.srv = &http.Server{
		Addr:              fmt.Sprintf(":%v", s.cfg.Srv.ControlPort),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       time.Minute,
	}
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.dispatcher.Run(feedCtx, s.cfg.Emulator.TickInterval)
	}()

	mylog.WithGroup("details").With("port", s.cfg.Srv.ControlPort).Info("server is running")
	return s.startHTTPServer()
}

// Configure wires handlers and middleware around the fleet service.
func (s *Server) Configure() http.Handler {
	auth := middleware.NewAuthMiddleware(s.cfg.App.JWTSecret)
	fleetHandler := handlers.NewFleetHandler(s.fleet, s.mylog)
	s.dispatcher = ws.NewDispatcher(s.mylog, s.fleet, auth)

	return Router(fleetHandler, s.dispatcher, auth, s.mylog)
}

// Stop provides a programmatic shutdown. Accepts a context for timeout control.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.mylog.Info("Shutting down HTTP server...")

	if s.srv != nil {
		shutdownCtx, cancel := context.WithTimeout(ctx, WaitTime*time.Second)
		defer cancel()

		if err := s.srv.Shutdown(shutdownCtx); err != nil {
			s.mylog.Error("Failed to shut down HTTP server gracefully", err)
			return fmt.Errorf("http server shutdown: %w", err)
		}
	}
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()

	s.mylog.Info("HTTP server shut down gracefully")
	return nil
}

func (s *Server) startHTTPServer() error {
	errCh := make(chan error, 1)

	go func() {
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		} else {
			errCh <- nil
		}
	}()

	select {
	case <-s.ctx.Done():
		return nil
	case err := <-errCh:
		return err
	}
}
