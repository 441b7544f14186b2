package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
)

const shutdownMargin = 10 * time.Second

// ShutdownTimeout is how long a graceful shutdown waits for in-flight
// checkouts. A checkout may spend requestTimeout on its own and the
// inventory commit runs a second, detached requestTimeout after it.
func ShutdownTimeout(requestTimeout time.Duration) time.Duration {
	return 2*requestTimeout + shutdownMargin
}

type Server struct {
	httpServer *http.Server
	logger     *zap.Logger
}

// New builds the HTTP server. writeTimeout must leave room for the slowest
// checkout, payment wait included.
func New(port int, handler http.Handler, writeTimeout time.Duration, logger *zap.Logger) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:         fmt.Sprintf(":%d", port),
			Handler:      handler,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: writeTimeout,
			IdleTimeout:  30 * time.Second,
		},
		logger: logger,
	}
}

func (s *Server) Start() error {
	s.logger.Info("starting server", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down server")
	return s.httpServer.Shutdown(ctx)
}
