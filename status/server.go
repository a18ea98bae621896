package status

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/kbukum/gokernel/logger"
	"github.com/kbukum/gokernel/providers"
)

const (
	readTimeout     = 5 * time.Second
	shutdownTimeout = 5 * time.Second
)

// Server exposes provider states over HTTP using a Gin engine.
type Server struct {
	httpServer *http.Server
	engine     *gin.Engine
	registry   *providers.Registry
	service    string
	version    string
	log        *logger.Logger

	mu       sync.Mutex
	listener net.Listener
}

// New creates a status server listening on addr once started.
func New(addr, service, version string, registry *providers.Registry, log *logger.Logger) *Server {
	if zerolog.GlobalLevel() <= zerolog.DebugLevel {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	if log == nil {
		log = logger.Get("status")
	}

	engine := gin.New()
	s := &Server{
		engine:   engine,
		registry: registry,
		service:  service,
		version:  version,
		log:      log.WithComponent("status"),
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           engine,
			ReadHeaderTimeout: readTimeout,
		},
	}

	engine.Use(Recovery(s.log), RequestID())
	s.routes()
	return s
}

func (s *Server) routes() {
	s.engine.GET("/providers", s.listProviders)
	s.engine.GET("/providers/:name", s.getProvider)
	s.engine.GET("/health", s.health)
	s.engine.GET("/version", versionInfo)
}

// Handler returns the HTTP handler, for mounting elsewhere or for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Start binds the port and begins serving. It returns once the listener is
// bound; serving continues in a goroutine.
func (s *Server) Start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("status server failed to bind %s: %w", s.httpServer.Addr, err)
	}

	s.mu.Lock()
	s.listener = listener
	s.mu.Unlock()

	go func() {
		if err := s.httpServer.Serve(listener); err != nil && err != http.ErrServerClosed {
			s.log.Error("Status server error", map[string]interface{}{
				logger.FieldError: err.Error(),
			})
		}
	}()

	s.log.Info("Status server started", map[string]interface{}{
		"addr": listener.Addr().String(),
	})
	return nil
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("status server shutdown: %w", err)
	}
	s.log.Info("Status server stopped")
	return nil
}

// Addr returns the bound address once started, the configured one before.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.httpServer.Addr
}
