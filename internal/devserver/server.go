package devserver

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Server manages the HTTP server lifecycle of the devserver.
type Server struct {
	httpServer *http.Server
	listener   net.Listener
	logger     *zap.Logger
}

// newRouter builds the gin engine serving the DM REST surface.
func newRouter(h *handlers, issuer *Issuer, logger *zap.Logger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestLogger(logger))
	router.NoRoute(func(c *gin.Context) {
		abort(c, http.StatusNotFound, "not found")
	})
	h.register(router, requireUser(issuer, h.db))
	return router
}

// NewServer binds the listen address. Serving starts with Start.
func NewServer(p Params, router *gin.Engine, logger *zap.Logger) (*Server, error) {
	listener, err := net.Listen("tcp", p.Addr)
	if err != nil {
		return nil, fmt.Errorf("listen %s: %w", p.Addr, err)
	}
	return &Server{
		httpServer: &http.Server{
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
		listener: listener,
		logger:   logger,
	}, nil
}

// Addr returns the bound address.
func (s *Server) Addr() string {
	return s.listener.Addr().String()
}

// Start serves requests. Blocks until stopped.
func (s *Server) Start() error {
	s.logger.Info("http server starting", zap.String("addr", s.Addr()))
	if err := s.httpServer.Serve(s.listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop performs a graceful shutdown.
func (s *Server) Stop(ctx context.Context) {
	s.logger.Info("http server stopping")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Warn("http shutdown", zap.Error(err))
	}
}
