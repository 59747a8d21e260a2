package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/foodgram/backend/internal/logging"
)

// Server wraps the HTTP server and its router.
type Server struct {
	router *gin.Engine
	http   *http.Server
}

// New creates a server serving the given router on the given port.
func New(router *gin.Engine, port string) *Server {
	return &Server{
		router: router,
		http: &http.Server{
			Addr:              ":" + port,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

// Start runs the server until it is shut down.
func (s *Server) Start() error {
	logging.L().Info().Str("addr", s.http.Addr).Msg("starting server")
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return s.http.Shutdown(ctx)
}
