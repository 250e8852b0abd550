package node

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/Alecsis/py-chain/internal/auth"
	"github.com/Alecsis/py-chain/internal/observability"
	"github.com/Alecsis/py-chain/internal/txpipe"
)

const (
	Version = "0.1.0"

	// MaxBodyBytes bounds a /tx or /query body.
	MaxBodyBytes = 1 << 20

	shutdownTimeout = 5 * time.Second
)

// Server is the ledger node: one pipeline behind a gin router.
type Server struct {
	ID       string    `json:"id"`
	Addr     string    `json:"addr"`
	Appeared time.Time `json:"appeared"`

	pipeline     *txpipe.Pipeline
	router       *gin.Engine
	ready        atomic.Bool
	metricsGuard auth.Guard
}

var _ Node = (*Server)(nil)

func Appear(id, addr string, corsOrigins []string, pipeline *txpipe.Pipeline) *Server {
	observability.RegisterMetrics()
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(observability.RequestID())
	r.Use(observability.RequestLogger(log.Logger))
	r.Use(observability.RequestMetricsMiddleware(id))
	r.Use(cors.New(cors.Config{
		AllowOrigins:  normalizeOrigins(corsOrigins),
		AllowMethods:  []string{"GET", "POST"},
		AllowHeaders:  []string{"Origin", "Content-Type", observability.RequestIDHeader},
		ExposeHeaders: []string{observability.RequestIDHeader},
		MaxAge:        12 * time.Hour,
	}))
	_ = r.SetTrustedProxies([]string{"127.0.0.1", "::1"})

	s := &Server{
		ID:       id,
		Addr:     addr,
		Appeared: time.Now(),
		pipeline: pipeline,
		router:   r,
	}
	s.registerRoutes()
	return s
}

func (s *Server) NodeID() string {
	return s.ID
}

func (s *Server) Kind() string {
	return "ledger"
}

func (s *Server) HTTPRouter() *gin.Engine {
	return s.router
}

// GuardMetrics puts /metrics behind a bearer token. Call it before Serve.
func (s *Server) GuardMetrics(g auth.Guard) {
	s.metricsGuard = g
}

func (s *Server) Ready() bool {
	return s.ready.Load()
}

func (s *Server) registerRoutes() {
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"uptime":  time.Since(s.Appeared).String(),
			"service": s.ID,
			"version": Version,
		})
	})

	s.router.GET("/ready", func(c *gin.Context) {
		status := http.StatusOK
		if !s.Ready() {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, gin.H{
			"ready":   s.Ready(),
			"uptime":  time.Since(s.Appeared).String(),
			"service": s.ID,
			"version": Version,
		})
	})

	s.router.GET("/metrics", s.requireMetricsToken, gin.WrapH(promhttp.Handler()))

	s.router.POST("/tx", func(c *gin.Context) {
		raw, err := readBody(c)
		if err != nil {
			respond(c, txpipe.Reject(err.Error()))
			return
		}
		respond(c, s.pipeline.Submit(raw))
	})

	s.router.POST("/query", func(c *gin.Context) {
		raw, err := readBody(c)
		if err != nil {
			respond(c, txpipe.Reject(err.Error()))
			return
		}
		respond(c, s.pipeline.Query(raw))
	})
}

// Serve listens on s.Addr until ctx is cancelled, then drains in-flight
// requests.
func (s *Server) Serve(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.Addr, err)
	}
	return s.serve(ctx, ln)
}

func (s *Server) serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()
	s.ready.Store(true)
	log.Info().Str("node", s.ID).Str("addr", ln.Addr().String()).Msg("ledger node serving")

	select {
	case err := <-errCh:
		s.ready.Store(false)
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.ready.Store(false)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	log.Info().Str("node", s.ID).Msg("ledger node stopped")
	return nil
}

func (s *Server) requireMetricsToken(c *gin.Context) {
	if s.metricsGuard == nil {
		c.Next()
		return
	}
	auth.Require(s.metricsGuard)(c)
}

func readBody(c *gin.Context) ([]byte, error) {
	body := http.MaxBytesReader(c.Writer, c.Request.Body, MaxBodyBytes)
	raw, err := io.ReadAll(body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, fmt.Errorf("body exceeds %d bytes", MaxBodyBytes)
		}
		return nil, fmt.Errorf("read body: %v", err)
	}
	return raw, nil
}

func respond(c *gin.Context, res txpipe.Result) {
	c.JSON(res.Status(), res)
}

func normalizeOrigins(origins []string) []string {
	if len(origins) == 0 {
		return []string{"http://localhost:3000"}
	}
	return origins
}
