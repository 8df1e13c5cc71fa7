package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-resty/resty/v2"

	"newsflash-bot/internal/checksum"
	"newsflash-bot/internal/config"
	"newsflash-bot/internal/fetcher"
	"newsflash-bot/internal/news"
	"newsflash-bot/internal/observability"
	"newsflash-bot/internal/registry"
)

// Pipeline is the part of the aggregator the HTTP API needs.
type Pipeline interface {
	FetchCategory(ctx context.Context, category news.Category) (news.CategoryResult, error)
	FetchSource(ctx context.Context, id string) (news.SourceResult, error)
}

// Catalog lists the configured sources.
type Catalog interface {
	Categories() []news.Category
	Lookup(category news.Category) []registry.Descriptor
}

type Server struct {
	pipeline Pipeline
	catalog  Catalog
	proxy    *resty.Client
	checksum *checksum.Generator
	metrics  *observability.Metrics
	logger   *observability.Logger
	engine   *gin.Engine
}

func NewServer(cfg *config.Config, p Pipeline, catalog Catalog, metrics *observability.Metrics, logger *observability.Logger) *Server {
	headers := make(map[string]string)
	for k, v := range fetcher.BrowserHeaders(cfg.HTTP) {
		if len(v) > 0 {
			headers[k] = v[0]
		}
	}

	proxyTimeout := cfg.GetProxyTimeout()
	if proxyTimeout <= 0 {
		proxyTimeout = 10 * time.Second
	}

	s := &Server{
		pipeline: p,
		catalog:  catalog,
		proxy: resty.New().
			SetTimeout(proxyTimeout).
			SetHeaders(headers).
			SetRedirectPolicy(resty.FlexibleRedirectPolicy(10)),
		checksum: checksum.NewGenerator(),
		metrics:  metrics,
		logger:   logger,
	}

	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger())
	s.RegisterRoutes(r)
	s.engine = r
	return s
}

func (s *Server) RegisterRoutes(r *gin.Engine) {
	r.GET("/", s.home)
	r.GET("/health", s.health)
	r.GET("/proxy", s.relay)
	r.GET("/metrics", s.stats)

	v1 := r.Group("/api/v1")
	{
		v1.GET("/categories", s.categories)
		v1.GET("/categories/:category", s.category)
		v1.GET("/sources/:id", s.source)
	}
}

func (s *Server) Handler() http.Handler {
	return s.engine
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug("HTTP request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}
}

// home doubles as the relay when a url query is present, so a relay
// deployment can point at the bare host.
func (s *Server) home(c *gin.Context) {
	if c.Query("url") != "" {
		s.relay(c)
		return
	}
	c.String(http.StatusOK, "Bot is alive!")
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) stats(c *gin.Context) {
	if s.metrics == nil {
		c.JSON(http.StatusOK, gin.H{})
		return
	}
	c.JSON(http.StatusOK, s.metrics.GetStats())
}
