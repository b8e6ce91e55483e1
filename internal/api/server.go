// Package api serves the launch directory, launch snapshots and candles
// over HTTP.
package api

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/letscook/internal/events"
	"github.com/rovshanmuradov/letscook/internal/launch"
	"github.com/rovshanmuradov/letscook/internal/market"
)

const shutdownTimeout = 5 * time.Second

// ErrNotLoaded is returned before the first directory refresh succeeds.
var ErrNotLoaded = errors.New("launch directory not loaded yet")

// Source lists launches.
type Source interface {
	Launches(ctx context.Context) ([]launch.Listing, error)
}

// CandleFunc returns the candles of page's pool.
type CandleFunc func(ctx context.Context, page string) ([]market.Candle, error)

// Config tunes the server.
type Config struct {
	ListenAddr string
	// RefreshSpec is a cron spec such as "@every 1m".
	RefreshSpec  string
	HomepageOnly bool
	CheckIn      time.Duration
	RateLimit    RateLimit
}

// Server keeps a cached launch directory and serves it.
type Server struct {
	cfg      Config
	source   Source
	candles  CandleFunc
	gatherer prometheus.Gatherer
	bus      events.Publisher
	now      func() time.Time
	logger   *zap.Logger

	mu        sync.RWMutex
	listings  []launch.Listing
	refreshed time.Time

	engine *gin.Engine
}

// Option настраивает сервер.
type Option func(*Server)

// WithCandles enables the candles route.
func WithCandles(fn CandleFunc) Option { return func(s *Server) { s.candles = fn } }

// WithGatherer exposes g on /metrics.
func WithGatherer(g prometheus.Gatherer) Option { return func(s *Server) { s.gatherer = g } }

// WithBus publishes a DirectoryEvent after each refresh.
func WithBus(bus events.Publisher) Option { return func(s *Server) { s.bus = bus } }

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option { return func(s *Server) { s.now = now } }

// New creates the server and its routes. Nothing is loaded until Refresh
// or Run.
func New(cfg Config, source Source, logger *zap.Logger, opts ...Option) *Server {
	s := &Server{
		cfg:    cfg,
		source: source,
		now:    time.Now,
		logger: logger.Named("api"),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.engine = s.routes()
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler { return s.engine }

func (s *Server) routes() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), s.accessLog())
	if s.cfg.RateLimit.RequestsPerSecond > 0 {
		r.Use(RateLimiter(s.cfg.RateLimit))
	}

	r.GET("/health", s.health)
	r.GET("/launches", s.listLaunches)
	if s.cfg.HomepageOnly {
		return r
	}

	launches := r.Group("/launches/:page")
	{
		launches.GET("", s.getLaunch)
		launches.GET("/candles", s.getCandles)
	}
	if s.gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})))
	}
	return r
}

func (s *Server) accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)))
	}
}

// Refresh reloads the directory. On failure the previous listings stay.
func (s *Server) Refresh(ctx context.Context) error {
	listings, err := s.source.Launches(ctx)
	if s.bus != nil {
		_ = s.bus.Publish(events.NewDirectory(len(listings), err))
	}
	if err != nil {
		s.logger.Error("Directory refresh failed", zap.Error(err))
		return err
	}
	launch.SortListings(listings)

	s.mu.Lock()
	s.listings = listings
	s.refreshed = s.now()
	s.mu.Unlock()
	s.logger.Debug("Directory refreshed", zap.Int("launches", len(listings)))
	return nil
}

func (s *Server) snapshot() ([]launch.Listing, time.Time) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listings, s.refreshed
}

// Run loads the directory, schedules refreshes and serves until ctx ends.
func (s *Server) Run(ctx context.Context) error {
	if err := s.Refresh(ctx); err != nil {
		s.logger.Warn("Serving without an initial directory", zap.Error(err))
	}

	c := cron.New()
	if _, err := c.AddFunc(s.cfg.RefreshSpec, func() {
		_ = s.Refresh(ctx)
	}); err != nil {
		return err
	}
	c.Start()
	defer func() { <-c.Stop().Done() }()

	srv := &http.Server{
		Addr:              s.cfg.ListenAddr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("API listening", zap.String("addr", s.cfg.ListenAddr),
			zap.Bool("homepage_only", s.cfg.HomepageOnly))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
