package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/cv-screener/internal/analysis"
	"github.com/spigell/cv-screener/internal/candidates"
	"github.com/spigell/cv-screener/internal/screening"
	"github.com/spigell/cv-screener/internal/store"
)

const (
	DefaultAddr            = ":8000"
	DefaultRateLimitPerMin = 30
	shutdownTimeout        = 10 * time.Second
)

type Config struct {
	Addr             string        `mapstructure:"addr"`
	CORSAllowOrigins []string      `mapstructure:"cors-allow-origins"`
	RateLimitPerMin  int           `mapstructure:"rate-limit-per-min"`
	ReadTimeout      time.Duration `mapstructure:"read-timeout"`
	WriteTimeout     time.Duration `mapstructure:"write-timeout"`
}

// Analyzer starts background runs and reports their progress.
type Analyzer interface {
	Start(job screening.JobSpec, candidates screening.CandidateSet) (analysis.StartInfo, error)
	Progress() analysis.Progress
}

type Deps struct {
	Store      store.Store
	Candidates candidates.Source
	Analyzer   Analyzer
	Logger     *zap.Logger
	// Metrics serves /metrics when set.
	Metrics http.Handler
}

type Server struct {
	cfg        Config
	store      store.Store
	candidates candidates.Source
	analyzer   Analyzer
	metrics    http.Handler
	logger     *zap.Logger
}

func New(cfg Config, deps Deps) *Server {
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}
	if cfg.RateLimitPerMin <= 0 {
		cfg.RateLimitPerMin = DefaultRateLimitPerMin
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Server{
		cfg:        cfg,
		store:      deps.Store,
		candidates: deps.Candidates,
		analyzer:   deps.Analyzer,
		metrics:    deps.Metrics,
		logger:     logger,
	}
}

// Run serves HTTP until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       s.cfg.ReadTimeout,
		WriteTimeout:      s.cfg.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", zap.String("addr", s.cfg.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("listen: %w", err)
	case <-ctx.Done():
	}

	s.logger.Info("shutting down http server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
