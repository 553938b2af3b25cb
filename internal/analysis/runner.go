package analysis

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spigell/cv-screener/internal/logger"
	"github.com/spigell/cv-screener/internal/metrics"
	"github.com/spigell/cv-screener/internal/screening"
)

var (
	ErrNoJobSpec      = errors.New("no job spec configured")
	ErrNoCandidates   = errors.New("no candidate data loaded")
	ErrAlreadyRunning = errors.New("an analysis run is already in progress")
)

const (
	StateIdle    = "idle"
	StateRunning = "running"

	StatusStarted = "started"
)

// ResultWriter persists the final ResultSet of a run.
type ResultWriter interface {
	SaveResults(ctx context.Context, results screening.ResultSet) error
}

// StartInfo is returned to the caller that triggered a background run.
type StartInfo struct {
	Status string `json:"status"`
	Count  int    `json:"count"`
	RunID  string `json:"run_id"`
}

// Progress is an in-memory snapshot of the current or last run.
type Progress struct {
	State      string     `json:"state"`
	RunID      string     `json:"run_id,omitempty"`
	Processed  int        `json:"processed"`
	Total      int        `json:"total"`
	StartedAt  *time.Time `json:"started_at,omitempty"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	LastError  string     `json:"last_error,omitempty"`
}

// Runner executes analysis runs one at a time.
type Runner struct {
	evaluator *Evaluator
	results   ResultWriter
	pacer     Pacer
	logger    *zap.Logger
	// ctx is the lifetime of background runs.
	ctx context.Context

	mu       sync.Mutex
	progress Progress
	wg       sync.WaitGroup

	now   func() time.Time
	newID func() string
}

func NewRunner(ctx context.Context, evaluator *Evaluator, results ResultWriter, pacer Pacer, log *zap.Logger) *Runner {
	if pacer == nil {
		pacer = FixedDelay{Delay: DefaultDelay}
	}
	if ctx == nil {
		ctx = context.Background()
	}

	return &Runner{
		evaluator: evaluator,
		results:   results,
		pacer:     pacer,
		logger:    logger.WithFields(log),
		ctx:       ctx,
		progress:  Progress{State: StateIdle},
		now:       time.Now,
		newID:     func() string { return uuid.NewString() },
	}
}

// Start launches a run in the background and returns without waiting for it.
func (r *Runner) Start(job screening.JobSpec, candidates screening.CandidateSet) (StartInfo, error) {
	runID, err := r.acquire(job, candidates)
	if err != nil {
		return StartInfo{}, err
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		_, _ = r.execute(r.ctx, runID, job, candidates)
	}()

	return StartInfo{Status: StatusStarted, Count: candidates.Len(), RunID: runID}, nil
}

// Run executes a run synchronously and returns the ranked results.
// The results are returned even when persisting them failed.
func (r *Runner) Run(ctx context.Context, job screening.JobSpec, candidates screening.CandidateSet) (screening.ResultSet, error) {
	runID, err := r.acquire(job, candidates)
	if err != nil {
		return nil, err
	}
	return r.execute(ctx, runID, job, candidates)
}

// Wait blocks until background runs have finished.
func (r *Runner) Wait() {
	r.wg.Wait()
}

func (r *Runner) Progress() Progress {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.progress
}

func (r *Runner) acquire(job screening.JobSpec, candidates screening.CandidateSet) (string, error) {
	if err := job.Validate(); err != nil {
		metrics.RejectRun("no_job_spec")
		return "", fmt.Errorf("%w: %v", ErrNoJobSpec, err)
	}
	if candidates == nil {
		metrics.RejectRun("no_candidates")
		return "", ErrNoCandidates
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.progress.State == StateRunning {
		metrics.RejectRun("already_running")
		return "", fmt.Errorf("%w: %s", ErrAlreadyRunning, r.progress.RunID)
	}

	started := r.now()
	r.progress = Progress{
		State:     StateRunning,
		RunID:     r.newID(),
		Total:     candidates.Len(),
		StartedAt: &started,
	}
	metrics.StartRun()

	return r.progress.RunID, nil
}

func (r *Runner) execute(ctx context.Context, runID string, job screening.JobSpec, candidates screening.CandidateSet) (ranked screening.ResultSet, err error) {
	log := logger.WithRun(r.logger, runID)
	started := r.now()

	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("analysis run aborted: %v", rec)
			log.Error("analysis run panicked", zap.Any("panic", rec))
		}
		r.finish(err, started)
	}()

	log.Info("analysis started",
		zap.String("job", job.Title),
		zap.Int("total", candidates.Len()),
	)

	results := make(screening.ResultSet, 0, candidates.Len())
	for i, candidate := range candidates {
		if err := interrupted(ctx); err != nil {
			log.Warn("analysis interrupted, keeping previous results", zap.Int("processed", i))
			return nil, err
		}

		log.Info("evaluating candidate",
			zap.Int("index", i+1),
			zap.Int("total", candidates.Len()),
			logger.Candidate(candidate.Name),
		)

		record := r.evaluator.evaluate(ctx, log, job, candidate)
		results = append(results, record)
		r.advance()

		log.Info("candidate scored",
			logger.Candidate(candidate.Name),
			zap.Int("score", record.Score),
			zap.Bool("degraded", record.Degraded),
		)

		if err := r.pacer.Wait(ctx); err != nil {
			log.Debug("pacer interrupted", zap.Error(err))
		}
	}

	// A record scored while the context was going away may be a cancellation artefact.
	if err := interrupted(ctx); err != nil {
		log.Warn("analysis interrupted, keeping previous results", zap.Int("processed", len(results)))
		return nil, err
	}

	ranked = screening.Rank(results)

	// The set is complete here, so a cancellation racing the write must not drop it.
	if err := r.results.SaveResults(context.WithoutCancel(ctx), ranked); err != nil {
		log.Error("saving results failed", zap.Error(err))
		return ranked, fmt.Errorf("save results: %w", err)
	}

	log.Info("analysis completed",
		zap.Int("total", ranked.Len()),
		zap.Duration("elapsed", r.now().Sub(started)),
	)

	return ranked, nil
}

func interrupted(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("analysis interrupted: %w", err)
	}
	return nil
}

func (r *Runner) advance() {
	r.mu.Lock()
	r.progress.Processed++
	r.mu.Unlock()
}

func (r *Runner) finish(err error, started time.Time) {
	finished := r.now()

	r.mu.Lock()
	r.progress.State = StateIdle
	r.progress.FinishedAt = &finished
	if err != nil {
		r.progress.LastError = err.Error()
	}
	r.mu.Unlock()

	status := "completed"
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		status = "interrupted"
	case err != nil:
		status = "failed"
	}
	metrics.FinishRun(status, finished.Sub(started))
}
