package analysis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/spigell/cv-screener/internal/ai"
	"github.com/spigell/cv-screener/internal/logger"
	"github.com/spigell/cv-screener/internal/metrics"
	"github.com/spigell/cv-screener/internal/screening"
	"github.com/spigell/cv-screener/internal/utils"
)

const rawPreviewLimit = 300

// FailureKind names the reason a degraded record was produced.
type FailureKind string

const (
	FailureNone     FailureKind = "none"
	FailureModel    FailureKind = "model"
	FailureParse    FailureKind = "parse"
	FailurePrompt   FailureKind = "prompt"
	FailureInternal FailureKind = "internal"
)

// Failure is the classified error behind a degraded record.
type Failure struct {
	Kind FailureKind
	Err  error
}

func (f *Failure) Error() string {
	return fmt.Sprintf("%s failure: %v", f.Kind, f.Err)
}

func (f *Failure) Unwrap() error {
	return f.Err
}

// Justification renders the failure for the degraded record shown to recruiters.
func (f *Failure) Justification() string {
	switch f.Kind {
	case FailureModel:
		var me *ai.ModelError
		if errors.As(f.Err, &me) {
			return fmt.Sprintf("Falha na chamada ao modelo (%s): %v", me.Kind, me.Err)
		}
		return fmt.Sprintf("Falha na chamada ao modelo: %v", f.Err)
	case FailureParse:
		return fmt.Sprintf("Resposta do modelo em formato inválido: %v", f.Err)
	case FailurePrompt:
		return fmt.Sprintf("Não foi possível montar o prompt: %v", f.Err)
	default:
		return fmt.Sprintf("Erro inesperado na análise: %v", f.Err)
	}
}

type panicError struct {
	value any
}

func (p panicError) Error() string {
	return fmt.Sprintf("panic: %v", p.value)
}

// Classify maps an error returned by a Scorer to a failure kind.
func Classify(err error) *Failure {
	switch {
	case err == nil:
		return nil
	case errors.As(err, new(panicError)):
		return &Failure{Kind: FailureInternal, Err: err}
	case errors.Is(err, ai.ErrPrompt):
		return &Failure{Kind: FailurePrompt, Err: err}
	case ai.IsParseError(err):
		return &Failure{Kind: FailureParse, Err: err}
	case ai.IsModelError(err):
		return &Failure{Kind: FailureModel, Err: err}
	default:
		return &Failure{Kind: FailureInternal, Err: err}
	}
}

// EvaluatorOptions configures an Evaluator.
type EvaluatorOptions struct {
	// Model labels metrics and logs.
	Model string
	// MaxRetries bounds retries of temporary model errors. Zero disables retries.
	MaxRetries int
	// NewBackOff overrides the retry schedule.
	NewBackOff func() backoff.BackOff
	Logger     *zap.Logger
}

// Evaluator turns one candidate into exactly one ScoreRecord. It never fails.
type Evaluator struct {
	scorer     ai.Scorer
	model      string
	maxRetries int
	newBackOff func() backoff.BackOff
	logger     *zap.Logger
}

func NewEvaluator(scorer ai.Scorer, opts EvaluatorOptions) *Evaluator {
	newBackOff := opts.NewBackOff
	if newBackOff == nil {
		newBackOff = defaultBackOff
	}

	return &Evaluator{
		scorer:     scorer,
		model:      opts.Model,
		maxRetries: max(opts.MaxRetries, 0),
		newBackOff: newBackOff,
		logger:     logger.WithFields(opts.Logger),
	}
}

func defaultBackOff() backoff.BackOff {
	expo := backoff.NewExponentialBackOff()
	expo.InitialInterval = time.Second
	expo.MaxInterval = 10 * time.Second
	expo.MaxElapsedTime = time.Minute
	return expo
}

// Evaluate scores the candidate. Any failure yields a degraded record with score 0.
func (e *Evaluator) Evaluate(ctx context.Context, job screening.JobSpec, candidate screening.CandidateProfile) screening.ScoreRecord {
	return e.evaluate(ctx, e.logger, job, candidate)
}

func (e *Evaluator) evaluate(ctx context.Context, log *zap.Logger, job screening.JobSpec, candidate screening.CandidateProfile) screening.ScoreRecord {
	record := screening.ScoreRecord{
		Name: candidate.Name,
		URL:  candidate.SourceURL(),
	}

	assessment, err := e.score(ctx, job, candidate)
	if failure := Classify(err); failure != nil {
		log.Warn("candidate evaluation failed",
			logger.Candidate(candidate.Name),
			zap.String("failure", string(failure.Kind)),
			zap.Error(failure.Err),
		)
		metrics.ObserveCandidate(string(failure.Kind), 0)

		record.Score = 0
		record.Justification = failure.Justification()
		record.Degraded = true
		return record
	}

	record.Score = screening.ClampScore(assessment.Score)
	record.Justification = assessment.Justification

	// The stored name always comes from the candidate table.
	if named := strings.TrimSpace(assessment.Name); named != "" && !strings.EqualFold(named, strings.TrimSpace(candidate.Name)) {
		log.Warn("model named a different candidate",
			logger.Candidate(candidate.Name),
			zap.String("model_name", named),
			zap.String("response", utils.TruncateForLog(assessment.Raw, rawPreviewLimit)),
		)
	}
	if record.Score != assessment.Score {
		log.Warn("score out of range clamped",
			logger.Candidate(candidate.Name),
			zap.Int("model_score", assessment.Score),
			zap.Int("score", record.Score),
		)
	}
	metrics.ObserveCandidate(string(FailureNone), record.Score)

	log.Debug("candidate evaluated",
		logger.Candidate(candidate.Name),
		zap.Int("score", record.Score),
	)

	return record
}

func (e *Evaluator) score(ctx context.Context, job screening.JobSpec, candidate screening.CandidateProfile) (*ai.Assessment, error) {
	if e.scorer == nil {
		return nil, errors.New("evaluator has no scorer")
	}

	var (
		assessment *ai.Assessment
		lastErr    error
		attempt    int
	)
	op := func() error {
		attempt++
		started := time.Now()

		result, err := e.scoreOnce(ctx, job, candidate)
		metrics.ObserveModelCall(e.model, outcome(err), time.Since(started))
		lastErr = err
		if err == nil {
			assessment = result
			return nil
		}

		var me *ai.ModelError
		if errors.As(err, &me) && me.Temporary() {
			e.logger.Debug("temporary model error",
				logger.Candidate(candidate.Name),
				zap.Int("attempt", attempt),
				zap.Error(err),
			)
			return err
		}
		return backoff.Permanent(err)
	}

	if e.maxRetries == 0 {
		if err := op(); err != nil {
			return nil, lastErr
		}
		return assessment, nil
	}

	// WithMaxRetries treats zero as unlimited, hence the branch above.
	bo := backoff.WithContext(backoff.WithMaxRetries(e.newBackOff(), uint64(e.maxRetries)), ctx)
	if err := backoff.Retry(op, bo); err != nil {
		if lastErr != nil {
			return nil, lastErr
		}
		return nil, err
	}
	return assessment, nil
}

// scoreOnce converts a panic inside the scorer into an error.
func (e *Evaluator) scoreOnce(ctx context.Context, job screening.JobSpec, candidate screening.CandidateProfile) (result *ai.Assessment, err error) {
	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = panicError{value: r}
		}
	}()

	result, err = e.scorer.Score(ctx, job, candidate)
	if err == nil && result == nil {
		err = errors.New("scorer returned no assessment")
	}
	return result, err
}

func outcome(err error) string {
	if err == nil {
		return "ok"
	}
	var me *ai.ModelError
	if errors.As(err, &me) {
		return string(me.Kind)
	}
	if failure := Classify(err); failure != nil {
		return string(failure.Kind)
	}
	return "error"
}
