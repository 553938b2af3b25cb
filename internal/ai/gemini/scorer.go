package gemini

import (
	"context"
	"fmt"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/spigell/cv-screener/internal/ai"
	"github.com/spigell/cv-screener/internal/screening"
	"github.com/spigell/cv-screener/internal/utils"
)

const defaultMaxLogLength = 200

// Scorer evaluates candidates with a Gemini generator.
type Scorer struct {
	generator ai.Generator
	logger    *zap.Logger
	maxLogLen int
}

func NewScorer(generator ai.Generator, maxLogLength int, logger *zap.Logger) *Scorer {
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Scorer{
		generator: generator,
		logger:    logger,
		maxLogLen: maxLogLength,
	}
}

func (s *Scorer) Score(ctx context.Context, job screening.JobSpec, candidate screening.CandidateProfile) (*ai.Assessment, error) {
	prompt, err := BuildPrompt(job, candidate)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ai.ErrPrompt, err)
	}

	s.logger.Debug("gemini generate content request",
		zap.String("candidate", candidate.Name),
		zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
		zap.String("prompt_preview", utils.TruncateForLog(prompt, s.maxLogLen)),
	)

	raw, err := s.generator.GenerateContent(ctx, prompt)
	if err != nil {
		return nil, err
	}

	s.logger.Debug("gemini generate content response",
		zap.String("candidate", candidate.Name),
		zap.Int("response_length", utf8.RuneCountInString(raw)),
		zap.String("response_preview", utils.TruncateForLog(raw, s.maxLogLen)),
	)

	return ParseResponse(raw)
}
