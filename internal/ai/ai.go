package ai

import (
	"context"
	"errors"

	"github.com/spigell/cv-screener/internal/screening"
)

// ErrPrompt marks failures to render the evaluation prompt.
var ErrPrompt = errors.New("build prompt")

// Assessment is the structured verdict extracted from a model reply.
type Assessment struct {
	Name          string
	Score         int
	Justification string
	Raw           string
}

// Generator sends a prompt to a generative model and returns its text reply.
type Generator interface {
	GenerateContent(ctx context.Context, prompt string) (string, error)
	Model() string
}

// Scorer evaluates one candidate against a job spec.
type Scorer interface {
	Score(ctx context.Context, job screening.JobSpec, candidate screening.CandidateProfile) (*Assessment, error)
}
