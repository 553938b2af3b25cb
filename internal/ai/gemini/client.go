package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/spigell/cv-screener/internal/ai"
)

const (
	defaultModel = "gemini-1.5-flash"

	BackendGemini = "gemini"
	BackendVertex = "vertex"
)

type contentModels interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Options configures a Generator.
type Options struct {
	APIKey      string
	Model       string
	Backend     string
	Project     string
	Location    string
	Timeout     time.Duration
	Temperature *float32
	Logger      *zap.Logger
}

// Generator wraps the Google GenAI client. It performs exactly one remote call per prompt.
type Generator struct {
	models    contentModels
	modelName string
	timeout   time.Duration
	config    *genai.GenerateContentConfig
	logger    *zap.Logger
}

// NewGenerator creates a Generator for the Gemini API or Vertex AI backend.
func NewGenerator(ctx context.Context, opts Options) (*Generator, error) {
	cfg := &genai.ClientConfig{}

	switch backend := strings.ToLower(strings.TrimSpace(opts.Backend)); backend {
	case "", BackendGemini:
		apiKey := strings.TrimSpace(opts.APIKey)
		if apiKey == "" {
			return nil, errors.New("gemini api key is required")
		}
		cfg.APIKey = apiKey
		cfg.Backend = genai.BackendGeminiAPI
	case BackendVertex:
		if strings.TrimSpace(opts.Project) == "" || strings.TrimSpace(opts.Location) == "" {
			return nil, errors.New("vertex backend requires project and location")
		}
		cfg.Project = strings.TrimSpace(opts.Project)
		cfg.Location = strings.TrimSpace(opts.Location)
		cfg.Backend = genai.BackendVertexAI
	default:
		return nil, fmt.Errorf("unsupported gemini backend: %s", opts.Backend)
	}

	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	return newGenerator(client.Models, opts), nil
}

func newGenerator(models contentModels, opts Options) *Generator {
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = defaultModel
	}

	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Generator{
		models:    models,
		modelName: model,
		timeout:   opts.Timeout,
		config: &genai.GenerateContentConfig{
			Temperature:    opts.Temperature,
			SafetySettings: safetySettings(),
		},
		logger: logger,
	}
}

// safetySettings disables content blocking for the categories a CV review may trip.
func safetySettings() []*genai.SafetySetting {
	categories := []genai.HarmCategory{
		genai.HarmCategoryHarassment,
		genai.HarmCategoryHateSpeech,
		genai.HarmCategorySexuallyExplicit,
		genai.HarmCategoryDangerousContent,
	}

	settings := make([]*genai.SafetySetting, 0, len(categories))
	for _, c := range categories {
		settings = append(settings, &genai.SafetySetting{
			Category:  c,
			Threshold: genai.HarmBlockThresholdBlockNone,
		})
	}
	return settings
}

// GenerateContent sends the prompt to Gemini and returns the textual response.
func (g *Generator) GenerateContent(ctx context.Context, prompt string) (string, error) {
	if g == nil || g.models == nil {
		return "", errors.New("gemini generator is not initialized")
	}

	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "", errors.New("prompt must not be empty")
	}

	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	started := time.Now()
	resp, err := g.models.GenerateContent(ctx, g.modelName, genai.Text(prompt), g.config)
	if err != nil {
		classified := classifyError(err)
		g.logger.Debug("gemini generate content failed",
			zap.Duration("elapsed", time.Since(started)),
			zap.Error(classified),
		)
		return "", classified
	}

	return responseText(resp)
}

func (g *Generator) Model() string {
	if g == nil {
		return ""
	}
	return g.modelName
}

func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil {
		return "", &ai.ModelError{Kind: ai.ModelErrorEmpty, Err: errors.New("nil response")}
	}

	if fb := resp.PromptFeedback; fb != nil && fb.BlockReason != "" {
		detail := string(fb.BlockReason)
		if fb.BlockReasonMessage != "" {
			detail += ": " + fb.BlockReasonMessage
		}
		return "", &ai.ModelError{Kind: ai.ModelErrorBlocked, Err: fmt.Errorf("prompt blocked: %s", detail)}
	}

	var (
		builder     strings.Builder
		finishBlock genai.FinishReason
	)
	for _, candidate := range resp.Candidates {
		if candidate == nil {
			continue
		}
		if isBlockingFinish(candidate.FinishReason) {
			finishBlock = candidate.FinishReason
		}
		if candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part == nil || part.Thought {
				continue
			}
			text := strings.TrimSpace(part.Text)
			if text == "" {
				continue
			}
			if builder.Len() > 0 {
				builder.WriteString("\n")
			}
			builder.WriteString(text)
		}
	}

	output := strings.TrimSpace(builder.String())
	if output == "" {
		if finishBlock != "" {
			return "", &ai.ModelError{Kind: ai.ModelErrorBlocked, Err: fmt.Errorf("response blocked: %s", finishBlock)}
		}
		return "", &ai.ModelError{Kind: ai.ModelErrorEmpty, Err: errors.New("gemini api returned empty response")}
	}

	return output, nil
}

func isBlockingFinish(reason genai.FinishReason) bool {
	switch reason {
	case genai.FinishReasonSafety,
		genai.FinishReasonRecitation,
		genai.FinishReasonBlocklist,
		genai.FinishReasonProhibitedContent,
		genai.FinishReasonSPII:
		return true
	default:
		return false
	}
}

func classifyError(err error) error {
	var me *ai.ModelError
	if errors.As(err, &me) {
		return err
	}

	code, status := apiErrorCode(err)
	switch {
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return &ai.ModelError{Kind: ai.ModelErrorAuth, Err: err}
	case code == http.StatusTooManyRequests || status == "RESOURCE_EXHAUSTED":
		return &ai.ModelError{Kind: ai.ModelErrorQuota, Err: err}
	default:
		return &ai.ModelError{Kind: ai.ModelErrorTransport, Err: err}
	}
}

func apiErrorCode(err error) (int, string) {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code, apiErr.Status
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return apiErrPtr.Code, apiErrPtr.Status
	}
	return 0, ""
}
