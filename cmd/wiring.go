package cmd

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/cv-screener/internal/ai"
	"github.com/spigell/cv-screener/internal/ai/gemini"
	"github.com/spigell/cv-screener/internal/analysis"
	"github.com/spigell/cv-screener/internal/candidates"
	"github.com/spigell/cv-screener/internal/logger"
	"github.com/spigell/cv-screener/internal/secrets"
	"github.com/spigell/cv-screener/internal/store"
)

const providerGemini = "gemini"

// setup builds the logger and the decoded config shared by every command.
func setup() (*zap.Logger, *Config) {
	lg, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		lg.Fatal("getting a config", zap.Error(err))
	}
	if config == nil {
		lg.Fatal("config is required")
	}

	return lg, config
}

func openStore(ctx context.Context, config *Config, lg *zap.Logger) store.Store {
	st, err := store.Open(ctx, config.Store, lg.With(zap.String("store", config.Store.Driver)))
	if err != nil {
		lg.Fatal("opening the state store", zap.Error(err), zap.String("driver", config.Store.Driver))
	}
	return st
}

func candidateSource(config *Config, lg *zap.Logger) *candidates.File {
	src, err := candidates.NewFile(config.Candidates.File, config.Candidates.Separator)
	if err != nil {
		lg.Fatal("configuring candidate source", zap.Error(err))
	}
	return src
}

// newRunner constructs the model client once and injects it into the evaluator and runner.
func newRunner(ctx context.Context, config *Config, results analysis.ResultWriter, lg *zap.Logger) (*analysis.Runner, error) {
	scorer, model, err := newScorer(ctx, config.AI, lg)
	if err != nil {
		return nil, err
	}

	gem := config.AI.Gemini
	evaluator := analysis.NewEvaluator(scorer, analysis.EvaluatorOptions{
		Model:      model,
		MaxRetries: gem.MaxRetries,
		Logger:     logger.WithModel(lg, providerGemini, model),
	})

	pacer := analysis.NewPacer(config.Analysis.Pacer())
	lg.Debug("pacer configured", zap.String("pacer", fmt.Sprintf("%T", pacer)))

	return analysis.NewRunner(ctx, evaluator, results, pacer, lg), nil
}

func newScorer(ctx context.Context, cfg *AIConfig, lg *zap.Logger) (ai.Scorer, string, error) {
	if cfg == nil || cfg.Gemini == nil {
		return nil, "", fmt.Errorf("ai.gemini configuration is required")
	}

	provider := strings.TrimSpace(strings.ToLower(cfg.Provider))
	if provider != "" && provider != providerGemini {
		return nil, "", fmt.Errorf("unsupported ai provider: %s", cfg.Provider)
	}

	gem := cfg.Gemini
	opts := gemini.Options{
		Model:       gem.Model,
		Backend:     gem.Backend,
		Project:     gem.Project,
		Location:    gem.Location,
		Timeout:     gem.Timeout,
		Temperature: gem.Temperature,
	}

	if !strings.EqualFold(strings.TrimSpace(gem.Backend), gemini.BackendVertex) {
		apiKey, err := secrets.Load(secrets.Source{
			Name:  "gemini api key",
			Value: gem.APIKey,
			File:  gem.APIKeyFile,
			Env:   []string{"GOOGLE_API_KEY", "GEMINI_API_KEY"},
		})
		if err != nil {
			return nil, "", fmt.Errorf("%w (set GOOGLE_API_KEY, ai.gemini.api-key or ai.gemini.api-key-file)", err)
		}
		opts.APIKey = apiKey
	}

	genLogger := logger.WithModel(lg, providerGemini, gem.Model).With(
		zap.Int("ai_retry_attempts", gem.MaxRetries),
	)
	opts.Logger = genLogger

	generator, err := gemini.NewGenerator(ctx, opts)
	if err != nil {
		return nil, "", err
	}

	return gemini.NewScorer(generator, gem.MaxLogLength, genLogger), generator.Model(), nil
}
