package cmd

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"

	"github.com/spigell/cv-screener/internal/analysis"
)

func TestReadJobFile(t *testing.T) {
	dir := t.TempDir()

	yamlFile := filepath.Join(dir, "vaga.yaml")
	yamlDoc := "titulo: Backend Dev\ntempo_experiencia: 3 anos\nconhecimentos_obrigatorios:\n  - Go\n  - SQL\n"
	if err := os.WriteFile(yamlFile, []byte(yamlDoc), 0o644); err != nil {
		t.Fatalf("write yaml: %v", err)
	}

	jsonFile := filepath.Join(dir, "vaga.json")
	jsonDoc := `{"titulo": "Data Analyst", "conhecimentos_desejados": ["Python"]}`
	if err := os.WriteFile(jsonFile, []byte(jsonDoc), 0o644); err != nil {
		t.Fatalf("write json: %v", err)
	}

	job, err := readJobFile(yamlFile)
	if err != nil {
		t.Fatalf("yaml: %v", err)
	}
	if job.Title != "Backend Dev" || job.Experience != "3 anos" || len(job.Required) != 2 {
		t.Fatalf("unexpected yaml job: %+v", job)
	}

	job, err = readJobFile(jsonFile)
	if err != nil {
		t.Fatalf("json: %v", err)
	}
	if job.Title != "Data Analyst" || len(job.Desired) != 1 || job.Desired[0] != "Python" {
		t.Fatalf("unexpected json job: %+v", job)
	}

	if _, err := readJobFile(filepath.Join(dir, "absent.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoadDotEnvKeepsExistingVariables(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	content := "CV_SCREENER_TEST_FROM_FILE=abc\nCV_SCREENER_TEST_PRESET=from-file\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write .env: %v", err)
	}

	t.Setenv("CV_SCREENER_TEST_PRESET", "from-env")
	// Registered so the variable set by loadDotEnv is removed after the test.
	t.Setenv("CV_SCREENER_TEST_FROM_FILE", "")
	os.Unsetenv("CV_SCREENER_TEST_FROM_FILE")

	if err := loadDotEnv(path); err != nil {
		t.Fatalf("loadDotEnv: %v", err)
	}

	if got := os.Getenv("CV_SCREENER_TEST_FROM_FILE"); got != "abc" {
		t.Fatalf("expected value from .env, got %q", got)
	}
	if got := os.Getenv("CV_SCREENER_TEST_PRESET"); got != "from-env" {
		t.Fatalf("existing variable was overridden: %q", got)
	}

	if err := loadDotEnv(filepath.Join(dir, "absent")); err != nil {
		t.Fatalf("missing .env must be ignored, got %v", err)
	}
}

func TestGetConfigDefaultsAndEnv(t *testing.T) {
	t.Setenv("GOOGLE_API_KEY", "key-from-env")
	t.Setenv("CV_SCREENER_ANALYSIS_DELAY", "500ms")
	t.Setenv("CV_SCREENER_STORE_DRIVER", "sqlite")

	config, err := getConfig()
	if err != nil {
		t.Fatalf("getConfig: %v", err)
	}

	if config.AI == nil || config.AI.Gemini == nil {
		t.Fatalf("expected ai.gemini defaults, got %+v", config.AI)
	}
	if config.AI.Gemini.APIKey != "key-from-env" {
		t.Fatalf("expected GOOGLE_API_KEY binding, got %q", config.AI.Gemini.APIKey)
	}
	if config.AI.Gemini.Model != "gemini-1.5-flash" || config.AI.Gemini.Timeout != time.Minute {
		t.Fatalf("unexpected gemini defaults: %+v", config.AI.Gemini)
	}
	if config.Analysis.Delay != 500*time.Millisecond {
		t.Fatalf("expected env override of analysis.delay, got %s", config.Analysis.Delay)
	}
	if config.Store.Driver != "sqlite" {
		t.Fatalf("expected env override of store.driver, got %q", config.Store.Driver)
	}
	if config.Candidates.File != "dados_extraidos.csv" || config.Candidates.Separator != ";" {
		t.Fatalf("unexpected candidate defaults: %+v", config.Candidates)
	}
	if config.HTTP.Addr != ":8000" || config.HTTP.RateLimitPerMin != 30 {
		t.Fatalf("unexpected http defaults: %+v", config.HTTP)
	}

	pacer := config.Analysis.Pacer()
	if pacer.Delay != 500*time.Millisecond || pacer.RPS != 0 || pacer.Burst != 1 {
		t.Fatalf("unexpected pacer config: %+v", pacer)
	}

	if viper.GetString("ai.provider") != "gemini" {
		t.Fatalf("unexpected provider default %q", viper.GetString("ai.provider"))
	}
}

func TestZeroDelayDisablesPacing(t *testing.T) {
	t.Setenv("CV_SCREENER_ANALYSIS_DELAY", "0s")

	config, err := getConfig()
	if err != nil {
		t.Fatalf("getConfig: %v", err)
	}

	pacer := analysis.NewPacer(config.Analysis.Pacer())
	if fd, ok := pacer.(analysis.FixedDelay); !ok || fd.Delay != 0 {
		t.Fatalf("expected pacing disabled, got %#v", pacer)
	}
}

func TestDefaultDelayComesFromConfig(t *testing.T) {
	config, err := getConfig()
	if err != nil {
		t.Fatalf("getConfig: %v", err)
	}

	pacer := analysis.NewPacer(config.Analysis.Pacer())
	if fd, ok := pacer.(analysis.FixedDelay); !ok || fd.Delay != analysis.DefaultDelay {
		t.Fatalf("expected default delay, got %#v", pacer)
	}
}
