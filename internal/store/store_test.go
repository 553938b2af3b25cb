package store

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spigell/cv-screener/internal/screening"
)

type backend struct {
	store Store
	// corrupt overwrites a stored document with unreadable bytes.
	corrupt func(t *testing.T, key string)
}

func newBackends(t *testing.T, logger *zap.Logger) map[string]backend {
	t.Helper()
	ctx := context.Background()

	dir := t.TempDir()
	file, err := NewFile(dir, logger)
	require.NoError(t, err)

	sqlite, err := NewSQLite(ctx, filepath.Join(t.TempDir(), "state.db"), logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlite.Close() })

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	rds := NewRedisWithClient(client, "test", logger)
	t.Cleanup(func() { _ = rds.Close() })

	fileNames := map[string]string{keyJobSpec: JobSpecFile, keyResults: ResultsFile}

	return map[string]backend{
		DriverFile: {
			store: file,
			corrupt: func(t *testing.T, key string) {
				require.NoError(t, os.WriteFile(filepath.Join(dir, fileNames[key]), []byte("{not json"), 0o644))
			},
		},
		DriverSQLite: {
			store: sqlite,
			corrupt: func(t *testing.T, key string) {
				_, err := sqlite.db.Exec(`INSERT OR REPLACE INTO state (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)`, key, "[1,")
				require.NoError(t, err)
			},
		},
		DriverRedis: {
			store: rds,
			corrupt: func(t *testing.T, key string) {
				require.NoError(t, mr.Set("test:"+key, "garbage"))
			},
		},
	}
}

func TestStoreEmptyBeforeFirstRun(t *testing.T) {
	for name, b := range newBackends(t, zap.NewNop()) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			results, err := b.store.LoadResults(ctx)
			require.NoError(t, err)
			assert.NotNil(t, results)
			assert.Empty(t, results)

			job, err := b.store.LoadJobSpec(ctx)
			require.NoError(t, err)
			assert.True(t, job.IsEmpty())
		})
	}
}

func TestStoreRoundTrip(t *testing.T) {
	job := screening.JobSpec{
		Title:      "Desenvolvedor Backend",
		Education:  "Superior completo",
		Experience: "3 anos",
		Required:   []string{"Go", "SQL"},
		Desired:    []string{"Kubernetes"},
		Notes:      "Remoto <híbrido>",
	}
	results := screening.ResultSet{
		{Name: "Ana", Score: 91, Justification: "Experiência sólida em Go", URL: "https://example.com/ana"},
		{Name: "Bruno", Score: 0, Justification: "Erro inesperado na análise: timeout", URL: screening.NotFoundURL, Degraded: true},
	}

	for name, b := range newBackends(t, zap.NewNop()) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			require.NoError(t, b.store.SaveJobSpec(ctx, job))
			require.NoError(t, b.store.SaveResults(ctx, results))

			gotJob, err := b.store.LoadJobSpec(ctx)
			require.NoError(t, err)
			assert.Equal(t, job, gotJob)

			gotResults, err := b.store.LoadResults(ctx)
			require.NoError(t, err)
			assert.Equal(t, results, gotResults)

			require.NoError(t, b.store.SaveResults(ctx, nil))
			gotResults, err = b.store.LoadResults(ctx)
			require.NoError(t, err)
			assert.NotNil(t, gotResults)
			assert.Empty(t, gotResults)
		})
	}
}

func TestStoreCorruptStateLoadsEmpty(t *testing.T) {
	core, observed := observer.New(zapcore.WarnLevel)

	for name, b := range newBackends(t, zap.New(core)) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			b.corrupt(t, keyResults)
			b.corrupt(t, keyJobSpec)

			results, err := b.store.LoadResults(ctx)
			require.NoError(t, err)
			assert.Empty(t, results)

			job, err := b.store.LoadJobSpec(ctx)
			require.NoError(t, err)
			assert.True(t, job.IsEmpty())
		})
	}

	assert.Equal(t, 6, observed.FilterMessageSnippet("treating").Len())
}

func TestFileStoreFormat(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFile(dir, nil)
	require.NoError(t, err)

	require.NoError(t, s.SaveResults(context.Background(), screening.ResultSet{
		{Name: "João", Score: 80, Justification: "Ótimo & direto", URL: "https://example.com/joao"},
	}))

	data, err := os.ReadFile(filepath.Join(dir, ResultsFile))
	require.NoError(t, err)

	text := string(data)
	assert.Contains(t, text, "\n        \"nome\": \"João\"")
	assert.Contains(t, text, "Ótimo & direto")
	assert.NotContains(t, text, "degradado")

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, e := range entries {
		assert.False(t, strings.HasSuffix(e.Name(), ".tmp"), "temp file left behind: %s", e.Name())
	}
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	s, err := Open(ctx, Config{DataDir: t.TempDir()}, nil)
	require.NoError(t, err)
	assert.IsType(t, &File{}, s)

	s, err = Open(ctx, Config{Driver: "SQLite", SQLite: filepath.Join(t.TempDir(), "x.db")}, nil)
	require.NoError(t, err)
	assert.IsType(t, &SQLite{}, s)
	require.NoError(t, s.Close())

	mr := miniredis.RunT(t)
	s, err = Open(ctx, Config{Driver: DriverRedis, Redis: RedisConfig{Addr: mr.Addr()}}, nil)
	require.NoError(t, err)
	require.NoError(t, s.SaveJobSpec(ctx, screening.JobSpec{Title: "QA"}))
	assert.True(t, mr.Exists(DefaultRedisPrefix+":"+keyJobSpec))
	require.NoError(t, s.Close())

	_, err = Open(ctx, Config{Driver: "postgres"}, nil)
	assert.Error(t, err)

	_, err = Open(ctx, Config{Driver: DriverRedis}, nil)
	assert.Error(t, err)
}
