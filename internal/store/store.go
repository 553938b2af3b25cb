package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/cv-screener/internal/screening"
)

const (
	DriverFile   = "file"
	DriverSQLite = "sqlite"
	DriverRedis  = "redis"

	keyJobSpec = "job_spec"
	keyResults = "results"
)

// Store persists the job spec and the latest ranked results.
// Absent or unreadable state loads as empty.
type Store interface {
	LoadJobSpec(ctx context.Context) (screening.JobSpec, error)
	SaveJobSpec(ctx context.Context, job screening.JobSpec) error
	LoadResults(ctx context.Context) (screening.ResultSet, error)
	SaveResults(ctx context.Context, results screening.ResultSet) error
	Close() error
}

type Config struct {
	Driver  string      `mapstructure:"driver"`
	DataDir string      `mapstructure:"data-dir"`
	SQLite  string      `mapstructure:"sqlite-path"`
	Redis   RedisConfig `mapstructure:"redis"`
}

func Open(ctx context.Context, cfg Config, logger *zap.Logger) (Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	switch driver := strings.ToLower(strings.TrimSpace(cfg.Driver)); driver {
	case "", DriverFile:
		return NewFile(cfg.DataDir, logger)
	case DriverSQLite:
		return NewSQLite(ctx, cfg.SQLite, logger)
	case DriverRedis:
		return NewRedis(ctx, cfg.Redis, logger)
	default:
		return nil, fmt.Errorf("unsupported store driver: %s", cfg.Driver)
	}
}

// encode renders state as UTF-8 JSON indented by four spaces.
func encode(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeJobSpec(data []byte, source string, logger *zap.Logger) screening.JobSpec {
	var job screening.JobSpec
	if len(bytes.TrimSpace(data)) == 0 {
		return job
	}
	if err := json.Unmarshal(data, &job); err != nil {
		logger.Warn("job spec is unreadable, treating it as absent", zap.String("source", source), zap.Error(err))
		return screening.JobSpec{}
	}
	return job
}

func decodeResults(data []byte, source string, logger *zap.Logger) screening.ResultSet {
	results := screening.ResultSet{}
	if len(bytes.TrimSpace(data)) == 0 {
		return results
	}
	if err := json.Unmarshal(data, &results); err != nil {
		logger.Warn("results are unreadable, treating them as absent", zap.String("source", source), zap.Error(err))
		return screening.ResultSet{}
	}
	if results == nil {
		return screening.ResultSet{}
	}
	return results
}

func normalize(results screening.ResultSet) screening.ResultSet {
	if results == nil {
		return screening.ResultSet{}
	}
	return results
}
