package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spigell/cv-screener/internal/screening"
)

const DefaultRedisPrefix = "cv-screener"

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

// Redis keeps state documents under <prefix>:job_spec and <prefix>:results.
type Redis struct {
	client *redis.Client
	prefix string
	logger *zap.Logger
}

func NewRedis(ctx context.Context, cfg RedisConfig, logger *zap.Logger) (*Redis, error) {
	if strings.TrimSpace(cfg.Addr) == "" {
		return nil, errors.New("redis store requires an address")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("pinging redis: %w", err)
	}

	return NewRedisWithClient(client, cfg.Prefix, logger), nil
}

func NewRedisWithClient(client *redis.Client, prefix string, logger *zap.Logger) *Redis {
	if prefix = strings.TrimSpace(prefix); prefix == "" {
		prefix = DefaultRedisPrefix
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Redis{client: client, prefix: prefix, logger: logger}
}

func (r *Redis) LoadJobSpec(ctx context.Context) (screening.JobSpec, error) {
	data, err := r.get(ctx, keyJobSpec)
	if err != nil {
		return screening.JobSpec{}, err
	}
	return decodeJobSpec(data, r.key(keyJobSpec), r.logger), nil
}

func (r *Redis) SaveJobSpec(ctx context.Context, job screening.JobSpec) error {
	return r.set(ctx, keyJobSpec, job)
}

func (r *Redis) LoadResults(ctx context.Context) (screening.ResultSet, error) {
	data, err := r.get(ctx, keyResults)
	if err != nil {
		return nil, err
	}
	return decodeResults(data, r.key(keyResults), r.logger), nil
}

func (r *Redis) SaveResults(ctx context.Context, results screening.ResultSet) error {
	return r.set(ctx, keyResults, normalize(results))
}

func (r *Redis) Close() error {
	return r.client.Close()
}

func (r *Redis) key(name string) string {
	return r.prefix + ":" + name
}

func (r *Redis) get(ctx context.Context, name string) ([]byte, error) {
	data, err := r.client.Get(ctx, r.key(name)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", r.key(name), err)
	}
	return data, nil
}

func (r *Redis) set(ctx context.Context, name string, v any) error {
	data, err := encode(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", name, err)
	}
	if err := r.client.Set(ctx, r.key(name), data, 0).Err(); err != nil {
		return fmt.Errorf("writing %s: %w", r.key(name), err)
	}
	return nil
}
