package generation

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/pixelforge/pixelforge/internal/observability/logging"
	"github.com/pixelforge/pixelforge/pkg/errors"
	"github.com/pixelforge/pixelforge/pkg/types"
)

// SharedTier is the cross-process result cache behind the in-process
// tier. A miss returns (nil, nil).
type SharedTier interface {
	Get(ctx context.Context, fingerprint string) (*types.GenerationResult, error)
	Set(ctx context.Context, fingerprint string, result *types.GenerationResult, ttl time.Duration) error
	Close() error
}

// RedisTierOptions configures the Redis-backed shared tier
type RedisTierOptions struct {
	Address      string
	Password     string
	DB           int
	PoolSize     int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	KeyPrefix    string
}

// RedisTier implements SharedTier on Redis
type RedisTier struct {
	client    *redis.Client
	keyPrefix string
	logger    logging.Logger
}

// NewRedisTier connects to Redis and verifies the connection with a ping
func NewRedisTier(ctx context.Context, opts RedisTierOptions, logger logging.Logger) (*RedisTier, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         opts.Address,
		Password:     opts.Password,
		DB:           opts.DB,
		PoolSize:     opts.PoolSize,
		DialTimeout:  opts.DialTimeout,
		ReadTimeout:  opts.ReadTimeout,
		WriteTimeout: opts.WriteTimeout,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, errors.InfrastructureError("redis", err)
	}

	prefix := opts.KeyPrefix
	if prefix == "" {
		prefix = "pixelforge:gen:"
	}

	return &RedisTier{
		client:    client,
		keyPrefix: prefix,
		logger:    logger,
	}, nil
}

// Get fetches a cached result; a missing key is a plain miss
func (t *RedisTier) Get(ctx context.Context, fingerprint string) (*types.GenerationResult, error) {
	raw, err := t.client.Get(ctx, t.keyPrefix+fingerprint).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, errors.CacheFailureError("read", err)
	}

	var result types.GenerationResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, errors.CacheFailureError("decode", err)
	}
	result.Cached = true
	return &result, nil
}

// Set stores a result with the given TTL
func (t *RedisTier) Set(ctx context.Context, fingerprint string, result *types.GenerationResult, ttl time.Duration) error {
	raw, err := json.Marshal(result)
	if err != nil {
		return errors.CacheFailureError("encode", err)
	}

	if err := t.client.Set(ctx, t.keyPrefix+fingerprint, raw, ttl).Err(); err != nil {
		return errors.CacheFailureError("write", err)
	}
	return nil
}

// Close releases the Redis connection pool
func (t *RedisTier) Close() error {
	return t.client.Close()
}
