package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/xkilldash9x/repairfill/internal/config"
)

// maxRedisRuns bounds the run history list.
const maxRedisRuns = 200

// Redis keeps preferences in one hash and the run history in a capped list of
// JSON records.
type Redis struct {
	client *redis.Client
	prefix string
	log    *zap.Logger
}

// redisRun is the JSON form of a RunRecord in the history list.
type redisRun struct {
	ID         string    `json:"id"`
	Kind       string    `json:"kind"`
	OK         bool      `json:"ok"`
	Status     string    `json:"status"`
	StartedAt  time.Time `json:"startedAt"`
	FinishedAt time.Time `json:"finishedAt"`
	Report     []byte    `json:"report"`
}

// OpenRedis connects to cfg.RedisAddr and verifies the connection.
func OpenRedis(ctx context.Context, cfg config.StoreConfig, logger *zap.Logger) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping redis at %s: %w", cfg.RedisAddr, err)
	}
	return NewRedis(client, cfg.KeyPrefix, logger), nil
}

// NewRedis wraps an existing client.
func NewRedis(client *redis.Client, prefix string, logger *zap.Logger) *Redis {
	return &Redis{client: client, prefix: prefix, log: logger.Named("store")}
}

func (r *Redis) prefsKey() string { return r.prefix + "prefs" }
func (r *Redis) runsKey() string  { return r.prefix + "runs" }

func (r *Redis) Get(ctx context.Context, key string) ([]byte, error) {
	v, err := r.client.HGet(ctx, r.prefsKey(), key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read preference %s: %w", key, err)
	}
	return v, nil
}

func (r *Redis) Set(ctx context.Context, key string, value []byte) error {
	if err := r.client.HSet(ctx, r.prefsKey(), key, value).Err(); err != nil {
		return fmt.Errorf("failed to write preference %s: %w", key, err)
	}
	return nil
}

func (r *Redis) Delete(ctx context.Context, key string) error {
	if err := r.client.HDel(ctx, r.prefsKey(), key).Err(); err != nil {
		return fmt.Errorf("failed to delete preference %s: %w", key, err)
	}
	return nil
}

func (r *Redis) Keys(ctx context.Context) ([]string, error) {
	keys, err := r.client.HKeys(ctx, r.prefsKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list preferences: %w", err)
	}
	sort.Strings(keys)
	return keys, nil
}

func (r *Redis) RecordRun(ctx context.Context, run RunRecord) error {
	data, err := json.Marshal(redisRun(run))
	if err != nil {
		return fmt.Errorf("failed to encode run %s: %w", run.ID, err)
	}
	_, err = r.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.LPush(ctx, r.runsKey(), data)
		p.LTrim(ctx, r.runsKey(), 0, maxRedisRuns-1)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to record run %s: %w", run.ID, err)
	}
	return nil
}

func (r *Redis) Runs(ctx context.Context, limit int) ([]RunRecord, error) {
	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit - 1)
	}
	items, err := r.client.LRange(ctx, r.runsKey(), 0, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	out := make([]RunRecord, 0, len(items))
	for _, item := range items {
		var rr redisRun
		if err := json.UnmarshalFromString(item, &rr); err != nil {
			r.log.Debug("Skipping unreadable run record.", zap.Error(err))
			continue
		}
		out = append(out, RunRecord(rr))
	}
	return out, nil
}

func (r *Redis) Close() error { return r.client.Close() }
