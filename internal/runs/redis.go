package runs

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"easyapply/internal/logging"
	"easyapply/internal/model"
)

const (
	StatusChannel   = "easyapply:status"
	runKeyPrefix    = "easyapply:run:"
	defaultSnapTTL  = 24 * time.Hour
	publishDeadline = 2 * time.Second
)

// NewRedisClient parses redisURL and verifies connectivity.
func NewRedisClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("redis.ParseURL: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return client, nil
}

func RunKey(runID string) string {
	return runKeyPrefix + runID
}

// RedisPublisher stores the latest snapshot of each run under RunKey and publishes
// every snapshot on StatusChannel. Failures are logged and never reach the run.
type RedisPublisher struct {
	rdb *redis.Client
	ttl time.Duration
	log *logging.Logger
}

func NewRedisPublisher(rdb *redis.Client, log *logging.Logger) *RedisPublisher {
	if log == nil {
		log = logging.Nop()
	}
	return &RedisPublisher{rdb: rdb, ttl: defaultSnapTTL, log: log}
}

func (p *RedisPublisher) Report(s model.StatusSnapshot) {
	data, err := json.Marshal(s)
	if err != nil {
		p.log.Warn("encode snapshot failed", "run_id", s.RunID, "err", err)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), publishDeadline)
	defer cancel()

	pipe := p.rdb.Pipeline()
	pipe.Set(ctx, RunKey(s.RunID), data, p.ttl)
	pipe.Publish(ctx, StatusChannel, data)
	if _, err := pipe.Exec(ctx); err != nil {
		p.log.Warn("publish snapshot failed", "run_id", s.RunID, "err", err)
	}
}

// LoadSnapshot reads the last published snapshot of runID.
func LoadSnapshot(ctx context.Context, rdb *redis.Client, runID string) (model.StatusSnapshot, error) {
	raw, err := rdb.Get(ctx, RunKey(runID)).Bytes()
	if err != nil {
		return model.StatusSnapshot{}, fmt.Errorf("get %s: %w", RunKey(runID), err)
	}
	var s model.StatusSnapshot
	if err := json.Unmarshal(raw, &s); err != nil {
		return model.StatusSnapshot{}, fmt.Errorf("decode snapshot %s: %w", runID, err)
	}
	return s, nil
}

func (p *RedisPublisher) Shutdown(ctx context.Context) error {
	return p.rdb.Close()
}
