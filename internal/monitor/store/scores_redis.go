package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"dataguard/internal/monitor/models"
	"dataguard/pkg/domain"
)

// RedisScores keeps the rolling score window in Redis lists, one per scope,
// so history survives restarts and is shared across replicas.
type RedisScores struct {
	client    *redis.Client
	retention int
}

// NewRedisScores creates a Redis-backed score store.
func NewRedisScores(client *redis.Client, retention int) *RedisScores {
	if retention <= 0 {
		retention = defaultRetention
	}
	return &RedisScores{client: client, retention: retention}
}

func scoreKey(scope domain.AssetID) string {
	return "dataguard:scores:" + string(scope)
}

// Append pushes the sample and trims the list to the retention horizon.
func (s *RedisScores) Append(ctx context.Context, sample models.ScoreSample) error {
	payload, err := json.Marshal(sample)
	if err != nil {
		return fmt.Errorf("encoding score sample: %w", err)
	}
	key := scoreKey(sample.AssetID)
	pipe := s.client.TxPipeline()
	pipe.LPush(ctx, key, payload)
	pipe.LTrim(ctx, key, 0, int64(s.retention)-1)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("appending score sample: %w", err)
	}
	return nil
}

// Latest returns the most recent sample for the scope, or nil.
func (s *RedisScores) Latest(ctx context.Context, scope domain.AssetID) (*models.ScoreSample, error) {
	raw, err := s.client.LIndex(ctx, scoreKey(scope), 0).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading latest score: %w", err)
	}
	var sample models.ScoreSample
	if err := json.Unmarshal([]byte(raw), &sample); err != nil {
		return nil, fmt.Errorf("decoding score sample: %w", err)
	}
	return &sample, nil
}

// Window returns up to n most recent samples for the scope, oldest first.
func (s *RedisScores) Window(ctx context.Context, scope domain.AssetID, n int) ([]models.ScoreSample, error) {
	if n <= 0 {
		n = s.retention
	}
	raws, err := s.client.LRange(ctx, scoreKey(scope), 0, int64(n)-1).Result()
	if err != nil {
		return nil, fmt.Errorf("reading score window: %w", err)
	}
	out := make([]models.ScoreSample, 0, len(raws))
	// LPUSH stores newest first; reverse to oldest-first.
	for i := len(raws) - 1; i >= 0; i-- {
		var sample models.ScoreSample
		if err := json.Unmarshal([]byte(raws[i]), &sample); err != nil {
			return nil, fmt.Errorf("decoding score sample: %w", err)
		}
		out = append(out, sample)
	}
	return out, nil
}
