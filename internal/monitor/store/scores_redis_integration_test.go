//go:build integration

package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"dataguard/internal/monitor/models"
	"dataguard/internal/monitor/store"
	"dataguard/pkg/testutil/containers"
)

type RedisScoresSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	store *store.RedisScores
}

func TestRedisScoresSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisScoresSuite))
}

func (s *RedisScoresSuite) SetupSuite() {
	s.redis = containers.NewRedisContainer(s.T())
	s.store = store.NewRedisScores(s.redis.Client, 3)
}

func (s *RedisScoresSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
}

func sampleAt(score float64, at time.Time) models.ScoreSample {
	return models.ScoreSample{
		AssetID:         "pg-main.public.customers",
		DimensionScores: map[string]float64{"pii_protection": score},
		OverallScore:    score,
		OpenIssues:      1,
		MeasuredAt:      at,
	}
}

func (s *RedisScoresSuite) TestLatestAfterAppend() {
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)

	s.Require().NoError(s.store.Append(ctx, sampleAt(95, now)))
	s.Require().NoError(s.store.Append(ctx, sampleAt(80, now.Add(time.Minute))))

	latest, err := s.store.Latest(ctx, "pg-main.public.customers")
	s.Require().NoError(err)
	s.Require().NotNil(latest)
	s.Equal(float64(80), latest.OverallScore)
	s.Equal(80.0, latest.DimensionScores["pii_protection"])
	s.True(latest.MeasuredAt.Equal(now.Add(time.Minute)))
}

func (s *RedisScoresSuite) TestLatestEmptyScope() {
	latest, err := s.store.Latest(context.Background(), "warehouse.analytics.events")
	s.Require().NoError(err)
	s.Nil(latest)
}

func (s *RedisScoresSuite) TestWindowOldestFirstWithRetention() {
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)

	// retention of 3 drops the oldest of four appends
	for i, score := range []float64{100, 95, 90, 85} {
		s.Require().NoError(s.store.Append(ctx, sampleAt(score, now.Add(time.Duration(i)*time.Minute))))
	}

	window, err := s.store.Window(ctx, "pg-main.public.customers", 10)
	s.Require().NoError(err)
	s.Require().Len(window, 3)
	s.Equal(float64(95), window[0].OverallScore)
	s.Equal(float64(90), window[1].OverallScore)
	s.Equal(float64(85), window[2].OverallScore)
}

func (s *RedisScoresSuite) TestWindowLimit() {
	ctx := context.Background()
	now := time.Now().UTC()

	for i, score := range []float64{100, 95, 90} {
		s.Require().NoError(s.store.Append(ctx, sampleAt(score, now.Add(time.Duration(i)*time.Minute))))
	}

	window, err := s.store.Window(ctx, "pg-main.public.customers", 2)
	s.Require().NoError(err)
	s.Require().Len(window, 2)
	s.Equal(float64(95), window[0].OverallScore)
	s.Equal(float64(90), window[1].OverallScore)
}

func (s *RedisScoresSuite) TestScopesAreIsolated() {
	ctx := context.Background()
	now := time.Now().UTC()

	s.Require().NoError(s.store.Append(ctx, sampleAt(70, now)))
	global := sampleAt(90, now)
	global.AssetID = models.ScopeGlobal
	s.Require().NoError(s.store.Append(ctx, global))

	window, err := s.store.Window(ctx, models.ScopeGlobal, 10)
	s.Require().NoError(err)
	s.Require().Len(window, 1)
	s.Equal(float64(90), window[0].OverallScore)
}
