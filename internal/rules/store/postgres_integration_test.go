//go:build integration

package store_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"dataguard/internal/rules/models"
	"dataguard/internal/rules/store"
	"dataguard/pkg/domain"
	"dataguard/pkg/platform/sentinel"
	"dataguard/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *store.PostgresStore
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.NewPostgresContainer(s.T())
	s.postgres.Apply(s.T(), store.Schema())
	s.store = store.NewPostgres(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "quality_rules"))
}

func newTestRule(ruleType string, enabled bool) *models.RuleDefinition {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &models.RuleDefinition{
		RuleType:           domain.RuleType(ruleType),
		DisplayName:        "Email Address",
		Enabled:            enabled,
		Sensitivity:        models.SensitivityHigh,
		ColumnNameHints:    []string{"email", "email_address"},
		ValuePattern:       `@`,
		RequiresEncryption: true,
		ComplianceTags:     []string{"GDPR"},
		CreatedAt:          now,
		UpdatedAt:          now,
	}
}

func (s *PostgresStoreSuite) TestUpsertCreateThenUpdate() {
	ctx := context.Background()
	def := newTestRule("email", true)

	created, err := s.store.Upsert(ctx, def)
	s.Require().NoError(err)
	s.True(created)

	def.DisplayName = "Customer Email"
	def.Enabled = false
	def.UpdatedAt = def.UpdatedAt.Add(time.Minute)
	created, err = s.store.Upsert(ctx, def)
	s.Require().NoError(err)
	s.False(created)

	got, err := s.store.Get(ctx, def.RuleType)
	s.Require().NoError(err)
	s.Equal("Customer Email", got.DisplayName)
	s.False(got.Enabled)
	s.Equal([]string{"email", "email_address"}, got.ColumnNameHints)
	s.Equal([]string{"GDPR"}, got.ComplianceTags)
}

func (s *PostgresStoreSuite) TestGetMissing() {
	_, err := s.store.Get(context.Background(), "passport")
	s.Require().Error(err)
	s.True(errors.Is(err, sentinel.ErrNotFound))
}

func (s *PostgresStoreSuite) TestListFiltersByEnabled() {
	ctx := context.Background()

	email := newTestRule("email", true)
	_, err := s.store.Upsert(ctx, email)
	s.Require().NoError(err)

	ssn := newTestRule("ssn", false)
	ssn.DisplayName = "Social Security Number"
	_, err = s.store.Upsert(ctx, ssn)
	s.Require().NoError(err)

	enabled := true
	defs, total, err := s.store.List(ctx, store.ListFilter{Enabled: &enabled, Page: 1, PageSize: 20})
	s.Require().NoError(err)
	s.Equal(1, total)
	s.Require().Len(defs, 1)
	s.Equal(email.RuleType, defs[0].RuleType)
}

func (s *PostgresStoreSuite) TestSnapshotVersionTracksUpdates() {
	ctx := context.Background()

	def := newTestRule("email", true)
	_, err := s.store.Upsert(ctx, def)
	s.Require().NoError(err)

	defs, v1, err := s.store.Snapshot(ctx)
	s.Require().NoError(err)
	s.Len(defs, 1)

	def.UpdatedAt = def.UpdatedAt.Add(time.Minute)
	_, err = s.store.Upsert(ctx, def)
	s.Require().NoError(err)

	_, v2, err := s.store.Snapshot(ctx)
	s.Require().NoError(err)
	s.Greater(v2, v1)
}
