package classify

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"dataguard/internal/catalog"
	"dataguard/internal/catalog/mocks"
	"dataguard/internal/rules/models"
	"dataguard/pkg/domain"
)

type ClassifierSuite struct {
	suite.Suite
	ctrl       *gomock.Controller
	source     *mocks.MockDataSource
	classifier *Classifier
	asset      catalog.Asset
}

func TestClassifierSuite(t *testing.T) {
	suite.Run(t, new(ClassifierSuite))
}

func (s *ClassifierSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.source = mocks.NewMockDataSource(s.ctrl)
	s.classifier = New(Config{})
	s.asset = catalog.Asset{
		ID:           domain.AssetID("asset-1"),
		DataSourceID: domain.DataSourceID("warehouse"),
		Schema:       "public",
		Table:        "customers",
	}
}

func (s *ClassifierSuite) TearDownTest() {
	s.ctrl.Finish()
}

func nameRule(ruleType string, sensitivity models.SensitivityLevel, hints ...string) models.RuleDefinition {
	return models.RuleDefinition{
		RuleType:        domain.RuleType(ruleType),
		DisplayName:     ruleType,
		Enabled:         true,
		Sensitivity:     sensitivity,
		ColumnNameHints: hints,
	}
}

func (s *ClassifierSuite) TestNameHintBoundaries() {
	rule := nameRule("person_name", models.SensitivityMedium, "name")

	tests := []struct {
		column string
		match  bool
	}{
		{column: "name", match: true},
		{column: "first_name", match: true},
		{column: "customer_name", match: true},
		{column: "NAME", match: true},
		{column: "full-name", match: true},
		{column: "description", match: false},
		{column: "filename", match: false},
		{column: "username_hash", match: false},
		// Structural qualifiers: the name OF a schema is not a person's name.
		{column: "schema_name", match: false},
		{column: "table_name", match: false},
		{column: "display_name", match: false},
		{column: "product_name", match: false},
		{column: "name_type", match: false},
	}
	for _, tt := range tests {
		s.Run(tt.column, func() {
			res, err := s.classifier.Classify(context.Background(), s.asset,
				[]catalog.Column{{Name: tt.column, DataType: "text"}},
				[]models.RuleDefinition{rule}, nil)
			s.Require().NoError(err)
			if tt.match {
				s.Require().Len(res.Classifications, 1)
				s.Equal(domain.RuleType("person_name"), res.Classifications[0].RuleType)
				s.Equal("public.customers."+tt.column, res.Classifications[0].ColumnQualifiedName)
				s.True(res.Classifications[0].IsSensitive)
			} else {
				s.Empty(res.Classifications)
			}
		})
	}
}

func (s *ClassifierSuite) TestMultiTokenHints() {
	rule := nameRule("email", models.SensitivityHigh, "email_address")

	res, err := s.classifier.Classify(context.Background(), s.asset,
		[]catalog.Column{
			{Name: "email_address"},
			{Name: "user_email_address"},
			{Name: "email"},
		},
		[]models.RuleDefinition{rule}, nil)
	s.Require().NoError(err)
	s.Require().Len(res.Classifications, 2)
	s.Equal("public.customers.email_address", res.Classifications[0].ColumnQualifiedName)
	s.Equal("public.customers.user_email_address", res.Classifications[1].ColumnQualifiedName)
}

func (s *ClassifierSuite) TestDisabledRulesAreIgnored() {
	rule := nameRule("email", models.SensitivityHigh, "email")
	rule.Enabled = false

	res, err := s.classifier.Classify(context.Background(), s.asset,
		[]catalog.Column{{Name: "email"}},
		[]models.RuleDefinition{rule}, nil)
	s.Require().NoError(err)
	s.Empty(res.Classifications)
	s.Empty(res.Warnings)
}

func (s *ClassifierSuite) TestSystemSchemasAreNeverClassified() {
	rule := nameRule("person_name", models.SensitivityMedium, "name")
	for _, schema := range []string{"information_schema", "pg_catalog", "Metadata", " sys "} {
		s.Run(schema, func() {
			asset := s.asset
			asset.Schema = schema
			res, err := s.classifier.Classify(context.Background(), asset,
				[]catalog.Column{{Name: "column_name"}, {Name: "first_name"}},
				[]models.RuleDefinition{rule}, nil)
			s.Require().NoError(err)
			s.Empty(res.Classifications)
		})
	}
}

func (s *ClassifierSuite) TestConflictResolution() {
	s.Run("higher sensitivity wins", func() {
		low := nameRule("internal_id", models.SensitivityLow, "ssn")
		critical := nameRule("ssn", models.SensitivityCritical, "ssn")

		res, err := s.classifier.Classify(context.Background(), s.asset,
			[]catalog.Column{{Name: "ssn"}},
			[]models.RuleDefinition{low, critical}, nil)
		s.Require().NoError(err)
		s.Require().Len(res.Classifications, 1)
		s.Equal(domain.RuleType("ssn"), res.Classifications[0].RuleType)
	})

	s.Run("equal sensitivity resolves by rule type order", func() {
		b := nameRule("b_rule", models.SensitivityHigh, "contact")
		a := nameRule("a_rule", models.SensitivityHigh, "contact")

		// Input order must not matter.
		for _, rules := range [][]models.RuleDefinition{{b, a}, {a, b}} {
			res, err := s.classifier.Classify(context.Background(), s.asset,
				[]catalog.Column{{Name: "contact"}}, rules, nil)
			s.Require().NoError(err)
			s.Require().Len(res.Classifications, 1)
			s.Equal(domain.RuleType("a_rule"), res.Classifications[0].RuleType)
		}
	})
}

func (s *ClassifierSuite) TestValuePatternMatching() {
	rule := models.RuleDefinition{
		RuleType:     domain.RuleType("email"),
		DisplayName:  "Email",
		Enabled:      true,
		Sensitivity:  models.SensitivityHigh,
		ValuePattern: `^[^@\s]+@[^@\s]+\.[^@\s]+$`,
	}
	column := []catalog.Column{{Name: "contact_info"}}

	s.Run("ratio at threshold matches", func() {
		// 3 of 10 non-empty values, with empties excluded from the ratio.
		samples := []string{
			"a@example.com", "b@example.com", "c@example.com",
			"n/a", "n/a", "n/a", "n/a", "n/a", "n/a", "n/a",
			"", "  ",
		}
		s.source.EXPECT().SampleRows(gomock.Any(), "public", "customers", "contact_info", 25).
			Return(samples, nil)

		res, err := s.classifier.Classify(context.Background(), s.asset, column,
			[]models.RuleDefinition{rule}, s.source)
		s.Require().NoError(err)
		s.Require().Len(res.Classifications, 1)
	})

	s.Run("ratio below threshold does not match", func() {
		samples := []string{"a@example.com", "x", "y", "z", "w", "v", "u", "t", "s", "r"}
		s.source.EXPECT().SampleRows(gomock.Any(), "public", "customers", "contact_info", 25).
			Return(samples, nil)

		res, err := s.classifier.Classify(context.Background(), s.asset, column,
			[]models.RuleDefinition{rule}, s.source)
		s.Require().NoError(err)
		s.Empty(res.Classifications)
	})

	s.Run("all-empty samples do not match", func() {
		s.source.EXPECT().SampleRows(gomock.Any(), "public", "customers", "contact_info", 25).
			Return([]string{"", " ", ""}, nil)

		res, err := s.classifier.Classify(context.Background(), s.asset, column,
			[]models.RuleDefinition{rule}, s.source)
		s.Require().NoError(err)
		s.Empty(res.Classifications)
	})

	s.Run("sampling failure falls back to name-only", func() {
		s.source.EXPECT().SampleRows(gomock.Any(), "public", "customers", "contact_info", 25).
			Return(nil, errors.New("connection refused"))

		res, err := s.classifier.Classify(context.Background(), s.asset, column,
			[]models.RuleDefinition{rule}, s.source)
		s.Require().NoError(err)
		s.Empty(res.Classifications)
	})

	s.Run("nil source skips value matching", func() {
		res, err := s.classifier.Classify(context.Background(), s.asset, column,
			[]models.RuleDefinition{rule}, nil)
		s.Require().NoError(err)
		s.Empty(res.Classifications)
	})

	s.Run("source sampled once per column across rules", func() {
		second := rule
		second.RuleType = domain.RuleType("work_email")
		s.source.EXPECT().SampleRows(gomock.Any(), "public", "customers", "contact_info", 25).
			Return([]string{"a@example.com"}, nil).Times(1)

		res, err := s.classifier.Classify(context.Background(), s.asset, column,
			[]models.RuleDefinition{rule, second}, s.source)
		s.Require().NoError(err)
		s.Require().Len(res.Classifications, 1)
	})
}

func (s *ClassifierSuite) TestHybridRulePrefersNameHint() {
	rule := models.RuleDefinition{
		RuleType:        domain.RuleType("email"),
		DisplayName:     "Email",
		Enabled:         true,
		Sensitivity:     models.SensitivityHigh,
		ColumnNameHints: []string{"email"},
		ValuePattern:    `@`,
	}

	// Name already matches, so no sampling happens at all.
	res, err := s.classifier.Classify(context.Background(), s.asset,
		[]catalog.Column{{Name: "email"}},
		[]models.RuleDefinition{rule}, s.source)
	s.Require().NoError(err)
	s.Require().Len(res.Classifications, 1)
}

func (s *ClassifierSuite) TestMalformedPatternWarns() {
	s.Run("regex-only rule is skipped with a warning", func() {
		bad := models.RuleDefinition{
			RuleType:     domain.RuleType("broken"),
			DisplayName:  "Broken",
			Enabled:      true,
			Sensitivity:  models.SensitivityLow,
			ValuePattern: `[unclosed`,
		}
		res, err := s.classifier.Classify(context.Background(), s.asset,
			[]catalog.Column{{Name: "anything"}},
			[]models.RuleDefinition{bad}, s.source)
		s.Require().NoError(err)
		s.Empty(res.Classifications)
		s.Require().Len(res.Warnings, 1)
		s.Equal("broken", res.Warnings[0].RuleType)
	})

	s.Run("hybrid rule keeps matching on names", func() {
		bad := models.RuleDefinition{
			RuleType:        domain.RuleType("phone"),
			DisplayName:     "Phone",
			Enabled:         true,
			Sensitivity:     models.SensitivityMedium,
			ColumnNameHints: []string{"phone"},
			ValuePattern:    `[unclosed`,
		}
		res, err := s.classifier.Classify(context.Background(), s.asset,
			[]catalog.Column{{Name: "phone_number"}},
			[]models.RuleDefinition{bad}, nil)
		s.Require().NoError(err)
		s.Require().Len(res.Classifications, 1)
		s.Require().Len(res.Warnings, 1)
	})
}

func (s *ClassifierSuite) TestContextCancellation() {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rule := nameRule("email", models.SensitivityHigh, "email")
	_, err := s.classifier.Classify(ctx, s.asset,
		[]catalog.Column{{Name: "email"}},
		[]models.RuleDefinition{rule}, nil)
	s.Require().ErrorIs(err, context.Canceled)
}

func TestIsSystemSchema(t *testing.T) {
	for schema, want := range map[string]bool{
		"information_schema": true,
		"PG_CATALOG":         true,
		"public":             false,
		"sales":              false,
		"":                   false,
	} {
		if got := IsSystemSchema(schema); got != want {
			t.Errorf("IsSystemSchema(%q) = %v, want %v", schema, got, want)
		}
	}
}
