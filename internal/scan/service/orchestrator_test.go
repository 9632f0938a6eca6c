package service

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"dataguard/internal/catalog"
	"dataguard/internal/catalog/mocks"
	"dataguard/internal/classify"
	issueservice "dataguard/internal/issues/service"
	rulemodels "dataguard/internal/rules/models"
	"dataguard/internal/validate"
	"dataguard/pkg/domain"
	dErrors "dataguard/pkg/domain-errors"
	"dataguard/pkg/platform/sentinel"
)

type fakeSnapshotter struct {
	rules   []rulemodels.RuleDefinition
	version uint64
	err     error
}

func (f *fakeSnapshotter) Snapshot(ctx context.Context) ([]rulemodels.RuleDefinition, uint64, error) {
	return f.rules, f.version, f.err
}

type fakeLifecycle struct {
	mu       sync.Mutex
	findings []issueservice.Finding
	resolved []domain.RuleType
}

func (f *fakeLifecycle) Reconcile(ctx context.Context, finding issueservice.Finding) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.findings = append(f.findings, finding)
	return nil
}

func (f *fakeLifecycle) ResolveAllForRule(ctx context.Context, ruleType domain.RuleType, reason string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resolved = append(f.resolved, ruleType)
	return 3, nil
}

func (f *fakeLifecycle) snapshot() []issueservice.Finding {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]issueservice.Finding(nil), f.findings...)
}

type OrchestratorSuite struct {
	suite.Suite
	ctrl      *gomock.Controller
	catalog   *mocks.MockCatalog
	registry  *mocks.MockRegistry
	rules     *fakeSnapshotter
	lifecycle *fakeLifecycle
	sup       *Supervisor
	orch      *Orchestrator
}

func TestOrchestratorSuite(t *testing.T) {
	suite.Run(t, new(OrchestratorSuite))
}

func (s *OrchestratorSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.catalog = mocks.NewMockCatalog(s.ctrl)
	s.registry = mocks.NewMockRegistry(s.ctrl)
	s.rules = &fakeSnapshotter{version: 7}
	s.lifecycle = &fakeLifecycle{}
	s.sup = NewSupervisor(2, nil)

	validator := validate.New(s.catalog, s.registry, validate.Config{}, nil)
	s.orch = New(s.catalog, s.registry, classify.New(classify.Config{}), validator,
		s.rules, s.lifecycle, s.sup, nil)
}

func (s *OrchestratorSuite) TearDownTest() {
	s.sup.Close()
	s.ctrl.Finish()
}

func (s *OrchestratorSuite) newSource(id string) *mocks.MockDataSource {
	src := mocks.NewMockDataSource(s.ctrl)
	src.EXPECT().ID().Return(domain.DataSourceID(id)).AnyTimes()
	return src
}

func emailRule(requiresEncryption bool) rulemodels.RuleDefinition {
	return rulemodels.RuleDefinition{
		RuleType:           domain.RuleType("email"),
		DisplayName:        "Email address",
		Enabled:            true,
		Sensitivity:        rulemodels.SensitivityHigh,
		ColumnNameHints:    []string{"email"},
		RequiresEncryption: requiresEncryption,
	}
}

func (s *OrchestratorSuite) TestTriggerScanClassifiesAndReconciles() {
	s.rules.rules = []rulemodels.RuleDefinition{emailRule(true)}

	src := s.newSource("warehouse")
	asset := catalog.Asset{
		ID:           domain.AssetID("asset-1"),
		DataSourceID: domain.DataSourceID("warehouse"),
		Schema:       "public",
		Table:        "customers",
	}
	s.registry.EXPECT().List(gomock.Any()).Return([]catalog.DataSource{src}, nil)
	s.catalog.EXPECT().GetAssetsByDataSource(gomock.Any(), domain.DataSourceID("warehouse")).
		Return([]catalog.Asset{asset}, nil)
	s.catalog.EXPECT().ListColumns(gomock.Any(), asset.ID).
		Return([]catalog.Column{{Name: "id"}, {Name: "email"}}, nil)
	s.catalog.EXPECT().SetColumnClassification(gomock.Any(), catalog.Classification{
		AssetID:             asset.ID,
		ColumnQualifiedName: "public.customers.email",
		RuleType:            "email",
		IsSensitive:         true,
	}).Return(nil)

	// Validation samples the classified column and finds plaintext.
	s.registry.EXPECT().Get(gomock.Any(), domain.DataSourceID("warehouse")).Return(src, nil)
	src.EXPECT().SampleRows(gomock.Any(), "public", "customers", "email", 10).
		Return([]string{"alice@example.com", "bob@example.com"}, nil)

	summary, err := s.orch.TriggerScan(context.Background(), "email", "", false)
	s.Require().NoError(err)
	s.Equal(Summary{ColumnsClassified: 1, TablesAffected: 1, SourcesScanned: 1}, summary)

	findings := s.lifecycle.snapshot()
	s.Require().Len(findings, 1)
	s.Equal(domain.AssetID("asset-1"), findings[0].AssetID)
	s.Equal("public.customers.email", findings[0].ColumnQualifiedName)
	s.False(findings[0].Fixed)
	s.False(findings[0].Inconclusive)
	s.EqualValues("high", findings[0].Severity)
}

func (s *OrchestratorSuite) TestTriggerScanSkipsValidationWithoutProtection() {
	s.rules.rules = []rulemodels.RuleDefinition{emailRule(false)}

	src := s.newSource("warehouse")
	asset := catalog.Asset{ID: "asset-1", DataSourceID: "warehouse", Schema: "public", Table: "customers"}
	s.registry.EXPECT().List(gomock.Any()).Return([]catalog.DataSource{src}, nil)
	s.catalog.EXPECT().GetAssetsByDataSource(gomock.Any(), domain.DataSourceID("warehouse")).
		Return([]catalog.Asset{asset}, nil)
	s.catalog.EXPECT().ListColumns(gomock.Any(), asset.ID).
		Return([]catalog.Column{{Name: "email"}}, nil)
	s.catalog.EXPECT().SetColumnClassification(gomock.Any(), gomock.Any()).Return(nil)

	summary, err := s.orch.TriggerScan(context.Background(), "email", "", false)
	s.Require().NoError(err)
	s.Equal(1, summary.ColumnsClassified)
	s.Empty(s.lifecycle.snapshot())
}

func (s *OrchestratorSuite) TestTriggerScanUnknownRule() {
	s.rules.rules = []rulemodels.RuleDefinition{emailRule(false)}

	_, err := s.orch.TriggerScan(context.Background(), "ssn", "", false)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *OrchestratorSuite) TestTriggerScanDisabledRuleIsUnknown() {
	disabled := emailRule(false)
	disabled.Enabled = false
	s.rules.rules = []rulemodels.RuleDefinition{disabled}

	_, err := s.orch.TriggerScan(context.Background(), "email", "", false)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *OrchestratorSuite) TestTriggerScanClearExisting() {
	s.rules.rules = []rulemodels.RuleDefinition{emailRule(false)}

	s.catalog.EXPECT().ClearClassifications(gomock.Any(), domain.RuleType("email")).Return(nil)
	s.registry.EXPECT().List(gomock.Any()).Return(nil, nil)

	summary, err := s.orch.TriggerScan(context.Background(), "email", "", true)
	s.Require().NoError(err)
	s.Zero(summary.SourcesScanned)
}

func (s *OrchestratorSuite) TestTriggerScanNamedSource() {
	s.rules.rules = []rulemodels.RuleDefinition{emailRule(false)}

	src := s.newSource("warehouse")
	s.registry.EXPECT().Get(gomock.Any(), domain.DataSourceID("warehouse")).Return(src, nil)
	s.catalog.EXPECT().GetAssetsByDataSource(gomock.Any(), domain.DataSourceID("warehouse")).
		Return(nil, nil)

	summary, err := s.orch.TriggerScan(context.Background(), "email", "warehouse", false)
	s.Require().NoError(err)
	s.Equal(1, summary.SourcesScanned)

	s.registry.EXPECT().Get(gomock.Any(), domain.DataSourceID("missing")).
		Return(nil, sentinel.ErrNotFound)
	_, err = s.orch.TriggerScan(context.Background(), "email", "missing", false)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *OrchestratorSuite) TestTriggerScanContainsSourceFailures() {
	s.rules.rules = []rulemodels.RuleDefinition{emailRule(false)}

	bad := s.newSource("broken")
	good := s.newSource("warehouse")
	s.registry.EXPECT().List(gomock.Any()).Return([]catalog.DataSource{bad, good}, nil)

	s.catalog.EXPECT().GetAssetsByDataSource(gomock.Any(), domain.DataSourceID("broken")).
		Return(nil, sentinel.ErrUnavailable)
	s.catalog.EXPECT().GetAssetsByDataSource(gomock.Any(), domain.DataSourceID("warehouse")).
		Return(nil, nil)

	summary, err := s.orch.TriggerScan(context.Background(), "email", "", false)
	s.Require().NoError(err)
	s.Equal(1, summary.SourcesFailed)
	s.Equal(1, summary.SourcesScanned)
}

func (s *OrchestratorSuite) TestTriggerScanNoMatchesAcrossSources() {
	s.rules.rules = []rulemodels.RuleDefinition{emailRule(false)}

	var sources []catalog.DataSource
	for _, id := range []string{"a", "b", "c", "d", "e"} {
		src := s.newSource(id)
		sources = append(sources, src)
		s.catalog.EXPECT().GetAssetsByDataSource(gomock.Any(), domain.DataSourceID(id)).
			Return([]catalog.Asset{{ID: domain.AssetID("asset-" + id), DataSourceID: domain.DataSourceID(id), Schema: "public", Table: "t"}}, nil)
		s.catalog.EXPECT().ListColumns(gomock.Any(), domain.AssetID("asset-"+id)).
			Return([]catalog.Column{{Name: "id"}, {Name: "created_at"}}, nil)
	}
	s.registry.EXPECT().List(gomock.Any()).Return(sources, nil)

	summary, err := s.orch.TriggerScan(context.Background(), domain.RuleTypeAll, "", false)
	s.Require().NoError(err)
	s.Equal(Summary{SourcesScanned: 5}, summary)
	s.Empty(s.lifecycle.snapshot())
}

func (s *OrchestratorSuite) TestRescanAll() {
	ssn := emailRule(false)
	ssn.RuleType = "ssn"
	disabled := emailRule(false)
	disabled.RuleType = "phone"
	disabled.Enabled = false
	s.rules.rules = []rulemodels.RuleDefinition{emailRule(false), ssn, disabled}

	s.registry.EXPECT().List(gomock.Any()).Return(nil, nil)

	summary, err := s.orch.RescanAll(context.Background())
	s.Require().NoError(err)
	s.Equal(2, summary.RulesApplied)
}

func (s *OrchestratorSuite) TestRuleDisabledResolvesSynchronously() {
	err := s.orch.RuleDisabled(context.Background(), "email")
	s.Require().NoError(err)
	s.Equal([]domain.RuleType{"email"}, s.lifecycle.resolved)
}

func (s *OrchestratorSuite) TestRuleEnabledRunsDetachedPass() {
	s.rules.rules = []rulemodels.RuleDefinition{emailRule(false)}
	s.registry.EXPECT().List(gomock.Any()).Return(nil, nil)

	// Returns without waiting for the pass; Close joins it.
	s.orch.RuleEnabled(context.Background(), "email")
	s.sup.Close()
}
