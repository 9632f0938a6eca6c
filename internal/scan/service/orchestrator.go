// Package service implements the scan orchestrator: the component that
// walks data sources, classifies their columns, validates protections and
// hands findings to the issue lifecycle. It also receives rule transition
// triggers from the registry — enable schedules a detached pass, disable
// resolves that type's issues synchronously.
package service

import (
	"context"
	"strings"
	"time"

	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"dataguard/internal/catalog"
	"dataguard/internal/classify"
	issuemodels "dataguard/internal/issues/models"
	issueservice "dataguard/internal/issues/service"
	rulemodels "dataguard/internal/rules/models"
	scanmetrics "dataguard/internal/scan/metrics"
	"dataguard/internal/validate"
	"dataguard/pkg/domain"
	dErrors "dataguard/pkg/domain-errors"
)

// defaultSampleTimeout bounds any single external-source call so a hung
// warehouse cannot stall a pass.
const defaultSampleTimeout = 10 * time.Second

// RuleSnapshotter supplies immutable rule-set snapshots; a pass sees either
// the pre- or post-update rule set, never a torn read.
type RuleSnapshotter interface {
	Snapshot(ctx context.Context) ([]rulemodels.RuleDefinition, uint64, error)
}

// Lifecycle is the slice of the issue service the orchestrator drives.
type Lifecycle interface {
	Reconcile(ctx context.Context, finding issueservice.Finding) error
	ResolveAllForRule(ctx context.Context, ruleType domain.RuleType, reason string) (int, error)
}

// Auditor records scan passes on the audit trail.
type Auditor interface {
	ScanEvent(ctx context.Context, ruleType domain.RuleType, action, reason string)
}

// Summary is the synchronous response to one scan trigger.
type Summary struct {
	ColumnsClassified int `json:"columnsClassified"`
	TablesAffected    int `json:"tablesAffected"`
	SourcesScanned    int `json:"sourcesScanned"`
	SourcesFailed     int `json:"sourcesFailed"`
}

// AllSummary aggregates a full rescan across every enabled rule.
type AllSummary struct {
	RulesApplied           int `json:"rulesApplied"`
	TotalColumnsClassified int `json:"totalColumnsClassified"`
	TotalTablesAffected    int `json:"totalTablesAffected"`
	SourcesFailed          int `json:"sourcesFailed"`
}

// Orchestrator coordinates scan passes.
type Orchestrator struct {
	catalog       catalog.Catalog
	sources       catalog.Registry
	classifier    *classify.Classifier
	validator     *validate.Validator
	rules         RuleSnapshotter
	lifecycle     Lifecycle
	supervisor    *Supervisor
	auditor       Auditor
	metrics       *scanmetrics.Metrics
	logger        *slog.Logger
	tracer        trace.Tracer
	sampleTimeout time.Duration
}

// Option configures the orchestrator.
type Option func(*Orchestrator)

// WithAuditor wires the audit trail.
func WithAuditor(a Auditor) Option {
	return func(o *Orchestrator) { o.auditor = a }
}

// WithMetrics attaches Prometheus metrics.
func WithMetrics(m *scanmetrics.Metrics) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

// WithSampleTimeout overrides the per-source-call timeout.
func WithSampleTimeout(d time.Duration) Option {
	return func(o *Orchestrator) {
		if d > 0 {
			o.sampleTimeout = d
		}
	}
}

// New constructs an orchestrator.
func New(
	cat catalog.Catalog,
	sources catalog.Registry,
	classifier *classify.Classifier,
	validator *validate.Validator,
	rules RuleSnapshotter,
	lifecycle Lifecycle,
	supervisor *Supervisor,
	logger *slog.Logger,
	opts ...Option,
) *Orchestrator {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	o := &Orchestrator{
		catalog:       cat,
		sources:       sources,
		classifier:    classifier,
		validator:     validator,
		rules:         rules,
		lifecycle:     lifecycle,
		supervisor:    supervisor,
		logger:        logger,
		tracer:        otel.Tracer("dataguard/scan"),
		sampleTimeout: defaultSampleTimeout,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// RuleEnabled schedules a detached full pass for the type and returns
// immediately. The caller's request completes long before the pass does;
// the supervisor logs the outcome.
func (o *Orchestrator) RuleEnabled(_ context.Context, ruleType domain.RuleType) {
	if o.metrics != nil {
		o.metrics.ScansStarted.WithLabelValues("rule_enabled").Inc()
	}
	o.supervisor.Submit("scan:"+string(ruleType), func(ctx context.Context) error {
		summary, err := o.TriggerScan(ctx, ruleType, "", false)
		if err != nil {
			if o.auditor != nil {
				o.auditor.ScanEvent(ctx, ruleType, "failed", err.Error())
			}
			return err
		}
		if o.auditor != nil {
			o.auditor.ScanEvent(ctx, ruleType, "completed", "")
		}
		o.logger.InfoContext(ctx, "enable-triggered scan finished",
			"rule_type", ruleType,
			"columns_classified", summary.ColumnsClassified,
			"sources_failed", summary.SourcesFailed,
		)
		return nil
	})
}

// RuleDisabled resolves all open issues of the type. Disabling is
// authoritative on its own, so this is synchronous and touches no source.
func (o *Orchestrator) RuleDisabled(ctx context.Context, ruleType domain.RuleType) error {
	resolved, err := o.lifecycle.ResolveAllForRule(ctx, ruleType, "rule disabled")
	if err != nil {
		return err
	}
	if o.auditor != nil {
		o.auditor.ScanEvent(ctx, ruleType, "disabled", "")
	}
	o.logger.InfoContext(ctx, "resolved issues for disabled rule",
		"rule_type", ruleType,
		"resolved", resolved,
	)
	return nil
}

// TriggerScan runs one synchronous pass. ruleType narrows the pass to one
// rule (RuleTypeAll scans everything enabled); dataSourceID narrows it to
// one source ("" scans all registered sources). Per-source failures are
// contained: the pass continues and the summary reports them.
func (o *Orchestrator) TriggerScan(ctx context.Context, ruleType domain.RuleType, dataSourceID domain.DataSourceID, clearExisting bool) (Summary, error) {
	ctx, span := o.tracer.Start(ctx, "scan.pass",
		trace.WithAttributes(
			attribute.String("scan.rule_type", string(ruleType)),
			attribute.Bool("scan.clear_existing", clearExisting),
		))
	defer span.End()

	start := time.Now()
	defer func() {
		if o.metrics != nil {
			o.metrics.ScanDuration.Observe(time.Since(start).Seconds())
		}
	}()

	rules, version, err := o.selectRules(ctx, ruleType)
	if err != nil {
		return Summary{}, err
	}
	span.SetAttributes(attribute.Int64("scan.rules_version", int64(version)))

	if clearExisting {
		for _, rule := range rules {
			if err := o.catalog.ClearClassifications(ctx, rule.RuleType); err != nil {
				return Summary{}, dErrors.Wrap(err, dErrors.CodeInternal, "clearing classifications")
			}
		}
	}

	sources, err := o.selectSources(ctx, dataSourceID)
	if err != nil {
		return Summary{}, err
	}

	var summary Summary
	for _, src := range sources {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		if err := o.scanSource(ctx, src, rules, &summary); err != nil {
			summary.SourcesFailed++
			if o.metrics != nil {
				o.metrics.SourceFailures.Inc()
			}
			o.logger.ErrorContext(ctx, "data source scan failed",
				"data_source", src.ID(),
				"error", err,
			)
			continue
		}
		summary.SourcesScanned++
		if o.metrics != nil {
			o.metrics.SourcesScanned.Inc()
		}
	}

	o.logger.InfoContext(ctx, "scan pass finished",
		"rule_type", ruleType,
		"columns_classified", summary.ColumnsClassified,
		"tables_affected", summary.TablesAffected,
		"sources_scanned", summary.SourcesScanned,
		"sources_failed", summary.SourcesFailed,
	)
	return summary, nil
}

// RescanAll runs a synchronous pass over every enabled rule and source.
func (o *Orchestrator) RescanAll(ctx context.Context) (AllSummary, error) {
	rules, _, err := o.selectRules(ctx, domain.RuleTypeAll)
	if err != nil {
		return AllSummary{}, err
	}
	if o.metrics != nil {
		o.metrics.ScansStarted.WithLabelValues("rescan_all").Inc()
	}

	summary, err := o.TriggerScan(ctx, domain.RuleTypeAll, "", false)
	if err != nil {
		return AllSummary{}, err
	}
	return AllSummary{
		RulesApplied:           len(rules),
		TotalColumnsClassified: summary.ColumnsClassified,
		TotalTablesAffected:    summary.TablesAffected,
		SourcesFailed:          summary.SourcesFailed,
	}, nil
}

// selectRules snapshots the registry and narrows to the requested type.
func (o *Orchestrator) selectRules(ctx context.Context, ruleType domain.RuleType) ([]rulemodels.RuleDefinition, uint64, error) {
	rules, version, err := o.rules.Snapshot(ctx)
	if err != nil {
		return nil, 0, dErrors.Wrap(err, dErrors.CodeInternal, "snapshotting rules")
	}

	enabled := rules[:0:0]
	for _, rule := range rules {
		if !rule.Enabled {
			continue
		}
		if ruleType != domain.RuleTypeAll && rule.RuleType != ruleType {
			continue
		}
		enabled = append(enabled, rule)
	}
	if ruleType != domain.RuleTypeAll && len(enabled) == 0 {
		return nil, 0, dErrors.Newf(dErrors.CodeNotFound, "no enabled rule %s", ruleType)
	}
	return enabled, version, nil
}

func (o *Orchestrator) selectSources(ctx context.Context, dataSourceID domain.DataSourceID) ([]catalog.DataSource, error) {
	if dataSourceID != "" {
		src, err := o.sources.Get(ctx, dataSourceID)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeNotFound, "data source not found")
		}
		return []catalog.DataSource{src}, nil
	}
	sources, err := o.sources.List(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "listing data sources")
	}
	return sources, nil
}

// scanSource classifies every asset of one source and reconciles findings.
// An error here fails this source only.
func (o *Orchestrator) scanSource(ctx context.Context, src catalog.DataSource, rules []rulemodels.RuleDefinition, summary *Summary) error {
	ctx, span := o.tracer.Start(ctx, "scan.source",
		trace.WithAttributes(attribute.String("scan.data_source", string(src.ID()))))
	defer span.End()

	assets, err := o.catalog.GetAssetsByDataSource(ctx, src.ID())
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "listing assets")
	}

	byType := make(map[domain.RuleType]rulemodels.RuleDefinition, len(rules))
	for _, rule := range rules {
		byType[rule.RuleType] = rule
	}

	for _, asset := range assets {
		if err := ctx.Err(); err != nil {
			return err
		}
		columns, err := o.catalog.ListColumns(ctx, asset.ID)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeUnavailable, "listing columns")
		}

		result, err := o.classify(ctx, asset, columns, rules, src)
		if err != nil {
			return err
		}
		for _, warning := range result.Warnings {
			if o.metrics != nil {
				o.metrics.PatternWarnings.Inc()
			}
			o.logger.WarnContext(ctx, "rule skipped value matching",
				"rule_type", warning.RuleType,
				"reason", warning.Reason,
			)
		}
		if len(result.Classifications) == 0 {
			continue
		}

		summary.TablesAffected++
		for _, cls := range result.Classifications {
			if err := o.catalog.SetColumnClassification(ctx, cls); err != nil {
				return dErrors.Wrap(err, dErrors.CodeInternal, "writing classification")
			}
			summary.ColumnsClassified++
			if o.metrics != nil {
				o.metrics.ColumnsClassified.Inc()
			}
			o.reconcile(ctx, asset, cls, byType[cls.RuleType])
		}
	}
	return nil
}

// classify runs the classifier with the per-call sampling timeout.
func (o *Orchestrator) classify(ctx context.Context, asset catalog.Asset, columns []catalog.Column, rules []rulemodels.RuleDefinition, src catalog.DataSource) (classify.Result, error) {
	ctx, cancel := context.WithTimeout(ctx, o.sampleTimeout)
	defer cancel()
	return o.classifier.Classify(ctx, asset, columns, rules, src)
}

// reconcile validates one classified column and converges its issue state.
// Errors are logged, not propagated: one column's lifecycle trouble must
// not fail the rest of the source.
func (o *Orchestrator) reconcile(ctx context.Context, asset catalog.Asset, cls catalog.Classification, rule rulemodels.RuleDefinition) {
	if !rule.RequiresProtection() {
		return
	}

	ref := catalog.ColumnRef{
		AssetID:      asset.ID,
		DataSourceID: asset.DataSourceID,
		Schema:       asset.Schema,
		Table:        asset.Table,
		Column:       columnName(asset, cls.ColumnQualifiedName),
	}

	vctx, cancel := context.WithTimeout(ctx, o.sampleTimeout)
	result := o.validator.Validate(vctx, ref, rule.RequiresEncryption, rule.RequiresMasking)
	cancel()

	finding := issueservice.Finding{
		AssetID:             cls.AssetID,
		ColumnQualifiedName: cls.ColumnQualifiedName,
		RuleType:            cls.RuleType,
		Severity:            issuemodels.Severity(rule.Sensitivity),
		Fixed:               result.IsFixed,
		Inconclusive:        result.Inconclusive,
		Reason:              result.Reason,
		Samples:             result.Samples,
	}
	if err := o.lifecycle.Reconcile(ctx, finding); err != nil {
		o.logger.ErrorContext(ctx, "reconciling finding failed",
			"asset_id", cls.AssetID,
			"column", cls.ColumnQualifiedName,
			"rule_type", cls.RuleType,
			"error", err,
		)
	}
}

// columnName recovers the bare column name from the qualified form.
func columnName(asset catalog.Asset, qualified string) string {
	return strings.TrimPrefix(qualified, asset.Schema+"."+asset.Table+".")
}
