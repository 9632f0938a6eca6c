// Package validate confirms whether a claimed remediation is actually
// present by inspecting live sampled data (encryption) or stored display
// configuration (masking).
//
// The encryption check is a heuristic. Its thresholds are configuration,
// not constants, and borderline samples are logged for audit rather than
// assumed correct: for compliance tooling a false "not fixed" is safer than
// a false "fixed".
package validate

import (
	"context"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"dataguard/internal/catalog"
)

// ReasonInconclusive is returned whenever live data cannot be inspected.
// Connectivity failure must never read as "fixed".
const ReasonInconclusive = "validation inconclusive"

// maxEvidenceSamples bounds how many offending values a result carries for
// operator diagnosis.
const maxEvidenceSamples = 3

// evidenceTruncateLen bounds how much of an offending value is retained.
// The evidence ends up in issue descriptions; storing whole plaintext PII
// there would defeat the point.
const evidenceTruncateLen = 32

// encodedPrefixes tag values that some encryption layer already wrapped.
var encodedPrefixes = []string{
	"enc:",
	"ENC(",
	"{cipher}",
	"vault:v1:",
	"aws:kms:",
	"crypt:",
}

// Config tunes the encryption heuristic.
type Config struct {
	// SampleSize is how many non-null values to sample per validation.
	SampleSize int

	// EncryptedRatio is the fraction of non-empty samples that must look
	// encrypted for the column to count as fixed.
	EncryptedRatio float64

	// EntropyThreshold is the bits-per-char floor above which a value looks
	// like ciphertext. ~4.5 empirically separates ciphertext from text.
	EntropyThreshold float64

	// BorderlineMargin widens the band around EntropyThreshold inside which
	// samples are logged for audit.
	BorderlineMargin float64

	// MinBase64Len / MinHexLen are the minimum lengths for an encoding to
	// count as possible ciphertext rather than a short token.
	MinBase64Len int
	MinHexLen    int
}

// DefaultConfig returns the production tuning.
func DefaultConfig() Config {
	return Config{
		SampleSize:       10,
		EncryptedRatio:   0.80,
		EntropyThreshold: 4.5,
		BorderlineMargin: 0.3,
		MinBase64Len:     24,
		MinHexLen:        32,
	}
}

// Result is the outcome of validating one column's remediation claim.
// Inconclusive results mean live state could not be inspected; callers must
// not treat them as evidence in either direction.
type Result struct {
	IsFixed      bool
	Inconclusive bool
	Reason       string
	// Samples holds up to three truncated offending values for diagnosis.
	Samples []string
}

// Validator inspects live state through the catalog and data source ports.
type Validator struct {
	catalog catalog.Catalog
	sources catalog.Registry
	cfg     Config
	logger  *slog.Logger
}

// New constructs a validator; zero-valued config fields fall back to
// defaults.
func New(cat catalog.Catalog, sources catalog.Registry, cfg Config, logger *slog.Logger) *Validator {
	def := DefaultConfig()
	if cfg.SampleSize <= 0 {
		cfg.SampleSize = def.SampleSize
	}
	if cfg.EncryptedRatio <= 0 || cfg.EncryptedRatio > 1 {
		cfg.EncryptedRatio = def.EncryptedRatio
	}
	if cfg.EntropyThreshold <= 0 {
		cfg.EntropyThreshold = def.EntropyThreshold
	}
	if cfg.BorderlineMargin <= 0 {
		cfg.BorderlineMargin = def.BorderlineMargin
	}
	if cfg.MinBase64Len <= 0 {
		cfg.MinBase64Len = def.MinBase64Len
	}
	if cfg.MinHexLen <= 0 {
		cfg.MinHexLen = def.MinHexLen
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Validator{catalog: cat, sources: sources, cfg: cfg, logger: logger}
}

// Validate checks whether the protections a rule requires are actually in
// place for the column. Both requirements must hold when both are set.
func (v *Validator) Validate(ctx context.Context, ref catalog.ColumnRef, requiresEncryption, requiresMasking bool) Result {
	if !requiresEncryption && !requiresMasking {
		return Result{IsFixed: true, Reason: "no protection required"}
	}

	if requiresMasking {
		res := v.validateMasking(ctx, ref)
		if !res.IsFixed {
			return res
		}
	}
	if requiresEncryption {
		return v.validateEncryption(ctx, ref)
	}
	return Result{IsFixed: true, Reason: "masking enabled in display configuration"}
}

// validateMasking reads the stored display configuration; configuration is
// the source of truth for masking, so no live data is sampled.
func (v *Validator) validateMasking(ctx context.Context, ref catalog.ColumnRef) Result {
	cfg, err := v.catalog.GetColumnDisplayConfig(ctx, ref)
	if err != nil {
		v.logger.WarnContext(ctx, "display config unavailable",
			"column", ref.QualifiedName(),
			"error", err,
		)
		return Result{IsFixed: false, Inconclusive: true, Reason: ReasonInconclusive}
	}
	if !cfg.MaskingEnabled {
		return Result{IsFixed: false, Reason: "masking not enabled in display configuration"}
	}
	return Result{IsFixed: true, Reason: "masking enabled in display configuration"}
}

// validateEncryption samples live values and applies the ciphertext
// heuristic.
func (v *Validator) validateEncryption(ctx context.Context, ref catalog.ColumnRef) Result {
	src, err := v.sources.Get(ctx, ref.DataSourceID)
	if err != nil {
		v.logger.WarnContext(ctx, "data source unavailable for validation",
			"column", ref.QualifiedName(),
			"data_source", ref.DataSourceID,
			"error", err,
		)
		return Result{IsFixed: false, Inconclusive: true, Reason: ReasonInconclusive}
	}

	samples, err := src.SampleRows(ctx, ref.Schema, ref.Table, ref.Column, v.cfg.SampleSize)
	if err != nil {
		v.logger.WarnContext(ctx, "sampling failed during validation",
			"column", ref.QualifiedName(),
			"data_source", ref.DataSourceID,
			"error", err,
		)
		return Result{IsFixed: false, Inconclusive: true, Reason: ReasonInconclusive}
	}

	nonEmpty, encrypted := 0, 0
	var offending []string
	for _, value := range samples {
		if strings.TrimSpace(value) == "" {
			continue
		}
		nonEmpty++
		if v.looksEncrypted(ctx, ref, value) {
			encrypted++
		} else if len(offending) < maxEvidenceSamples {
			offending = append(offending, truncate(value, evidenceTruncateLen))
		}
	}

	if nonEmpty == 0 {
		// No data to inspect; do not certify the fix on an empty sample.
		return Result{IsFixed: false, Inconclusive: true, Reason: ReasonInconclusive + ": no non-empty samples"}
	}

	ratio := float64(encrypted) / float64(nonEmpty)
	if ratio >= v.cfg.EncryptedRatio {
		return Result{
			IsFixed: true,
			Reason:  fmt.Sprintf("%d/%d sampled values look encrypted", encrypted, nonEmpty),
		}
	}
	return Result{
		IsFixed: false,
		Reason:  fmt.Sprintf("%d/%d sampled values look encrypted, below required %.0f%%", encrypted, nonEmpty, v.cfg.EncryptedRatio*100),
		Samples: offending,
	}
}

// looksEncrypted classifies one value: a known encoded prefix, a sufficiently
// long base64/hex payload, or entropy above the configured threshold.
func (v *Validator) looksEncrypted(ctx context.Context, ref catalog.ColumnRef, value string) bool {
	for _, prefix := range encodedPrefixes {
		if strings.HasPrefix(value, prefix) {
			return true
		}
	}
	if len(value) >= v.cfg.MinBase64Len && isBase64(value) {
		return true
	}
	if len(value) >= v.cfg.MinHexLen && isHex(value) {
		return true
	}

	h := shannonEntropy(value)
	if math.Abs(h-v.cfg.EntropyThreshold) <= v.cfg.BorderlineMargin {
		v.logger.WarnContext(ctx, "borderline entropy sample",
			"column", ref.QualifiedName(),
			"entropy", h,
			"threshold", v.cfg.EntropyThreshold,
			"length", len(value),
		)
	}
	return h >= v.cfg.EntropyThreshold
}

func isBase64(s string) bool {
	if len(s)%4 != 0 {
		return false
	}
	_, err := base64.StdEncoding.DecodeString(s)
	return err == nil
}

func isHex(s string) bool {
	if len(s)%2 != 0 {
		return false
	}
	_, err := hex.DecodeString(s)
	return err == nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "…"
}
