package domain

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "dataguard/pkg/domain-errors"
)

func TestParseIssueID(t *testing.T) {
	t.Run("rejects empty string", func(t *testing.T) {
		_, err := ParseIssueID("")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects invalid format", func(t *testing.T) {
		_, err := ParseIssueID("not-a-uuid")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects nil UUID", func(t *testing.T) {
		_, err := ParseIssueID(uuid.Nil.String())
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("round-trips a minted ID", func(t *testing.T) {
		id := NewIssueID()
		parsed, err := ParseIssueID(id.String())
		require.NoError(t, err)
		assert.Equal(t, id, parsed)
	})
}

func TestParseAlertID(t *testing.T) {
	id := NewAlertID()
	parsed, err := ParseAlertID(id.String())
	require.NoError(t, err)
	assert.Equal(t, id, parsed)

	_, err = ParseAlertID("nope")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
}

func TestParseRuleType(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    RuleType
		wantErr bool
	}{
		{name: "simple slug", in: "email", want: RuleType("email")},
		{name: "underscored slug", in: "credit_card", want: RuleType("credit_card")},
		{name: "normalizes case and whitespace", in: "  SSN ", want: RuleType("ssn")},
		{name: "wildcard is a valid slug", in: "all", want: RuleTypeAll},
		{name: "empty", in: "", wantErr: true},
		{name: "single character", in: "x", wantErr: true},
		{name: "leading digit", in: "4card", wantErr: true},
		{name: "punctuation", in: "email;drop", wantErr: true},
		{name: "too long", in: "a" + strings.Repeat("b", 64), wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseRuleType(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
