package service

import (
	"testing"
	"time"

	"github.com/nexuscore/nexuscore/internal/config"
	retentiondomain "github.com/nexuscore/nexuscore/internal/retention/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestService(cfg config.ComplianceConfig) retentiondomain.Service {
	return NewService(Params{
		Log:    zap.NewNop(),
		Holder: config.NewComplianceConfigHolderFromConfig(cfg),
	})
}

func TestPolicyLookup(t *testing.T) {
	svc := newTestService(config.DefaultComplianceConfig())

	retention, err := svc.MaxRetention("marketing")
	require.NoError(t, err)
	assert.Equal(t, 730*24*time.Hour, retention)

	hold, err := svc.LegalHold("financial")
	require.NoError(t, err)
	assert.True(t, hold)

	hold, err = svc.LegalHold("marketing")
	require.NoError(t, err)
	assert.False(t, hold)
}

func TestUnknownCategoryHasNoFallback(t *testing.T) {
	svc := newTestService(config.DefaultComplianceConfig())

	_, err := svc.MaxRetention("biometric")
	assert.ErrorIs(t, err, retentiondomain.ErrUnknownCategory)

	_, err = svc.LegalHold("biometric")
	assert.ErrorIs(t, err, retentiondomain.ErrUnknownCategory)

	_, err = svc.Policy("")
	assert.ErrorIs(t, err, retentiondomain.ErrUnknownCategory)
}

func TestListIsSorted(t *testing.T) {
	svc := newTestService(config.DefaultComplianceConfig())

	policies := svc.List()
	require.Len(t, policies, 4)
	assert.Equal(t, "account", policies[0].Category)
	assert.Equal(t, "financial", policies[1].Category)
	assert.Equal(t, "marketing", policies[2].Category)
	assert.Equal(t, "support", policies[3].Category)
}

func TestLookupReflectsReload(t *testing.T) {
	holder := config.NewComplianceConfigHolderFromConfig(config.ComplianceConfig{
		RetentionPolicies: []config.RetentionEntry{
			{Category: "marketing", MaxRetentionDays: 730},
		},
		DSARExportTTLDays: 30,
	})
	svc := NewService(Params{Log: zap.NewNop(), Holder: holder})

	retention, err := svc.MaxRetention("marketing")
	require.NoError(t, err)
	assert.Equal(t, 730*24*time.Hour, retention)

	// Simulate a hot reload shortening the period.
	holder2 := config.NewComplianceConfigHolderFromConfig(config.ComplianceConfig{
		RetentionPolicies: []config.RetentionEntry{
			{Category: "marketing", MaxRetentionDays: 30},
		},
	})
	svc2 := NewService(Params{Log: zap.NewNop(), Holder: holder2})
	retention, err = svc2.MaxRetention("marketing")
	require.NoError(t, err)
	assert.Equal(t, 30*24*time.Hour, retention)
}
