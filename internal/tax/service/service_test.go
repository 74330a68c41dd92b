package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	auditdomain "github.com/nexuscore/nexuscore/internal/audit/domain"
	taxdomain "github.com/nexuscore/nexuscore/internal/tax/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type noopAudit struct{}

func (noopAudit) AuditLog(ctx context.Context, actorType string, actorID *string, action string, targetType string, targetID *string, metadata map[string]any) error {
	return nil
}

func (noopAudit) List(ctx context.Context, req auditdomain.ListRequest) ([]auditdomain.AuditLog, error) {
	return nil, nil
}

func newTestService(t *testing.T) taxdomain.Service {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&taxdomain.TaxRule{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	svc, err := NewService(Params{
		DB:       db,
		Log:      zap.NewNop(),
		GenID:    node,
		Repo:     testRepo{},
		AuditSvc: noopAudit{},
	})
	require.NoError(t, err)
	return svc
}

type testRepo struct{}

func (testRepo) ListAll(ctx context.Context, db *gorm.DB) ([]taxdomain.TaxRule, error) {
	var rules []taxdomain.TaxRule
	err := db.WithContext(ctx).Order("category asc, effective_from asc").Find(&rules).Error
	return rules, err
}

func (testRepo) Insert(ctx context.Context, db *gorm.DB, rule *taxdomain.TaxRule) error {
	return db.WithContext(ctx).Create(rule).Error
}

func ts(value string) time.Time {
	parsed, err := time.Parse(time.RFC3339, value)
	if err != nil {
		panic(err)
	}
	return parsed
}

func tsPtr(value string) *time.Time {
	parsed := ts(value)
	return &parsed
}

func TestInsertAndRateFor(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.Insert(ctx, taxdomain.CreateRequest{
		Category:      "standard",
		RateBps:       800,
		EffectiveFrom: ts("2023-01-01T00:00:00Z"),
		EffectiveTo:   tsPtr("2024-01-01T00:00:00Z"),
	})
	require.NoError(t, err)

	_, err = svc.Insert(ctx, taxdomain.CreateRequest{
		Category:      "standard",
		RateBps:       900,
		EffectiveFrom: ts("2024-01-01T00:00:00Z"),
	})
	require.NoError(t, err)

	snapshot, err := svc.RateFor("standard", ts("2023-06-15T12:00:00Z"))
	require.NoError(t, err)
	assert.Equal(t, int64(800), snapshot.RateBps)

	snapshot, err = svc.RateFor("standard", ts("2025-03-01T00:00:00Z"))
	require.NoError(t, err)
	assert.Equal(t, int64(900), snapshot.RateBps)
	assert.Equal(t, taxdomain.IRASCodeStandardRate, snapshot.IRASCode)
}

func TestEffectiveToIsExclusive(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.Insert(ctx, taxdomain.CreateRequest{
		Category:      "standard",
		RateBps:       800,
		EffectiveFrom: ts("2023-01-01T00:00:00Z"),
		EffectiveTo:   tsPtr("2024-01-01T00:00:00Z"),
	})
	require.NoError(t, err)

	// The boundary instant belongs to the next rule, not this one.
	_, err = svc.RateFor("standard", ts("2024-01-01T00:00:00Z"))
	assert.ErrorIs(t, err, taxdomain.ErrNoApplicableRule)

	// Adjacent ranges sharing a boundary do not conflict.
	_, err = svc.Insert(ctx, taxdomain.CreateRequest{
		Category:      "standard",
		RateBps:       900,
		EffectiveFrom: ts("2024-01-01T00:00:00Z"),
	})
	require.NoError(t, err)

	snapshot, err := svc.RateFor("standard", ts("2024-01-01T00:00:00Z"))
	require.NoError(t, err)
	assert.Equal(t, int64(900), snapshot.RateBps)
}

func TestRateForGapFails(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.Insert(ctx, taxdomain.CreateRequest{
		Category:      "standard",
		RateBps:       700,
		EffectiveFrom: ts("2020-01-01T00:00:00Z"),
		EffectiveTo:   tsPtr("2023-01-01T00:00:00Z"),
	})
	require.NoError(t, err)
	_, err = svc.Insert(ctx, taxdomain.CreateRequest{
		Category:      "standard",
		RateBps:       900,
		EffectiveFrom: ts("2024-01-01T00:00:00Z"),
	})
	require.NoError(t, err)

	_, err = svc.RateFor("standard", ts("2023-06-01T00:00:00Z"))
	assert.ErrorIs(t, err, taxdomain.ErrNoApplicableRule)

	_, err = svc.RateFor("standard", ts("2019-12-31T23:59:59Z"))
	assert.ErrorIs(t, err, taxdomain.ErrNoApplicableRule)
}

func TestInsertRejectsOverlap(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.Insert(ctx, taxdomain.CreateRequest{
		Category:      "standard",
		RateBps:       800,
		EffectiveFrom: ts("2023-01-01T00:00:00Z"),
		EffectiveTo:   tsPtr("2024-01-01T00:00:00Z"),
	})
	require.NoError(t, err)

	tests := []struct {
		name string
		req  taxdomain.CreateRequest
	}{
		{
			name: "contained range",
			req: taxdomain.CreateRequest{
				Category:      "standard",
				RateBps:       850,
				EffectiveFrom: ts("2023-03-01T00:00:00Z"),
				EffectiveTo:   tsPtr("2023-06-01T00:00:00Z"),
			},
		},
		{
			name: "straddling start",
			req: taxdomain.CreateRequest{
				Category:      "standard",
				RateBps:       850,
				EffectiveFrom: ts("2022-06-01T00:00:00Z"),
				EffectiveTo:   tsPtr("2023-02-01T00:00:00Z"),
			},
		},
		{
			name: "open-ended covering everything",
			req: taxdomain.CreateRequest{
				Category:      "standard",
				RateBps:       850,
				EffectiveFrom: ts("2022-01-01T00:00:00Z"),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Insert(ctx, tt.req)
			assert.ErrorIs(t, err, taxdomain.ErrRuleConflict)
		})
	}

	// A different category is independent.
	_, err = svc.Insert(ctx, taxdomain.CreateRequest{
		Category:      "zero_rated",
		RateBps:       0,
		IRASCode:      taxdomain.IRASCodeZeroRate,
		EffectiveFrom: ts("2023-03-01T00:00:00Z"),
	})
	require.NoError(t, err)
}

func TestInsertValidation(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.Insert(ctx, taxdomain.CreateRequest{
		Category:      "",
		RateBps:       900,
		EffectiveFrom: ts("2024-01-01T00:00:00Z"),
	})
	assert.ErrorIs(t, err, taxdomain.ErrInvalidCategory)

	_, err = svc.Insert(ctx, taxdomain.CreateRequest{
		Category:      "standard",
		RateBps:       -1,
		EffectiveFrom: ts("2024-01-01T00:00:00Z"),
	})
	assert.ErrorIs(t, err, taxdomain.ErrInvalidRate)

	_, err = svc.Insert(ctx, taxdomain.CreateRequest{
		Category:      "standard",
		RateBps:       900,
		EffectiveFrom: ts("2024-01-01T00:00:00Z"),
		EffectiveTo:   tsPtr("2023-01-01T00:00:00Z"),
	})
	assert.ErrorIs(t, err, taxdomain.ErrInvalidEffectiveRange)

	_, err = svc.Insert(ctx, taxdomain.CreateRequest{
		Category:      "standard",
		RateBps:       900,
		IRASCode:      "XX",
		EffectiveFrom: ts("2024-01-01T00:00:00Z"),
	})
	assert.ErrorIs(t, err, taxdomain.ErrInvalidIRASCode)
}

func TestListFiltersByCategoryAndInstant(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.Insert(ctx, taxdomain.CreateRequest{
		Category:      "standard",
		RateBps:       800,
		EffectiveFrom: ts("2023-01-01T00:00:00Z"),
		EffectiveTo:   tsPtr("2024-01-01T00:00:00Z"),
	})
	require.NoError(t, err)
	_, err = svc.Insert(ctx, taxdomain.CreateRequest{
		Category:      "standard",
		RateBps:       900,
		EffectiveFrom: ts("2024-01-01T00:00:00Z"),
	})
	require.NoError(t, err)
	_, err = svc.Insert(ctx, taxdomain.CreateRequest{
		Category:      "zero_rated",
		RateBps:       0,
		IRASCode:      taxdomain.IRASCodeZeroRate,
		EffectiveFrom: ts("2023-01-01T00:00:00Z"),
	})
	require.NoError(t, err)

	all, err := svc.List(ctx, taxdomain.ListRequest{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	at := ts("2024-06-01T00:00:00Z")
	effective, err := svc.List(ctx, taxdomain.ListRequest{At: &at})
	require.NoError(t, err)
	assert.Len(t, effective, 2)

	standard, err := svc.List(ctx, taxdomain.ListRequest{Category: "standard"})
	require.NoError(t, err)
	assert.Len(t, standard, 2)
}

func TestRulesSurviveRestart(t *testing.T) {
	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&taxdomain.TaxRule{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	params := Params{
		DB:       db,
		Log:      zap.NewNop(),
		GenID:    node,
		Repo:     testRepo{},
		AuditSvc: noopAudit{},
	}

	first, err := NewService(params)
	require.NoError(t, err)
	_, err = first.Insert(context.Background(), taxdomain.CreateRequest{
		Category:      "standard",
		RateBps:       900,
		EffectiveFrom: ts("2024-01-01T00:00:00Z"),
	})
	require.NoError(t, err)

	// A fresh service over the same database sees the persisted rules.
	second, err := NewService(params)
	require.NoError(t, err)
	snapshot, err := second.RateFor("standard", ts("2024-06-01T00:00:00Z"))
	require.NoError(t, err)
	assert.Equal(t, int64(900), snapshot.RateBps)
}
