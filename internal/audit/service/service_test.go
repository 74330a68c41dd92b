package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	auditdomain "github.com/nexuscore/nexuscore/internal/audit/domain"
	auditrepo "github.com/nexuscore/nexuscore/internal/audit/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newTestService(t *testing.T) auditdomain.Service {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&auditdomain.AuditLog{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	return NewService(Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Repo:  auditrepo.Provide(),
	})
}

func TestAuditLogAndList(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	targetID := "42"
	require.NoError(t, svc.AuditLog(ctx, "admin", nil, "tax_rule.insert", "tax_rule", &targetID, map[string]any{
		"category": "standard",
	}))
	require.NoError(t, svc.AuditLog(ctx, "", nil, "invoice.issue", "invoice", nil, nil))

	entries, err := svc.List(ctx, auditdomain.ListRequest{})
	require.NoError(t, err)
	require.Len(t, entries, 2)

	entries, err = svc.List(ctx, auditdomain.ListRequest{Action: "tax_rule.insert"})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "admin", entries[0].ActorType)
	assert.Equal(t, "standard", entries[0].Metadata["category"])

	// Empty actor type defaults to system.
	entries, err = svc.List(ctx, auditdomain.ListRequest{Action: "invoice.issue"})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "system", entries[0].ActorType)
}

func TestAuditValidation(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	err := svc.AuditLog(ctx, "system", nil, "  ", "invoice", nil, nil)
	assert.ErrorIs(t, err, auditdomain.ErrInvalidAction)

	startAt := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	endAt := startAt.Add(-time.Hour)
	_, err = svc.List(ctx, auditdomain.ListRequest{StartAt: &startAt, EndAt: &endAt})
	assert.ErrorIs(t, err, auditdomain.ErrInvalidTimeRange)
}
