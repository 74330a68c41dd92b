package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	auditdomain "github.com/nexuscore/nexuscore/internal/audit/domain"
	"github.com/nexuscore/nexuscore/internal/clock"
	"github.com/nexuscore/nexuscore/internal/config"
	consentdomain "github.com/nexuscore/nexuscore/internal/consent/domain"
	consentrepo "github.com/nexuscore/nexuscore/internal/consent/repository"
	consentservice "github.com/nexuscore/nexuscore/internal/consent/service"
	dsardomain "github.com/nexuscore/nexuscore/internal/dsar/domain"
	idempotencydomain "github.com/nexuscore/nexuscore/internal/idempotency/domain"
	retentionservice "github.com/nexuscore/nexuscore/internal/retention/service"
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

type fakeDSAR struct {
	dsardomain.Service
	expired int
}

func (f *fakeDSAR) ExpireExports(ctx context.Context, now time.Time) (int, error) {
	return f.expired, nil
}

type fakeIdempotency struct {
	idempotencydomain.Service
	removed int
}

func (f *fakeIdempotency) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	return f.removed, nil
}

func TestRunOncePurgesAndExpires(t *testing.T) {
	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&consentdomain.ConsentEvent{}, &consentdomain.PersonalDataRecord{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	fakeClock := clock.NewFakeClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	retention := retentionservice.NewService(retentionservice.Params{
		Log: zap.NewNop(),
		Holder: config.NewComplianceConfigHolderFromConfig(config.ComplianceConfig{
			RetentionPolicies: []config.RetentionEntry{
				{Category: "marketing", MaxRetentionDays: 30},
			},
		}),
	})
	consent := consentservice.NewService(consentservice.Params{
		DB:        db,
		Log:       zap.NewNop(),
		GenID:     node,
		Clock:     fakeClock,
		Repo:      consentrepo.Provide(),
		Retention: retention,
		AuditSvc:  noopAudit{},
	})

	ctx := context.Background()
	_, err = consent.RecordEvent(ctx, consentdomain.RecordEventRequest{
		SubjectID: "subj-1",
		Action:    consentdomain.ActionGrant,
	})
	require.NoError(t, err)
	_, err = consent.RecordCollection(ctx, consentdomain.CollectionRequest{
		SubjectID: "subj-1",
		Category:  "marketing",
	})
	require.NoError(t, err)

	s := New(Params{
		Cfg:         config.Config{SchedulerInterval: time.Hour},
		Log:         zap.NewNop(),
		Clock:       fakeClock,
		Consent:     consent,
		DSAR:        &fakeDSAR{expired: 2},
		Idempotency: &fakeIdempotency{removed: 1},
		AuditSvc:    noopAudit{},
	})

	// Within retention: nothing happens.
	s.RunOnce(ctx)
	state, err := consent.SubjectState(ctx, "subj-1")
	require.NoError(t, err)
	require.Len(t, state.Records, 1)
	assert.Nil(t, state.Records[0].PurgedAt)

	// Past retention the record is purged.
	fakeClock.Advance(31 * 24 * time.Hour)
	s.RunOnce(ctx)
	state, err = consent.SubjectState(ctx, "subj-1")
	require.NoError(t, err)
	require.Len(t, state.Records, 1)
	assert.NotNil(t, state.Records[0].PurgedAt)
}

func TestIntervalDefaulting(t *testing.T) {
	s := New(Params{
		Cfg:      config.Config{},
		Log:      zap.NewNop(),
		Clock:    clock.NewSystemClock(),
		Consent:  nil,
		DSAR:     nil,
		AuditSvc: noopAudit{},
	})
	assert.Equal(t, defaultRunInterval, s.interval)
}
