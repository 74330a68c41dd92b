package service

import (
	"context"
	"encoding/json"
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
	dsarrepo "github.com/nexuscore/nexuscore/internal/dsar/repository"
	invoicedomain "github.com/nexuscore/nexuscore/internal/invoice/domain"
	invoicerepo "github.com/nexuscore/nexuscore/internal/invoice/repository"
	invoiceservice "github.com/nexuscore/nexuscore/internal/invoice/service"
	retentionservice "github.com/nexuscore/nexuscore/internal/retention/service"
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

type staticResolver struct{}

func (staticResolver) RateFor(category string, at time.Time) (taxdomain.RateSnapshot, error) {
	return taxdomain.RateSnapshot{Category: category, RateBps: 900, IRASCode: taxdomain.IRASCodeStandardRate}, nil
}

type fixture struct {
	dsar    dsardomain.Service
	consent consentdomain.Service
	invoice invoicedomain.Service
	clock   *clock.FakeClock
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&consentdomain.ConsentEvent{},
		&consentdomain.PersonalDataRecord{},
		&invoicedomain.Invoice{},
		&invoicedomain.InvoiceLine{},
		&invoicedomain.InvoiceTaxLine{},
		&dsardomain.Request{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	fakeClock := clock.NewFakeClock(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC))
	holder := config.NewComplianceConfigHolderFromConfig(config.ComplianceConfig{
		RetentionPolicies: []config.RetentionEntry{
			{Category: "marketing", MaxRetentionDays: 730},
			{Category: "financial", MaxRetentionDays: 2555, LegalHold: true},
		},
		DSARExportTTLDays: 30,
	})
	retention := retentionservice.NewService(retentionservice.Params{
		Log:    zap.NewNop(),
		Holder: holder,
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
	invoice := invoiceservice.NewService(invoiceservice.Params{
		Cfg:      config.Config{Currency: "SGD"},
		DB:       db,
		Log:      zap.NewNop(),
		GenID:    node,
		Clock:    fakeClock,
		Repo:     invoicerepo.Provide(),
		Resolver: staticResolver{},
		AuditSvc: noopAudit{},
	})
	dsar := NewService(Params{
		DB:       db,
		Log:      zap.NewNop(),
		GenID:    node,
		Clock:    fakeClock,
		Repo:     dsarrepo.Provide(),
		Consent:  consent,
		Invoices: invoice,
		Holder:   holder,
		AuditSvc: noopAudit{},
	})

	return &fixture{dsar: dsar, consent: consent, invoice: invoice, clock: fakeClock}
}

func (f *fixture) seedSubject(t *testing.T, subjectID string) {
	t.Helper()
	ctx := context.Background()

	_, err := f.consent.RecordEvent(ctx, consentdomain.RecordEventRequest{
		SubjectID: subjectID,
		Action:    consentdomain.ActionGrant,
	})
	require.NoError(t, err)
	_, err = f.consent.RecordCollection(ctx, consentdomain.CollectionRequest{
		SubjectID:    subjectID,
		Category:     "marketing",
		SubjectEmail: subjectID + "@example.com",
	})
	require.NoError(t, err)
	_, err = f.consent.RecordCollection(ctx, consentdomain.CollectionRequest{
		SubjectID: subjectID,
		Category:  "financial",
	})
	require.NoError(t, err)
	_, err = f.invoice.Create(ctx, invoicedomain.CreateRequest{
		CustomerID: subjectID,
		Lines: []invoicedomain.LineInput{
			{Description: "subscription", Quantity: 1, UnitPrice: 10_000, Category: "standard"},
		},
	})
	require.NoError(t, err)
}

func TestExportRequestLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedSubject(t, "subj-1")

	created, err := f.dsar.Create(ctx, dsardomain.CreateRequest{
		SubjectID:    "subj-1",
		SubjectEmail: "subj-1@example.com",
		RequestType:  "export",
	})
	require.NoError(t, err)
	assert.Equal(t, dsardomain.StatusPendingVerification, created.Status)
	assert.Equal(t, dsardomain.SLAWithin, created.SLAStatus)
	require.NotEmpty(t, created.VerificationToken)

	_, err = f.dsar.Verify(ctx, created.ID, "not-the-token")
	assert.ErrorIs(t, err, dsardomain.ErrInvalidToken)

	verified, err := f.dsar.Verify(ctx, created.ID, created.VerificationToken)
	require.NoError(t, err)
	assert.Equal(t, dsardomain.StatusCompleted, verified.Status)
	require.NotNil(t, verified.ExportExpiresAt)
	assert.Equal(t, f.clock.Now().Add(30*24*time.Hour), verified.ExportExpiresAt.UTC())

	raw, ok := verified.ExportPayload.(json.RawMessage)
	require.True(t, ok)
	var payload map[string]any
	require.NoError(t, json.Unmarshal(raw, &payload))
	assert.Equal(t, "subj-1", payload["subject_id"])
	assert.NotNil(t, payload["consent"])
	assert.NotNil(t, payload["invoices"])

	// A completed request cannot be verified twice.
	_, err = f.dsar.Verify(ctx, created.ID, created.VerificationToken)
	assert.ErrorIs(t, err, dsardomain.ErrNotVerifiable)
}

func TestDeletionRequiresApproval(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedSubject(t, "subj-1")

	created, err := f.dsar.Create(ctx, dsardomain.CreateRequest{
		SubjectID:    "subj-1",
		SubjectEmail: "subj-1@example.com",
		RequestType:  "delete",
	})
	require.NoError(t, err)

	// Approval before verification is rejected.
	_, err = f.dsar.ApproveDeletion(ctx, created.ID, "ops@nexuscore.io")
	assert.ErrorIs(t, err, dsardomain.ErrNotAwaitingApproval)

	verified, err := f.dsar.Verify(ctx, created.ID, created.VerificationToken)
	require.NoError(t, err)
	assert.Equal(t, dsardomain.StatusAwaitingApproval, verified.Status)

	f.clock.Advance(time.Hour)
	approved, err := f.dsar.ApproveDeletion(ctx, created.ID, "ops@nexuscore.io")
	require.NoError(t, err)
	assert.Equal(t, dsardomain.StatusCompleted, approved.Status)
	require.NotNil(t, approved.ApprovedBy)
	assert.Equal(t, "ops@nexuscore.io", *approved.ApprovedBy)

	// Marketing data is destroyed; the financial record survives under
	// legal hold.
	state, err := f.consent.SubjectState(ctx, "subj-1")
	require.NoError(t, err)
	assert.Equal(t, consentdomain.StateWithdrawn, state.State)
	for _, record := range state.Records {
		if record.Category == "financial" {
			assert.Nil(t, record.PurgedAt)
		} else {
			assert.NotNil(t, record.PurgedAt)
		}
	}
}

func TestCreateValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.dsar.Create(ctx, dsardomain.CreateRequest{
		SubjectID:    "subj-1",
		SubjectEmail: "subj-1@example.com",
		RequestType:  "erasure",
	})
	assert.ErrorIs(t, err, dsardomain.ErrInvalidRequestType)

	_, err = f.dsar.Create(ctx, dsardomain.CreateRequest{RequestType: "export"})
	assert.ErrorIs(t, err, dsardomain.ErrInvalidSubject)

	_, err = f.dsar.Get(ctx, "999999")
	assert.ErrorIs(t, err, dsardomain.ErrRequestNotFound)
}

func TestExpireExports(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedSubject(t, "subj-1")

	created, err := f.dsar.Create(ctx, dsardomain.CreateRequest{
		SubjectID:    "subj-1",
		SubjectEmail: "subj-1@example.com",
		RequestType:  "export",
	})
	require.NoError(t, err)
	_, err = f.dsar.Verify(ctx, created.ID, created.VerificationToken)
	require.NoError(t, err)

	// Before the TTL nothing expires.
	expired, err := f.dsar.ExpireExports(ctx, f.clock.Now().Add(29*24*time.Hour))
	require.NoError(t, err)
	assert.Zero(t, expired)

	expired, err = f.dsar.ExpireExports(ctx, f.clock.Now().Add(31*24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, expired)

	got, err := f.dsar.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Nil(t, got.ExportPayload)
	assert.Nil(t, got.ExportExpiresAt)
}

func TestSLAClassification(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	request := dsardomain.Request{CreatedAt: now}

	assert.Equal(t, dsardomain.SLAWithin, request.SLAStatus(now.Add(12*time.Hour)))
	assert.Equal(t, dsardomain.SLAApproaching, request.SLAStatus(now.Add(60*time.Hour)))
	assert.Equal(t, dsardomain.SLABreached, request.SLAStatus(now.Add(80*time.Hour)))

	completedAt := now.Add(24 * time.Hour)
	request.CompletedAt = &completedAt
	// Resolved requests are judged by completion time, not by now.
	assert.Equal(t, dsardomain.SLAWithin, request.SLAStatus(now.Add(200*time.Hour)))
}
