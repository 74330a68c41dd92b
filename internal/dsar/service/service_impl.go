package service

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	auditdomain "github.com/nexuscore/nexuscore/internal/audit/domain"
	"github.com/nexuscore/nexuscore/internal/clock"
	"github.com/nexuscore/nexuscore/internal/config"
	consentdomain "github.com/nexuscore/nexuscore/internal/consent/domain"
	dsardomain "github.com/nexuscore/nexuscore/internal/dsar/domain"
	invoicedomain "github.com/nexuscore/nexuscore/internal/invoice/domain"
	obsmetrics "github.com/nexuscore/nexuscore/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Clock    clock.Clock
	Repo     dsardomain.Repository
	Consent  consentdomain.Service
	Invoices invoicedomain.Service
	Holder   *config.ComplianceConfigHolder
	AuditSvc auditdomain.Service
	Metrics  *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	clock    clock.Clock
	repo     dsardomain.Repository
	consent  consentdomain.Service
	invoices invoicedomain.Service
	holder   *config.ComplianceConfigHolder
	audit    auditdomain.Service
	metrics  *obsmetrics.Metrics
}

func NewService(p Params) dsardomain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("dsar.service"),
		genID:    p.GenID,
		clock:    p.Clock,
		repo:     p.Repo,
		consent:  p.Consent,
		invoices: p.Invoices,
		holder:   p.Holder,
		audit:    p.AuditSvc,
		metrics:  p.Metrics,
	}
}

func (s *Service) Create(ctx context.Context, req dsardomain.CreateRequest) (*dsardomain.Response, error) {
	subjectID := strings.TrimSpace(req.SubjectID)
	email := strings.TrimSpace(req.SubjectEmail)
	if subjectID == "" || email == "" {
		return nil, dsardomain.ErrInvalidSubject
	}
	requestType := strings.ToLower(strings.TrimSpace(req.RequestType))
	if !dsardomain.ValidRequestType(requestType) {
		return nil, dsardomain.ErrInvalidRequestType
	}

	now := s.clock.Now()
	request := dsardomain.Request{
		ID:                s.genID.Generate(),
		SubjectID:         subjectID,
		SubjectEmail:      email,
		RequestType:       requestType,
		Status:            dsardomain.StatusPendingVerification,
		VerificationToken: uuid.NewString(),
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := s.repo.Insert(ctx, s.db, &request); err != nil {
		return nil, err
	}

	s.metrics.RecordDSARRequest(ctx, requestType)
	requestID := request.ID.String()
	_ = s.audit.AuditLog(ctx, "subject", &subjectID, "dsar.create", "dsar_request", &requestID, map[string]any{
		"request_type": requestType,
	})
	s.log.Info("dsar request filed", zap.String("request_type", requestType))

	resp := s.toResponse(request)
	// The token is surfaced once at creation; the delivery channel to the
	// subject sits outside this service.
	resp.VerificationToken = request.VerificationToken
	return &resp, nil
}

func (s *Service) Verify(ctx context.Context, id string, token string) (*dsardomain.Response, error) {
	request, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if request.Status != dsardomain.StatusPendingVerification {
		return nil, dsardomain.ErrNotVerifiable
	}
	if subtle.ConstantTimeCompare([]byte(request.VerificationToken), []byte(strings.TrimSpace(token))) != 1 {
		return nil, dsardomain.ErrInvalidToken
	}

	now := s.clock.Now()
	request.VerifiedAt = &now
	request.UpdatedAt = now

	switch request.RequestType {
	case dsardomain.TypeExport, dsardomain.TypeAccess:
		payload, err := s.buildExport(ctx, request.SubjectID, now)
		if err != nil {
			return nil, err
		}
		ttl := time.Duration(s.holder.Get().DSARExportTTLDays) * 24 * time.Hour
		expiresAt := now.Add(ttl)
		request.ExportPayload = payload
		request.ExportExpiresAt = &expiresAt
		request.Status = dsardomain.StatusCompleted
		request.CompletedAt = &now
	case dsardomain.TypeDelete:
		request.Status = dsardomain.StatusAwaitingApproval
	case dsardomain.TypeRectification:
		request.Status = dsardomain.StatusProcessing
	}

	if err := s.repo.Update(ctx, s.db, request); err != nil {
		return nil, err
	}

	requestID := request.ID.String()
	_ = s.audit.AuditLog(ctx, "subject", &request.SubjectID, "dsar.verify", "dsar_request", &requestID, map[string]any{
		"request_type": request.RequestType,
		"status":       request.Status,
	})

	resp := s.toResponse(*request)
	return &resp, nil
}

// ApproveDeletion is the manual gate on destructive requests. It records
// a consent withdrawal for the subject and purges everything that becomes
// due, leaving legal-hold records intact.
func (s *Service) ApproveDeletion(ctx context.Context, id string, approver string) (*dsardomain.Response, error) {
	request, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if request.RequestType != dsardomain.TypeDelete || request.Status != dsardomain.StatusAwaitingApproval {
		return nil, dsardomain.ErrNotAwaitingApproval
	}

	now := s.clock.Now()
	if _, err := s.consent.RecordEvent(ctx, consentdomain.RecordEventRequest{
		SubjectID: request.SubjectID,
		Action:    consentdomain.ActionWithdraw,
		Timestamp: &now,
	}); err != nil {
		return nil, err
	}
	if _, err := s.consent.PurgeDue(ctx, now); err != nil {
		return nil, err
	}

	approver = strings.TrimSpace(approver)
	request.Status = dsardomain.StatusCompleted
	request.ApprovedBy = &approver
	request.ApprovedAt = &now
	request.CompletedAt = &now
	request.UpdatedAt = now
	if err := s.repo.Update(ctx, s.db, request); err != nil {
		return nil, err
	}

	requestID := request.ID.String()
	_ = s.audit.AuditLog(ctx, "admin", &approver, "dsar.approve_deletion", "dsar_request", &requestID, map[string]any{
		"subject_id": request.SubjectID,
	})
	s.log.Info("dsar deletion approved", zap.String("approved_by", approver))

	resp := s.toResponse(*request)
	return &resp, nil
}

func (s *Service) Get(ctx context.Context, id string) (*dsardomain.Response, error) {
	request, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := s.toResponse(*request)
	return &resp, nil
}

func (s *Service) List(ctx context.Context, req dsardomain.ListRequest) ([]dsardomain.Response, error) {
	if req.Limit <= 0 {
		req.Limit = 100
	}
	if req.Limit > 500 {
		req.Limit = 500
	}

	requests, err := s.repo.List(ctx, s.db, req)
	if err != nil {
		return nil, err
	}
	resp := make([]dsardomain.Response, 0, len(requests))
	for _, request := range requests {
		resp = append(resp, s.toResponse(request))
	}
	return resp, nil
}

func (s *Service) ExpireExports(ctx context.Context, now time.Time) (int, error) {
	expired, err := s.repo.ExpireExports(ctx, s.db, now)
	if err != nil {
		return 0, err
	}
	if expired > 0 {
		s.log.Info("dsar exports expired", zap.Int64("count", expired))
	}
	return int(expired), nil
}

func (s *Service) find(ctx context.Context, id string) (*dsardomain.Request, error) {
	requestID, err := snowflake.ParseString(id)
	if err != nil {
		return nil, dsardomain.ErrRequestNotFound
	}
	return s.repo.FindByID(ctx, s.db, requestID)
}

// buildExport assembles everything held on a subject: the consent ledger,
// active personal data records, and issued invoices.
func (s *Service) buildExport(ctx context.Context, subjectID string, now time.Time) ([]byte, error) {
	state, err := s.consent.SubjectState(ctx, subjectID)
	if err != nil {
		return nil, err
	}
	invoices, err := s.invoices.List(ctx, invoicedomain.ListRequest{CustomerID: subjectID})
	if err != nil {
		return nil, err
	}

	return json.Marshal(map[string]any{
		"subject_id":   subjectID,
		"generated_at": now,
		"consent":      state,
		"invoices":     invoices,
	})
}

func (s *Service) toResponse(request dsardomain.Request) dsardomain.Response {
	resp := dsardomain.Response{
		ID:              request.ID.String(),
		SubjectID:       request.SubjectID,
		RequestType:     request.RequestType,
		Status:          request.Status,
		SLAStatus:       request.SLAStatus(s.clock.Now()),
		ExportExpiresAt: request.ExportExpiresAt,
		ApprovedBy:      request.ApprovedBy,
		CompletedAt:     request.CompletedAt,
		CreatedAt:       request.CreatedAt,
	}
	if len(request.ExportPayload) > 0 {
		resp.ExportPayload = json.RawMessage(request.ExportPayload)
	}
	return resp
}
