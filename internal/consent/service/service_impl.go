package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash/fnv"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/nexuscore/nexuscore/internal/audit/domain"
	"github.com/nexuscore/nexuscore/internal/clock"
	consentdomain "github.com/nexuscore/nexuscore/internal/consent/domain"
	obsmetrics "github.com/nexuscore/nexuscore/internal/observability/metrics"
	retentiondomain "github.com/nexuscore/nexuscore/internal/retention/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const subjectStripes = 64

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	GenID     *snowflake.Node
	Clock     clock.Clock
	Repo      consentdomain.Repository
	Retention retentiondomain.Service
	AuditSvc  auditdomain.Service
	Metrics   *obsmetrics.Metrics `optional:"true"`
}

// Service is the consent ledger. Appends for the same subject are
// serialized through a striped lock so the per-subject monotonic
// timestamp check cannot race; subjects on different stripes proceed in
// parallel.
type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	genID     *snowflake.Node
	clock     clock.Clock
	repo      consentdomain.Repository
	retention retentiondomain.Service
	audit     auditdomain.Service
	metrics   *obsmetrics.Metrics

	stripes [subjectStripes]sync.Mutex
}

func NewService(p Params) consentdomain.Service {
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("consent.service"),
		genID:     p.GenID,
		clock:     p.Clock,
		repo:      p.Repo,
		retention: p.Retention,
		audit:     p.AuditSvc,
		metrics:   p.Metrics,
	}
}

func (s *Service) stripeFor(subjectID string) *sync.Mutex {
	h := fnv.New32a()
	_, _ = h.Write([]byte(subjectID))
	return &s.stripes[h.Sum32()%subjectStripes]
}

func (s *Service) RecordEvent(ctx context.Context, req consentdomain.RecordEventRequest) (*consentdomain.EventResponse, error) {
	subjectID := strings.TrimSpace(req.SubjectID)
	if subjectID == "" {
		return nil, consentdomain.ErrInvalidSubject
	}
	action := strings.ToLower(strings.TrimSpace(req.Action))
	if action != consentdomain.ActionGrant && action != consentdomain.ActionWithdraw {
		return nil, consentdomain.ErrInvalidAction
	}

	occurredAt := s.clock.Now()
	if req.Timestamp != nil {
		occurredAt = req.Timestamp.UTC()
	}

	mu := s.stripeFor(subjectID)
	mu.Lock()
	defer mu.Unlock()

	latest, err := s.repo.LatestEvent(ctx, s.db, subjectID)
	if err != nil {
		return nil, err
	}
	// Equal timestamps are fine: the ledger requires non-decreasing time
	// per subject, not strictly increasing.
	if latest != nil && occurredAt.Before(latest.OccurredAt) {
		return nil, consentdomain.ErrOutOfOrderEvent
	}

	event := consentdomain.ConsentEvent{
		ID:         s.genID.Generate(),
		SubjectID:  subjectID,
		Action:     action,
		OccurredAt: occurredAt,
		CreatedAt:  s.clock.Now(),
	}
	if err := s.repo.InsertEvent(ctx, s.db, &event); err != nil {
		return nil, err
	}

	events, err := s.repo.ListEventsBySubject(ctx, s.db, subjectID)
	if err != nil {
		return nil, err
	}
	state := consentdomain.FoldState(events)

	s.metrics.RecordConsentEvent(ctx, action)
	eventID := event.ID.String()
	_ = s.audit.AuditLog(ctx, "subject", &subjectID, "consent."+action, "consent_event", &eventID, map[string]any{
		"occurred_at": occurredAt,
		"state":       state,
	})
	s.log.Info("consent event recorded",
		zap.String("action", action),
		zap.String("state", state),
	)

	return &consentdomain.EventResponse{
		ID:         eventID,
		SubjectID:  subjectID,
		Action:     action,
		OccurredAt: occurredAt,
		State:      state,
	}, nil
}

func (s *Service) RecordCollection(ctx context.Context, req consentdomain.CollectionRequest) (*consentdomain.RecordResponse, error) {
	subjectID := strings.TrimSpace(req.SubjectID)
	if subjectID == "" {
		return nil, consentdomain.ErrInvalidSubject
	}
	category := strings.TrimSpace(req.Category)
	// An unknown category must be rejected at collection time, otherwise
	// the record would later block every purge computation.
	if _, err := s.retention.Policy(category); err != nil {
		return nil, err
	}

	collectedAt := s.clock.Now()
	if req.CollectedAt != nil {
		collectedAt = req.CollectedAt.UTC()
	}

	record := consentdomain.PersonalDataRecord{
		ID:           s.genID.Generate(),
		SubjectID:    subjectID,
		Category:     category,
		SubjectEmail: strings.TrimSpace(req.SubjectEmail),
		Description:  req.Description,
		CollectedAt:  collectedAt,
		CreatedAt:    s.clock.Now(),
	}
	if err := s.repo.InsertRecord(ctx, s.db, &record); err != nil {
		return nil, err
	}

	recordID := record.ID.String()
	_ = s.audit.AuditLog(ctx, "system", nil, "personal_data.collect", "personal_data_record", &recordID, map[string]any{
		"category":     category,
		"collected_at": collectedAt,
	})

	resp := toRecordResponse(record)
	return &resp, nil
}

func (s *Service) SubjectState(ctx context.Context, subjectID string) (*consentdomain.SubjectStateResponse, error) {
	subjectID = strings.TrimSpace(subjectID)
	if subjectID == "" {
		return nil, consentdomain.ErrInvalidSubject
	}

	events, err := s.repo.ListEventsBySubject(ctx, s.db, subjectID)
	if err != nil {
		return nil, err
	}
	records, err := s.repo.ListRecordsBySubject(ctx, s.db, subjectID)
	if err != nil {
		return nil, err
	}

	resp := &consentdomain.SubjectStateResponse{
		SubjectID: subjectID,
		State:     consentdomain.FoldState(events),
		Events:    make([]consentdomain.EventResponse, 0, len(events)),
		Records:   make([]consentdomain.RecordResponse, 0, len(records)),
	}
	for _, event := range events {
		resp.Events = append(resp.Events, consentdomain.EventResponse{
			ID:         event.ID.String(),
			SubjectID:  event.SubjectID,
			Action:     event.Action,
			OccurredAt: event.OccurredAt,
		})
	}
	for _, record := range records {
		resp.Records = append(resp.Records, toRecordResponse(record))
	}
	return resp, nil
}

// DueForPurge folds the ledger against the retention policies. A record
// is due when it is not under legal hold and either its subject withdrew
// consent at or after collection, or its retention period has elapsed.
// Re-consent does not rescue records collected before the withdrawal.
func (s *Service) DueForPurge(ctx context.Context, now time.Time) (*consentdomain.PurgeQueue, error) {
	candidates, err := s.collectCandidates(ctx, now)
	if err != nil {
		return nil, err
	}

	queue := &consentdomain.PurgeQueue{
		Records: candidates,
	}
	seen := make(map[string]bool)
	for _, candidate := range candidates {
		if !seen[candidate.SubjectID] {
			seen[candidate.SubjectID] = true
			queue.SubjectIDs = append(queue.SubjectIDs, candidate.SubjectID)
		}
	}
	sort.Strings(queue.SubjectIDs)

	s.metrics.RecordPurgeCandidates(ctx, int64(len(candidates)))
	return queue, nil
}

func (s *Service) collectCandidates(ctx context.Context, now time.Time) ([]consentdomain.PurgeCandidate, error) {
	records, err := s.repo.ListActiveRecords(ctx, s.db)
	if err != nil {
		return nil, err
	}
	events, err := s.repo.ListAllEvents(ctx, s.db)
	if err != nil {
		return nil, err
	}

	withdrawals := make(map[string]*time.Time)
	bySubject := make(map[string][]consentdomain.ConsentEvent)
	for _, event := range events {
		bySubject[event.SubjectID] = append(bySubject[event.SubjectID], event)
	}
	for subjectID, subjectEvents := range bySubject {
		withdrawals[subjectID] = consentdomain.LatestWithdrawal(subjectEvents)
	}

	var candidates []consentdomain.PurgeCandidate
	for _, record := range records {
		policy, err := s.retention.Policy(record.Category)
		if err != nil {
			// Unknown category blocks the whole computation rather than
			// silently skipping the record.
			return nil, fmt.Errorf("record %s category %q: %w", record.ID, record.Category, err)
		}
		if policy.LegalHold {
			continue
		}

		reason := ""
		if withdrawal := withdrawals[record.SubjectID]; withdrawal != nil && !record.CollectedAt.After(*withdrawal) {
			reason = consentdomain.ReasonWithdrawn
		} else if now.After(record.CollectedAt.Add(policy.MaxRetention)) {
			reason = consentdomain.ReasonRetentionExceeded
		}
		if reason == "" {
			continue
		}

		candidates = append(candidates, consentdomain.PurgeCandidate{
			RecordID:    record.ID.String(),
			SubjectID:   record.SubjectID,
			Category:    record.Category,
			CollectedAt: record.CollectedAt,
			Reason:      reason,
		})
	}
	return candidates, nil
}

func (s *Service) PurgeDue(ctx context.Context, now time.Time) (*consentdomain.PurgeResult, error) {
	candidates, err := s.collectCandidates(ctx, now)
	if err != nil {
		return nil, err
	}

	result := &consentdomain.PurgeResult{}
	for _, candidate := range candidates {
		recordID, err := snowflake.ParseString(candidate.RecordID)
		if err != nil {
			return result, err
		}
		if err := s.repo.MarkPurged(ctx, s.db, recordID, now, anonymize(candidate.SubjectID)); err != nil {
			return result, err
		}
		result.Purged++
		result.Anonymized++

		_ = s.audit.AuditLog(ctx, "system", nil, "personal_data.purge", "personal_data_record", &candidate.RecordID, map[string]any{
			"category": candidate.Category,
			"reason":   candidate.Reason,
		})
	}

	if result.Purged > 0 {
		s.log.Info("personal data purged",
			zap.Int("purged", result.Purged),
			zap.Int("anonymized", result.Anonymized),
		)
	}
	return result, nil
}

// anonymize replaces a subject identifier with an irreversible digest.
func anonymize(value string) string {
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:])
}

func toRecordResponse(record consentdomain.PersonalDataRecord) consentdomain.RecordResponse {
	return consentdomain.RecordResponse{
		ID:           record.ID.String(),
		SubjectID:    record.SubjectID,
		Category:     record.Category,
		Description:  record.Description,
		CollectedAt:  record.CollectedAt,
		PurgedAt:     record.PurgedAt,
		AnonymizedAt: record.AnonymizedAt,
	}
}
