// Package scheduler runs the periodic retention enforcement job: it
// purges personal data whose consent basis or retention period has
// lapsed, drops DSAR export payloads past their TTL, and sweeps stale
// idempotency records.
package scheduler

import (
	"context"
	"time"

	auditdomain "github.com/nexuscore/nexuscore/internal/audit/domain"
	"github.com/nexuscore/nexuscore/internal/clock"
	"github.com/nexuscore/nexuscore/internal/config"
	consentdomain "github.com/nexuscore/nexuscore/internal/consent/domain"
	dsardomain "github.com/nexuscore/nexuscore/internal/dsar/domain"
	idempotencydomain "github.com/nexuscore/nexuscore/internal/idempotency/domain"
	obsmetrics "github.com/nexuscore/nexuscore/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const defaultRunInterval = 24 * time.Hour

type Params struct {
	fx.In

	Cfg         config.Config
	Log         *zap.Logger
	Clock       clock.Clock
	Consent     consentdomain.Service
	DSAR        dsardomain.Service
	Idempotency idempotencydomain.Service
	AuditSvc    auditdomain.Service
}

type Scheduler struct {
	interval    time.Duration
	log         *zap.Logger
	clock       clock.Clock
	consent     consentdomain.Service
	dsar        dsardomain.Service
	idempotency idempotencydomain.Service
	audit       auditdomain.Service

	cancel context.CancelFunc
	done   chan struct{}
}

func New(p Params) *Scheduler {
	interval := p.Cfg.SchedulerInterval
	if interval <= 0 {
		interval = defaultRunInterval
	}
	return &Scheduler{
		interval:    interval,
		log:         p.Log.Named("retention.scheduler"),
		clock:       p.Clock,
		consent:     p.Consent,
		dsar:        p.DSAR,
		idempotency: p.Idempotency,
		audit:       p.AuditSvc,
	}
}

func (s *Scheduler) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})

	go func() {
		defer close(s.done)

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		// One pass at startup so a restart never postpones enforcement by
		// a full interval.
		s.RunOnce(ctx)
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.RunOnce(ctx)
			}
		}
	}()
}

func (s *Scheduler) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
}

// RunOnce executes a single enforcement pass.
func (s *Scheduler) RunOnce(ctx context.Context) {
	now := s.clock.Now()
	started := time.Now()
	metrics := obsmetrics.Retention()

	result, err := s.consent.PurgeDue(ctx, now)
	if err != nil {
		metrics.ObserveError("purge")
		metrics.ObserveRun("failure", time.Since(started))
		s.log.Error("retention purge failed", zap.Error(err))
		return
	}
	metrics.AddPurged(result.Purged)
	metrics.AddAnonymized(result.Anonymized)

	expired, err := s.dsar.ExpireExports(ctx, now)
	if err != nil {
		metrics.ObserveError("export_expiry")
		metrics.ObserveRun("failure", time.Since(started))
		s.log.Error("dsar export expiry failed", zap.Error(err))
		return
	}
	metrics.AddExportsExpired(expired)

	removed, err := s.idempotency.DeleteExpired(ctx, now)
	if err != nil {
		metrics.ObserveError("idempotency_cleanup")
		metrics.ObserveRun("failure", time.Since(started))
		s.log.Error("idempotency record cleanup failed", zap.Error(err))
		return
	}

	// Whatever is still due after the pass is blocked, typically by legal
	// hold review; the gauge keeps it visible.
	queue, err := s.consent.DueForPurge(ctx, now)
	if err != nil {
		metrics.ObserveError("queue_depth")
		metrics.ObserveRun("failure", time.Since(started))
		s.log.Error("purge queue recomputation failed", zap.Error(err))
		return
	}
	metrics.SetPurgeQueueDepth(len(queue.Records))
	metrics.ObserveRun("success", time.Since(started))

	_ = s.audit.AuditLog(ctx, "system", nil, "retention.enforce", "retention_job", nil, map[string]any{
		"purged":              result.Purged,
		"anonymized":          result.Anonymized,
		"exports_expired":     expired,
		"idempotency_removed": removed,
		"queue_depth":         len(queue.Records),
	})
	s.log.Info("retention pass complete",
		zap.Int("purged", result.Purged),
		zap.Int("anonymized", result.Anonymized),
		zap.Int("exports_expired", expired),
		zap.Int("idempotency_removed", removed),
		zap.Int("queue_depth", len(queue.Records)),
	)
}

var Module = fx.Module("scheduler",
	fx.Provide(New),
	fx.Invoke(register),
)

func register(lc fx.Lifecycle, cfg config.Config, s *Scheduler, log *zap.Logger) {
	if !cfg.SchedulerEnabled {
		log.Info("retention scheduler disabled")
		return
	}
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			s.Start()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			s.Stop()
			return nil
		},
	})
}
