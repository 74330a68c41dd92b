package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/nexuscore/nexuscore/internal/clock"
	"github.com/nexuscore/nexuscore/internal/config"
	"github.com/nexuscore/nexuscore/internal/idempotency/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const defaultRecordTTL = 24 * time.Hour

type Params struct {
	fx.In

	Cfg   config.Config
	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  domain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	repo  domain.Repository
	ttl   time.Duration
}

func NewService(p Params) domain.Service {
	ttl := p.Cfg.IdempotencyTTL
	if ttl <= 0 {
		ttl = defaultRecordTTL
	}
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("idempotency.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
		ttl:   ttl,
	}
}

func (s *Service) Begin(ctx context.Context, key, method, path string, body []byte) (*domain.StoredResponse, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, nil
	}
	hash := hashBody(body)
	now := s.clock.Now()

	existing, err := s.repo.FindByKey(ctx, s.db, key)
	if err != nil {
		return nil, err
	}
	if existing != nil && (existing.Expired(now) || existing.Status == domain.StatusFailed) {
		if err := s.repo.DeleteByID(ctx, s.db, existing.ID); err != nil {
			return nil, err
		}
		existing = nil
	}
	if existing != nil {
		if existing.RequestHash != hash || existing.RequestMethod != method || existing.RequestPath != path {
			return nil, domain.ErrKeyPayloadMismatch
		}
		if existing.Status == domain.StatusProcessing {
			return nil, domain.ErrKeyInProgress
		}
		return &domain.StoredResponse{
			StatusCode: existing.ResponseCode,
			Body:       existing.ResponseBody,
		}, nil
	}

	record := &domain.Record{
		ID:            s.genID.Generate(),
		Key:           key,
		RequestMethod: method,
		RequestPath:   path,
		RequestHash:   hash,
		Status:        domain.StatusProcessing,
		CreatedAt:     now,
		UpdatedAt:     now,
		ExpiresAt:     now.Add(s.ttl),
	}
	if err := s.repo.Insert(ctx, s.db, record); err != nil {
		// A concurrent retry may have won the unique index race.
		winner, findErr := s.repo.FindByKey(ctx, s.db, key)
		if findErr == nil && winner != nil {
			if winner.RequestHash != hash {
				return nil, domain.ErrKeyPayloadMismatch
			}
			return nil, domain.ErrKeyInProgress
		}
		return nil, err
	}
	return nil, nil
}

func (s *Service) Complete(ctx context.Context, key string, statusCode int, body []byte) error {
	return s.repo.SetOutcome(ctx, s.db, key, domain.StatusCompleted, statusCode, body, s.clock.Now())
}

func (s *Service) Fail(ctx context.Context, key string) error {
	return s.repo.SetOutcome(ctx, s.db, key, domain.StatusFailed, 0, nil, s.clock.Now())
}

func (s *Service) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	removed, err := s.repo.DeleteExpired(ctx, s.db, now)
	if err != nil {
		return 0, err
	}
	if removed > 0 {
		s.log.Info("expired idempotency records removed", zap.Int64("count", removed))
	}
	return int(removed), nil
}

func hashBody(body []byte) string {
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:])
}
