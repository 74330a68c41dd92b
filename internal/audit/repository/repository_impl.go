package repository

import (
	"context"
	"strings"

	"github.com/nexuscore/nexuscore/internal/audit/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, entry *domain.AuditLog) error {
	if entry == nil {
		return nil
	}
	return db.WithContext(ctx).Create(entry).Error
}

func (r *repo) List(ctx context.Context, db *gorm.DB, req domain.ListRequest) ([]domain.AuditLog, error) {
	var logs []domain.AuditLog
	stmt := db.WithContext(ctx).Model(&domain.AuditLog{})

	if action := strings.TrimSpace(req.Action); action != "" {
		stmt = stmt.Where("action = ?", action)
	}
	if targetType := strings.TrimSpace(req.TargetType); targetType != "" {
		stmt = stmt.Where("target_type = ?", targetType)
	}
	if targetID := strings.TrimSpace(req.TargetID); targetID != "" {
		stmt = stmt.Where("target_id = ?", targetID)
	}
	if actorType := strings.TrimSpace(req.ActorType); actorType != "" {
		stmt = stmt.Where("actor_type = ?", actorType)
	}
	if req.StartAt != nil {
		stmt = stmt.Where("created_at >= ?", req.StartAt.UTC())
	}
	if req.EndAt != nil {
		stmt = stmt.Where("created_at <= ?", req.EndAt.UTC())
	}

	stmt = stmt.Order("created_at desc, id desc")
	if req.Limit > 0 {
		stmt = stmt.Limit(req.Limit)
	}

	if err := stmt.Find(&logs).Error; err != nil {
		return nil, err
	}
	return logs, nil
}
