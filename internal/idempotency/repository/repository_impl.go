package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/nexuscore/nexuscore/internal/idempotency/domain"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, record *domain.Record) error {
	if record == nil {
		return nil
	}
	return db.WithContext(ctx).Create(record).Error
}

func (r *repo) FindByKey(ctx context.Context, db *gorm.DB, key string) (*domain.Record, error) {
	var record domain.Record
	err := db.WithContext(ctx).
		Where("key = ?", key).
		First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &record, nil
}

func (r *repo) SetOutcome(ctx context.Context, db *gorm.DB, key, status string, statusCode int, body []byte, updatedAt time.Time) error {
	return db.WithContext(ctx).
		Model(&domain.Record{}).
		Where("key = ? AND status = ?", key, domain.StatusProcessing).
		Updates(map[string]any{
			"status":               status,
			"response_status_code": statusCode,
			"response_body":        datatypes.JSON(body),
			"updated_at":           updatedAt,
		}).Error
}

func (r *repo) DeleteByID(ctx context.Context, db *gorm.DB, id snowflake.ID) error {
	return db.WithContext(ctx).
		Where("id = ?", id).
		Delete(&domain.Record{}).Error
}

func (r *repo) DeleteExpired(ctx context.Context, db *gorm.DB, now time.Time) (int64, error) {
	result := db.WithContext(ctx).
		Where("expires_at <= ?", now).
		Delete(&domain.Record{})
	return result.RowsAffected, result.Error
}
