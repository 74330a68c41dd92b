package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/nexuscore/nexuscore/internal/dsar/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, request *domain.Request) error {
	if request == nil {
		return nil
	}
	return db.WithContext(ctx).Create(request).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Request, error) {
	var request domain.Request
	err := db.WithContext(ctx).First(&request, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrRequestNotFound
		}
		return nil, err
	}
	return &request, nil
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, request *domain.Request) error {
	return db.WithContext(ctx).Save(request).Error
}

func (r *repo) List(ctx context.Context, db *gorm.DB, req domain.ListRequest) ([]domain.Request, error) {
	query := db.WithContext(ctx).Model(&domain.Request{})
	if req.SubjectID != "" {
		query = query.Where("subject_id = ?", req.SubjectID)
	}
	if req.Status != "" {
		query = query.Where("status = ?", req.Status)
	}

	var requests []domain.Request
	err := query.
		Order("created_at desc").
		Limit(req.Limit).
		Find(&requests).Error
	if err != nil {
		return nil, err
	}
	return requests, nil
}

func (r *repo) ExpireExports(ctx context.Context, db *gorm.DB, now time.Time) (int64, error) {
	result := db.WithContext(ctx).
		Model(&domain.Request{}).
		Where("export_payload IS NOT NULL AND export_expires_at IS NOT NULL AND export_expires_at <= ?", now).
		Updates(map[string]any{
			"export_payload":    nil,
			"export_expires_at": nil,
		})
	return result.RowsAffected, result.Error
}
