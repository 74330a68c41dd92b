package repository

import (
	"context"

	"github.com/nexuscore/nexuscore/internal/tax/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) ListAll(ctx context.Context, db *gorm.DB) ([]domain.TaxRule, error) {
	var rules []domain.TaxRule
	err := db.WithContext(ctx).
		Model(&domain.TaxRule{}).
		Order("category asc, effective_from asc").
		Find(&rules).Error
	if err != nil {
		return nil, err
	}
	return rules, nil
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, rule *domain.TaxRule) error {
	if rule == nil {
		return nil
	}
	return db.WithContext(ctx).Create(rule).Error
}
