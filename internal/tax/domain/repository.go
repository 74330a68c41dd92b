package domain

import (
	"context"

	"gorm.io/gorm"
)

type Repository interface {
	ListAll(ctx context.Context, db *gorm.DB) ([]TaxRule, error)
	Insert(ctx context.Context, db *gorm.DB, rule *TaxRule) error
}
