package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/nexuscore/nexuscore/internal/invoice/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, invoice *domain.Invoice) error {
	if invoice == nil {
		return nil
	}
	return db.WithContext(ctx).Create(invoice).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Invoice, error) {
	var invoice domain.Invoice
	err := db.WithContext(ctx).
		Preload("Lines", func(db *gorm.DB) *gorm.DB { return db.Order("position asc") }).
		Preload("TaxLines", func(db *gorm.DB) *gorm.DB { return db.Order("category asc") }).
		First(&invoice, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrInvoiceNotFound
		}
		return nil, err
	}
	return &invoice, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, req domain.ListRequest) ([]domain.Invoice, error) {
	query := db.WithContext(ctx).Model(&domain.Invoice{})
	if req.CustomerID != "" {
		query = query.Where("customer_id = ?", req.CustomerID)
	}
	if req.Status != "" {
		query = query.Where("status = ?", req.Status)
	}

	var invoices []domain.Invoice
	err := query.
		Preload("Lines", func(db *gorm.DB) *gorm.DB { return db.Order("position asc") }).
		Preload("TaxLines", func(db *gorm.DB) *gorm.DB { return db.Order("category asc") }).
		Order("issued_at desc").
		Limit(req.Limit).
		Find(&invoices).Error
	if err != nil {
		return nil, err
	}
	return invoices, nil
}

func (r *repo) UpdateStatus(ctx context.Context, db *gorm.DB, id snowflake.ID, status string) error {
	return db.WithContext(ctx).
		Model(&domain.Invoice{}).
		Where("id = ?", id).
		Update("status", status).Error
}
