package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, record *Record) error
	FindByKey(ctx context.Context, db *gorm.DB, key string) (*Record, error)
	SetOutcome(ctx context.Context, db *gorm.DB, key, status string, statusCode int, body []byte, updatedAt time.Time) error
	DeleteByID(ctx context.Context, db *gorm.DB, id snowflake.ID) error
	DeleteExpired(ctx context.Context, db *gorm.DB, now time.Time) (int64, error)
}
