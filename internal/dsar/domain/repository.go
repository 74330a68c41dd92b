package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, request *Request) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Request, error)
	Update(ctx context.Context, db *gorm.DB, request *Request) error
	List(ctx context.Context, db *gorm.DB, req ListRequest) ([]Request, error)
	ExpireExports(ctx context.Context, db *gorm.DB, now time.Time) (int64, error)
}
