package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	InsertEvent(ctx context.Context, db *gorm.DB, event *ConsentEvent) error
	LatestEvent(ctx context.Context, db *gorm.DB, subjectID string) (*ConsentEvent, error)
	ListEventsBySubject(ctx context.Context, db *gorm.DB, subjectID string) ([]ConsentEvent, error)
	ListAllEvents(ctx context.Context, db *gorm.DB) ([]ConsentEvent, error)

	InsertRecord(ctx context.Context, db *gorm.DB, record *PersonalDataRecord) error
	ListRecordsBySubject(ctx context.Context, db *gorm.DB, subjectID string) ([]PersonalDataRecord, error)
	ListActiveRecords(ctx context.Context, db *gorm.DB) ([]PersonalDataRecord, error)
	MarkPurged(ctx context.Context, db *gorm.DB, id snowflake.ID, purgedAt time.Time, anonymizedEmail string) error
}
