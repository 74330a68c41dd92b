package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/nexuscore/nexuscore/internal/consent/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) InsertEvent(ctx context.Context, db *gorm.DB, event *domain.ConsentEvent) error {
	if event == nil {
		return nil
	}
	return db.WithContext(ctx).Create(event).Error
}

func (r *repo) LatestEvent(ctx context.Context, db *gorm.DB, subjectID string) (*domain.ConsentEvent, error) {
	var event domain.ConsentEvent
	err := db.WithContext(ctx).
		Where("subject_id = ?", subjectID).
		Order("occurred_at desc, id desc").
		First(&event).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &event, nil
}

func (r *repo) ListEventsBySubject(ctx context.Context, db *gorm.DB, subjectID string) ([]domain.ConsentEvent, error) {
	var events []domain.ConsentEvent
	err := db.WithContext(ctx).
		Where("subject_id = ?", subjectID).
		Order("occurred_at asc, id asc").
		Find(&events).Error
	if err != nil {
		return nil, err
	}
	return events, nil
}

func (r *repo) ListAllEvents(ctx context.Context, db *gorm.DB) ([]domain.ConsentEvent, error) {
	var events []domain.ConsentEvent
	err := db.WithContext(ctx).
		Order("subject_id asc, occurred_at asc, id asc").
		Find(&events).Error
	if err != nil {
		return nil, err
	}
	return events, nil
}

func (r *repo) InsertRecord(ctx context.Context, db *gorm.DB, record *domain.PersonalDataRecord) error {
	if record == nil {
		return nil
	}
	return db.WithContext(ctx).Create(record).Error
}

func (r *repo) ListRecordsBySubject(ctx context.Context, db *gorm.DB, subjectID string) ([]domain.PersonalDataRecord, error) {
	var records []domain.PersonalDataRecord
	err := db.WithContext(ctx).
		Where("subject_id = ?", subjectID).
		Order("collected_at asc").
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}

func (r *repo) ListActiveRecords(ctx context.Context, db *gorm.DB) ([]domain.PersonalDataRecord, error) {
	var records []domain.PersonalDataRecord
	err := db.WithContext(ctx).
		Where("purged_at IS NULL").
		Order("subject_id asc, collected_at asc").
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}

func (r *repo) MarkPurged(ctx context.Context, db *gorm.DB, id snowflake.ID, purgedAt time.Time, anonymizedEmail string) error {
	return db.WithContext(ctx).
		Model(&domain.PersonalDataRecord{}).
		Where("id = ? AND purged_at IS NULL", id).
		Updates(map[string]any{
			"purged_at":     purgedAt,
			"anonymized_at": purgedAt,
			"subject_email": anonymizedEmail,
		}).Error
}
