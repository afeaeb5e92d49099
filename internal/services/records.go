package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/kerem-kaynak/uvlhub/internal/apperr"
	"github.com/kerem-kaynak/uvlhub/internal/entity"
	"gorm.io/gorm"
)

// RecordService counts downloads and views once per visitor cookie.
type RecordService struct {
	db  *gorm.DB
	now func() time.Time
}

func NewRecordService(db *gorm.DB) *RecordService {
	return &RecordService{db: db, now: time.Now}
}

// NewVisitorCookie mints an opaque visitor identifier.
func NewVisitorCookie() string {
	return uuid.NewString()
}

// RecordDownload stores a download unless the (user, dataset, cookie)
// triple is already known. It reports whether a record was created.
func (s *RecordService) RecordDownload(ctx context.Context, userID *uint, datasetID uint, cookie string) (bool, error) {
	var existing entity.DownloadRecord
	err := visitorScope(s.db.WithContext(ctx), userID).
		Where("dataset_id = ? AND download_cookie = ?", datasetID, cookie).
		Take(&existing).Error
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return false, apperr.FromDB(err, "find download record", "download record")
	}

	record := entity.DownloadRecord{
		UserID:         userID,
		DatasetID:      datasetID,
		DownloadDate:   s.now().UTC(),
		DownloadCookie: cookie,
	}
	if err := s.db.WithContext(ctx).Create(&record).Error; err != nil {
		return false, apperr.FromDB(err, "create download record", "download record")
	}
	return true, nil
}

// RecordView stores a view unless the (user, dataset, cookie) triple is
// already known.
func (s *RecordService) RecordView(ctx context.Context, userID *uint, datasetID uint, cookie string) (bool, error) {
	var existing entity.ViewRecord
	err := visitorScope(s.db.WithContext(ctx), userID).
		Where("dataset_id = ? AND view_cookie = ?", datasetID, cookie).
		Take(&existing).Error
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return false, apperr.FromDB(err, "find view record", "view record")
	}

	record := entity.ViewRecord{
		UserID:     userID,
		DatasetID:  datasetID,
		ViewDate:   s.now().UTC(),
		ViewCookie: cookie,
	}
	if err := s.db.WithContext(ctx).Create(&record).Error; err != nil {
		return false, apperr.FromDB(err, "create view record", "view record")
	}
	return true, nil
}

func (s *RecordService) DownloadCount(ctx context.Context, datasetID uint) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&entity.DownloadRecord{}).Where("dataset_id = ?", datasetID).Count(&n).Error
	return n, apperr.FromDB(err, "count downloads", "download record")
}

func (s *RecordService) ViewCount(ctx context.Context, datasetID uint) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&entity.ViewRecord{}).Where("dataset_id = ?", datasetID).Count(&n).Error
	return n, apperr.FromDB(err, "count views", "view record")
}

// visitorScope matches anonymous visitors on a NULL user id.
func visitorScope(db *gorm.DB, userID *uint) *gorm.DB {
	if userID == nil {
		return db.Where("user_id IS NULL")
	}
	return db.Where("user_id = ?", *userID)
}
