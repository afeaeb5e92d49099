package entity

import (
	"time"

	"gorm.io/datatypes"
)

// DownloadRecord counts one download per visitor cookie per dataset.
type DownloadRecord struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	UserID         *uint     `gorm:"index:idx_download_visitor" json:"user_id"`
	DatasetID      uint      `gorm:"not null;index:idx_download_visitor" json:"dataset_id"`
	DownloadDate   time.Time `gorm:"not null" json:"download_date"`
	DownloadCookie string    `gorm:"type:varchar(36);not null;index:idx_download_visitor" json:"download_cookie"`
}

func (DownloadRecord) TableName() string {
	return "ds_download_records"
}

// ViewRecord counts one public view per visitor cookie per dataset.
type ViewRecord struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	UserID     *uint     `gorm:"index:idx_view_visitor" json:"user_id"`
	DatasetID  uint      `gorm:"not null;index:idx_view_visitor" json:"dataset_id"`
	ViewDate   time.Time `gorm:"not null" json:"view_date"`
	ViewCookie string    `gorm:"type:varchar(36);not null;index:idx_view_visitor" json:"view_cookie"`
}

func (ViewRecord) TableName() string {
	return "ds_view_records"
}

// DOIMapping redirects a deprecated dataset DOI to its replacement.
type DOIMapping struct {
	ID            uint   `gorm:"primaryKey" json:"id"`
	DatasetDOIOld string `gorm:"type:varchar(256);not null;uniqueIndex" json:"dataset_doi_old"`
	DatasetDOINew string `gorm:"type:varchar(256);not null" json:"dataset_doi_new"`
}

func (DOIMapping) TableName() string {
	return "doi_mappings"
}

// Deposition is an archival registration kept by the local deposit service.
type Deposition struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	Metadata  datatypes.JSON `gorm:"not null" json:"metadata"`
	CreatedAt time.Time      `json:"created_at"`
}

func (Deposition) TableName() string {
	return "depositions"
}

// All lists every model for schema migration.
func All() []any {
	return []any{
		&User{},
		&Author{},
		&Dataset{},
		&DatasetMetadata{},
		&FeatureModel{},
		&File{},
		&DownloadRecord{},
		&ViewRecord{},
		&DOIMapping{},
		&Deposition{},
	}
}
