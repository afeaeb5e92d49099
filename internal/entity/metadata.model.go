package entity

import (
	"strings"

	"gorm.io/gorm"
)

// DatasetMetrics are counters derived at ingestion, stored as text.
type DatasetMetrics struct {
	NumberOfModels   string `gorm:"type:varchar(32)" json:"number_of_models"`
	NumberOfFeatures string `gorm:"type:varchar(32)" json:"number_of_features"`
}

type DatasetMetadata struct {
	gorm.Model
	DatasetID       uint            `gorm:"not null;uniqueIndex" json:"dataset_id"`
	DepositionID    *uint           `json:"deposition_id"`
	Title           string          `gorm:"type:varchar(256);not null" json:"title"`
	Description     string          `gorm:"type:text" json:"description"`
	PublicationType PublicationType `gorm:"type:varchar(32);not null" json:"publication_type"`
	PublicationDOI  string          `gorm:"type:varchar(256)" json:"publication_doi"`
	DatasetDOI      *string         `gorm:"type:varchar(256);uniqueIndex" json:"dataset_doi"`
	Tags            string          `gorm:"type:text" json:"tags"`
	Metrics         DatasetMetrics  `gorm:"embedded;embeddedPrefix:metrics_" json:"metrics"`
	Authors         []Author        `gorm:"many2many:ds_meta_data_authors" json:"authors"`
}

func (DatasetMetadata) TableName() string {
	return "ds_meta_data"
}

// TagList splits the comma separated tags.
func (m *DatasetMetadata) TagList() []string {
	return SplitTags(m.Tags)
}

// SplitTags splits a comma separated tag string, dropping empty entries.
func SplitTags(tags string) []string {
	var out []string
	for _, tag := range strings.Split(tags, ",") {
		if tag = strings.TrimSpace(tag); tag != "" {
			out = append(out, tag)
		}
	}
	return out
}

type Author struct {
	gorm.Model
	Name        string `gorm:"type:varchar(120);not null" json:"name"`
	Affiliation string `gorm:"type:varchar(120)" json:"affiliation"`
	ORCID       string `gorm:"type:varchar(120)" json:"orcid"`
}

func (Author) TableName() string {
	return "authors"
}
