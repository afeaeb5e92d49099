package entity

import (
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// FeatureModel is one uploaded UVL file's logical unit inside a dataset.
type FeatureModel struct {
	gorm.Model
	DatasetID       uint            `gorm:"not null;index" json:"dataset_id"`
	UVLFilename     string          `gorm:"type:varchar(256);not null" json:"uvl_filename"`
	Title           string          `gorm:"type:varchar(256)" json:"title"`
	Description     string          `gorm:"type:text" json:"description"`
	PublicationType PublicationType `gorm:"type:varchar(32)" json:"publication_type"`
	PublicationDOI  string          `gorm:"type:varchar(256)" json:"publication_doi"`
	Tags            string          `gorm:"type:text" json:"tags"`
	UVLVersion      string          `gorm:"type:varchar(32)" json:"uvl_version"`
	Hierarchy       datatypes.JSON  `json:"hierarchy"`
	Authors         []Author        `gorm:"many2many:fm_authors" json:"authors"`
	Files           []File          `gorm:"foreignKey:FeatureModelID;constraint:OnDelete:CASCADE" json:"files"`
}

func (FeatureModel) TableName() string {
	return "feature_models"
}

// File is the stored content of a feature model.
type File struct {
	gorm.Model
	FeatureModelID uint   `gorm:"not null;index" json:"feature_model_id"`
	Name           string `gorm:"type:varchar(256);not null" json:"name"`
	Checksum       string `gorm:"type:varchar(64);not null" json:"checksum"`
	Size           int64  `gorm:"not null" json:"size"`
}

func (File) TableName() string {
	return "files"
}
