package entity

import (
	"fmt"

	"gorm.io/gorm"
)

type DatasetStatus string

const (
	StatusDraft     DatasetStatus = "draft"
	StatusPublished DatasetStatus = "published"
)

type Dataset struct {
	gorm.Model
	UserID        uint            `gorm:"not null;index" json:"user_id"`
	Status        DatasetStatus   `gorm:"type:varchar(16);not null;index" json:"status"`
	Metadata      DatasetMetadata `gorm:"foreignKey:DatasetID;constraint:OnDelete:CASCADE" json:"metadata"`
	FeatureModels []FeatureModel  `gorm:"foreignKey:DatasetID;constraint:OnDelete:CASCADE" json:"feature_models"`
}

func (d *Dataset) IsDraft() bool {
	return d.Status == StatusDraft
}

func (d *Dataset) IsPublished() bool {
	return d.Status == StatusPublished && d.Metadata.DatasetDOI != nil
}

func (d *Dataset) OwnedBy(userID uint) bool {
	return d.UserID == userID
}

// DOI returns the dataset DOI, empty while the dataset is a draft.
func (d *Dataset) DOI() string {
	if d.Metadata.DatasetDOI == nil {
		return ""
	}
	return *d.Metadata.DatasetDOI
}

// Files lists the files of every feature model in order.
func (d *Dataset) Files() []File {
	var files []File
	for _, fm := range d.FeatureModels {
		files = append(files, fm.Files...)
	}
	return files
}

func (d *Dataset) TotalSize() int64 {
	var total int64
	for _, f := range d.Files() {
		total += f.Size
	}
	return total
}

// StorageKey is the permanent storage key of a file of this dataset.
func (d *Dataset) StorageKey(name string) string {
	return DatasetFileKey(d.UserID, d.ID, name)
}

// DatasetFileKey lays files out as user_<owner>/dataset_<dataset>/<name>.
func DatasetFileKey(userID, datasetID uint, name string) string {
	return fmt.Sprintf("user_%d/dataset_%d/%s", userID, datasetID, name)
}

// DatasetDOI is the DOI assigned to dataset id on publication.
func DatasetDOI(id uint) string {
	return fmt.Sprintf("10.1234/dataset%d", id)
}
