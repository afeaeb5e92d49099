package utils

import (
	"github.com/kerem-kaynak/uvlhub/internal/entity"
	"gorm.io/gorm"
)

// UserHasDatasetAccess reports whether userID may see ds. Published datasets
// are public, drafts reach only their owner. userID is 0 for anonymous
// visitors.
func UserHasDatasetAccess(ds *entity.Dataset, userID uint) bool {
	if !ds.IsDraft() {
		return true
	}
	return userID != 0 && ds.OwnedBy(userID)
}

// UserOwnsDataset checks ownership without loading the dataset.
func UserOwnsDataset(db *gorm.DB, userID, datasetID uint) bool {
	if userID == 0 {
		return false
	}

	var count int64
	if err := db.Model(&entity.Dataset{}).Where("id = ? AND user_id = ?", datasetID, userID).Count(&count).Error; err != nil {
		return false
	}
	return count > 0
}
