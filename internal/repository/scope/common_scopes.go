package scope

import "gorm.io/gorm"

// OrderByCreatedDesc puts the newest rows first. Ties fall back to id.
func OrderByCreatedDesc(db *gorm.DB) *gorm.DB {
	return db.Order("created_at DESC").Order("id ASC")
}
