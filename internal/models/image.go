package models

import (
	"time"
)

// Image is one catalog row per stored blob. Uploads and crop derivatives
// are both first-class rows; nothing links a derivative to its source
// beyond the generated filename.
type Image struct {
	ID           uint   `gorm:"primaryKey" json:"id"`
	Filename     string `gorm:"size:255;index" json:"filename"`
	StorageKey   string `gorm:"size:512;uniqueIndex" json:"storage_key"`
	DeclaredType string `gorm:"size:120" json:"declared_type"`
	SizeBytes    int64  `json:"size_bytes"`

	// Width/Height are nil when the decode probe failed.
	Width       *int   `json:"width"`
	Height      *int   `json:"height"`
	IsCorrupted bool   `gorm:"not null;default:false" json:"is_corrupted"`
	Checksum    string `gorm:"size:128" json:"checksum"`

	CreatedAt time.Time `gorm:"index" json:"created_at"`
}
