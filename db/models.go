package db

import (
	"gorm.io/gorm"
)

// Preference is one persisted user setting.
type Preference struct {
	gorm.Model
	Key   string `gorm:"uniqueIndex"`
	Value string
}

// Download records a file fetched by the download command.
type Download struct {
	gorm.Model
	ProjectID   string `gorm:"index"`
	Title       string
	VersionID   string
	FileName    string
	URL         string
	Result      string // opened, archived or failed
	ArchivePath string // zip the file was bundled into, if any
}
