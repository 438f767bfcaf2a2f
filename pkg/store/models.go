package store

import (
	"time"

	"gorm.io/datatypes"
)

// GORM models used for persistence.
type ContactModel struct {
	Email     string `gorm:"primaryKey"`
	Name      string `gorm:"not null"`
	Phone     string `gorm:"not null"`
	Company   string `gorm:"not null"`
	Industry  string `gorm:"not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

type ConversationModel struct {
	UserKey   string         `gorm:"primaryKey"`
	Messages  datatypes.JSON `gorm:"type:jsonb;not null"`
	UpdatedAt time.Time      `gorm:"not null"`
}
