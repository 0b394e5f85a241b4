package models

import (
	"time"

	"github.com/segmentio/ksuid"
	"gorm.io/gorm"
)

// Document is the persisted snapshot a client seeds its local buffer from
// when it opens a collaboration session. The collaboration relay itself never
// writes Content; clients save snapshots explicitly through the HTTP API.
//
// KSUIDs are used for primary keys: time-ordered, index-friendly and shorter
// than UUIDs.
type Document struct {
	ID        string         `json:"id" gorm:"type:char(27);primaryKey"`
	Title     string         `json:"title" gorm:"type:text;not null"`
	Content   string         `json:"content" gorm:"type:text;not null"`
	OwnerID   string         `json:"owner_id" gorm:"type:char(27);index"`
	CreatedAt time.Time      `json:"created_at" gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time      `json:"updated_at" gorm:"column:updated_at;autoUpdateTime"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"column:deleted_at;index"`
}

// BeforeCreate hook generates a KSUID before inserting.
func (d *Document) BeforeCreate(tx *gorm.DB) error {
	if d.ID == "" {
		d.ID = ksuid.New().String()
	}
	return nil
}

type DocumentCreate struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

type DocumentTitleUpdate struct {
	Title string `json:"title"`
}

type DocumentContentUpdate struct {
	Content string `json:"content"`
}
