package models

import (
	"time"

	"github.com/segmentio/ksuid"
	"gorm.io/gorm"
)

// User holds the stable identity behind an auth token. Credential storage is
// intentionally minimal: the collaboration core only needs a stable user
// identifier to attribute operations and presence to.
type User struct {
	ID        string    `json:"id" gorm:"type:char(27);primaryKey"`
	Username  string    `json:"username" gorm:"type:varchar(255);uniqueIndex;not null"`
	CreatedAt time.Time `json:"created_at" gorm:"column:created_at;autoCreateTime"`
}

// BeforeCreate hook generates a KSUID before inserting.
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = ksuid.New().String()
	}
	return nil
}
