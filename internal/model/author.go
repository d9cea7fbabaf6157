package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Author struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	FirstName   string     `gorm:"type:varchar(100);not null;index:idx_author_name" json:"first_name"`
	LastName    string     `gorm:"type:varchar(100);not null;index:idx_author_name" json:"last_name"`
	Biography   string     `gorm:"type:text" json:"biography"`
	BirthDate   *time.Time `gorm:"type:date" json:"birth_date"`
	Nationality string     `gorm:"type:varchar(100)" json:"nationality"`
	IsActive    bool       `gorm:"not null" json:"is_active"`
	CreatedAt   time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt   *time.Time `gorm:"index" json:"deleted_at,omitempty"`
}

func (a *Author) BeforeCreate(tx *gorm.DB) error {
	assignID(&a.ID)
	return nil
}

// FullName renders "first last"
func (a *Author) FullName() string {
	return a.FirstName + " " + a.LastName
}
