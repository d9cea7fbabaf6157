package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Publisher struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	Name      string     `gorm:"type:varchar(200);not null;index" json:"name"`
	Address   string     `gorm:"type:text" json:"address"`
	Phone     string     `gorm:"type:varchar(20)" json:"phone"`
	Email     string     `gorm:"type:varchar(255)" json:"email"`
	Website   string     `gorm:"type:varchar(255)" json:"website"`
	IsActive  bool       `gorm:"not null" json:"is_active"`
	CreatedAt time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt *time.Time `gorm:"index" json:"deleted_at,omitempty"`
}

func (p *Publisher) BeforeCreate(tx *gorm.DB) error {
	assignID(&p.ID)
	return nil
}
