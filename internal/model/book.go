package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const DefaultBookLanguage = "Español"

// Book is a catalog entry. IsAvailable is derived from StockQuantity at write time.
type Book struct {
	ID              uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	Title           string          `gorm:"type:varchar(300);not null;index" json:"title"`
	ISBN            *string         `gorm:"type:varchar(20);index" json:"isbn"`
	Price           decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"price"`
	StockQuantity   int             `gorm:"type:int;default:0;not null" json:"stock_quantity"`
	PublicationDate *time.Time      `gorm:"type:date" json:"publication_date"`
	Pages           *int            `gorm:"type:int" json:"pages"`
	Language        string          `gorm:"type:varchar(50)" json:"language"`
	Description     string          `gorm:"type:text" json:"description"`
	ImageURL        string          `gorm:"type:varchar(500)" json:"image_url"`
	AuthorID        uuid.UUID       `gorm:"type:uuid;not null;index" json:"author_id"`
	Author          *Author         `gorm:"foreignKey:AuthorID" json:"author,omitempty"`
	PublisherID     uuid.UUID       `gorm:"type:uuid;not null;index" json:"publisher_id"`
	Publisher       *Publisher      `gorm:"foreignKey:PublisherID" json:"publisher,omitempty"`
	GenreID         uuid.UUID       `gorm:"type:uuid;not null;index" json:"genre_id"`
	Genre           *Genre          `gorm:"foreignKey:GenreID" json:"genre,omitempty"`
	IsAvailable     bool            `gorm:"not null;index" json:"is_available"`
	IsActive        bool            `gorm:"not null" json:"is_active"`
	CreatedAt       time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt       *time.Time      `gorm:"index" json:"deleted_at,omitempty"`
}

func (b *Book) BeforeCreate(tx *gorm.DB) error {
	assignID(&b.ID)
	return nil
}
