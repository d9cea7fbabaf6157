// Package testutil provides fixtures shared by package tests.
package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"bookinventory/internal/database"
	"bookinventory/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var dbSeq atomic.Int64

// NewDB opens a migrated in-memory SQLite database private to the test
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:testdb%d?mode=memory&cache=shared", dbSeq.Add(1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.Migrate(db))
	return db
}

// Catalog holds one live author, publisher and genre to hang books on
type Catalog struct {
	Author    *model.Author
	Publisher *model.Publisher
	Genre     *model.Genre
}

func SeedCatalog(t *testing.T, db *gorm.DB) Catalog {
	t.Helper()
	return Catalog{
		Author:    SeedAuthor(t, db, "Gabriel", "García Márquez"),
		Publisher: SeedPublisher(t, db, "Sudamericana"),
		Genre:     SeedGenre(t, db, "Realismo mágico"),
	}
}

func SeedAuthor(t *testing.T, db *gorm.DB, first, last string) *model.Author {
	t.Helper()
	a := &model.Author{FirstName: first, LastName: last, IsActive: true}
	require.NoError(t, db.Create(a).Error)
	return a
}

func SeedPublisher(t *testing.T, db *gorm.DB, name string) *model.Publisher {
	t.Helper()
	p := &model.Publisher{Name: name, IsActive: true}
	require.NoError(t, db.Create(p).Error)
	return p
}

func SeedGenre(t *testing.T, db *gorm.DB, name string) *model.Genre {
	t.Helper()
	g := &model.Genre{Name: name, IsActive: true}
	require.NoError(t, db.Create(g).Error)
	return g
}

// BookSeed describes a book fixture; zero relation ids fall back to the catalog
type BookSeed struct {
	Title       string
	ISBN        string
	Price       string
	Stock       int
	AuthorID    uuid.UUID
	PublisherID uuid.UUID
	GenreID     uuid.UUID
	CreatedAt   time.Time
}

func SeedBook(t *testing.T, db *gorm.DB, c Catalog, s BookSeed) *model.Book {
	t.Helper()
	b := &model.Book{
		Title:         s.Title,
		Price:         decimal.RequireFromString(s.Price),
		StockQuantity: s.Stock,
		Language:      model.DefaultBookLanguage,
		AuthorID:      pick(s.AuthorID, c.Author.ID),
		PublisherID:   pick(s.PublisherID, c.Publisher.ID),
		GenreID:       pick(s.GenreID, c.Genre.ID),
		IsAvailable:   s.Stock > 0,
		IsActive:      true,
		CreatedAt:     s.CreatedAt,
	}
	if s.ISBN != "" {
		isbn := s.ISBN
		b.ISBN = &isbn
	}
	require.NoError(t, db.Omit("Author", "Publisher", "Genre").Create(b).Error)
	return b
}

func pick(id, fallback uuid.UUID) uuid.UUID {
	if id == uuid.Nil {
		return fallback
	}
	return id
}
