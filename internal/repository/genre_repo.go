package repository

import (
	"context"
	"time"

	"bookinventory/internal/model"
	"bookinventory/pkg/pagination"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const genresTable = "genres"

type GenreRepository interface {
	Create(ctx context.Context, genre *model.Genre) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Genre, error)
	List(ctx context.Context, search string, p pagination.Params) ([]model.Genre, int64, error)
	Update(ctx context.Context, id uuid.UUID, fields map[string]interface{}) error
	SoftDelete(ctx context.Context, id uuid.UUID, at time.Time) error
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
	ExistsByName(ctx context.Context, name string, excludeID *uuid.UUID) (bool, error)
}

type genreRepository struct {
	db *gorm.DB
}

func NewGenreRepository(db *gorm.DB) GenreRepository {
	return &genreRepository{db: db}
}

func (r *genreRepository) Create(ctx context.Context, genre *model.Genre) error {
	return GetDB(ctx, r.db).Create(genre).Error
}

func (r *genreRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Genre, error) {
	var genre model.Genre
	if err := GetDB(ctx, r.db).Scopes(Live(genresTable)).First(&genre, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &genre, nil
}

func (r *genreRepository) List(ctx context.Context, search string, p pagination.Params) ([]model.Genre, int64, error) {
	var genres []model.Genre
	var total int64

	db := GetDB(ctx, r.db).Model(&model.Genre{}).
		Scopes(Live(genresTable), searchAny(genresTable, search, "name", "description")).
		Session(&gorm.Session{})

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := db.Order("name ASC").Offset(p.Offset).Limit(p.Limit).Find(&genres).Error; err != nil {
		return nil, 0, err
	}

	return genres, total, nil
}

func (r *genreRepository) Update(ctx context.Context, id uuid.UUID, fields map[string]interface{}) error {
	return GetDB(ctx, r.db).Model(&model.Genre{}).Scopes(Live(genresTable)).Where("id = ?", id).Updates(fields).Error
}

func (r *genreRepository) SoftDelete(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.Update(ctx, id, map[string]interface{}{"deleted_at": at, "is_active": false})
}

func (r *genreRepository) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	return existsLive(ctx, r.db, genresTable, id)
}

func (r *genreRepository) ExistsByName(ctx context.Context, name string, excludeID *uuid.UUID) (bool, error) {
	var count int64
	db := GetDB(ctx, r.db).Model(&model.Genre{}).Scopes(Live(genresTable)).Where("name = ?", name)
	if excludeID != nil {
		db = db.Where("id <> ?", *excludeID)
	}
	if err := db.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}
