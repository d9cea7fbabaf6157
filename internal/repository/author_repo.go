package repository

import (
	"context"
	"time"

	"bookinventory/internal/model"
	"bookinventory/pkg/pagination"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const authorsTable = "authors"

type AuthorRepository interface {
	Create(ctx context.Context, author *model.Author) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Author, error)
	List(ctx context.Context, search string, p pagination.Params) ([]model.Author, int64, error)
	Update(ctx context.Context, id uuid.UUID, fields map[string]interface{}) error
	SoftDelete(ctx context.Context, id uuid.UUID, at time.Time) error
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
	ExistsByName(ctx context.Context, firstName, lastName string, excludeID *uuid.UUID) (bool, error)
}

type authorRepository struct {
	db *gorm.DB
}

func NewAuthorRepository(db *gorm.DB) AuthorRepository {
	return &authorRepository{db: db}
}

func (r *authorRepository) Create(ctx context.Context, author *model.Author) error {
	return GetDB(ctx, r.db).Create(author).Error
}

func (r *authorRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Author, error) {
	var author model.Author
	if err := GetDB(ctx, r.db).Scopes(Live(authorsTable)).First(&author, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &author, nil
}

func (r *authorRepository) List(ctx context.Context, search string, p pagination.Params) ([]model.Author, int64, error) {
	var authors []model.Author
	var total int64

	db := GetDB(ctx, r.db).Model(&model.Author{}).
		Scopes(Live(authorsTable), searchAny(authorsTable, search, "first_name", "last_name", "nationality")).
		Session(&gorm.Session{})

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := db.Order("last_name ASC").Order("first_name ASC").Offset(p.Offset).Limit(p.Limit).Find(&authors).Error; err != nil {
		return nil, 0, err
	}

	return authors, total, nil
}

func (r *authorRepository) Update(ctx context.Context, id uuid.UUID, fields map[string]interface{}) error {
	return GetDB(ctx, r.db).Model(&model.Author{}).Scopes(Live(authorsTable)).Where("id = ?", id).Updates(fields).Error
}

func (r *authorRepository) SoftDelete(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.Update(ctx, id, map[string]interface{}{"deleted_at": at, "is_active": false})
}

func (r *authorRepository) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	return existsLive(ctx, r.db, authorsTable, id)
}

func (r *authorRepository) ExistsByName(ctx context.Context, firstName, lastName string, excludeID *uuid.UUID) (bool, error) {
	var count int64
	db := GetDB(ctx, r.db).Model(&model.Author{}).Scopes(Live(authorsTable)).
		Where("first_name = ? AND last_name = ?", firstName, lastName)
	if excludeID != nil {
		db = db.Where("id <> ?", *excludeID)
	}
	if err := db.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}
