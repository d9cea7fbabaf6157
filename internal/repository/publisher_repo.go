package repository

import (
	"context"
	"time"

	"bookinventory/internal/model"
	"bookinventory/pkg/pagination"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const publishersTable = "publishers"

type PublisherRepository interface {
	Create(ctx context.Context, publisher *model.Publisher) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Publisher, error)
	List(ctx context.Context, search string, p pagination.Params) ([]model.Publisher, int64, error)
	Update(ctx context.Context, id uuid.UUID, fields map[string]interface{}) error
	SoftDelete(ctx context.Context, id uuid.UUID, at time.Time) error
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
	ExistsByName(ctx context.Context, name string, excludeID *uuid.UUID) (bool, error)
}

type publisherRepository struct {
	db *gorm.DB
}

func NewPublisherRepository(db *gorm.DB) PublisherRepository {
	return &publisherRepository{db: db}
}

func (r *publisherRepository) Create(ctx context.Context, publisher *model.Publisher) error {
	return GetDB(ctx, r.db).Create(publisher).Error
}

func (r *publisherRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Publisher, error) {
	var publisher model.Publisher
	if err := GetDB(ctx, r.db).Scopes(Live(publishersTable)).First(&publisher, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &publisher, nil
}

func (r *publisherRepository) List(ctx context.Context, search string, p pagination.Params) ([]model.Publisher, int64, error) {
	var publishers []model.Publisher
	var total int64

	db := GetDB(ctx, r.db).Model(&model.Publisher{}).
		Scopes(Live(publishersTable), searchAny(publishersTable, search, "name", "address")).
		Session(&gorm.Session{})

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := db.Order("name ASC").Offset(p.Offset).Limit(p.Limit).Find(&publishers).Error; err != nil {
		return nil, 0, err
	}

	return publishers, total, nil
}

func (r *publisherRepository) Update(ctx context.Context, id uuid.UUID, fields map[string]interface{}) error {
	return GetDB(ctx, r.db).Model(&model.Publisher{}).Scopes(Live(publishersTable)).Where("id = ?", id).Updates(fields).Error
}

func (r *publisherRepository) SoftDelete(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.Update(ctx, id, map[string]interface{}{"deleted_at": at, "is_active": false})
}

func (r *publisherRepository) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	return existsLive(ctx, r.db, publishersTable, id)
}

func (r *publisherRepository) ExistsByName(ctx context.Context, name string, excludeID *uuid.UUID) (bool, error) {
	var count int64
	db := GetDB(ctx, r.db).Model(&model.Publisher{}).Scopes(Live(publishersTable)).Where("name = ?", name)
	if excludeID != nil {
		db = db.Where("id <> ?", *excludeID)
	}
	if err := db.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}
