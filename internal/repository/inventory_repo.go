package repository

import (
	"context"

	"bookinventory/internal/model"
	"bookinventory/pkg/pagination"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type InventoryLogRepository interface {
	Create(ctx context.Context, entry *model.BookInventoryLog) error
	ListByBook(ctx context.Context, bookID uuid.UUID, p pagination.Params) ([]model.BookInventoryLog, int64, error)
}

type inventoryLogRepository struct {
	db *gorm.DB
}

func NewInventoryLogRepository(db *gorm.DB) InventoryLogRepository {
	return &inventoryLogRepository{db: db}
}

func (r *inventoryLogRepository) Create(ctx context.Context, entry *model.BookInventoryLog) error {
	return GetDB(ctx, r.db).Create(entry).Error
}

func (r *inventoryLogRepository) ListByBook(ctx context.Context, bookID uuid.UUID, p pagination.Params) ([]model.BookInventoryLog, int64, error) {
	var logs []model.BookInventoryLog
	var total int64

	db := GetDB(ctx, r.db).Model(&model.BookInventoryLog{}).Where("book_id = ?", bookID).Session(&gorm.Session{})
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if err := db.Order("created_at desc").Offset(p.Offset).Limit(p.Limit).Find(&logs).Error; err != nil {
		return nil, 0, err
	}
	return logs, total, nil
}
