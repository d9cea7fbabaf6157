package repository

import (
	"context"
	"fmt"
	"time"

	"bookinventory/internal/model"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// CatalogTotals is a snapshot of the live books table
type CatalogTotals struct {
	TotalBooks      int64
	AvailableBooks  int64
	OutOfStockBooks int64
	StockUnits      int64
	InventoryValue  decimal.Decimal
}

// MovementTotals sums inventory log rows inside a time range
type MovementTotals struct {
	UnitsIn   int64
	UnitsOut  int64
	Movements int64
}

type StatisticsRepository interface {
	GetCatalogTotals(ctx context.Context) (CatalogTotals, error)
	GetMovementTotals(ctx context.Context, start, end time.Time) (MovementTotals, error)
	GetTopGenres(ctx context.Context, limit int) ([]model.GenreRanking, error)
	GetTopStockOut(ctx context.Context, start, end time.Time, limit int) ([]model.BookRanking, error)
}

type statisticsRepository struct {
	db *gorm.DB
}

func NewStatisticsRepository(db *gorm.DB) StatisticsRepository {
	return &statisticsRepository{db: db}
}

func (r *statisticsRepository) GetCatalogTotals(ctx context.Context) (CatalogTotals, error) {
	var totals CatalogTotals
	err := r.db.WithContext(ctx).Table(booksTable).
		Select("COUNT(*) AS total_books, " +
			"COALESCE(SUM(CASE WHEN stock_quantity > 0 THEN 1 ELSE 0 END), 0) AS available_books, " +
			"COALESCE(SUM(CASE WHEN stock_quantity = 0 THEN 1 ELSE 0 END), 0) AS out_of_stock_books, " +
			"COALESCE(SUM(stock_quantity), 0) AS stock_units, " +
			"COALESCE(SUM(price * stock_quantity), 0) AS inventory_value").
		Scopes(Live(booksTable)).
		Scan(&totals).Error
	if err != nil {
		return CatalogTotals{}, fmt.Errorf("failed to query catalog totals: %w", err)
	}
	return totals, nil
}

func (r *statisticsRepository) GetMovementTotals(ctx context.Context, start, end time.Time) (MovementTotals, error) {
	var totals MovementTotals
	err := r.db.WithContext(ctx).Model(&model.BookInventoryLog{}).
		Select("COALESCE(SUM(CASE WHEN quantity_change > 0 THEN quantity_change ELSE 0 END), 0) AS units_in, " +
			"COALESCE(SUM(CASE WHEN quantity_change < 0 THEN -quantity_change ELSE 0 END), 0) AS units_out, " +
			"COUNT(*) AS movements").
		Where("created_at >= ? AND created_at <= ?", start, end).
		Scan(&totals).Error
	if err != nil {
		return MovementTotals{}, fmt.Errorf("failed to query movement totals: %w", err)
	}
	return totals, nil
}

func (r *statisticsRepository) GetTopGenres(ctx context.Context, limit int) ([]model.GenreRanking, error) {
	var rankings []model.GenreRanking
	if err := r.db.WithContext(ctx).Table(booksTable).
		Select("genres.id AS genre_id, genres.name AS genre_name, COUNT(books.id) AS book_count, COALESCE(SUM(books.stock_quantity), 0) AS stock_units").
		Joins("JOIN genres ON genres.id = books.genre_id").
		Scopes(Live(booksTable)).
		Group("genres.id, genres.name").
		Order("stock_units DESC").Order("genre_name ASC").
		Limit(limit).
		Scan(&rankings).Error; err != nil {
		return nil, fmt.Errorf("failed to query top genres: %w", err)
	}
	return rankings, nil
}

func (r *statisticsRepository) GetTopStockOut(ctx context.Context, start, end time.Time, limit int) ([]model.BookRanking, error) {
	var rankings []model.BookRanking
	if err := r.db.WithContext(ctx).Table("book_inventory_logs").
		Select("books.id AS book_id, books.title AS title, SUM(-book_inventory_logs.quantity_change) AS total_quantity").
		Joins("JOIN books ON books.id = book_inventory_logs.book_id").
		Where("book_inventory_logs.quantity_change < 0").
		Where("book_inventory_logs.created_at >= ? AND book_inventory_logs.created_at <= ?", start, end).
		Group("books.id, books.title").
		Order("total_quantity DESC").Order("title ASC").
		Limit(limit).
		Scan(&rankings).Error; err != nil {
		return nil, fmt.Errorf("failed to query top stock out books: %w", err)
	}
	return rankings, nil
}
