package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// StatisticsResponse combines a snapshot of the live catalog with the stock
// movements recorded inside a time range.
type StatisticsResponse struct {
	TotalBooks         int64           `json:"total_books"`
	AvailableBooks     int64           `json:"available_books"`
	OutOfStockBooks    int64           `json:"out_of_stock_books"`
	TotalStockUnits    int64           `json:"total_stock_units"`
	InventoryValue     decimal.Decimal `json:"inventory_value" swaggertype:"number"`
	UnitsIn            int64           `json:"units_in"`
	UnitsOut           int64           `json:"units_out"`
	MovementCount      int64           `json:"movement_count"`
	TopGenres          []GenreRanking  `json:"top_genres"`
	TopStockOutBooks   []BookRanking   `json:"top_stock_out_books"`
	TimeRangeStartDate time.Time       `json:"time_range_start_date"`
	TimeRangeEndDate   time.Time       `json:"time_range_end_date"`
}

// GenreRanking ranks a genre by the stock units of its live books
type GenreRanking struct {
	GenreID    string `json:"genre_id"`
	GenreName  string `json:"genre_name"`
	BookCount  int64  `json:"book_count"`
	StockUnits int64  `json:"stock_units"`
}

// BookRanking ranks a book by the units it moved
type BookRanking struct {
	BookID        string `json:"book_id"`
	Title         string `json:"title"`
	TotalQuantity int64  `json:"total_quantity"`
}
