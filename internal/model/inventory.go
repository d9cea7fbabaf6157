package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// InventoryOperation Enum Simulation
const (
	InventoryStockIn      = "stock_in"
	InventoryStockOut     = "stock_out"
	InventoryAdjustment   = "adjustment"
	InventoryInitialStock = "initial_stock"
)

// BookInventoryLog records every stock movement of a book. Rows are append-only.
type BookInventoryLog struct {
	ID             uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	BookID         uuid.UUID  `gorm:"type:uuid;not null;index" json:"book_id"`
	OperationType  string     `gorm:"type:varchar(20);not null" json:"operation_type"` // stock_in, stock_out, adjustment, initial_stock
	QuantityChange int        `gorm:"type:int;not null" json:"quantity_change"`
	PreviousStock  int        `gorm:"type:int;not null" json:"previous_stock"`
	NewStock       int        `gorm:"type:int;not null" json:"new_stock"`
	Reason         string     `gorm:"type:varchar(255)" json:"reason,omitempty"`
	UserID         *uuid.UUID `gorm:"type:uuid;index" json:"user_id"` // Nullable for system-initiated changes
	CreatedAt      time.Time  `gorm:"index" json:"created_at"`
}

func (l *BookInventoryLog) BeforeCreate(tx *gorm.DB) error {
	assignID(&l.ID)
	return nil
}

// OperationForDelta classifies a stock change that was not an initial load
func OperationForDelta(delta int) string {
	switch {
	case delta > 0:
		return InventoryStockIn
	case delta < 0:
		return InventoryStockOut
	default:
		return InventoryAdjustment
	}
}
