package service

import (
	"context"
	"fmt"

	"bookinventory/internal/apperror"
	"bookinventory/internal/model"
	"bookinventory/internal/repository"
	ws "bookinventory/internal/websocket"
	"bookinventory/pkg/pagination"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultLowStockThreshold is used when a low-stock query names no threshold
const DefaultLowStockThreshold = 5

// DTOs
type StockMovementItem struct {
	BookID   string `json:"book_id" binding:"required,uuid"`
	Quantity int    `json:"quantity" binding:"required,gt=0"`
}

// StockMovementRequest moves stock for one or more books in a single transaction
type StockMovementRequest struct {
	Type   string              `json:"type" binding:"required,oneof=stock_in stock_out"`
	Reason string              `json:"reason" binding:"max=255"`
	Items  []StockMovementItem `json:"items" binding:"required,min=1,dive"`
}

type StockMovementResponse struct {
	Type string                   `json:"type"`
	Logs []model.BookInventoryLog `json:"logs"`
}

type InventoryService interface {
	Move(ctx context.Context, userID *uuid.UUID, req StockMovementRequest) (*StockMovementResponse, error)
	LowStock(ctx context.Context, threshold int, p pagination.Params) (Page[BookListItem], error)
}

type inventoryService struct {
	books     repository.BookRepository
	logs      repository.InventoryLogRepository
	txManager repository.TransactionManager
	hub       *ws.Hub
	log       *zap.Logger
}

func NewInventoryService(
	books repository.BookRepository,
	logs repository.InventoryLogRepository,
	txManager repository.TransactionManager,
	hub *ws.Hub,
	log *zap.Logger,
) InventoryService {
	return &inventoryService{
		books:     books,
		logs:      logs,
		txManager: txManager,
		hub:       hub,
		log:       log,
	}
}

// Move applies every item or none. Each book row is locked before its stock
// is read, so concurrent stock_out requests cannot drive stock below zero.
func (s *inventoryService) Move(ctx context.Context, userID *uuid.UUID, req StockMovementRequest) (*StockMovementResponse, error) {
	ids := make([]uuid.UUID, len(req.Items))
	for i, item := range req.Items {
		id, err := parseID("book", item.BookID)
		if err != nil {
			return nil, err
		}
		ids[i] = id
	}

	reason := req.Reason
	if reason == "" {
		reason = "Stock movement"
	}

	var entries []model.BookInventoryLog
	var changes []StockChange
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		entries = entries[:0]
		changes = changes[:0]
		for i, item := range req.Items {
			book, err := s.books.FindByIDForUpdate(txCtx, ids[i])
			if err != nil {
				return lookupErr(err, "Book", item.BookID)
			}

			delta := item.Quantity
			if req.Type == model.InventoryStockOut {
				if item.Quantity > book.StockQuantity {
					return apperror.Conflict("insufficient stock for %q: %d available, %d requested",
						book.Title, book.StockQuantity, item.Quantity)
				}
				delta = -item.Quantity
			}
			next := book.StockQuantity + delta

			if err := s.books.UpdateStock(txCtx, book.ID, next); err != nil {
				return fmt.Errorf("failed to update stock: %w", err)
			}
			entry := model.BookInventoryLog{
				BookID:         book.ID,
				OperationType:  req.Type,
				QuantityChange: delta,
				PreviousStock:  book.StockQuantity,
				NewStock:       next,
				Reason:         reason,
				UserID:         userID,
			}
			if err := s.logs.Create(txCtx, &entry); err != nil {
				return fmt.Errorf("failed to write inventory log: %w", err)
			}

			entries = append(entries, entry)
			changes = append(changes, StockChange{
				BookID:        book.ID,
				Title:         book.Title,
				PreviousStock: book.StockQuantity,
				NewStock:      next,
				IsAvailable:   next > 0,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, change := range changes {
		s.hub.Publish(ws.EventStockChanged, change)
	}
	s.log.Info("stock moved",
		zap.String("type", req.Type),
		zap.Int("items", len(entries)),
	)

	return &StockMovementResponse{Type: req.Type, Logs: entries}, nil
}

// LowStock lists live books whose stock is at or below threshold, scarcest first
func (s *inventoryService) LowStock(ctx context.Context, threshold int, p pagination.Params) (Page[BookListItem], error) {
	if threshold < 0 {
		return Page[BookListItem]{}, apperror.Validation("threshold must be greater than or equal to 0")
	}
	books, total, err := s.books.ListLowStock(ctx, threshold, p)
	if err != nil {
		return Page[BookListItem]{}, fmt.Errorf("failed to list low stock books: %w", err)
	}
	items := make([]BookListItem, len(books))
	for i := range books {
		items[i] = toListItem(&books[i])
	}
	return newPage(items, total, p), nil
}
