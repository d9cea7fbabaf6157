package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"bookinventory/internal/apperror"
	"bookinventory/internal/export"
	"bookinventory/internal/model"
	"bookinventory/internal/query"
	"bookinventory/internal/repository"
	"bookinventory/internal/storage"
	ws "bookinventory/internal/websocket"
	"bookinventory/pkg/pagination"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const imageFolder = "books"

// DTOs
type CreateBookRequest struct {
	Title           string           `json:"title" binding:"required,max=300"`
	ISBN            *string          `json:"isbn" binding:"omitempty,isbn"`
	Price           *decimal.Decimal `json:"price" binding:"required" swaggertype:"number"`
	StockQuantity   *int             `json:"stock_quantity" binding:"omitempty,min=0"`
	PublicationDate string           `json:"publication_date"`
	Pages           *int             `json:"pages" binding:"omitempty,min=1"`
	Language        string           `json:"language" binding:"max=50"`
	Description     string           `json:"description"`
	ImageURL        string           `json:"image_url" binding:"omitempty,url"`
	AuthorID        string           `json:"author_id" binding:"required,uuid"`
	PublisherID     string           `json:"publisher_id" binding:"required,uuid"`
	GenreID         string           `json:"genre_id" binding:"omitempty,uuid"`
	GenreIDs        []string         `json:"genre_ids" binding:"omitempty,dive,uuid"` // Legacy clients: first element is used as genre_id
	Summary         string           `json:"summary"`                                 // Legacy alias of description
}

// UpdateBookRequest is a partial update: nil fields are left unchanged
type UpdateBookRequest struct {
	Title           *string          `json:"title" binding:"omitempty,min=1,max=300"`
	ISBN            *string          `json:"isbn" binding:"omitempty,isbn"`
	Price           *decimal.Decimal `json:"price" swaggertype:"number"`
	StockQuantity   *int             `json:"stock_quantity" binding:"omitempty,min=0"`
	PublicationDate *string          `json:"publication_date"`
	Pages           *int             `json:"pages" binding:"omitempty,min=1"`
	Language        *string          `json:"language" binding:"omitempty,max=50"`
	Description     *string          `json:"description"`
	ImageURL        *string          `json:"image_url" binding:"omitempty,url"`
	AuthorID        *string          `json:"author_id" binding:"omitempty,uuid"`
	PublisherID     *string          `json:"publisher_id" binding:"omitempty,uuid"`
	GenreID         *string          `json:"genre_id" binding:"omitempty,uuid"`
	Reason          string           `json:"reason" binding:"max=255"` // Recorded on the inventory log when stock changes
}

type AuthorSummary struct {
	ID        uuid.UUID `json:"id"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
}

type NamedSummary struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

// BookListItem is a book as it appears in listings
type BookListItem struct {
	ID              uuid.UUID       `json:"id"`
	Title           string          `json:"title"`
	ISBN            *string         `json:"isbn"`
	Price           decimal.Decimal `json:"price" swaggertype:"number"`
	StockQuantity   int             `json:"stock_quantity"`
	PublicationDate *time.Time      `json:"publication_date"`
	Pages           *int            `json:"pages"`
	Language        string          `json:"language"`
	Description     string          `json:"description"`
	ImageURL        string          `json:"image_url"`
	IsAvailable     bool            `json:"is_available"`
	IsActive        bool            `json:"is_active"`
	Author          *AuthorSummary  `json:"author"`
	Publisher       *NamedSummary   `json:"publisher"`
	Genre           *NamedSummary   `json:"genre"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

type BookListResponse struct {
	Books      []BookListItem  `json:"books"`
	Pagination pagination.Meta `json:"pagination"`
}

// StockChange is pushed to websocket clients whenever a book's stock moves
type StockChange struct {
	BookID        uuid.UUID `json:"book_id"`
	Title         string    `json:"title"`
	PreviousStock int       `json:"previous_stock"`
	NewStock      int       `json:"new_stock"`
	IsAvailable   bool      `json:"is_available"`
}

type BookService interface {
	Create(ctx context.Context, userID *uuid.UUID, req CreateBookRequest) (*model.Book, error)
	List(ctx context.Context, filter query.BookFilter) (*BookListResponse, error)
	ExportCSV(ctx context.Context, filter query.BookFilter, w io.Writer) error
	Get(ctx context.Context, id string) (*model.Book, error)
	Update(ctx context.Context, userID *uuid.UUID, id string, req UpdateBookRequest) (*model.Book, error)
	Delete(ctx context.Context, id string) error
	UploadImage(ctx context.Context, id string, data []byte) (*model.Book, error)
	InventoryLogs(ctx context.Context, id string, p pagination.Params) (Page[model.BookInventoryLog], error)
}

type bookService struct {
	books     repository.BookRepository
	inventory repository.InventoryLogRepository
	relations *RelationValidator
	txManager repository.TransactionManager
	images    storage.ImageStore
	hub       *ws.Hub
	log       *zap.Logger
}

func NewBookService(
	books repository.BookRepository,
	inventory repository.InventoryLogRepository,
	relations *RelationValidator,
	txManager repository.TransactionManager,
	images storage.ImageStore,
	hub *ws.Hub,
	log *zap.Logger,
) BookService {
	return &bookService{
		books:     books,
		inventory: inventory,
		relations: relations,
		txManager: txManager,
		images:    images,
		hub:       hub,
		log:       log,
	}
}

func (s *bookService) Create(ctx context.Context, userID *uuid.UUID, req CreateBookRequest) (*model.Book, error) {
	if req.GenreID == "" && len(req.GenreIDs) > 0 {
		req.GenreID = req.GenreIDs[0]
	}
	if req.Description == "" {
		req.Description = req.Summary
	}
	if req.GenreID == "" {
		return nil, apperror.Validation("genre_id is required")
	}

	refs, err := parseRefs(&req.AuthorID, &req.PublisherID, &req.GenreID)
	if err != nil {
		return nil, err
	}
	if req.Price.IsNegative() {
		return nil, apperror.Validation("price must be greater than or equal to 0")
	}
	published, err := parseDate("publication_date", req.PublicationDate)
	if err != nil {
		return nil, err
	}

	if err := s.relations.Validate(ctx, refs); err != nil {
		return nil, err
	}
	isbn := normalizeISBN(req.ISBN)
	if isbn != nil {
		if err := s.checkISBN(ctx, *isbn, nil); err != nil {
			return nil, err
		}
	}

	stock := 0
	if req.StockQuantity != nil {
		stock = *req.StockQuantity
	}
	language := strings.TrimSpace(req.Language)
	if language == "" {
		language = model.DefaultBookLanguage
	}

	book := &model.Book{
		Title:           strings.TrimSpace(req.Title),
		ISBN:            isbn,
		Price:           req.Price.Round(2),
		StockQuantity:   stock,
		PublicationDate: published,
		Pages:           req.Pages,
		Language:        language,
		Description:     req.Description,
		ImageURL:        req.ImageURL,
		AuthorID:        *refs.AuthorID,
		PublisherID:     *refs.PublisherID,
		GenreID:         *refs.GenreID,
		IsAvailable:     stock > 0,
		IsActive:        true,
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.books.Create(txCtx, book); err != nil {
			return fmt.Errorf("failed to create book: %w", err)
		}
		entry := &model.BookInventoryLog{
			BookID:         book.ID,
			OperationType:  model.InventoryInitialStock,
			QuantityChange: stock,
			PreviousStock:  0,
			NewStock:       stock,
			Reason:         "Initial stock",
			UserID:         userID,
		}
		if err := s.inventory.Create(txCtx, entry); err != nil {
			return fmt.Errorf("failed to write inventory log: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	created, err := s.books.FindByID(ctx, book.ID)
	if err != nil {
		return nil, lookupErr(err, "Book", book.ID.String())
	}
	s.publishStock(created, 0)
	return created, nil
}

func (s *bookService) List(ctx context.Context, filter query.BookFilter) (*BookListResponse, error) {
	spec, err := query.Build(filter)
	if err != nil {
		return nil, apperror.Validation("%s", err.Error())
	}

	books, total, err := s.books.List(ctx, spec)
	if err != nil {
		return nil, fmt.Errorf("failed to list books: %w", err)
	}

	items := make([]BookListItem, 0, len(books))
	for i := range books {
		items = append(items, toListItem(&books[i]))
	}
	return &BookListResponse{
		Books:      items,
		Pagination: pagination.NewMeta(total, spec.Window.Page, spec.Window.Limit),
	}, nil
}

// ExportCSV writes every book matching filter, up to export.MaxRows, as CSV.
// The filter's page and limit are ignored.
func (s *bookService) ExportCSV(ctx context.Context, filter query.BookFilter, w io.Writer) error {
	filter.Page, filter.Limit = 0, 0
	spec, err := query.Build(filter)
	if err != nil {
		return apperror.Validation("%s", err.Error())
	}

	books, _, err := s.books.List(ctx, spec.WithWindow(1, export.MaxRows))
	if err != nil {
		return fmt.Errorf("failed to list books: %w", err)
	}
	return export.WriteBooksCSV(w, books)
}

func (s *bookService) Get(ctx context.Context, id string) (*model.Book, error) {
	bookID, err := parseID("book", id)
	if err != nil {
		return nil, err
	}
	book, err := s.books.FindByID(ctx, bookID)
	if err != nil {
		return nil, lookupErr(err, "Book", id)
	}
	return book, nil
}

func (s *bookService) Update(ctx context.Context, userID *uuid.UUID, id string, req UpdateBookRequest) (*model.Book, error) {
	book, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	refs, err := parseRefs(req.AuthorID, req.PublisherID, req.GenreID)
	if err != nil {
		return nil, err
	}
	if !refs.Empty() {
		if err := s.relations.Validate(ctx, refs); err != nil {
			return nil, err
		}
	}

	fields := map[string]interface{}{}
	if req.Title != nil {
		fields["title"] = strings.TrimSpace(*req.Title)
	}
	if req.ISBN != nil {
		isbn := normalizeISBN(req.ISBN)
		if isbn != nil {
			if err := s.checkISBN(ctx, *isbn, &book.ID); err != nil {
				return nil, err
			}
		}
		fields["isbn"] = isbn
	}
	if req.Price != nil {
		if req.Price.IsNegative() {
			return nil, apperror.Validation("price must be greater than or equal to 0")
		}
		fields["price"] = req.Price.Round(2)
	}
	if req.PublicationDate != nil {
		published, err := parseDate("publication_date", *req.PublicationDate)
		if err != nil {
			return nil, err
		}
		fields["publication_date"] = published
	}
	if req.Pages != nil {
		fields["pages"] = *req.Pages
	}
	if req.Language != nil {
		fields["language"] = strings.TrimSpace(*req.Language)
	}
	if req.Description != nil {
		fields["description"] = *req.Description
	}
	if req.ImageURL != nil {
		fields["image_url"] = *req.ImageURL
	}
	if refs.AuthorID != nil {
		fields["author_id"] = *refs.AuthorID
	}
	if refs.PublisherID != nil {
		fields["publisher_id"] = *refs.PublisherID
	}
	if refs.GenreID != nil {
		fields["genre_id"] = *refs.GenreID
	}

	previousStock := book.StockQuantity
	stockChanged := false
	if req.StockQuantity != nil {
		fields["stock_quantity"] = *req.StockQuantity
		fields["is_available"] = *req.StockQuantity > 0
		stockChanged = *req.StockQuantity != previousStock
	}

	if len(fields) > 0 {
		err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
			if err := s.books.Update(txCtx, book.ID, fields); err != nil {
				return fmt.Errorf("failed to update book: %w", err)
			}
			if !stockChanged {
				return nil
			}
			delta := *req.StockQuantity - previousStock
			reason := req.Reason
			if reason == "" {
				reason = "Manual stock update"
			}
			entry := &model.BookInventoryLog{
				BookID:         book.ID,
				OperationType:  model.OperationForDelta(delta),
				QuantityChange: delta,
				PreviousStock:  previousStock,
				NewStock:       *req.StockQuantity,
				Reason:         reason,
				UserID:         userID,
			}
			if err := s.inventory.Create(txCtx, entry); err != nil {
				return fmt.Errorf("failed to write inventory log: %w", err)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	updated, err := s.books.FindByID(ctx, book.ID)
	if err != nil {
		return nil, lookupErr(err, "Book", id)
	}
	if stockChanged {
		s.publishStock(updated, previousStock)
	}
	return updated, nil
}

func (s *bookService) Delete(ctx context.Context, id string) error {
	book, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.books.SoftDelete(ctx, book.ID, time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to delete book: %w", err)
	}
	return nil
}

// UploadImage stores data as the book's cover and replaces any previous one
func (s *bookService) UploadImage(ctx context.Context, id string, data []byte) (*model.Book, error) {
	book, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if s.images == nil {
		return nil, apperror.Storage(errors.New("image storage is not configured"), false)
	}

	url, err := s.images.Upload(ctx, imageFolder, data)
	if err != nil {
		return nil, apperror.Storage(err, errors.Is(err, storage.ErrInvalidImage))
	}

	if err := s.books.Update(ctx, book.ID, map[string]interface{}{"image_url": url}); err != nil {
		return nil, fmt.Errorf("failed to update book: %w", err)
	}

	if book.ImageURL != "" {
		if err := s.images.Delete(ctx, book.ImageURL); err != nil {
			s.log.Warn("failed to delete previous book image",
				zap.String("book_id", book.ID.String()),
				zap.String("url", book.ImageURL),
				zap.Error(err),
			)
		}
	}

	return s.Get(ctx, id)
}

func (s *bookService) InventoryLogs(ctx context.Context, id string, p pagination.Params) (Page[model.BookInventoryLog], error) {
	book, err := s.Get(ctx, id)
	if err != nil {
		return Page[model.BookInventoryLog]{}, err
	}
	logs, total, err := s.inventory.ListByBook(ctx, book.ID, p)
	if err != nil {
		return Page[model.BookInventoryLog]{}, fmt.Errorf("failed to list inventory logs: %w", err)
	}
	return newPage(logs, total, p), nil
}

func (s *bookService) checkISBN(ctx context.Context, isbn string, excludeID *uuid.UUID) error {
	taken, err := s.books.ExistsByISBN(ctx, isbn, excludeID)
	if err != nil {
		return fmt.Errorf("database error: %w", err)
	}
	if taken {
		return apperror.Conflict("a book with ISBN %s already exists", isbn)
	}
	return nil
}

func (s *bookService) publishStock(book *model.Book, previous int) {
	s.hub.Publish(ws.EventStockChanged, StockChange{
		BookID:        book.ID,
		Title:         book.Title,
		PreviousStock: previous,
		NewStock:      book.StockQuantity,
		IsAvailable:   book.IsAvailable,
	})
}

func parseRefs(authorID, publisherID, genreID *string) (BookRefs, error) {
	var refs BookRefs
	targets := []struct {
		name string
		raw  *string
		dst  **uuid.UUID
	}{
		{"author", authorID, &refs.AuthorID},
		{"publisher", publisherID, &refs.PublisherID},
		{"genre", genreID, &refs.GenreID},
	}
	for _, t := range targets {
		if t.raw == nil || *t.raw == "" {
			continue
		}
		id, err := parseID(t.name, *t.raw)
		if err != nil {
			return BookRefs{}, err
		}
		*t.dst = &id
	}
	return refs, nil
}

// normalizeISBN trims the value and maps blank to nil
func normalizeISBN(isbn *string) *string {
	if isbn == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*isbn)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func toListItem(b *model.Book) BookListItem {
	item := BookListItem{
		ID:              b.ID,
		Title:           b.Title,
		ISBN:            b.ISBN,
		Price:           b.Price,
		StockQuantity:   b.StockQuantity,
		PublicationDate: b.PublicationDate,
		Pages:           b.Pages,
		Language:        b.Language,
		Description:     b.Description,
		ImageURL:        b.ImageURL,
		IsAvailable:     b.IsAvailable,
		IsActive:        b.IsActive,
		CreatedAt:       b.CreatedAt,
		UpdatedAt:       b.UpdatedAt,
	}
	if b.Author != nil {
		item.Author = &AuthorSummary{ID: b.Author.ID, FirstName: b.Author.FirstName, LastName: b.Author.LastName}
	}
	if b.Publisher != nil {
		item.Publisher = &NamedSummary{ID: b.Publisher.ID, Name: b.Publisher.Name}
	}
	if b.Genre != nil {
		item.Genre = &NamedSummary{ID: b.Genre.ID, Name: b.Genre.Name}
	}
	return item
}
