package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"sync"
	"testing"

	"bookinventory/internal/apperror"
	"bookinventory/internal/model"
	"bookinventory/internal/query"
	"bookinventory/internal/repository"
	"bookinventory/internal/storage"
	"bookinventory/internal/testutil"
	"bookinventory/pkg/pagination"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var pngBytes = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0x0d, 'I', 'H', 'D', 'R'}

type bookFixture struct {
	svc    BookService
	db     *gorm.DB
	cat    testutil.Catalog
	images *storage.MemoryImageStore
}

func newBookFixture(t *testing.T) bookFixture {
	t.Helper()
	db := testutil.NewDB(t)
	images := storage.NewMemoryImageStore("mem://covers")
	relations := NewRelationValidator(
		repository.NewAuthorRepository(db),
		repository.NewPublisherRepository(db),
		repository.NewGenreRepository(db),
	)
	svc := NewBookService(
		repository.NewBookRepository(db),
		repository.NewInventoryLogRepository(db),
		relations,
		repository.NewTransactionManager(db),
		images,
		nil,
		zap.NewNop(),
	)
	return bookFixture{svc: svc, db: db, cat: testutil.SeedCatalog(t, db), images: images}
}

func (f bookFixture) createRequest(title string, stock int) CreateBookRequest {
	price := decimal.RequireFromString("19.99")
	return CreateBookRequest{
		Title:         title,
		Price:         &price,
		StockQuantity: &stock,
		AuthorID:      f.cat.Author.ID.String(),
		PublisherID:   f.cat.Publisher.ID.String(),
		GenreID:       f.cat.Genre.ID.String(),
	}
}

func ptr[T any](v T) *T { return &v }

func TestCreateBookDerivesAvailabilityAndLogsInitialStock(t *testing.T) {
	f := newBookFixture(t)
	ctx := context.Background()
	userID := uuid.New()

	book, err := f.svc.Create(ctx, &userID, f.createRequest("Cien años de soledad", 4))
	require.NoError(t, err)
	assert.True(t, book.IsAvailable)
	assert.True(t, book.IsActive)
	assert.Equal(t, model.DefaultBookLanguage, book.Language)
	require.NotNil(t, book.Author)
	assert.Equal(t, "García Márquez", book.Author.LastName)

	empty, err := f.svc.Create(ctx, nil, f.createRequest("Agotado", 0))
	require.NoError(t, err)
	assert.False(t, empty.IsAvailable)

	logs, err := f.svc.InventoryLogs(ctx, book.ID.String(), pagination.New(1, 10))
	require.NoError(t, err)
	require.Len(t, logs.Items, 1)
	entry := logs.Items[0]
	assert.Equal(t, model.InventoryInitialStock, entry.OperationType)
	assert.Equal(t, 4, entry.QuantityChange)
	assert.Equal(t, 0, entry.PreviousStock)
	assert.Equal(t, 4, entry.NewStock)
	require.NotNil(t, entry.UserID)
	assert.Equal(t, userID, *entry.UserID)
}

func TestCreateBookAcceptsLegacyAliases(t *testing.T) {
	f := newBookFixture(t)
	req := f.createRequest("Rayuela", 1)
	req.GenreID = ""
	req.GenreIDs = []string{f.cat.Genre.ID.String(), uuid.NewString()}
	req.Summary = "Una novela"

	book, err := f.svc.Create(context.Background(), nil, req)
	require.NoError(t, err)
	assert.Equal(t, f.cat.Genre.ID, book.GenreID)
	assert.Equal(t, "Una novela", book.Description)
}

func TestCreateBookRequiresGenre(t *testing.T) {
	f := newBookFixture(t)
	req := f.createRequest("Sin género", 1)
	req.GenreID = ""

	_, err := f.svc.Create(context.Background(), nil, req)
	assert.Equal(t, apperror.KindValidation, apperror.KindOf(err))
}

func TestCreateBookReportsEveryMissingRelation(t *testing.T) {
	f := newBookFixture(t)
	req := f.createRequest("Huérfano", 1)
	req.AuthorID = uuid.NewString()
	req.PublisherID = uuid.NewString()
	req.GenreID = uuid.NewString()

	_, err := f.svc.Create(context.Background(), nil, req)
	require.Error(t, err)
	var bad *apperror.BadReferenceError
	require.True(t, errors.As(err, &bad))
	relations := make([]string, 0, len(bad.Refs))
	for _, r := range bad.Refs {
		relations = append(relations, r.Relation)
	}
	assert.Equal(t, []string{"author", "publisher", "genre"}, relations)

	var count int64
	require.NoError(t, f.db.Model(&model.Book{}).Count(&count).Error)
	assert.Zero(t, count, "nothing is written when a reference is missing")
}

func TestCreateBookRejectsDuplicateISBNAndNegativePrice(t *testing.T) {
	f := newBookFixture(t)
	ctx := context.Background()

	req := f.createRequest("Primero", 1)
	req.ISBN = ptr("978-84-376-0494-7")
	_, err := f.svc.Create(ctx, nil, req)
	require.NoError(t, err)

	req.Title = "Segundo"
	_, err = f.svc.Create(ctx, nil, req)
	assert.Equal(t, apperror.KindConflict, apperror.KindOf(err))

	neg := f.createRequest("Negativo", 1)
	neg.Price = ptr(decimal.RequireFromString("-1"))
	_, err = f.svc.Create(ctx, nil, neg)
	assert.Equal(t, apperror.KindValidation, apperror.KindOf(err))
}

func TestUpdateBookMergesOnlySuppliedFields(t *testing.T) {
	f := newBookFixture(t)
	ctx := context.Background()
	book, err := f.svc.Create(ctx, nil, f.createRequest("Original", 5))
	require.NoError(t, err)

	updated, err := f.svc.Update(ctx, nil, book.ID.String(), UpdateBookRequest{Title: ptr("Renamed")})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Title)
	assert.True(t, book.Price.Equal(updated.Price))
	assert.Equal(t, 5, updated.StockQuantity)
	assert.True(t, updated.IsAvailable)

	updated, err = f.svc.Update(ctx, nil, book.ID.String(), UpdateBookRequest{StockQuantity: ptr(0), Reason: "Sold out"})
	require.NoError(t, err)
	assert.Equal(t, 0, updated.StockQuantity)
	assert.False(t, updated.IsAvailable)
	assert.Equal(t, "Renamed", updated.Title)

	logs, err := f.svc.InventoryLogs(ctx, book.ID.String(), pagination.New(1, 10))
	require.NoError(t, err)
	require.Len(t, logs.Items, 2)
	var out *model.BookInventoryLog
	for i := range logs.Items {
		if logs.Items[i].OperationType == model.InventoryStockOut {
			out = &logs.Items[i]
		}
	}
	require.NotNil(t, out)
	assert.Equal(t, -5, out.QuantityChange)
	assert.Equal(t, 5, out.PreviousStock)
	assert.Equal(t, 0, out.NewStock)
	assert.Equal(t, "Sold out", out.Reason)
}

func TestConcurrentUpdatesLastWriteWins(t *testing.T) {
	f := newBookFixture(t)
	ctx := context.Background()
	book, err := f.svc.Create(ctx, nil, f.createRequest("First", 3))
	require.NoError(t, err)
	id := book.ID.String()

	_, err = f.svc.Update(ctx, nil, id, UpdateBookRequest{Title: ptr("Second"), Price: ptr(decimal.RequireFromString("10.00"))})
	require.NoError(t, err)
	_, err = f.svc.Update(ctx, nil, id, UpdateBookRequest{Title: ptr("Third")})
	require.NoError(t, err)

	stored, err := f.svc.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Third", stored.Title)
	assert.True(t, decimal.RequireFromString("10").Equal(stored.Price))

	titles := []string{"Left", "Right"}
	errs := make([]error, len(titles))
	var wg sync.WaitGroup
	for i, title := range titles {
		wg.Add(1)
		go func(i int, title string) {
			defer wg.Done()
			_, errs[i] = f.svc.Update(ctx, nil, id, UpdateBookRequest{Title: ptr(title)})
		}(i, title)
	}
	wg.Wait()
	for _, err := range errs {
		require.NoError(t, err)
	}

	stored, err = f.svc.Get(ctx, id)
	require.NoError(t, err)
	assert.Contains(t, titles, stored.Title)
	assert.Equal(t, 3, stored.StockQuantity)
}

func TestUpdateBookValidatesSuppliedRelations(t *testing.T) {
	f := newBookFixture(t)
	ctx := context.Background()
	book, err := f.svc.Create(ctx, nil, f.createRequest("Libro", 1))
	require.NoError(t, err)

	_, err = f.svc.Update(ctx, nil, book.ID.String(), UpdateBookRequest{PublisherID: ptr(uuid.NewString())})
	assert.Equal(t, apperror.KindBadReference, apperror.KindOf(err))

	other := testutil.SeedGenre(t, f.db, "Poesía")
	updated, err := f.svc.Update(ctx, nil, book.ID.String(), UpdateBookRequest{GenreID: ptr(other.ID.String())})
	require.NoError(t, err)
	require.NotNil(t, updated.Genre)
	assert.Equal(t, "Poesía", updated.Genre.Name)
}

func TestDeletedBooksAreNotFound(t *testing.T) {
	f := newBookFixture(t)
	ctx := context.Background()
	book, err := f.svc.Create(ctx, nil, f.createRequest("Efímero", 1))
	require.NoError(t, err)

	require.NoError(t, f.svc.Delete(ctx, book.ID.String()))

	_, err = f.svc.Get(ctx, book.ID.String())
	assert.Equal(t, apperror.KindNotFound, apperror.KindOf(err))
	assert.Equal(t, apperror.KindNotFound, apperror.KindOf(f.svc.Delete(ctx, book.ID.String())))

	_, err = f.svc.Get(ctx, "not-a-uuid")
	assert.Equal(t, apperror.KindValidation, apperror.KindOf(err))
}

func TestListBooksRejectsUnknownSortKey(t *testing.T) {
	f := newBookFixture(t)
	_, err := f.svc.List(context.Background(), query.BookFilter{SortBy: "stock_quantity"})
	assert.Equal(t, apperror.KindValidation, apperror.KindOf(err))
}

func TestListBooksProjectsSummaries(t *testing.T) {
	f := newBookFixture(t)
	ctx := context.Background()
	for _, title := range []string{"a", "b", "c"} {
		_, err := f.svc.Create(ctx, nil, f.createRequest(title, 1))
		require.NoError(t, err)
	}

	res, err := f.svc.List(ctx, query.BookFilter{SortBy: "title", SortOrder: "ASC", Limit: 2})
	require.NoError(t, err)
	require.Len(t, res.Books, 2)
	assert.Equal(t, "a", res.Books[0].Title)
	require.NotNil(t, res.Books[0].Author)
	assert.Equal(t, "Gabriel", res.Books[0].Author.FirstName)
	require.NotNil(t, res.Books[0].Publisher)
	assert.Equal(t, "Sudamericana", res.Books[0].Publisher.Name)
	assert.Equal(t, pagination.Meta{Total: 3, Page: 1, Limit: 2, Pages: 2, HasNext: true, HasPrev: false}, res.Pagination)
}

func TestExportCSVIgnoresPaging(t *testing.T) {
	f := newBookFixture(t)
	ctx := context.Background()
	for _, title := range []string{"uno", "dos", "tres"} {
		_, err := f.svc.Create(ctx, nil, f.createRequest(title, 1))
		require.NoError(t, err)
	}

	var buf bytes.Buffer
	require.NoError(t, f.svc.ExportCSV(ctx, query.BookFilter{Page: 3, Limit: 1}, &buf))
	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	assert.Len(t, records, 4)
	assert.Equal(t, "Gabriel García Márquez", records[1][3])

	buf.Reset()
	require.NoError(t, f.svc.ExportCSV(ctx, query.BookFilter{Search: "nothing matches"}, &buf))
	records, err = csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestUploadImageReplacesPreviousCover(t *testing.T) {
	f := newBookFixture(t)
	ctx := context.Background()
	book, err := f.svc.Create(ctx, nil, f.createRequest("Con portada", 1))
	require.NoError(t, err)

	first, err := f.svc.UploadImage(ctx, book.ID.String(), pngBytes)
	require.NoError(t, err)
	assert.True(t, f.images.Has(first.ImageURL))

	second, err := f.svc.UploadImage(ctx, book.ID.String(), pngBytes)
	require.NoError(t, err)
	assert.NotEqual(t, first.ImageURL, second.ImageURL)
	assert.True(t, f.images.Has(second.ImageURL))
	assert.False(t, f.images.Has(first.ImageURL))

	_, err = f.svc.UploadImage(ctx, book.ID.String(), []byte("not an image"))
	assert.Equal(t, apperror.KindStorage, apperror.KindOf(err))
	assert.Equal(t, 400, apperror.StatusCode(err))
}
