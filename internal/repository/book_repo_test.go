package repository

import (
	"context"
	"testing"
	"time"

	"bookinventory/internal/model"
	"bookinventory/internal/query"
	"bookinventory/internal/testutil"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func mustBuild(t *testing.T, f query.BookFilter) query.Spec {
	t.Helper()
	spec, err := query.Build(f)
	require.NoError(t, err)
	return spec
}

func titles(books []model.Book) []string {
	out := make([]string, len(books))
	for i, b := range books {
		out[i] = b.Title
	}
	return out
}

func TestBookListExampleScenario(t *testing.T) {
	db := testutil.NewDB(t)
	cat := testutil.SeedCatalog(t, db)
	other := testutil.SeedGenre(t, db, "Ensayo")

	testutil.SeedBook(t, db, cat, testutil.BookSeed{Title: "g1 pricey", Price: "30.00", Stock: 2})
	testutil.SeedBook(t, db, cat, testutil.BookSeed{Title: "g1 cheap", Price: "12.50", Stock: 5})
	testutil.SeedBook(t, db, cat, testutil.BookSeed{Title: "g1 sold out", Price: "5.00", Stock: 0})
	testutil.SeedBook(t, db, cat, testutil.BookSeed{Title: "other a", Price: "1.00", Stock: 3, GenreID: other.ID})
	testutil.SeedBook(t, db, cat, testutil.BookSeed{Title: "other b", Price: "2.00", Stock: 3, GenreID: other.ID})

	available := true
	repo := NewBookRepository(db)
	books, total, err := repo.List(context.Background(), mustBuild(t, query.BookFilter{
		Genres:      []uuid.UUID{cat.Genre.ID},
		IsAvailable: &available,
		SortBy:      "price",
		SortOrder:   "ASC",
		Page:        1,
		Limit:       2,
	}))
	require.NoError(t, err)

	assert.Equal(t, int64(2), total)
	assert.Equal(t, []string{"g1 cheap", "g1 pricey"}, titles(books))
	require.NotNil(t, books[0].Author)
	assert.Equal(t, cat.Author.LastName, books[0].Author.LastName)
	require.NotNil(t, books[0].Genre)
	assert.Equal(t, cat.Genre.Name, books[0].Genre.Name)
}

func TestBookListSearchMatchesAuthorNameCaseInsensitively(t *testing.T) {
	db := testutil.NewDB(t)
	cat := testutil.SeedCatalog(t, db)
	borges := testutil.SeedAuthor(t, db, "Jorge Luis", "Borges")

	testutil.SeedBook(t, db, cat, testutil.BookSeed{Title: "Cien años de soledad", Price: "20", Stock: 1})
	testutil.SeedBook(t, db, cat, testutil.BookSeed{Title: "Ficciones", Price: "15", Stock: 1, AuthorID: borges.ID})
	testutil.SeedBook(t, db, cat, testutil.BookSeed{Title: "El Aleph", ISBN: "978-0-14-243788-8", Price: "18", Stock: 1, AuthorID: borges.ID})

	repo := NewBookRepository(db)
	ctx := context.Background()

	books, total, err := repo.List(ctx, mustBuild(t, query.BookFilter{Search: "BORGES", SortBy: "title", SortOrder: "ASC"}))
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Equal(t, []string{"El Aleph", "Ficciones"}, titles(books))

	books, _, err = repo.List(ctx, mustBuild(t, query.BookFilter{Search: "243788"}))
	require.NoError(t, err)
	assert.Equal(t, []string{"El Aleph"}, titles(books))

	books, _, err = repo.List(ctx, mustBuild(t, query.BookFilter{Search: "SOLEDAD"}))
	require.NoError(t, err)
	assert.Equal(t, []string{"Cien años de soledad"}, titles(books))

	books, _, err = repo.List(ctx, mustBuild(t, query.BookFilter{Search: "100%"}))
	require.NoError(t, err)
	assert.Empty(t, books)
}

func TestBookListSortsByRelatedNames(t *testing.T) {
	db := testutil.NewDB(t)
	cat := testutil.SeedCatalog(t, db)
	allende := testutil.SeedAuthor(t, db, "Zoe", "Allende")
	zafon := testutil.SeedAuthor(t, db, "Alan", "Zafón")
	anagrama := testutil.SeedPublisher(t, db, "Anagrama")
	tusquets := testutil.SeedPublisher(t, db, "Tusquets")

	testutil.SeedBook(t, db, cat, testutil.BookSeed{Title: "by zafon", Price: "1", Stock: 1, AuthorID: zafon.ID, PublisherID: anagrama.ID})
	testutil.SeedBook(t, db, cat, testutil.BookSeed{Title: "by allende", Price: "1", Stock: 1, AuthorID: allende.ID, PublisherID: tusquets.ID})
	testutil.SeedBook(t, db, cat, testutil.BookSeed{Title: "by garcia", Price: "1", Stock: 1})

	repo := NewBookRepository(db)
	ctx := context.Background()

	books, _, err := repo.List(ctx, mustBuild(t, query.BookFilter{SortBy: "author", SortOrder: "ASC"}))
	require.NoError(t, err)
	assert.Equal(t, []string{"by allende", "by garcia", "by zafon"}, titles(books))

	books, _, err = repo.List(ctx, mustBuild(t, query.BookFilter{SortBy: "author", SortOrder: "DESC"}))
	require.NoError(t, err)
	assert.Equal(t, []string{"by zafon", "by garcia", "by allende"}, titles(books))

	books, _, err = repo.List(ctx, mustBuild(t, query.BookFilter{SortBy: "publisher", SortOrder: "ASC"}))
	require.NoError(t, err)
	assert.Equal(t, []string{"by zafon", "by garcia", "by allende"}, titles(books))
}

func TestBookListSortsByColumnsAndPriceRange(t *testing.T) {
	db := testutil.NewDB(t)
	cat := testutil.SeedCatalog(t, db)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	testutil.SeedBook(t, db, cat, testutil.BookSeed{Title: "B", Price: "9.99", Stock: 1, CreatedAt: base.Add(2 * time.Hour)})
	testutil.SeedBook(t, db, cat, testutil.BookSeed{Title: "A", Price: "100.00", Stock: 1, CreatedAt: base})
	testutil.SeedBook(t, db, cat, testutil.BookSeed{Title: "C", Price: "10.00", Stock: 1, CreatedAt: base.Add(time.Hour)})

	repo := NewBookRepository(db)
	ctx := context.Background()

	books, _, err := repo.List(ctx, mustBuild(t, query.BookFilter{}))
	require.NoError(t, err)
	assert.Equal(t, []string{"B", "C", "A"}, titles(books), "default is created_at DESC")

	books, _, err = repo.List(ctx, mustBuild(t, query.BookFilter{SortBy: "price", SortOrder: "DESC"}))
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "C", "B"}, titles(books))

	min := decimal.RequireFromString("10")
	max := decimal.RequireFromString("100")
	books, total, err := repo.List(ctx, mustBuild(t, query.BookFilter{MinPrice: &min, MaxPrice: &max, SortBy: "title", SortOrder: "ASC"}))
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Equal(t, []string{"A", "C"}, titles(books), "bounds are inclusive")
}

func TestBookListPagination(t *testing.T) {
	db := testutil.NewDB(t)
	cat := testutil.SeedCatalog(t, db)
	for _, title := range []string{"a", "b", "c", "d", "e"} {
		testutil.SeedBook(t, db, cat, testutil.BookSeed{Title: title, Price: "1", Stock: 1})
	}

	repo := NewBookRepository(db)
	books, total, err := repo.List(context.Background(), mustBuild(t, query.BookFilter{SortBy: "title", SortOrder: "ASC", Page: 2, Limit: 2}))
	require.NoError(t, err)
	assert.Equal(t, int64(5), total)
	assert.Equal(t, []string{"c", "d"}, titles(books))
}

func TestSoftDeletedBooksAreInvisible(t *testing.T) {
	db := testutil.NewDB(t)
	cat := testutil.SeedCatalog(t, db)
	book := testutil.SeedBook(t, db, cat, testutil.BookSeed{Title: "gone", ISBN: "123", Price: "1", Stock: 1})

	repo := NewBookRepository(db)
	ctx := context.Background()
	require.NoError(t, repo.SoftDelete(ctx, book.ID, time.Now()))

	_, err := repo.FindByID(ctx, book.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	books, total, err := repo.List(ctx, mustBuild(t, query.BookFilter{}))
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, books)

	exists, err := repo.ExistsByISBN(ctx, "123", nil)
	require.NoError(t, err)
	assert.False(t, exists, "a deleted book frees its ISBN")

	var raw model.Book
	require.NoError(t, db.First(&raw, "id = ?", book.ID).Error)
	assert.NotNil(t, raw.DeletedAt)
	assert.False(t, raw.IsActive)
}

func TestRelationExistsIgnoresDeletedRows(t *testing.T) {
	db := testutil.NewDB(t)
	cat := testutil.SeedCatalog(t, db)
	authors := NewAuthorRepository(db)
	ctx := context.Background()

	ok, err := authors.Exists(ctx, cat.Author.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, authors.SoftDelete(ctx, cat.Author.ID, time.Now()))
	ok, err = authors.Exists(ctx, cat.Author.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = NewGenreRepository(db).Exists(ctx, uuid.New())
	require.NoError(t, err)
	assert.False(t, ok)
}
