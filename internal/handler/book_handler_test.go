package handler

import (
	"bytes"
	"encoding/csv"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"

	"bookinventory/internal/model"
	"bookinventory/internal/service"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngBytes = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0x0d, 'I', 'H', 'D', 'R'}

func (a *testApp) bookPayload(title string, stock int) map[string]any {
	return map[string]any{
		"title":          title,
		"price":          12.5,
		"stock_quantity": stock,
		"author_id":      a.cat.Author.ID.String(),
		"publisher_id":   a.cat.Publisher.ID.String(),
		"genre_id":       a.cat.Genre.ID.String(),
	}
}

func (a *testApp) createBook(t *testing.T, token, title string, stock int) model.Book {
	t.Helper()
	w := a.do(t, http.MethodPost, "/api/books", token, a.bookPayload(title, stock))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var book model.Book
	decode(t, w, &book)
	return book
}

// isNullJSON reports whether a JSON column read back from the database is empty
func isNullJSON(raw []byte) bool {
	return len(raw) == 0 || string(raw) == "null"
}

func imageRequest(t *testing.T, path, contentType string, data []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if data != nil {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="image"; filename="cover"`)
		h.Set("Content-Type", contentType)
		part, err := mw.CreatePart(h)
		require.NoError(t, err)
		_, err = part.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestBookLifecycleIsAudited(t *testing.T) {
	app := newTestApp(t)
	userToken, user := app.tokenAs(t, model.RoleUser)
	managerToken, _ := app.tokenAs(t, model.RoleManager)

	book := app.createBook(t, userToken, "Pedro Páramo", 3)
	assert.True(t, book.IsAvailable)
	path := "/api/books/" + book.ID.String()

	w := app.do(t, http.MethodPatch, path, userToken, map[string]any{"stock_quantity": 0})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var updated model.Book
	decode(t, w, &updated)
	assert.False(t, updated.IsAvailable)
	assert.Equal(t, "Pedro Páramo", updated.Title)

	w = app.do(t, http.MethodDelete, path, userToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = app.do(t, http.MethodDelete, path, managerToken, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = app.do(t, http.MethodGet, path, userToken, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	app.flushAudit(t)
	var rows []model.AuditLog
	require.NoError(t, app.db.Where("record_id = ?", book.ID.String()).Order("created_at ASC").Find(&rows).Error)
	require.Len(t, rows, 3)

	assert.Equal(t, model.AuditCreate, rows[0].Operation)
	assert.Equal(t, "books", rows[0].Table)
	assert.True(t, isNullJSON(rows[0].OldValues))
	assert.Contains(t, string(rows[0].NewValues), "Pedro Páramo")
	require.NotNil(t, rows[0].UserID)
	assert.Equal(t, user.ID, *rows[0].UserID)

	assert.Equal(t, model.AuditUpdate, rows[1].Operation)
	assert.Contains(t, string(rows[1].OldValues), `"stock_quantity":3`)
	assert.Contains(t, string(rows[1].NewValues), `"stock_quantity":0`)

	assert.Equal(t, model.AuditSoftDelete, rows[2].Operation)
	assert.False(t, isNullJSON(rows[2].OldValues))
	assert.True(t, isNullJSON(rows[2].NewValues))
}

func TestCreateBookValidation(t *testing.T) {
	app := newTestApp(t)
	token, _ := app.tokenAs(t, model.RoleUser)

	missingTitle := app.bookPayload("", 1)
	w := app.do(t, http.MethodPost, "/api/books", token, missingTitle)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	badISBN := app.bookPayload("ISBN inválido", 1)
	badISBN["isbn"] = "12345"
	w = app.do(t, http.MethodPost, "/api/books", token, badISBN)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	orphan := app.bookPayload("Huérfano", 1)
	orphan["author_id"] = uuid.NewString()
	w = app.do(t, http.MethodPost, "/api/books", token, orphan)
	require.Equal(t, http.StatusBadRequest, w.Code)
	env := decode(t, w, nil)
	assert.False(t, env.Success)
	assert.Contains(t, env.Error.Message, "author")
	assert.Equal(t, "/api/books", env.Error.Path)

	w = app.do(t, http.MethodPost, "/api/books", "", app.bookPayload("Anónimo", 1))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestListBooksFilters(t *testing.T) {
	app := newTestApp(t)
	token, _ := app.tokenAs(t, model.RoleUser)
	app.createBook(t, token, "Ficciones", 2)
	app.createBook(t, token, "El Aleph", 0)

	w := app.do(t, http.MethodGet, "/api/books?is_available=true&genres="+app.cat.Genre.ID.String()+","+uuid.NewString(), token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var res service.BookListResponse
	decode(t, w, &res)
	require.Len(t, res.Books, 1)
	assert.Equal(t, "Ficciones", res.Books[0].Title)
	assert.Equal(t, int64(1), res.Pagination.Total)
	require.NotNil(t, res.Books[0].Genre)
	assert.Equal(t, app.cat.Genre.Name, res.Books[0].Genre.Name)

	for _, bad := range []string{
		"?genres=not-a-uuid",
		"?is_available=maybe",
		"?min_price=cheap",
		"?min_price=10&max_price=5",
		"?sort_by=stock_quantity",
		"?sort_order=sideways",
		"?page=two",
	} {
		w := app.do(t, http.MethodGet, "/api/books"+bad, token, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code, bad)
	}
}

func TestExportBooksCSV(t *testing.T) {
	app := newTestApp(t)
	token, _ := app.tokenAs(t, model.RoleUser)
	app.createBook(t, token, `Ensayo "sobre" la ceguera, 2`, 1)

	w := app.do(t, http.MethodGet, "/api/books/export/csv?limit=1&page=5", token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "text/csv; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="books.csv"`, w.Header().Get("Content-Disposition"))

	records, err := csv.NewReader(w.Body).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "Title", records[0][1])
	assert.Equal(t, `Ensayo "sobre" la ceguera, 2`, records[1][1])
	assert.Equal(t, "Yes", records[1][8])
}

func TestUploadImage(t *testing.T) {
	app := newTestApp(t)
	token, _ := app.tokenAs(t, model.RoleUser)
	book := app.createBook(t, token, "Con portada", 1)
	path := "/api/books/" + book.ID.String() + "/upload-image"

	w := app.send(imageRequest(t, path, "", nil), token)
	assert.Equal(t, http.StatusBadRequest, w.Code, "missing file")

	w = app.send(imageRequest(t, path, "image/png", []byte{}), token)
	assert.Equal(t, http.StatusBadRequest, w.Code, "empty file")

	w = app.send(imageRequest(t, path, "text/plain", []byte("hello")), token)
	assert.Equal(t, http.StatusBadRequest, w.Code, "non image content type")

	w = app.send(imageRequest(t, path, "image/png", []byte("not really a png")), token)
	assert.Equal(t, http.StatusBadRequest, w.Code, "content that is not an image")

	w = app.send(imageRequest(t, path, "image/png", pngBytes), token)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var updated model.Book
	decode(t, w, &updated)
	assert.True(t, app.images.Has(updated.ImageURL))

	w = app.send(imageRequest(t, "/api/books/"+uuid.NewString()+"/upload-image", "image/png", pngBytes), token)
	assert.Equal(t, http.StatusNotFound, w.Code)

	app.flushAudit(t)
	var rows []model.AuditLog
	require.NoError(t, app.db.Where("record_id = ? AND operation = ?", book.ID.String(), model.AuditUpdate).Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.Contains(t, string(rows[0].NewValues), updated.ImageURL)
}

func TestInventoryLogsEndpoint(t *testing.T) {
	app := newTestApp(t)
	token, _ := app.tokenAs(t, model.RoleUser)
	book := app.createBook(t, token, "Stock", 2)

	w := app.do(t, http.MethodPatch, "/api/books/"+book.ID.String(), token, map[string]any{"stock_quantity": 7, "reason": "Restock"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = app.do(t, http.MethodGet, "/api/books/"+book.ID.String()+"/inventory-logs", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var page service.Page[model.BookInventoryLog]
	decode(t, w, &page)
	require.Len(t, page.Items, 2)
	assert.Equal(t, int64(2), page.Pagination.Total)

	types := []string{page.Items[0].OperationType, page.Items[1].OperationType}
	assert.ElementsMatch(t, []string{model.InventoryInitialStock, model.InventoryStockIn}, types)
}
