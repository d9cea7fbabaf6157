package handler

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strconv"
	"strings"

	"bookinventory/internal/apperror"
	"bookinventory/internal/audit"
	"bookinventory/internal/auth"
	"bookinventory/internal/export"
	"bookinventory/internal/middleware"
	"bookinventory/internal/model"
	"bookinventory/internal/query"
	"bookinventory/internal/service"
	"bookinventory/pkg/pagination"
	"bookinventory/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const booksPath = "/api/books"

type BookHandler struct {
	bookService    service.BookService
	issuer         *auth.TokenIssuer
	log            *zap.Logger
	maxUploadBytes int64
}

// NewBookHandler sets up the routing dependencies for Book endpoints
func NewBookHandler(bookService service.BookService, issuer *auth.TokenIssuer, log *zap.Logger, maxUploadBytes int64) *BookHandler {
	return &BookHandler{bookService: bookService, issuer: issuer, log: log, maxUploadBytes: maxUploadBytes}
}

// RegisterRoutes binds the endpoints to the gin Engine or RouterGroup
func (h *BookHandler) RegisterRoutes(router *gin.RouterGroup) {
	books := router.Group(booksPath)
	books.Use(middleware.RequireAuth(h.issuer))
	{
		books.POST("", h.CreateBook)
		books.GET("", h.ListBooks)
		books.GET("/export/csv", h.ExportBooksCSV)
		books.GET("/:id", h.GetBook)
		books.GET("/:id/inventory-logs", h.GetInventoryLogs)
		books.PATCH("/:id", audit.Snapshot(), h.UpdateBook)
		books.DELETE("/:id", middleware.RequireRole(h.issuer, model.RoleAdmin, model.RoleManager), audit.Snapshot(), h.DeleteBook)
		books.POST("/:id/upload-image", audit.Snapshot(), h.UploadImage)
	}
}

// AuditPolicies registers how book mutations are audited
func (h *BookHandler) AuditPolicies(p audit.Policies) {
	load := func(ctx context.Context, id string) (any, error) { return h.bookService.Get(ctx, id) }
	p.Add(http.MethodPost, booksPath, audit.Policy{Table: "books"})
	p.Add(http.MethodPatch, booksPath+"/:id", audit.Policy{Table: "books", Load: load})
	p.Add(http.MethodDelete, booksPath+"/:id", audit.Policy{Table: "books", Load: load})
	p.Add(http.MethodPost, booksPath+"/:id/upload-image", audit.Policy{Table: "books", Operation: audit.OpUpdate, Load: load})
}

// CreateBook handles POST /api/books
// @Summary      Create a book
// @Description  Creates a book after checking its author, publisher and genre exist. Writes the initial stock entry.
// @Tags         books
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.CreateBookRequest  true  "Create Book Payload"
// @Success      201      {object}  response.Response{data=model.Book}
// @Failure      400      {object}  response.ErrorResponse
// @Failure      409      {object}  response.ErrorResponse
// @Router       /api/books [post]
func (h *BookHandler) CreateBook(c *gin.Context) {
	var req service.CreateBookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	book, err := h.bookService.Create(c.Request.Context(), middleware.CurrentUserID(c), req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	audit.SetResult(c, book.ID.String(), book)
	c.JSON(http.StatusCreated, response.Success(c, http.StatusCreated, book))
}

// ListBooks handles GET /api/books
// @Summary      List books
// @Description  Filters, sorts and paginates books
// @Tags         books
// @Produce      json
// @Security     BearerAuth
// @Param        search        query     string  false  "Matches title, ISBN or author name"
// @Param        genres        query     string  false  "Comma separated genre ids"
// @Param        authors       query     string  false  "Comma separated author ids"
// @Param        publishers    query     string  false  "Comma separated publisher ids"
// @Param        is_available  query     bool    false  "Availability flag"
// @Param        min_price     query     number  false  "Lower price bound"
// @Param        max_price     query     number  false  "Upper price bound"
// @Param        sort_by       query     string  false  "created_at, publication_date, title, price, author or publisher"
// @Param        sort_order    query     string  false  "ASC or DESC (default DESC)"
// @Param        page          query     int     false  "Page number (default 1)"
// @Param        limit         query     int     false  "Items per page (default 10)"
// @Success      200           {object}  response.Response{data=service.BookListResponse}
// @Failure      400           {object}  response.ErrorResponse
// @Router       /api/books [get]
func (h *BookHandler) ListBooks(c *gin.Context) {
	filter, err := parseBookFilter(c)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	res, err := h.bookService.List(c.Request.Context(), filter)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(c, http.StatusOK, res))
}

// ExportBooksCSV handles GET /api/books/export/csv
// @Summary      Export books as CSV
// @Description  Exports every book matching the list filters. Paging parameters are ignored.
// @Tags         books
// @Produce      text/csv
// @Security     BearerAuth
// @Param        search        query     string  false  "Matches title, ISBN or author name"
// @Param        genres        query     string  false  "Comma separated genre ids"
// @Param        is_available  query     bool    false  "Availability flag"
// @Param        sort_by       query     string  false  "Sort key"
// @Param        sort_order    query     string  false  "ASC or DESC"
// @Success      200           {file}    file
// @Failure      400           {object}  response.ErrorResponse
// @Router       /api/books/export/csv [get]
func (h *BookHandler) ExportBooksCSV(c *gin.Context) {
	filter, err := parseBookFilter(c)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	var buf bytes.Buffer
	if err := h.bookService.ExportCSV(c.Request.Context(), filter, &buf); err != nil {
		respondError(c, h.log, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+export.CSVFilename+`"`)
	c.Data(http.StatusOK, export.CSVContentType, buf.Bytes())
}

// GetBook handles GET /api/books/:id
// @Summary      Get a book
// @Description  Returns a book with its author, publisher and genre
// @Tags         books
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Book ID"
// @Success      200  {object}  response.Response{data=model.Book}
// @Failure      404  {object}  response.ErrorResponse
// @Router       /api/books/{id} [get]
func (h *BookHandler) GetBook(c *gin.Context) {
	book, err := h.bookService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(c, http.StatusOK, book))
}

// GetInventoryLogs handles GET /api/books/:id/inventory-logs
// @Summary      Book stock history
// @Description  Lists the stock movements of a book, newest first
// @Tags         books
// @Produce      json
// @Security     BearerAuth
// @Param        id     path      string  true   "Book ID"
// @Param        page   query     int     false  "Page number (default 1)"
// @Param        limit  query     int     false  "Items per page (default 10)"
// @Success      200    {object}  response.Response{data=service.Page[model.BookInventoryLog]}
// @Failure      404    {object}  response.ErrorResponse
// @Router       /api/books/{id}/inventory-logs [get]
func (h *BookHandler) GetInventoryLogs(c *gin.Context) {
	logs, err := h.bookService.InventoryLogs(c.Request.Context(), c.Param("id"), pagination.Parse(c))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(c, http.StatusOK, logs))
}

// UpdateBook handles PATCH /api/books/:id
// @Summary      Update a book
// @Description  Changes only the supplied fields. A stock change is recorded in the inventory log.
// @Tags         books
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                     true  "Book ID"
// @Param        payload  body      service.UpdateBookRequest  true  "Update Book Payload"
// @Success      200      {object}  response.Response{data=model.Book}
// @Failure      400      {object}  response.ErrorResponse
// @Failure      404      {object}  response.ErrorResponse
// @Router       /api/books/{id} [patch]
func (h *BookHandler) UpdateBook(c *gin.Context) {
	var req service.UpdateBookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	book, err := h.bookService.Update(c.Request.Context(), middleware.CurrentUserID(c), c.Param("id"), req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	audit.SetResult(c, book.ID.String(), book)
	c.JSON(http.StatusOK, response.Success(c, http.StatusOK, book))
}

// DeleteBook handles DELETE /api/books/:id
// @Summary      Delete a book
// @Description  Soft deletes a book. Admin or manager only.
// @Tags         books
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Book ID"
// @Success      200  {object}  response.Response
// @Failure      403  {object}  response.ErrorResponse
// @Failure      404  {object}  response.ErrorResponse
// @Router       /api/books/{id} [delete]
func (h *BookHandler) DeleteBook(c *gin.Context) {
	id := c.Param("id")
	if err := h.bookService.Delete(c.Request.Context(), id); err != nil {
		respondError(c, h.log, err)
		return
	}

	audit.SetResult(c, id, nil)
	c.JSON(http.StatusOK, response.Success(c, http.StatusOK, gin.H{"id": id}))
}

// UploadImage handles POST /api/books/:id/upload-image
// @Summary      Upload a book cover
// @Description  Stores the uploaded image and replaces the previous cover
// @Tags         books
// @Accept       multipart/form-data
// @Produce      json
// @Security     BearerAuth
// @Param        id     path      string  true  "Book ID"
// @Param        image  formData  file    true  "Cover image"
// @Success      200    {object}  response.Response{data=model.Book}
// @Failure      400    {object}  response.ErrorResponse
// @Failure      404    {object}  response.ErrorResponse
// @Router       /api/books/{id}/upload-image [post]
func (h *BookHandler) UploadImage(c *gin.Context) {
	data, err := h.readImage(c)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	book, err := h.bookService.UploadImage(c.Request.Context(), c.Param("id"), data)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	audit.SetResult(c, book.ID.String(), book)
	c.JSON(http.StatusOK, response.Success(c, http.StatusOK, book))
}

// readImage checks the multipart "image" part before any storage call
func (h *BookHandler) readImage(c *gin.Context) ([]byte, error) {
	if h.maxUploadBytes > 0 {
		// Leave room for the multipart envelope around the file itself.
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes+1<<20)
	}

	header, err := c.FormFile("image")
	if err != nil {
		return nil, apperror.Validation("image file is required")
	}
	if header.Size == 0 {
		return nil, apperror.Validation("image file is empty")
	}
	if h.maxUploadBytes > 0 && header.Size > h.maxUploadBytes {
		return nil, apperror.Validation("image file exceeds %d bytes", h.maxUploadBytes)
	}
	if ct := header.Header.Get("Content-Type"); !strings.HasPrefix(ct, "image/") {
		return nil, apperror.Validation("only image files are allowed")
	}

	f, err := header.Open()
	if err != nil {
		return nil, apperror.Validation("image file could not be read")
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, apperror.Validation("image file could not be read")
	}
	return data, nil
}

func parseBookFilter(c *gin.Context) (query.BookFilter, error) {
	filter := query.BookFilter{
		Search:    c.Query("search"),
		SortBy:    c.Query("sort_by"),
		SortOrder: c.Query("sort_order"),
	}

	var err error
	if filter.Genres, err = uuidListQuery(c, "genres"); err != nil {
		return filter, err
	}
	if filter.Authors, err = uuidListQuery(c, "authors"); err != nil {
		return filter, err
	}
	if filter.Publishers, err = uuidListQuery(c, "publishers"); err != nil {
		return filter, err
	}

	if raw := strings.TrimSpace(c.Query("is_available")); raw != "" {
		available, err := strconv.ParseBool(raw)
		if err != nil {
			return filter, apperror.Validation("is_available must be true or false")
		}
		filter.IsAvailable = &available
	}
	if filter.MinPrice, err = decimalQuery(c, "min_price"); err != nil {
		return filter, err
	}
	if filter.MaxPrice, err = decimalQuery(c, "max_price"); err != nil {
		return filter, err
	}

	if filter.Page, err = intQuery(c, "page"); err != nil {
		return filter, err
	}
	if filter.Limit, err = intQuery(c, "limit"); err != nil {
		return filter, err
	}
	return filter, nil
}

func decimalQuery(c *gin.Context, key string) (*decimal.Decimal, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return nil, apperror.Validation("%s must be a number", key)
	}
	return &d, nil
}
