// Package export renders book listings as downloadable files.
package export

import (
	"encoding/csv"
	"io"
	"strconv"
	"time"

	"bookinventory/internal/model"
)

// MaxRows caps the number of books in one export
const MaxRows = 10000

const (
	CSVContentType = "text/csv; charset=utf-8"
	CSVFilename    = "books.csv"
)

var csvHeader = []string{
	"ID", "Title", "ISBN", "Author", "Publisher", "Genre",
	"Price", "Stock", "Available", "Publication Date", "Created At",
}

// WriteBooksCSV writes the header and one row per book. An empty slice
// produces the header only.
func WriteBooksCSV(w io.Writer, books []model.Book) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for i := range books {
		if err := cw.Write(bookRow(&books[i])); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func bookRow(b *model.Book) []string {
	isbn := ""
	if b.ISBN != nil {
		isbn = *b.ISBN
	}
	author := ""
	if b.Author != nil {
		author = b.Author.FullName()
	}
	publisher := ""
	if b.Publisher != nil {
		publisher = b.Publisher.Name
	}
	genre := ""
	if b.Genre != nil {
		genre = b.Genre.Name
	}
	available := "No"
	if b.IsAvailable {
		available = "Yes"
	}
	published := ""
	if b.PublicationDate != nil {
		published = b.PublicationDate.Format("2006-01-02")
	}

	return []string{
		b.ID.String(),
		b.Title,
		isbn,
		author,
		publisher,
		genre,
		b.Price.StringFixed(2),
		strconv.Itoa(b.StockQuantity),
		available,
		published,
		b.CreatedAt.UTC().Format(time.RFC3339),
	}
}
