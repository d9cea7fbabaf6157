package query

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	DefaultPage  = 1
	DefaultLimit = 10
)

var (
	ErrUnknownSortKey   = errors.New("unknown sort key")
	ErrInvalidSortOrder = errors.New("sort order must be ASC or DESC")
	ErrInvalidWindow    = errors.New("page and limit must be at least 1")
	ErrInvalidPrice     = errors.New("price bounds must be non-negative and min must not exceed max")
)

// sortKeys is the complete set of accepted sort_by values
var sortKeys = map[string]Field{
	"created_at":       FieldBookCreatedAt,
	"publication_date": FieldBookPublicationDate,
	"title":            FieldBookTitle,
	"price":            FieldBookPrice,
	"author":           FieldAuthorLastName,
	"publisher":        FieldPublisherName,
}

// SortKeys returns the accepted sort_by values
func SortKeys() []string {
	return []string{"created_at", "publication_date", "title", "price", "author", "publisher"}
}

// BookFilter is a parsed book listing request. Zero values mean "not supplied".
type BookFilter struct {
	Search      string
	Genres      []uuid.UUID
	Authors     []uuid.UUID
	Publishers  []uuid.UUID
	IsAvailable *bool
	MinPrice    *decimal.Decimal
	MaxPrice    *decimal.Decimal
	SortBy      string
	SortOrder   string
	Page        int
	Limit       int
}

type Direction int

const (
	Desc Direction = iota
	Asc
)

func (d Direction) String() string {
	if d == Asc {
		return "ASC"
	}
	return "DESC"
}

type Order struct {
	Field     Field
	Direction Direction
}

// Window is the page of results to fetch
type Window struct {
	Page   int
	Limit  int
	Offset int
}

// Spec is the compiled form of a BookFilter
type Spec struct {
	Predicates []Predicate
	Order      Order
	Window     Window
}

// Joins returns the distinct related tables needed by predicates and ordering
func (s Spec) Joins() []Join {
	seen := map[Join]bool{}
	var out []Join
	add := func(j Join) {
		if j != JoinNone && !seen[j] {
			seen[j] = true
			out = append(out, j)
		}
	}
	for _, p := range s.Predicates {
		for _, j := range p.Joins() {
			add(j)
		}
	}
	add(s.Order.Field.Join())
	return out
}

// WithWindow returns a copy of s fetching the given page instead
func (s Spec) WithWindow(page, limit int) Spec {
	s.Window = Window{Page: page, Limit: limit, Offset: (page - 1) * limit}
	return s
}

// Build compiles f into a Spec. It rejects unknown sort keys, unknown sort
// orders, windows below 1 and inconsistent price bounds.
func Build(f BookFilter) (Spec, error) {
	var spec Spec

	if search := strings.TrimSpace(f.Search); search != "" {
		spec.Predicates = append(spec.Predicates, Or(
			ILike(FieldBookTitle, search),
			ILike(FieldBookISBN, search),
			ILike(FieldAuthorFirstName, search),
			ILike(FieldAuthorLastName, search),
		))
	}
	if len(f.Genres) > 0 {
		spec.Predicates = append(spec.Predicates, InSet(FieldBookGenreID, uuidValues(f.Genres)))
	}
	if len(f.Authors) > 0 {
		spec.Predicates = append(spec.Predicates, InSet(FieldBookAuthorID, uuidValues(f.Authors)))
	}
	if len(f.Publishers) > 0 {
		spec.Predicates = append(spec.Predicates, InSet(FieldBookPublisherID, uuidValues(f.Publishers)))
	}
	if f.IsAvailable != nil {
		spec.Predicates = append(spec.Predicates, Equals(FieldBookAvailable, *f.IsAvailable))
	}
	if f.MinPrice != nil || f.MaxPrice != nil {
		if (f.MinPrice != nil && f.MinPrice.IsNegative()) || (f.MaxPrice != nil && f.MaxPrice.IsNegative()) {
			return Spec{}, ErrInvalidPrice
		}
		if f.MinPrice != nil && f.MaxPrice != nil && f.MinPrice.GreaterThan(*f.MaxPrice) {
			return Spec{}, ErrInvalidPrice
		}
		var min, max any
		if f.MinPrice != nil {
			min = *f.MinPrice
		}
		if f.MaxPrice != nil {
			max = *f.MaxPrice
		}
		spec.Predicates = append(spec.Predicates, Range(FieldBookPrice, min, max))
	}

	order, err := buildOrder(f.SortBy, f.SortOrder)
	if err != nil {
		return Spec{}, err
	}
	spec.Order = order

	page, limit := f.Page, f.Limit
	if page == 0 {
		page = DefaultPage
	}
	if limit == 0 {
		limit = DefaultLimit
	}
	if page < 1 || limit < 1 {
		return Spec{}, ErrInvalidWindow
	}
	return spec.WithWindow(page, limit), nil
}

func buildOrder(sortBy, sortOrder string) (Order, error) {
	key := strings.ToLower(strings.TrimSpace(sortBy))
	if key == "" {
		key = "created_at"
	}
	field, ok := sortKeys[key]
	if !ok {
		return Order{}, fmt.Errorf("%w %q", ErrUnknownSortKey, sortBy)
	}

	dir := Desc
	switch strings.ToUpper(strings.TrimSpace(sortOrder)) {
	case "", "DESC":
	case "ASC":
		dir = Asc
	default:
		return Order{}, ErrInvalidSortOrder
	}
	return Order{Field: field, Direction: dir}, nil
}

func uuidValues(ids []uuid.UUID) []any {
	out := make([]any, len(ids))
	for i, id := range ids {
		out[i] = id
	}
	return out
}
