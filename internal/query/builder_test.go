package query

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func boolPtr(b bool) *bool { return &b }

func decPtr(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func TestBuildDefaults(t *testing.T) {
	spec, err := Build(BookFilter{})
	require.NoError(t, err)

	assert.Empty(t, spec.Predicates)
	assert.Equal(t, Order{Field: FieldBookCreatedAt, Direction: Desc}, spec.Order)
	assert.Equal(t, Window{Page: 1, Limit: 10, Offset: 0}, spec.Window)
	assert.Empty(t, spec.Joins())
}

func TestBuildSearchIsOrGroupOverFourFields(t *testing.T) {
	spec, err := Build(BookFilter{Search: "  garcia "})
	require.NoError(t, err)
	require.Len(t, spec.Predicates, 1)

	or := spec.Predicates[0]
	assert.Equal(t, OpOr, or.Op)
	fields := make([]Field, 0, len(or.Any))
	for _, p := range or.Any {
		assert.Equal(t, OpILike, p.Op)
		assert.Equal(t, "garcia", p.Value)
		fields = append(fields, p.Field)
	}
	assert.Equal(t, []Field{FieldBookTitle, FieldBookISBN, FieldAuthorFirstName, FieldAuthorLastName}, fields)
	assert.Equal(t, []Join{JoinAuthor}, spec.Joins())
}

func TestBuildSetAvailabilityAndPriceFilters(t *testing.T) {
	g1, a1, p1 := uuid.New(), uuid.New(), uuid.New()
	spec, err := Build(BookFilter{
		Genres:      []uuid.UUID{g1},
		Authors:     []uuid.UUID{a1},
		Publishers:  []uuid.UUID{p1},
		IsAvailable: boolPtr(false),
		MinPrice:    decPtr("5"),
	})
	require.NoError(t, err)
	require.Len(t, spec.Predicates, 5)

	assert.Equal(t, InSet(FieldBookGenreID, []any{g1}), spec.Predicates[0])
	assert.Equal(t, InSet(FieldBookAuthorID, []any{a1}), spec.Predicates[1])
	assert.Equal(t, InSet(FieldBookPublisherID, []any{p1}), spec.Predicates[2])
	assert.Equal(t, Equals(FieldBookAvailable, false), spec.Predicates[3])

	price := spec.Predicates[4]
	assert.Equal(t, OpRange, price.Op)
	assert.True(t, decimal.RequireFromString("5").Equal(price.Min.(decimal.Decimal)))
	assert.Nil(t, price.Max)
}

func TestBuildEmptySetsAreNoOps(t *testing.T) {
	spec, err := Build(BookFilter{Genres: []uuid.UUID{}, Authors: nil})
	require.NoError(t, err)
	assert.Empty(t, spec.Predicates)
}

func TestBuildSortKeys(t *testing.T) {
	tests := []struct {
		sortBy, sortOrder string
		field             Field
		dir               Direction
		join              Join
	}{
		{"", "", FieldBookCreatedAt, Desc, JoinNone},
		{"title", "asc", FieldBookTitle, Asc, JoinNone},
		{"price", "ASC", FieldBookPrice, Asc, JoinNone},
		{"publication_date", "DESC", FieldBookPublicationDate, Desc, JoinNone},
		{"author", "ASC", FieldAuthorLastName, Asc, JoinAuthor},
		{"publisher", "", FieldPublisherName, Desc, JoinPublisher},
	}
	for _, tt := range tests {
		t.Run(tt.sortBy+"/"+tt.sortOrder, func(t *testing.T) {
			spec, err := Build(BookFilter{SortBy: tt.sortBy, SortOrder: tt.sortOrder})
			require.NoError(t, err)
			assert.Equal(t, Order{Field: tt.field, Direction: tt.dir}, spec.Order)
			if tt.join == JoinNone {
				assert.Empty(t, spec.Joins())
			} else {
				assert.Equal(t, []Join{tt.join}, spec.Joins())
			}
		})
	}
}

func TestBuildRejectsUnknownSortKey(t *testing.T) {
	for _, key := range []string{"id; DROP TABLE books", "stock_quantity", "\"Book\".\"title\""} {
		_, err := Build(BookFilter{SortBy: key})
		assert.ErrorIs(t, err, ErrUnknownSortKey, key)
	}
}

func TestBuildRejectsInvalidInput(t *testing.T) {
	_, err := Build(BookFilter{SortOrder: "sideways"})
	assert.ErrorIs(t, err, ErrInvalidSortOrder)

	_, err = Build(BookFilter{Page: -1})
	assert.ErrorIs(t, err, ErrInvalidWindow)

	_, err = Build(BookFilter{Limit: -5})
	assert.ErrorIs(t, err, ErrInvalidWindow)

	_, err = Build(BookFilter{MinPrice: decPtr("20"), MaxPrice: decPtr("10")})
	assert.ErrorIs(t, err, ErrInvalidPrice)

	_, err = Build(BookFilter{MaxPrice: decPtr("-1")})
	assert.ErrorIs(t, err, ErrInvalidPrice)
}

func TestBuildWindowOffset(t *testing.T) {
	spec, err := Build(BookFilter{Page: 3, Limit: 25})
	require.NoError(t, err)
	assert.Equal(t, Window{Page: 3, Limit: 25, Offset: 50}, spec.Window)
}

func TestEveryFieldHasAColumn(t *testing.T) {
	for f := FieldBookTitle; f <= FieldPublisherName; f++ {
		_, ok := f.Column()
		assert.True(t, ok, "field %d", f)
	}
	_, ok := Field(0).Column()
	assert.False(t, ok)
}
