// Package query turns a typed book filter into a closed query spec: a list of
// enumerated predicate nodes over a fixed set of fields, one ordering and one
// result window. Nothing in a Spec is free-form SQL.
package query

// Field is a queryable column. The set is closed.
type Field int

const (
	FieldBookTitle Field = iota + 1
	FieldBookISBN
	FieldBookGenreID
	FieldBookAuthorID
	FieldBookPublisherID
	FieldBookAvailable
	FieldBookPrice
	FieldBookCreatedAt
	FieldBookPublicationDate
	FieldAuthorFirstName
	FieldAuthorLastName
	FieldPublisherName
)

// Join names a related table a field lives on
type Join int

const (
	JoinNone Join = iota
	JoinAuthor
	JoinPublisher
)

// Column is the physical location of a Field
type Column struct {
	Table string
	Name  string
}

var fieldColumns = map[Field]Column{
	FieldBookTitle:           {"books", "title"},
	FieldBookISBN:            {"books", "isbn"},
	FieldBookGenreID:         {"books", "genre_id"},
	FieldBookAuthorID:        {"books", "author_id"},
	FieldBookPublisherID:     {"books", "publisher_id"},
	FieldBookAvailable:       {"books", "is_available"},
	FieldBookPrice:           {"books", "price"},
	FieldBookCreatedAt:       {"books", "created_at"},
	FieldBookPublicationDate: {"books", "publication_date"},
	FieldAuthorFirstName:     {"authors", "first_name"},
	FieldAuthorLastName:      {"authors", "last_name"},
	FieldPublisherName:       {"publishers", "name"},
}

// Column returns where f is stored. ok is false for an unknown field.
func (f Field) Column() (Column, bool) {
	c, ok := fieldColumns[f]
	return c, ok
}

// Join returns the related table that must be joined to read f
func (f Field) Join() Join {
	switch f {
	case FieldAuthorFirstName, FieldAuthorLastName:
		return JoinAuthor
	case FieldPublisherName:
		return JoinPublisher
	default:
		return JoinNone
	}
}

// Comparator enumerates the predicate node kinds
type Comparator int

const (
	OpEquals Comparator = iota + 1
	OpInSet
	OpRange
	OpILike
	OpOr
)

// Predicate is one node of the filter tree. Which fields are set depends on Op:
// Equals uses Value, InSet uses Values, Range uses Min/Max (nil is open),
// ILike uses Value as the substring, Or uses Any.
type Predicate struct {
	Op     Comparator
	Field  Field
	Value  any
	Values []any
	Min    any
	Max    any
	Any    []Predicate
}

func Equals(f Field, v any) Predicate {
	return Predicate{Op: OpEquals, Field: f, Value: v}
}

func InSet(f Field, vs []any) Predicate {
	return Predicate{Op: OpInSet, Field: f, Values: vs}
}

func Range(f Field, min, max any) Predicate {
	return Predicate{Op: OpRange, Field: f, Min: min, Max: max}
}

// ILike matches a case-insensitive substring
func ILike(f Field, substr string) Predicate {
	return Predicate{Op: OpILike, Field: f, Value: substr}
}

func Or(ps ...Predicate) Predicate {
	return Predicate{Op: OpOr, Any: ps}
}

// Joins lists the related tables p reads from
func (p Predicate) Joins() []Join {
	if p.Op != OpOr {
		if j := p.Field.Join(); j != JoinNone {
			return []Join{j}
		}
		return nil
	}
	var out []Join
	for _, child := range p.Any {
		out = append(out, child.Joins()...)
	}
	return out
}
