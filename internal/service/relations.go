package service

import (
	"context"
	"fmt"

	"bookinventory/internal/apperror"
	"bookinventory/internal/repository"

	"github.com/google/uuid"
)

// BookRefs are the foreign keys a book write points at. Nil means "not part
// of this write".
type BookRefs struct {
	AuthorID    *uuid.UUID
	PublisherID *uuid.UUID
	GenreID     *uuid.UUID
}

// Empty reports whether no reference is set
func (r BookRefs) Empty() bool {
	return r.AuthorID == nil && r.PublisherID == nil && r.GenreID == nil
}

// RelationValidator confirms that book references point at live rows
type RelationValidator struct {
	authors    repository.AuthorRepository
	publishers repository.PublisherRepository
	genres     repository.GenreRepository
}

func NewRelationValidator(
	authors repository.AuthorRepository,
	publishers repository.PublisherRepository,
	genres repository.GenreRepository,
) *RelationValidator {
	return &RelationValidator{authors: authors, publishers: publishers, genres: genres}
}

// Validate checks every present reference and reports all missing ones in a
// single apperror.BadReference.
func (v *RelationValidator) Validate(ctx context.Context, refs BookRefs) error {
	checks := []struct {
		relation string
		id       *uuid.UUID
		exists   func(context.Context, uuid.UUID) (bool, error)
	}{
		{"author", refs.AuthorID, v.authors.Exists},
		{"publisher", refs.PublisherID, v.publishers.Exists},
		{"genre", refs.GenreID, v.genres.Exists},
	}

	var missing []apperror.Reference
	for _, c := range checks {
		if c.id == nil {
			continue
		}
		ok, err := c.exists(ctx, *c.id)
		if err != nil {
			return fmt.Errorf("check %s: %w", c.relation, err)
		}
		if !ok {
			missing = append(missing, apperror.Reference{Relation: c.relation, ID: c.id.String()})
		}
	}
	if len(missing) > 0 {
		return apperror.BadReference(missing...)
	}
	return nil
}
