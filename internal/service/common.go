package service

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"bookinventory/internal/apperror"
	"bookinventory/pkg/pagination"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Page is a window of list results plus its pagination block
type Page[T any] struct {
	Items      []T             `json:"items"`
	Pagination pagination.Meta `json:"pagination"`
}

func newPage[T any](items []T, total int64, p pagination.Params) Page[T] {
	if items == nil {
		items = []T{}
	}
	return Page[T]{Items: items, Pagination: pagination.NewMeta(total, p.Page, p.Limit)}
}

// parseID validates a path id
func parseID(entity, id string) (uuid.UUID, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return uuid.Nil, apperror.Validation("invalid %s id: %s", entity, id)
	}
	return parsed, nil
}

// lookupErr turns a missing row into a not-found error and wraps anything else
func lookupErr(err error, entity, id string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperror.NotFound(entity, id)
	}
	return fmt.Errorf("database error: %w", err)
}

// parseDate accepts a calendar date or a full RFC 3339 timestamp
func parseDate(field, value string) (*time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	if t, err := time.Parse("2006-01-02", value); err == nil {
		return &t, nil
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		d := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
		return &d, nil
	}
	return nil, apperror.Validation("%s must be a date (YYYY-MM-DD)", field)
}

// RegisterValidators adds the custom binding rules used by the request DTOs
func RegisterValidators(v *validator.Validate) error {
	return v.RegisterValidation("isbn", func(fl validator.FieldLevel) bool {
		return ValidISBN(fl.Field().String())
	})
}

// ValidISBN accepts ISBN-10 and ISBN-13 with optional hyphens or spaces.
// Check digits are not verified.
func ValidISBN(s string) bool {
	digits := make([]byte, 0, 13)
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= '0' && c <= '9':
			digits = append(digits, c)
		case c == '-' || c == ' ':
		case (c == 'X' || c == 'x') && i == len(s)-1:
			digits = append(digits, 'X')
		default:
			return false
		}
	}
	switch len(digits) {
	case 10:
		return true
	case 13:
		return digits[12] != 'X'
	default:
		return false
	}
}
