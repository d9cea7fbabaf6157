package repository

import (
	"context"
	"fmt"
	"time"

	"bookinventory/internal/model"
	"bookinventory/internal/query"
	"bookinventory/pkg/pagination"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const booksTable = "books"

type BookRepository interface {
	Create(ctx context.Context, book *model.Book) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Book, error)
	List(ctx context.Context, spec query.Spec) ([]model.Book, int64, error)
	Update(ctx context.Context, id uuid.UUID, fields map[string]interface{}) error
	SoftDelete(ctx context.Context, id uuid.UUID, at time.Time) error
	ExistsByISBN(ctx context.Context, isbn string, excludeID *uuid.UUID) (bool, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Book, error)
	UpdateStock(ctx context.Context, id uuid.UUID, stock int) error
	ListLowStock(ctx context.Context, threshold int, p pagination.Params) ([]model.Book, int64, error)
}

type bookRepository struct {
	db *gorm.DB
}

func NewBookRepository(db *gorm.DB) BookRepository {
	return &bookRepository{db: db}
}

func (r *bookRepository) Create(ctx context.Context, book *model.Book) error {
	return GetDB(ctx, r.db).Omit(clause.Associations).Create(book).Error
}

// FindByID returns a live book with its author, publisher and genre loaded
func (r *bookRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Book, error) {
	var book model.Book
	err := GetDB(ctx, r.db).
		Scopes(Live(booksTable)).
		Preload("Author").Preload("Publisher").Preload("Genre").
		First(&book, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &book, nil
}

// List runs a compiled book query and returns one page plus the total match count
func (r *bookRepository) List(ctx context.Context, spec query.Spec) ([]model.Book, int64, error) {
	var books []model.Book
	var total int64

	base, err := applyBookSpec(GetDB(ctx, r.db).Model(&model.Book{}).Scopes(Live(booksTable)), spec)
	if err != nil {
		return nil, 0, err
	}
	base = base.Session(&gorm.Session{})

	if err := base.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	orderCol, err := column(spec.Order.Field)
	if err != nil {
		return nil, 0, err
	}
	err = base.Select("books.*").
		Preload("Author").Preload("Publisher").Preload("Genre").
		Order(clause.OrderByColumn{Column: orderCol, Desc: spec.Order.Direction == query.Desc}).
		Order(clause.OrderByColumn{Column: clause.Column{Table: booksTable, Name: "id"}}).
		Offset(spec.Window.Offset).Limit(spec.Window.Limit).
		Find(&books).Error
	if err != nil {
		return nil, 0, err
	}

	return books, total, nil
}

func (r *bookRepository) Update(ctx context.Context, id uuid.UUID, fields map[string]interface{}) error {
	return GetDB(ctx, r.db).Model(&model.Book{}).
		Scopes(Live(booksTable)).
		Where("id = ?", id).
		Updates(fields).Error
}

func (r *bookRepository) SoftDelete(ctx context.Context, id uuid.UUID, at time.Time) error {
	return GetDB(ctx, r.db).Model(&model.Book{}).
		Scopes(Live(booksTable)).
		Where("id = ?", id).
		Updates(map[string]interface{}{"deleted_at": at, "is_active": false}).Error
}

func (r *bookRepository) ExistsByISBN(ctx context.Context, isbn string, excludeID *uuid.UUID) (bool, error) {
	var count int64
	db := GetDB(ctx, r.db).Model(&model.Book{}).Scopes(Live(booksTable)).Where("isbn = ?", isbn)
	if excludeID != nil {
		db = db.Where("id <> ?", *excludeID)
	}
	if err := db.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// FindByIDForUpdate loads a live book and locks its row until the surrounding
// transaction ends. Relations are not loaded.
func (r *bookRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Book, error) {
	var book model.Book
	err := forUpdate(GetDB(ctx, r.db)).
		Scopes(Live(booksTable)).
		First(&book, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &book, nil
}

// UpdateStock sets the stock level and keeps is_available in step with it
func (r *bookRepository) UpdateStock(ctx context.Context, id uuid.UUID, stock int) error {
	return GetDB(ctx, r.db).Model(&model.Book{}).
		Scopes(Live(booksTable)).
		Where("id = ?", id).
		Updates(map[string]interface{}{"stock_quantity": stock, "is_available": stock > 0}).Error
}

func (r *bookRepository) ListLowStock(ctx context.Context, threshold int, p pagination.Params) ([]model.Book, int64, error) {
	var books []model.Book
	var total int64

	db := GetDB(ctx, r.db).Model(&model.Book{}).
		Scopes(Live(booksTable)).
		Where("stock_quantity <= ?", threshold).
		Session(&gorm.Session{})
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := db.Preload("Author").Preload("Publisher").Preload("Genre").
		Order("stock_quantity ASC").Order("title ASC").
		Offset(p.Offset).Limit(p.Limit).
		Find(&books).Error
	if err != nil {
		return nil, 0, err
	}
	return books, total, nil
}

// applyBookSpec translates the joins and predicates of spec onto db
func applyBookSpec(db *gorm.DB, spec query.Spec) (*gorm.DB, error) {
	for _, j := range spec.Joins() {
		switch j {
		case query.JoinAuthor:
			db = db.Joins("LEFT JOIN authors ON authors.id = books.author_id")
		case query.JoinPublisher:
			db = db.Joins("LEFT JOIN publishers ON publishers.id = books.publisher_id")
		}
	}
	for _, p := range spec.Predicates {
		expr, err := predicateExpr(p)
		if err != nil {
			return nil, err
		}
		db = db.Where(expr)
	}
	return db, nil
}

func predicateExpr(p query.Predicate) (clause.Expression, error) {
	if p.Op == query.OpOr {
		exprs := make([]clause.Expression, 0, len(p.Any))
		for _, child := range p.Any {
			e, err := predicateExpr(child)
			if err != nil {
				return nil, err
			}
			exprs = append(exprs, e)
		}
		return clause.Or(exprs...), nil
	}

	col, err := column(p.Field)
	if err != nil {
		return nil, err
	}
	switch p.Op {
	case query.OpEquals:
		return clause.Eq{Column: col, Value: p.Value}, nil
	case query.OpInSet:
		return clause.IN{Column: col, Values: p.Values}, nil
	case query.OpRange:
		var bounds []clause.Expression
		if p.Min != nil {
			bounds = append(bounds, clause.Gte{Column: col, Value: p.Min})
		}
		if p.Max != nil {
			bounds = append(bounds, clause.Lte{Column: col, Value: p.Max})
		}
		return clause.And(bounds...), nil
	case query.OpILike:
		s, ok := p.Value.(string)
		if !ok {
			return nil, fmt.Errorf("ilike predicate on field %d needs a string", p.Field)
		}
		return containsFold(col, s), nil
	default:
		return nil, fmt.Errorf("unsupported comparator %d", p.Op)
	}
}

func column(f query.Field) (clause.Column, error) {
	c, ok := f.Column()
	if !ok {
		return clause.Column{}, fmt.Errorf("unknown field %d", f)
	}
	return clause.Column{Table: c.Table, Name: c.Name}, nil
}
