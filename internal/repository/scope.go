package repository

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Live restricts a query to rows of table that have not been soft deleted.
// Every read of a soft-deletable table goes through it.
func Live(table string) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where(clause.Eq{Column: clause.Column{Table: table, Name: "deleted_at"}, Value: nil})
	}
}

// existsLive reports whether table holds a live row with the given id
func existsLive(ctx context.Context, db *gorm.DB, table string, id uuid.UUID) (bool, error) {
	var count int64
	err := GetDB(ctx, db).Table(table).Scopes(Live(table)).Where("id = ?", id).Count(&count).Error
	return count > 0, err
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// containsFold builds a portable case-insensitive substring match on col
func containsFold(col clause.Column, substr string) clause.Expression {
	pattern := "%" + likeEscaper.Replace(strings.ToLower(substr)) + "%"
	return clause.Expr{SQL: `LOWER(?) LIKE ? ESCAPE '\'`, Vars: []interface{}{col, pattern}}
}

// searchAny ORs containsFold over every column. An empty search matches all rows.
func searchAny(table, search string, columns ...string) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		search = strings.TrimSpace(search)
		if search == "" {
			return db
		}
		exprs := make([]clause.Expression, 0, len(columns))
		for _, c := range columns {
			exprs = append(exprs, containsFold(clause.Column{Table: table, Name: c}, search))
		}
		return db.Where(clause.Or(exprs...))
	}
}

// forUpdate adds a FOR UPDATE row lock. SQLite locks the whole database for
// the transaction and has no such clause, so it is left out there.
func forUpdate(db *gorm.DB) *gorm.DB {
	if db.Dialector.Name() == "sqlite" {
		return db
	}
	return db.Clauses(clause.Locking{Strength: "UPDATE"})
}
