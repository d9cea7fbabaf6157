package service

import (
	"context"
	"testing"
	"time"

	"bookinventory/internal/apperror"
	"bookinventory/internal/model"
	"bookinventory/internal/repository"
	"bookinventory/internal/testutil"
	"bookinventory/pkg/pagination"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuditQueries(t *testing.T) {
	db := testutil.NewDB(t)
	repo := repository.NewAuditRepository(db)
	svc := NewAuditService(repo)
	ctx := context.Background()

	userID := uuid.New()
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	rows := []model.AuditLog{
		{Table: "books", RecordID: "b1", Operation: model.AuditCreate, UserID: &userID, CreatedAt: base},
		{Table: "books", RecordID: "b1", Operation: model.AuditUpdate, UserID: &userID, CreatedAt: base.Add(time.Minute)},
		{Table: "books", RecordID: "b2", Operation: model.AuditCreate, CreatedAt: base.Add(2 * time.Minute)},
		{Table: "genres", RecordID: "g1", Operation: model.AuditSoftDelete, CreatedAt: base.Add(3 * time.Minute)},
	}
	for i := range rows {
		require.NoError(t, repo.Log(ctx, &rows[i]))
	}

	history, err := svc.GetHistory(ctx, "books", "b1", pagination.New(1, 10))
	require.NoError(t, err)
	require.Len(t, history.Items, 2)
	assert.Equal(t, model.AuditUpdate, history.Items[0].Operation, "newest first")

	byUser, err := svc.GetAuditLogs(ctx, AuditQuery{UserID: userID.String()}, pagination.New(1, 10))
	require.NoError(t, err)
	assert.Equal(t, int64(2), byUser.Pagination.Total)

	byOp, err := svc.GetAuditLogs(ctx, AuditQuery{Operation: "soft_delete"}, pagination.New(1, 10))
	require.NoError(t, err)
	require.Len(t, byOp.Items, 1)
	assert.Equal(t, "genres", byOp.Items[0].Table)

	all, err := svc.GetAuditLogs(ctx, AuditQuery{}, pagination.New(2, 3))
	require.NoError(t, err)
	assert.Len(t, all.Items, 1)
	assert.Equal(t, pagination.Meta{Total: 4, Page: 2, Limit: 3, Pages: 2, HasNext: false, HasPrev: true}, all.Pagination)

	_, err = svc.GetAuditLogs(ctx, AuditQuery{UserID: "me"}, pagination.New(1, 10))
	assert.Equal(t, apperror.KindValidation, apperror.KindOf(err))

	_, err = svc.GetAuditLogs(ctx, AuditQuery{Table: "passwords"}, pagination.New(1, 10))
	assert.Equal(t, apperror.KindValidation, apperror.KindOf(err))
}
