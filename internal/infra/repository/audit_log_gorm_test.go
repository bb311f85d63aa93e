package repository

import (
	"context"
	"testing"
	"time"

	"github.com/rs-labo46/ec-order-api/internal/domain/model"
	repo "github.com/rs-labo46/ec-order-api/internal/repository"
	"github.com/rs-labo46/ec-order-api/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuditLog_ListFilters(t *testing.T) {
	gdb := testutil.OpenDB(t)
	r := NewAuditLogGormRepository(gdb)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 3, 0, 0, 0, time.UTC)

	rows := []model.AuditLog{
		{ActorUserID: 1, Action: model.AuditActionUpdateOrderStatus, ResourceType: model.AuditResourceOrder, ResourceID: 10, CreatedAt: base},
		{ActorUserID: 1, Action: model.AuditActionCancelOrder, ResourceType: model.AuditResourceOrder, ResourceID: 10, CreatedAt: base.Add(time.Minute)},
		{ActorUserID: 2, Action: model.AuditActionUpdateOrderStatus, ResourceType: model.AuditResourceOrder, ResourceID: 11, CreatedAt: base.Add(2 * time.Minute)},
		// 同じIDでも種類が違えば別物
		{ActorUserID: 2, Action: model.AuditActionUpdateReturnStatus, ResourceType: model.AuditResourceReturn, ResourceID: 10, CreatedAt: base.Add(3 * time.Minute)},
	}
	for _, l := range rows {
		require.NoError(t, r.Create(ctx, l))
	}

	order := model.AuditResourceOrder
	id := int64(10)
	got, err := r.List(ctx, repo.AuditLogFilter{ResourceType: &order, ResourceID: &id, Limit: 10})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, model.AuditActionCancelOrder, got[0].Action)
	assert.Equal(t, model.AuditActionUpdateOrderStatus, got[1].Action)

	actor := int64(2)
	got, err = r.List(ctx, repo.AuditLogFilter{ActorUserID: &actor, Limit: 10})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, model.AuditResourceReturn, got[0].ResourceType)

	from, to := base.Add(30*time.Second), base.Add(150*time.Second)
	got, err = r.List(ctx, repo.AuditLogFilter{CreatedFrom: &from, CreatedTo: &to, Limit: 10})
	require.NoError(t, err)
	assert.Len(t, got, 2)

	got, err = r.List(ctx, repo.AuditLogFilter{Limit: 1, Offset: 3})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.True(t, got[0].CreatedAt.Equal(base))
}
