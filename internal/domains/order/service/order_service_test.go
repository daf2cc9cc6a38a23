package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"returns-backend/internal/domains/order/model"
	"returns-backend/internal/domains/order/repository"
	"returns-backend/internal/shared/apperr"
	"returns-backend/internal/shared/utils"
)

func fixedClock(at time.Time) utils.Clock {
	return utils.ClockFunc(func() time.Time { return at })
}

func seed(repo repository.MemoryOrderRepository, userID uuid.UUID, status string, at time.Time) uuid.UUID {
	id := uuid.New()
	o := &model.Order{ID: id, UserID: &userID, Status: status, CreatedAt: at.Add(-time.Hour)}
	switch status {
	case model.OrderStatusDelivered:
		o.DeliveredAt = &at
	case model.OrderStatusCancelled:
		o.CancelledAt = &at
	}
	repo.SeedOrder(o, []model.OrderItem{
		{ProductID: uuid.New(), Quantity: 2, UnitPrice: decimal.RequireFromString("12.50")},
		{ProductID: uuid.New(), Quantity: 1, UnitPrice: decimal.RequireFromString("5.00")},
	})
	return id
}

func TestDeliveryService_IsReturnEligible(t *testing.T) {
	repo := repository.NewMemoryOrderRepository()
	now := time.Date(2026, 3, 20, 12, 0, 0, 0, time.UTC)
	svc := NewDeliveryService(repo, fixedClock(now), 14)
	userID := uuid.New()

	inWindow := seed(repo, userID, model.OrderStatusDelivered, now.Add(-13*24*time.Hour))
	expired := seed(repo, userID, model.OrderStatusDelivered, now.Add(-15*24*time.Hour))
	shipping := seed(repo, userID, model.OrderStatusShipping, now)

	tests := []struct {
		name    string
		orderID uuid.UUID
		userID  uuid.UUID
		want    bool
	}{
		{"delivered inside window", inWindow, userID, true},
		{"window elapsed", expired, userID, false},
		{"not delivered", shipping, userID, false},
		{"someone else's order", inWindow, uuid.New(), false},
		{"unknown order", uuid.New(), userID, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, err := svc.IsReturnEligible(context.Background(), tt.orderID, tt.userID)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ok)
		})
	}
}

func TestCancelledOrderService_RecordCancellation(t *testing.T) {
	repo := repository.NewMemoryOrderRepository()
	svc := NewCancelledOrderService(repo, utils.NewMonotonicClock(nil), 10, 100)
	userID := uuid.New()
	now := time.Now().UTC()

	cancelled := seed(repo, userID, model.OrderStatusCancelled, now)
	delivered := seed(repo, userID, model.OrderStatusDelivered, now)

	order, err := svc.RecordCancellation(context.Background(), cancelled)
	require.NoError(t, err)
	assert.Equal(t, model.RefundStatusNone, order.RefundStatus)
	assert.Equal(t, 1, order.Version)
	assert.True(t, decimal.RequireFromString("30.00").Equal(order.Amount()))
	assert.False(t, order.CreatedAt.IsZero())
	assert.Zero(t, order.RefundAttempts)

	again, err := svc.RecordCancellation(context.Background(), cancelled)
	require.NoError(t, err)
	assert.Equal(t, order.Version, again.Version)

	_, err = svc.RecordCancellation(context.Background(), delivered)
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestCancelledOrderService_ListAndOwnership(t *testing.T) {
	repo := repository.NewMemoryOrderRepository()
	svc := NewCancelledOrderService(repo, utils.NewMonotonicClock(nil), 2, 100)
	ctx := context.Background()
	userID, other := uuid.New(), uuid.New()
	base := time.Now().UTC()

	var mine []uuid.UUID
	for i := 0; i < 3; i++ {
		id := seed(repo, userID, model.OrderStatusCancelled, base.Add(time.Duration(i)*time.Minute))
		_, err := svc.RecordCancellation(ctx, id)
		require.NoError(t, err)
		mine = append(mine, id)
	}
	theirs := seed(repo, other, model.OrderStatusCancelled, base)
	_, err := svc.RecordCancellation(ctx, theirs)
	require.NoError(t, err)

	page, err := svc.ListForUser(ctx, userID, model.ListCancelledOrdersRequest{Page: 1})
	require.NoError(t, err)
	assert.Equal(t, 3, page.TotalItems)
	assert.Equal(t, 2, page.TotalPages)
	require.Len(t, page.Items, 2)
	assert.Equal(t, mine[2], page.Items[0].OrderID, "most recently recorded first")
	assert.False(t, page.AsOf.IsZero())

	empty, err := svc.ListForUser(ctx, userID, model.ListCancelledOrdersRequest{Page: 3})
	require.NoError(t, err)
	assert.Empty(t, empty.Items)
	assert.Equal(t, 3, empty.TotalItems)

	all, err := svc.ListAll(ctx, model.ListCancelledOrdersRequest{Page: 1, PageSize: 10, RefundStatus: "none"})
	require.NoError(t, err)
	assert.Equal(t, 4, all.TotalItems)

	_, err = svc.GetForUser(ctx, theirs, userID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = svc.ListAll(ctx, model.ListCancelledOrdersRequest{RefundStatus: "pending"})
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestCancelledOrderService_ListSnapshotHidesLateRecordings(t *testing.T) {
	repo := repository.NewMemoryOrderRepository()
	svc := NewCancelledOrderService(repo, utils.NewMonotonicClock(nil), 2, 100)
	ctx := context.Background()
	userID := uuid.New()
	base := time.Now().UTC().Add(-time.Hour)

	for i := 0; i < 4; i++ {
		id := seed(repo, userID, model.OrderStatusCancelled, base.Add(time.Duration(i)*time.Minute))
		_, err := svc.RecordCancellation(ctx, id)
		require.NoError(t, err)
	}

	first, err := svc.ListForUser(ctx, userID, model.ListCancelledOrdersRequest{Page: 1, PageSize: 2})
	require.NoError(t, err)
	require.Len(t, first.Items, 2)
	assert.Equal(t, 4, first.TotalItems)

	// A fifth cancellation is recorded between page reads
	late := seed(repo, userID, model.OrderStatusCancelled, base.Add(10*time.Minute))
	_, err = svc.RecordCancellation(ctx, late)
	require.NoError(t, err)

	asOf := first.AsOf
	second, err := svc.ListForUser(ctx, userID, model.ListCancelledOrdersRequest{Page: 2, PageSize: 2, AsOf: &asOf})
	require.NoError(t, err)
	require.Len(t, second.Items, 2)
	assert.Equal(t, 4, second.TotalItems)
	assert.Equal(t, first.AsOf, second.AsOf)

	seen := map[uuid.UUID]bool{}
	for _, o := range append(first.Items, second.Items...) {
		assert.False(t, seen[o.OrderID], "order %s listed twice", o.OrderID)
		assert.NotEqual(t, late, o.OrderID)
		seen[o.OrderID] = true
	}
	assert.Len(t, seen, 4)

	fresh, err := svc.ListForUser(ctx, userID, model.ListCancelledOrdersRequest{Page: 1, PageSize: 2})
	require.NoError(t, err)
	assert.Equal(t, 5, fresh.TotalItems)
	assert.Equal(t, late, fresh.Items[0].OrderID)
}
