package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"returns-backend/internal/domains/returns/model"
)

func newRequest(orderID, userID uuid.UUID, at time.Time) *model.ReturnRequest {
	return &model.ReturnRequest{
		ID:          uuid.New(),
		OrderID:     orderID,
		UserID:      userID,
		Status:      model.StatusRequested,
		RequestedAt: at,
		UpdatedAt:   at,
		Version:     1,
	}
}

func TestMemoryRepository_CreateRejectsSecondOpenRequest(t *testing.T) {
	repo := NewMemoryReturnRepository()
	ctx := context.Background()
	orderID, userID := uuid.New(), uuid.New()
	now := time.Now().UTC()

	first := newRequest(orderID, userID, now)
	require.NoError(t, repo.Create(ctx, first))
	assert.ErrorIs(t, repo.Create(ctx, newRequest(orderID, userID, now.Add(time.Second))), model.ErrOpenRequestExists)

	// Once the first request is terminal a new one is accepted
	first.Apply(model.StatusCancelled, now.Add(time.Second), model.TransitionDetails{})
	require.NoError(t, repo.UpdateStatus(ctx, first, 1, nil))
	assert.NoError(t, repo.Create(ctx, newRequest(orderID, userID, now.Add(2*time.Second))))
}

func TestMemoryRepository_UpdateStatusChecksVersion(t *testing.T) {
	repo := NewMemoryReturnRepository()
	ctx := context.Background()
	req := newRequest(uuid.New(), uuid.New(), time.Now().UTC())
	require.NoError(t, repo.Create(ctx, req))

	stale := req.Clone()

	req.Apply(model.StatusApproved, time.Now().UTC(), model.TransitionDetails{})
	history := &model.StatusHistory{ID: uuid.New(), ReturnRequestID: req.ID, FromStatus: model.StatusRequested, ToStatus: model.StatusApproved}
	require.NoError(t, repo.UpdateStatus(ctx, req, 1, history))
	assert.Equal(t, 2, req.Version)

	stale.Apply(model.StatusCancelled, time.Now().UTC(), model.TransitionDetails{})
	assert.ErrorIs(t, repo.UpdateStatus(ctx, stale, 1, nil), model.ErrVersionMismatch)

	stored, err := repo.GetByID(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusApproved, stored.Status)

	hist, err := repo.ListHistory(ctx, req.ID)
	require.NoError(t, err)
	assert.Len(t, hist, 1)
}

func TestMemoryRepository_ListOrderAndSnapshot(t *testing.T) {
	repo := NewMemoryReturnRepository()
	ctx := context.Background()
	userID := uuid.New()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	var ids []uuid.UUID
	for i := 0; i < 5; i++ {
		req := newRequest(uuid.New(), userID, base.Add(time.Duration(i)*time.Minute))
		require.NoError(t, repo.Create(ctx, req))
		ids = append(ids, req.ID)
	}
	// Different user, excluded by filter
	require.NoError(t, repo.Create(ctx, newRequest(uuid.New(), uuid.New(), base)))

	asOf := base.Add(3 * time.Minute)
	filter := ListFilter{UserID: &userID, AsOf: &asOf}

	total, err := repo.Count(ctx, filter)
	require.NoError(t, err)
	assert.Equal(t, 4, total)

	page, err := repo.List(ctx, filter, 0, 2)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, ids[3], page[0].ID)
	assert.Equal(t, ids[2], page[1].ID)

	beyond, err := repo.List(ctx, filter, 10, 2)
	require.NoError(t, err)
	assert.Empty(t, beyond)
}
