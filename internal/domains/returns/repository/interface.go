package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"returns-backend/internal/domains/returns/model"
)

// ListFilter narrows return request listings. Nil fields match all.
// AsOf excludes requests created after the snapshot instant.
type ListFilter struct {
	UserID *uuid.UUID
	Status *model.Status
	AsOf   *time.Time
}

// =====================================================
// RETURN REQUEST REPOSITORY INTERFACE
// =====================================================
type ReturnRepository interface {
	// Create fails with model.ErrOpenRequestExists when the order already
	// has a non-terminal request.
	Create(ctx context.Context, req *model.ReturnRequest) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.ReturnRequest, error)

	// UpdateStatus persists req only if the stored version equals
	// expectedVersion, and records history in the same unit of work.
	// On success req.Version is expectedVersion+1.
	UpdateStatus(ctx context.Context, req *model.ReturnRequest, expectedVersion int, history *model.StatusHistory) error

	// List is ordered by requested_at DESC, id DESC
	List(ctx context.Context, filter ListFilter, offset, limit int) ([]model.ReturnRequest, error)
	Count(ctx context.Context, filter ListFilter) (int, error)

	ListHistory(ctx context.Context, id uuid.UUID) ([]model.StatusHistory, error)
}
