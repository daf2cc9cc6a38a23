package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"returns-backend/internal/domains/returns/model"
)

// memoryReturnRepository backs STORAGE_DRIVER=memory and the service tests.
// The single mutex gives UpdateStatus the same compare-and-set semantics as
// the versioned UPDATE in Postgres.
type memoryReturnRepository struct {
	mu       sync.RWMutex
	requests map[uuid.UUID]*model.ReturnRequest
	history  map[uuid.UUID][]model.StatusHistory
}

func NewMemoryReturnRepository() ReturnRepository {
	return &memoryReturnRepository{
		requests: make(map[uuid.UUID]*model.ReturnRequest),
		history:  make(map[uuid.UUID][]model.StatusHistory),
	}
}

func (r *memoryReturnRepository) Create(ctx context.Context, req *model.ReturnRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.requests {
		if existing.OrderID == req.OrderID && existing.Status.IsOpen() {
			return model.ErrOpenRequestExists
		}
	}

	r.requests[req.ID] = req.Clone()
	return nil
}

func (r *memoryReturnRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.ReturnRequest, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	req, ok := r.requests[id]
	if !ok {
		return nil, model.ErrReturnNotFound
	}
	return req.Clone(), nil
}

func (r *memoryReturnRepository) UpdateStatus(ctx context.Context, req *model.ReturnRequest, expectedVersion int, history *model.StatusHistory) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.requests[req.ID]
	if !ok || stored.Version != expectedVersion {
		return model.ErrVersionMismatch
	}

	req.Version = expectedVersion + 1
	r.requests[req.ID] = req.Clone()
	if history != nil {
		r.history[req.ID] = append(r.history[req.ID], *history)
	}
	return nil
}

func (r *memoryReturnRepository) filtered(filter ListFilter) []*model.ReturnRequest {
	var out []*model.ReturnRequest
	for _, req := range r.requests {
		if filter.UserID != nil && req.UserID != *filter.UserID {
			continue
		}
		if filter.Status != nil && req.Status != *filter.Status {
			continue
		}
		if filter.AsOf != nil && req.RequestedAt.After(*filter.AsOf) {
			continue
		}
		out = append(out, req)
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].RequestedAt.Equal(out[j].RequestedAt) {
			return out[i].RequestedAt.After(out[j].RequestedAt)
		}
		return out[i].ID.String() > out[j].ID.String()
	})
	return out
}

func (r *memoryReturnRepository) List(ctx context.Context, filter ListFilter, offset, limit int) ([]model.ReturnRequest, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	all := r.filtered(filter)
	if offset >= len(all) {
		return nil, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}

	requests := make([]model.ReturnRequest, 0, end-offset)
	for _, req := range all[offset:end] {
		requests = append(requests, *req.Clone())
	}
	return requests, nil
}

func (r *memoryReturnRepository) Count(ctx context.Context, filter ListFilter) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.filtered(filter)), nil
}

func (r *memoryReturnRepository) ListHistory(ctx context.Context, id uuid.UUID) ([]model.StatusHistory, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return append([]model.StatusHistory(nil), r.history[id]...), nil
}
