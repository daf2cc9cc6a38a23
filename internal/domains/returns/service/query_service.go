package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"returns-backend/internal/domains/returns/model"
	"returns-backend/internal/domains/returns/repository"
	"returns-backend/internal/shared/apperr"
	"returns-backend/internal/shared/pagination"
	"returns-backend/internal/shared/utils"
)

// =====================================================
// QUERY SERVICE (read only)
// =====================================================
type QueryService interface {
	ListForUser(ctx context.Context, userID uuid.UUID, req model.ListReturnsRequest) (*model.ListReturnsResponse, error)
	ListAll(ctx context.Context, req model.ListReturnsRequest) (*model.ListReturnsResponse, error)
}

type queryService struct {
	repo            repository.ReturnRepository
	clock           utils.Clock
	defaultPageSize int
	maxPageSize     int
}

func NewQueryService(repo repository.ReturnRepository, clock utils.Clock, defaultPageSize, maxPageSize int) QueryService {
	return &queryService{
		repo:            repo,
		clock:           clock,
		defaultPageSize: defaultPageSize,
		maxPageSize:     maxPageSize,
	}
}

func (s *queryService) ListForUser(ctx context.Context, userID uuid.UUID, req model.ListReturnsRequest) (*model.ListReturnsResponse, error) {
	return s.list(ctx, &userID, req)
}

func (s *queryService) ListAll(ctx context.Context, req model.ListReturnsRequest) (*model.ListReturnsResponse, error) {
	return s.list(ctx, nil, req)
}

// list pins the result set to AsOf: rows created after the snapshot are
// invisible, so page N stays page N while new requests arrive.
func (s *queryService) list(ctx context.Context, userID *uuid.UUID, req model.ListReturnsRequest) (*model.ListReturnsResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, model.NewReturnError(model.ErrCodeInvalidRequest, "invalid list request", errors.Join(apperr.ErrValidation, err))
	}

	asOf := s.clock.Now()
	if req.AsOf != nil && !req.AsOf.IsZero() {
		asOf = req.AsOf.UTC().Truncate(time.Microsecond)
	}

	filter := repository.ListFilter{UserID: userID, AsOf: &asOf}
	if req.Status != "" {
		status := model.Status(req.Status)
		filter.Status = &status
	}

	params := pagination.NewParams(req.Page, req.PageSize, s.defaultPageSize, s.maxPageSize)

	total, err := s.repo.Count(ctx, filter)
	if err != nil {
		return nil, err
	}

	if !params.InRange(total) {
		return &model.ListReturnsResponse{
			Page: pagination.Empty[model.ReturnRequest](params, total),
			AsOf: asOf,
		}, nil
	}

	items, err := s.repo.List(ctx, filter, params.Offset(), params.Limit())
	if err != nil {
		return nil, err
	}

	return &model.ListReturnsResponse{
		Page: pagination.Build(params, items, total),
		AsOf: asOf,
	}, nil
}
