package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"returns-backend/internal/domains/order/model"
	"returns-backend/internal/domains/order/repository"
	"returns-backend/internal/shared/apperr"
	"returns-backend/internal/shared/pagination"
	"returns-backend/internal/shared/utils"
)

// =====================================================
// DELIVERY SERVICE IMPLEMENTATION
// =====================================================
type deliveryService struct {
	orderRepo    repository.OrderRepository
	clock        utils.Clock
	returnWindow time.Duration
}

func NewDeliveryService(orderRepo repository.OrderRepository, clock utils.Clock, windowDays int) DeliveryService {
	return &deliveryService{
		orderRepo:    orderRepo,
		clock:        clock,
		returnWindow: time.Duration(windowDays) * 24 * time.Hour,
	}
}

func (s *deliveryService) IsReturnEligible(ctx context.Context, orderID, userID uuid.UUID) (bool, error) {
	order, err := s.orderRepo.GetOrderByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return false, nil
		}
		return false, err
	}

	if !order.IsOwnedBy(userID) {
		return false, nil
	}

	return order.IsWithinReturnWindow(s.clock.Now(), s.returnWindow), nil
}

func (s *deliveryService) GetOrderItems(ctx context.Context, orderID uuid.UUID) ([]model.OrderItem, error) {
	return s.orderRepo.GetOrderItemsByOrderID(ctx, orderID)
}

// =====================================================
// CANCELLED ORDER SERVICE IMPLEMENTATION
// =====================================================
type cancelledOrderService struct {
	orderRepo       repository.OrderRepository
	clock           utils.Clock
	defaultPageSize int
	maxPageSize     int
}

func NewCancelledOrderService(orderRepo repository.OrderRepository, clock utils.Clock, defaultPageSize, maxPageSize int) CancelledOrderService {
	return &cancelledOrderService{
		orderRepo:       orderRepo,
		clock:           clock,
		defaultPageSize: defaultPageSize,
		maxPageSize:     maxPageSize,
	}
}

func (s *cancelledOrderService) RecordCancellation(ctx context.Context, orderID uuid.UUID) (*model.RefundableOrder, error) {
	if existing, err := s.orderRepo.GetRefundableOrder(ctx, orderID); err == nil {
		return existing, nil
	} else if !errors.Is(err, apperr.ErrNotFound) {
		return nil, err
	}

	order, err := s.orderRepo.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status != model.OrderStatusCancelled || order.CancelledAt == nil {
		return nil, model.NewOrderError(model.ErrCodeInvalidRefundState, "order is not cancelled", apperr.ErrValidation)
	}

	items, err := s.orderRepo.GetOrderItemsByOrderID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	refundable := &model.RefundableOrder{
		OrderID:      order.ID,
		UserID:       order.UserID,
		Items:        items,
		RefundStatus: model.RefundStatusNone,
		CancelledAt:  order.CancelledAt.UTC(),
		CreatedAt:    s.clock.Now(),
		Version:      1,
	}
	if err := s.orderRepo.CreateRefundableOrder(ctx, refundable); err != nil {
		return nil, err
	}

	log.Info().
		Str("order_id", orderID.String()).
		Str("amount", refundable.Amount().StringFixed(2)).
		Msg("cancelled order recorded for refund")

	// Re-read: a concurrent recorder may have won the insert
	return s.orderRepo.GetRefundableOrder(ctx, orderID)
}

func (s *cancelledOrderService) GetForUser(ctx context.Context, orderID, userID uuid.UUID) (*model.RefundableOrder, error) {
	order, err := s.orderRepo.GetRefundableOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.UserID == nil || *order.UserID != userID {
		return nil, model.ErrOrderNotFound
	}
	return order, nil
}

func (s *cancelledOrderService) ListForUser(ctx context.Context, userID uuid.UUID, req model.ListCancelledOrdersRequest) (*model.ListCancelledOrdersResponse, error) {
	return s.list(ctx, repository.RefundableFilter{UserID: &userID}, req)
}

func (s *cancelledOrderService) ListAll(ctx context.Context, req model.ListCancelledOrdersRequest) (*model.ListCancelledOrdersResponse, error) {
	return s.list(ctx, repository.RefundableFilter{}, req)
}

// list pins the result set to AsOf, keyed on when the cancellation was
// recorded rather than when the order was cancelled upstream: a late
// recording of an old cancellation would otherwise land inside pages the
// caller already read.
func (s *cancelledOrderService) list(ctx context.Context, filter repository.RefundableFilter, req model.ListCancelledOrdersRequest) (*model.ListCancelledOrdersResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, model.NewOrderError(model.ErrCodeInvalidRefundState, "invalid list request", errors.Join(apperr.ErrValidation, err))
	}
	if req.RefundStatus != "" {
		status := model.RefundStatus(req.RefundStatus)
		filter.RefundStatus = &status
	}

	asOf := s.clock.Now()
	if req.AsOf != nil && !req.AsOf.IsZero() {
		asOf = req.AsOf.UTC().Truncate(time.Microsecond)
	}
	filter.AsOf = &asOf

	params := pagination.NewParams(req.Page, req.PageSize, s.defaultPageSize, s.maxPageSize)

	total, err := s.orderRepo.CountRefundableOrders(ctx, filter)
	if err != nil {
		return nil, err
	}
	if !params.InRange(total) {
		return &model.ListCancelledOrdersResponse{
			Page: pagination.Empty[model.RefundableOrder](params, total),
			AsOf: asOf,
		}, nil
	}

	orders, err := s.orderRepo.ListRefundableOrders(ctx, filter, params.Offset(), params.Limit())
	if err != nil {
		return nil, err
	}

	return &model.ListCancelledOrdersResponse{
		Page: pagination.Build(params, orders, total),
		AsOf: asOf,
	}, nil
}
