package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	notificationModel "returns-backend/internal/domains/notification/model"
	orderModel "returns-backend/internal/domains/order/model"
	"returns-backend/internal/domains/returns/model"
	"returns-backend/internal/domains/returns/repository"
	"returns-backend/internal/infrastructure/metrics"
	"returns-backend/internal/shared/apperr"
	"returns-backend/internal/shared/utils"
)

// =====================================================
// RETURN SERVICE IMPLEMENTATION
// =====================================================
type returnService struct {
	repo     repository.ReturnRepository
	orders   OrderDelivery
	notifier Notifier
	events   EventPublisher
	clock    utils.Clock
	metrics  *metrics.Metrics
}

// NewReturnService: events and m may be nil
func NewReturnService(
	repo repository.ReturnRepository,
	orders OrderDelivery,
	notifier Notifier,
	events EventPublisher,
	clock utils.Clock,
	m *metrics.Metrics,
) ReturnService {
	return &returnService{
		repo:     repo,
		orders:   orders,
		notifier: notifier,
		events:   events,
		clock:    clock,
		metrics:  m,
	}
}

// =====================================================
// CREATE
// =====================================================
func (s *returnService) Create(ctx context.Context, userID uuid.UUID, req model.CreateReturnRequest) (*model.ReturnRequest, error) {
	// Step 1: shape
	if len(req.Items) == 0 {
		return nil, model.ErrEmptyItems
	}
	if err := req.Validate(); err != nil {
		return nil, model.NewReturnError(model.ErrCodeInvalidRequest, "invalid return request", errors.Join(apperr.ErrValidation, err))
	}

	orderID := utils.ParseStringToUUID(req.OrderID)

	// Step 2: eligibility (ownership, delivered, inside the window)
	eligible, err := s.orders.IsReturnEligible(ctx, orderID, userID)
	if err != nil {
		return nil, fmt.Errorf("check return eligibility: %w", err)
	}
	if !eligible {
		return nil, model.NewReturnError(model.ErrCodeOrderNotEligible, "order cannot be returned", model.ErrOrderNotEligible)
	}

	// Step 3: items must be on the order; prices come from the order
	orderItems, err := s.orders.GetOrderItems(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("load order items: %w", err)
	}
	items, err := snapshotItems(req.Items, orderItems)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	rr := &model.ReturnRequest{
		ID:            uuid.New(),
		OrderID:       orderID,
		UserID:        userID,
		Items:         items,
		Reason:        req.Reason,
		Comment:       strings.TrimSpace(req.Comment),
		ImageKey:      req.ImageKey,
		PickupAddress: req.PickupAddress.ToSnapshot(),
		Status:        model.StatusRequested,
		RequestedAt:   now,
		UpdatedAt:     now,
		Version:       1,
	}

	if err := s.repo.Create(ctx, rr); err != nil {
		if errors.Is(err, model.ErrOpenRequestExists) {
			return nil, model.NewReturnError(model.ErrCodeOpenRequestExists, "order already has an open return request", err)
		}
		return nil, err
	}

	log.Info().
		Str("return_request_id", rr.ID.String()).
		Str("order_id", orderID.String()).
		Str("user_id", userID.String()).
		Int("items", len(items)).
		Msg("Return request created")

	s.publish(ctx, rr, "", model.RoleOwner)
	return rr, nil
}

// snapshotItems merges duplicate product lines and checks them against the
// ordered quantities.
func snapshotItems(requested []model.CreateReturnItem, ordered []orderModel.OrderItem) ([]model.ReturnItem, error) {
	type line struct {
		quantity int
		item     orderModel.OrderItem
	}
	onOrder := make(map[uuid.UUID]*line, len(ordered))
	for _, oi := range ordered {
		if l, ok := onOrder[oi.ProductID]; ok {
			l.quantity += oi.Quantity
			continue
		}
		onOrder[oi.ProductID] = &line{quantity: oi.Quantity, item: oi}
	}

	wanted := make(map[uuid.UUID]int, len(requested))
	var order []uuid.UUID
	for _, ri := range requested {
		pid := utils.ParseStringToUUID(ri.ProductID)
		if _, ok := onOrder[pid]; !ok {
			return nil, model.NewReturnError(model.ErrCodeItemNotOnOrder,
				fmt.Sprintf("product %s is not on the order", ri.ProductID), model.ErrItemNotOnOrder)
		}
		if _, seen := wanted[pid]; !seen {
			order = append(order, pid)
		}
		wanted[pid] += ri.Quantity
	}

	items := make([]model.ReturnItem, 0, len(order))
	for _, pid := range order {
		l := onOrder[pid]
		if wanted[pid] > l.quantity {
			return nil, model.NewReturnError(model.ErrCodeItemNotOnOrder,
				fmt.Sprintf("product %s: requested %d, ordered %d", pid, wanted[pid], l.quantity), model.ErrQuantityExceeded)
		}
		items = append(items, model.ReturnItem{
			ProductID: pid,
			Quantity:  wanted[pid],
			UnitPrice: l.item.UnitPrice,
		})
	}
	return items, nil
}

// =====================================================
// TRANSITION
// =====================================================
func (s *returnService) Transition(ctx context.Context, cmd TransitionCommand) (*model.ReturnRequest, error) {
	current, err := s.repo.GetByID(ctx, cmd.RequestID)
	if err != nil {
		return nil, err
	}

	// Owners only see their own requests
	if cmd.Actor.Role == model.RoleOwner && current.UserID != cmd.Actor.UserID {
		return nil, model.ErrReturnNotFound
	}

	if cmd.ExpectedVersion != nil && *cmd.ExpectedVersion != current.Version {
		return nil, model.ErrVersionMismatch
	}

	if err := model.CheckTransition(current.Status, cmd.Target, cmd.Actor.Role); err != nil {
		return nil, err
	}

	from := current.Status
	expected := current.Version
	now := s.clock.Now()

	updated := current.Clone()
	updated.Apply(cmd.Target, now, cmd.Details)

	history := newHistory(updated.ID, from, cmd.Target, cmd.Actor, cmd.Details.Note, now)
	if err := s.repo.UpdateStatus(ctx, updated, expected, history); err != nil {
		if errors.Is(err, apperr.ErrConcurrentModification) {
			log.Info().
				Str("return_request_id", updated.ID.String()).
				Str("target", string(cmd.Target)).
				Msg("Lost transition race")
		}
		return nil, err
	}

	s.metrics.ObserveTransition(string(from), string(cmd.Target))

	log.Info().
		Str("return_request_id", updated.ID.String()).
		Str("from", string(from)).
		Str("to", string(cmd.Target)).
		Str("actor", string(cmd.Actor.Role)).
		Int("version", updated.Version).
		Msg("Return request transitioned")

	s.notify(ctx, updated)
	s.publish(ctx, updated, from, cmd.Actor.Role)

	return updated, nil
}

func newHistory(id uuid.UUID, from, to model.Status, actor model.Actor, note string, at time.Time) *model.StatusHistory {
	h := &model.StatusHistory{
		ID:              uuid.New(),
		ReturnRequestID: id,
		FromStatus:      from,
		ToStatus:        to,
		ActorRole:       actor.Role,
		CreatedAt:       at,
	}
	if actor.UserID != uuid.Nil {
		actorID := actor.UserID
		h.ActorID = &actorID
	}
	if note != "" {
		h.Note = &note
	}
	return h
}

// =====================================================
// CUSTOMER ACTIONS
// =====================================================
func (s *returnService) Cancel(ctx context.Context, id, userID uuid.UUID) (*model.ReturnRequest, error) {
	return s.Transition(ctx, TransitionCommand{
		RequestID: id,
		Actor:     model.Actor{Role: model.RoleOwner, UserID: userID},
		Target:    model.StatusCancelled,
	})
}

func (s *returnService) GetForUser(ctx context.Context, id, userID uuid.UUID) (*model.ReturnRequest, error) {
	rr, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if rr.UserID != userID {
		return nil, model.ErrReturnNotFound
	}
	return rr, nil
}

// =====================================================
// ADMIN ACTIONS
// =====================================================
func (s *returnService) Approve(ctx context.Context, id, adminID uuid.UUID) (*model.ReturnRequest, error) {
	return s.Transition(ctx, TransitionCommand{
		RequestID: id,
		Actor:     model.Actor{Role: model.RoleAdmin, UserID: adminID},
		Target:    model.StatusApproved,
	})
}

func (s *returnService) Reject(ctx context.Context, id, adminID uuid.UUID, req model.RejectReturnRequest) (*model.ReturnRequest, error) {
	if err := req.Validate(); err != nil {
		return nil, model.NewReturnError(model.ErrCodeInvalidRequest, "invalid reject request", errors.Join(apperr.ErrValidation, err))
	}
	return s.Transition(ctx, TransitionCommand{
		RequestID: id,
		Actor:     model.Actor{Role: model.RoleAdmin, UserID: adminID},
		Target:    model.StatusRejected,
		Details:   model.TransitionDetails{Note: strings.TrimSpace(req.Reason)},
	})
}

func (s *returnService) MarkPicked(ctx context.Context, id, adminID uuid.UUID, req model.PickReturnRequest) (*model.ReturnRequest, error) {
	if err := req.Validate(); err != nil {
		return nil, model.NewReturnError(model.ErrCodeInvalidRequest, "invalid pickup request", errors.Join(apperr.ErrValidation, err))
	}

	var details model.TransitionDetails
	if req.PickupAgentID != "" {
		agentID := utils.ParseStringToUUID(req.PickupAgentID)
		details.PickupAgentID = &agentID
	}

	return s.Transition(ctx, TransitionCommand{
		RequestID: id,
		Actor:     model.Actor{Role: model.RoleAdmin, UserID: adminID},
		Target:    model.StatusPicked,
		Details:   details,
	})
}

func (s *returnService) GetByID(ctx context.Context, id uuid.UUID) (*model.ReturnRequest, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *returnService) History(ctx context.Context, id uuid.UUID) ([]model.StatusHistory, error) {
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return nil, err
	}
	return s.repo.ListHistory(ctx, id)
}

// =====================================================
// REFUND RETRY BOOKKEEPING
// =====================================================
func (s *returnService) RecordRetryFailure(ctx context.Context, id uuid.UUID, expectedVersion int, reason string) (*model.ReturnRequest, error) {
	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if current.Version != expectedVersion {
		return nil, model.ErrVersionMismatch
	}
	if current.Status != model.StatusRefundFailed {
		return nil, &model.InvalidTransitionError{From: current.Status, To: model.StatusRefundFailed, Role: model.RoleSystem}
	}

	now := s.clock.Now()
	updated := current.Clone()
	updated.RefundFailureReason = &reason
	updated.UpdatedAt = now

	history := newHistory(id, model.StatusRefundFailed, model.StatusRefundFailed, model.SystemActor(), reason, now)
	if err := s.repo.UpdateStatus(ctx, updated, expectedVersion, history); err != nil {
		return nil, err
	}

	log.Warn().
		Str("return_request_id", id.String()).
		Str("reason", reason).
		Msg("Refund retry declined")
	return updated, nil
}

// =====================================================
// SIDE EFFECTS
// =====================================================

// notify never fails the transition that triggered it
func (s *returnService) notify(ctx context.Context, rr *model.ReturnRequest) {
	if s.notifier == nil {
		return
	}

	title, message := notificationText(rr)
	_, err := s.notifier.Notify(ctx, notificationModel.NotifyInput{
		UserID:  rr.UserID,
		Type:    notificationModel.TypeReturnRequest,
		Title:   title,
		Message: message,
		Payload: map[string]interface{}{
			"type":              notificationModel.TypeReturnRequest,
			"return_request_id": rr.ID.String(),
			"order_id":          rr.OrderID.String(),
			"status":            string(rr.Status),
		},
	})
	if err != nil {
		log.Error().Err(err).
			Str("return_request_id", rr.ID.String()).
			Str("status", string(rr.Status)).
			Msg("Failed to notify user of return status change")
	}
}

func notificationText(rr *model.ReturnRequest) (string, string) {
	switch rr.Status {
	case model.StatusApproved:
		amount := rr.ItemsTotal()
		if rr.RefundAmount != nil {
			amount = *rr.RefundAmount
		}
		return "Return request approved",
			fmt.Sprintf("Your return request has been approved. Refund amount: %s.", amount.StringFixed(2))
	case model.StatusRejected:
		msg := "Your return request has been rejected."
		if rr.RejectionReason != nil {
			msg += " Reason: " + *rr.RejectionReason
		}
		return "Return request rejected", msg
	case model.StatusCancelled:
		return "Return request cancelled", "Your return request has been cancelled."
	case model.StatusPicked:
		return "Return items picked up", "We have collected your items. Your refund is being processed."
	case model.StatusRefunded:
		amount := "your refund"
		if rr.RefundAmount != nil {
			amount = rr.RefundAmount.StringFixed(2)
		}
		return "Refund completed", fmt.Sprintf("We have refunded %s to your original payment method.", amount)
	case model.StatusRefundFailed:
		msg := "We could not process your refund. We will try again."
		if rr.RefundFailureReason != nil {
			msg = fmt.Sprintf("We could not process your refund (%s). We will try again.", *rr.RefundFailureReason)
		}
		return "Refund failed", msg
	default:
		return "Return request updated", fmt.Sprintf("Your return request is now %s.", rr.Status)
	}
}

func (s *returnService) publish(ctx context.Context, rr *model.ReturnRequest, from model.Status, role model.Role) {
	if s.events == nil {
		return
	}

	event := model.LifecycleEvent{
		EventID:         uuid.NewString(),
		ReturnRequestID: rr.ID.String(),
		OrderID:         rr.OrderID.String(),
		UserID:          rr.UserID.String(),
		From:            from,
		To:              rr.Status,
		ActorRole:       role,
		Version:         rr.Version,
		OccurredAt:      rr.UpdatedAt,
	}
	if err := s.events.Publish(ctx, rr.ID.String(), event); err != nil {
		log.Warn().Err(err).Str("return_request_id", rr.ID.String()).Msg("Failed to publish lifecycle event")
	}
}
