package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	notificationModel "returns-backend/internal/domains/notification/model"
	orderModel "returns-backend/internal/domains/order/model"
	orderRepository "returns-backend/internal/domains/order/repository"
	"returns-backend/internal/domains/refund/gateway"
	"returns-backend/internal/domains/refund/model"
	returnModel "returns-backend/internal/domains/returns/model"
	returnService "returns-backend/internal/domains/returns/service"
	"returns-backend/internal/infrastructure/metrics"
	"returns-backend/internal/shared/apperr"
	"returns-backend/internal/shared/utils"
)

const (
	DefaultTimeout = 15 * time.Second

	// revertTimeout bounds the compensating write after a timed-out call
	revertTimeout = 5 * time.Second

	ReasonInterrupted = "refund interrupted"
)

type orchestrator struct {
	returns  returnService.ReturnService
	orders   orderRepository.OrderRepository
	gateway  gateway.PaymentGateway
	notifier Notifier
	currency string
	timeout  time.Duration
	clock    utils.Clock
	metrics  *metrics.Metrics
}

type Options struct {
	Currency string
	Timeout  time.Duration
	Clock    utils.Clock
	Metrics  *metrics.Metrics
}

func NewOrchestrator(
	returns returnService.ReturnService,
	orders orderRepository.OrderRepository,
	gw gateway.PaymentGateway,
	notifier Notifier,
	opts Options,
) Orchestrator {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Clock == nil {
		opts.Clock = utils.NewMonotonicClock(nil)
	}
	if opts.Currency == "" {
		opts.Currency = "usd"
	}
	return &orchestrator{
		returns:  returns,
		orders:   orders,
		gateway:  gw,
		notifier: notifier,
		currency: opts.Currency,
		timeout:  opts.Timeout,
		clock:    opts.Clock,
		metrics:  opts.Metrics,
	}
}

func (o *orchestrator) InitiateRefund(ctx context.Context, id uuid.UUID, kind model.Kind) (*model.RefundOutcome, error) {
	switch kind {
	case model.KindReturnRefund:
		return o.refundReturn(ctx, id)
	case model.KindCancelledOrderRefund:
		return o.refundCancelledOrder(ctx, id)
	default:
		return nil, model.ErrInvalidKind
	}
}

// =====================================================
// PROVIDER CALL
// =====================================================

// call runs the provider request under the refund timeout. The provider
// goroutine may outlive a timed-out call; its late reply is discarded.
func (o *orchestrator) call(ctx context.Context, cmd model.RefundCommand) (*model.RefundResult, time.Duration, error) {
	callCtx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	type reply struct {
		result *model.RefundResult
		err    error
	}
	done := make(chan reply, 1)
	start := time.Now()

	go func() {
		res, err := o.gateway.Refund(callCtx, cmd)
		done <- reply{result: res, err: err}
	}()

	select {
	case r := <-done:
		took := time.Since(start)
		if r.err == nil && r.result == nil {
			return nil, took, errors.New("empty response from payment provider")
		}
		return r.result, took, r.err
	case <-callCtx.Done():
		return nil, time.Since(start), callCtx.Err()
	}
}

// interrupted reports whether err means "no answer", as opposed to a
// provider-side failure. An interrupted refund may still complete at the
// provider, so nothing that feeds the idempotency key may change.
func interrupted(err error) bool {
	return errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, model.ErrProviderInFlight)
}

// =====================================================
// RETURN REQUEST REFUND
// =====================================================
func (o *orchestrator) refundReturn(ctx context.Context, id uuid.UUID) (*model.RefundOutcome, error) {
	rr, err := o.returns.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if rr.Status == returnModel.StatusRefunded {
		o.metrics.ObserveRefund(string(model.KindReturnRefund), "already_refunded", 0)
		return returnOutcome(rr, true), model.ErrAlreadyRefunded
	}
	if rr.Status != returnModel.StatusPicked && rr.Status != returnModel.StatusRefundFailed {
		return nil, &returnModel.InvalidTransitionError{
			From: rr.Status,
			To:   returnModel.StatusRefunded,
			Role: returnModel.RoleSystem,
		}
	}
	if rr.RefundAmount == nil {
		return nil, model.ErrMissingAmount
	}

	cmd := model.RefundCommand{
		ReferenceID:    rr.ID.String(),
		OrderID:        rr.OrderID,
		Amount:         *rr.RefundAmount,
		Currency:       o.currency,
		IdempotencyKey: fmt.Sprintf("return:%s:v%d", rr.ID, rr.Version),
	}

	result, took, err := o.call(ctx, cmd)
	if err != nil {
		perr := &model.ProviderError{Kind: model.KindReturnRefund, ReferenceID: rr.ID, Err: err}
		if interrupted(err) {
			o.metrics.ObserveRefund(string(model.KindReturnRefund), "timeout", took)
			log.Warn().Err(err).
				Str("return_request_id", rr.ID.String()).
				Dur("took", took).
				Msg("Refund call interrupted, status left unchanged")
			return nil, perr
		}

		o.metrics.ObserveRefund(string(model.KindReturnRefund), "error", took)
		failed, ferr := o.recordReturnFailure(ctx, rr, err.Error())
		if ferr != nil {
			return nil, errors.Join(perr, ferr)
		}
		return returnOutcome(failed, false), perr
	}

	if !result.Success {
		o.metrics.ObserveRefund(string(model.KindReturnRefund), "declined", took)
		failed, ferr := o.recordReturnFailure(ctx, rr, result.Reason)
		if ferr != nil {
			return nil, ferr
		}
		return returnOutcome(failed, false), nil
	}

	o.metrics.ObserveRefund(string(model.KindReturnRefund), "succeeded", took)

	expected := rr.Version
	refunded, err := o.returns.Transition(ctx, returnService.TransitionCommand{
		RequestID:       rr.ID,
		Actor:           returnModel.SystemActor(),
		Target:          returnModel.StatusRefunded,
		ExpectedVersion: &expected,
		Details:         returnModel.TransitionDetails{ProviderRefundID: result.ProviderRefundID},
	})
	if err != nil {
		if errors.Is(err, apperr.ErrConcurrentModification) {
			// Another invocation with the same idempotency key got there first
			if current, gerr := o.returns.GetByID(ctx, rr.ID); gerr == nil && current.Status == returnModel.StatusRefunded {
				return returnOutcome(current, true), model.ErrAlreadyRefunded
			}
		}
		log.Error().Err(err).
			Str("return_request_id", rr.ID.String()).
			Str("provider_refund_id", result.ProviderRefundID).
			Msg("Provider refunded but status update failed")
		return nil, err
	}

	log.Info().
		Str("return_request_id", rr.ID.String()).
		Str("provider_refund_id", result.ProviderRefundID).
		Str("amount", rr.RefundAmount.StringFixed(2)).
		Msg("Return refund succeeded")

	return returnOutcome(refunded, false), nil
}

func (o *orchestrator) recordReturnFailure(ctx context.Context, rr *returnModel.ReturnRequest, reason string) (*returnModel.ReturnRequest, error) {
	log.Warn().
		Str("return_request_id", rr.ID.String()).
		Str("status", string(rr.Status)).
		Str("reason", reason).
		Msg("Return refund failed")

	// A retry that fails again stays in RefundFailed with the new reason
	if rr.Status == returnModel.StatusRefundFailed {
		return o.returns.RecordRetryFailure(ctx, rr.ID, rr.Version, reason)
	}

	expected := rr.Version
	return o.returns.Transition(ctx, returnService.TransitionCommand{
		RequestID:       rr.ID,
		Actor:           returnModel.SystemActor(),
		Target:          returnModel.StatusRefundFailed,
		ExpectedVersion: &expected,
		Details:         returnModel.TransitionDetails{FailureReason: reason},
	})
}

func returnOutcome(rr *returnModel.ReturnRequest, already bool) *model.RefundOutcome {
	out := &model.RefundOutcome{
		Kind:            model.KindReturnRefund,
		ReferenceID:     rr.ID,
		Status:          string(rr.Status),
		Success:         rr.Status == returnModel.StatusRefunded,
		AlreadyRefunded: already,
	}
	if rr.RefundAmount != nil {
		out.Amount = *rr.RefundAmount
	}
	if rr.ProviderRefundID != nil {
		out.ProviderRefundID = *rr.ProviderRefundID
	}
	if rr.RefundFailureReason != nil {
		out.FailureReason = *rr.RefundFailureReason
	}
	return out
}

// =====================================================
// CANCELLED ORDER REFUND
// =====================================================
func (o *orchestrator) refundCancelledOrder(ctx context.Context, orderID uuid.UUID) (*model.RefundOutcome, error) {
	order, err := o.orders.GetRefundableOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	switch {
	case order.RefundStatus == orderModel.RefundStatusSucceeded:
		o.metrics.ObserveRefund(string(model.KindCancelledOrderRefund), "already_refunded", 0)
		return orderOutcome(order, true), model.ErrAlreadyRefunded
	case order.RefundStatus == orderModel.RefundStatusInitiated:
		return nil, orderModel.NewOrderError(orderModel.ErrCodeRefundInProgress, "refund already in progress", orderModel.ErrRefundInProgress)
	case !order.RefundStatus.CanInitiate():
		return nil, orderModel.NewOrderError(orderModel.ErrCodeInvalidRefundState,
			fmt.Sprintf("cannot refund order in refund status '%s'", order.RefundStatus), apperr.ErrInvalidTransition)
	}

	amount := order.Amount()
	if !amount.IsPositive() {
		return nil, model.ErrMissingAmount
	}

	// Step 1: claim None|Failed -> Initiated
	prior := order.RefundStatus
	priorVersion := order.Version
	now := o.clock.Now()

	claimed := order.Clone()
	claimed.RefundStatus = orderModel.RefundStatusInitiated
	claimed.RefundUpdatedAt = &now
	if err := o.orders.UpdateRefundState(ctx, claimed, priorVersion); err != nil {
		if errors.Is(err, apperr.ErrConcurrentModification) {
			return nil, orderModel.NewOrderError(orderModel.ErrCodeRefundInProgress, "refund already in progress", err)
		}
		return nil, err
	}

	// Step 2: provider call. The key is scoped by recorded failures, not the
	// version: releasing a timed-out claim bumps the version but must not
	// mint a new key while the first call may still land.
	cmd := model.RefundCommand{
		ReferenceID:    order.OrderID.String(),
		OrderID:        order.OrderID,
		Amount:         amount,
		Currency:       o.currency,
		IdempotencyKey: orderIdempotencyKey(order),
	}

	result, took, err := o.call(ctx, cmd)
	if err != nil {
		perr := &model.ProviderError{Kind: model.KindCancelledOrderRefund, ReferenceID: order.OrderID, Err: err}
		if interrupted(err) {
			o.metrics.ObserveRefund(string(model.KindCancelledOrderRefund), "timeout", took)
			o.revertClaim(ctx, claimed, prior)
			return nil, perr
		}

		o.metrics.ObserveRefund(string(model.KindCancelledOrderRefund), "error", took)
		failed, ferr := o.finishOrder(ctx, claimed, orderModel.RefundStatusFailed, "", err.Error())
		if ferr != nil {
			return nil, errors.Join(perr, ferr)
		}
		return orderOutcome(failed, false), perr
	}

	// Step 3: record
	if !result.Success {
		o.metrics.ObserveRefund(string(model.KindCancelledOrderRefund), "declined", took)
		failed, ferr := o.finishOrder(ctx, claimed, orderModel.RefundStatusFailed, "", result.Reason)
		if ferr != nil {
			return nil, ferr
		}
		return orderOutcome(failed, false), nil
	}

	o.metrics.ObserveRefund(string(model.KindCancelledOrderRefund), "succeeded", took)
	succeeded, err := o.finishOrder(ctx, claimed, orderModel.RefundStatusSucceeded, result.ProviderRefundID, "")
	if err != nil {
		log.Error().Err(err).
			Str("order_id", order.OrderID.String()).
			Str("provider_refund_id", result.ProviderRefundID).
			Msg("Provider refunded but order refund state update failed")
		return nil, err
	}
	return orderOutcome(succeeded, false), nil
}

// finishOrder moves a claimed order out of Initiated and notifies the owner
func (o *orchestrator) finishOrder(ctx context.Context, claimed *orderModel.RefundableOrder, status orderModel.RefundStatus, reference, reason string) (*orderModel.RefundableOrder, error) {
	now := o.clock.Now()
	next := claimed.Clone()
	next.RefundStatus = status
	next.RefundUpdatedAt = &now
	next.RefundFailureReason = nil
	if reference != "" {
		next.RefundReference = &reference
	}
	if status == orderModel.RefundStatusFailed {
		next.RefundFailureReason = &reason
		next.RefundAttempts++
	}

	if err := o.orders.UpdateRefundState(ctx, next, claimed.Version); err != nil {
		return nil, err
	}

	log.Info().
		Str("order_id", next.OrderID.String()).
		Str("refund_status", string(status)).
		Str("reason", reason).
		Msg("Cancelled order refund recorded")

	o.notifyOrder(ctx, next)
	return next, nil
}

// revertClaim puts a timed-out order back to the status it had before the
// claim. It runs on a detached context since ctx may be the one that expired.
func (o *orchestrator) revertClaim(ctx context.Context, claimed *orderModel.RefundableOrder, prior orderModel.RefundStatus) {
	revertCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), revertTimeout)
	defer cancel()

	now := o.clock.Now()
	restored := claimed.Clone()
	restored.RefundStatus = prior
	restored.RefundUpdatedAt = &now

	if err := o.orders.UpdateRefundState(revertCtx, restored, claimed.Version); err != nil {
		// Left Initiated; the stale-refund job releases it
		log.Error().Err(err).
			Str("order_id", claimed.OrderID.String()).
			Msg("Failed to release refund claim after timeout")
		return
	}

	log.Warn().
		Str("order_id", claimed.OrderID.String()).
		Str("restored", string(prior)).
		Msg("Refund call interrupted, claim released")
}

func (o *orchestrator) notifyOrder(ctx context.Context, order *orderModel.RefundableOrder) {
	if o.notifier == nil || order.UserID == nil {
		return
	}

	title := "Order refund completed"
	message := fmt.Sprintf("We have refunded %s for your cancelled order.", order.Amount().StringFixed(2))
	if order.RefundStatus == orderModel.RefundStatusFailed {
		title = "Order refund failed"
		message = "We could not refund your cancelled order. We will try again."
		if order.RefundFailureReason != nil {
			message = fmt.Sprintf("We could not refund your cancelled order (%s). We will try again.", *order.RefundFailureReason)
		}
	}

	_, err := o.notifier.Notify(ctx, notificationModel.NotifyInput{
		UserID:  *order.UserID,
		Type:    notificationModel.TypeOrderRefund,
		Title:   title,
		Message: message,
		Payload: map[string]interface{}{
			"type":          notificationModel.TypeOrderRefund,
			"order_id":      order.OrderID.String(),
			"refund_status": string(order.RefundStatus),
		},
	})
	if err != nil {
		log.Error().Err(err).Str("order_id", order.OrderID.String()).Msg("Failed to notify user of order refund")
	}
}

func orderIdempotencyKey(order *orderModel.RefundableOrder) string {
	return fmt.Sprintf("order:%s:a%d", order.OrderID, order.RefundAttempts)
}

func orderOutcome(order *orderModel.RefundableOrder, already bool) *model.RefundOutcome {
	out := &model.RefundOutcome{
		Kind:            model.KindCancelledOrderRefund,
		ReferenceID:     order.OrderID,
		Status:          string(order.RefundStatus),
		Success:         order.RefundStatus == orderModel.RefundStatusSucceeded,
		AlreadyRefunded: already,
		Amount:          order.Amount(),
	}
	if order.RefundReference != nil {
		out.ProviderRefundID = *order.RefundReference
	}
	if order.RefundFailureReason != nil {
		out.FailureReason = *order.RefundFailureReason
	}
	return out
}

// =====================================================
// STALE CLAIMS
// =====================================================
func (o *orchestrator) ReleaseStale(ctx context.Context, staleAfter time.Duration) (int, error) {
	cutoff := o.clock.Now().Add(-staleAfter)
	stale, err := o.orders.ListStaleInitiated(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("list stale refunds: %w", err)
	}

	released := 0
	for i := range stale {
		order := &stale[i]
		now := o.clock.Now()
		// RefundAttempts stays: the abandoned call may still land, so the
		// next attempt has to reuse its key.
		next := order.Clone()
		next.RefundStatus = orderModel.RefundStatusFailed
		reason := ReasonInterrupted
		next.RefundFailureReason = &reason
		next.RefundUpdatedAt = &now

		if err := o.orders.UpdateRefundState(ctx, next, order.Version); err != nil {
			if errors.Is(err, apperr.ErrConcurrentModification) {
				continue
			}
			return released, fmt.Errorf("release refund claim for order %s: %w", order.OrderID, err)
		}
		released++

		log.Warn().
			Str("order_id", order.OrderID.String()).
			Time("claimed_at", *order.RefundUpdatedAt).
			Msg("Released stale refund claim")
	}
	return released, nil
}
