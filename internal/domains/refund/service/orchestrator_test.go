package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	notificationModel "returns-backend/internal/domains/notification/model"
	orderModel "returns-backend/internal/domains/order/model"
	orderRepository "returns-backend/internal/domains/order/repository"
	orderService "returns-backend/internal/domains/order/service"
	"returns-backend/internal/domains/refund/gateway/mock"
	"returns-backend/internal/domains/refund/model"
	returnModel "returns-backend/internal/domains/returns/model"
	returnRepository "returns-backend/internal/domains/returns/repository"
	returnService "returns-backend/internal/domains/returns/service"
	"returns-backend/internal/shared/apperr"
	"returns-backend/internal/shared/utils"
)

type recordingNotifier struct {
	mu   sync.Mutex
	sent []notificationModel.NotifyInput
}

func (n *recordingNotifier) Notify(ctx context.Context, in notificationModel.NotifyInput) (*notificationModel.Notification, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, in)
	return &notificationModel.Notification{ID: uuid.New(), UserID: in.UserID}, nil
}

func (n *recordingNotifier) withStatus(status string) []notificationModel.NotifyInput {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []notificationModel.NotifyInput
	for _, in := range n.sent {
		if in.Payload["status"] == status || in.Payload["refund_status"] == status {
			out = append(out, in)
		}
	}
	return out
}

type fixture struct {
	orders   orderRepository.MemoryOrderRepository
	returns  returnService.ReturnService
	gateway  *mock.Gateway
	notifier *recordingNotifier
	orch     Orchestrator
	userID   uuid.UUID
	adminID  uuid.UUID
}

func newFixture(t *testing.T, timeout time.Duration) *fixture {
	t.Helper()
	clock := utils.NewMonotonicClock(nil)

	f := &fixture{
		orders:   orderRepository.NewMemoryOrderRepository(),
		gateway:  mock.NewGateway(),
		notifier: &recordingNotifier{},
		userID:   uuid.New(),
		adminID:  uuid.New(),
	}
	delivery := orderService.NewDeliveryService(f.orders, clock, 14)
	f.returns = returnService.NewReturnService(returnRepository.NewMemoryReturnRepository(), delivery, f.notifier, nil, clock, nil)
	f.orch = NewOrchestrator(f.returns, f.orders, f.gateway, f.notifier, Options{
		Currency: "usd",
		Timeout:  timeout,
		Clock:    clock,
	})
	return f
}

// pickedRequest walks a 2x20.00 return to Picked
func (f *fixture) pickedRequest(t *testing.T) *returnModel.ReturnRequest {
	t.Helper()
	ctx := context.Background()

	orderID, productID := uuid.New(), uuid.New()
	delivered := time.Now().UTC().Add(-24 * time.Hour)
	f.orders.SeedOrder(&orderModel.Order{
		ID:          orderID,
		UserID:      &f.userID,
		Status:      orderModel.OrderStatusDelivered,
		DeliveredAt: &delivered,
	}, []orderModel.OrderItem{
		{ProductID: productID, Quantity: 2, UnitPrice: decimal.RequireFromString("20.00")},
	})

	rr, err := f.returns.Create(ctx, f.userID, returnModel.CreateReturnRequest{
		OrderID:       orderID.String(),
		Items:         []returnModel.CreateReturnItem{{ProductID: productID.String(), Quantity: 2}},
		Reason:        returnModel.ReasonWrongItem,
		PickupAddress: pickupAddress(),
	})
	require.NoError(t, err)

	_, err = f.returns.Approve(ctx, rr.ID, f.adminID)
	require.NoError(t, err)
	picked, err := f.returns.MarkPicked(ctx, rr.ID, f.adminID, returnModel.PickReturnRequest{})
	require.NoError(t, err)
	return picked
}

func pickupAddress() returnModel.PickupAddressInput {
	return returnModel.PickupAddressInput{
		Name:        "Sam Lee",
		Phone:       "+15550002222",
		AddressLine: "2 Side St",
		City:        "Shelbyville",
		PostalCode:  "54321",
		Country:     "US",
	}
}

func (f *fixture) cancelledOrder(t *testing.T) *orderModel.RefundableOrder {
	t.Helper()
	order := &orderModel.RefundableOrder{
		OrderID: uuid.New(),
		UserID:  &f.userID,
		Items: []orderModel.OrderItem{
			{ProductID: uuid.New(), Quantity: 1, UnitPrice: decimal.RequireFromString("35.50")},
		},
		RefundStatus: orderModel.RefundStatusNone,
		CancelledAt:  time.Now().UTC(),
		Version:      1,
	}
	require.NoError(t, f.orders.CreateRefundableOrder(context.Background(), order))
	return order
}

// =====================================================
// RETURN REFUNDS
// =====================================================
func TestRefundReturn_HappyPath(t *testing.T) {
	f := newFixture(t, time.Second)
	rr := f.pickedRequest(t)

	out, err := f.orch.InitiateRefund(context.Background(), rr.ID, model.KindReturnRefund)
	require.NoError(t, err)

	assert.True(t, out.Success)
	assert.Equal(t, string(returnModel.StatusRefunded), out.Status)
	assert.True(t, decimal.RequireFromString("40.00").Equal(out.Amount))
	assert.NotEmpty(t, out.ProviderRefundID)

	stored, err := f.returns.GetByID(context.Background(), rr.ID)
	require.NoError(t, err)
	assert.Equal(t, returnModel.StatusRefunded, stored.Status)
	require.NotNil(t, stored.RefundedAt)
	require.NotNil(t, stored.ProviderRefundID)
	assert.Equal(t, out.ProviderRefundID, *stored.ProviderRefundID)

	refunded := f.notifier.withStatus(string(returnModel.StatusRefunded))
	require.Len(t, refunded, 1)
	assert.Equal(t, f.userID, refunded[0].UserID)
	assert.Equal(t, rr.ID.String(), refunded[0].Payload["return_request_id"])

	cmds := f.gateway.Commands()
	require.Len(t, cmds, 1)
	assert.Equal(t, rr.ID.String(), cmds[0].ReferenceID)
	assert.True(t, decimal.RequireFromString("40.00").Equal(cmds[0].Amount))
}

func TestRefundReturn_SecondCallIsAlreadyRefunded(t *testing.T) {
	f := newFixture(t, time.Second)
	rr := f.pickedRequest(t)

	_, err := f.orch.InitiateRefund(context.Background(), rr.ID, model.KindReturnRefund)
	require.NoError(t, err)

	out, err := f.orch.InitiateRefund(context.Background(), rr.ID, model.KindReturnRefund)
	assert.ErrorIs(t, err, model.ErrAlreadyRefunded)
	assert.ErrorIs(t, err, apperr.ErrAlreadyRefunded)
	require.NotNil(t, out)
	assert.True(t, out.AlreadyRefunded)
	assert.Equal(t, 1, f.gateway.Calls(), "no second provider call")
}

func TestRefundReturn_DeclineThenRetry(t *testing.T) {
	f := newFixture(t, time.Second)
	rr := f.pickedRequest(t)
	f.gateway.Decline("card declined")

	out, err := f.orch.InitiateRefund(context.Background(), rr.ID, model.KindReturnRefund)
	require.NoError(t, err)
	assert.False(t, out.Success)
	assert.Equal(t, "card declined", out.FailureReason)

	stored, err := f.returns.GetByID(context.Background(), rr.ID)
	require.NoError(t, err)
	assert.Equal(t, returnModel.StatusRefundFailed, stored.Status)
	require.NotNil(t, stored.RefundFailureReason)
	assert.Equal(t, "card declined", *stored.RefundFailureReason)

	out, err = f.orch.InitiateRefund(context.Background(), rr.ID, model.KindReturnRefund)
	require.NoError(t, err)
	assert.True(t, out.Success)

	stored, err = f.returns.GetByID(context.Background(), rr.ID)
	require.NoError(t, err)
	assert.Equal(t, returnModel.StatusRefunded, stored.Status)
	assert.Nil(t, stored.RefundFailureReason)
	assert.Equal(t, 2, f.gateway.Calls())
}

func TestRefundReturn_RetryDeclinedAgainStaysFailed(t *testing.T) {
	f := newFixture(t, time.Second)
	rr := f.pickedRequest(t)
	f.gateway.Decline("card declined")
	f.gateway.Decline("insufficient funds")

	_, err := f.orch.InitiateRefund(context.Background(), rr.ID, model.KindReturnRefund)
	require.NoError(t, err)
	out, err := f.orch.InitiateRefund(context.Background(), rr.ID, model.KindReturnRefund)
	require.NoError(t, err)
	assert.Equal(t, "insufficient funds", out.FailureReason)

	history, err := f.returns.History(context.Background(), rr.ID)
	require.NoError(t, err)
	last := history[len(history)-1]
	assert.Equal(t, returnModel.StatusRefundFailed, last.FromStatus)
	assert.Equal(t, returnModel.StatusRefundFailed, last.ToStatus)
}

func TestRefundReturn_TimeoutLeavesStatus(t *testing.T) {
	f := newFixture(t, 20*time.Millisecond)
	rr := f.pickedRequest(t)
	f.gateway.Enqueue(mock.Response{Delay: time.Second})

	out, err := f.orch.InitiateRefund(context.Background(), rr.ID, model.KindReturnRefund)
	assert.Nil(t, out)
	assert.ErrorIs(t, err, apperr.ErrPaymentCollaborator)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	var perr *model.ProviderError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, rr.ID, perr.ReferenceID)

	stored, err := f.returns.GetByID(context.Background(), rr.ID)
	require.NoError(t, err)
	assert.Equal(t, returnModel.StatusPicked, stored.Status)
	assert.Equal(t, rr.Version, stored.Version)
}

func TestRefundReturn_InFlightLeavesStatusAndKey(t *testing.T) {
	f := newFixture(t, time.Second)
	rr := f.pickedRequest(t)
	f.gateway.Enqueue(mock.Response{Err: fmt.Errorf("stripe refund: %w: idempotency_error", model.ErrProviderInFlight)})

	out, err := f.orch.InitiateRefund(context.Background(), rr.ID, model.KindReturnRefund)
	assert.Nil(t, out)
	assert.ErrorIs(t, err, apperr.ErrPaymentCollaborator)
	assert.ErrorIs(t, err, model.ErrProviderInFlight)

	stored, err := f.returns.GetByID(context.Background(), rr.ID)
	require.NoError(t, err)
	assert.Equal(t, returnModel.StatusPicked, stored.Status)
	assert.Equal(t, rr.Version, stored.Version)

	out, err = f.orch.InitiateRefund(context.Background(), rr.ID, model.KindReturnRefund)
	require.NoError(t, err)
	assert.True(t, out.Success)

	cmds := f.gateway.Commands()
	require.Len(t, cmds, 2)
	assert.Equal(t, cmds[0].IdempotencyKey, cmds[1].IdempotencyKey, "retry after an in-flight answer must reuse the key")
}

func TestRefundReturn_TransportErrorRecordsFailure(t *testing.T) {
	f := newFixture(t, time.Second)
	rr := f.pickedRequest(t)
	f.gateway.Enqueue(mock.Response{Err: errors.New("connection reset by peer")})

	out, err := f.orch.InitiateRefund(context.Background(), rr.ID, model.KindReturnRefund)
	assert.ErrorIs(t, err, apperr.ErrPaymentCollaborator)
	require.NotNil(t, out)
	assert.Equal(t, string(returnModel.StatusRefundFailed), out.Status)
	assert.Equal(t, "connection reset by peer", out.FailureReason)
}

func TestRefundReturn_UnknownRequestOrKind(t *testing.T) {
	f := newFixture(t, time.Second)
	rr := f.pickedRequest(t)

	_, err := f.orch.InitiateRefund(context.Background(), uuid.New(), model.KindReturnRefund)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = f.orch.InitiateRefund(context.Background(), rr.ID, model.Kind("store_credit"))
	assert.ErrorIs(t, err, apperr.ErrValidation)
	assert.Equal(t, 0, f.gateway.Calls())
}

func TestRefundReturn_ApprovedIsInvalidTransition(t *testing.T) {
	f := newFixture(t, time.Second)
	ctx := context.Background()
	orderID, productID := uuid.New(), uuid.New()
	delivered := time.Now().UTC()
	f.orders.SeedOrder(&orderModel.Order{ID: orderID, UserID: &f.userID, Status: orderModel.OrderStatusDelivered, DeliveredAt: &delivered},
		[]orderModel.OrderItem{{ProductID: productID, Quantity: 1, UnitPrice: decimal.NewFromInt(9)}})
	rr, err := f.returns.Create(ctx, f.userID, returnModel.CreateReturnRequest{
		OrderID:       orderID.String(),
		Items:         []returnModel.CreateReturnItem{{ProductID: productID.String(), Quantity: 1}},
		Reason:        returnModel.ReasonOther,
		PickupAddress: pickupAddress(),
	})
	require.NoError(t, err)
	_, err = f.returns.Approve(ctx, rr.ID, f.adminID)
	require.NoError(t, err)

	_, err = f.orch.InitiateRefund(ctx, rr.ID, model.KindReturnRefund)
	var terr *returnModel.InvalidTransitionError
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, returnModel.StatusApproved, terr.From)
	assert.Equal(t, 0, f.gateway.Calls())
}

// =====================================================
// CANCELLED ORDER REFUNDS
// =====================================================
func TestRefundOrder_SucceedsAndNotifies(t *testing.T) {
	f := newFixture(t, time.Second)
	order := f.cancelledOrder(t)

	out, err := f.orch.InitiateRefund(context.Background(), order.OrderID, model.KindCancelledOrderRefund)
	require.NoError(t, err)
	assert.True(t, out.Success)
	assert.True(t, decimal.RequireFromString("35.50").Equal(out.Amount))

	stored, err := f.orders.GetRefundableOrder(context.Background(), order.OrderID)
	require.NoError(t, err)
	assert.Equal(t, orderModel.RefundStatusSucceeded, stored.RefundStatus)
	require.NotNil(t, stored.RefundReference)
	assert.Equal(t, out.ProviderRefundID, *stored.RefundReference)
	assert.Equal(t, 3, stored.Version, "claim and result are two versioned writes")

	sent := f.notifier.withStatus(string(orderModel.RefundStatusSucceeded))
	require.Len(t, sent, 1)
	assert.Equal(t, notificationModel.TypeOrderRefund, sent[0].Type)

	_, err = f.orch.InitiateRefund(context.Background(), order.OrderID, model.KindCancelledOrderRefund)
	assert.ErrorIs(t, err, apperr.ErrAlreadyRefunded)
	assert.Equal(t, 1, f.gateway.Calls())
}

func TestRefundOrder_DeclineThenRetry(t *testing.T) {
	f := newFixture(t, time.Second)
	order := f.cancelledOrder(t)
	f.gateway.Decline("card declined")

	out, err := f.orch.InitiateRefund(context.Background(), order.OrderID, model.KindCancelledOrderRefund)
	require.NoError(t, err)
	assert.Equal(t, string(orderModel.RefundStatusFailed), out.Status)
	assert.Equal(t, "card declined", out.FailureReason)

	out, err = f.orch.InitiateRefund(context.Background(), order.OrderID, model.KindCancelledOrderRefund)
	require.NoError(t, err)
	assert.Equal(t, string(orderModel.RefundStatusSucceeded), out.Status)
	assert.Empty(t, out.FailureReason)
	stored, err := f.orders.GetRefundableOrder(context.Background(), order.OrderID)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.RefundAttempts)

	cmds := f.gateway.Commands()
	require.Len(t, cmds, 2)
	assert.NotEqual(t, cmds[0].IdempotencyKey, cmds[1].IdempotencyKey, "a recorded decline starts a new attempt")
}

func TestRefundOrder_TimeoutRestoresPriorStatus(t *testing.T) {
	f := newFixture(t, 20*time.Millisecond)
	order := f.cancelledOrder(t)
	f.gateway.Enqueue(mock.Response{Delay: time.Second})

	_, err := f.orch.InitiateRefund(context.Background(), order.OrderID, model.KindCancelledOrderRefund)
	assert.ErrorIs(t, err, apperr.ErrPaymentCollaborator)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	stored, err := f.orders.GetRefundableOrder(context.Background(), order.OrderID)
	require.NoError(t, err)
	assert.Equal(t, orderModel.RefundStatusNone, stored.RefundStatus)
}

func TestRefundOrder_InterruptedRetryReusesKey(t *testing.T) {
	tests := []struct {
		name string
		resp mock.Response
		want error
	}{
		{"timeout", mock.Response{Delay: time.Second}, context.DeadlineExceeded},
		{"in flight at provider", mock.Response{Err: fmt.Errorf("stripe refund: %w: status 409", model.ErrProviderInFlight)}, model.ErrProviderInFlight},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, 20*time.Millisecond)
			order := f.cancelledOrder(t)
			f.gateway.Enqueue(tt.resp)

			_, err := f.orch.InitiateRefund(context.Background(), order.OrderID, model.KindCancelledOrderRefund)
			assert.ErrorIs(t, err, apperr.ErrPaymentCollaborator)
			assert.ErrorIs(t, err, tt.want)

			released, err := f.orders.GetRefundableOrder(context.Background(), order.OrderID)
			require.NoError(t, err)
			assert.Equal(t, orderModel.RefundStatusNone, released.RefundStatus)
			assert.Zero(t, released.RefundAttempts)
			assert.Greater(t, released.Version, order.Version)

			out, err := f.orch.InitiateRefund(context.Background(), order.OrderID, model.KindCancelledOrderRefund)
			require.NoError(t, err)
			assert.Equal(t, string(orderModel.RefundStatusSucceeded), out.Status)

			cmds := f.gateway.Commands()
			require.Len(t, cmds, 2)
			assert.Equal(t, cmds[0].IdempotencyKey, cmds[1].IdempotencyKey, "the first call may still land, so the retry must dedupe against it")
		})
	}
}

func TestRefundOrder_InitiatedIsInProgress(t *testing.T) {
	f := newFixture(t, time.Second)
	order := f.cancelledOrder(t)

	claimed := order.Clone()
	claimed.RefundStatus = orderModel.RefundStatusInitiated
	require.NoError(t, f.orders.UpdateRefundState(context.Background(), claimed, order.Version))

	_, err := f.orch.InitiateRefund(context.Background(), order.OrderID, model.KindCancelledOrderRefund)
	assert.ErrorIs(t, err, apperr.ErrConcurrentModification)
	assert.Equal(t, 0, f.gateway.Calls())
}

func TestRefundOrder_ConcurrentCallsClaimOnce(t *testing.T) {
	f := newFixture(t, time.Second)
	order := f.cancelledOrder(t)
	f.gateway.Enqueue(mock.Response{Delay: 50 * time.Millisecond})

	var wg sync.WaitGroup
	errs := make([]error, 5)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.orch.InitiateRefund(context.Background(), order.OrderID, model.KindCancelledOrderRefund)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, f.gateway.Calls())
	for _, err := range errs {
		if err != nil {
			assert.True(t,
				errors.Is(err, apperr.ErrConcurrentModification) || errors.Is(err, apperr.ErrAlreadyRefunded),
				"unexpected error: %v", err)
		}
	}
}

func TestReleaseStale(t *testing.T) {
	f := newFixture(t, time.Second)
	order := f.cancelledOrder(t)
	fresh := f.cancelledOrder(t)

	old := time.Now().UTC().Add(-time.Hour)
	claimed := order.Clone()
	claimed.RefundStatus = orderModel.RefundStatusInitiated
	claimed.RefundUpdatedAt = &old
	require.NoError(t, f.orders.UpdateRefundState(context.Background(), claimed, order.Version))

	recent := time.Now().UTC()
	claimedFresh := fresh.Clone()
	claimedFresh.RefundStatus = orderModel.RefundStatusInitiated
	claimedFresh.RefundUpdatedAt = &recent
	require.NoError(t, f.orders.UpdateRefundState(context.Background(), claimedFresh, fresh.Version))

	released, err := f.orch.ReleaseStale(context.Background(), 30*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 1, released)

	stored, err := f.orders.GetRefundableOrder(context.Background(), order.OrderID)
	require.NoError(t, err)
	assert.Equal(t, orderModel.RefundStatusFailed, stored.RefundStatus)
	require.NotNil(t, stored.RefundFailureReason)
	assert.Equal(t, ReasonInterrupted, *stored.RefundFailureReason)
	assert.Zero(t, stored.RefundAttempts, "a released claim is not a recorded provider failure")

	stillClaimed, err := f.orders.GetRefundableOrder(context.Background(), fresh.OrderID)
	require.NoError(t, err)
	assert.Equal(t, orderModel.RefundStatusInitiated, stillClaimed.RefundStatus)
}
