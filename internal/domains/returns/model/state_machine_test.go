package model

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"returns-backend/internal/shared/apperr"
)

func TestCheckTransition_EdgeTable(t *testing.T) {
	allowed := map[[2]Status]Role{
		{StatusRequested, StatusApproved}:    RoleAdmin,
		{StatusRequested, StatusRejected}:    RoleAdmin,
		{StatusRequested, StatusCancelled}:   RoleOwner,
		{StatusApproved, StatusPicked}:       RoleAdmin,
		{StatusPicked, StatusRefunded}:       RoleSystem,
		{StatusPicked, StatusRefundFailed}:   RoleSystem,
		{StatusRefundFailed, StatusRefunded}: RoleSystem,
	}
	roles := []Role{RoleAdmin, RoleOwner, RoleSystem}

	for _, from := range AllStatuses() {
		for _, to := range AllStatuses() {
			for _, role := range roles {
				err := CheckTransition(from, to, role)
				wantRole, isEdge := allowed[[2]Status{from, to}]

				if isEdge && wantRole == role {
					assert.NoError(t, err, "%s -> %s as %s", from, to, role)
					continue
				}

				require.Error(t, err, "%s -> %s as %s", from, to, role)
				assert.True(t, errors.Is(err, apperr.ErrInvalidTransition))

				var ite *InvalidTransitionError
				require.True(t, errors.As(err, &ite))
				assert.Equal(t, from, ite.From)
				assert.Equal(t, to, ite.To)
				assert.Contains(t, err.Error(), string(from))
				assert.Contains(t, err.Error(), string(to))
			}
		}
	}
}

func TestStatus_IsTerminal(t *testing.T) {
	assert.True(t, StatusRejected.IsTerminal())
	assert.True(t, StatusCancelled.IsTerminal())
	assert.True(t, StatusRefunded.IsTerminal())

	assert.False(t, StatusRequested.IsTerminal())
	assert.False(t, StatusApproved.IsTerminal())
	assert.False(t, StatusPicked.IsTerminal())
	assert.False(t, StatusRefundFailed.IsTerminal())

	assert.True(t, StatusRefundFailed.IsOpen())
	assert.False(t, Status("bogus").IsOpen())
}

func TestAllowedTargets(t *testing.T) {
	assert.Equal(t, []Status{StatusApproved, StatusRejected, StatusCancelled}, AllowedTargets(StatusRequested))
	assert.Equal(t, []Status{StatusRefunded, StatusRefundFailed}, AllowedTargets(StatusPicked))
	assert.Empty(t, AllowedTargets(StatusCancelled))
}

func newRequest() *ReturnRequest {
	return &ReturnRequest{
		ID:     uuid.New(),
		Status: StatusRequested,
		Items: []ReturnItem{
			{ProductID: uuid.New(), Quantity: 1, UnitPrice: decimal.RequireFromString("15.00")},
			{ProductID: uuid.New(), Quantity: 2, UnitPrice: decimal.RequireFromString("12.50")},
		},
	}
}

func TestApply_ApprovalFixesRefundAmount(t *testing.T) {
	r := newRequest()
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	r.Apply(StatusApproved, at, TransitionDetails{})

	require.NotNil(t, r.RefundAmount)
	assert.True(t, decimal.RequireFromString("40.00").Equal(*r.RefundAmount))
	assert.Equal(t, at, *r.ApprovedAt)
	assert.Nil(t, r.RejectedAt)

	// later price corrections on the snapshot do not move the fixed amount
	r.Items[0].UnitPrice = decimal.RequireFromString("99.00")
	assert.True(t, decimal.RequireFromString("40.00").Equal(*r.RefundAmount))
}

func TestApply_RefundOutcomes(t *testing.T) {
	r := newRequest()
	at := time.Now().UTC()

	r.Apply(StatusRefundFailed, at, TransitionDetails{FailureReason: "card declined"})
	require.NotNil(t, r.RefundFailureReason)
	assert.Equal(t, "card declined", *r.RefundFailureReason)
	assert.Nil(t, r.RefundedAt)

	r.Apply(StatusRefunded, at, TransitionDetails{ProviderRefundID: "re_123"})
	assert.Nil(t, r.RefundFailureReason)
	require.NotNil(t, r.RefundedAt)
	require.NotNil(t, r.ProviderRefundID)
	assert.Equal(t, "re_123", *r.ProviderRefundID)
}

func TestClone_DoesNotShareItems(t *testing.T) {
	r := newRequest()
	c := r.Clone()
	c.Items[0].Quantity = 42

	assert.Equal(t, 1, r.Items[0].Quantity)
}

func TestCreateReturnRequest_Validate(t *testing.T) {
	valid := CreateReturnRequest{
		OrderID: uuid.NewString(),
		Items:   []CreateReturnItem{{ProductID: uuid.NewString(), Quantity: 1}},
		Reason:  ReasonDamaged,
		PickupAddress: PickupAddressInput{
			Name: "Jo", Phone: "5551234", AddressLine: "1 Main St",
			City: "Springfield", PostalCode: "12345", Country: "US",
		},
	}
	assert.NoError(t, valid.Validate())

	bad := valid
	bad.Reason = "because"
	assert.Error(t, bad.Validate())

	bad = valid
	bad.Items = []CreateReturnItem{{ProductID: "x", Quantity: 0}}
	assert.Error(t, bad.Validate())

	bad = valid
	bad.PickupAddress.Phone = ""
	assert.Error(t, bad.Validate())
}
