package stripe

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/rs/zerolog/log"
	"github.com/stripe/stripe-go/v83"
	"github.com/stripe/stripe-go/v83/refund"

	"returns-backend/internal/domains/refund/gateway"
	"returns-backend/internal/domains/refund/model"
	"returns-backend/internal/shared/utils"
)

// =====================================================
// STRIPE REFUND GATEWAY
// =====================================================

type Gateway struct {
	intents gateway.PaymentIntentLookup
}

func NewGateway(secretKey string, intents gateway.PaymentIntentLookup) gateway.PaymentGateway {
	stripe.Key = secretKey
	return &Gateway{intents: intents}
}

func (g *Gateway) Refund(ctx context.Context, cmd model.RefundCommand) (*model.RefundResult, error) {
	intent, err := g.intents.GetPaymentIntentID(ctx, cmd.OrderID)
	if err != nil {
		return nil, fmt.Errorf("lookup payment intent: %w", err)
	}
	if intent == "" {
		return &model.RefundResult{Success: false, Reason: "order has no captured payment"}, nil
	}

	params := &stripe.RefundParams{
		PaymentIntent: stripe.String(intent),
		Amount:        stripe.Int64(utils.ToMinorUnits(cmd.Amount)),
		Reason:        stripe.String(string(stripe.RefundReasonRequestedByCustomer)),
	}
	params.Context = ctx
	params.SetIdempotencyKey(cmd.IdempotencyKey)
	params.AddMetadata("reference_id", cmd.ReferenceID)
	params.AddMetadata("order_id", cmd.OrderID.String())

	r, err := refund.New(params)
	if err != nil {
		var se *stripe.Error
		if errors.As(err, &se) {
			if inFlight(se) {
				return nil, fmt.Errorf("stripe refund: %w: %v", model.ErrProviderInFlight, err)
			}
			if se.Type == stripe.ErrorTypeCard || se.Type == stripe.ErrorTypeInvalidRequest {
				// Declines are outcomes; the message is stored as the failure reason
				return &model.RefundResult{Success: false, Reason: se.Msg}, nil
			}
		}
		return nil, fmt.Errorf("stripe refund: %w", err)
	}

	switch r.Status {
	case stripe.RefundStatusFailed, stripe.RefundStatusCanceled:
		reason := string(r.FailureReason)
		if reason == "" {
			reason = "refund " + string(r.Status)
		}
		return &model.RefundResult{Success: false, ProviderRefundID: r.ID, Reason: reason}, nil
	}

	log.Info().
		Str("refund_id", r.ID).
		Str("reference_id", cmd.ReferenceID).
		Str("status", string(r.Status)).
		Msg("Stripe refund created")

	return &model.RefundResult{Success: true, ProviderRefundID: r.ID}, nil
}

// inFlight: Stripe answers 409 (idempotency_error) while a request with the
// same key is still being processed. Checked before the invalid_request
// branch so a concurrent retry is never recorded as a decline.
func inFlight(se *stripe.Error) bool {
	return se.Type == stripe.ErrorTypeIdempotency || se.HTTPStatusCode == http.StatusConflict
}
