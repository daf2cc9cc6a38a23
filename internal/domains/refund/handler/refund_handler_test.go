package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	orderModel "returns-backend/internal/domains/order/model"
	"returns-backend/internal/domains/refund/model"
	"returns-backend/internal/shared/response"
)

type stubOrchestrator struct {
	outcome *model.RefundOutcome
	err     error
	calls   int
	id      uuid.UUID
	kind    model.Kind
}

func (s *stubOrchestrator) InitiateRefund(ctx context.Context, id uuid.UUID, kind model.Kind) (*model.RefundOutcome, error) {
	s.calls++
	s.id, s.kind = id, kind
	return s.outcome, s.err
}

func (s *stubOrchestrator) ReleaseStale(ctx context.Context, staleAfter time.Duration) (int, error) {
	return 0, nil
}

func newRefundRouter(orch *stubOrchestrator) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewRefundHandler(orch)

	r := gin.New()
	r.POST("/admin/returns/:id/refund", h.RefundReturn)
	r.POST("/admin/orders/:id/refund", h.RefundCancelledOrder)
	return r
}

func post(r *gin.Engine, path string) (*httptest.ResponseRecorder, response.Response) {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, path, nil))
	var body response.Response
	_ = json.Unmarshal(w.Body.Bytes(), &body)
	return w, body
}

func TestRefundReturn_ResponseMapping(t *testing.T) {
	id := uuid.New()
	outcome := &model.RefundOutcome{
		Kind:        model.KindReturnRefund,
		ReferenceID: id,
		Amount:      decimal.RequireFromString("40.00"),
	}

	tests := []struct {
		name     string
		outcome  *model.RefundOutcome
		err      error
		wantCode int
		wantOK   bool
	}{
		{"refunded", outcome, nil, http.StatusOK, true},
		{"already refunded", outcome, model.ErrAlreadyRefunded, http.StatusOK, true},
		{"recorded transport failure", outcome, &model.ProviderError{Kind: model.KindReturnRefund, ReferenceID: id, Err: errors.New("connection reset")}, http.StatusBadGateway, false},
		{"timeout", nil, &model.ProviderError{Kind: model.KindReturnRefund, ReferenceID: id, Err: context.DeadlineExceeded}, http.StatusBadGateway, false},
		{"unknown request", nil, orderModel.ErrOrderNotFound, http.StatusNotFound, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newRefundRouter(&stubOrchestrator{outcome: tt.outcome, err: tt.err})

			w, body := post(router, "/admin/returns/"+id.String()+"/refund")
			assert.Equal(t, tt.wantCode, w.Code)
			assert.Equal(t, tt.wantOK, body.Success)
		})
	}

	t.Run("transport failure carries the outcome", func(t *testing.T) {
		router := newRefundRouter(&stubOrchestrator{
			outcome: outcome,
			err:     &model.ProviderError{Kind: model.KindReturnRefund, ReferenceID: id, Err: errors.New("connection reset")},
		})

		_, body := post(router, "/admin/returns/"+id.String()+"/refund")
		require.NotNil(t, body.Error)
		assert.Equal(t, model.ErrCodeProvider, body.Error.Code)
		assert.NotNil(t, body.Error.Details)
	})

	t.Run("invalid id", func(t *testing.T) {
		orch := &stubOrchestrator{}
		router := newRefundRouter(orch)

		w, _ := post(router, "/admin/returns/not-a-uuid/refund")
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Zero(t, orch.calls)
	})
}

func TestRefundCancelledOrder_PassesKind(t *testing.T) {
	orderID := uuid.New()
	orch := &stubOrchestrator{outcome: &model.RefundOutcome{Kind: model.KindCancelledOrderRefund, ReferenceID: orderID, Success: true}}
	router := newRefundRouter(orch)

	w, body := post(router, "/admin/orders/"+orderID.String()+"/refund")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, body.Success)
	assert.Equal(t, 1, orch.calls)
	assert.Equal(t, model.KindCancelledOrderRefund, orch.kind)
	assert.Equal(t, orderID, orch.id)
}
