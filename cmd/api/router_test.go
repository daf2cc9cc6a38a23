package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"returns-backend/internal/config"
	refundHandler "returns-backend/internal/domains/refund/handler"
	refundModel "returns-backend/internal/domains/refund/model"
	"returns-backend/internal/infrastructure/metrics"
	"returns-backend/internal/shared/middleware"
	"returns-backend/pkg/container"
	"returns-backend/pkg/jwt"
)

type countingOrchestrator struct {
	calls int
}

func (o *countingOrchestrator) InitiateRefund(ctx context.Context, id uuid.UUID, kind refundModel.Kind) (*refundModel.RefundOutcome, error) {
	o.calls++
	return &refundModel.RefundOutcome{Kind: kind, ReferenceID: id, Success: true}, nil
}

func (o *countingOrchestrator) ReleaseStale(ctx context.Context, staleAfter time.Duration) (int, error) {
	return 0, nil
}

func newTestRouter(t *testing.T, orch *countingOrchestrator) (*gin.Engine, *jwt.Manager) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	manager := jwt.NewManager("router-test-secret")
	c := &container.Container{
		Config:        &config.Config{App: config.AppConfig{CORSOrigins: []string{"http://localhost:3000"}}},
		JWTManager:    manager,
		Metrics:       metrics.New("returns-api-test"),
		RefundHandler: refundHandler.NewRefundHandler(orch),
	}
	return SetupRouter(c), manager
}

func TestRouter_RefundIsAdminOnly(t *testing.T) {
	orch := &countingOrchestrator{}
	router, manager := newTestRouter(t, orch)

	customerToken, err := manager.GenerateAccessToken(uuid.NewString(), "customer@example.com", "customer")
	require.NoError(t, err)
	adminToken, err := manager.GenerateAccessToken(uuid.NewString(), "admin@example.com", middleware.RoleAdmin)
	require.NoError(t, err)

	orderID := uuid.NewString()
	tests := []struct {
		name     string
		path     string
		token    string
		wantCode int
	}{
		{"customer order refund route does not exist", "/api/v1/orders/" + orderID + "/refund", customerToken, http.StatusNotFound},
		{"customer on admin order refund", "/api/v1/admin/orders/" + orderID + "/refund", customerToken, http.StatusForbidden},
		{"customer on admin return refund", "/api/v1/admin/returns/" + orderID + "/refund", customerToken, http.StatusForbidden},
		{"anonymous on admin order refund", "/api/v1/admin/orders/" + orderID + "/refund", "", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, tt.path, nil)
			if tt.token != "" {
				req.Header.Set("Authorization", "Bearer "+tt.token)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.wantCode, w.Code)
		})
	}
	assert.Zero(t, orch.calls, "no customer request may reach the orchestrator")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/orders/"+orderID+"/refund", nil)
	req.Header.Set("Authorization", "Bearer "+adminToken)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, orch.calls)
}
