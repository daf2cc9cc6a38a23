package response

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"returns-backend/internal/shared/apperr"
)

type codedErr struct{ error }

func (codedErr) ErrorCode() string { return "RET099" }

func TestFromError(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"validation", fmt.Errorf("bad: %w", apperr.ErrValidation), http.StatusBadRequest, "VALIDATION_ERROR"},
		{"not found", apperr.ErrNotFound, http.StatusNotFound, "NOT_FOUND"},
		{"transition", apperr.ErrInvalidTransition, http.StatusConflict, "INVALID_TRANSITION"},
		{"conflict", apperr.ErrConcurrentModification, http.StatusConflict, "CONCURRENT_MODIFICATION"},
		{"provider", apperr.ErrPaymentCollaborator, http.StatusBadGateway, "PAYMENT_PROVIDER_ERROR"},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, "INTERNAL_SERVER_ERROR"},
		{"coded", codedErr{fmt.Errorf("x: %w", apperr.ErrValidation)}, http.StatusBadRequest, "RET099"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, "/x", nil)

			FromError(c, tt.err)

			assert.Equal(t, tt.wantStatus, w.Code)
			var body Response
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.False(t, body.Success)
			require.NotNil(t, body.Error)
			assert.Equal(t, tt.wantCode, body.Error.Code)
		})
	}
}
