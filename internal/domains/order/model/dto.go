package model

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"returns-backend/internal/shared/pagination"
)

// =====================================================
// LIST CANCELLED ORDERS
// =====================================================
type ListCancelledOrdersRequest struct {
	RefundStatus string     `form:"refund_status"`
	Page         int        `form:"page"`
	PageSize     int        `form:"page_size"`
	AsOf         *time.Time `form:"as_of" time_format:"2006-01-02T15:04:05.999999Z07:00"`
}

func (req ListCancelledOrdersRequest) Validate() error {
	return validation.ValidateStruct(&req,
		validation.Field(&req.RefundStatus, validation.In(
			string(RefundStatusNone),
			string(RefundStatusInitiated),
			string(RefundStatusSucceeded),
			string(RefundStatusFailed),
		)),
	)
}

// ListCancelledOrdersResponse pins later pages to AsOf, the same way the
// return request listing does.
type ListCancelledOrdersResponse struct {
	pagination.Page[RefundableOrder]
	AsOf time.Time `json:"as_of"`
}
