package model

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"

	"returns-backend/internal/shared/pagination"
)

// =====================================================
// CREATE RETURN REQUEST
// =====================================================
type CreateReturnRequest struct {
	OrderID       string             `json:"order_id"`
	Items         []CreateReturnItem `json:"items"`
	Reason        string             `json:"reason"`
	Comment       string             `json:"comment"`
	ImageKey      *string            `json:"image_key,omitempty"`
	PickupAddress PickupAddressInput `json:"pickup_address"`
}

type CreateReturnItem struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

type PickupAddressInput struct {
	Name        string `json:"name"`
	Phone       string `json:"phone"`
	AddressLine string `json:"address_line"`
	City        string `json:"city"`
	State       string `json:"state"`
	PostalCode  string `json:"postal_code"`
	Country     string `json:"country"`
}

// Validate checks shape only; order membership is checked by the service
func (req CreateReturnRequest) Validate() error {
	return validation.ValidateStruct(&req,
		validation.Field(&req.OrderID, validation.Required, is.UUID),
		validation.Field(&req.Items),
		validation.Field(&req.Reason, validation.Required, validation.In(
			ReasonDamaged,
			ReasonWrongItem,
			ReasonNotAsDescribed,
			ReasonNoLongerNeeded,
			ReasonOther,
		)),
		validation.Field(&req.Comment, validation.Length(0, 1000)),
		validation.Field(&req.ImageKey, validation.NilOrNotEmpty, validation.Length(1, 512)),
		validation.Field(&req.PickupAddress),
	)
}

func (i CreateReturnItem) Validate() error {
	return validation.ValidateStruct(&i,
		validation.Field(&i.ProductID, validation.Required, is.UUID),
		validation.Field(&i.Quantity, validation.Required, validation.Min(1)),
	)
}

func (a PickupAddressInput) Validate() error {
	return validation.ValidateStruct(&a,
		validation.Field(&a.Name, validation.Required, validation.Length(1, 120)),
		validation.Field(&a.Phone, validation.Required, validation.Length(6, 32)),
		validation.Field(&a.AddressLine, validation.Required, validation.Length(1, 255)),
		validation.Field(&a.City, validation.Required),
		validation.Field(&a.PostalCode, validation.Required),
		validation.Field(&a.Country, validation.Required, validation.Length(2, 64)),
	)
}

func (a PickupAddressInput) ToSnapshot() PickupAddress {
	return PickupAddress{
		Name:        a.Name,
		Phone:       a.Phone,
		AddressLine: a.AddressLine,
		City:        a.City,
		State:       a.State,
		PostalCode:  a.PostalCode,
		Country:     a.Country,
	}
}

// =====================================================
// ADMIN ACTIONS
// =====================================================
type RejectReturnRequest struct {
	Reason string `json:"reason"`
}

func (req RejectReturnRequest) Validate() error {
	return validation.ValidateStruct(&req,
		validation.Field(&req.Reason, validation.Length(0, 500)),
	)
}

type PickReturnRequest struct {
	PickupAgentID string `json:"pickup_agent_id"`
}

func (req PickReturnRequest) Validate() error {
	return validation.ValidateStruct(&req,
		validation.Field(&req.PickupAgentID, is.UUID),
	)
}

// =====================================================
// LIST
// =====================================================
type ListReturnsRequest struct {
	Status   string     `form:"status"`
	Page     int        `form:"page"`
	PageSize int        `form:"page_size"`
	AsOf     *time.Time `form:"as_of" time_format:"2006-01-02T15:04:05.999999Z07:00"`
}

func (req ListReturnsRequest) Validate() error {
	statuses := make([]interface{}, 0, len(AllStatuses()))
	for _, s := range AllStatuses() {
		statuses = append(statuses, string(s))
	}
	return validation.ValidateStruct(&req,
		validation.Field(&req.Status, validation.In(statuses...)),
	)
}

// ListReturnsResponse carries the snapshot instant; pass it back as as_of to
// page through a result set that does not shift under concurrent inserts.
type ListReturnsResponse struct {
	pagination.Page[ReturnRequest]
	AsOf time.Time `json:"as_of"`
}

// =====================================================
// PROOF IMAGE
// =====================================================
type UploadImageResponse struct {
	Key          string `json:"key"`
	ThumbnailKey string `json:"thumbnail_key"`
}
