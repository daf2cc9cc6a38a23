package model

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
)

// DeleteNotificationsRequest: an empty IDs list deletes every notification
// of the caller.
type DeleteNotificationsRequest struct {
	IDs []string `json:"ids"`
}

func (req DeleteNotificationsRequest) Validate() error {
	return validation.ValidateStruct(&req,
		validation.Field(&req.IDs, validation.Length(0, 500), validation.Each(is.UUID)),
	)
}

type ListNotificationsResponse struct {
	Notifications []Notification `json:"notifications"`
	UnreadCount   int            `json:"unread_count"`
}
