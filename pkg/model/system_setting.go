package model

import "time"

const (
	SettingCategoryBooking        = "booking"
	SettingBookingExpirationHours = "booking_expiration_hours"
)

type SystemSetting struct {
	Key         string    `json:"key" bson:"_id"`
	Value       string    `json:"value" bson:"value"`
	Category    string    `json:"category" bson:"category"`
	Description string    `json:"description,omitempty" bson:"description,omitempty"`
	UpdatedAt   time.Time `json:"updated_at" bson:"updated_at"`
}

type ExpirationPolicy struct {
	Hours     int        `json:"booking_expiration_hours"`
	Source    string     `json:"source"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

type SetExpirationRequest struct {
	Hours int `json:"booking_expiration_hours" validate:"required,min=1,max=720"`
}
