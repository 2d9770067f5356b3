package model

import (
	"time"
)

// AvailabilitySlot is a (date, time) reservation bucket with finite guest
// capacity. Invariant: 0 <= CapacityReserved <= CapacityTotal at all times,
// including under concurrent access.
type AvailabilitySlot struct {
	Date             string `json:"date"`
	Time             string `json:"time"`
	CapacityTotal    int    `json:"capacity_total"`
	CapacityReserved int    `json:"capacity_reserved"`
}

// Booking is a confirmed table reservation. Created only by a successful
// create_booking call; immutable thereafter.
type Booking struct {
	ConfirmationID  string    `json:"confirmation_id"`
	Name            string    `json:"name"`
	Phone           string    `json:"phone"`
	Date            string    `json:"date"`
	Time            string    `json:"time"`
	Guests          int       `json:"guests"`
	SpecialRequests string    `json:"special_requests,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}
