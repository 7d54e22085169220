package models

import "time"

// BookingSelection is the working state of one booking session. It is never
// persisted to the appointment book; it lives in the session store until the
// client submits or walks away.
type BookingSelection struct {
	ServiceID  int64  `json:"service_id,omitempty"`
	BarberID   int64  `json:"barber_id,omitempty"`
	LocationID int64  `json:"location_id,omitempty"`
	Date       string `json:"date,omitempty"` // YYYY-MM-DD
	Time       string `json:"time,omitempty"` // HH:MM
	ClientName string `json:"client_name,omitempty"`
	Phone      string `json:"phone,omitempty"`
	Email      string `json:"email,omitempty"`
}

// BookingSession ties a selection to a wizard step under a client-held token.
type BookingSession struct {
	Token         string           `json:"token"`
	Step          string           `json:"step"`
	Selection     BookingSelection `json:"selection"`
	AppointmentID int64            `json:"appointment_id,omitempty"`
	CreatedAt     time.Time        `json:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at"`
}
