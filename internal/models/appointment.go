package models

import "time"

type Appointment struct {
	ID         int64     `json:"id"`
	ClientName string    `json:"client_name"`
	Phone      string    `json:"phone"`
	Email      string    `json:"email"`
	ServiceID  int64     `json:"service_id"`
	BarberID   int64     `json:"barber_id"`
	LocationID int64     `json:"location_id"`
	Date       time.Time `json:"date"`
	Time       string    `json:"time"`   // HH:MM
	Status     string    `json:"status"` // pending, confirmed, completed, cancelled
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Slot описывает один получасовой интервал расписания на дату.
type Slot struct {
	Time      string `json:"time"`
	Available bool   `json:"available"`
}

// IsTerminal reports whether the status allows no further transitions.
func IsTerminal(status string) bool {
	return status == StatusCompleted || status == StatusCancelled
}

// CanTransition validates a status change against the lifecycle table:
// pending -> {confirmed, cancelled}, confirmed -> {completed, cancelled}.
func CanTransition(from, to string) bool {
	switch from {
	case StatusPending:
		return to == StatusConfirmed || to == StatusCancelled
	case StatusConfirmed:
		return to == StatusCompleted || to == StatusCancelled
	default:
		return false
	}
}

// ValidStatus reports whether s is one of the known lifecycle statuses.
func ValidStatus(s string) bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}
