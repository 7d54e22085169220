package database

import "errors"

var (
	// ErrSlotTaken is returned when the requested barber slot already
	// holds an active appointment.
	ErrSlotTaken = errors.New("slot already taken")

	// ErrNotFound is returned when a row does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConcurrentModification is returned when a conditional update
	// matched no rows because another writer got there first.
	ErrConcurrentModification = errors.New("concurrent modification")

	// ErrTerminalStatus is returned when a write targets an appointment
	// already completed or cancelled.
	ErrTerminalStatus = errors.New("appointment is in a terminal status")
)
