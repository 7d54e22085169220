package models

const (
	StatusPending   = "pending"
	StatusConfirmed = "confirmed"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
)

const (
	StepSelectingService        = "selecting_service"
	StepSelectingBarberLocation = "selecting_barber_location"
	StepSelectingDateTime       = "selecting_date_time"
	StepConfirmingDetails       = "confirming_details"
	StepSubmitted               = "submitted"
)

const (
	// DefaultSessionTTL время жизни сессии мастера бронирования
	DefaultSessionTTL = 24 * 60 * 60 // 24 часа в секундах

	// WorkerQueueSize размер очереди воркера
	WorkerQueueSize = 1000

	// DefaultExportRangeMonths период экспорта по умолчанию
	DefaultExportRangeMonthsBefore = 1
	DefaultExportRangeMonthsAfter  = 2

	// DefaultMaxBookingDays горизонт бронирования по умолчанию
	DefaultMaxBookingDays = 60
)

// Границы рабочего дня и шаг сетки слотов.
const (
	OpeningHour     = 9
	ClosingHour     = 20
	SlotIntervalMin = 30
)
