package domain

import (
	"context"
	"time"

	"bigman/internal/models"
)

type Repository interface {
	ClaimSlot(ctx context.Context, appt *models.Appointment) error
	GetAppointment(ctx context.Context, id int64) (*models.Appointment, error)
	UpdateAppointmentStatusIf(ctx context.Context, id int64, from, to string) error
	RescheduleAppointment(ctx context.Context, id int64, date time.Time, slot string) (*models.Appointment, error)
	ListAppointments(ctx context.Context) ([]*models.Appointment, error)
	ListAppointmentsByStatus(ctx context.Context, status string) ([]*models.Appointment, error)
	ListAppointmentsByDateRange(ctx context.Context, start, end time.Time) ([]*models.Appointment, error)
	ClaimedTimes(ctx context.Context, barberID, locationID int64, date time.Time) (map[string]bool, error)
	ClaimedCountsForPeriod(ctx context.Context, barberID, locationID int64, startDate time.Time, days int) (map[string]int, error)
}

type ProductRepository interface {
	CreateProduct(ctx context.Context, product *models.Product) error
	GetProduct(ctx context.Context, id int64) (*models.Product, error)
	ListProducts(ctx context.Context) ([]*models.Product, error)
	UpdateProduct(ctx context.Context, product *models.Product) error
	DeleteProduct(ctx context.Context, id int64) error
}

type SessionRepository interface {
	GetSession(ctx context.Context, token string) (*models.BookingSession, error)
	SetSession(ctx context.Context, session *models.BookingSession) error
	DeleteSession(ctx context.Context, token string) error
	CheckRateLimit(ctx context.Context, clientKey string, limit int, window time.Duration) (bool, error)
}

type EventPublisher interface {
	PublishJSON(eventType string, payload interface{}) error
}

type SheetsWriter interface {
	UpsertAppointment(ctx context.Context, appt *models.Appointment) error
	UpdateAppointmentStatus(ctx context.Context, appointmentID int64, status string) error
}

type SyncWorker interface {
	EnqueueTask(ctx context.Context, taskType string, appointmentID int64, appt *models.Appointment, status string) error
}

type ReservationService interface {
	Submit(ctx context.Context, appt *models.Appointment) error
}

type AvailabilityService interface {
	Slots(ctx context.Context, barberID, locationID int64, date time.Time) ([]models.Slot, error)
	MonthAvailability(ctx context.Context, barberID, locationID int64, year, month int) (map[string]bool, error)
}

type LifecycleService interface {
	Transition(ctx context.Context, id int64, target string) (*models.Appointment, error)
	Reschedule(ctx context.Context, id int64, date time.Time, slot string) (*models.Appointment, error)
	Get(ctx context.Context, id int64) (*models.Appointment, error)
	List(ctx context.Context) ([]*models.Appointment, error)
	ListByStatus(ctx context.Context, status string) ([]*models.Appointment, error)
	ListByDateRange(ctx context.Context, start, end time.Time) ([]*models.Appointment, error)
}

type ProductService interface {
	Create(ctx context.Context, product *models.Product) error
	Get(ctx context.Context, id int64) (*models.Product, error)
	List(ctx context.Context) ([]*models.Product, error)
	Update(ctx context.Context, product *models.Product) error
	Delete(ctx context.Context, id int64) error
}
