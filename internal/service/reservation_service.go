package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"bigman/internal/calendar"
	"bigman/internal/database"
	"bigman/internal/domain"
	"bigman/internal/events"
	"bigman/internal/metrics"
	"bigman/internal/models"

	"github.com/rs/zerolog"
)

type ReservationService struct {
	repo           domain.Repository
	catalog        *models.Catalog
	eventBus       domain.EventPublisher
	sheetsWorker   domain.SyncWorker
	maxBookingDays int
	logger         *zerolog.Logger

	now func() time.Time
}

func NewReservationService(repo domain.Repository, catalog *models.Catalog, eventBus domain.EventPublisher, sheetsWorker domain.SyncWorker, maxBookingDays int, logger *zerolog.Logger) *ReservationService {
	if maxBookingDays <= 0 {
		maxBookingDays = models.DefaultMaxBookingDays
	}
	return &ReservationService{
		repo:           repo,
		catalog:        catalog,
		eventBus:       eventBus,
		sheetsWorker:   sheetsWorker,
		maxBookingDays: maxBookingDays,
		logger:         logger,
		now:            time.Now,
	}
}

// Submit validates the appointment from scratch and claims its slot.
// Client input is never trusted even when it passed through the wizard.
func (s *ReservationService) Submit(ctx context.Context, appt *models.Appointment) error {
	if err := s.validate(appt); err != nil {
		return err
	}

	appt.Status = models.StatusPending
	if err := s.repo.ClaimSlot(ctx, appt); err != nil {
		if errors.Is(err, database.ErrSlotTaken) {
			metrics.IncSlotConflict()
		}
		return err
	}
	metrics.IncAppointmentCreated()

	s.publishEvent(events.EventAppointmentCreated, appt)
	s.enqueueSync(ctx, appt, "upsert")

	s.logger.Info().
		Int64("appointment_id", appt.ID).
		Int64("barber_id", appt.BarberID).
		Str("date", appt.Date.Format("2006-01-02")).
		Str("time", appt.Time).
		Msg("appointment created")

	return nil
}

func (s *ReservationService) validate(appt *models.Appointment) error {
	if strings.TrimSpace(appt.ClientName) == "" {
		return invalidField("name", "required")
	}
	if strings.TrimSpace(appt.Phone) == "" {
		return invalidField("phone", "required")
	}
	if strings.TrimSpace(appt.Email) == "" {
		return invalidField("email", "required")
	}
	if !strings.Contains(appt.Email, "@") {
		return invalidField("email", "malformed")
	}
	if _, ok := s.catalog.ServiceByID(appt.ServiceID); !ok {
		return invalidField("service_id", "unknown service")
	}
	if _, ok := s.catalog.BarberByID(appt.BarberID); !ok {
		return invalidField("barber_id", "unknown barber")
	}
	if _, ok := s.catalog.LocationByID(appt.LocationID); !ok {
		return invalidField("location_id", "unknown location")
	}
	if !calendar.ValidTime(appt.Time) {
		return invalidField("time", "outside working hours")
	}
	return s.ValidateDate(appt.Date)
}

func (s *ReservationService) ValidateDate(date time.Time) error {
	now := s.now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	if date.Before(today) {
		return ErrPastDate
	}
	if date.After(today.AddDate(0, 0, s.maxBookingDays)) {
		return ErrDateTooFar
	}
	return nil
}

func (s *ReservationService) publishEvent(eventType string, appt *models.Appointment) {
	if s.eventBus == nil {
		return
	}

	payload := events.AppointmentEventPayload{
		AppointmentID: appt.ID,
		ClientName:    appt.ClientName,
		Phone:         appt.Phone,
		ServiceID:     appt.ServiceID,
		BarberID:      appt.BarberID,
		LocationID:    appt.LocationID,
		Status:        appt.Status,
		Date:          appt.Date,
		Time:          appt.Time,
	}

	if err := s.eventBus.PublishJSON(eventType, payload); err != nil {
		s.logger.Error().Err(err).Str("event_type", eventType).Int64("appointment_id", appt.ID).Msg("publish event error")
	}
}

func (s *ReservationService) enqueueSync(ctx context.Context, appt *models.Appointment, taskType string) {
	if s.sheetsWorker == nil {
		return
	}

	var status string
	if taskType == "update_status" {
		status = appt.Status
	}

	if err := s.sheetsWorker.EnqueueTask(ctx, taskType, appt.ID, appt, status); err != nil {
		s.logger.Error().Err(err).Int64("appointment_id", appt.ID).Str("task", taskType).Msg("sheets enqueue error")
	}
}
