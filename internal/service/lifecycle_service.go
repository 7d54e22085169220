package service

import (
	"context"
	"errors"
	"time"

	"bigman/internal/calendar"
	"bigman/internal/database"
	"bigman/internal/domain"
	"bigman/internal/events"
	"bigman/internal/metrics"
	"bigman/internal/models"

	"github.com/rs/zerolog"
)

var statusEvents = map[string]string{
	models.StatusConfirmed: events.EventAppointmentConfirmed,
	models.StatusCancelled: events.EventAppointmentCancelled,
	models.StatusCompleted: events.EventAppointmentCompleted,
}

type LifecycleService struct {
	repo         domain.Repository
	eventBus     domain.EventPublisher
	sheetsWorker domain.SyncWorker
	logger       *zerolog.Logger
}

func NewLifecycleService(repo domain.Repository, eventBus domain.EventPublisher, sheetsWorker domain.SyncWorker, logger *zerolog.Logger) *LifecycleService {
	return &LifecycleService{
		repo:         repo,
		eventBus:     eventBus,
		sheetsWorker: sheetsWorker,
		logger:       logger,
	}
}

// Transition moves an appointment to the target status. Re-applying a
// transition the appointment already holds succeeds without a write.
func (s *LifecycleService) Transition(ctx context.Context, id int64, target string) (*models.Appointment, error) {
	if !models.ValidStatus(target) {
		return nil, invalidField("status", "unknown status")
	}

	appt, err := s.repo.GetAppointment(ctx, id)
	if err != nil {
		return nil, err
	}

	if appt.Status == target {
		return appt, nil
	}
	if !models.CanTransition(appt.Status, target) {
		return nil, ErrInvalidTransition
	}

	err = s.repo.UpdateAppointmentStatusIf(ctx, id, appt.Status, target)
	if errors.Is(err, database.ErrConcurrentModification) {
		// Lost the race; re-read and decide again
		appt, err = s.repo.GetAppointment(ctx, id)
		if err != nil {
			return nil, err
		}
		if appt.Status == target {
			return appt, nil
		}
		return nil, ErrInvalidTransition
	}
	if err != nil {
		return nil, err
	}

	appt.Status = target
	metrics.IncStatusTransition(target)

	if eventType, ok := statusEvents[target]; ok {
		s.publishEvent(eventType, appt)
	}
	s.enqueueSync(ctx, appt, "update_status")

	s.logger.Info().Int64("appointment_id", id).Str("status", target).Msg("appointment status changed")
	return appt, nil
}

// Reschedule moves an active appointment to a new slot.
func (s *LifecycleService) Reschedule(ctx context.Context, id int64, date time.Time, slot string) (*models.Appointment, error) {
	if !calendar.ValidTime(slot) {
		return nil, invalidField("time", "outside working hours")
	}

	appt, err := s.repo.GetAppointment(ctx, id)
	if err != nil {
		return nil, err
	}
	if models.IsTerminal(appt.Status) {
		return nil, ErrInvalidTransition
	}

	moved, err := s.repo.RescheduleAppointment(ctx, id, date, slot)
	if errors.Is(err, database.ErrTerminalStatus) {
		// A cancel or completion slipped in after the read above
		return nil, ErrInvalidTransition
	}
	if err != nil {
		return nil, err
	}

	s.publishEvent(events.EventAppointmentRescheduled, moved)
	s.enqueueSync(ctx, moved, "upsert")

	s.logger.Info().
		Int64("appointment_id", id).
		Str("date", date.Format("2006-01-02")).
		Str("time", slot).
		Msg("appointment rescheduled")
	return moved, nil
}

func (s *LifecycleService) Get(ctx context.Context, id int64) (*models.Appointment, error) {
	return s.repo.GetAppointment(ctx, id)
}

func (s *LifecycleService) List(ctx context.Context) ([]*models.Appointment, error) {
	return s.repo.ListAppointments(ctx)
}

func (s *LifecycleService) ListByStatus(ctx context.Context, status string) ([]*models.Appointment, error) {
	if !models.ValidStatus(status) {
		return nil, invalidField("status", "unknown status")
	}
	return s.repo.ListAppointmentsByStatus(ctx, status)
}

func (s *LifecycleService) ListByDateRange(ctx context.Context, start, end time.Time) ([]*models.Appointment, error) {
	return s.repo.ListAppointmentsByDateRange(ctx, start, end)
}

func (s *LifecycleService) publishEvent(eventType string, appt *models.Appointment) {
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

func (s *LifecycleService) enqueueSync(ctx context.Context, appt *models.Appointment, taskType string) {
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
