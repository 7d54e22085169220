package wizard

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"bigman/internal/calendar"
	"bigman/internal/database"
	"bigman/internal/domain"
	"bigman/internal/metrics"
	"bigman/internal/models"
	"bigman/internal/service"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var (
	ErrSessionNotFound = errors.New("session not found")

	// ErrStepMismatch is returned when an operation does not apply to
	// the session's current step.
	ErrStepMismatch = errors.New("operation not allowed at this step")

	ErrRateLimited = errors.New("too many sessions opened")
)

// Limits on session creation per client address.
const (
	startLimit  = 20
	startWindow = time.Minute
)

// StepInput carries the client's choices for one wizard advance.
// Zero fields mean "not provided".
type StepInput struct {
	ServiceID  int64  `json:"service_id,omitempty"`
	BarberID   int64  `json:"barber_id,omitempty"`
	LocationID int64  `json:"location_id,omitempty"`
	Date       string `json:"date,omitempty"`
	Time       string `json:"time,omitempty"`
	ClientName string `json:"name,omitempty"`
	Phone      string `json:"phone,omitempty"`
	Email      string `json:"email,omitempty"`
}

// stepOrder drives Back; forward moves are gated per step in Next.
var stepOrder = []string{
	models.StepSelectingService,
	models.StepSelectingBarberLocation,
	models.StepSelectingDateTime,
	models.StepConfirmingDetails,
	models.StepSubmitted,
}

type Manager struct {
	sessions     domain.SessionRepository
	availability domain.AvailabilityService
	reservation  domain.ReservationService
	catalog      *models.Catalog
	logger       *zerolog.Logger

	// Счётчик открытых сессий; истёкшие не учитываются
	open atomic.Int64
}

func NewManager(sessions domain.SessionRepository, availability domain.AvailabilityService, reservation domain.ReservationService, catalog *models.Catalog, logger *zerolog.Logger) *Manager {
	return &Manager{
		sessions:     sessions,
		availability: availability,
		reservation:  reservation,
		catalog:      catalog,
		logger:       logger,
	}
}

// Start opens a fresh session at the first step. clientKey identifies
// the caller for rate limiting; empty skips the check.
func (m *Manager) Start(ctx context.Context, clientKey string) (*models.BookingSession, error) {
	if clientKey != "" {
		allowed, err := m.sessions.CheckRateLimit(ctx, "wizard_start:"+clientKey, startLimit, startWindow)
		if err != nil {
			// Лимитер недоступен; бронирование важнее
			m.logger.Warn().Err(err).Msg("session rate limit check failed")
		} else if !allowed {
			return nil, ErrRateLimited
		}
	}

	now := time.Now()
	session := &models.BookingSession{
		Token:     uuid.NewString(),
		Step:      models.StepSelectingService,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := m.sessions.SetSession(ctx, session); err != nil {
		return nil, err
	}
	metrics.SetActiveSessions(float64(m.open.Add(1)))
	return session, nil
}

func (m *Manager) Get(ctx context.Context, token string) (*models.BookingSession, error) {
	session, err := m.sessions.GetSession(ctx, token)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, ErrSessionNotFound
	}
	return session, nil
}

// Next merges the input into the selection and advances one step.
// The advance is refused until the current step's fields are valid.
func (m *Manager) Next(ctx context.Context, token string, input StepInput) (*models.BookingSession, error) {
	session, err := m.Get(ctx, token)
	if err != nil {
		return nil, err
	}

	switch session.Step {
	case models.StepSelectingService:
		if err := m.applyService(session, input); err != nil {
			return nil, err
		}
		session.Step = models.StepSelectingBarberLocation

	case models.StepSelectingBarberLocation:
		if err := m.applyBarberLocation(session, input); err != nil {
			return nil, err
		}
		session.Step = models.StepSelectingDateTime

	case models.StepSelectingDateTime:
		if err := m.applyDateTime(ctx, session, input); err != nil {
			return nil, err
		}
		session.Step = models.StepConfirmingDetails

	default:
		return nil, ErrStepMismatch
	}

	session.UpdatedAt = time.Now()
	if err := m.sessions.SetSession(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

// Back steps one step backwards. The selection survives untouched, so
// going forward again re-offers the previous choices.
func (m *Manager) Back(ctx context.Context, token string) (*models.BookingSession, error) {
	session, err := m.Get(ctx, token)
	if err != nil {
		return nil, err
	}

	idx := stepIndex(session.Step)
	if idx <= 0 || session.Step == models.StepSubmitted {
		return nil, ErrStepMismatch
	}

	session.Step = stepOrder[idx-1]
	session.UpdatedAt = time.Now()
	if err := m.sessions.SetSession(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

// Submit merges the contact details and hands the completed selection
// to the reservation service. The session stays at ConfirmingDetails
// when the claim fails, so the client can pick another slot.
func (m *Manager) Submit(ctx context.Context, token string, input StepInput) (*models.BookingSession, error) {
	session, err := m.Get(ctx, token)
	if err != nil {
		return nil, err
	}
	if session.Step != models.StepConfirmingDetails {
		return nil, ErrStepMismatch
	}

	if input.ClientName != "" {
		session.Selection.ClientName = input.ClientName
	}
	if input.Phone != "" {
		session.Selection.Phone = input.Phone
	}
	if input.Email != "" {
		session.Selection.Email = input.Email
	}

	date, err := calendar.ParseDate(session.Selection.Date)
	if err != nil {
		return nil, &service.ValidationError{Field: "date", Reason: "malformed"}
	}

	appt := &models.Appointment{
		ClientName: session.Selection.ClientName,
		Phone:      session.Selection.Phone,
		Email:      session.Selection.Email,
		ServiceID:  session.Selection.ServiceID,
		BarberID:   session.Selection.BarberID,
		LocationID: session.Selection.LocationID,
		Date:       date,
		Time:       session.Selection.Time,
	}

	if err := m.reservation.Submit(ctx, appt); err != nil {
		return nil, err
	}

	session.Step = models.StepSubmitted
	session.AppointmentID = appt.ID
	session.UpdatedAt = time.Now()
	if n := m.open.Add(-1); n >= 0 {
		metrics.SetActiveSessions(float64(n))
	}
	if err := m.sessions.SetSession(ctx, session); err != nil {
		// Запись уже создана; сессия догонит при следующем чтении
		m.logger.Error().Err(err).Str("token", token).Msg("failed to persist submitted session")
	}
	return session, nil
}

// Abandon discards a session before submission.
func (m *Manager) Abandon(ctx context.Context, token string) error {
	session, err := m.Get(ctx, token)
	if err != nil {
		return err
	}
	if session.Step == models.StepSubmitted {
		return ErrStepMismatch
	}

	if err := m.sessions.DeleteSession(ctx, token); err != nil {
		return err
	}
	if n := m.open.Add(-1); n >= 0 {
		metrics.SetActiveSessions(float64(n))
	}
	return nil
}

func (m *Manager) applyService(session *models.BookingSession, input StepInput) error {
	if input.ServiceID == 0 {
		return &service.ValidationError{Field: "service_id", Reason: "required"}
	}
	if _, ok := m.catalog.ServiceByID(input.ServiceID); !ok {
		return &service.ValidationError{Field: "service_id", Reason: "unknown service"}
	}
	session.Selection.ServiceID = input.ServiceID
	return nil
}

func (m *Manager) applyBarberLocation(session *models.BookingSession, input StepInput) error {
	if input.BarberID == 0 {
		return &service.ValidationError{Field: "barber_id", Reason: "required"}
	}
	if _, ok := m.catalog.BarberByID(input.BarberID); !ok {
		return &service.ValidationError{Field: "barber_id", Reason: "unknown barber"}
	}
	if input.LocationID == 0 {
		return &service.ValidationError{Field: "location_id", Reason: "required"}
	}
	if _, ok := m.catalog.LocationByID(input.LocationID); !ok {
		return &service.ValidationError{Field: "location_id", Reason: "unknown location"}
	}
	session.Selection.BarberID = input.BarberID
	session.Selection.LocationID = input.LocationID
	return nil
}

func (m *Manager) applyDateTime(ctx context.Context, session *models.BookingSession, input StepInput) error {
	if input.Date == "" {
		return &service.ValidationError{Field: "date", Reason: "required"}
	}
	date, err := calendar.ParseDate(input.Date)
	if err != nil {
		return &service.ValidationError{Field: "date", Reason: "malformed"}
	}
	if !calendar.ValidTime(input.Time) {
		return &service.ValidationError{Field: "time", Reason: "outside working hours"}
	}

	// Advisory check; the reservation service re-checks atomically
	slots, err := m.availability.Slots(ctx, session.Selection.BarberID, session.Selection.LocationID, date)
	if err != nil {
		return err
	}
	free := false
	for _, s := range slots {
		if s.Time == input.Time {
			free = s.Available
			break
		}
	}
	if !free {
		return database.ErrSlotTaken
	}

	session.Selection.Date = input.Date
	session.Selection.Time = input.Time
	return nil
}

func stepIndex(step string) int {
	for i, s := range stepOrder {
		if s == step {
			return i
		}
	}
	return -1
}
