package service

import (
	"context"
	"io"
	"testing"
	"time"

	"bigman/internal/database"
	"bigman/internal/domain"
	"bigman/internal/events"
	"bigman/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// Collaborators are taken as interfaces so a literal nil stays a nil
// interface and trips the service's nil guards.
func newReservationService(repo *mockRepository, bus domain.EventPublisher, worker domain.SyncWorker) *ReservationService {
	logger := zerolog.New(io.Discard)
	svc := NewReservationService(repo, testCatalog(), bus, worker, 60, &logger)
	svc.now = func() time.Time { return time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC) }
	return svc
}

func validAppointment() *models.Appointment {
	return &models.Appointment{
		ClientName: "João Silva",
		Phone:      "+5511999990000",
		Email:      "joao@example.com",
		ServiceID:  1,
		BarberID:   1,
		LocationID: 1,
		Date:       time.Date(2026, 8, 10, 0, 0, 0, 0, time.UTC),
		Time:       "10:00",
	}
}

func TestSubmit(t *testing.T) {
	repo := new(mockRepository)
	bus := new(mockPublisher)
	worker := new(mockSyncWorker)
	svc := newReservationService(repo, bus, worker)
	ctx := context.Background()

	appt := validAppointment()
	repo.On("ClaimSlot", ctx, appt).Return(nil).Once()
	bus.On("PublishJSON", events.EventAppointmentCreated, mock.Anything).Return(nil).Once()
	worker.On("EnqueueTask", ctx, "upsert", mock.Anything, mock.Anything, "").Return(nil).Once()

	err := svc.Submit(ctx, appt)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, appt.Status)
	repo.AssertExpectations(t)
	bus.AssertExpectations(t)
	worker.AssertExpectations(t)
}

// A reservation service without event bus or sheets worker must still
// complete the whole submit path.
func TestSubmitWithoutCollaborators(t *testing.T) {
	repo := new(mockRepository)
	svc := newReservationService(repo, nil, nil)
	ctx := context.Background()

	appt := validAppointment()
	repo.On("ClaimSlot", ctx, appt).Return(nil).Once()

	require.NoError(t, svc.Submit(ctx, appt))
	assert.Equal(t, models.StatusPending, appt.Status)
	repo.AssertExpectations(t)
}

func TestSubmitSlotConflict(t *testing.T) {
	repo := new(mockRepository)
	svc := newReservationService(repo, nil, nil)
	ctx := context.Background()

	appt := validAppointment()
	repo.On("ClaimSlot", ctx, appt).Return(database.ErrSlotTaken).Once()

	err := svc.Submit(ctx, appt)
	assert.ErrorIs(t, err, database.ErrSlotTaken)
	repo.AssertExpectations(t)
}

func TestSubmitValidation(t *testing.T) {
	repo := new(mockRepository)
	svc := newReservationService(repo, nil, nil)
	ctx := context.Background()

	tests := []struct {
		name   string
		mutate func(*models.Appointment)
		field  string
	}{
		{"missing name", func(a *models.Appointment) { a.ClientName = "  " }, "name"},
		{"missing phone", func(a *models.Appointment) { a.Phone = "" }, "phone"},
		{"missing email", func(a *models.Appointment) { a.Email = "" }, "email"},
		{"blank email", func(a *models.Appointment) { a.Email = "   " }, "email"},
		{"bad email", func(a *models.Appointment) { a.Email = "not-an-email" }, "email"},
		{"unknown service", func(a *models.Appointment) { a.ServiceID = 99 }, "service_id"},
		{"unknown barber", func(a *models.Appointment) { a.BarberID = 99 }, "barber_id"},
		{"unknown location", func(a *models.Appointment) { a.LocationID = 99 }, "location_id"},
		{"time before opening", func(a *models.Appointment) { a.Time = "08:00" }, "time"},
		{"time off the grid", func(a *models.Appointment) { a.Time = "10:15" }, "time"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			appt := validAppointment()
			tt.mutate(appt)

			err := svc.Submit(ctx, appt)
			var vErr *ValidationError
			require.ErrorAs(t, err, &vErr)
			assert.Equal(t, tt.field, vErr.Field)
		})
	}

	// Repo must never see an invalid appointment
	repo.AssertNotCalled(t, "ClaimSlot", mock.Anything, mock.Anything)
}

func TestSubmitDateBounds(t *testing.T) {
	svc := newReservationService(new(mockRepository), nil, nil)
	ctx := context.Background()

	past := validAppointment()
	past.Date = time.Date(2026, 7, 31, 0, 0, 0, 0, time.UTC)
	assert.ErrorIs(t, svc.Submit(ctx, past), ErrPastDate)

	far := validAppointment()
	far.Date = time.Date(2026, 11, 1, 0, 0, 0, 0, time.UTC)
	assert.ErrorIs(t, svc.Submit(ctx, far), ErrDateTooFar)
}

func TestSubmitMissingEmailRejected(t *testing.T) {
	repo := new(mockRepository)
	svc := newReservationService(repo, nil, nil)
	ctx := context.Background()

	appt := validAppointment()
	appt.Email = ""

	err := svc.Submit(ctx, appt)
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "email", vErr.Field)
	repo.AssertNotCalled(t, "ClaimSlot", mock.Anything, mock.Anything)
}
