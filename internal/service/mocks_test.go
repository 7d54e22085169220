package service

import (
	"context"
	"time"

	"bigman/internal/models"

	"github.com/stretchr/testify/mock"
)

type mockRepository struct {
	mock.Mock
}

func (m *mockRepository) ClaimSlot(ctx context.Context, appt *models.Appointment) error {
	args := m.Called(ctx, appt)
	return args.Error(0)
}

func (m *mockRepository) GetAppointment(ctx context.Context, id int64) (*models.Appointment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Appointment), args.Error(1)
}

func (m *mockRepository) UpdateAppointmentStatusIf(ctx context.Context, id int64, from, to string) error {
	args := m.Called(ctx, id, from, to)
	return args.Error(0)
}

func (m *mockRepository) RescheduleAppointment(ctx context.Context, id int64, date time.Time, slot string) (*models.Appointment, error) {
	args := m.Called(ctx, id, date, slot)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Appointment), args.Error(1)
}

func (m *mockRepository) ListAppointments(ctx context.Context) ([]*models.Appointment, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Appointment), args.Error(1)
}

func (m *mockRepository) ListAppointmentsByStatus(ctx context.Context, status string) ([]*models.Appointment, error) {
	args := m.Called(ctx, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Appointment), args.Error(1)
}

func (m *mockRepository) ListAppointmentsByDateRange(ctx context.Context, start, end time.Time) ([]*models.Appointment, error) {
	args := m.Called(ctx, start, end)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Appointment), args.Error(1)
}

func (m *mockRepository) ClaimedTimes(ctx context.Context, barberID, locationID int64, date time.Time) (map[string]bool, error) {
	args := m.Called(ctx, barberID, locationID, date)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]bool), args.Error(1)
}

func (m *mockRepository) ClaimedCountsForPeriod(ctx context.Context, barberID, locationID int64, startDate time.Time, days int) (map[string]int, error) {
	args := m.Called(ctx, barberID, locationID, startDate, days)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]int), args.Error(1)
}

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) PublishJSON(eventType string, payload interface{}) error {
	args := m.Called(eventType, payload)
	return args.Error(0)
}

type mockSyncWorker struct {
	mock.Mock
}

func (m *mockSyncWorker) EnqueueTask(ctx context.Context, taskType string, appointmentID int64, appt *models.Appointment, status string) error {
	args := m.Called(ctx, taskType, appointmentID, appt, status)
	return args.Error(0)
}

type mockProductRepo struct {
	mock.Mock
}

func (m *mockProductRepo) CreateProduct(ctx context.Context, product *models.Product) error {
	args := m.Called(ctx, product)
	return args.Error(0)
}

func (m *mockProductRepo) GetProduct(ctx context.Context, id int64) (*models.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Product), args.Error(1)
}

func (m *mockProductRepo) ListProducts(ctx context.Context) ([]*models.Product, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Product), args.Error(1)
}

func (m *mockProductRepo) UpdateProduct(ctx context.Context, product *models.Product) error {
	args := m.Called(ctx, product)
	return args.Error(0)
}

func (m *mockProductRepo) DeleteProduct(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func testCatalog() *models.Catalog {
	return &models.Catalog{
		Services: []models.Service{
			{ID: 1, Name: "Corte só máquina", PriceCents: 1800},
			{ID: 2, Name: "Corte e barba", PriceCents: 3500},
		},
		Barbers: []models.Barber{
			{ID: 1, Name: "PW Barber"},
			{ID: 2, Name: "Nilde Santos"},
		},
		Locations: []models.Location{
			{ID: 1, Name: "BIG MAN Barber Shopp"},
		},
	}
}
