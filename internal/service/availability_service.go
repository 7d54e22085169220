package service

import (
	"context"
	"time"

	"bigman/internal/calendar"
	"bigman/internal/domain"
	"bigman/internal/models"

	"github.com/rs/zerolog"
)

type AvailabilityService struct {
	repo    domain.Repository
	catalog *models.Catalog
	logger  *zerolog.Logger

	now func() time.Time
}

func NewAvailabilityService(repo domain.Repository, catalog *models.Catalog, logger *zerolog.Logger) *AvailabilityService {
	return &AvailabilityService{
		repo:    repo,
		catalog: catalog,
		logger:  logger,
		now:     time.Now,
	}
}

// Slots returns the canonical half-hour sequence for a day with each
// slot flagged taken or free. Dates before today return an empty list.
func (s *AvailabilityService) Slots(ctx context.Context, barberID, locationID int64, date time.Time) ([]models.Slot, error) {
	if _, ok := s.catalog.BarberByID(barberID); !ok {
		return nil, invalidField("barber_id", "unknown barber")
	}
	if _, ok := s.catalog.LocationByID(locationID); !ok {
		return nil, invalidField("location_id", "unknown location")
	}

	now := s.now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	if date.Before(today) {
		return []models.Slot{}, nil
	}

	taken, err := s.repo.ClaimedTimes(ctx, barberID, locationID, date)
	if err != nil {
		return nil, err
	}

	times := calendar.CanonicalSlots()
	slots := make([]models.Slot, 0, len(times))
	for _, t := range times {
		slots = append(slots, models.Slot{Time: t, Available: !taken[t]})
	}
	return slots, nil
}

// MonthAvailability reports which days of a month still have at least
// one free slot, keyed by YYYY-MM-DD.
func (s *AvailabilityService) MonthAvailability(ctx context.Context, barberID, locationID int64, year, month int) (map[string]bool, error) {
	if _, ok := s.catalog.BarberByID(barberID); !ok {
		return nil, invalidField("barber_id", "unknown barber")
	}
	if _, ok := s.catalog.LocationByID(locationID); !ok {
		return nil, invalidField("location_id", "unknown location")
	}

	start := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	days := start.AddDate(0, 1, 0).Sub(start).Hours() / 24

	counts, err := s.repo.ClaimedCountsForPeriod(ctx, barberID, locationID, start, int(days))
	if err != nil {
		return nil, err
	}

	now := s.now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	slotsPerDay := len(calendar.CanonicalSlots())
	available := make(map[string]bool, int(days))
	for i := 0; i < int(days); i++ {
		date := start.AddDate(0, 0, i)
		dateStr := date.Format("2006-01-02")
		// Days before today are never bookable
		available[dateStr] = !date.Before(today) && counts[dateStr] < slotsPerDay
	}
	return available, nil
}
