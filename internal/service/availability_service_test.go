package service

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAvailabilityService(repo *mockRepository) *AvailabilityService {
	logger := zerolog.New(io.Discard)
	svc := NewAvailabilityService(repo, testCatalog(), &logger)
	svc.now = func() time.Time { return time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC) }
	return svc
}

func TestSlots(t *testing.T) {
	repo := new(mockRepository)
	svc := newAvailabilityService(repo)
	ctx := context.Background()
	date := time.Date(2026, 8, 10, 0, 0, 0, 0, time.UTC)

	repo.On("ClaimedTimes", ctx, int64(1), int64(1), date).
		Return(map[string]bool{"10:00": true, "15:30": true}, nil).Once()

	slots, err := svc.Slots(ctx, 1, 1, date)
	require.NoError(t, err)
	require.Len(t, slots, 23)

	byTime := make(map[string]bool, len(slots))
	for _, s := range slots {
		byTime[s.Time] = s.Available
	}
	assert.False(t, byTime["10:00"])
	assert.False(t, byTime["15:30"])
	assert.True(t, byTime["09:00"])
	assert.True(t, byTime["20:00"])
	repo.AssertExpectations(t)
}

func TestSlotsPastDate(t *testing.T) {
	repo := new(mockRepository)
	svc := newAvailabilityService(repo)
	ctx := context.Background()

	slots, err := svc.Slots(ctx, 1, 1, time.Date(2026, 7, 20, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Empty(t, slots)

	// No query for days that cannot be booked
	repo.AssertNotCalled(t, "ClaimedTimes")
}

func TestSlotsUnknownBarber(t *testing.T) {
	svc := newAvailabilityService(new(mockRepository))
	ctx := context.Background()

	_, err := svc.Slots(ctx, 99, 1, time.Date(2026, 8, 10, 0, 0, 0, 0, time.UTC))
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "barber_id", vErr.Field)
}

func TestMonthAvailability(t *testing.T) {
	repo := new(mockRepository)
	svc := newAvailabilityService(repo)
	ctx := context.Background()
	start := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)

	// 23 slots per day: the 3rd is fully booked, the 5th partly
	repo.On("ClaimedCountsForPeriod", ctx, int64(1), int64(1), start, 30).
		Return(map[string]int{"2026-09-03": 23, "2026-09-05": 10}, nil).Once()

	available, err := svc.MonthAvailability(ctx, 1, 1, 2026, 9)
	require.NoError(t, err)
	assert.False(t, available["2026-09-03"])
	assert.True(t, available["2026-09-05"])
	assert.True(t, available["2026-09-01"])
	assert.Len(t, available, 30)
	repo.AssertExpectations(t)
}

// Days before today never show as bookable, matching the day view.
func TestMonthAvailabilityPastDays(t *testing.T) {
	repo := new(mockRepository)
	svc := newAvailabilityService(repo) // now = 2026-08-01
	ctx := context.Background()

	july := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	repo.On("ClaimedCountsForPeriod", ctx, int64(1), int64(1), july, 31).
		Return(map[string]int{}, nil).Once()

	available, err := svc.MonthAvailability(ctx, 1, 1, 2026, 7)
	require.NoError(t, err)
	require.Len(t, available, 31)
	for dateStr, free := range available {
		assert.False(t, free, "date %s", dateStr)
	}

	august := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	repo.On("ClaimedCountsForPeriod", ctx, int64(1), int64(1), august, 31).
		Return(map[string]int{}, nil).Once()

	available, err = svc.MonthAvailability(ctx, 1, 1, 2026, 8)
	require.NoError(t, err)
	assert.True(t, available["2026-08-01"]) // today stays bookable
	assert.True(t, available["2026-08-31"])
	repo.AssertExpectations(t)
}
