package calendar

import (
	"fmt"
	"time"

	"bigman/internal/models"
)

// DayCell is a single cell in a month grid. Empty cells pad the first
// and last weeks so every row has seven columns.
type DayCell struct {
	Day       int    `json:"day"`
	Date      string `json:"date,omitempty"`
	Padding   bool   `json:"padding"`
	Past      bool   `json:"past"`
	Available bool   `json:"available"`
}

// MonthGrid is a Monday-first calendar grid for one month.
type MonthGrid struct {
	Year  int         `json:"year"`
	Month int         `json:"month"`
	Weeks [][]DayCell `json:"weeks"`
}

// CanonicalSlots returns the selectable times of a working day, every
// half hour from opening to closing. The closing hour itself is
// bookable.
func CanonicalSlots() []string {
	slots := make([]string, 0, (models.ClosingHour-models.OpeningHour)*60/models.SlotIntervalMin+1)
	for h := models.OpeningHour; h <= models.ClosingHour; h++ {
		for m := 0; m < 60; m += models.SlotIntervalMin {
			if h == models.ClosingHour && m > 0 {
				break
			}
			slots = append(slots, fmt.Sprintf("%02d:%02d", h, m))
		}
	}
	return slots
}

// BuildMonthGrid lays out a month as Monday-first weeks. availableDates
// keys are YYYY-MM-DD strings; nil means every future day is available.
// Days before today are marked past and never available.
func BuildMonthGrid(year, month int, today time.Time, availableDates map[string]bool) MonthGrid {
	firstDay := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	weekdayOffset := int(firstDay.Weekday())
	if weekdayOffset == 0 {
		weekdayOffset = 7 // make Monday-first grid
	}
	daysInMonth := daysIn(time.Month(month), year)
	todayDate := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC)

	weeks := make([][]DayCell, 0, 6)
	day := 1
	for day <= daysInMonth {
		row := make([]DayCell, 0, 7)
		for col := 1; col <= 7; col++ {
			if len(weeks) == 0 && col < weekdayOffset {
				row = append(row, DayCell{Padding: true})
				continue
			}
			if day > daysInMonth {
				row = append(row, DayCell{Padding: true})
				continue
			}
			date := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
			dateStr := fmt.Sprintf("%04d-%02d-%02d", year, month, day)
			past := date.Before(todayDate)
			available := !past && (availableDates == nil || availableDates[dateStr])
			row = append(row, DayCell{
				Day:       day,
				Date:      dateStr,
				Past:      past,
				Available: available,
			})
			day++
		}
		weeks = append(weeks, row)
	}

	return MonthGrid{Year: year, Month: month, Weeks: weeks}
}

// ParseDate parses a YYYY-MM-DD string in UTC.
func ParseDate(s string) (time.Time, error) {
	return time.Parse("2006-01-02", s)
}

// ValidTime reports whether s is one of the canonical slot times.
func ValidTime(s string) bool {
	var h, m int
	if _, err := fmt.Sscanf(s, "%02d:%02d", &h, &m); err != nil {
		return false
	}
	if len(s) != 5 || s[2] != ':' {
		return false
	}
	if h < models.OpeningHour || h > models.ClosingHour {
		return false
	}
	if h == models.ClosingHour && m != 0 {
		return false
	}
	return m%models.SlotIntervalMin == 0 && m < 60
}

func daysIn(m time.Month, year int) int {
	switch m {
	case time.February:
		if (year%4 == 0 && year%100 != 0) || year%400 == 0 {
			return 29
		}
		return 28
	case time.April, time.June, time.September, time.November:
		return 30
	default:
		return 31
	}
}
