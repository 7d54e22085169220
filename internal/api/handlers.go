package api

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"bigman/internal/calendar"
	"bigman/internal/models"
)

type createAppointmentRequest struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	Phone      string `json:"phone"`
	ServiceID  int64  `json:"service_id"`
	BarberID   int64  `json:"barber_id"`
	LocationID int64  `json:"location_id"`
	Date       string `json:"date"`
	Time       string `json:"time"`
}

func (s *HTTPServer) handleCreateAppointment(w http.ResponseWriter, r *http.Request) {
	var body createAppointmentRequest
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	date, err := calendar.ParseDate(body.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date format; expected YYYY-MM-DD")
		return
	}

	appt := &models.Appointment{
		ClientName: body.Name,
		Email:      body.Email,
		Phone:      body.Phone,
		ServiceID:  body.ServiceID,
		BarberID:   body.BarberID,
		LocationID: body.LocationID,
		Date:       date,
		Time:       body.Time,
	}

	if err := s.reservation.Submit(r.Context(), appt); err != nil {
		s.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{"id": appt.ID})
}

func (s *HTTPServer) handleListAppointments(w http.ResponseWriter, r *http.Request) {
	status := strings.TrimSpace(r.URL.Query().Get("status"))

	var (
		appts []*models.Appointment
		err   error
	)
	if status == "" {
		appts, err = s.lifecycle.List(r.Context())
	} else {
		appts, err = s.lifecycle.ListByStatus(r.Context(), status)
	}
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	if appts == nil {
		appts = []*models.Appointment{}
	}

	writeJSON(w, http.StatusOK, map[string]any{"appointments": appts})
}

func (s *HTTPServer) handleGetAppointment(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	appt, err := s.lifecycle.Get(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, appt)
}

func (s *HTTPServer) handleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var body struct {
		Status string `json:"status"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	appt, err := s.lifecycle.Transition(r.Context(), id, body.Status)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, appt)
}

func (s *HTTPServer) handleReschedule(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var body struct {
		Date string `json:"date"`
		Time string `json:"time"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	date, err := calendar.ParseDate(body.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date format; expected YYYY-MM-DD")
		return
	}

	appt, err := s.lifecycle.Reschedule(r.Context(), id, date, body.Time)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, appt)
}

func (s *HTTPServer) handleAvailability(w http.ResponseWriter, r *http.Request) {
	barberID, ok := queryID(w, r, "barber_id")
	if !ok {
		return
	}
	locationID, ok := queryID(w, r, "location_id")
	if !ok {
		return
	}

	dateStr := strings.TrimSpace(r.URL.Query().Get("date"))
	date, err := calendar.ParseDate(dateStr)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date format; expected YYYY-MM-DD")
		return
	}

	slots, err := s.availability.Slots(r.Context(), barberID, locationID, date)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"date":  dateStr,
		"slots": slots,
	})
}

func (s *HTTPServer) handleMonthAvailability(w http.ResponseWriter, r *http.Request) {
	barberID, ok := queryID(w, r, "barber_id")
	if !ok {
		return
	}
	locationID, ok := queryID(w, r, "location_id")
	if !ok {
		return
	}

	year, err := strconv.Atoi(r.URL.Query().Get("year"))
	if err != nil || year < 2000 || year > 2200 {
		writeError(w, http.StatusBadRequest, "year is required")
		return
	}
	month, err := strconv.Atoi(r.URL.Query().Get("month"))
	if err != nil || month < 1 || month > 12 {
		writeError(w, http.StatusBadRequest, "month must be between 1 and 12")
		return
	}

	days, err := s.availability.MonthAvailability(r.Context(), barberID, locationID, year, month)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"year":  year,
		"month": month,
		"days":  days,
	})
}

func (s *HTTPServer) handleCatalog(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.catalog)
}

func (s *HTTPServer) handleExport(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Type      string `json:"type"`
		StartDate string `json:"start_date"`
		EndDate   string `json:"end_date"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if body.Type == "products" {
		filePath, err := s.exporter.ExportProducts(r.Context())
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"file": filePath})
		return
	}

	now := time.Now()
	start := now.AddDate(0, -models.DefaultExportRangeMonthsBefore, 0)
	end := now.AddDate(0, models.DefaultExportRangeMonthsAfter, 0)

	if body.StartDate != "" {
		parsed, err := calendar.ParseDate(body.StartDate)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid start_date format; expected YYYY-MM-DD")
			return
		}
		start = parsed
	}
	if body.EndDate != "" {
		parsed, err := calendar.ParseDate(body.EndDate)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid end_date format; expected YYYY-MM-DD")
			return
		}
		end = parsed
	}
	if end.Before(start) {
		writeError(w, http.StatusBadRequest, "end_date precedes start_date")
		return
	}

	filePath, err := s.exporter.ExportSchedule(r.Context(), start, end)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"file": filePath})
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid id")
		return 0, false
	}
	return id, true
}

func queryID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(r.URL.Query().Get(name), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, name+" is required")
		return 0, false
	}
	return id, true
}
