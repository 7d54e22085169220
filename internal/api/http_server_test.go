package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"bigman/internal/config"
	"bigman/internal/database"
	"bigman/internal/export"
	"bigman/internal/models"
	"bigman/internal/repository"
	"bigman/internal/service"
	"bigman/internal/wizard"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

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

func newTestServer(t *testing.T, cfg *config.Config) (*HTTPServer, *database.DB) {
	t.Helper()

	db, err := database.NewDB(filepath.Join(t.TempDir(), "api.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	logger := zerolog.New(io.Discard)
	catalog := testCatalog()

	reservation := service.NewReservationService(db, catalog, nil, nil, 60, &logger)
	availability := service.NewAvailabilityService(db, catalog, &logger)
	lifecycle := service.NewLifecycleService(db, nil, nil, &logger)
	products := service.NewProductService(db)
	sessions := repository.NewMemorySessionRepository(time.Hour)
	wizardManager := wizard.NewManager(sessions, availability, reservation, catalog, &logger)
	exporter := export.NewExporter(db, db, catalog, t.TempDir(), &logger)

	srv := NewHTTPServer(cfg, catalog, reservation, availability, lifecycle, products, wizardManager, exporter, &logger)
	return srv, db
}

func openConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{Port: 0},
	}
}

func doJSON(t *testing.T, handler http.Handler, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), dst))
}

func futureDate(days int) string {
	return time.Now().AddDate(0, 0, days).Format("2006-01-02")
}

func validAppointmentBody(date string) map[string]any {
	return map[string]any{
		"name":        "João Silva",
		"phone":       "+5511999990000",
		"email":       "joao@example.com",
		"service_id":  1,
		"barber_id":   1,
		"location_id": 1,
		"date":        date,
		"time":        "10:00",
	}
}

func TestCreateAppointment(t *testing.T) {
	srv, _ := newTestServer(t, openConfig())
	h := srv.Handler()
	date := futureDate(7)

	rec := doJSON(t, h, http.MethodPost, "/api/v1/appointments", validAppointmentBody(date), nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp struct {
		ID int64 `json:"id"`
	}
	decodeResponse(t, rec, &resp)
	assert.NotZero(t, resp.ID)

	// Same slot again conflicts
	rec = doJSON(t, h, http.MethodPost, "/api/v1/appointments", validAppointmentBody(date), nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	var errResp map[string]string
	decodeResponse(t, rec, &errResp)
	assert.Contains(t, errResp["error"], "slot")
}

func TestCreateAppointmentValidation(t *testing.T) {
	srv, _ := newTestServer(t, openConfig())
	h := srv.Handler()

	tests := []struct {
		name   string
		mutate func(map[string]any)
	}{
		{"MissingName", func(b map[string]any) { b["name"] = "" }},
		{"MissingPhone", func(b map[string]any) { b["phone"] = "" }},
		{"MissingEmail", func(b map[string]any) { b["email"] = "" }},
		{"UnknownService", func(b map[string]any) { b["service_id"] = 99 }},
		{"UnknownBarber", func(b map[string]any) { b["barber_id"] = 99 }},
		{"TimeOffGrid", func(b map[string]any) { b["time"] = "10:15" }},
		{"TimeAfterClose", func(b map[string]any) { b["time"] = "21:00" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := validAppointmentBody(futureDate(7))
			tt.mutate(body)
			rec := doJSON(t, h, http.MethodPost, "/api/v1/appointments", body, nil)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}

	t.Run("PastDate", func(t *testing.T) {
		rec := doJSON(t, h, http.MethodPost, "/api/v1/appointments", validAppointmentBody("2020-01-01"), nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("MalformedDate", func(t *testing.T) {
		rec := doJSON(t, h, http.MethodPost, "/api/v1/appointments", validAppointmentBody("07/09/2026"), nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestAvailability(t *testing.T) {
	srv, _ := newTestServer(t, openConfig())
	h := srv.Handler()
	date := futureDate(7)

	rec := doJSON(t, h, http.MethodPost, "/api/v1/appointments", validAppointmentBody(date), nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, h, http.MethodGet, "/api/v1/availability?barber_id=1&location_id=1&date="+date, nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Date  string        `json:"date"`
		Slots []models.Slot `json:"slots"`
	}
	decodeResponse(t, rec, &resp)
	require.Len(t, resp.Slots, 23)

	taken := 0
	for _, slot := range resp.Slots {
		if !slot.Available {
			taken++
			assert.Equal(t, "10:00", slot.Time)
		}
	}
	assert.Equal(t, 1, taken)

	t.Run("MissingBarber", func(t *testing.T) {
		rec := doJSON(t, h, http.MethodGet, "/api/v1/availability?location_id=1&date="+date, nil, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("UnknownBarber", func(t *testing.T) {
		rec := doJSON(t, h, http.MethodGet, "/api/v1/availability?barber_id=99&location_id=1&date="+date, nil, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestAppointmentLifecycle(t *testing.T) {
	srv, _ := newTestServer(t, openConfig())
	h := srv.Handler()
	date := futureDate(7)

	rec := doJSON(t, h, http.MethodPost, "/api/v1/appointments", validAppointmentBody(date), nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	var created struct {
		ID int64 `json:"id"`
	}
	decodeResponse(t, rec, &created)

	base := fmt.Sprintf("/api/v1/appointments/%d", created.ID)

	t.Run("Get", func(t *testing.T) {
		rec := doJSON(t, h, http.MethodGet, base, nil, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		var appt models.Appointment
		decodeResponse(t, rec, &appt)
		assert.Equal(t, models.StatusPending, appt.Status)
		assert.Equal(t, "João Silva", appt.ClientName)
	})

	t.Run("GetMissing", func(t *testing.T) {
		rec := doJSON(t, h, http.MethodGet, "/api/v1/appointments/9999", nil, nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("Confirm", func(t *testing.T) {
		rec := doJSON(t, h, http.MethodPatch, base+"/status", map[string]string{"status": "confirmed"}, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		var appt models.Appointment
		decodeResponse(t, rec, &appt)
		assert.Equal(t, models.StatusConfirmed, appt.Status)
	})

	t.Run("ConfirmAgainIsIdempotent", func(t *testing.T) {
		rec := doJSON(t, h, http.MethodPatch, base+"/status", map[string]string{"status": "confirmed"}, nil)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("BackToPendingRefused", func(t *testing.T) {
		rec := doJSON(t, h, http.MethodPatch, base+"/status", map[string]string{"status": "pending"}, nil)
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	})

	t.Run("UnknownStatus", func(t *testing.T) {
		rec := doJSON(t, h, http.MethodPatch, base+"/status", map[string]string{"status": "archived"}, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("Reschedule", func(t *testing.T) {
		rec := doJSON(t, h, http.MethodPatch, base+"/reschedule", map[string]string{"date": futureDate(8), "time": "14:30"}, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		var appt models.Appointment
		decodeResponse(t, rec, &appt)
		assert.Equal(t, "14:30", appt.Time)
	})

	t.Run("Complete", func(t *testing.T) {
		rec := doJSON(t, h, http.MethodPatch, base+"/status", map[string]string{"status": "completed"}, nil)
		require.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("RescheduleCompletedRefused", func(t *testing.T) {
		rec := doJSON(t, h, http.MethodPatch, base+"/reschedule", map[string]string{"date": futureDate(9), "time": "15:00"}, nil)
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	})
}

func TestRescheduleConflict(t *testing.T) {
	srv, _ := newTestServer(t, openConfig())
	h := srv.Handler()
	date := futureDate(7)

	rec := doJSON(t, h, http.MethodPost, "/api/v1/appointments", validAppointmentBody(date), nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	var first struct {
		ID int64 `json:"id"`
	}
	decodeResponse(t, rec, &first)

	second := validAppointmentBody(date)
	second["time"] = "11:00"
	rec = doJSON(t, h, http.MethodPost, "/api/v1/appointments", second, nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	var other struct {
		ID int64 `json:"id"`
	}
	decodeResponse(t, rec, &other)

	rec = doJSON(t, h, http.MethodPatch, fmt.Sprintf("/api/v1/appointments/%d/reschedule", other.ID),
		map[string]string{"date": date, "time": "10:00"}, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestListAppointments(t *testing.T) {
	srv, _ := newTestServer(t, openConfig())
	h := srv.Handler()

	// Later date first to verify ordering
	late := validAppointmentBody(futureDate(10))
	rec := doJSON(t, h, http.MethodPost, "/api/v1/appointments", late, nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	early := validAppointmentBody(futureDate(5))
	rec = doJSON(t, h, http.MethodPost, "/api/v1/appointments", early, nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, h, http.MethodGet, "/api/v1/appointments", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Appointments []models.Appointment `json:"appointments"`
	}
	decodeResponse(t, rec, &resp)
	require.Len(t, resp.Appointments, 2)
	assert.True(t, resp.Appointments[0].Date.Before(resp.Appointments[1].Date))

	t.Run("StatusFilter", func(t *testing.T) {
		rec := doJSON(t, h, http.MethodGet, "/api/v1/appointments?status=confirmed", nil, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		var resp struct {
			Appointments []models.Appointment `json:"appointments"`
		}
		decodeResponse(t, rec, &resp)
		assert.Empty(t, resp.Appointments)
	})

	t.Run("UnknownStatusFilter", func(t *testing.T) {
		rec := doJSON(t, h, http.MethodGet, "/api/v1/appointments?status=archived", nil, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestWizardOverHTTP(t *testing.T) {
	srv, _ := newTestServer(t, openConfig())
	h := srv.Handler()
	date := futureDate(7)

	rec := doJSON(t, h, http.MethodPost, "/api/v1/sessions", nil, nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	var session sessionResponse
	decodeResponse(t, rec, &session)
	require.NotEmpty(t, session.Token)
	require.Equal(t, models.StepSelectingService, session.Step)

	base := "/api/v1/sessions/" + session.Token

	rec = doJSON(t, h, http.MethodPost, base+"/next", map[string]any{"service_id": 1}, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decodeResponse(t, rec, &session)
	require.Equal(t, models.StepSelectingBarberLocation, session.Step)

	rec = doJSON(t, h, http.MethodPost, base+"/next", map[string]any{"barber_id": 1, "location_id": 1}, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, h, http.MethodPost, base+"/next", map[string]any{"date": date, "time": "11:00"}, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decodeResponse(t, rec, &session)
	require.Equal(t, models.StepConfirmingDetails, session.Step)

	t.Run("BackAndForward", func(t *testing.T) {
		rec := doJSON(t, h, http.MethodPost, base+"/back", nil, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		var s sessionResponse
		decodeResponse(t, rec, &s)
		assert.Equal(t, models.StepSelectingDateTime, s.Step)
		assert.Equal(t, date, s.Selection.Date)

		rec = doJSON(t, h, http.MethodPost, base+"/next", map[string]any{"date": date, "time": "11:00"}, nil)
		require.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("SubmitWithoutEmailRefused", func(t *testing.T) {
		rec := doJSON(t, h, http.MethodPost, base+"/submit", map[string]any{"name": "João Silva", "phone": "+5511999990000"}, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		// Отказ оставляет сессию на шаге подтверждения
		rec = doJSON(t, h, http.MethodGet, base, nil, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		var s sessionResponse
		decodeResponse(t, rec, &s)
		assert.Equal(t, models.StepConfirmingDetails, s.Step)
	})

	rec = doJSON(t, h, http.MethodPost, base+"/submit", map[string]any{"name": "João Silva", "phone": "+5511999990000", "email": "joao@example.com"}, nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	decodeResponse(t, rec, &session)
	assert.Equal(t, models.StepSubmitted, session.Step)
	assert.NotZero(t, session.AppointmentID)

	t.Run("SubmitAgainRefused", func(t *testing.T) {
		rec := doJSON(t, h, http.MethodPost, base+"/submit", map[string]any{}, nil)
		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("MissingSession", func(t *testing.T) {
		rec := doJSON(t, h, http.MethodGet, "/api/v1/sessions/no-such-token", nil, nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("AbandonSubmittedRefused", func(t *testing.T) {
		rec := doJSON(t, h, http.MethodDelete, base, nil, nil)
		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("Abandon", func(t *testing.T) {
		rec := doJSON(t, h, http.MethodPost, "/api/v1/sessions", nil, nil)
		require.Equal(t, http.StatusCreated, rec.Code)
		var s sessionResponse
		decodeResponse(t, rec, &s)

		rec = doJSON(t, h, http.MethodDelete, "/api/v1/sessions/"+s.Token, nil, nil)
		assert.Equal(t, http.StatusNoContent, rec.Code)

		rec = doJSON(t, h, http.MethodGet, "/api/v1/sessions/"+s.Token, nil, nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestSessionStartRateLimited(t *testing.T) {
	srv, _ := newTestServer(t, openConfig())
	h := srv.Handler()

	var tooMany int
	for i := 0; i < 25; i++ {
		rec := doJSON(t, h, http.MethodPost, "/api/v1/sessions", nil, nil)
		if rec.Code == http.StatusTooManyRequests {
			tooMany++
		} else {
			require.Equal(t, http.StatusCreated, rec.Code)
		}
	}
	assert.Equal(t, 5, tooMany)
}

func TestCatalogEndpoint(t *testing.T) {
	srv, _ := newTestServer(t, openConfig())

	rec := doJSON(t, srv.Handler(), http.MethodGet, "/api/v1/catalog", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var catalog models.Catalog
	decodeResponse(t, rec, &catalog)
	assert.Len(t, catalog.Services, 2)
	assert.Len(t, catalog.Barbers, 2)
	assert.Equal(t, "BIG MAN Barber Shopp", catalog.Locations[0].Name)
}

func TestProductsCRUD(t *testing.T) {
	srv, _ := newTestServer(t, openConfig())
	h := srv.Handler()

	body := map[string]any{
		"name":        "Pomada modeladora",
		"description": "Fixação forte",
		"price_cents": 3500,
		"stock":       12,
	}
	rec := doJSON(t, h, http.MethodPost, "/api/v1/products", body, nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	var product models.Product
	decodeResponse(t, rec, &product)
	require.NotZero(t, product.ID)

	base := fmt.Sprintf("/api/v1/products/%d", product.ID)

	t.Run("List", func(t *testing.T) {
		rec := doJSON(t, h, http.MethodGet, "/api/v1/products", nil, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		var resp struct {
			Products []models.Product `json:"products"`
		}
		decodeResponse(t, rec, &resp)
		require.Len(t, resp.Products, 1)
	})

	t.Run("Update", func(t *testing.T) {
		body["price_cents"] = 4000
		rec := doJSON(t, h, http.MethodPut, base, body, nil)
		require.Equal(t, http.StatusOK, rec.Code)

		rec = doJSON(t, h, http.MethodGet, base, nil, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		var got models.Product
		decodeResponse(t, rec, &got)
		assert.Equal(t, int64(4000), got.PriceCents)
	})

	t.Run("InvalidPrice", func(t *testing.T) {
		bad := map[string]any{"name": "x", "price_cents": -1}
		rec := doJSON(t, h, http.MethodPost, "/api/v1/products", bad, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("Delete", func(t *testing.T) {
		rec := doJSON(t, h, http.MethodDelete, base, nil, nil)
		require.Equal(t, http.StatusNoContent, rec.Code)

		rec = doJSON(t, h, http.MethodGet, base, nil, nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestExportEndpoint(t *testing.T) {
	srv, _ := newTestServer(t, openConfig())
	h := srv.Handler()

	rec := doJSON(t, h, http.MethodPost, "/api/v1/export",
		map[string]string{"start_date": futureDate(0), "end_date": futureDate(7)}, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]string
	decodeResponse(t, rec, &resp)
	assert.Contains(t, resp["file"], ".xlsx")

	t.Run("InvertedRange", func(t *testing.T) {
		rec := doJSON(t, h, http.MethodPost, "/api/v1/export",
			map[string]string{"start_date": futureDate(7), "end_date": futureDate(0)}, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t, openConfig())

	rec := doJSON(t, srv.Handler(), http.MethodGet, "/healthz", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequestIDHeader(t *testing.T) {
	srv, _ := newTestServer(t, openConfig())

	rec := doJSON(t, srv.Handler(), http.MethodGet, "/healthz", nil, nil)
	assert.NotEmpty(t, rec.Header().Get(requestIDHeader))

	rec = doJSON(t, srv.Handler(), http.MethodGet, "/healthz", nil, map[string]string{requestIDHeader: "trace-123"})
	assert.Equal(t, "trace-123", rec.Header().Get(requestIDHeader))
}
