package api

import (
	"net"
	"net/http"
	"strings"

	"bigman/internal/models"
	"bigman/internal/wizard"
)

// sessionResponse trims the stored session down to what the client needs
// to render the wizard.
type sessionResponse struct {
	Token         string                  `json:"token"`
	Step          string                  `json:"step"`
	Selection     models.BookingSelection `json:"selection"`
	AppointmentID int64                   `json:"appointment_id,omitempty"`
}

func toSessionResponse(session *models.BookingSession) sessionResponse {
	return sessionResponse{
		Token:         session.Token,
		Step:          session.Step,
		Selection:     session.Selection,
		AppointmentID: session.AppointmentID,
	}
}

func (s *HTTPServer) handleSessionStart(w http.ResponseWriter, r *http.Request) {
	session, err := s.wizard.Start(r.Context(), clientIP(r))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toSessionResponse(session))
}

// clientIP prefers the first X-Forwarded-For hop when the service sits
// behind a proxy.
func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		if ip := strings.TrimSpace(strings.Split(forwarded, ",")[0]); ip != "" {
			return ip
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func (s *HTTPServer) handleSessionGet(w http.ResponseWriter, r *http.Request) {
	session, err := s.wizard.Get(r.Context(), r.PathValue("token"))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSessionResponse(session))
}

func (s *HTTPServer) handleSessionNext(w http.ResponseWriter, r *http.Request) {
	var input wizard.StepInput
	if err := decodeBody(r, &input); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	session, err := s.wizard.Next(r.Context(), r.PathValue("token"), input)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSessionResponse(session))
}

func (s *HTTPServer) handleSessionBack(w http.ResponseWriter, r *http.Request) {
	session, err := s.wizard.Back(r.Context(), r.PathValue("token"))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSessionResponse(session))
}

func (s *HTTPServer) handleSessionAbandon(w http.ResponseWriter, r *http.Request) {
	if err := s.wizard.Abandon(r.Context(), r.PathValue("token")); err != nil {
		s.writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *HTTPServer) handleSessionSubmit(w http.ResponseWriter, r *http.Request) {
	var input wizard.StepInput
	if err := decodeBody(r, &input); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	session, err := s.wizard.Submit(r.Context(), r.PathValue("token"), input)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toSessionResponse(session))
}
