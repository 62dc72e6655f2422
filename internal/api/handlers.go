package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/rehabplatform/scheduling-service/internal/observability/metrics"
	"github.com/rehabplatform/scheduling-service/internal/schedule"
)

func createDoctorHandler(svc *schedule.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateDoctorRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}
		if req.FirstName == "" || req.LastName == "" {
			writeError(w, http.StatusBadRequest, "invalid_name", "firstName and lastName are required")
			return
		}

		doctor, err := svc.CreateDoctor(r.Context(), req.FirstName, req.LastName, req.MiddleName)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			return
		}

		writeJSON(w, http.StatusCreated, DoctorResponse{
			ID:         doctor.ID,
			FirstName:  doctor.FirstName,
			LastName:   doctor.LastName,
			MiddleName: doctor.MiddleName,
		})
	}
}

func initializeSchedulesHandler(svc *schedule.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		summary, err := svc.InitializeDefaultSchedules(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			return
		}
		writeJSON(w, http.StatusOK, summary)
	}
}

func availableDatesHandler(svc *schedule.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doctorID, err := uuid.Parse(chi.URLParam(r, "doctorID"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_doctor_id", "doctorID must be a valid UUID")
			return
		}

		start := time.Now()
		if raw := r.URL.Query().Get("startDate"); raw != "" {
			start, err = time.ParseInLocation(schedule.DateLayout, raw, time.Local)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_start_date", "startDate must be YYYY-MM-DD")
				return
			}
		}
		// endDate is accepted for compatibility but the window length
		// is fixed.
		_ = r.URL.Query().Get("endDate")

		dates, err := svc.AvailableDates(r.Context(), doctorID, start)
		if err != nil {
			handleScheduleError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, AvailableDatesResponse{Dates: dates})
	}
}

func timeSlotsHandler(svc *schedule.Service, m *metrics.SchedulingMetrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doctorID, err := uuid.Parse(chi.URLParam(r, "doctorID"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_doctor_id", "doctorID must be a valid UUID")
			return
		}

		day, err := time.ParseInLocation(schedule.DateLayout, r.URL.Query().Get("date"), time.Local)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_date", "date must be YYYY-MM-DD")
			return
		}

		slots, err := svc.TimeSlots(r.Context(), doctorID, day)
		if err != nil {
			handleScheduleError(w, err)
			return
		}

		m.ObserveSlotQuery()
		writeJSON(w, http.StatusOK, TimeSlotsResponse{Slots: slots})
	}
}

func createAppointmentHandler(svc *schedule.Service, m *metrics.SchedulingMetrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doctorID, err := uuid.Parse(chi.URLParam(r, "doctorID"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_doctor_id", "doctorID must be a valid UUID")
			return
		}

		var req CreateAppointmentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		booking, err := validateBooking(req)
		if err != nil {
			m.ObserveBooking("rejected")
			writeError(w, http.StatusBadRequest, "validation_error", err.Error())
			return
		}

		detail, err := svc.CreateAppointment(r.Context(), doctorID, booking)
		if err != nil {
			handleBookingError(w, m, err)
			return
		}

		m.ObserveBooking("created")
		writeJSON(w, http.StatusCreated, AppointmentResponse{
			ID:          detail.ID,
			DoctorID:    detail.DoctorID,
			PatientID:   detail.PatientID,
			Date:        schedule.FormatDate(detail.Date),
			StartTime:   detail.StartTime,
			EndTime:     detail.EndTime,
			Type:        string(detail.Type),
			Notes:       detail.Notes,
			DoctorName:  detail.DoctorName,
			PatientName: detail.PatientName,
			CreatedAt:   detail.CreatedAt,
		})
	}
}

// validateBooking rejects malformed input before it reaches the engine,
// which assumes well-formed values past this boundary.
func validateBooking(req CreateAppointmentRequest) (schedule.BookingRequest, error) {
	patientID, err := uuid.Parse(req.PatientID)
	if err != nil {
		return schedule.BookingRequest{}, errors.New("patientId must be a valid UUID")
	}

	date, err := time.ParseInLocation(schedule.DateLayout, req.Date, time.Local)
	if err != nil {
		return schedule.BookingRequest{}, errors.New("date must be YYYY-MM-DD")
	}

	if _, err := schedule.ParseClock(req.StartTime); err != nil {
		return schedule.BookingRequest{}, errors.New("startTime must be HH:MM")
	}

	visitType := schedule.VisitType(req.Type)
	if !visitType.Valid() {
		return schedule.BookingRequest{}, errors.New("type must be 'first' or 'repeat'")
	}

	return schedule.BookingRequest{
		PatientID: patientID,
		Date:      date,
		StartTime: req.StartTime,
		Type:      visitType,
		Notes:     req.Notes,
	}, nil
}

func handleScheduleError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, schedule.ErrDoctorNotFound):
		writeError(w, http.StatusNotFound, "doctor_not_found", err.Error())
	case errors.Is(err, schedule.ErrPatientNotFound):
		writeError(w, http.StatusNotFound, "patient_not_found", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}

func handleBookingError(w http.ResponseWriter, m *metrics.SchedulingMetrics, err error) {
	switch {
	case errors.Is(err, schedule.ErrDoctorNotFound):
		m.ObserveBooking("rejected")
		writeError(w, http.StatusNotFound, "doctor_not_found", err.Error())
	case errors.Is(err, schedule.ErrPatientNotFound):
		m.ObserveBooking("rejected")
		writeError(w, http.StatusNotFound, "patient_not_found", err.Error())
	case errors.Is(err, schedule.ErrSlotTaken):
		m.ObserveBooking("conflict")
		writeError(w, http.StatusConflict, "slot_already_booked", err.Error())
	case errors.Is(err, schedule.ErrSlotHeld):
		m.ObserveBooking("conflict")
		writeError(w, http.StatusConflict, "slot_being_booked", "slot is currently being booked, please retry shortly")
	default:
		m.ObserveBooking("error")
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}
