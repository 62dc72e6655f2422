package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/rehabplatform/scheduling-service/internal/schedule"
)

type CreateDoctorRequest struct {
	FirstName  string `json:"firstName"`
	LastName   string `json:"lastName"`
	MiddleName string `json:"middleName,omitempty"`
}

type DoctorResponse struct {
	ID         uuid.UUID `json:"id"`
	FirstName  string    `json:"firstName"`
	LastName   string    `json:"lastName"`
	MiddleName string    `json:"middleName,omitempty"`
}

type CreateAppointmentRequest struct {
	PatientID string  `json:"patientId"`
	Date      string  `json:"date"`
	StartTime string  `json:"startTime"`
	Type      string  `json:"type"`
	Notes     *string `json:"notes,omitempty"`
}

type AppointmentResponse struct {
	ID          uuid.UUID `json:"id"`
	DoctorID    uuid.UUID `json:"doctorId"`
	PatientID   uuid.UUID `json:"patientId"`
	Date        string    `json:"date"`
	StartTime   string    `json:"startTime"`
	EndTime     string    `json:"endTime"`
	Type        string    `json:"type"`
	Notes       *string   `json:"notes,omitempty"`
	DoctorName  string    `json:"doctorName"`
	PatientName string    `json:"patientName"`
	CreatedAt   time.Time `json:"createdAt"`
}

type AvailableDatesResponse struct {
	Dates []string `json:"dates"`
}

type TimeSlotsResponse struct {
	Slots []schedule.TimeSlot `json:"slots"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
