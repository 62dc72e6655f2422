package schedule

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrDoctorNotFound      = errors.New("doctor not found")
	ErrPatientNotFound     = errors.New("patient not found")
	ErrRuleNotFound        = errors.New("schedule rule not found")
	ErrAppointmentNotFound = errors.New("appointment not found")

	// ErrSlotTaken is returned when the (doctor, date, startTime)
	// triple already holds an appointment, either from the pre-check
	// or from the unique index at insert time.
	ErrSlotTaken = errors.New("slot already booked")
)

// Repository contains all DB interactions needed by the service.
type Repository interface {
	GetDoctorByID(ctx context.Context, id uuid.UUID) (*Doctor, error)
	GetPatientByID(ctx context.Context, id uuid.UUID) (*Patient, error)

	CreateDoctor(ctx context.Context, d *Doctor) error
	ListDoctorIDs(ctx context.Context) ([]uuid.UUID, error)

	// Schedule rules
	ListActiveRules(ctx context.Context, doctorID uuid.UUID) ([]ScheduleRule, error)
	GetActiveRuleForDay(ctx context.Context, doctorID uuid.UUID, dayOfWeek int) (*ScheduleRule, error)
	CountRules(ctx context.Context, doctorID uuid.UUID) (int, error)
	InsertRules(ctx context.Context, rules []ScheduleRule) error

	// Appointments
	ListAppointmentsForDay(ctx context.Context, doctorID uuid.UUID, day time.Time) ([]DayAppointment, error)
	GetAppointmentBySlot(ctx context.Context, doctorID uuid.UUID, day time.Time, startTime string) (*Appointment, error)
	InsertAppointment(ctx context.Context, appt *Appointment) (*Appointment, error)
}
