package schedule

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// VisitType distinguishes a first visit from a follow-up.
type VisitType string

const (
	VisitFirst  VisitType = "first"
	VisitRepeat VisitType = "repeat"
)

func (v VisitType) Valid() bool {
	return v == VisitFirst || v == VisitRepeat
}

// Default window applied when a doctor has no active rule for a day.
// Shared by slot generation, booking end-time derivation, and schedule
// seeding so the three can never drift apart.
const (
	DefaultStartTime    = "08:00"
	DefaultEndTime      = "17:00"
	DefaultSlotDuration = 30 // minutes
)

// AvailabilityWindowDays is the rolling horizon for available dates.
// The window upper bound is inclusive, so 15 candidate days are
// evaluated; a long-standing quirk that callers depend on.
const AvailabilityWindowDays = 14

// ScheduleRule is one doctor's recurring availability on one weekday.
// Times are plain HH:MM wall-clock strings; DayOfWeek is 0=Sunday.
type ScheduleRule struct {
	ID           uuid.UUID
	DoctorID     uuid.UUID
	DayOfWeek    int
	StartTime    string
	EndTime      string
	SlotDuration int
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Appointment is a concrete booking of one slot. (DoctorID, Date,
// StartTime) is unique; the store enforces it.
type Appointment struct {
	ID        uuid.UUID
	DoctorID  uuid.UUID
	PatientID uuid.UUID
	Date      time.Time // date only, time-of-day not meaningful
	StartTime string
	EndTime   string
	Type      VisitType
	Notes     *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Doctor struct {
	ID         uuid.UUID
	FirstName  string
	LastName   string
	MiddleName string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

type Patient struct {
	ID         uuid.UUID
	FirstName  string
	LastName   string
	MiddleName string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// DayAppointment is an appointment joined with its patient's name
// fields, as needed to annotate booked slots.
type DayAppointment struct {
	Appointment
	PatientFirstName  string
	PatientLastName   string
	PatientMiddleName string
}

// BookedSlot is the display payload attached to an occupied TimeSlot.
type BookedSlot struct {
	PatientName string    `json:"patientName"`
	Type        VisitType `json:"type"`
}

// TimeSlot is one bookable sub-interval of a day's schedule window.
type TimeSlot struct {
	StartTime   string      `json:"startTime"`
	EndTime     string      `json:"endTime"`
	Available   bool        `json:"available"`
	Appointment *BookedSlot `json:"appointment,omitempty"`
}

// AppointmentDetail is an appointment denormalized with display names
// for immediate UI consumption after booking.
type AppointmentDetail struct {
	Appointment
	DoctorName  string
	PatientName string
}

// InitSummary reports what the batch schedule initializer did.
type InitSummary struct {
	TotalDoctors     int    `json:"totalDoctors"`
	InitializedCount int    `json:"initializedCount"`
	Message          string `json:"message"`
}

// DisplayName joins last, first and middle name, skipping empty parts.
func DisplayName(lastName, firstName, middleName string) string {
	parts := make([]string, 0, 3)
	for _, p := range []string{lastName, firstName, middleName} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " ")
}

// DefaultRules builds the seven-row default weekly schedule for one
// doctor, one rule per weekday including weekends.
func DefaultRules(doctorID uuid.UUID) []ScheduleRule {
	rules := make([]ScheduleRule, 0, 7)
	for day := 0; day <= 6; day++ {
		rules = append(rules, ScheduleRule{
			ID:           uuid.New(),
			DoctorID:     doctorID,
			DayOfWeek:    day,
			StartTime:    DefaultStartTime,
			EndTime:      DefaultEndTime,
			SlotDuration: DefaultSlotDuration,
			IsActive:     true,
		})
	}
	return rules
}
