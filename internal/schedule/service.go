package schedule

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	redisclient "github.com/rehabplatform/scheduling-service/internal/redis"
)

var (
	// ErrSlotHeld means another request currently holds the booking
	// lock for the slot; the caller should retry shortly.
	ErrSlotHeld = errors.New("slot is currently being booked, please retry")
)

type Service struct {
	repo   Repository
	locker redisclient.Locker
	log    zerolog.Logger
}

func NewService(repo Repository, locker redisclient.Locker, log zerolog.Logger) *Service {
	return &Service{
		repo:   repo,
		locker: locker,
		log:    log,
	}
}

// AvailableDates returns the rolling window of bookable dates for a
// doctor, starting at start (truncated to midnight). A doctor with no
// active rules at all is treated as fully open; otherwise only weekdays
// covered by an active rule qualify. The window upper bound is
// inclusive, so up to 15 dates come back.
func (s *Service) AvailableDates(ctx context.Context, doctorID uuid.UUID, start time.Time) ([]string, error) {
	if _, err := s.repo.GetDoctorByID(ctx, doctorID); err != nil {
		return nil, err
	}

	rules, err := s.repo.ListActiveRules(ctx, doctorID)
	if err != nil {
		return nil, fmt.Errorf("list active rules: %w", err)
	}

	activeDays := make(map[int]bool, len(rules))
	for _, r := range rules {
		activeDays[r.DayOfWeek] = true
	}

	from := Midnight(start)
	dates := make([]string, 0, AvailabilityWindowDays+1)
	for offset := 0; offset <= AvailabilityWindowDays; offset++ {
		day := from.AddDate(0, 0, offset)
		if len(activeDays) == 0 || activeDays[int(day.Weekday())] {
			dates = append(dates, FormatDate(day))
		}
	}

	return dates, nil
}

// TimeSlots generates the ordered slot grid for one doctor and day.
// Booked slots carry the occupying patient's display name and visit
// type. The date is not checked against AvailableDates; a day with no
// active rule simply falls back to the default window.
func (s *Service) TimeSlots(ctx context.Context, doctorID uuid.UUID, day time.Time) ([]TimeSlot, error) {
	if _, err := s.repo.GetDoctorByID(ctx, doctorID); err != nil {
		return nil, err
	}

	window, err := s.windowForDay(ctx, doctorID, day)
	if err != nil {
		return nil, err
	}

	appts, err := s.repo.ListAppointmentsForDay(ctx, doctorID, day)
	if err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}

	booked := make(map[string]DayAppointment, len(appts))
	for _, a := range appts {
		booked[a.StartTime] = a
	}

	startMin, err := ParseClock(window.StartTime)
	if err != nil {
		return nil, fmt.Errorf("rule start time: %w", err)
	}
	endMin, err := ParseClock(window.EndTime)
	if err != nil {
		return nil, fmt.Errorf("rule end time: %w", err)
	}

	var slots []TimeSlot
	for cur := startMin; cur+window.SlotDuration <= endMin; cur += window.SlotDuration {
		slot := TimeSlot{
			StartTime: FormatClock(cur),
			EndTime:   FormatClock(cur + window.SlotDuration),
			Available: true,
		}
		if a, ok := booked[slot.StartTime]; ok {
			slot.Available = false
			slot.Appointment = &BookedSlot{
				PatientName: DisplayName(a.PatientLastName, a.PatientFirstName, a.PatientMiddleName),
				Type:        a.Type,
			}
		}
		slots = append(slots, slot)
	}

	return slots, nil
}

// BookingRequest carries the validated inbound fields for a booking.
type BookingRequest struct {
	PatientID uuid.UUID
	Date      time.Time
	StartTime string
	Type      VisitType
	Notes     *string
}

// CreateAppointment reserves a slot for a patient. A short-lived
// distributed lock keyed by the slot lets concurrent requests fail
// fast; the unique index on (doctor_id, date, start_time) remains the
// authoritative conflict detector either way.
func (s *Service) CreateAppointment(ctx context.Context, doctorID uuid.UUID, req BookingRequest) (*AppointmentDetail, error) {
	doctor, err := s.repo.GetDoctorByID(ctx, doctorID)
	if err != nil {
		return nil, err
	}

	patient, err := s.repo.GetPatientByID(ctx, req.PatientID)
	if err != nil {
		if errors.Is(err, ErrPatientNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load patient: %w", err)
	}

	day := Midnight(req.Date)

	window, err := s.windowForDay(ctx, doctorID, day)
	if err != nil {
		return nil, err
	}

	endTime, err := AddMinutes(req.StartTime, window.SlotDuration)
	if err != nil {
		return nil, fmt.Errorf("derive end time: %w", err)
	}

	var created *Appointment
	lockKey := redisclient.SlotLockKey(doctorID, FormatDate(day), req.StartTime)

	err = s.locker.WithSlotLock(ctx, lockKey, func(lockCtx context.Context) error {
		existing, err := s.repo.GetAppointmentBySlot(lockCtx, doctorID, day, req.StartTime)
		if err != nil && !errors.Is(err, ErrAppointmentNotFound) {
			return fmt.Errorf("check slot: %w", err)
		}
		if existing != nil {
			return ErrSlotTaken
		}

		appt := &Appointment{
			ID:        uuid.New(),
			DoctorID:  doctorID,
			PatientID: req.PatientID,
			Date:      day,
			StartTime: req.StartTime,
			EndTime:   endTime,
			Type:      req.Type,
			Notes:     req.Notes,
		}

		created, err = s.repo.InsertAppointment(lockCtx, appt)
		if err != nil {
			return fmt.Errorf("insert appointment: %w", err)
		}

		return nil
	})

	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return nil, ErrSlotHeld
		}
		return nil, err
	}

	s.log.Info().
		Str("doctor_id", doctorID.String()).
		Str("date", FormatDate(day)).
		Str("start_time", req.StartTime).
		Str("visit_type", string(req.Type)).
		Msg("appointment booked")

	return &AppointmentDetail{
		Appointment: *created,
		DoctorName:  DisplayName(doctor.LastName, doctor.FirstName, doctor.MiddleName),
		PatientName: DisplayName(patient.LastName, patient.FirstName, patient.MiddleName),
	}, nil
}

// CreateDoctor provisions a doctor record and unconditionally seeds its
// default weekly schedule.
func (s *Service) CreateDoctor(ctx context.Context, firstName, lastName, middleName string) (*Doctor, error) {
	doctor := &Doctor{
		ID:         uuid.New(),
		FirstName:  firstName,
		LastName:   lastName,
		MiddleName: middleName,
	}

	if err := s.repo.CreateDoctor(ctx, doctor); err != nil {
		return nil, fmt.Errorf("create doctor: %w", err)
	}

	if err := s.SeedDefaultSchedule(ctx, doctor.ID); err != nil {
		return nil, err
	}

	return doctor, nil
}

// SeedDefaultSchedule inserts the seven default rules for one doctor,
// one per weekday.
func (s *Service) SeedDefaultSchedule(ctx context.Context, doctorID uuid.UUID) error {
	if err := s.repo.InsertRules(ctx, DefaultRules(doctorID)); err != nil {
		return fmt.Errorf("seed default schedule: %w", err)
	}
	return nil
}

// InitializeDefaultSchedules backfills the default weekly schedule for
// every doctor that has no rules at all. Doctors with any rule row,
// active or not, are left untouched, so re-running is a no-op.
func (s *Service) InitializeDefaultSchedules(ctx context.Context) (*InitSummary, error) {
	ids, err := s.repo.ListDoctorIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("list doctors: %w", err)
	}

	initialized := 0
	for _, id := range ids {
		n, err := s.repo.CountRules(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("count rules for %s: %w", id, err)
		}
		if n > 0 {
			continue
		}
		if err := s.SeedDefaultSchedule(ctx, id); err != nil {
			return nil, err
		}
		initialized++
	}

	summary := &InitSummary{
		TotalDoctors:     len(ids),
		InitializedCount: initialized,
		Message:          fmt.Sprintf("initialized default schedules for %d of %d doctors", initialized, len(ids)),
	}

	s.log.Info().
		Int("total_doctors", summary.TotalDoctors).
		Int("initialized", summary.InitializedCount).
		Msg("default schedule backfill complete")

	return summary, nil
}

// windowForDay resolves the governing rule for a doctor/day, falling
// back to the shared default window when no active rule covers it.
func (s *Service) windowForDay(ctx context.Context, doctorID uuid.UUID, day time.Time) (*ScheduleRule, error) {
	rule, err := s.repo.GetActiveRuleForDay(ctx, doctorID, int(day.Weekday()))
	if err != nil {
		if errors.Is(err, ErrRuleNotFound) {
			return &ScheduleRule{
				DoctorID:     doctorID,
				DayOfWeek:    int(day.Weekday()),
				StartTime:    DefaultStartTime,
				EndTime:      DefaultEndTime,
				SlotDuration: DefaultSlotDuration,
			}, nil
		}
		return nil, fmt.Errorf("load rule: %w", err)
	}
	return rule, nil
}
