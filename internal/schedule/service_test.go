package schedule

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	redisclient "github.com/rehabplatform/scheduling-service/internal/redis"
)

// fakeRepo is an in-memory Repository for service tests.
type fakeRepo struct {
	doctors  map[uuid.UUID]*Doctor
	patients map[uuid.UUID]*Patient
	rules    []ScheduleRule
	appts    []Appointment
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		doctors:  make(map[uuid.UUID]*Doctor),
		patients: make(map[uuid.UUID]*Patient),
	}
}

func (f *fakeRepo) addDoctor(first, last, middle string) uuid.UUID {
	id := uuid.New()
	f.doctors[id] = &Doctor{ID: id, FirstName: first, LastName: last, MiddleName: middle}
	return id
}

func (f *fakeRepo) addPatient(first, last, middle string) uuid.UUID {
	id := uuid.New()
	f.patients[id] = &Patient{ID: id, FirstName: first, LastName: last, MiddleName: middle}
	return id
}

func (f *fakeRepo) GetDoctorByID(_ context.Context, id uuid.UUID) (*Doctor, error) {
	if d, ok := f.doctors[id]; ok {
		return d, nil
	}
	return nil, ErrDoctorNotFound
}

func (f *fakeRepo) GetPatientByID(_ context.Context, id uuid.UUID) (*Patient, error) {
	if p, ok := f.patients[id]; ok {
		return p, nil
	}
	return nil, ErrPatientNotFound
}

func (f *fakeRepo) CreateDoctor(_ context.Context, d *Doctor) error {
	f.doctors[d.ID] = d
	return nil
}

func (f *fakeRepo) ListDoctorIDs(_ context.Context) ([]uuid.UUID, error) {
	ids := make([]uuid.UUID, 0, len(f.doctors))
	for id := range f.doctors {
		ids = append(ids, id)
	}
	return ids, nil
}

func (f *fakeRepo) ListActiveRules(_ context.Context, doctorID uuid.UUID) ([]ScheduleRule, error) {
	var out []ScheduleRule
	for _, r := range f.rules {
		if r.DoctorID == doctorID && r.IsActive {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeRepo) GetActiveRuleForDay(_ context.Context, doctorID uuid.UUID, dayOfWeek int) (*ScheduleRule, error) {
	for _, r := range f.rules {
		if r.DoctorID == doctorID && r.DayOfWeek == dayOfWeek && r.IsActive {
			rule := r
			return &rule, nil
		}
	}
	return nil, ErrRuleNotFound
}

func (f *fakeRepo) CountRules(_ context.Context, doctorID uuid.UUID) (int, error) {
	n := 0
	for _, r := range f.rules {
		if r.DoctorID == doctorID {
			n++
		}
	}
	return n, nil
}

func (f *fakeRepo) InsertRules(_ context.Context, rules []ScheduleRule) error {
	f.rules = append(f.rules, rules...)
	return nil
}

func (f *fakeRepo) ListAppointmentsForDay(_ context.Context, doctorID uuid.UUID, day time.Time) ([]DayAppointment, error) {
	day = Midnight(day)
	var out []DayAppointment
	for _, a := range f.appts {
		if a.DoctorID == doctorID && a.Date.Equal(day) {
			p := f.patients[a.PatientID]
			out = append(out, DayAppointment{
				Appointment:       a,
				PatientFirstName:  p.FirstName,
				PatientLastName:   p.LastName,
				PatientMiddleName: p.MiddleName,
			})
		}
	}
	return out, nil
}

func (f *fakeRepo) GetAppointmentBySlot(_ context.Context, doctorID uuid.UUID, day time.Time, startTime string) (*Appointment, error) {
	day = Midnight(day)
	for _, a := range f.appts {
		if a.DoctorID == doctorID && a.Date.Equal(day) && a.StartTime == startTime {
			appt := a
			return &appt, nil
		}
	}
	return nil, ErrAppointmentNotFound
}

func (f *fakeRepo) InsertAppointment(_ context.Context, appt *Appointment) (*Appointment, error) {
	for _, a := range f.appts {
		if a.DoctorID == appt.DoctorID && a.Date.Equal(appt.Date) && a.StartTime == appt.StartTime {
			return nil, ErrSlotTaken
		}
	}
	appt.CreatedAt = time.Now()
	appt.UpdatedAt = appt.CreatedAt
	f.appts = append(f.appts, *appt)
	return appt, nil
}

// passLocker runs the critical section without any locking.
type passLocker struct{}

func (passLocker) WithSlotLock(ctx context.Context, _ string, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// heldLocker simulates a lock already held by another request.
type heldLocker struct{}

func (heldLocker) WithSlotLock(context.Context, string, func(ctx context.Context) error) error {
	return redisclient.ErrLockNotAcquired
}

func newTestService(repo Repository) *Service {
	return NewService(repo, passLocker{}, zerolog.Nop())
}

// monday is a fixed reference date (2025-06-02 is a Monday).
var monday = time.Date(2025, 6, 2, 0, 0, 0, 0, time.Local)

func TestAvailableDatesNoRulesFullyOpen(t *testing.T) {
	repo := newFakeRepo()
	doctorID := repo.addDoctor("Anna", "Petrova", "")
	svc := newTestService(repo)

	dates, err := svc.AvailableDates(context.Background(), doctorID, monday)
	require.NoError(t, err)

	// Inclusive upper bound: 15 candidate days, all open.
	require.Len(t, dates, AvailabilityWindowDays+1)
	require.Equal(t, "2025-06-02", dates[0])
	require.Equal(t, "2025-06-16", dates[len(dates)-1])

	for i := 1; i < len(dates); i++ {
		require.Less(t, dates[i-1], dates[i])
	}
}

func TestAvailableDatesGatedByRules(t *testing.T) {
	repo := newFakeRepo()
	doctorID := repo.addDoctor("Anna", "Petrova", "")
	repo.rules = append(repo.rules, ScheduleRule{
		ID:           uuid.New(),
		DoctorID:     doctorID,
		DayOfWeek:    1, // Monday
		StartTime:    "09:00",
		EndTime:      "12:00",
		SlotDuration: 30,
		IsActive:     true,
	})
	svc := newTestService(repo)

	dates, err := svc.AvailableDates(context.Background(), doctorID, monday)
	require.NoError(t, err)

	// Mondays inside 2025-06-02 .. 2025-06-16 inclusive.
	require.Equal(t, []string{"2025-06-02", "2025-06-09", "2025-06-16"}, dates)
}

func TestAvailableDatesIgnoresInactiveRules(t *testing.T) {
	repo := newFakeRepo()
	doctorID := repo.addDoctor("Anna", "Petrova", "")
	repo.rules = append(repo.rules, ScheduleRule{
		ID:        uuid.New(),
		DoctorID:  doctorID,
		DayOfWeek: 1,
		StartTime: "09:00", EndTime: "12:00", SlotDuration: 30,
		IsActive: false,
	})
	svc := newTestService(repo)

	dates, err := svc.AvailableDates(context.Background(), doctorID, monday)
	require.NoError(t, err)

	// Only inactive rules exist, so the doctor counts as schedule-less
	// and every day is open.
	require.Len(t, dates, AvailabilityWindowDays+1)
}

func TestAvailableDatesUnknownDoctor(t *testing.T) {
	svc := newTestService(newFakeRepo())

	_, err := svc.AvailableDates(context.Background(), uuid.New(), monday)
	require.ErrorIs(t, err, ErrDoctorNotFound)
}

func TestTimeSlotsDefaultWindowCoverage(t *testing.T) {
	repo := newFakeRepo()
	doctorID := repo.addDoctor("Anna", "Petrova", "")
	svc := newTestService(repo)

	slots, err := svc.TimeSlots(context.Background(), doctorID, monday)
	require.NoError(t, err)

	// 08:00-17:00 at 30 minutes is exactly 18 slots.
	require.Len(t, slots, 18)
	require.Equal(t, "08:00", slots[0].StartTime)
	require.Equal(t, "08:30", slots[0].EndTime)
	require.Equal(t, "16:30", slots[len(slots)-1].StartTime)
	require.Equal(t, "17:00", slots[len(slots)-1].EndTime)

	for i, s := range slots {
		require.True(t, s.Available, "slot %d", i)
		require.Nil(t, s.Appointment)
		if i > 0 {
			require.Equal(t, slots[i-1].EndTime, s.StartTime)
		}
	}
}

func TestTimeSlotsSuppressesPartialSlot(t *testing.T) {
	repo := newFakeRepo()
	doctorID := repo.addDoctor("Anna", "Petrova", "")
	repo.rules = append(repo.rules, ScheduleRule{
		ID:        uuid.New(),
		DoctorID:  doctorID,
		DayOfWeek: 1,
		StartTime: "09:00", EndTime: "10:15", SlotDuration: 30,
		IsActive: true,
	})
	svc := newTestService(repo)

	slots, err := svc.TimeSlots(context.Background(), doctorID, monday)
	require.NoError(t, err)

	// 10:00-10:30 would overrun 10:15 and must not be emitted.
	require.Len(t, slots, 2)
	require.Equal(t, "10:00", slots[1].EndTime)
}

func TestTimeSlotsMarksBookedSlot(t *testing.T) {
	repo := newFakeRepo()
	doctorID := repo.addDoctor("Anna", "Petrova", "")
	patientID := repo.addPatient("Ivan", "Sidorov", "Petrovich")
	repo.appts = append(repo.appts, Appointment{
		ID:        uuid.New(),
		DoctorID:  doctorID,
		PatientID: patientID,
		Date:      monday,
		StartTime: "09:00",
		EndTime:   "09:30",
		Type:      VisitFirst,
	})
	svc := newTestService(repo)

	slots, err := svc.TimeSlots(context.Background(), doctorID, monday)
	require.NoError(t, err)

	var booked, open int
	for _, s := range slots {
		if s.Available {
			open++
			continue
		}
		booked++
		require.Equal(t, "09:00", s.StartTime)
		require.NotNil(t, s.Appointment)
		require.Equal(t, "Sidorov Ivan Petrovich", s.Appointment.PatientName)
		require.Equal(t, VisitFirst, s.Appointment.Type)
	}
	require.Equal(t, 1, booked)
	require.Equal(t, 17, open)
}

func TestTimeSlotsUncoveredDayFallsBackToDefault(t *testing.T) {
	repo := newFakeRepo()
	doctorID := repo.addDoctor("Anna", "Petrova", "")
	// Mondays only; Tuesday is not in the doctor's available dates.
	repo.rules = append(repo.rules, ScheduleRule{
		ID:        uuid.New(),
		DoctorID:  doctorID,
		DayOfWeek: 1,
		StartTime: "09:00", EndTime: "12:00", SlotDuration: 60,
		IsActive: true,
	})
	svc := newTestService(repo)

	tuesday := monday.AddDate(0, 0, 1)
	slots, err := svc.TimeSlots(context.Background(), doctorID, tuesday)
	require.NoError(t, err)

	// Slot generation deliberately does not consult the availability
	// calculator: an uncovered day still yields the default grid.
	require.Len(t, slots, 18)
}

func TestCreateAppointmentDerivesEndTimeFromRule(t *testing.T) {
	repo := newFakeRepo()
	doctorID := repo.addDoctor("Anna", "Petrova", "Sergeevna")
	patientID := repo.addPatient("Ivan", "Sidorov", "")
	repo.rules = append(repo.rules, ScheduleRule{
		ID:        uuid.New(),
		DoctorID:  doctorID,
		DayOfWeek: 1,
		StartTime: "09:00", EndTime: "13:00", SlotDuration: 20,
		IsActive: true,
	})
	svc := newTestService(repo)

	detail, err := svc.CreateAppointment(context.Background(), doctorID, BookingRequest{
		PatientID: patientID,
		Date:      monday,
		StartTime: "10:15",
		Type:      VisitRepeat,
	})
	require.NoError(t, err)
	require.Equal(t, "10:35", detail.EndTime)
	require.Equal(t, "Petrova Anna Sergeevna", detail.DoctorName)
	require.Equal(t, "Sidorov Ivan", detail.PatientName)
	require.Equal(t, VisitRepeat, detail.Type)
}

func TestCreateAppointmentDefaultDuration(t *testing.T) {
	repo := newFakeRepo()
	doctorID := repo.addDoctor("Anna", "Petrova", "")
	patientID := repo.addPatient("Ivan", "Sidorov", "")
	svc := newTestService(repo)

	detail, err := svc.CreateAppointment(context.Background(), doctorID, BookingRequest{
		PatientID: patientID,
		Date:      monday,
		StartTime: "09:00",
		Type:      VisitFirst,
	})
	require.NoError(t, err)
	require.Equal(t, "09:30", detail.EndTime)
}

func TestCreateAppointmentRejectsDoubleBooking(t *testing.T) {
	repo := newFakeRepo()
	doctorID := repo.addDoctor("Anna", "Petrova", "")
	patientID := repo.addPatient("Ivan", "Sidorov", "")
	otherPatient := repo.addPatient("Olga", "Ivanova", "")
	svc := newTestService(repo)

	req := BookingRequest{PatientID: patientID, Date: monday, StartTime: "09:00", Type: VisitFirst}
	_, err := svc.CreateAppointment(context.Background(), doctorID, req)
	require.NoError(t, err)

	req.PatientID = otherPatient
	_, err = svc.CreateAppointment(context.Background(), doctorID, req)
	require.ErrorIs(t, err, ErrSlotTaken)
	require.Len(t, repo.appts, 1)
}

func TestCreateAppointmentUnknownPatient(t *testing.T) {
	repo := newFakeRepo()
	doctorID := repo.addDoctor("Anna", "Petrova", "")
	svc := newTestService(repo)

	_, err := svc.CreateAppointment(context.Background(), doctorID, BookingRequest{
		PatientID: uuid.New(),
		Date:      monday,
		StartTime: "09:00",
		Type:      VisitFirst,
	})
	require.ErrorIs(t, err, ErrPatientNotFound)
	require.Empty(t, repo.appts)
}

func TestCreateAppointmentLockHeld(t *testing.T) {
	repo := newFakeRepo()
	doctorID := repo.addDoctor("Anna", "Petrova", "")
	patientID := repo.addPatient("Ivan", "Sidorov", "")
	svc := NewService(repo, heldLocker{}, zerolog.Nop())

	_, err := svc.CreateAppointment(context.Background(), doctorID, BookingRequest{
		PatientID: patientID,
		Date:      monday,
		StartTime: "09:00",
		Type:      VisitFirst,
	})
	require.ErrorIs(t, err, ErrSlotHeld)
	require.Empty(t, repo.appts)
}

func TestCreateDoctorSeedsDefaultSchedule(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)

	doctor, err := svc.CreateDoctor(context.Background(), "Anna", "Petrova", "")
	require.NoError(t, err)
	require.Len(t, repo.rules, 7)

	days := make(map[int]bool)
	for _, r := range repo.rules {
		require.Equal(t, doctor.ID, r.DoctorID)
		require.Equal(t, DefaultStartTime, r.StartTime)
		require.Equal(t, DefaultEndTime, r.EndTime)
		require.Equal(t, DefaultSlotDuration, r.SlotDuration)
		require.True(t, r.IsActive)
		days[r.DayOfWeek] = true
	}
	require.Len(t, days, 7)
}

func TestInitializeDefaultSchedulesIdempotent(t *testing.T) {
	repo := newFakeRepo()
	bare := repo.addDoctor("Anna", "Petrova", "")
	covered := repo.addDoctor("Boris", "Orlov", "")
	// One stray inactive rule still counts as "has rules".
	stray := repo.addDoctor("Vera", "Kotova", "")
	repo.rules = append(repo.rules, DefaultRules(covered)...)
	repo.rules = append(repo.rules, ScheduleRule{
		ID:        uuid.New(),
		DoctorID:  stray,
		DayOfWeek: 2,
		StartTime: "10:00", EndTime: "11:00", SlotDuration: 30,
		IsActive: false,
	})
	svc := newTestService(repo)

	first, err := svc.InitializeDefaultSchedules(context.Background())
	require.NoError(t, err)
	require.Equal(t, 3, first.TotalDoctors)
	require.Equal(t, 1, first.InitializedCount)

	n, err := repo.CountRules(context.Background(), bare)
	require.NoError(t, err)
	require.Equal(t, 7, n)

	second, err := svc.InitializeDefaultSchedules(context.Background())
	require.NoError(t, err)
	require.Equal(t, 0, second.InitializedCount)

	n, err = repo.CountRules(context.Background(), stray)
	require.NoError(t, err)
	require.Equal(t, 1, n)
}
