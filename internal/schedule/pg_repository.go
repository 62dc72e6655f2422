package schedule

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const uniqueViolation = "23505"

// pgxQuerier is the subset of pgxpool.Pool the repository needs; tests
// substitute a pgxmock pool.
type pgxQuerier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

type PgRepository struct {
	pool pgxQuerier
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

// Helpers

func scanPerson(row pgx.Row, notFound error) (uuid.UUID, string, string, string, time.Time, time.Time, error) {
	var id uuid.UUID
	var first, last, mid string
	var created, updated time.Time

	err := row.Scan(&id, &first, &last, &mid, &created, &updated)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return uuid.Nil, "", "", "", time.Time{}, time.Time{}, notFound
		}
		return uuid.Nil, "", "", "", time.Time{}, time.Time{}, err
	}
	return id, first, last, mid, created, updated, nil
}

func scanRule(row pgx.Row) (*ScheduleRule, error) {
	var r ScheduleRule

	err := row.Scan(
		&r.ID,
		&r.DoctorID,
		&r.DayOfWeek,
		&r.StartTime,
		&r.EndTime,
		&r.SlotDuration,
		&r.IsActive,
		&r.CreatedAt,
		&r.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRuleNotFound
		}
		return nil, err
	}

	return &r, nil
}

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	var notes *string

	err := row.Scan(
		&a.ID,
		&a.DoctorID,
		&a.PatientID,
		&a.Date,
		&a.StartTime,
		&a.EndTime,
		&a.Type,
		&notes,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}

	a.Notes = notes
	return &a, nil
}

// Interface methods

func (r *PgRepository) GetDoctorByID(ctx context.Context, id uuid.UUID) (*Doctor, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, first_name, last_name, middle_name, created_at, updated_at
		FROM doctors
		WHERE id = $1
	`, id)

	did, first, last, mid, created, updated, err := scanPerson(row, ErrDoctorNotFound)
	if err != nil {
		return nil, err
	}
	return &Doctor{ID: did, FirstName: first, LastName: last, MiddleName: mid, CreatedAt: created, UpdatedAt: updated}, nil
}

func (r *PgRepository) GetPatientByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, first_name, last_name, middle_name, created_at, updated_at
		FROM patients
		WHERE id = $1
	`, id)

	pid, first, last, mid, created, updated, err := scanPerson(row, ErrPatientNotFound)
	if err != nil {
		return nil, err
	}
	return &Patient{ID: pid, FirstName: first, LastName: last, MiddleName: mid, CreatedAt: created, UpdatedAt: updated}, nil
}

func (r *PgRepository) CreateDoctor(ctx context.Context, d *Doctor) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO doctors (id, first_name, last_name, middle_name, created_at, updated_at)
		VALUES ($1, $2, $3, $4, now(), now())
	`, d.ID, d.FirstName, d.LastName, d.MiddleName)
	return err
}

func (r *PgRepository) ListDoctorIDs(ctx context.Context) ([]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx, `SELECT id FROM doctors ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}

	return ids, rows.Err()
}

func (r *PgRepository) ListActiveRules(ctx context.Context, doctorID uuid.UUID) ([]ScheduleRule, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, doctor_id, day_of_week, start_time, end_time, slot_duration_minutes, is_active, created_at, updated_at
		FROM schedule_rules
		WHERE doctor_id = $1 AND is_active
		ORDER BY day_of_week
	`, doctorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rules []ScheduleRule
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, err
		}
		rules = append(rules, *rule)
	}

	return rules, rows.Err()
}

func (r *PgRepository) GetActiveRuleForDay(ctx context.Context, doctorID uuid.UUID, dayOfWeek int) (*ScheduleRule, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, doctor_id, day_of_week, start_time, end_time, slot_duration_minutes, is_active, created_at, updated_at
		FROM schedule_rules
		WHERE doctor_id = $1 AND day_of_week = $2 AND is_active
		ORDER BY created_at
		LIMIT 1
	`, doctorID, dayOfWeek)
	return scanRule(row)
}

func (r *PgRepository) CountRules(ctx context.Context, doctorID uuid.UUID) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `
		SELECT count(*) FROM schedule_rules WHERE doctor_id = $1
	`, doctorID).Scan(&n)
	return n, err
}

func (r *PgRepository) InsertRules(ctx context.Context, rules []ScheduleRule) error {
	for _, rule := range rules {
		_, err := r.pool.Exec(ctx, `
			INSERT INTO schedule_rules (id, doctor_id, day_of_week, start_time, end_time, slot_duration_minutes, is_active, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, now(), now())
		`, rule.ID, rule.DoctorID, rule.DayOfWeek, rule.StartTime, rule.EndTime, rule.SlotDuration, rule.IsActive)
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *PgRepository) ListAppointmentsForDay(ctx context.Context, doctorID uuid.UUID, day time.Time) ([]DayAppointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT a.id, a.doctor_id, a.patient_id, a.date, a.start_time, a.end_time, a.visit_type, a.notes, a.created_at, a.updated_at,
		       p.first_name, p.last_name, p.middle_name
		FROM appointments a
		JOIN patients p ON p.id = a.patient_id
		WHERE a.doctor_id = $1 AND a.date = $2
		ORDER BY a.start_time
	`, doctorID, Midnight(day))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []DayAppointment
	for rows.Next() {
		var da DayAppointment
		var notes *string
		err := rows.Scan(
			&da.ID,
			&da.DoctorID,
			&da.PatientID,
			&da.Date,
			&da.StartTime,
			&da.EndTime,
			&da.Type,
			&notes,
			&da.CreatedAt,
			&da.UpdatedAt,
			&da.PatientFirstName,
			&da.PatientLastName,
			&da.PatientMiddleName,
		)
		if err != nil {
			return nil, err
		}
		da.Notes = notes
		result = append(result, da)
	}

	return result, rows.Err()
}

func (r *PgRepository) GetAppointmentBySlot(ctx context.Context, doctorID uuid.UUID, day time.Time, startTime string) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, doctor_id, patient_id, date, start_time, end_time, visit_type, notes, created_at, updated_at
		FROM appointments
		WHERE doctor_id = $1 AND date = $2 AND start_time = $3
	`, doctorID, Midnight(day), startTime)
	return scanAppointment(row)
}

func (r *PgRepository) InsertAppointment(ctx context.Context, appt *Appointment) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO appointments (id, doctor_id, patient_id, date, start_time, end_time, visit_type, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now(), now())
		RETURNING id, doctor_id, patient_id, date, start_time, end_time, visit_type, notes, created_at, updated_at
	`, appt.ID, appt.DoctorID, appt.PatientID, Midnight(appt.Date), appt.StartTime, appt.EndTime, appt.Type, appt.Notes)

	created, err := scanAppointment(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, ErrSlotTaken
		}
		return nil, err
	}

	return created, nil
}
