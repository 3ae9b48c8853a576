package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DB is the subset of pgxpool.Pool the store needs; pgxmock satisfies it.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

type PgStore struct {
	db DB
}

func NewPgStore(db DB) *PgStore {
	return &PgStore{db: db}
}

// Helpers

func scanService(row pgx.Row) (*Service, error) {
	var s Service
	err := row.Scan(
		&s.ID,
		&s.BusinessID,
		&s.Name,
		&s.Description,
		&s.DurationMinutes,
		&s.Price,
		&s.Active,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrServiceNotFound
		}
		return nil, err
	}
	return &s, nil
}

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	err := row.Scan(
		&a.ID,
		&a.BusinessID,
		&a.ServiceID,
		&a.ServiceName,
		&a.ClientName,
		&a.ClientPhone,
		&a.ClientEmail,
		&a.Date,
		&a.StartMinute,
		&a.Status,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}
	return &a, nil
}

const appointmentColumns = `id, business_id, service_id, service_name, client_name, client_phone, client_email, scheduled_on, start_minute, status, created_at, updated_at`

// CalendarStore

func (s *PgStore) WeeklyRules(ctx context.Context, businessID uuid.UUID) ([]WeeklyHourRule, error) {
	rows, err := s.db.Query(ctx, `
		SELECT business_id, weekday, is_open, COALESCE(open_minute, 0), COALESCE(close_minute, 0)
		FROM business_hours
		WHERE business_id = $1
		ORDER BY weekday
	`, businessID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rules []WeeklyHourRule
	for rows.Next() {
		var r WeeklyHourRule
		if err := rows.Scan(&r.BusinessID, &r.Weekday, &r.IsOpen, &r.OpenMinute, &r.CloseMinute); err != nil {
			return nil, err
		}
		rules = append(rules, r)
	}
	return rules, rows.Err()
}

func (s *PgStore) ReplaceWeeklyRules(ctx context.Context, businessID uuid.UUID, rules []WeeklyHourRule) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for _, r := range rules {
		_, err := tx.Exec(ctx, `
			INSERT INTO business_hours (business_id, weekday, is_open, open_minute, close_minute)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (business_id, weekday)
			DO UPDATE SET is_open = EXCLUDED.is_open,
			              open_minute = EXCLUDED.open_minute,
			              close_minute = EXCLUDED.close_minute
		`, businessID, r.Weekday, r.IsOpen, r.OpenMinute, r.CloseMinute)
		if err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func (s *PgStore) ClosedDates(ctx context.Context, businessID uuid.UUID) ([]time.Time, error) {
	rows, err := s.db.Query(ctx, `
		SELECT closed_on FROM closed_dates
		WHERE business_id = $1
		ORDER BY closed_on
	`, businessID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var dates []time.Time
	for rows.Next() {
		var d time.Time
		if err := rows.Scan(&d); err != nil {
			return nil, err
		}
		dates = append(dates, d)
	}
	return dates, rows.Err()
}

func (s *PgStore) IsClosedDate(ctx context.Context, businessID uuid.UUID, date time.Time) (bool, error) {
	var closed bool
	err := s.db.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM closed_dates WHERE business_id = $1 AND closed_on = $2
		)
	`, businessID, date).Scan(&closed)
	return closed, err
}

func (s *PgStore) AddClosedDate(ctx context.Context, businessID uuid.UUID, date time.Time) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO closed_dates (business_id, closed_on)
		VALUES ($1, $2)
		ON CONFLICT (business_id, closed_on) DO NOTHING
	`, businessID, date)
	return err
}

func (s *PgStore) RemoveClosedDate(ctx context.Context, businessID uuid.UUID, date time.Time) error {
	tag, err := s.db.Exec(ctx, `
		DELETE FROM closed_dates WHERE business_id = $1 AND closed_on = $2
	`, businessID, date)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrClosedDateNotFound
	}
	return nil
}

// CatalogStore

func (s *PgStore) CreateService(ctx context.Context, svc *Service) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO services (id, business_id, name, description, duration_minutes, price, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, svc.ID, svc.BusinessID, svc.Name, svc.Description, svc.DurationMinutes, svc.Price, svc.Active, svc.CreatedAt, svc.UpdatedAt)
	return err
}

func (s *PgStore) UpdateService(ctx context.Context, svc *Service) (*Service, error) {
	row := s.db.QueryRow(ctx, `
		UPDATE services
		SET name = $3, description = $4, duration_minutes = $5, price = $6, updated_at = now()
		WHERE id = $1 AND business_id = $2
		RETURNING id, business_id, name, description, duration_minutes, price, active, created_at, updated_at
	`, svc.ID, svc.BusinessID, svc.Name, svc.Description, svc.DurationMinutes, svc.Price)
	return scanService(row)
}

func (s *PgStore) GetService(ctx context.Context, businessID, serviceID uuid.UUID) (*Service, error) {
	row := s.db.QueryRow(ctx, `
		SELECT id, business_id, name, description, duration_minutes, price, active, created_at, updated_at
		FROM services
		WHERE id = $1 AND business_id = $2
	`, serviceID, businessID)
	return scanService(row)
}

func (s *PgStore) ListServices(ctx context.Context, businessID uuid.UUID, activeOnly bool) ([]Service, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, business_id, name, description, duration_minutes, price, active, created_at, updated_at
		FROM services
		WHERE business_id = $1 AND (NOT $2 OR active)
		ORDER BY created_at
	`, businessID, activeOnly)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var services []Service
	for rows.Next() {
		svc, err := scanService(rows)
		if err != nil {
			return nil, err
		}
		services = append(services, *svc)
	}
	return services, rows.Err()
}

func (s *PgStore) DeactivateService(ctx context.Context, businessID, serviceID uuid.UUID) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE services SET active = false, updated_at = now()
		WHERE id = $1 AND business_id = $2
	`, serviceID, businessID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrServiceNotFound
	}
	return nil
}

func (s *PgStore) CountActiveServices(ctx context.Context, businessID uuid.UUID) (int, error) {
	var n int
	err := s.db.QueryRow(ctx, `
		SELECT COUNT(*) FROM services WHERE business_id = $1 AND active
	`, businessID).Scan(&n)
	return n, err
}

// LedgerStore

// InsertAppointment serializes on a transactional advisory lock keyed on
// (business, date), re-checks overlap against live service durations, and
// inserts. This keeps check-then-insert atomic even without the Redis lock.
func (s *PgStore) InsertAppointment(ctx context.Context, appt *Appointment, durationMinutes int) (*Appointment, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		SELECT pg_advisory_xact_lock(hashtextextended($1 || ':' || $2, 0))
	`, appt.BusinessID.String(), FormatDate(appt.Date))
	if err != nil {
		return nil, fmt.Errorf("acquire date lock: %w", err)
	}

	occupied, err := occupiedIntervalsTx(ctx, tx, appt.BusinessID, appt.Date)
	if err != nil {
		return nil, err
	}
	if overlapsAny(appt.StartMinute, durationMinutes, occupied) {
		return nil, ErrSlotTaken
	}

	row := tx.QueryRow(ctx, `
		INSERT INTO appointments (`+appointmentColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING `+appointmentColumns+`
	`, appt.ID, appt.BusinessID, appt.ServiceID, appt.ServiceName, appt.ClientName,
		appt.ClientPhone, appt.ClientEmail, appt.Date, appt.StartMinute, appt.Status,
		appt.CreatedAt, appt.UpdatedAt)

	created, err := scanAppointment(row)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return created, nil
}

const occupiedQuery = `
	SELECT a.start_minute, s.duration_minutes
	FROM appointments a
	JOIN services s ON s.id = a.service_id
	WHERE a.business_id = $1 AND a.scheduled_on = $2 AND a.status <> 'cancelled'
	ORDER BY a.start_minute
`

func occupiedIntervalsTx(ctx context.Context, tx pgx.Tx, businessID uuid.UUID, date time.Time) ([]OccupiedInterval, error) {
	rows, err := tx.Query(ctx, occupiedQuery, businessID, date)
	if err != nil {
		return nil, err
	}
	return collectOccupied(rows)
}

func (s *PgStore) OccupiedIntervals(ctx context.Context, businessID uuid.UUID, date time.Time) ([]OccupiedInterval, error) {
	rows, err := s.db.Query(ctx, occupiedQuery, businessID, date)
	if err != nil {
		return nil, err
	}
	return collectOccupied(rows)
}

func collectOccupied(rows pgx.Rows) ([]OccupiedInterval, error) {
	defer rows.Close()

	var intervals []OccupiedInterval
	for rows.Next() {
		var o OccupiedInterval
		if err := rows.Scan(&o.StartMinute, &o.DurationMinutes); err != nil {
			return nil, err
		}
		intervals = append(intervals, o)
	}
	return intervals, rows.Err()
}

func (s *PgStore) GetAppointment(ctx context.Context, businessID, id uuid.UUID) (*Appointment, error) {
	row := s.db.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE id = $1 AND business_id = $2
	`, id, businessID)
	return scanAppointment(row)
}

func (s *PgStore) ListAppointments(ctx context.Context, businessID uuid.UUID) ([]Appointment, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE business_id = $1 AND status <> 'cancelled'
		ORDER BY scheduled_on DESC, start_minute DESC
	`, businessID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var appts []Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		appts = append(appts, *a)
	}
	return appts, rows.Err()
}

func (s *PgStore) UpdateAppointmentStatus(ctx context.Context, businessID, id uuid.UUID, from, to AppointmentStatus) (*Appointment, error) {
	row := s.db.QueryRow(ctx, `
		UPDATE appointments
		SET status = $3, updated_at = now()
		WHERE id = $1 AND business_id = $2 AND status = $4
		RETURNING `+appointmentColumns+`
	`, id, businessID, to, from)
	return scanAppointment(row)
}

func (s *PgStore) CountAppointments(ctx context.Context, businessID uuid.UUID) (int, int, error) {
	var total, pending int
	err := s.db.QueryRow(ctx, `
		SELECT COUNT(*), COUNT(*) FILTER (WHERE status = 'pending')
		FROM appointments
		WHERE business_id = $1
	`, businessID).Scan(&total, &pending)
	return total, pending, err
}
