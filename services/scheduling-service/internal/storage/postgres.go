package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/md-rashed-zaman/clinicbook/libs/db"
	"github.com/md-rashed-zaman/clinicbook/services/scheduling-service/internal/model"
)

// Schema creates the appointment tables. Dates and times are stored as the same
// zero-padded text the API uses, so lexical order is chronological order.
const Schema = `
CREATE TABLE IF NOT EXISTS appointments (
	id                 text PRIMARY KEY,
	client_id          text NOT NULL DEFAULT '',
	client_name        text NOT NULL,
	client_email       text NOT NULL DEFAULT '',
	client_phone       text NOT NULL DEFAULT '',
	practitioner_id    text NOT NULL,
	appt_date          text NOT NULL,
	start_time         text NOT NULL,
	end_time           text NOT NULL,
	duration_minutes   integer NOT NULL,
	service_id         text NOT NULL DEFAULT '',
	service_type       text NOT NULL,
	location_mode      text NOT NULL,
	centre_id          text NOT NULL DEFAULT '',
	status             text NOT NULL,
	payment_status     text NOT NULL,
	price              double precision NOT NULL,
	notes              text NOT NULL DEFAULT '',
	practitioner_notes text NOT NULL DEFAULT '',
	reminder_sent      boolean NOT NULL DEFAULT false,
	created_at         timestamptz NOT NULL,
	updated_at         timestamptz NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS appointments_live_slot
	ON appointments (practitioner_id, appt_date, start_time)
	WHERE status <> 'cancelled';
CREATE INDEX IF NOT EXISTS appointments_by_date ON appointments (appt_date, start_time);
CREATE TABLE IF NOT EXISTS appointment_idempotency_keys (
	idempotency_key text PRIMARY KEY,
	appointment_id  text REFERENCES appointments (id),
	created_at      timestamptz NOT NULL DEFAULT now()
);
`

const selectColumns = `
	id, client_id, client_name, client_email, client_phone, practitioner_id,
	appt_date, start_time, end_time, duration_minutes, service_id, service_type,
	location_mode, COALESCE(centre_id, ''), status, payment_status, price, notes,
	practitioner_notes, reminder_sent, created_at, updated_at`

type PostgresStore struct {
	pool *db.Pool
}

func NewPostgresStore(pool *db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, Schema)
	return err
}

func (s *PostgresStore) Insert(ctx context.Context, appt model.Appointment, idempotencyKey string) (model.Appointment, bool, error) {
	stored, replayed := appt, false
	err := db.InTx(ctx, s.pool, func(tx pgx.Tx) error {
		if idempotencyKey != "" {
			existingID, err := lockIdempotencyKey(ctx, tx, idempotencyKey)
			if err != nil {
				return fmt.Errorf("lock idempotency key: %w", err)
			}
			if existingID != "" {
				existing, err := getOne(ctx, tx, existingID)
				if err != nil {
					return err
				}
				stored, replayed = existing, true
				return nil
			}
		}

		if _, err := tx.Exec(ctx, `
			INSERT INTO appointments
				(id, client_id, client_name, client_email, client_phone, practitioner_id,
				 appt_date, start_time, end_time, duration_minutes, service_id, service_type,
				 location_mode, centre_id, status, payment_status, price, notes,
				 practitioner_notes, reminder_sent, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22)
		`, appt.ID, appt.ClientID, appt.ClientName, appt.ClientEmail, appt.ClientPhone, appt.PractitionerID,
			appt.Date, appt.StartTime, appt.EndTime, appt.Duration, appt.ServiceID, appt.ServiceType,
			string(appt.LocationMode), appt.CentreID, string(appt.Status), string(appt.PaymentStatus), appt.Price, appt.Notes,
			appt.PractitionerNotes, appt.ReminderSent, appt.CreatedAt, appt.UpdatedAt); err != nil {
			return err
		}

		if idempotencyKey != "" {
			if _, err := tx.Exec(ctx, `
				UPDATE appointment_idempotency_keys SET appointment_id = $2 WHERE idempotency_key = $1
			`, idempotencyKey, appt.ID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return model.Appointment{}, false, translate(err)
	}
	return stored, replayed, nil
}

// lockIdempotencyKey claims key for this transaction and returns the appointment id
// already recorded under it, if any.
func lockIdempotencyKey(ctx context.Context, tx pgx.Tx, key string) (string, error) {
	if _, err := tx.Exec(ctx, `
		INSERT INTO appointment_idempotency_keys (idempotency_key)
		VALUES ($1)
		ON CONFLICT (idempotency_key) DO NOTHING
	`, key); err != nil {
		return "", err
	}
	var id string
	err := tx.QueryRow(ctx, `
		SELECT COALESCE(appointment_id, '')
		FROM appointment_idempotency_keys
		WHERE idempotency_key = $1
		FOR UPDATE
	`, key).Scan(&id)
	return id, err
}

func (s *PostgresStore) LookupIdempotencyKey(ctx context.Context, key string) (model.Appointment, bool, error) {
	var id string
	err := s.pool.QueryRow(ctx, `
		SELECT COALESCE(appointment_id, '') FROM appointment_idempotency_keys WHERE idempotency_key = $1
	`, key).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) || (err == nil && id == "") {
		return model.Appointment{}, false, nil
	}
	if err != nil {
		return model.Appointment{}, false, err
	}
	appt, err := s.Get(ctx, id)
	if err != nil {
		return model.Appointment{}, false, err
	}
	return appt, true, nil
}

func (s *PostgresStore) Get(ctx context.Context, id string) (model.Appointment, error) {
	return getOne(ctx, s.pool, id)
}

func (s *PostgresStore) Save(ctx context.Context, appt model.Appointment) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE appointments
		SET client_id = $2, client_name = $3, client_email = $4, client_phone = $5,
			practitioner_id = $6, appt_date = $7, start_time = $8, end_time = $9,
			duration_minutes = $10, service_id = $11, service_type = $12, location_mode = $13,
			centre_id = $14, status = $15, payment_status = $16, price = $17, notes = $18,
			practitioner_notes = $19, reminder_sent = $20, updated_at = $21
		WHERE id = $1
	`, appt.ID, appt.ClientID, appt.ClientName, appt.ClientEmail, appt.ClientPhone,
		appt.PractitionerID, appt.Date, appt.StartTime, appt.EndTime,
		appt.Duration, appt.ServiceID, appt.ServiceType, string(appt.LocationMode),
		appt.CentreID, string(appt.Status), string(appt.PaymentStatus), appt.Price, appt.Notes,
		appt.PractitionerNotes, appt.ReminderSent, appt.UpdatedAt)
	if err != nil {
		return translate(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) ListByDate(ctx context.Context, date string) ([]model.Appointment, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+selectColumns+`
		FROM appointments
		WHERE appt_date = $1
		ORDER BY start_time ASC, created_at ASC
	`, date)
	if err != nil {
		return nil, err
	}
	return collect(rows)
}

func (s *PostgresStore) List(ctx context.Context) ([]model.Appointment, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+selectColumns+`
		FROM appointments
		ORDER BY created_at ASC
	`)
	if err != nil {
		return nil, err
	}
	return collect(rows)
}

type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func getOne(ctx context.Context, q querier, id string) (model.Appointment, error) {
	appt, err := scan(q.QueryRow(ctx, `SELECT `+selectColumns+` FROM appointments WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Appointment{}, ErrNotFound
	}
	return appt, err
}

func collect(rows pgx.Rows) ([]model.Appointment, error) {
	defer rows.Close()
	var out []model.Appointment
	for rows.Next() {
		appt, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, appt)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}

func scan(row pgx.Row) (model.Appointment, error) {
	var appt model.Appointment
	var mode, status, payment string
	err := row.Scan(
		&appt.ID,
		&appt.ClientID,
		&appt.ClientName,
		&appt.ClientEmail,
		&appt.ClientPhone,
		&appt.PractitionerID,
		&appt.Date,
		&appt.StartTime,
		&appt.EndTime,
		&appt.Duration,
		&appt.ServiceID,
		&appt.ServiceType,
		&mode,
		&appt.CentreID,
		&status,
		&payment,
		&appt.Price,
		&appt.Notes,
		&appt.PractitionerNotes,
		&appt.ReminderSent,
		&appt.CreatedAt,
		&appt.UpdatedAt,
	)
	if err != nil {
		return model.Appointment{}, err
	}
	appt.LocationMode = model.LocationMode(mode)
	appt.Status = model.AppointmentStatus(status)
	appt.PaymentStatus = model.PaymentStatus(payment)
	return appt, nil
}

// translate maps a unique violation on the live-slot index to ErrDuplicateSlot.
func translate(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return fmt.Errorf("%w: %s", ErrDuplicateSlot, pgErr.ConstraintName)
	}
	return err
}

var _ Store = (*PostgresStore)(nil)
