package business

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/turnitos/turnitos-backend/internal/booking"
)

type PgStore struct {
	db booking.DB
}

func NewPgStore(db booking.DB) *PgStore {
	return &PgStore{db: db}
}

const businessColumns = `id, email, password_hash, name, slug, trial_ends_at, subscription_active, subscription_ends_at, last_payment_ref, created_at, updated_at`

func scanBusiness(row pgx.Row) (*Business, error) {
	var b Business
	err := row.Scan(
		&b.ID,
		&b.Email,
		&b.PasswordHash,
		&b.Name,
		&b.Slug,
		&b.TrialEndsAt,
		&b.SubscriptionActive,
		&b.SubscriptionEndsAt,
		&b.LastPaymentRef,
		&b.CreatedAt,
		&b.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrBusinessNotFound
		}
		return nil, err
	}
	return &b, nil
}

const uniqueViolation = "23505"

func uniqueViolationOn(err error, column string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation && strings.Contains(pgErr.ConstraintName, column)
}

func (s *PgStore) CreateBusiness(ctx context.Context, b *Business, week []booking.WeeklyHourRule) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO businesses (`+businessColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, b.ID, b.Email, b.PasswordHash, b.Name, b.Slug, b.TrialEndsAt,
		b.SubscriptionActive, b.SubscriptionEndsAt, b.LastPaymentRef, b.CreatedAt, b.UpdatedAt)
	if err != nil {
		if uniqueViolationOn(err, "email") {
			return ErrEmailTaken
		}
		if uniqueViolationOn(err, "slug") {
			return ErrSlugTaken
		}
		return err
	}

	for _, r := range week {
		_, err := tx.Exec(ctx, `
			INSERT INTO business_hours (business_id, weekday, is_open, open_minute, close_minute)
			VALUES ($1, $2, $3, $4, $5)
		`, b.ID, r.Weekday, r.IsOpen, r.OpenMinute, r.CloseMinute)
		if err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func (s *PgStore) GetBusiness(ctx context.Context, id uuid.UUID) (*Business, error) {
	row := s.db.QueryRow(ctx, `
		SELECT `+businessColumns+` FROM businesses WHERE id = $1
	`, id)
	return scanBusiness(row)
}

func (s *PgStore) GetBusinessByEmail(ctx context.Context, email string) (*Business, error) {
	row := s.db.QueryRow(ctx, `
		SELECT `+businessColumns+` FROM businesses WHERE email = $1
	`, email)
	return scanBusiness(row)
}

func (s *PgStore) GetBusinessBySlug(ctx context.Context, slug string) (*Business, error) {
	row := s.db.QueryRow(ctx, `
		SELECT `+businessColumns+` FROM businesses WHERE slug = $1
	`, slug)
	return scanBusiness(row)
}

func (s *PgStore) UpdateSlug(ctx context.Context, id uuid.UUID, slug string) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE businesses SET slug = $2, updated_at = now() WHERE id = $1
	`, id, slug)
	if err != nil {
		if uniqueViolationOn(err, "slug") {
			return ErrSlugTaken
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrBusinessNotFound
	}
	return nil
}

func (s *PgStore) ActivateSubscription(ctx context.Context, id uuid.UUID, until time.Time, paymentRef string) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE businesses
		SET subscription_active = true,
		    subscription_ends_at = $2,
		    last_payment_ref = $3,
		    updated_at = now()
		WHERE id = $1
	`, id, until, paymentRef)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrBusinessNotFound
	}
	return nil
}
