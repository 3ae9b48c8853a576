package business

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/turnitos/turnitos-backend/internal/booking"
)

// Store persists businesses and the slug index.
type Store interface {
	// CreateBusiness provisions the tenant: the business row and its seven
	// weekly hour rules are written atomically. Returns ErrEmailTaken when
	// the email is already registered.
	CreateBusiness(ctx context.Context, b *Business, week []booking.WeeklyHourRule) error
	GetBusiness(ctx context.Context, id uuid.UUID) (*Business, error)
	GetBusinessByEmail(ctx context.Context, email string) (*Business, error)
	GetBusinessBySlug(ctx context.Context, slug string) (*Business, error)
	// UpdateSlug returns ErrSlugTaken when another business holds the slug;
	// the original assignment is left unchanged.
	UpdateSlug(ctx context.Context, id uuid.UUID, slug string) error
	ActivateSubscription(ctx context.Context, id uuid.UUID, until time.Time, paymentRef string) error
}
