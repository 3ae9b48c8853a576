package business

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/turnitos/turnitos-backend/internal/booking"
)

const (
	minPasswordLength  = 6
	subscriptionPeriod = 30 * 24 * time.Hour
)

// Manager handles tenant provisioning, credentials, the public slug and
// the access gate. It implements booking.AccessGate.
type Manager struct {
	store     Store
	trialDays int
	logger    *zap.Logger
	now       func() time.Time
}

func NewManager(store Store, trialDays int, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{store: store, trialDays: trialDays, logger: logger, now: time.Now}
}

// Register provisions a business: account row plus the default week of
// seven hour rules, in one atomic write. The initial public slug is the
// business ID; owners customize it later.
func (m *Manager) Register(ctx context.Context, email, password, name string) (*Business, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, fmt.Errorf("%w: email is not a valid address", booking.ErrValidation)
	}
	if len(password) < minPasswordLength {
		return nil, fmt.Errorf("%w: password must be at least %d characters", booking.ErrValidation, minPasswordLength)
	}
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("%w: business_name is required", booking.ErrValidation)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := m.now().UTC()
	b := &Business{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: string(hash),
		Name:         name,
		TrialEndsAt:  now.Add(time.Duration(m.trialDays) * 24 * time.Hour),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	b.Slug = b.ID.String()

	if err := m.store.CreateBusiness(ctx, b, booking.DefaultWeek(b.ID)); err != nil {
		return nil, err
	}
	m.logger.Info("business registered",
		zap.String("business_id", b.ID.String()),
		zap.String("name", b.Name))
	return b, nil
}

func (m *Manager) Authenticate(ctx context.Context, email, password string) (*Business, error) {
	b, err := m.store.GetBusinessByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if err == ErrBusinessNotFound {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(b.PasswordHash), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}
	return b, nil
}

func (m *Manager) Get(ctx context.Context, id uuid.UUID) (*Business, error) {
	return m.store.GetBusiness(ctx, id)
}

func (m *Manager) BySlug(ctx context.Context, slug string) (*Business, error) {
	return m.store.GetBusinessBySlug(ctx, slug)
}

// SetSlug validates and claims a custom public slug. A conflict with
// another business leaves the current assignment untouched.
func (m *Manager) SetSlug(ctx context.Context, id uuid.UUID, slug string) error {
	slug = strings.ToLower(strings.TrimSpace(slug))
	if !ValidSlug(slug) {
		return fmt.Errorf("%w: slug must be at least 3 characters of a-z, 0-9 or -", booking.ErrValidation)
	}
	if err := m.store.UpdateSlug(ctx, id, slug); err != nil {
		return err
	}
	m.logger.Info("slug updated", zap.String("business_id", id.String()), zap.String("slug", slug))
	return nil
}

// Bookable implements booking.AccessGate from trial/subscription state.
func (m *Manager) Bookable(ctx context.Context, businessID uuid.UUID) (bool, error) {
	b, err := m.store.GetBusiness(ctx, businessID)
	if err != nil {
		return false, err
	}
	return b.Bookable(m.now().UTC()), nil
}

// ActivateSubscription records an approved payment: subscription on for 30
// days. Settlement itself happens at the payment provider; only this state
// transition lives in the engine.
func (m *Manager) ActivateSubscription(ctx context.Context, businessID uuid.UUID, paymentRef string) (*Business, error) {
	until := m.now().UTC().Add(subscriptionPeriod)
	if err := m.store.ActivateSubscription(ctx, businessID, until, paymentRef); err != nil {
		return nil, err
	}
	m.logger.Info("subscription activated",
		zap.String("business_id", businessID.String()),
		zap.String("payment_ref", paymentRef),
		zap.Time("until", until))
	return m.store.GetBusiness(ctx, businessID)
}
