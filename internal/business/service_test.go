package business_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turnitos/turnitos-backend/internal/booking"
	"github.com/turnitos/turnitos-backend/internal/business"
	"github.com/turnitos/turnitos-backend/internal/memstore"
)

func TestRegisterProvisionsDefaults(t *testing.T) {
	store := memstore.New()
	m := business.NewManager(store, 7, nil)

	b, err := m.Register(context.Background(), "Owner@Example.COM", "secret1", "Barber Bros")
	require.NoError(t, err)

	assert.Equal(t, "owner@example.com", b.Email)
	assert.Equal(t, b.ID.String(), b.Slug)
	assert.NotEqual(t, "secret1", b.PasswordHash)

	left := time.Until(b.TrialEndsAt)
	assert.Greater(t, left, 6*24*time.Hour)
	assert.LessOrEqual(t, left, 7*24*time.Hour)

	// The full week of hour rules lands with the account.
	rules, err := store.WeeklyRules(context.Background(), b.ID)
	require.NoError(t, err)
	require.Len(t, rules, 7)
	for _, rule := range rules {
		assert.Equal(t, rule.Weekday < 5, rule.IsOpen)
	}
}

func TestRegisterValidation(t *testing.T) {
	m := business.NewManager(memstore.New(), 7, nil)

	_, err := m.Register(context.Background(), "not-an-email", "secret1", "Shop")
	assert.ErrorIs(t, err, booking.ErrValidation)

	_, err = m.Register(context.Background(), "a@b.co", "short", "Shop")
	assert.ErrorIs(t, err, booking.ErrValidation)

	_, err = m.Register(context.Background(), "a@b.co", "secret1", "   ")
	assert.ErrorIs(t, err, booking.ErrValidation)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	m := business.NewManager(memstore.New(), 7, nil)

	_, err := m.Register(context.Background(), "owner@example.com", "secret1", "First")
	require.NoError(t, err)

	_, err = m.Register(context.Background(), "owner@example.com", "secret1", "Second")
	assert.ErrorIs(t, err, business.ErrEmailTaken)
}

func TestAuthenticate(t *testing.T) {
	m := business.NewManager(memstore.New(), 7, nil)

	registered, err := m.Register(context.Background(), "owner@example.com", "secret1", "Shop")
	require.NoError(t, err)

	b, err := m.Authenticate(context.Background(), "OWNER@example.com ", "secret1")
	require.NoError(t, err)
	assert.Equal(t, registered.ID, b.ID)

	_, err = m.Authenticate(context.Background(), "owner@example.com", "wrong")
	assert.ErrorIs(t, err, business.ErrInvalidCredentials)

	// Unknown accounts produce the same error as bad passwords.
	_, err = m.Authenticate(context.Background(), "nobody@example.com", "secret1")
	assert.ErrorIs(t, err, business.ErrInvalidCredentials)
}

func TestSetSlug(t *testing.T) {
	m := business.NewManager(memstore.New(), 7, nil)

	first, err := m.Register(context.Background(), "a@example.com", "secret1", "First")
	require.NoError(t, err)
	second, err := m.Register(context.Background(), "b@example.com", "secret1", "Second")
	require.NoError(t, err)

	require.NoError(t, m.SetSlug(context.Background(), first.ID, "  Barber-Bros "))
	b, err := m.BySlug(context.Background(), "barber-bros")
	require.NoError(t, err)
	assert.Equal(t, first.ID, b.ID)

	err = m.SetSlug(context.Background(), second.ID, "ab")
	assert.ErrorIs(t, err, booking.ErrValidation)
	err = m.SetSlug(context.Background(), second.ID, "Not Valid!")
	assert.ErrorIs(t, err, booking.ErrValidation)

	// A conflict leaves both assignments untouched.
	err = m.SetSlug(context.Background(), second.ID, "barber-bros")
	assert.ErrorIs(t, err, business.ErrSlugTaken)
	b, err = m.BySlug(context.Background(), "barber-bros")
	require.NoError(t, err)
	assert.Equal(t, first.ID, b.ID)
	b, err = m.BySlug(context.Background(), second.ID.String())
	require.NoError(t, err)
	assert.Equal(t, second.ID, b.ID)
}

func TestBookableGate(t *testing.T) {
	store := memstore.New()
	m := business.NewManager(store, 7, nil)

	fresh, err := m.Register(context.Background(), "fresh@example.com", "secret1", "Fresh")
	require.NoError(t, err)

	ok, err := m.Bookable(context.Background(), fresh.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	// Expired trial, no subscription.
	expired := &business.Business{
		ID:          uuid.New(),
		Email:       "expired@example.com",
		Name:        "Expired",
		Slug:        "expired-shop",
		TrialEndsAt: time.Now().UTC().Add(-24 * time.Hour),
	}
	require.NoError(t, store.CreateBusiness(context.Background(), expired, booking.DefaultWeek(expired.ID)))

	ok, err = m.Bookable(context.Background(), expired.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	// An approved payment reopens the page for 30 days.
	activated, err := m.ActivateSubscription(context.Background(), expired.ID, "pay-123")
	require.NoError(t, err)
	assert.True(t, activated.SubscriptionActive)
	require.NotNil(t, activated.SubscriptionEndsAt)
	assert.WithinDuration(t, time.Now().UTC().Add(30*24*time.Hour), *activated.SubscriptionEndsAt, time.Minute)
	require.NotNil(t, activated.LastPaymentRef)
	assert.Equal(t, "pay-123", *activated.LastPaymentRef)

	ok, err = m.Bookable(context.Background(), expired.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = m.Bookable(context.Background(), uuid.New())
	assert.ErrorIs(t, err, business.ErrBusinessNotFound)
}

func TestTrialDaysLeft(t *testing.T) {
	now := time.Now().UTC()
	b := &business.Business{TrialEndsAt: now.Add(72*time.Hour + time.Minute)}
	assert.Equal(t, 3, b.TrialDaysLeft(now))

	b.TrialEndsAt = now.Add(-time.Hour)
	assert.Equal(t, 0, b.TrialDaysLeft(now))
}

func TestValidSlug(t *testing.T) {
	assert.True(t, business.ValidSlug("barber-bros"))
	assert.True(t, business.ValidSlug("abc"))
	assert.True(t, business.ValidSlug("salon-24-7"))

	assert.False(t, business.ValidSlug("ab"))
	assert.False(t, business.ValidSlug("Barber"))
	assert.False(t, business.ValidSlug("has space"))
	assert.False(t, business.ValidSlug("acentos-ñ"))
	assert.False(t, business.ValidSlug(""))
}
