package business

import (
	"errors"
	"regexp"
	"time"

	"github.com/google/uuid"
)

var (
	ErrBusinessNotFound   = errors.New("business not found")
	ErrEmailTaken         = errors.New("email already registered")
	ErrSlugTaken          = errors.New("slug already in use")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// Business is one tenant: the owner account, its public slug and the
// trial/subscription state that drives the access gate.
type Business struct {
	ID                 uuid.UUID
	Email              string
	PasswordHash       string
	Name               string
	Slug               string
	TrialEndsAt        time.Time
	SubscriptionActive bool
	SubscriptionEndsAt *time.Time
	LastPaymentRef     *string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// Bookable reports whether the public page is active: a live subscription,
// or failing that, an unexpired trial.
func (b *Business) Bookable(now time.Time) bool {
	if b.SubscriptionActive {
		if b.SubscriptionEndsAt == nil {
			return true
		}
		return now.Before(*b.SubscriptionEndsAt)
	}
	return now.Before(b.TrialEndsAt)
}

// TrialDaysLeft returns whole days remaining in the trial, never negative.
func (b *Business) TrialDaysLeft(now time.Time) int {
	left := int(b.TrialEndsAt.Sub(now).Hours() / 24)
	if left < 0 {
		return 0
	}
	return left
}

var slugPattern = regexp.MustCompile(`^[a-z0-9-]+$`)

// ValidSlug reports whether s is a usable public slug: at least three
// characters of [a-z0-9-].
func ValidSlug(s string) bool {
	return len(s) >= 3 && slugPattern.MatchString(s)
}
