package booking

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Catalog manages the bookable service definitions of a business.
type Catalog struct {
	store  Store
	logger *zap.Logger
}

func NewCatalog(store Store, logger *zap.Logger) *Catalog {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Catalog{store: store, logger: logger}
}

func validateService(name string, durationMinutes int, price float64) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: name is required", ErrValidation)
	}
	if durationMinutes <= 0 {
		return fmt.Errorf("%w: duration_minutes must be positive", ErrValidation)
	}
	if price < 0 {
		return fmt.Errorf("%w: price must not be negative", ErrValidation)
	}
	return nil
}

func (c *Catalog) Create(ctx context.Context, businessID uuid.UUID, name, description string, durationMinutes int, price float64) (*Service, error) {
	if err := validateService(name, durationMinutes, price); err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	svc := &Service{
		ID:              uuid.New(),
		BusinessID:      businessID,
		Name:            name,
		Description:     description,
		DurationMinutes: durationMinutes,
		Price:           price,
		Active:          true,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := c.store.CreateService(ctx, svc); err != nil {
		return nil, fmt.Errorf("create service: %w", err)
	}
	c.logger.Info("service created",
		zap.String("business_id", businessID.String()),
		zap.String("service_id", svc.ID.String()))
	return svc, nil
}

func (c *Catalog) Update(ctx context.Context, businessID, serviceID uuid.UUID, name, description string, durationMinutes int, price float64) (*Service, error) {
	if err := validateService(name, durationMinutes, price); err != nil {
		return nil, err
	}
	existing, err := c.store.GetService(ctx, businessID, serviceID)
	if err != nil {
		return nil, err
	}
	existing.Name = name
	existing.Description = description
	existing.DurationMinutes = durationMinutes
	existing.Price = price
	existing.UpdatedAt = time.Now().UTC()
	return c.store.UpdateService(ctx, existing)
}

func (c *Catalog) Get(ctx context.Context, businessID, serviceID uuid.UUID) (*Service, error) {
	return c.store.GetService(ctx, businessID, serviceID)
}

// List returns the business's services, hiding soft-deleted ones when
// activeOnly is set.
func (c *Catalog) List(ctx context.Context, businessID uuid.UUID, activeOnly bool) ([]Service, error) {
	svcs, err := c.store.ListServices(ctx, businessID, activeOnly)
	if err != nil {
		return nil, fmt.Errorf("list services: %w", err)
	}
	return svcs, nil
}

// SoftDelete deactivates a service. Existing appointments that reference it
// stay valid; the row is never removed.
func (c *Catalog) SoftDelete(ctx context.Context, businessID, serviceID uuid.UUID) error {
	if err := c.store.DeactivateService(ctx, businessID, serviceID); err != nil {
		return err
	}
	c.logger.Info("service deactivated",
		zap.String("business_id", businessID.String()),
		zap.String("service_id", serviceID.String()))
	return nil
}
