package repository

import (
	"context"

	"github.com/sited-io/websites/internal/models"
	"github.com/sited-io/websites/internal/status"
	"github.com/sited-io/websites/pkg/builder"
)

// CustomizationRepository stores website customizations.
type CustomizationRepository struct {
	conn
}

// Create inserts a customization.
func (r *CustomizationRepository) Create(ctx context.Context, c models.Customization) (*models.Customization, error) {
	rows, err := builder.Insert[models.Customization](r.builder()).Values(c).ExecReturning(ctx)
	if err != nil {
		return nil, status.FromStorage(err)
	}
	created, err := first(rows)
	return created, status.FromStorage(err)
}

// Get returns the customization of a website.
func (r *CustomizationRepository) Get(ctx context.Context, websiteID string) (*models.Customization, error) {
	c, err := builder.Select[models.Customization](r.builder()).
		Where(builder.Eq("website_id", websiteID)).
		First(ctx)
	return c, status.FromStorage(err)
}

// GetForUser returns the customization of a website owned by userID.
func (r *CustomizationRepository) GetForUser(ctx context.Context, websiteID, userID string) (*models.Customization, error) {
	c, err := builder.Select[models.Customization](r.builder()).
		Where(builder.Eq("website_id", websiteID)).
		And(builder.Eq("user_id", userID)).
		First(ctx)
	return c, status.FromStorage(err)
}

// Update replaces both colors; nil clears a color.
func (r *CustomizationRepository) Update(ctx context.Context, websiteID, userID string, primary, secondary *string) (*models.Customization, error) {
	rows, err := builder.Update[models.Customization](r.builder()).
		Set("primary_color", primary).
		Set("secondary_color", secondary).
		SetRaw("updated_at", "NOW()").
		Where(builder.Eq("website_id", websiteID)).
		And(builder.Eq("user_id", userID)).
		ExecReturning(ctx)
	if err != nil {
		return nil, status.FromStorage(err)
	}
	updated, err := first(rows)
	return updated, status.FromStorage(err)
}

// SetLogo stores the logo object key; nil removes it.
func (r *CustomizationRepository) SetLogo(ctx context.Context, websiteID, userID string, key *string) (*models.Customization, error) {
	rows, err := builder.Update[models.Customization](r.builder()).
		Set("logo_image_url", key).
		SetRaw("updated_at", "NOW()").
		Where(builder.Eq("website_id", websiteID)).
		And(builder.Eq("user_id", userID)).
		ExecReturning(ctx)
	if err != nil {
		return nil, status.FromStorage(err)
	}
	updated, err := first(rows)
	return updated, status.FromStorage(err)
}

// Delete removes the customization of a website.
func (r *CustomizationRepository) Delete(ctx context.Context, websiteID, userID string) error {
	_, err := builder.Delete[models.Customization](r.builder()).
		Where(builder.Eq("website_id", websiteID)).
		And(builder.Eq("user_id", userID)).
		Exec(ctx)
	return status.FromStorage(err)
}
