package repository

import (
	"context"
	"encoding/json"

	"github.com/sited-io/websites/internal/models"
	"github.com/sited-io/websites/internal/status"
	"github.com/sited-io/websites/pkg/builder"
)

// StaticPageRepository stores static page component trees.
type StaticPageRepository struct {
	conn
}

// Create inserts a static page.
func (r *StaticPageRepository) Create(ctx context.Context, sp models.StaticPage) (*models.StaticPage, error) {
	rows, err := builder.Insert[models.StaticPage](r.builder()).Values(sp).ExecReturning(ctx)
	if err != nil {
		return nil, status.FromStorage(err)
	}
	created, err := first(rows)
	return created, status.FromStorage(err)
}

// Ensure creates an empty static page for a page unless one exists.
func (r *StaticPageRepository) Ensure(ctx context.Context, pageID int64, websiteID, userID string) error {
	_, err := builder.Insert[models.StaticPage](r.builder()).
		Values(models.StaticPage{
			PageID:     pageID,
			WebsiteID:  websiteID,
			UserID:     userID,
			Components: models.EmptyComponents,
		}).
		OnConflictDoNothing("page_id").
		Exec(ctx)
	return status.FromStorage(err)
}

// Get returns the static page of a page.
func (r *StaticPageRepository) Get(ctx context.Context, pageID int64) (*models.StaticPage, error) {
	sp, err := builder.Select[models.StaticPage](r.builder()).
		Where(builder.Eq("page_id", pageID)).
		First(ctx)
	return sp, status.FromStorage(err)
}

// Update replaces the components of a static page owned by userID.
func (r *StaticPageRepository) Update(ctx context.Context, pageID int64, userID string, components json.RawMessage) (*models.StaticPage, error) {
	rows, err := builder.Update[models.StaticPage](r.builder()).
		Set("components", components).
		SetRaw("updated_at", "NOW()").
		Where(builder.Eq("page_id", pageID)).
		And(builder.Eq("user_id", userID)).
		ExecReturning(ctx)
	if err != nil {
		return nil, status.FromStorage(err)
	}
	updated, err := first(rows)
	return updated, status.FromStorage(err)
}

// Delete removes the static page of a page. A missing row is not an error.
func (r *StaticPageRepository) Delete(ctx context.Context, pageID int64, userID string) error {
	_, err := builder.Delete[models.StaticPage](r.builder()).
		Where(builder.Eq("page_id", pageID)).
		And(builder.Eq("user_id", userID)).
		Exec(ctx)
	return status.FromStorage(err)
}

// DeleteForWebsite removes every static page of a website.
func (r *StaticPageRepository) DeleteForWebsite(ctx context.Context, websiteID, userID string) error {
	_, err := builder.Delete[models.StaticPage](r.builder()).
		Where(builder.Eq("website_id", websiteID)).
		And(builder.Eq("user_id", userID)).
		Exec(ctx)
	return status.FromStorage(err)
}
