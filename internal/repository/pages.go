package repository

import (
	"context"
	"errors"

	"github.com/sited-io/websites/internal/models"
	"github.com/sited-io/websites/internal/slug"
	"github.com/sited-io/websites/internal/status"
	"github.com/sited-io/websites/pkg/builder"
	"github.com/sited-io/websites/pkg/runtime"
)

// PageRepository stores pages.
type PageRepository struct {
	conn
}

// PageUpdate lists the page fields to change; nil fields are kept.
type PageUpdate struct {
	PageType   *models.PageType
	ContentID  *string
	Title      *string
	IsHomePage *bool
	Path       *string
}

// Create inserts a page.
func (r *PageRepository) Create(ctx context.Context, p models.Page) (*models.Page, error) {
	rows, err := builder.Insert[models.Page](r.builder()).Values(p).ExecReturning(ctx)
	if err != nil {
		return nil, status.FromStorage(err)
	}
	created, err := first(rows)
	return created, status.FromStorage(err)
}

// Get returns a page by id.
func (r *PageRepository) Get(ctx context.Context, pageID int64) (*models.Page, error) {
	p, err := builder.Select[models.Page](r.builder()).
		Where(builder.Eq("page_id", pageID)).
		First(ctx)
	return p, status.FromStorage(err)
}

// GetForUser returns a page by id if userID owns it.
func (r *PageRepository) GetForUser(ctx context.Context, pageID int64, userID string) (*models.Page, error) {
	p, err := builder.Select[models.Page](r.builder()).
		Where(builder.Eq("page_id", pageID)).
		And(builder.Eq("user_id", userID)).
		First(ctx)
	return p, status.FromStorage(err)
}

// GetByPath returns the page of a website at path.
func (r *PageRepository) GetByPath(ctx context.Context, websiteID, path string) (*models.Page, error) {
	p, err := builder.Select[models.Page](r.builder()).
		Where(builder.Eq("website_id", websiteID)).
		And(builder.Eq("path", path)).
		OrderByAsc("page_id").
		First(ctx)
	return p, status.FromStorage(err)
}

// GetHomePage returns the home page of a website.
func (r *PageRepository) GetHomePage(ctx context.Context, websiteID string) (*models.Page, error) {
	p, err := builder.Select[models.Page](r.builder()).
		Where(builder.Eq("website_id", websiteID)).
		And(builder.Eq("is_home_page", true)).
		First(ctx)
	return p, status.FromStorage(err)
}

// List returns one page of pages ordered by id, optionally limited to one
// website. The page and the total are read from one snapshot.
func (r *PageRepository) List(ctx context.Context, websiteID *string, p models.Pagination) (*models.Paged[models.Page], error) {
	result := &models.Paged[models.Page]{Pagination: p}

	err := r.inTx(ctx, runtime.ReadOnlySnapshot, func(c conn) error {
		q := builder.Select[models.Page](c.builder())
		if websiteID != nil {
			q.Where(builder.Eq("website_id", *websiteID))
		}

		total, err := q.Count(ctx)
		if err != nil {
			return err
		}
		result.TotalElements = total

		items, err := q.OrderByAsc("page_id").Paginate(p.Page, p.Size).All(ctx)
		if err != nil {
			return err
		}
		result.Items = items
		return nil
	})
	if err != nil {
		return nil, status.FromStorage(err)
	}
	return result, nil
}

// DemoteHomePage clears the home page flag of a website's current home page
// and moves it to the slug of its title. It returns the demoted page, or nil
// when the website has no home page. The row is locked until the enclosing
// transaction ends.
func (r *PageRepository) DemoteHomePage(ctx context.Context, websiteID, userID string) (*models.Page, error) {
	current, err := builder.Select[models.Page](r.builder()).
		Where(builder.Eq("website_id", websiteID)).
		And(builder.Eq("user_id", userID)).
		And(builder.Eq("is_home_page", true)).
		ForUpdate().
		First(ctx)
	if errors.Is(err, runtime.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, status.FromStorage(err)
	}

	rows, err := builder.Update[models.Page](r.builder()).
		Set("is_home_page", false).
		Set("path", slug.Path(current.Title)).
		SetRaw("updated_at", "NOW()").
		Where(builder.Eq("page_id", current.PageID)).
		ExecReturning(ctx)
	if err != nil {
		return nil, status.FromStorage(err)
	}
	demoted, err := first(rows)
	return demoted, status.FromStorage(err)
}

// Update applies u to a page owned by userID.
func (r *PageRepository) Update(ctx context.Context, pageID int64, userID string, u PageUpdate) (*models.Page, error) {
	q := builder.Update[models.Page](r.builder())
	if u.PageType != nil {
		q.Set("page_type", *u.PageType)
	}
	if u.ContentID != nil {
		q.Set("content_id", *u.ContentID)
	}
	if u.Title != nil {
		q.Set("title", *u.Title)
	}
	if u.IsHomePage != nil {
		q.Set("is_home_page", *u.IsHomePage)
	}
	if u.Path != nil {
		q.Set("path", *u.Path)
	}

	rows, err := q.SetRaw("updated_at", "NOW()").
		Where(builder.Eq("page_id", pageID)).
		And(builder.Eq("user_id", userID)).
		ExecReturning(ctx)
	if err != nil {
		return nil, status.FromStorage(err)
	}
	updated, err := first(rows)
	return updated, status.FromStorage(err)
}

// Delete removes a page owned by userID.
func (r *PageRepository) Delete(ctx context.Context, pageID int64, userID string) error {
	n, err := builder.Delete[models.Page](r.builder()).
		Where(builder.Eq("page_id", pageID)).
		And(builder.Eq("user_id", userID)).
		Exec(ctx)
	return status.FromStorage(affected(n, err))
}

// DeleteForWebsite removes every page of a website.
func (r *PageRepository) DeleteForWebsite(ctx context.Context, websiteID, userID string) error {
	_, err := builder.Delete[models.Page](r.builder()).
		Where(builder.Eq("website_id", websiteID)).
		And(builder.Eq("user_id", userID)).
		Exec(ctx)
	return status.FromStorage(err)
}
