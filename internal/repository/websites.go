package repository

import (
	"context"

	"go.uber.org/zap"

	"github.com/sited-io/websites/internal/models"
	"github.com/sited-io/websites/internal/status"
	"github.com/sited-io/websites/pkg/builder"
	"github.com/sited-io/websites/pkg/composite"
	"github.com/sited-io/websites/pkg/runtime"
)

// WebsiteRepository stores websites and reads the website aggregate.
type WebsiteRepository struct {
	conn
}

// Create inserts a website row.
func (r *WebsiteRepository) Create(ctx context.Context, w models.Website) (*models.Website, error) {
	rows, err := builder.Insert[models.Website](r.builder()).Values(w).ExecReturning(ctx)
	if err != nil {
		return nil, status.FromStorage(err)
	}
	created, err := first(rows)
	return created, status.FromStorage(err)
}

func (r *WebsiteRepository) aggregate(b *builder.DB) *builder.SelectQuery[websiteAggregateRow] {
	return builder.Select[websiteAggregateRow](b).
		Columns(aggregateColumns...).
		LeftJoin("customizations", "customizations.website_id = websites.website_id").
		Aggregate(domainsAggregate).
		Aggregate(pagesAggregate)
}

// Get returns the website aggregate.
func (r *WebsiteRepository) Get(ctx context.Context, websiteID string) (*models.Website, error) {
	return r.getAggregate(ctx, builder.Eq("websites.website_id", websiteID))
}

// GetForUser returns the website aggregate if userID owns it.
func (r *WebsiteRepository) GetForUser(ctx context.Context, websiteID, userID string) (*models.Website, error) {
	return r.getAggregate(ctx,
		builder.Eq("websites.website_id", websiteID),
		builder.Eq("websites.user_id", userID),
	)
}

func (r *WebsiteRepository) getAggregate(ctx context.Context, conds ...builder.Condition) (*models.Website, error) {
	q := r.aggregate(r.builder())
	for _, c := range conds {
		q.Where(c)
	}

	row, err := q.First(ctx)
	if err != nil {
		return nil, status.FromStorage(err)
	}

	w, err := r.toWebsite(row)
	if err != nil {
		return nil, status.Internalf(err, "decode website %s", row.WebsiteID)
	}
	return w, nil
}

// GetByName returns the website row (without children) userID named name.
func (r *WebsiteRepository) GetByName(ctx context.Context, userID, name string) (*models.Website, error) {
	w, err := builder.Select[models.Website](r.builder()).
		Where(builder.Eq("user_id", userID)).
		And(builder.Eq("name", name)).
		First(ctx)
	return w, status.FromStorage(err)
}

// List returns one page of website aggregates, newest first, optionally
// limited to one owner. The page and the total are read from one snapshot.
func (r *WebsiteRepository) List(ctx context.Context, userID *string, p models.Pagination) (*models.Paged[models.Website], error) {
	result := &models.Paged[models.Website]{Pagination: p}

	err := r.inTx(ctx, runtime.ReadOnlySnapshot, func(c conn) error {
		q := r.aggregate(c.builder())
		if userID != nil {
			q.Where(builder.Eq("websites.user_id", *userID))
		}

		total, err := q.Count(ctx)
		if err != nil {
			return err
		}
		result.TotalElements = total

		rows, err := q.OrderByDesc("websites.created_at").
			OrderByAsc("websites.website_id").
			Paginate(p.Page, p.Size).
			All(ctx)
		if err != nil {
			return err
		}

		result.Items = make([]models.Website, 0, len(rows))
		for i := range rows {
			w, err := r.toWebsite(&rows[i])
			if err != nil {
				return status.Internalf(err, "decode website %s", rows[i].WebsiteID)
			}
			result.Items = append(result.Items, *w)
		}
		return nil
	})
	if err != nil {
		return nil, status.FromStorage(err)
	}
	return result, nil
}

// Update renames a website owned by userID and returns the aggregate.
func (r *WebsiteRepository) Update(ctx context.Context, websiteID, userID string, name *string) (*models.Website, error) {
	if name != nil {
		_, err := builder.Update[models.Website](r.builder()).
			Set("name", *name).
			SetRaw("updated_at", "NOW()").
			Where(builder.Eq("website_id", websiteID)).
			And(builder.Eq("user_id", userID)).
			Exec(ctx)
		if err != nil {
			return nil, status.FromStorage(err)
		}
	}
	return r.GetForUser(ctx, websiteID, userID)
}

// Delete removes the website row. Child rows go with it through the
// foreign keys.
func (r *WebsiteRepository) Delete(ctx context.Context, websiteID, userID string) error {
	n, err := builder.Delete[models.Website](r.builder()).
		Where(builder.Eq("website_id", websiteID)).
		And(builder.Eq("user_id", userID)).
		Exec(ctx)
	return status.FromStorage(affected(n, err))
}

// DeleteCascade removes the website and all of its children in one
// transaction, children first.
func (r *WebsiteRepository) DeleteCascade(ctx context.Context, websiteID, userID string) error {
	err := r.inTx(ctx, pgxDefault, func(c conn) error {
		b := c.builder()
		if _, err := builder.Delete[models.StaticPage](b).
			Where(builder.Eq("website_id", websiteID)).And(builder.Eq("user_id", userID)).
			Exec(ctx); err != nil {
			return err
		}
		if _, err := builder.Delete[models.Page](b).
			Where(builder.Eq("website_id", websiteID)).And(builder.Eq("user_id", userID)).
			Exec(ctx); err != nil {
			return err
		}
		if _, err := builder.Delete[models.Domain](b).
			Where(builder.Eq("website_id", websiteID)).And(builder.Eq("user_id", userID)).
			Exec(ctx); err != nil {
			return err
		}
		if _, err := builder.Delete[models.Customization](b).
			Where(builder.Eq("website_id", websiteID)).And(builder.Eq("user_id", userID)).
			Exec(ctx); err != nil {
			return err
		}
		n, err := builder.Delete[models.Website](b).
			Where(builder.Eq("website_id", websiteID)).And(builder.Eq("user_id", userID)).
			Exec(ctx)
		return affected(n, err)
	})
	return status.FromStorage(err)
}

func (r *WebsiteRepository) toWebsite(row *websiteAggregateRow) (*models.Website, error) {
	w := &models.Website{
		WebsiteID:    row.WebsiteID,
		UserID:       row.UserID,
		CreatedAt:    row.CreatedAt,
		UpdatedAt:    row.UpdatedAt,
		Name:         row.Name,
		ClientID:     row.ClientID,
		ZitadelAppID: row.ZitadelAppID,
	}

	if row.CustomizationWebsiteID != nil {
		c := &models.Customization{
			WebsiteID:      *row.CustomizationWebsiteID,
			PrimaryColor:   row.PrimaryColor,
			SecondaryColor: row.SecondaryColor,
			LogoImageURL:   row.LogoImageURL,
		}
		if row.CustomizationUserID != nil {
			c.UserID = *row.CustomizationUserID
		}
		if row.CustomizationCreatedAt != nil {
			c.CreatedAt = *row.CustomizationCreatedAt
		}
		if row.CustomizationUpdatedAt != nil {
			c.UpdatedAt = *row.CustomizationUpdatedAt
		}
		w.Customization = c
	}

	domains, dropped, err := composite.DecodeArray(r.dec, row.Domains, domainShape)
	if err != nil {
		return nil, err
	}
	if dropped > 0 {
		r.log.Warn("skipped undecodable domains", zap.String("website_id", row.WebsiteID), zap.Int("dropped", dropped))
	}
	w.Domains = domains

	pages, dropped, err := composite.DecodeArray(r.dec, row.Pages, pageShape)
	if err != nil {
		return nil, err
	}
	if dropped > 0 {
		r.log.Warn("skipped undecodable pages", zap.String("website_id", row.WebsiteID), zap.Int("dropped", dropped))
	}
	w.Pages = pages

	return w, nil
}
