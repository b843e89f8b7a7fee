package repository

import (
	"context"

	"github.com/sited-io/websites/internal/models"
	"github.com/sited-io/websites/internal/status"
	"github.com/sited-io/websites/pkg/builder"
)

// DomainRepository stores domains.
type DomainRepository struct {
	conn
}

// ProvisionFunc performs the external side effect of an activation. It runs
// while the activating transaction holds the domain row.
type ProvisionFunc func(ctx context.Context, d models.Domain) error

// Create inserts a domain.
func (r *DomainRepository) Create(ctx context.Context, d models.Domain) (*models.Domain, error) {
	rows, err := builder.Insert[models.Domain](r.builder()).Values(d).ExecReturning(ctx)
	if err != nil {
		return nil, status.FromStorage(err)
	}
	created, err := first(rows)
	return created, status.FromStorage(err)
}

// Get returns a domain by id.
func (r *DomainRepository) Get(ctx context.Context, domainID int64) (*models.Domain, error) {
	d, err := builder.Select[models.Domain](r.builder()).
		Where(builder.Eq("domain_id", domainID)).
		First(ctx)
	return d, status.FromStorage(err)
}

// GetForUser returns a domain by id if userID owns it.
func (r *DomainRepository) GetForUser(ctx context.Context, domainID int64, userID string) (*models.Domain, error) {
	d, err := builder.Select[models.Domain](r.builder()).
		Where(builder.Eq("domain_id", domainID)).
		And(builder.Eq("user_id", userID)).
		First(ctx)
	return d, status.FromStorage(err)
}

// GetByDomain returns the domain row serving name: its Active row, or the
// Internal row of a platform subdomain.
func (r *DomainRepository) GetByDomain(ctx context.Context, name string) (*models.Domain, error) {
	d, err := builder.Select[models.Domain](r.builder()).
		Where(builder.Eq("domain", name)).
		And(builder.In("status", models.DomainActive, models.DomainInternal)).
		OrderByAsc("domain_id").
		First(ctx)
	return d, status.FromStorage(err)
}

// GetByDomainAndStatus returns the oldest row for name in the given status.
func (r *DomainRepository) GetByDomainAndStatus(ctx context.Context, name string, s models.DomainStatus) (*models.Domain, error) {
	d, err := builder.Select[models.Domain](r.builder()).
		Where(builder.Eq("domain", name)).
		And(builder.Eq("status", s)).
		OrderByAsc("domain_id").
		First(ctx)
	return d, status.FromStorage(err)
}

// ListByStatus returns every domain in the given status, oldest first.
func (r *DomainRepository) ListByStatus(ctx context.Context, s models.DomainStatus) ([]models.Domain, error) {
	domains, err := builder.Select[models.Domain](r.builder()).
		Where(builder.Eq("status", s)).
		OrderByAsc("domain_id").
		All(ctx)
	return domains, status.FromStorage(err)
}

// ListForWebsite returns the domains of a website.
func (r *DomainRepository) ListForWebsite(ctx context.Context, websiteID string) ([]models.Domain, error) {
	domains, err := builder.Select[models.Domain](r.builder()).
		Where(builder.Eq("website_id", websiteID)).
		OrderByAsc("domain_id").
		All(ctx)
	return domains, status.FromStorage(err)
}

// Activate moves a Pending domain to Active and calls provision inside the
// same transaction. The conditional UPDATE takes the row lock, so of two
// concurrent activations only one sees the Pending row and provisions; the
// other gets the current row back with activated == false. A provision
// error rolls the transition back.
func (r *DomainRepository) Activate(ctx context.Context, domainID int64, provision ProvisionFunc) (*models.Domain, bool, error) {
	var (
		result    *models.Domain
		activated bool
	)

	err := r.inTx(ctx, pgxDefault, func(c conn) error {
		rows, err := builder.Update[models.Domain](c.builder()).
			Set("status", models.DomainActive).
			SetRaw("updated_at", "NOW()").
			Where(builder.Eq("domain_id", domainID)).
			And(builder.Eq("status", models.DomainPending)).
			ExecReturning(ctx)
		if err != nil {
			return err
		}

		if len(rows) == 0 {
			current, err := builder.Select[models.Domain](c.builder()).
				Where(builder.Eq("domain_id", domainID)).
				First(ctx)
			if err != nil {
				return err
			}
			result = current
			return nil
		}

		if err := provision(ctx, rows[0]); err != nil {
			return err
		}
		result = &rows[0]
		activated = true
		return nil
	})
	if err != nil {
		return nil, false, status.FromStorage(err)
	}
	return result, activated, nil
}

// Delete removes a domain owned by userID.
func (r *DomainRepository) Delete(ctx context.Context, domainID int64, userID string) error {
	n, err := builder.Delete[models.Domain](r.builder()).
		Where(builder.Eq("domain_id", domainID)).
		And(builder.Eq("user_id", userID)).
		Exec(ctx)
	return status.FromStorage(affected(n, err))
}

// DeleteForWebsite removes every domain of a website.
func (r *DomainRepository) DeleteForWebsite(ctx context.Context, websiteID, userID string) error {
	_, err := builder.Delete[models.Domain](r.builder()).
		Where(builder.Eq("website_id", websiteID)).
		And(builder.Eq("user_id", userID)).
		Exec(ctx)
	return status.FromStorage(err)
}
