package repository

import (
	"time"

	"github.com/jackc/pgx/v5/pgtype"

	"github.com/sited-io/websites/internal/models"
	"github.com/sited-io/websites/pkg/builder"
	"github.com/sited-io/websites/pkg/composite"
)

var domainShape = composite.Shape[models.Domain]{
	Columns: []string{"domain_id", "website_id", "user_id", "created_at", "updated_at", "domain", "status"},
	Fields: func(d *models.Domain) []composite.Field {
		return []composite.Field{
			composite.Int8("domain_id", &d.DomainID),
			composite.Text("website_id", &d.WebsiteID),
			composite.Text("user_id", &d.UserID),
			composite.Timestamptz("created_at", &d.CreatedAt),
			composite.Timestamptz("updated_at", &d.UpdatedAt),
			composite.Text("domain", &d.Domain),
			composite.Text("status", (*string)(&d.Status)),
		}
	},
}

var pageShape = composite.Shape[models.Page]{
	Columns: []string{
		"page_id", "website_id", "user_id", "created_at", "updated_at",
		"page_type", "content_id", "title", "is_home_page", "path",
	},
	Fields: func(p *models.Page) []composite.Field {
		return []composite.Field{
			composite.Int8("page_id", &p.PageID),
			composite.Text("website_id", &p.WebsiteID),
			composite.Text("user_id", &p.UserID),
			composite.Timestamptz("created_at", &p.CreatedAt),
			composite.Timestamptz("updated_at", &p.UpdatedAt),
			composite.Text("page_type", (*string)(&p.PageType)),
			composite.Text("content_id", &p.ContentID),
			composite.Text("title", &p.Title),
			composite.Bool("is_home_page", &p.IsHomePage),
			composite.Text("path", &p.Path),
		}
	},
}

var (
	domainsAggregate = builder.AggregateOf("domains", "domains", "website_id", "websites.website_id", domainShape)
	pagesAggregate   = builder.AggregateOf("pages", "pages", "website_id", "websites.website_id", pageShape)
)

// websiteAggregateRow is one row of the aggregate read: the website, its
// customization columns, and the record[] columns of its domains and pages.
type websiteAggregateRow struct {
	WebsiteID    string    `po:"website_id,primaryKey"`
	UserID       string    `po:"user_id"`
	CreatedAt    time.Time `po:"created_at"`
	UpdatedAt    time.Time `po:"updated_at"`
	Name         string    `po:"name"`
	ClientID     string    `po:"client_id"`
	ZitadelAppID string    `po:"zitadel_app_id"`

	CustomizationWebsiteID *string    `po:"customization_website_id,joined"`
	CustomizationUserID    *string    `po:"customization_user_id,joined"`
	CustomizationCreatedAt *time.Time `po:"customization_created_at,joined"`
	CustomizationUpdatedAt *time.Time `po:"customization_updated_at,joined"`
	PrimaryColor           *string    `po:"primary_color,joined"`
	SecondaryColor         *string    `po:"secondary_color,joined"`
	LogoImageURL           *string    `po:"logo_image_url,joined"`

	Domains pgtype.UndecodedBytes `po:"domains,aggregate"`
	Pages   pgtype.UndecodedBytes `po:"pages,aggregate"`
}

func (websiteAggregateRow) TableName() string { return "websites" }

var aggregateColumns = []string{
	"websites.*",
	"customizations.website_id AS customization_website_id",
	"customizations.user_id AS customization_user_id",
	"customizations.created_at AS customization_created_at",
	"customizations.updated_at AS customization_updated_at",
	"customizations.primary_color",
	"customizations.secondary_color",
	"customizations.logo_image_url",
}
