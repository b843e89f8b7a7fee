// Package service implements the website, domain, page, static page and
// customization operations on top of the repositories and the external
// clients. It depends on the interfaces below, never on their
// implementations.
package service

import (
	"context"
	"encoding/json"

	"github.com/sited-io/websites/internal/cloudflare"
	"github.com/sited-io/websites/internal/models"
	"github.com/sited-io/websites/internal/repository"
	"github.com/sited-io/websites/internal/zitadel"
)

// WebsiteRepository stores websites.
type WebsiteRepository interface {
	Create(ctx context.Context, w models.Website) (*models.Website, error)
	Get(ctx context.Context, websiteID string) (*models.Website, error)
	GetForUser(ctx context.Context, websiteID, userID string) (*models.Website, error)
	GetByName(ctx context.Context, userID, name string) (*models.Website, error)
	List(ctx context.Context, userID *string, p models.Pagination) (*models.Paged[models.Website], error)
	Update(ctx context.Context, websiteID, userID string, name *string) (*models.Website, error)
	DeleteCascade(ctx context.Context, websiteID, userID string) error
}

// DomainRepository stores domains.
type DomainRepository interface {
	Create(ctx context.Context, d models.Domain) (*models.Domain, error)
	GetForUser(ctx context.Context, domainID int64, userID string) (*models.Domain, error)
	GetByDomain(ctx context.Context, name string) (*models.Domain, error)
	GetByDomainAndStatus(ctx context.Context, name string, s models.DomainStatus) (*models.Domain, error)
	Delete(ctx context.Context, domainID int64, userID string) error
}

// PageRepository stores pages.
type PageRepository interface {
	Create(ctx context.Context, p models.Page) (*models.Page, error)
	Get(ctx context.Context, pageID int64) (*models.Page, error)
	GetForUser(ctx context.Context, pageID int64, userID string) (*models.Page, error)
	GetByPath(ctx context.Context, websiteID, path string) (*models.Page, error)
	List(ctx context.Context, websiteID *string, p models.Pagination) (*models.Paged[models.Page], error)
	DemoteHomePage(ctx context.Context, websiteID, userID string) (*models.Page, error)
	Update(ctx context.Context, pageID int64, userID string, u repository.PageUpdate) (*models.Page, error)
	Delete(ctx context.Context, pageID int64, userID string) error
}

// StaticPageRepository stores static page components.
type StaticPageRepository interface {
	Ensure(ctx context.Context, pageID int64, websiteID, userID string) error
	Get(ctx context.Context, pageID int64) (*models.StaticPage, error)
	Update(ctx context.Context, pageID int64, userID string, components json.RawMessage) (*models.StaticPage, error)
	Delete(ctx context.Context, pageID int64, userID string) error
}

// CustomizationRepository stores customizations.
type CustomizationRepository interface {
	Create(ctx context.Context, c models.Customization) (*models.Customization, error)
	GetForUser(ctx context.Context, websiteID, userID string) (*models.Customization, error)
	Update(ctx context.Context, websiteID, userID string, primary, secondary *string) (*models.Customization, error)
	SetLogo(ctx context.Context, websiteID, userID string, key *string) (*models.Customization, error)
}

// Repos is one set of repositories sharing a connection.
type Repos struct {
	Websites       WebsiteRepository
	Domains        DomainRepository
	Pages          PageRepository
	StaticPages    StaticPageRepository
	Customizations CustomizationRepository
}

// Storage hands out repositories and runs transactions.
type Storage interface {
	Repos() Repos
	// InTx runs fn with repositories bound to one transaction, committing
	// when fn returns nil.
	InTx(ctx context.Context, fn func(tx Repos) error) error
}

type storeStorage struct {
	store *repository.Store
}

// NewStorage adapts a repository.Store.
func NewStorage(store *repository.Store) Storage {
	return storeStorage{store: store}
}

func reposOf(s *repository.Store) Repos {
	return Repos{
		Websites:       s.Websites,
		Domains:        s.Domains,
		Pages:          s.Pages,
		StaticPages:    s.StaticPages,
		Customizations: s.Customizations,
	}
}

func (s storeStorage) Repos() Repos {
	return reposOf(s.store)
}

func (s storeStorage) InTx(ctx context.Context, fn func(tx Repos) error) error {
	return s.store.InTx(ctx, func(tx *repository.Store) error {
		return fn(reposOf(tx))
	})
}

// OIDCApps registers the login application of a website.
type OIDCApps interface {
	CreateApp(ctx context.Context, domain string) (*zitadel.App, error)
	RemoveApp(ctx context.Context, appID string) error
}

// CDN manages DNS records and custom hostnames.
type CDN interface {
	CreateCNAME(ctx context.Context, name, target string) (*cloudflare.DNSRecord, error)
	DeleteDNSRecords(ctx context.Context, name string) error
	DeleteCustomHostnames(ctx context.Context, hostname string) error
}

// Logos stores logo images.
type Logos interface {
	PutLogo(ctx context.Context, userID, websiteID string, data []byte) (string, error)
	Delete(ctx context.Context, key string) error
	URL(key string) string
}

// Events announces website changes.
type Events interface {
	Upsert(ctx context.Context, website any)
	Delete(ctx context.Context, website any)
}

// DomainChecker runs the Pending to Active transition of one domain.
type DomainChecker interface {
	Check(ctx context.Context, d models.Domain) (*models.Domain, error)
}
