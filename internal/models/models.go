// Package models defines the website aggregate and its child entities as
// stored in PostgreSQL.
package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// DomainStatus is the verification state of a domain.
type DomainStatus string

const (
	// DomainInternal is the platform subdomain created with every website.
	DomainInternal DomainStatus = "Internal"
	// DomainPending is a user domain that has not been verified yet.
	DomainPending DomainStatus = "Pending"
	// DomainActive is a verified user domain with a provisioned hostname.
	DomainActive DomainStatus = "Active"
)

// PageType is the kind of content a page renders.
type PageType string

const (
	PageStatic PageType = "Static"
	PageShop   PageType = "Shop"
)

// ParsePageType validates a page type.
func ParsePageType(s string) (PageType, error) {
	switch t := PageType(s); t {
	case PageStatic, PageShop:
		return t, nil
	default:
		return "", fmt.Errorf("unknown page type %q", s)
	}
}

// Website is the aggregate root. Customization, Domains and Pages are
// filled by the aggregate reads and are never written through this type.
type Website struct {
	WebsiteID    string    `po:"website_id,primaryKey"`
	UserID       string    `po:"user_id,notNull"`
	CreatedAt    time.Time `po:"created_at,notNull,default(NOW())"`
	UpdatedAt    time.Time `po:"updated_at,notNull,default(NOW())"`
	Name         string    `po:"name,notNull"`
	ClientID     string    `po:"client_id,notNull"`
	ZitadelAppID string    `po:"zitadel_app_id,notNull"`

	Customization *Customization `po:"-"`
	Domains       []Domain       `po:"-"`
	Pages         []Page         `po:"-"`
}

func (Website) TableName() string { return "websites" }

// HomePage returns the website's home page, if loaded.
func (w *Website) HomePage() (*Page, bool) {
	for i := range w.Pages {
		if w.Pages[i].IsHomePage {
			return &w.Pages[i], true
		}
	}
	return nil, false
}

// Domain is a hostname serving a website.
type Domain struct {
	DomainID  int64        `po:"domain_id,primaryKey,identity"`
	WebsiteID string       `po:"website_id,notNull"`
	UserID    string       `po:"user_id,notNull"`
	CreatedAt time.Time    `po:"created_at,notNull,default(NOW())"`
	UpdatedAt time.Time    `po:"updated_at,notNull,default(NOW())"`
	Domain    string       `po:"domain,notNull"`
	Status    DomainStatus `po:"status,notNull,default('Pending')"`
}

func (Domain) TableName() string { return "domains" }

// Page is a routable page of a website. At most one page per website is the
// home page, and its path is "/".
type Page struct {
	PageID     int64     `po:"page_id,primaryKey,identity"`
	WebsiteID  string    `po:"website_id,notNull"`
	UserID     string    `po:"user_id,notNull"`
	CreatedAt  time.Time `po:"created_at,notNull,default(NOW())"`
	UpdatedAt  time.Time `po:"updated_at,notNull,default(NOW())"`
	PageType   PageType  `po:"page_type,notNull"`
	ContentID  string    `po:"content_id,notNull"`
	Title      string    `po:"title,notNull"`
	IsHomePage bool      `po:"is_home_page,notNull,default(false)"`
	Path       string    `po:"path,notNull"`
}

func (Page) TableName() string { return "pages" }

// HomePath is the path of every home page.
const HomePath = "/"

// StaticPage holds the component tree of a Static page. Components is a
// JSON array and is opaque to this service.
type StaticPage struct {
	PageID     int64           `po:"page_id,primaryKey"`
	WebsiteID  string          `po:"website_id,notNull"`
	UserID     string          `po:"user_id,notNull"`
	CreatedAt  time.Time       `po:"created_at,notNull,default(NOW())"`
	UpdatedAt  time.Time       `po:"updated_at,notNull,default(NOW())"`
	Components json.RawMessage `po:"components,jsonb,notNull,default('[]')"`
}

func (StaticPage) TableName() string { return "static_pages" }

// EmptyComponents is the component tree of a new static page.
var EmptyComponents = json.RawMessage(`[]`)

// Customization is the visual customization of a website. LogoImageURL
// holds the object storage key of the logo.
type Customization struct {
	WebsiteID      string    `po:"website_id,primaryKey"`
	UserID         string    `po:"user_id,notNull"`
	CreatedAt      time.Time `po:"created_at,notNull,default(NOW())"`
	UpdatedAt      time.Time `po:"updated_at,notNull,default(NOW())"`
	PrimaryColor   *string   `po:"primary_color"`
	SecondaryColor *string   `po:"secondary_color"`
	LogoImageURL   *string   `po:"logo_image_url"`
}

func (Customization) TableName() string { return "customizations" }
