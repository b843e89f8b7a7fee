package service

import (
	"encoding/json"
	"time"

	"github.com/sited-io/websites/internal/models"
)

// WebsiteView is the API and event representation of a website.
type WebsiteView struct {
	WebsiteID     string             `json:"website_id"`
	UserID        string             `json:"user_id"`
	CreatedAt     time.Time          `json:"created_at"`
	UpdatedAt     time.Time          `json:"updated_at"`
	Name          string             `json:"name"`
	ClientID      string             `json:"client_id"`
	Customization *CustomizationView `json:"customization"`
	Domains       []DomainView       `json:"domains"`
	Pages         []PageView         `json:"pages"`
}

// CustomizationView is the public part of a customization. The logo is
// exposed as its URL.
type CustomizationView struct {
	PrimaryColor   *string `json:"primary_color"`
	SecondaryColor *string `json:"secondary_color"`
	LogoImageURL   *string `json:"logo_image_url"`
}

type DomainView struct {
	DomainID int64               `json:"domain_id"`
	Domain   string              `json:"domain"`
	Status   models.DomainStatus `json:"status"`
}

type PageView struct {
	PageID     int64           `json:"page_id"`
	PageType   models.PageType `json:"page_type"`
	ContentID  string          `json:"content_id"`
	Title      string          `json:"title"`
	IsHomePage bool            `json:"is_home_page"`
	Path       string          `json:"path"`
}

type StaticPageView struct {
	PageID     int64           `json:"page_id"`
	WebsiteID  string          `json:"website_id"`
	UserID     string          `json:"user_id"`
	Components json.RawMessage `json:"components"`
}

type PaginationView struct {
	Page          int   `json:"page"`
	Size          int   `json:"size"`
	TotalElements int64 `json:"total_elements"`
}

type WebsiteList struct {
	Websites   []WebsiteView  `json:"websites"`
	Pagination PaginationView `json:"pagination"`
}

type PageList struct {
	Pages      []PageView     `json:"pages"`
	Pagination PaginationView `json:"pagination"`
}

func customizationView(c *models.Customization, logos Logos) *CustomizationView {
	if c == nil {
		return nil
	}
	v := &CustomizationView{
		PrimaryColor:   c.PrimaryColor,
		SecondaryColor: c.SecondaryColor,
	}
	if c.LogoImageURL != nil && logos != nil {
		u := logos.URL(*c.LogoImageURL)
		v.LogoImageURL = &u
	}
	return v
}

func domainView(d models.Domain) DomainView {
	return DomainView{DomainID: d.DomainID, Domain: d.Domain, Status: d.Status}
}

func pageView(p models.Page) PageView {
	return PageView{
		PageID:     p.PageID,
		PageType:   p.PageType,
		ContentID:  p.ContentID,
		Title:      p.Title,
		IsHomePage: p.IsHomePage,
		Path:       p.Path,
	}
}

func staticPageView(sp models.StaticPage) StaticPageView {
	return StaticPageView{
		PageID:     sp.PageID,
		WebsiteID:  sp.WebsiteID,
		UserID:     sp.UserID,
		Components: sp.Components,
	}
}

func websiteView(w *models.Website, logos Logos) *WebsiteView {
	v := &WebsiteView{
		WebsiteID:     w.WebsiteID,
		UserID:        w.UserID,
		CreatedAt:     w.CreatedAt,
		UpdatedAt:     w.UpdatedAt,
		Name:          w.Name,
		ClientID:      w.ClientID,
		Customization: customizationView(w.Customization, logos),
		Domains:       make([]DomainView, len(w.Domains)),
		Pages:         make([]PageView, len(w.Pages)),
	}
	for i, d := range w.Domains {
		v.Domains[i] = domainView(d)
	}
	for i, p := range w.Pages {
		v.Pages[i] = pageView(p)
	}
	return v
}

func paginationView[T any](p *models.Paged[T]) PaginationView {
	return PaginationView{
		Page:          p.Pagination.Page,
		Size:          p.Pagination.Size,
		TotalElements: p.TotalElements,
	}
}
