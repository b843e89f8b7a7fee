package service

import (
	"context"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/sited-io/websites/internal/models"
	"github.com/sited-io/websites/internal/status"
)

// MinWebsiteNameLength is the shortest accepted website name.
const MinWebsiteNameLength = 4

const homeTitle = "Home"

func validateWebsiteName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if utf8.RuneCountInString(name) < MinWebsiteNameLength {
		return "", status.InvalidArgumentf("name must be at least %d characters", MinWebsiteNameLength)
	}
	return name, nil
}

// CreateWebsite creates a website with its login app, internal domain,
// customization and static home page. External resources created before a
// failing step are removed again.
func (s *Service) CreateWebsite(ctx context.Context, userID, name string) (*WebsiteView, error) {
	name, err := validateWebsiteName(name)
	if err != nil {
		return nil, err
	}

	repos := s.storage.Repos()
	existing, err := repos.Websites.GetByName(ctx, userID, name)
	if err != nil && status.CodeOf(err) != status.NotFound {
		return nil, err
	}
	if existing != nil {
		return nil, status.AlreadyExistsf("website %q already exists", name)
	}

	websiteID, err := s.newID()
	if err != nil {
		return nil, status.Internalf(err, "generate website id")
	}
	domain := websiteID + "." + s.main

	app, err := s.apps.CreateApp(ctx, domain)
	if err != nil {
		return nil, upstreamError(err, "create login app")
	}
	if _, err := s.cdn.CreateCNAME(ctx, domain, s.fallback); err != nil {
		s.removeApp(ctx, app.AppID)
		return nil, upstreamError(err, "create dns record")
	}

	err = s.storage.InTx(ctx, func(tx Repos) error {
		if _, err := tx.Websites.Create(ctx, models.Website{
			WebsiteID:    websiteID,
			UserID:       userID,
			Name:         name,
			ClientID:     app.ClientID,
			ZitadelAppID: app.AppID,
		}); err != nil {
			return err
		}
		if _, err := tx.Customizations.Create(ctx, models.Customization{
			WebsiteID: websiteID,
			UserID:    userID,
		}); err != nil {
			return err
		}
		if _, err := tx.Domains.Create(ctx, models.Domain{
			WebsiteID: websiteID,
			UserID:    userID,
			Domain:    domain,
			Status:    models.DomainInternal,
		}); err != nil {
			return err
		}
		home, err := tx.Pages.Create(ctx, models.Page{
			WebsiteID:  websiteID,
			UserID:     userID,
			PageType:   models.PageStatic,
			Title:      homeTitle,
			IsHomePage: true,
			Path:       models.HomePath,
		})
		if err != nil {
			return err
		}
		return tx.StaticPages.Ensure(ctx, home.PageID, websiteID, userID)
	})
	if err != nil {
		if err := s.cdn.DeleteDNSRecords(ctx, domain); err != nil {
			s.logger.Error("failed to remove dns records after failed create",
				zap.String("domain", domain), zap.Error(err))
		}
		s.removeApp(ctx, app.AppID)
		return nil, err
	}

	w, err := repos.Websites.Get(ctx, websiteID)
	if err != nil {
		return nil, err
	}
	view := websiteView(w, s.logos)
	s.events.Upsert(ctx, view)

	s.logger.Info("website created",
		zap.String("website_id", websiteID),
		zap.String("user_id", userID),
		zap.String("domain", domain))
	return view, nil
}

func (s *Service) removeApp(ctx context.Context, appID string) {
	if err := s.apps.RemoveApp(ctx, appID); err != nil {
		s.logger.Error("failed to remove login app", zap.String("app_id", appID), zap.Error(err))
	}
}

// GetWebsite returns a website by id, or by one of its Active or Internal
// domains when websiteID is nil.
func (s *Service) GetWebsite(ctx context.Context, websiteID, domain *string) (*WebsiteView, error) {
	repos := s.storage.Repos()
	switch {
	case websiteID != nil:
		w, err := repos.Websites.Get(ctx, *websiteID)
		if err != nil {
			return nil, err
		}
		return websiteView(w, s.logos), nil
	case domain != nil:
		d, err := repos.Domains.GetByDomain(ctx, strings.ToLower(*domain))
		if err != nil {
			return nil, err
		}
		w, err := repos.Websites.Get(ctx, d.WebsiteID)
		if err != nil {
			return nil, err
		}
		return websiteView(w, s.logos), nil
	default:
		return nil, status.InvalidArgumentf("website_id or domain is required")
	}
}

// ListWebsites returns one page of websites, optionally of one user.
func (s *Service) ListWebsites(ctx context.Context, userID *string, p models.Pagination) (*WebsiteList, error) {
	paged, err := s.storage.Repos().Websites.List(ctx, userID, p)
	if err != nil {
		return nil, err
	}
	out := &WebsiteList{
		Websites:   make([]WebsiteView, len(paged.Items)),
		Pagination: paginationView(paged),
	}
	for i := range paged.Items {
		out.Websites[i] = *websiteView(&paged.Items[i], s.logos)
	}
	return out, nil
}

// UpdateWebsite renames a website.
func (s *Service) UpdateWebsite(ctx context.Context, userID, websiteID string, name *string) (*WebsiteView, error) {
	repos := s.storage.Repos()
	if name != nil {
		valid, err := validateWebsiteName(*name)
		if err != nil {
			return nil, err
		}
		existing, err := repos.Websites.GetByName(ctx, userID, valid)
		if err != nil && status.CodeOf(err) != status.NotFound {
			return nil, err
		}
		if existing != nil && existing.WebsiteID != websiteID {
			return nil, status.AlreadyExistsf("website %q already exists", valid)
		}
		name = &valid
	}

	w, err := repos.Websites.Update(ctx, websiteID, userID, name)
	if err != nil {
		return nil, err
	}
	view := websiteView(w, s.logos)
	s.events.Upsert(ctx, view)
	return view, nil
}

// DeleteWebsite removes a website and every external resource it owns.
// Each step tolerates work already done, so a failed delete can be retried.
func (s *Service) DeleteWebsite(ctx context.Context, userID, websiteID string) error {
	repos := s.storage.Repos()
	w, err := repos.Websites.GetForUser(ctx, websiteID, userID)
	if err != nil {
		return err
	}

	if err := s.apps.RemoveApp(ctx, w.ZitadelAppID); err != nil {
		return upstreamError(err, "remove login app")
	}
	for _, d := range w.Domains {
		if err := s.cdn.DeleteDNSRecords(ctx, d.Domain); err != nil {
			return upstreamError(err, "delete dns records")
		}
		if d.Status == models.DomainInternal {
			continue
		}
		if err := s.cdn.DeleteCustomHostnames(ctx, d.Domain); err != nil {
			return upstreamError(err, "delete custom hostname")
		}
	}
	if c := w.Customization; c != nil && c.LogoImageURL != nil {
		if err := s.logos.Delete(ctx, *c.LogoImageURL); err != nil {
			return upstreamError(err, "delete logo")
		}
	}

	if err := repos.Websites.DeleteCascade(ctx, websiteID, userID); err != nil {
		return err
	}
	s.events.Delete(ctx, websiteView(w, s.logos))

	s.logger.Info("website deleted", zap.String("website_id", websiteID), zap.String("user_id", userID))
	return nil
}
