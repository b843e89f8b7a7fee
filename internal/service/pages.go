package service

import (
	"context"
	"strings"

	"github.com/sited-io/websites/internal/models"
	"github.com/sited-io/websites/internal/repository"
	"github.com/sited-io/websites/internal/slug"
	"github.com/sited-io/websites/internal/status"
)

// CreatePageInput describes a new page. An empty Path is derived from the
// title.
type CreatePageInput struct {
	PageType   string
	ContentID  string
	Title      string
	IsHomePage bool
	Path       *string
}

// UpdatePageInput lists the page fields to change; nil fields are kept.
type UpdatePageInput struct {
	PageType   *string
	ContentID  *string
	Title      *string
	IsHomePage *bool
	Path       *string
}

func parsePageType(s string) (models.PageType, error) {
	t, err := models.ParsePageType(s)
	if err != nil {
		return "", status.Wrap(status.InvalidArgument, err, "unknown page type")
	}
	return t, nil
}

// pagePath resolves the path of a page that is not the home page.
func pagePath(path *string, title string) (string, error) {
	if path == nil || *path == "" {
		return slug.Path(title), nil
	}
	p := *path
	if !strings.HasPrefix(p, "/") {
		return "", status.InvalidArgumentf("path %q must start with /", p)
	}
	if p == models.HomePath {
		return "", status.InvalidArgumentf("path / is reserved for the home page")
	}
	return p, nil
}

// CreatePage adds a page to a website. A new home page takes over "/" from
// the current one.
func (s *Service) CreatePage(ctx context.Context, userID, websiteID string, in CreatePageInput) (*PageView, error) {
	pageType, err := parsePageType(in.PageType)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.Title) == "" {
		return nil, status.InvalidArgumentf("title is required")
	}

	path := models.HomePath
	if !in.IsHomePage {
		if path, err = pagePath(in.Path, in.Title); err != nil {
			return nil, err
		}
	}

	var created *models.Page
	err = s.storage.InTx(ctx, func(tx Repos) error {
		if _, err := tx.Websites.GetForUser(ctx, websiteID, userID); err != nil {
			return err
		}
		if in.IsHomePage {
			if _, err := tx.Pages.DemoteHomePage(ctx, websiteID, userID); err != nil {
				return err
			}
		}

		var err error
		created, err = tx.Pages.Create(ctx, models.Page{
			WebsiteID:  websiteID,
			UserID:     userID,
			PageType:   pageType,
			ContentID:  in.ContentID,
			Title:      in.Title,
			IsHomePage: in.IsHomePage,
			Path:       path,
		})
		if err != nil {
			return err
		}
		if pageType == models.PageStatic {
			return tx.StaticPages.Ensure(ctx, created.PageID, websiteID, userID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	v := pageView(*created)
	return &v, nil
}

// GetPage returns a page by id, or by website and path when pageID is nil.
func (s *Service) GetPage(ctx context.Context, pageID *int64, websiteID, path *string) (*PageView, error) {
	repos := s.storage.Repos()
	var (
		p   *models.Page
		err error
	)
	switch {
	case pageID != nil:
		p, err = repos.Pages.Get(ctx, *pageID)
	case websiteID != nil && path != nil:
		p, err = repos.Pages.GetByPath(ctx, *websiteID, *path)
	default:
		return nil, status.InvalidArgumentf("page_id or website_id and path are required")
	}
	if err != nil {
		return nil, err
	}
	v := pageView(*p)
	return &v, nil
}

// ListPages returns one page of pages, optionally of one website.
func (s *Service) ListPages(ctx context.Context, websiteID *string, p models.Pagination) (*PageList, error) {
	paged, err := s.storage.Repos().Pages.List(ctx, websiteID, p)
	if err != nil {
		return nil, err
	}
	out := &PageList{
		Pages:      make([]PageView, len(paged.Items)),
		Pagination: paginationView(paged),
	}
	for i, page := range paged.Items {
		out.Pages[i] = pageView(page)
	}
	return out, nil
}

// UpdatePage changes a page. Making it the home page moves it to "/" and
// demotes the previous home page; taking the flag away moves it to its
// title slug unless a path is given.
func (s *Service) UpdatePage(ctx context.Context, userID string, pageID int64, in UpdatePageInput) (*PageView, error) {
	var u repository.PageUpdate
	if in.PageType != nil {
		t, err := parsePageType(*in.PageType)
		if err != nil {
			return nil, err
		}
		u.PageType = &t
	}
	if in.Title != nil && strings.TrimSpace(*in.Title) == "" {
		return nil, status.InvalidArgumentf("title is required")
	}
	u.ContentID = in.ContentID
	u.Title = in.Title
	u.IsHomePage = in.IsHomePage

	var updated *models.Page
	err := s.storage.InTx(ctx, func(tx Repos) error {
		current, err := tx.Pages.GetForUser(ctx, pageID, userID)
		if err != nil {
			return err
		}

		title := current.Title
		if in.Title != nil {
			title = *in.Title
		}
		home := current.IsHomePage
		if in.IsHomePage != nil {
			home = *in.IsHomePage
		}

		switch {
		case home:
			if !current.IsHomePage {
				if _, err := tx.Pages.DemoteHomePage(ctx, current.WebsiteID, userID); err != nil {
					return err
				}
			}
			path := models.HomePath
			u.Path = &path
		case current.IsHomePage || in.Path != nil:
			path, err := pagePath(in.Path, title)
			if err != nil {
				return err
			}
			u.Path = &path
		}

		if updated, err = tx.Pages.Update(ctx, pageID, userID, u); err != nil {
			return err
		}
		switch {
		case updated.PageType == models.PageStatic:
			return tx.StaticPages.Ensure(ctx, pageID, updated.WebsiteID, userID)
		case current.PageType == models.PageStatic:
			return tx.StaticPages.Delete(ctx, pageID, userID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	v := pageView(*updated)
	return &v, nil
}

// DeletePage removes a page and its static content. The home page cannot
// be deleted.
func (s *Service) DeletePage(ctx context.Context, userID string, pageID int64) error {
	return s.storage.InTx(ctx, func(tx Repos) error {
		p, err := tx.Pages.GetForUser(ctx, pageID, userID)
		if err != nil {
			return err
		}
		if p.IsHomePage {
			return status.InvalidArgumentf("home page cannot be deleted")
		}
		if err := tx.StaticPages.Delete(ctx, pageID, userID); err != nil {
			return err
		}
		return tx.Pages.Delete(ctx, pageID, userID)
	})
}
