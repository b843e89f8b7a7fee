package service

import (
	"context"
	"net/url"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/sited-io/websites/internal/models"
	"github.com/sited-io/websites/internal/status"
)

const (
	maxDomainLength = 253
	maxLabelLength  = 63
)

var hostValidator = validator.New()

// ValidateDomain accepts a lowercase host name with at least one dot and
// nothing but the host. Every label is 1 to 63 characters of [a-z0-9-]
// without a leading or trailing hyphen.
func ValidateDomain(name string) error {
	if name == "" || !strings.Contains(name, ".") {
		return status.InvalidArgumentf("domain %q is not a host name", name)
	}
	if name != strings.ToLower(name) {
		return status.InvalidArgumentf("domain %q must be lowercase", name)
	}
	u, err := url.Parse("//" + name)
	if err != nil {
		return status.InvalidArgumentf("domain %q is not a host name", name)
	}
	if u.User != nil || u.Port() != "" || u.Path != "" || u.RawQuery != "" || u.Fragment != "" || u.Hostname() != name {
		return status.InvalidArgumentf("domain %q is not a host name", name)
	}
	if len(name) > maxDomainLength || !validLabels(name) {
		return status.InvalidArgumentf("domain %q is not a host name", name)
	}
	if err := hostValidator.Var(name, "fqdn"); err != nil {
		return status.InvalidArgumentf("domain %q is not a host name", name)
	}
	return nil
}

func validLabels(name string) bool {
	for label := range strings.SplitSeq(name, ".") {
		if label == "" || len(label) > maxLabelLength {
			return false
		}
		if label[0] == '-' || label[len(label)-1] == '-' {
			return false
		}
		for _, c := range label {
			if (c < 'a' || c > 'z') && (c < '0' || c > '9') && c != '-' {
				return false
			}
		}
	}
	return true
}

// CreateDomain adds a Pending domain to a website.
func (s *Service) CreateDomain(ctx context.Context, userID, websiteID, name string) (*DomainView, error) {
	if err := ValidateDomain(name); err != nil {
		return nil, err
	}
	if name == s.main || strings.HasSuffix(name, "."+s.main) {
		return nil, status.InvalidArgumentf("domain %q belongs to the platform", name)
	}

	repos := s.storage.Repos()
	if _, err := repos.Websites.GetForUser(ctx, websiteID, userID); err != nil {
		return nil, err
	}

	active, err := repos.Domains.GetByDomainAndStatus(ctx, name, models.DomainActive)
	if err != nil && status.CodeOf(err) != status.NotFound {
		return nil, err
	}
	if active != nil {
		return nil, status.AlreadyExistsf("domain is already in use")
	}

	d, err := repos.Domains.Create(ctx, models.Domain{
		WebsiteID: websiteID,
		UserID:    userID,
		Domain:    name,
		Status:    models.DomainPending,
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("domain added",
		zap.String("website_id", websiteID),
		zap.String("domain", name))
	v := domainView(*d)
	return &v, nil
}

// CheckDomain verifies a Pending domain now instead of waiting for the
// next sweep.
func (s *Service) CheckDomain(ctx context.Context, userID string, domainID int64) (*DomainView, error) {
	d, err := s.storage.Repos().Domains.GetForUser(ctx, domainID, userID)
	if err != nil {
		return nil, err
	}
	checked, err := s.checker.Check(ctx, *d)
	if err != nil {
		return nil, upstreamError(err, "check domain")
	}
	v := domainView(*checked)
	return &v, nil
}

// DeleteDomain removes a user domain and its custom hostname. Internal
// domains live and die with their website.
func (s *Service) DeleteDomain(ctx context.Context, userID string, domainID int64) error {
	repos := s.storage.Repos()
	d, err := repos.Domains.GetForUser(ctx, domainID, userID)
	if err != nil {
		return err
	}
	if d.Status == models.DomainInternal {
		return status.InvalidArgumentf("internal domain cannot be deleted")
	}
	if err := s.cdn.DeleteCustomHostnames(ctx, d.Domain); err != nil {
		return upstreamError(err, "delete custom hostname")
	}
	return repos.Domains.Delete(ctx, domainID, userID)
}
