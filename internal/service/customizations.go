package service

import (
	"context"

	"go.uber.org/zap"
)

// PutCustomization replaces the colors of a website.
func (s *Service) PutCustomization(ctx context.Context, userID, websiteID string, primary, secondary *string) (*CustomizationView, error) {
	c, err := s.storage.Repos().Customizations.Update(ctx, websiteID, userID, primary, secondary)
	if err != nil {
		return nil, err
	}
	return customizationView(c, s.logos), nil
}

// PutLogo stores a new logo and then drops the previous one.
func (s *Service) PutLogo(ctx context.Context, userID, websiteID string, data []byte) (*CustomizationView, error) {
	repos := s.storage.Repos()
	current, err := repos.Customizations.GetForUser(ctx, websiteID, userID)
	if err != nil {
		return nil, err
	}

	key, err := s.logos.PutLogo(ctx, userID, websiteID, data)
	if err != nil {
		return nil, upstreamError(err, "store logo")
	}
	c, err := repos.Customizations.SetLogo(ctx, websiteID, userID, &key)
	if err != nil {
		s.deleteLogo(ctx, key)
		return nil, err
	}
	if current.LogoImageURL != nil && *current.LogoImageURL != key {
		s.deleteLogo(ctx, *current.LogoImageURL)
	}
	return customizationView(c, s.logos), nil
}

// RemoveLogo clears the logo of a website and deletes the object.
func (s *Service) RemoveLogo(ctx context.Context, userID, websiteID string) (*CustomizationView, error) {
	repos := s.storage.Repos()
	current, err := repos.Customizations.GetForUser(ctx, websiteID, userID)
	if err != nil {
		return nil, err
	}
	if current.LogoImageURL == nil {
		return customizationView(current, s.logos), nil
	}

	c, err := repos.Customizations.SetLogo(ctx, websiteID, userID, nil)
	if err != nil {
		return nil, err
	}
	s.deleteLogo(ctx, *current.LogoImageURL)
	return customizationView(c, s.logos), nil
}

// deleteLogo leaves an orphaned object behind on failure.
func (s *Service) deleteLogo(ctx context.Context, key string) {
	if err := s.logos.Delete(ctx, key); err != nil {
		s.logger.Warn("failed to delete logo object", zap.String("key", key), zap.Error(err))
	}
}
