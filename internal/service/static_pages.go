package service

import (
	"context"
	"encoding/json"

	"github.com/sited-io/websites/internal/status"
)

// GetStaticPage returns the component tree of a Static page.
func (s *Service) GetStaticPage(ctx context.Context, pageID int64) (*StaticPageView, error) {
	sp, err := s.storage.Repos().StaticPages.Get(ctx, pageID)
	if err != nil {
		return nil, err
	}
	v := staticPageView(*sp)
	return &v, nil
}

// UpdateStaticPage replaces the component tree of a page owned by userID.
// components must be a JSON array; its elements are not inspected.
func (s *Service) UpdateStaticPage(ctx context.Context, userID string, pageID int64, components json.RawMessage) (*StaticPageView, error) {
	var elems []json.RawMessage
	if err := json.Unmarshal(components, &elems); err != nil || elems == nil {
		return nil, status.InvalidArgumentf("components must be a JSON array")
	}
	sp, err := s.storage.Repos().StaticPages.Update(ctx, pageID, userID, components)
	if err != nil {
		return nil, err
	}
	v := staticPageView(*sp)
	return &v, nil
}
