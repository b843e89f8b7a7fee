package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/sited-io/websites/internal/service"
	"github.com/sited-io/websites/internal/status"
)

type createPageRequest struct {
	PageType   string  `json:"page_type" validate:"required"`
	ContentID  string  `json:"content_id"`
	Title      string  `json:"title" validate:"required"`
	IsHomePage bool    `json:"is_home_page"`
	Path       *string `json:"path"`
}

type updatePageRequest struct {
	PageType   *string `json:"page_type"`
	ContentID  *string `json:"content_id"`
	Title      *string `json:"title" validate:"omitempty,min=1"`
	IsHomePage *bool   `json:"is_home_page"`
	Path       *string `json:"path"`
}

type staticPageRequest struct {
	Components json.RawMessage `json:"components" validate:"required"`
}

func (h *handlers) createPage(w http.ResponseWriter, r *http.Request) {
	user, err := userID(r)
	if err != nil {
		h.fail(w, err)
		return
	}
	var req createPageRequest
	if err := h.decode(r, &req); err != nil {
		h.fail(w, err)
		return
	}
	page, err := h.svc.CreatePage(r.Context(), user, chi.URLParam(r, "websiteID"), service.CreatePageInput{
		PageType:   req.PageType,
		ContentID:  req.ContentID,
		Title:      req.Title,
		IsHomePage: req.IsHomePage,
		Path:       req.Path,
	})
	if err != nil {
		h.fail(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, page)
}

func (h *handlers) getPage(w http.ResponseWriter, r *http.Request) {
	var pageID *int64
	if raw := optionalQuery(r, "page_id"); raw != nil {
		id, err := strconv.ParseInt(*raw, 10, 64)
		if err != nil {
			h.fail(w, status.InvalidArgumentf("page_id must be an integer"))
			return
		}
		pageID = &id
	}
	page, err := h.svc.GetPage(r.Context(), pageID, optionalQuery(r, "website_id"), optionalQuery(r, "path"))
	if err != nil {
		h.fail(w, err)
		return
	}
	respondJSON(w, http.StatusOK, page)
}

func (h *handlers) listPages(w http.ResponseWriter, r *http.Request) {
	p, err := pagination(r)
	if err != nil {
		h.fail(w, err)
		return
	}
	list, err := h.svc.ListPages(r.Context(), optionalQuery(r, "website_id"), p)
	if err != nil {
		h.fail(w, err)
		return
	}
	respondJSON(w, http.StatusOK, list)
}

func (h *handlers) updatePage(w http.ResponseWriter, r *http.Request) {
	user, err := userID(r)
	if err != nil {
		h.fail(w, err)
		return
	}
	pageID, err := idParam(r, "pageID")
	if err != nil {
		h.fail(w, err)
		return
	}
	var req updatePageRequest
	if err := h.decode(r, &req); err != nil {
		h.fail(w, err)
		return
	}
	page, err := h.svc.UpdatePage(r.Context(), user, pageID, service.UpdatePageInput{
		PageType:   req.PageType,
		ContentID:  req.ContentID,
		Title:      req.Title,
		IsHomePage: req.IsHomePage,
		Path:       req.Path,
	})
	if err != nil {
		h.fail(w, err)
		return
	}
	respondJSON(w, http.StatusOK, page)
}

func (h *handlers) deletePage(w http.ResponseWriter, r *http.Request) {
	user, err := userID(r)
	if err != nil {
		h.fail(w, err)
		return
	}
	pageID, err := idParam(r, "pageID")
	if err != nil {
		h.fail(w, err)
		return
	}
	if err := h.svc.DeletePage(r.Context(), user, pageID); err != nil {
		h.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) getStaticPage(w http.ResponseWriter, r *http.Request) {
	pageID, err := idParam(r, "pageID")
	if err != nil {
		h.fail(w, err)
		return
	}
	sp, err := h.svc.GetStaticPage(r.Context(), pageID)
	if err != nil {
		h.fail(w, err)
		return
	}
	respondJSON(w, http.StatusOK, sp)
}

func (h *handlers) updateStaticPage(w http.ResponseWriter, r *http.Request) {
	user, err := userID(r)
	if err != nil {
		h.fail(w, err)
		return
	}
	pageID, err := idParam(r, "pageID")
	if err != nil {
		h.fail(w, err)
		return
	}
	var req staticPageRequest
	if err := h.decode(r, &req); err != nil {
		h.fail(w, err)
		return
	}
	sp, err := h.svc.UpdateStaticPage(r.Context(), user, pageID, req.Components)
	if err != nil {
		h.fail(w, err)
		return
	}
	respondJSON(w, http.StatusOK, sp)
}
