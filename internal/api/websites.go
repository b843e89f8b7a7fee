package api

import (
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sited-io/websites/internal/status"
)

type createWebsiteRequest struct {
	Name string `json:"name" validate:"required"`
}

type updateWebsiteRequest struct {
	Name *string `json:"name" validate:"omitempty"`
}

type createDomainRequest struct {
	Domain string `json:"domain" validate:"required"`
}

type customizationRequest struct {
	PrimaryColor   *string `json:"primary_color" validate:"omitempty,iscolor"`
	SecondaryColor *string `json:"secondary_color" validate:"omitempty,iscolor"`
}

func (h *handlers) createWebsite(w http.ResponseWriter, r *http.Request) {
	user, err := userID(r)
	if err != nil {
		h.fail(w, err)
		return
	}
	var req createWebsiteRequest
	if err := h.decode(r, &req); err != nil {
		h.fail(w, err)
		return
	}
	website, err := h.svc.CreateWebsite(r.Context(), user, req.Name)
	if err != nil {
		h.fail(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, website)
}

func (h *handlers) getWebsite(w http.ResponseWriter, r *http.Request) {
	websiteID := optionalQuery(r, "website_id")
	if id := chi.URLParam(r, "websiteID"); id != "" {
		websiteID = &id
	}
	website, err := h.svc.GetWebsite(r.Context(), websiteID, optionalQuery(r, "domain"))
	if err != nil {
		h.fail(w, err)
		return
	}
	respondJSON(w, http.StatusOK, website)
}

func (h *handlers) listWebsites(w http.ResponseWriter, r *http.Request) {
	p, err := pagination(r)
	if err != nil {
		h.fail(w, err)
		return
	}
	list, err := h.svc.ListWebsites(r.Context(), optionalQuery(r, "user_id"), p)
	if err != nil {
		h.fail(w, err)
		return
	}
	respondJSON(w, http.StatusOK, list)
}

func (h *handlers) updateWebsite(w http.ResponseWriter, r *http.Request) {
	user, err := userID(r)
	if err != nil {
		h.fail(w, err)
		return
	}
	var req updateWebsiteRequest
	if err := h.decode(r, &req); err != nil {
		h.fail(w, err)
		return
	}
	website, err := h.svc.UpdateWebsite(r.Context(), user, chi.URLParam(r, "websiteID"), req.Name)
	if err != nil {
		h.fail(w, err)
		return
	}
	respondJSON(w, http.StatusOK, website)
}

func (h *handlers) deleteWebsite(w http.ResponseWriter, r *http.Request) {
	user, err := userID(r)
	if err != nil {
		h.fail(w, err)
		return
	}
	if err := h.svc.DeleteWebsite(r.Context(), user, chi.URLParam(r, "websiteID")); err != nil {
		h.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) createDomain(w http.ResponseWriter, r *http.Request) {
	user, err := userID(r)
	if err != nil {
		h.fail(w, err)
		return
	}
	var req createDomainRequest
	if err := h.decode(r, &req); err != nil {
		h.fail(w, err)
		return
	}
	domain, err := h.svc.CreateDomain(r.Context(), user, chi.URLParam(r, "websiteID"), req.Domain)
	if err != nil {
		h.fail(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, domain)
}

func (h *handlers) checkDomain(w http.ResponseWriter, r *http.Request) {
	user, err := userID(r)
	if err != nil {
		h.fail(w, err)
		return
	}
	domainID, err := idParam(r, "domainID")
	if err != nil {
		h.fail(w, err)
		return
	}
	domain, err := h.svc.CheckDomain(r.Context(), user, domainID)
	if err != nil {
		h.fail(w, err)
		return
	}
	respondJSON(w, http.StatusOK, domain)
}

func (h *handlers) deleteDomain(w http.ResponseWriter, r *http.Request) {
	user, err := userID(r)
	if err != nil {
		h.fail(w, err)
		return
	}
	domainID, err := idParam(r, "domainID")
	if err != nil {
		h.fail(w, err)
		return
	}
	if err := h.svc.DeleteDomain(r.Context(), user, domainID); err != nil {
		h.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) putCustomization(w http.ResponseWriter, r *http.Request) {
	user, err := userID(r)
	if err != nil {
		h.fail(w, err)
		return
	}
	var req customizationRequest
	if err := h.decode(r, &req); err != nil {
		h.fail(w, err)
		return
	}
	c, err := h.svc.PutCustomization(r.Context(), user, chi.URLParam(r, "websiteID"), req.PrimaryColor, req.SecondaryColor)
	if err != nil {
		h.fail(w, err)
		return
	}
	respondJSON(w, http.StatusOK, c)
}

// putLogo reads at most one byte past the upload limit so oversized bodies
// are rejected by the size check instead of being truncated.
func (h *handlers) putLogo(w http.ResponseWriter, r *http.Request) {
	user, err := userID(r)
	if err != nil {
		h.fail(w, err)
		return
	}
	body := io.Reader(r.Body)
	if h.maxUpload > 0 {
		body = io.LimitReader(r.Body, h.maxUpload+1)
	}
	data, err := io.ReadAll(body)
	if err != nil {
		h.fail(w, status.Wrap(status.InvalidArgument, err, "unreadable request body"))
		return
	}
	if len(data) == 0 {
		h.fail(w, status.InvalidArgumentf("image is required"))
		return
	}
	c, err := h.svc.PutLogo(r.Context(), user, chi.URLParam(r, "websiteID"), data)
	if err != nil {
		h.fail(w, err)
		return
	}
	respondJSON(w, http.StatusOK, c)
}

func (h *handlers) removeLogo(w http.ResponseWriter, r *http.Request) {
	user, err := userID(r)
	if err != nil {
		h.fail(w, err)
		return
	}
	c, err := h.svc.RemoveLogo(r.Context(), user, chi.URLParam(r, "websiteID"))
	if err != nil {
		h.fail(w, err)
		return
	}
	respondJSON(w, http.StatusOK, c)
}
