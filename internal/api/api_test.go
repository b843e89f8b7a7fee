package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sited-io/websites/internal/api"
	"github.com/sited-io/websites/internal/models"
	"github.com/sited-io/websites/internal/service"
	"github.com/sited-io/websites/internal/status"
)

// stubService implements the methods a test sets; the embedded nil
// interface panics on anything else.
type stubService struct {
	api.Service

	createWebsite func(userID, name string) (*service.WebsiteView, error)
	getWebsite    func(websiteID, domain *string) (*service.WebsiteView, error)
	listWebsites  func(userID *string, p models.Pagination) (*service.WebsiteList, error)
	checkDomain   func(userID string, domainID int64) (*service.DomainView, error)
	getPage       func(pageID *int64, websiteID, path *string) (*service.PageView, error)
	updateStatic  func(userID string, pageID int64, components json.RawMessage) (*service.StaticPageView, error)
	putCustom     func(userID, websiteID string, primary, secondary *string) (*service.CustomizationView, error)
	putLogo       func(userID, websiteID string, data []byte) (*service.CustomizationView, error)
	deletePage    func(userID string, pageID int64) error
}

func (s *stubService) CreateWebsite(_ context.Context, userID, name string) (*service.WebsiteView, error) {
	return s.createWebsite(userID, name)
}

func (s *stubService) GetWebsite(_ context.Context, websiteID, domain *string) (*service.WebsiteView, error) {
	return s.getWebsite(websiteID, domain)
}

func (s *stubService) ListWebsites(_ context.Context, userID *string, p models.Pagination) (*service.WebsiteList, error) {
	return s.listWebsites(userID, p)
}

func (s *stubService) CheckDomain(_ context.Context, userID string, domainID int64) (*service.DomainView, error) {
	return s.checkDomain(userID, domainID)
}

func (s *stubService) GetPage(_ context.Context, pageID *int64, websiteID, path *string) (*service.PageView, error) {
	return s.getPage(pageID, websiteID, path)
}

func (s *stubService) UpdateStaticPage(_ context.Context, userID string, pageID int64, components json.RawMessage) (*service.StaticPageView, error) {
	return s.updateStatic(userID, pageID, components)
}

func (s *stubService) PutCustomization(_ context.Context, userID, websiteID string, primary, secondary *string) (*service.CustomizationView, error) {
	return s.putCustom(userID, websiteID, primary, secondary)
}

func (s *stubService) PutLogo(_ context.Context, userID, websiteID string, data []byte) (*service.CustomizationView, error) {
	return s.putLogo(userID, websiteID, data)
}

func (s *stubService) DeletePage(_ context.Context, userID string, pageID int64) error {
	return s.deletePage(userID, pageID)
}

// tokenAuth accepts "Bearer <user id>".
type tokenAuth struct{}

func (tokenAuth) Authenticate(r *http.Request) (string, error) {
	token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok || token == "" {
		return "", status.Unauthenticatedf("missing bearer token")
	}
	return token, nil
}

type pinger struct{ err error }

func (p pinger) Ping(context.Context) error { return p.err }

func newServer(t *testing.T, svc api.Service, db api.Pinger) *httptest.Server {
	t.Helper()
	if db == nil {
		db = pinger{}
	}
	srv := httptest.NewServer(api.NewRouter(svc, tokenAuth{}, db, zap.NewNop(), api.Options{MaxUploadSize: 16}))
	t.Cleanup(srv.Close)
	return srv
}

func do(t *testing.T, srv *httptest.Server, method, path, user string, body io.Reader) (*http.Response, map[string]any) {
	t.Helper()
	req, err := http.NewRequest(method, srv.URL+path, body)
	require.NoError(t, err)
	if user != "" {
		req.Header.Set("Authorization", "Bearer "+user)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]any
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	}
	return resp, out
}

func jsonBody(s string) io.Reader { return strings.NewReader(s) }

func TestCreateWebsite(t *testing.T) {
	var gotUser, gotName string
	svc := &stubService{createWebsite: func(userID, name string) (*service.WebsiteView, error) {
		gotUser, gotName = userID, name
		return &service.WebsiteView{WebsiteID: "w1", Name: name, Domains: []service.DomainView{}, Pages: []service.PageView{}}, nil
	}}
	srv := newServer(t, svc, nil)

	resp, body := do(t, srv, http.MethodPost, "/v1/websites", "user-1", jsonBody(`{"name":"Acme Shop"}`))
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "user-1", gotUser)
	assert.Equal(t, "Acme Shop", gotName)
	assert.Equal(t, "w1", body["website_id"])

	tests := []struct {
		name     string
		user     string
		body     string
		wantCode int
		wantErr  string
	}{
		{"no token", "", `{"name":"Acme Shop"}`, http.StatusUnauthorized, "unauthenticated"},
		{"missing name", "user-1", `{}`, http.StatusBadRequest, "invalid_argument"},
		{"unknown field", "user-1", `{"name":"Acme","owner":"x"}`, http.StatusBadRequest, "invalid_argument"},
		{"malformed", "user-1", `{"name":`, http.StatusBadRequest, "invalid_argument"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := do(t, srv, http.MethodPost, "/v1/websites", tt.user, jsonBody(tt.body))
			assert.Equal(t, tt.wantCode, resp.StatusCode)
			assert.Equal(t, tt.wantErr, body["code"])
		})
	}
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		err         error
		wantStatus  int
		wantCode    string
		wantMessage string
	}{
		{status.InvalidArgumentf("bad name"), http.StatusBadRequest, "invalid_argument", "bad name"},
		{status.NotFoundf("website not found"), http.StatusNotFound, "not_found", "website not found"},
		{status.AlreadyExistsf("domain is already in use"), http.StatusConflict, "already_exists", "domain is already in use"},
		{status.FailedPreconditionf("not ready"), http.StatusPreconditionFailed, "failed_precondition", "not ready"},
		{status.ResourceExhaustedf("too large"), http.StatusRequestEntityTooLarge, "resource_exhausted", "too large"},
		{errors.New("pq: connection refused"), http.StatusInternalServerError, "internal", "internal error"},
		{status.Internalf(errors.New("boom"), "create app"), http.StatusInternalServerError, "internal", "internal error"},
	}
	for _, tt := range tests {
		t.Run(tt.wantCode, func(t *testing.T) {
			svc := &stubService{getWebsite: func(*string, *string) (*service.WebsiteView, error) {
				return nil, tt.err
			}}
			srv := newServer(t, svc, nil)

			resp, body := do(t, srv, http.MethodGet, "/v1/websites/w1", "", nil)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			assert.Equal(t, tt.wantCode, body["code"])
			assert.Equal(t, tt.wantMessage, body["message"])
		})
	}
}

func TestGetWebsite_Lookup(t *testing.T) {
	var gotID, gotDomain *string
	svc := &stubService{getWebsite: func(websiteID, domain *string) (*service.WebsiteView, error) {
		gotID, gotDomain = websiteID, domain
		return &service.WebsiteView{WebsiteID: "w1"}, nil
	}}
	srv := newServer(t, svc, nil)

	resp, _ := do(t, srv, http.MethodGet, "/v1/websites/lookup?domain=shop.example.com", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Nil(t, gotID)
	require.NotNil(t, gotDomain)
	assert.Equal(t, "shop.example.com", *gotDomain)

	resp, _ = do(t, srv, http.MethodGet, "/v1/websites/w1", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NotNil(t, gotID)
	assert.Equal(t, "w1", *gotID)
}

func TestListWebsites_Pagination(t *testing.T) {
	var got models.Pagination
	var gotUser *string
	svc := &stubService{listWebsites: func(userID *string, p models.Pagination) (*service.WebsiteList, error) {
		got, gotUser = p, userID
		return &service.WebsiteList{
			Websites:   []service.WebsiteView{},
			Pagination: service.PaginationView{Page: p.Page, Size: p.Size, TotalElements: 42},
		}, nil
	}}
	srv := newServer(t, svc, nil)

	tests := []struct {
		query    string
		wantCode int
		want     models.Pagination
	}{
		{"", http.StatusOK, models.Pagination{Page: 1, Size: 10}},
		{"?page=3&size=5", http.StatusOK, models.Pagination{Page: 3, Size: 5}},
		{"?size=1000", http.StatusOK, models.Pagination{Page: 1, Size: 100}},
		{"?page=0", http.StatusBadRequest, models.Pagination{}},
		{"?size=abc", http.StatusBadRequest, models.Pagination{}},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			got = models.Pagination{}
			resp, body := do(t, srv, http.MethodGet, "/v1/websites"+tt.query, "", nil)
			require.Equal(t, tt.wantCode, resp.StatusCode)
			assert.Equal(t, tt.want, got)
			if tt.wantCode == http.StatusOK {
				pagination := body["pagination"].(map[string]any)
				assert.EqualValues(t, 42, pagination["total_elements"])
			}
		})
	}

	resp, _ := do(t, srv, http.MethodGet, "/v1/websites?user_id=user-1", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NotNil(t, gotUser)
	assert.Equal(t, "user-1", *gotUser)
}

func TestCheckDomain(t *testing.T) {
	svc := &stubService{checkDomain: func(userID string, domainID int64) (*service.DomainView, error) {
		return &service.DomainView{DomainID: domainID, Domain: "shop.example.com", Status: models.DomainActive}, nil
	}}
	srv := newServer(t, svc, nil)

	resp, body := do(t, srv, http.MethodPost, "/v1/domains/7/check", "user-1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.EqualValues(t, 7, body["domain_id"])
	assert.Equal(t, "Active", body["status"])

	resp, body = do(t, srv, http.MethodPost, "/v1/domains/seven/check", "user-1", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "invalid_argument", body["code"])
}

func TestGetPage(t *testing.T) {
	var gotID *int64
	var gotWebsite, gotPath *string
	svc := &stubService{getPage: func(pageID *int64, websiteID, path *string) (*service.PageView, error) {
		gotID, gotWebsite, gotPath = pageID, websiteID, path
		return &service.PageView{PageID: 1, Path: "/"}, nil
	}}
	srv := newServer(t, svc, nil)

	resp, _ := do(t, srv, http.MethodGet, "/v1/pages/lookup?website_id=w1&path=%2F", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Nil(t, gotID)
	assert.Equal(t, "w1", *gotWebsite)
	assert.Equal(t, "/", *gotPath)

	resp, _ = do(t, srv, http.MethodGet, "/v1/pages/lookup?page_id=12", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.EqualValues(t, 12, *gotID)

	resp, _ = do(t, srv, http.MethodGet, "/v1/pages/lookup?page_id=x", "", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestDeletePage(t *testing.T) {
	svc := &stubService{deletePage: func(userID string, pageID int64) error {
		if pageID == 1 {
			return status.InvalidArgumentf("home page cannot be deleted")
		}
		return nil
	}}
	srv := newServer(t, svc, nil)

	resp, _ := do(t, srv, http.MethodDelete, "/v1/pages/2", "user-1", nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, body := do(t, srv, http.MethodDelete, "/v1/pages/1", "user-1", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "home page cannot be deleted", body["message"])
}

func TestUpdateStaticPage(t *testing.T) {
	var got json.RawMessage
	svc := &stubService{updateStatic: func(userID string, pageID int64, components json.RawMessage) (*service.StaticPageView, error) {
		got = components
		return &service.StaticPageView{PageID: pageID, Components: components}, nil
	}}
	srv := newServer(t, svc, nil)

	resp, _ := do(t, srv, http.MethodPut, "/v1/static-pages/3", "user-1", jsonBody(`{"components":[{"type":"text"}]}`))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `[{"type":"text"}]`, string(got))

	resp, _ = do(t, srv, http.MethodPut, "/v1/static-pages/3", "user-1", jsonBody(`{}`))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestPutCustomization(t *testing.T) {
	svc := &stubService{putCustom: func(userID, websiteID string, primary, secondary *string) (*service.CustomizationView, error) {
		return &service.CustomizationView{PrimaryColor: primary, SecondaryColor: secondary}, nil
	}}
	srv := newServer(t, svc, nil)

	resp, body := do(t, srv, http.MethodPut, "/v1/websites/w1/customization", "user-1", jsonBody(`{"primary_color":"#aabbcc"}`))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "#aabbcc", body["primary_color"])
	assert.Nil(t, body["secondary_color"])

	resp, _ = do(t, srv, http.MethodPut, "/v1/websites/w1/customization", "user-1", jsonBody(`{"primary_color":"blue-ish"}`))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestPutLogo(t *testing.T) {
	var got []byte
	svc := &stubService{putLogo: func(userID, websiteID string, data []byte) (*service.CustomizationView, error) {
		got = data
		if len(data) > 16 {
			return nil, status.ResourceExhaustedf("image exceeds 16 bytes")
		}
		url := "https://images.test/logo.png"
		return &service.CustomizationView{LogoImageURL: &url}, nil
	}}
	srv := newServer(t, svc, nil)

	resp, body := do(t, srv, http.MethodPut, "/v1/websites/w1/customization/logo", "user-1", bytes.NewReader([]byte("small")))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "small", string(got))
	assert.Equal(t, "https://images.test/logo.png", body["logo_image_url"])

	resp, _ = do(t, srv, http.MethodPut, "/v1/websites/w1/customization/logo", "user-1", bytes.NewReader(bytes.Repeat([]byte("x"), 1024)))
	assert.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)
	assert.Len(t, got, 17, "body is read one byte past the limit")

	resp, _ = do(t, srv, http.MethodPut, "/v1/websites/w1/customization/logo", "user-1", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHealthAndMetrics(t *testing.T) {
	srv := newServer(t, &stubService{}, nil)
	resp, body := do(t, srv, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body["status"])

	down := newServer(t, &stubService{}, pinger{err: errors.New("db down")})
	resp, body = do(t, down, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, "unavailable", body["status"])

	mresp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer mresp.Body.Close()
	raw, err := io.ReadAll(mresp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "websites_http_requests_total")
}
