package service_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sited-io/websites/internal/models"
	"github.com/sited-io/websites/internal/service"
	"github.com/sited-io/websites/internal/status"
)

const (
	owner    = "user-1"
	stranger = "user-2"
	mainDom  = "sited.test"
	fallback = "fallback.sited.test"
)

type harness struct {
	db     *memDB
	apps   *fakeApps
	cdn    *fakeCDN
	logos  *fakeLogos
	events *fakeEvents
	svc    *service.Service
}

func newHarness(t *testing.T, checker service.DomainChecker) *harness {
	t.Helper()
	h := &harness{
		db:     newMemDB(),
		apps:   newFakeApps(),
		cdn:    newFakeCDN(),
		logos:  newFakeLogos(),
		events: &fakeEvents{},
	}
	if checker == nil {
		checker = fakeChecker{}
	}
	ids := []string{"acme0000000001", "acme0000000002", "acme0000000003"}
	h.svc = service.New(service.Deps{
		Storage:        h.db,
		Apps:           h.apps,
		CDN:            h.cdn,
		Logos:          h.logos,
		Events:         h.events,
		Checker:        checker,
		MainDomain:     mainDom,
		FallbackDomain: fallback,
		NewID: func() (string, error) {
			id := ids[0]
			ids = ids[1:]
			return id, nil
		},
	})
	return h
}

func code(t *testing.T, err error) status.Code {
	t.Helper()
	require.Error(t, err)
	return status.CodeOf(err)
}

func ptr[T any](v T) *T { return &v }

func TestCreateWebsite(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, nil)

	w, err := h.svc.CreateWebsite(ctx, owner, "Acme Shop")
	require.NoError(t, err)

	assert.Equal(t, "acme0000000001", w.WebsiteID)
	assert.Equal(t, "Acme Shop", w.Name)
	assert.Equal(t, "client-1", w.ClientID)
	require.NotNil(t, w.Customization)
	assert.Nil(t, w.Customization.LogoImageURL)

	require.Len(t, w.Domains, 1)
	assert.Equal(t, "acme0000000001.sited.test", w.Domains[0].Domain)
	assert.Equal(t, models.DomainInternal, w.Domains[0].Status)

	require.Len(t, w.Pages, 1)
	home := w.Pages[0]
	assert.True(t, home.IsHomePage)
	assert.Equal(t, "/", home.Path)
	assert.Equal(t, "Home", home.Title)
	assert.Equal(t, models.PageStatic, home.PageType)

	sp, err := h.svc.GetStaticPage(ctx, home.PageID)
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(sp.Components))

	assert.Equal(t, map[string]string{"app-1": "acme0000000001.sited.test"}, h.apps.apps)
	assert.Equal(t, map[string]string{"acme0000000001.sited.test": fallback}, h.cdn.cnames)
	require.Len(t, h.events.upserts, 1)
	assert.Equal(t, w.WebsiteID, h.events.upserts[0].WebsiteID)
}

func TestCreateWebsite_Rejects(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, nil)
	_, err := h.svc.CreateWebsite(ctx, owner, "Acme Shop")
	require.NoError(t, err)

	tests := []struct {
		name     string
		userID   string
		website  string
		wantCode status.Code
	}{
		{"too short", owner, "abc", status.InvalidArgument},
		{"blank padded", owner, "  ab  ", status.InvalidArgument},
		{"duplicate for owner", owner, "Acme Shop", status.AlreadyExists},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.svc.CreateWebsite(ctx, tt.userID, tt.website)
			assert.Equal(t, tt.wantCode, code(t, err))
		})
	}
	assert.Len(t, h.apps.apps, 1)

	_, err = h.svc.CreateWebsite(ctx, stranger, "Acme Shop")
	assert.NoError(t, err, "names are unique per user")
}

func TestCreateWebsite_CNAMEFailureRemovesApp(t *testing.T) {
	h := newHarness(t, nil)
	h.cdn.cnameErr = errors.New("cloudflare unavailable")

	_, err := h.svc.CreateWebsite(context.Background(), owner, "Acme Shop")
	assert.Equal(t, status.Internal, code(t, err))
	assert.Empty(t, h.apps.apps)
	assert.Empty(t, h.db.websites)
	assert.Empty(t, h.events.upserts)
}

func TestCreateWebsite_StorageFailureCompensates(t *testing.T) {
	h := newHarness(t, nil)
	h.db.fail["pages.create"] = status.Internalf(errors.New("disk full"), "insert page")

	_, err := h.svc.CreateWebsite(context.Background(), owner, "Acme Shop")
	assert.Equal(t, status.Internal, code(t, err))

	assert.Empty(t, h.db.websites)
	assert.Empty(t, h.db.domains)
	assert.Empty(t, h.db.customizations)
	assert.Empty(t, h.apps.apps)
	assert.Empty(t, h.cdn.cnames)
	assert.Empty(t, h.events.upserts)
}

func TestGetWebsite(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, nil)
	created, err := h.svc.CreateWebsite(ctx, owner, "Acme Shop")
	require.NoError(t, err)
	pending, err := h.svc.CreateDomain(ctx, owner, created.WebsiteID, "pending.example.com")
	require.NoError(t, err)

	byID, err := h.svc.GetWebsite(ctx, &created.WebsiteID, nil)
	require.NoError(t, err)
	assert.Equal(t, created.WebsiteID, byID.WebsiteID)

	byDomain, err := h.svc.GetWebsite(ctx, nil, ptr("ACME0000000001.sited.test"))
	require.NoError(t, err)
	assert.Equal(t, created.WebsiteID, byDomain.WebsiteID)

	_, err = h.svc.GetWebsite(ctx, nil, &pending.Domain)
	assert.Equal(t, status.NotFound, code(t, err), "pending domains do not serve")

	_, err = h.svc.GetWebsite(ctx, nil, nil)
	assert.Equal(t, status.InvalidArgument, code(t, err))

	_, err = h.svc.GetWebsite(ctx, ptr("missing"), nil)
	assert.Equal(t, status.NotFound, code(t, err))
}

func TestListWebsites_Pagination(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, nil)
	for _, name := range []string{"First site", "Second site", "Third site"} {
		_, err := h.svc.CreateWebsite(ctx, owner, name)
		require.NoError(t, err)
	}

	p1, err := h.svc.ListWebsites(ctx, ptr(owner), models.Pagination{Page: 1, Size: 2})
	require.NoError(t, err)
	p2, err := h.svc.ListWebsites(ctx, ptr(owner), models.Pagination{Page: 2, Size: 2})
	require.NoError(t, err)

	assert.Len(t, p1.Websites, 2)
	assert.Len(t, p2.Websites, 1)
	assert.Equal(t, int64(3), p1.Pagination.TotalElements)
	assert.Equal(t, p1.Pagination.TotalElements, p2.Pagination.TotalElements)
	for _, a := range p1.Websites {
		for _, b := range p2.Websites {
			assert.NotEqual(t, a.WebsiteID, b.WebsiteID)
		}
	}

	none, err := h.svc.ListWebsites(ctx, ptr(stranger), models.Pagination{Page: 1, Size: 10})
	require.NoError(t, err)
	assert.Empty(t, none.Websites)
	assert.Zero(t, none.Pagination.TotalElements)
}

func TestUpdateWebsite(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, nil)
	a, err := h.svc.CreateWebsite(ctx, owner, "Acme Shop")
	require.NoError(t, err)
	_, err = h.svc.CreateWebsite(ctx, owner, "Other Shop")
	require.NoError(t, err)

	renamed, err := h.svc.UpdateWebsite(ctx, owner, a.WebsiteID, ptr("Acme Store"))
	require.NoError(t, err)
	assert.Equal(t, "Acme Store", renamed.Name)
	assert.Len(t, h.events.upserts, 3)

	_, err = h.svc.UpdateWebsite(ctx, owner, a.WebsiteID, ptr("Other Shop"))
	assert.Equal(t, status.AlreadyExists, code(t, err))

	_, err = h.svc.UpdateWebsite(ctx, owner, a.WebsiteID, ptr("x"))
	assert.Equal(t, status.InvalidArgument, code(t, err))

	_, err = h.svc.UpdateWebsite(ctx, stranger, a.WebsiteID, ptr("Stolen Shop"))
	assert.Equal(t, status.NotFound, code(t, err))
}

func TestDeleteWebsite(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, nil)
	w, err := h.svc.CreateWebsite(ctx, owner, "Acme Shop")
	require.NoError(t, err)
	d, err := h.svc.CreateDomain(ctx, owner, w.WebsiteID, "shop.example.com")
	require.NoError(t, err)
	require.Equal(t, "shop.example.com", d.Domain)
	_, err = h.svc.PutLogo(ctx, owner, w.WebsiteID, []byte("png"))
	require.NoError(t, err)

	_, err = h.svc.CreatePage(ctx, owner, w.WebsiteID, service.CreatePageInput{PageType: "Static", Title: "About"})
	require.NoError(t, err)

	require.Equal(t, status.NotFound, code(t, h.svc.DeleteWebsite(ctx, stranger, w.WebsiteID)))

	require.NoError(t, h.svc.DeleteWebsite(ctx, owner, w.WebsiteID))

	assert.Empty(t, h.db.websites)
	assert.Empty(t, h.db.domains)
	assert.Empty(t, h.db.pages)
	assert.Empty(t, h.db.statics)
	assert.Empty(t, h.db.customizations)
	assert.Empty(t, h.apps.apps)
	assert.Empty(t, h.cdn.cnames)
	assert.Empty(t, h.logos.keys())
	assert.Equal(t, []string{"shop.example.com"}, h.cdn.hostnamesDeleted)
	require.Len(t, h.events.deletes, 1)
	assert.Equal(t, w.WebsiteID, h.events.deletes[0].WebsiteID)
}

func TestDeleteWebsite_Retry(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, nil)
	w, err := h.svc.CreateWebsite(ctx, owner, "Acme Shop")
	require.NoError(t, err)

	h.cdn.deleteRecordsErrs = []error{errors.New("cloudflare unavailable")}
	err = h.svc.DeleteWebsite(ctx, owner, w.WebsiteID)
	assert.Equal(t, status.Internal, code(t, err))
	assert.Len(t, h.db.websites, 1, "rows stay until external cleanup succeeded")
	assert.Empty(t, h.events.deletes)

	require.NoError(t, h.svc.DeleteWebsite(ctx, owner, w.WebsiteID))
	assert.Empty(t, h.db.websites)
	assert.Empty(t, h.cdn.cnames)
	assert.Len(t, h.events.deletes, 1)
}

func TestValidateDomain(t *testing.T) {
	tests := []struct {
		domain string
		valid  bool
	}{
		{"shop.example.com", true},
		{"a.b", true},
		{"xn--bcher-kva.example", true},
		{"", false},
		{"localhost", false},
		{"Shop.Example.com", false},
		{"shop.example.com:8080", false},
		{"user@shop.example.com", false},
		{"shop.example.com/path", false},
		{"shop.example.com?q=1", false},
		{"shop.example.com#top", false},
		{"https://shop.example.com", false},
		{"shop example.com", false},
		{"a<b>.com", false},
		{`x"y.com`, false},
		{"shop!.example.com", false},
		{"a,b.example.com", false},
		{"a..b.com", false},
		{"-x.example.com", false},
		{"x-.example.com", false},
		{"a*.example.com", false},
		{"shop.example.com.", false},
		{"shop_1.example.com", false},
		{strings.Repeat("a", 64) + ".example.com", false},
		{strings.Repeat("a", 63) + ".example.com", true},
		{strings.Repeat(strings.Repeat("a", 50)+".", 5) + "com", false},
		{"my-shop.example.com", true},
		{"123.example.com", true},
	}
	for _, tt := range tests {
		t.Run(tt.domain, func(t *testing.T) {
			err := service.ValidateDomain(tt.domain)
			if tt.valid {
				assert.NoError(t, err)
				return
			}
			assert.Equal(t, status.InvalidArgument, code(t, err))
		})
	}
}

func TestCreateDomain(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, nil)
	a, err := h.svc.CreateWebsite(ctx, owner, "Acme Shop")
	require.NoError(t, err)
	b, err := h.svc.CreateWebsite(ctx, stranger, "Other Shop")
	require.NoError(t, err)

	d, err := h.svc.CreateDomain(ctx, owner, a.WebsiteID, "shop.example.com")
	require.NoError(t, err)
	assert.Equal(t, models.DomainPending, d.Status)

	_, err = h.svc.CreateDomain(ctx, stranger, b.WebsiteID, "shop.example.com")
	assert.NoError(t, err, "pending domains may be claimed by several websites")

	h.db.domains[d.DomainID] = models.Domain{
		DomainID: d.DomainID, WebsiteID: a.WebsiteID, UserID: owner,
		Domain: d.Domain, Status: models.DomainActive,
	}

	_, err = h.svc.CreateDomain(ctx, stranger, b.WebsiteID, "shop.example.com")
	assert.Equal(t, status.AlreadyExists, code(t, err))

	_, err = h.svc.CreateDomain(ctx, owner, a.WebsiteID, "evil.sited.test")
	assert.Equal(t, status.InvalidArgument, code(t, err))

	_, err = h.svc.CreateDomain(ctx, stranger, a.WebsiteID, "mine.example.com")
	assert.Equal(t, status.NotFound, code(t, err))
}

func TestCheckDomain(t *testing.T) {
	ctx := context.Background()

	t.Run("activates", func(t *testing.T) {
		h := newHarness(t, nil)
		w, err := h.svc.CreateWebsite(ctx, owner, "Acme Shop")
		require.NoError(t, err)
		d, err := h.svc.CreateDomain(ctx, owner, w.WebsiteID, "shop.example.com")
		require.NoError(t, err)

		checked, err := h.svc.CheckDomain(ctx, owner, d.DomainID)
		require.NoError(t, err)
		assert.Equal(t, models.DomainActive, checked.Status)

		_, err = h.svc.CheckDomain(ctx, stranger, d.DomainID)
		assert.Equal(t, status.NotFound, code(t, err))
	})

	t.Run("upstream failure is internal", func(t *testing.T) {
		h := newHarness(t, fakeChecker{err: errors.New("resolver timeout")})
		w, err := h.svc.CreateWebsite(ctx, owner, "Acme Shop")
		require.NoError(t, err)
		d, err := h.svc.CreateDomain(ctx, owner, w.WebsiteID, "shop.example.com")
		require.NoError(t, err)

		_, err = h.svc.CheckDomain(ctx, owner, d.DomainID)
		assert.Equal(t, status.Internal, code(t, err))
	})
}

func TestDeleteDomain(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, nil)
	w, err := h.svc.CreateWebsite(ctx, owner, "Acme Shop")
	require.NoError(t, err)
	d, err := h.svc.CreateDomain(ctx, owner, w.WebsiteID, "shop.example.com")
	require.NoError(t, err)

	err = h.svc.DeleteDomain(ctx, owner, w.Domains[0].DomainID)
	assert.Equal(t, status.InvalidArgument, code(t, err))

	require.NoError(t, h.svc.DeleteDomain(ctx, owner, d.DomainID))
	assert.Equal(t, []string{"shop.example.com"}, h.cdn.hostnamesDeleted)
	assert.Len(t, h.db.domains, 1)

	err = h.svc.DeleteDomain(ctx, owner, d.DomainID)
	assert.Equal(t, status.NotFound, code(t, err))
}
