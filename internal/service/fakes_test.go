package service_test

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/sited-io/websites/internal/cloudflare"
	"github.com/sited-io/websites/internal/models"
	"github.com/sited-io/websites/internal/repository"
	"github.com/sited-io/websites/internal/service"
	"github.com/sited-io/websites/internal/slug"
	"github.com/sited-io/websites/internal/status"
	"github.com/sited-io/websites/internal/zitadel"
)

// memDB is an in-memory website store. InTx snapshots every table and
// restores the snapshot when fn fails.
type memDB struct {
	mu             sync.Mutex
	websites       map[string]models.Website
	domains        map[int64]models.Domain
	pages          map[int64]models.Page
	statics        map[int64]models.StaticPage
	customizations map[string]models.Customization
	nextID         int64
	fail           map[string]error
}

func newMemDB() *memDB {
	return &memDB{
		websites:       map[string]models.Website{},
		domains:        map[int64]models.Domain{},
		pages:          map[int64]models.Page{},
		statics:        map[int64]models.StaticPage{},
		customizations: map[string]models.Customization{},
		fail:           map[string]error{},
	}
}

func (m *memDB) failing(op string) error {
	return m.fail[op]
}

func (m *memDB) Repos() service.Repos {
	return service.Repos{
		Websites:       memWebsites{m},
		Domains:        memDomains{m},
		Pages:          memPages{m},
		StaticPages:    memStatics{m},
		Customizations: memCustomizations{m},
	}
}

func (m *memDB) InTx(ctx context.Context, fn func(tx service.Repos) error) error {
	m.mu.Lock()
	websites, domains := maps.Clone(m.websites), maps.Clone(m.domains)
	pages, statics := maps.Clone(m.pages), maps.Clone(m.statics)
	customizations := maps.Clone(m.customizations)
	m.mu.Unlock()

	if err := fn(m.Repos()); err != nil {
		m.mu.Lock()
		m.websites, m.domains = websites, domains
		m.pages, m.statics = pages, statics
		m.customizations = customizations
		m.mu.Unlock()
		return err
	}
	return nil
}

func (m *memDB) homePages(websiteID string) []models.Page {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Page
	for _, p := range m.pages {
		if p.WebsiteID == websiteID && p.IsHomePage {
			out = append(out, p)
		}
	}
	return out
}

func notFound(what string) error {
	return status.NotFoundf("%s not found", what)
}

type memWebsites struct{ m *memDB }

func (r memWebsites) Create(_ context.Context, w models.Website) (*models.Website, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if err := r.m.failing("websites.create"); err != nil {
		return nil, err
	}
	if _, ok := r.m.websites[w.WebsiteID]; ok {
		return nil, status.AlreadyExistsf("website already exists")
	}
	w.CreatedAt = time.Now().Add(time.Duration(len(r.m.websites)) * time.Millisecond)
	w.UpdatedAt = w.CreatedAt
	r.m.websites[w.WebsiteID] = w
	return &w, nil
}

// aggregate must be called with the lock held.
func (r memWebsites) aggregate(w models.Website) *models.Website {
	if c, ok := r.m.customizations[w.WebsiteID]; ok {
		w.Customization = &c
	}
	w.Domains, w.Pages = nil, nil
	for _, id := range slices.Sorted(maps.Keys(r.m.domains)) {
		if d := r.m.domains[id]; d.WebsiteID == w.WebsiteID {
			w.Domains = append(w.Domains, d)
		}
	}
	for _, id := range slices.Sorted(maps.Keys(r.m.pages)) {
		if p := r.m.pages[id]; p.WebsiteID == w.WebsiteID {
			w.Pages = append(w.Pages, p)
		}
	}
	return &w
}

func (r memWebsites) Get(_ context.Context, websiteID string) (*models.Website, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	w, ok := r.m.websites[websiteID]
	if !ok {
		return nil, notFound("website")
	}
	return r.aggregate(w), nil
}

func (r memWebsites) GetForUser(ctx context.Context, websiteID, userID string) (*models.Website, error) {
	w, err := r.Get(ctx, websiteID)
	if err != nil {
		return nil, err
	}
	if w.UserID != userID {
		return nil, notFound("website")
	}
	return w, nil
}

func (r memWebsites) GetByName(_ context.Context, userID, name string) (*models.Website, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, w := range r.m.websites {
		if w.UserID == userID && w.Name == name {
			return r.aggregate(w), nil
		}
	}
	return nil, notFound("website")
}

func (r memWebsites) List(_ context.Context, userID *string, p models.Pagination) (*models.Paged[models.Website], error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var all []models.Website
	for _, w := range r.m.websites {
		if userID == nil || w.UserID == *userID {
			all = append(all, *r.aggregate(w))
		}
	}
	slices.SortFunc(all, func(a, b models.Website) int { return a.CreatedAt.Compare(b.CreatedAt) })
	return &models.Paged[models.Website]{
		Items:         window(all, p),
		Pagination:    p,
		TotalElements: int64(len(all)),
	}, nil
}

func window[T any](all []T, p models.Pagination) []T {
	start := min((p.Page-1)*p.Size, len(all))
	end := min(start+p.Size, len(all))
	return all[start:end]
}

func (r memWebsites) Update(ctx context.Context, websiteID, userID string, name *string) (*models.Website, error) {
	r.m.mu.Lock()
	w, ok := r.m.websites[websiteID]
	if ok && w.UserID == userID && name != nil {
		w.Name = *name
		r.m.websites[websiteID] = w
	}
	r.m.mu.Unlock()
	return r.GetForUser(ctx, websiteID, userID)
}

func (r memWebsites) DeleteCascade(_ context.Context, websiteID, userID string) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if err := r.m.failing("websites.delete"); err != nil {
		return err
	}
	w, ok := r.m.websites[websiteID]
	if !ok || w.UserID != userID {
		return notFound("website")
	}
	delete(r.m.websites, websiteID)
	delete(r.m.customizations, websiteID)
	maps.DeleteFunc(r.m.domains, func(_ int64, d models.Domain) bool { return d.WebsiteID == websiteID })
	maps.DeleteFunc(r.m.pages, func(_ int64, p models.Page) bool { return p.WebsiteID == websiteID })
	maps.DeleteFunc(r.m.statics, func(_ int64, sp models.StaticPage) bool { return sp.WebsiteID == websiteID })
	return nil
}

type memDomains struct{ m *memDB }

func (r memDomains) Create(_ context.Context, d models.Domain) (*models.Domain, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	r.m.nextID++
	d.DomainID = r.m.nextID
	r.m.domains[d.DomainID] = d
	return &d, nil
}

func (r memDomains) GetForUser(_ context.Context, domainID int64, userID string) (*models.Domain, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	d, ok := r.m.domains[domainID]
	if !ok || d.UserID != userID {
		return nil, notFound("domain")
	}
	return &d, nil
}

func (r memDomains) GetByDomain(_ context.Context, name string) (*models.Domain, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, d := range r.m.domains {
		if d.Domain == name && d.Status != models.DomainPending {
			return &d, nil
		}
	}
	return nil, notFound("domain")
}

func (r memDomains) GetByDomainAndStatus(_ context.Context, name string, s models.DomainStatus) (*models.Domain, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, d := range r.m.domains {
		if d.Domain == name && d.Status == s {
			return &d, nil
		}
	}
	return nil, notFound("domain")
}

func (r memDomains) Delete(_ context.Context, domainID int64, userID string) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	d, ok := r.m.domains[domainID]
	if !ok || d.UserID != userID {
		return notFound("domain")
	}
	delete(r.m.domains, domainID)
	return nil
}

type memPages struct{ m *memDB }

func (r memPages) Create(_ context.Context, p models.Page) (*models.Page, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if err := r.m.failing("pages.create"); err != nil {
		return nil, err
	}
	r.m.nextID++
	p.PageID = r.m.nextID
	r.m.pages[p.PageID] = p
	return &p, nil
}

func (r memPages) Get(_ context.Context, pageID int64) (*models.Page, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	p, ok := r.m.pages[pageID]
	if !ok {
		return nil, notFound("page")
	}
	return &p, nil
}

func (r memPages) GetForUser(ctx context.Context, pageID int64, userID string) (*models.Page, error) {
	p, err := r.Get(ctx, pageID)
	if err != nil {
		return nil, err
	}
	if p.UserID != userID {
		return nil, notFound("page")
	}
	return p, nil
}

func (r memPages) GetByPath(_ context.Context, websiteID, path string) (*models.Page, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, p := range r.m.pages {
		if p.WebsiteID == websiteID && p.Path == path {
			return &p, nil
		}
	}
	return nil, notFound("page")
}

func (r memPages) List(_ context.Context, websiteID *string, p models.Pagination) (*models.Paged[models.Page], error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var all []models.Page
	for _, id := range slices.Sorted(maps.Keys(r.m.pages)) {
		if page := r.m.pages[id]; websiteID == nil || page.WebsiteID == *websiteID {
			all = append(all, page)
		}
	}
	return &models.Paged[models.Page]{
		Items:         window(all, p),
		Pagination:    p,
		TotalElements: int64(len(all)),
	}, nil
}

func (r memPages) DemoteHomePage(_ context.Context, websiteID, userID string) (*models.Page, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for id, p := range r.m.pages {
		if p.WebsiteID == websiteID && p.UserID == userID && p.IsHomePage {
			p.IsHomePage = false
			p.Path = slug.Path(p.Title)
			r.m.pages[id] = p
			return &p, nil
		}
	}
	return nil, nil
}

func (r memPages) Update(_ context.Context, pageID int64, userID string, u repository.PageUpdate) (*models.Page, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	p, ok := r.m.pages[pageID]
	if !ok || p.UserID != userID {
		return nil, notFound("page")
	}
	if u.PageType != nil {
		p.PageType = *u.PageType
	}
	if u.ContentID != nil {
		p.ContentID = *u.ContentID
	}
	if u.Title != nil {
		p.Title = *u.Title
	}
	if u.IsHomePage != nil {
		p.IsHomePage = *u.IsHomePage
	}
	if u.Path != nil {
		p.Path = *u.Path
	}
	r.m.pages[pageID] = p
	return &p, nil
}

func (r memPages) Delete(_ context.Context, pageID int64, userID string) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	p, ok := r.m.pages[pageID]
	if !ok || p.UserID != userID {
		return notFound("page")
	}
	delete(r.m.pages, pageID)
	return nil
}

type memStatics struct{ m *memDB }

func (r memStatics) Ensure(_ context.Context, pageID int64, websiteID, userID string) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if _, ok := r.m.statics[pageID]; !ok {
		r.m.statics[pageID] = models.StaticPage{
			PageID:     pageID,
			WebsiteID:  websiteID,
			UserID:     userID,
			Components: models.EmptyComponents,
		}
	}
	return nil
}

func (r memStatics) Get(_ context.Context, pageID int64) (*models.StaticPage, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	sp, ok := r.m.statics[pageID]
	if !ok {
		return nil, notFound("static page")
	}
	return &sp, nil
}

func (r memStatics) Update(_ context.Context, pageID int64, userID string, components json.RawMessage) (*models.StaticPage, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	sp, ok := r.m.statics[pageID]
	if !ok || sp.UserID != userID {
		return nil, notFound("static page")
	}
	sp.Components = components
	r.m.statics[pageID] = sp
	return &sp, nil
}

func (r memStatics) Delete(_ context.Context, pageID int64, userID string) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if sp, ok := r.m.statics[pageID]; ok && sp.UserID == userID {
		delete(r.m.statics, pageID)
	}
	return nil
}

type memCustomizations struct{ m *memDB }

func (r memCustomizations) Create(_ context.Context, c models.Customization) (*models.Customization, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	r.m.customizations[c.WebsiteID] = c
	return &c, nil
}

func (r memCustomizations) GetForUser(_ context.Context, websiteID, userID string) (*models.Customization, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	c, ok := r.m.customizations[websiteID]
	if !ok || c.UserID != userID {
		return nil, notFound("customization")
	}
	return &c, nil
}

func (r memCustomizations) Update(ctx context.Context, websiteID, userID string, primary, secondary *string) (*models.Customization, error) {
	if _, err := r.GetForUser(ctx, websiteID, userID); err != nil {
		return nil, err
	}
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	c := r.m.customizations[websiteID]
	c.PrimaryColor, c.SecondaryColor = primary, secondary
	r.m.customizations[websiteID] = c
	return &c, nil
}

func (r memCustomizations) SetLogo(ctx context.Context, websiteID, userID string, key *string) (*models.Customization, error) {
	if _, err := r.GetForUser(ctx, websiteID, userID); err != nil {
		return nil, err
	}
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if err := r.m.failing("customizations.set_logo"); err != nil {
		return nil, err
	}
	c := r.m.customizations[websiteID]
	c.LogoImageURL = key
	r.m.customizations[websiteID] = c
	return &c, nil
}

// fakeApps is an in-memory OIDC app registry.
type fakeApps struct {
	mu        sync.Mutex
	apps      map[string]string
	n         int
	createErr error
	removeErr error
}

func newFakeApps() *fakeApps {
	return &fakeApps{apps: map[string]string{}}
}

func (f *fakeApps) CreateApp(_ context.Context, domain string) (*zitadel.App, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.n++
	app := &zitadel.App{AppID: fmt.Sprintf("app-%d", f.n), ClientID: fmt.Sprintf("client-%d", f.n)}
	f.apps[app.AppID] = domain
	return app, nil
}

func (f *fakeApps) RemoveApp(_ context.Context, appID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.removeErr != nil {
		return f.removeErr
	}
	delete(f.apps, appID)
	return nil
}

// fakeCDN tracks CNAMEs by name and the custom hostnames deleted.
type fakeCDN struct {
	mu                sync.Mutex
	cnames            map[string]string
	hostnamesDeleted  []string
	cnameErr          error
	deleteRecordsErrs []error
}

func newFakeCDN() *fakeCDN {
	return &fakeCDN{cnames: map[string]string{}}
}

func (f *fakeCDN) CreateCNAME(_ context.Context, name, target string) (*cloudflare.DNSRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.cnameErr != nil {
		return nil, f.cnameErr
	}
	f.cnames[name] = target
	return &cloudflare.DNSRecord{ID: "rec-" + name, Name: name, Content: target, Type: "CNAME", Proxied: true, TTL: 1}, nil
}

func (f *fakeCDN) DeleteDNSRecords(_ context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.deleteRecordsErrs) > 0 {
		err := f.deleteRecordsErrs[0]
		f.deleteRecordsErrs = f.deleteRecordsErrs[1:]
		if err != nil {
			return err
		}
	}
	delete(f.cnames, name)
	return nil
}

func (f *fakeCDN) DeleteCustomHostnames(_ context.Context, hostname string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hostnamesDeleted = append(f.hostnamesDeleted, hostname)
	return nil
}

// fakeLogos keeps objects by key.
type fakeLogos struct {
	mu      sync.Mutex
	objects map[string][]byte
	n       int
	putErr  error
}

func newFakeLogos() *fakeLogos {
	return &fakeLogos{objects: map[string][]byte{}}
}

func (f *fakeLogos) PutLogo(_ context.Context, userID, websiteID string, data []byte) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.putErr != nil {
		return "", f.putErr
	}
	f.n++
	key := fmt.Sprintf("%s/%s/logo-%d.png", userID, websiteID, f.n)
	f.objects[key] = data
	return key, nil
}

func (f *fakeLogos) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, key)
	return nil
}

func (f *fakeLogos) URL(key string) string {
	return "https://images.test/" + key
}

func (f *fakeLogos) keys() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Sorted(maps.Keys(f.objects))
}

// fakeEvents records published websites.
type fakeEvents struct {
	mu      sync.Mutex
	upserts []*service.WebsiteView
	deletes []*service.WebsiteView
}

func (f *fakeEvents) Upsert(_ context.Context, website any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.upserts = append(f.upserts, website.(*service.WebsiteView))
}

func (f *fakeEvents) Delete(_ context.Context, website any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes = append(f.deletes, website.(*service.WebsiteView))
}

// fakeChecker activates every domain it is asked about.
type fakeChecker struct {
	err error
}

func (f fakeChecker) Check(_ context.Context, d models.Domain) (*models.Domain, error) {
	if f.err != nil {
		return nil, f.err
	}
	d.Status = models.DomainActive
	return &d, nil
}
