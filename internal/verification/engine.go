// Package verification moves user domains from Pending to Active once their
// DNS points at the platform, provisioning the CDN custom hostname exactly
// once per activation.
package verification

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/sited-io/websites/internal/cloudflare"
	"github.com/sited-io/websites/internal/dns"
	"github.com/sited-io/websites/internal/metrics"
	"github.com/sited-io/websites/internal/models"
	"github.com/sited-io/websites/internal/repository"
)

// DomainStore is the storage the engine needs.
type DomainStore interface {
	ListByStatus(ctx context.Context, s models.DomainStatus) ([]models.Domain, error)
	Activate(ctx context.Context, domainID int64, provision repository.ProvisionFunc) (*models.Domain, bool, error)
}

// Provisioner creates the CDN custom hostname of an activated domain.
type Provisioner interface {
	CreateCustomHostname(ctx context.Context, hostname string) (*cloudflare.CustomHostname, error)
}

// SweepReport summarizes one sweep.
type SweepReport struct {
	Checked   int
	Activated int
	Failed    int
}

// Engine runs the Pending to Active transition.
type Engine struct {
	resolver dns.Resolver
	cdn      Provisioner
	domains  DomainStore
	fallback string
	log      *zap.Logger
}

// NewEngine creates an Engine. fallback is the platform hostname user
// domains must point at.
func NewEngine(resolver dns.Resolver, cdn Provisioner, domains DomainStore, fallback string, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		resolver: resolver,
		cdn:      cdn,
		domains:  domains,
		fallback: fallback,
		log:      logger.Named("verification"),
	}
}

// fallbackAddrs resolves the fallback's address set at most once.
type fallbackAddrs struct {
	engine   *Engine
	resolved bool
	addrs    map[string]struct{}
}

func (f *fallbackAddrs) get(ctx context.Context) (map[string]struct{}, error) {
	if f.resolved {
		return f.addrs, nil
	}
	resp, err := f.engine.resolver.Lookup(ctx, f.engine.fallback)
	if err != nil {
		return nil, err
	}
	f.addrs = resp.Addresses()
	f.resolved = true
	return f.addrs, nil
}

// Check verifies one domain. Domains that are not Pending are returned
// unchanged. A Pending domain that is not pointed at the platform stays
// Pending without an error; DNS and CDN failures are returned.
func (e *Engine) Check(ctx context.Context, d models.Domain) (*models.Domain, error) {
	out, _, err := e.check(ctx, d, &fallbackAddrs{engine: e})
	return out, err
}

func (e *Engine) check(ctx context.Context, d models.Domain, fb *fallbackAddrs) (*models.Domain, bool, error) {
	if d.Status != models.DomainPending {
		return &d, false, nil
	}

	ok, err := e.pointed(ctx, d.Domain, fb)
	if err != nil {
		metrics.DomainChecksTotal.WithLabelValues(metrics.OutcomeFailed).Inc()
		return nil, false, err
	}
	if !ok {
		metrics.DomainChecksTotal.WithLabelValues(metrics.OutcomePending).Inc()
		return &d, false, nil
	}

	out, activated, err := e.domains.Activate(ctx, d.DomainID, e.provision)
	if err != nil {
		metrics.DomainChecksTotal.WithLabelValues(metrics.OutcomeFailed).Inc()
		return nil, false, err
	}
	if activated {
		metrics.DomainChecksTotal.WithLabelValues(metrics.OutcomeActivated).Inc()
		e.log.Info("domain activated",
			zap.Int64("domain_id", out.DomainID),
			zap.String("domain", out.Domain),
			zap.String("website_id", out.WebsiteID))
	}
	return out, activated, nil
}

func (e *Engine) provision(ctx context.Context, d models.Domain) error {
	h, err := e.cdn.CreateCustomHostname(ctx, d.Domain)
	if err != nil {
		return err
	}
	e.log.Debug("custom hostname created", zap.String("domain", d.Domain), zap.String("hostname_id", h.ID))
	return nil
}

// pointed reports whether name has a CNAME to the fallback or resolves to
// exactly the fallback's addresses. An empty address set never matches.
func (e *Engine) pointed(ctx context.Context, name string, fb *fallbackAddrs) (bool, error) {
	resp, err := e.resolver.Lookup(ctx, name)
	if err != nil {
		return false, err
	}
	if resp.HasCNAME(name, e.fallback) {
		return true, nil
	}

	candidate := resp.Addresses()
	if len(candidate) == 0 {
		return false, nil
	}
	want, err := fb.get(ctx)
	if err != nil {
		return false, err
	}
	return sameSet(candidate, want), nil
}

func sameSet(a, b map[string]struct{}) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if _, ok := b[k]; !ok {
			return false
		}
	}
	return true
}

// Sweep checks every Pending domain once. Per-domain failures are logged and
// counted; only a failure to list the domains is returned.
func (e *Engine) Sweep(ctx context.Context) (SweepReport, error) {
	start := time.Now()
	metrics.SweepRunsTotal.Inc()
	defer func() { metrics.SweepDuration.Observe(time.Since(start).Seconds()) }()

	var report SweepReport
	pending, err := e.domains.ListByStatus(ctx, models.DomainPending)
	if err != nil {
		return report, err
	}
	metrics.PendingDomains.Set(float64(len(pending)))

	fb := &fallbackAddrs{engine: e}
	for _, d := range pending {
		if ctx.Err() != nil {
			break
		}
		report.Checked++
		_, activated, err := e.check(ctx, d, fb)
		switch {
		case err != nil:
			report.Failed++
			e.log.Warn("domain check failed",
				zap.Int64("domain_id", d.DomainID),
				zap.String("domain", d.Domain),
				zap.Error(err))
		case activated:
			report.Activated++
		}
	}

	e.log.Info("sweep finished",
		zap.Int("checked", report.Checked),
		zap.Int("activated", report.Activated),
		zap.Int("failed", report.Failed),
		zap.Duration("took", time.Since(start)))
	return report, ctx.Err()
}
