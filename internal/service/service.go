package service

import (
	"errors"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"go.uber.org/zap"

	"github.com/sited-io/websites/internal/status"
)

const (
	idAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"
	idLength   = 14
)

// Service implements the website operations. All methods are safe for
// concurrent use when the dependencies are.
type Service struct {
	storage  Storage
	apps     OIDCApps
	cdn      CDN
	logos    Logos
	events   Events
	checker  DomainChecker
	logger   *zap.Logger
	main     string
	fallback string
	newID    func() (string, error)
}

// Deps are the collaborators of a Service.
type Deps struct {
	Storage  Storage
	Apps     OIDCApps
	CDN      CDN
	Logos    Logos
	Events   Events
	Checker  DomainChecker
	Logger   *zap.Logger
	// MainDomain is the parent of every internal website domain.
	MainDomain string
	// FallbackDomain is the CNAME target of internal domains.
	FallbackDomain string
	// NewID overrides website id generation in tests.
	NewID func() (string, error)
}

// New creates a Service.
func New(d Deps) *Service {
	s := &Service{
		storage:  d.Storage,
		apps:     d.Apps,
		cdn:      d.CDN,
		logos:    d.Logos,
		events:   d.Events,
		checker:  d.Checker,
		logger:   d.Logger,
		main:     d.MainDomain,
		fallback: d.FallbackDomain,
		newID:    d.NewID,
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.newID == nil {
		s.newID = func() (string, error) {
			return gonanoid.Generate(idAlphabet, idLength)
		}
	}
	return s
}

// upstreamError keeps taxonomy errors and turns anything else into Internal.
func upstreamError(err error, message string) error {
	var se *status.Error
	if errors.As(err, &se) {
		return err
	}
	return status.Wrap(status.Internal, err, message)
}
