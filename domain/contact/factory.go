package contact

import (
	"time"

	"github.com/akeren/acs-site/config/router"
	"github.com/akeren/acs-site/internal/log"
	"github.com/akeren/acs-site/internal/web/content"
	"github.com/akeren/acs-site/pkg/constants"
	"github.com/akeren/acs-site/pkg/factory"
	"github.com/akeren/acs-site/pkg/mailer"
	"github.com/akeren/acs-site/pkg/ratelimit"
	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"
)

type ContactServiceFactory interface {
	CreateService() (ContactService, error)
	// CreateControllers mounts service behind the JSON endpoint and the contact page.
	CreateControllers(service ContactService) ([]*router.RESTController, error)
}

// FactoryOptions gathers the collaborators the contact domain is built from.
type FactoryOptions struct {
	DB         *gorm.DB
	Logger     *log.Logger
	Relay      mailer.Relay
	Store      IdempotencyStore
	Settings   Settings
	Registerer prometheus.Registerer
	Limiters   factory.RateLimiterFactory
	Site       *content.Site

	// SubmissionLimit caps POSTs per client per SubmissionWindow.
	SubmissionLimit  int
	SubmissionWindow time.Duration
}

type DefaultContactServiceFactory struct {
	opts FactoryOptions
}

func NewContactServiceFactory(opts FactoryOptions) ContactServiceFactory {
	if opts.SubmissionLimit <= 0 {
		opts.SubmissionLimit = constants.DefaultContactRateLimitRequests
	}
	if opts.SubmissionWindow <= 0 {
		opts.SubmissionWindow = constants.DefaultContactRateLimitWindow
	}
	return &DefaultContactServiceFactory{opts: opts}
}

func (f *DefaultContactServiceFactory) CreateService() (ContactService, error) {
	repository := NewDispatchRepository(f.opts.DB)
	return NewContactService(f.opts.Logger, f.opts.Relay, repository, f.opts.Store, f.opts.Settings, f.opts.Registerer)
}

func (f *DefaultContactServiceFactory) CreateControllers(service ContactService) ([]*router.RESTController, error) {
	site := f.opts.Site
	if site == nil {
		var err error
		if site, err = content.Load(); err != nil {
			return nil, err
		}
	}

	return []*router.RESTController{
		NewContactAPIController(service, f.submissionLimiter("contact-api")),
		NewContactPageController(service, site, f.submissionLimiter("contact-form")),
	}, nil
}

func (f *DefaultContactServiceFactory) submissionLimiter(scope string) ratelimit.RateLimiter {
	if f.opts.Limiters != nil {
		return f.opts.Limiters.CreateScopedRateLimiter(scope, f.opts.SubmissionLimit, f.opts.SubmissionWindow)
	}

	return ratelimit.NewRateLimiter(&ratelimit.RateLimitConfig{
		Requests: f.opts.SubmissionLimit,
		Window:   f.opts.SubmissionWindow,
	})
}
