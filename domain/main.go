package domain

import (
	"github.com/akeren/acs-site/config"
	"github.com/akeren/acs-site/domain/contact"
	"github.com/akeren/acs-site/domain/monitoring"
	"github.com/akeren/acs-site/domain/site"
	"github.com/akeren/acs-site/internal/web/content"
	"github.com/akeren/acs-site/internal/web/static"
)

// ContactFactory builds the contact domain from the loaded application config.
func ContactFactory(appConfig *config.ApplicationConfig, siteCopy *content.Site) contact.ContactServiceFactory {
	mail := appConfig.Mail

	opts := contact.FactoryOptions{
		DB:         appConfig.DB,
		Logger:     appConfig.Logger,
		Relay:      appConfig.Relay,
		Store:      appConfig.Cache,
		Registerer: appConfig.RouterService.MetricsRegisterer(),
		Site:       siteCopy,
		Settings: contact.Settings{
			Sender:           mail.Sender(),
			Recipients:       mail.To,
			SubjectPrefix:    mail.SubjectPrefix,
			VerifyBeforeSend: mail.VerifyBeforeSend,
			SendTimeout:      mail.SendTimeout,
			IdempotencyTTL:   mail.IdempotencyTTL,
			Configured:       mail.IsConfigured(),
		},
		SubmissionLimit:  mail.RateLimitRequests,
		SubmissionWindow: mail.RateLimitWindow,
	}

	if appConfig.Factories != nil {
		opts.Limiters = appConfig.Factories.RateLimiterFactory
	}

	return contact.NewContactServiceFactory(opts)
}

func SetupCoreDomain(appConfig *config.ApplicationConfig) error {
	siteCopy, err := content.Load()
	if err != nil {
		return err
	}

	contactFactory := ContactFactory(appConfig, siteCopy)
	contactService, err := contactFactory.CreateService()
	if err != nil {
		return err
	}

	contactControllers, err := contactFactory.CreateControllers(contactService)
	if err != nil {
		return err
	}

	siteController, err := site.NewSiteControllerFactory(siteCopy, static.Files).CreateController()
	if err != nil {
		return err
	}

	appConfig.RouterService.MountController(siteController)
	for _, controller := range contactControllers {
		appConfig.RouterService.MountController(controller)
	}
	appConfig.RouterService.MountController(monitoring.NewMonitoringControllerFactory(
		appConfig.DB,
		appConfig.Logger,
		appConfig.Cache,
		contactService,
		appConfig.Mail.IsConfigured(),
	).CreateController())

	return nil
}
