package monitoring

import (
	"github.com/akeren/acs-site/config/router"
	"github.com/akeren/acs-site/internal/log"
	"gorm.io/gorm"
)

type MonitoringControllerFactory interface {
	CreateController() *router.RESTController
}

type DefaultMonitoringControllerFactory struct {
	db        *gorm.DB
	logger    *log.Logger
	cache     Cache
	relay     RelayHealth
	mailReady bool
}

func NewMonitoringControllerFactory(db *gorm.DB, logger *log.Logger, cache Cache, relay RelayHealth, mailReady bool) MonitoringControllerFactory {
	return &DefaultMonitoringControllerFactory{
		db:        db,
		logger:    logger,
		cache:     cache,
		relay:     relay,
		mailReady: mailReady,
	}
}

func (f *DefaultMonitoringControllerFactory) CreateController() *router.RESTController {
	return NewMonitoringController(f.db, f.logger, f.cache, f.relay, f.mailReady)
}
