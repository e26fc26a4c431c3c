package site

import (
	"io/fs"

	"github.com/akeren/acs-site/config/router"
	"github.com/akeren/acs-site/internal/web/content"
	"github.com/akeren/acs-site/internal/web/static"
)

type SiteControllerFactory interface {
	CreateController() (*router.RESTController, error)
}

type DefaultSiteControllerFactory struct {
	site   *content.Site
	assets fs.FS
}

// NewSiteControllerFactory falls back to the embedded copy and assets when
// site or assets are nil.
func NewSiteControllerFactory(site *content.Site, assets fs.FS) SiteControllerFactory {
	if assets == nil {
		assets = static.Files
	}
	return &DefaultSiteControllerFactory{site: site, assets: assets}
}

func (f *DefaultSiteControllerFactory) CreateController() (*router.RESTController, error) {
	site := f.site
	if site == nil {
		loaded, err := content.Load()
		if err != nil {
			return nil, err
		}
		site = loaded
	}
	return NewSiteController(site, f.assets), nil
}
