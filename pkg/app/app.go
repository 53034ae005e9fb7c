package app

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"go.uber.org/zap"

	"taste3d/pkg/assets"
	"taste3d/pkg/config"
	"taste3d/pkg/content"
	"taste3d/pkg/handlers"
	"taste3d/pkg/logging"
	"taste3d/pkg/services"
)

// assetURLPrefix is where asset URIs in content and pages are served from
const assetURLPrefix = "/assets"

// App wires the site services for one configuration
type App struct {
	Config     *config.Config
	Logger     *zap.Logger
	Site       *content.Site
	Store      assets.Store
	Preloader  *services.Preloader
	Scenes     *services.SceneLoader
	Showcase   *services.Showcase
	Gallery    *services.Gallery
	Contact    *services.ContactService
	Thumbnails *services.ThumbnailService
	Portfolio  services.PortfolioIndex

	closers []io.Closer
}

// New loads the site content and builds every service. Assets come from the
// configured bucket, or from AssetsDir when no bucket is set.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	logger = logging.OrNop(logger)

	site, err := content.Load(cfg.ContentFile)
	if err != nil {
		return nil, err
	}

	a := &App{Config: cfg, Logger: logger, Site: site}

	if cfg.UsesBucket() {
		gcs, err := assets.NewGCSStore(ctx, cfg.BucketName)
		if err != nil {
			return nil, fmt.Errorf("failed to open bucket %s: %w", cfg.BucketName, err)
		}
		a.Store = gcs
		a.closers = append(a.closers, gcs)
	} else {
		a.Store = assets.NewLocalStore(cfg.AssetsDir, assetURLPrefix)
	}

	fetcher := assets.NewStoreFetcher(a.Store, assetURLPrefix, nil)
	a.Preloader = services.NewPreloader(fetcher, nil, logger.Named("preloader"))
	a.Scenes = services.NewSceneLoader(fetcher, logger.Named("scenes"))
	a.Showcase = services.NewShowcase(site.Items, a.Scenes, a.Preloader, cfg.SessionTTL, logger.Named("showcase"))

	a.Portfolio, err = services.DiscoverPortfolio(ctx, a.Store)
	if err != nil {
		// An unreadable portfolio leaves the page empty; the rest of the site still works.
		logger.Warn("portfolio discovery failed", zap.Error(err))
	}
	a.Gallery = services.NewGallery(
		a.Portfolio.Candidates,
		services.NewPortfolioResolver(a.Store, a.Preloader, a.Portfolio.Thumbnails),
		services.GalleryOptions{BatchSize: cfg.PortfolioBatchSize, RemainderDelay: cfg.PortfolioRemainderDelay},
		logger.Named("portfolio"),
	)

	a.Contact = services.NewContactService(services.NewEmailJSRelay("", nil), services.ContactSettings{
		ServiceID:  cfg.EmailServiceID,
		TemplateID: cfg.EmailTemplateID,
		PublicKey:  cfg.EmailPublicKey,
		Recipient:  cfg.ContactEmail,
	}, logger.Named("contact"))
	a.Thumbnails = services.NewThumbnailService(a.Store, 0, logger.Named("thumbnails"))

	return a, nil
}

// Start begins the background work of a serving process: the portfolio
// batches and, after ModelPreloadDelay, the model warm-up.
func (a *App) Start(ctx context.Context) {
	a.Gallery.Start(ctx)
	go a.Scenes.Warm(ctx, a.Config.ModelPreloadDelay, a.Showcase.ModelURIs())
}

// Handler returns the site router
func (a *App) Handler() http.Handler {
	return handlers.NewServer(handlers.Deps{
		Config:     a.Config,
		Site:       a.Site,
		Store:      a.Store,
		Showcase:   a.Showcase,
		Scenes:     a.Scenes,
		Preloader:  a.Preloader,
		Gallery:    a.Gallery,
		Contact:    a.Contact,
		Thumbnails: a.Thumbnails,
		Logger:     a.Logger.Named("http"),
	}).Routes()
}

// Close ends every showcase session and releases the asset store
func (a *App) Close() {
	a.Showcase.Close()
	for _, c := range a.closers {
		if err := c.Close(); err != nil {
			a.Logger.Warn("error closing resource", zap.Error(err))
		}
	}
}
