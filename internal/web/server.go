package web

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"horsemarket-web/internal/api"
	"horsemarket-web/internal/config"
	"horsemarket-web/internal/content"
	"horsemarket-web/internal/dashboard"
	"horsemarket-web/internal/favorites"
	"horsemarket-web/internal/filter"
	"horsemarket-web/internal/metrics"
	"horsemarket-web/internal/payment"
	"horsemarket-web/internal/session"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// MarketplaceAPI is the part of the marketplace API the handlers call directly.
type MarketplaceAPI interface {
	SearchListings(ctx context.Context, q api.ListingQuery, creds api.Credentials) (*api.ListingPage, error)
	Listing(ctx context.Context, slug string, creds api.Credentials) (*api.Listing, error)
	CreateListing(ctx context.Context, draft api.ListingDraft, creds api.Credentials) (*api.Listing, error)
	UploadMedia(ctx context.Context, listingID string, files []api.MediaFile, creds api.Credentials) ([]string, error)
	ListingBundles(ctx context.Context, creds api.Credentials) (*api.ListingBundles, error)
	CheckoutListing(ctx context.Context, listingID, packageType string, creds api.Credentials) (*api.Checkout, error)
	CheckoutPublish(ctx context.Context, listingID string, creds api.Credentials) (*api.Checkout, error)
	CheckoutBundle(ctx context.Context, bundle string, creds api.Credentials) (*api.Checkout, error)
	Events(ctx context.Context) ([]api.Event, error)
	Products(ctx context.Context) ([]api.Product, error)
}

type Deps struct {
	Server    config.Server
	Session   config.Session
	API       MarketplaceAPI
	Sessions  *session.Manager
	Payments  *payment.Service
	Labels    *payment.Labels
	Regions   *filter.Table
	Favorites *favorites.Cache
	Dashboard *dashboard.Service
	Content   *content.Service
	Logger    *slog.Logger
}

type Server struct {
	Deps
	logger      *slog.Logger
	unsubscribe func()
}

// NewServer wires the handlers. Cached favorites are dropped whenever a
// session logs out or its credentials are rejected; call Close to stop that.
func NewServer(deps Deps) *Server {
	s := &Server{Deps: deps, logger: deps.Logger}
	s.unsubscribe = deps.Sessions.Subscribe(s.onSessionEvent)
	return s
}

func (s *Server) Close() {
	s.unsubscribe()
}

func (s *Server) onSessionEvent(e session.Event) {
	if e.Type != session.EventLogout && e.Type != session.EventExpired {
		return
	}
	if e.User == nil {
		return
	}
	s.Favorites.Invalidate(context.Background(), e.User.ID)
	s.logger.Debug("Dropped cached favorites", "event", e.Type, "userId", e.User.ID)
}

// Router builds the gin engine with every route mounted.
func (s *Server) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), requestContext(), accessLog(s.logger))

	if len(s.Server.AllowedOrigin) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     s.Server.AllowedOrigin,
			AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodDelete},
			AllowHeaders:     []string{"Origin", "Content-Type", requestIDHeader},
			ExposeHeaders:    []string{requestIDHeader},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	r.GET("/liveness", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/metrics", func(c *gin.Context) {
		c.Header("Content-Type", "text/plain; version=0.0.4")
		metrics.Write(c.Writer)
	})

	app := r.Group("/", loadSession(s.Sessions, s.Session.CookieName, s.logger))

	app.POST("/auth/login", s.login)
	app.POST("/auth/logout", s.logout)
	app.GET("/auth/me", s.me)

	app.GET("/payments/result", s.paymentResult)
	app.GET("/ws/payments", s.paymentStream)

	app.GET("/filters/districts", s.districts)
	app.GET("/listings", s.searchListings)
	app.GET("/listings/:listing", s.listingDetail)

	app.GET("/blog", s.blogPosts)
	app.GET("/blog/:slug", s.blogPost)
	app.GET("/pages/:slug", s.staticPage)
	app.GET("/events", s.events)
	app.GET("/products", s.products)

	user := app.Group("/", requireUser())
	user.POST("/listings", s.createListing)
	user.POST("/listings/:listing/media", s.uploadMedia)
	user.POST("/listings/:listing/checkout", s.checkoutListing)
	user.POST("/listings/:listing/publish", s.checkoutPublish)
	user.GET("/credits", s.bundles)
	user.POST("/credits/checkout", s.checkoutBundle)
	user.GET("/favorites", s.listFavorites)
	user.POST("/favorites/:listing", s.addFavorite)
	user.DELETE("/favorites/:listing", s.removeFavorite)

	app.GET("/admin/dashboard", requireAdmin(), s.adminDashboard)

	return r
}

func credentials(c *gin.Context) api.Credentials {
	return currentSession(c).Credentials()
}
