package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/utafrali/storefront/internal/service"
	"github.com/utafrali/storefront/pkg/health"
	"github.com/utafrali/storefront/pkg/middleware"
)

// Services are the business services the API exposes.
type Services struct {
	Auth           *service.AuthService
	Catalog        *service.CatalogService
	Cart           *service.CartService
	RecentlyViewed *service.RecentlyViewedService
}

// RouterConfig holds the HTTP-level settings of the router.
type RouterConfig struct {
	ServiceName    string
	CORS           middleware.CORSConfig
	AuthRateLimit  int
	AuthRateWindow time.Duration
	RequestTimeout time.Duration
}

// NewRouter creates a chi router with all storefront routes registered.
func NewRouter(svc Services, healthHandler *health.Handler, cfg RouterConfig, logger *slog.Logger) http.Handler {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 30 * time.Second
	}

	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.CORS(cfg.CORS))
	r.Use(chimw.Compress(5))
	r.Use(chimw.Timeout(cfg.RequestTimeout))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.PrometheusMetrics(cfg.ServiceName))
	r.Use(middleware.Tracing(cfg.ServiceName))
	r.Use(middleware.RequestLogger(logger))

	// Health check endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Handle("/metrics", promhttp.Handler())

	authHandler := NewAuthHandler(svc.Auth, logger)
	productHandler := NewProductHandler(svc.Catalog, svc.RecentlyViewed, logger)
	userHandler := NewUserHandler(svc.RecentlyViewed, logger)
	cartHandler := NewCartHandler(svc.Cart, logger)

	requireAuth := middleware.Auth(svc.Auth.ValidateToken)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(ContentTypeJSON)

		r.Route("/auth", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				r.Use(middleware.RateLimit(cfg.AuthRateLimit, cfg.AuthRateWindow, logger))
				r.Post("/register", authHandler.Register)
				r.Post("/login", authHandler.Login)
			})
			r.Group(func(r chi.Router) {
				r.Use(requireAuth, middleware.RequestLogger(logger))
				r.Get("/me", authHandler.Me)
				r.Post("/logout", authHandler.Logout)
			})
		})

		r.Route("/products", func(r chi.Router) {
			r.Get("/", productHandler.List)
			r.Get("/facets", productHandler.Facets)
			r.Get("/{id}", productHandler.Get)
			r.With(requireAuth, middleware.RequestLogger(logger)).Post("/{id}/view", productHandler.RecordView)
		})

		r.Route("/users", func(r chi.Router) {
			r.Use(requireAuth, middleware.RequestLogger(logger))
			r.Get("/recently-viewed", userHandler.RecentlyViewed)
			r.Delete("/recently-viewed", userHandler.ClearRecentlyViewed)
		})

		r.Route("/cart", func(r chi.Router) {
			r.Use(requireAuth, middleware.RequestLogger(logger))
			r.Get("/", cartHandler.GetCart)
			r.Put("/", cartHandler.ReplaceCart)
			r.Post("/add", cartHandler.AddItem)
			r.Post("/update", cartHandler.UpdateItem)
			r.Post("/remove", cartHandler.RemoveItem)
			r.Post("/save-for-later", cartHandler.SaveForLater)
			r.Post("/move-to-cart", cartHandler.MoveToCart)
			r.Post("/remove-saved", cartHandler.RemoveSaved)
			r.Post("/clear", cartHandler.ClearCart)
		})
	})

	return r
}
