package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wishwell/wishwell-backend/api/controllers"
	"github.com/wishwell/wishwell-backend/api/middleware"
	"github.com/wishwell/wishwell-backend/internal/auth"
	"github.com/wishwell/wishwell-backend/internal/funding"
	"github.com/wishwell/wishwell-backend/internal/items"
	"github.com/wishwell/wishwell-backend/internal/realtime"
	"github.com/wishwell/wishwell-backend/internal/wishlists"
	"github.com/wishwell/wishwell-backend/pkg/auth/session"
	"github.com/wishwell/wishwell-backend/pkg/config"
	"github.com/wishwell/wishwell-backend/pkg/logger"
	"github.com/wishwell/wishwell-backend/pkg/redis"
)

// Deps carries everything the router needs wired up.
type Deps struct {
	Config   *config.Config
	Logger   *logger.Logger
	Redis    *redis.Client
	Registry *prometheus.Registry

	SessionChecker session.AccessSessionChecker

	AuthService     auth.Service
	WishlistService wishlists.Service
	ItemService     items.Service
	FundingService  funding.Service
	Hub             *realtime.Hub

	HealthDeps map[string]controllers.Pinger
}

func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginEmailLimit,
	)
	registerPolicy := middleware.NewAuthRateLimitPolicy(
		"register",
		cfg.AuthRateLimit.RegisterWindow,
		cfg.AuthRateLimit.RegisterIPLimit,
		cfg.AuthRateLimit.RegisterEmailLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.HealthDeps))
	})

	if deps.Registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{}))
	}

	r.Route("/api/public", func(r chi.Router) {
		r.Get("/lists/{slug}", controllers.WishlistBySlug(deps.WishlistService, logg))
		r.Get("/items/{itemID}/funding", controllers.ItemFunding(deps.FundingService, logg))
	})

	// A concrete nil *redis.Client must not reach the middleware as a
	// non-nil interface.
	var rateStore middleware.RateLimiterStore
	if deps.Redis != nil {
		rateStore = deps.Redis
	}

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(middleware.AuthRateLimit(registerPolicy, rateStore, logg)).Post("/register", controllers.Register(deps.AuthService, logg))
		r.With(middleware.AuthRateLimit(loginPolicy, rateStore, logg)).Post("/login", controllers.Login(deps.AuthService, logg))
		r.With(middleware.Auth(cfg.JWT, deps.SessionChecker, logg)).Post("/logout", controllers.Logout(deps.AuthService, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, deps.SessionChecker, logg))

		r.Route("/wishlists", func(r chi.Router) {
			r.Post("/", controllers.WishlistCreate(deps.WishlistService, logg))
			r.Get("/", controllers.WishlistListMine(deps.WishlistService, logg))
			r.Get("/{wishlistID}", controllers.WishlistGet(deps.WishlistService, logg))
			r.Patch("/{wishlistID}", controllers.WishlistUpdate(deps.WishlistService, logg))
			r.Delete("/{wishlistID}", controllers.WishlistDelete(deps.WishlistService, logg))
			r.Post("/{wishlistID}/items", controllers.ItemCreate(deps.ItemService, logg))
		})

		r.Route("/items/{itemID}", func(r chi.Router) {
			r.Patch("/", controllers.ItemUpdate(deps.ItemService, logg))
			r.Delete("/", controllers.ItemDelete(deps.ItemService, logg))

			r.Post("/reserve", controllers.ContributionReserve(deps.FundingService, logg))
			r.Post("/contributions", controllers.ContributionCreate(deps.FundingService, logg))
			r.Put("/contributions", controllers.ContributionUpdateOwn(deps.FundingService, logg))
			r.Delete("/contributions", controllers.ContributionWithdraw(deps.FundingService, logg))
			r.Get("/contributions/mine", controllers.ContributionMine(deps.FundingService, logg))
			r.Get("/funding", controllers.ItemFunding(deps.FundingService, logg))
		})

		r.Route("/realtime", func(r chi.Router) {
			r.Get("/stream", controllers.RealtimeStream(deps.Hub, logg))
			r.Post("/subscribe", controllers.RealtimeSubscribe(deps.Hub, logg))
			r.Post("/unsubscribe", controllers.RealtimeUnsubscribe(deps.Hub, logg))
		})
	})

	return r
}
