package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/storefront-backend/api/controllers"
	"github.com/angelmondragon/storefront-backend/api/middleware"
	"github.com/angelmondragon/storefront-backend/internal/newsletter"
	"github.com/angelmondragon/storefront-backend/internal/orders"
	"github.com/angelmondragon/storefront-backend/internal/products"
	"github.com/angelmondragon/storefront-backend/internal/questions"
	"github.com/angelmondragon/storefront-backend/internal/reviews"
	"github.com/angelmondragon/storefront-backend/internal/wishlist"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
	"github.com/angelmondragon/storefront-backend/pkg/redis"
)

// Dependencies carries everything the HTTP surface needs. Nil interfaces
// disable the matching middleware or probe.
type Dependencies struct {
	DB          controllers.Pinger
	Redis       controllers.Pinger
	Idempotency redis.IdempotencyStore
	RateLimiter redis.RateLimiter
	Gatherer    prometheus.Gatherer
	RateMetrics *metrics.RateLimitMetrics

	Products   products.Service
	Orders     orders.Service
	Wishlist   wishlist.Service
	Reviews    reviews.Service
	Questions  questions.Service
	Newsletter newsletter.Service
}

func NewRouter(cfg *config.Config, logg *logger.Logger, deps Dependencies) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, map[string]controllers.Pinger{
			"db":    deps.DB,
			"redis": deps.Redis,
		}))
	})
	if deps.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
	}

	requireUser := middleware.Auth(cfg.JWT, logg)
	optionalUser := middleware.OptionalAuth(cfg.JWT, logg)
	favoritesPolicy := middleware.NewRateLimitPolicy(
		"favorites",
		cfg.FavoritesRateLimit.Window,
		cfg.FavoritesRateLimit.Limit,
	)
	favoritesLimit := middleware.UserRateLimit(favoritesPolicy, deps.RateLimiter, deps.RateMetrics, logg)

	r.Route("/api", func(r chi.Router) {
		r.Route("/products", func(r chi.Router) {
			r.Get("/", controllers.ProductsList(deps.Products, logg))
			r.Get("/{slug}", controllers.ProductDetail(deps.Products, logg))
		})

		r.With(optionalUser, middleware.Idempotency(deps.Idempotency, cfg.Checkout.IdempotencyTTL, logg)).
			Post("/checkout", controllers.PlaceOrder(deps.Orders, cfg.Checkout.PublicOrigin, cfg.App.CORSOrigins, logg))
		r.With(optionalUser).Get("/orders/{orderNumber}", controllers.GetOrder(deps.Orders, logg))

		r.Route("/favorites", func(r chi.Router) {
			r.With(requireUser).Get("/", controllers.FavoritesList(deps.Wishlist, logg))
			r.With(optionalUser).Get("/check", controllers.FavoritesCheck(deps.Wishlist, logg))
			r.Group(func(r chi.Router) {
				r.Use(requireUser, favoritesLimit)
				r.Post("/", controllers.FavoritesAdd(deps.Wishlist, logg))
				r.Delete("/", controllers.FavoritesRemove(deps.Wishlist, logg))
			})
		})

		r.Route("/reviews", func(r chi.Router) {
			r.Get("/", controllers.ReviewsList(deps.Reviews, logg))
			r.With(requireUser).Post("/", controllers.ReviewsCreate(deps.Reviews, logg))
			r.With(requireUser).Post("/helpful", controllers.ReviewsHelpful(deps.Reviews, logg))
		})

		r.Route("/questions", func(r chi.Router) {
			r.Get("/", controllers.QuestionsList(deps.Questions, logg))
			r.With(optionalUser).Post("/", controllers.QuestionsAsk(deps.Questions, logg))
		})
		r.Route("/answers", func(r chi.Router) {
			r.Use(requireUser)
			r.Post("/", controllers.AnswersCreate(deps.Questions, logg))
			r.Post("/helpful", controllers.AnswersHelpful(deps.Questions, logg))
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(requireUser, middleware.RequireRole(string(enums.UserRoleAdmin), logg))
			r.Delete("/catalog/cache/{slug}", controllers.ProductCacheInvalidate(deps.Products, logg))
		})

		r.Route("/newsletter", func(r chi.Router) {
			r.Post("/", controllers.NewsletterSubscribe(deps.Newsletter, logg))
			r.Post("/unsubscribe", controllers.NewsletterUnsubscribe(deps.Newsletter, logg))
		})
	})

	return r
}
