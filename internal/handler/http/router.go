package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/utafrali/bitebook/internal/auth"
	"github.com/utafrali/bitebook/internal/service"
	"github.com/utafrali/bitebook/pkg/health"
	"github.com/utafrali/bitebook/pkg/middleware"
)

const serviceName = "bitebook"

// Services groups the application services the router dispatches to.
type Services struct {
	Accounts    *service.AccountService
	Social      *service.SocialService
	Posts       *service.PostService
	Restaurants *service.RestaurantService
	Favorites   *service.FavoriteService
}

// RouterConfig holds the HTTP surface settings.
type RouterConfig struct {
	CORS                   middleware.CORSConfig
	AuthRateLimitPerMinute int
	PprofAllowedCIDRs      []string
}

// NewRouter creates a chi router with all bitebook routes registered.
func NewRouter(
	svc Services,
	jwtManager *auth.JWTManager,
	healthHandler *health.Handler,
	logger *slog.Logger,
	cfg RouterConfig,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.CORS(cfg.CORS))
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.PrometheusMetrics(serviceName))
	r.Use(middleware.Tracing(serviceName))

	// Health check endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Handle("/metrics", promhttp.Handler())
	middleware.RegisterPprof(r, cfg.PprofAllowedCIDRs, logger)

	tokenValidator := func(token string) (*middleware.Claims, error) {
		claims, err := jwtManager.Validate(token)
		if err != nil {
			return nil, err
		}
		return &middleware.Claims{UserID: claims.UserID, Username: claims.Username}, nil
	}
	authenticated := func(r chi.Router) {
		r.Use(middleware.ContentTypeJSON)
		r.Use(middleware.Auth(tokenValidator))
		r.Use(middleware.RequestLogger(logger))
	}

	userHandler := NewUserHandler(svc.Accounts, svc.Social, svc.Posts, logger)
	postHandler := NewPostHandler(svc.Posts, logger)
	restaurantHandler := NewRestaurantHandler(svc.Restaurants, svc.Favorites, logger)

	r.Route("/users", func(r chi.Router) {
		// Public, rate limited per client IP.
		r.Group(func(r chi.Router) {
			r.Use(middleware.ContentTypeJSON)
			r.Use(middleware.RateLimitByIP(cfg.AuthRateLimitPerMinute, time.Minute))
			r.Use(middleware.RequestLogger(logger))

			r.Post("/signUp", userHandler.SignUp)
			r.Post("/login", userHandler.Login)
		})

		r.Group(func(r chi.Router) {
			authenticated(r)

			r.Get("/search", userHandler.Search)
			r.Get("/requests", userHandler.PendingRequests)
			r.Get("/user/{id}", userHandler.GetUser)
			r.Put("/update/{id}", userHandler.UpdateUser)
			r.Delete("/delete/{id}", userHandler.DeleteUser)
			r.Put("/follow/{id}", userHandler.Follow)
			r.Put("/unfollow/{id}", userHandler.Unfollow)
			r.Put("/acceptFollow/{id}", userHandler.AcceptFollow)
			r.Put("/rejectFollow/{id}", userHandler.RejectFollow)
			r.Get("/{id}/posts", userHandler.UserPosts)
			r.Get("/{id}/followers", userHandler.Followers)
			r.Get("/{id}/following", userHandler.Following)
		})
	})

	r.Route("/posts", func(r chi.Router) {
		authenticated(r)

		r.Post("/create", postHandler.Create)
		r.Get("/feed", postHandler.Feed)
		r.Put("/update/{id}", postHandler.Update)
		r.Delete("/delete/{id}", postHandler.Delete)
		r.Get("/{id}", postHandler.Get)
		r.Put("/{id}/like", postHandler.Like)
		r.Put("/{id}/unlike", postHandler.Unlike)
		r.Post("/{id}/comment", postHandler.AddComment)
		r.Delete("/{id}/comment/{commentId}", postHandler.DeleteComment)
	})

	r.Route("/restaurants", func(r chi.Router) {
		authenticated(r)

		r.Post("/create", restaurantHandler.Create)
		r.Get("/search", restaurantHandler.Search)
		r.Get("/favorites", restaurantHandler.ListFavorites)
		r.Put("/favorites/{id}", restaurantHandler.AddFavorite)
		r.Delete("/favorites/{id}", restaurantHandler.RemoveFavorite)
		r.Get("/{restaurantId}", restaurantHandler.Get)
		r.Post("/{restaurantId}/review", restaurantHandler.CreateReview)
		r.Delete("/{restaurantId}/review/{reviewId}", restaurantHandler.DeleteReview)
	})

	return r
}
