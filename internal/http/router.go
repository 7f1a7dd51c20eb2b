package http

import (
	"github.com/geocoder89/ratingportal/internal/auth"
	"github.com/geocoder89/ratingportal/internal/cache"
	"github.com/geocoder89/ratingportal/internal/config"
	"github.com/geocoder89/ratingportal/internal/domain/store"
	"github.com/geocoder89/ratingportal/internal/domain/user"
	"github.com/geocoder89/ratingportal/internal/http/handlers"
	"github.com/geocoder89/ratingportal/internal/http/middlewares"
	"github.com/geocoder89/ratingportal/internal/observability"
	"github.com/geocoder89/ratingportal/internal/ratings"
	"github.com/geocoder89/ratingportal/internal/security"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

const serviceName = "ratingportal"

// Role tables are fixed at startup; no route computes its allowed set per request.
var (
	adminOnly = user.NewRoleSet(user.RoleAdmin)
	userOnly  = user.NewRoleSet(user.RoleUser)
	ownerOnly = user.NewRoleSet(user.RoleOwner)
)

type UsersRepo interface {
	handlers.UserStore
	handlers.AdminUsers
	middlewares.IdentityLoader
}

type StoresRepo interface {
	handlers.AdminStores
	handlers.OwnerStores
}

type RatingsRepo interface {
	ratings.Repository
	handlers.Counter
	handlers.OwnRatings
	handlers.RaterLister
}

type Deps struct {
	Config  config.Config
	Users   UsersRepo
	Stores  StoresRepo
	Ratings RatingsRepo
	Hasher  *security.Hasher
	Tokens  *auth.Manager
	Prom    *observability.Prom

	// Gatherer backs /metrics. Defaults to the global registry.
	Gatherer prometheus.Gatherer
	// Redis, when set, backs the rate limiters so limits hold across replicas.
	Redis redis.Cmdable
	// Ready lists the dependencies /readyz pings.
	Ready map[string]handlers.Pinger
}

func NewRouter(d Deps) (*gin.Engine, error) {
	if d.Config.Env == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := handlers.RegisterValidators(); err != nil {
		return nil, err
	}

	cfg := d.Config
	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware(serviceName))
	r.Use(middlewares.RequestID())
	r.Use(middlewares.RequestLogger())
	r.Use(d.Prom.GinHandleMiddleware())
	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.CORSMiddleware(cfg.CORSAllowedOrigins))
	if cfg.MaxBodyBytes > 0 {
		r.Use(middlewares.MaxBodyBytes(cfg.MaxBodyBytes))
	}
	r.Use(middlewares.RequireJSON())

	gatherer := d.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	health := handlers.NewHealthHandler(d.Ready)
	r.GET("/healthz", health.Healthz)
	r.GET("/readyz", health.Readyz)

	agg := ratings.NewAggregator(d.Ratings, d.Prom)

	authH := handlers.NewAuthHandler(d.Users, d.Hasher, d.Tokens, d.Prom)
	adminH := handlers.NewAdminHandler(d.Users, d.Stores, d.Ratings, agg, d.Hasher)
	userH := handlers.NewUserHandler(d.Stores, d.Ratings, agg)
	ownerH := handlers.NewOwnerHandler(d.Stores, agg, d.Ratings, cache.New[int64, store.Store](cfg.OwnerStoreCacheTTL))

	requireAuth := middlewares.NewAuthMiddleware(d.Tokens, d.Users).RequireAuth()

	loginLimit := noLimit
	if cfg.LoginRateLimit > 0 {
		loginLimit = middlewares.RateLimit("login", d.limiter(cfg.LoginRateLimit), middlewares.KeyByIP, d.Prom)
	}
	registerLimit := noLimit
	if cfg.RegisterRateLimit > 0 {
		registerLimit = middlewares.RateLimit("register", d.limiter(cfg.RegisterRateLimit), middlewares.KeyByIP, d.Prom)
	}
	apiLimit := noLimit
	if cfg.APIRateLimit > 0 {
		apiLimit = middlewares.RateLimit("api", d.limiter(cfg.APIRateLimit), middlewares.KeyByUserOrIP, d.Prom)
	}

	api := r.Group("/api")

	authGroup := api.Group("/auth")
	{
		authGroup.POST("/register", registerLimit, authH.Register)
		authGroup.POST("/login", loginLimit, authH.Login)
		authGroup.POST("/change-password", requireAuth, apiLimit, authH.ChangePassword)
	}

	admin := api.Group("/admin", requireAuth, apiLimit, middlewares.RequireRoles(adminOnly))
	{
		admin.GET("/dashboard-stats", adminH.DashboardStats)
		admin.GET("/stores", adminH.ListStores)
		admin.POST("/stores", adminH.CreateStore)
		admin.GET("/stores/:id/rating", adminH.StoreRating)
		admin.GET("/users", adminH.ListUsers)
		admin.POST("/users", adminH.CreateUser)
	}

	userGroup := api.Group("/user", requireAuth, apiLimit, middlewares.RequireRoles(userOnly))
	{
		userGroup.GET("/stores", userH.ListStores)
		userGroup.POST("/ratings", userH.SubmitRating)
	}

	owner := api.Group("/owner", requireAuth, apiLimit, middlewares.RequireRoles(ownerOnly))
	{
		owner.GET("/stats", ownerH.Stats)
		owner.GET("/rating-users", ownerH.RatingUsers)
	}

	return r, nil
}

// limiter counts in Redis when configured, dropping to per-process counters
// while Redis is unreachable.
func (d Deps) limiter(limit int) middlewares.Limiter {
	local := middlewares.NewRateLimiter(limit, d.Config.RateLimitWindow)
	if d.Redis == nil {
		return local
	}

	shared := middlewares.NewRedisLimiter(d.Redis, limit, d.Config.RateLimitWindow)
	return middlewares.NewBreakerLimiter(shared, local, middlewares.BreakerConfig{})
}

func noLimit(c *gin.Context) { c.Next() }
