package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/silai-boutique/api/internal/cache"
	"github.com/silai-boutique/api/internal/config"
	"github.com/silai-boutique/api/internal/database"
	"github.com/silai-boutique/api/internal/enum"
	"github.com/silai-boutique/api/internal/handler"
	mw "github.com/silai-boutique/api/internal/middleware"
	"github.com/silai-boutique/api/internal/service"
	"github.com/silai-boutique/api/internal/storage"
	"github.com/silai-boutique/api/internal/ws"
	"go.uber.org/zap"
)

// Deps carries the process-wide collaborators the routes are built from.
// Cache and Images are optional.
type Deps struct {
	Config  *config.Config
	Pool    *pgxpool.Pool
	Queries *database.Queries
	Hub     *ws.Hub
	Cache   cache.Cache
	Images  storage.FabricImageStore
	Log     *zap.Logger
}

// New creates a Chi router with all application routes wired up.
// Applies authentication, business scoping, and role-based middleware as needed.
func New(d Deps) chi.Router {
	cfg, queries, pool, log := d.Config, d.Queries, d.Pool, d.Log
	if d.Cache == nil {
		d.Cache = cache.Nop{}
	}

	r := chi.NewRouter()

	// Standard middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(mw.RequestLogger(log))
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300, // 5 minutes
	}))

	// Public routes
	healthHandler := handler.NewHealthHandler(pool, log)
	r.Get("/health", healthHandler.Health)
	r.Handle("/metrics", promhttp.Handler())

	// WebSocket route (handles auth internally via query param)
	r.Method(http.MethodGet, "/ws/orders", ws.NewEndpoint(d.Hub, cfg.JWTSecret, cfg.CORSOrigins))

	r.Group(func(r chi.Router) {
		r.Use(httprate.LimitByIP(cfg.RateLimitPerMinute, time.Minute))
		r.Use(middleware.Timeout(cfg.WriteTimeout))

		// Auth routes (public)
		authHandler := handler.NewAuthHandler(queries, pool,
			func(db database.DBTX) handler.RegisterStore { return database.New(db) },
			handler.TokenConfig{
				Secret:     cfg.JWTSecret,
				AccessTTL:  cfg.AccessTokenTTL,
				RefreshTTL: cfg.RefreshTokenTTL,
			}, log)
		authHandler.RegisterRoutes(r)

		// Protected routes (require authentication)
		r.Group(func(r chi.Router) {
			r.Use(mw.Authenticate(cfg.JWTSecret))

			// Shared garment catalog (writes are ADMIN-only inside the handler)
			garmentHandler := handler.NewGarmentTypeHandler(queries, log)
			r.Route("/garment-types", garmentHandler.RegisterRoutes)
			r.Get("/garment-templates", garmentHandler.Templates)

			// Business-scoped routes
			r.Group(func(r chi.Router) {
				r.Use(mw.RequireBusiness)
				registerBusinessRoutes(r, d)
			})
		})
	})

	log.Info("router initialized")
	return r
}

func registerBusinessRoutes(r chi.Router, d Deps) {
	cfg, queries, pool, log := d.Config, d.Queries, d.Pool, d.Log

	customerService := service.NewCustomerService(queries)
	orderService := service.NewOrderService(pool, func(db database.DBTX) service.OrderStore {
		return database.New(db)
	})
	paymentService := service.NewPaymentService(pool, func(db database.DBTX) service.PaymentStore {
		return database.New(db)
	}, queries)
	measurementService := service.NewMeasurementService(pool, func(db database.DBTX) service.MeasurementStore {
		return database.New(db)
	}, queries)

	// Users (OWNER only)
	r.Group(func(r chi.Router) {
		r.Use(mw.RequireRole(enum.UserRoleOwner))
		userHandler := handler.NewUserHandler(queries, log)
		r.Route("/users", userHandler.RegisterRoutes)
	})

	customerHandler := handler.NewCustomerHandler(customerService, queries, paymentService, log)
	r.Route("/customers", customerHandler.RegisterRoutes)

	measurementHandler := handler.NewMeasurementHandler(measurementService, queries, log)
	r.Route("/measurements", measurementHandler.RegisterRoutes)

	sessionHandler := handler.NewSessionHandler(measurementService, d.Images, log)
	r.Route("/measurement-sessions", sessionHandler.RegisterRoutes)

	orderHandler := handler.NewOrderHandler(orderService, queries, d.Hub, log)
	r.Route("/orders", orderHandler.RegisterRoutes)

	paymentHandler := handler.NewPaymentHandler(paymentService, queries, d.Hub, log)
	r.Route("/payments", paymentHandler.RegisterRoutes)

	analyticsHandler := handler.NewAnalyticsHandler(queries, d.Cache, cfg.AnalyticsCacheTTL, log)
	r.Route("/analytics", analyticsHandler.RegisterRoutes)

	searchHandler := handler.NewSearchHandler(queries, log)
	r.Get("/search", searchHandler.Search)

	// Exports (OWNER, MANAGER)
	r.Group(func(r chi.Router) {
		r.Use(mw.RequireRole(enum.UserRoleOwner, enum.UserRoleManager))
		exportHandler := handler.NewExportHandler(queries, log)
		r.Route("/exports", exportHandler.RegisterRoutes)
	})
}
