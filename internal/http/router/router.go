package router

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/bygghuset-as/procurement-api/internal/config"
	"github.com/bygghuset-as/procurement-api/internal/http/handler"
	"github.com/bygghuset-as/procurement-api/internal/http/middleware"
	"github.com/bygghuset-as/procurement-api/internal/remote"
)

type Router struct {
	cfg                  *config.Config
	logger               *zap.Logger
	cacheDB              *gorm.DB
	remoteClient         *remote.Client
	corporationFilter    *middleware.CorporationFilterMiddleware
	rateLimiter          *middleware.RateLimiter
	purchaseOrderHandler *handler.PurchaseOrderHandler
	changeOrderHandler   *handler.ChangeOrderHandler
}

func NewRouter(
	cfg *config.Config,
	logger *zap.Logger,
	cacheDB *gorm.DB,
	remoteClient *remote.Client,
	corporationFilter *middleware.CorporationFilterMiddleware,
	rateLimiter *middleware.RateLimiter,
	purchaseOrderHandler *handler.PurchaseOrderHandler,
	changeOrderHandler *handler.ChangeOrderHandler,
) *Router {
	return &Router{
		cfg:                  cfg,
		logger:               logger,
		cacheDB:              cacheDB,
		remoteClient:         remoteClient,
		corporationFilter:    corporationFilter,
		rateLimiter:          rateLimiter,
		purchaseOrderHandler: purchaseOrderHandler,
		changeOrderHandler:   changeOrderHandler,
	}
}

func (rt *Router) Setup() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Recovery(rt.logger))
	r.Use(middleware.Logging(rt.logger))
	r.Use(middleware.SecurityHeaders(&rt.cfg.Security))
	r.Use(middleware.CORS(&rt.cfg.CORS, rt.cfg.App.Environment, rt.logger))
	r.Use(rt.rateLimiter.LimitByIP)

	// Health check (basic liveness probe)
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Cache database health check
	r.Get("/health/cache", func(w http.ResponseWriter, r *http.Request) {
		status := map[string]interface{}{"status": "healthy", "service": "cache"}
		code := http.StatusOK

		sqlDB, err := rt.cacheDB.DB()
		if err == nil {
			err = sqlDB.Ping()
		}
		if err != nil {
			rt.logger.Error("cache health check failed", zap.Error(err))
			status["status"] = "unhealthy"
			status["error"] = err.Error()
			code = http.StatusServiceUnavailable
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		json.NewEncoder(w).Encode(status)
	})

	// Remote document API health check
	r.Get("/health/remote", func(w http.ResponseWriter, r *http.Request) {
		status := map[string]interface{}{"status": "healthy", "service": "remote"}
		code := http.StatusOK

		if err := rt.remoteClient.Health(r.Context()); err != nil {
			rt.logger.Error("remote health check failed", zap.Error(err))
			status["status"] = "unhealthy"
			status["error"] = err.Error()
			code = http.StatusServiceUnavailable
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		json.NewEncoder(w).Encode(status)
	})

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(rt.corporationFilter.Filter)

		// Purchase orders
		r.Route("/purchase-orders", func(r chi.Router) {
			r.Get("/", rt.purchaseOrderHandler.List)
			r.Post("/", rt.purchaseOrderHandler.Create)
			r.Post("/import-estimate-items", rt.purchaseOrderHandler.ImportEstimateItems)
			r.Get("/{id}", rt.purchaseOrderHandler.GetByID)
			r.Put("/{id}", rt.purchaseOrderHandler.Update)
			r.Delete("/{id}", rt.purchaseOrderHandler.Delete)
			r.Post("/{id}/raise-change-order", rt.purchaseOrderHandler.RaiseChangeOrder)
		})

		// Change orders
		r.Route("/change-orders", func(r chi.Router) {
			r.Get("/", rt.changeOrderHandler.List)
			r.Post("/", rt.changeOrderHandler.Create)
			r.Get("/{id}", rt.changeOrderHandler.GetByID)
			r.Put("/{id}", rt.changeOrderHandler.Update)
			r.Delete("/{id}", rt.changeOrderHandler.Delete)
		})
	})

	return r
}
