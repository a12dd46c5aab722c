package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/karvek/albion-scalper/internal/api/handlers"
	"github.com/karvek/albion-scalper/internal/config"
	"github.com/karvek/albion-scalper/internal/items"
)

// Version is reported by the health endpoint.
const Version = "1.0.0"

// Dependencies carries everything the route tree needs. Catalog, Cache
// and Auth may be nil; the affected endpoints then degrade or report
// unavailable instead of panicking.
type Dependencies struct {
	Config  *config.Config
	Scanner handlers.ScanService
	Catalog *items.Catalog
	Cache   handlers.CacheStore
	Auth    handlers.AuthService
}

// HealthResponse is the health endpoint's body.
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Version   string    `json:"version"`
	Services  Services  `json:"services"`
}

// Services reports per-dependency health.
type Services struct {
	Cache   string `json:"cache"`
	Catalog string `json:"catalog"`
}

// SetupRoutes wires all endpoints onto the router.
func SetupRoutes(router *gin.Engine, deps Dependencies) {
	router.GET("/health", healthCheck(deps))

	var resolver handlers.ItemResolver
	var expander handlers.CategoryExpander
	if deps.Catalog != nil {
		resolver = deps.Catalog
		expander = deps.Catalog
	}

	scanHandler := handlers.NewScanHandler(deps.Scanner, resolver, deps.Config.Analysis, deps.Config.Locations)
	cacheHandler := handlers.NewCacheHandler(deps.Cache)
	catalogHandler := handlers.NewCatalogHandler(expander, deps.Config.Categories)

	v1 := router.Group("/api/v1")
	{
		v1.POST("/scan", scanHandler.Scan)
		v1.GET("/opportunities", scanHandler.Opportunities)

		categories := v1.Group("/categories")
		{
			categories.GET("", catalogHandler.ListCategories)
			categories.GET("/:name/items", catalogHandler.CategoryItems)
		}

		cacheRoutes := v1.Group("/cache")
		{
			cacheRoutes.DELETE("", cacheHandler.Clear)
			cacheRoutes.GET("/stats", cacheHandler.Stats)
		}

		if deps.Auth != nil {
			userHandler := handlers.NewUserHandler(deps.Auth)
			users := v1.Group("/users")
			{
				users.POST("/register", userHandler.Register)
				users.GET("/verify", userHandler.Verify)
				users.POST("/login", userHandler.Login)
			}
		}
	}
}

func healthCheck(deps Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		response := HealthResponse{
			Status:    "ok",
			Timestamp: time.Now().UTC(),
			Version:   Version,
			Services: Services{
				Cache:   "ok",
				Catalog: "ok",
			},
		}

		if deps.Cache == nil {
			response.Services.Cache = "disabled"
		}
		if deps.Catalog == nil {
			response.Services.Catalog = "unavailable"
			response.Status = "degraded"
		}

		c.JSON(http.StatusOK, response)
	}
}
