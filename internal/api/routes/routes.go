// Package routes defines the HTTP routes for the entity store service.
package routes

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/unifiedui/entity-store/internal/api/handlers"
	"github.com/unifiedui/entity-store/internal/api/middleware"
)

// BasePath is the prefix of every API route.
const BasePath = "/api/v1/entity-store"

// Config holds the dependencies for setting up routes.
type Config struct {
	HealthHandler   *handlers.HealthHandler
	EntitiesHandler *handlers.EntitiesHandler
	// EnableDocs serves the OpenAPI UI under /docs.
	EnableDocs bool
}

// Setup configures all routes on the Gin engine.
func Setup(r *gin.Engine, cfg *Config) {
	r.NoRoute(middleware.NotFound())
	r.NoMethod(middleware.MethodNotAllowed())
	r.HandleMethodNotAllowed = true

	if cfg.EnableDocs {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	v1 := r.Group(BasePath)
	{
		v1.GET("/health", cfg.HealthHandler.Health)
		v1.GET("/ready", cfg.HealthHandler.Ready)
		v1.GET("/live", cfg.HealthHandler.Live)

		entities := v1.Group("/entities/:name")
		{
			entities.POST("", cfg.EntitiesHandler.Save)

			// Generic query operations
			entities.POST("/load", cfg.EntitiesHandler.LoadByQuery)
			entities.POST("/list", cfg.EntitiesHandler.List)
			entities.POST("/remove", cfg.EntitiesHandler.RemoveByQuery)

			// By id
			entities.GET("/:id", cfg.EntitiesHandler.Load)
			entities.DELETE("/:id", cfg.EntitiesHandler.Remove)
		}
	}
}

// SetupWithMiddleware sets up routes with common middleware.
func SetupWithMiddleware(r *gin.Engine, cfg *Config, loggingMw *middleware.LoggingMiddleware, errorMw *middleware.ErrorMiddleware) {
	r.Use(loggingMw.RequestID())
	r.Use(loggingMw.Logger())
	r.Use(errorMw.Recovery())

	Setup(r, cfg)
}
