// Package api exposes the generation service over HTTP.
package api

import (
	"github.com/gin-gonic/gin"

	"github.com/alexkrasovskyiwork-svg/Gigakavun/internal/api/handler"
	"github.com/alexkrasovskyiwork-svg/Gigakavun/internal/api/middleware"
	"github.com/alexkrasovskyiwork-svg/Gigakavun/internal/service"
)

// RouterDeps are the services served by the router. Collections and Health may
// be nil.
type RouterDeps struct {
	Projects    *service.ProjectService
	Niches      *service.NicheService
	Collections handler.CollectionRepository
	Health      *handler.HealthHandler
	CORS        middleware.CORSConfig
}

// SetupRouter configures the Gin router with all routes
func SetupRouter(deps RouterDeps, mode string) *gin.Engine {
	switch mode {
	case "release":
		gin.SetMode(gin.ReleaseMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.DebugMode)
	}

	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.CORS(deps.CORS))

	healthHandler := deps.Health
	if healthHandler == nil {
		healthHandler = handler.NewHealthHandler(nil, false, false)
	}
	projectHandler := handler.NewProjectHandler(deps.Projects)
	nicheHandler := handler.NewNicheHandler(deps.Niches)

	r.GET("/health", healthHandler.Health)

	if deps.Collections != nil {
		collectionHandler := handler.NewCollectionHandler(deps.Collections)
		r.GET("/api/collections/:name", collectionHandler.Get)
		r.PUT("/api/collections/:name", collectionHandler.Put)
	}

	v1 := r.Group("/api/v1")
	{
		// Batches
		v1.POST("/batches", projectHandler.CreateBatch)
		v1.POST("/batches/:batchId/structure", projectHandler.GenerateStructure)

		// Projects
		v1.GET("/projects", projectHandler.ListProjects)
		v1.POST("/projects/import", projectHandler.ImportProject)
		v1.GET("/projects/:id", projectHandler.GetProject)
		v1.DELETE("/projects/:id", projectHandler.DeleteProject)
		v1.POST("/projects/:id/script", projectHandler.GenerateScript)
		v1.POST("/projects/:id/script/regenerate", projectHandler.RegenerateScript)
		v1.POST("/projects/:id/sections/:index/regenerate", projectHandler.RegenerateSection)
		v1.POST("/projects/:id/sections/:index/scenes", projectHandler.Scenes)
		v1.POST("/projects/:id/refine", projectHandler.Refine)
		v1.POST("/projects/:id/images", projectHandler.GenerateImages)
		v1.POST("/projects/:id/image-prompt", projectHandler.ImagePrompt)
		v1.GET("/projects/:id/images/:index", projectHandler.Image)
		v1.POST("/projects/:id/complete", projectHandler.ToggleComplete)
		v1.PUT("/projects/:id/release-date", projectHandler.SetReleaseDate)
		v1.GET("/projects/:id/export", projectHandler.Export)
		v1.POST("/scripts", projectHandler.GenerateScripts)

		// Niches
		v1.GET("/niches", nicheHandler.List)
		v1.PUT("/niches", nicheHandler.ReplaceAll)
		v1.POST("/niches/analyze", nicheHandler.Analyze)
		v1.POST("/niches/analyze-titles", nicheHandler.AnalyzeTitles)
		v1.GET("/niches/:id", nicheHandler.Get)
		v1.PUT("/niches/:id", nicheHandler.Put)
		v1.DELETE("/niches/:id", nicheHandler.Delete)
		v1.POST("/niches/:id/refine-prompt", nicheHandler.RefinePrompt)

		// Session
		v1.GET("/cost", projectHandler.Cost)
		v1.DELETE("/cost", projectHandler.ResetCost)
		v1.GET("/notices", projectHandler.Notices)
	}

	return r
}
