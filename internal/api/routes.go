package api

import (
	"github.com/gin-gonic/gin"
)

// SetupRoutes sets up the API routes
func SetupRoutes(handler *Handler) *gin.Engine {
	router := gin.New()

	// Middleware
	router.Use(Recovery())
	router.Use(CORS())
	router.Use(gin.Logger())

	// Health check
	router.GET("/health", handler.HealthCheck)

	// API v1
	v1 := router.Group("/api/v1")
	{
		orgs := v1.Group("/orgs/:org")
		{
			orgs.GET("/detail", handler.GetOrgDetail)
			orgs.GET("/members", handler.GetMembers)
			orgs.GET("/repositories", handler.GetRepositories)
			orgs.GET("/teams", handler.GetTeams)
			orgs.GET("/externalrepositories", handler.GetExternalRepositories)
			orgs.GET("/createdreposbymembers", handler.GetCreatedReposByMembers)
		}
	}

	return router
}
