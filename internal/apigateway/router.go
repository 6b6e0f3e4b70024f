package apigateway

import (
	"github.com/gin-gonic/gin"

	"voice-agent-eval-platform/backend/internal/configmanagement"
	"voice-agent-eval-platform/backend/internal/runmanagement"
)

// Handlers collects the handler sets the router mounts. Everything is built
// in cmd/server and injected here; the gateway owns only the route table.
type Handlers struct {
	Scenarios *configmanagement.ScenarioHandlers
	Providers *configmanagement.ProviderHandlers
	Runs      *runmanagement.Handlers
}

// SetupRouter initializes the main Gin router for the API gateway.
func SetupRouter(h Handlers) *gin.Engine {
	router := gin.Default()

	api := router.Group("/api")
	{
		// Scenario Management Routes
		scenarioRoutes := api.Group("/scenarios")
		{
			scenarioRoutes.POST("", h.Scenarios.Create)
			scenarioRoutes.GET("", h.Scenarios.List)
			scenarioRoutes.GET("/:id", h.Scenarios.Get)
			scenarioRoutes.PUT("/:id", h.Scenarios.Update)
			scenarioRoutes.DELETE("/:id", h.Scenarios.Delete)
		}

		// Provider Configuration Management Routes
		providerRoutes := api.Group("/providers")
		{
			providerRoutes.POST("", h.Providers.Create)
			providerRoutes.GET("", h.Providers.List)
			providerRoutes.GET("/:id", h.Providers.Get)
			providerRoutes.PUT("/:id", h.Providers.Update)
			providerRoutes.DELETE("/:id", h.Providers.Delete)
		}

		// Evaluation Run Routes
		runRoutes := api.Group("/runs")
		{
			runRoutes.POST("", h.Runs.CreateRun)
			runRoutes.GET("", h.Runs.ListRuns)
			runRoutes.GET("/:id", h.Runs.GetRun)
			runRoutes.POST("/:id/execute", h.Runs.ExecuteRun)
			runRoutes.GET("/:id/results", h.Runs.GetRunResults)
		}
	}

	return router
}
