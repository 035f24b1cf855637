package http

import (
	"github.com/gofiber/fiber/v2"
)

// SetupRoutes configures all HTTP routes
func SetupRoutes(app *fiber.App, handler *Handler) {
	// Health check
	app.Get("/health", handler.HealthCheck)

	// API v1 routes
	api := app.Group("/api/v1")
	{
		// One-shot aggregation
		api.Get("/mobility", handler.GetMobility)
		api.Get("/weather", handler.GetWeather)
		api.Get("/icons", handler.GetIcon)
		api.Get("/deeplink", handler.CheckDeeplink)

		// Stored snapshots
		api.Get("/history/weather", handler.GetHistoricalWeather)
		api.Get("/history/mobility/:category", handler.GetCategoryHistory)

		// Live screens
		screens := api.Group("/screens")
		screens.Post("/", handler.CreateScreen)
		screens.Get("/:id", handler.GetScreen)
		screens.Put("/:id/location", handler.UpdateScreenLocation)
		screens.Delete("/:id", handler.DeleteScreen)
		screens.Get("/:id/events", handler.StreamScreen)
	}
}
