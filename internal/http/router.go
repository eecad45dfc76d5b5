// Package http exposes the cached shelves, favourites and settings over a
// JSON API.
package http

import (
	"github.com/gin-gonic/gin"
)

// NewRouter creates and configures the HTTP router with all endpoints.
func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	health := NewHealthController(cfg.Database, cfg.BookStore, cfg.Version)
	booksController := NewBooksController(cfg.Engine, cfg.Details)
	favouritesController := NewFavouritesController(cfg.Favourites, cfg.FavouriteStore)
	refreshController := NewRefreshController(cfg.Refresher, cfg.Settings)
	settingsController := NewSettingsController(cfg.Settings, cfg.AutoSync)

	// Health endpoints
	router.GET("/health", health.Status)
	router.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"message": "pong",
		})
	})

	// Book list endpoints
	router.GET("/api/books", booksController.GetBooks)
	router.GET("/api/books/watch", booksController.WatchBooks)
	router.GET("/api/books/:key", booksController.GetBook)

	// Cover endpoint
	if cfg.CoverCache != nil {
		coversController := NewCoversController(cfg.CoverCache, cfg.BookStore)
		router.GET("/api/books/:key/cover", coversController.GetCover)
	}

	// Favourites endpoints
	router.GET("/api/favourites", favouritesController.GetFavourites)
	router.GET("/api/favourites/watch", favouritesController.WatchFavourites)
	router.POST("/api/books/:key/favourite", favouritesController.ToggleFavourite)
	router.DELETE("/api/favourites", favouritesController.ClearFavourites)

	// Refresh endpoints
	router.POST("/api/refresh", refreshController.TriggerRefresh)
	router.GET("/api/refresh/status", refreshController.GetRefreshStatus)
	router.DELETE("/api/refresh/error", refreshController.AcknowledgeError)

	// Settings endpoints
	router.GET("/api/settings", settingsController.GetSettings)
	router.PATCH("/api/settings", settingsController.UpdateSettings)

	return router
}
