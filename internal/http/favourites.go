package http

import (
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	dbfavourites "github.com/openshelf/shelfsync/internal/database/favourites"
	"github.com/openshelf/shelfsync/internal/favourites"
)

type FavouritesController struct {
	coordinator *favourites.Coordinator
	store       *dbfavourites.Repository
}

func NewFavouritesController(coordinator *favourites.Coordinator, store *dbfavourites.Repository) *FavouritesController {
	return &FavouritesController{
		coordinator: coordinator,
		store:       store,
	}
}

// GetFavourites lists favourited books, most recently favourited first.
// GET /api/favourites
func (fc *FavouritesController) GetFavourites(c *gin.Context) {
	if limitParam, ok := c.GetQuery("limit"); ok {
		limit, err := strconv.Atoi(limitParam)
		if err != nil || limit < 1 {
			c.IndentedJSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		books, err := fc.coordinator.RecentFavourites(limit)
		if err != nil {
			c.IndentedJSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.IndentedJSON(http.StatusOK, gin.H{"books": books, "count": len(books)})
		return
	}

	books, err := fc.coordinator.Favourites()
	if err != nil {
		c.IndentedJSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.IndentedJSON(http.StatusOK, gin.H{"books": books, "count": len(books)})
}

// WatchFavourites streams the joined favourites list over server-sent
// events whenever it changes.
// GET /api/favourites/watch
func (fc *FavouritesController) WatchFavourites(c *gin.Context) {
	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	snapshots := fc.store.WatchAllJoined(c.Request.Context())
	c.Stream(func(w io.Writer) bool {
		snap, ok := <-snapshots
		if !ok {
			return false
		}
		if snap.Err != nil {
			c.SSEvent("error", snap.Err.Error())
			return true
		}
		c.SSEvent("favourites", snap.Books)
		return true
	})
}

// ToggleFavourite flips the favourite state of a book.
// POST /api/books/:key/favourite
func (fc *FavouritesController) ToggleFavourite(c *gin.Context) {
	key := c.Param("key")
	if key == "" {
		c.IndentedJSON(http.StatusBadRequest, gin.H{"error": "book key is required"})
		return
	}

	if err := fc.coordinator.ToggleFavourite(c.Request.Context(), key); err != nil {
		c.IndentedJSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.IndentedJSON(http.StatusOK, gin.H{
		"book_key":    key,
		"is_favorite": fc.coordinator.IsFavourite(key),
	})
}

// ClearFavourites removes every favourite.
// DELETE /api/favourites
func (fc *FavouritesController) ClearFavourites(c *gin.Context) {
	if err := fc.coordinator.ClearAll(); err != nil {
		c.IndentedJSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.IndentedJSON(http.StatusOK, gin.H{"message": "favourites cleared"})
}
