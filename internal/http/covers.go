package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/openshelf/shelfsync/internal/covers"
	"github.com/openshelf/shelfsync/internal/database/books"
)

// CoversController serves locally cached cover images.
type CoversController struct {
	cache *covers.Cache
	store *books.Repository
}

func NewCoversController(cache *covers.Cache, store *books.Repository) *CoversController {
	return &CoversController{
		cache: cache,
		store: store,
	}
}

// GetCover serves the cover image of a cached book, fetching and caching
// it on first access. Falls back to a redirect when the local fetch fails.
// GET /api/books/:key/cover
func (cc *CoversController) GetCover(c *gin.Context) {
	key := c.Param("key")
	if key == "" {
		c.Status(http.StatusBadRequest)
		return
	}

	book, err := cc.store.GetByKey(key)
	if err != nil {
		c.Status(http.StatusNotFound)
		return
	}

	if book.CoverURL == "" {
		c.Status(http.StatusNotFound)
		return
	}

	cachePath, err := cc.cache.GetCover(c.Request.Context(), key, book.CoverURL)
	if err != nil || cachePath == "" {
		c.Redirect(http.StatusTemporaryRedirect, book.CoverURL)
		return
	}

	c.File(cachePath)
}
