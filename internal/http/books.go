package http

import (
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/openshelf/shelfsync/internal/details"
	"github.com/openshelf/shelfsync/internal/entities"
	"github.com/openshelf/shelfsync/internal/query"
)

type BooksController struct {
	engine  *query.Engine
	details *details.Service
}

func NewBooksController(engine *query.Engine, detailService *details.Service) *BooksController {
	return &BooksController{
		engine:  engine,
		details: detailService,
	}
}

// GetBooks returns the current view. Query parameters update the session
// criteria before the view is read, so a plain GET with no parameters
// re-reads the last configured list.
// GET /api/books
func (controller *BooksController) GetBooks(c *gin.Context) {
	if criteria, changed := criteriaFromQuery(c, controller.engine.Criteria()); changed {
		controller.engine.SetCriteria(criteria)
	}

	state := controller.engine.Current()
	c.IndentedJSON(http.StatusOK, gin.H{
		"status":  state.Status,
		"books":   state.Books,
		"count":   len(state.Books),
		"error":   state.Error,
		"offline": state.IsOffline(),
	})
}

// WatchBooks streams view states over server-sent events until the client
// disconnects.
// GET /api/books/watch
func (controller *BooksController) WatchBooks(c *gin.Context) {
	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	states := controller.engine.Watch(c.Request.Context())
	c.Stream(func(w io.Writer) bool {
		state, ok := <-states
		if !ok {
			return false
		}
		c.SSEvent("view", state)
		return true
	})
}

// GetBook returns one cached book, enriching its details on first access.
// GET /api/books/:key
func (controller *BooksController) GetBook(c *gin.Context) {
	key := c.Param("key")
	if key == "" {
		c.IndentedJSON(http.StatusBadRequest, gin.H{"error": "book key is required"})
		return
	}

	book, err := controller.details.EnrichBook(c.Request.Context(), key)
	if err != nil {
		c.IndentedJSON(http.StatusNotFound, gin.H{"error": "book not found"})
		return
	}

	c.IndentedJSON(http.StatusOK, book)
}

// criteriaFromQuery overlays any present query parameters onto the session
// criteria. Absent parameters leave the current value untouched.
func criteriaFromQuery(c *gin.Context, current query.Criteria) (query.Criteria, bool) {
	changed := false

	if statuses, ok := c.GetQueryArray("status"); ok {
		var parsed []entities.ReadingStatus
		for _, s := range statuses {
			status := entities.ReadingStatus(s)
			if status.Valid() {
				parsed = append(parsed, status)
			}
		}
		current.Filter.ReadingStatuses = parsed
		changed = true
	}

	if search, ok := c.GetQuery("search"); ok {
		current.Filter.SearchQuery = search
		changed = true
	}

	if fav, ok := c.GetQuery("favorite"); ok {
		value := fav == "true" || fav == "1"
		current.Filter.IsFavorite = &value
		changed = true
	}

	if authors, ok := c.GetQuery("authors"); ok {
		current.Filter.Authors = splitParam(authors)
		changed = true
	}

	if subjects, ok := c.GetQuery("subjects"); ok {
		current.Filter.Subjects = splitParam(subjects)
		changed = true
	}

	if from, ok := c.GetQuery("year_from"); ok {
		if year, err := strconv.Atoi(from); err == nil {
			current.Filter.YearFrom = &year
			changed = true
		}
	}

	if to, ok := c.GetQuery("year_to"); ok {
		if year, err := strconv.Atoi(to); err == nil {
			current.Filter.YearTo = &year
			changed = true
		}
	}

	if sort, ok := c.GetQuery("sort"); ok {
		option := query.SortOption(sort)
		if option.Valid() {
			current.Sort = option
			changed = true
		}
	}

	return current, changed
}

func splitParam(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
