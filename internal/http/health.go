package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/openshelf/shelfsync/internal/database"
)

type HealthResponse struct {
	Status      string            `json:"status"`
	Time        string            `json:"time"`
	Version     string            `json:"version,omitempty"`
	CachedBooks int64             `json:"cached_books"`
	Checks      map[string]string `json:"checks"`
}

// BookCounter is the slice of the books repository the health check needs.
type BookCounter interface {
	Count() (int64, error)
}

type HealthController struct {
	db      *database.Database
	counter BookCounter
	version string
}

func NewHealthController(db *database.Database, counter BookCounter, version string) *HealthController {
	return &HealthController{
		db:      db,
		counter: counter,
		version: version,
	}
}

func (h *HealthController) Status(c *gin.Context) {
	checks := make(map[string]string)
	status := "healthy"

	if h.db != nil {
		sqlDB, err := h.db.DB.DB()
		if err != nil {
			checks["database"] = "error: " + err.Error()
			status = "unhealthy"
		} else if err := sqlDB.Ping(); err != nil {
			checks["database"] = "error: " + err.Error()
			status = "unhealthy"
		} else {
			checks["database"] = "ok"
		}
	} else {
		checks["database"] = "not configured"
	}

	var cached int64
	if h.counter != nil {
		if count, err := h.counter.Count(); err == nil {
			cached = count
		}
	}

	health := HealthResponse{
		Status:      status,
		Time:        time.Now().Format(time.RFC3339),
		Version:     h.version,
		CachedBooks: cached,
		Checks:      checks,
	}

	statusCode := http.StatusOK
	if status != "healthy" {
		statusCode = http.StatusServiceUnavailable
	}

	c.IndentedJSON(statusCode, health)
}
