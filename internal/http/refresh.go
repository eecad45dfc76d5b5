package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/openshelf/shelfsync/internal/refresh"
	"github.com/openshelf/shelfsync/internal/settingsstore"
)

type RefreshController struct {
	coordinator *refresh.Coordinator
	settings    *settingsstore.SettingsStore
}

func NewRefreshController(coordinator *refresh.Coordinator, settings *settingsstore.SettingsStore) *RefreshController {
	return &RefreshController{
		coordinator: coordinator,
		settings:    settings,
	}
}

// TriggerRefresh requests a shelf refresh. The request is accepted even
// while a sync is already running; the coordinator debounces and queues.
// POST /api/refresh
func (rc *RefreshController) TriggerRefresh(c *gin.Context) {
	username := c.Query("username")
	if username == "" {
		username = rc.settings.GetUsername()
	}
	if username == "" {
		c.IndentedJSON(http.StatusBadRequest, gin.H{"error": "no username configured"})
		return
	}

	rc.coordinator.Refresh(username)
	c.IndentedJSON(http.StatusAccepted, gin.H{"message": "refresh requested", "username": username})
}

// GetRefreshStatus reports whether a sync is in flight and any unresolved
// refresh error.
// GET /api/refresh/status
func (rc *RefreshController) GetRefreshStatus(c *gin.Context) {
	status := gin.H{
		"refreshing": rc.coordinator.IsRefreshing(),
		"error":      rc.coordinator.ErrorMessage(),
	}
	if last := rc.settings.GetLastSyncAt(); last != nil {
		status["last_sync_at"] = last
	}
	c.IndentedJSON(http.StatusOK, status)
}

// AcknowledgeError clears the sticky refresh error message.
// DELETE /api/refresh/error
func (rc *RefreshController) AcknowledgeError(c *gin.Context) {
	rc.coordinator.AcknowledgeError()
	c.IndentedJSON(http.StatusOK, gin.H{"message": "error acknowledged"})
}
