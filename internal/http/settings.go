package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/openshelf/shelfsync/internal/query"
	"github.com/openshelf/shelfsync/internal/scheduler"
	"github.com/openshelf/shelfsync/internal/settingsstore"
)

type SettingsController struct {
	settings *settingsstore.SettingsStore
	autoSync *scheduler.AutoSyncScheduler
}

func NewSettingsController(settings *settingsstore.SettingsStore, autoSync *scheduler.AutoSyncScheduler) *SettingsController {
	return &SettingsController{
		settings: settings,
		autoSync: autoSync,
	}
}

// GetSettings returns the effective configuration.
// GET /api/settings
func (sc *SettingsController) GetSettings(c *gin.Context) {
	response := gin.H{
		"username":           sc.settings.GetUsername(),
		"sort_option":        sc.settings.GetSortOption(),
		"filter_options":     sc.settings.GetFilterOptions(),
		"dark_mode":          sc.settings.GetDarkMode(),
		"auto_sync_enabled":  sc.settings.GetAutoSyncEnabled(),
		"auto_sync_schedule": sc.settings.GetAutoSyncSchedule(),
	}
	if sc.autoSync != nil {
		if next := sc.autoSync.NextRunTime(); next != nil {
			response["auto_sync_next_run"] = next
		}
	}
	c.IndentedJSON(http.StatusOK, response)
}

type updateSettingsRequest struct {
	Username         *string              `json:"username"`
	SortOption       *query.SortOption    `json:"sort_option"`
	FilterOptions    *query.FilterOptions `json:"filter_options"`
	DarkMode         *bool                `json:"dark_mode"`
	AutoSyncEnabled  *bool                `json:"auto_sync_enabled"`
	AutoSyncSchedule *string              `json:"auto_sync_schedule"`
}

// UpdateSettings applies a partial settings update; only present fields
// change. Auto-sync changes reschedule the background refresh.
// PATCH /api/settings
func (sc *SettingsController) UpdateSettings(c *gin.Context) {
	var req updateSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.IndentedJSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	if req.Username != nil {
		if err := sc.settings.SetUsername(*req.Username); err != nil {
			c.IndentedJSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
	}
	if req.SortOption != nil {
		if !req.SortOption.Valid() {
			c.IndentedJSON(http.StatusBadRequest, gin.H{"error": "unknown sort option"})
			return
		}
		if err := sc.settings.SetSortOption(*req.SortOption); err != nil {
			c.IndentedJSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
	}
	if req.FilterOptions != nil {
		if err := sc.settings.SetFilterOptions(*req.FilterOptions); err != nil {
			c.IndentedJSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
	}
	if req.DarkMode != nil {
		if err := sc.settings.SetDarkMode(*req.DarkMode); err != nil {
			c.IndentedJSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
	}

	rescheduleNeeded := false
	if req.AutoSyncEnabled != nil {
		if err := sc.settings.SetAutoSyncEnabled(*req.AutoSyncEnabled); err != nil {
			c.IndentedJSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		rescheduleNeeded = true
	}
	if req.AutoSyncSchedule != nil {
		if err := sc.settings.SetAutoSyncSchedule(*req.AutoSyncSchedule); err != nil {
			c.IndentedJSON(http.StatusBadRequest, gin.H{"error": "invalid cron schedule"})
			return
		}
		rescheduleNeeded = true
	}

	if rescheduleNeeded && sc.autoSync != nil {
		if err := sc.autoSync.Reschedule(); err != nil {
			c.IndentedJSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
	}

	sc.GetSettings(c)
}
