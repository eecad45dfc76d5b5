package http

import (
	"github.com/openshelf/shelfsync/internal/covers"
	"github.com/openshelf/shelfsync/internal/database"
	"github.com/openshelf/shelfsync/internal/database/books"
	dbfavourites "github.com/openshelf/shelfsync/internal/database/favourites"
	"github.com/openshelf/shelfsync/internal/details"
	"github.com/openshelf/shelfsync/internal/favourites"
	"github.com/openshelf/shelfsync/internal/query"
	"github.com/openshelf/shelfsync/internal/refresh"
	"github.com/openshelf/shelfsync/internal/scheduler"
	"github.com/openshelf/shelfsync/internal/settingsstore"
)

// RouterConfig contains all dependencies needed to create the HTTP router.
type RouterConfig struct {
	Database *database.Database

	BookStore      *books.Repository
	FavouriteStore *dbfavourites.Repository
	Engine         *query.Engine
	Refresher      *refresh.Coordinator
	Favourites     *favourites.Coordinator
	Settings       *settingsstore.SettingsStore
	Details        *details.Service
	CoverCache     *covers.Cache
	AutoSync       *scheduler.AutoSyncScheduler

	Version string
}
