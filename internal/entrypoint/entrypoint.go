// Package entrypoint wires the application together and runs the HTTP
// server with graceful shutdown.
package entrypoint

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/openshelf/shelfsync/internal/config"
	"github.com/openshelf/shelfsync/internal/covers"
	"github.com/openshelf/shelfsync/internal/database"
	"github.com/openshelf/shelfsync/internal/database/books"
	"github.com/openshelf/shelfsync/internal/database/favourites"
	"github.com/openshelf/shelfsync/internal/database/settings"
	"github.com/openshelf/shelfsync/internal/details"
	"github.com/openshelf/shelfsync/internal/entities"
	favcoordinator "github.com/openshelf/shelfsync/internal/favourites"
	http_controllers "github.com/openshelf/shelfsync/internal/http"
	"github.com/openshelf/shelfsync/internal/openlibrary"
	"github.com/openshelf/shelfsync/internal/query"
	"github.com/openshelf/shelfsync/internal/refresh"
	"github.com/openshelf/shelfsync/internal/scheduler"
	"github.com/openshelf/shelfsync/internal/settingsstore"
	syncengine "github.com/openshelf/shelfsync/internal/sync"
	"github.com/openshelf/shelfsync/internal/tasks"
)

// ShutdownFunc is called during graceful shutdown to clean up resources.
type ShutdownFunc func(ctx context.Context)

// Serve runs the HTTP server until SIGINT/SIGTERM, then shuts down within
// the configured timeout.
func Serve(router *gin.Engine, cfg *config.Config, onShutdown ShutdownFunc) {
	timeout := time.Duration(cfg.Global.ShutdownTimeoutInSeconds) * time.Second

	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler: router,
	}

	go func() {
		fmt.Printf("Starting server at %s:%d\n", cfg.HTTP.Host, cfg.HTTP.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Printf("Shutdown Server, waiting %v before killing\n", timeout)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if onShutdown != nil {
		onShutdown(ctx)
	}

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server Shutdown:", err)
	}

	log.Println("Server exiting")
}

func Run(cfg *config.Config, version string) {
	log.Printf("Starting ShelfSync v%s", version)

	db, err := database.NewDatabase(cfg.Database.Path)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Printf("Error closing database: %v", err)
		}
	}()

	bookStore := books.NewRepository(db)
	favouriteStore := favourites.NewRepository(db)
	settingsStore := settingsstore.New(settings.NewRepository(db))

	client := openlibrary.NewClientWithBaseURL(cfg.OpenLibrary.BaseURL)

	detailService, err := details.NewService(client, bookStore)
	if err != nil {
		log.Fatalf("Failed to initialize detail service: %v", err)
	}

	// Cover cache
	coverCacheDir := cfg.Covers.CacheDir
	if coverCacheDir == "" {
		coverCacheDir = filepath.Join(filepath.Dir(cfg.Database.Path), "covers")
	}
	coverCache, err := covers.NewCache(coverCacheDir)
	if err != nil {
		log.Printf("WARNING: Failed to initialize cover cache: %v", err)
		coverCache = nil
	} else {
		log.Printf("Cover cache initialized at %s", coverCacheDir)
	}

	// Task queue
	var taskClient *tasks.Client
	var taskCtxCancel context.CancelFunc
	if cfg.Tasks.Enabled {
		taskCfg := tasks.Config{
			Workers:         cfg.Tasks.Workers,
			ReleaseAfter:    cfg.Tasks.ReleaseAfter,
			CleanupInterval: cfg.Tasks.CleanupInterval,
		}

		taskClient, err = tasks.NewClient(cfg.Database.Path, taskCfg)
		if err != nil {
			log.Fatalf("Failed to initialize task queue: %v", err)
		}
		defer func() {
			if err := taskClient.Close(); err != nil {
				log.Printf("Error closing task client: %v", err)
			}
		}()

		taskClient.Register(
			tasks.NewFetchDetailsQueue(detailService),
		)

		var taskCtx context.Context
		taskCtx, taskCtxCancel = context.WithCancel(context.Background())
		go taskClient.Start(taskCtx)
	}

	// Sync and refresh pipeline. After every successful sync, books still
	// missing a description are queued for background detail enrichment.
	engine := syncengine.NewEngine(client, bookStore)
	refreshOpts := []refresh.Option{
		refresh.WithOnSynced(func(synced []entities.Book) {
			if err := settingsStore.SetLastSyncAt(time.Now()); err != nil {
				log.Printf("WARNING: could not record sync time: %v", err)
			}
			if taskClient == nil {
				return
			}
			for _, book := range synced {
				if book.Description != "" || book.WorkKey == "" {
					continue
				}
				task := tasks.FetchDetailsTask{BookKey: book.Key}
				if _, err := taskClient.Add(task).Save(); err != nil {
					log.Printf("WARNING: could not queue detail fetch for %s: %v", book.Key, err)
				}
			}
		}),
	}
	if cfg.Refresh.Debounce > 0 {
		refreshOpts = append(refreshOpts, refresh.WithDebounce(cfg.Refresh.Debounce))
	}
	refresher := refresh.NewCoordinator(engine, refreshOpts...)

	// Reactive book list
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	queryEngine := query.NewEngine(bookStore, query.Criteria{
		Filter: settingsStore.GetFilterOptions(),
		Sort:   settingsStore.GetSortOption(),
	})
	queryEngine.Start(ctx)

	favCoordinator := favcoordinator.NewCoordinator(favouriteStore)

	autoSync := scheduler.NewAutoSyncScheduler(refresher, settingsStore)
	if err := autoSync.Start(ctx); err != nil {
		log.Printf("WARNING: auto sync scheduler did not start: %v", err)
	}

	// Kick off an initial refresh when a username is configured
	if username := settingsStore.GetUsername(); username != "" {
		refresher.Refresh(username)
	}

	routerCfg := http_controllers.RouterConfig{
		Database:       db,
		BookStore:      bookStore,
		FavouriteStore: favouriteStore,
		Engine:         queryEngine,
		Refresher:      refresher,
		Favourites:     favCoordinator,
		Settings:       settingsStore,
		Details:        detailService,
		CoverCache:     coverCache,
		AutoSync:       autoSync,
		Version:        version,
	}

	router := http_controllers.NewRouter(routerCfg)

	Serve(router, cfg, func(shutdownCtx context.Context) {
		autoSync.Stop()
		if taskClient != nil {
			taskClient.Stop(shutdownCtx)
			if taskCtxCancel != nil {
				taskCtxCancel()
			}
		}
	})
}
