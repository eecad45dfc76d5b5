// Package cli implements the one-shot commands runnable without the HTTP
// server.
package cli

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/openshelf/shelfsync/internal/database"
	"github.com/openshelf/shelfsync/internal/database/books"
	"github.com/openshelf/shelfsync/internal/openlibrary"
	syncengine "github.com/openshelf/shelfsync/internal/sync"
)

// SyncCommand runs a single shelf sync and exits.
type SyncCommand struct {
	Username     string
	DatabasePath string
	BaseURL      string
	Timeout      time.Duration
}

// NewSyncCommand creates a new SyncCommand.
func NewSyncCommand() *SyncCommand {
	return &SyncCommand{}
}

// ParseFlags parses command line flags.
func (cmd *SyncCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("sync", flag.ExitOnError)

	fs.StringVar(&cmd.Username, "username", os.Getenv("OPENSHELF_USERNAME"), "OpenLibrary username whose shelves to sync")
	fs.StringVar(&cmd.DatabasePath, "db", "./shelfsync.db", "Path to the local database file")
	fs.StringVar(&cmd.BaseURL, "base-url", "https://openlibrary.org", "OpenLibrary base URL")
	fs.DurationVar(&cmd.Timeout, "timeout", 2*time.Minute, "Overall sync timeout")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s sync [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Sync the three OpenLibrary reading shelves into the local cache.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s sync -username mekBot\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s sync -username mekBot -db ~/books/shelfsync.db\n", os.Args[0])
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	if cmd.Username == "" {
		return fmt.Errorf("username is required (set -username or OPENSHELF_USERNAME)")
	}

	return nil
}

// Run executes the sync command.
func (cmd *SyncCommand) Run() error {
	absDBPath, err := filepath.Abs(cmd.DatabasePath)
	if err != nil {
		return fmt.Errorf("resolve database path: %w", err)
	}
	cmd.DatabasePath = absDBPath

	db, err := database.NewDatabase(cmd.DatabasePath)
	if err != nil {
		return fmt.Errorf("initialize database: %w", err)
	}
	defer db.Close()

	fmt.Printf("Database: %s\n", cmd.DatabasePath)
	fmt.Printf("Syncing shelves for %s...\n", cmd.Username)

	store := books.NewRepository(db)
	client := openlibrary.NewClientWithBaseURL(cmd.BaseURL)
	engine := syncengine.NewEngine(client, store)

	ctx, cancel := context.WithTimeout(context.Background(), cmd.Timeout)
	defer cancel()

	synced, err := engine.SyncShelves(ctx, cmd.Username)
	if err != nil {
		return fmt.Errorf("sync shelves: %w", err)
	}

	total, err := store.Count()
	if err != nil {
		return fmt.Errorf("count cached books: %w", err)
	}

	fmt.Printf("Synced %d books (%d cached in total)\n", len(synced), total)
	return nil
}
