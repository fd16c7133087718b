// fitcoach is the local chat-history toolbox for the AI fitness coach:
// it owns the SQLite-backed chat session store and exposes listing,
// search, deletion, config, and cache maintenance from the command line.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	appcfg "fitcoach/cmd/fitcoach/config"
	"fitcoach/internal/cache"
	"fitcoach/internal/chat"
	"fitcoach/internal/config"
	"fitcoach/internal/logging"
	"fitcoach/internal/search"
	"fitcoach/internal/storage"
)

var (
	// Global flags
	verbose bool
	dataDir string
)

// app bundles the wired services for command handlers.
type app struct {
	kv    storage.KV
	cfg   *config.Provider
	store *chat.Store
	index *search.Index
	cache *cache.Cache
}

func (a *app) Close() {
	if err := a.kv.Close(); err != nil {
		logging.Get(logging.CategoryBoot).Warn("Failed to close store: %v", err)
	}
}

// bootApp opens the database and wires the services. Callers own Close.
func bootApp(cmd *cobra.Command) (*app, error) {
	dir := dataDir
	if dir == "" {
		cfg, err := appcfg.Load()
		if err != nil {
			logging.Get(logging.CategoryBoot).Warn("Failed to load CLI config: %v", err)
		}
		dir, err = cfg.ResolveDataDir()
		if err != nil {
			return nil, fmt.Errorf("cannot resolve data directory: %w", err)
		}
	}

	kv, err := storage.NewSQLiteKV(filepath.Join(dir, "fitcoach.db"))
	if err != nil {
		return nil, fmt.Errorf("failed to open chat database: %w", err)
	}

	ctx := cmd.Context()
	provider := config.NewProvider(kv)
	provider.Initialize(ctx)

	store := chat.NewStore(kv, provider)
	store.Initialize(ctx)
	index := search.NewIndex(store, provider)
	responseCache := cache.New(kv)
	responseCache.Initialize(ctx)

	logging.Boot("fitcoach ready (data dir: %s)", dir)
	return &app{kv: kv, cfg: provider, store: store, index: index, cache: responseCache}, nil
}

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "fitcoach",
	Short: "fitcoach - local chat history for the AI fitness coach",
	Long: `fitcoach manages the locally persisted chat history of the AI
fitness coach: listing and searching past conversations, pruning them,
tuning the history limits, and maintaining the response cache.

Chat data lives in a single SQLite database; nothing leaves your machine.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// .env is optional; it only seeds environment defaults.
		_ = godotenv.Load()

		debug := verbose
		if !debug {
			if cfg, err := appcfg.Load(); err == nil {
				debug = cfg.Debug
			}
		}
		if err := logging.Initialize(debug); err != nil {
			return fmt.Errorf("failed to initialize logging: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.Sync()
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "directory holding the chat database (default: ~/.fitcoach)")

	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(clearCmd)
	rootCmd.AddCommand(currentCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(cacheCmd)
	rootCmd.AddCommand(prefsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("Error: "+err.Error()))
		os.Exit(1)
	}
}
