package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/iMitio/spacetraveling/internal/config"
	"github.com/iMitio/spacetraveling/internal/home"
	"github.com/iMitio/spacetraveling/internal/prismic"
	"github.com/iMitio/spacetraveling/internal/storage"
)

// app holds what every subcommand shares once flags are parsed.
type app struct {
	configPath string
	dataDir    string

	cfg   *config.Config
	store *storage.Store
}

func newRootCmd() *cobra.Command {
	return (&app{}).rootCmd()
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "spacetraveling",
		Short: "Blog listing backed by a Prismic repository",
		Long: `spacetraveling lists the posts of a Prismic repository with
"load more" pagination. It can render the first page as static files
(build) or serve the listing and its JSON API (serve).`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.open()
		},
	}

	root.PersistentFlags().StringVar(&a.configPath, "config", "config.toml", "path to config file")
	root.PersistentFlags().StringVar(&a.dataDir, "data-dir", "./data", "path to data directory")

	root.AddCommand(newBuildCmd(a), newServeCmd(a))
	return root
}

// open loads the config and opens the database.
func (a *app) open() error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	a.cfg = cfg

	if err := os.MkdirAll(a.dataDir, 0o755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}

	db, err := storage.OpenDatabase(filepath.Join(a.dataDir, "spacetraveling.db"))
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	if err := storage.RunMigrations(db); err != nil {
		db.Close()
		return fmt.Errorf("running migrations: %w", err)
	}
	a.store = storage.NewStore(db)
	return nil
}

func (a *app) close() error {
	if a.store == nil {
		return nil
	}
	err := a.store.Close()
	a.store = nil
	return err
}

// withStore wraps a RunE so the database is closed whether or not it fails.
// cobra skips post-run hooks after an error.
func (a *app) withStore(run func(cmd *cobra.Command, args []string) error) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) (err error) {
		defer func() {
			if cerr := a.close(); cerr != nil && err == nil {
				err = fmt.Errorf("closing database: %w", cerr)
			}
		}()
		return run(cmd, args)
	}
}

// client returns a Prismic client that caches pages in the database.
func (a *app) client() (*prismic.Client, error) {
	return prismic.NewClient(prismic.Options{
		Endpoint:    a.cfg.CMS.Endpoint,
		AccessToken: a.cfg.CMS.AccessToken,
		Timeout:     a.cfg.CMS.Timeout(),
		Cache:       a.store,
		CacheTTL:    a.cfg.Cache.TTL(),
	})
}

func (a *app) loader(src home.ContentSource) *home.Loader {
	return home.NewLoader(src, home.Query{
		DocumentType: a.cfg.CMS.DocumentType,
		Lang:         a.cfg.CMS.Lang,
		PageSize:     a.cfg.CMS.PageSize,
	})
}

func (a *app) view() (*home.View, error) {
	return home.NewView(a.cfg.Site.Location())
}
