package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/iMitio/spacetraveling/internal/site"
)

func newBuildCmd(a *app) *cobra.Command {
	var outDir string

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Render the first page of the listing to static files",
		Long: `build fetches the first page of posts and writes index.html,
props.json and the stylesheet to the output directory. The output
directory is replaced. Any fetch failure aborts the build.`,
		Args: cobra.NoArgs,
		RunE: a.withStore(func(cmd *cobra.Command, args []string) error {
			client, err := a.client()
			if err != nil {
				return fmt.Errorf("creating prismic client: %w", err)
			}
			view, err := a.view()
			if err != nil {
				return err
			}

			res, err := site.Build(cmd.Context(), site.Options{
				Loader:   a.loader(client),
				View:     view,
				Title:    a.cfg.Site.Title,
				OutDir:   outDir,
				Recorder: a.store,
			})
			if err != nil {
				return fmt.Errorf("building site: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Built %d post(s) into %s (build %s)\n", res.PostsCount, outDir, res.RunID)
			return nil
		}),
	}

	cmd.Flags().StringVar(&outDir, "out", "public", "output directory")
	return cmd
}
