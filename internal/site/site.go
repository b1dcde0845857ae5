// Package site writes the listing as static files: the HTML page, the JSON
// props it was rendered from and the assets, including the script that loads
// further pages in the browser.
package site

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/iMitio/spacetraveling/internal/home"
	"github.com/iMitio/spacetraveling/internal/models"
	"github.com/iMitio/spacetraveling/internal/pagination"
)

const (
	propsFile = "props.json"
	indexFile = "index.html"
	staticDir = "static"
)

// Loader produces the first page of the listing.
type Loader interface {
	Load(ctx context.Context) (*models.PostsPagination, error)
}

// Recorder stores a record of each completed build.
type Recorder interface {
	CreateBuildRun(ctx context.Context, run *models.BuildRun) (string, error)
}

// Options configures a build.
type Options struct {
	Loader Loader
	View   *home.View
	Title  string
	OutDir string

	// Recorder is optional.
	Recorder Recorder
}

// Result describes a finished build.
type Result struct {
	RunID      string
	PostsCount int
	NextPage   *string
	Files      []string
	Duration   time.Duration
}

// Build loads the listing and writes it to opts.OutDir. Everything is
// fetched and rendered before the output directory is touched, so a failed
// build leaves no partial output behind.
func Build(ctx context.Context, opts Options) (*Result, error) {
	start := time.Now()

	if err := checkOutDir(opts.OutDir); err != nil {
		return nil, err
	}

	props, err := opts.Loader.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading props: %w", err)
	}

	propsJSON, err := json.MarshalIndent(props, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding props: %w", err)
	}

	var page bytes.Buffer
	if err := opts.View.Render(&page, home.Page{
		Title:  opts.Title,
		State:  pagination.NewState(*props),
		Static: true,
	}); err != nil {
		return nil, err
	}

	slog.Info("cleaning output directory", "dir", opts.OutDir)
	if err := os.RemoveAll(opts.OutDir); err != nil {
		return nil, fmt.Errorf("removing output directory %q: %w", opts.OutDir, err)
	}
	if err := os.MkdirAll(opts.OutDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating output directory %q: %w", opts.OutDir, err)
	}

	res := &Result{
		PostsCount: len(props.Results),
		NextPage:   props.NextPage,
	}

	if err := writeFile(opts.OutDir, propsFile, propsJSON); err != nil {
		return nil, err
	}
	res.Files = append(res.Files, propsFile)

	if err := writeFile(opts.OutDir, indexFile, page.Bytes()); err != nil {
		return nil, err
	}
	res.Files = append(res.Files, indexFile)

	assets, err := copyFS(home.StaticFS(), filepath.Join(opts.OutDir, staticDir))
	if err != nil {
		return nil, fmt.Errorf("copying static assets: %w", err)
	}
	for _, a := range assets {
		res.Files = append(res.Files, filepath.ToSlash(filepath.Join(staticDir, a)))
	}

	if opts.Recorder != nil {
		id, err := opts.Recorder.CreateBuildRun(ctx, &models.BuildRun{
			PostsCount: res.PostsCount,
			NextPage:   res.NextPage,
			OutputDir:  opts.OutDir,
		})
		if err != nil {
			return nil, fmt.Errorf("recording build: %w", err)
		}
		res.RunID = id
	}

	res.Duration = time.Since(start)
	slog.Info("build complete",
		"dir", opts.OutDir,
		"posts", res.PostsCount,
		"has_next", res.NextPage != nil,
		"files", len(res.Files),
		"duration", res.Duration.String(),
	)
	return res, nil
}

// checkOutDir refuses output directories whose removal would wipe the
// working directory or the filesystem root.
func checkOutDir(dir string) error {
	if dir == "" {
		return errors.New("output directory is required")
	}
	clean := filepath.Clean(dir)
	if clean == "." || clean == string(filepath.Separator) || clean == filepath.VolumeName(clean)+string(filepath.Separator) {
		return fmt.Errorf("refusing to use %q as the output directory", dir)
	}
	return nil
}

func writeFile(dir, name string, data []byte) error {
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

// copyFS copies every regular file of src under dst and returns their
// slash-separated paths relative to dst.
func copyFS(src fs.FS, dst string) ([]string, error) {
	var copied []string
	err := fs.WalkDir(src, ".", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		target := filepath.Join(dst, filepath.FromSlash(path))
		if d.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		data, err := fs.ReadFile(src, path)
		if err != nil {
			return err
		}
		if err := os.WriteFile(target, data, 0o644); err != nil {
			return err
		}
		copied = append(copied, path)
		return nil
	})
	return copied, err
}
