// Package bundle turns a job's processed outputs into its single
// downloadable artifact: a deflate-compressed zip archive for multi-file
// jobs, the lone output itself otherwise.
package bundle

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/imageforge/imageforge/internal/model"
)

// fileStorage is the slice of the storage backend bundling needs.
type fileStorage interface {
	Save(ctx context.Context, subdir, filename string, src io.Reader) (string, error)
	Load(ctx context.Context, subdir, filename string) (io.ReadCloser, error)
}

// OutputDir is the storage subdirectory holding processed outputs and the
// archives built from them.
const OutputDir = "converted"

// Build derives the job's Bundle from its result list. With two or more
// results an archive named after the job is assembled from the stored
// outputs and saved alongside them; a single result is referenced directly.
func Build(ctx context.Context, store fileStorage, jobID string, results []model.ProcessingResult) (model.Bundle, error) {
	if len(results) == 1 {
		single := results[0]
		return model.Bundle{
			Type:        model.BundleSingle,
			Filename:    single.DisplayName,
			Label:       single.DisplayName,
			ButtonText:  "Download image",
			DownloadURL: single.DownloadURL,
		}, nil
	}

	zipName := fmt.Sprintf("%s_bundle.zip", jobID)

	var buf bytes.Buffer
	archive := zip.NewWriter(&buf)
	for _, item := range results {
		src, err := store.Load(ctx, OutputDir, item.DisplayName)
		if err != nil {
			return model.Bundle{}, fmt.Errorf("bundle: load %s: %w", item.DisplayName, err)
		}
		dst, err := archive.Create(item.DisplayName)
		if err != nil {
			src.Close()
			return model.Bundle{}, fmt.Errorf("bundle: add %s: %w", item.DisplayName, err)
		}
		if _, err := io.Copy(dst, src); err != nil {
			src.Close()
			return model.Bundle{}, fmt.Errorf("bundle: write %s: %w", item.DisplayName, err)
		}
		src.Close()
	}
	if err := archive.Close(); err != nil {
		return model.Bundle{}, fmt.Errorf("bundle: finalize archive: %w", err)
	}

	if _, err := store.Save(ctx, OutputDir, zipName, &buf); err != nil {
		return model.Bundle{}, fmt.Errorf("bundle: save archive: %w", err)
	}

	return model.Bundle{
		Type:        model.BundleZip,
		Filename:    zipName,
		Label:       "images (.zip)",
		ButtonText:  "Download all images",
		DownloadURL: "/download/" + zipName + "?download=true",
	}, nil
}
