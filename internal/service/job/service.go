// Package job orchestrates one batch request end to end: manifest
// reconciliation, per-file transformation, enhancement, output naming,
// bundling and metadata persistence.
package job

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/wb-go/wbf/zlog"

	"github.com/imageforge/imageforge/internal/bundle"
	"github.com/imageforge/imageforge/internal/codec"
	"github.com/imageforge/imageforge/internal/format"
	"github.com/imageforge/imageforge/internal/model"
	"github.com/imageforge/imageforge/internal/naming"
	"github.com/imageforge/imageforge/internal/processor"
)

// Batch limits. HEIC decoding is markedly heavier than the raster formats,
// so a batch containing any declared HEIC file gets the smaller allowance.
const (
	maxBatch     = 10
	maxHEICBatch = 5
)

// uploadDir is the storage subdirectory holding temporary input files.
const uploadDir = "uploads"

// metadataSuffix names the per-job metadata sidecar.
const metadataSuffix = ".json"

// fileStorage defines the interface for file storage.
// It allows saving, loading and deleting files from a backend
// (e.g., local FS or MinIO).
type fileStorage interface {
	Save(ctx context.Context, subdir, filename string, src io.Reader) (string, error)
	Load(ctx context.Context, subdir, filename string) (io.ReadCloser, error)
	Delete(ctx context.Context, subdir, filename string) error
}

// producer defines the interface for publishing completed-job events to a
// message broker (e.g., Kafka).
type producer interface {
	Produce(ctx context.Context, meta model.JobMetadata) error
}

// enhancer defines the interface for the optional super-resolution stage.
type enhancer interface {
	Enhance(ctx context.Context, img image.Image, requested bool) (image.Image, string)
	Status() (bool, string)
}

// Service runs batch processing jobs. One job is a strictly sequential
// pipeline over its file list; multiple jobs may run concurrently because
// they share no mutable state beyond the process-wide enhancer.
type Service struct {
	storage  fileStorage
	producer producer
	enhancer enhancer
}

// NewService creates a Service with the given storage backend, event
// producer and enhancement engine.
func NewService(fs fileStorage, p producer, e enhancer) *Service {
	return &Service{storage: fs, producer: p, enhancer: e}
}

// ProcessBatch validates the manifest against the uploaded files and runs
// every file through the requested operation. It either completes the whole
// batch or fails it: the first per-file error aborts processing and no
// bundle or metadata is produced. Outputs already written by an aborted job
// are left for external garbage collection.
func (s *Service) ProcessBatch(
	ctx context.Context,
	files []model.UploadedFile,
	manifest []model.ManifestEntry,
	opts model.Options,
	enhance bool,
) (model.JobMetadata, error) {
	if len(files) == 0 {
		return model.JobMetadata{}, fmt.Errorf("%w: no files uploaded", model.ErrValidation)
	}
	if len(manifest) != len(files) {
		return model.JobMetadata{}, fmt.Errorf("%w: manifest and files mismatch", model.ErrValidation)
	}

	limit := maxBatch
	for _, entry := range manifest {
		if format.Normalize(entry.OriginalExtension) == "heic" {
			limit = maxHEICBatch
			break
		}
	}
	if len(files) > limit {
		return model.JobMetadata{}, fmt.Errorf("%w: batch limit is %d files for this selection", model.ErrValidation, limit)
	}

	jobID := uuid.New().String()
	names := naming.NewResolver()

	results := make([]model.ProcessingResult, 0, len(files))
	for index, f := range files {
		result, err := s.processFile(ctx, f, manifest[index], opts, enhance, jobID, index, names)
		if err != nil {
			return model.JobMetadata{}, fmt.Errorf("file %d (%s): %w", index+1, f.Name, err)
		}
		results = append(results, result)
	}

	jobBundle, err := bundle.Build(ctx, s.storage, jobID, results)
	if err != nil {
		return model.JobMetadata{}, err
	}

	meta := model.JobMetadata{
		ID:            jobID,
		CreatedAt:     time.Now().UTC(),
		Files:         results,
		Bundle:        jobBundle,
		HEICSupported: codec.HEICSupported(),
	}
	// The reason is non-empty when the engine is unavailable, but also when
	// a ready engine has since failed mid-inference; record it either way.
	if _, reason := s.enhancer.Status(); reason != "" {
		meta.EnhancerStatus = reason
	}

	if err := s.persistMetadata(ctx, meta); err != nil {
		return model.JobMetadata{}, err
	}

	// The job is durable at this point; a broker outage must not fail it.
	if err := s.producer.Produce(ctx, meta); err != nil {
		zlog.Logger.Warn().Err(err).Str("job_id", jobID).Msg("failed to publish job event")
	}

	zlog.Logger.Info().
		Str("job_id", jobID).
		Int("files", len(results)).
		Str("operation", string(opts.Op)).
		Msg("batch processed")

	return meta, nil
}

// processFile runs a single file through the full pipeline. The temporary
// input copy is removed on every exit path.
func (s *Service) processFile(
	ctx context.Context,
	f model.UploadedFile,
	entry model.ManifestEntry,
	opts model.Options,
	enhance bool,
	jobID string,
	index int,
	names *naming.Resolver,
) (model.ProcessingResult, error) {
	originalName := entry.OriginalName
	if originalName == "" {
		originalName = f.Name
	}

	// The manifest records what the user actually uploaded; the incoming
	// filename records what format the bytes are in right now. The two
	// differ when the browser pre-converted HEIC input.
	originalExt := format.Normalize(entry.OriginalExtension)
	if originalExt == "" {
		originalExt = format.FromName(originalName)
	}
	incomingExt := format.FromName(f.Name)
	if originalExt == "" {
		originalExt = incomingExt
	}

	if !format.AllowedExtensions[originalExt] && !format.AllowedExtensions[incomingExt] {
		return model.ProcessingResult{}, fmt.Errorf("%w: unsupported file type: %s", model.ErrValidation, originalExt)
	}

	if originalExt == "heic" && !codec.HEICSupported() && !entry.ConvertedFromHEIC && incomingExt == "heic" {
		return model.ProcessingResult{}, fmt.Errorf("%w: HEIC support is not available on this server; enable HEIC conversion in the browser", model.ErrValidation)
	}

	workingExt := incomingExt
	if workingExt == "" {
		workingExt = originalExt
	}
	if workingExt == "" {
		workingExt = "tmp"
	}

	tempName := fmt.Sprintf("%s_%d.%s", jobID, index, workingExt)
	if _, err := s.storage.Save(ctx, uploadDir, tempName, f.File); err != nil {
		return model.ProcessingResult{}, fmt.Errorf("save upload: %w", err)
	}
	defer func() {
		if err := s.storage.Delete(ctx, uploadDir, tempName); err != nil {
			zlog.Logger.Warn().Err(err).Str("file", tempName).Msg("failed to remove temp upload")
		}
	}()

	src, err := s.storage.Load(ctx, uploadDir, tempName)
	if err != nil {
		return model.ProcessingResult{}, fmt.Errorf("load upload: %w", err)
	}
	decoded, err := codec.Decode(src)
	src.Close()
	if err != nil {
		return model.ProcessingResult{}, err
	}

	transformed, err := processor.Apply(codec.Normalize(decoded), opts, originalExt)
	if err != nil {
		return model.ProcessingResult{}, err
	}

	enhanced, note := s.enhancer.Enhance(ctx, transformed.Image, enhance)

	encoded, err := processor.EncodeOutput(enhanced, transformed.Ext, transformed.Params, transformed.MaxSize)
	if err != nil {
		return model.ProcessingResult{}, fmt.Errorf("encode output: %w", err)
	}

	finalName := names.Resolve(originalName, transformed.Ext)
	if _, err := s.storage.Save(ctx, bundle.OutputDir, finalName, bytes.NewReader(encoded.Data)); err != nil {
		return model.ProcessingResult{}, fmt.Errorf("save output: %w", err)
	}

	result := model.ProcessingResult{
		DisplayName:       finalName,
		OriginalName:      originalName,
		InputFormat:       originalExt,
		OutputFormat:      transformed.Ext,
		SizeBytes:         int64(len(encoded.Data)),
		DownloadURL:       "/download/" + finalName + "?download=true",
		Enhancement:       note,
		ConvertedFromHEIC: entry.ConvertedFromHEIC,
	}
	if opts.Op == model.OperationCompress {
		result.Quality = encoded.Quality
	}
	return result, nil
}

// persistMetadata writes the job's metadata sidecar next to the outputs,
// keyed by job id.
func (s *Service) persistMetadata(ctx context.Context, meta model.JobMetadata) error {
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal job metadata: %w", err)
	}
	if _, err := s.storage.Save(ctx, bundle.OutputDir, meta.ID+metadataSuffix, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("save job metadata: %w", err)
	}
	return nil
}
