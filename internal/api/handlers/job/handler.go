package job

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/wb-go/wbf/ginext"
	"github.com/wb-go/wbf/zlog"

	"github.com/imageforge/imageforge/internal/api/respond"
	"github.com/imageforge/imageforge/internal/bundle"
	"github.com/imageforge/imageforge/internal/model"
	jobrepo "github.com/imageforge/imageforge/internal/repository/job"
)

// maxUploadBytes caps one batch request body.
const maxUploadBytes = 15 << 20

// service defines the interface for batch processing.
type service interface {
	ProcessBatch(ctx context.Context, files []model.UploadedFile, manifest []model.ManifestEntry, opts model.Options, enhance bool) (model.JobMetadata, error)
}

// repository defines the interface for reading persisted job records.
type repository interface {
	GetJob(ctx context.Context, id string) (model.JobMetadata, error)
}

// fileStorage defines the interface for serving stored outputs.
type fileStorage interface {
	Load(ctx context.Context, subdir, filename string) (io.ReadCloser, error)
}

// Handler provides HTTP handlers for batch jobs and their artifacts.
type Handler struct {
	service service
	repo    repository
	storage fileStorage
}

// NewHandler creates a new Handler with the given collaborators.
func NewHandler(s service, r repository, fs fileStorage) *Handler {
	return &Handler{service: s, repo: r, storage: fs}
}

// BatchProcess handles the batch processing request: a multipart form with
// the uploaded files, a manifest describing each one, an operation name and
// its options. The whole batch either succeeds or fails.
func (h *Handler) BatchProcess(c *ginext.Context) {
	// ParseMultipartForm's argument is only the in-memory threshold; the
	// actual body cap needs the reader itself bounded.
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadBytes)

	if err := c.Request.ParseMultipartForm(maxUploadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) || c.Request.ContentLength > maxUploadBytes {
			respond.Fail(c, http.StatusRequestEntityTooLarge, fmt.Errorf("upload exceeds the %d byte limit", maxUploadBytes))
			return
		}
		respond.Fail(c, http.StatusBadRequest, fmt.Errorf("parse multipart form failed: %v", err))
		return
	}

	headers := c.Request.MultipartForm.File["files"]
	if len(headers) == 0 {
		respond.Fail(c, http.StatusBadRequest, fmt.Errorf("no files uploaded"))
		return
	}

	manifestRaw := c.PostForm("manifest")
	if manifestRaw == "" {
		respond.Fail(c, http.StatusBadRequest, fmt.Errorf("missing manifest payload"))
		return
	}
	var manifest []model.ManifestEntry
	if err := json.Unmarshal([]byte(manifestRaw), &manifest); err != nil {
		zlog.Logger.Err(err).Msg("failed to unmarshal the manifest")
		respond.Fail(c, http.StatusBadRequest, fmt.Errorf("malformed manifest"))
		return
	}

	op, err := model.ParseOperation(c.PostForm("operation"))
	if err != nil {
		respond.Fail(c, http.StatusBadRequest, err)
		return
	}

	rawOptions, err := parseRawOptions(c.PostForm("options"))
	if err != nil {
		respond.Fail(c, http.StatusBadRequest, fmt.Errorf("invalid options payload"))
		return
	}
	opts, err := model.ParseOptions(op, rawOptions)
	if err != nil {
		respond.Fail(c, http.StatusBadRequest, err)
		return
	}

	enhance := strings.EqualFold(c.PostForm("enhance"), "true")

	files := make([]model.UploadedFile, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			respond.Fail(c, http.StatusBadRequest, fmt.Errorf("failed to read uploaded file %s", fh.Filename))
			return
		}
		defer f.Close()
		files = append(files, model.UploadedFile{Name: fh.Filename, File: f})
	}

	meta, err := h.service.ProcessBatch(c.Request.Context(), files, manifest, opts, enhance)
	if err != nil {
		if errors.Is(err, model.ErrValidation) {
			zlog.Logger.Warn().Err(err).Msg("batch rejected")
			respond.Fail(c, http.StatusBadRequest, err)
			return
		}

		zlog.Logger.Err(err).Msg("batch processing failed")
		respond.Fail(c, http.StatusInternalServerError, fmt.Errorf("processing failed: %v", err))
		return
	}

	respond.OK(c, meta)
}

// Download serves a processed output or bundle archive by filename.
// With ?download=true the browser is told to save rather than display it.
func (h *Handler) Download(c *ginext.Context) {
	name := filepath.Base(c.Param("filename"))
	if name == "." || name == "/" {
		respond.Fail(c, http.StatusBadRequest, fmt.Errorf("missing filename"))
		return
	}

	reader, err := h.storage.Load(c.Request.Context(), bundle.OutputDir, name)
	if err != nil {
		respond.Fail(c, http.StatusNotFound, fmt.Errorf("file not found"))
		return
	}
	defer reader.Close()

	contentType := mime.TypeByExtension(filepath.Ext(name))
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	headers := map[string]string{}
	if strings.EqualFold(c.Query("download"), "true") {
		headers["Content-Disposition"] = fmt.Sprintf("attachment; filename=%q", name)
	}

	respond.Stream(c, http.StatusOK, contentType, reader, headers)
}

// GetJob returns the persisted metadata record for a job id.
func (h *Handler) GetJob(c *ginext.Context) {
	id := c.Param("id")
	if id == "" {
		respond.Fail(c, http.StatusBadRequest, fmt.Errorf("missing id"))
		return
	}

	meta, err := h.repo.GetJob(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, jobrepo.ErrJobNotFound) {
			respond.Fail(c, http.StatusNotFound, fmt.Errorf("job not found"))
			return
		}

		zlog.Logger.Err(err).Msg("failed to get job")
		respond.Fail(c, http.StatusInternalServerError, fmt.Errorf("failed to get job: %v", err))
		return
	}

	respond.OK(c, meta)
}

// parseRawOptions flattens the options JSON object into the string map the
// option parser consumes. Numbers keep their literal form so "90" and 90
// behave identically.
func parseRawOptions(raw string) (map[string]string, error) {
	if raw == "" {
		return map[string]string{}, nil
	}

	dec := json.NewDecoder(bytes.NewReader([]byte(raw)))
	dec.UseNumber()

	var payload map[string]interface{}
	if err := dec.Decode(&payload); err != nil {
		return nil, err
	}

	options := make(map[string]string, len(payload))
	for k, v := range payload {
		switch val := v.(type) {
		case string:
			options[k] = val
		case json.Number:
			options[k] = val.String()
		case bool:
			options[k] = fmt.Sprintf("%t", val)
		case nil:
			// skip
		default:
			return nil, fmt.Errorf("option %q has unsupported type", k)
		}
	}
	return options, nil
}
