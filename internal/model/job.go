package model

import (
	"errors"
	"io"
	"time"
)

// ErrValidation marks caller mistakes: malformed manifests, unsupported
// formats, bad dimensions, exceeded batch limits. Handlers map it to a 400
// response; anything else is a processing failure.
var ErrValidation = errors.New("invalid request")

// ManifestEntry is the caller-supplied metadata for one uploaded file.
// It reconciles the file's true original format against the format of the
// uploaded bytes: the two differ when the browser pre-converted HEIC input.
// Entries align positionally with the uploaded file list.
type ManifestEntry struct {
	OriginalName      string `json:"original_name"`
	OriginalExtension string `json:"original_extension"`
	ConvertedFromHEIC bool   `json:"converted_from_heic"`
}

// UploadedFile is one incoming file handed over by the upload transport.
// The orchestrator owns the byte stream transiently: it is saved to a
// temporary location for the duration of processing and removed afterwards,
// on success and on failure alike.
type UploadedFile struct {
	Name string
	File io.Reader
}

// ProcessingResult records one successfully processed file. It is created
// once per input, in input order, and never mutated.
type ProcessingResult struct {
	DisplayName       string `json:"display_name"`
	OriginalName      string `json:"original_name"`
	InputFormat       string `json:"input_format"`
	OutputFormat      string `json:"output_format"`
	SizeBytes         int64  `json:"size_bytes"`
	DownloadURL       string `json:"download_url"`
	Enhancement       string `json:"enhancement,omitempty"`
	Quality           int    `json:"quality,omitempty"` // compression quality actually used
	ConvertedFromHEIC bool   `json:"converted_from_heic"`
}

// Bundle kinds.
const (
	BundleSingle = "single"
	BundleZip    = "zip"
)

// Bundle describes the single downloadable artifact of a job: a zip archive
// for multi-file jobs, the lone output otherwise.
type Bundle struct {
	Type        string `json:"type"`
	Filename    string `json:"filename"`
	Label       string `json:"label"`
	ButtonText  string `json:"button_text"`
	DownloadURL string `json:"download_url"`
}

// JobMetadata is the persisted record of one batch job. It is written once
// when the job completes and read later by the download/status view.
type JobMetadata struct {
	ID             string             `json:"id"`
	CreatedAt      time.Time          `json:"created_at"`
	Files          []ProcessingResult `json:"files"`
	Bundle         Bundle             `json:"bundle"`
	HEICSupported  bool               `json:"heic_supported"`
	EnhancerStatus string             `json:"enhancer_status,omitempty"` // reason the enhancer is unavailable, if it is
}
