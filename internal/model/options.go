package model

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/imageforge/imageforge/internal/format"
)

// Operation selects which transformation a job applies to every file.
type Operation string

const (
	OperationConvert  Operation = "convert"
	OperationResize   Operation = "resize"
	OperationCrop     Operation = "crop"
	OperationCompress Operation = "compress"
)

// ParseOperation validates an operation name. An empty name defaults to
// convert, matching the historical behavior of the batch endpoint.
func ParseOperation(s string) (Operation, error) {
	switch Operation(strings.ToLower(s)) {
	case OperationConvert, "":
		return OperationConvert, nil
	case OperationResize:
		return OperationResize, nil
	case OperationCrop:
		return OperationCrop, nil
	case OperationCompress:
		return OperationCompress, nil
	default:
		return "", fmt.Errorf("%w: unknown operation %q", ErrValidation, s)
	}
}

// Resize modes.
const (
	ResizeModePixels     = "pixels"
	ResizeModePercentage = "percentage"
)

// ConvertOptions parameterizes the convert operation.
type ConvertOptions struct {
	Format string
}

// ResizeOptions parameterizes the resize operation. Width and Height of zero
// mean "use the source dimension".
type ResizeOptions struct {
	Mode           string
	Percentage     int
	Width          int
	Height         int
	MaintainAspect bool
}

// CropOptions parameterizes the crop operation. Width and Height of zero
// mean "to the edge of the image".
type CropOptions struct {
	X      int
	Y      int
	Width  int
	Height int
}

// CompressOptions parameterizes the compress operation. An empty Format
// falls back to each file's original extension. MaxSize is the byte ceiling
// for size-targeted compression, zero for none.
type CompressOptions struct {
	Format  string
	Quality int
	MaxSize int
}

// Options carries the validated parameters for exactly one operation.
// Only the field matching Op is meaningful.
type Options struct {
	Op       Operation
	Convert  ConvertOptions
	Resize   ResizeOptions
	Crop     CropOptions
	Compress CompressOptions
}

// positiveInt parses a positive integer, returning 0 for absent, malformed
// or non-positive values.
func positiveInt(raw map[string]string, key string) int {
	v, ok := raw[key]
	if !ok || v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0
	}
	return n
}

// ParseOptions interprets the raw key/value options submitted with a batch
// request into the typed parameter set for op. Validation that does not
// depend on individual images happens here, once, at the boundary.
func ParseOptions(op Operation, raw map[string]string) (Options, error) {
	opts := Options{Op: op}

	switch op {
	case OperationConvert:
		target := format.Normalize(raw["format"])
		if target == "" {
			target = "png"
		}
		if !format.ConvertTargets[target] {
			return Options{}, fmt.Errorf("%w: unsupported output format: %s", ErrValidation, target)
		}
		opts.Convert = ConvertOptions{Format: target}

	case OperationResize:
		mode := ResizeModePixels
		if raw["resize_mode"] == ResizeModePercentage {
			mode = ResizeModePercentage
		}
		pct := positiveInt(raw, "percentage")
		if pct == 0 {
			pct = 100
		}
		aspect := true
		if v, ok := raw["maintain_aspect"]; ok {
			aspect = strings.EqualFold(v, "true")
		}
		opts.Resize = ResizeOptions{
			Mode:           mode,
			Percentage:     pct,
			Width:          positiveInt(raw, "width"),
			Height:         positiveInt(raw, "height"),
			MaintainAspect: aspect,
		}

	case OperationCrop:
		opts.Crop = CropOptions{
			X:      positiveInt(raw, "x"),
			Y:      positiveInt(raw, "y"),
			Width:  positiveInt(raw, "width"),
			Height: positiveInt(raw, "height"),
		}

	case OperationCompress:
		target := format.Normalize(raw["format"])
		if target != "" && !format.CompressTargets[target] {
			return Options{}, fmt.Errorf("%w: unsupported compression target: %s", ErrValidation, target)
		}
		quality := positiveInt(raw, "quality")
		if quality == 0 {
			quality = 85
		}
		if quality < 10 {
			quality = 10
		}
		if quality > 100 {
			quality = 100
		}
		maxSize := positiveInt(raw, "max_size")
		if maxSize == 0 {
			maxSize = positiveInt(raw, "target_size")
		}
		opts.Compress = CompressOptions{Format: target, Quality: quality, MaxSize: maxSize}

	default:
		return Options{}, fmt.Errorf("%w: unknown operation %q", ErrValidation, op)
	}

	return opts, nil
}
