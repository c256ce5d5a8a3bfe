// Package processor holds the per-operation transformation policies. Each
// strategy is a pure function from a decoded image and its validated options
// to a transformed image, an output extension and encoder parameters; the
// orchestrator does the surrounding I/O.
package processor

import (
	"fmt"
	"image"

	"github.com/disintegration/imaging"

	"github.com/imageforge/imageforge/internal/codec"
	"github.com/imageforge/imageforge/internal/format"
	"github.com/imageforge/imageforge/internal/model"
)

// icoMaxSize is the largest square canvas an ICO target is rendered at.
const icoMaxSize = 256

// Result is the outcome of one operation strategy, not yet encoded.
type Result struct {
	Image  image.Image
	Ext    string
	Params codec.EncodeParams
	// MaxSize is the byte ceiling for size-targeted compression, zero for
	// none. Only the compress strategy sets it.
	MaxSize int
}

// Apply dispatches img through the strategy selected by opts.Op.
// originalExt is the file's true original extension from the manifest; only
// the compress strategy consults it.
func Apply(img *image.NRGBA, opts model.Options, originalExt string) (Result, error) {
	switch opts.Op {
	case model.OperationResize:
		return resize(img, opts.Resize), nil
	case model.OperationCrop:
		return crop(img, opts.Crop)
	case model.OperationCompress:
		return compress(img, opts.Compress, originalExt)
	default:
		return convert(img, opts.Convert), nil
	}
}

// convert re-encodes the image in the requested target format. The target
// was validated when the options were parsed.
func convert(img *image.NRGBA, o model.ConvertOptions) Result {
	res := Result{Image: img, Ext: o.Format}

	switch o.Format {
	case "jpg", "jpeg":
		res.Params = codec.EncodeParams{Quality: 90, FlattenAlpha: true}
	case "png":
		res.Params = codec.EncodeParams{BestCompression: true}
	case "webp":
		res.Params = codec.EncodeParams{Quality: 85}
	case "ico":
		// ICO wants a square canvas, capped at the format's usual limit.
		size := img.Bounds().Dx()
		if h := img.Bounds().Dy(); h > size {
			size = h
		}
		if size > icoMaxSize {
			size = icoMaxSize
		}
		res.Image = imaging.Resize(img, size, size, imaging.Lanczos)
	case "pdf":
		res.Params = codec.EncodeParams{FlattenAlpha: true}
	}

	return res
}

// resize scales the image either by a percentage of its source dimensions or
// to explicit pixel dimensions. With aspect lock enabled, the dimension that
// would over-constrain the source aspect ratio is recomputed from the other
// one instead of being honored verbatim.
func resize(img *image.NRGBA, o model.ResizeOptions) Result {
	srcW := img.Bounds().Dx()
	srcH := img.Bounds().Dy()

	var width, height int
	if o.Mode == model.ResizeModePercentage {
		width = srcW * o.Percentage / 100
		height = srcH * o.Percentage / 100
	} else {
		width, height = o.Width, o.Height
		if width == 0 {
			width = srcW
		}
		if height == 0 {
			height = srcH
		}
		if o.MaintainAspect {
			aspect := float64(srcW) / float64(srcH)
			if float64(width)/float64(height) > aspect {
				width = int(float64(height) * aspect)
			} else {
				height = int(float64(width) / aspect)
			}
		}
	}
	if width < 1 {
		width = 1
	}
	if height < 1 {
		height = 1
	}

	return Result{
		Image:  imaging.Resize(img, width, height, imaging.Lanczos),
		Ext:    "png",
		Params: codec.EncodeParams{BestCompression: true},
	}
}

// crop cuts the requested box out of the image. The origin is clamped into
// the image and the box is clamped to its edges; a box that degenerates to
// nothing after clamping is a caller error.
func crop(img *image.NRGBA, o model.CropOptions) (Result, error) {
	srcW := img.Bounds().Dx()
	srcH := img.Bounds().Dy()

	x, y := o.X, o.Y
	if x > srcW-1 {
		x = srcW - 1
	}
	if y > srcH-1 {
		y = srcH - 1
	}

	width, height := o.Width, o.Height
	if width == 0 {
		width = srcW
	}
	if height == 0 {
		height = srcH
	}
	if width > srcW-x {
		width = srcW - x
	}
	if height > srcH-y {
		height = srcH - y
	}

	if width <= 0 || height <= 0 {
		return Result{}, fmt.Errorf("%w: invalid crop dimensions", model.ErrValidation)
	}

	return Result{
		Image:  imaging.Crop(img, image.Rect(x, y, x+width, y+height)),
		Ext:    "png",
		Params: codec.EncodeParams{BestCompression: true},
	}, nil
}

// compress re-encodes the image with a lossy quality setting (or maximum
// lossless compression for PNG). The target defaults to the file's original
// format so "compress my photo" keeps it a JPEG.
func compress(img *image.NRGBA, o model.CompressOptions, originalExt string) (Result, error) {
	target := o.Format
	if target == "" {
		target = originalExt
	}
	if target == "" {
		target = "jpg"
	}
	if !format.CompressTargets[target] {
		return Result{}, fmt.Errorf("%w: unsupported compression target: %s", model.ErrValidation, target)
	}

	res := Result{Image: img, Ext: target, MaxSize: o.MaxSize}
	switch target {
	case "jpg", "jpeg":
		res.Params = codec.EncodeParams{Quality: o.Quality, FlattenAlpha: true}
	case "webp":
		res.Params = codec.EncodeParams{Quality: o.Quality}
	case "png":
		// Quality does not apply to PNG; ask the encoder for its smallest
		// output instead.
		res.Params = codec.EncodeParams{BestCompression: true}
	}

	return res, nil
}
