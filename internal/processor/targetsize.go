package processor

import (
	"image"

	"github.com/imageforge/imageforge/internal/codec"
	"github.com/imageforge/imageforge/internal/format"
)

// Quality search bracket for size-targeted compression. Below 10 the output
// is unusable; above 95 the encoders burn bytes for no visible gain.
const (
	minSearchQuality = 10
	maxSearchQuality = 95
)

// EncodeResult carries the encoded bytes together with the quality that
// produced them.
type EncodeResult struct {
	Data    []byte
	Quality int
}

// EncodeOutput encodes a strategy result, engaging the size-targeted solver
// when the strategy set a byte ceiling and the output format has a quality
// knob. All other combinations encode exactly once.
func EncodeOutput(img image.Image, ext string, p codec.EncodeParams, ceiling int) (EncodeResult, error) {
	if ceiling > 0 && format.QualityTargets[ext] {
		return encodeToCeiling(img, ext, p, ceiling)
	}
	data, err := codec.EncodeBytes(img, ext, p)
	if err != nil {
		return EncodeResult{}, err
	}
	return EncodeResult{Data: data, Quality: p.Quality}, nil
}

// encodeToCeiling searches for the highest quality whose encoded size fits
// the ceiling. The requested quality is tried first and accepted as-is when
// it already fits: quality is never raised above what the caller asked for.
// Otherwise an integer binary search runs over [10, 95], keeping the largest
// quality that fits. When nothing fits, the floor quality is used and the
// oversized result returned anyway: the ceiling is a best-effort target, not
// a guarantee.
//
// The search assumes encoded size is non-increasing as quality drops, which
// holds for the JPEG and WEBP encoders in practice and is not re-verified.
func encodeToCeiling(img image.Image, ext string, p codec.EncodeParams, ceiling int) (EncodeResult, error) {
	data, err := codec.EncodeBytes(img, ext, p)
	if err != nil {
		return EncodeResult{}, err
	}
	if len(data) <= ceiling {
		return EncodeResult{Data: data, Quality: p.Quality}, nil
	}

	var best []byte
	bestQuality := 0

	lo, hi := minSearchQuality, maxSearchQuality
	for lo <= hi {
		mid := (lo + hi) / 2
		p.Quality = mid
		data, err = codec.EncodeBytes(img, ext, p)
		if err != nil {
			return EncodeResult{}, err
		}
		if len(data) <= ceiling {
			best = data
			bestQuality = mid
			lo = mid + 1
		} else {
			hi = mid - 1
		}
	}

	if best == nil {
		p.Quality = minSearchQuality
		data, err = codec.EncodeBytes(img, ext, p)
		if err != nil {
			return EncodeResult{}, err
		}
		return EncodeResult{Data: data, Quality: minSearchQuality}, nil
	}

	return EncodeResult{Data: best, Quality: bestQuality}, nil
}
