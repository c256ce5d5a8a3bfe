// Package codec wraps the image codec libraries behind decode and encode
// primitives keyed by file extension. Callers never deal with per-format
// encoder quirks: they hand over an extension and an EncodeParams and get
// bytes back.
package codec

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"io"

	ico "github.com/biessek/golang-ico"
	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	"github.com/fogleman/gg"
	"github.com/jung-kurt/gofpdf"

	// Registers the WEBP decoder with image.Decode.
	_ "golang.org/x/image/webp"

	"github.com/imageforge/imageforge/internal/format"
)

// EncodeParams are the per-output encoder settings chosen by an operation
// strategy.
type EncodeParams struct {
	// Quality applies to JPEG and WEBP output, range 1-100.
	Quality int
	// FlattenAlpha composites the image over a white background before
	// encoding. Set for targets without an alpha channel (JPEG, PDF).
	FlattenAlpha bool
	// BestCompression selects the slowest, smallest PNG encoding.
	BestCompression bool
}

// HEICSupported reports whether this build can decode HEIC input. The stock
// build links no HEIF decoder (the existing Go bindings all require a cgo
// libheif toolchain), so browsers are expected to pre-convert HEIC uploads
// and declare that in the manifest.
func HEICSupported() bool {
	return false
}

// Decode reads and decodes an image from r. Format detection is by content,
// not filename; the ICO and WEBP decoders are registered as a side effect of
// the imports above.
func Decode(r io.Reader) (image.Image, error) {
	img, err := imaging.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	return img, nil
}

// Normalize converts any decoded image to NRGBA so that the operation
// strategies never observe palette or exotic colorspace representations.
func Normalize(img image.Image) *image.NRGBA {
	return imaging.Clone(img)
}

// Encode writes img to w in the format named by ext.
func Encode(w io.Writer, img image.Image, ext string, p EncodeParams) error {
	if p.FlattenAlpha {
		img = flatten(img)
	}

	switch format.Normalize(ext) {
	case "jpg", "jpeg":
		return imaging.Encode(w, img, imaging.JPEG, imaging.JPEGQuality(p.Quality))
	case "png":
		if p.BestCompression {
			return imaging.Encode(w, img, imaging.PNG, imaging.PNGCompressionLevel(png.BestCompression))
		}
		return imaging.Encode(w, img, imaging.PNG)
	case "gif":
		return imaging.Encode(w, img, imaging.GIF)
	case "bmp":
		return imaging.Encode(w, img, imaging.BMP)
	case "tiff":
		return imaging.Encode(w, img, imaging.TIFF)
	case "webp":
		return webp.Encode(w, img, &webp.Options{Quality: float32(p.Quality)})
	case "ico":
		return ico.Encode(w, img)
	case "pdf":
		return encodePDF(w, img)
	default:
		return fmt.Errorf("no encoder for format %q", ext)
	}
}

// EncodeBytes is Encode into a fresh buffer.
func EncodeBytes(img image.Image, ext string, p EncodeParams) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, img, ext, p); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// flatten composites img over an opaque white canvas, discarding alpha.
func flatten(img image.Image) image.Image {
	b := img.Bounds()
	dc := gg.NewContext(b.Dx(), b.Dy())
	dc.SetRGB(1, 1, 1)
	dc.Clear()
	dc.DrawImage(img, 0, 0)
	return dc.Image()
}

// encodePDF emits a single-page PDF whose page exactly fits the image,
// one point per pixel.
func encodePDF(w io.Writer, img image.Image) error {
	data, err := EncodeBytes(img, "png", EncodeParams{})
	if err != nil {
		return fmt.Errorf("render pdf page: %w", err)
	}

	b := img.Bounds()
	wd, ht := float64(b.Dx()), float64(b.Dy())
	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		UnitStr: "pt",
		Size:    gofpdf.SizeType{Wd: wd, Ht: ht},
	})
	pdf.AddPage()

	opts := gofpdf.ImageOptions{ImageType: "PNG"}
	pdf.RegisterImageOptionsReader("page", opts, bytes.NewReader(data))
	pdf.ImageOptions("page", 0, 0, wd, ht, false, opts, 0, "")

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}
