package codec

import (
	"bytes"
	"image"
	"testing"
)

func makeAlphaImage(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			off := y*img.Stride + x*4
			img.Pix[off] = uint8(x * 255 / w)
			img.Pix[off+1] = uint8(y * 255 / h)
			img.Pix[off+2] = 0x80
			img.Pix[off+3] = uint8(y * 255 / h)
		}
	}
	return img
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	src := makeAlphaImage(50, 40)

	for _, ext := range []string{"png", "jpg", "gif", "bmp", "tiff", "webp"} {
		params := EncodeParams{Quality: 90}
		if ext == "jpg" {
			params.FlattenAlpha = true
		}
		data, err := EncodeBytes(src, ext, params)
		if err != nil {
			t.Errorf("%s: encode failed: %v", ext, err)
			continue
		}
		if len(data) == 0 {
			t.Errorf("%s: empty output", ext)
			continue
		}
		decoded, err := Decode(bytes.NewReader(data))
		if err != nil {
			t.Errorf("%s: decode failed: %v", ext, err)
			continue
		}
		b := decoded.Bounds()
		if b.Dx() != 50 || b.Dy() != 40 {
			t.Errorf("%s: round trip changed dimensions to %dx%d", ext, b.Dx(), b.Dy())
		}
	}
}

func TestEncodeICO(t *testing.T) {
	data, err := EncodeBytes(makeAlphaImage(32, 32), "ico", EncodeParams{})
	if err != nil {
		t.Fatalf("ico encode failed: %v", err)
	}
	if len(data) == 0 {
		t.Fatal("ico output is empty")
	}
}

func TestEncodePDF(t *testing.T) {
	data, err := EncodeBytes(makeAlphaImage(20, 20), "pdf", EncodeParams{FlattenAlpha: true})
	if err != nil {
		t.Fatalf("pdf encode failed: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("%PDF")) {
		t.Errorf("pdf output does not start with %%PDF header")
	}
}

func TestEncodeUnknownFormat(t *testing.T) {
	if _, err := EncodeBytes(makeAlphaImage(10, 10), "xcf", EncodeParams{}); err == nil {
		t.Fatal("expected an error for an unknown format")
	}
}

func TestNormalizeProducesNRGBA(t *testing.T) {
	gray := image.NewGray(image.Rect(0, 0, 8, 8))
	n := Normalize(gray)
	if n.Bounds() != gray.Bounds() {
		t.Errorf("normalize changed bounds: %v", n.Bounds())
	}
}

func TestHEICUnsupported(t *testing.T) {
	if HEICSupported() {
		t.Fatal("stock build must report HEIC as unsupported")
	}
}
