package processor

import (
	"errors"
	"image"
	"testing"

	"github.com/imageforge/imageforge/internal/model"
)

func makeTestImage(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			off := y*img.Stride + x*4
			img.Pix[off] = uint8(x * 255 / w)
			img.Pix[off+1] = uint8(y * 255 / h)
			img.Pix[off+2] = uint8((x + y) % 256)
			img.Pix[off+3] = 0xff
		}
	}
	return img
}

func TestConvertJPEGFlattensAlpha(t *testing.T) {
	opts := model.Options{Op: model.OperationConvert, Convert: model.ConvertOptions{Format: "jpg"}}
	res, err := Apply(makeTestImage(40, 30), opts, "png")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Ext != "jpg" {
		t.Errorf("ext = %q, want jpg", res.Ext)
	}
	if !res.Params.FlattenAlpha {
		t.Error("jpeg output must flatten alpha")
	}
	if res.Params.Quality != 90 {
		t.Errorf("jpeg convert quality = %d, want 90", res.Params.Quality)
	}
}

func TestConvertICOCapsAndSquares(t *testing.T) {
	opts := model.Options{Op: model.OperationConvert, Convert: model.ConvertOptions{Format: "ico"}}
	res, err := Apply(makeTestImage(1000, 400), opts, "png")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b := res.Image.Bounds()
	if b.Dx() != icoMaxSize || b.Dy() != icoMaxSize {
		t.Errorf("ico canvas = %dx%d, want %dx%d", b.Dx(), b.Dy(), icoMaxSize, icoMaxSize)
	}

	res, err = Apply(makeTestImage(64, 32), opts, "png")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b = res.Image.Bounds()
	if b.Dx() != 64 || b.Dy() != 64 {
		t.Errorf("small ico canvas = %dx%d, want 64x64", b.Dx(), b.Dy())
	}
}

func TestResizePercentage(t *testing.T) {
	opts := model.Options{Op: model.OperationResize, Resize: model.ResizeOptions{
		Mode:       model.ResizeModePercentage,
		Percentage: 50,
	}}
	res, err := Apply(makeTestImage(200, 100), opts, "png")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b := res.Image.Bounds()
	if b.Dx() != 100 || b.Dy() != 50 {
		t.Errorf("resized to %dx%d, want 100x50", b.Dx(), b.Dy())
	}
	if res.Ext != "png" {
		t.Errorf("resize output ext = %q, want png", res.Ext)
	}
}

func TestResizePixelsExact(t *testing.T) {
	opts := model.Options{Op: model.OperationResize, Resize: model.ResizeOptions{
		Mode:   model.ResizeModePixels,
		Width:  120,
		Height: 90,
	}}
	res, err := Apply(makeTestImage(200, 100), opts, "png")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b := res.Image.Bounds()
	if b.Dx() != 120 || b.Dy() != 90 {
		t.Errorf("resized to %dx%d, want 120x90", b.Dx(), b.Dy())
	}
}

func TestResizeAspectLock(t *testing.T) {
	// Source is 2:1. Asking for 100x100 with the lock on must shrink the
	// over-constraining dimension instead of distorting the image.
	opts := model.Options{Op: model.OperationResize, Resize: model.ResizeOptions{
		Mode:           model.ResizeModePixels,
		Width:          100,
		Height:         100,
		MaintainAspect: true,
	}}
	res, err := Apply(makeTestImage(200, 100), opts, "png")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b := res.Image.Bounds()
	if b.Dx() != 100 || b.Dy() != 50 {
		t.Errorf("aspect-locked resize = %dx%d, want 100x50", b.Dx(), b.Dy())
	}
}

func TestResizeMissingDimensionUsesSource(t *testing.T) {
	opts := model.Options{Op: model.OperationResize, Resize: model.ResizeOptions{
		Mode:  model.ResizeModePixels,
		Width: 100,
	}}
	res, err := Apply(makeTestImage(200, 100), opts, "png")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b := res.Image.Bounds()
	// Height defaults to the source height, then the aspect lock is off so
	// it is honored verbatim.
	if b.Dx() != 100 || b.Dy() != 100 {
		t.Errorf("resize = %dx%d, want 100x100", b.Dx(), b.Dy())
	}
}

func TestCropWithinBounds(t *testing.T) {
	opts := model.Options{Op: model.OperationCrop, Crop: model.CropOptions{
		X: 10, Y: 20, Width: 50, Height: 30,
	}}
	res, err := Apply(makeTestImage(200, 100), opts, "png")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b := res.Image.Bounds()
	if b.Dx() != 50 || b.Dy() != 30 {
		t.Errorf("cropped to %dx%d, want 50x30", b.Dx(), b.Dy())
	}
}

func TestCropClampsToEdges(t *testing.T) {
	opts := model.Options{Op: model.OperationCrop, Crop: model.CropOptions{
		X: 150, Y: 0, Width: 500, Height: 500,
	}}
	res, err := Apply(makeTestImage(200, 100), opts, "png")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b := res.Image.Bounds()
	if b.Dx() != 50 || b.Dy() != 100 {
		t.Errorf("clamped crop = %dx%d, want 50x100", b.Dx(), b.Dy())
	}
}

func TestCropZeroMeansFull(t *testing.T) {
	opts := model.Options{Op: model.OperationCrop}
	res, err := Apply(makeTestImage(80, 60), opts, "png")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b := res.Image.Bounds()
	if b.Dx() != 80 || b.Dy() != 60 {
		t.Errorf("full crop = %dx%d, want 80x60", b.Dx(), b.Dy())
	}
}

func TestCompressDefaultsToOriginalFormat(t *testing.T) {
	opts := model.Options{Op: model.OperationCompress, Compress: model.CompressOptions{Quality: 85}}
	res, err := Apply(makeTestImage(40, 40), opts, "jpeg")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Ext != "jpeg" {
		t.Errorf("compress target = %q, want jpeg", res.Ext)
	}
	if res.Params.Quality != 85 {
		t.Errorf("quality = %d, want 85", res.Params.Quality)
	}
}

func TestCompressRejectsNonCompressibleOriginal(t *testing.T) {
	opts := model.Options{Op: model.OperationCompress, Compress: model.CompressOptions{Quality: 85}}
	_, err := Apply(makeTestImage(40, 40), opts, "gif")
	if !errors.Is(err, model.ErrValidation) {
		t.Errorf("gif original without explicit target: want validation error, got %v", err)
	}
}

func TestCompressCarriesMaxSize(t *testing.T) {
	opts := model.Options{Op: model.OperationCompress, Compress: model.CompressOptions{
		Format: "webp", Quality: 70, MaxSize: 4096,
	}}
	res, err := Apply(makeTestImage(40, 40), opts, "png")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Ext != "webp" || res.MaxSize != 4096 {
		t.Errorf("got ext=%q maxSize=%d, want webp/4096", res.Ext, res.MaxSize)
	}
}
