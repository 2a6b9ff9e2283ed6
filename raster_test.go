package optifuse

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	xwebp "golang.org/x/image/webp"
)

// testGradient builds an image with enough detail that the lossy encoders
// produce realistic, non-trivial outputs.
func testGradient(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{
				R: uint8(x * 255 / w),
				G: uint8(y * 255 / h),
				B: uint8((x ^ y) & 0xff),
				A: 0xff,
			})
		}
	}
	return img
}

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("could not encode the test PNG: %v", err)
	}
	return buf.Bytes()
}

func encodeJPEG(t *testing.T, img image.Image) []byte {
	t.Helper()

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
		t.Fatalf("could not encode the test JPEG: %v", err)
	}
	return buf.Bytes()
}

func TestOptimizeRaster_PNGSourceGetsInterlacedFallback(t *testing.T) {
	proc := NewProcessor()

	res, err := proc.OptimizeRaster(encodePNG(t, testGradient(64, 48)))
	if err != nil {
		t.Fatalf("the raster pipeline failed: %v", err)
	}

	if res.FallbackFormat != "png" {
		t.Errorf("a PNG source should keep a PNG fallback, got %q", res.FallbackFormat)
	}
	if !res.Interlaced {
		t.Errorf("the PNG fallback should be interlaced")
	}
	if !VerifyInterlaced(res.Fallback) {
		t.Errorf("the fallback bytes do not carry the interlace flag")
	}
	if len(res.WebP) == 0 {
		t.Fatalf("no WebP output was produced")
	}
	if res.EncodeCalls > maxEncodeCalls {
		t.Errorf("the quality search spent %d encoder calls, the cap is %d", res.EncodeCalls, maxEncodeCalls)
	}
	if res.BudgetMet {
		budget := int(float64(len(res.Fallback)) * proc.TargetRatio)
		if len(res.WebP) > budget {
			t.Errorf("BudgetMet is set but the WebP (%d bytes) exceeds the budget (%d bytes)", len(res.WebP), budget)
		}
	}
	if _, err := xwebp.Decode(bytes.NewReader(res.WebP)); err != nil {
		t.Errorf("the WebP output does not decode: %v", err)
	}
}

func TestOptimizeRaster_JPEGSourceStaysJPEG(t *testing.T) {
	proc := NewProcessor()

	res, err := proc.OptimizeRaster(encodeJPEG(t, testGradient(64, 48)))
	if err != nil {
		t.Fatalf("the raster pipeline failed: %v", err)
	}

	if res.FallbackFormat != "jpg" {
		t.Errorf("a JPEG source should keep a JPEG fallback, got %q", res.FallbackFormat)
	}
	if !res.Interlaced {
		t.Errorf("a progressive JPEG fallback should report interlaced")
	}
	if _, err := jpeg.Decode(bytes.NewReader(res.Fallback)); err != nil {
		t.Errorf("the progressive fallback does not decode: %v", err)
	}
}

func TestOptimizeRaster_Lossless(t *testing.T) {
	proc := NewProcessor()
	proc.Lossless = true

	res, err := proc.OptimizeRaster(encodePNG(t, testGradient(32, 32)))
	if err != nil {
		t.Fatalf("the raster pipeline failed: %v", err)
	}
	if !res.BudgetMet {
		t.Errorf("lossless output is accepted unconditionally")
	}
	if res.EncodeCalls != 1 {
		t.Errorf("lossless mode should spend a single encode, got %d", res.EncodeCalls)
	}
	if _, err := xwebp.Decode(bytes.NewReader(res.WebP)); err != nil {
		t.Errorf("the lossless WebP does not decode: %v", err)
	}
}

func TestOptimizeRaster_MaxSideDownscales(t *testing.T) {
	proc := NewProcessor()
	proc.MaxSide = 50

	res, err := proc.OptimizeRaster(encodePNG(t, testGradient(200, 100)))
	if err != nil {
		t.Fatalf("the raster pipeline failed: %v", err)
	}

	img, err := png.Decode(bytes.NewReader(res.Fallback))
	if err != nil {
		t.Fatalf("could not decode the fallback: %v", err)
	}
	b := img.Bounds()
	if b.Dx() > 50 || b.Dy() > 50 {
		t.Errorf("the output exceeds the size cap: %dx%d", b.Dx(), b.Dy())
	}
	// Downscaling keeps the aspect ratio.
	if b.Dx() != 50 || b.Dy() != 25 {
		t.Errorf("expected 50x25, got %dx%d", b.Dx(), b.Dy())
	}
}

func TestOptimizeRaster_RejectsGarbage(t *testing.T) {
	proc := NewProcessor()

	if _, err := proc.OptimizeRaster([]byte("not an image")); !errors.Is(err, ErrUnsupportedAsset) {
		t.Errorf("expected ErrUnsupportedAsset, got %v", err)
	}
}
