package optifuse

import (
	"bytes"
	"errors"
	"image"
	"image/png"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	"github.com/dlecorfec/progjpeg"
)

// fallbackJPEGQuality is the fixed quality of the progressive JPEG fallback.
// The fallback is a compatibility baseline, not a tuning knob, so it does
// not follow the WebP quality option.
const fallbackJPEGQuality = 90

// RasterResult holds the outputs of the raster pipeline for one image.
type RasterResult struct {
	// WebP is the modern encoding chosen by the quality search.
	WebP []byte
	// Fallback is the maximally compatible encoding used as the size
	// baseline: a progressive JPEG for JPEG sources, an interlaced PNG
	// for everything else.
	Fallback []byte
	// FallbackFormat is the fallback file extension without the dot.
	FallbackFormat string

	// Quality is the WebP quality level of the winning attempt; zero for
	// lossless output.
	Quality int
	// BudgetMet reports whether the WebP stayed within the size budget
	// derived from the fallback. Always true for lossless output.
	BudgetMet bool
	// EncodeCalls counts the WebP encoder invocations spent by the search.
	EncodeCalls int
	// Interlaced reports whether the PNG fallback carries the interlace
	// flag. True for JPEG fallbacks, whose progressive scan needs no
	// verification pass.
	Interlaced bool
}

// OptimizeRaster converts one raster image into a WebP plus an interlaced
// fallback. The WebP quality is searched adaptively so the output stays
// within TargetRatio of the fallback size; with the Lossless option a single
// lossless encode is accepted unconditionally.
func (p *Processor) OptimizeRaster(data []byte) (*RasterResult, error) {
	img, format, err := decodeRaster(data)
	if err != nil {
		return nil, err
	}

	if p.MaxSide > 0 {
		b := img.Bounds()
		if b.Dx() > p.MaxSide || b.Dy() > p.MaxSide {
			img = imaging.Fit(img, p.MaxSide, p.MaxSide, imaging.Lanczos)
		}
	}

	res := &RasterResult{}
	if err := p.encodeFallback(res, img, format); err != nil {
		return nil, err
	}
	if err := p.encodeWebP(res, img); err != nil {
		return nil, err
	}
	return res, nil
}

// encodeFallback produces the compatibility encoding and records its format.
// JPEG sources stay JPEG with progressive scan order; all other sources are
// normalized to interlaced PNG, going through the verification and repair
// pass since the primary PNG encoder writes sequential scan order.
func (p *Processor) encodeFallback(res *RasterResult, img *image.NRGBA, format string) error {
	if format == "jpeg" {
		var buf bytes.Buffer
		err := progjpeg.Encode(&buf, img, &progjpeg.Options{
			Quality:     fallbackJPEGQuality,
			Progressive: true,
		})
		if err != nil {
			return err
		}
		res.Fallback = buf.Bytes()
		res.FallbackFormat = "jpg"
		res.Interlaced = true
		return nil
	}

	var buf bytes.Buffer
	enc := png.Encoder{CompressionLevel: png.BestCompression}
	if err := enc.Encode(&buf, img); err != nil {
		return err
	}
	// A failed repair is advisory: the sequential PNG is still a usable
	// fallback and is reported through the Interlaced field.
	fallback, ok, err := VerifyAndRepairInterlace(buf.Bytes())
	if err != nil && !errors.Is(err, ErrInterlaceUnavailable) {
		return err
	}
	res.Fallback = fallback
	res.FallbackFormat = "png"
	res.Interlaced = ok
	return nil
}

// encodeWebP runs the adaptive quality search, or a single lossless encode
// when the override is set.
func (p *Processor) encodeWebP(res *RasterResult, img *image.NRGBA) error {
	if p.Lossless {
		var buf bytes.Buffer
		if err := webp.Encode(&buf, img, &webp.Options{Lossless: true}); err != nil {
			return err
		}
		res.WebP = buf.Bytes()
		res.BudgetMet = true
		res.EncodeCalls = 1
		return nil
	}

	ratio := p.TargetRatio
	if ratio <= 0 || ratio > 1 {
		ratio = DefaultTargetRatio
	}
	seed := p.Quality
	if seed == 0 {
		seed = DefaultQuality
	}
	budget := int(float64(len(res.Fallback)) * ratio)

	result, err := searchQuality(func(q int) ([]byte, error) {
		var buf bytes.Buffer
		err := webp.Encode(&buf, img, &webp.Options{Quality: float32(q)})
		if err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	}, seed, budget)
	if err != nil {
		return err
	}

	res.WebP = result.Data
	res.Quality = result.Quality
	res.BudgetMet = result.BudgetMet
	res.EncodeCalls = result.EncodeCalls
	return nil
}
