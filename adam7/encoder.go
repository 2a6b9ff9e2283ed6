// Package adam7 writes PNG images with Adam7 interlacing. The standard
// library encoder only produces sequential scan order, so this encoder acts
// as the secondary path whenever an interlaced fallback is required.
package adam7

import (
	"bytes"
	"encoding/binary"
	"hash/crc32"
	"image"
	"image/color"
	"io"

	"github.com/klauspost/compress/zlib"
)

var pngSignature = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}

// The seven interlace passes: starting offset and increment per axis.
var passes = [7]struct {
	xStart, yStart int
	xDelta, yDelta int
}{
	{0, 0, 8, 8},
	{4, 0, 8, 8},
	{0, 4, 4, 8},
	{2, 0, 4, 4},
	{0, 2, 2, 4},
	{1, 0, 2, 2},
	{0, 1, 1, 2},
}

// Encode writes img to w as an 8-bit truecolor PNG with Adam7 interlacing.
// Fully opaque images are written without an alpha channel.
func Encode(w io.Writer, img image.Image) error {
	nrgba := toNRGBA(img)
	hasAlpha := !opaque(nrgba)

	width := nrgba.Bounds().Dx()
	height := nrgba.Bounds().Dy()

	if _, err := w.Write(pngSignature); err != nil {
		return err
	}

	colorType := byte(2) // truecolor
	if hasAlpha {
		colorType = 6 // truecolor with alpha
	}
	ihdr := make([]byte, 13)
	binary.BigEndian.PutUint32(ihdr[0:4], uint32(width))
	binary.BigEndian.PutUint32(ihdr[4:8], uint32(height))
	ihdr[8] = 8 // bit depth
	ihdr[9] = colorType
	ihdr[10] = 0 // compression: deflate
	ihdr[11] = 0 // filter method 0
	ihdr[12] = 1 // Adam7
	if err := writeChunk(w, "IHDR", ihdr); err != nil {
		return err
	}

	idat, err := compressPasses(nrgba, width, height, hasAlpha)
	if err != nil {
		return err
	}
	if err := writeChunk(w, "IDAT", idat); err != nil {
		return err
	}
	return writeChunk(w, "IEND", nil)
}

// compressPasses serializes the seven reduced images into one deflate
// stream. Every scanline is prefixed with filter type None; empty passes
// contribute no bytes at all.
func compressPasses(img *image.NRGBA, width, height int, hasAlpha bool) ([]byte, error) {
	var buf bytes.Buffer
	zw, err := zlib.NewWriterLevel(&buf, zlib.BestCompression)
	if err != nil {
		return nil, err
	}

	bpp := 3
	if hasAlpha {
		bpp = 4
	}
	row := make([]byte, 1+width*bpp)

	for _, pass := range passes {
		if pass.xStart >= width || pass.yStart >= height {
			continue
		}
		pixels := (width - pass.xStart + pass.xDelta - 1) / pass.xDelta
		if pixels == 0 {
			continue
		}
		for y := pass.yStart; y < height; y += pass.yDelta {
			line := row[:1+pixels*bpp]
			line[0] = 0 // filter: None
			i := 1
			for x := pass.xStart; x < width; x += pass.xDelta {
				off := img.PixOffset(x, y)
				line[i+0] = img.Pix[off+0]
				line[i+1] = img.Pix[off+1]
				line[i+2] = img.Pix[off+2]
				if hasAlpha {
					line[i+3] = img.Pix[off+3]
				}
				i += bpp
			}
			if _, err := zw.Write(line); err != nil {
				return nil, err
			}
		}
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// writeChunk emits one PNG chunk: length, type, payload, CRC over type+payload.
func writeChunk(w io.Writer, typ string, data []byte) error {
	var header [8]byte
	binary.BigEndian.PutUint32(header[0:4], uint32(len(data)))
	copy(header[4:8], typ)

	crc := crc32.NewIEEE()
	crc.Write(header[4:8])
	crc.Write(data)
	var footer [4]byte
	binary.BigEndian.PutUint32(footer[:], crc.Sum32())

	if _, err := w.Write(header[:]); err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return err
	}
	_, err := w.Write(footer[:])
	return err
}

// opaque reports whether every pixel has full alpha.
func opaque(img *image.NRGBA) bool {
	for i := 3; i < len(img.Pix); i += 4 {
		if img.Pix[i] != 0xff {
			return false
		}
	}
	return true
}

// toNRGBA normalizes any image type to *image.NRGBA with min-point at (0, 0).
func toNRGBA(img image.Image) *image.NRGBA {
	if src, ok := img.(*image.NRGBA); ok {
		b := src.Bounds()
		if b.Min.X == 0 && b.Min.Y == 0 {
			return src
		}
	}
	b := img.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			c := color.NRGBAModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.NRGBA)
			dst.SetNRGBA(x, y, c)
		}
	}
	return dst
}
