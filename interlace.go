package optifuse

import (
	"bytes"
	"errors"
	"fmt"
	"image/png"

	"github.com/optifuse/optifuse/adam7"
)

// ErrInterlaceUnavailable is returned when the repair pass could not force
// the interlace flag. Advisory: the sequential fallback is still usable.
var ErrInterlaceUnavailable = errors.New("optifuse: interlaced encoding unavailable")

var pngSignature = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}

// VerifyInterlaced reports whether the PNG data carries the Adam7 interlace
// flag. The interlace method is the last byte of the IHDR payload, which is
// required to be the first chunk after the signature.
func VerifyInterlaced(data []byte) bool {
	// signature + chunk length/type + 13 byte IHDR payload
	if len(data) < 8+8+13 {
		return false
	}
	if !bytes.Equal(data[:8], pngSignature) {
		return false
	}
	if !bytes.Equal(data[12:16], []byte("IHDR")) {
		return false
	}
	return data[8+8+12] == 1
}

// VerifyAndRepairInterlace checks the interlace flag of a produced PNG and,
// if it is unset, re-encodes the image once through the Adam7 encoder and
// verifies again. When the repair does not take effect the original bytes
// are returned together with ErrInterlaceUnavailable.
func VerifyAndRepairInterlace(data []byte) ([]byte, bool, error) {
	if VerifyInterlaced(data) {
		return data, true, nil
	}

	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return data, false, fmt.Errorf("%w: %v", ErrInterlaceUnavailable, err)
	}

	var buf bytes.Buffer
	if err := adam7.Encode(&buf, img); err != nil {
		return data, false, fmt.Errorf("%w: %v", ErrInterlaceUnavailable, err)
	}
	if !VerifyInterlaced(buf.Bytes()) {
		return data, false, ErrInterlaceUnavailable
	}
	return buf.Bytes(), true, nil
}
